package cache

import (
	"context"
	"log"

	"examtracker/internal/platform/config"

	"github.com/redis/go-redis/v9"
)

// RDB backs the per-user aggregate cache. Exam mutations invalidate the
// cached entries, so a lost cache is never more than a slower read.
var RDB *redis.Client

func Connect() {
	RDB = redis.NewClient(&redis.Options{
		Addr:     config.AppConfig.RedisAddr,
		Password: config.AppConfig.RedisPassword,
		DB:       config.AppConfig.RedisDB,
	})

	ctx := context.Background()
	if _, err := RDB.Ping(ctx).Result(); err != nil {
		log.Fatalf("Could not connect to Redis: %v", err)
	}
}

func Close() {
	if RDB != nil {
		RDB.Close()
	}
}
