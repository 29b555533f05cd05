package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"examtracker/internal/api"
	"examtracker/internal/app/service"
	"examtracker/internal/common/security"
	"examtracker/internal/domain/repository"
	"examtracker/internal/logger"
	"examtracker/internal/platform/cache"
	"examtracker/internal/platform/config"
	"examtracker/internal/platform/database"
)

func main() {
	// 1. Load Configuration
	config.Load()

	appLog := logger.New(config.AppConfig.LogLevel, config.AppConfig.LogFormat)
	appLog.Info("configuration loaded")

	// 2. Initialize JWT
	security.InitJWT()

	// 3. Initialize Database
	database.Connect()
	defer database.Close()
	appLog.Info("database connected")

	// 4. Initialize Redis (aggregate cache)
	cache.Connect()
	defer cache.Close()
	appLog.Info("redis connected")

	// 5. Initialize Repositories
	userRepo := repository.NewPgUserRepository(database.DB)
	examRepo := repository.NewPgExamRepository(database.DB)

	// 6. Initialize Services
	authService := service.NewAuthService(userRepo, appLog)
	examService := service.NewExamService(examRepo, cache.RDB, appLog)

	// 7. Initialize Router & HTTP Server
	router := api.NewRouter(authService, examService, userRepo)

	server := &http.Server{
		Addr:         ":" + config.AppConfig.APIPort,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// 8. Graceful Shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	go func() {
		appLog.Info("server starting", "port", config.AppConfig.APIPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Could not listen on %s: %v\n", config.AppConfig.APIPort, err)
		}
	}()

	<-stop // Wait for interrupt signal

	appLog.Info("shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("Server shutdown failed: %v", err)
	}

	appLog.Info("server stopped gracefully")
}
