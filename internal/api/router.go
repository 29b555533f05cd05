package api

import (
	"net/http"
	"time"

	"examtracker/internal/api/handler"
	"examtracker/internal/api/middleware"
	"examtracker/internal/app/service"
	"examtracker/internal/common/security"
	"examtracker/internal/domain/repository"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/jwtauth/v5"
)

func NewRouter(
	authService *service.AuthService,
	examService *service.ExamService,
	userRepo repository.UserRepository,
) http.Handler {
	r := chi.NewRouter()

	// Base Middlewares
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Timeout(60 * time.Second))

	// Parses "Authorization: Bearer T" and puts token + claims in context.
	// Route-level Authenticator decides whether a valid token is required.
	r.Use(jwtauth.Verifier(security.TokenAuth))

	authenticated := middleware.Authenticator(userRepo)

	// Public health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	})

	authHandler := handler.NewAuthHandler(authService)
	r.Route("/auth", func(ar chi.Router) {
		authHandler.RegisterRoutes(ar)
		ar.Group(func(pr chi.Router) {
			pr.Use(authenticated)
			authHandler.RegisterProtectedRoutes(pr)
		})
	})

	examHandler := handler.NewExamHandler(examService)
	r.Route("/exams", func(er chi.Router) {
		er.Use(authenticated)
		examHandler.RegisterRoutes(er)
	})

	return r
}
