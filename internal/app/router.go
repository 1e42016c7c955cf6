package app

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"

	"portfolio-api/internal/apierror"
	"portfolio-api/internal/auth"
	"portfolio-api/internal/maintenance"
	"portfolio-api/internal/observability"
	"portfolio-api/internal/portfolio"
)

// Pinger reports whether the backing database is reachable.
type Pinger interface {
	PingContext(ctx context.Context) error
}

type Deps struct {
	Logger         *observability.Logger
	Auth           *auth.Handler
	Gate           *auth.Gate
	LoginLimiter   *auth.LoginRateLimiter
	Documents      portfolio.DocumentStore
	Cleanup        *maintenance.CleanupHandler
	Health         Pinger
	AllowedOrigins []string
}

func NewRouter(deps Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(observability.RequestLogging(deps.Logger))
	r.Use(observability.Recover(deps.Logger))
	r.Use(cors.New(cors.Options{
		AllowedOrigins:   deps.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		ExposedHeaders:   []string{"Authorization"},
		AllowCredentials: true,
		MaxAge:           600,
	}).Handler)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		apierror.Write(w, http.StatusNotFound, apierror.CodeNotFound, "route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		apierror.Write(w, http.StatusMethodNotAllowed, apierror.CodeBadRequest, "method not allowed")
	})

	r.Route("/auth", func(r chi.Router) {
		r.With(deps.LoginLimiter.Middleware).Post("/login", deps.Auth.Login)
		r.Post("/refresh", deps.Auth.Refresh)
		r.Post("/logout", deps.Auth.Logout)
		r.With(deps.Gate.Middleware).Get("/verify", deps.Auth.Verify)
		r.Post("/unlock-account", deps.Auth.UnlockAccount)
		r.Post("/register", deps.Auth.Register)
		r.Get("/status", deps.Auth.Status)
	})

	r.Group(func(r chi.Router) {
		r.Use(deps.Gate.Middleware)
		portfolio.Mount(r, deps.Documents, deps.Logger)
	})

	r.Get("/health", healthHandler(deps.Health))
	r.Get("/internal/maintenance/cleanup", deps.Cleanup.Handle)
	r.Post("/internal/maintenance/cleanup", deps.Cleanup.Handle)

	return r
}

func healthHandler(database Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := http.StatusOK
		body := map[string]any{"status": "ok", "time": time.Now().UTC().Format(time.RFC3339)}

		if database != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := database.PingContext(ctx); err != nil {
				status = http.StatusServiceUnavailable
				body["status"] = "degraded"
			}
		}

		apierror.WriteJSON(w, status, body)
	}
}
