package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	apiMiddleware "github.com/phrazzld/scry-reader/internal/api/middleware"
	"github.com/phrazzld/scry-reader/internal/api/shared"
	"github.com/phrazzld/scry-reader/internal/auth"
)

// HealthCheck reports whether a dependency is reachable.
type HealthCheck func(ctx context.Context) error

// RouterConfig holds everything the router wires together.
type RouterConfig struct {
	JWTService   auth.JWTService
	TrackedItems *TrackedItemHandler
	Documents    *DocumentHandler
	// Health is optional; when set, /health reports 503 while it fails.
	Health HealthCheck
	Logger *slog.Logger
}

// NewRouter builds the HTTP handler for the API.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(apiMiddleware.TraceMiddleware(cfg.Logger))
	r.Use(middleware.Recoverer)

	r.Get("/health", healthHandler(cfg.Health))

	authMiddleware := apiMiddleware.NewAuthMiddleware(cfg.JWTService)
	r.Route("/api", func(r chi.Router) {
		r.Use(authMiddleware.Authenticate)

		r.Get("/progress", cfg.TrackedItems.Progress)

		r.Route("/tracked-items", func(r chi.Router) {
			r.Post("/", cfg.TrackedItems.Link)
			r.Get("/", cfg.TrackedItems.List)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", cfg.TrackedItems.Get)
				r.Post("/complete", cfg.TrackedItems.Complete)
				r.Post("/documents", cfg.Documents.Upload)
				r.Get("/chapters", cfg.TrackedItems.Chapters)
				r.Get("/reminders", cfg.TrackedItems.Reminders)
			})
		})
	})

	return r
}

func healthHandler(check HealthCheck) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if check != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := check(ctx); err != nil {
				shared.RespondWithErrorAndLog(w, r, http.StatusServiceUnavailable, "unavailable", err)
				return
			}
		}
		shared.RespondWithJSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
	}
}
