// Package router assembles the HTTP surface: health, metrics and the
// per-platform webhook endpoints.
package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/bluedeem/clinic-ai-platform/internal/http/handlers"
	httpmiddleware "github.com/bluedeem/clinic-ai-platform/internal/http/middleware"
	"github.com/bluedeem/clinic-ai-platform/pkg/logging"
)

// Config holds router configuration.
type Config struct {
	Logger         *logging.Logger
	Webhooks       *handlers.WebhookHandler
	MetricsHandler http.Handler
}

// New creates a Chi router with all routes configured.
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}

	r.Get("/health", cfg.Webhooks.HealthCheck)
	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}

	r.Route("/webhooks/{platform}", func(r chi.Router) {
		r.Get("/", cfg.Webhooks.HandleVerification)
		r.Post("/", cfg.Webhooks.HandleInbound)
	})

	return r
}
