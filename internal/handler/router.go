package handler

import (
	"log/slog"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/urlguard/urlguard/internal/middleware"
)

// RouterConfig collects the handlers and middleware settings of the API.
type RouterConfig struct {
	Logger *slog.Logger

	Handler *Handler
	Health  *HealthHandler
	Analyze *AnalyzeHandler
	Scans   *ScanHandler
	APIKeys *APIKeyHandler
	Metrics *MetricsHandler

	Auth      middleware.AuthConfig
	RateLimit middleware.RateLimitConfig
	Security  middleware.SecurityConfig

	CORSAllowedOrigins []string
	MaxRequestBodySize int64
}

// NewRouter configures the chi router with all routes and middleware.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(cfg.Logger))
	r.Use(middleware.Recoverer(cfg.Logger))
	r.Use(middleware.Security(cfg.Security))
	r.Use(middleware.CORS(middleware.DefaultCORSConfig(cfg.CORSAllowedOrigins)))
	if cfg.MaxRequestBodySize > 0 {
		r.Use(middleware.MaxBodySize(cfg.MaxRequestBodySize))
	}

	r.Get("/healthz", cfg.Health.Healthz)
	r.Get("/readyz", cfg.Health.Readyz)
	r.Get("/metrics", cfg.Metrics.Metrics)
	r.Get("/", cfg.Handler.ServiceInfo)

	r.Route("/api/v1", func(r chi.Router) {
		// Public classification, limited per client IP.
		r.Group(func(r chi.Router) {
			r.Use(middleware.RateLimitAnalyze(cfg.RateLimit))
			r.Post("/analyze", cfg.Analyze.Analyze)
			r.Get("/analyze", cfg.Analyze.AnalyzeQuery)
			r.Post("/analyze/batch", cfg.Analyze.AnalyzeBatch)
		})

		// Keyed routes.
		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.Auth))
			r.Use(middleware.RateLimitAPI(cfg.RateLimit))

			r.With(middleware.RequireRead()).Get("/scans", cfg.Scans.List)
			r.With(middleware.RequireRead()).Get("/scans/{id}", cfg.Scans.Get)
			r.With(middleware.RequireRead()).Get("/stats", cfg.Scans.Stats)

			r.Route("/api-keys", func(r chi.Router) {
				r.Use(middleware.RequireAdmin())
				r.Get("/", cfg.APIKeys.List)
				r.Post("/", cfg.APIKeys.Create)
				r.Delete("/{key_id}", cfg.APIKeys.Revoke)
			})
		})
	})

	r.NotFound(cfg.Handler.NotFound)
	r.MethodNotAllowed(cfg.Handler.MethodNotAllowed)

	return r
}
