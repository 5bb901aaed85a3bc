package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/riandyrn/otelchi"
	otelchimetric "github.com/riandyrn/otelchi/metric"
	"github.com/socialchef/recipe-agent/internal/middleware"
	"github.com/socialchef/recipe-agent/internal/sentry"
	"go.opentelemetry.io/otel"
)

// NewRouter mounts the agent's routes. A nil limiter disables rate limiting.
func NewRouter(s *Server, log *slog.Logger, limiter *middleware.RateLimiter) http.Handler {
	serverName := s.cfg.ServiceName

	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	// Forwarding headers are client-controlled unless a proxy sets them.
	if s.cfg.TrustProxy {
		r.Use(chimiddleware.RealIP)
	}

	r.Use(otelchi.Middleware(serverName,
		otelchi.WithChiRoutes(r),
		otelchi.WithFilter(func(r *http.Request) bool {
			return r.URL.Path != "/health"
		}),
	))

	// HTTP metrics
	metricCfg := otelchimetric.NewBaseConfig(serverName, otelchimetric.WithMeterProvider(otel.GetMeterProvider()))
	r.Use(otelchimetric.NewRequestDurationMillis(metricCfg))
	r.Use(otelchimetric.NewRequestInFlight(metricCfg))
	r.Use(otelchimetric.NewResponseSizeBytes(metricCfg))

	r.Use(middleware.RequestLogger(log))
	r.Use(sentry.HTTPMiddleware)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.cfg.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		ExposedHeaders: []string{"X-Generation-ID", "Retry-After"},
		MaxAge:         300,
	}))

	r.Get("/", s.HandleIndex)
	r.Get("/health", s.HandleHealth)
	r.Post("/format-recipe", s.HandleFormatRecipe)
	r.With(limiter.Middleware).Post("/generate-recipe", s.HandleGenerateRecipe)

	return r
}
