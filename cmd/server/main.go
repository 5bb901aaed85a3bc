package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/joho/godotenv/autoload"
	"github.com/socialchef/recipe-agent/internal/api"
	"github.com/socialchef/recipe-agent/internal/cache"
	"github.com/socialchef/recipe-agent/internal/config"
	"github.com/socialchef/recipe-agent/internal/logger"
	"github.com/socialchef/recipe-agent/internal/metrics"
	"github.com/socialchef/recipe-agent/internal/middleware"
	"github.com/socialchef/recipe-agent/internal/sentry"
	"github.com/socialchef/recipe-agent/internal/services/recipe"
	"github.com/socialchef/recipe-agent/internal/telemetry"
)

const shutdownTimeout = 15 * time.Second

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize telemetry before the logger so the log bridge has a provider
	shutdownTelemetry, err := telemetry.InitTelemetry(ctx, telemetry.Options{
		ServiceName:    cfg.ServiceName,
		ServiceVersion: cfg.ServiceVersion,
		Environment:    cfg.Env,
		Endpoint:       cfg.OtelExporterOTLPEndpoint,
		Headers:        cfg.OTLPHeaders(),
	})
	if err != nil {
		slog.Warn("Failed to init telemetry", "error", err)
	} else {
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdownTelemetry(ctx); err != nil {
				slog.Warn("Telemetry shutdown failed", "error", err)
			}
		}()
	}

	appLogger := logger.New(cfg.Env, cfg.LogLevel)
	slog.SetDefault(appLogger)

	if err := sentry.Init(cfg.SentryDSN, cfg.Env, cfg.ServiceName, cfg.ServiceVersion); err != nil {
		slog.Warn("Failed to init Sentry", "error", err)
	}
	if cfg.SentryDSN != "" {
		defer sentry.Flush(2 * time.Second)
	}

	if err := metrics.Init(); err != nil {
		slog.Warn("Failed to init business metrics", "error", err)
	}

	generationCache, closeCache := newCache(cfg)
	defer closeCache()

	provider := recipe.NewProvider(cfg, generationCache)
	limiter := middleware.NewRateLimiterFromConfig(cfg.RateLimit)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           api.NewRouter(api.NewServer(cfg, provider), appLogger, limiter),
		ReadHeaderTimeout: 10 * time.Second,
		// generation can take a while, including retries and the fallback
		WriteTimeout: 3 * time.Minute,
		IdleTimeout:  2 * time.Minute,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("Starting server",
			"port", cfg.Port,
			"env", cfg.Env,
			"model", cfg.Generation.ModelID,
			"fallback", cfg.Fallback.Enabled)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server failed", "error", err)
			os.Exit(1)
		}
	case <-ctx.Done():
		slog.Info("Shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("Graceful shutdown failed", "error", err)
		}
	}
}

// newCache picks the generation cache backend once caching is enabled:
// Redis when REDIS_URL is set, an in-process LRU otherwise. Without
// cache.enabled every request makes its own generation call.
func newCache(cfg *config.Config) (cache.Cache, func()) {
	noop := func() {}

	if !cfg.Cache.Enabled {
		return nil, noop
	}

	if cfg.RedisURL != "" {
		client, err := cache.NewRedisClient(cfg.RedisURL)
		if err != nil {
			slog.Warn("Invalid Redis URL, falling back to in-memory cache", "error", err)
		} else {
			rc := cache.NewRedisCache(client)
			slog.Info("Using Redis generation cache", "ttl", cfg.Cache.TTL)
			return rc, func() {
				if err := rc.Close(); err != nil {
					slog.Warn("Failed to close Redis client", "error", err)
				}
			}
		}
	}

	slog.Info("Using in-memory generation cache", "size", cfg.Cache.Size, "ttl", cfg.Cache.TTL)
	return cache.NewMemoryCache(cfg.Cache.Size, cfg.Cache.TTL), noop
}
