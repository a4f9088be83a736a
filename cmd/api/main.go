// Package main is the entrypoint for the urlguard API server.
package main

import (
	"context"
	"log/slog"
	"net/url"
	"os"
	"regexp"
	"strings"

	"github.com/urlguard/urlguard/internal/cache"
	"github.com/urlguard/urlguard/internal/config"
	"github.com/urlguard/urlguard/internal/handler"
	"github.com/urlguard/urlguard/internal/metrics"
	"github.com/urlguard/urlguard/internal/middleware"
	"github.com/urlguard/urlguard/internal/repository"
	"github.com/urlguard/urlguard/internal/server"
	"github.com/urlguard/urlguard/internal/service"
)

func main() {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := initLogger(cfg)

	// Interfaces stay nil, not typed-nil, when a dependency is absent.
	var (
		scanStore   service.ScanStore
		keyStore    service.KeyStore
		resultCache service.ResultCache
		authCache   service.AuthCache
		limiter     middleware.RateLimiter
		dbCheck     handler.HealthChecker
		cacheCheck  handler.HealthChecker
	)

	var repo *repository.Repository
	if cfg.HasDatabase() {
		repo, err = repository.New(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Error(
				"failed to connect to database",
				slog.String("error", sanitizeError(err, cfg.DatabaseURL)),
				slog.String("database_url", redactURL(cfg.DatabaseURL)),
			)
			os.Exit(1)
		}
		scanStore, keyStore, dbCheck = repo, repo, repo
		logger.Info("connected to database")
	} else {
		logger.Warn("DATABASE_URL not set: scan history and API keys disabled")
	}

	var cacheClient *cache.Cache
	if cfg.HasRedis() {
		cacheClient, err = cache.New(ctx, cfg.RedisURL)
		if err != nil {
			logger.Error(
				"failed to connect to Redis",
				slog.String("error", sanitizeError(err, cfg.RedisURL)),
				slog.String("redis_url", redactURL(cfg.RedisURL)),
			)
			os.Exit(1)
		}
		resultCache, authCache, limiter, cacheCheck = cacheClient, cacheClient, cacheClient, cacheClient
		logger.Info("connected to Redis")
	} else {
		logger.Warn("REDIS_URL not set: result cache, live stats and rate limits disabled")
		if cfg.IsProduction() {
			logger.Warn("running in production without Redis: public analyze endpoints are not rate limited")
		}
	}

	recorder := metrics.NewInMemory()
	scanService := service.NewScanService(scanStore, resultCache, logger, recorder, service.ScanConfig{
		ResultTTL:        cfg.ResultCacheTTL,
		MaxBatchSize:     cfg.MaxBatchSize,
		BatchConcurrency: cfg.BatchConcurrency,
	})
	keyService := service.NewAPIKeyService(keyStore, authCache, logger, cfg.AppEnv)

	router := handler.NewRouter(handler.RouterConfig{
		Logger:  logger,
		Handler: handler.New(),
		Health:  handler.NewHealthHandler(dbCheck, cacheCheck),
		Analyze: handler.NewAnalyzeHandler(scanService, logger, cfg.MaxURLLength),
		Scans:   handler.NewScanHandler(scanService, logger),
		APIKeys: handler.NewAPIKeyHandler(keyService, logger),
		Metrics: handler.NewMetricsHandler(recorder),
		Auth: middleware.AuthConfig{
			Logger:        logger,
			Authenticator: keyService,
			MinDuration:   middleware.DefaultMinAuthDuration,
		},
		RateLimit: middleware.RateLimitConfig{
			Logger:         logger,
			Limiter:        limiter,
			Metrics:        recorder,
			APIEnabled:     cfg.RateLimitAPIEnabled,
			AnalyzeEnabled: cfg.RateLimitAnalyzeEnabled,
			AnalyzeRPS:     cfg.RateLimitAnalyzeRPS,
			AnalyzeBurst:   cfg.RateLimitAnalyzeBurst,
		},
		Security:           middleware.SecurityConfig{IsDevelopment: cfg.IsDevelopment()},
		CORSAllowedOrigins: cfg.GetCORSAllowedOrigins(),
		MaxRequestBodySize: cfg.MaxRequestBodySize,
	})

	srv := server.New(router, server.Config{
		Port:            cfg.AppPort,
		ReadTimeout:     cfg.ReadTimeout,
		WriteTimeout:    cfg.WriteTimeout,
		ShutdownTimeout: cfg.ShutdownTimeout,
	}, logger)

	if repo != nil {
		srv.OnShutdown("postgres", func(context.Context) error {
			repo.Close()
			return nil
		})
	}
	if cacheClient != nil {
		srv.OnShutdown("redis", func(context.Context) error {
			return cacheClient.Close()
		})
	}

	logger.Info("starting server",
		"port", cfg.AppPort,
		"env", cfg.AppEnv,
		"history", scanService.HistoryEnabled(),
		"cache", cacheClient != nil,
	)

	if err := srv.Run(); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}

// initLogger builds the JSON or text slog handler named by LOG_FORMAT.
func initLogger(cfg *config.Config) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: parseLogLevel(cfg.LogLevel),
	}

	var h slog.Handler
	if cfg.LogFormat == "json" {
		h = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		h = slog.NewTextHandler(os.Stdout, opts)
	}

	logger := slog.New(h).With(slog.String("service", "urlguard"))
	slog.SetDefault(logger)

	return logger
}

// parseLogLevel maps LOG_LEVEL to a slog.Level, defaulting to info.
func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

var passwordPattern = regexp.MustCompile(`(?i)password=[^\s]+`)

// redactURL strips the password from a connection URL.
func redactURL(raw string) string {
	if raw == "" {
		return ""
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return "[redacted]"
	}

	if parsed.User != nil {
		username := parsed.User.Username()
		if username == "" {
			username = "redacted"
		}
		parsed.User = url.User(username)
	}

	return parsed.String()
}

// sanitizeError removes connection secrets from driver error messages.
func sanitizeError(err error, secrets ...string) string {
	if err == nil {
		return ""
	}

	msg := err.Error()
	for _, secret := range secrets {
		if secret == "" {
			continue
		}
		redacted := redactURL(secret)
		if redacted == "" {
			redacted = "[redacted]"
		}
		msg = strings.ReplaceAll(msg, secret, redacted)
	}

	return passwordPattern.ReplaceAllString(msg, "password=redacted")
}
