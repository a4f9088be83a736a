// Package config loads urlguard settings from the environment and an optional .env file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

// Config is the full runtime configuration of the API server.
type Config struct {
	AppEnv  string `env:"APP_ENV" envDefault:"development"`
	AppPort int    `env:"APP_PORT" envDefault:"8080"`

	// Database (PostgreSQL). Empty disables scan history and API keys.
	DatabaseURL string `env:"DATABASE_URL"`

	// Cache (Redis). Empty disables result caching, stats and rate limits.
	RedisURL string `env:"REDIS_URL"`

	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`

	ReadTimeout     time.Duration `env:"READ_TIMEOUT" envDefault:"5s"`
	WriteTimeout    time.Duration `env:"WRITE_TIMEOUT" envDefault:"10s"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"30s"`

	// Scanning
	ResultCacheTTL   time.Duration `env:"RESULT_CACHE_TTL" envDefault:"1h"`
	MaxURLLength     int           `env:"MAX_URL_LENGTH" envDefault:"8192"`
	MaxBatchSize     int           `env:"MAX_BATCH_SIZE" envDefault:"100"`
	BatchConcurrency int           `env:"BATCH_CONCURRENCY" envDefault:"8"`

	// Per-key and per-IP token buckets
	RateLimitAPIEnabled     bool `env:"RATE_LIMIT_API_ENABLED" envDefault:"true"`
	RateLimitAnalyzeEnabled bool `env:"RATE_LIMIT_ANALYZE_ENABLED" envDefault:"true"`
	RateLimitAnalyzeRPS     int  `env:"RATE_LIMIT_ANALYZE_RPS" envDefault:"20"`
	RateLimitAnalyzeBurst   int  `env:"RATE_LIMIT_ANALYZE_BURST" envDefault:"40"`

	// Comma-separated origins or "*.example.com" patterns; empty denies cross-origin requests
	CORSAllowedOrigins string `env:"CORS_ALLOWED_ORIGINS" envDefault:""`

	MaxRequestBodySize int64 `env:"MAX_REQUEST_BODY_SIZE" envDefault:"1048576"`
}

func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// HasDatabase reports whether PostgreSQL is configured.
func (c *Config) HasDatabase() bool {
	return c.DatabaseURL != ""
}

// HasRedis reports whether Redis is configured.
func (c *Config) HasRedis() bool {
	return c.RedisURL != ""
}

// GetCORSAllowedOrigins splits CORS_ALLOWED_ORIGINS, dropping blanks.
func (c *Config) GetCORSAllowedOrigins() []string {
	if c.CORSAllowedOrigins == "" {
		return nil
	}

	origins := strings.Split(c.CORSAllowedOrigins, ",")
	result := make([]string, 0, len(origins))

	for _, origin := range origins {
		trimmed := strings.TrimSpace(origin)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}

// Validate checks values that env tags cannot express.
func (c *Config) Validate() error {
	switch {
	case c.MaxURLLength <= 0:
		return fmt.Errorf("MAX_URL_LENGTH must be positive, got %d", c.MaxURLLength)
	case c.MaxBatchSize <= 0:
		return fmt.Errorf("MAX_BATCH_SIZE must be positive, got %d", c.MaxBatchSize)
	case c.BatchConcurrency <= 0:
		return fmt.Errorf("BATCH_CONCURRENCY must be positive, got %d", c.BatchConcurrency)
	case c.ResultCacheTTL < 0:
		return fmt.Errorf("RESULT_CACHE_TTL must not be negative, got %s", c.ResultCacheTTL)
	}
	return nil
}

// Load reads an optional .env file, then parses environment variables and
// returns a validated Config. Variables already set in the environment win
// over values from the file.
func Load() (*Config, error) {
	return LoadFiles(".env")
}

// LoadFiles is Load with explicit dotenv paths. Missing files are ignored.
func LoadFiles(paths ...string) (*Config, error) {
	for _, path := range paths {
		if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to load %s: %w", path, err)
		}
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}
