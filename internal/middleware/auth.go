package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/urlguard/urlguard/internal/auth"
	"github.com/urlguard/urlguard/internal/model"
	"github.com/urlguard/urlguard/internal/service"
)

// DefaultMinAuthDuration is the floor applied to every authentication
// attempt so that failures and successes take the same time.
const DefaultMinAuthDuration = 200 * time.Millisecond

// Authenticator verifies plaintext API keys.
// Implemented by *service.APIKeyService.
type Authenticator interface {
	Enabled() bool
	Authenticate(ctx context.Context, plaintext string) (*model.AuthContext, bool, error)
}

type AuthConfig struct {
	Logger        *slog.Logger
	Authenticator Authenticator
	// MinDuration pads every attempt; zero disables padding.
	MinDuration time.Duration
}

// Auth guards the keyed routes. The key comes from a Bearer Authorization
// header or X-API-Key; once verified, its AuthContext rides on the request.
func Auth(cfg AuthConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !cfg.Authenticator.Enabled() {
				writeError(w, http.StatusServiceUnavailable, "FEATURE_DISABLED", "API keys require a database")
				return
			}

			start := time.Now()
			padded := func() {
				if elapsed := time.Since(start); elapsed < cfg.MinDuration {
					time.Sleep(cfg.MinDuration - elapsed)
				}
			}

			attrs := []any{
				slog.String("ip", r.RemoteAddr),
				slog.String("endpoint", r.Method+" "+r.URL.Path),
				slog.String("request_id", GetRequestID(r.Context())),
			}

			key := extractAPIKey(r)
			if key == "" {
				cfg.Logger.Warn("authentication failed", append(attrs, slog.String("reason", "missing_key"))...)
				padded()
				writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Invalid or missing API key")
				return
			}

			authCtx, cacheHit, err := cfg.Authenticator.Authenticate(r.Context(), key)
			if err != nil {
				if errors.Is(err, service.ErrUnauthorized) {
					cfg.Logger.Warn("authentication failed", append(attrs, slog.String("reason", "invalid_key"))...)
				} else {
					cfg.Logger.Error("authentication error", append(attrs, slog.String("error", err.Error()))...)
				}
				padded()
				writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Invalid or missing API key")
				return
			}

			cfg.Logger.Info("authentication successful", append(attrs,
				slog.String("key_id", authCtx.KeyID),
				slog.String("key_prefix", authCtx.KeyPrefix),
				slog.String("owner", authCtx.Owner),
				slog.Bool("cache_hit", cacheHit),
			)...)
			padded()

			next.ServeHTTP(w, r.WithContext(auth.ContextWithAuth(r.Context(), authCtx)))
		})
	}
}

// extractAPIKey reads "Authorization: Bearer <key>", falling back to
// "X-API-Key: <key>".
func extractAPIKey(r *http.Request) string {
	if header := r.Header.Get("Authorization"); header != "" {
		if scheme, token, ok := strings.Cut(header, " "); ok && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(token)
		}
	}
	return strings.TrimSpace(r.Header.Get("X-API-Key"))
}
