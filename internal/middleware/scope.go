package middleware

import (
	"net/http"

	"github.com/urlguard/urlguard/internal/auth"
	"github.com/urlguard/urlguard/internal/model"
)

// RequireScope answers 403 FORBIDDEN unless the key holds one of required.
// Must be applied after Auth; admin implies every scope.
func RequireScope(required ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authCtx := auth.AuthFromContext(r.Context())
			if authCtx == nil {
				writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required")
				return
			}

			for _, scope := range required {
				if authCtx.HasScope(scope) {
					next.ServeHTTP(w, r)
					return
				}
			}

			msg := "Insufficient permissions"
			if len(required) > 0 {
				msg += ". Required scope: " + required[0]
			}
			writeError(w, http.StatusForbidden, "FORBIDDEN", msg)
		})
	}
}

// RequireRead guards scan history and stats.
func RequireRead() func(http.Handler) http.Handler {
	return RequireScope(model.ScopeRead)
}

// RequireAdmin guards key management.
func RequireAdmin() func(http.Handler) http.Handler {
	return RequireScope(model.ScopeAdmin)
}
