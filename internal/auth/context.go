package auth

import (
	"context"

	"github.com/urlguard/urlguard/internal/model"
)

type contextKey string

const authContextKey contextKey = "auth_context"

// ContextWithAuth stores the verified key for downstream handlers.
func ContextWithAuth(ctx context.Context, auth *model.AuthContext) context.Context {
	return context.WithValue(ctx, authContextKey, auth)
}

// AuthFromContext returns the verified key, or nil on public routes.
func AuthFromContext(ctx context.Context) *model.AuthContext {
	auth, ok := ctx.Value(authContextKey).(*model.AuthContext)
	if !ok {
		return nil
	}
	return auth
}

// OwnerFromContext returns the authenticated key owner, or "".
func OwnerFromContext(ctx context.Context) string {
	if auth := AuthFromContext(ctx); auth != nil {
		return auth.Owner
	}
	return ""
}
