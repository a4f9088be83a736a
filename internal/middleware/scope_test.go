package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/urlguard/urlguard/internal/auth"
	"github.com/urlguard/urlguard/internal/model"
)

func TestRequireScope(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		authCtx    *model.AuthContext
		guard      func() func(http.Handler) http.Handler
		wantStatus int
		wantCode   string
	}{
		{"read allows read", &model.AuthContext{Scopes: []string{model.ScopeRead}}, RequireRead, http.StatusOK, ""},
		{"admin allows read", &model.AuthContext{Scopes: []string{model.ScopeAdmin}}, RequireRead, http.StatusOK, ""},
		{"admin allows admin", &model.AuthContext{Scopes: []string{model.ScopeAdmin}}, RequireAdmin, http.StatusOK, ""},
		{"read denied admin", &model.AuthContext{Scopes: []string{model.ScopeRead}}, RequireAdmin, http.StatusForbidden, "FORBIDDEN"},
		{"no scopes", &model.AuthContext{}, RequireRead, http.StatusForbidden, "FORBIDDEN"},
		{"unauthenticated", nil, RequireRead, http.StatusUnauthorized, "UNAUTHORIZED"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			req := httptest.NewRequest(http.MethodGet, "/api/v1/scans", nil)
			if tt.authCtx != nil {
				req = req.WithContext(auth.ContextWithAuth(req.Context(), tt.authCtx))
			}
			rec := httptest.NewRecorder()
			tt.guard()(okHandler).ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if tt.wantCode != "" {
				if body := decodeError(t, rec); body.Code != tt.wantCode {
					t.Errorf("code = %q, want %q", body.Code, tt.wantCode)
				}
			}
		})
	}
}

func TestRequireScope_AnyOf(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(auth.ContextWithAuth(req.Context(), &model.AuthContext{Scopes: []string{model.ScopeRead}}))
	rec := httptest.NewRecorder()
	RequireScope(model.ScopeAdmin, model.ScopeRead)(okHandler).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
}
