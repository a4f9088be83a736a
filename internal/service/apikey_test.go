package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/urlguard/urlguard/internal/model"
)

func TestAPIKeyService_CreateAndAuthenticate(t *testing.T) {
	t.Parallel()

	store := newFakeKeyStore()
	authCache := &fakeAuthCache{entries: map[string]*model.AuthContext{}}
	svc := NewAPIKeyService(store, authCache, discardLogger(), "development")
	ctx := context.Background()

	key, plaintext, err := svc.CreateKey(ctx, CreateKeyInput{Owner: "ops", Name: "ci", Scopes: []string{model.ScopeRead}})
	if err != nil {
		t.Fatalf("CreateKey failed: %v", err)
	}
	if !strings.HasPrefix(plaintext, "ug_test_") {
		t.Errorf("development keys should use the test env, got %q", plaintext)
	}
	if key.KeyHash == "" || strings.Contains(key.KeyHash, plaintext) {
		t.Error("stored key must carry a hash, never the plaintext")
	}

	authCtx, cacheHit, err := svc.Authenticate(ctx, plaintext)
	if err != nil {
		t.Fatalf("Authenticate failed: %v", err)
	}
	if cacheHit || authCtx.KeyID != key.ID || authCtx.Owner != "ops" {
		t.Errorf("authCtx = %+v, cacheHit %v", authCtx, cacheHit)
	}

	select {
	case id := <-store.lastUsed:
		if id != key.ID {
			t.Errorf("last used updated for %q, want %q", id, key.ID)
		}
	case <-time.After(2 * time.Second):
		t.Error("last_used_at was not updated")
	}

	_, cacheHit, err = svc.Authenticate(ctx, plaintext)
	if err != nil || !cacheHit {
		t.Errorf("second Authenticate cacheHit = %v, err %v", cacheHit, err)
	}
}

func TestAPIKeyService_AuthenticateRejects(t *testing.T) {
	t.Parallel()

	svc := NewAPIKeyService(newFakeKeyStore(), nil, discardLogger(), "production")
	ctx := context.Background()

	for _, k := range []string{"", "nope", "ug_live_abc123_4f8d2e1b9c7a5f3d2e1b9c7a5f3d2e1b"} {
		if _, _, err := svc.Authenticate(ctx, k); !errors.Is(err, ErrUnauthorized) {
			t.Errorf("Authenticate(%q) error = %v, want ErrUnauthorized", k, err)
		}
	}

	disabled := NewAPIKeyService(nil, nil, discardLogger(), "production")
	if _, _, err := disabled.Authenticate(ctx, "ug_live_abc123_4f8d2e1b9c7a5f3d2e1b9c7a5f3d2e1b"); !errors.Is(err, ErrUnauthorized) {
		t.Errorf("Authenticate without store error = %v", err)
	}
}

func TestAPIKeyService_CreateValidation(t *testing.T) {
	t.Parallel()

	svc := NewAPIKeyService(newFakeKeyStore(), nil, discardLogger(), "production")
	ctx := context.Background()

	tests := []struct {
		name    string
		input   CreateKeyInput
		wantErr error
	}{
		{"missing owner", CreateKeyInput{Owner: " "}, ErrInvalidOwner},
		{"unknown scope", CreateKeyInput{Owner: "ops", Scopes: []string{"write"}}, ErrInvalidScope},
		{"unknown tier", CreateKeyInput{Owner: "ops", RateLimitTier: "gold"}, ErrInvalidTier},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, _, err := svc.CreateKey(ctx, tt.input); !errors.Is(err, tt.wantErr) {
				t.Errorf("CreateKey error = %v, want %v", err, tt.wantErr)
			}
		})
	}

	if _, _, err := NewAPIKeyService(nil, nil, nil, "").CreateKey(ctx, CreateKeyInput{Owner: "ops"}); !errors.Is(err, ErrKeysDisabled) {
		t.Errorf("CreateKey without store error = %v", err)
	}
}

func TestAPIKeyService_RevokeKey(t *testing.T) {
	t.Parallel()

	store := newFakeKeyStore()
	svc := NewAPIKeyService(store, nil, discardLogger(), "production")
	ctx := context.Background()

	key, plaintext, err := svc.CreateKey(ctx, CreateKeyInput{Owner: "ops"})
	if err != nil {
		t.Fatalf("CreateKey failed: %v", err)
	}
	if key.RateLimitTier != model.TierFree || len(key.Scopes) != 1 || key.Scopes[0] != model.ScopeRead {
		t.Errorf("defaults = %s %v", key.RateLimitTier, key.Scopes)
	}

	if err := svc.RevokeKey(ctx, "someone-else", key.ID); !errors.Is(err, ErrAPIKeyNotFound) {
		t.Errorf("foreign revoke error = %v, want ErrAPIKeyNotFound", err)
	}
	if err := svc.RevokeKey(ctx, "ops", key.ID); err != nil {
		t.Fatalf("RevokeKey failed: %v", err)
	}
	if err := svc.RevokeKey(ctx, "ops", key.ID); !errors.Is(err, ErrAPIKeyNotFound) {
		t.Errorf("second revoke error = %v, want ErrAPIKeyNotFound", err)
	}

	if _, _, err := svc.Authenticate(ctx, plaintext); !errors.Is(err, ErrUnauthorized) {
		t.Errorf("revoked key Authenticate error = %v, want ErrUnauthorized", err)
	}

	keys, err := svc.ListKeys(ctx, "ops")
	if err != nil || len(keys) != 1 || !keys[0].IsRevoked() {
		t.Errorf("ListKeys = %v, err %v", keys, err)
	}
}

func TestAPIKeyService_RevokeDropsCachedAuth(t *testing.T) {
	t.Parallel()

	store := newFakeKeyStore()
	authCache := &fakeAuthCache{entries: map[string]*model.AuthContext{}}
	svc := NewAPIKeyService(store, authCache, discardLogger(), "production")
	ctx := context.Background()

	key, plaintext, err := svc.CreateKey(ctx, CreateKeyInput{Owner: "ops"})
	if err != nil {
		t.Fatalf("CreateKey failed: %v", err)
	}
	if _, _, err := svc.Authenticate(ctx, plaintext); err != nil {
		t.Fatalf("Authenticate failed: %v", err)
	}
	if len(authCache.entries) != 1 {
		t.Fatalf("auth cache has %d entries, want 1", len(authCache.entries))
	}

	if err := svc.RevokeKey(ctx, "ops", key.ID); err != nil {
		t.Fatalf("RevokeKey failed: %v", err)
	}
	if _, _, err := svc.Authenticate(ctx, plaintext); !errors.Is(err, ErrUnauthorized) {
		t.Errorf("revoked key Authenticate error = %v, want ErrUnauthorized", err)
	}
}
