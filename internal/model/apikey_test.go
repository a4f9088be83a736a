package model

import (
	"testing"
	"time"
)

func TestAPIKey_HasScope(t *testing.T) {
	testCases := []struct {
		name      string
		keyScopes []string
		checkFor  string
		want      bool
	}{
		{"has exact scope", []string{ScopeRead}, ScopeRead, true},
		{"read does not grant admin", []string{ScopeRead}, ScopeAdmin, false},
		{"admin implies read", []string{ScopeAdmin}, ScopeRead, true},
		{"empty scopes", []string{}, ScopeRead, false},
		{"nil scopes", nil, ScopeRead, false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			key := &APIKey{Scopes: tc.keyScopes}
			if got := key.HasScope(tc.checkFor); got != tc.want {
				t.Errorf("HasScope(%s) = %v, want %v", tc.checkFor, got, tc.want)
			}

			ctx := &AuthContext{Scopes: tc.keyScopes}
			if got := ctx.HasScope(tc.checkFor); got != tc.want {
				t.Errorf("AuthContext.HasScope(%s) = %v, want %v", tc.checkFor, got, tc.want)
			}
		})
	}
}

func TestAPIKey_IsRevoked(t *testing.T) {
	key := &APIKey{}
	if key.IsRevoked() {
		t.Error("new key should not be revoked")
	}

	now := time.Now()
	key.RevokedAt = &now
	if !key.IsRevoked() {
		t.Error("key with revoked_at should be revoked")
	}
}

func TestAuthContext_RateLimitConfig(t *testing.T) {
	testCases := []struct {
		tier      string
		wantRPM   int
		wantBurst int
	}{
		{TierFree, 60, 10},
		{TierPro, 600, 50},
		{TierUnlimited, 0, 0},
		{"unknown", 60, 10}, // Falls back to free
	}

	for _, tc := range testCases {
		t.Run(tc.tier, func(t *testing.T) {
			authCtx := &AuthContext{RateLimitTier: tc.tier}
			config := authCtx.RateLimitConfig()
			if config.RequestsPerMinute != tc.wantRPM {
				t.Errorf("RPM = %d, want %d", config.RequestsPerMinute, tc.wantRPM)
			}
			if config.Burst != tc.wantBurst {
				t.Errorf("Burst = %d, want %d", config.Burst, tc.wantBurst)
			}
		})
	}
}

func TestIsValidScope(t *testing.T) {
	for _, scope := range []string{ScopeRead, ScopeAdmin} {
		if !IsValidScope(scope) {
			t.Errorf("IsValidScope(%q) = false, want true", scope)
		}
	}
	if IsValidScope("write") {
		t.Error("IsValidScope(\"write\") = true, want false")
	}
}

func TestIsValidTier(t *testing.T) {
	for _, tier := range ValidTiers {
		if !IsValidTier(tier) {
			t.Errorf("IsValidTier(%q) = false, want true", tier)
		}
		if _, ok := TierConfigs[tier]; !ok {
			t.Errorf("tier %q has no rate limit config", tier)
		}
	}
	if IsValidTier("enterprise") {
		t.Error("IsValidTier(\"enterprise\") = true, want false")
	}
}

func TestAPIKey_ToResponse(t *testing.T) {
	key := &APIKey{
		ID:            "key123",
		Name:          "Test Key",
		Owner:         "ops",
		KeyPrefix:     "abc123",
		KeyHash:       "$argon2id$secret",
		Scopes:        []string{ScopeRead},
		RateLimitTier: TierFree,
	}

	resp := key.ToResponse()
	if resp.ID != key.ID || resp.KeyPrefix != key.KeyPrefix || resp.Owner != key.Owner {
		t.Errorf("ToResponse() = %+v, fields not copied", resp)
	}
	if resp.Revoked {
		t.Error("Revoked should be false for active key")
	}
}
