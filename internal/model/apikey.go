package model

import (
	"slices"
	"time"
)

// API key scopes.
const (
	ScopeRead  = "read"  // scan history and stats
	ScopeAdmin = "admin" // key management, implies every other scope
)

var ValidScopes = []string{ScopeRead, ScopeAdmin}

// IsValidScope reports whether scope is one of ValidScopes.
func IsValidScope(scope string) bool {
	return slices.Contains(ValidScopes, scope)
}

// Rate limit tiers of the keyed API.
const (
	TierFree      = "free"
	TierPro       = "pro"
	TierUnlimited = "unlimited"
)

// ValidTiers contains all valid tier values.
var ValidTiers = []string{TierFree, TierPro, TierUnlimited}

// IsValidTier reports whether tier is one of ValidTiers.
func IsValidTier(tier string) bool {
	return slices.Contains(ValidTiers, tier)
}

// RateLimitConfig is the token bucket of one tier.
type RateLimitConfig struct {
	RequestsPerMinute int
	Burst             int
}

var TierConfigs = map[string]RateLimitConfig{
	TierFree:      {RequestsPerMinute: 60, Burst: 10},
	TierPro:       {RequestsPerMinute: 600, Burst: 50},
	TierUnlimited: {RequestsPerMinute: 0, Burst: 0}, // 0 means unlimited
}

// APIKey is a stored key. Only the Argon2id hash of the secret is kept.
type APIKey struct {
	ID            string     `json:"id"`
	Owner         string     `json:"owner"`
	KeyHash       string     `json:"-"`
	KeyPrefix     string     `json:"key_prefix"`
	Scopes        []string   `json:"scopes"`
	RateLimitTier string     `json:"rate_limit_tier"`
	Name          string     `json:"name,omitempty"`
	RevokedAt     *time.Time `json:"revoked_at,omitempty"`
	LastUsedAt    *time.Time `json:"last_used_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

func (k *APIKey) IsRevoked() bool {
	return k.RevokedAt != nil
}

// HasScope reports whether the key grants scope; admin grants everything.
func (k *APIKey) HasScope(scope string) bool {
	return hasScope(k.Scopes, scope)
}

// tierConfig falls back to the free tier for unknown names.
func tierConfig(tier string) RateLimitConfig {
	if config, ok := TierConfigs[tier]; ok {
		return config
	}
	return TierConfigs[TierFree]
}

// AuthContext is what a verified key contributes to a request.
// The auth middleware puts it on the request context.
type AuthContext struct {
	KeyID         string
	KeyPrefix     string
	Owner         string
	Scopes        []string
	RateLimitTier string
}

func (a *AuthContext) HasScope(scope string) bool {
	return hasScope(a.Scopes, scope)
}

// RateLimitConfig returns the limits of the key's tier.
func (a *AuthContext) RateLimitConfig() RateLimitConfig {
	return tierConfig(a.RateLimitTier)
}

func hasScope(scopes []string, scope string) bool {
	return slices.Contains(scopes, ScopeAdmin) || slices.Contains(scopes, scope)
}

// APIKeyResponse represents an API key without secrets.
type APIKeyResponse struct {
	ID            string     `json:"id"`
	Name          string     `json:"name,omitempty"`
	Owner         string     `json:"owner"`
	KeyPrefix     string     `json:"key_prefix"`
	Scopes        []string   `json:"scopes"`
	RateLimitTier string     `json:"rate_limit_tier"`
	CreatedAt     time.Time  `json:"created_at"`
	LastUsedAt    *time.Time `json:"last_used_at,omitempty"`
	Revoked       bool       `json:"revoked"`
}

func (k *APIKey) ToResponse() APIKeyResponse {
	return APIKeyResponse{
		ID:            k.ID,
		Name:          k.Name,
		Owner:         k.Owner,
		KeyPrefix:     k.KeyPrefix,
		Scopes:        k.Scopes,
		RateLimitTier: k.RateLimitTier,
		CreatedAt:     k.CreatedAt,
		LastUsedAt:    k.LastUsedAt,
		Revoked:       k.IsRevoked(),
	}
}

// APIKeyCreateResponse includes the plaintext key, shown only once.
type APIKeyCreateResponse struct {
	APIKeyResponse
	Key string `json:"key"`
}
