package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/urlguard/urlguard/internal/auth"
	"github.com/urlguard/urlguard/internal/model"
	"github.com/urlguard/urlguard/internal/repository"
)

// API key errors.
var (
	ErrUnauthorized   = errors.New("invalid or missing API key")
	ErrKeysDisabled   = errors.New("API keys are not configured")
	ErrAPIKeyNotFound = errors.New("API key not found")
	ErrInvalidScope   = errors.New("invalid scope")
	ErrInvalidTier    = errors.New("invalid rate limit tier")
	ErrInvalidOwner   = errors.New("owner is required")
)

const lastUsedTimeout = 5 * time.Second

// KeyStore persists API keys. Implemented by *repository.Repository.
type KeyStore interface {
	CreateAPIKey(ctx context.Context, key *model.APIKey) error
	GetAPIKeyByID(ctx context.Context, id string) (*model.APIKey, error)
	GetAPIKeysByPrefix(ctx context.Context, prefix string) ([]*model.APIKey, error)
	ListAPIKeysByOwner(ctx context.Context, owner string) ([]*model.APIKey, error)
	RevokeAPIKey(ctx context.Context, id string) error
	UpdateAPIKeyLastUsed(ctx context.Context, id string) error
}

// AuthCache caches verified auth contexts by key hash.
// Implemented by *cache.Cache.
type AuthCache interface {
	GetAuthContext(ctx context.Context, cacheKey string) (*model.AuthContext, error)
	SetAuthContext(ctx context.Context, cacheKey string, auth *model.AuthContext) error
	InvalidateAuthKey(ctx context.Context, keyID string) error
}

// APIKeyService issues, verifies and revokes API keys.
type APIKeyService struct {
	store  KeyStore
	cache  AuthCache
	logger *slog.Logger
	env    string
}

// NewAPIKeyService creates a new APIKeyService. A nil store disables every
// keyed operation; a nil cache means every request verifies its hash.
func NewAPIKeyService(store KeyStore, authCache AuthCache, logger *slog.Logger, env string) *APIKeyService {
	if logger == nil {
		logger = slog.Default()
	}
	return &APIKeyService{store: store, cache: authCache, logger: logger, env: env}
}

// Enabled reports whether API keys can be used.
func (s *APIKeyService) Enabled() bool {
	return s.store != nil
}

// Authenticate verifies a plaintext key and returns its auth context.
// Every failure is reported as ErrUnauthorized except store errors.
func (s *APIKeyService) Authenticate(ctx context.Context, plaintext string) (*model.AuthContext, bool, error) {
	if s.store == nil {
		return nil, false, ErrUnauthorized
	}

	parsed, err := auth.ParseAPIKey(plaintext)
	if err != nil {
		return nil, false, ErrUnauthorized
	}

	cacheKey := auth.QuickHash(plaintext)
	if s.cache != nil {
		if cached, _ := s.cache.GetAuthContext(ctx, cacheKey); cached != nil {
			return cached, true, nil
		}
	}

	candidates, err := s.store.GetAPIKeysByPrefix(ctx, parsed.Prefix)
	if err != nil {
		return nil, false, fmt.Errorf("lookup keys by prefix: %w", err)
	}

	// Several keys may share a prefix.
	var matched *model.APIKey
	for _, k := range candidates {
		if ok, err := auth.VerifyKey(plaintext, k.KeyHash); err == nil && ok {
			matched = k
			break
		}
	}
	if matched == nil || matched.IsRevoked() {
		return nil, false, ErrUnauthorized
	}

	authCtx := &model.AuthContext{
		KeyID:         matched.ID,
		KeyPrefix:     matched.KeyPrefix,
		Owner:         matched.Owner,
		Scopes:        matched.Scopes,
		RateLimitTier: matched.RateLimitTier,
	}

	if s.cache != nil {
		if err := s.cache.SetAuthContext(ctx, cacheKey, authCtx); err != nil {
			s.logger.Warn("failed to cache auth context", slog.String("error", err.Error()))
		}
	}

	go func(id string) {
		bg, cancel := context.WithTimeout(context.WithoutCancel(ctx), lastUsedTimeout)
		defer cancel()
		if err := s.store.UpdateAPIKeyLastUsed(bg, id); err != nil {
			s.logger.Warn("failed to update key last_used_at", slog.String("key_id", id), slog.String("error", err.Error()))
		}
	}(matched.ID)

	return authCtx, false, nil
}

// CreateKeyInput defines input for creating a key.
type CreateKeyInput struct {
	Owner         string
	Name          string
	Scopes        []string
	RateLimitTier string
}

// CreateKey issues a new key. The plaintext is returned once and never stored.
func (s *APIKeyService) CreateKey(ctx context.Context, input CreateKeyInput) (*model.APIKey, string, error) {
	if s.store == nil {
		return nil, "", ErrKeysDisabled
	}

	owner := strings.TrimSpace(input.Owner)
	if owner == "" {
		return nil, "", ErrInvalidOwner
	}

	scopes := input.Scopes
	if len(scopes) == 0 {
		scopes = []string{model.ScopeRead}
	}
	for _, scope := range scopes {
		if !model.IsValidScope(scope) {
			return nil, "", fmt.Errorf("%w: %q", ErrInvalidScope, scope)
		}
	}

	tier := input.RateLimitTier
	if tier == "" {
		tier = model.TierFree
	}
	if !model.IsValidTier(tier) {
		return nil, "", fmt.Errorf("%w: %q", ErrInvalidTier, tier)
	}

	generated, err := auth.GenerateAPIKey(s.keyEnv())
	if err != nil {
		return nil, "", fmt.Errorf("generate key: %w", err)
	}

	key := &model.APIKey{
		ID:            ulid.Make().String(),
		Owner:         owner,
		KeyHash:       generated.Hash,
		KeyPrefix:     generated.Prefix,
		Scopes:        scopes,
		RateLimitTier: tier,
		Name:          input.Name,
		CreatedAt:     time.Now().UTC(),
	}

	if err := s.store.CreateAPIKey(ctx, key); err != nil {
		return nil, "", fmt.Errorf("store key: %w", err)
	}

	s.logger.Info("API key created",
		slog.String("key_id", key.ID),
		slog.String("key_prefix", key.KeyPrefix),
		slog.String("owner", key.Owner),
	)

	return key, generated.Plaintext, nil
}

// ListKeys returns the keys of owner, newest first.
func (s *APIKeyService) ListKeys(ctx context.Context, owner string) ([]*model.APIKey, error) {
	if s.store == nil {
		return nil, ErrKeysDisabled
	}
	keys, err := s.store.ListAPIKeysByOwner(ctx, owner)
	if err != nil {
		return nil, err
	}
	if keys == nil {
		keys = []*model.APIKey{}
	}
	return keys, nil
}

// RevokeKey revokes a key owned by owner. Keys of other owners and
// already revoked keys are reported as not found. If the cached auth
// context cannot be dropped the key keeps working until it expires.
func (s *APIKeyService) RevokeKey(ctx context.Context, owner, keyID string) error {
	if s.store == nil {
		return ErrKeysDisabled
	}

	key, err := s.store.GetAPIKeyByID(ctx, keyID)
	if err != nil {
		if errors.Is(err, repository.ErrAPIKeyNotFound) {
			return ErrAPIKeyNotFound
		}
		return err
	}
	if key.Owner != owner || key.IsRevoked() {
		return ErrAPIKeyNotFound
	}

	if err := s.store.RevokeAPIKey(ctx, keyID); err != nil {
		if errors.Is(err, repository.ErrAPIKeyNotFound) {
			return ErrAPIKeyNotFound
		}
		return err
	}

	if s.cache != nil {
		if err := s.cache.InvalidateAuthKey(ctx, keyID); err != nil {
			s.logger.Warn("failed to invalidate cached auth context", slog.String("key_id", keyID), slog.String("error", err.Error()))
		}
	}

	s.logger.Info("API key revoked", slog.String("key_id", keyID), slog.String("owner", owner))
	return nil
}

func (s *APIKeyService) keyEnv() string {
	if s.env == "production" {
		return auth.EnvLive
	}
	return auth.EnvTest
}
