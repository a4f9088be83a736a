package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/urlguard/urlguard/internal/model"
)

const (
	authCachePrefix = "auth:ctx:"
	// authIndexPrefix maps a key ID to the cache key of its auth context.
	authIndexPrefix = "auth:key:"
	authCacheTTL    = 5 * time.Minute
)

// CachedAuthContext is the JSON form of a verified key under auth:ctx:<hash>.
type CachedAuthContext struct {
	KeyID         string   `json:"key_id"`
	KeyPrefix     string   `json:"key_prefix"`
	Owner         string   `json:"owner"`
	Scopes        []string `json:"scopes"`
	RateLimitTier string   `json:"rate_limit_tier"`
}

// GetAuthContext returns nil, nil when the key was never verified, has
// expired, or Redis fails; the caller then verifies against Postgres.
func (c *Cache) GetAuthContext(ctx context.Context, cacheKey string) (*model.AuthContext, error) {
	data, err := c.client.Get(ctx, authCachePrefix+cacheKey).Bytes()
	if err != nil {
		return nil, nil //nolint:nilerr
	}

	var cached CachedAuthContext
	if err := json.Unmarshal(data, &cached); err != nil {
		return nil, nil //nolint:nilerr
	}

	return &model.AuthContext{
		KeyID:         cached.KeyID,
		KeyPrefix:     cached.KeyPrefix,
		Owner:         cached.Owner,
		Scopes:        cached.Scopes,
		RateLimitTier: cached.RateLimitTier,
	}, nil
}

// SetAuthContext caches a verified key together with its key-id index entry.
func (c *Cache) SetAuthContext(ctx context.Context, cacheKey string, auth *model.AuthContext) error {
	data, err := json.Marshal(CachedAuthContext{
		KeyID:         auth.KeyID,
		KeyPrefix:     auth.KeyPrefix,
		Owner:         auth.Owner,
		Scopes:        auth.Scopes,
		RateLimitTier: auth.RateLimitTier,
	})
	if err != nil {
		return fmt.Errorf("marshal auth context: %w", err)
	}

	pipe := c.client.TxPipeline()
	pipe.Set(ctx, authCachePrefix+cacheKey, data, authCacheTTL)
	pipe.Set(ctx, authIndexPrefix+auth.KeyID, cacheKey, authCacheTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("cache auth context: %w", err)
	}
	return nil
}

// InvalidateAuthKey drops the cached auth context of keyID, if any.
func (c *Cache) InvalidateAuthKey(ctx context.Context, keyID string) error {
	cacheKey, err := c.client.Get(ctx, authIndexPrefix+keyID).Result()
	if errors.Is(err, redis.Nil) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("lookup auth index: %w", err)
	}
	return c.client.Del(ctx, authCachePrefix+cacheKey, authIndexPrefix+keyID).Err()
}
