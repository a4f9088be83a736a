package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/urlguard/urlguard/internal/classifier"
	"github.com/urlguard/urlguard/internal/model"
)

const (
	resultKeyPrefix = "scan:result:"
	statsKey        = "scan:stats"
	statsTotalField = "total"

	// DefaultResultTTL is used when SetResult is given a non-positive TTL.
	DefaultResultTTL = time.Hour
)

// cachedResult is the stored form of a classification. MatchedRules is
// kept so that cached and fresh results are indistinguishable.
type cachedResult struct {
	Result       classifier.Result `json:"result"`
	MatchedRules []string          `json:"matched_rules"`
}

// GetResult returns the cached classification for a URL fingerprint.
// Returns ErrCacheMiss if nothing is cached.
func (c *Cache) GetResult(ctx context.Context, fingerprint string) (*classifier.Result, error) {
	data, err := c.client.Get(ctx, resultKeyPrefix+fingerprint).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrCacheMiss
		}
		return nil, fmt.Errorf("redis get failed: %w", err)
	}

	return decodeResult(data)
}

// SetResult caches a classification under a URL fingerprint.
func (c *Cache) SetResult(ctx context.Context, fingerprint string, result classifier.Result, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = DefaultResultTTL
	}

	data, err := encodeResult(result)
	if err != nil {
		return err
	}

	if err := c.client.Set(ctx, resultKeyPrefix+fingerprint, data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache result: %w", err)
	}
	return nil
}

// IncrementStats bumps the counter of a threat type and the total together.
func (c *Cache) IncrementStats(ctx context.Context, threat classifier.ThreatType) error {
	pipe := c.client.TxPipeline()
	pipe.HIncrBy(ctx, statsKey, string(threat), 1)
	pipe.HIncrBy(ctx, statsKey, statsTotalField, 1)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to increment stats: %w", err)
	}
	return nil
}

// GetStats returns the scan counters. Every known threat type is present,
// zero when never seen.
func (c *Cache) GetStats(ctx context.Context) (*model.ScanStats, error) {
	fields, err := c.client.HGetAll(ctx, statsKey).Result()
	if err != nil {
		return nil, fmt.Errorf("redis hgetall failed: %w", err)
	}
	return parseStats(fields), nil
}

func encodeResult(result classifier.Result) ([]byte, error) {
	data, err := json.Marshal(cachedResult{Result: result, MatchedRules: result.MatchedRules})
	if err != nil {
		return nil, fmt.Errorf("marshal result: %w", err)
	}
	return data, nil
}

func decodeResult(data []byte) (*classifier.Result, error) {
	var cached cachedResult
	if err := json.Unmarshal(data, &cached); err != nil {
		// Corrupted entry, treat as miss
		return nil, ErrCacheMiss
	}
	if !cached.Result.ThreatType.IsValid() {
		return nil, ErrCacheMiss
	}

	result := cached.Result
	result.MatchedRules = cached.MatchedRules
	if result.Warnings == nil {
		result.Warnings = []string{}
	}
	return &result, nil
}

// parseStats converts the raw hash into ScanStats, skipping unknown or
// malformed fields.
func parseStats(fields map[string]string) *model.ScanStats {
	stats := &model.ScanStats{ByType: make(map[classifier.ThreatType]int64, len(classifier.ThreatTypes))}
	for _, t := range classifier.ThreatTypes {
		stats.ByType[t] = 0
	}

	for field, raw := range fields {
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			continue
		}
		if field == statsTotalField {
			stats.Total = n
			continue
		}
		if t := classifier.ThreatType(field); t.IsValid() {
			stats.ByType[t] = n
		}
	}
	return stats
}
