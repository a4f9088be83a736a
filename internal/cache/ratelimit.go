package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	rateLimitAPIPrefix = "ratelimit:apikey:"
	// rateLimitAnalyzePrefix is the Redis key prefix for per-IP analyze limits.
	rateLimitAnalyzePrefix = "ratelimit:analyze:"
	rateLimitAPITTL        = 120 * time.Second
	rateLimitAnalyzeTTL    = 10 * time.Second
)

// RateLimitResult is the bucket state after one request.
type RateLimitResult struct {
	Allowed    bool
	Remaining  int64
	ResetAt    time.Time
	RetryAfter time.Duration
}

// tokenBucketScript refills and consumes in one atomic step.
var tokenBucketScript = redis.NewScript(`
	local key = KEYS[1]
	local rate = tonumber(ARGV[1])      -- tokens per second
	local burst = tonumber(ARGV[2])     -- bucket capacity
	local now = tonumber(ARGV[3])       -- seconds
	local ttl = tonumber(ARGV[4])

	local data = redis.call('HMGET', key, 'tokens', 'last_update')
	local tokens = tonumber(data[1]) or burst
	local last_update = tonumber(data[2]) or now

	tokens = math.min(burst, tokens + ((now - last_update) * rate))

	local allowed = 0
	local retry_after = 0
	if tokens >= 1 then
		tokens = tokens - 1
		allowed = 1
	else
		retry_after = math.ceil((1 - tokens) / rate)
	end

	redis.call('HMSET', key, 'tokens', tokens, 'last_update', now)
	redis.call('EXPIRE', key, ttl)

	return {allowed, retry_after, math.floor(tokens)}
`)

// CheckAPIRateLimit takes one token from the bucket of keyID.
// A ratePerMinute of zero means unlimited.
func (c *Cache) CheckAPIRateLimit(ctx context.Context, keyID string, ratePerMinute, burst int) (*RateLimitResult, error) {
	if ratePerMinute == 0 {
		return unlimited(burst), nil
	}
	return c.checkRateLimit(ctx, rateLimitAPIPrefix+keyID, float64(ratePerMinute)/60.0, burst, rateLimitAPITTL)
}

// CheckAnalyzeRateLimit limits unauthenticated analyze calls per client IP.
// The IP is hashed before it becomes part of a key.
func (c *Cache) CheckAnalyzeRateLimit(ctx context.Context, ip string, ratePerSecond, burst int) (*RateLimitResult, error) {
	if ratePerSecond <= 0 {
		return unlimited(burst), nil
	}
	return c.checkRateLimit(ctx, rateLimitAnalyzePrefix+hashIP(ip), float64(ratePerSecond), burst, rateLimitAnalyzeTTL)
}

func (c *Cache) checkRateLimit(ctx context.Context, key string, rate float64, burst int, ttl time.Duration) (*RateLimitResult, error) {
	now := time.Now()

	result, err := tokenBucketScript.Run(ctx, c.client,
		[]string{key},
		rate, burst, now.Unix(), int(ttl.Seconds()),
	).Int64Slice()
	if err != nil {
		// Fail open on Redis errors
		return unlimited(burst), nil
	}

	return &RateLimitResult{
		Allowed:    result[0] == 1,
		Remaining:  result[2],
		ResetAt:    now.Add(time.Duration(float64(time.Second) / rate)),
		RetryAfter: time.Duration(result[1]) * time.Second,
	}, nil
}

func unlimited(burst int) *RateLimitResult {
	return &RateLimitResult{
		Allowed:   true,
		Remaining: int64(burst),
		ResetAt:   time.Now().Add(time.Minute),
	}
}

// hashIP returns the first 8 bytes of the IP's SHA-256 as hex.
func hashIP(ip string) string {
	hash := sha256.Sum256([]byte(ip))
	return hex.EncodeToString(hash[:8])
}
