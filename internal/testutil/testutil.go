// Package testutil holds helpers shared by integration tests.
package testutil

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/oklog/ulid/v2"
	"github.com/redis/go-redis/v9"

	"github.com/urlguard/urlguard/internal/classifier"
	"github.com/urlguard/urlguard/internal/model"
)

// RequireEnv skips the test unless key is set.
func RequireEnv(t testing.TB, key string) string {
	t.Helper()
	value := os.Getenv(key)
	if value == "" {
		t.Skipf("%s not set", key)
	}
	return value
}

const advisoryLockID int64 = 420420

// AcquireDBLock serializes integration tests that share one database.
func AcquireDBLock(ctx context.Context, pool *pgxpool.Pool) (func() error, error) {
	conn, err := pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}

	if _, err := conn.Exec(ctx, "SELECT pg_advisory_lock($1)", advisoryLockID); err != nil {
		conn.Release()
		return nil, fmt.Errorf("acquire advisory lock: %w", err)
	}

	unlock := func() error {
		defer conn.Release()
		if _, err := conn.Exec(ctx, "SELECT pg_advisory_unlock($1)", advisoryLockID); err != nil {
			return fmt.Errorf("release advisory lock: %w", err)
		}
		return nil
	}

	return unlock, nil
}

// Migrations in apply order.
var Migrations = []string{"000001_scans", "000002_api_keys"}

// ResetSchema runs the down then up file of each named migration.
func ResetSchema(ctx context.Context, pool *pgxpool.Pool, names ...string) error {
	root, err := ProjectRoot()
	if err != nil {
		return err
	}

	for _, name := range names {
		for _, dir := range []string{"down", "up"} {
			path := filepath.Join(root, "migrations", name+"."+dir+".sql")
			sql, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("read %s migration %s: %w", dir, name, err)
			}
			if _, err := pool.Exec(ctx, string(sql)); err != nil {
				return fmt.Errorf("apply %s migration %s: %w", dir, name, err)
			}
		}
	}

	return nil
}

func FlushRedis(ctx context.Context, client *redis.Client) error {
	return client.FlushDB(ctx).Err()
}

// ProjectRoot resolves the module root from this file's location.
func ProjectRoot() (string, error) {
	_, filename, _, ok := runtime.Caller(0)
	if !ok {
		return "", fmt.Errorf("failed to resolve testutil path")
	}
	return filepath.Clean(filepath.Join(filepath.Dir(filename), "..", "..")), nil
}

// NewTestScan classifies rawURL and wraps it in a Scan with a fresh ULID.
func NewTestScan(t testing.TB, rawURL string) *model.Scan {
	t.Helper()
	return model.NewScan(ulid.Make().String(), rawURL, fmt.Sprintf("%064d", time.Now().UnixNano()),
		classifier.Analyze(rawURL), model.SourceAPI, UniqueID("req"), time.Now())
}

// NewTestAPIKey returns an unsaved free-tier read key owned by owner.
func NewTestAPIKey(t testing.TB, owner string) *model.APIKey {
	t.Helper()
	now := time.Now().UTC()
	return &model.APIKey{
		ID:            ulid.Make().String(),
		Owner:         owner,
		KeyHash:       fmt.Sprintf("hash-%d", now.UnixNano()),
		KeyPrefix:     "abc123",
		Scopes:        []string{model.ScopeRead},
		RateLimitTier: model.TierFree,
		Name:          "Test Key",
		CreatedAt:     now,
	}
}

func UniqueID(prefix string) string {
	return fmt.Sprintf("%s-%d", prefix, time.Now().UnixNano())
}
