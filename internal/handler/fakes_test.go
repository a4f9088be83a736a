package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/urlguard/urlguard/internal/classifier"
	"github.com/urlguard/urlguard/internal/handler/dto"
	"github.com/urlguard/urlguard/internal/metrics"
	"github.com/urlguard/urlguard/internal/middleware"
	"github.com/urlguard/urlguard/internal/model"
	"github.com/urlguard/urlguard/internal/repository"
	"github.com/urlguard/urlguard/internal/service"
)

const (
	readToken  = "read-token"
	adminToken = "admin-token"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// memScanStore keeps scans in insertion order.
type memScanStore struct {
	mu    sync.Mutex
	scans []*model.Scan
}

func (s *memScanStore) CreateScan(_ context.Context, scan *model.Scan) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scans = append(s.scans, scan)
	return nil
}

func (s *memScanStore) GetScanByID(_ context.Context, id string) (*model.Scan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, scan := range s.scans {
		if scan.ID == id {
			return scan, nil
		}
	}
	return nil, repository.ErrScanNotFound
}

func (s *memScanStore) ListScans(_ context.Context, filter repository.ScanFilter, cursor string, limit int) ([]*model.Scan, string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cursor != "" {
		return nil, "", repository.ErrInvalidCursor
	}
	var out []*model.Scan
	for i := len(s.scans) - 1; i >= 0; i-- {
		if filter.ThreatType == "" || s.scans[i].ThreatType == filter.ThreatType {
			out = append(out, s.scans[i])
		}
	}
	if len(out) > limit {
		return out[:limit], "more", nil
	}
	return out, "", nil
}

func (s *memScanStore) CountScans(_ context.Context) (*model.ScanStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stats := &model.ScanStats{ByType: map[classifier.ThreatType]int64{}}
	for _, scan := range s.scans {
		stats.ByType[scan.ThreatType]++
		stats.Total++
	}
	return stats, nil
}

// memKeyStore is an in-memory service.KeyStore.
type memKeyStore struct {
	mu   sync.Mutex
	keys map[string]*model.APIKey
}

func newMemKeyStore() *memKeyStore {
	return &memKeyStore{keys: make(map[string]*model.APIKey)}
}

func (s *memKeyStore) CreateAPIKey(_ context.Context, key *model.APIKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.keys[key.ID] = key
	return nil
}

func (s *memKeyStore) GetAPIKeyByID(_ context.Context, id string) (*model.APIKey, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key, ok := s.keys[id]
	if !ok {
		return nil, repository.ErrAPIKeyNotFound
	}
	return key, nil
}

func (s *memKeyStore) GetAPIKeysByPrefix(_ context.Context, prefix string) ([]*model.APIKey, error) {
	return nil, nil
}

func (s *memKeyStore) ListAPIKeysByOwner(_ context.Context, owner string) ([]*model.APIKey, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*model.APIKey
	for _, key := range s.keys {
		if key.Owner == owner {
			out = append(out, key)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (s *memKeyStore) RevokeAPIKey(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key, ok := s.keys[id]
	if !ok || key.RevokedAt != nil {
		return repository.ErrAPIKeyNotFound
	}
	now := key.CreatedAt
	key.RevokedAt = &now
	return nil
}

func (s *memKeyStore) UpdateAPIKeyLastUsed(_ context.Context, id string) error {
	return nil
}

// tokenAuthenticator maps fixed tokens to auth contexts.
type tokenAuthenticator struct{}

func (tokenAuthenticator) Enabled() bool { return true }

func (tokenAuthenticator) Authenticate(_ context.Context, token string) (*model.AuthContext, bool, error) {
	switch token {
	case readToken:
		return &model.AuthContext{KeyID: "read-key", Owner: "alice", Scopes: []string{model.ScopeRead}, RateLimitTier: model.TierUnlimited}, false, nil
	case adminToken:
		return &model.AuthContext{KeyID: "admin-key", Owner: "alice", Scopes: []string{model.ScopeAdmin}, RateLimitTier: model.TierUnlimited}, false, nil
	}
	return nil, false, service.ErrUnauthorized
}

type failingPinger struct{}

func (failingPinger) Ping(context.Context) error { return errors.New("connection refused") }

type okPinger struct{}

func (okPinger) Ping(context.Context) error { return nil }

type testServer struct {
	router   *chi.Mux
	scans    *memScanStore
	keys     *memKeyStore
	recorder *metrics.InMemoryRecorder
}

type serverOptions struct {
	noHistory    bool
	maxBatchSize int
	db, cache    HealthChecker
}

func newTestServer(t *testing.T, opts serverOptions) *testServer {
	t.Helper()

	logger := discardLogger()
	ts := &testServer{keys: newMemKeyStore(), recorder: metrics.NewInMemory()}

	var store service.ScanStore
	if !opts.noHistory {
		ts.scans = &memScanStore{}
		store = ts.scans
	}

	scanSvc := service.NewScanService(store, nil, logger, ts.recorder, service.ScanConfig{
		MaxBatchSize:     opts.maxBatchSize,
		BatchConcurrency: 4,
	})
	keySvc := service.NewAPIKeyService(ts.keys, nil, logger, "development")

	ts.router = NewRouter(RouterConfig{
		Logger:  logger,
		Handler: New(),
		Health:  NewHealthHandler(opts.db, opts.cache),
		Analyze: NewAnalyzeHandler(scanSvc, logger, 64),
		Scans:   NewScanHandler(scanSvc, logger),
		APIKeys: NewAPIKeyHandler(keySvc, logger),
		Metrics: NewMetricsHandler(ts.recorder),
		Auth: middleware.AuthConfig{
			Logger:        logger,
			Authenticator: tokenAuthenticator{},
		},
		RateLimit:          middleware.RateLimitConfig{Logger: logger},
		Security:           middleware.SecurityConfig{IsDevelopment: true},
		MaxRequestBodySize: 1 << 20,
	})
	return ts
}

func (ts *testServer) do(t *testing.T, method, target, body, token string) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	ts.router.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rec.Body).Decode(&v); err != nil {
		t.Fatalf("decode %T: %v (raw %q)", v, err, rec.Body.String())
	}
	return v
}

func assertError(t *testing.T, rec *httptest.ResponseRecorder, status int, code string) {
	t.Helper()
	if rec.Code != status {
		t.Fatalf("status = %d, want %d (body %s)", rec.Code, status, rec.Body.String())
	}
	if got := decodeBody[dto.ErrorResponse](t, rec); got.Code != code {
		t.Errorf("code = %q, want %q", got.Code, code)
	}
}
