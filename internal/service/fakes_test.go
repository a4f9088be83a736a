package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/urlguard/urlguard/internal/cache"
	"github.com/urlguard/urlguard/internal/classifier"
	"github.com/urlguard/urlguard/internal/model"
	"github.com/urlguard/urlguard/internal/repository"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeResultCache struct {
	mu      sync.Mutex
	results map[string]classifier.Result
	stats   map[classifier.ThreatType]int64
	getErr  error
	sets    int
}

func newFakeResultCache() *fakeResultCache {
	return &fakeResultCache{
		results: make(map[string]classifier.Result),
		stats:   make(map[classifier.ThreatType]int64),
	}
}

func (c *fakeResultCache) GetResult(_ context.Context, fp string) (*classifier.Result, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.getErr != nil {
		return nil, c.getErr
	}
	r, ok := c.results[fp]
	if !ok {
		return nil, cache.ErrCacheMiss
	}
	return &r, nil
}

func (c *fakeResultCache) SetResult(_ context.Context, fp string, r classifier.Result, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.results[fp] = r
	c.sets++
	return nil
}

func (c *fakeResultCache) IncrementStats(_ context.Context, t classifier.ThreatType) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stats[t]++
	return nil
}

func (c *fakeResultCache) GetStats(_ context.Context) (*model.ScanStats, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	stats := &model.ScanStats{ByType: map[classifier.ThreatType]int64{}}
	for t, n := range c.stats {
		stats.ByType[t] = n
		stats.Total += n
	}
	return stats, nil
}

type fakeScanStore struct {
	mu        sync.Mutex
	scans     map[string]*model.Scan
	createErr error
}

func newFakeScanStore() *fakeScanStore {
	return &fakeScanStore{scans: make(map[string]*model.Scan)}
}

func (s *fakeScanStore) CreateScan(_ context.Context, scan *model.Scan) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.createErr != nil {
		return s.createErr
	}
	s.scans[scan.ID] = scan
	return nil
}

func (s *fakeScanStore) GetScanByID(_ context.Context, id string) (*model.Scan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	scan, ok := s.scans[id]
	if !ok {
		return nil, repository.ErrScanNotFound
	}
	return scan, nil
}

func (s *fakeScanStore) ListScans(_ context.Context, filter repository.ScanFilter, cursor string, limit int) ([]*model.Scan, string, error) {
	if cursor == "bad" {
		return nil, "", repository.ErrInvalidCursor
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*model.Scan
	for _, scan := range s.scans {
		if filter.ThreatType == "" || scan.ThreatType == filter.ThreatType {
			out = append(out, scan)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	if len(out) > limit {
		return out[:limit], "next", nil
	}
	return out, "", nil
}

func (s *fakeScanStore) CountScans(_ context.Context) (*model.ScanStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stats := &model.ScanStats{ByType: map[classifier.ThreatType]int64{}}
	for _, scan := range s.scans {
		stats.ByType[scan.ThreatType]++
		stats.Total++
	}
	return stats, nil
}

func (s *fakeScanStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.scans)
}

type fakeKeyStore struct {
	mu       sync.Mutex
	keys     map[string]*model.APIKey
	lastUsed chan string
}

func newFakeKeyStore() *fakeKeyStore {
	return &fakeKeyStore{keys: make(map[string]*model.APIKey), lastUsed: make(chan string, 16)}
}

func (s *fakeKeyStore) CreateAPIKey(_ context.Context, key *model.APIKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.keys[key.ID] = key
	return nil
}

func (s *fakeKeyStore) GetAPIKeyByID(_ context.Context, id string) (*model.APIKey, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key, ok := s.keys[id]
	if !ok {
		return nil, repository.ErrAPIKeyNotFound
	}
	return key, nil
}

func (s *fakeKeyStore) GetAPIKeysByPrefix(_ context.Context, prefix string) ([]*model.APIKey, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*model.APIKey
	for _, k := range s.keys {
		if k.KeyPrefix == prefix && !k.IsRevoked() {
			out = append(out, k)
		}
	}
	return out, nil
}

func (s *fakeKeyStore) ListAPIKeysByOwner(_ context.Context, owner string) ([]*model.APIKey, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*model.APIKey
	for _, k := range s.keys {
		if k.Owner == owner {
			out = append(out, k)
		}
	}
	return out, nil
}

func (s *fakeKeyStore) RevokeAPIKey(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key, ok := s.keys[id]
	if !ok || key.IsRevoked() {
		return repository.ErrAPIKeyNotFound
	}
	now := time.Now()
	key.RevokedAt = &now
	return nil
}

func (s *fakeKeyStore) UpdateAPIKeyLastUsed(_ context.Context, id string) error {
	s.lastUsed <- id
	return nil
}

type fakeAuthCache struct {
	mu      sync.Mutex
	entries map[string]*model.AuthContext
}

func (c *fakeAuthCache) GetAuthContext(_ context.Context, key string) (*model.AuthContext, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.entries[key], nil
}

func (c *fakeAuthCache) SetAuthContext(_ context.Context, key string, ac *model.AuthContext) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = ac
	return nil
}

func (c *fakeAuthCache) InvalidateAuthKey(_ context.Context, keyID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for key, ac := range c.entries {
		if ac.KeyID == keyID {
			delete(c.entries, key)
		}
	}
	return nil
}

var errBoom = errors.New("boom")
