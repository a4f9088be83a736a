// Package service classifies URLs and manages API keys on top of the optional stores.
package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"golang.org/x/sync/errgroup"

	"github.com/urlguard/urlguard/internal/cache"
	"github.com/urlguard/urlguard/internal/classifier"
	"github.com/urlguard/urlguard/internal/metrics"
	"github.com/urlguard/urlguard/internal/model"
	"github.com/urlguard/urlguard/internal/repository"
)

var (
	ErrScanNotFound      = errors.New("scan not found")
	ErrHistoryDisabled   = errors.New("scan history is not configured")
	ErrStatsUnavailable  = errors.New("scan statistics are not configured")
	ErrInvalidCursor     = errors.New("invalid pagination cursor")
	ErrInvalidThreatType = errors.New("invalid threat type")
	ErrEmptyBatch        = errors.New("batch contains no URLs")
	ErrBatchTooLarge     = errors.New("batch exceeds maximum size")
)

const (
	defaultListLimit = 20
	maxListLimit     = 100
)

// ResultCache stores classifications by URL fingerprint and counts scans.
// Implemented by *cache.Cache.
type ResultCache interface {
	GetResult(ctx context.Context, fingerprint string) (*classifier.Result, error)
	SetResult(ctx context.Context, fingerprint string, result classifier.Result, ttl time.Duration) error
	IncrementStats(ctx context.Context, threat classifier.ThreatType) error
	GetStats(ctx context.Context) (*model.ScanStats, error)
}

// ScanStore persists scans. Implemented by *repository.Repository.
type ScanStore interface {
	CreateScan(ctx context.Context, scan *model.Scan) error
	GetScanByID(ctx context.Context, id string) (*model.Scan, error)
	ListScans(ctx context.Context, filter repository.ScanFilter, cursor string, limit int) ([]*model.Scan, string, error)
	CountScans(ctx context.Context) (*model.ScanStats, error)
}

// ScanConfig tunes ScanService.
type ScanConfig struct {
	ResultTTL        time.Duration
	MaxBatchSize     int
	BatchConcurrency int
}

// ScanService classifies URLs and keeps their history.
// Store and cache are optional: a nil store disables history, a nil
// cache disables result caching and counters.
type ScanService struct {
	store   ScanStore
	cache   ResultCache
	logger  *slog.Logger
	metrics metrics.Recorder
	cfg     ScanConfig
	now     func() time.Time
}

// NewScanService creates a new ScanService.
func NewScanService(store ScanStore, resultCache ResultCache, logger *slog.Logger, recorder metrics.Recorder, cfg ScanConfig) *ScanService {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.MaxBatchSize <= 0 {
		cfg.MaxBatchSize = 100
	}
	if cfg.BatchConcurrency <= 0 {
		cfg.BatchConcurrency = 8
	}
	return &ScanService{
		store:   store,
		cache:   resultCache,
		logger:  logger,
		metrics: recorder,
		cfg:     cfg,
		now:     time.Now,
	}
}

// HistoryEnabled reports whether scans are persisted.
func (s *ScanService) HistoryEnabled() bool {
	return s.store != nil
}

// MaxBatchSize returns the configured batch cap.
func (s *ScanService) MaxBatchSize() int {
	return s.cfg.MaxBatchSize
}

// ScanOptions carries request metadata into a scan.
type ScanOptions struct {
	Source    model.ScanSource
	RequestID string
}

// Analysis is the outcome of one scan request.
type Analysis struct {
	ScanID     string // empty when history is disabled or persisting failed
	URL        string
	Result     classifier.Result
	Cached     bool
	AnalyzedAt time.Time
}

// Analyze classifies rawURL. Infrastructure failures never fail the scan:
// cache errors fall back to a fresh classification and persistence errors
// only leave ScanID empty. The only error is a done context.
func (s *ScanService) Analyze(ctx context.Context, rawURL string, opts ScanOptions) (*Analysis, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	start := s.now()
	defer func() {
		s.metrics.ObserveScanDuration(time.Since(start))
	}()

	if opts.Source == "" {
		opts.Source = model.SourceAPI
	}

	fingerprint := Fingerprint(rawURL)
	result, cached := s.lookup(ctx, fingerprint)
	if !cached {
		result = classifier.Analyze(rawURL)
		s.remember(ctx, fingerprint, result)
	}

	s.metrics.IncScan(string(result.ThreatType))
	for _, rule := range result.MatchedRules {
		s.metrics.IncRuleMatch(rule)
	}
	if s.cache != nil {
		if err := s.cache.IncrementStats(ctx, result.ThreatType); err != nil {
			s.logger.Warn("failed to increment scan stats", slog.String("error", err.Error()))
		}
	}

	analysis := &Analysis{
		URL:        rawURL,
		Result:     result,
		Cached:     cached,
		AnalyzedAt: start.UTC(),
	}

	if s.store != nil {
		scan := model.NewScan(ulid.Make().String(), rawURL, fingerprint, result, opts.Source, opts.RequestID, start)
		if err := s.store.CreateScan(ctx, scan); err != nil {
			s.metrics.IncPersistFailure()
			s.logger.Error("failed to persist scan",
				slog.String("error", err.Error()),
				slog.String("request_id", opts.RequestID),
			)
		} else {
			analysis.ScanID = scan.ID
		}
	}

	s.logger.Info("url scanned",
		slog.String("scan_id", analysis.ScanID),
		slog.String("host", RedactedHost(rawURL)),
		slog.String("threat_type", string(result.ThreatType)),
		slog.Int("risk_score", result.RiskScore),
		slog.Bool("cache_hit", cached),
		slog.String("source", string(opts.Source)),
		slog.String("request_id", opts.RequestID),
	)

	return analysis, nil
}

// lookup returns a cached result for fingerprint, if any.
func (s *ScanService) lookup(ctx context.Context, fingerprint string) (classifier.Result, bool) {
	if s.cache == nil {
		return classifier.Result{}, false
	}

	result, err := s.cache.GetResult(ctx, fingerprint)
	if err == nil {
		s.metrics.IncResultCacheHit()
		return *result, true
	}

	if !errors.Is(err, cache.ErrCacheMiss) {
		s.logger.Warn("result cache lookup failed", slog.String("error", err.Error()))
	}
	s.metrics.IncResultCacheMiss()
	return classifier.Result{}, false
}

// remember writes a fresh result to the cache.
func (s *ScanService) remember(ctx context.Context, fingerprint string, result classifier.Result) {
	if s.cache == nil {
		return
	}
	if err := s.cache.SetResult(ctx, fingerprint, result, s.cfg.ResultTTL); err != nil {
		s.logger.Warn("failed to cache result", slog.String("error", err.Error()))
	}
}

// AnalyzeBatch classifies urls concurrently. Results are in input order.
// Once ctx is done no further URLs are started and the context error is
// returned.
func (s *ScanService) AnalyzeBatch(ctx context.Context, urls []string, opts ScanOptions) ([]*Analysis, error) {
	if len(urls) == 0 {
		return nil, ErrEmptyBatch
	}
	if len(urls) > s.cfg.MaxBatchSize {
		return nil, fmt.Errorf("%w: %d > %d", ErrBatchTooLarge, len(urls), s.cfg.MaxBatchSize)
	}

	if opts.Source == "" {
		opts.Source = model.SourceBatch
	}

	results := make([]*Analysis, len(urls))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.BatchConcurrency)

	for i, raw := range urls {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			analysis, err := s.Analyze(gctx, raw, opts)
			if err != nil {
				return err
			}
			results[i] = analysis
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.metrics.ObserveBatchSize(len(urls))
	return results, nil
}

// GetScan retrieves a stored scan by ID.
func (s *ScanService) GetScan(ctx context.Context, id string) (*model.Scan, error) {
	if s.store == nil {
		return nil, ErrHistoryDisabled
	}

	scan, err := s.store.GetScanByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrScanNotFound) {
			return nil, ErrScanNotFound
		}
		return nil, err
	}
	return scan, nil
}

// ListScansInput defines input for listing scans.
type ListScansInput struct {
	Cursor     string
	Limit      int
	ThreatType string
}

// ListScansOutput defines output for listing scans.
type ListScansOutput struct {
	Scans      []*model.Scan
	NextCursor string
	HasMore    bool
}

// ListScans returns stored scans newest first.
func (s *ScanService) ListScans(ctx context.Context, input ListScansInput) (*ListScansOutput, error) {
	if s.store == nil {
		return nil, ErrHistoryDisabled
	}

	if input.Limit <= 0 || input.Limit > maxListLimit {
		input.Limit = defaultListLimit
	}

	var filter repository.ScanFilter
	if input.ThreatType != "" {
		threat := classifier.ThreatType(strings.ToLower(input.ThreatType))
		if !threat.IsValid() {
			return nil, ErrInvalidThreatType
		}
		filter.ThreatType = threat
	}

	scans, next, err := s.store.ListScans(ctx, filter, input.Cursor, input.Limit)
	if err != nil {
		if errors.Is(err, repository.ErrInvalidCursor) {
			return nil, ErrInvalidCursor
		}
		return nil, err
	}
	if scans == nil {
		scans = []*model.Scan{}
	}

	return &ListScansOutput{
		Scans:      scans,
		NextCursor: next,
		HasMore:    next != "",
	}, nil
}

// Stats returns scan counters, preferring the live Redis counters and
// falling back to counting stored scans.
func (s *ScanService) Stats(ctx context.Context) (*model.ScanStats, error) {
	if s.cache != nil {
		stats, err := s.cache.GetStats(ctx)
		if err == nil {
			return stats, nil
		}
		if s.store == nil {
			return nil, err
		}
		s.logger.Warn("stats cache unavailable, counting stored scans", slog.String("error", err.Error()))
	}

	if s.store != nil {
		return s.store.CountScans(ctx)
	}
	return nil, ErrStatsUnavailable
}

// Fingerprint identifies a raw URL string in caches and storage.
func Fingerprint(rawURL string) string {
	sum := sha256.Sum256([]byte(rawURL))
	return hex.EncodeToString(sum[:])
}

// RedactedHost returns only the host of rawURL for logging. Userinfo, path
// and query never reach the logs.
func RedactedHost(rawURL string) string {
	candidate := strings.TrimSpace(rawURL)
	if !strings.Contains(candidate, "://") {
		candidate = "http://" + candidate
	}
	u, err := url.Parse(candidate)
	if err != nil || u.Hostname() == "" {
		return "invalid"
	}
	return u.Hostname()
}
