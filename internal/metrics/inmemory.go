package metrics

import (
	"maps"
	"sync"
	"sync/atomic"
	"time"
)

// Snapshot is a point-in-time copy of the counters.
type Snapshot struct {
	ScansByType         map[string]uint64
	RuleMatches         map[string]uint64
	ResultCacheHits     uint64
	ResultCacheMisses   uint64
	ScanDurationCount   uint64
	ScanDurationTotalNs int64
	PersistFailures     uint64
	BatchCount          uint64
	BatchURLsTotal      uint64
	RateLimited         map[string]uint64
}

// InMemoryRecorder stores metrics in memory. It backs the /metrics endpoint.
type InMemoryRecorder struct {
	resultCacheHits     uint64
	resultCacheMisses   uint64
	scanDurationCount   uint64
	scanDurationTotalNs int64
	persistFailures     uint64
	batchCount          uint64
	batchURLsTotal      uint64

	mu          sync.Mutex
	scansByType map[string]uint64
	ruleMatches map[string]uint64
	rateLimited map[string]uint64
}

func NewInMemory() *InMemoryRecorder {
	return &InMemoryRecorder{
		scansByType: make(map[string]uint64),
		ruleMatches: make(map[string]uint64),
		rateLimited: make(map[string]uint64),
	}
}

func (m *InMemoryRecorder) Snapshot() Snapshot {
	m.mu.Lock()
	byType := maps.Clone(m.scansByType)
	byRule := maps.Clone(m.ruleMatches)
	limited := maps.Clone(m.rateLimited)
	m.mu.Unlock()

	return Snapshot{
		ScansByType:         byType,
		RuleMatches:         byRule,
		ResultCacheHits:     atomic.LoadUint64(&m.resultCacheHits),
		ResultCacheMisses:   atomic.LoadUint64(&m.resultCacheMisses),
		ScanDurationCount:   atomic.LoadUint64(&m.scanDurationCount),
		ScanDurationTotalNs: atomic.LoadInt64(&m.scanDurationTotalNs),
		PersistFailures:     atomic.LoadUint64(&m.persistFailures),
		BatchCount:          atomic.LoadUint64(&m.batchCount),
		BatchURLsTotal:      atomic.LoadUint64(&m.batchURLsTotal),
		RateLimited:         limited,
	}
}

// IncScan counts one classification of the given type.
func (m *InMemoryRecorder) IncScan(threatType string) {
	m.mu.Lock()
	m.scansByType[threatType]++
	m.mu.Unlock()
}

// IncRuleMatch counts one firing of a scoring rule.
func (m *InMemoryRecorder) IncRuleMatch(rule string) {
	m.mu.Lock()
	m.ruleMatches[rule]++
	m.mu.Unlock()
}

func (m *InMemoryRecorder) IncResultCacheHit() {
	atomic.AddUint64(&m.resultCacheHits, 1)
}

func (m *InMemoryRecorder) IncResultCacheMiss() {
	atomic.AddUint64(&m.resultCacheMisses, 1)
}

// ObserveScanDuration records the time spent on one scan.
func (m *InMemoryRecorder) ObserveScanDuration(duration time.Duration) {
	atomic.AddUint64(&m.scanDurationCount, 1)
	atomic.AddInt64(&m.scanDurationTotalNs, duration.Nanoseconds())
}

func (m *InMemoryRecorder) IncPersistFailure() {
	atomic.AddUint64(&m.persistFailures, 1)
}

func (m *InMemoryRecorder) ObserveBatchSize(size int) {
	atomic.AddUint64(&m.batchCount, 1)
	atomic.AddUint64(&m.batchURLsTotal, uint64(size))
}

func (m *InMemoryRecorder) IncRateLimited(limiter string) {
	m.mu.Lock()
	m.rateLimited[limiter]++
	m.mu.Unlock()
}
