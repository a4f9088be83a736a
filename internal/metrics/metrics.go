// Package metrics counts scans, cache use and throttling for /metrics.
package metrics

import "time"

// Recorder receives scan and edge events.
type Recorder interface {
	// Scan metrics
	IncScan(threatType string)
	IncRuleMatch(rule string)
	IncResultCacheHit()
	IncResultCacheMiss()
	ObserveScanDuration(duration time.Duration)
	IncPersistFailure()

	// Batch metrics
	ObserveBatchSize(size int)

	// Edge metrics
	IncRateLimited(limiter string) // limiter: "analyze" or "api"
}

type Snapshotter interface {
	Snapshot() Snapshot
}
