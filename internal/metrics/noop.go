package metrics

import "time"

// NoopRecorder drops every event.
type NoopRecorder struct{}

func NewNoop() Recorder {
	return &NoopRecorder{}
}

func (n *NoopRecorder) IncScan(threatType string)                  {}
func (n *NoopRecorder) IncRuleMatch(rule string)                   {}
func (n *NoopRecorder) IncResultCacheHit()                         {}
func (n *NoopRecorder) IncResultCacheMiss()                        {}
func (n *NoopRecorder) ObserveScanDuration(duration time.Duration) {}
func (n *NoopRecorder) IncPersistFailure()                         {}
func (n *NoopRecorder) ObserveBatchSize(size int)                  {}
func (n *NoopRecorder) IncRateLimited(limiter string)              {}
