package handler

import (
	"fmt"
	"net/http"
	"slices"

	"github.com/urlguard/urlguard/internal/classifier"
	"github.com/urlguard/urlguard/internal/metrics"
)

type MetricsHandler struct {
	snapshotter metrics.Snapshotter
}

func NewMetricsHandler(snapshotter metrics.Snapshotter) *MetricsHandler {
	return &MetricsHandler{snapshotter: snapshotter}
}

// Metrics renders the recorder snapshot as Prometheus text.
func (h *MetricsHandler) Metrics(w http.ResponseWriter, r *http.Request) {
	if h.snapshotter == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}

	snap := h.snapshotter.Snapshot()

	w.Header().Set("Content-Type", "text/plain; version=0.0.4")

	writeMetric(w, "# TYPE urlguard_scans_total counter\n")
	for _, t := range classifier.ThreatTypes {
		writeMetric(w, "urlguard_scans_total{threat_type=%q} %d\n", string(t), snap.ScansByType[string(t)])
	}

	writeMetric(w, "# TYPE urlguard_rule_matches_total counter\n")
	for _, name := range sortedKeys(snap.RuleMatches) {
		writeMetric(w, "urlguard_rule_matches_total{rule=%q} %d\n", name, snap.RuleMatches[name])
	}

	writeMetric(w, "urlguard_result_cache_hits_total %d\n", snap.ResultCacheHits)
	writeMetric(w, "urlguard_result_cache_misses_total %d\n", snap.ResultCacheMisses)
	writeMetric(w, "urlguard_scan_duration_seconds_count %d\n", snap.ScanDurationCount)
	writeMetric(w, "urlguard_scan_duration_seconds_sum %.6f\n", float64(snap.ScanDurationTotalNs)/1e9)
	writeMetric(w, "urlguard_scan_persist_failures_total %d\n", snap.PersistFailures)

	writeMetric(w, "urlguard_batches_total %d\n", snap.BatchCount)
	writeMetric(w, "urlguard_batch_urls_total %d\n", snap.BatchURLsTotal)

	for _, name := range sortedKeys(snap.RateLimited) {
		writeMetric(w, "urlguard_rate_limited_total{limiter=%q} %d\n", name, snap.RateLimited[name])
	}
}

func sortedKeys(m map[string]uint64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

func writeMetric(w http.ResponseWriter, format string, args ...any) {
	_, _ = fmt.Fprintf(w, format, args...)
}
