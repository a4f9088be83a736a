// Package model holds the stored entities of urlguard: scans and API keys.
package model

import (
	"time"

	"github.com/urlguard/urlguard/internal/classifier"
	"github.com/urlguard/urlguard/internal/features"
)

// ScanSource identifies how a scan was requested.
type ScanSource string

const (
	SourceAPI   ScanSource = "api"
	SourceBatch ScanSource = "batch"
	SourceCLI   ScanSource = "cli"
)

// Scan is one stored classification of a URL.
type Scan struct {
	ID          string                `json:"id"`
	URL         string                `json:"url"`
	Fingerprint string                `json:"fingerprint"`
	ThreatType  classifier.ThreatType `json:"threat_type"`
	Confidence  float64               `json:"confidence"`
	RiskScore   int                   `json:"risk_score"`
	Warnings    []string              `json:"warnings"`
	Features    features.Features     `json:"features"`
	Source      ScanSource            `json:"source"`
	RequestID   string                `json:"request_id,omitempty"`
	CreatedAt   time.Time             `json:"created_at"`
}

// NewScan builds a Scan from a classification result.
func NewScan(id, rawURL, fingerprint string, result classifier.Result, source ScanSource, requestID string, now time.Time) *Scan {
	warnings := result.Warnings
	if warnings == nil {
		warnings = []string{}
	}
	return &Scan{
		ID:          id,
		URL:         rawURL,
		Fingerprint: fingerprint,
		ThreatType:  result.ThreatType,
		Confidence:  result.Confidence,
		RiskScore:   result.RiskScore,
		Warnings:    warnings,
		Features:    result.Features,
		Source:      source,
		RequestID:   requestID,
		CreatedAt:   now.UTC(),
	}
}

// Result rebuilds the classification result stored in the scan.
func (s *Scan) Result() classifier.Result {
	return classifier.Result{
		ThreatType: s.ThreatType,
		Confidence: s.Confidence,
		RiskScore:  s.RiskScore,
		Features:   s.Features,
		Warnings:   s.Warnings,
	}
}

// ScanStats holds scan counts per threat type.
type ScanStats struct {
	Total  int64                           `json:"total"`
	ByType map[classifier.ThreatType]int64 `json:"by_type"`
}
