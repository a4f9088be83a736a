package dto

import (
	"time"

	"github.com/urlguard/urlguard/internal/classifier"
	"github.com/urlguard/urlguard/internal/features"
	"github.com/urlguard/urlguard/internal/model"
	"github.com/urlguard/urlguard/internal/service"
)

// AnalyzeRequest is the body of POST /api/v1/analyze.
type AnalyzeRequest struct {
	URL string `json:"url"`
}

// BatchAnalyzeRequest is the body of POST /api/v1/analyze/batch.
type BatchAnalyzeRequest struct {
	URLs []string `json:"urls"`
}

// AnalysisResponse is one classification. Core fields keep the camelCase
// names the classifier emits.
type AnalysisResponse struct {
	ScanID      string                `json:"scanId"`
	URL         string                `json:"url"`
	ThreatType  classifier.ThreatType `json:"threatType"`
	Confidence  float64               `json:"confidence"`
	RiskScore   int                   `json:"riskScore"`
	RiskLevel   classifier.RiskLevel  `json:"riskLevel"`
	Description string                `json:"description"`
	Features    features.Features     `json:"features"`
	Warnings    []string              `json:"warnings"`
	Cached      bool                  `json:"cached"`
	AnalyzedAt  time.Time             `json:"analyzedAt"`
}

// BatchAnalysisResponse holds batch results in request order.
type BatchAnalysisResponse struct {
	Results []AnalysisResponse `json:"results"`
	Count   int                `json:"count"`
}

// ScanResponse is a stored scan in history responses.
type ScanResponse struct {
	ID          string                `json:"id"`
	URL         string                `json:"url"`
	ThreatType  classifier.ThreatType `json:"threat_type"`
	Confidence  float64               `json:"confidence"`
	RiskScore   int                   `json:"risk_score"`
	RiskLevel   classifier.RiskLevel  `json:"risk_level"`
	Description string                `json:"description"`
	Warnings    []string              `json:"warnings"`
	Features    features.Features     `json:"features"`
	Source      model.ScanSource      `json:"source"`
	CreatedAt   time.Time             `json:"created_at"`
}

// ScanListResponse represents a paginated list of scans.
type ScanListResponse struct {
	Data       []ScanResponse `json:"data"`
	Pagination *Pagination    `json:"pagination"`
}

// StatsResponse reports scan counts. Every threat type is present.
type StatsResponse struct {
	Total  int64            `json:"total"`
	ByType map[string]int64 `json:"by_type"`
}

// ToAnalysisResponse converts a service analysis.
func ToAnalysisResponse(a *service.Analysis) AnalysisResponse {
	warnings := a.Result.Warnings
	if warnings == nil {
		warnings = []string{}
	}
	return AnalysisResponse{
		ScanID:      a.ScanID,
		URL:         a.URL,
		ThreatType:  a.Result.ThreatType,
		Confidence:  a.Result.Confidence,
		RiskScore:   a.Result.RiskScore,
		RiskLevel:   a.Result.Level(),
		Description: a.Result.ThreatType.Description(),
		Features:    a.Result.Features,
		Warnings:    warnings,
		Cached:      a.Cached,
		AnalyzedAt:  a.AnalyzedAt,
	}
}

// ToBatchAnalysisResponse converts batch results, keeping their order.
func ToBatchAnalysisResponse(analyses []*service.Analysis) BatchAnalysisResponse {
	results := make([]AnalysisResponse, 0, len(analyses))
	for _, a := range analyses {
		results = append(results, ToAnalysisResponse(a))
	}
	return BatchAnalysisResponse{Results: results, Count: len(results)}
}

// ToScanResponse converts a stored scan.
func ToScanResponse(scan *model.Scan) ScanResponse {
	warnings := scan.Warnings
	if warnings == nil {
		warnings = []string{}
	}
	return ScanResponse{
		ID:          scan.ID,
		URL:         scan.URL,
		ThreatType:  scan.ThreatType,
		Confidence:  scan.Confidence,
		RiskScore:   scan.RiskScore,
		RiskLevel:   classifier.LevelFor(scan.RiskScore),
		Description: scan.ThreatType.Description(),
		Warnings:    warnings,
		Features:    scan.Features,
		Source:      scan.Source,
		CreatedAt:   scan.CreatedAt,
	}
}

// ToScanListResponse converts a page of scans.
func ToScanListResponse(scans []*model.Scan, nextCursor string, hasMore bool) ScanListResponse {
	data := make([]ScanResponse, 0, len(scans))
	for _, scan := range scans {
		data = append(data, ToScanResponse(scan))
	}
	return ScanListResponse{
		Data:       data,
		Pagination: &Pagination{NextCursor: nextCursor, HasMore: hasMore},
	}
}

// ToStatsResponse zero-fills threat types that have no scans yet.
func ToStatsResponse(stats *model.ScanStats) StatsResponse {
	byType := make(map[string]int64, len(classifier.ThreatTypes))
	for _, t := range classifier.ThreatTypes {
		byType[string(t)] = stats.ByType[t]
	}
	return StatsResponse{Total: stats.Total, ByType: byType}
}
