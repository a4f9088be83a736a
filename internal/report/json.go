package report

import (
	"bufio"
	"encoding/json"
	"io"

	"github.com/urlguard/urlguard/internal/classifier"
	"github.com/urlguard/urlguard/internal/features"
	"github.com/urlguard/urlguard/internal/service"
)

var featureNames = features.Names()

// Record is the JSON line written per URL.
type Record struct {
	URL         string                `json:"url"`
	ThreatType  classifier.ThreatType `json:"threatType"`
	Confidence  float64               `json:"confidence"`
	RiskScore   int                   `json:"riskScore"`
	RiskLevel   classifier.RiskLevel  `json:"riskLevel"`
	Description string                `json:"description"`
	Features    features.Features     `json:"features"`
	Warnings    []string              `json:"warnings"`
}

// NewRecord flattens an analysis into its JSON line.
func NewRecord(a *service.Analysis) Record {
	warnings := a.Result.Warnings
	if warnings == nil {
		warnings = []string{}
	}
	return Record{
		URL:         a.URL,
		ThreatType:  a.Result.ThreatType,
		Confidence:  a.Result.Confidence,
		RiskScore:   a.Result.RiskScore,
		RiskLevel:   a.Result.Level(),
		Description: a.Result.ThreatType.Description(),
		Features:    a.Result.Features,
		Warnings:    warnings,
	}
}

// JSONLWriter writes one Record per line.
type JSONLWriter struct {
	w   *bufio.Writer
	enc *json.Encoder
}

// NewJSONLWriter wraps an io.Writer with buffering.
func NewJSONLWriter(w io.Writer) *JSONLWriter {
	bw := bufio.NewWriter(w)
	enc := json.NewEncoder(bw)
	enc.SetEscapeHTML(false)
	return &JSONLWriter{w: bw, enc: enc}
}

// Write writes a single result as a JSON line.
func (j *JSONLWriter) Write(a *service.Analysis) error {
	if err := j.enc.Encode(NewRecord(a)); err != nil {
		return err
	}
	return j.w.Flush()
}
