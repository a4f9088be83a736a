// Package classifier scores a URL's feature record with a fixed rule table
// and maps the score to a threat category and confidence.
//
// Classification is pure and deterministic: the same input always yields
// the same Result, and it is safe to call from any number of goroutines.
package classifier

import (
	"math"

	"github.com/urlguard/urlguard/internal/features"
)

// ThreatType is the classifier's categorical output.
type ThreatType string

const (
	ThreatBenign     ThreatType = "benign"
	ThreatPhishing   ThreatType = "phishing"
	ThreatMalware    ThreatType = "malware"
	ThreatDefacement ThreatType = "defacement"
)

// ThreatTypes lists every category.
var ThreatTypes = []ThreatType{ThreatBenign, ThreatPhishing, ThreatMalware, ThreatDefacement}

// IsValid reports whether t is a known category.
func (t ThreatType) IsValid() bool {
	switch t {
	case ThreatBenign, ThreatPhishing, ThreatMalware, ThreatDefacement:
		return true
	}
	return false
}

// Score and confidence bounds.
const (
	MinRiskScore  = 0
	MaxRiskScore  = 100
	MinConfidence = 50.0
	MaxConfidence = 98.0
)

// Result is the outcome of classifying one URL.
type Result struct {
	ThreatType ThreatType        `json:"threatType"`
	Confidence float64           `json:"confidence"`
	RiskScore  int               `json:"riskScore"`
	Features   features.Features `json:"features"`
	Warnings   []string          `json:"warnings"`

	// MatchedRules names every rule that fired, including the ones that
	// carry no warning. Not part of the wire format; it feeds the rule
	// metrics and verbose CLI output.
	MatchedRules []string `json:"-"`
}

// Analyze extracts the features of raw and classifies them.
func Analyze(raw string) Result {
	return Classify(features.Extract(raw))
}

// Classify scores an already extracted feature record.
func Classify(f features.Features) Result {
	total, warnings, matched := score(f)
	riskScore := clamp(total, MinRiskScore, MaxRiskScore)
	threat, confidence := categorize(riskScore, f)

	return Result{
		ThreatType:   threat,
		Confidence:   roundTenth(math.Max(MinConfidence, math.Min(MaxConfidence, confidence))),
		RiskScore:    riskScore,
		Features:     f,
		Warnings:     warnings,
		MatchedRules: matched,
	}
}

// categorize maps a clamped score to a category and raw confidence.
func categorize(score int, f features.Features) (ThreatType, float64) {
	s := float64(score)
	switch {
	case score < 15:
		return ThreatBenign, 95 - 2*s
	case score < 35:
		return ThreatBenign, 75 - (s - 15)
	case score < 55:
		if f.SusURL == 1 || f.CountAt > 0 {
			return ThreatPhishing, 60 + (s - 35)
		}
		return ThreatDefacement, 55 + (s - 35)
	case score < 75:
		switch {
		case f.UseOfIP == 1 || f.CountEmbedDomain > 0:
			return ThreatMalware, 70 + (s - 55)
		case f.SusURL == 1:
			return ThreatPhishing, 75 + (s - 55)
		default:
			return ThreatDefacement, 65 + (s - 55)
		}
	default:
		confidence := 85 + math.Min(10, (s-75)/2.5)
		if f.UseOfIP != 1 && f.SusURL == 1 {
			return ThreatPhishing, confidence
		}
		return ThreatMalware, confidence
	}
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// roundTenth rounds to one decimal place, halves rounding up.
func roundTenth(v float64) float64 {
	return math.Floor(v*10+0.5) / 10
}
