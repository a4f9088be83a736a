package classifier

// RiskLevel buckets a risk score for display.
type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

// LevelFor returns the display band of a risk score.
func LevelFor(score int) RiskLevel {
	switch {
	case score < 35:
		return RiskLow
	case score < 65:
		return RiskMedium
	default:
		return RiskHigh
	}
}

var descriptions = map[ThreatType]string{
	ThreatBenign:     "This URL appears to be safe and legitimate.",
	ThreatPhishing:   "This URL may be attempting to steal your credentials or personal information.",
	ThreatMalware:    "This URL may distribute malicious software.",
	ThreatDefacement: "This URL may be associated with website defacement activities.",
}

// Description returns a one-sentence explanation of the category.
func (t ThreatType) Description() string {
	return descriptions[t]
}

// Level is shorthand for LevelFor(r.RiskScore).
func (r Result) Level() RiskLevel {
	return LevelFor(r.RiskScore)
}
