package roles

import "github.com/roach88/staffsync/internal/config"

// Severity grades a role conflict.
type Severity string

const (
	SeverityLow      Severity = "LOW"
	SeverityMedium   Severity = "MEDIUM"
	SeverityHigh     Severity = "HIGH"
	SeverityCritical Severity = "CRITICAL"
)

// Severities lists every severity from least to most severe.
var Severities = []Severity{SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical}

// Weight orders severities; higher is worse.
func (s Severity) Weight() int {
	switch s {
	case SeverityCritical:
		return 4
	case SeverityHigh:
		return 3
	case SeverityMedium:
		return 2
	case SeverityLow:
		return 1
	}
	return 0
}

// Thresholds are the gap widths the scorer uses.
type Thresholds struct {
	HighGap         int
	MediumGap       int
	EscalateTopRank bool
}

// DefaultThresholds match config.Default.
var DefaultThresholds = Thresholds{HighGap: 3, MediumGap: 2, EscalateTopRank: true}

// ThresholdsFromConfig reads the configured thresholds.
func ThresholdsFromConfig(cfg *config.Config) Thresholds {
	return Thresholds{
		HighGap:         cfg.Severity.HighGap,
		MediumGap:       cfg.Severity.MediumGap,
		EscalateTopRank: cfg.Severity.EscalateTopRank,
	}
}

// Score grades a conflict from the two most senior levels the member holds
// and the level of the top rank in the hierarchy. It is total over all
// integer inputs.
//
// A gap of HighGap or more is HIGH. Below that, holding the top rank
// escalates to CRITICAL when enabled. Otherwise MediumGap or more is MEDIUM
// and anything narrower is LOW.
func (t Thresholds) Score(highest, second, topLevel int) Severity {
	gap := highest - second
	if gap < 0 {
		gap = -gap
		highest = second
	}
	switch {
	case gap >= t.HighGap:
		return SeverityHigh
	case t.EscalateTopRank && highest == topLevel:
		return SeverityCritical
	case gap >= t.MediumGap:
		return SeverityMedium
	default:
		return SeverityLow
	}
}
