package core

import "math"

// HealthWeights are the per-severity penalties subtracted from a perfect
// score of 100. The defaults mirror the original scoring protocol; they are
// configuration, not derived values.
type HealthWeights struct {
	Critical float64 `json:"critical" yaml:"critical"`
	High     float64 `json:"high" yaml:"high"`
	Other    float64 `json:"other" yaml:"other"` // medium and low findings
}

// DefaultHealthWeights returns the standard penalty set.
func DefaultHealthWeights() HealthWeights {
	return HealthWeights{Critical: 20, High: 10, Other: 3}
}

// HealthThresholds map a score to a status label.
type HealthThresholds struct {
	Healthy  float64 `json:"healthy" yaml:"healthy"`
	Degraded float64 `json:"degraded" yaml:"degraded"`
}

// DefaultHealthThresholds returns the standard 80/50 cut points.
func DefaultHealthThresholds() HealthThresholds {
	return HealthThresholds{Healthy: 80, Degraded: 50}
}

// SeverityBreakdown counts scoring-relevant findings per severity bucket.
type SeverityBreakdown struct {
	Critical int `json:"critical"`
	High     int `json:"high"`
	Medium   int `json:"medium"`
	Low      int `json:"low"`
}

// Total is the number of counted findings.
func (b SeverityBreakdown) Total() int { return b.Critical + b.High + b.Medium + b.Low }

// HealthSnapshot is a derived view recomputed from the current observation
// set on every aggregation pass; it is never stored authoritatively.
type HealthSnapshot struct {
	Score     float64                    `json:"score"`
	Status    HealthStatus               `json:"status"`
	Breakdown SeverityBreakdown          `json:"breakdown"`
	ByDomain  map[Role]SeverityBreakdown `json:"by_domain,omitempty"`
}

// ComputeHealth scores an observation set. Only weakness and anomaly
// observations count against the score; strengths and informational findings
// never lower it. The score is clamped to [0,100].
func ComputeHealth(obs []Observation, weights HealthWeights, thresholds HealthThresholds) HealthSnapshot {
	snap := HealthSnapshot{ByDomain: make(map[Role]SeverityBreakdown)}
	for _, o := range obs {
		if !o.IsWeakness() {
			continue
		}
		domain := snap.ByDomain[o.SourceRole]
		switch o.Severity {
		case SeverityCritical:
			snap.Breakdown.Critical++
			domain.Critical++
		case SeverityHigh:
			snap.Breakdown.High++
			domain.High++
		case SeverityMedium:
			snap.Breakdown.Medium++
			domain.Medium++
		case SeverityLow:
			snap.Breakdown.Low++
			domain.Low++
		}
		snap.ByDomain[o.SourceRole] = domain
	}

	score := 100 -
		weights.Critical*float64(snap.Breakdown.Critical) -
		weights.High*float64(snap.Breakdown.High) -
		weights.Other*float64(snap.Breakdown.Medium+snap.Breakdown.Low)
	snap.Score = math.Max(0, math.Min(100, score))

	switch {
	case snap.Score >= thresholds.Healthy:
		snap.Status = HealthHealthy
	case snap.Score >= thresholds.Degraded:
		snap.Status = HealthDegraded
	default:
		snap.Status = HealthCritical
	}
	return snap
}
