package core

import (
	"sort"
	"time"
)

// Subject locates what an observation is about. Asset is empty for findings
// that concern a unit or a whole facility.
type Subject struct {
	Facility string `json:"facility"`
	Unit     string `json:"unit,omitempty"`
	Asset    string `json:"asset,omitempty"`
}

// Evidence is an immutable citation attached to an observation or message.
// It points at an asset, a gap, a risk score or a metric, recording enough
// fields to explain the finding without re-querying the source. It never
// owns the referenced entity.
type Evidence struct {
	Type        string         `json:"type"`
	ID          string         `json:"id"`
	Description string         `json:"description"`
	Data        map[string]any `json:"data,omitempty"`
	CapturedAt  time.Time      `json:"captured_at"`
}

// NewEvidence captures a citation with a UTC timestamp.
func NewEvidence(evType, id, description string, data map[string]any) Evidence {
	return Evidence{
		Type:        evType,
		ID:          id,
		Description: description,
		Data:        data,
		CapturedAt:  time.Now().UTC(),
	}
}

// Observation is a typed, evidenced finding about the asset population.
// Observations are append-only within an agent run; a fresh observe pass for
// an agent discards and replaces that agent's prior set.
type Observation struct {
	ID              string          `json:"id"`
	AgentID         string          `json:"agent_id"`
	Type            ObservationType `json:"type"`
	Severity        Severity        `json:"severity"`
	Subject         Subject         `json:"subject"`
	Description     string          `json:"description"`
	Evidence        []Evidence      `json:"evidence,omitempty"`
	Confidence      float64         `json:"confidence"`
	Recommendations []string        `json:"recommendations,omitempty"`
	Timestamp       time.Time       `json:"timestamp"`
	Acknowledged    bool            `json:"acknowledged"`
	Resolved        bool            `json:"resolved"`
	// SourceRole is set during facility aggregation to tag which domain
	// agent produced the finding.
	SourceRole Role `json:"source_role,omitempty"`
}

// NewObservation creates an observation with a fresh id and UTC timestamp.
// Confidence is clamped to [0,1].
func NewObservation(agentID string, obsType ObservationType, severity Severity, subject Subject, description string) Observation {
	return Observation{
		ID:          NewID(),
		AgentID:     agentID,
		Type:        obsType,
		Severity:    severity,
		Subject:     subject,
		Description: description,
		Confidence:  0.8,
		Timestamp:   time.Now().UTC(),
	}
}

// WithConfidence returns a copy with the confidence clamped to [0,1].
func (o Observation) WithConfidence(c float64) Observation {
	if c < 0 {
		c = 0
	}
	if c > 1 {
		c = 1
	}
	o.Confidence = c
	return o
}

// WithEvidence returns a copy with the evidence appended.
func (o Observation) WithEvidence(ev ...Evidence) Observation {
	o.Evidence = append(o.Evidence, ev...)
	return o
}

// WithRecommendations returns a copy with the recommendations appended.
func (o Observation) WithRecommendations(recs ...string) Observation {
	o.Recommendations = append(o.Recommendations, recs...)
	return o
}

// IsWeakness reports whether the observation counts against health
// (weaknesses and anomalies do; strengths, improvements, patterns and trends
// are scored by severity alone).
func (o Observation) IsWeakness() bool {
	return o.Type == ObservationWeakness || o.Type == ObservationAnomaly
}

// SortObservations orders observations by severity rank then recency
// (newest first within a rank). Sorting is stable so same-timestamp
// observations keep insertion order.
func SortObservations(obs []Observation) {
	sort.SliceStable(obs, func(i, j int) bool {
		ri, rj := obs[i].Severity.Rank(), obs[j].Severity.Rank()
		if ri != rj {
			return ri < rj
		}
		return obs[i].Timestamp.After(obs[j].Timestamp)
	})
}
