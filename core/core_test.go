package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSeverityRankTotalOrder(t *testing.T) {
	assert.Less(t, SeverityCritical.Rank(), SeverityHigh.Rank())
	assert.Less(t, SeverityHigh.Rank(), SeverityMedium.Rank())
	assert.Less(t, SeverityMedium.Rank(), SeverityLow.Rank())
	assert.Less(t, SeverityLow.Rank(), SeverityPositive.Rank())
	assert.Equal(t, SeverityPositive.Rank(), SeverityInfo.Rank())
}

func TestSeverityValid(t *testing.T) {
	assert.True(t, SeverityCritical.Valid())
	assert.True(t, SeverityInfo.Valid())
	assert.False(t, Severity("catastrophic").Valid())
	assert.False(t, Severity("").Valid())
}

func TestSentimentWeight(t *testing.T) {
	assert.Equal(t, 1.0, SentimentPositive.Weight())
	assert.Equal(t, 0.0, SentimentNeutral.Weight())
	assert.Equal(t, -1.0, SentimentNegative.Weight())
	assert.Equal(t, -2.0, SentimentUrgent.Weight())
}

func TestSentimentOpposes(t *testing.T) {
	assert.True(t, SentimentPositive.Opposes(SentimentNegative))
	assert.True(t, SentimentPositive.Opposes(SentimentUrgent))
	assert.True(t, SentimentUrgent.Opposes(SentimentPositive))
	assert.False(t, SentimentNeutral.Opposes(SentimentNegative))
	assert.False(t, SentimentNegative.Opposes(SentimentUrgent))
	assert.False(t, SentimentPositive.Opposes(SentimentPositive))
}

func TestNewObservationDefaults(t *testing.T) {
	o := NewObservation("agent-1", ObservationWeakness, SeverityHigh,
		Subject{Facility: "Detroit"}, "something is off")
	assert.NotEmpty(t, o.ID)
	assert.Equal(t, 0.8, o.Confidence)
	assert.False(t, o.Acknowledged)
	assert.False(t, o.Resolved)
	assert.WithinDuration(t, time.Now().UTC(), o.Timestamp, time.Minute)
}

func TestObservationConfidenceClamped(t *testing.T) {
	o := NewObservation("agent-1", ObservationWeakness, SeverityHigh, Subject{}, "x")
	assert.Equal(t, 0.0, o.WithConfidence(-0.5).Confidence)
	assert.Equal(t, 1.0, o.WithConfidence(1.7).Confidence)
	assert.Equal(t, 0.42, o.WithConfidence(0.42).Confidence)
}

func TestIsWeakness(t *testing.T) {
	mk := func(obsType ObservationType) Observation {
		return NewObservation("a", obsType, SeverityMedium, Subject{}, "x")
	}
	assert.True(t, mk(ObservationWeakness).IsWeakness())
	assert.True(t, mk(ObservationAnomaly).IsWeakness())
	assert.False(t, mk(ObservationStrength).IsWeakness())
	assert.False(t, mk(ObservationPattern).IsWeakness())
	assert.False(t, mk(ObservationTrend).IsWeakness())
	assert.False(t, mk(ObservationImprovement).IsWeakness())
}

func TestSortObservations(t *testing.T) {
	now := time.Now().UTC()
	mk := func(sev Severity, age time.Duration) Observation {
		o := NewObservation("a", ObservationWeakness, sev, Subject{}, string(sev))
		o.Timestamp = now.Add(-age)
		return o
	}

	obs := []Observation{
		mk(SeverityLow, 0),
		mk(SeverityCritical, 2*time.Hour),
		mk(SeverityCritical, time.Hour),
		mk(SeverityPositive, 0),
		mk(SeverityHigh, 0),
	}
	SortObservations(obs)

	assert.Equal(t, SeverityCritical, obs[0].Severity)
	assert.Equal(t, SeverityCritical, obs[1].Severity)
	// newer critical sorts first within the rank
	assert.True(t, obs[0].Timestamp.After(obs[1].Timestamp))
	assert.Equal(t, SeverityHigh, obs[2].Severity)
	assert.Equal(t, SeverityLow, obs[3].Severity)
	assert.Equal(t, SeverityPositive, obs[4].Severity)
}

func TestComputeHealthPerfectWhenEmpty(t *testing.T) {
	snap := ComputeHealth(nil, DefaultHealthWeights(), DefaultHealthThresholds())
	assert.Equal(t, 100.0, snap.Score)
	assert.Equal(t, HealthHealthy, snap.Status)
	assert.Zero(t, snap.Breakdown.Total())
}

func TestComputeHealthWeights(t *testing.T) {
	mk := func(obsType ObservationType, sev Severity) Observation {
		return NewObservation("a", obsType, sev, Subject{}, "x")
	}

	obs := []Observation{
		mk(ObservationWeakness, SeverityCritical), // -20
		mk(ObservationWeakness, SeverityHigh),     // -10
		mk(ObservationAnomaly, SeverityMedium),    // -3
		mk(ObservationWeakness, SeverityLow),      // -3
		mk(ObservationStrength, SeverityPositive), // ignored
		mk(ObservationPattern, SeverityCritical),  // ignored, not a weakness
	}
	snap := ComputeHealth(obs, DefaultHealthWeights(), DefaultHealthThresholds())
	assert.Equal(t, 64.0, snap.Score)
	assert.Equal(t, HealthDegraded, snap.Status)
	assert.Equal(t, 1, snap.Breakdown.Critical)
	assert.Equal(t, 1, snap.Breakdown.High)
	assert.Equal(t, 1, snap.Breakdown.Medium)
	assert.Equal(t, 1, snap.Breakdown.Low)
}

func TestComputeHealthClampsAtZero(t *testing.T) {
	var obs []Observation
	for i := 0; i < 10; i++ {
		obs = append(obs, NewObservation("a", ObservationWeakness, SeverityCritical, Subject{}, "x"))
	}
	snap := ComputeHealth(obs, DefaultHealthWeights(), DefaultHealthThresholds())
	assert.Equal(t, 0.0, snap.Score)
	assert.Equal(t, HealthCritical, snap.Status)
}

func TestComputeHealthMonotonicity(t *testing.T) {
	weights := DefaultHealthWeights()
	thresholds := DefaultHealthThresholds()

	obs := []Observation{
		NewObservation("a", ObservationWeakness, SeverityMedium, Subject{}, "x"),
	}
	before := ComputeHealth(obs, weights, thresholds).Score

	obs = append(obs, NewObservation("a", ObservationWeakness, SeverityHigh, Subject{}, "y"))
	after := ComputeHealth(obs, weights, thresholds).Score
	assert.Less(t, after, before)

	// adding a strength never lowers the score
	obs = append(obs, NewObservation("a", ObservationStrength, SeverityPositive, Subject{}, "z"))
	assert.Equal(t, after, ComputeHealth(obs, weights, thresholds).Score)
}

func TestComputeHealthByDomain(t *testing.T) {
	sec := NewObservation("a", ObservationWeakness, SeverityCritical, Subject{}, "x")
	sec.SourceRole = RoleSecurity
	life := NewObservation("a", ObservationWeakness, SeverityLow, Subject{}, "y")
	life.SourceRole = RoleLifecycle

	snap := ComputeHealth([]Observation{sec, life}, DefaultHealthWeights(), DefaultHealthThresholds())
	assert.Equal(t, 1, snap.ByDomain[RoleSecurity].Critical)
	assert.Equal(t, 1, snap.ByDomain[RoleLifecycle].Low)
}

func TestThreadAddParticipantUnique(t *testing.T) {
	th := Thread{ID: NewID()}
	th.AddParticipant("a")
	th.AddParticipant("b")
	th.AddParticipant("a")
	assert.Equal(t, []string{"a", "b"}, th.Participants)
}
