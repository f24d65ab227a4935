package core

import (
	"github.com/google/uuid"
)

// Role identifies the kind of agent authoring a message or observation.
// Fixed at construction time.
type Role string

const (
	// RolePlant is a facility-level aggregation agent.
	RolePlant Role = "plant"
	// RoleSecurity analyzes vulnerability exposure and access configuration.
	RoleSecurity Role = "security"
	// RoleLifecycle analyzes equipment age and support status.
	RoleLifecycle Role = "lifecycle"
	// RoleGap analyzes coverage against baseline and industry templates.
	RoleGap Role = "gap"
	// RoleRisk analyzes risk scoring and concentration.
	RoleRisk Role = "risk"
	// RoleDependency analyzes controller fan-out and failure propagation.
	RoleDependency Role = "dependency"
	// RoleCoordinator orchestrates facility agents enterprise-wide.
	RoleCoordinator Role = "coordinator"
)

// MessageType categorizes bus messages.
type MessageType string

const (
	MessageObservation MessageType = "observation"
	MessageCompliment  MessageType = "compliment"
	MessageCritique    MessageType = "critique"
	MessageSuggestion  MessageType = "suggestion"
	MessageQuestion    MessageType = "question"
	MessageResponse    MessageType = "response"
	MessageAlert       MessageType = "alert"
	MessageSummary     MessageType = "summary"
)

// Topic is the subject domain of a message or thread.
type Topic string

const (
	TopicVulnerability Topic = "vulnerability"
	TopicLifecycle     Topic = "lifecycle"
	TopicGap           Topic = "gap"
	TopicRisk          Topic = "risk"
	TopicDependency    Topic = "dependency"
	TopicCoverage      Topic = "coverage"
	TopicCompliance    Topic = "compliance"
	TopicGeneral       Topic = "general"
)

// Sentiment expresses the tone a message carries. It feeds the bounded
// sentiment score computed by the bus summary.
type Sentiment string

const (
	SentimentPositive Sentiment = "positive"
	SentimentNeutral  Sentiment = "neutral"
	SentimentNegative Sentiment = "negative"
	SentimentUrgent   Sentiment = "urgent"
)

// Weight returns the contribution of this sentiment to a summary score.
func (s Sentiment) Weight() float64 {
	switch s {
	case SentimentPositive:
		return 1
	case SentimentNegative:
		return -1
	case SentimentUrgent:
		return -2
	default:
		return 0
	}
}

// Opposes reports whether two sentiments point in conflicting directions.
// Neutral never conflicts.
func (s Sentiment) Opposes(other Sentiment) bool {
	negative := func(x Sentiment) bool { return x == SentimentNegative || x == SentimentUrgent }
	return (s == SentimentPositive && negative(other)) || (negative(s) && other == SentimentPositive)
}

// Severity ranks observations. The order is a strict total order used for
// sorting: critical sorts first, positive and info share the last rank.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
	SeverityPositive Severity = "positive"
	SeverityInfo     Severity = "info"
)

// Rank returns the sort position of the severity, lowest first.
func (s Severity) Rank() int {
	switch s {
	case SeverityCritical:
		return 0
	case SeverityHigh:
		return 1
	case SeverityMedium:
		return 2
	case SeverityLow:
		return 3
	default: // positive, info
		return 4
	}
}

// Valid reports whether the severity is one of the six defined values.
func (s Severity) Valid() bool {
	switch s {
	case SeverityCritical, SeverityHigh, SeverityMedium, SeverityLow, SeverityPositive, SeverityInfo:
		return true
	}
	return false
}

// ObservationType categorizes what kind of finding an observation represents.
type ObservationType string

const (
	ObservationWeakness    ObservationType = "weakness"
	ObservationStrength    ObservationType = "strength"
	ObservationAnomaly     ObservationType = "anomaly"
	ObservationImprovement ObservationType = "improvement"
	ObservationPattern     ObservationType = "pattern"
	ObservationTrend       ObservationType = "trend"
)

// HealthStatus labels a computed health score.
type HealthStatus string

const (
	HealthHealthy        HealthStatus = "healthy"
	HealthDegraded       HealthStatus = "degraded"
	HealthCritical       HealthStatus = "critical"
	HealthNeedsAttention HealthStatus = "needs_attention"
)

// NewID generates a unique identifier for messages, threads, observations
// and agents.
func NewID() string { return uuid.NewString() }
