package agent

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/hupe1980/assetmesh/bus"
	"github.com/hupe1980/assetmesh/core"
)

const (
	// facility-level pattern thresholds
	criticalPatternCount = 3
	unitWeaknessPattern  = 5
)

// ErrObservationInProgress is returned when a round is requested while the
// facility is still observing. The state field is a reentrancy guard, not a
// lock; callers await completion before issuing another round.
var ErrObservationInProgress = errors.New("observation round already in progress")

// FacilityAgent owns one instance of each domain analyzer for a single site.
// It fans observation out to all sub-agents concurrently, aggregates their
// findings, computes the composite health score and detects cross-domain
// patterns. Sub-agents are spawned at construction and live as long as the
// facility agent.
type FacilityAgent struct {
	BaseAgent

	stateMu sync.Mutex
	state   string // idle | observing

	registry map[core.Role]DomainAgent
	order    []core.Role
}

// NewFacilityAgent constructs a facility agent and its five domain
// sub-agents, registering all of them on the bus.
func NewFacilityAgent(facility, facilityCode string, room *bus.BreakRoom, optFns ...func(o *Options)) *FacilityAgent {
	f := &FacilityAgent{
		BaseAgent: NewBaseAgent(facility+" Plant", core.RolePlant, facility, facilityCode, room, optFns...),
		state:     "idle",
		registry:  make(map[core.Role]DomainAgent),
	}

	subAgents := []DomainAgent{
		NewSecurityAgent(facility, facilityCode, room, optFns...),
		NewLifecycleAgent(facility, facilityCode, room, optFns...),
		NewGapAgent(facility, facilityCode, room, optFns...),
		NewRiskAgent(facility, facilityCode, room, optFns...),
		NewDependencyAgent(facility, facilityCode, room, optFns...),
	}
	for _, sub := range subAgents {
		role := sub.Info().Role
		f.registry[role] = sub
		f.order = append(f.order, role)
		room.RegisterAgent(sub)
	}
	room.RegisterAgent(f)

	f.setRelevantTopics(core.TopicGeneral)
	f.setAnswerHook(f.AnswerQuestion)
	f.setRoutes(RoutingTable{
		{Keywords: []string{"vulnerab", "security", "exposed", "patch", "auth"}, Handle: f.askSub(core.RoleSecurity)},
		{Keywords: []string{"lifecycle", "obsolete", "eol", "aging", "support"}, Handle: f.askSub(core.RoleLifecycle)},
		{Keywords: []string{"gap", "coverage", "blind", "orphan", "baseline"}, Handle: f.askSub(core.RoleGap)},
		{Keywords: []string{"risk"}, Handle: f.askSub(core.RoleRisk)},
		{Keywords: []string{"dependen", "spof", "single point", "blast", "redundan"}, Handle: f.askSub(core.RoleDependency)},
		{Keywords: []string{"health", "status", "overall"}, Handle: f.answerHealth},
	})
	return f
}

// SubAgent returns the registered analyzer for a role, or nil.
func (f *FacilityAgent) SubAgent(role core.Role) DomainAgent { return f.registry[role] }

// SubAgents returns the analyzers in registration order.
func (f *FacilityAgent) SubAgents() []DomainAgent {
	out := make([]DomainAgent, 0, len(f.order))
	for _, role := range f.order {
		out = append(out, f.registry[role])
	}
	return out
}

// State reports idle or observing.
func (f *FacilityAgent) State() string {
	f.stateMu.Lock()
	defer f.stateMu.Unlock()
	return f.state
}

// UpdateContext propagates the shared asset context to every sub-agent.
func (f *FacilityAgent) UpdateContext(assetCtx *core.AssetContext) {
	f.BaseAgent.UpdateContext(assetCtx)
	for _, role := range f.order {
		f.registry[role].UpdateContext(assetCtx)
	}
}

// Observe fans out to every sub-agent concurrently, waits for all of them,
// aggregates the findings, detects cross-domain patterns and publishes a
// facility summary to the bus. A failing sub-agent contributes an empty set;
// the round never aborts.
func (f *FacilityAgent) Observe(ctx context.Context) ([]core.Observation, error) {
	f.stateMu.Lock()
	if f.state == "observing" {
		f.stateMu.Unlock()
		return nil, ErrObservationInProgress
	}
	f.state = "observing"
	f.stateMu.Unlock()
	defer func() {
		f.stateMu.Lock()
		f.state = "idle"
		f.stateMu.Unlock()
	}()

	results := make([][]core.Observation, len(f.order))
	var wg sync.WaitGroup
	for i, role := range f.order {
		wg.Add(1)
		go func(i int, sub DomainAgent) {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					f.logger.Error("sub-agent failed, contributing empty set",
						"agent", sub.Info().Name, "panic", r)
					results[i] = nil
				}
			}()
			results[i] = sub.Observe(ctx)
		}(i, f.registry[role])
	}
	wg.Wait()

	aggregated := f.aggregateFindings(results)
	aggregated = append(aggregated, f.generatePlantObservations(aggregated)...)
	f.SetObservations(aggregated)

	health := f.PlantHealth()
	f.Speak(SpeakParams{
		Type:      core.MessageSummary,
		Topic:     core.TopicGeneral,
		Sentiment: summarySentiment(health),
		Content: fmt.Sprintf("%s round complete: %d findings (%d critical, %d high), health %.0f (%s)",
			f.Info().Facility, len(aggregated), health.Breakdown.Critical, health.Breakdown.High, health.Score, health.Status),
		Metadata: map[string]string{
			"critical":     fmt.Sprintf("%d", health.Breakdown.Critical),
			"high":         fmt.Sprintf("%d", health.Breakdown.High),
			"health_score": fmt.Sprintf("%.0f", health.Score),
		},
	})

	return aggregated, nil
}

// aggregateFindings tags each sub-observation with its source agent role and
// sorts the combined set by severity then recency.
func (f *FacilityAgent) aggregateFindings(results [][]core.Observation) []core.Observation {
	var aggregated []core.Observation
	for i, role := range f.order {
		for _, o := range results[i] {
			o.SourceRole = role
			aggregated = append(aggregated, o)
		}
	}
	core.SortObservations(aggregated)
	return aggregated
}

// generatePlantObservations runs cross-agent pattern detection over the
// aggregated set.
func (f *FacilityAgent) generatePlantObservations(aggregated []core.Observation) []core.Observation {
	info := f.Info()
	subject := core.Subject{Facility: info.Facility}
	var patterns []core.Observation

	criticals := 0
	strengths := 0
	weaknesses := 0
	byUnit := make(map[string]int)
	for _, o := range aggregated {
		if o.Severity == core.SeverityCritical {
			criticals++
		}
		switch {
		case o.Type == core.ObservationStrength:
			strengths++
		case o.IsWeakness():
			weaknesses++
			if o.Subject.Unit != "" {
				byUnit[o.Subject.Unit]++
			}
		}
	}

	if criticals > criticalPatternCount {
		patterns = append(patterns, core.NewObservation(info.ID, core.ObservationPattern, core.SeverityCritical, subject,
			fmt.Sprintf("%d critical findings across domains indicate a facility-wide problem", criticals)).
			WithConfidence(0.9).
			WithRecommendations("Convene a cross-domain review before the next operating cycle"))
	}
	for unit, count := range byUnit {
		if count > unitWeaknessPattern {
			patterns = append(patterns, core.NewObservation(info.ID, core.ObservationPattern, core.SeverityHigh,
				core.Subject{Facility: info.Facility, Unit: unit},
				fmt.Sprintf("Unit %s accumulates %d weaknesses across domains", unit, count)).
				WithConfidence(0.85).
				WithRecommendations(fmt.Sprintf("Audit unit %s holistically", unit)))
		}
	}
	if strengths > weaknesses && strengths > 0 {
		patterns = append(patterns, core.NewObservation(info.ID, core.ObservationStrength, core.SeverityPositive, subject,
			fmt.Sprintf("Strengths outnumber weaknesses (%d vs %d) this round", strengths, weaknesses)).
			WithConfidence(0.8))
	}
	return patterns
}

func (f *FacilityAgent) askSub(role core.Role) func(string) string {
	return func(question string) string {
		sub := f.registry[role]
		if sub == nil {
			return "No analyzer registered for that domain."
		}
		return sub.AnswerQuestion(context.Background(), question).Content
	}
}

func (f *FacilityAgent) answerHealth(string) string {
	health := f.PlantHealth()
	return fmt.Sprintf("%s health is %.0f (%s): %d critical, %d high, %d other findings.",
		f.Info().Facility, health.Score, health.Status,
		health.Breakdown.Critical, health.Breakdown.High, health.Breakdown.Medium+health.Breakdown.Low)
}

// AnswerQuestion dispatches to the matching sub-agent by keyword before
// falling back to the facility's own summary.
func (f *FacilityAgent) AnswerQuestion(ctx context.Context, question string) Answer {
	if content, ok := f.routes.Match(question); ok {
		return Answer{Content: content, Confidence: 0.7, Source: "rules"}
	}
	return Answer{Content: f.answerHealth(question), Confidence: 0.6, Source: "rules"}
}

func summarySentiment(health core.HealthSnapshot) core.Sentiment {
	switch health.Status {
	case core.HealthHealthy:
		return core.SentimentPositive
	case core.HealthCritical:
		return core.SentimentUrgent
	default:
		return core.SentimentNegative
	}
}
