package agent

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/hupe1980/assetmesh/bus"
	"github.com/hupe1980/assetmesh/core"
)

// Escalation promotes a critical observation to the registered callbacks.
type Escalation struct {
	Type        string           `json:"type"` // "critical_finding"
	Finding     core.Observation `json:"finding"`
	Timestamp   time.Time        `json:"timestamp"`
	Source      string           `json:"source"`
	Facility    string           `json:"facility"`
	Description string           `json:"description"`
}

// EscalationCallback receives escalations. Callbacks run synchronously on
// the round path; panics are absorbed.
type EscalationCallback func(esc Escalation)

// CoordinatorOptions extend the base agent options with the coordination
// windows.
type CoordinatorOptions struct {
	Options

	// EscalationWindow deduplicates escalations of the same observation id.
	EscalationWindow time.Duration
	// ConflictWindow bounds how far back opposing-sentiment messages are
	// matched.
	ConflictWindow time.Duration
	// SentimentThreshold sets the cut points for the executive summary's
	// sentiment label; zero means the bus default of 0.3.
	SentimentThreshold float64
}

// RoundResult summarizes one enterprise observation round.
type RoundResult struct {
	RoundID     string                         `json:"round_id"`
	StartedAt   time.Time                      `json:"started_at"`
	Facilities  int                            `json:"facilities"`
	Findings    int                            `json:"findings"`
	Criticals   int                            `json:"criticals"`
	Escalations int                            `json:"escalations"`
	ByFacility  map[string]core.HealthSnapshot `json:"by_facility"`
}

// CoordinatorAgent orchestrates all facility agents enterprise-wide: it runs
// synchronized observation rounds, escalates new critical findings, detects
// sentiment conflicts on the bus and produces executive summaries.
type CoordinatorAgent struct {
	BaseAgent

	escalationWindow   time.Duration
	conflictWindow     time.Duration
	sentimentThreshold float64

	facMu      sync.Mutex
	facilities map[string]*FacilityAgent
	facOrder   []string
	escalated  map[string]time.Time
	callbacks  []EscalationCallback
	rounds     int
}

// NewCoordinatorAgent constructs the enterprise coordinator and registers it
// on the bus so it hears every post.
func NewCoordinatorAgent(room *bus.BreakRoom, optFns ...func(o *CoordinatorOptions)) *CoordinatorAgent {
	opts := CoordinatorOptions{
		Options:          defaultOptions(),
		EscalationWindow: time.Hour,
		ConflictWindow:   time.Hour,
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	c := &CoordinatorAgent{
		BaseAgent: NewBaseAgent("Enterprise Coordinator", core.RoleCoordinator, "", "", room, func(o *Options) {
			*o = opts.Options
		}),
		escalationWindow:   opts.EscalationWindow,
		conflictWindow:     opts.ConflictWindow,
		sentimentThreshold: opts.SentimentThreshold,
		facilities:         make(map[string]*FacilityAgent),
		escalated:          make(map[string]time.Time),
	}
	room.RegisterAgent(c)
	return c
}

// RegisterFacility adds a facility agent to the coordination set.
func (c *CoordinatorAgent) RegisterFacility(f *FacilityAgent) {
	c.facMu.Lock()
	defer c.facMu.Unlock()
	code := f.Info().FacilityCode
	if _, ok := c.facilities[code]; !ok {
		c.facOrder = append(c.facOrder, code)
	}
	c.facilities[code] = f
}

// Facilities returns the registered facility agents in registration order.
func (c *CoordinatorAgent) Facilities() []*FacilityAgent {
	c.facMu.Lock()
	defer c.facMu.Unlock()
	out := make([]*FacilityAgent, 0, len(c.facOrder))
	for _, code := range c.facOrder {
		out = append(out, c.facilities[code])
	}
	return out
}

// Facility returns one facility agent by code, or nil.
func (c *CoordinatorAgent) Facility(code string) *FacilityAgent {
	c.facMu.Lock()
	defer c.facMu.Unlock()
	return c.facilities[code]
}

// OnEscalation registers a callback for critical findings.
func (c *CoordinatorAgent) OnEscalation(cb EscalationCallback) {
	c.facMu.Lock()
	defer c.facMu.Unlock()
	c.callbacks = append(c.callbacks, cb)
}

// StartObservationRound announces the round, fans observation out to every
// facility concurrently (errors isolated per facility), escalates new
// critical findings and emits a round summary listing top issues and
// strengths.
func (c *CoordinatorAgent) StartObservationRound(ctx context.Context) (RoundResult, error) {
	c.facMu.Lock()
	c.rounds++
	round := c.rounds
	facilities := make([]*FacilityAgent, 0, len(c.facOrder))
	for _, code := range c.facOrder {
		facilities = append(facilities, c.facilities[code])
	}
	c.facMu.Unlock()

	result := RoundResult{
		RoundID:    core.NewID(),
		StartedAt:  time.Now().UTC(),
		Facilities: len(facilities),
		ByFacility: make(map[string]core.HealthSnapshot),
	}

	c.Speak(SpeakParams{
		Type:    core.MessageAlert,
		Topic:   core.TopicGeneral,
		Content: fmt.Sprintf("Observation round %d starting across %d facilities", round, len(facilities)),
	})

	results := make([][]core.Observation, len(facilities))
	var wg sync.WaitGroup
	for i, f := range facilities {
		wg.Add(1)
		go func(i int, f *FacilityAgent) {
			defer wg.Done()
			obs, err := f.Observe(ctx)
			if err != nil {
				c.logger.Error("facility round failed, contributing empty set",
					"facility", f.Info().Facility, "error", err.Error())
				return
			}
			results[i] = obs
		}(i, f)
	}
	wg.Wait()

	var all []core.Observation
	for i, f := range facilities {
		all = append(all, results[i]...)
		result.Findings += len(results[i])
		result.ByFacility[f.Info().FacilityCode] = f.PlantHealth()
	}

	result.Escalations = c.checkEscalations(all)
	for _, o := range all {
		if o.Severity == core.SeverityCritical {
			result.Criticals++
		}
	}

	c.speakRoundSummary(round, all, result)
	return result, nil
}

// checkEscalations escalates every critical weakness not already escalated
// within the dedup window, keyed by observation id. Returns the number of
// escalations fired.
func (c *CoordinatorAgent) checkEscalations(observations []core.Observation) int {
	now := time.Now().UTC()

	c.facMu.Lock()
	callbacks := append([]EscalationCallback(nil), c.callbacks...)
	var fresh []core.Observation
	for _, o := range observations {
		if o.Severity != core.SeverityCritical || !o.IsWeakness() && o.Type != core.ObservationPattern {
			continue
		}
		if last, ok := c.escalated[o.ID]; ok && now.Sub(last) < c.escalationWindow {
			continue
		}
		c.escalated[o.ID] = now
		fresh = append(fresh, o)
	}
	c.facMu.Unlock()

	for _, o := range fresh {
		esc := Escalation{
			Type:        "critical_finding",
			Finding:     o,
			Timestamp:   now,
			Source:      string(o.SourceRole),
			Facility:    o.Subject.Facility,
			Description: o.Description,
		}
		for _, cb := range callbacks {
			c.fireCallback(cb, esc)
		}
	}
	return len(fresh)
}

func (c *CoordinatorAgent) fireCallback(cb EscalationCallback, esc Escalation) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("escalation callback panicked", "observation", esc.Finding.ID, "panic", r)
		}
	}()
	cb(esc)
}

func (c *CoordinatorAgent) speakRoundSummary(round int, all []core.Observation, result RoundResult) {
	core.SortObservations(all)

	var topIssues, topStrengths []string
	for _, o := range all {
		if (o.Severity == core.SeverityCritical || o.Severity == core.SeverityHigh) && len(topIssues) < 3 {
			topIssues = append(topIssues, fmt.Sprintf("%s: %s", o.Subject.Facility, o.Description))
		}
		if o.Type == core.ObservationStrength && len(topStrengths) < 3 {
			topStrengths = append(topStrengths, fmt.Sprintf("%s: %s", o.Subject.Facility, o.Description))
		}
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Round %d complete: %d findings across %d facilities, %d critical, %d escalated.",
		round, result.Findings, result.Facilities, result.Criticals, result.Escalations)
	if len(topIssues) > 0 {
		sb.WriteString(" Top issues: " + strings.Join(topIssues, "; ") + ".")
	}
	if len(topStrengths) > 0 {
		sb.WriteString(" Strengths: " + strings.Join(topStrengths, "; ") + ".")
	}

	sentiment := core.SentimentNeutral
	if result.Criticals > 0 {
		sentiment = core.SentimentNegative
	}
	c.Speak(SpeakParams{
		Type:      core.MessageSummary,
		Topic:     core.TopicGeneral,
		Sentiment: sentiment,
		Content:   sb.String(),
		Metadata: map[string]string{
			"round":     fmt.Sprintf("%d", round),
			"criticals": fmt.Sprintf("%d", result.Criticals),
		},
	})
}

// Listen is the coordinator's bus hook. It acknowledges and escalates
// critical critiques, answers broadcast questions with a per-facility
// aggregate, and posts a clarifying question when a new message's sentiment
// opposes a recent same-topic, same-facility message.
func (c *CoordinatorAgent) Listen(msg core.Message) {
	info := c.Info()
	if msg.AgentID == info.ID || msg.AgentID == "system" {
		return
	}

	if msg.Type == core.MessageCritique && msg.Sentiment == core.SentimentUrgent {
		c.handleCriticalCritique(msg)
		return
	}
	if msg.Type == core.MessageQuestion && msg.Metadata[MetadataTo] == "all" {
		c.routeBroadcastQuestion(msg)
		return
	}
	c.detectConflict(msg)
}

// handleCriticalCritique acknowledges the referenced observation and
// escalates it through the regular dedup path.
func (c *CoordinatorAgent) handleCriticalCritique(msg core.Message) {
	obsID := msg.Metadata[bus.MetadataObservationID]
	if obsID == "" {
		return
	}
	c.Room().AcknowledgeObservation(obsID)

	for _, o := range c.Room().GetObservations(bus.ObservationFilter{}) {
		if o.ID == obsID {
			if n := c.checkEscalations([]core.Observation{o}); n > 0 {
				c.Speak(SpeakParams{
					Type:      core.MessageResponse,
					Topic:     msg.Topic,
					Content:   fmt.Sprintf("Acknowledged and escalated: %s", o.Description),
					ReplyTo:   msg.ID,
					Sentiment: core.SentimentNeutral,
				})
			}
			return
		}
	}
}

// routeBroadcastQuestion gathers per-facility answers and posts one
// aggregated response into the question's thread.
func (c *CoordinatorAgent) routeBroadcastQuestion(msg core.Message) {
	facilities := c.Facilities()
	if len(facilities) == 0 {
		return
	}
	var parts []string
	for _, f := range facilities {
		answer := f.AnswerQuestion(context.Background(), msg.Content)
		parts = append(parts, fmt.Sprintf("%s: %s", f.Info().Facility, answer.Content))
	}
	c.Speak(SpeakParams{
		Type:    core.MessageResponse,
		Topic:   msg.Topic,
		Content: strings.Join(parts, " | "),
		ReplyTo: msg.ID,
	})
}

// detectConflict looks back over the conflict window for a same-topic,
// same-facility message whose sentiment opposes the new one and posts a
// clarifying question naming both authors.
func (c *CoordinatorAgent) detectConflict(msg core.Message) {
	if msg.Sentiment == core.SentimentNeutral {
		return
	}
	switch msg.Type {
	case core.MessageQuestion, core.MessageResponse, core.MessageSummary, core.MessageAlert:
		return
	}

	since := msg.Timestamp.Add(-c.conflictWindow)
	recent := c.Room().GetMessages(bus.MessageFilter{Topic: msg.Topic, Since: since})
	for _, prior := range recent {
		if prior.ID == msg.ID || prior.AgentID == msg.AgentID || prior.AgentID == c.Info().ID {
			continue
		}
		if prior.Metadata[MetadataFacility] != msg.Metadata[MetadataFacility] {
			continue
		}
		if !msg.Sentiment.Opposes(prior.Sentiment) {
			continue
		}
		c.Speak(SpeakParams{
			Type:  core.MessageQuestion,
			Topic: msg.Topic,
			Content: fmt.Sprintf("%s and %s report opposing views on %s for this facility; can you reconcile?",
				prior.AgentName, msg.AgentName, msg.Topic),
			ReplyTo: msg.ID,
			Metadata: map[string]string{
				MetadataTo: "none", // clarifying question, answered by humans
			},
		})
		return
	}
}

// FacilityHealth pairs a facility with its current health snapshot.
type FacilityHealth struct {
	Facility string              `json:"facility"`
	Code     string              `json:"code"`
	Health   core.HealthSnapshot `json:"health"`
}

// OverallHealth rolls all facilities into one enterprise score.
type OverallHealth struct {
	Score  float64           `json:"score"`
	Status core.HealthStatus `json:"status"`
}

// ExecutiveSummary combines the bus digest with the per-facility health
// breakdown and a fixed set of takeaways.
type ExecutiveSummary struct {
	GeneratedAt time.Time        `json:"generated_at"`
	BusSummary  bus.Summary      `json:"bus_summary"`
	Facilities  []FacilityHealth `json:"facilities"` // sorted worst first
	Overall     OverallHealth    `json:"overall_health"`
	Takeaways   []string         `json:"takeaways"`
}

// GenerateExecutiveSummary builds the enterprise view over the given time
// range. The overall score is the rounded mean of facility scores; the
// status escalates to critical if any facility is critical, else to
// needs_attention if any facility is degraded or the mean is below 70.
func (c *CoordinatorAgent) GenerateExecutiveSummary(since time.Time) ExecutiveSummary {
	facilities := c.Facilities()

	summary := ExecutiveSummary{
		GeneratedAt: time.Now().UTC(),
		BusSummary:  c.Room().Summarize(since, "", c.sentimentThreshold),
	}

	var mean float64
	anyCritical, anyDegraded := false, false
	for _, f := range facilities {
		info := f.Info()
		health := f.PlantHealth()
		summary.Facilities = append(summary.Facilities, FacilityHealth{
			Facility: info.Facility,
			Code:     info.FacilityCode,
			Health:   health,
		})
		mean += health.Score
		if health.Status == core.HealthCritical {
			anyCritical = true
		}
		if health.Status == core.HealthDegraded {
			anyDegraded = true
		}
	}
	if len(facilities) > 0 {
		mean /= float64(len(facilities))
	} else {
		mean = 100
	}
	sort.SliceStable(summary.Facilities, func(i, j int) bool {
		return summary.Facilities[i].Health.Score < summary.Facilities[j].Health.Score
	})

	summary.Overall = OverallHealth{Score: math.Round(mean)}
	switch {
	case anyCritical:
		summary.Overall.Status = core.HealthCritical
	case anyDegraded || mean < 70:
		summary.Overall.Status = core.HealthNeedsAttention
	default:
		summary.Overall.Status = core.HealthHealthy
	}

	summary.Takeaways = c.takeaways(summary)
	return summary
}

func (c *CoordinatorAgent) takeaways(summary ExecutiveSummary) []string {
	var takeaways []string

	criticals := summary.BusSummary.BySeverity[core.SeverityCritical]
	if criticals > 0 {
		takeaways = append(takeaways, fmt.Sprintf("%d critical findings require attention", criticals))
	} else {
		takeaways = append(takeaways, "No critical findings this period")
	}

	if len(summary.Facilities) > 0 {
		worst := summary.Facilities[0]
		takeaways = append(takeaways, fmt.Sprintf("%s is the weakest facility at %.0f (%s)",
			worst.Facility, worst.Health.Score, worst.Health.Status))
	}

	strengths := summary.BusSummary.BySeverity[core.SeverityPositive]
	weaknesses := summary.BusSummary.ObservationCount - strengths - summary.BusSummary.BySeverity[core.SeverityInfo]
	if strengths >= weaknesses {
		takeaways = append(takeaways, "Strengths balance or outweigh weaknesses")
	} else {
		takeaways = append(takeaways, fmt.Sprintf("Weaknesses outnumber strengths %d to %d", weaknesses, strengths))
	}

	takeaways = append(takeaways, fmt.Sprintf("%d agents active on the bus", len(c.Room().Agents())))

	if len(summary.BusSummary.Recommendations) > 0 {
		takeaways = append(takeaways, "Top recommendation: "+summary.BusSummary.Recommendations[0])
	}
	return takeaways
}
