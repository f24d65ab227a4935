package agent

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/hupe1980/assetmesh/bus"
	"github.com/hupe1980/assetmesh/core"
	"github.com/hupe1980/assetmesh/logging"
	"github.com/hupe1980/assetmesh/model"
)

// MetadataTo addresses a question to an agent id, a role, or "all".
const MetadataTo = "to"

// MetadataFacility tags a message with the author's facility code.
const MetadataFacility = bus.MetadataFacility

// DomainAgent is the contract a specialized analyzer fulfills. Observe scans
// the agent's slice of the shared context and replaces the agent's prior
// observation set; RelevantTopics drives which bus traffic triggers the
// agent's reaction hook.
type DomainAgent interface {
	bus.Listener
	Observe(ctx context.Context) []core.Observation
	RelevantTopics() []core.Topic
	Observations() []core.Observation
	UpdateContext(assetCtx *core.AssetContext)
	AnswerQuestion(ctx context.Context, question string) Answer
}

// Answer is the outcome of a reasoning request.
type Answer struct {
	Content    string  `json:"content"`
	Confidence float64 `json:"confidence"`
	Source     string  `json:"source"` // "provider", "rules"
}

// SpeakParams describe a message the agent wants to post.
type SpeakParams struct {
	Type      core.MessageType
	Topic     core.Topic
	Sentiment core.Sentiment
	Content   string
	Evidence  []core.Evidence
	ReplyTo   string
	Metadata  map[string]string
}

// Options configures a BaseAgent.
type Options struct {
	Provider   model.Provider // nil means rule-based reasoning only
	Logger     logging.Logger
	Weights    core.HealthWeights
	Thresholds core.HealthThresholds
	Settings   core.Settings
}

func defaultOptions() Options {
	return Options{
		Logger:     logging.NoOpLogger{},
		Weights:    core.DefaultHealthWeights(),
		Thresholds: core.DefaultHealthThresholds(),
		Settings:   core.Settings{AutoRespond: true, PostLimit: 3},
	}
}

// BaseAgent bundles the behavior every agent shares: identity, the bus
// handle, the pluggable reasoning provider with its rule-based fallback, the
// current observation set and the read projections the tool server exposes.
// Embed it in concrete agent implementations. All exported methods are
// goroutine-safe.
type BaseAgent struct {
	mu   sync.Mutex
	info core.AgentInfo

	room       *bus.BreakRoom
	provider   model.Provider
	logger     logging.Logger
	weights    core.HealthWeights
	thresholds core.HealthThresholds

	assetCtx     *core.AssetContext
	observations []core.Observation

	relevant []core.Topic
	routes   RoutingTable
	// react is the domain-specific reaction hook invoked for relevant
	// non-question traffic. Optional.
	react func(msg core.Message)
	// answer resolves questions heard on the bus. Embedding cannot
	// dispatch to an overridden method, so agents that override
	// AnswerQuestion install it here; nil means the base implementation.
	answer func(ctx context.Context, question string) Answer
}

// NewBaseAgent constructs a BaseAgent bound to a bus. Facility may be empty
// for enterprise-level agents.
func NewBaseAgent(name string, role core.Role, facility, facilityCode string, room *bus.BreakRoom, optFns ...func(o *Options)) BaseAgent {
	opts := defaultOptions()
	for _, fn := range optFns {
		fn(&opts)
	}
	return BaseAgent{
		info: core.AgentInfo{
			ID:           core.NewID(),
			Name:         name,
			Role:         role,
			Facility:     facility,
			FacilityCode: facilityCode,
			Settings:     opts.Settings,
		},
		room:       room,
		provider:   opts.Provider,
		logger:     opts.Logger,
		weights:    opts.Weights,
		thresholds: opts.Thresholds,
	}
}

// Info returns the agent's immutable identity.
func (b *BaseAgent) Info() core.AgentInfo {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.info
}

// Room returns the bus handle the agent was constructed with.
func (b *BaseAgent) Room() *bus.BreakRoom { return b.room }

// UpdateContext replaces the shared asset context the agent analyzes. The
// context is consumed read-only.
func (b *BaseAgent) UpdateContext(assetCtx *core.AssetContext) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.assetCtx = assetCtx
}

// Context returns the current asset context, possibly nil.
func (b *BaseAgent) Context() *core.AssetContext {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.assetCtx
}

// RelevantTopics returns the bus topics this agent reacts to.
func (b *BaseAgent) RelevantTopics() []core.Topic {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]core.Topic(nil), b.relevant...)
}

func (b *BaseAgent) setRelevantTopics(topics ...core.Topic) { b.relevant = topics }

func (b *BaseAgent) setRoutes(routes RoutingTable) { b.routes = routes }

func (b *BaseAgent) setReactHook(hook func(msg core.Message)) { b.react = hook }

func (b *BaseAgent) setAnswerHook(hook func(ctx context.Context, question string) Answer) {
	b.answer = hook
}

// SetObservations replaces the agent's observation set; a fresh observe pass
// discards the prior set entirely.
func (b *BaseAgent) SetObservations(obs []core.Observation) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.observations = obs
}

// Observations returns a copy of the current observation set.
func (b *BaseAgent) Observations() []core.Observation {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]core.Observation(nil), b.observations...)
}

// Speak constructs and posts a message tagged with this agent's identity.
// The stored message is returned.
func (b *BaseAgent) Speak(params SpeakParams) core.Message {
	info := b.Info()
	msg := core.NewMessage(info, params.Type, params.Topic, params.Content)
	if params.Sentiment != "" {
		msg.Sentiment = params.Sentiment
	}
	msg.Evidence = params.Evidence
	msg.ReplyTo = params.ReplyTo
	msg.Metadata = params.Metadata
	if info.FacilityCode != "" {
		if msg.Metadata == nil {
			msg.Metadata = make(map[string]string)
		}
		if _, ok := msg.Metadata[MetadataFacility]; !ok {
			msg.Metadata[MetadataFacility] = info.FacilityCode
		}
	}
	return b.room.Post(msg)
}

// Listen handles a broadcast message. Self-authored messages are ignored. A
// directed or broadcast question matching this agent triggers an automatic
// response when auto-respond is enabled; other traffic on a relevant topic
// triggers the domain reaction hook.
func (b *BaseAgent) Listen(msg core.Message) {
	info := b.Info()
	if msg.AgentID == info.ID {
		return
	}

	if msg.Type == core.MessageQuestion && b.addressedTo(msg, info) {
		if info.Settings.AutoRespond {
			b.mu.Lock()
			respond := b.answer
			b.mu.Unlock()
			if respond == nil {
				respond = b.AnswerQuestion
			}
			answer := respond(context.Background(), msg.Content)
			b.Speak(SpeakParams{
				Type:    core.MessageResponse,
				Topic:   msg.Topic,
				Content: answer.Content,
				ReplyTo: msg.ID,
				Metadata: map[string]string{
					"confidence": fmt.Sprintf("%.2f", answer.Confidence),
					"source":     answer.Source,
				},
			})
		}
		return
	}

	for _, t := range b.RelevantTopics() {
		if msg.Topic == t {
			b.mu.Lock()
			hook := b.react
			b.mu.Unlock()
			if hook != nil {
				hook(msg)
			}
			return
		}
	}
}

func (b *BaseAgent) addressedTo(msg core.Message, info core.AgentInfo) bool {
	to := msg.Metadata[MetadataTo]
	switch to {
	case "", "all":
		return true
	case info.ID, string(info.Role), info.Name:
		return true
	}
	return false
}

// Reason produces an answer for a prompt, delegating to the configured
// reasoning provider when present. Provider errors silently downgrade to the
// rule-based path; confidence is fixed at 0.9 for provider-backed answers
// and 0.5-0.7 for rule-based ones.
func (b *BaseAgent) Reason(ctx context.Context, prompt, contextText string) Answer {
	b.mu.Lock()
	provider := b.provider
	b.mu.Unlock()

	if provider != nil {
		start := time.Now()
		resp, err := provider.Chat(ctx, model.Request{
			Messages: []model.ChatMessage{
				{Role: "system", Content: "You are " + b.Info().Name + ", an operational-technology asset analyst. Answer concisely from the provided findings."},
				{Role: "user", Content: prompt + "\n\nFindings:\n" + contextText},
			},
		})
		if err == nil {
			b.logger.Debug("provider answer", "agent", b.Info().Name, "duration", time.Since(start))
			return Answer{Content: resp.Content, Confidence: 0.9, Source: "provider"}
		}
		b.logger.Warn("provider failed, using rules", "agent", b.Info().Name, "error", err.Error())
	}
	return b.ruleReason(prompt)
}

// ruleReason answers from the agent's own observation history by keyword
// match over descriptions.
func (b *BaseAgent) ruleReason(prompt string) Answer {
	needle := strings.ToLower(prompt)
	var hits []string
	for _, o := range b.Observations() {
		for _, word := range strings.Fields(needle) {
			if len(word) < 4 {
				continue
			}
			if strings.Contains(strings.ToLower(o.Description), word) {
				hits = append(hits, fmt.Sprintf("[%s] %s", o.Severity, o.Description))
				break
			}
		}
	}
	if len(hits) > 0 {
		if len(hits) > 3 {
			hits = hits[:3]
		}
		return Answer{Content: strings.Join(hits, " "), Confidence: 0.7, Source: "rules"}
	}
	return Answer{
		Content:    fmt.Sprintf("%s has no findings matching that question in the current round.", b.Info().Name),
		Confidence: 0.5,
		Source:     "rules",
	}
}

// AnswerQuestion routes the question through the agent's keyword table
// first, then falls back to the base reasoning path.
func (b *BaseAgent) AnswerQuestion(ctx context.Context, question string) Answer {
	b.mu.Lock()
	routes := b.routes
	b.mu.Unlock()
	if content, ok := routes.Match(question); ok {
		return Answer{Content: content, Confidence: 0.7, Source: "rules"}
	}
	return b.Reason(ctx, question, b.describeObservations())
}

func (b *BaseAgent) describeObservations() string {
	obs := b.Observations()
	if len(obs) == 0 {
		return "no findings"
	}
	var sb strings.Builder
	for i, o := range obs {
		if i == 10 {
			break
		}
		fmt.Fprintf(&sb, "- [%s/%s] %s\n", o.Severity, o.Type, o.Description)
	}
	return sb.String()
}

// Suggest derives prioritized recommendations from the current weakness and
// anomaly observations, optionally appending one provider-enhanced
// suggestion.
func (b *BaseAgent) Suggest(ctx context.Context) []string {
	obs := b.Observations()
	core.SortObservations(obs)

	var suggestions []string
	seen := make(map[string]bool)
	for _, o := range obs {
		if !o.IsWeakness() {
			continue
		}
		for _, rec := range o.Recommendations {
			if !seen[rec] {
				seen[rec] = true
				suggestions = append(suggestions, rec)
			}
		}
	}

	b.mu.Lock()
	provider := b.provider
	b.mu.Unlock()
	if provider != nil && len(suggestions) > 0 {
		resp, err := provider.Chat(ctx, model.Request{
			Messages: []model.ChatMessage{
				{Role: "user", Content: "Given these planned actions, suggest one additional improvement:\n" + strings.Join(suggestions, "\n")},
			},
		})
		if err == nil && resp.Content != "" && !seen[resp.Content] {
			suggestions = append(suggestions, resp.Content)
		}
	}
	return suggestions
}

// PlantHealth computes the health projection over the agent's current
// observation set. Pure read; never mutates state.
func (b *BaseAgent) PlantHealth() core.HealthSnapshot {
	b.mu.Lock()
	obs := append([]core.Observation(nil), b.observations...)
	weights, thresholds := b.weights, b.thresholds
	b.mu.Unlock()
	return core.ComputeHealth(obs, weights, thresholds)
}

// Weaknesses returns the weakness and anomaly observations, worst first.
func (b *BaseAgent) Weaknesses() []core.Observation {
	var out []core.Observation
	for _, o := range b.Observations() {
		if o.IsWeakness() {
			out = append(out, o)
		}
	}
	core.SortObservations(out)
	return out
}

// Strengths returns the strength observations.
func (b *BaseAgent) Strengths() []core.Observation {
	var out []core.Observation
	for _, o := range b.Observations() {
		if o.Type == core.ObservationStrength {
			out = append(out, o)
		}
	}
	return out
}

// RecentObservations returns up to limit observations, newest first.
func (b *BaseAgent) RecentObservations(limit int) []core.Observation {
	obs := b.Observations()
	for i := 1; i < len(obs); i++ {
		for j := i; j > 0 && obs[j].Timestamp.After(obs[j-1].Timestamp); j-- {
			obs[j], obs[j-1] = obs[j-1], obs[j]
		}
	}
	if limit > 0 && len(obs) > limit {
		obs = obs[:limit]
	}
	return obs
}

// publishFindings indexes the full observation set on the bus, then posts
// the top critical/high observations (bounded by the post limit) plus at
// most one strength.
func (b *BaseAgent) publishFindings(obs []core.Observation, topic core.Topic) {
	if b.room == nil {
		return
	}
	b.room.IndexObservation(obs...)

	sorted := append([]core.Observation(nil), obs...)
	core.SortObservations(sorted)

	limit := b.Info().Settings.PostLimit
	if limit <= 0 {
		limit = 3
	}
	posted := 0
	for _, o := range sorted {
		if posted == limit {
			break
		}
		if o.Severity != core.SeverityCritical && o.Severity != core.SeverityHigh {
			continue
		}
		sentiment := core.SentimentNegative
		if o.Severity == core.SeverityCritical {
			sentiment = core.SentimentUrgent
		}
		b.Speak(SpeakParams{
			Type:      core.MessageObservation,
			Topic:     topic,
			Sentiment: sentiment,
			Content:   o.Description,
			Evidence:  o.Evidence,
			Metadata:  map[string]string{bus.MetadataObservationID: o.ID},
		})
		posted++
	}
	for _, o := range sorted {
		if o.Type != core.ObservationStrength {
			continue
		}
		b.Speak(SpeakParams{
			Type:      core.MessageCompliment,
			Topic:     topic,
			Sentiment: core.SentimentPositive,
			Content:   o.Description,
			Evidence:  o.Evidence,
			Metadata:  map[string]string{bus.MetadataObservationID: o.ID},
		})
		break
	}
}
