package bus

import (
	"strings"
	"sync"
	"time"

	"github.com/hupe1980/assetmesh/core"
	"github.com/hupe1980/assetmesh/logging"
)

// MetadataObservationID is the message metadata key linking a message to an
// indexed observation.
const MetadataObservationID = "observation_id"

// MetadataFacility is the message metadata key carrying the author's
// facility code. Agents set it on every post; Summarize uses it to scope
// message sentiment to one facility.
const MetadataFacility = "facility"

// Listener receives every message posted by other participants. Implemented
// by agents; the return value of their handling never reaches the bus.
type Listener interface {
	Info() core.AgentInfo
	Listen(msg core.Message)
}

// Subscriber is an external callback invoked for every posted message.
// Errors are logged and never interrupt delivery to remaining subscribers.
type Subscriber func(msg core.Message) error

// Stats counts bus activity since construction (or snapshot import).
type Stats struct {
	MessagesPosted       int                      `json:"messages_posted"`
	ThreadsCreated       int                      `json:"threads_created"`
	ObservationsIndexed  int                      `json:"observations_indexed"`
	ObservationsReferred int                      `json:"observations_referred"`
	MessagesTrimmed      int                      `json:"messages_trimmed"`
	ByType               map[core.MessageType]int `json:"by_type"`
}

type registeredAgent struct {
	listener Listener
	info     core.AgentInfo
}

// Options configures a BreakRoom.
type Options struct {
	Name            string
	MaxMessages     int
	MaxKnowledge    int
	MaxObservations int
	Logger          logging.Logger
}

// BreakRoom is the shared message bus. All exported methods are safe for
// concurrent use; mutation happens under a single mutex so posts observe a
// total order.
type BreakRoom struct {
	mu sync.RWMutex

	id   string
	name string
	opts Options

	messages     []core.Message
	threads      map[string]*core.Thread
	observations []core.Observation
	knowledge    []core.Knowledge
	stats        Stats

	agents      []registeredAgent // registration order drives broadcast order
	subscribers []Subscriber

	logger logging.Logger
}

// New constructs an empty BreakRoom with bounded retention.
func New(optFns ...func(o *Options)) *BreakRoom {
	opts := Options{
		Name:            "break-room",
		MaxMessages:     500,
		MaxKnowledge:    200,
		MaxObservations: 200,
		Logger:          logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &BreakRoom{
		id:      core.NewID(),
		name:    opts.Name,
		opts:    opts,
		threads: make(map[string]*core.Thread),
		stats:   Stats{ByType: make(map[core.MessageType]int)},
		logger:  opts.Logger,
	}
}

// ID returns the bus identifier.
func (b *BreakRoom) ID() string { return b.id }

// Name returns the bus display name.
func (b *BreakRoom) Name() string { return b.name }

// RegisterAgent adds a listener and emits a system-authored join notice on
// the bus itself.
func (b *BreakRoom) RegisterAgent(l Listener) {
	info := l.Info()
	b.mu.Lock()
	b.agents = append(b.agents, registeredAgent{listener: l, info: info})
	b.mu.Unlock()

	b.postSystemNotice(info.Name + " joined the break room")
}

// UnregisterAgent removes a listener by agent id and emits a leave notice.
func (b *BreakRoom) UnregisterAgent(agentID string) {
	var name string
	b.mu.Lock()
	for i, a := range b.agents {
		if a.info.ID == agentID {
			name = a.info.Name
			b.agents = append(b.agents[:i], b.agents[i+1:]...)
			break
		}
	}
	b.mu.Unlock()

	if name != "" {
		b.postSystemNotice(name + " left the break room")
	}
}

// Subscribe registers an external callback receiving every posted message.
func (b *BreakRoom) Subscribe(sub Subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers = append(b.subscribers, sub)
}

// Agents returns the identities of all registered agents in registration
// order.
func (b *BreakRoom) Agents() []core.AgentInfo {
	b.mu.RLock()
	defer b.mu.RUnlock()
	infos := make([]core.AgentInfo, len(b.agents))
	for i, a := range b.agents {
		infos[i] = a.info
	}
	return infos
}

func (b *BreakRoom) postSystemNotice(content string) {
	b.Post(core.Message{
		AgentID:   "system",
		AgentName: "system",
		Type:      core.MessageAlert,
		Topic:     core.TopicGeneral,
		Sentiment: core.SentimentNeutral,
		Content:   content,
	})
}

// Post appends the message, resolves or creates its thread, updates the
// rolling observation index when the metadata references a known
// observation, bumps counters and synchronously broadcasts the stored copy
// to every other registered agent and all subscribers in registration order.
// The stored message is returned.
func (b *BreakRoom) Post(msg core.Message) core.Message {
	b.mu.Lock()

	if msg.ID == "" {
		msg.ID = core.NewID()
	}
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now().UTC()
	}
	if msg.Sentiment == "" {
		msg.Sentiment = core.SentimentNeutral
	}
	if msg.Topic == "" {
		msg.Topic = core.TopicGeneral
	}

	// Thread resolution: a reply always lands in its parent's thread, no
	// matter what thread id the caller supplied.
	if msg.ReplyTo != "" {
		if parent, ok := b.findMessageLocked(msg.ReplyTo); ok {
			msg.ThreadID = parent.ThreadID
		}
	}
	if msg.ThreadID == "" {
		msg.ThreadID = core.NewID()
	}

	thread, ok := b.threads[msg.ThreadID]
	if !ok {
		thread = &core.Thread{
			ID:        msg.ThreadID,
			Topic:     msg.Topic,
			StartedBy: msg.AgentID,
			Subject:   msg.Content,
			CreatedAt: msg.Timestamp,
		}
		b.threads[msg.ThreadID] = thread
		b.stats.ThreadsCreated++
	}
	thread.Messages = append(thread.Messages, msg)
	thread.AddParticipant(msg.AgentID)
	thread.UpdatedAt = msg.Timestamp

	b.messages = append(b.messages, msg)
	b.stats.MessagesPosted++
	b.stats.ByType[msg.Type]++

	if obsID := msg.Metadata[MetadataObservationID]; obsID != "" {
		for i := range b.observations {
			if b.observations[i].ID == obsID {
				b.observations[i].Acknowledged = true
				b.stats.ObservationsReferred++
				break
			}
		}
	}

	if trimmed := len(b.messages) - b.opts.MaxMessages; trimmed > 0 {
		b.pruneThreadsLocked(b.messages[:trimmed])
		b.messages = append([]core.Message(nil), b.messages[trimmed:]...)
		b.stats.MessagesTrimmed += trimmed
	}

	// Snapshot delivery targets before releasing the lock so a listener that
	// posts a reply re-enters cleanly.
	listeners := make([]registeredAgent, len(b.agents))
	copy(listeners, b.agents)
	subscribers := make([]Subscriber, len(b.subscribers))
	copy(subscribers, b.subscribers)
	b.mu.Unlock()

	for _, a := range listeners {
		if a.info.ID == msg.AgentID {
			continue
		}
		b.deliver(a, msg)
	}
	for _, sub := range subscribers {
		if err := sub(msg); err != nil {
			b.logger.Warn("subscriber failed", "message_id", msg.ID, "error", err.Error())
		}
	}

	return msg
}

// pruneThreadsLocked drops trimmed messages from their threads so thread
// retention tracks the message store. A thread whose last message is trimmed
// is removed entirely.
func (b *BreakRoom) pruneThreadsLocked(dropped []core.Message) {
	byThread := make(map[string]map[string]bool)
	for _, m := range dropped {
		ids, ok := byThread[m.ThreadID]
		if !ok {
			ids = make(map[string]bool)
			byThread[m.ThreadID] = ids
		}
		ids[m.ID] = true
	}
	for threadID, ids := range byThread {
		thread, ok := b.threads[threadID]
		if !ok {
			continue
		}
		kept := thread.Messages[:0]
		for _, m := range thread.Messages {
			if !ids[m.ID] {
				kept = append(kept, m)
			}
		}
		if len(kept) == 0 {
			delete(b.threads, threadID)
			continue
		}
		thread.Messages = kept
	}
}

// deliver invokes one listener, absorbing panics so a misbehaving agent
// cannot interrupt broadcast to the rest.
func (b *BreakRoom) deliver(a registeredAgent, msg core.Message) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("listener panicked", "agent", a.info.Name, "message_id", msg.ID, "panic", r)
		}
	}()
	a.listener.Listen(msg)
}

func (b *BreakRoom) findMessageLocked(id string) (core.Message, bool) {
	for i := len(b.messages) - 1; i >= 0; i-- {
		if b.messages[i].ID == id {
			return b.messages[i], true
		}
	}
	return core.Message{}, false
}

// IndexObservation adds observations to the rolling index, evicting the
// oldest entries once the cap is exceeded.
func (b *BreakRoom) IndexObservation(obs ...core.Observation) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.observations = append(b.observations, obs...)
	b.stats.ObservationsIndexed += len(obs)
	if trimmed := len(b.observations) - b.opts.MaxObservations; trimmed > 0 {
		b.observations = append([]core.Observation(nil), b.observations[trimmed:]...)
	}
}

// AcknowledgeObservation marks an indexed observation acknowledged.
func (b *BreakRoom) AcknowledgeObservation(id string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i := range b.observations {
		if b.observations[i].ID == id {
			b.observations[i].Acknowledged = true
			return true
		}
	}
	return false
}

// ResolveObservation marks an indexed observation resolved.
func (b *BreakRoom) ResolveObservation(id string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i := range b.observations {
		if b.observations[i].ID == id {
			b.observations[i].Resolved = true
			return true
		}
	}
	return false
}

// MarkResolved flags a thread resolved.
func (b *BreakRoom) MarkResolved(threadID string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if t, ok := b.threads[threadID]; ok {
		t.Resolved = true
		t.UpdatedAt = time.Now().UTC()
		return true
	}
	return false
}

// AddKnowledge appends a knowledge entry, trimming the oldest once the cap
// is exceeded.
func (b *BreakRoom) AddKnowledge(k core.Knowledge) core.Knowledge {
	b.mu.Lock()
	defer b.mu.Unlock()
	if k.ID == "" {
		k.ID = core.NewID()
	}
	if k.AddedAt.IsZero() {
		k.AddedAt = time.Now().UTC()
	}
	b.knowledge = append(b.knowledge, k)
	if trimmed := len(b.knowledge) - b.opts.MaxKnowledge; trimmed > 0 {
		b.knowledge = append([]core.Knowledge(nil), b.knowledge[trimmed:]...)
	}
	return k
}

// GetKnowledge returns knowledge entries, optionally filtered by topic.
func (b *BreakRoom) GetKnowledge(topic core.Topic) []core.Knowledge {
	b.mu.RLock()
	defer b.mu.RUnlock()
	var out []core.Knowledge
	for _, k := range b.knowledge {
		if topic == "" || k.Topic == topic {
			out = append(out, k)
		}
	}
	return out
}

// MessageFilter narrows GetMessages results. Zero values match everything.
type MessageFilter struct {
	AgentID  string
	Role     core.Role
	Type     core.MessageType
	Topic    core.Topic
	ThreadID string
	Since    time.Time
	Limit    int
}

// GetMessages returns stored messages matching the filter, oldest first.
func (b *BreakRoom) GetMessages(f MessageFilter) []core.Message {
	b.mu.RLock()
	defer b.mu.RUnlock()
	var out []core.Message
	for _, m := range b.messages {
		if f.AgentID != "" && m.AgentID != f.AgentID {
			continue
		}
		if f.Role != "" && m.Role != f.Role {
			continue
		}
		if f.Type != "" && m.Type != f.Type {
			continue
		}
		if f.Topic != "" && m.Topic != f.Topic {
			continue
		}
		if f.ThreadID != "" && m.ThreadID != f.ThreadID {
			continue
		}
		if !f.Since.IsZero() && m.Timestamp.Before(f.Since) {
			continue
		}
		out = append(out, m)
	}
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[len(out)-f.Limit:]
	}
	return out
}

// ThreadFilter narrows GetActiveThreads results.
type ThreadFilter struct {
	Topic           core.Topic
	IncludeResolved bool
	Since           time.Time
}

// GetActiveThreads returns threads matching the filter, most recently
// updated first.
func (b *BreakRoom) GetActiveThreads(f ThreadFilter) []core.Thread {
	b.mu.RLock()
	defer b.mu.RUnlock()
	var out []core.Thread
	for _, t := range b.threads {
		if !f.IncludeResolved && t.Resolved {
			continue
		}
		if f.Topic != "" && t.Topic != f.Topic {
			continue
		}
		if !f.Since.IsZero() && t.UpdatedAt.Before(f.Since) {
			continue
		}
		out = append(out, *t)
	}
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j].UpdatedAt.After(out[j-1].UpdatedAt); j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	return out
}

// ObservationFilter narrows GetObservations results.
type ObservationFilter struct {
	AgentID  string
	Severity core.Severity
	Type     core.ObservationType
	Facility string
	Unit     string
	Since    time.Time
	Limit    int
}

// GetObservations returns indexed observations matching the filter, sorted
// by severity then recency.
func (b *BreakRoom) GetObservations(f ObservationFilter) []core.Observation {
	b.mu.RLock()
	var out []core.Observation
	for _, o := range b.observations {
		if f.AgentID != "" && o.AgentID != f.AgentID {
			continue
		}
		if f.Severity != "" && o.Severity != f.Severity {
			continue
		}
		if f.Type != "" && o.Type != f.Type {
			continue
		}
		if f.Facility != "" && o.Subject.Facility != f.Facility {
			continue
		}
		if f.Unit != "" && o.Subject.Unit != f.Unit {
			continue
		}
		if !f.Since.IsZero() && o.Timestamp.Before(f.Since) {
			continue
		}
		out = append(out, o)
	}
	b.mu.RUnlock()

	core.SortObservations(out)
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out
}

// SearchMessages returns messages whose content contains the text,
// case-insensitively, oldest first.
func (b *BreakRoom) SearchMessages(text string) []core.Message {
	b.mu.RLock()
	defer b.mu.RUnlock()
	needle := strings.ToLower(text)
	var out []core.Message
	for _, m := range b.messages {
		if needle == "" || strings.Contains(strings.ToLower(m.Content), needle) {
			out = append(out, m)
		}
	}
	return out
}

// StatsSnapshot returns a copy of the current counters.
func (b *BreakRoom) StatsSnapshot() Stats {
	b.mu.RLock()
	defer b.mu.RUnlock()
	s := b.stats
	s.ByType = make(map[core.MessageType]int, len(b.stats.ByType))
	for k, v := range b.stats.ByType {
		s.ByType[k] = v
	}
	return s
}
