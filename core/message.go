package core

import (
	"time"
)

// Message is the unit of communication on the Break Room bus. After posting
// it must be treated as immutable; the bus owns the stored copy.
//
// Threading invariant: when ReplyTo references an existing message the bus
// forces ThreadID to the parent's thread; otherwise a fresh thread id is
// minted at post time.
type Message struct {
	ID        string            `json:"id"`
	AgentID   string            `json:"agent_id"`
	AgentName string            `json:"agent_name"`
	Role      Role              `json:"role"`
	Type      MessageType       `json:"type"`
	Topic     Topic             `json:"topic"`
	Sentiment Sentiment         `json:"sentiment"`
	Content   string            `json:"content"`
	Evidence  []Evidence        `json:"evidence,omitempty"`
	ReplyTo   string            `json:"reply_to,omitempty"`
	ThreadID  string            `json:"thread_id"`
	Timestamp time.Time         `json:"timestamp"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// NewMessage creates a message authored by the given agent identity with a
// fresh id and UTC timestamp. Thread resolution happens at post time.
func NewMessage(info AgentInfo, msgType MessageType, topic Topic, content string) Message {
	return Message{
		ID:        NewID(),
		AgentID:   info.ID,
		AgentName: info.Name,
		Role:      info.Role,
		Type:      msgType,
		Topic:     topic,
		Sentiment: SentimentNeutral,
		Content:   content,
		Timestamp: time.Now().UTC(),
	}
}

// Thread groups messages sharing a ThreadID. Created lazily by the bus on the
// first message carrying an unseen thread id. Participants accumulate
// uniquely; UpdatedAt bumps on every appended message.
type Thread struct {
	ID           string    `json:"id"`
	Topic        Topic     `json:"topic"`
	StartedBy    string    `json:"started_by"`
	Subject      string    `json:"subject"`
	Participants []string  `json:"participants"`
	Messages     []Message `json:"messages"`
	Resolved     bool      `json:"resolved"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// AddParticipant records an agent id once.
func (t *Thread) AddParticipant(agentID string) {
	for _, p := range t.Participants {
		if p == agentID {
			return
		}
	}
	t.Participants = append(t.Participants, agentID)
}

// Knowledge is a small fact stored on the bus knowledge base, subject to the
// same FIFO retention as messages.
type Knowledge struct {
	ID      string    `json:"id"`
	Topic   Topic     `json:"topic"`
	Content string    `json:"content"`
	Source  string    `json:"source"`
	AddedAt time.Time `json:"added_at"`
}
