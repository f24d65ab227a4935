package model

import (
	"context"
	"fmt"
)

// ChatMessage is one turn of provider input.
type ChatMessage struct {
	Role    string `json:"role"` // system, user, assistant
	Content string `json:"content"`
}

// Request captures the normalized provider input produced by agents.
type Request struct {
	Messages    []ChatMessage `json:"messages"`
	Temperature float64       `json:"temperature,omitempty"`
	MaxTokens   int64         `json:"max_tokens,omitempty"`
}

// Response is the provider completion.
type Response struct {
	Content string `json:"content"`
}

// Info contains metadata about a provider implementation.
type Info struct {
	Name     string `json:"name"`
	Provider string `json:"provider"` // "openai", "anthropic", "mock", etc.
}

// Provider is the minimal interface agents use to reason with an external
// backend. Implementations must be safe for concurrent use. Errors are
// recoverable by design: callers downgrade to rule-based reasoning.
type Provider interface {
	Chat(ctx context.Context, req Request) (Response, error)

	// Info returns information about the provider implementation.
	Info() Info
}

// MockProvider is a lightweight in-memory Provider useful for tests and
// examples. Canned answers are keyed by the last user message; unmatched
// prompts get a deterministic echo.
type MockProvider struct {
	info      Info
	responses map[string]string
	err       error
	calls     int
}

// NewMockProvider constructs a MockProvider.
func NewMockProvider() *MockProvider {
	return &MockProvider{
		info:      Info{Name: "mock", Provider: "mock"},
		responses: make(map[string]string),
	}
}

// AddResponse registers a deterministic canned completion for a prompt.
func (m *MockProvider) AddResponse(prompt, response string) { m.responses[prompt] = response }

// FailWith makes every subsequent Chat call return err.
func (m *MockProvider) FailWith(err error) { m.err = err }

// Calls reports how many Chat invocations the mock has served.
func (m *MockProvider) Calls() int { return m.calls }

// Chat implements Provider.
func (m *MockProvider) Chat(ctx context.Context, req Request) (Response, error) {
	m.calls++
	if m.err != nil {
		return Response{}, m.err
	}
	if err := ctx.Err(); err != nil {
		return Response{}, err
	}
	if len(req.Messages) == 0 {
		return Response{}, fmt.Errorf("no messages provided")
	}
	var lastUser string
	for _, msg := range req.Messages {
		if msg.Role == "user" {
			lastUser = msg.Content
		}
	}
	if canned, ok := m.responses[lastUser]; ok {
		return Response{Content: canned}, nil
	}
	return Response{Content: fmt.Sprintf("Mock response to: %s", lastUser)}, nil
}

// Info implements Provider.
func (m *MockProvider) Info() Info { return m.info }
