package model

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMockProviderCannedResponse(t *testing.T) {
	m := NewMockProvider()
	m.AddResponse("how is the plant?", "plant is fine")

	resp, err := m.Chat(context.Background(), Request{Messages: []ChatMessage{
		{Role: "system", Content: "you are an analyzer"},
		{Role: "user", Content: "how is the plant?"},
	}})
	assert.NoError(t, err)
	assert.Equal(t, "plant is fine", resp.Content)
	assert.Equal(t, 1, m.Calls())
}

func TestMockProviderEchoesUnmatchedPrompt(t *testing.T) {
	m := NewMockProvider()

	resp, err := m.Chat(context.Background(), Request{Messages: []ChatMessage{
		{Role: "user", Content: "anything"},
	}})
	assert.NoError(t, err)
	assert.Equal(t, "Mock response to: anything", resp.Content)
}

func TestMockProviderKeysOnLastUserMessage(t *testing.T) {
	m := NewMockProvider()
	m.AddResponse("second", "later wins")

	resp, err := m.Chat(context.Background(), Request{Messages: []ChatMessage{
		{Role: "user", Content: "first"},
		{Role: "assistant", Content: "ok"},
		{Role: "user", Content: "second"},
	}})
	assert.NoError(t, err)
	assert.Equal(t, "later wins", resp.Content)
}

func TestMockProviderFailWith(t *testing.T) {
	m := NewMockProvider()
	m.FailWith(assert.AnError)

	_, err := m.Chat(context.Background(), Request{Messages: []ChatMessage{{Role: "user", Content: "x"}}})
	assert.ErrorIs(t, err, assert.AnError)
}

func TestMockProviderRejectsEmptyRequest(t *testing.T) {
	m := NewMockProvider()
	_, err := m.Chat(context.Background(), Request{})
	assert.Error(t, err)
}

func TestMockProviderHonorsContext(t *testing.T) {
	m := NewMockProvider()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := m.Chat(ctx, Request{Messages: []ChatMessage{{Role: "user", Content: "x"}}})
	assert.ErrorIs(t, err, context.Canceled)
}
