// Package model defines the minimal chat contract the dispatcher and session
// engine drive generation through, plus a deterministic mock for tests.
// Provider adapters live in the subpackages.
package model

import (
	"context"
	"fmt"
	"sync"
)

// Message is one turn of a normalized chat transcript.
type Message struct {
	Role    string `json:"role"` // "user" or "assistant"
	Content string `json:"content"`
}

// Info contains metadata about a chat model implementation.
type Info struct {
	Name     string `json:"name"`
	Provider string `json:"provider"` // "openai", "anthropic", "mock", etc.
}

// ChatModel is the synchronous generation interface. Implementations must be
// safe for concurrent use.
type ChatModel interface {
	// Chat sends the system prompt plus transcript and returns the
	// assistant's reply text.
	Chat(ctx context.Context, system string, messages []Message) (string, error)

	// Info returns information about the model implementation.
	Info() Info
}

// MockChat is a lightweight in-memory ChatModel useful for tests & examples.
// Replies are matched against the last user message; unmatched prompts get a
// deterministic echo.
type MockChat struct {
	mu        sync.Mutex
	info      Info
	responses map[string]string
	calls     []string
}

// NewMockChat constructs an empty MockChat.
func NewMockChat() *MockChat {
	return &MockChat{
		info:      Info{Name: "mock", Provider: "mock"},
		responses: map[string]string{},
	}
}

// AddResponse registers a deterministic canned completion for an input prompt.
func (m *MockChat) AddResponse(prompt, response string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses[prompt] = response
}

// Calls returns the user prompts seen so far, in order.
func (m *MockChat) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.calls))
	copy(out, m.calls)
	return out
}

// Chat implements ChatModel.
func (m *MockChat) Chat(_ context.Context, _ string, messages []Message) (string, error) {
	var last string
	for _, msg := range messages {
		if msg.Role == "user" {
			last = msg.Content
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, last)
	if reply, ok := m.responses[last]; ok {
		return reply, nil
	}
	return fmt.Sprintf("Mock response to: %s", last), nil
}

// Info implements ChatModel.
func (m *MockChat) Info() Info { return m.info }
