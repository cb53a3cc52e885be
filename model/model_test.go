package model

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMockChat(t *testing.T) {
	m := NewMockChat()
	m.AddResponse("ping", "pong")

	reply, err := m.Chat(context.Background(), "system", []Message{
		{Role: "assistant", Content: "earlier"},
		{Role: "user", Content: "ping"},
	})
	require.NoError(t, err)
	assert.Equal(t, "pong", reply, "matched on the last user message")

	reply, err = m.Chat(context.Background(), "", []Message{{Role: "user", Content: "anything"}})
	require.NoError(t, err)
	assert.Equal(t, "Mock response to: anything", reply)

	assert.Equal(t, []string{"ping", "anything"}, m.Calls())
	assert.Equal(t, "mock", m.Info().Provider)
}
