package models

import (
	"context"
	"sync"
)

// MockChatModel returns canned Responses in order, recording every call.
// Used in tests that exercise the "llm:*" builtins without a live API key.
type MockChatModel struct {
	Responses []ChatOut
	Err       error

	mu    sync.Mutex
	calls int
}

func (m *MockChatModel) Chat(_ context.Context, messages []Message, tools []ToolSpec) (ChatOut, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return ChatOut{}, m.Err
	}
	if m.calls >= len(m.Responses) {
		m.calls++
		return ChatOut{}, nil
	}
	out := m.Responses[m.calls]
	m.calls++
	return out, nil
}

// Calls reports how many times Chat has been invoked.
func (m *MockChatModel) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}
