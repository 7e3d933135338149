package services

import (
	"context"
	"sync"

	"github.com/elefant-ai/p2vn/pkg/chat"
	"github.com/elefant-ai/p2vn/pkg/tools"
)

// MockLLM is a scripted implementation of LLMService for tests. Responses
// are consumed in order; ChatFunc overrides everything when set.
type MockLLM struct {
	ChatFunc func(ctx context.Context, messages []chat.ChatMessage, catalog []tools.Definition) (*chat.ChatResponse, error)

	// Scripted responses, popped front-first.
	Responses []*chat.ChatResponse

	// Call tracking.
	Calls []ChatCall

	mu sync.Mutex
}

// ChatCall records one invocation for assertions.
type ChatCall struct {
	Messages []chat.ChatMessage
	Catalog  []tools.Definition
}

var _ LLMService = (*MockLLM)(nil)

// NewMockLLM creates an empty mock.
func NewMockLLM() *MockLLM {
	return &MockLLM{}
}

// Script appends responses to return, in order.
func (m *MockLLM) Script(responses ...*chat.ChatResponse) *MockLLM {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Responses = append(m.Responses, responses...)
	return m
}

func (m *MockLLM) Chat(ctx context.Context, messages []chat.ChatMessage, catalog []tools.Definition) (*chat.ChatResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	// Copy the transcript: callers keep mutating theirs.
	msgs := make([]chat.ChatMessage, len(messages))
	copy(msgs, messages)
	m.Calls = append(m.Calls, ChatCall{Messages: msgs, Catalog: catalog})

	if m.ChatFunc != nil {
		return m.ChatFunc(ctx, messages, catalog)
	}

	if len(m.Responses) > 0 {
		resp := m.Responses[0]
		m.Responses = m.Responses[1:]
		return resp, nil
	}

	return &chat.ChatResponse{Message: "Mock response."}, nil
}

// LastCall returns the most recent invocation, nil if none.
func (m *MockLLM) LastCall() *ChatCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.Calls) == 0 {
		return nil
	}
	return &m.Calls[len(m.Calls)-1]
}
