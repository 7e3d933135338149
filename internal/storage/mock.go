package storage

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/elefant-ai/p2vn/pkg/state"
)

// MockStorage is an in-memory Storage for tests.
type MockStorage struct {
	mu     sync.Mutex
	states map[uuid.UUID]*state.PlayerState

	// Optional error overrides
	SaveErr error
	LoadErr error

	SaveCalls int
}

var _ Storage = (*MockStorage)(nil)

// NewMockStorage creates an empty in-memory store.
func NewMockStorage() *MockStorage {
	return &MockStorage{
		states: make(map[uuid.UUID]*state.PlayerState),
	}
}

func (m *MockStorage) Ping(ctx context.Context) error { return nil }
func (m *MockStorage) Close() error                   { return nil }

func (m *MockStorage) SavePlayerState(ctx context.Context, id uuid.UUID, ps *state.PlayerState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SaveCalls++
	if m.SaveErr != nil {
		return m.SaveErr
	}
	cp, err := ps.DeepCopy()
	if err != nil {
		return err
	}
	m.states[id] = cp
	return nil
}

func (m *MockStorage) LoadPlayerState(ctx context.Context, id uuid.UUID) (*state.PlayerState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.LoadErr != nil {
		return nil, m.LoadErr
	}
	ps, ok := m.states[id]
	if !ok {
		return nil, nil
	}
	return ps.DeepCopy()
}

func (m *MockStorage) DeletePlayerState(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.states, id)
	return nil
}
