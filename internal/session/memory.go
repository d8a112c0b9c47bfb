package session

import (
	"context"
	"sync"
)

// MemoryStore keeps sessions in process memory.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*State
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string]*State)}
}

func (m *MemoryStore) Create(_ context.Context) (*State, error) {
	state := newState()

	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[state.ID] = state

	return clone(state), nil
}

func (m *MemoryStore) Get(_ context.Context, id string) (*State, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	state, ok := m.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	return clone(state), nil
}

func (m *MemoryStore) Append(_ context.Context, id string, exchange Exchange) (*State, error) {
	return m.update(id, func(s *State) {
		if exchange.AskedAt.IsZero() {
			exchange.AskedAt = now().UTC()
		}
		s.History = append(s.History, exchange)
	})
}

func (m *MemoryStore) SetDocument(_ context.Context, id, name, text string) (*State, error) {
	return m.update(id, func(s *State) {
		s.DocumentName = name
		s.Document = text
	})
}

func (m *MemoryStore) Clear(_ context.Context, id string) (*State, error) {
	return m.update(id, func(s *State) {
		s.History = []Exchange{}
	})
}

func (m *MemoryStore) update(id string, fn func(*State)) (*State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	state, ok := m.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	fn(state)
	return clone(state), nil
}

// clone prevents callers from mutating the stored history.
func clone(s *State) *State {
	c := *s
	c.History = append([]Exchange{}, s.History...)
	return &c
}
