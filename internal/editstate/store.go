package editstate

import (
	"context"
	"sync"
)

// Store persists edit states. A missing state reads as Initial.
type Store interface {
	Get(ctx context.Context, actorID, entryID string) (State, error)
	Put(ctx context.Context, s State) error
	Delete(ctx context.Context, actorID, entryID string) error
}

type key struct{ actor, entry string }

// MemoryStore keeps states in process memory.
type MemoryStore struct {
	mu     sync.RWMutex
	states map[key]State
}

// NewMemoryStore returns an empty in-process store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{states: make(map[key]State)}
}

func (m *MemoryStore) Get(_ context.Context, actorID, entryID string) (State, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if s, ok := m.states[key{actorID, entryID}]; ok {
		return s, nil
	}
	return Initial(actorID, entryID), nil
}

func (m *MemoryStore) Put(_ context.Context, s State) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s.Mode == Show {
		delete(m.states, key{s.ActorID, s.EntryID})
		return nil
	}
	m.states[key{s.ActorID, s.EntryID}] = s
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, actorID, entryID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.states, key{actorID, entryID})
	return nil
}
