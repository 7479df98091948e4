package checkpoint

import (
	"context"
	"sync"
)

// MemoryStore keeps states in a map. It backs dry runs and tests, and any run
// without a configured store.
type MemoryStore struct {
	mu     sync.RWMutex
	states map[string]State
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{states: make(map[string]State)}
}

// Load implements Store.
func (s *MemoryStore) Load(ctx context.Context, key string) (State, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if st, ok := s.states[key]; ok {
		return st, nil
	}
	return State{Key: key}, nil
}

// Save implements Store.
func (s *MemoryStore) Save(ctx context.Context, state State) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states[state.Key] = state
	return nil
}
