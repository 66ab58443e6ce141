// Package memory provides in-process state stores.
package memory

import (
	"sync"
	"time"

	"github.com/artpar/socketgate/domain/ratelimit"
	"github.com/artpar/socketgate/ports"
)

// CounterStore is an in-memory implementation of ports.CounterStore.
// Counter maps grow with distinct keys (ephemeral rooms, churned users), so
// expired entries are reclaimed by periodic Sweep calls.
type CounterStore struct {
	mu    sync.RWMutex
	state map[string]ratelimit.CounterState
}

// NewCounterStore creates a new in-memory counter store.
func NewCounterStore() *CounterStore {
	return &CounterStore{
		state: make(map[string]ratelimit.CounterState),
	}
}

// Get retrieves the counter for a key.
func (s *CounterStore) Get(key string) (ratelimit.CounterState, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	state, ok := s.state[key]
	return state, ok
}

// Set stores the counter for a key.
func (s *CounterStore) Set(key string, state ratelimit.CounterState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state[key] = state
}

// Sweep removes counters whose window ended before now.
func (s *CounterStore) Sweep(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for key, state := range s.state {
		if now.After(state.ResetAt) {
			delete(s.state, key)
			removed++
		}
	}
	return removed
}

// Len returns the number of tracked counters.
func (s *CounterStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.state)
}

// Clear removes all state (for testing).
func (s *CounterStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = make(map[string]ratelimit.CounterState)
}

// Ensure interface compliance.
var _ ports.CounterStore = (*CounterStore)(nil)
