package memory

import (
	"context"
	"sync"
	"time"

	"github.com/custodia-labs/distill/internal/core/ports/driven"
)

// Ensure CounterStore implements the interface.
var _ driven.CounterStore = (*CounterStore)(nil)

// CounterStore is an in-memory implementation of driven.CounterStore.
// State does not survive the process.
type CounterStore struct {
	mu     sync.Mutex
	events map[string][]time.Time
}

// NewCounterStore creates a new in-memory counter store.
func NewCounterStore() *CounterStore {
	return &CounterStore{
		events: make(map[string][]time.Time),
	}
}

// Get returns the timestamps recorded for key, oldest first.
func (s *CounterStore) Get(_ context.Context, key string) ([]time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]time.Time(nil), s.events[key]...), nil
}

// Increment records one event for key.
func (s *CounterStore) Increment(_ context.Context, key string, t time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	events := s.events[key]
	// Keep ascending order even if callers pass out-of-order timestamps.
	i := len(events)
	for i > 0 && events[i-1].After(t) {
		i--
	}
	events = append(events, time.Time{})
	copy(events[i+1:], events[i:])
	events[i] = t
	s.events[key] = events
	return nil
}

// Prune drops every timestamp for key strictly before cutoff.
func (s *CounterStore) Prune(_ context.Context, key string, cutoff time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	events := s.events[key]
	i := 0
	for i < len(events) && events[i].Before(cutoff) {
		i++
	}
	if i == len(events) {
		delete(s.events, key)
		return nil
	}
	s.events[key] = append([]time.Time(nil), events[i:]...)
	return nil
}
