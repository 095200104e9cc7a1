package numbering

import (
	"context"
	"sync"
)

// MemoryCounterStore is a mutex-guarded in-memory CounterStore.
// Use in unit tests to avoid database dependencies; the mutex gives it
// the same atomicity contract as the SQL implementation.
type MemoryCounterStore struct {
	mu       sync.Mutex
	counters map[CounterKey]int64
}

// NewMemoryCounterStore creates an empty in-memory store.
func NewMemoryCounterStore() *MemoryCounterStore {
	return &MemoryCounterStore{counters: make(map[CounterKey]int64)}
}

// IncrementAndGet implements CounterStore.
func (s *MemoryCounterStore) IncrementAndGet(ctx context.Context, key CounterKey) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counters[key]++
	return s.counters[key], nil
}

// Current returns the latest issued sequence for a key (0 if none).
func (s *MemoryCounterStore) Current(key CounterKey) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.counters[key]
}

// FailingCounterStore always returns the configured error.
type FailingCounterStore struct {
	Err error
}

// IncrementAndGet implements CounterStore.
func (s *FailingCounterStore) IncrementAndGet(ctx context.Context, key CounterKey) (int64, error) {
	return 0, s.Err
}

// Ensure compile-time interface compliance.
var (
	_ CounterStore = (*MemoryCounterStore)(nil)
	_ CounterStore = (*FailingCounterStore)(nil)
)
