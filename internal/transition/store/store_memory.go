package store

import (
	"context"
	"sync"

	"simtrack/internal/transition"
)

// MemoryStore keeps log entries in process memory, append order preserved.
type MemoryStore struct {
	mu      sync.RWMutex
	entries []*transition.Entry
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Append(_ context.Context, entry *transition.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	clone := *entry
	s.entries = append(s.entries, &clone)
	return nil
}

func (s *MemoryStore) Recent(_ context.Context, limit int) ([]*transition.Entry, error) {
	if limit <= 0 {
		limit = DefaultQueryLimit
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*transition.Entry, 0, limit)
	for i := len(s.entries) - 1; i >= 0 && len(out) < limit; i-- {
		clone := *s.entries[i]
		out = append(out, &clone)
	}
	return out, nil
}
