package memory

import (
	"context"
	"sync"

	"portalpay/internal/audit"
)

// Store keeps audit entries in memory. Used in tests and when Postgres is
// not configured.
type Store struct {
	mu      sync.RWMutex
	entries []audit.Entry
}

// New creates an in-memory audit store.
func New() *Store {
	return &Store{}
}

// Append records an entry.
func (s *Store) Append(ctx context.Context, entry audit.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, entry)
	return nil
}

// List returns a copy of all recorded entries in append order.
func (s *Store) List() []audit.Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]audit.Entry, len(s.entries))
	copy(out, s.entries)
	return out
}
