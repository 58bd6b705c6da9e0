package violations

import (
	"context"
	"sync"
	"time"

	"portalpay/internal/ratelimit/models"
)

// MemoryStore keeps violation history in memory. Used in tests and when
// Postgres is not configured; history does not survive a restart.
type MemoryStore struct {
	mu         sync.RWMutex
	violations []*models.Violation
}

// NewMemory creates an in-memory violation store.
func NewMemory() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Record(ctx context.Context, v *models.Violation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.violations = append(s.violations, v)
	return nil
}

func (s *MemoryStore) ListRecent(ctx context.Context, limit int) ([]*models.Violation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 || limit > len(s.violations) {
		limit = len(s.violations)
	}
	out := make([]*models.Violation, 0, limit)
	for i := len(s.violations) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, s.violations[i])
	}
	return out, nil
}

func (s *MemoryStore) Stats(ctx context.Context, since time.Time) (*models.Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := &models.Stats{
		ByReason: make(map[models.Reason]int),
		Since:    since,
	}
	seen := make(map[string]struct{})
	for _, v := range s.violations {
		if v.OccurredAt.Before(since) {
			continue
		}
		stats.TotalViolations++
		stats.ByReason[v.Reason]++
		seen[v.Identifier] = struct{}{}
	}
	stats.UniqueIdentifiers = len(seen)
	return stats, nil
}

func (s *MemoryStore) Purge(ctx context.Context, olderThan time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.violations[:0]
	var removed int64
	for _, v := range s.violations {
		if v.OccurredAt.Before(olderThan) {
			removed++
			continue
		}
		kept = append(kept, v)
	}
	s.violations = kept
	return removed, nil
}
