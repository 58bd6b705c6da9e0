package student

import (
	"context"
	"fmt"
	"sync"

	"portalpay/internal/payment/models"
)

// MemoryStore keeps student payment profiles in memory. Used in tests and
// when Postgres is not configured.
type MemoryStore struct {
	mu       sync.Mutex
	profiles map[string]*Profile
}

func NewMemory() *MemoryStore {
	return &MemoryStore{profiles: make(map[string]*Profile)}
}

func (s *MemoryStore) ApplyPayment(ctx context.Context, userID string, rec *models.Record) error {
	if rec == nil {
		return fmt.Errorf("payment record is required")
	}
	if _, ok := statusColumns[rec.PaymentType]; !ok {
		return fmt.Errorf("unknown payment type %q", rec.PaymentType)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.profiles[userID]
	if !ok {
		p = &Profile{UserID: userID, Statuses: make(map[models.Type]string)}
		s.profiles[userID] = p
	}
	p.Statuses[rec.PaymentType] = string(rec.Status)

	// Replace-by-txref: drop any existing entry before appending.
	refs := p.PaymentRefs[:0]
	for _, ref := range p.PaymentRefs {
		if ref != rec.TxRef {
			refs = append(refs, ref)
		}
	}
	p.PaymentRefs = append(refs, rec.TxRef)
	return nil
}

func (s *MemoryStore) GetProfile(_ context.Context, userID string) (*Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.profiles[userID]
	if !ok {
		return nil, nil
	}
	out := Profile{
		UserID:      p.UserID,
		Statuses:    make(map[models.Type]string, len(p.Statuses)),
		PaymentRefs: append([]string(nil), p.PaymentRefs...),
	}
	for k, v := range p.Statuses {
		out.Statuses[k] = v
	}
	return &out, nil
}
