// Package memory is the in-memory payment store used in tests and when
// Postgres is not configured.
package memory

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"portalpay/internal/payment/models"
	"portalpay/pkg/requestcontext"
)

type pairKey struct {
	txRef  string
	userID string
}

// Store keeps payment records in memory with the same idempotence contract
// as the Postgres store: one record per (tx_ref, user_id) pair.
type Store struct {
	mu      sync.Mutex
	records map[pairKey]*models.Record
}

func New() *Store {
	return &Store{records: make(map[pairKey]*models.Record)}
}

func (s *Store) UpsertVerified(ctx context.Context, rec *models.Record) (*models.Record, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := requestcontext.Now(ctx)
	key := pairKey{txRef: rec.TxRef, userID: rec.UserID}

	if existing, ok := s.records[key]; ok {
		existing.TransactionID = rec.TransactionID
		existing.Amount = rec.Amount
		existing.Currency = rec.Currency
		existing.Status = rec.Status
		existing.GatewayResponse = rec.GatewayResponse
		existing.UpdatedAt = now
		out := *existing
		return &out, false, nil
	}

	stored := *rec
	stored.ID = uuid.NewString()
	stored.CreatedAt = now
	stored.UpdatedAt = now
	s.records[key] = &stored
	out := stored
	return &out, true, nil
}

func (s *Store) GetByTxRef(ctx context.Context, txRef, userID string) (*models.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[pairKey{txRef: txRef, userID: userID}]
	if !ok {
		return nil, nil
	}
	out := *rec
	return &out, nil
}

func (s *Store) CountByPair(ctx context.Context, txRef, userID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.records[pairKey{txRef: txRef, userID: userID}]; ok {
		return 1, nil
	}
	return 0, nil
}
