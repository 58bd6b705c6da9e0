// Package postgres persists payment records.
//
// Schema:
//
//	CREATE TABLE payments (
//	    id               UUID PRIMARY KEY,
//	    user_id          TEXT NOT NULL,
//	    tx_ref           TEXT NOT NULL,
//	    transaction_id   TEXT NOT NULL,
//	    amount           NUMERIC NOT NULL,
//	    currency         TEXT NOT NULL,
//	    payment_type     TEXT NOT NULL,
//	    status           TEXT NOT NULL,
//	    gateway_response JSONB,
//	    created_at       TIMESTAMPTZ NOT NULL,
//	    updated_at       TIMESTAMPTZ NOT NULL,
//	    UNIQUE (tx_ref, user_id)
//	);
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"portalpay/internal/payment/models"
	"portalpay/pkg/requestcontext"
)

// Store persists payment records in PostgreSQL. The UNIQUE (tx_ref, user_id)
// constraint plus ON CONFLICT upsert makes verification idempotent under
// concurrent calls; two racing verifies resolve to one row.
type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// UpsertVerified creates or updates the record for its (tx_ref, user_id)
// pair in a single statement. The returned bool is true when a new row was
// inserted.
func (s *Store) UpsertVerified(ctx context.Context, rec *models.Record) (*models.Record, bool, error) {
	if rec == nil {
		return nil, false, fmt.Errorf("payment record is required")
	}

	gatewayJSON, err := marshalGatewayResponse(rec.GatewayResponse)
	if err != nil {
		return nil, false, fmt.Errorf("marshal gateway response: %w", err)
	}

	now := requestcontext.Now(ctx)
	stored := *rec
	row := s.db.QueryRowContext(ctx, `
		INSERT INTO payments (
			id, user_id, tx_ref, transaction_id, amount, currency,
			payment_type, status, gateway_response, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $10)
		ON CONFLICT (tx_ref, user_id) DO UPDATE SET
			transaction_id   = EXCLUDED.transaction_id,
			amount           = EXCLUDED.amount,
			currency         = EXCLUDED.currency,
			status           = EXCLUDED.status,
			gateway_response = EXCLUDED.gateway_response,
			updated_at       = EXCLUDED.updated_at
		RETURNING id, created_at, (xmax = 0) AS inserted`,
		uuid.NewString(), rec.UserID, rec.TxRef, rec.TransactionID,
		rec.Amount, rec.Currency, string(rec.PaymentType), string(rec.Status),
		gatewayJSON, now,
	)

	var inserted bool
	if err := row.Scan(&stored.ID, &stored.CreatedAt, &inserted); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			// ON CONFLICT covers (tx_ref, user_id); anything else hitting a
			// unique index is a genuine conflict worth surfacing.
			return nil, false, fmt.Errorf("conflicting payment write: %w", err)
		}
		return nil, false, fmt.Errorf("upsert payment: %w", err)
	}
	stored.UpdatedAt = now
	return &stored, inserted, nil
}

// GetByTxRef returns the record for a (tx_ref, user_id) pair, or nil when
// none exists.
func (s *Store) GetByTxRef(ctx context.Context, txRef, userID string) (*models.Record, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, tx_ref, transaction_id, amount, currency,
		       payment_type, status, gateway_response, created_at, updated_at
		FROM payments
		WHERE tx_ref = $1 AND user_id = $2`,
		txRef, userID,
	)

	var (
		rec         models.Record
		paymentType string
		status      string
		gatewayJSON []byte
	)
	err := row.Scan(&rec.ID, &rec.UserID, &rec.TxRef, &rec.TransactionID,
		&rec.Amount, &rec.Currency, &paymentType, &status, &gatewayJSON,
		&rec.CreatedAt, &rec.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get payment: %w", err)
	}

	rec.PaymentType = models.Type(paymentType)
	rec.Status = models.Status(status)
	if len(gatewayJSON) > 0 {
		if err := json.Unmarshal(gatewayJSON, &rec.GatewayResponse); err != nil {
			return nil, fmt.Errorf("decode gateway response: %w", err)
		}
	}
	return &rec, nil
}

// CountByPair returns how many rows exist for a (tx_ref, user_id) pair.
func (s *Store) CountByPair(ctx context.Context, txRef, userID string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM payments WHERE tx_ref = $1 AND user_id = $2`,
		txRef, userID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count payments: %w", err)
	}
	return count, nil
}

func marshalGatewayResponse(m map[string]any) ([]byte, error) {
	if len(m) == 0 {
		return nil, nil
	}
	return json.Marshal(m)
}
