package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"portalpay/internal/audit"
)

// Store persists audit entries in PostgreSQL. The table is append-only; the
// application never updates or deletes rows.
//
// Schema:
//
//	CREATE TABLE payment_audit_log (
//	    id             UUID PRIMARY KEY,
//	    action         TEXT NOT NULL,
//	    payment_id     TEXT,
//	    tx_ref         TEXT,
//	    transaction_id TEXT,
//	    user_id        TEXT,
//	    prev_status    TEXT,
//	    new_status     TEXT,
//	    success        BOOLEAN NOT NULL,
//	    error_code     TEXT,
//	    error_message  TEXT,
//	    metadata       JSONB,
//	    client_ip      TEXT,
//	    user_agent     TEXT,
//	    request_id     TEXT,
//	    occurred_at    TIMESTAMPTZ NOT NULL
//	);
//	CREATE INDEX idx_pal_request_id ON payment_audit_log (request_id);
//	CREATE INDEX idx_pal_tx_ref ON payment_audit_log (tx_ref);
type Store struct {
	db *sql.DB
}

// New creates a PostgreSQL audit store.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// Append writes one audit entry.
func (s *Store) Append(ctx context.Context, entry audit.Entry) error {
	var metadata []byte
	if len(entry.Metadata) > 0 {
		var err error
		metadata, err = json.Marshal(entry.Metadata)
		if err != nil {
			return fmt.Errorf("marshal audit metadata: %w", err)
		}
	}

	const query = `
		INSERT INTO payment_audit_log (
			id, action, payment_id, tx_ref, transaction_id, user_id,
			prev_status, new_status, success, error_code, error_message,
			metadata, client_ip, user_agent, request_id, occurred_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
	`
	_, err := s.db.ExecContext(ctx, query,
		entry.ID,
		string(entry.Action),
		nullIfEmpty(entry.PaymentID),
		nullIfEmpty(entry.TxRef),
		nullIfEmpty(entry.TransactionID),
		nullIfEmpty(entry.UserID),
		nullIfEmpty(entry.PrevStatus),
		nullIfEmpty(entry.NewStatus),
		entry.Success,
		nullIfEmpty(entry.ErrorCode),
		nullIfEmpty(entry.ErrorMessage),
		metadata,
		nullIfEmpty(entry.ClientIP),
		nullIfEmpty(entry.UserAgent),
		nullIfEmpty(entry.RequestID),
		entry.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}
	return nil
}

func nullIfEmpty(v string) any {
	if v == "" {
		return nil
	}
	return v
}
