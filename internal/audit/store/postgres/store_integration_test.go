//go:build integration

package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"portalpay/internal/audit"
	"portalpay/pkg/testutil/containers"
)

const auditDDL = `
	CREATE TABLE IF NOT EXISTS payment_audit_log (
	    id             UUID PRIMARY KEY,
	    action         TEXT NOT NULL,
	    payment_id     TEXT,
	    tx_ref         TEXT,
	    transaction_id TEXT,
	    user_id        TEXT,
	    prev_status    TEXT,
	    new_status     TEXT,
	    success        BOOLEAN NOT NULL,
	    error_code     TEXT,
	    error_message  TEXT,
	    metadata       JSONB,
	    client_ip      TEXT,
	    user_agent     TEXT,
	    request_id     TEXT,
	    occurred_at    TIMESTAMPTZ NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_pal_request_id ON payment_audit_log (request_id);
	CREATE INDEX IF NOT EXISTS idx_pal_tx_ref ON payment_audit_log (tx_ref)`

type AuditStoreSuite struct {
	suite.Suite
	pg    *containers.PostgresContainer
	store *Store
}

func TestAuditStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(AuditStoreSuite))
}

func (s *AuditStoreSuite) SetupSuite() {
	s.pg = containers.NewPostgresContainer(s.T())
	s.pg.MustExec(s.T(), auditDDL)
	s.store = New(s.pg.DB)
}

func (s *AuditStoreSuite) SetupTest() {
	s.pg.MustExec(s.T(), "TRUNCATE payment_audit_log")
}

func (s *AuditStoreSuite) TestAppendFullEntry() {
	ctx := context.Background()
	entry := audit.Entry{
		ID:            uuid.NewString(),
		Action:        audit.ActionPaymentVerified,
		PaymentID:     uuid.NewString(),
		TxRef:         "TX-1",
		TransactionID: "812345",
		UserID:        "student-42",
		PrevStatus:    "pending",
		NewStatus:     "success",
		Success:       true,
		Metadata:      map[string]any{"amount": 5000.0, "currency": "NGN"},
		ClientIP:      "203.0.x.x",
		UserAgent:     "curl/8.5.0",
		RequestID:     "req-1",
		Timestamp:     time.Now().UTC(),
	}

	s.Require().NoError(s.store.Append(ctx, entry))

	var action, userID string
	var metadata []byte
	err := s.pg.DB.QueryRowContext(ctx,
		"SELECT action, user_id, metadata FROM payment_audit_log WHERE id = $1", entry.ID,
	).Scan(&action, &userID, &metadata)
	s.Require().NoError(err)
	s.Equal("payment_verified", action)
	s.Equal("student-42", userID)
	s.Contains(string(metadata), "NGN")
}

func (s *AuditStoreSuite) TestAppendStoresEmptyOptionalsAsNull() {
	ctx := context.Background()
	entry := audit.Entry{
		ID:        uuid.NewString(),
		Action:    audit.ActionValidationFailed,
		Timestamp: time.Now().UTC(),
	}

	s.Require().NoError(s.store.Append(ctx, entry))

	var nullCount int
	err := s.pg.DB.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM payment_audit_log
		WHERE id = $1 AND user_id IS NULL AND tx_ref IS NULL AND metadata IS NULL`,
		entry.ID,
	).Scan(&nullCount)
	s.Require().NoError(err)
	s.Equal(1, nullCount)
}
