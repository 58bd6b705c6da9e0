// Package ports defines the narrow interfaces the payment verification
// service depends on, so stores and the gateway client can be swapped in
// tests.
package ports

import (
	"context"

	"portalpay/internal/audit"
	"portalpay/internal/payment/models"
	rlmodels "portalpay/internal/ratelimit/models"
)

// Gateway verifies a transaction against the external payment provider.
type Gateway interface {
	// VerifyTransaction calls the provider's verify-by-id endpoint. Transport
	// failures and non-2xx responses return a gateway-coded error.
	VerifyTransaction(ctx context.Context, transactionID string) (*models.GatewayVerification, error)
}

// PaymentStore persists payment records.
type PaymentStore interface {
	// UpsertVerified atomically creates or updates the record for its
	// (tx_ref, user_id) pair. Returns the stored record and whether a new row
	// was created.
	UpsertVerified(ctx context.Context, rec *models.Record) (*models.Record, bool, error)

	// GetByTxRef returns the record for a (tx_ref, user_id) pair, or nil when
	// none exists.
	GetByTxRef(ctx context.Context, txRef, userID string) (*models.Record, error)

	// CountByPair returns how many records exist for a (tx_ref, user_id)
	// pair. Anything above one indicates a duplicate-write bug.
	CountByPair(ctx context.Context, txRef, userID string) (int, error)
}

// StudentStore updates the denormalized payment state on student records.
// All writes here are best-effort relative to the primary payment write.
type StudentStore interface {
	// ApplyPayment sets the status field for the payment's type and maintains
	// the denormalized reference list, replacing any entry with the same
	// tx_ref.
	ApplyPayment(ctx context.Context, userID string, rec *models.Record) error
}

// RateLimiter gates verification calls per caller identifier.
type RateLimiter interface {
	Check(ctx context.Context, identifier string, pol rlmodels.Policy) *rlmodels.Result
}

// AuditPublisher is the non-blocking audit emission interface.
type AuditPublisher interface {
	Emit(ctx context.Context, entry audit.Entry)
}
