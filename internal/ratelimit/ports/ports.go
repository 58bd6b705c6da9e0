package ports

import (
	"context"
	"time"

	"portalpay/internal/audit"
	"portalpay/internal/ratelimit/models"
)

// RecordStore is the durable persistence interface for limiter records.
// Keys are simple strings; validation happens at the boundary.
type RecordStore interface {
	// Get returns the record for a key, or nil when none exists.
	Get(ctx context.Context, key string) (*models.Record, error)

	// Put stores a record with the given retention.
	Put(ctx context.Context, key string, record *models.Record, ttl time.Duration) error

	// Delete removes the record for a key.
	Delete(ctx context.Context, key string) error
}

// ViolationStore persists violation events for admin reporting.
type ViolationStore interface {
	// Record appends a violation event.
	Record(ctx context.Context, v *models.Violation) error

	// ListRecent returns the newest violations, capped at limit.
	ListRecent(ctx context.Context, limit int) ([]*models.Violation, error)

	// Stats aggregates violations since the given time.
	Stats(ctx context.Context, since time.Time) (*models.Stats, error)

	// Purge removes violations older than the cutoff. Returns rows removed.
	Purge(ctx context.Context, olderThan time.Time) (int64, error)
}

// AuditPublisher is the non-blocking audit emission interface.
type AuditPublisher interface {
	Emit(ctx context.Context, entry audit.Entry)
}
