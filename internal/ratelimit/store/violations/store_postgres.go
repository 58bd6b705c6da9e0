package violations

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"portalpay/internal/ratelimit/models"
)

// PostgresStore persists violation events in PostgreSQL.
//
// Schema:
//
//	CREATE TABLE rate_limit_violations (
//	    id          UUID PRIMARY KEY,
//	    identifier  TEXT NOT NULL,
//	    endpoint    TEXT NOT NULL,
//	    reason      TEXT NOT NULL,
//	    violations  INT  NOT NULL,
//	    limit_value INT  NOT NULL,
//	    occurred_at TIMESTAMPTZ NOT NULL
//	);
//	CREATE INDEX idx_rlv_occurred_at ON rate_limit_violations (occurred_at);
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed violation store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Record(ctx context.Context, v *models.Violation) error {
	if v == nil {
		return fmt.Errorf("violation is required")
	}
	const query = `
		INSERT INTO rate_limit_violations (id, identifier, endpoint, reason, violations, limit_value, occurred_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := s.db.ExecContext(ctx, query,
		v.ID, v.Identifier, v.Endpoint, string(v.Reason), v.Violations, v.Limit, v.OccurredAt,
	)
	if err != nil {
		return fmt.Errorf("record violation: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListRecent(ctx context.Context, limit int) ([]*models.Violation, error) {
	if limit <= 0 {
		limit = 50
	}
	const query = `
		SELECT id, identifier, endpoint, reason, violations, limit_value, occurred_at
		FROM rate_limit_violations
		ORDER BY occurred_at DESC
		LIMIT $1
	`
	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("list violations: %w", err)
	}
	defer rows.Close()

	var out []*models.Violation
	for rows.Next() {
		var v models.Violation
		var reason string
		if err := rows.Scan(&v.ID, &v.Identifier, &v.Endpoint, &reason, &v.Violations, &v.Limit, &v.OccurredAt); err != nil {
			return nil, fmt.Errorf("scan violation: %w", err)
		}
		v.Reason = models.Reason(reason)
		out = append(out, &v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate violations: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) Stats(ctx context.Context, since time.Time) (*models.Stats, error) {
	const query = `
		SELECT reason, COUNT(*), COUNT(DISTINCT identifier)
		FROM rate_limit_violations
		WHERE occurred_at >= $1
		GROUP BY reason
	`
	rows, err := s.db.QueryContext(ctx, query, since)
	if err != nil {
		return nil, fmt.Errorf("violation stats: %w", err)
	}
	defer rows.Close()

	stats := &models.Stats{
		ByReason: make(map[models.Reason]int),
		Since:    since,
	}
	for rows.Next() {
		var reason string
		var count, unique int
		if err := rows.Scan(&reason, &count, &unique); err != nil {
			return nil, fmt.Errorf("scan violation stats: %w", err)
		}
		stats.ByReason[models.Reason(reason)] = count
		stats.TotalViolations += count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate violation stats: %w", err)
	}

	// Distinct identifiers across all reasons needs its own aggregate; the
	// grouped query over-counts callers violating for multiple reasons.
	const uniqueQuery = `
		SELECT COUNT(DISTINCT identifier) FROM rate_limit_violations WHERE occurred_at >= $1
	`
	if err := s.db.QueryRowContext(ctx, uniqueQuery, since).Scan(&stats.UniqueIdentifiers); err != nil {
		return nil, fmt.Errorf("count unique identifiers: %w", err)
	}
	return stats, nil
}

func (s *PostgresStore) Purge(ctx context.Context, olderThan time.Time) (int64, error) {
	const query = `DELETE FROM rate_limit_violations WHERE occurred_at < $1`
	res, err := s.db.ExecContext(ctx, query, olderThan)
	if err != nil {
		return 0, fmt.Errorf("purge violations: %w", err)
	}
	removed, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("purge violations rows affected: %w", err)
	}
	return removed, nil
}
