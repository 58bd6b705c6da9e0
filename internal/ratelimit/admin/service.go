// Package admin exposes operational controls over the rate limiter: violation
// reporting, targeted resets, full clears and log retention purges.
package admin

import (
	"context"
	"log/slog"
	"time"

	"portalpay/internal/audit"
	"portalpay/internal/ratelimit/limiter"
	"portalpay/internal/ratelimit/models"
	"portalpay/internal/ratelimit/observability"
	"portalpay/internal/ratelimit/ports"

	dErrors "portalpay/pkg/domain-errors"
)

const (
	defaultRecentLimit = 50
	maxRecentLimit     = 500
	defaultStatsWindow = 24 * time.Hour
)

type Service struct {
	limiter        *limiter.Limiter
	violations     ports.ViolationStore
	auditPublisher ports.AuditPublisher
	logger         *slog.Logger
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithAuditPublisher(publisher ports.AuditPublisher) Option {
	return func(s *Service) { s.auditPublisher = publisher }
}

func New(lim *limiter.Limiter, violations ports.ViolationStore, opts ...Option) (*Service, error) {
	if lim == nil {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "limiter is required")
	}
	if violations == nil {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "violation store is required")
	}

	s := &Service{limiter: lim, violations: violations}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Overview is the admin report: aggregate stats plus the newest violations.
type Overview struct {
	Stats  *models.Stats       `json:"stats"`
	Recent []*models.Violation `json:"recent_violations"`
}

func (s *Service) Overview(ctx context.Context, since time.Time, limit int) (*Overview, error) {
	if since.IsZero() {
		since = time.Now().Add(-defaultStatsWindow)
	}
	if limit <= 0 {
		limit = defaultRecentLimit
	}
	if limit > maxRecentLimit {
		limit = maxRecentLimit
	}

	stats, err := s.violations.Stats(ctx, since)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to aggregate violation stats")
	}
	recent, err := s.violations.ListRecent(ctx, limit)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list recent violations")
	}
	return &Overview{Stats: stats, Recent: recent}, nil
}

// Reset clears limiter state for one identifier and endpoint.
func (s *Service) Reset(ctx context.Context, identifier, endpoint string) error {
	if identifier == "" {
		return dErrors.New(dErrors.CodeValidation, "identifier is required")
	}
	if endpoint == "" {
		return dErrors.New(dErrors.CodeValidation, "endpoint is required")
	}
	return s.limiter.Reset(ctx, identifier, endpoint)
}

// ClearAll drops all cached limiter state.
func (s *Service) ClearAll(ctx context.Context) {
	s.limiter.ClearAll(ctx)
}

// Purge removes violation history older than the given number of days.
func (s *Service) Purge(ctx context.Context, olderThanDays int) (int64, error) {
	if olderThanDays <= 0 {
		return 0, dErrors.New(dErrors.CodeValidation, "older_than_days must be positive")
	}

	cutoff := time.Now().AddDate(0, 0, -olderThanDays)
	removed, err := s.violations.Purge(ctx, cutoff)
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to purge violations")
	}

	observability.LogAudit(ctx, s.logger, s.auditPublisher, audit.ActionViolationsPurged,
		"older_than_days", olderThanDays,
		"removed", removed,
	)
	return removed, nil
}
