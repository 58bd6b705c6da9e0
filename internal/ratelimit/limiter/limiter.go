// Package limiter implements the sliding-window rate limiter with
// exponential backoff penalties.
//
// Each (identifier, endpoint) pair owns a Record holding the request
// timestamps inside the active window and a monotonic violation count. A
// check runs through three states: Clear (under limit), Limited (window
// full, this attempt becomes a violation) and Penalized (inside the backoff
// window of a prior violation). Records are read through a process-local
// cache backed by a durable store so limits survive restarts; the cache is
// intentionally not shared across instances.
//
// The limiter fails open: storage errors and internal faults allow the
// request rather than blocking legitimate traffic on a limiter bug.
package limiter

import (
	"context"
	"log/slog"
	"math"
	"sync/atomic"
	"time"

	"portalpay/internal/audit"
	"portalpay/internal/ratelimit/metrics"
	"portalpay/internal/ratelimit/models"
	"portalpay/internal/ratelimit/observability"
	"portalpay/internal/ratelimit/ports"
	"portalpay/internal/ratelimit/store/memory"
	"portalpay/pkg/requestcontext"

	dErrors "portalpay/pkg/domain-errors"
)

// DefaultBaseBackoff seeds the exponential penalty when none is configured.
const DefaultBaseBackoff = 60 * time.Second

type Limiter struct {
	cache          *memory.Cache
	durable        ports.RecordStore
	violations     ports.ViolationStore
	auditPublisher ports.AuditPublisher
	logger         *slog.Logger
	metrics        *metrics.Metrics

	baseBackoff time.Duration
	strict      bool
	disabled    bool

	seenEvictions atomic.Int64
}

type Option func(*Limiter)

func WithLogger(logger *slog.Logger) Option {
	return func(l *Limiter) { l.logger = logger }
}

// WithDurableStore sets the cross-instance record store. Without one the
// limiter is cache-only and state does not survive restarts.
func WithDurableStore(store ports.RecordStore) Option {
	return func(l *Limiter) { l.durable = store }
}

func WithViolationStore(store ports.ViolationStore) Option {
	return func(l *Limiter) { l.violations = store }
}

func WithAuditPublisher(publisher ports.AuditPublisher) Option {
	return func(l *Limiter) { l.auditPublisher = publisher }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(l *Limiter) { l.metrics = m }
}

func WithBaseBackoff(d time.Duration) Option {
	return func(l *Limiter) {
		if d > 0 {
			l.baseBackoff = d
		}
	}
}

// WithStrict halves the effective limit for anonymous callers.
func WithStrict(strict bool) Option {
	return func(l *Limiter) { l.strict = strict }
}

// WithDisabled turns every check into an allow (demo/load-test mode).
func WithDisabled(disabled bool) Option {
	return func(l *Limiter) { l.disabled = disabled }
}

func New(cache *memory.Cache, opts ...Option) (*Limiter, error) {
	if cache == nil {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "record cache is required")
	}

	l := &Limiter{
		cache:       cache,
		baseBackoff: DefaultBaseBackoff,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l, nil
}

// Check evaluates one request against the policy. It never returns an error
// and never panics outward: any internal fault yields an allow.
func (l *Limiter) Check(ctx context.Context, identifier string, pol models.Policy) (result *models.Result) {
	effLimit := l.effectiveLimit(pol)

	defer func() {
		if r := recover(); r != nil {
			if l.logger != nil {
				l.logger.ErrorContext(ctx, "rate limiter panic, failing open",
					"panic", r,
					"identifier", identifier,
					"endpoint", pol.Endpoint,
				)
			}
			if l.metrics != nil {
				l.metrics.RecordFailOpen()
			}
			result = l.allowAll(ctx, effLimit, pol)
		}
	}()

	if l.disabled || identifier == "" || pol.Limit <= 0 || pol.Window <= 0 {
		return l.allowAll(ctx, effLimit, pol)
	}

	now := requestcontext.Now(ctx)
	key := models.NewRecordKey(identifier, pol.Endpoint).String()

	rec := l.cache.Get(key, now)
	if rec == nil && l.durable != nil {
		stored, err := l.durable.Get(ctx, key)
		if err != nil {
			// Fail open for storage errors: proceed as if no record existed.
			if l.logger != nil {
				l.logger.WarnContext(ctx, "durable rate limit read failed",
					"error", err,
					"endpoint", pol.Endpoint,
				)
			}
			if l.metrics != nil {
				l.metrics.RecordFailOpen()
			}
		} else {
			rec = stored
		}
	}
	if rec == nil {
		rec = &models.Record{}
	}

	rec.Prune(now.Add(-pol.Window))

	// Penalized: inside the backoff window of a prior violation. The attempt
	// does not consume a request slot.
	if remaining := rec.PenaltyRemaining(l.baseBackoff, now); remaining > 0 {
		l.recordViolation(ctx, identifier, pol, models.ReasonPenaltyActive, rec, effLimit, now)
		observability.LogAudit(ctx, l.logger, l.auditPublisher, audit.ActionPenaltyActive,
			"identifier", identifier,
			"endpoint", pol.Endpoint,
			"violations", rec.Violations,
		)
		if l.metrics != nil {
			l.metrics.RecordCheck("penalized")
		}
		return &models.Result{
			Allowed:    false,
			Limit:      effLimit,
			Remaining:  0,
			ResetAt:    rec.LastViolation.Add(rec.PenaltyDuration(l.baseBackoff)),
			RetryAfter: ceilSeconds(remaining),
			Reason:     models.ReasonPenaltyActive,
			Violations: rec.Violations,
		}
	}

	// Clear: consume a slot.
	if len(rec.Timestamps) < effLimit {
		rec.Timestamps = append(rec.Timestamps, now)
		rec.ExpiresAt = now.Add(pol.Window)
		l.persist(ctx, key, rec, now)
		if l.metrics != nil {
			l.metrics.RecordCheck("allowed")
		}
		return &models.Result{
			Allowed:   true,
			Limit:     effLimit,
			Remaining: effLimit - len(rec.Timestamps),
			ResetAt:   rec.Timestamps[0].Add(pol.Window),
		}
	}

	// Limited: window is full, this attempt becomes a violation.
	rec.Violations++
	rec.LastViolation = now
	penalty := rec.PenaltyDuration(l.baseBackoff)
	rec.ExpiresAt = now.Add(pol.Window + penalty)
	l.persist(ctx, key, rec, now)
	l.recordViolation(ctx, identifier, pol, models.ReasonLimitExceeded, rec, effLimit, now)
	observability.LogAudit(ctx, l.logger, l.auditPublisher, audit.ActionRateLimitExceeded,
		"identifier", identifier,
		"endpoint", pol.Endpoint,
		"violations", rec.Violations,
	)
	if l.metrics != nil {
		l.metrics.RecordCheck("limited")
	}
	return &models.Result{
		Allowed:    false,
		Limit:      effLimit,
		Remaining:  0,
		ResetAt:    now.Add(penalty),
		RetryAfter: ceilSeconds(penalty),
		Reason:     models.ReasonLimitExceeded,
		Violations: rec.Violations,
	}
}

// Reset clears the record for one identifier and endpoint in both the cache
// and the durable store.
func (l *Limiter) Reset(ctx context.Context, identifier, endpoint string) error {
	key := models.NewRecordKey(identifier, endpoint).String()
	l.cache.Delete(key)
	if l.durable != nil {
		if err := l.durable.Delete(ctx, key); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to reset rate limit record")
		}
	}
	observability.LogAudit(ctx, l.logger, l.auditPublisher, audit.ActionRateLimitReset,
		"identifier", identifier,
		"endpoint", endpoint,
	)
	return nil
}

// ClearAll drops all in-memory limiter state. Durable records are NOT
// removed and will be re-read on the next cache miss until they expire; a
// full reset of a specific caller needs Reset. Operational limitation,
// acceptable for the admin "clear everything now" lever.
func (l *Limiter) ClearAll(ctx context.Context) {
	l.cache.Clear()
	observability.LogAudit(ctx, l.logger, l.auditPublisher, audit.ActionRateLimitCleared)
}

func (l *Limiter) effectiveLimit(pol models.Policy) int {
	if l.strict && pol.Tier == models.TierAnonymous {
		return max(1, pol.Limit/2)
	}
	return pol.Limit
}

func (l *Limiter) allowAll(ctx context.Context, effLimit int, pol models.Policy) *models.Result {
	return &models.Result{
		Allowed:   true,
		Limit:     effLimit,
		Remaining: effLimit,
		ResetAt:   requestcontext.Now(ctx).Add(pol.Window),
	}
}

// persist writes the record to the cache and, best-effort, to the durable
// store. A durable write failure never denies the request.
func (l *Limiter) persist(ctx context.Context, key string, rec *models.Record, now time.Time) {
	l.cache.Put(key, rec, now)
	if l.metrics != nil {
		if total := l.cache.Evictions(); total > 0 {
			if prev := l.seenEvictions.Swap(total); total > prev {
				l.metrics.CacheEvictions.Add(float64(total - prev))
			}
		}
	}

	if l.durable == nil {
		return
	}
	ttl := rec.ExpiresAt.Sub(now) + time.Minute
	if err := l.durable.Put(ctx, key, rec, ttl); err != nil && l.logger != nil {
		l.logger.WarnContext(ctx, "durable rate limit write failed",
			"error", err,
		)
	}
}

func (l *Limiter) recordViolation(ctx context.Context, identifier string, pol models.Policy, reason models.Reason, rec *models.Record, effLimit int, now time.Time) {
	if l.metrics != nil {
		l.metrics.RecordViolation(string(reason))
	}
	if l.violations == nil {
		return
	}
	v, err := models.NewViolation(identifier, pol.Endpoint, reason, rec.Violations, effLimit, now)
	if err != nil {
		return
	}
	if err := l.violations.Record(ctx, v); err != nil && l.logger != nil {
		l.logger.WarnContext(ctx, "violation record write failed", "error", err)
	}
}

func ceilSeconds(d time.Duration) int {
	return int(math.Ceil(d.Seconds()))
}
