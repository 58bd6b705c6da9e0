package models

import (
	"time"

	"github.com/google/uuid"

	dErrors "portalpay/pkg/domain-errors"
)

// Tier distinguishes how an identifier was derived. Anonymous callers may be
// held to a stricter effective limit.
type Tier string

const (
	TierAuthenticated Tier = "authenticated"
	TierAnonymous     Tier = "anonymous"
)

// Reason explains a denied check.
type Reason string

const (
	// ReasonLimitExceeded: the sliding window is full.
	ReasonLimitExceeded Reason = "limit_exceeded"
	// ReasonPenaltyActive: the caller is inside an exponential-backoff window
	// from a prior violation.
	ReasonPenaltyActive Reason = "penalty_active"
)

// Policy describes the quota applied to one endpoint.
type Policy struct {
	Limit    int
	Window   time.Duration
	Endpoint string
	Tier     Tier
}

// Record is the per-(identifier, endpoint) limiter state. Stored both in the
// process-local cache and the durable store.
type Record struct {
	// Timestamps holds request times inside the active window; entries older
	// than the window are pruned on read, never counted.
	Timestamps []time.Time `json:"timestamps"`
	// Violations is monotonic; incremented on each over-limit attempt.
	Violations int `json:"violations"`
	// LastViolation is zero when the identifier has never violated.
	LastViolation time.Time `json:"last_violation,omitzero"`
	// ExpiresAt marks when the record may be dropped with no further activity.
	ExpiresAt time.Time `json:"expires_at"`
}

// Clone returns a deep copy. Callers that mutate a record in place must work
// on their own copy; the cache shares nothing with concurrent checks.
func (r *Record) Clone() *Record {
	if r == nil {
		return nil
	}
	out := *r
	out.Timestamps = append([]time.Time(nil), r.Timestamps...)
	return &out
}

// Prune drops timestamps at or before windowStart.
func (r *Record) Prune(windowStart time.Time) {
	i := 0
	for ; i < len(r.Timestamps); i++ {
		if r.Timestamps[i].After(windowStart) {
			break
		}
	}
	r.Timestamps = r.Timestamps[i:]
}

// MaxPenalty caps the exponential backoff at one hour.
const MaxPenalty = time.Hour

// PenaltyDuration computes min(base * 2^(violations-1), 1h).
// Zero violations means no penalty.
func (r *Record) PenaltyDuration(base time.Duration) time.Duration {
	if r.Violations <= 0 {
		return 0
	}
	shift := r.Violations - 1
	// 2^shift overflows a duration quickly; anything past the cap is the cap.
	if shift >= 12 {
		return MaxPenalty
	}
	penalty := base << shift
	if penalty > MaxPenalty || penalty <= 0 {
		return MaxPenalty
	}
	return penalty
}

// PenaltyRemaining returns how much of an active penalty is left at now,
// or zero when no penalty applies.
func (r *Record) PenaltyRemaining(base time.Duration, now time.Time) time.Duration {
	if r.LastViolation.IsZero() {
		return 0
	}
	until := r.LastViolation.Add(r.PenaltyDuration(base))
	if now.Before(until) {
		return until.Sub(now)
	}
	return 0
}

// Result is the outcome of one limiter check.
type Result struct {
	Allowed    bool      `json:"allowed"`
	Limit      int       `json:"limit"`
	Remaining  int       `json:"remaining"`
	ResetAt    time.Time `json:"reset_at"`
	RetryAfter int       `json:"retry_after,omitempty"` // seconds, only set when denied
	Reason     Reason    `json:"reason,omitempty"`
	Violations int       `json:"violations,omitempty"`
}

// Violation is a recorded over-limit or in-penalty attempt, persisted for
// admin reporting.
type Violation struct {
	ID         string    `json:"id"`
	Identifier string    `json:"identifier"`
	Endpoint   string    `json:"endpoint"`
	Reason     Reason    `json:"reason"`
	Violations int       `json:"violations"`
	Limit      int       `json:"limit"`
	OccurredAt time.Time `json:"occurred_at"`
}

// NewViolation creates a Violation with domain invariant validation.
func NewViolation(identifier, endpoint string, reason Reason, violations, limit int, occurredAt time.Time) (*Violation, error) {
	if identifier == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "identifier cannot be empty")
	}
	if endpoint == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "endpoint cannot be empty")
	}
	if reason != ReasonLimitExceeded && reason != ReasonPenaltyActive {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "invalid violation reason")
	}
	return &Violation{
		ID:         uuid.NewString(),
		Identifier: identifier,
		Endpoint:   endpoint,
		Reason:     reason,
		Violations: violations,
		Limit:      limit,
		OccurredAt: occurredAt,
	}, nil
}

// Stats aggregates violation history for the admin surface.
type Stats struct {
	TotalViolations   int            `json:"total_violations"`
	ByReason          map[Reason]int `json:"by_reason"`
	UniqueIdentifiers int            `json:"unique_identifiers"`
	Since             time.Time      `json:"since"`
}
