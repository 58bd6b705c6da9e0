package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPenaltyDuration(t *testing.T) {
	base := 60 * time.Second
	tests := []struct {
		violations int
		want       time.Duration
	}{
		{violations: 0, want: 0},
		{violations: 1, want: 60 * time.Second},
		{violations: 2, want: 120 * time.Second},
		{violations: 3, want: 240 * time.Second},
		{violations: 7, want: MaxPenalty},
		{violations: 10, want: MaxPenalty},
		{violations: 100, want: MaxPenalty},
	}
	for _, tt := range tests {
		r := Record{Violations: tt.violations}
		assert.Equal(t, tt.want, r.PenaltyDuration(base), "violations=%d", tt.violations)
	}
}

func TestPenaltyRemaining(t *testing.T) {
	base := 60 * time.Second
	now := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)

	r := Record{Violations: 1, LastViolation: now.Add(-20 * time.Second)}
	assert.Equal(t, 40*time.Second, r.PenaltyRemaining(base, now))

	expired := Record{Violations: 1, LastViolation: now.Add(-2 * time.Minute)}
	assert.Zero(t, expired.PenaltyRemaining(base, now))

	clean := Record{}
	assert.Zero(t, clean.PenaltyRemaining(base, now))
}

func TestRecordPrune(t *testing.T) {
	now := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	r := Record{Timestamps: []time.Time{
		now.Add(-90 * time.Second),
		now.Add(-61 * time.Second),
		now.Add(-30 * time.Second),
		now,
	}}

	r.Prune(now.Add(-time.Minute))
	require.Len(t, r.Timestamps, 2)
	assert.Equal(t, now.Add(-30*time.Second), r.Timestamps[0])
}

func TestNewViolation(t *testing.T) {
	now := time.Now()

	v, err := NewViolation("user:alice", "verify-payment", ReasonLimitExceeded, 3, 10, now)
	require.NoError(t, err)
	assert.NotEmpty(t, v.ID)
	assert.Equal(t, 3, v.Violations)

	_, err = NewViolation("", "verify-payment", ReasonLimitExceeded, 1, 10, now)
	assert.Error(t, err)

	_, err = NewViolation("user:alice", "", ReasonLimitExceeded, 1, 10, now)
	assert.Error(t, err)

	_, err = NewViolation("user:alice", "verify-payment", Reason("made_up"), 1, 10, now)
	assert.Error(t, err)
}

func TestRecordClone(t *testing.T) {
	now := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	original := &Record{
		Timestamps:    []time.Time{now.Add(-30 * time.Second), now},
		Violations:    2,
		LastViolation: now,
		ExpiresAt:     now.Add(time.Minute),
	}

	clone := original.Clone()
	clone.Prune(now.Add(-time.Second))
	clone.Timestamps = append(clone.Timestamps, now, now)
	clone.Violations = 7

	assert.Len(t, original.Timestamps, 2)
	assert.Equal(t, now.Add(-30*time.Second), original.Timestamps[0])
	assert.Equal(t, 2, original.Violations)

	var nilRecord *Record
	assert.Nil(t, nilRecord.Clone())
}

func TestRecordKeySanitizesSegments(t *testing.T) {
	key := NewRecordKey("user:alice", "verify-payment")
	assert.Equal(t, "user_alice:verify-payment", key.String())
}
