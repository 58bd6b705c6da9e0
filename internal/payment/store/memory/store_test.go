package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"portalpay/internal/payment/models"
	"portalpay/pkg/requestcontext"
)

func verified(txRef, userID string) *models.Record {
	return &models.Record{
		UserID:        userID,
		TxRef:         txRef,
		TransactionID: "812345",
		Amount:        5000,
		Currency:      "NGN",
		PaymentType:   models.TypeRegistration,
		Status:        models.StatusSuccess,
	}
}

func TestUpsertVerifiedInsertsOnce(t *testing.T) {
	s := New()
	now := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	ctx := requestcontext.WithTime(context.Background(), now)

	stored, created, err := s.UpsertVerified(ctx, verified("TX-1", "student-42"))
	require.NoError(t, err)
	assert.True(t, created)
	assert.NotEmpty(t, stored.ID)
	assert.Equal(t, now, stored.CreatedAt)

	count, err := s.CountByPair(ctx, "TX-1", "student-42")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestUpsertVerifiedUpdatesInPlace(t *testing.T) {
	s := New()
	first := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	ctx := requestcontext.WithTime(context.Background(), first)

	original, _, err := s.UpsertVerified(ctx, verified("TX-1", "student-42"))
	require.NoError(t, err)

	later := first.Add(time.Hour)
	retry := verified("TX-1", "student-42")
	retry.Amount = 7500
	stored, created, err := s.UpsertVerified(requestcontext.WithTime(context.Background(), later), retry)
	require.NoError(t, err)

	assert.False(t, created)
	assert.Equal(t, original.ID, stored.ID)
	assert.Equal(t, 7500.0, stored.Amount)
	assert.Equal(t, first, stored.CreatedAt)
	assert.Equal(t, later, stored.UpdatedAt)

	count, err := s.CountByPair(ctx, "TX-1", "student-42")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestPairsAreIndependent(t *testing.T) {
	s := New()
	ctx := context.Background()

	_, created, err := s.UpsertVerified(ctx, verified("TX-1", "student-42"))
	require.NoError(t, err)
	assert.True(t, created)

	// Same reference claimed by a different user is a distinct row.
	_, created, err = s.UpsertVerified(ctx, verified("TX-1", "student-99"))
	require.NoError(t, err)
	assert.True(t, created)

	rec, err := s.GetByTxRef(ctx, "TX-1", "student-99")
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, "student-99", rec.UserID)
}

func TestGetByTxRefMissing(t *testing.T) {
	s := New()
	rec, err := s.GetByTxRef(context.Background(), "TX-missing", "student-42")
	require.NoError(t, err)
	assert.Nil(t, rec)
}
