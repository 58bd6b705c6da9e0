package student

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"portalpay/internal/payment/models"
)

func paid(txRef string, pt models.Type) *models.Record {
	return &models.Record{
		TxRef:       txRef,
		PaymentType: pt,
		Status:      models.StatusSuccess,
	}
}

func TestApplyPaymentCreatesProfile(t *testing.T) {
	s := NewMemory()
	ctx := context.Background()

	require.NoError(t, s.ApplyPayment(ctx, "student-42", paid("TX-1", models.TypeRegistration)))

	p, err := s.GetProfile(ctx, "student-42")
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, "success", p.Statuses[models.TypeRegistration])
	assert.Equal(t, []string{"TX-1"}, p.PaymentRefs)
}

func TestApplyPaymentAccumulatesTypes(t *testing.T) {
	s := NewMemory()
	ctx := context.Background()

	require.NoError(t, s.ApplyPayment(ctx, "student-42", paid("TX-1", models.TypeRegistration)))
	require.NoError(t, s.ApplyPayment(ctx, "student-42", paid("TX-2", models.TypeExam)))

	p, err := s.GetProfile(ctx, "student-42")
	require.NoError(t, err)
	assert.Equal(t, "success", p.Statuses[models.TypeRegistration])
	assert.Equal(t, "success", p.Statuses[models.TypeExam])
	assert.Equal(t, []string{"TX-1", "TX-2"}, p.PaymentRefs)
}

func TestApplyPaymentDeduplicatesRefs(t *testing.T) {
	s := NewMemory()
	ctx := context.Background()

	require.NoError(t, s.ApplyPayment(ctx, "student-42", paid("TX-1", models.TypeRegistration)))
	require.NoError(t, s.ApplyPayment(ctx, "student-42", paid("TX-2", models.TypeExam)))
	// A retried verification must not grow the refs list.
	require.NoError(t, s.ApplyPayment(ctx, "student-42", paid("TX-1", models.TypeRegistration)))

	p, err := s.GetProfile(ctx, "student-42")
	require.NoError(t, err)
	assert.Equal(t, []string{"TX-2", "TX-1"}, p.PaymentRefs)
}

func TestApplyPaymentRejectsUnknownType(t *testing.T) {
	s := NewMemory()
	err := s.ApplyPayment(context.Background(), "student-42", paid("TX-1", models.Type("bribery")))
	assert.Error(t, err)

	assert.Error(t, s.ApplyPayment(context.Background(), "student-42", nil))
}

func TestGetProfileMissing(t *testing.T) {
	s := NewMemory()
	p, err := s.GetProfile(context.Background(), "nobody")
	require.NoError(t, err)
	assert.Nil(t, p)
}

func TestGetProfileReturnsCopy(t *testing.T) {
	s := NewMemory()
	ctx := context.Background()
	require.NoError(t, s.ApplyPayment(ctx, "student-42", paid("TX-1", models.TypeCourse)))

	p, err := s.GetProfile(ctx, "student-42")
	require.NoError(t, err)
	p.PaymentRefs[0] = "mutated"
	p.Statuses[models.TypeCourse] = "mutated"

	fresh, err := s.GetProfile(ctx, "student-42")
	require.NoError(t, err)
	assert.Equal(t, []string{"TX-1"}, fresh.PaymentRefs)
	assert.Equal(t, "success", fresh.Statuses[models.TypeCourse])
}
