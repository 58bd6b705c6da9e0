//go:build integration

package postgres

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"

	"portalpay/internal/payment/models"
	"portalpay/pkg/testutil/containers"
)

const paymentsDDL = `
	CREATE TABLE IF NOT EXISTS payments (
	    id               UUID PRIMARY KEY,
	    user_id          TEXT NOT NULL,
	    tx_ref           TEXT NOT NULL,
	    transaction_id   TEXT NOT NULL,
	    amount           NUMERIC NOT NULL,
	    currency         TEXT NOT NULL,
	    payment_type     TEXT NOT NULL,
	    status           TEXT NOT NULL,
	    gateway_response JSONB,
	    created_at       TIMESTAMPTZ NOT NULL,
	    updated_at       TIMESTAMPTZ NOT NULL,
	    UNIQUE (tx_ref, user_id)
	)`

type PaymentStoreSuite struct {
	suite.Suite
	pg    *containers.PostgresContainer
	store *Store
}

func TestPaymentStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PaymentStoreSuite))
}

func (s *PaymentStoreSuite) SetupSuite() {
	s.pg = containers.NewPostgresContainer(s.T())
	s.pg.MustExec(s.T(), paymentsDDL)
	s.store = New(s.pg.DB)
}

func (s *PaymentStoreSuite) SetupTest() {
	s.pg.MustExec(s.T(), "TRUNCATE payments")
}

func (s *PaymentStoreSuite) record(txRef, userID string) *models.Record {
	return &models.Record{
		UserID:        userID,
		TxRef:         txRef,
		TransactionID: "812345",
		Amount:        5000,
		Currency:      "NGN",
		PaymentType:   models.TypeRegistration,
		Status:        models.StatusSuccess,
		GatewayResponse: map[string]any{
			"status": "successful",
			"tx_ref": txRef,
		},
	}
}

func (s *PaymentStoreSuite) TestUpsertInsertsThenUpdates() {
	ctx := context.Background()

	first, created, err := s.store.UpsertVerified(ctx, s.record("TX-1", "student-42"))
	s.Require().NoError(err)
	s.True(created)
	s.NotEmpty(first.ID)

	retry := s.record("TX-1", "student-42")
	retry.Amount = 7500
	second, created, err := s.store.UpsertVerified(ctx, retry)
	s.Require().NoError(err)
	s.False(created)
	s.Equal(first.ID, second.ID)
	s.True(first.CreatedAt.Equal(second.CreatedAt))

	count, err := s.store.CountByPair(ctx, "TX-1", "student-42")
	s.Require().NoError(err)
	s.Equal(1, count)
}

func (s *PaymentStoreSuite) TestConcurrentUpsertsResolveToOneRow() {
	ctx := context.Background()

	results := make(chan error, 8)
	for i := 0; i < 8; i++ {
		go func() {
			_, _, err := s.store.UpsertVerified(ctx, s.record("TX-RACE", "student-42"))
			results <- err
		}()
	}
	for i := 0; i < 8; i++ {
		s.Require().NoError(<-results)
	}

	count, err := s.store.CountByPair(ctx, "TX-RACE", "student-42")
	s.Require().NoError(err)
	s.Equal(1, count)
}

func (s *PaymentStoreSuite) TestSameRefDifferentUsersAreDistinctRows() {
	ctx := context.Background()

	_, created, err := s.store.UpsertVerified(ctx, s.record("TX-1", "student-42"))
	s.Require().NoError(err)
	s.True(created)

	_, created, err = s.store.UpsertVerified(ctx, s.record("TX-1", "student-99"))
	s.Require().NoError(err)
	s.True(created)
}

func (s *PaymentStoreSuite) TestGetByTxRefRoundTrip() {
	ctx := context.Background()

	_, _, err := s.store.UpsertVerified(ctx, s.record("TX-1", "student-42"))
	s.Require().NoError(err)

	got, err := s.store.GetByTxRef(ctx, "TX-1", "student-42")
	s.Require().NoError(err)
	s.Require().NotNil(got)
	s.Equal("student-42", got.UserID)
	s.Equal(models.StatusSuccess, got.Status)
	s.Equal(models.TypeRegistration, got.PaymentType)
	s.Equal("successful", got.GatewayResponse["status"])

	missing, err := s.store.GetByTxRef(ctx, "TX-missing", "student-42")
	s.Require().NoError(err)
	s.Nil(missing)
}
