package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "portalpay/pkg/domain-errors"
)

func validRequest() *VerifyRequest {
	return &VerifyRequest{
		TransactionID: "812345",
		TxRef:         "TX-REF_123",
		UserID:        "student-42",
		PaymentType:   "exam",
	}
}

func TestVerifyRequestNormalize(t *testing.T) {
	r := &VerifyRequest{
		TransactionID: " 812345 ",
		TxRef:         "  TX-REF_123",
		UserID:        "student-42  ",
		PaymentType:   " EXAM ",
	}
	r.Normalize()

	assert.Equal(t, "812345", r.TransactionID)
	assert.Equal(t, "TX-REF_123", r.TxRef)
	assert.Equal(t, "student-42", r.UserID)
	assert.Equal(t, "exam", r.PaymentType)
}

func TestVerifyRequestValidate(t *testing.T) {
	r := validRequest()
	require.NoError(t, r.Validate())
	assert.Equal(t, TypeExam, r.ParsedType())
}

func TestVerifyRequestRequiredFieldsReportedFirst(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*VerifyRequest)
		message string
	}{
		{
			name:    "transaction id",
			mutate:  func(r *VerifyRequest) { r.TransactionID = "" },
			message: "transaction_id is required",
		},
		{
			name:    "tx ref",
			mutate:  func(r *VerifyRequest) { r.TxRef = "" },
			message: "tx_ref is required",
		},
		{
			name:    "user id",
			mutate:  func(r *VerifyRequest) { r.UserID = "" },
			message: "userId is required",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := validRequest()
			tt.mutate(r)

			err := r.Validate()
			require.Error(t, err)
			assert.Equal(t, dErrors.CodeValidation, dErrors.CodeOf(err))
			assert.Contains(t, err.Error(), tt.message)
		})
	}
}

func TestVerifyRequestSyntaxChecks(t *testing.T) {
	r := validRequest()
	r.TransactionID = "812 345"
	err := r.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "transaction_id")

	r = validRequest()
	r.TxRef = "tx ref!"
	assert.Error(t, r.Validate())

	r = validRequest()
	r.UserID = "user@example"
	assert.Error(t, r.Validate())

	r = validRequest()
	r.PaymentType = "bribery"
	assert.Error(t, r.Validate())
}

func TestVerifyRequestDefaultsPaymentType(t *testing.T) {
	r := validRequest()
	r.PaymentType = ""
	require.NoError(t, r.Validate())
	assert.Equal(t, TypeRegistration, r.ParsedType())
}

func TestVerifyRequestNil(t *testing.T) {
	var r *VerifyRequest
	err := r.Validate()
	require.Error(t, err)
	assert.Equal(t, dErrors.CodeBadRequest, dErrors.CodeOf(err))
}

func TestGatewayVerificationSuccessful(t *testing.T) {
	assert.True(t, (&GatewayVerification{Status: "successful"}).Successful())
	assert.True(t, (&GatewayVerification{Status: "SUCCESSFUL"}).Successful())
	assert.False(t, (&GatewayVerification{Status: "failed"}).Successful())
	assert.False(t, (&GatewayVerification{Status: "pending"}).Successful())
}

func TestStatusIsValid(t *testing.T) {
	assert.True(t, StatusSuccess.IsValid())
	assert.True(t, StatusPending.IsValid())
	assert.False(t, Status("refunded").IsValid())
}
