package gateway

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "portalpay/pkg/domain-errors"
)

const successEnvelope = `{
	"status": "success",
	"message": "Transaction fetched successfully",
	"data": {
		"id": 812345,
		"tx_ref": "TX-REF_123",
		"flw_ref": "FLW-MOCK-1",
		"amount": 5000,
		"currency": "NGN",
		"status": "successful",
		"payment_type": "card",
		"created_at": "2026-03-14T09:00:00.000Z",
		"card": {"last_4digits": "2950"}
	}
}`

func TestVerifyTransactionSuccess(t *testing.T) {
	var gotPath, gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(successEnvelope))
	}))
	defer srv.Close()

	c, err := New(srv.URL, "sk_test_secret")
	require.NoError(t, err)

	got, err := c.VerifyTransaction(context.Background(), "812345")
	require.NoError(t, err)

	assert.Equal(t, "/v3/transactions/812345/verify", gotPath)
	assert.Equal(t, "Bearer sk_test_secret", gotAuth)
	assert.Equal(t, "812345", got.TransactionID)
	assert.Equal(t, "TX-REF_123", got.TxRef)
	assert.Equal(t, "FLW-MOCK-1", got.FlwRef)
	assert.Equal(t, 5000.0, got.Amount)
	assert.Equal(t, "NGN", got.Currency)
	assert.True(t, got.Successful())
	// Raw carries the full payload for the audit sanitizer.
	assert.Contains(t, got.Raw, "card")
}

func TestVerifyTransactionEscapesID(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.EscapedPath()
		_, _ = w.Write([]byte(successEnvelope))
	}))
	defer srv.Close()

	c, err := New(srv.URL, "sk_test_secret")
	require.NoError(t, err)

	_, err = c.VerifyTransaction(context.Background(), "8123/45")
	require.NoError(t, err)
	assert.Equal(t, "/v3/transactions/8123%2F45/verify", gotPath)
}

func TestVerifyTransactionNon2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"status":"error"}`, http.StatusNotFound)
	}))
	defer srv.Close()

	c, err := New(srv.URL, "sk_test_secret")
	require.NoError(t, err)

	_, err = c.VerifyTransaction(context.Background(), "812345")
	require.Error(t, err)
	assert.Equal(t, dErrors.CodeGateway, dErrors.CodeOf(err))
	assert.Contains(t, err.Error(), "404")
}

func TestVerifyTransactionProviderFailureStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":"error","message":"No transaction was found for this id"}`))
	}))
	defer srv.Close()

	c, err := New(srv.URL, "sk_test_secret")
	require.NoError(t, err)

	_, err = c.VerifyTransaction(context.Background(), "812345")
	require.Error(t, err)
	assert.Equal(t, dErrors.CodeGateway, dErrors.CodeOf(err))
	assert.Contains(t, err.Error(), "No transaction was found")
}

func TestVerifyTransactionMalformedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status": "succ`))
	}))
	defer srv.Close()

	c, err := New(srv.URL, "sk_test_secret")
	require.NoError(t, err)

	_, err = c.VerifyTransaction(context.Background(), "812345")
	require.Error(t, err)
	assert.Equal(t, dErrors.CodeGateway, dErrors.CodeOf(err))
}

func TestVerifyTransactionConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	c, err := New(srv.URL, "sk_test_secret")
	require.NoError(t, err)

	_, err = c.VerifyTransaction(context.Background(), "812345")
	require.Error(t, err)
	assert.Equal(t, dErrors.CodeGateway, dErrors.CodeOf(err))
}

func TestNewRequiresConfig(t *testing.T) {
	_, err := New("", "sk")
	assert.Error(t, err)

	_, err = New("https://api.example.com", "")
	assert.Error(t, err)
}
