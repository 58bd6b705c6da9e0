package httputil

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "portalpay/pkg/domain-errors"
)

func decode(t *testing.T, rr *httptest.ResponseRecorder) map[string]string {
	t.Helper()
	out := map[string]string{}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out))
	return out
}

func TestWriteJSON(t *testing.T) {
	rr := httptest.NewRecorder()
	WriteJSON(rr, http.StatusCreated, map[string]string{"status": "ok"})

	assert.Equal(t, http.StatusCreated, rr.Code)
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))
	assert.Equal(t, "ok", decode(t, rr)["status"])
}

func TestWriteErrorValidation(t *testing.T) {
	rr := httptest.NewRecorder()
	WriteError(rr, dErrors.New(dErrors.CodeValidation, "tx_ref is required"))

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	body := decode(t, rr)
	assert.Equal(t, "validation_error", body["error"])
	assert.Equal(t, "tx_ref is required", body["error_description"])
}

func TestWriteErrorHidesInternalDetail(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{
			name:       "internal",
			err:        dErrors.Wrap(errors.New("pq: connection refused"), dErrors.CodeInternal, "db down"),
			wantStatus: http.StatusInternalServerError,
			wantCode:   "internal_error",
		},
		{
			name:       "gateway",
			err:        dErrors.New(dErrors.CodeGateway, "gateway returned status 502"),
			wantStatus: http.StatusInternalServerError,
			wantCode:   "gateway_error",
		},
		{
			name:       "plain error treated as internal",
			err:        errors.New("nil pointer somewhere"),
			wantStatus: http.StatusInternalServerError,
			wantCode:   "internal_error",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			WriteError(rr, tt.err)

			assert.Equal(t, tt.wantStatus, rr.Code)
			body := decode(t, rr)
			assert.Equal(t, tt.wantCode, body["error"])
			assert.Empty(t, body["error_description"])
		})
	}
}

func TestWriteErrorStatusMapping(t *testing.T) {
	rr := httptest.NewRecorder()
	WriteError(rr, dErrors.New(dErrors.CodeRateLimited, "too many requests"))
	assert.Equal(t, http.StatusTooManyRequests, rr.Code)

	rr = httptest.NewRecorder()
	WriteError(rr, dErrors.New(dErrors.CodeForbidden, "invalid admin token"))
	assert.Equal(t, http.StatusForbidden, rr.Code)
}
