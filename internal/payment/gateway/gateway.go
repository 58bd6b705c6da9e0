// Package gateway is the HTTP client for the external payment provider's
// transaction verification API.
package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"portalpay/internal/payment/models"

	dErrors "portalpay/pkg/domain-errors"
)

const defaultTimeout = 15 * time.Second

// Client verifies transactions via GET {base}/v3/transactions/{id}/verify
// with a bearer secret key.
type Client struct {
	baseURL    string
	secretKey  string
	httpClient *http.Client
}

type Option func(*Client)

// WithHTTPClient overrides the underlying client, mainly for tests.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.httpClient.Timeout = timeout
		}
	}
}

func New(baseURL, secretKey string, opts ...Option) (*Client, error) {
	if baseURL == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "gateway base URL is required")
	}
	if secretKey == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "gateway secret key is required")
	}

	c := &Client{
		baseURL:    baseURL,
		secretKey:  secretKey,
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// verifyEnvelope is the provider's response shape. Data is decoded twice:
// once typed for domain checks, once raw for audit sanitization.
type verifyEnvelope struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type verifyData struct {
	ID          json.Number `json:"id"`
	TxRef       string      `json:"tx_ref"`
	FlwRef      string      `json:"flw_ref"`
	Amount      float64     `json:"amount"`
	Currency    string      `json:"currency"`
	Status      string      `json:"status"`
	PaymentType string      `json:"payment_type"`
	CreatedAt   string      `json:"created_at"`
}

// VerifyTransaction calls the provider's verify endpoint. Every failure mode
// (transport, non-2xx, malformed body, provider-level error status) comes
// back as a gateway-coded error so callers surface a uniform 5xx.
func (c *Client) VerifyTransaction(ctx context.Context, transactionID string) (*models.GatewayVerification, error) {
	endpoint := fmt.Sprintf("%s/v3/transactions/%s/verify", c.baseURL, url.PathEscape(transactionID))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeGateway, "failed to build gateway request")
	}
	req.Header.Set("Authorization", "Bearer "+c.secretKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeGateway, "gateway request failed")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeGateway, "failed to read gateway response")
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, dErrors.Newf(dErrors.CodeGateway, "gateway returned status %d", resp.StatusCode)
	}

	var envelope verifyEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeGateway, "failed to decode gateway response")
	}
	if envelope.Status != "success" {
		return nil, dErrors.Newf(dErrors.CodeGateway, "gateway reported failure: %s", envelope.Message)
	}

	var data verifyData
	if err := json.Unmarshal(envelope.Data, &data); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeGateway, "failed to decode gateway transaction data")
	}

	var raw map[string]any
	// Best-effort; the typed fields above are authoritative.
	_ = json.Unmarshal(envelope.Data, &raw)

	return &models.GatewayVerification{
		TransactionID: data.ID.String(),
		TxRef:         data.TxRef,
		FlwRef:        data.FlwRef,
		Amount:        data.Amount,
		Currency:      data.Currency,
		Status:        data.Status,
		PaymentType:   data.PaymentType,
		CreatedAt:     data.CreatedAt,
		Raw:           raw,
	}, nil
}
