// Package audit captures the payment lifecycle as an append-only event
// stream. Entries are emitted fire-and-forget: a failure to record an event
// must never fail, block, or slow down the operation being recorded.
package audit

import (
	"time"

	"github.com/google/uuid"
)

// Action is the fixed event taxonomy. New actions are added here, never
// invented inline at call sites.
type Action string

const (
	// Payment lifecycle
	ActionPaymentInitiated    Action = "payment_initiated"
	ActionPaymentVerified     Action = "payment_verified"
	ActionPaymentFailed       Action = "payment_failed"
	ActionPaymentStatusChange Action = "payment_status_change"

	// Verification steps
	ActionValidationFailed   Action = "validation_failed"
	ActionGatewayCallSuccess Action = "gateway_call_success"
	ActionGatewayCallFailed  Action = "gateway_call_failed"
	ActionTxRefMismatch      Action = "tx_ref_mismatch"
	ActionDBWriteSuccess     Action = "db_write_success"
	ActionDBWriteFailed      Action = "db_write_failed"
	ActionUserUpdateFailed   Action = "user_update_failed"

	// Rate limiting
	ActionRateLimitExceeded Action = "rate_limit_exceeded"
	ActionPenaltyActive     Action = "penalty_active"

	// Administration
	ActionRateLimitReset   Action = "rate_limit_reset"
	ActionRateLimitCleared Action = "rate_limit_cleared"
	ActionViolationsPurged Action = "violations_purged"
)

// IsValid checks membership in the taxonomy.
func (a Action) IsValid() bool {
	switch a {
	case ActionPaymentInitiated, ActionPaymentVerified, ActionPaymentFailed,
		ActionPaymentStatusChange, ActionValidationFailed,
		ActionGatewayCallSuccess, ActionGatewayCallFailed, ActionTxRefMismatch,
		ActionDBWriteSuccess, ActionDBWriteFailed, ActionUserUpdateFailed,
		ActionRateLimitExceeded, ActionPenaltyActive,
		ActionRateLimitReset, ActionRateLimitCleared, ActionViolationsPurged:
		return true
	}
	return false
}

// Entry is one immutable audit record. Empty optional fields are stripped
// from the stored document to keep rows compact.
type Entry struct {
	ID            string         `json:"id"`
	Action        Action         `json:"action"`
	PaymentID     string         `json:"payment_id,omitempty"`
	TxRef         string         `json:"tx_ref,omitempty"`
	TransactionID string         `json:"transaction_id,omitempty"`
	UserID        string         `json:"user_id,omitempty"`
	PrevStatus    string         `json:"prev_status,omitempty"`
	NewStatus     string         `json:"new_status,omitempty"`
	Success       bool           `json:"success"`
	ErrorCode     string         `json:"error_code,omitempty"`
	ErrorMessage  string         `json:"error_message,omitempty"`
	Metadata      map[string]any `json:"metadata,omitempty"`
	ClientIP      string         `json:"client_ip,omitempty"`
	UserAgent     string         `json:"user_agent,omitempty"`
	RequestID     string         `json:"request_id,omitempty"`
	Timestamp     time.Time      `json:"timestamp"`
}

// fill assigns defaults the caller may omit.
func (e *Entry) fill() {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}
}

// gatewayAllowedFields is the allow-list applied to gateway response payloads
// before they reach the audit store: status, reference identifiers, amounts,
// currency and timestamps survive; card, account and customer PII does not.
var gatewayAllowedFields = map[string]struct{}{
	"id":                 {},
	"status":             {},
	"tx_ref":             {},
	"flw_ref":            {},
	"reference":          {},
	"amount":             {},
	"charged_amount":     {},
	"app_fee":            {},
	"currency":           {},
	"payment_type":       {},
	"narration":          {},
	"created_at":         {},
	"processor_response": {},
}

// SanitizeGatewayResponse keeps only the allow-listed, non-sensitive fields
// of a gateway payload. Nil and empty values are dropped.
func SanitizeGatewayResponse(payload map[string]any) map[string]any {
	if payload == nil {
		return nil
	}
	out := make(map[string]any, len(payload))
	for k, v := range payload {
		if _, ok := gatewayAllowedFields[k]; !ok {
			continue
		}
		if v == nil {
			continue
		}
		if s, ok := v.(string); ok && s == "" {
			continue
		}
		out[k] = v
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
