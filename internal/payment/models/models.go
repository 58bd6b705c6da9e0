// Package models defines the payment domain types: the durable payment
// record, its enums and the verification request/response DTOs.
package models

import (
	"strings"
	"time"

	"portalpay/internal/validate"

	dErrors "portalpay/pkg/domain-errors"
)

// Status is the settlement state of one payment attempt.
type Status string

const (
	StatusPending Status = "pending"
	StatusSuccess Status = "success"
	StatusFailed  Status = "failed"
)

func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusSuccess, StatusFailed:
		return true
	}
	return false
}

// Type classifies what a payment pays for.
type Type string

const (
	TypeRegistration Type = "registration"
	TypeExam         Type = "exam"
	TypeCourse       Type = "course"
	TypeLateFee      Type = "late_fee"
)

// PaymentTypes is the allowed enum set, in a stable order for error messages.
func PaymentTypes() []string {
	return []string{
		string(TypeRegistration),
		string(TypeExam),
		string(TypeCourse),
		string(TypeLateFee),
	}
}

// Record is one payment attempt/settlement, the durable source of truth for
// payment state. At most one record exists per (tx_ref, user_id) pair;
// repeated verification of the same reference updates in place.
type Record struct {
	ID            string         `json:"id"`
	UserID        string         `json:"user_id"`
	TxRef         string         `json:"tx_ref"`
	TransactionID string         `json:"transaction_id"`
	Amount        float64        `json:"amount"`
	Currency      string         `json:"currency"`
	PaymentType   Type           `json:"payment_type"`
	Status        Status         `json:"status"`
	// GatewayResponse holds the sanitized gateway payload, never the raw one.
	GatewayResponse map[string]any `json:"gateway_response,omitempty"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
}

// VerifyRequest is the HTTP request body for POST /api/verify-payment.
type VerifyRequest struct {
	TransactionID string `json:"transaction_id"`
	TxRef         string `json:"tx_ref"`
	UserID        string `json:"userId"`
	PaymentType   string `json:"paymentType,omitempty"`

	// Parsed values (populated by Validate)
	parsedType Type
}

func (r *VerifyRequest) Normalize() {
	if r == nil {
		return
	}
	r.TransactionID = strings.TrimSpace(r.TransactionID)
	r.TxRef = strings.TrimSpace(r.TxRef)
	r.UserID = strings.TrimSpace(r.UserID)
	r.PaymentType = strings.TrimSpace(strings.ToLower(r.PaymentType))
}

// Follows validation order: Required -> Syntax -> Semantic. Missing fields
// are reported before any format check so clients see the simplest error
// first.
func (r *VerifyRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}

	if r.TransactionID == "" {
		return dErrors.New(dErrors.CodeValidation, "transaction_id is required")
	}
	if r.TxRef == "" {
		return dErrors.New(dErrors.CodeValidation, "tx_ref is required")
	}
	if r.UserID == "" {
		return dErrors.New(dErrors.CodeValidation, "userId is required")
	}

	txnID, err := validate.UserID(r.TransactionID)
	if err != nil {
		return dErrors.New(dErrors.CodeValidation, "transaction_id must be 1-128 characters of [a-zA-Z0-9_-]")
	}
	r.TransactionID = txnID

	txRef, err := validate.TxRef(r.TxRef)
	if err != nil {
		return err
	}
	r.TxRef = txRef

	userID, err := validate.UserID(r.UserID)
	if err != nil {
		return err
	}
	r.UserID = userID

	if r.PaymentType == "" {
		r.parsedType = TypeRegistration
		return nil
	}
	pt, err := validate.Enum(r.PaymentType, PaymentTypes())
	if err != nil {
		return err
	}
	r.parsedType = Type(pt)
	return nil
}

// ParsedType returns the validated payment type, defaulting to registration.
func (r *VerifyRequest) ParsedType() Type {
	if r.parsedType == "" {
		return TypeRegistration
	}
	return r.parsedType
}

// GatewayVerification is the provider's view of one transaction, decoded
// from the verify-by-id response. Raw carries the full data payload for
// audit sanitization; domain code reads the typed fields only.
type GatewayVerification struct {
	TransactionID string
	TxRef         string
	FlwRef        string
	Amount        float64
	Currency      string
	Status        string
	PaymentType   string
	CreatedAt     string
	Raw           map[string]any
}

// Successful reports whether the provider settled the transaction.
func (g *GatewayVerification) Successful() bool {
	return strings.EqualFold(g.Status, "successful")
}

// VerifyResponse is the success body for POST /api/verify-payment.
type VerifyResponse struct {
	Status    string `json:"status"`
	PaymentID string `json:"paymentId"`
	Message   string `json:"message"`
}
