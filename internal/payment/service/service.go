// Package service orchestrates payment verification: rate-limit check, input
// validation, gateway verification, idempotent persistence, best-effort
// student profile sync and a full audit trail on every branch.
package service

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"portalpay/internal/audit"
	"portalpay/internal/payment/metrics"
	"portalpay/internal/payment/models"
	"portalpay/internal/payment/ports"
	rlmodels "portalpay/internal/ratelimit/models"

	dErrors "portalpay/pkg/domain-errors"
)

const (
	tracerName = "portalpay/internal/payment/service"

	// Endpoint is the rate-limit bucket name for verification calls.
	Endpoint = "verify-payment"
)

// DefaultPolicy is the fixed per-endpoint quota for verification calls.
var DefaultPolicy = rlmodels.Policy{
	Limit:    10,
	Window:   time.Minute,
	Endpoint: Endpoint,
}

type Service struct {
	gateway        ports.Gateway
	payments       ports.PaymentStore
	students       ports.StudentStore
	limiter        ports.RateLimiter
	auditPublisher ports.AuditPublisher
	logger         *slog.Logger
	metrics        *metrics.Metrics
	tracer         trace.Tracer
	policy         rlmodels.Policy
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// WithRateLimiter gates verification calls. Without one, every call is
// allowed.
func WithRateLimiter(limiter ports.RateLimiter) Option {
	return func(s *Service) { s.limiter = limiter }
}

func WithAuditPublisher(publisher ports.AuditPublisher) Option {
	return func(s *Service) { s.auditPublisher = publisher }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithPolicy(pol rlmodels.Policy) Option {
	return func(s *Service) {
		if pol.Limit > 0 && pol.Window > 0 {
			s.policy = pol
		}
	}
}

func New(gw ports.Gateway, payments ports.PaymentStore, students ports.StudentStore, opts ...Option) (*Service, error) {
	if gw == nil {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "gateway is required")
	}
	if payments == nil {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "payment store is required")
	}
	if students == nil {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "student store is required")
	}

	s := &Service{
		gateway:  gw,
		payments: payments,
		students: students,
		tracer:   otel.Tracer(tracerName),
		policy:   DefaultPolicy,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.policy.Endpoint == "" {
		s.policy.Endpoint = Endpoint
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s, nil
}

// Verify runs one verification call end to end. The rate-limit result is
// returned on every path, allowed or denied, so the transport layer can set
// X-RateLimit headers; it is nil only when no limiter is configured. Tier is
// how the caller's identifier was derived.
func (s *Service) Verify(ctx context.Context, identifier string, tier rlmodels.Tier, req *models.VerifyRequest) (*models.VerifyResponse, *rlmodels.Result, error) {
	ctx, span := s.tracer.Start(ctx, "payment.verify")
	defer span.End()

	// Step 1: rate limit. On deny nothing else runs; the limiter has already
	// recorded the violation and its audit event.
	var rlResult *rlmodels.Result
	if s.limiter != nil {
		pol := s.policy
		pol.Tier = tier
		rlResult = s.limiter.Check(ctx, identifier, pol)
		if !rlResult.Allowed {
			s.outcome(span, "rate_limited")
			return nil, rlResult, dErrors.New(dErrors.CodeRateLimited, "too many requests")
		}
	}

	// Step 2: validation, missing fields before format checks.
	req.Normalize()
	if err := req.Validate(); err != nil {
		s.audit(ctx, audit.Entry{
			Action:       audit.ActionValidationFailed,
			TxRef:        req.TxRef,
			UserID:       req.UserID,
			ErrorCode:    string(dErrors.CodeOf(err)),
			ErrorMessage: dErrors.MessageOf(err),
		})
		s.outcome(span, "validation_failed")
		return nil, rlResult, err
	}

	span.SetAttributes(
		attribute.String("payment.tx_ref", req.TxRef),
		attribute.String("payment.type", string(req.ParsedType())),
	)

	s.audit(ctx, audit.Entry{
		Action:        audit.ActionPaymentInitiated,
		TxRef:         req.TxRef,
		TransactionID: req.TransactionID,
		UserID:        req.UserID,
		Success:       true,
		Metadata:      map[string]any{"payment_type": string(req.ParsedType())},
	})

	// Step 3: gateway verification. Not retried; the caller re-invokes.
	gatewayStart := time.Now()
	verification, err := s.gateway.VerifyTransaction(ctx, req.TransactionID)
	if s.metrics != nil {
		s.metrics.ObserveGatewayCall(gatewayStart)
	}
	if err != nil {
		s.logger.ErrorContext(ctx, "gateway verification failed",
			"error", err,
			"transaction_id", req.TransactionID,
		)
		s.audit(ctx, audit.Entry{
			Action:        audit.ActionGatewayCallFailed,
			TxRef:         req.TxRef,
			TransactionID: req.TransactionID,
			UserID:        req.UserID,
			ErrorCode:     string(dErrors.CodeGateway),
			ErrorMessage:  err.Error(),
		})
		s.failPayment(ctx, span, req, "gateway verification failed", "gateway_error")
		return nil, rlResult, dErrors.Wrap(err, dErrors.CodeGateway, "payment verification failed")
	}

	s.audit(ctx, audit.Entry{
		Action:        audit.ActionGatewayCallSuccess,
		TxRef:         req.TxRef,
		TransactionID: req.TransactionID,
		UserID:        req.UserID,
		Success:       true,
		Metadata:      audit.SanitizeGatewayResponse(verification.Raw),
	})

	if !verification.Successful() {
		s.failPayment(ctx, span, req, "gateway reported transaction as not successful", "not_successful")
		return nil, rlResult, dErrors.New(dErrors.CodeBadRequest, "payment was not successful")
	}

	// Step 4: the gateway's reference must match the caller's exactly.
	// Defends against reference substitution; nothing is persisted on
	// mismatch.
	if verification.TxRef != req.TxRef {
		s.audit(ctx, audit.Entry{
			Action:        audit.ActionTxRefMismatch,
			TxRef:         req.TxRef,
			TransactionID: req.TransactionID,
			UserID:        req.UserID,
			ErrorMessage:  "transaction reference mismatch",
			Metadata:      map[string]any{"gateway_tx_ref": verification.TxRef},
		})
		s.outcome(span, "mismatch")
		return nil, rlResult, dErrors.New(dErrors.CodeValidation, "transaction reference mismatch")
	}

	// Prior state is read only to describe status transitions in the audit
	// trail; the upsert itself never depends on it.
	prior, err := s.payments.GetByTxRef(ctx, req.TxRef, req.UserID)
	if err != nil {
		s.logger.WarnContext(ctx, "prior payment lookup failed", "error", err)
		prior = nil
	}

	// Step 5: idempotent upsert keyed on (tx_ref, user_id).
	rec := &models.Record{
		UserID:          req.UserID,
		TxRef:           req.TxRef,
		TransactionID:   verification.TransactionID,
		Amount:          verification.Amount,
		Currency:        verification.Currency,
		PaymentType:     req.ParsedType(),
		Status:          models.StatusSuccess,
		GatewayResponse: audit.SanitizeGatewayResponse(verification.Raw),
	}
	stored, created, err := s.payments.UpsertVerified(ctx, rec)
	if err != nil {
		s.logger.ErrorContext(ctx, "payment record write failed",
			"error", err,
			"tx_ref", req.TxRef,
		)
		s.audit(ctx, audit.Entry{
			Action:        audit.ActionDBWriteFailed,
			TxRef:         req.TxRef,
			TransactionID: req.TransactionID,
			UserID:        req.UserID,
			ErrorCode:     string(dErrors.CodeInternal),
			ErrorMessage:  err.Error(),
		})
		s.failPayment(ctx, span, req, "failed to record payment", "persistence_error")
		return nil, rlResult, dErrors.Wrap(err, dErrors.CodeInternal, "failed to record payment")
	}

	s.audit(ctx, audit.Entry{
		Action:        audit.ActionDBWriteSuccess,
		PaymentID:     stored.ID,
		TxRef:         stored.TxRef,
		TransactionID: stored.TransactionID,
		UserID:        stored.UserID,
		Success:       true,
		Metadata:      map[string]any{"created": created},
	})
	if prior != nil && prior.Status != stored.Status {
		s.audit(ctx, audit.Entry{
			Action:     audit.ActionPaymentStatusChange,
			PaymentID:  stored.ID,
			TxRef:      stored.TxRef,
			UserID:     stored.UserID,
			PrevStatus: string(prior.Status),
			NewStatus:  string(stored.Status),
			Success:    true,
		})
	}

	// Steps 6-7: student profile sync, best-effort. The payment record is
	// already authoritative; a failure here is logged, audited and swallowed.
	if err := s.students.ApplyPayment(ctx, stored.UserID, stored); err != nil {
		s.logger.ErrorContext(ctx, "student profile update failed",
			"error", err,
			"user_id", stored.UserID,
			"tx_ref", stored.TxRef,
		)
		s.audit(ctx, audit.Entry{
			Action:       audit.ActionUserUpdateFailed,
			PaymentID:    stored.ID,
			TxRef:        stored.TxRef,
			UserID:       stored.UserID,
			ErrorMessage: err.Error(),
		})
	}

	// Step 8: terminal audit entry.
	s.audit(ctx, audit.Entry{
		Action:    audit.ActionPaymentVerified,
		PaymentID: stored.ID,
		TxRef:     stored.TxRef,
		UserID:    stored.UserID,
		NewStatus: string(stored.Status),
		Success:   true,
	})
	s.outcome(span, "success")
	span.SetStatus(codes.Ok, "")

	return &models.VerifyResponse{
		Status:    "success",
		PaymentID: stored.ID,
		Message:   "payment verified successfully",
	}, rlResult, nil
}

// failPayment emits the terminal failure audit entry and records the outcome.
func (s *Service) failPayment(ctx context.Context, span trace.Span, req *models.VerifyRequest, msg, outcome string) {
	s.audit(ctx, audit.Entry{
		Action:        audit.ActionPaymentFailed,
		TxRef:         req.TxRef,
		TransactionID: req.TransactionID,
		UserID:        req.UserID,
		ErrorMessage:  msg,
	})
	s.outcome(span, outcome)
	span.SetStatus(codes.Error, msg)
}

func (s *Service) outcome(span trace.Span, outcome string) {
	span.SetAttributes(attribute.String("payment.outcome", outcome))
	if s.metrics != nil {
		s.metrics.RecordVerification(outcome)
	}
}

// audit emits one entry. Emission never blocks and never fails the
// verification flow; the publisher folds in request-scoped context.
func (s *Service) audit(ctx context.Context, entry audit.Entry) {
	if s.auditPublisher != nil {
		s.auditPublisher.Emit(ctx, entry)
	}
}
