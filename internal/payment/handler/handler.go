// Package handler is the HTTP surface of payment verification.
package handler

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"portalpay/internal/payment/models"
	"portalpay/internal/payment/service"
	"portalpay/internal/ratelimit/identity"
	rlmodels "portalpay/internal/ratelimit/models"
	"portalpay/pkg/requestcontext"

	dErrors "portalpay/pkg/domain-errors"
	"portalpay/pkg/platform/httputil"
)

const maxBodyBytes = 1 << 20

type Handler struct {
	service *service.Service
	logger  *slog.Logger
}

func New(svc *service.Service, logger *slog.Logger) (*Handler, error) {
	if svc == nil {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "payment service is required")
	}
	return &Handler{service: svc, logger: logger}, nil
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/verify-payment", h.verifyPayment)
}

func (h *Handler) verifyPayment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req models.VerifyRequest
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid JSON body"))
		return
	}

	identifier, tier := identity.Derive(
		r.Header.Get("Authorization"),
		requestcontext.ClientIP(ctx),
		requestcontext.UserAgent(ctx),
	)

	resp, rlResult, err := h.service.Verify(ctx, identifier, tier, &req)
	// Limit headers go out on allowed and denied responses alike.
	setRateLimitHeaders(w, rlResult)

	if err != nil {
		if dErrors.CodeOf(err) == dErrors.CodeRateLimited {
			writeRateLimited(w, rlResult)
			return
		}
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, resp)
}

func setRateLimitHeaders(w http.ResponseWriter, res *rlmodels.Result) {
	if res == nil {
		return
	}
	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(res.Limit))
	w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
	if !res.ResetAt.IsZero() {
		w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(res.ResetAt.Unix(), 10))
	}
}

type rateLimitedBody struct {
	Error      string `json:"error"`
	RetryAfter int    `json:"retryAfter"`
	Message    string `json:"message"`
}

func writeRateLimited(w http.ResponseWriter, res *rlmodels.Result) {
	retryAfter := 60
	if res != nil && res.RetryAfter > 0 {
		retryAfter = res.RetryAfter
	}
	w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
	httputil.WriteJSON(w, http.StatusTooManyRequests, rateLimitedBody{
		Error:      string(dErrors.CodeRateLimited),
		RetryAfter: retryAfter,
		Message:    waitMessage(res, retryAfter),
	})
}

// waitMessage scales the human-readable text with violation severity.
func waitMessage(res *rlmodels.Result, retryAfter int) string {
	wait := humanDuration(time.Duration(retryAfter) * time.Second)
	if res == nil {
		return fmt.Sprintf("Too many requests. Please try again in %s.", wait)
	}
	switch {
	case res.Violations >= 5:
		return fmt.Sprintf("Access temporarily suspended after repeated attempts. Please try again in %s.", wait)
	case res.Reason == rlmodels.ReasonPenaltyActive:
		return fmt.Sprintf("A cooldown is active from earlier attempts. Please try again in %s.", wait)
	default:
		return fmt.Sprintf("Too many requests. Please try again in %s.", wait)
	}
}

func humanDuration(d time.Duration) string {
	switch {
	case d >= time.Hour:
		return fmt.Sprintf("%d hour(s)", int(d.Hours()+0.5))
	case d >= time.Minute:
		return fmt.Sprintf("%d minute(s)", int(d.Minutes()+0.5))
	default:
		return fmt.Sprintf("%d second(s)", int(d.Seconds()))
	}
}
