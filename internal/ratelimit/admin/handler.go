package admin

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	dErrors "portalpay/pkg/domain-errors"
	"portalpay/pkg/platform/httputil"
)

// Handler serves the rate-limit admin surface. Routes are mounted behind the
// superadmin middleware; no further auth happens here.
type Handler struct {
	service *Service
	logger  *slog.Logger
}

func NewHandler(service *Service, logger *slog.Logger) (*Handler, error) {
	if service == nil {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "admin service is required")
	}
	return &Handler{service: service, logger: logger}, nil
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/rate-limits", h.overview)
	r.Post("/rate-limits", h.reset)
	r.Delete("/rate-limits", h.purge)
}

// overview returns aggregate violation stats and the newest violations.
// Query params: since_hours (default 24), limit (default 50).
func (h *Handler) overview(w http.ResponseWriter, r *http.Request) {
	var since time.Time
	if raw := r.URL.Query().Get("since_hours"); raw != "" {
		hours, err := strconv.Atoi(raw)
		if err != nil || hours <= 0 {
			httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "since_hours must be a positive integer"))
			return
		}
		since = time.Now().Add(-time.Duration(hours) * time.Hour)
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "limit must be a positive integer"))
			return
		}
		limit = n
	}

	overview, err := h.service.Overview(r.Context(), since, limit)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "admin overview failed", "error", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, overview)
}

type resetRequest struct {
	// Identifier and Endpoint reset one bucket; All clears everything.
	Identifier string `json:"identifier,omitempty"`
	Endpoint   string `json:"endpoint,omitempty"`
	All        bool   `json:"all,omitempty"`
}

func (h *Handler) reset(w http.ResponseWriter, r *http.Request) {
	var req resetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid JSON body"))
		return
	}

	if req.All {
		h.service.ClearAll(r.Context())
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
		return
	}

	if err := h.service.Reset(r.Context(), req.Identifier, req.Endpoint); err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "reset"})
}

// purge deletes violation history older than N days.
// Query param: older_than_days (default 30).
func (h *Handler) purge(w http.ResponseWriter, r *http.Request) {
	days := 30
	if raw := r.URL.Query().Get("older_than_days"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "older_than_days must be an integer"))
			return
		}
		days = n
	}

	removed, err := h.service.Purge(r.Context(), days)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]int64{"purged": removed})
}
