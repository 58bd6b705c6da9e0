// Package observability provides audit logging helpers for the ratelimit module.
package observability

import (
	"context"
	"log/slog"

	"portalpay/internal/audit"
	"portalpay/internal/ratelimit/ports"
	"portalpay/pkg/attrs"
	"portalpay/pkg/requestcontext"
)

// LogAudit logs limiter events to both the structured logger and the audit
// publisher. Events are enriched with the request ID; subject and reason are
// extracted from attrList.
func LogAudit(ctx context.Context, logger *slog.Logger, publisher ports.AuditPublisher, action audit.Action, attrList ...any) {
	requestID := requestcontext.RequestID(ctx)
	if requestID != "" {
		attrList = append(attrList, "request_id", requestID)
	}

	args := append(attrList, "event", string(action), "log_type", "audit")
	if logger != nil {
		logger.InfoContext(ctx, string(action), args...)
	}

	if publisher == nil {
		return
	}

	metadata := map[string]any{
		"identifier": attrs.ExtractString(attrList, "identifier"),
		"endpoint":   attrs.ExtractString(attrList, "endpoint"),
	}
	if v := attrs.ExtractAny(attrList, "violations"); v != "" {
		metadata["violations"] = v
	}
	if v := attrs.ExtractAny(attrList, "removed"); v != "" {
		metadata["removed"] = v
	}

	publisher.Emit(ctx, audit.Entry{
		Action:       action,
		UserID:       attrs.ExtractString(attrList, "user_id"),
		ErrorMessage: attrs.ExtractString(attrList, "reason"),
		Metadata:     metadata,
	})
}
