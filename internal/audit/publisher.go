package audit

import (
	"context"
	"log/slog"
	"sync/atomic"

	"portalpay/pkg/platform/privacy"
	"portalpay/pkg/requestcontext"
)

// Store is the persistence interface for audit entries. Append-only: entries
// are never updated or deleted by the application.
type Store interface {
	Append(ctx context.Context, entry Entry) error
}

// Publisher is the fire-and-forget front of the audit pipeline. Emit enqueues
// onto a bounded channel and returns immediately; when the queue is full the
// entry is dropped and counted rather than blocking the caller. The worker
// drains the queue into the store.
type Publisher struct {
	inbox   chan Entry
	dropped atomic.Int64
	logger  *slog.Logger
}

// NewPublisher creates a publisher with the given queue capacity.
func NewPublisher(queueSize int, logger *slog.Logger) *Publisher {
	if queueSize <= 0 {
		queueSize = 1024
	}
	return &Publisher{
		inbox:  make(chan Entry, queueSize),
		logger: logger,
	}
}

// Emit records an audit entry without blocking. Request-scoped context
// (request id, client IP, user agent) is folded in when the caller did not
// set it. Emit never returns an error: audit failures are invisible to the
// operation being audited.
func (p *Publisher) Emit(ctx context.Context, entry Entry) {
	entry.fill()
	if entry.RequestID == "" {
		entry.RequestID = requestcontext.RequestID(ctx)
	}
	if entry.ClientIP == "" {
		entry.ClientIP = requestcontext.ClientIP(ctx)
	}
	// Stored entries carry a partially masked IP, never the full address.
	entry.ClientIP = privacy.AnonymizeIP(entry.ClientIP)
	if entry.UserAgent == "" {
		entry.UserAgent = requestcontext.UserAgent(ctx)
	}

	select {
	case p.inbox <- entry:
	default:
		n := p.dropped.Add(1)
		if p.logger != nil {
			p.logger.WarnContext(ctx, "audit queue full, entry dropped",
				"action", entry.Action,
				"dropped_total", n,
			)
		}
	}
}

// Inbox exposes the receive side for the worker.
func (p *Publisher) Inbox() <-chan Entry {
	return p.inbox
}

// Dropped returns the total number of entries dropped due to a full queue.
func (p *Publisher) Dropped() int64 {
	return p.dropped.Load()
}
