// Package worker drains the audit inbox into one or more stores.
package worker

import (
	"context"
	"log/slog"
	"time"

	"portalpay/internal/audit"
)

// Worker consumes audit entries from a channel and persists them to every
// configured store. Store failures are logged and swallowed; by contract the
// audit pipeline never propagates errors back into domain flows.
type Worker struct {
	stores []audit.Store
	inbox  <-chan audit.Entry
	logger *slog.Logger
}

// New creates a worker fanning out to the given stores.
func New(inbox <-chan audit.Entry, logger *slog.Logger, stores ...audit.Store) *Worker {
	return &Worker{stores: stores, inbox: inbox, logger: logger}
}

// Run processes entries until ctx is cancelled, then drains whatever is
// already queued with a short grace period so shutdown does not lose the
// tail of the stream.
func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			w.drain()
			return ctx.Err()
		case entry := <-w.inbox:
			w.append(ctx, entry)
		}
	}
}

func (w *Worker) drain() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	for {
		select {
		case entry := <-w.inbox:
			w.append(ctx, entry)
		default:
			return
		}
	}
}

func (w *Worker) append(ctx context.Context, entry audit.Entry) {
	for _, store := range w.stores {
		if err := store.Append(ctx, entry); err != nil && w.logger != nil {
			w.logger.ErrorContext(ctx, "audit append failed",
				"error", err,
				"action", entry.Action,
				"request_id", entry.RequestID,
			)
		}
	}
}
