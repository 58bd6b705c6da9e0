package testutil

import (
	"io"
	"log/slog"
)

// DiscardLogger returns a logger that drops everything. Keeps test output
// clean while still exercising logging code paths.
func DiscardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
