package logger

import (
	"log/slog"
	"os"
)

// New returns the process-wide structured logger. Text output on stdout keeps
// local runs and container logs readable; swap the handler for JSON when a
// log shipper needs it.
func New() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, nil))
}
