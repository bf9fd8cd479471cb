// Package logging defines the structured-logging interface used across
// MailReminder and its slog and zerolog implementations.
package logging

import (
	"context"
	"io"
	"log/slog"

	"github.com/rs/zerolog"
)

// Logger is a context-aware, structured logger.
//
// The variadic args are interpreted as key–value pairs, e.g.:
//
//	log.Info(ctx, "reminder sent", "reminder_id", id, "recipients", n)
type Logger interface {
	Debug(ctx context.Context, msg string, args ...any)
	Info(ctx context.Context, msg string, args ...any)
	Warn(ctx context.Context, msg string, args ...any)
	Error(ctx context.Context, msg string, args ...any)

	// With returns a child logger that always includes the given key–value pairs.
	With(args ...any) Logger
}

// Supported backends.
const (
	BackendSlog    = "slog"
	BackendZerolog = "zerolog"
)

// New builds a JSON logger writing to w. Unknown backends fall back to slog.
func New(backend string, w io.Writer) Logger {
	if backend == BackendZerolog {
		return NewZerologLogger(zerolog.New(w).With().Timestamp().Logger())
	}
	return NewSlogLogger(slog.New(slog.NewJSONHandler(w, nil)))
}
