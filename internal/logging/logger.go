// Package logging defines the structured-logging interface used across
// mailauth and its log/slog implementation.
package logging

import "context"

// Logger is a context-aware, structured logger.
//
// The variadic args are interpreted as key–value pairs, e.g.:
//
//	log.Info(ctx, "user logged in", "user_id", id)
type Logger interface {
	Debug(ctx context.Context, msg string, args ...any)
	Info(ctx context.Context, msg string, args ...any)
	// Warn is for rejected requests and other unusual but expected outcomes.
	Warn(ctx context.Context, msg string, args ...any)
	// Error is for failures of a dependency (store, crypto) that the caller
	// only sees as a generic error.
	Error(ctx context.Context, msg string, args ...any)

	// With returns a child logger that always includes the given key–value pairs.
	With(args ...any) Logger
}
