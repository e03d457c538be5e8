package logger

import (
	"context"
	"log/slog"
)

// loggerContextKey is an unexported type for the context key so that no
// other package can collide with it.
type loggerContextKey struct{}

// WithLogger returns a new context carrying the given logger.
// Handlers attach a request-scoped logger (with trace IDs and other
// attributes) so that stores and services deeper in the call chain log
// with the same correlation fields.
func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerContextKey{}, logger)
}

// FromContext returns the logger stored in the context, or the process
// default logger if none is present. It never returns nil.
func FromContext(ctx context.Context) *slog.Logger {
	if ctx != nil {
		if logger, ok := ctx.Value(loggerContextKey{}).(*slog.Logger); ok && logger != nil {
			return logger
		}
	}
	return slog.Default()
}

// FromContextOrDefault returns the logger stored in the context, or the
// given fallback if none is present. Callers that hold a component
// logger use this so context-less requests still carry their component
// attributes.
func FromContextOrDefault(ctx context.Context, fallback *slog.Logger) *slog.Logger {
	if ctx != nil {
		if logger, ok := ctx.Value(loggerContextKey{}).(*slog.Logger); ok && logger != nil {
			return logger
		}
	}
	if fallback != nil {
		return fallback
	}
	return slog.Default()
}
