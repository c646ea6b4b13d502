// Package logging carries request scoped loggers through context values and
// derives the component/operation scoped loggers the schedule services and
// handlers log with.
package logging

import (
	"context"
	"log/slog"
)

type contextKey struct{}

// ContextWithLogger returns a derived context that carries the provided logger.
func ContextWithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	if ctx == nil || logger == nil {
		return ctx
	}
	return context.WithValue(ctx, contextKey{}, logger)
}

// FromContext extracts a logger previously attached to the context.
func FromContext(ctx context.Context) *slog.Logger {
	if ctx == nil {
		return nil
	}
	logger, _ := ctx.Value(contextKey{}).(*slog.Logger)
	return logger
}

// Scoped returns a logger carrying the given attribute pairs, preferring a
// logger attached to the context over the fallback. Services scope with
// "service" and "operation" attributes, handlers with "handler"; identifiers
// such as schedule_id and event_id ride along as extra pairs.
func Scoped(ctx context.Context, fallback *slog.Logger, pairs ...any) *slog.Logger {
	logger := FromContext(ctx)
	if logger == nil {
		logger = fallback
	}
	if logger == nil {
		logger = slog.Default()
	}
	if len(pairs) == 0 {
		return logger
	}
	return logger.With(pairs...)
}
