package logctx

import (
	"context"
	"log/slog"
)

type contextKey struct{}

// WithLogger stores logger in ctx so request-scoped fields travel with the
// request instead of being re-attached at every call site.
func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, contextKey{}, logger)
}

// LoggerFromContext returns the logger carried by ctx, falling back to
// slog.Default() when none was attached.
func LoggerFromContext(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(contextKey{}).(*slog.Logger); ok && l != nil {
		return l
	}

	return slog.Default()
}
