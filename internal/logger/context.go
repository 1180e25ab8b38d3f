package logger

import (
	"context"

	"go.uber.org/zap"
)

type loggerKey struct{}

// ContextWithLogger returns a context carrying the given logger, typically
// one enriched with per-request fields.
func ContextWithLogger(ctx context.Context, l *zap.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, l)
}

// FromContext returns the logger carried by the context, or a no-op logger
// when none was attached.
func FromContext(ctx context.Context) *zap.Logger {
	if l, ok := ctx.Value(loggerKey{}).(*zap.Logger); ok {
		return l
	}
	return zap.NewNop()
}
