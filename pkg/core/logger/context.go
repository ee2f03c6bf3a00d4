package logger

import (
	"context"

	"go.uber.org/zap"
)

type contextKey struct{}

var loggerCtxKey = contextKey{}

// defaultLogger is returned when the context carries no logger.
var defaultLogger = zap.NewNop()

// Get extracts a logger from the context, falling back to the default logger.
// Safe to call with a nil context.
func Get(ctx context.Context) *zap.Logger {
	if ctx == nil {
		return defaultLogger
	}
	if ctxLogger, ok := ctx.Value(loggerCtxKey).(*zap.Logger); ok && ctxLogger != nil {
		return ctxLogger
	}
	return defaultLogger
}

// With returns a new context carrying the logger.
func With(ctx context.Context, log *zap.Logger) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, loggerCtxKey, log)
}

// WithFields attaches fields to the logger already stored in ctx.
func WithFields(ctx context.Context, fields ...zap.Field) context.Context {
	return With(ctx, Get(ctx).With(fields...))
}
