package logger

import (
	"context"

	"go.uber.org/zap"
)

type contextKey string

const (
	loggerKey       contextKey = "logger"
	requestIDKey    contextKey = "request_id"
	connectionIDKey contextKey = "connection_id"
)

// WithContext returns a copy of ctx carrying logger
func WithContext(ctx context.Context, logger *zap.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, logger)
}

// FromContext returns the logger stored in ctx, or fallback when none is set.
// A nil fallback yields a no-op logger.
func FromContext(ctx context.Context, fallback *zap.Logger) *zap.Logger {
	if logger, ok := ctx.Value(loggerKey).(*zap.Logger); ok {
		return logger
	}
	if fallback != nil {
		return fallback
	}
	return zap.NewNop()
}

// WithRequestID stores the request id and returns the enriched logger
func WithRequestID(ctx context.Context, logger *zap.Logger, requestID string) (context.Context, *zap.Logger) {
	ctx = context.WithValue(ctx, requestIDKey, requestID)
	enriched := logger.With(zap.String("request_id", requestID))
	return WithContext(ctx, enriched), enriched
}

// WithConnectionID stores the connection id and returns the enriched logger
func WithConnectionID(ctx context.Context, logger *zap.Logger, connectionID string) (context.Context, *zap.Logger) {
	ctx = context.WithValue(ctx, connectionIDKey, connectionID)
	enriched := logger.With(zap.String("connection_id", connectionID))
	return WithContext(ctx, enriched), enriched
}

// GetRequestID returns the request id stored in ctx
func GetRequestID(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey).(string); ok {
		return id
	}
	return ""
}

// GetConnectionID returns the connection id stored in ctx
func GetConnectionID(ctx context.Context) string {
	if id, ok := ctx.Value(connectionIDKey).(string); ok {
		return id
	}
	return ""
}
