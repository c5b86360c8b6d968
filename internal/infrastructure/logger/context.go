package logger

import (
	"context"

	"github.com/ledgerbook/backend/internal/domain/shared"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type ctxKey int

const (
	loggerKey ctxKey = iota
	requestIDKey
)

// WithContext stores l in ctx
func WithContext(ctx context.Context, l *zap.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, l)
}

// FromContext returns the stored logger or a no-op logger
func FromContext(ctx context.Context) *zap.Logger {
	if l, ok := ctx.Value(loggerKey).(*zap.Logger); ok && l != nil {
		return l
	}
	return zap.NewNop()
}

// WithRequestID records requestID in ctx and stores l enriched with it
func WithRequestID(ctx context.Context, l *zap.Logger, requestID string) (context.Context, *zap.Logger) {
	l = l.With(zap.String("request_id", requestID))
	ctx = context.WithValue(ctx, requestIDKey, requestID)
	return WithContext(ctx, l), l
}

// GetRequestID returns the request ID recorded by WithRequestID
func GetRequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// L returns the context's logger with the current span and actor attached.
// Call it per log line: both can change below the request.
//
//	logger.L(ctx).Info("Transaction posted", zap.String("reference", ref))
func L(ctx context.Context) *zap.Logger {
	l := FromContext(ctx)
	if fields := scopeFields(ctx); len(fields) > 0 {
		return l.With(fields...)
	}
	return l
}

// scopeFields describes the span and the actor of ctx
func scopeFields(ctx context.Context) []zap.Field {
	var fields []zap.Field
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		fields = append(fields,
			zap.String("trace_id", sc.TraceID().String()),
			zap.String("span_id", sc.SpanID().String()))
	}
	if actor, ok := shared.ActorFromContext(ctx); ok {
		if actor.IsSystem() {
			fields = append(fields, zap.String("actor", actor.Username))
		} else {
			fields = append(fields, zap.String("user_id", actor.UserID.String()))
		}
	}
	return fields
}
