package service

import "context"

type contextKey string

const traceIDKey contextKey = "TraceID"

// WithTraceID attaches a trace id for correlation through the outbox.
func WithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, traceIDKey, traceID)
}

func TraceIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(traceIDKey).(string)
	return id
}
