package tracing

import (
	"context"
	"crypto/rand"
	"encoding/hex"
)

type contextKey string

const traceIDKey contextKey = "trace_id"

// TraceIDFromContext returns the correlation id stored by ContextWithTraceID,
// falling back to the id of the active span, or "".
func TraceIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if traceID, ok := ctx.Value(traceIDKey).(string); ok && traceID != "" {
		return traceID
	}
	if sc := spanContextFrom(ctx); sc.IsValid() {
		return sc.TraceID().String()
	}
	return ""
}

// ContextWithTraceID stores a correlation id. An empty id leaves ctx unchanged.
func ContextWithTraceID(ctx context.Context, traceID string) context.Context {
	if traceID == "" {
		return ctx
	}
	return context.WithValue(ctx, traceIDKey, traceID)
}

// GenerateTraceID creates a random W3C trace-id (32 hex chars).
func GenerateTraceID() string {
	b := make([]byte, 16)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
