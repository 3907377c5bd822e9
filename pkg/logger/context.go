package logger

import (
	"context"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"
)

type contextKey int

const (
	requestIDKey contextKey = iota
	correlationIDKey
)

// ContextWithIDs stores the ids WithContext adds to every line. Empty values
// are left unset.
func ContextWithIDs(ctx context.Context, requestID, correlationID string) context.Context {
	if requestID != "" {
		ctx = context.WithValue(ctx, requestIDKey, requestID)
	}

	if correlationID != "" {
		ctx = context.WithValue(ctx, correlationIDKey, correlationID)
	}

	return ctx
}

func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)

	return id
}

func CorrelationID(ctx context.Context) string {
	id, _ := ctx.Value(correlationIDKey).(string)

	return id
}

// WithContext returns a zerolog.Logger enriched with the ids and span found
// in ctx.
func (l Logger) WithContext(ctx context.Context) *zerolog.Logger {
	fields := l.With()

	if id := CorrelationID(ctx); id != "" {
		fields = fields.Str("correlation_id", id)
	}

	if id := RequestID(ctx); id != "" {
		fields = fields.Str("request_id", id)
	}

	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		fields = fields.
			Str("trace_id", sc.TraceID().String()).
			Str("span_id", sc.SpanID().String())
	}

	ctxLogger := fields.Logger()

	return &ctxLogger
}
