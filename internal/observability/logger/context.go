package logger

import (
	"context"

	"github.com/smallbiznis/tandem/internal/observability/obscontext"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// FromContext returns the global logger enriched with correlation fields
// carried by the context (request id, trace/span ids).
func FromContext(ctx context.Context) *zap.Logger {
	log := zap.L()
	if ctx == nil {
		return log
	}

	if requestID := obscontext.RequestIDFromContext(ctx); requestID != "" {
		log = log.With(zap.String("request_id", requestID))
	}

	if span := trace.SpanContextFromContext(ctx); span.IsValid() {
		log = log.With(
			zap.String("trace_id", span.TraceID().String()),
			zap.String("span_id", span.SpanID().String()),
		)
	}

	return log
}
