package observability

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Tracer returns the process tracer for analysis spans.
func Tracer() trace.Tracer {
	return otel.Tracer(TracerName)
}

// RecordSpanError marks a span as failed and records the error event.
func RecordSpanError(span trace.Span, err error) {
	if err == nil {
		return
	}

	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
