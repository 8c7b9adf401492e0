package otelx

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

// TraceContext is the W3C trace context of a span, flattened so it can sit in
// an outbox row next to the booking it describes and be resumed when the row
// is relayed to Kafka.
type TraceContext struct {
	Traceparent string
	Tracestate  string
}

// CaptureTraceContext records the active span of ctx through the global
// propagator. Without an active span both fields are empty.
func CaptureTraceContext(ctx context.Context) TraceContext {
	carrier := propagation.MapCarrier{}
	otel.GetTextMapPropagator().Inject(ctx, carrier)
	return TraceContext{
		Traceparent: carrier.Get("traceparent"),
		Tracestate:  carrier.Get("tracestate"),
	}
}

func (tc TraceContext) IsZero() bool {
	return tc.Traceparent == "" && tc.Tracestate == ""
}

// Attach makes tc the remote parent of spans started from the returned
// context. A zero tc leaves ctx as is.
func (tc TraceContext) Attach(ctx context.Context) context.Context {
	if tc.IsZero() {
		return ctx
	}
	carrier := propagation.MapCarrier{}
	if tc.Traceparent != "" {
		carrier.Set("traceparent", tc.Traceparent)
	}
	if tc.Tracestate != "" {
		carrier.Set("tracestate", tc.Tracestate)
	}
	return otel.GetTextMapPropagator().Extract(ctx, carrier)
}
