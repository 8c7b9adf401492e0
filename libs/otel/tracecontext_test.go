package otelx

import (
	"context"
	"testing"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

func TestTraceContextSurvivesOutboxRow(t *testing.T) {
	otel.SetTextMapPropagator(propagation.TraceContext{})
	parent := "00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01"

	ctx := TraceContext{Traceparent: parent}.Attach(context.Background())
	got := CaptureTraceContext(ctx)
	if got.Traceparent != parent {
		t.Fatalf("expected %q, got %q", parent, got.Traceparent)
	}

	if tc := CaptureTraceContext(context.Background()); !tc.IsZero() {
		t.Fatalf("expected empty trace context, got %+v", tc)
	}
}

func TestZeroTraceContextLeavesContext(t *testing.T) {
	ctx := context.WithValue(context.Background(), struct{}{}, "booking")
	if got := (TraceContext{}).Attach(ctx); got != ctx {
		t.Fatal("zero trace context should return ctx unchanged")
	}
}
