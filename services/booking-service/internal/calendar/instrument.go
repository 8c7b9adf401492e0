package calendar

import (
	"context"
	"errors"
	"fmt"
	"time"

	otelx "github.com/homefix/calbook/libs/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Instrument bounds every call to c by timeout and records a span per call.
// Deadline expiry surfaces as ErrUnavailable.
func Instrument(c Client, timeout time.Duration) Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &instrumented{next: c, timeout: timeout, tracer: otelx.Tracer("calbook/calendar")}
}

type instrumented struct {
	next    Client
	timeout time.Duration
	tracer  trace.Tracer
}

func (c *instrumented) ListEvents(ctx context.Context, w Window) ([]Event, error) {
	ctx, span, cancel := c.start(ctx, "calendar.ListEvents",
		attribute.String("calendar.time_min", w.Start.Format(time.RFC3339)),
		attribute.String("calendar.time_max", w.End.Format(time.RFC3339)),
	)
	defer cancel()
	events, err := c.next.ListEvents(ctx, w)
	err = c.finish(ctx, span, err)
	span.SetAttributes(attribute.Int("calendar.events", len(events)))
	span.End()
	return events, err
}

func (c *instrumented) CreateEvent(ctx context.Context, e NewEvent) (Event, error) {
	ctx, span, cancel := c.start(ctx, "calendar.CreateEvent")
	defer cancel()
	created, err := c.next.CreateEvent(ctx, e)
	err = c.finish(ctx, span, err)
	span.End()
	return created, err
}

func (c *instrumented) UpdateEvent(ctx context.Context, id string, u EventUpdate) (Event, error) {
	ctx, span, cancel := c.start(ctx, "calendar.UpdateEvent", attribute.String("calendar.event_id", id))
	defer cancel()
	updated, err := c.next.UpdateEvent(ctx, id, u)
	err = c.finish(ctx, span, err)
	span.End()
	return updated, err
}

func (c *instrumented) start(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span, context.CancelFunc) {
	ctx, span := c.tracer.Start(ctx, name, trace.WithAttributes(attrs...))
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	return ctx, span, cancel
}

func (c *instrumented) finish(ctx context.Context, span trace.Span, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(ctx.Err(), context.DeadlineExceeded) && !errors.Is(err, ErrUnavailable) {
		err = fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}
