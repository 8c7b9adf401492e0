// Package booking commits bookings to the shared calendar after re-checking
// capacity against its current state.
package booking

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	otelx "github.com/homefix/calbook/libs/otel"
	"github.com/homefix/calbook/services/booking-service/internal/calendar"
	"github.com/homefix/calbook/services/booking-service/internal/capacity"
	"github.com/homefix/calbook/services/booking-service/internal/slots"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const (
	DefaultColorID   = "1"
	UpdatedColorID   = "2"
	DefaultUpdateTag = "completed"
)

// refNamespace scopes booking refs derived from idempotency keys.
var refNamespace = uuid.MustParse("6f1f3c2e-5b7a-4c53-9a40-2f0f3d8c9e11")

type Outcome int

const (
	// Committed: the event exists on the calendar.
	Committed Outcome = iota + 1
	// Rejected: the window filled up since it was displayed. Nothing was written.
	Rejected
)

func (o Outcome) String() string {
	switch o {
	case Committed:
		return "committed"
	case Rejected:
		return "rejected"
	default:
		return "unknown"
	}
}

type Booking struct {
	Ref      string
	SlotType slots.Type
	Request  Request
	Event    calendar.Event
}

type Result struct {
	Outcome Outcome
	Booking Booking
	// Replayed is set when an earlier attempt with the same idempotency key
	// already created the event.
	Replayed bool
}

// Recorder keeps a secondary record of calendar writes. The calendar stays
// authoritative: a Recorder failure never undoes a committed event.
type Recorder interface {
	RecordCommitted(ctx context.Context, b Booking) error
	RecordUpdated(ctx context.Context, ref, status string, e calendar.Event) error
}

type NopRecorder struct{}

func (NopRecorder) RecordCommitted(context.Context, Booking) error { return nil }

func (NopRecorder) RecordUpdated(context.Context, string, string, calendar.Event) error { return nil }

type Service struct {
	cal      calendar.Client
	checker  *capacity.Checker
	recorder Recorder
	logger   *slog.Logger
	tracer   trace.Tracer
	newRef   func() string
}

func NewService(cal calendar.Client, recorder Recorder, logger *slog.Logger) *Service {
	if recorder == nil {
		recorder = NopRecorder{}
	}
	return &Service{
		cal:      cal,
		checker:  capacity.NewChecker(cal),
		recorder: recorder,
		logger:   logger,
		tracer:   otelx.Tracer("calbook/booking"),
		newRef:   uuid.NewString,
	}
}

// Commit re-checks req's window against the calendar and writes the event
// only if it still has capacity. A full window is a Rejected result, not an
// error; errors mean the check itself could not be made.
//
// There is no lock over the calendar: two commits that pass the check
// concurrently both write. Commits sharing an IdempotencyKey share an event
// id, so only one of them creates and the other replays it.
func (s *Service) Commit(ctx context.Context, req Request) (Result, error) {
	if err := req.Validate(); err != nil {
		return Result{}, err
	}
	ctx, span := s.tracer.Start(ctx, "booking.Commit", trace.WithAttributes(
		attribute.String("slot_type", req.SlotType.String()),
		attribute.String("window.start", req.Window.Start.Format(time.RFC3339)),
	))
	defer span.End()

	ref := s.newRef()
	if req.IdempotencyKey != "" {
		ref = uuid.NewSHA1(refNamespace, []byte(req.IdempotencyKey)).String()
		existing, found, err := s.findByRef(ctx, req.Window, ref)
		if err != nil {
			return Result{}, err
		}
		if found {
			return s.replay(req, ref, existing), nil
		}
	}
	span.SetAttributes(attribute.String("booking_ref", ref))

	ok, err := s.stillOpen(ctx, req.SlotType, req.Window)
	if err != nil {
		return Result{}, fmt.Errorf("revalidate: %w", err)
	}
	if !ok {
		s.logger.Info("booking rejected", "booking_ref", ref, "slot_type", req.SlotType.String(), "start", req.Window.Start)
		return Result{Outcome: Rejected}, nil
	}

	colorID := req.ColorID
	if colorID == "" {
		colorID = DefaultColorID
	}
	props := map[string]string{
		calendar.PropBookingRef:   ref,
		calendar.PropCustomerName: req.CustomerName,
		calendar.PropProductName:  req.ProductName,
		calendar.PropSlotType:     req.SlotType.String(),
	}
	if req.Contact != "" {
		props[calendar.PropContact] = req.Contact
	}
	if req.AdditionalNotes != "" {
		props[calendar.PropNotes] = req.AdditionalNotes
	}
	event, err := s.cal.CreateEvent(ctx, calendar.NewEvent{
		ID:          EventID(ref),
		Window:      req.Window,
		Summary:     Summary(req.Status, req.CustomerName, req.ProductName),
		Description: Description(req),
		ColorID:     colorID,
		Properties:  props,
	})
	if errors.Is(err, calendar.ErrEventExists) {
		// A concurrent attempt with the same key won the create.
		existing, found, findErr := s.findByRef(ctx, req.Window, ref)
		if findErr != nil {
			return Result{}, findErr
		}
		if !found {
			return Result{}, fmt.Errorf("create event: %w", err)
		}
		return s.replay(req, ref, existing), nil
	}
	if err != nil {
		return Result{}, fmt.Errorf("create event: %w", err)
	}

	b := Booking{Ref: ref, SlotType: req.SlotType, Request: req, Event: event}
	if err := s.recorder.RecordCommitted(ctx, b); err != nil {
		s.logger.Error("booking record failed", "booking_ref", ref, "event_id", event.ID, "err", err)
	}
	s.logger.Info("booking committed", "booking_ref", ref, "event_id", event.ID, "slot_type", req.SlotType.String())
	return Result{Outcome: Committed, Booking: b}, nil
}

func (s *Service) replay(req Request, ref string, existing calendar.Event) Result {
	s.logger.Info("booking replayed", "booking_ref", ref, "event_id", existing.ID)
	return Result{
		Outcome:  Committed,
		Booking:  Booking{Ref: ref, SlotType: req.SlotType, Request: req, Event: existing},
		Replayed: true,
	}
}

// stillOpen repeats the check the generator used for t, against the
// calendar's current state.
func (s *Service) stillOpen(ctx context.Context, t slots.Type, w calendar.Window) (bool, error) {
	switch {
	case t == slots.HalfDay:
		return s.checker.HalfDay(ctx, w)
	case t == slots.OneDay:
		return s.checker.FullDay(ctx, w)
	case t.TrailingMorning():
		return s.checker.WithTrailingMorning(ctx, w.Start, t.FullDays())
	case t.FullDays() > 1:
		return s.checker.Consecutive(ctx, w.Start, t.FullDays())
	default:
		return false, fmt.Errorf("%w: %s", slots.ErrUnknownType, t)
	}
}

// Update re-tags the booking with req.BookingRef: its summary becomes
// "[status] customer: product" and its color UpdatedColorID.
func (s *Service) Update(ctx context.Context, req UpdateRequest) (calendar.Event, error) {
	if err := req.Validate(); err != nil {
		return calendar.Event{}, err
	}
	ctx, span := s.tracer.Start(ctx, "booking.Update", trace.WithAttributes(attribute.String("booking_ref", req.BookingRef)))
	defer span.End()

	event, found, err := s.findByRef(ctx, req.Window, req.BookingRef)
	if err != nil {
		return calendar.Event{}, err
	}
	if !found {
		return calendar.Event{}, fmt.Errorf("%w: booking_ref %s", calendar.ErrEventNotFound, req.BookingRef)
	}

	status := req.Status
	if status == "" {
		status = DefaultUpdateTag
	}
	updated, err := s.cal.UpdateEvent(ctx, event.ID, calendar.EventUpdate{
		Summary: retag(event, status),
		ColorID: UpdatedColorID,
	})
	if err != nil {
		return calendar.Event{}, fmt.Errorf("update event: %w", err)
	}
	if err := s.recorder.RecordUpdated(ctx, req.BookingRef, status, updated); err != nil {
		s.logger.Error("booking record update failed", "booking_ref", req.BookingRef, "err", err)
	}
	s.logger.Info("booking updated", "booking_ref", req.BookingRef, "event_id", updated.ID, "status", status)
	return updated, nil
}

// EventID is the calendar event id used for booking ref: the ref's hex digits
// without dashes, so a repeated create for one ref collides.
func EventID(ref string) string {
	return strings.ReplaceAll(ref, "-", "")
}

func (s *Service) findByRef(ctx context.Context, w calendar.Window, ref string) (calendar.Event, bool, error) {
	events, err := s.cal.ListEvents(ctx, w)
	if err != nil {
		return calendar.Event{}, false, err
	}
	for _, e := range events {
		if e.Properties[calendar.PropBookingRef] == ref {
			return e, true, nil
		}
	}
	return calendar.Event{}, false, nil
}

// retag rebuilds the summary from the event's stored customer and product,
// falling back to swapping the leading "[tag]" of the current summary.
func retag(e calendar.Event, status string) string {
	customer, product := e.Properties[calendar.PropCustomerName], e.Properties[calendar.PropProductName]
	if customer != "" && product != "" {
		return Summary(status, customer, product)
	}
	rest := e.Summary
	if len(rest) > 0 && rest[0] == '[' {
		for i := 1; i < len(rest); i++ {
			if rest[i] == ']' {
				rest = rest[i+1:]
				break
			}
		}
	}
	if len(rest) > 0 && rest[0] == ' ' {
		rest = rest[1:]
	}
	return "[" + status + "] " + rest
}
