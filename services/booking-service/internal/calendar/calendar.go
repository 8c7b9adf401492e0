// Package calendar is the boundary to the shared resource calendar, the only
// source of truth for what is booked.
package calendar

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrUnavailable means the calendar could not be read or written. It is
	// retryable and never implies anything about slot availability.
	ErrUnavailable   = errors.New("calendar unavailable")
	ErrEventNotFound = errors.New("calendar event not found")
	// ErrEventExists means an event with the requested id is already stored.
	ErrEventExists = errors.New("calendar event already exists")
)

// Private extended property keys written on every booking event.
const (
	PropBookingRef   = "booking_ref"
	PropCustomerName = "customer_name"
	PropProductName  = "product_name"
	PropContact      = "customer_contact"
	PropNotes        = "additional_notes"
	PropSlotType     = "slot_type"
)

// Window is a half-open time span [Start, End).
type Window struct {
	Start time.Time
	End   time.Time
}

func (w Window) Duration() time.Duration {
	return w.End.Sub(w.Start)
}

func (w Window) Valid() bool {
	return !w.Start.IsZero() && w.End.After(w.Start)
}

// Overlaps reports whether the spans intersect; touching endpoints do not.
func (w Window) Overlaps(o Window) bool {
	return w.Start.Before(o.End) && o.Start.Before(w.End)
}

type Event struct {
	ID          string
	Summary     string
	Description string
	Window      Window
	AllDay      bool
	ColorID     string
	Status      string
	Properties  map[string]string
}

type NewEvent struct {
	// ID, when set, is the event id to create; a second create with the same
	// id fails with ErrEventExists. Lowercase hex is valid for every backend.
	ID          string
	Window      Window
	Summary     string
	Description string
	ColorID     string
	Properties  map[string]string
}

// EventUpdate lists the fields to change; empty strings are left untouched.
type EventUpdate struct {
	Summary string
	ColorID string
}

type Client interface {
	// ListEvents returns every event intersecting w.
	ListEvents(ctx context.Context, w Window) ([]Event, error)
	CreateEvent(ctx context.Context, e NewEvent) (Event, error)
	UpdateEvent(ctx context.Context, id string, u EventUpdate) (Event, error)
}
