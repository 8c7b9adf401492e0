package booking

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/homefix/calbook/services/booking-service/internal/calendar"
	"github.com/homefix/calbook/services/booking-service/internal/slots"
	"github.com/homefix/calbook/services/booking-service/internal/timeconv"
)

func at(d, hour, minute int) time.Time {
	return time.Date(2024, 6, d, hour, minute, 0, 0, timeconv.Location)
}

func newService(m *calendar.MemoryClient, rec Recorder) *Service {
	return NewService(m, rec, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func fill(m *calendar.MemoryClient, start time.Time, d time.Duration, n int) {
	for i := 0; i < n; i++ {
		m.Add(calendar.Event{Window: calendar.Window{Start: start, End: start.Add(d)}})
	}
}

func oneDayRequest() Request {
	return Request{
		SlotType:     slots.OneDay,
		Window:       calendar.Window{Start: at(10, 9, 0), End: at(10, 18, 0)},
		Status:       "booked",
		CustomerName: "Alice",
		ProductName:  "Aircon service",
		TotalPrice:   "120",
		AddOns:       []AddOn{{Title: "Unit", Option: "2"}},
	}
}

type recordingRecorder struct {
	committed []Booking
	updated   []string
	err       error
}

func (r *recordingRecorder) RecordCommitted(_ context.Context, b Booking) error {
	r.committed = append(r.committed, b)
	return r.err
}

func (r *recordingRecorder) RecordUpdated(_ context.Context, ref, status string, _ calendar.Event) error {
	r.updated = append(r.updated, ref+":"+status)
	return r.err
}

func TestCommitCreatesEvent(t *testing.T) {
	m := calendar.NewMemoryClient()
	rec := &recordingRecorder{}
	res, err := newService(m, rec).Commit(context.Background(), oneDayRequest())
	if err != nil {
		t.Fatalf("commit: %v", err)
	}
	if res.Outcome != Committed || res.Replayed {
		t.Fatalf("unexpected result %+v", res)
	}
	events := m.Events()
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	e := events[0]
	if e.Summary != "[booked] Alice: Aircon service" {
		t.Fatalf("unexpected summary %q", e.Summary)
	}
	if e.ColorID != DefaultColorID {
		t.Fatalf("expected default color, got %q", e.ColorID)
	}
	if e.Properties[calendar.PropBookingRef] != res.Booking.Ref || res.Booking.Ref == "" {
		t.Fatalf("booking ref not stored: %+v", e.Properties)
	}
	if e.Properties[calendar.PropSlotType] != "1" {
		t.Fatalf("slot type not stored: %+v", e.Properties)
	}
	if len(rec.committed) != 1 {
		t.Fatalf("expected recorder call")
	}
}

func TestCommitRejectsFullWindow(t *testing.T) {
	m := calendar.NewMemoryClient()
	fill(m, at(10, 9, 0), 9*time.Hour, 4)
	res, err := newService(m, nil).Commit(context.Background(), oneDayRequest())
	if err != nil {
		t.Fatalf("commit: %v", err)
	}
	if res.Outcome != Rejected {
		t.Fatalf("expected rejected, got %s", res.Outcome)
	}
	if len(m.Events()) != 4 {
		t.Fatalf("rejected commit must not write")
	}
}

func TestCommitHalfDayUsesHalfDayRule(t *testing.T) {
	m := calendar.NewMemoryClient()
	fill(m, at(10, 14, 30), 4*time.Hour, 4)
	req := oneDayRequest()
	req.SlotType = slots.HalfDay
	req.Window = calendar.Window{Start: at(10, 9, 0), End: at(10, 13, 0)}
	res, err := newService(m, nil).Commit(context.Background(), req)
	if err != nil {
		t.Fatalf("commit: %v", err)
	}
	if res.Outcome != Committed {
		t.Fatalf("morning should still be open")
	}

	req.Window = calendar.Window{Start: at(10, 14, 30), End: at(10, 18, 30)}
	res, err = newService(m, nil).Commit(context.Background(), req)
	if err != nil {
		t.Fatalf("commit: %v", err)
	}
	if res.Outcome != Rejected {
		t.Fatalf("afternoon should be rejected")
	}
}

func TestCommitMultiDayRechecksEveryDay(t *testing.T) {
	m := calendar.NewMemoryClient()
	// Wednesday morning is full.
	fill(m, at(12, 9, 0), 3*time.Hour, 4)
	req := oneDayRequest()
	req.SlotType = slots.TwoDay
	req.Window = calendar.Window{Start: at(11, 9, 0), End: at(12, 18, 0)}
	res, err := newService(m, nil).Commit(context.Background(), req)
	if err != nil {
		t.Fatalf("commit: %v", err)
	}
	if res.Outcome != Rejected {
		t.Fatalf("expected rejected two-day booking")
	}

	req.SlotType = slots.OneAndHalfDay
	req.Window = calendar.Window{Start: at(10, 9, 0), End: at(11, 12, 30)}
	res, err = newService(m, nil).Commit(context.Background(), req)
	if err != nil {
		t.Fatalf("commit: %v", err)
	}
	if res.Outcome != Committed {
		t.Fatalf("expected committed one-and-a-half day booking")
	}
}

func TestCommitCalendarFailure(t *testing.T) {
	m := calendar.NewMemoryClient()
	m.Err = calendar.ErrUnavailable
	_, err := newService(m, nil).Commit(context.Background(), oneDayRequest())
	if !errors.Is(err, calendar.ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}

func TestCommitRecorderFailureKeepsBooking(t *testing.T) {
	m := calendar.NewMemoryClient()
	rec := &recordingRecorder{err: errors.New("db down")}
	res, err := newService(m, rec).Commit(context.Background(), oneDayRequest())
	if err != nil {
		t.Fatalf("commit: %v", err)
	}
	if res.Outcome != Committed || len(m.Events()) != 1 {
		t.Fatalf("booking should stand")
	}
}

func TestCommitValidation(t *testing.T) {
	cases := map[string]func(r *Request){
		"missing customer": func(r *Request) { r.CustomerName = "" },
		"missing status":   func(r *Request) { r.Status = " " },
		"bad price":        func(r *Request) { r.TotalPrice = "abc" },
		"wrong span":       func(r *Request) { r.Window.End = r.Window.End.Add(time.Hour) },
		"reversed window":  func(r *Request) { r.Window.End = r.Window.Start },
		"unknown type":     func(r *Request) { r.SlotType = 0 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			m := calendar.NewMemoryClient()
			req := oneDayRequest()
			mutate(&req)
			_, err := newService(m, nil).Commit(context.Background(), req)
			if !errors.Is(err, ErrInvalidRequest) {
				t.Fatalf("expected ErrInvalidRequest, got %v", err)
			}
			if m.ListCalls() != 0 {
				t.Fatalf("invalid request reached the calendar")
			}
		})
	}
}

func TestCommitIdempotencyKeyReplays(t *testing.T) {
	m := calendar.NewMemoryClient()
	svc := newService(m, nil)
	req := oneDayRequest()
	req.IdempotencyKey = "checkout-42"

	first, err := svc.Commit(context.Background(), req)
	if err != nil {
		t.Fatalf("first commit: %v", err)
	}
	second, err := svc.Commit(context.Background(), req)
	if err != nil {
		t.Fatalf("second commit: %v", err)
	}
	if !second.Replayed || second.Booking.Ref != first.Booking.Ref {
		t.Fatalf("expected replay of %s, got %+v", first.Booking.Ref, second)
	}
	if second.Booking.Event.ID != first.Booking.Event.ID {
		t.Fatalf("replay returned a different event")
	}
	if len(m.Events()) != 1 {
		t.Fatalf("expected one event, got %d", len(m.Events()))
	}
}

// Two commits that both pass the capacity check both write: the calendar
// has no reservation primitive.
func TestConcurrentCommitsCanOverfill(t *testing.T) {
	m := calendar.NewMemoryClient()
	fill(m, at(10, 9, 0), 9*time.Hour, 3)
	svc := newService(m, nil)

	var inner Result
	var innerErr error
	fired := false
	m.BeforeCreate = func() {
		if fired {
			return
		}
		fired = true
		inner, innerErr = svc.Commit(context.Background(), oneDayRequest())
	}

	outer, err := svc.Commit(context.Background(), oneDayRequest())
	if err != nil || innerErr != nil {
		t.Fatalf("commit: %v / %v", err, innerErr)
	}
	if outer.Outcome != Committed || inner.Outcome != Committed {
		t.Fatalf("both commits passed the check and should have written")
	}
	if len(m.Events()) != 5 {
		t.Fatalf("expected 5 events, got %d", len(m.Events()))
	}
}

// Two commits with one idempotency key that both miss the replay lookup
// still create a single event: the second create collides on the event id.
func TestConcurrentCommitsSameKeyCreateOnce(t *testing.T) {
	m := calendar.NewMemoryClient()
	svc := newService(m, nil)
	req := oneDayRequest()
	req.IdempotencyKey = "checkout-77"

	var inner Result
	var innerErr error
	fired := false
	m.BeforeCreate = func() {
		if fired {
			return
		}
		fired = true
		inner, innerErr = svc.Commit(context.Background(), req)
	}

	outer, err := svc.Commit(context.Background(), req)
	if err != nil || innerErr != nil {
		t.Fatalf("commit: %v / %v", err, innerErr)
	}
	if len(m.Events()) != 1 {
		t.Fatalf("expected one event, got %d", len(m.Events()))
	}
	if inner.Replayed || !outer.Replayed {
		t.Fatalf("expected inner to create and outer to replay, got inner=%v outer=%v", inner.Replayed, outer.Replayed)
	}
	if outer.Outcome != Committed || outer.Booking.Ref != inner.Booking.Ref {
		t.Fatalf("outer = %+v, want replay of %s", outer, inner.Booking.Ref)
	}
	if got := m.Events()[0].ID; got != EventID(inner.Booking.Ref) {
		t.Fatalf("event id = %q, want %q", got, EventID(inner.Booking.Ref))
	}
}

func TestUpdateRetagsBooking(t *testing.T) {
	m := calendar.NewMemoryClient()
	rec := &recordingRecorder{}
	svc := newService(m, rec)
	res, err := svc.Commit(context.Background(), oneDayRequest())
	if err != nil {
		t.Fatalf("commit: %v", err)
	}

	updated, err := svc.Update(context.Background(), UpdateRequest{
		Window:     oneDayRequest().Window,
		BookingRef: res.Booking.Ref,
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Summary != "[completed] Alice: Aircon service" {
		t.Fatalf("unexpected summary %q", updated.Summary)
	}
	if updated.ColorID != UpdatedColorID {
		t.Fatalf("expected color %s, got %s", UpdatedColorID, updated.ColorID)
	}
	if len(rec.updated) != 1 || rec.updated[0] != res.Booking.Ref+":completed" {
		t.Fatalf("unexpected recorder calls %v", rec.updated)
	}

	updated, err = svc.Update(context.Background(), UpdateRequest{
		Window:     oneDayRequest().Window,
		BookingRef: res.Booking.Ref,
		Status:     "cancelled",
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if !strings.HasPrefix(updated.Summary, "[cancelled] ") {
		t.Fatalf("unexpected summary %q", updated.Summary)
	}
}

func TestUpdateUnknownRef(t *testing.T) {
	m := calendar.NewMemoryClient()
	fill(m, at(10, 9, 0), time.Hour, 1)
	_, err := newService(m, nil).Update(context.Background(), UpdateRequest{
		Window:     oneDayRequest().Window,
		BookingRef: "missing",
	})
	if !errors.Is(err, calendar.ErrEventNotFound) {
		t.Fatalf("expected ErrEventNotFound, got %v", err)
	}
}

func TestRetagWithoutProperties(t *testing.T) {
	got := retag(calendar.Event{Summary: "[booked] Bob: Sofa"}, "done")
	if got != "[done] Bob: Sofa" {
		t.Fatalf("unexpected summary %q", got)
	}
}
