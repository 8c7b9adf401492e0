package capacity

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/homefix/calbook/services/booking-service/internal/calendar"
	"github.com/homefix/calbook/services/booking-service/internal/timeconv"
)

// 2024-06-10 is a Monday, 2024-06-09 a Sunday.
var monday = time.Date(2024, 6, 10, 0, 0, 0, 0, timeconv.Location)

func at(day time.Time, hour, minute int) time.Time {
	return timeconv.On(day, timeconv.Clock{Hour: hour, Minute: minute})
}

func event(start time.Time, d time.Duration) calendar.Event {
	return calendar.Event{Window: calendar.Window{Start: start, End: start.Add(d)}}
}

func repeat(e calendar.Event, n int) []calendar.Event {
	out := make([]calendar.Event, n)
	for i := range out {
		out[i] = e
	}
	return out
}

func TestClassify(t *testing.T) {
	cases := []struct {
		name string
		e    calendar.Event
		want Bucket
	}{
		{"morning shift", event(at(monday, 9, 0), 4*time.Hour), Morning},
		{"afternoon shift", event(at(monday, 14, 30), 4*time.Hour), Afternoon},
		{"ends exactly 14:00", event(at(monday, 10, 0), 4*time.Hour), Uncounted},
		{"exactly five hours", event(at(monday, 9, 0), 5*time.Hour), Uncounted},
		{"full day", event(at(monday, 9, 0), 9*time.Hour), FullDay},
		{"all-day date event", event(monday, 24*time.Hour), FullDay},
	}
	for _, tc := range cases {
		if got := Classify(tc.e); got != tc.want {
			t.Fatalf("%s: expected %s, got %s", tc.name, tc.want, got)
		}
	}
}

func TestSundayIsNeverOpen(t *testing.T) {
	sunday := monday.AddDate(0, 0, -1)
	w := calendar.Window{Start: at(sunday, 9, 0), End: at(sunday, 18, 0)}
	if HalfDayOpen(w, nil) || FullDayOpen(w, nil) {
		t.Fatal("Sunday windows must be unavailable")
	}

	m := calendar.NewMemoryClient()
	c := NewChecker(m)
	if ok, err := c.HalfDay(context.Background(), w); ok || err != nil {
		t.Fatalf("expected unavailable without error, got %v %v", ok, err)
	}
	if ok, err := c.FullDay(context.Background(), w); ok || err != nil {
		t.Fatalf("expected unavailable without error, got %v %v", ok, err)
	}
	if m.ListCalls() != 0 {
		t.Fatalf("Sunday checks should not query the calendar, got %d calls", m.ListCalls())
	}
}

func TestHalfDayCountThreshold(t *testing.T) {
	w := calendar.Window{Start: at(monday, 9, 0), End: at(monday, 13, 0)}
	busy := event(at(monday, 9, 0), 4*time.Hour)
	if !HalfDayOpen(w, repeat(busy, 3)) {
		t.Fatal("3 events should leave the half-day open")
	}
	if HalfDayOpen(w, repeat(busy, 4)) {
		t.Fatal("4 events should fill the half-day")
	}
}

func TestFullDaySaturation(t *testing.T) {
	w := calendar.Window{Start: at(monday, 9, 0), End: at(monday, 18, 0)}
	mornings := repeat(event(at(monday, 9, 0), 4*time.Hour), 4)
	if !FullDayOpen(w, mornings[:3]) {
		t.Fatal("3 mornings leave one morning unit for the full day")
	}
	if FullDayOpen(w, mornings) {
		t.Fatal("4 mornings should block a full day even with the afternoon empty")
	}

	afternoons := repeat(event(at(monday, 14, 30), 4*time.Hour), 4)
	if FullDayOpen(w, afternoons) {
		t.Fatal("4 afternoons should block a full day")
	}

	mixed := append(repeat(event(at(monday, 9, 0), 9*time.Hour), 2), mornings[0], afternoons[0])
	if !FullDayOpen(w, mixed) {
		t.Fatal("2 full days + 1 morning + 1 afternoon leaves 1 unit per half")
	}
	if FullDayOpen(w, append(mixed, mornings[0])) {
		t.Fatal("2 full days + 2 mornings fills the morning")
	}
}

func TestFullDayIgnoresUncounted(t *testing.T) {
	w := calendar.Window{Start: at(monday, 9, 0), End: at(monday, 18, 0)}
	fiveHours := repeat(event(at(monday, 9, 0), 5*time.Hour), 6)
	if !FullDayOpen(w, fiveHours) {
		t.Fatal("exactly-5h events are not counted by the full-day rule")
	}
	if HalfDayOpen(w, fiveHours) {
		t.Fatal("the half-day rule counts every event")
	}
}

func TestCheckerConsecutiveAndTrailingMorning(t *testing.T) {
	tuesday := monday.AddDate(0, 0, 1)
	wednesday := monday.AddDate(0, 0, 2)
	thursday := monday.AddDate(0, 0, 3)
	friday := monday.AddDate(0, 0, 4)
	m := calendar.NewMemoryClient()
	for i := 0; i < 4; i++ {
		m.Add(event(at(tuesday, 14, 30), 4*time.Hour))
		m.Add(event(at(thursday, 9, 0), 4*time.Hour))
	}
	c := NewChecker(m)
	ctx := context.Background()

	if ok, err := c.Consecutive(ctx, at(monday, 9, 0), 1); !ok || err != nil {
		t.Fatalf("Monday alone should be open: %v %v", ok, err)
	}
	if ok, err := c.Consecutive(ctx, at(monday, 9, 0), 2); ok || err != nil {
		t.Fatalf("Tuesday afternoon is full: %v %v", ok, err)
	}
	// Tuesday morning is free for a trailing half-day even though the full day is not.
	if ok, err := c.WithTrailingMorning(ctx, at(monday, 9, 0), 1); !ok || err != nil {
		t.Fatalf("1.5 days from Monday should be open: %v %v", ok, err)
	}
	if ok, err := c.WithTrailingMorning(ctx, at(wednesday, 9, 0), 1); ok || err != nil {
		t.Fatalf("Thursday morning is full: %v %v", ok, err)
	}
	if ok, err := c.WithTrailingMorning(ctx, at(friday, 9, 0), 1); !ok || err != nil {
		t.Fatalf("Friday + Saturday morning should be open: %v %v", ok, err)
	}
	if ok, err := c.WithTrailingMorning(ctx, at(friday, 9, 0), 2); ok || err != nil {
		t.Fatalf("a trailing Sunday morning must be closed: %v %v", ok, err)
	}
}

func TestCheckerSurfacesCalendarFailure(t *testing.T) {
	m := calendar.NewMemoryClient()
	m.Err = calendar.ErrUnavailable
	c := NewChecker(m)
	w := calendar.Window{Start: at(monday, 9, 0), End: at(monday, 13, 0)}
	if _, err := c.HalfDay(context.Background(), w); !errors.Is(err, calendar.ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
	if _, err := c.Consecutive(context.Background(), w.Start, 2); !errors.Is(err, calendar.ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}
