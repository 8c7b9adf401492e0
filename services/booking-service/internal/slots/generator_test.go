package slots

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/homefix/calbook/services/booking-service/internal/calendar"
	"github.com/homefix/calbook/services/booking-service/internal/capacity"
	"github.com/homefix/calbook/services/booking-service/internal/timeconv"
)

// today 2024-06-05 puts the horizon at 2024-06-09 (Sunday) .. 2024-06-22.
var today = time.Date(2024, 6, 5, 15, 0, 0, 0, timeconv.Location)

func newGenerator(m *calendar.MemoryClient, concurrency int) *Generator {
	g := NewGenerator(capacity.NewChecker(m), concurrency)
	g.Now = func() time.Time { return today }
	return g
}

func day(d int) time.Time {
	return time.Date(2024, 6, d, 0, 0, 0, 0, timeconv.Location)
}

func at(d, hour, minute int) time.Time {
	return time.Date(2024, 6, d, hour, minute, 0, 0, timeconv.Location)
}

func fill(m *calendar.MemoryClient, start time.Time, d time.Duration, n int) {
	for i := 0; i < n; i++ {
		m.Add(calendar.Event{Window: calendar.Window{Start: start, End: start.Add(d)}})
	}
}

func TestHorizon(t *testing.T) {
	days := Horizon(today)
	if len(days) != HorizonDays {
		t.Fatalf("expected %d days, got %d", HorizonDays, len(days))
	}
	if timeconv.DayKey(days[0]) != "2024-06-09" || timeconv.DayKey(days[13]) != "2024-06-22" {
		t.Fatalf("unexpected horizon %s..%s", timeconv.DayKey(days[0]), timeconv.DayKey(days[13]))
	}
	// 23:30 UTC on 06-04 is already 06-05 in Singapore.
	if timeconv.DayKey(Horizon(time.Date(2024, 6, 4, 23, 30, 0, 0, time.UTC))[0]) != "2024-06-09" {
		t.Fatal("horizon must be anchored on the business-zone date")
	}
}

func TestOneDayEmptyCalendar(t *testing.T) {
	for _, concurrency := range []int{1, 4} {
		got, err := newGenerator(calendar.NewMemoryClient(), concurrency).Available(context.Background(), OneDay)
		if err != nil {
			t.Fatalf("Available failed: %v", err)
		}
		if len(got) != 12 {
			t.Fatalf("expected 12 windows (14 days minus Sundays 06-09 and 06-16), got %d", len(got))
		}
		if got[0] != (Slot{Start: "2024-06-10T09:00:00+08:00", End: "2024-06-10T18:00:00+08:00"}) {
			t.Fatalf("unexpected first window %+v", got[0])
		}
		if got[len(got)-1].Start != "2024-06-22T09:00:00+08:00" {
			t.Fatalf("unexpected last window %+v", got[len(got)-1])
		}
		for _, s := range got {
			if s.Start == "2024-06-16T09:00:00+08:00" {
				t.Fatal("Sunday must be excluded")
			}
		}
	}
}

func TestHalfDayShifts(t *testing.T) {
	m := calendar.NewMemoryClient()
	fill(m, at(10, 9, 0), 4*time.Hour, 4)

	got, err := newGenerator(m, 2).Available(context.Background(), HalfDay)
	if err != nil {
		t.Fatalf("Available failed: %v", err)
	}
	// 12 working days x 2 shifts, minus the full Monday morning.
	if len(got) != 23 {
		t.Fatalf("expected 23 half-day windows, got %d", len(got))
	}
	if got[0] != (Slot{Start: "2024-06-10T14:30:00+08:00", End: "2024-06-10T18:30:00+08:00"}) {
		t.Fatalf("unexpected first window %+v", got[0])
	}
	if got[1].Start != "2024-06-11T09:00:00+08:00" || got[1].End != "2024-06-11T13:00:00+08:00" {
		t.Fatalf("unexpected second window %+v", got[1])
	}
}

func TestTwoDayNeedsAdjacentOpenDay(t *testing.T) {
	m := calendar.NewMemoryClient()
	fill(m, at(12, 9, 0), 9*time.Hour, 4) // Wednesday full

	got, err := newGenerator(m, 1).Available(context.Background(), TwoDay)
	if err != nil {
		t.Fatalf("Available failed: %v", err)
	}
	starts := map[string]bool{}
	for _, s := range got {
		starts[s.Start] = true
	}
	if starts["2024-06-11T09:00:00+08:00"] {
		t.Fatal("Tuesday-Wednesday must not be offered when Wednesday is full")
	}
	if starts["2024-06-12T09:00:00+08:00"] {
		t.Fatal("Wednesday-Thursday must not be offered when Wednesday is full")
	}
	if starts["2024-06-15T09:00:00+08:00"] {
		t.Fatal("Saturday-Sunday must not be offered")
	}
	if !starts["2024-06-10T09:00:00+08:00"] {
		t.Fatal("Monday-Tuesday should be offered")
	}
	if got[0].End != "2024-06-11T18:00:00+08:00" {
		t.Fatalf("unexpected end %s", got[0].End)
	}
	// The run may not leave the horizon: 06-22 has no 06-23 partner.
	if starts["2024-06-22T09:00:00+08:00"] {
		t.Fatal("runs must stay inside the horizon")
	}
}

func TestThreeDay(t *testing.T) {
	got, err := newGenerator(calendar.NewMemoryClient(), 3).Available(context.Background(), ThreeDay)
	if err != nil {
		t.Fatalf("Available failed: %v", err)
	}
	// Mon-Wed, Tue-Thu, Wed-Fri, Thu-Sat each week; the second week ends on 06-22.
	if len(got) != 8 {
		t.Fatalf("expected 8 windows, got %d: %+v", len(got), got)
	}
	if got[0] != (Slot{Start: "2024-06-10T09:00:00+08:00", End: "2024-06-12T18:00:00+08:00"}) {
		t.Fatalf("unexpected first window %+v", got[0])
	}
}

func TestOneAndHalfDayUsesNextMorningOnly(t *testing.T) {
	m := calendar.NewMemoryClient()
	fill(m, at(11, 14, 30), 4*time.Hour, 4) // Tuesday afternoon full, morning free
	fill(m, at(13, 9, 0), 4*time.Hour, 4)   // Thursday morning full

	got, err := newGenerator(m, 4).Available(context.Background(), OneAndHalfDay)
	if err != nil {
		t.Fatalf("Available failed: %v", err)
	}
	starts := map[string]string{}
	for _, s := range got {
		starts[s.Start] = s.End
	}
	if starts["2024-06-10T09:00:00+08:00"] != "2024-06-11T12:30:00+08:00" {
		t.Fatalf("Monday + Tuesday morning should be offered, got %v", got)
	}
	if _, ok := starts["2024-06-11T09:00:00+08:00"]; ok {
		t.Fatal("Tuesday is not full-day open")
	}
	if _, ok := starts["2024-06-12T09:00:00+08:00"]; ok {
		t.Fatal("Thursday morning is full")
	}
	if _, ok := starts["2024-06-15T09:00:00+08:00"]; ok {
		t.Fatal("a trailing Sunday morning is never open")
	}
}

func TestThreeAndHalfDay(t *testing.T) {
	got, err := newGenerator(calendar.NewMemoryClient(), 1).Available(context.Background(), ThreeAndHalfDay)
	if err != nil {
		t.Fatalf("Available failed: %v", err)
	}
	for _, s := range got {
		start, _ := timeconv.ParseZoned(s.Start)
		end, _ := timeconv.ParseZoned(s.End)
		if end.Sub(start) != ThreeAndHalfDay.Span() {
			t.Fatalf("window %+v does not span %s", s, ThreeAndHalfDay.Span())
		}
	}
	if len(got) != 6 {
		t.Fatalf("expected 6 windows, got %d: %+v", len(got), got)
	}
}

func TestCalendarFailureIsNotEmptyResult(t *testing.T) {
	m := calendar.NewMemoryClient()
	m.Err = calendar.ErrUnavailable
	for _, st := range Types {
		got, err := newGenerator(m, 4).Available(context.Background(), st)
		if !errors.Is(err, calendar.ErrUnavailable) || got != nil {
			t.Fatalf("%s: expected ErrUnavailable and no slots, got %v %v", st, got, err)
		}
	}
}

func TestParseType(t *testing.T) {
	cases := map[string]Type{"0.5": HalfDay, "1": OneDay, "1.0": OneDay, "1.5": OneAndHalfDay, "2": TwoDay, "2.5": TwoAndHalfDay, "3": ThreeDay, "3.50": ThreeAndHalfDay}
	for in, want := range cases {
		got, err := ParseType(in)
		if err != nil || got != want {
			t.Fatalf("ParseType(%q) = %v, %v; want %v", in, got, err, want)
		}
	}
	for _, in := range []string{"", "4", "0", "half", "2.25"} {
		if _, err := ParseType(in); !errors.Is(err, ErrUnknownType) {
			t.Fatalf("ParseType(%q): expected ErrUnknownType, got %v", in, err)
		}
	}
}

func TestSpan(t *testing.T) {
	cases := map[Type]time.Duration{
		HalfDay:       4 * time.Hour,
		OneDay:        9 * time.Hour,
		TwoDay:        33 * time.Hour,
		OneAndHalfDay: 27*time.Hour + 30*time.Minute,
	}
	for st, want := range cases {
		if st.Span() != want {
			t.Fatalf("%s: expected span %s, got %s", st, want, st.Span())
		}
	}
}
