// Package slots lists the open booking windows over the look-ahead horizon
// for each duration class.
package slots

import (
	"context"
	"fmt"
	"time"

	"github.com/homefix/calbook/services/booking-service/internal/calendar"
	"github.com/homefix/calbook/services/booking-service/internal/capacity"
	"github.com/homefix/calbook/services/booking-service/internal/timeconv"
	"golang.org/x/sync/errgroup"
)

const (
	// LeadDays is the blackout before the first bookable day.
	LeadDays = 4
	// HorizonDays is how many days from the first bookable day are offered.
	HorizonDays = 14
)

// Slot is an open window rendered in the business zone.
type Slot struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// Checker is the part of capacity.Checker the generator needs.
type Checker interface {
	HalfDay(ctx context.Context, w calendar.Window) (bool, error)
	FullDay(ctx context.Context, w calendar.Window) (bool, error)
}

type Generator struct {
	checker     Checker
	concurrency int

	// Now is the wall clock; tests pin it.
	Now func() time.Time
}

// NewGenerator runs up to concurrency capacity checks at once; values below 1
// check days one at a time.
func NewGenerator(checker Checker, concurrency int) *Generator {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Generator{checker: checker, concurrency: concurrency, Now: time.Now}
}

// Horizon returns the first bookable day (midnight, business zone) and the
// HorizonDays days that follow it.
func Horizon(now time.Time) []time.Time {
	first := timeconv.Day(now).AddDate(0, 0, LeadDays)
	days := make([]time.Time, HorizonDays)
	for i := range days {
		days[i] = first.AddDate(0, 0, i)
	}
	return days
}

// Available lists the open windows for t, in chronological order of start.
func (g *Generator) Available(ctx context.Context, t Type) ([]Slot, error) {
	days := Horizon(g.Now())

	switch {
	case t == HalfDay:
		var windows []calendar.Window
		for _, d := range days {
			windows = append(windows, shift(d, dayStart, capacity.HalfDayLength), shift(d, afternoonStart, capacity.HalfDayLength))
		}
		return g.openHalfDays(ctx, windows)

	case t.TrailingMorning():
		openDays, err := g.openFullDays(ctx, days)
		if err != nil {
			return nil, err
		}
		var mornings []calendar.Window
		for _, d := range days {
			mornings = append(mornings, shift(d, dayStart, capacity.HalfDayLength))
		}
		openMornings, err := g.openHalfDays(ctx, mornings)
		if err != nil {
			return nil, err
		}
		return composeWithMorning(openDays, openMornings, t.FullDays()), nil

	case t.FullDays() > 0:
		openDays, err := g.openFullDays(ctx, days)
		if err != nil {
			return nil, err
		}
		return composeRuns(openDays, t.FullDays()), nil

	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownType, int(t))
	}
}

func (g *Generator) openHalfDays(ctx context.Context, windows []calendar.Window) ([]Slot, error) {
	open, err := g.checkAll(ctx, windows, g.checker.HalfDay)
	if err != nil {
		return nil, err
	}
	var out []Slot
	for i, w := range windows {
		if open[i] {
			out = append(out, Slot{Start: timeconv.Format(w.Start), End: timeconv.Format(w.End)})
		}
	}
	return out, nil
}

func (g *Generator) openFullDays(ctx context.Context, days []time.Time) ([]time.Time, error) {
	windows := make([]calendar.Window, len(days))
	for i, d := range days {
		windows[i] = shift(d, dayStart, capacity.FullDayLength)
	}
	open, err := g.checkAll(ctx, windows, g.checker.FullDay)
	if err != nil {
		return nil, err
	}
	var out []time.Time
	for i, d := range days {
		if open[i] {
			out = append(out, d)
		}
	}
	return out, nil
}

// checkAll evaluates check for every window, stopping at the first error.
// Results keep the order of windows.
func (g *Generator) checkAll(ctx context.Context, windows []calendar.Window, check func(context.Context, calendar.Window) (bool, error)) ([]bool, error) {
	open := make([]bool, len(windows))
	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(g.concurrency)
	for i, w := range windows {
		eg.Go(func() error {
			ok, err := check(ctx, w)
			if err != nil {
				return err
			}
			open[i] = ok
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return open, nil
}

func shift(day time.Time, start clock, d time.Duration) calendar.Window {
	s := timeconv.On(day, timeconv.Clock(start))
	return calendar.Window{Start: s, End: s.Add(d)}
}
