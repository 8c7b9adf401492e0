package capacity

import (
	"context"
	"time"

	"github.com/homefix/calbook/services/booking-service/internal/calendar"
	"github.com/homefix/calbook/services/booking-service/internal/timeconv"
)

// Checker runs the capacity rules against the live calendar. Lookup failures
// are returned as errors, never as an availability answer.
type Checker struct {
	cal calendar.Client
}

func NewChecker(cal calendar.Client) *Checker {
	return &Checker{cal: cal}
}

func (c *Checker) HalfDay(ctx context.Context, w calendar.Window) (bool, error) {
	if timeconv.IsSunday(w.Start) {
		return false, nil
	}
	events, err := c.cal.ListEvents(ctx, w)
	if err != nil {
		return false, err
	}
	return HalfDayOpen(w, events), nil
}

func (c *Checker) FullDay(ctx context.Context, w calendar.Window) (bool, error) {
	if timeconv.IsSunday(w.Start) {
		return false, nil
	}
	events, err := c.cal.ListEvents(ctx, w)
	if err != nil {
		return false, err
	}
	return FullDayOpen(w, events), nil
}

// Consecutive checks the full-day window starting at start on each of days
// consecutive days.
func (c *Checker) Consecutive(ctx context.Context, start time.Time, days int) (bool, error) {
	for i := 0; i < days; i++ {
		dayStart := start.AddDate(0, 0, i)
		ok, err := c.FullDay(ctx, calendar.Window{Start: dayStart, End: dayStart.Add(FullDayLength)})
		if err != nil || !ok {
			return false, err
		}
	}
	return true, nil
}

// WithTrailingMorning checks days full days from start followed by the
// morning half-day at the same time of day on the next day.
func (c *Checker) WithTrailingMorning(ctx context.Context, start time.Time, days int) (bool, error) {
	ok, err := c.Consecutive(ctx, start, days)
	if err != nil || !ok {
		return false, err
	}
	morning := start.AddDate(0, 0, days)
	return c.HalfDay(ctx, calendar.Window{Start: morning, End: morning.Add(HalfDayLength)})
}
