// Package capacity decides whether a candidate window on the shared calendar
// still has room. The calendar models four parallel crews; an event of any
// shape occupies one of them.
package capacity

import (
	"time"

	"github.com/homefix/calbook/services/booking-service/internal/calendar"
	"github.com/homefix/calbook/services/booking-service/internal/timeconv"
)

// Limit is the number of concurrent bookings a half of a day can hold.
const Limit = 4

const (
	HalfDayLength = 4 * time.Hour
	FullDayLength = 9 * time.Hour

	// Events shorter than this are half-day bookings, longer ones full-day.
	// Events of exactly this length fall in neither class.
	halfDayCutoff = 5 * time.Hour
)

// midday splits half-day events into morning and afternoon by their end time.
var midday = timeconv.Clock{Hour: 14}

type Bucket int

const (
	Uncounted Bucket = iota
	Morning
	Afternoon
	FullDay
)

func (b Bucket) String() string {
	switch b {
	case Morning:
		return "morning"
	case Afternoon:
		return "afternoon"
	case FullDay:
		return "full_day"
	default:
		return "uncounted"
	}
}

// Classify buckets an existing event by its duration and, for half-day
// events, by whether it ends before or after 14:00 business time.
func Classify(e calendar.Event) Bucket {
	d := e.Window.Duration()
	switch {
	case d < halfDayCutoff:
		end := e.Window.End.In(timeconv.Location)
		cutoff := timeconv.On(end, midday)
		switch {
		case end.Before(cutoff):
			return Morning
		case end.After(cutoff):
			return Afternoon
		default:
			return Uncounted
		}
	case d > halfDayCutoff:
		return FullDay
	default:
		return Uncounted
	}
}

// HalfDayOpen applies the half-day rule: fewer than Limit intersecting events.
func HalfDayOpen(w calendar.Window, events []calendar.Event) bool {
	if timeconv.IsSunday(w.Start) {
		return false
	}
	return len(events) < Limit
}

// FullDayOpen applies the full-day rule: a full-day booking takes one unit
// from the morning and one from the afternoon, so both halves need room.
func FullDayOpen(w calendar.Window, events []calendar.Event) bool {
	if timeconv.IsSunday(w.Start) {
		return false
	}
	var morning, afternoon, full int
	for _, e := range events {
		switch Classify(e) {
		case Morning:
			morning++
		case Afternoon:
			afternoon++
		case FullDay:
			full++
		}
	}
	return full+morning < Limit && full+afternoon < Limit
}
