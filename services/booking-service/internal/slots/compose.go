package slots

import (
	"time"

	"github.com/homefix/calbook/services/booking-service/internal/timeconv"
)

type clock timeconv.Clock

func (c clock) sub(o clock) time.Duration {
	return time.Duration(c.Hour-o.Hour)*time.Hour + time.Duration(c.Minute-o.Minute)*time.Minute
}

// Fixed daily templates. Half-day shifts last capacity.HalfDayLength, the
// full-day check window capacity.FullDayLength.
var (
	dayStart       = clock{Hour: 9}
	afternoonStart = clock{Hour: 14, Minute: 30}
	dayEnd         = clock{Hour: 18}
	morningEnd     = clock{Hour: 12, Minute: 30}
)

func iso(day time.Time, c clock) string {
	return timeconv.FormatISO(day, timeconv.Clock(c))
}

// composeRuns emits D 09:00 -> D+n-1 18:00 for every open day D whose next
// n-1 calendar days are open too.
func composeRuns(openDays []time.Time, n int) []Slot {
	open := daySet(openDays)
	var out []Slot
	for _, d := range openDays {
		if !runOpen(open, d, n) {
			continue
		}
		out = append(out, Slot{Start: iso(d, dayStart), End: iso(d.AddDate(0, 0, n-1), dayEnd)})
	}
	return out
}

// composeWithMorning emits D 09:00 -> D+n 12:30 when the n-day run from D is
// open and the morning slot on D+n is among openMornings, matched on its exact
// start string.
func composeWithMorning(openDays []time.Time, openMornings []Slot, n int) []Slot {
	open := daySet(openDays)
	mornings := make(map[string]bool, len(openMornings))
	for _, s := range openMornings {
		mornings[s.Start] = true
	}
	var out []Slot
	for _, d := range openDays {
		if !runOpen(open, d, n) {
			continue
		}
		last := d.AddDate(0, 0, n)
		if !mornings[iso(last, dayStart)] {
			continue
		}
		out = append(out, Slot{Start: iso(d, dayStart), End: iso(last, morningEnd)})
	}
	return out
}

func daySet(days []time.Time) map[string]bool {
	set := make(map[string]bool, len(days))
	for _, d := range days {
		set[timeconv.DayKey(d)] = true
	}
	return set
}

func runOpen(open map[string]bool, d time.Time, n int) bool {
	for i := 0; i < n; i++ {
		if !open[timeconv.DayKey(d.AddDate(0, 0, i))] {
			return false
		}
	}
	return true
}
