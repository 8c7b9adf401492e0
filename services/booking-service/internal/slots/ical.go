package slots

import (
	"fmt"
	"io"
	"time"

	"github.com/emersion/go-ical"
	"github.com/homefix/calbook/services/booking-service/internal/timeconv"
)

const icalProductID = "-//homefix//calbook//EN"

// WriteICS renders open windows as an iCalendar feed so they can be
// subscribed to from a calendar app.
func WriteICS(w io.Writer, t Type, open []Slot, now time.Time) error {
	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropVersion, "2.0")
	cal.Props.SetText(ical.PropProductID, icalProductID)
	cal.Props.SetText("X-WR-CALNAME", fmt.Sprintf("Open %s-day slots", t))
	cal.Props.SetText("X-WR-TIMEZONE", timeconv.Zone)

	for _, s := range open {
		start, err := timeconv.ParseZoned(s.Start)
		if err != nil {
			return err
		}
		end, err := timeconv.ParseZoned(s.End)
		if err != nil {
			return err
		}
		event := ical.NewEvent()
		event.Props.SetText(ical.PropUID, fmt.Sprintf("%s-%s@calbook", t, start.UTC().Format("20060102T150405Z")))
		event.Props.SetDateTime(ical.PropDateTimeStamp, now.UTC())
		event.Props.SetDateTime(ical.PropDateTimeStart, start.UTC())
		event.Props.SetDateTime(ical.PropDateTimeEnd, end.UTC())
		event.Props.SetText(ical.PropSummary, fmt.Sprintf("Open: %s-day booking", t))
		event.Props.SetText(ical.PropTransparency, "TRANSPARENT")
		cal.Children = append(cal.Children, event.Component)
	}

	return ical.NewEncoder(w).Encode(cal)
}
