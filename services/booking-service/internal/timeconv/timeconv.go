// Package timeconv normalizes calendar and request timestamps to the business
// time zone. Every weekday, hour-of-day and duration check runs on its output.
package timeconv

import (
	"errors"
	"fmt"
	"strings"
	"time"
	_ "time/tzdata"
)

// Zone is the IANA name of the business time zone.
const Zone = "Asia/Singapore"

// ISOLayout renders business-zone instants as 2024-06-10T09:00:00+08:00.
const ISOLayout = "2006-01-02T15:04:05-07:00"

const dateLayout = "2006-01-02"

var Location = mustLoad(Zone)

var ErrParse = errors.New("malformed time")

func mustLoad(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		panic(err)
	}
	return loc
}

// Clock is a wall-clock time of day in the business zone.
type Clock struct {
	Hour   int
	Minute int
}

func (c Clock) String() string {
	return fmt.Sprintf("%02d:%02d", c.Hour, c.Minute)
}

// ParseUTCInstant parses an instant as returned by the calendar service. An
// explicit offset is honoured; a bare timestamp is read as UTC.
func ParseUTCInstant(s string) (time.Time, error) {
	return parseInstant(s, time.UTC)
}

// ParseZoned parses an instant supplied by clients. A bare timestamp is read
// in the business zone.
func ParseZoned(s string) (time.Time, error) {
	return parseInstant(s, Location)
}

// ParseDate parses a date-only value as the start of that day in the business zone.
func ParseDate(s string) (time.Time, error) {
	t, err := time.ParseInLocation(dateLayout, strings.TrimSpace(s), Location)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrParse, s)
	}
	return t, nil
}

func parseInstant(s string, naive *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t.In(Location), nil
	}
	if t, err := time.ParseInLocation("2006-01-02T15:04:05", s, naive); err == nil {
		return t.In(Location), nil
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrParse, s)
}

// On returns the instant at clock on the business-zone calendar day of date.
func On(date time.Time, c Clock) time.Time {
	d := date.In(Location)
	return time.Date(d.Year(), d.Month(), d.Day(), c.Hour, c.Minute, 0, 0, Location)
}

// FormatISO renders the business-zone instant at clock on date's calendar day.
func FormatISO(date time.Time, c Clock) string {
	return Format(On(date, c))
}

func Format(t time.Time) string {
	return t.In(Location).Format(ISOLayout)
}

// Day truncates t to midnight of its business-zone calendar day.
func Day(t time.Time) time.Time {
	return On(t, Clock{})
}

// DayKey identifies the business-zone calendar day of t.
func DayKey(t time.Time) string {
	return t.In(Location).Format(dateLayout)
}

// ClockOf returns the business-zone wall-clock time of t, dropping seconds.
func ClockOf(t time.Time) Clock {
	t = t.In(Location)
	return Clock{Hour: t.Hour(), Minute: t.Minute()}
}

func IsSunday(t time.Time) bool {
	return t.In(Location).Weekday() == time.Sunday
}
