package slots

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/homefix/calbook/services/booking-service/internal/capacity"
)

var ErrUnknownType = errors.New("unknown slot type")

// Type is a booking duration class.
type Type int

const (
	HalfDay Type = iota + 1
	OneDay
	TwoDay
	ThreeDay
	OneAndHalfDay
	TwoAndHalfDay
	ThreeAndHalfDay
)

var typeCodes = map[Type]string{
	HalfDay:         "0.5",
	OneDay:          "1",
	TwoDay:          "2",
	ThreeDay:        "3",
	OneAndHalfDay:   "1.5",
	TwoAndHalfDay:   "2.5",
	ThreeAndHalfDay: "3.5",
}

// Types lists every duration class in display order.
var Types = []Type{HalfDay, OneDay, OneAndHalfDay, TwoDay, TwoAndHalfDay, ThreeDay, ThreeAndHalfDay}

// ParseType accepts the numeric day count used by clients: 0.5, 1, 1.5, 2,
// 2.5, 3 or 3.5 (trailing zeros allowed).
func ParseType(s string) (Type, error) {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrUnknownType, s)
	}
	for t, code := range typeCodes {
		want, _ := strconv.ParseFloat(code, 64)
		if f == want {
			return t, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownType, s)
}

func (t Type) String() string {
	if code, ok := typeCodes[t]; ok {
		return code
	}
	return "unknown"
}

// FullDays is the number of consecutive full days in the booking.
func (t Type) FullDays() int {
	switch t {
	case OneDay, OneAndHalfDay:
		return 1
	case TwoDay, TwoAndHalfDay:
		return 2
	case ThreeDay, ThreeAndHalfDay:
		return 3
	default:
		return 0
	}
}

// TrailingMorning reports whether the booking ends with a morning half-day.
func (t Type) TrailingMorning() bool {
	return t == OneAndHalfDay || t == TwoAndHalfDay || t == ThreeAndHalfDay
}

// Span is the length of the window offered for t, from its first start to
// its last end.
func (t Type) Span() time.Duration {
	switch {
	case t == HalfDay:
		return capacity.HalfDayLength
	case t.TrailingMorning():
		return time.Duration(t.FullDays())*24*time.Hour + morningEnd.sub(dayStart)
	case t.FullDays() > 0:
		return time.Duration(t.FullDays()-1)*24*time.Hour + dayEnd.sub(dayStart)
	default:
		return 0
	}
}
