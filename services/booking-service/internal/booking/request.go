package booking

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/homefix/calbook/services/booking-service/internal/calendar"
	"github.com/homefix/calbook/services/booking-service/internal/slots"
)

var ErrInvalidRequest = errors.New("invalid booking request")

type AddOn struct {
	Title  string
	Option string
}

// Request is a validated booking attempt for one window.
type Request struct {
	SlotType     slots.Type
	Window       calendar.Window
	Status       string
	CustomerName string
	ProductName  string
	// TotalPrice keeps the client's textual form so it is echoed unchanged.
	TotalPrice      json.Number
	AddOns          []AddOn
	Contact         string
	AdditionalNotes string
	ColorID         string
	IdempotencyKey  string
}

func (r Request) Validate() error {
	var problems []string
	if strings.TrimSpace(r.Status) == "" {
		problems = append(problems, "status required")
	}
	if strings.TrimSpace(r.CustomerName) == "" {
		problems = append(problems, "customer_name required")
	}
	if strings.TrimSpace(r.ProductName) == "" {
		problems = append(problems, "product_name required")
	}
	if r.TotalPrice != "" {
		if _, err := r.TotalPrice.Float64(); err != nil {
			problems = append(problems, "totalPrice must be a number")
		}
	}
	if !r.Window.Valid() {
		problems = append(problems, "selectedTimeslot end must be after start")
	} else if span := r.SlotType.Span(); span > 0 && r.Window.Duration() != span {
		problems = append(problems, fmt.Sprintf("selectedTimeslot must span %s for slot type %s", span, r.SlotType))
	}
	if r.SlotType.FullDays() == 0 && r.SlotType != slots.HalfDay {
		problems = append(problems, "unknown slot_type")
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidRequest, strings.Join(problems, "; "))
	}
	return nil
}

// UpdateRequest re-tags the booking identified by BookingRef inside Window.
type UpdateRequest struct {
	Window     calendar.Window
	BookingRef string
	Status     string
}

func (r UpdateRequest) Validate() error {
	if !r.Window.Valid() {
		return fmt.Errorf("%w: end must be after start", ErrInvalidRequest)
	}
	if strings.TrimSpace(r.BookingRef) == "" {
		return fmt.Errorf("%w: booking_ref required", ErrInvalidRequest)
	}
	return nil
}
