package outbox

import "encoding/json"

const (
	AggregateBooking = "booking"

	EventBookingCommitted = "calbook.booking.committed.v1"
	EventBookingUpdated   = "calbook.booking.updated.v1"
)

type Event struct {
	AggregateType string
	AggregateID   string
	EventType     string
	Payload       []byte
}

// NewEvent marshals payload into an Event for the booking aggregate ref.
func NewEvent(eventType, ref string, payload any) (Event, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Event{}, err
	}
	return Event{
		AggregateType: AggregateBooking,
		AggregateID:   ref,
		EventType:     eventType,
		Payload:       raw,
	}, nil
}
