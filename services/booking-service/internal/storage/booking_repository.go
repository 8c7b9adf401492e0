package storage

import (
	"context"
	"encoding/json"
	"time"

	"github.com/homefix/calbook/libs/db"
	"github.com/homefix/calbook/services/booking-service/internal/booking"
	"github.com/homefix/calbook/services/booking-service/internal/calendar"
	"github.com/homefix/calbook/services/booking-service/internal/outbox"
	"github.com/jackc/pgx/v5"
)

// BookingRepository mirrors calendar bookings into Postgres and queues an
// outbox event for each change in the same transaction.
type BookingRepository struct {
	pool   *db.Pool
	outbox *outbox.Repository
}

func NewBookingRepository(pool *db.Pool, ob *outbox.Repository) *BookingRepository {
	return &BookingRepository{pool: pool, outbox: ob}
}

var _ booking.Recorder = (*BookingRepository)(nil)

type addOnRow struct {
	Title  string `json:"add_on_title"`
	Option string `json:"option"`
}

// CommittedPayload is the body of booking.committed.v1.
type CommittedPayload struct {
	BookingRef   string    `json:"booking_ref"`
	EventID      string    `json:"event_id"`
	SlotType     string    `json:"slot_type"`
	Start        time.Time `json:"start"`
	End          time.Time `json:"end"`
	Status       string    `json:"status"`
	CustomerName string    `json:"customer_name"`
	ProductName  string    `json:"product_name"`
	TotalPrice   string    `json:"total_price,omitempty"`
}

// UpdatedPayload is the body of booking.updated.v1.
type UpdatedPayload struct {
	BookingRef string `json:"booking_ref"`
	EventID    string `json:"event_id"`
	Status     string `json:"status"`
	Summary    string `json:"summary"`
}

func (r *BookingRepository) RecordCommitted(ctx context.Context, b booking.Booking) error {
	req := b.Request
	addOns := make([]addOnRow, 0, len(req.AddOns))
	for _, a := range req.AddOns {
		addOns = append(addOns, addOnRow{Title: a.Title, Option: a.Option})
	}
	rawAddOns, err := json.Marshal(addOns)
	if err != nil {
		return err
	}
	var price *string
	if req.TotalPrice != "" {
		p := req.TotalPrice.String()
		price = &p
	}
	evt, err := outbox.NewEvent(outbox.EventBookingCommitted, b.Ref, CommittedPayload{
		BookingRef:   b.Ref,
		EventID:      b.Event.ID,
		SlotType:     b.SlotType.String(),
		Start:        req.Window.Start,
		End:          req.Window.End,
		Status:       req.Status,
		CustomerName: req.CustomerName,
		ProductName:  req.ProductName,
		TotalPrice:   req.TotalPrice.String(),
	})
	if err != nil {
		return err
	}

	return r.pool.WithTx(ctx, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `
			INSERT INTO bookings
				(booking_ref, event_id, slot_type, start_time, end_time, status, customer_name, product_name, total_price, add_ons, contact, notes, color_id)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9::numeric, $10, $11, $12, $13)
			ON CONFLICT (booking_ref) DO NOTHING
		`, b.Ref, b.Event.ID, b.SlotType.String(), req.Window.Start, req.Window.End, req.Status,
			req.CustomerName, req.ProductName, price, rawAddOns, req.Contact, req.AdditionalNotes, b.Event.ColorID)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return nil
		}
		return r.outbox.Insert(ctx, tx, evt)
	})
}

func (r *BookingRepository) RecordUpdated(ctx context.Context, ref, status string, e calendar.Event) error {
	evt, err := outbox.NewEvent(outbox.EventBookingUpdated, ref, UpdatedPayload{
		BookingRef: ref,
		EventID:    e.ID,
		Status:     status,
		Summary:    e.Summary,
	})
	if err != nil {
		return err
	}
	return r.pool.WithTx(ctx, func(tx pgx.Tx) error {
		// Bookings made before the mirror existed have no row; the event is
		// still emitted.
		if _, err := tx.Exec(ctx, `
			UPDATE bookings
			SET status = $2, color_id = $3, updated_at = now()
			WHERE booking_ref = $1
		`, ref, status, e.ColorID); err != nil {
			return err
		}
		return r.outbox.Insert(ctx, tx, evt)
	})
}
