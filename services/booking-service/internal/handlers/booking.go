package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sort"
	"strconv"
	"strings"

	"github.com/homefix/calbook/libs/httpx"
	"github.com/homefix/calbook/services/booking-service/internal/booking"
	"github.com/homefix/calbook/services/booking-service/internal/calendar"
	"github.com/homefix/calbook/services/booking-service/internal/slots"
	"github.com/homefix/calbook/services/booking-service/internal/timeconv"
)

const IdempotencyKeyHeader = "Idempotency-Key"

type BookingHandler struct {
	svc    *booking.Service
	logger *slog.Logger
}

func NewBookingHandler(svc *booking.Service, logger *slog.Logger) *BookingHandler {
	return &BookingHandler{svc: svc, logger: logger}
}

type timeslot struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

type selectedOption struct {
	AddOnTitle string `json:"add_on_title"`
	Option     string `json:"option"`
}

type bookSlotRequest struct {
	SlotType         json.Number               `json:"slot_type"`
	SelectedTimeslot timeslot                  `json:"selectedTimeslot"`
	Status           string                    `json:"status"`
	CustomerName     string                    `json:"customer_name"`
	ProductName      string                    `json:"product_name"`
	TotalPrice       json.Number               `json:"totalPrice"`
	SelectedOptions  map[string]selectedOption `json:"selectedOptions"`
	CustomerContact  string                    `json:"customer_contact"`
	AdditionalNotes  string                    `json:"additional_notes"`
	ColourCode       string                    `json:"colour_code"`
}

type bookingResponse struct {
	BookingRef string `json:"booking_ref"`
	EventID    string `json:"event_id"`
	SlotType   string `json:"slot_type"`
	Start      string `json:"start"`
	End        string `json:"end"`
	Status     string `json:"status"`
	Summary    string `json:"summary"`
	ColorID    string `json:"color_id"`
	Replayed   bool   `json:"replayed,omitempty"`
}

type updateBookingRequest struct {
	Start      string `json:"start"`
	End        string `json:"end"`
	BookingRef string `json:"booking_ref"`
	Status     string `json:"status"`
}

type updateBookingResponse struct {
	BookingRef string `json:"booking_ref"`
	EventID    string `json:"event_id"`
	Summary    string `json:"summary"`
	ColorID    string `json:"color_id"`
}

// Book handles POST /book_slot.
func (h *BookingHandler) Book(w http.ResponseWriter, r *http.Request) {
	var body bookSlotRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid json body")
		return
	}

	req, err := body.toRequest()
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	req.IdempotencyKey = strings.TrimSpace(r.Header.Get(IdempotencyKeyHeader))

	res, err := h.svc.Commit(r.Context(), req)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	if res.Outcome == booking.Rejected {
		httpx.WriteError(w, http.StatusConflict, "slot is no longer available")
		return
	}

	status := http.StatusCreated
	if res.Replayed {
		status = http.StatusOK
	}
	e := res.Booking.Event
	httpx.WriteJSON(w, status, bookingResponse{
		BookingRef: res.Booking.Ref,
		EventID:    e.ID,
		SlotType:   res.Booking.SlotType.String(),
		Start:      timeconv.Format(e.Window.Start),
		End:        timeconv.Format(e.Window.End),
		Status:     req.Status,
		Summary:    e.Summary,
		ColorID:    e.ColorID,
		Replayed:   res.Replayed,
	})
}

func (b bookSlotRequest) toRequest() (booking.Request, error) {
	t, err := slots.ParseType(b.SlotType.String())
	if err != nil {
		return booking.Request{}, err
	}
	start, err := timeconv.ParseZoned(b.SelectedTimeslot.Start)
	if err != nil {
		return booking.Request{}, err
	}
	end, err := timeconv.ParseZoned(b.SelectedTimeslot.End)
	if err != nil {
		return booking.Request{}, err
	}
	return booking.Request{
		SlotType:        t,
		Window:          calendar.Window{Start: start, End: end},
		Status:          strings.TrimSpace(b.Status),
		CustomerName:    strings.TrimSpace(b.CustomerName),
		ProductName:     strings.TrimSpace(b.ProductName),
		TotalPrice:      b.TotalPrice,
		AddOns:          addOns(b.SelectedOptions),
		Contact:         strings.TrimSpace(b.CustomerContact),
		AdditionalNotes: strings.TrimSpace(b.AdditionalNotes),
		ColorID:         strings.TrimSpace(b.ColourCode),
	}, nil
}

// addOns keeps options that name both a title and a choice, ordered by key
// (numerically when the keys are numbers).
func addOns(options map[string]selectedOption) []booking.AddOn {
	keys := make([]string, 0, len(options))
	for k, o := range options {
		if o.AddOnTitle != "" && o.Option != "" {
			keys = append(keys, k)
		}
	}
	sort.Slice(keys, func(i, j int) bool {
		a, errA := strconv.Atoi(keys[i])
		b, errB := strconv.Atoi(keys[j])
		if errA == nil && errB == nil {
			return a < b
		}
		return keys[i] < keys[j]
	})
	out := make([]booking.AddOn, 0, len(keys))
	for _, k := range keys {
		out = append(out, booking.AddOn{Title: options[k].AddOnTitle, Option: options[k].Option})
	}
	return out
}

// Update handles POST /update_booking.
func (h *BookingHandler) Update(w http.ResponseWriter, r *http.Request) {
	var body updateBookingRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	start, err := timeconv.ParseZoned(body.Start)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	end, err := timeconv.ParseZoned(body.End)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	e, err := h.svc.Update(r.Context(), booking.UpdateRequest{
		Window:     calendar.Window{Start: start, End: end},
		BookingRef: strings.TrimSpace(body.BookingRef),
		Status:     strings.TrimSpace(body.Status),
	})
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, updateBookingResponse{
		BookingRef: body.BookingRef,
		EventID:    e.ID,
		Summary:    e.Summary,
		ColorID:    e.ColorID,
	})
}
