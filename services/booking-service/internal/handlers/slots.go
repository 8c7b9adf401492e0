package handlers

import (
	"bytes"
	"log/slog"
	"net/http"

	"github.com/homefix/calbook/libs/httpx"
	"github.com/homefix/calbook/services/booking-service/internal/slots"
)

type SlotHandler struct {
	generator *slots.Generator
	logger    *slog.Logger
}

func NewSlotHandler(generator *slots.Generator, logger *slog.Logger) *SlotHandler {
	return &SlotHandler{generator: generator, logger: logger}
}

func (h *SlotHandler) available(r *http.Request) (slots.Type, []slots.Slot, error) {
	t, err := slots.ParseType(r.URL.Query().Get("slot_type"))
	if err != nil {
		return 0, nil, err
	}
	open, err := h.generator.Available(r.Context(), t)
	if err != nil {
		return 0, nil, err
	}
	h.logger.Debug("slots generated", "slot_type", t.String(), "count", len(open))
	return t, open, nil
}

// Available handles GET /available_slots?slot_type=N.
func (h *SlotHandler) Available(w http.ResponseWriter, r *http.Request) {
	_, open, err := h.available(r)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	if open == nil {
		open = []slots.Slot{}
	}
	httpx.WriteJSON(w, http.StatusOK, open)
}

// ICS handles GET /available_slots.ics?slot_type=N.
func (h *SlotHandler) ICS(w http.ResponseWriter, r *http.Request) {
	t, open, err := h.available(r)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	var buf bytes.Buffer
	if err := slots.WriteICS(&buf, t, open, h.generator.Now()); err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Cache-Control", "max-age=60")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}
