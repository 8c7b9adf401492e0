package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/homefix/calbook/libs/httpx"
	"github.com/homefix/calbook/services/booking-service/internal/booking"
	"github.com/homefix/calbook/services/booking-service/internal/calendar"
	"github.com/homefix/calbook/services/booking-service/internal/slots"
	"github.com/homefix/calbook/services/booking-service/internal/timeconv"
)

const retryAfterSeconds = "5"

// statusClientClosedRequest is the nginx convention for a request whose
// client went away before the response.
const statusClientClosedRequest = 499

// writeServiceError maps domain errors to responses. Calendar failures are
// checked before client errors: a failed lookup must never surface as a client
// error or as "no availability". A cancelled request is not a server fault.
func writeServiceError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	switch {
	case errors.Is(err, context.Canceled):
		logger.Debug("request cancelled", "err", err, "path", r.URL.Path, "request_id", httpx.RequestIDFromContext(r.Context()))
		w.WriteHeader(statusClientClosedRequest)
	case errors.Is(err, calendar.ErrUnavailable), errors.Is(err, context.DeadlineExceeded):
		logger.Error("calendar unavailable", "err", err, "path", r.URL.Path, "request_id", httpx.RequestIDFromContext(r.Context()))
		w.Header().Set("Retry-After", retryAfterSeconds)
		httpx.WriteError(w, http.StatusServiceUnavailable, "calendar temporarily unavailable")
	case errors.Is(err, calendar.ErrEventExists):
		httpx.WriteError(w, http.StatusConflict, "idempotency key already used for another booking")
	case errors.Is(err, calendar.ErrEventNotFound):
		httpx.WriteError(w, http.StatusNotFound, "booking not found")
	case errors.Is(err, booking.ErrInvalidRequest),
		errors.Is(err, timeconv.ErrParse),
		errors.Is(err, slots.ErrUnknownType):
		httpx.WriteError(w, http.StatusBadRequest, err.Error())
	default:
		logger.Error("request failed", "err", err, "path", r.URL.Path, "request_id", httpx.RequestIDFromContext(r.Context()))
		httpx.WriteError(w, http.StatusInternalServerError, "internal error")
	}
}
