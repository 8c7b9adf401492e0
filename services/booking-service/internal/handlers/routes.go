package handlers

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/homefix/calbook/libs/httpx"
)

type Routes struct {
	Slots   *SlotHandler
	Booking *BookingHandler
	Auth    *AuthHandler
	// WriteLimit wraps the booking mutation routes; nil leaves them unlimited.
	WriteLimit httpx.Middleware
}

// Register mounts the API at the root and under /api/v1.
func (rt Routes) Register(r *mux.Router) {
	rt.mount(r)
	rt.mount(r.PathPrefix("/api/v1").Subrouter())
}

func (rt Routes) mount(r *mux.Router) {
	limit := rt.WriteLimit
	if limit == nil {
		limit = func(next http.Handler) http.Handler { return next }
	}
	r.HandleFunc("/available_slots", rt.Slots.Available).Methods(http.MethodGet)
	r.HandleFunc("/available_slots.ics", rt.Slots.ICS).Methods(http.MethodGet)
	r.Handle("/book_slot", limit(http.HandlerFunc(rt.Booking.Book))).Methods(http.MethodPost)
	r.Handle("/update_booking", limit(http.HandlerFunc(rt.Booking.Update))).Methods(http.MethodPost)
	r.HandleFunc("/auth", rt.Auth.Check).Methods(http.MethodGet)
}
