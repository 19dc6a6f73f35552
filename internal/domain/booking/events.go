package booking

import (
	"time"

	"circlo/internal/domain/catalog"
)

type BookingRequested struct {
	BookingID   BookingID      `json:"booking_id"`
	ItemID      catalog.ItemID `json:"item_id"`
	RequesterID string         `json:"requester_id"`
	Start       time.Time      `json:"start"`
	End         time.Time      `json:"end"`
	At          time.Time      `json:"at"`
}

func (e BookingRequested) EventName() string     { return "booking.requested" }
func (e BookingRequested) AggregateID() string   { return string(e.BookingID) }
func (e BookingRequested) OccurredAt() time.Time { return e.At }

type BookingStatusChanged struct {
	BookingID BookingID      `json:"booking_id"`
	ItemID    catalog.ItemID `json:"item_id"`
	From      Status         `json:"from"`
	To        Status         `json:"to"`
	ActorID   string         `json:"actor_id"`
	At        time.Time      `json:"at"`
}

func (e BookingStatusChanged) EventName() string     { return "booking.status_changed" }
func (e BookingStatusChanged) AggregateID() string   { return string(e.BookingID) }
func (e BookingStatusChanged) OccurredAt() time.Time { return e.At }

type BookingPaid struct {
	BookingID BookingID      `json:"booking_id"`
	ItemID    catalog.ItemID `json:"item_id"`
	From      Status         `json:"from"`
	At        time.Time      `json:"at"`
}

func (e BookingPaid) EventName() string     { return "booking.paid" }
func (e BookingPaid) AggregateID() string   { return string(e.BookingID) }
func (e BookingPaid) OccurredAt() time.Time { return e.At }
