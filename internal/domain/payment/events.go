package payment

import (
	"time"

	"circlo/internal/domain/booking"
)

type OrderCreatedEvent struct {
	OrderID   OrderID           `json:"order_id"`
	BookingID booking.BookingID `json:"booking_id"`
	Amount    int64             `json:"amount"`
	Currency  string            `json:"currency"`
	Receipt   string            `json:"receipt"`
	At        time.Time         `json:"at"`
}

func (e OrderCreatedEvent) EventName() string     { return "payment.order_created" }
func (e OrderCreatedEvent) AggregateID() string   { return string(e.OrderID) }
func (e OrderCreatedEvent) OccurredAt() time.Time { return e.At }

type OrderAbandonedEvent struct {
	OrderID   OrderID           `json:"order_id"`
	BookingID booking.BookingID `json:"booking_id"`
	At        time.Time         `json:"at"`
}

func (e OrderAbandonedEvent) EventName() string     { return "payment.order_abandoned" }
func (e OrderAbandonedEvent) AggregateID() string   { return string(e.OrderID) }
func (e OrderAbandonedEvent) OccurredAt() time.Time { return e.At }

// PaymentVerified is the settlement record archived for audit.
type PaymentVerified struct {
	OrderID   OrderID           `json:"order_id"`
	PaymentID string            `json:"payment_id"`
	BookingID booking.BookingID `json:"booking_id"`
	Amount    int64             `json:"amount"`
	Currency  string            `json:"currency"`
	Source    string            `json:"source"`
	At        time.Time         `json:"at"`
}

func (e PaymentVerified) EventName() string     { return "payment.verified" }
func (e PaymentVerified) AggregateID() string   { return string(e.OrderID) }
func (e PaymentVerified) OccurredAt() time.Time { return e.At }
