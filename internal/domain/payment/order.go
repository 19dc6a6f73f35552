package payment

import (
	"context"
	"errors"
	"strings"
	"time"

	"circlo/internal/domain/booking"
	"circlo/internal/domain/pricing"
	"circlo/internal/domain/shared/events"
	"circlo/internal/domain/shared/money"
)

var (
	ErrOrderNotFound       = errors.New("payment: order not found")
	ErrOrderMismatch       = errors.New("payment: order is not the current order of the booking")
	ErrInvalidSignature    = errors.New("payment: invalid signature")
	ErrAmountMismatch      = errors.New("payment: amount does not match the computed total")
	ErrUnsupportedCurrency = errors.New("payment: unsupported currency")
	ErrBookingNotPayable   = errors.New("payment: booking is not awaiting payment")
	ErrGatewayUnavailable  = errors.New("payment: gateway unavailable")
	ErrGatewayTimeout      = errors.New("payment: gateway timeout")
	ErrOrderAbandoned      = errors.New("payment: order already abandoned")
)

type OrderID string

type OrderState string

const (
	OrderCreated   OrderState = "created"
	OrderAbandoned OrderState = "abandoned"
)

// Order is a payment intent opened with the gateway for one booking. The id
// is assigned by the gateway.
type Order struct {
	ID        OrderID
	BookingID booking.BookingID
	Amount    money.Money
	Breakdown pricing.Breakdown
	Receipt   string
	Notes     map[string]string
	State     OrderState
	CreatedAt time.Time
	UpdatedAt time.Time
	events.Buffer
}

// Repository stores orders keyed by id with a secondary index on booking.
type Repository interface {
	ByID(ctx context.Context, id OrderID) (*Order, error)
	// LatestForBooking returns the most recent order in state created.
	LatestForBooking(ctx context.Context, bookingID booking.BookingID) (*Order, error)
	Insert(ctx context.Context, order *Order) error
	Update(ctx context.Context, order *Order) error
}

type NewOrderParams struct {
	ID        OrderID
	BookingID booking.BookingID
	Breakdown pricing.Breakdown
	Receipt   string
	Notes     map[string]string
	CreatedAt time.Time
}

func NewOrder(params NewOrderParams) (*Order, error) {
	if strings.TrimSpace(string(params.ID)) == "" {
		return nil, errors.New("payment: order id required")
	}
	if params.BookingID == "" {
		return nil, booking.ErrBookingNotFound
	}
	if !params.Breakdown.Total.IsPositive() {
		return nil, ErrAmountMismatch
	}
	now := params.CreatedAt.UTC()
	o := &Order{
		ID:        params.ID,
		BookingID: params.BookingID,
		Amount:    params.Breakdown.Total,
		Breakdown: params.Breakdown,
		Receipt:   params.Receipt,
		Notes:     copyNotes(params.Notes),
		State:     OrderCreated,
		CreatedAt: now,
		UpdatedAt: now,
	}
	o.Record(OrderCreatedEvent{
		OrderID:   o.ID,
		BookingID: o.BookingID,
		Amount:    o.Amount.Amount,
		Currency:  o.Amount.Currency,
		Receipt:   o.Receipt,
		At:        now,
	})
	return o, nil
}

// Abandon retires an order superseded by a newer attempt.
func (o *Order) Abandon(now time.Time) error {
	if o.State == OrderAbandoned {
		return ErrOrderAbandoned
	}
	o.State = OrderAbandoned
	o.UpdatedAt = now.UTC()
	o.Record(OrderAbandonedEvent{OrderID: o.ID, BookingID: o.BookingID, At: o.UpdatedAt})
	return nil
}

func (o *Order) Current() bool {
	return o.State == OrderCreated
}

func (o *Order) Clone() *Order {
	if o == nil {
		return nil
	}
	return &Order{
		ID:        o.ID,
		BookingID: o.BookingID,
		Amount:    o.Amount,
		Breakdown: o.Breakdown,
		Receipt:   o.Receipt,
		Notes:     copyNotes(o.Notes),
		State:     o.State,
		CreatedAt: o.CreatedAt,
		UpdatedAt: o.UpdatedAt,
	}
}

func copyNotes(in map[string]string) map[string]string {
	if len(in) == 0 {
		return nil
	}
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
