package payment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"circlo/internal/app/commands"
	"circlo/internal/app/dto"
	handlersupport "circlo/internal/app/handlers/support"
	"circlo/internal/app/middleware"
	"circlo/internal/app/outbox"
	"circlo/internal/app/policies"
	"circlo/internal/app/uow"
	domainbooking "circlo/internal/domain/booking"
	domainpayment "circlo/internal/domain/payment"
	domainpricing "circlo/internal/domain/pricing"
)

const (
	createOrderKey   = "payment.create_order"
	maxReceiptLength = 40
)

// CreateOrderCommand opens a payment order for a pending booking. Amount and
// Currency are what the client believes it owes; both are optional and only
// checked against the server-side computation.
type CreateOrderCommand struct {
	BookingID       string `validate:"required"`
	Actor           string `validate:"required"`
	Amount          int64  `validate:"gte=0"`
	Currency        string `validate:"omitempty,len=3"`
	Notes           map[string]string
	IdempotencyKeyV string
}

func (c CreateOrderCommand) Key() string { return createOrderKey }

func (c CreateOrderCommand) IdempotencyKey() string { return c.IdempotencyKeyV }

func (c CreateOrderCommand) ResultPrototype() any { return &dto.PaymentOrder{} }

func (c CreateOrderCommand) ActorID() string { return c.Actor }

func (c CreateOrderCommand) LockKey() string { return "booking:" + c.BookingID }

type CreateOrderHandler struct {
	UoWFactory         uow.UoWFactory
	Gateway            policies.PaymentGateway
	Calculator         domainpricing.Calculator
	SettlementCurrency string
	Encoder            outbox.EventEncoder
	Metrics            policies.Metrics
	Logger             *slog.Logger
	Now                func() time.Time
}

var ErrGatewayRequired = errors.New("payment: gateway not configured")

func (h *CreateOrderHandler) Handle(ctx context.Context, cmd CreateOrderCommand) (*dto.PaymentOrder, error) {
	if h.Gateway == nil {
		return nil, ErrGatewayRequired
	}
	settlement := strings.ToUpper(h.SettlementCurrency)
	if cmd.Currency != "" && strings.ToUpper(cmd.Currency) != settlement {
		return nil, fmt.Errorf("%w: %s", domainpayment.ErrUnsupportedCurrency, cmd.Currency)
	}

	unit, err := handlersupport.BeginUnit(ctx, h.UoWFactory)
	if err != nil {
		return nil, err
	}
	defer unit.Close()
	ctx = unit.Ctx

	booking, err := unit.Bookings().ByID(ctx, domainbooking.BookingID(cmd.BookingID))
	if err != nil {
		return nil, err
	}
	if booking.RequesterID != cmd.Actor {
		return nil, domainbooking.ErrForbidden
	}
	if !booking.AwaitingPayment() {
		return nil, domainpayment.ErrBookingNotPayable
	}
	item, err := unit.Items().ByID(ctx, booking.ItemID)
	if err != nil {
		return nil, err
	}
	if item.UnitPrice.Currency != settlement {
		return nil, fmt.Errorf("%w: item priced in %s", domainpayment.ErrUnsupportedCurrency, item.UnitPrice.Currency)
	}
	breakdown, err := h.Calculator.ComputeBreakdown(item.UnitPrice, item.PriceUnit, booking.Range.Start, booking.Range.End)
	if err != nil {
		return nil, err
	}
	if cmd.Amount != 0 && cmd.Amount != breakdown.Total.Amount {
		if h.Logger != nil {
			h.Logger.Warn("payment amount mismatch",
				"booking_id", booking.ID,
				"asserted", cmd.Amount,
				"computed", breakdown.Total.Amount,
				"security", true,
			)
		}
		return nil, domainpayment.ErrAmountMismatch
	}

	receipt := receiptFor(booking.ID)
	notes := map[string]string{}
	for k, v := range cmd.Notes {
		notes[k] = v
	}
	notes["booking_id"] = string(booking.ID)
	notes["item_id"] = string(booking.ItemID)

	gwOrder, err := h.Gateway.CreateOrder(ctx, policies.GatewayOrderRequest{
		Amount:  breakdown.Total,
		Receipt: receipt,
		Notes:   notes,
	})
	if err != nil {
		h.recordGatewayFailure(booking.ID, err)
		return nil, err
	}

	now := h.now()
	previous, err := unit.Orders().LatestForBooking(ctx, booking.ID)
	switch {
	case err == nil:
		if err := previous.Abandon(now); err != nil {
			return nil, err
		}
		if err := unit.Orders().Update(ctx, previous); err != nil {
			return nil, err
		}
	case errors.Is(err, domainpayment.ErrOrderNotFound):
		previous = nil
	default:
		return nil, err
	}

	order, err := domainpayment.NewOrder(domainpayment.NewOrderParams{
		ID:        domainpayment.OrderID(gwOrder.ID),
		BookingID: booking.ID,
		Breakdown: breakdown,
		Receipt:   receipt,
		Notes:     notes,
		CreatedAt: now,
	})
	if err != nil {
		return nil, err
	}
	if err := unit.Orders().Insert(ctx, order); err != nil {
		return nil, err
	}

	recorders := []outbox.Recorder{order}
	if previous != nil {
		recorders = []outbox.Recorder{previous, order}
	}
	if err := outbox.RecordAll(ctx, unit.Outbox(), h.Encoder, recorders...); err != nil {
		return nil, err
	}
	if err := unit.Finish(); err != nil {
		return nil, err
	}

	if h.Metrics != nil {
		h.Metrics.OrderCreated()
	}
	if h.Logger != nil {
		h.Logger.Info("payment order created",
			"booking_id", booking.ID,
			"order_id", order.ID,
			"amount", order.Amount.Amount,
			"currency", order.Amount.Currency,
		)
	}
	return dto.MapPaymentOrder(order, h.Gateway.KeyID()), nil
}

func (h *CreateOrderHandler) recordGatewayFailure(bookingID domainbooking.BookingID, err error) {
	kind := "error"
	switch {
	case errors.Is(err, domainpayment.ErrGatewayTimeout):
		kind = "timeout"
	case errors.Is(err, domainpayment.ErrGatewayUnavailable):
		kind = "unavailable"
	}
	if h.Metrics != nil {
		h.Metrics.GatewayFailure(kind)
	}
	if h.Logger != nil {
		h.Logger.Error("gateway order failed", "booking_id", bookingID, "kind", kind, "error", err)
	}
}

func (h *CreateOrderHandler) now() time.Time {
	if h.Now != nil {
		return h.Now().UTC()
	}
	return time.Now().UTC()
}

// receiptFor derives the merchant receipt; gateways cap it at 40 characters.
func receiptFor(id domainbooking.BookingID) string {
	receipt := "bk_" + string(id)
	if len(receipt) > maxReceiptLength {
		receipt = receipt[:maxReceiptLength]
	}
	return receipt
}

var _ commands.Handler[CreateOrderCommand, *dto.PaymentOrder] = (*CreateOrderHandler)(nil)
var _ middleware.IdempotentCommand = (*CreateOrderCommand)(nil)
var _ middleware.LockedCommand = (*CreateOrderCommand)(nil)
