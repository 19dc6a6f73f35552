package payment

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"circlo/internal/app/commands"
	"circlo/internal/app/dto"
	handlersupport "circlo/internal/app/handlers/support"
	"circlo/internal/app/outbox"
	"circlo/internal/app/policies"
	"circlo/internal/app/uow"
	domainbooking "circlo/internal/domain/booking"
	domainpayment "circlo/internal/domain/payment"
)

const verifyPaymentKey = "payment.verify"

// VerifyPaymentCommand carries the checkout callback the client relays from
// the gateway.
type VerifyPaymentCommand struct {
	OrderID   string `validate:"required"`
	PaymentID string `validate:"required"`
	Signature string `validate:"required"`
	BookingID string `validate:"required"`
}

func (c VerifyPaymentCommand) Key() string { return verifyPaymentKey }

func (c VerifyPaymentCommand) LockKey() string { return "booking:" + c.BookingID }

type VerifyPaymentHandler struct {
	UoWFactory uow.UoWFactory
	Signer     *domainpayment.Signer
	Encoder    outbox.EventEncoder
	Metrics    policies.Metrics
	Logger     *slog.Logger
	Now        func() time.Time
}

var ErrSignerRequired = errors.New("payment: signer not configured")

// Handle checks the signature before touching storage; a forged callback
// never reads or writes the booking.
func (h *VerifyPaymentHandler) Handle(ctx context.Context, cmd VerifyPaymentCommand) (*dto.Booking, error) {
	if h.Signer == nil {
		return nil, ErrSignerRequired
	}
	if err := h.Signer.Verify(domainpayment.OrderID(cmd.OrderID), cmd.PaymentID, cmd.Signature); err != nil {
		if h.Metrics != nil {
			h.Metrics.SignatureRejected(sourceCheckout)
		}
		if h.Logger != nil {
			h.Logger.Warn("payment signature rejected",
				"security", true,
				"booking_id", cmd.BookingID,
				"order_id", cmd.OrderID,
				"payment_id", cmd.PaymentID,
			)
		}
		return nil, err
	}

	unit, err := handlersupport.BeginUnit(ctx, h.UoWFactory)
	if err != nil {
		return nil, err
	}
	defer unit.Close()
	ctx = unit.Ctx

	bookingID := domainbooking.BookingID(cmd.BookingID)
	if _, err := unit.Bookings().ByID(ctx, bookingID); err != nil {
		return nil, err
	}
	order, err := unit.Orders().LatestForBooking(ctx, bookingID)
	if err != nil {
		if errors.Is(err, domainpayment.ErrOrderNotFound) {
			return nil, domainpayment.ErrOrderMismatch
		}
		return nil, err
	}
	if order.ID != domainpayment.OrderID(cmd.OrderID) {
		return nil, domainpayment.ErrOrderMismatch
	}

	booking, changed, err := settle(ctx, unit.UnitOfWork, h.Encoder, order, cmd.PaymentID, sourceCheckout, h.now())
	if err != nil {
		return nil, err
	}
	if err := unit.Finish(); err != nil {
		return nil, err
	}
	if changed {
		if h.Metrics != nil {
			h.Metrics.PaymentVerified(sourceCheckout)
		}
		if h.Logger != nil {
			h.Logger.Info("payment verified",
				"booking_id", booking.ID,
				"order_id", order.ID,
				"payment_id", cmd.PaymentID,
				"status", booking.Status,
			)
		}
	}
	return dto.MapBooking(booking), nil
}

func (h *VerifyPaymentHandler) now() time.Time {
	if h.Now != nil {
		return h.Now().UTC()
	}
	return time.Now().UTC()
}

var _ commands.Handler[VerifyPaymentCommand, *dto.Booking] = (*VerifyPaymentHandler)(nil)
