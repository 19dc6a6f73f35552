package payment

import (
	"context"
	"time"

	bookingapp "circlo/internal/app/handlers/booking"
	"circlo/internal/app/outbox"
	"circlo/internal/app/uow"
	domainbooking "circlo/internal/domain/booking"
	domainpayment "circlo/internal/domain/payment"
)

const (
	sourceCheckout = "checkout"
	sourceWebhook  = "webhook"
)

// settle marks the order's booking paid and records the verified payment.
// Repeated settlement of a paid booking records nothing.
func settle(ctx context.Context, unit uow.UnitOfWork, encoder outbox.EventEncoder, order *domainpayment.Order, paymentID, source string, now time.Time) (*domainbooking.Booking, bool, error) {
	booking, changed, err := bookingapp.MarkPaid(ctx, unit, order.BookingID, now)
	if err != nil || !changed {
		return booking, false, err
	}
	evs := booking.PullEvents()
	evs = append(evs, domainpayment.PaymentVerified{
		OrderID:   order.ID,
		PaymentID: paymentID,
		BookingID: order.BookingID,
		Amount:    order.Amount.Amount,
		Currency:  order.Amount.Currency,
		Source:    source,
		At:        now,
	})
	if err := outbox.Record(ctx, unit.Outbox(), encoder, evs...); err != nil {
		return nil, false, err
	}
	return booking, true, nil
}
