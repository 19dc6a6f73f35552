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

const webhookKey = "payment.webhook"

// WebhookCommand is a raw gateway webhook delivery. The body must be the exact
// bytes received; the signature covers them.
type WebhookCommand struct {
	Body      []byte `validate:"required"`
	Signature string `validate:"required"`
}

func (c WebhookCommand) Key() string { return webhookKey }

type WebhookHandler struct {
	UoWFactory uow.UoWFactory
	Signer     *domainpayment.Signer
	Encoder    outbox.EventEncoder
	Metrics    policies.Metrics
	Logger     *slog.Logger
	Now        func() time.Time
}

// Handle settles the booking behind a captured payment. The order is resolved
// by id regardless of whether a newer order superseded it: a capture on an
// abandoned order still moved money.
func (h *WebhookHandler) Handle(ctx context.Context, cmd WebhookCommand) (*dto.WebhookAck, error) {
	if h.Signer == nil {
		return nil, ErrSignerRequired
	}
	if err := h.Signer.VerifyPayload(cmd.Body, cmd.Signature); err != nil {
		if h.Metrics != nil {
			h.Metrics.SignatureRejected(sourceWebhook)
		}
		if h.Logger != nil {
			h.Logger.Warn("webhook signature rejected", "security", true, "body_bytes", len(cmd.Body))
		}
		return nil, err
	}
	event, err := domainpayment.ParseWebhookEvent(cmd.Body)
	if err != nil {
		return nil, err
	}
	ack := &dto.WebhookAck{Event: event.Type}
	if !event.Settles() {
		if h.Logger != nil {
			h.Logger.Debug("webhook ignored", "event", event.Type)
		}
		return ack, nil
	}

	unit, err := handlersupport.BeginUnit(ctx, h.UoWFactory)
	if err != nil {
		return nil, err
	}
	defer unit.Close()
	ctx = unit.Ctx

	order, err := unit.Orders().ByID(ctx, event.OrderID)
	if err != nil {
		return nil, err
	}
	booking, changed, err := settle(ctx, unit.UnitOfWork, h.Encoder, order, event.PaymentID, sourceWebhook, h.now())
	if errors.Is(err, domainbooking.ErrInvalidTransition) {
		// money moved for a booking that was closed unpaid; redelivery cannot
		// change that, so acknowledge and leave it to an operator
		ack.BookingID = string(order.BookingID)
		ack.Reason = dto.WebhookReasonBookingClosed
		if h.Logger != nil {
			h.Logger.Warn("captured payment for closed booking needs manual handling",
				"booking_id", order.BookingID,
				"order_id", order.ID,
				"payment_id", event.PaymentID,
				"amount", order.Amount.String(),
			)
		}
		return ack, nil
	}
	if err != nil {
		return nil, err
	}
	if err := unit.Finish(); err != nil {
		return nil, err
	}

	ack.Processed = true
	ack.BookingID = string(booking.ID)
	if changed {
		if h.Metrics != nil {
			h.Metrics.PaymentVerified(sourceWebhook)
		}
		if h.Logger != nil {
			h.Logger.Info("payment verified",
				"booking_id", booking.ID,
				"order_id", order.ID,
				"payment_id", event.PaymentID,
				"source", sourceWebhook,
			)
		}
	}
	return ack, nil
}

func (h *WebhookHandler) now() time.Time {
	if h.Now != nil {
		return h.Now().UTC()
	}
	return time.Now().UTC()
}

var _ commands.Handler[WebhookCommand, *dto.WebhookAck] = (*WebhookHandler)(nil)
