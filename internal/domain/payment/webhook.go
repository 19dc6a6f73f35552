package payment

import (
	"encoding/json"
	"errors"
	"fmt"
)

var ErrMalformedWebhook = errors.New("payment: malformed webhook payload")

const (
	WebhookPaymentCaptured = "payment.captured"
	WebhookOrderPaid       = "order.paid"
)

// WebhookEvent is the subset of a gateway webhook needed to settle a booking.
type WebhookEvent struct {
	Type      string
	OrderID   OrderID
	PaymentID string
}

// Settles reports whether the event confirms a captured payment.
func (e WebhookEvent) Settles() bool {
	return e.Type == WebhookPaymentCaptured || e.Type == WebhookOrderPaid
}

type webhookEnvelope struct {
	Event   string `json:"event"`
	Payload struct {
		Payment *struct {
			Entity struct {
				ID      string `json:"id"`
				OrderID string `json:"order_id"`
			} `json:"entity"`
		} `json:"payment"`
		Order *struct {
			Entity struct {
				ID string `json:"id"`
			} `json:"entity"`
		} `json:"order"`
	} `json:"payload"`
}

func ParseWebhookEvent(body []byte) (WebhookEvent, error) {
	var env webhookEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return WebhookEvent{}, fmt.Errorf("%w: %v", ErrMalformedWebhook, err)
	}
	if env.Event == "" {
		return WebhookEvent{}, fmt.Errorf("%w: event type missing", ErrMalformedWebhook)
	}
	ev := WebhookEvent{Type: env.Event}
	if p := env.Payload.Payment; p != nil {
		ev.PaymentID = p.Entity.ID
		ev.OrderID = OrderID(p.Entity.OrderID)
	}
	if ev.OrderID == "" && env.Payload.Order != nil {
		ev.OrderID = OrderID(env.Payload.Order.Entity.ID)
	}
	if ev.Settles() && (ev.OrderID == "" || ev.PaymentID == "") {
		return WebhookEvent{}, fmt.Errorf("%w: order or payment id missing", ErrMalformedWebhook)
	}
	return ev, nil
}
