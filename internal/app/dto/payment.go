package dto

import (
	"time"

	domainpayment "circlo/internal/domain/payment"
	domainpricing "circlo/internal/domain/pricing"
)

type Breakdown struct {
	Units         int64    `json:"units"`
	PriceUnit     string   `json:"price_unit"`
	UnitPrice     MoneyDTO `json:"unit_price"`
	RentPayment   MoneyDTO `json:"rent_payment"`
	PlatformFee   MoneyDTO `json:"platform_fee"`
	SafetyDeposit MoneyDTO `json:"safety_deposit"`
	Total         MoneyDTO `json:"total"`
}

type Quote struct {
	BookingID string    `json:"booking_id"`
	Breakdown Breakdown `json:"breakdown"`
}

type PaymentOrder struct {
	ID        string            `json:"id"`
	BookingID string            `json:"booking_id"`
	Amount    int64             `json:"amount"`
	Currency  string            `json:"currency"`
	Receipt   string            `json:"receipt"`
	Notes     map[string]string `json:"notes,omitempty"`
	State     string            `json:"state"`
	Breakdown Breakdown         `json:"breakdown"`
	KeyID     string            `json:"key_id,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
}

// WebhookReasonBookingClosed marks a capture for a booking that was rejected
// or cancelled before it was paid.
const WebhookReasonBookingClosed = "booking_closed"

// WebhookAck is returned to the gateway for every authentic delivery.
type WebhookAck struct {
	Event     string `json:"event"`
	Processed bool   `json:"processed"`
	BookingID string `json:"booking_id,omitempty"`
	Reason    string `json:"reason,omitempty"`
}

func MapBreakdown(b domainpricing.Breakdown) Breakdown {
	return Breakdown{
		Units:         b.Units,
		PriceUnit:     string(b.PriceUnit),
		UnitPrice:     MapMoney(b.UnitPrice),
		RentPayment:   MapMoney(b.RentPayment),
		PlatformFee:   MapMoney(b.PlatformFee),
		SafetyDeposit: MapMoney(b.SafetyDeposit),
		Total:         MapMoney(b.Total),
	}
}

func MapPaymentOrder(o *domainpayment.Order, keyID string) *PaymentOrder {
	if o == nil {
		return nil
	}
	return &PaymentOrder{
		ID:        string(o.ID),
		BookingID: string(o.BookingID),
		Amount:    o.Amount.Amount,
		Currency:  o.Amount.Currency,
		Receipt:   o.Receipt,
		Notes:     o.Notes,
		State:     string(o.State),
		Breakdown: MapBreakdown(o.Breakdown),
		KeyID:     keyID,
		CreatedAt: o.CreatedAt,
	}
}
