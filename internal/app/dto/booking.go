package dto

import (
	"time"

	domainbooking "circlo/internal/domain/booking"
	"circlo/internal/domain/shared/daterange"
	"circlo/internal/domain/shared/money"
)

type MoneyDTO struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

type Booking struct {
	ID            string    `json:"id"`
	ItemID        string    `json:"item_id"`
	RequesterID   string    `json:"requester_id"`
	StartDate     string    `json:"start_date"`
	EndDate       string    `json:"end_date"`
	Status        string    `json:"status"`
	PaymentStatus string    `json:"payment_status"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

type BookingCollection struct {
	Items []Booking `json:"items"`
}

func MapMoney(value money.Money) MoneyDTO {
	return MoneyDTO{
		Amount:   value.Amount,
		Currency: value.Currency,
	}
}

func MapBooking(b *domainbooking.Booking) *Booking {
	if b == nil {
		return nil
	}
	return &Booking{
		ID:            string(b.ID),
		ItemID:        string(b.ItemID),
		RequesterID:   b.RequesterID,
		StartDate:     b.Range.Start.Format(daterange.Layout),
		EndDate:       b.Range.End.Format(daterange.Layout),
		Status:        string(b.Status),
		PaymentStatus: string(b.PaymentStatus),
		CreatedAt:     b.CreatedAt,
		UpdatedAt:     b.UpdatedAt,
	}
}
