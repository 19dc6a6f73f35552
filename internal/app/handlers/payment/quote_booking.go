package payment

import (
	"context"

	"circlo/internal/app/dto"
	handlersupport "circlo/internal/app/handlers/support"
	"circlo/internal/app/queries"
	"circlo/internal/app/uow"
	domainbooking "circlo/internal/domain/booking"
	domainpricing "circlo/internal/domain/pricing"
)

const quoteBookingKey = "payment.quote"

type QuoteBookingQuery struct {
	BookingID string `validate:"required"`
	Actor     string `validate:"required"`
}

func (q QuoteBookingQuery) Key() string { return quoteBookingKey }

func (q QuoteBookingQuery) ActorID() string { return q.Actor }

type QuoteBookingHandler struct {
	UoWFactory uow.UoWFactory
	Calculator domainpricing.Calculator
}

func (h *QuoteBookingHandler) Handle(ctx context.Context, q QuoteBookingQuery) (*dto.Quote, error) {
	unit, execCtx, cleanup, err := handlersupport.BeginReadOnlyUnit(ctx, h.UoWFactory)
	if err != nil {
		return nil, err
	}
	if cleanup != nil {
		defer cleanup()
	}

	booking, err := unit.Bookings().ByID(execCtx, domainbooking.BookingID(q.BookingID))
	if err != nil {
		return nil, err
	}
	item, err := unit.Items().ByID(execCtx, booking.ItemID)
	if err != nil {
		return nil, err
	}
	if !booking.Involves(q.Actor, item.OwnerID) {
		return nil, domainbooking.ErrForbidden
	}
	breakdown, err := h.Calculator.ComputeBreakdown(item.UnitPrice, item.PriceUnit, booking.Range.Start, booking.Range.End)
	if err != nil {
		return nil, err
	}
	return &dto.Quote{BookingID: string(booking.ID), Breakdown: dto.MapBreakdown(breakdown)}, nil
}

var _ queries.Handler[QuoteBookingQuery, *dto.Quote] = (*QuoteBookingHandler)(nil)
