package booking

import (
	"context"
	"sort"

	"circlo/internal/app/dto"
	handlersupport "circlo/internal/app/handlers/support"
	"circlo/internal/app/queries"
	"circlo/internal/app/uow"
	domainbooking "circlo/internal/domain/booking"
	domaincatalog "circlo/internal/domain/catalog"
)

const (
	getBookingKey       = "booking.get"
	listItemBookingsKey = "booking.list_by_item"
)

type GetBookingQuery struct {
	BookingID string `validate:"required"`
	Actor     string `validate:"required"`
}

func (q GetBookingQuery) Key() string { return getBookingKey }

func (q GetBookingQuery) ActorID() string { return q.Actor }

type GetBookingHandler struct {
	UoWFactory uow.UoWFactory
}

// Handle returns the booking to its requester or the item owner only.
func (h *GetBookingHandler) Handle(ctx context.Context, q GetBookingQuery) (*dto.Booking, error) {
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
	return dto.MapBooking(booking), nil
}

// ListItemBookingsQuery lists the ranges that currently block an item's calendar.
type ListItemBookingsQuery struct {
	ItemID string `validate:"required"`
}

func (q ListItemBookingsQuery) Key() string { return listItemBookingsKey }

type ListItemBookingsHandler struct {
	UoWFactory uow.UoWFactory
}

func (h *ListItemBookingsHandler) Handle(ctx context.Context, q ListItemBookingsQuery) (dto.BookingCollection, error) {
	unit, execCtx, cleanup, err := handlersupport.BeginReadOnlyUnit(ctx, h.UoWFactory)
	if err != nil {
		return dto.BookingCollection{}, err
	}
	if cleanup != nil {
		defer cleanup()
	}

	itemID := domaincatalog.ItemID(q.ItemID)
	if _, err := unit.Items().ByID(execCtx, itemID); err != nil {
		return dto.BookingCollection{}, err
	}
	bookings, err := unit.Bookings().ActiveByItem(execCtx, itemID)
	if err != nil {
		return dto.BookingCollection{}, err
	}
	sort.Slice(bookings, func(i, j int) bool {
		return bookings[i].Range.Start.Before(bookings[j].Range.Start)
	})
	items := make([]dto.Booking, 0, len(bookings))
	for _, b := range bookings {
		items = append(items, *dto.MapBooking(b))
	}
	return dto.BookingCollection{Items: items}, nil
}

var _ queries.Handler[GetBookingQuery, *dto.Booking] = (*GetBookingHandler)(nil)
var _ queries.Handler[ListItemBookingsQuery, dto.BookingCollection] = (*ListItemBookingsHandler)(nil)
