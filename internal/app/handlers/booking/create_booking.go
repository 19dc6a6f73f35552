package booking

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"circlo/internal/app/commands"
	"circlo/internal/app/dto"
	handlersupport "circlo/internal/app/handlers/support"
	"circlo/internal/app/middleware"
	"circlo/internal/app/outbox"
	"circlo/internal/app/policies"
	"circlo/internal/app/uow"
	domainbooking "circlo/internal/domain/booking"
	domaincatalog "circlo/internal/domain/catalog"
	"circlo/internal/domain/shared/daterange"
)

const createBookingKey = "booking.create"

type CreateBookingCommand struct {
	BookingID       string
	ItemID          string `validate:"required"`
	RequesterID     string `validate:"required"`
	StartDate       string `validate:"required,datetime=2006-01-02"`
	EndDate         string `validate:"required,datetime=2006-01-02"`
	IdempotencyKeyV string
}

func (c CreateBookingCommand) Key() string { return createBookingKey }

func (c CreateBookingCommand) IdempotencyKey() string { return c.IdempotencyKeyV }

func (c CreateBookingCommand) ResultPrototype() any { return &dto.Booking{} }

func (c CreateBookingCommand) ActorID() string { return c.RequesterID }

// LockKey serializes booking creation per item across check, insert and commit.
func (c CreateBookingCommand) LockKey() string { return "item:" + c.ItemID }

type CreateBookingHandler struct {
	UoWFactory uow.UoWFactory
	Encoder    outbox.EventEncoder
	Metrics    policies.Metrics
	Logger     *slog.Logger
	Now        func() time.Time
	NewID      func() string
}

func (h *CreateBookingHandler) Handle(ctx context.Context, cmd CreateBookingCommand) (*dto.Booking, error) {
	dr, err := daterange.Parse(cmd.StartDate, cmd.EndDate)
	if err != nil {
		return nil, err
	}

	unit, err := handlersupport.BeginUnit(ctx, h.UoWFactory)
	if err != nil {
		return nil, err
	}
	defer unit.Close()
	ctx = unit.Ctx

	item, err := unit.Items().ByID(ctx, domaincatalog.ItemID(cmd.ItemID))
	if err != nil {
		return nil, err
	}
	booking, err := domainbooking.NewBooking(item, domainbooking.CreateParams{
		ID:          domainbooking.BookingID(h.bookingID(cmd)),
		RequesterID: cmd.RequesterID,
		Range:       dr,
		CreatedAt:   h.now(),
	})
	if err != nil {
		return nil, err
	}

	checker := domainbooking.OverlapChecker{Bookings: unit.Bookings()}
	admissible, err := checker.IsAdmissible(ctx, item.ID, dr.Start, dr.End, "")
	if err != nil {
		return nil, err
	}
	if !admissible {
		h.metrics().BookingConflict()
		return nil, domainbooking.ErrRangeUnavailable
	}
	if err := unit.Bookings().Insert(ctx, booking); err != nil {
		if errors.Is(err, domainbooking.ErrRangeUnavailable) {
			h.metrics().BookingConflict()
		}
		return nil, err
	}

	if err := outbox.RecordAll(ctx, unit.Outbox(), h.Encoder, booking); err != nil {
		return nil, err
	}
	if err := unit.Finish(); err != nil {
		return nil, err
	}

	h.metrics().BookingCreated()
	if h.Logger != nil {
		h.Logger.Info("booking requested",
			"booking_id", booking.ID,
			"item_id", booking.ItemID,
			"requester_id", booking.RequesterID,
			"range", booking.Range.String(),
		)
	}
	return dto.MapBooking(booking), nil
}

func (h *CreateBookingHandler) bookingID(cmd CreateBookingCommand) string {
	if cmd.BookingID != "" {
		return cmd.BookingID
	}
	if h.NewID != nil {
		return h.NewID()
	}
	return uuid.NewString()
}

func (h *CreateBookingHandler) now() time.Time {
	if h.Now != nil {
		return h.Now().UTC()
	}
	return time.Now().UTC()
}

func (h *CreateBookingHandler) metrics() policies.Metrics {
	if h.Metrics != nil {
		return h.Metrics
	}
	return policies.NopMetrics{}
}

var _ commands.Handler[CreateBookingCommand, *dto.Booking] = (*CreateBookingHandler)(nil)
var _ middleware.IdempotentCommand = (*CreateBookingCommand)(nil)
var _ middleware.LockedCommand = (*CreateBookingCommand)(nil)
