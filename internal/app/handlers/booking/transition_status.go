package booking

import (
	"context"
	"log/slog"
	"time"

	"circlo/internal/app/commands"
	"circlo/internal/app/dto"
	handlersupport "circlo/internal/app/handlers/support"
	"circlo/internal/app/outbox"
	"circlo/internal/app/policies"
	"circlo/internal/app/uow"
	domainbooking "circlo/internal/domain/booking"
)

const transitionStatusKey = "booking.transition"

type TransitionStatusCommand struct {
	BookingID string `validate:"required"`
	Actor     string `validate:"required"`
	Status    string `validate:"required,oneof=pending confirmed rejected completed cancelled"`

	// System is set for trusted callers such as the job completing rentals.
	System bool
}

func (c TransitionStatusCommand) Key() string { return transitionStatusKey }

func (c TransitionStatusCommand) ActorID() string { return c.Actor }

// LockKey shares the booking lock with payment commands so a transition does
// not interleave with settlement of the same booking.
func (c TransitionStatusCommand) LockKey() string { return "booking:" + c.BookingID }

type TransitionStatusHandler struct {
	UoWFactory uow.UoWFactory
	Encoder    outbox.EventEncoder
	Metrics    policies.Metrics
	Logger     *slog.Logger
	Now        func() time.Time
}

func (h *TransitionStatusHandler) Handle(ctx context.Context, cmd TransitionStatusCommand) (*dto.Booking, error) {
	target, err := domainbooking.ParseStatus(cmd.Status)
	if err != nil {
		return nil, err
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
	item, err := unit.Items().ByID(ctx, booking.ItemID)
	if err != nil {
		return nil, err
	}
	from := booking.Status
	if err := booking.Transition(domainbooking.Actor{ID: cmd.Actor, System: cmd.System}, item.OwnerID, target, h.now()); err != nil {
		return nil, err
	}
	if err := unit.Bookings().Update(ctx, booking); err != nil {
		return nil, err
	}
	if err := outbox.RecordAll(ctx, unit.Outbox(), h.Encoder, booking); err != nil {
		return nil, err
	}
	if err := unit.Finish(); err != nil {
		return nil, err
	}

	if h.Metrics != nil {
		h.Metrics.BookingTransitioned(string(target))
	}
	if h.Logger != nil {
		h.Logger.Info("booking status changed",
			"booking_id", booking.ID,
			"from", from,
			"to", target,
			"actor_id", cmd.Actor,
			"system", cmd.System,
		)
	}
	return dto.MapBooking(booking), nil
}

func (h *TransitionStatusHandler) now() time.Time {
	if h.Now != nil {
		return h.Now().UTC()
	}
	return time.Now().UTC()
}

var _ commands.Handler[TransitionStatusCommand, *dto.Booking] = (*TransitionStatusHandler)(nil)
