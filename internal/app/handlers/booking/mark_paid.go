package booking

import (
	"context"
	"time"

	"circlo/internal/app/uow"
	domainbooking "circlo/internal/domain/booking"
)

// MarkPaid settles a booking inside unit. It is not exposed on the command bus;
// payment handlers call it only after a signature check succeeded. A booking
// that is already paid is returned unchanged with changed=false.
func MarkPaid(ctx context.Context, unit uow.UnitOfWork, id domainbooking.BookingID, now time.Time) (*domainbooking.Booking, bool, error) {
	booking, err := unit.Bookings().ByID(ctx, id)
	if err != nil {
		return nil, false, err
	}
	changed, err := booking.MarkPaid(now)
	if err != nil || !changed {
		return booking, false, err
	}
	if err := unit.Bookings().Update(ctx, booking); err != nil {
		return nil, false, err
	}
	return booking, true, nil
}
