package booking

import (
	"context"
	"time"

	"circlo/internal/domain/catalog"
	"circlo/internal/domain/shared/daterange"
)

// OverlapChecker decides whether a date range can still be reserved for an item.
type OverlapChecker struct {
	Bookings Repository
}

// IsAdmissible reports whether [start, end] is free on the item calendar,
// ignoring the booking identified by exclude (empty for none).
func (c OverlapChecker) IsAdmissible(ctx context.Context, itemID catalog.ItemID, start, end time.Time, exclude BookingID) (bool, error) {
	dr, err := daterange.New(start, end)
	if err != nil {
		return false, err
	}
	active, err := c.Bookings.ActiveByItem(ctx, itemID)
	if err != nil {
		return false, err
	}
	return Admissible(active, itemID, dr, exclude), nil
}

// Admissible is the storage-agnostic form of the check, used by repositories
// that already hold the item's booking set under a lock.
func Admissible(existing []*Booking, itemID catalog.ItemID, dr daterange.DateRange, exclude BookingID) bool {
	for _, b := range existing {
		if b == nil || b.ItemID != itemID || !b.Status.Active() {
			continue
		}
		if exclude != "" && b.ID == exclude {
			continue
		}
		if b.Range.Overlaps(dr) {
			return false
		}
	}
	return true
}
