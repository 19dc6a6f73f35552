package booking

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"circlo/internal/domain/catalog"
	"circlo/internal/domain/shared/daterange"
)

type sliceRepository struct {
	items []*Booking
}

func (r *sliceRepository) ByID(ctx context.Context, id BookingID) (*Booking, error) {
	for _, b := range r.items {
		if b.ID == id {
			return b, nil
		}
	}
	return nil, ErrBookingNotFound
}

func (r *sliceRepository) ActiveByItem(ctx context.Context, itemID catalog.ItemID) ([]*Booking, error) {
	var out []*Booking
	for _, b := range r.items {
		if b.ItemID == itemID && b.Status.Active() {
			out = append(out, b)
		}
	}
	return out, nil
}

func (r *sliceRepository) Insert(ctx context.Context, b *Booking) error {
	r.items = append(r.items, b)
	return nil
}

func (r *sliceRepository) Update(ctx context.Context, b *Booking) error {
	return nil
}

func date(t *testing.T, raw string) time.Time {
	t.Helper()
	d, err := time.Parse(daterange.Layout, raw)
	require.NoError(t, err)
	return d
}

func fixture(t *testing.T, id BookingID, item catalog.ItemID, start, end string, status Status) *Booking {
	t.Helper()
	dr, err := daterange.Parse(start, end)
	require.NoError(t, err)
	return &Booking{ID: id, ItemID: item, Range: dr, Status: status, PaymentStatus: PaymentUnpaid}
}

func TestIsAdmissibleBoundaries(t *testing.T) {
	repo := &sliceRepository{items: []*Booking{
		fixture(t, "bk-1", "camera-1", "2024-05-01", "2024-05-05", StatusPending),
	}}
	checker := OverlapChecker{Bookings: repo}
	ctx := context.Background()

	ok, err := checker.IsAdmissible(ctx, "camera-1", date(t, "2024-05-05"), date(t, "2024-05-10"), "")
	require.NoError(t, err)
	require.False(t, ok, "shared boundary day must conflict")

	ok, err = checker.IsAdmissible(ctx, "camera-1", date(t, "2024-05-06"), date(t, "2024-05-10"), "")
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = checker.IsAdmissible(ctx, "tent-7", date(t, "2024-05-01"), date(t, "2024-05-05"), "")
	require.NoError(t, err)
	require.True(t, ok, "other items do not conflict")
}

func TestIsAdmissibleIgnoresInactiveAndExcluded(t *testing.T) {
	repo := &sliceRepository{items: []*Booking{
		fixture(t, "bk-1", "camera-1", "2024-05-01", "2024-05-05", StatusCancelled),
		fixture(t, "bk-2", "camera-1", "2024-05-01", "2024-05-05", StatusRejected),
		fixture(t, "bk-3", "camera-1", "2024-05-10", "2024-05-12", StatusConfirmed),
	}}
	checker := OverlapChecker{Bookings: repo}
	ctx := context.Background()

	ok, err := checker.IsAdmissible(ctx, "camera-1", date(t, "2024-05-02"), date(t, "2024-05-04"), "")
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = checker.IsAdmissible(ctx, "camera-1", date(t, "2024-05-11"), date(t, "2024-05-11"), "")
	require.NoError(t, err)
	require.False(t, ok)

	ok, err = checker.IsAdmissible(ctx, "camera-1", date(t, "2024-05-11"), date(t, "2024-05-11"), "bk-3")
	require.NoError(t, err)
	require.True(t, ok)
}

func TestIsAdmissibleRejectsInvertedRange(t *testing.T) {
	checker := OverlapChecker{Bookings: &sliceRepository{}}
	_, err := checker.IsAdmissible(context.Background(), "camera-1", date(t, "2024-05-06"), date(t, "2024-05-01"), "")
	require.ErrorIs(t, err, ErrInvalidRange)
}
