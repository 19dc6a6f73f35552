package support_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"circlo/internal/app/handlers/support"
	"circlo/internal/app/uow"
	domainbooking "circlo/internal/domain/booking"
	domaincatalog "circlo/internal/domain/catalog"
	"circlo/internal/domain/shared/daterange"
	"circlo/internal/domain/shared/money"
	"circlo/internal/infra/storage/memory"
)

var item = domaincatalog.Item{ID: "item-1", OwnerID: "owner-1", UnitPrice: money.Must(100, "INR"), PriceUnit: domaincatalog.PriceUnitDay}

func newFactory(t *testing.T) memory.Factory {
	t.Helper()
	items := memory.NewItemRepository()
	require.NoError(t, items.Save(context.Background(), item))
	return memory.Factory{Items: items, Bookings: memory.NewBookingRepository(), Orders: memory.NewOrderRepository(), Outbox: memory.NewOutbox()}
}

func insertBooking(t *testing.T, ctx context.Context, unit uow.UnitOfWork, id string) {
	t.Helper()
	dr, err := daterange.Parse("2024-05-01", "2024-05-03")
	require.NoError(t, err)
	b, err := domainbooking.NewBooking(&item, domainbooking.CreateParams{ID: domainbooking.BookingID(id), RequesterID: "renter-1", Range: dr, CreatedAt: time.Now()})
	require.NoError(t, err)
	require.NoError(t, unit.Bookings().Insert(ctx, b))
}

func TestStartedUnitIsCommittedByFinish(t *testing.T) {
	f := newFactory(t)
	unit, err := support.BeginUnit(context.Background(), f)
	require.NoError(t, err)
	_, joined := uow.FromContext(unit.Ctx)
	require.True(t, joined)

	insertBooking(t, unit.Ctx, unit.UnitOfWork, "b-1")
	require.NoError(t, unit.Finish())
	unit.Close()

	_, err = f.Bookings.ByID(context.Background(), "b-1")
	require.NoError(t, err)
}

func TestStartedUnitRollsBackWithoutFinish(t *testing.T) {
	f := newFactory(t)
	unit, err := support.BeginUnit(context.Background(), f)
	require.NoError(t, err)
	insertBooking(t, unit.Ctx, unit.UnitOfWork, "b-1")
	unit.Close()

	_, err = f.Bookings.ByID(context.Background(), "b-1")
	require.ErrorIs(t, err, domainbooking.ErrBookingNotFound)
}

func TestJoinedUnitIsLeftToItsOwner(t *testing.T) {
	f := newFactory(t)
	outer, err := f.Begin(context.Background(), uow.TxOptions{})
	require.NoError(t, err)
	ctx := uow.Attach(context.Background(), outer)

	unit, err := support.BeginUnit(ctx, f)
	require.NoError(t, err)
	require.Same(t, outer, unit.UnitOfWork)

	// the managed unit still satisfies the port helpers take
	var port uow.UnitOfWork = unit
	insertBooking(t, unit.Ctx, port, "b-1")
	require.NoError(t, unit.Finish())
	unit.Close()

	require.NoError(t, outer.Rollback(ctx))
	_, err = f.Bookings.ByID(context.Background(), "b-1")
	require.ErrorIs(t, err, domainbooking.ErrBookingNotFound)
}

func TestBeginUnitNeedsFactory(t *testing.T) {
	_, err := support.BeginUnit(context.Background(), nil)
	require.ErrorIs(t, err, uow.ErrUnitOfWorkMissing)
}
