package booking_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	bookingapp "circlo/internal/app/handlers/booking"
	"circlo/internal/app/uow"
	domainbooking "circlo/internal/domain/booking"
	domaincatalog "circlo/internal/domain/catalog"
	"circlo/internal/domain/shared/money"
	"circlo/internal/infra/storage/memory"
)

// staleReads holds every unit after it loads a booking until all racing units
// have loaded it, so their writes compete for the same version.
type staleReads struct {
	uow.UoWFactory
	loaded *sync.WaitGroup
}

func (f staleReads) Begin(ctx context.Context, opts uow.TxOptions) (uow.UnitOfWork, error) {
	unit, err := f.UoWFactory.Begin(ctx, opts)
	if err != nil {
		return nil, err
	}
	return staleUnit{UnitOfWork: unit, loaded: f.loaded}, nil
}

type staleUnit struct {
	uow.UnitOfWork
	loaded *sync.WaitGroup
}

func (u staleUnit) Bookings() domainbooking.Repository {
	return staleBookings{Repository: u.UnitOfWork.Bookings(), loaded: u.loaded}
}

type staleBookings struct {
	domainbooking.Repository
	loaded *sync.WaitGroup
}

func (r staleBookings) ByID(ctx context.Context, id domainbooking.BookingID) (*domainbooking.Booking, error) {
	b, err := r.Repository.ByID(ctx, id)
	r.loaded.Done()
	r.loaded.Wait()
	return b, err
}

func newPendingBooking(t *testing.T) (memory.Factory, string) {
	t.Helper()
	ctx := context.Background()
	items := memory.NewItemRepository()
	require.NoError(t, items.Save(ctx, domaincatalog.Item{
		ID:        "item-1",
		OwnerID:   "owner-1",
		UnitPrice: money.Must(100, "INR"),
		PriceUnit: domaincatalog.PriceUnitDay,
	}))
	f := memory.Factory{Items: items, Bookings: memory.NewBookingRepository(), Orders: memory.NewOrderRepository(), Outbox: memory.NewOutbox()}
	created, err := (&bookingapp.CreateBookingHandler{UoWFactory: f}).Handle(ctx, bookingapp.CreateBookingCommand{
		ItemID:      "item-1",
		RequesterID: "renter-1",
		StartDate:   "2024-05-01",
		EndDate:     "2024-05-03",
	})
	require.NoError(t, err)
	return f, created.ID
}

func TestRacingTransitionsLoseOnVersion(t *testing.T) {
	f, id := newPendingBooking(t)
	loaded := &sync.WaitGroup{}
	loaded.Add(2)
	h := &bookingapp.TransitionStatusHandler{UoWFactory: staleReads{UoWFactory: f, loaded: loaded}}

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, status := range []string{"confirmed", "rejected"} {
		wg.Add(1)
		go func(i int, status string) {
			defer wg.Done()
			_, errs[i] = h.Handle(context.Background(), bookingapp.TransitionStatusCommand{BookingID: id, Actor: "owner-1", Status: status})
		}(i, status)
	}
	wg.Wait()

	failed := 0
	for _, err := range errs {
		if err != nil {
			require.ErrorIs(t, err, domainbooking.ErrConcurrentModification)
			failed++
		}
	}
	require.Equal(t, 1, failed)

	b, err := f.Bookings.ByID(context.Background(), domainbooking.BookingID(id))
	require.NoError(t, err)
	require.EqualValues(t, 2, b.Version)
}

func TestMarkPaidRacingARejectionLosesOnVersion(t *testing.T) {
	f, id := newPendingBooking(t)
	loaded := &sync.WaitGroup{}
	loaded.Add(2)
	racing := staleReads{UoWFactory: f, loaded: loaded}
	h := &bookingapp.TransitionStatusHandler{UoWFactory: racing}

	var wg sync.WaitGroup
	var rejectErr, payErr error
	wg.Add(2)
	go func() {
		defer wg.Done()
		_, rejectErr = h.Handle(context.Background(), bookingapp.TransitionStatusCommand{BookingID: id, Actor: "owner-1", Status: "rejected"})
	}()
	go func() {
		defer wg.Done()
		ctx := context.Background()
		unit, err := racing.Begin(ctx, uow.TxOptions{})
		if err != nil {
			payErr = err
			return
		}
		defer func() { _ = unit.Rollback(ctx) }()
		if _, _, payErr = bookingapp.MarkPaid(ctx, unit, domainbooking.BookingID(id), time.Now()); payErr == nil {
			payErr = unit.Commit(ctx)
		}
	}()
	wg.Wait()

	if rejectErr == nil {
		require.ErrorIs(t, payErr, domainbooking.ErrConcurrentModification)
	} else {
		require.ErrorIs(t, rejectErr, domainbooking.ErrConcurrentModification)
		require.NoError(t, payErr)
	}
}

func TestSubjectNamedSystemCannotComplete(t *testing.T) {
	f, id := newPendingBooking(t)
	h := &bookingapp.TransitionStatusHandler{UoWFactory: f}
	ctx := context.Background()
	_, err := h.Handle(ctx, bookingapp.TransitionStatusCommand{BookingID: id, Actor: "owner-1", Status: "confirmed"})
	require.NoError(t, err)

	_, err = h.Handle(ctx, bookingapp.TransitionStatusCommand{BookingID: id, Actor: "system", Status: "completed"})
	require.ErrorIs(t, err, domainbooking.ErrForbidden)

	done, err := h.Handle(ctx, bookingapp.TransitionStatusCommand{BookingID: id, Actor: "scheduler", System: true, Status: "completed"})
	require.NoError(t, err)
	require.Equal(t, "completed", done.Status)
}
