package memory

import (
	"context"
	"errors"
	"sync"

	appoutbox "circlo/internal/app/outbox"
	"circlo/internal/app/uow"
	domainbooking "circlo/internal/domain/booking"
	domaincatalog "circlo/internal/domain/catalog"
	domainpayment "circlo/internal/domain/payment"
)

// Factory wires in-memory repositories into a unit-of-work boundary.
type Factory struct {
	Items    *ItemRepository
	Bookings *BookingRepository
	Orders   *OrderRepository
	Outbox   *Outbox
}

// ErrFactoryMisconfigured indicates missing repositories.
var ErrFactoryMisconfigured = errors.New("memory: unit of work factory misconfigured")

var errUnitClosed = errors.New("memory: unit of work already finished")

// Begin starts a unit that applies writes immediately and undoes them on
// rollback. Readers may observe uncommitted writes; overlap and version
// checks still hold because each repository guards its own state.
func (f Factory) Begin(ctx context.Context, opts uow.TxOptions) (uow.UnitOfWork, error) {
	if f.Items == nil || f.Bookings == nil || f.Orders == nil || f.Outbox == nil {
		return nil, ErrFactoryMisconfigured
	}
	return &Unit{factory: f}, nil
}

// Unit is a uow.UnitOfWork backed by in-memory stores.
type Unit struct {
	factory Factory

	mu      sync.Mutex
	undo    []func()
	pending []appoutbox.EventRecord
	done    bool
}

func (u *Unit) Items() domaincatalog.Repository {
	return u.factory.Items
}

func (u *Unit) Bookings() domainbooking.Repository {
	return unitBookings{repo: u.factory.Bookings, unit: u}
}

func (u *Unit) Orders() domainpayment.Repository {
	return unitOrders{repo: u.factory.Orders, unit: u}
}

func (u *Unit) Outbox() appoutbox.Outbox {
	return unitOutbox{unit: u}
}

func (u *Unit) Commit(ctx context.Context) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.done {
		return errUnitClosed
	}
	u.done = true
	u.undo = nil
	u.factory.Outbox.append(u.pending...)
	u.pending = nil
	return nil
}

func (u *Unit) Rollback(ctx context.Context) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.done {
		return nil
	}
	u.done = true
	for i := len(u.undo) - 1; i >= 0; i-- {
		u.undo[i]()
	}
	u.undo = nil
	u.pending = nil
	return nil
}

func (u *Unit) onRollback(fn func()) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.undo = append(u.undo, fn)
}

type unitBookings struct {
	repo *BookingRepository
	unit *Unit
}

func (b unitBookings) ByID(ctx context.Context, id domainbooking.BookingID) (*domainbooking.Booking, error) {
	return b.repo.ByID(ctx, id)
}

func (b unitBookings) ActiveByItem(ctx context.Context, itemID domaincatalog.ItemID) ([]*domainbooking.Booking, error) {
	return b.repo.ActiveByItem(ctx, itemID)
}

func (b unitBookings) Insert(ctx context.Context, booking *domainbooking.Booking) error {
	if err := b.repo.Insert(ctx, booking); err != nil {
		return err
	}
	id := booking.ID
	b.unit.onRollback(func() { b.repo.remove(id) })
	return nil
}

func (b unitBookings) Update(ctx context.Context, booking *domainbooking.Booking) error {
	before, err := b.repo.ByID(ctx, booking.ID)
	if err != nil {
		return err
	}
	if err := b.repo.Update(ctx, booking); err != nil {
		return err
	}
	written := booking.Version
	b.unit.onRollback(func() { b.repo.restore(before, written) })
	return nil
}

type unitOrders struct {
	repo *OrderRepository
	unit *Unit
}

func (o unitOrders) ByID(ctx context.Context, id domainpayment.OrderID) (*domainpayment.Order, error) {
	return o.repo.ByID(ctx, id)
}

func (o unitOrders) LatestForBooking(ctx context.Context, bookingID domainbooking.BookingID) (*domainpayment.Order, error) {
	return o.repo.LatestForBooking(ctx, bookingID)
}

func (o unitOrders) Insert(ctx context.Context, order *domainpayment.Order) error {
	if err := o.repo.Insert(ctx, order); err != nil {
		return err
	}
	id := order.ID
	o.unit.onRollback(func() { o.repo.remove(id) })
	return nil
}

func (o unitOrders) Update(ctx context.Context, order *domainpayment.Order) error {
	before, err := o.repo.ByID(ctx, order.ID)
	if err != nil {
		return err
	}
	if err := o.repo.Update(ctx, order); err != nil {
		return err
	}
	o.unit.onRollback(func() { o.repo.restore(before) })
	return nil
}

type unitOutbox struct {
	unit *Unit
}

func (o unitOutbox) Add(ctx context.Context, record appoutbox.EventRecord) error {
	o.unit.mu.Lock()
	defer o.unit.mu.Unlock()
	if o.unit.done {
		return errUnitClosed
	}
	o.unit.pending = append(o.unit.pending, record)
	return nil
}

var _ uow.UoWFactory = Factory{}
