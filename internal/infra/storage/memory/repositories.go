package memory

import (
	"context"
	"errors"
	"sync"

	domainbooking "circlo/internal/domain/booking"
	domaincatalog "circlo/internal/domain/catalog"
	domainpayment "circlo/internal/domain/payment"
)

var (
	ErrDuplicateBooking = errors.New("memory: booking already exists")
	ErrDuplicateOrder   = errors.New("memory: order already exists")
)

// ItemRepository is the catalog view used in memory mode, seeded from fixtures.
type ItemRepository struct {
	mu    sync.RWMutex
	items map[domaincatalog.ItemID]domaincatalog.Item
}

func NewItemRepository() *ItemRepository {
	return &ItemRepository{items: make(map[domaincatalog.ItemID]domaincatalog.Item)}
}

func (r *ItemRepository) ByID(ctx context.Context, id domaincatalog.ItemID) (*domaincatalog.Item, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	item, ok := r.items[id]
	if !ok {
		return nil, domaincatalog.ErrItemNotFound
	}
	return &item, nil
}

func (r *ItemRepository) Save(ctx context.Context, item domaincatalog.Item) error {
	if err := item.Validate(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[item.ID] = item
	return nil
}

// BookingRepository keeps bookings per item. Insert re-checks the overlap
// invariant under the repository lock, so the store itself never holds two
// overlapping active bookings.
type BookingRepository struct {
	mu     sync.RWMutex
	byID   map[domainbooking.BookingID]*domainbooking.Booking
	byItem map[domaincatalog.ItemID][]domainbooking.BookingID
}

func NewBookingRepository() *BookingRepository {
	return &BookingRepository{
		byID:   make(map[domainbooking.BookingID]*domainbooking.Booking),
		byItem: make(map[domaincatalog.ItemID][]domainbooking.BookingID),
	}
}

func (r *BookingRepository) ByID(ctx context.Context, id domainbooking.BookingID) (*domainbooking.Booking, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.byID[id]
	if !ok {
		return nil, domainbooking.ErrBookingNotFound
	}
	return b.Clone(), nil
}

func (r *BookingRepository) ActiveByItem(ctx context.Context, itemID domaincatalog.ItemID) ([]*domainbooking.Booking, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.activeLocked(itemID), nil
}

func (r *BookingRepository) activeLocked(itemID domaincatalog.ItemID) []*domainbooking.Booking {
	out := make([]*domainbooking.Booking, 0)
	for _, id := range r.byItem[itemID] {
		if b := r.byID[id]; b.Status.Active() {
			out = append(out, b.Clone())
		}
	}
	return out
}

func (r *BookingRepository) Insert(ctx context.Context, booking *domainbooking.Booking) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.byID[booking.ID]; exists {
		return ErrDuplicateBooking
	}
	if !domainbooking.Admissible(r.activeLocked(booking.ItemID), booking.ItemID, booking.Range, booking.ID) {
		return domainbooking.ErrRangeUnavailable
	}
	booking.Version = 1
	r.byID[booking.ID] = booking.Clone()
	r.byItem[booking.ItemID] = append(r.byItem[booking.ItemID], booking.ID)
	return nil
}

func (r *BookingRepository) Update(ctx context.Context, booking *domainbooking.Booking) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	current, ok := r.byID[booking.ID]
	if !ok {
		return domainbooking.ErrBookingNotFound
	}
	if current.Version != booking.Version {
		return domainbooking.ErrConcurrentModification
	}
	booking.Version++
	r.byID[booking.ID] = booking.Clone()
	return nil
}

func (r *BookingRepository) remove(id domainbooking.BookingID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.byID[id]
	if !ok {
		return
	}
	delete(r.byID, id)
	ids := r.byItem[b.ItemID]
	for i, candidate := range ids {
		if candidate == id {
			r.byItem[b.ItemID] = append(ids[:i:i], ids[i+1:]...)
			break
		}
	}
}

// restore puts back a snapshot unless a later writer already moved past the
// version this unit produced.
func (r *BookingRepository) restore(snapshot *domainbooking.Booking, written int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if current, ok := r.byID[snapshot.ID]; ok && current.Version == written {
		r.byID[snapshot.ID] = snapshot
	}
}

// OrderRepository keeps payment orders with an index on booking.
type OrderRepository struct {
	mu        sync.RWMutex
	seq       int64
	byID      map[domainpayment.OrderID]storedOrder
	byBooking map[domainbooking.BookingID][]domainpayment.OrderID
}

type storedOrder struct {
	order *domainpayment.Order
	seq   int64
}

func NewOrderRepository() *OrderRepository {
	return &OrderRepository{
		byID:      make(map[domainpayment.OrderID]storedOrder),
		byBooking: make(map[domainbooking.BookingID][]domainpayment.OrderID),
	}
}

func (r *OrderRepository) ByID(ctx context.Context, id domainpayment.OrderID) (*domainpayment.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	stored, ok := r.byID[id]
	if !ok {
		return nil, domainpayment.ErrOrderNotFound
	}
	return stored.order.Clone(), nil
}

func (r *OrderRepository) LatestForBooking(ctx context.Context, bookingID domainbooking.BookingID) (*domainpayment.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var latest *storedOrder
	for _, id := range r.byBooking[bookingID] {
		stored := r.byID[id]
		if !stored.order.Current() {
			continue
		}
		if latest == nil || stored.order.CreatedAt.After(latest.order.CreatedAt) ||
			(stored.order.CreatedAt.Equal(latest.order.CreatedAt) && stored.seq > latest.seq) {
			s := stored
			latest = &s
		}
	}
	if latest == nil {
		return nil, domainpayment.ErrOrderNotFound
	}
	return latest.order.Clone(), nil
}

func (r *OrderRepository) Insert(ctx context.Context, order *domainpayment.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.byID[order.ID]; exists {
		return ErrDuplicateOrder
	}
	r.seq++
	r.byID[order.ID] = storedOrder{order: order.Clone(), seq: r.seq}
	r.byBooking[order.BookingID] = append(r.byBooking[order.BookingID], order.ID)
	return nil
}

func (r *OrderRepository) Update(ctx context.Context, order *domainpayment.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.byID[order.ID]
	if !ok {
		return domainpayment.ErrOrderNotFound
	}
	stored.order = order.Clone()
	r.byID[order.ID] = stored
	return nil
}

func (r *OrderRepository) remove(id domainpayment.OrderID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.byID[id]
	if !ok {
		return
	}
	delete(r.byID, id)
	ids := r.byBooking[stored.order.BookingID]
	for i, candidate := range ids {
		if candidate == id {
			r.byBooking[stored.order.BookingID] = append(ids[:i:i], ids[i+1:]...)
			break
		}
	}
}

func (r *OrderRepository) restore(snapshot *domainpayment.Order) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if stored, ok := r.byID[snapshot.ID]; ok {
		stored.order = snapshot
		r.byID[snapshot.ID] = stored
	}
}

var (
	_ domaincatalog.Repository = (*ItemRepository)(nil)
	_ domainbooking.Repository = (*BookingRepository)(nil)
	_ domainpayment.Repository = (*OrderRepository)(nil)
)
