package booking

import (
	"context"
	"errors"
	"strings"
	"time"

	"circlo/internal/domain/catalog"
	"circlo/internal/domain/shared/daterange"
	"circlo/internal/domain/shared/events"
)

var (
	ErrBookingNotFound        = errors.New("booking: not found")
	ErrInvalidTransition      = errors.New("booking: invalid status transition")
	ErrForbidden              = errors.New("booking: actor is not allowed to change this booking")
	ErrSelfBooking            = errors.New("booking: owners cannot book their own item")
	ErrRangeUnavailable       = errors.New("booking: date range unavailable")
	ErrConcurrentModification = errors.New("booking: concurrent modification")
	ErrRequesterRequired      = errors.New("booking: requester id required")
	ErrInvalidRange           = daterange.ErrInvalidRange
)

// Actor is the caller of a transition. System marks trusted jobs such as the
// one completing finished rentals; it comes from the caller's credentials and
// never from the id.
type Actor struct {
	ID     string
	System bool
}

// User is a regular, non-system actor.
func User(id string) Actor { return Actor{ID: id} }

type BookingID string

type Booking struct {
	ID            BookingID
	ItemID        catalog.ItemID
	RequesterID   string
	Range         daterange.DateRange
	Status        Status
	PaymentStatus PaymentStatus
	CreatedAt     time.Time
	UpdatedAt     time.Time
	Version       int64
	events.Buffer
}

// Repository persists bookings. Insert must refuse a booking whose range
// overlaps an active booking of the same item; Update is a compare-and-swap on
// Version and bumps it on success.
type Repository interface {
	ByID(ctx context.Context, id BookingID) (*Booking, error)
	ActiveByItem(ctx context.Context, itemID catalog.ItemID) ([]*Booking, error)
	Insert(ctx context.Context, booking *Booking) error
	Update(ctx context.Context, booking *Booking) error
}

type CreateParams struct {
	ID          BookingID
	RequesterID string
	Range       daterange.DateRange
	CreatedAt   time.Time
}

func NewBooking(item *catalog.Item, params CreateParams) (*Booking, error) {
	if item == nil {
		return nil, catalog.ErrItemNotFound
	}
	requester := strings.TrimSpace(params.RequesterID)
	if requester == "" {
		return nil, ErrRequesterRequired
	}
	if params.ID == "" {
		return nil, errors.New("booking: id required")
	}
	if err := params.Range.Validate(); err != nil {
		return nil, err
	}
	if item.OwnedBy(requester) {
		return nil, ErrSelfBooking
	}
	now := params.CreatedAt.UTC()
	b := &Booking{
		ID:            params.ID,
		ItemID:        item.ID,
		RequesterID:   requester,
		Range:         params.Range,
		Status:        StatusPending,
		PaymentStatus: PaymentUnpaid,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	b.Record(BookingRequested{BookingID: b.ID, ItemID: b.ItemID, RequesterID: b.RequesterID, Start: b.Range.Start, End: b.Range.End, At: now})
	return b, nil
}

// Transition moves the booking to the target status on behalf of actor.
// Legality is checked before authorization.
func (b *Booking) Transition(actor Actor, ownerID string, target Status, now time.Time) error {
	if !b.Status.CanTransitionTo(target) {
		return ErrInvalidTransition
	}
	if !b.mayTransition(actor, ownerID, target) {
		return ErrForbidden
	}
	from := b.Status
	b.Status = target
	b.UpdatedAt = now.UTC()
	b.Record(BookingStatusChanged{BookingID: b.ID, ItemID: b.ItemID, From: from, To: target, ActorID: actor.ID, At: b.UpdatedAt})
	return nil
}

func (b *Booking) mayTransition(actor Actor, ownerID string, target Status) bool {
	if actor.ID == "" {
		return false
	}
	isOwner := ownerID != "" && actor.ID == ownerID
	switch target {
	case StatusConfirmed, StatusRejected:
		return isOwner
	case StatusCancelled:
		return isOwner || actor.ID == b.RequesterID
	case StatusCompleted:
		return isOwner || actor.System
	}
	return false
}

// MarkPaid records a verified payment. Paying a pending booking confirms it.
// A repeated call on a paid booking changes nothing and reports changed=false.
func (b *Booking) MarkPaid(now time.Time) (changed bool, err error) {
	if b.PaymentStatus == PaymentPaid {
		return false, nil
	}
	from := b.Status
	switch b.Status {
	case StatusPending:
		b.Status = StatusConfirmed
	case StatusConfirmed:
	default:
		return false, ErrInvalidTransition
	}
	b.PaymentStatus = PaymentPaid
	b.UpdatedAt = now.UTC()
	b.Record(BookingPaid{BookingID: b.ID, ItemID: b.ItemID, From: from, At: b.UpdatedAt})
	return true, nil
}

// AwaitingPayment reports whether a payment order may be opened.
func (b *Booking) AwaitingPayment() bool {
	return b.Status == StatusPending && b.PaymentStatus == PaymentUnpaid
}

// Involves reports whether the actor is the requester or the item owner.
func (b *Booking) Involves(actorID, ownerID string) bool {
	if actorID == "" {
		return false
	}
	return actorID == b.RequesterID || actorID == ownerID
}

// Clone returns a copy without pending events.
func (b *Booking) Clone() *Booking {
	if b == nil {
		return nil
	}
	return &Booking{
		ID:            b.ID,
		ItemID:        b.ItemID,
		RequesterID:   b.RequesterID,
		Range:         b.Range,
		Status:        b.Status,
		PaymentStatus: b.PaymentStatus,
		CreatedAt:     b.CreatedAt,
		UpdatedAt:     b.UpdatedAt,
		Version:       b.Version,
	}
}
