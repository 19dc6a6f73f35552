package booking

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"circlo/internal/domain/catalog"
	"circlo/internal/domain/shared/daterange"
	"circlo/internal/domain/shared/money"
)

const (
	ownerID     = "owner-1"
	requesterID = "renter-1"
)

var testNow = time.Date(2024, 4, 20, 10, 0, 0, 0, time.UTC)

func testItem() *catalog.Item {
	return &catalog.Item{ID: "camera-1", OwnerID: ownerID, UnitPrice: money.Must(100, "INR"), PriceUnit: catalog.PriceUnitDay}
}

func newPending(t *testing.T) *Booking {
	t.Helper()
	dr, err := daterange.Parse("2024-05-01", "2024-05-03")
	require.NoError(t, err)
	b, err := NewBooking(testItem(), CreateParams{ID: "bk-1", RequesterID: requesterID, Range: dr, CreatedAt: testNow})
	require.NoError(t, err)
	return b
}

func TestNewBookingStartsPendingUnpaid(t *testing.T) {
	b := newPending(t)
	require.Equal(t, StatusPending, b.Status)
	require.Equal(t, PaymentUnpaid, b.PaymentStatus)
	require.True(t, b.AwaitingPayment())

	evs := b.PullEvents()
	require.Len(t, evs, 1)
	require.Equal(t, "booking.requested", evs[0].EventName())
}

func TestNewBookingRejectsOwner(t *testing.T) {
	dr, err := daterange.Parse("2024-05-01", "2024-05-03")
	require.NoError(t, err)
	_, err = NewBooking(testItem(), CreateParams{ID: "bk-1", RequesterID: ownerID, Range: dr, CreatedAt: testNow})
	require.ErrorIs(t, err, ErrSelfBooking)
}

func TestNewBookingRejectsInvalidRange(t *testing.T) {
	_, err := NewBooking(testItem(), CreateParams{ID: "bk-1", RequesterID: requesterID, CreatedAt: testNow})
	require.ErrorIs(t, err, ErrInvalidRange)
}

func TestTransitionClosure(t *testing.T) {
	all := []Status{StatusPending, StatusConfirmed, StatusRejected, StatusCompleted, StatusCancelled}
	allowed := map[Status]map[Status]bool{
		StatusPending:   {StatusConfirmed: true, StatusRejected: true},
		StatusConfirmed: {StatusCompleted: true, StatusCancelled: true},
	}
	for _, from := range all {
		for _, to := range all {
			b := newPending(t)
			b.Status = from
			err := b.Transition(User(ownerID), ownerID, to, testNow)
			if allowed[from][to] {
				require.NoError(t, err, "%s -> %s", from, to)
				require.Equal(t, to, b.Status)
				continue
			}
			require.ErrorIs(t, err, ErrInvalidTransition, "%s -> %s", from, to)
			require.Equal(t, from, b.Status)
		}
	}
}

func TestRejectedBookingNeverConfirms(t *testing.T) {
	b := newPending(t)
	require.NoError(t, b.Transition(User(ownerID), ownerID, StatusRejected, testNow))
	require.ErrorIs(t, b.Transition(User(ownerID), ownerID, StatusConfirmed, testNow), ErrInvalidTransition)
	_, err := b.MarkPaid(testNow)
	require.ErrorIs(t, err, ErrInvalidTransition)
	require.Equal(t, PaymentUnpaid, b.PaymentStatus)
}

func TestTransitionAuthorization(t *testing.T) {
	b := newPending(t)
	require.ErrorIs(t, b.Transition(User(requesterID), ownerID, StatusConfirmed, testNow), ErrForbidden)
	require.ErrorIs(t, b.Transition(User("stranger"), ownerID, StatusRejected, testNow), ErrForbidden)
	require.NoError(t, b.Transition(User(ownerID), ownerID, StatusConfirmed, testNow))

	require.ErrorIs(t, b.Transition(User("stranger"), ownerID, StatusCancelled, testNow), ErrForbidden)
	require.ErrorIs(t, b.Transition(User(requesterID), ownerID, StatusCompleted, testNow), ErrForbidden)

	completed := b.Clone()
	require.ErrorIs(t, completed.Transition(User("system"), ownerID, StatusCompleted, testNow), ErrForbidden)
	require.NoError(t, completed.Transition(Actor{ID: "scheduler", System: true}, ownerID, StatusCompleted, testNow))

	require.NoError(t, b.Transition(User(requesterID), ownerID, StatusCancelled, testNow))
	require.Equal(t, StatusCancelled, b.Status)
}

func TestMarkPaidConfirmsPendingAndIsIdempotent(t *testing.T) {
	b := newPending(t)
	b.PullEvents()

	changed, err := b.MarkPaid(testNow)
	require.NoError(t, err)
	require.True(t, changed)
	require.Equal(t, StatusConfirmed, b.Status)
	require.Equal(t, PaymentPaid, b.PaymentStatus)
	first := *b.Clone()

	changed, err = b.MarkPaid(testNow.Add(time.Hour))
	require.NoError(t, err)
	require.False(t, changed)
	require.Equal(t, first, *b.Clone())
	require.Len(t, b.PullEvents(), 1)
}

func TestMarkPaidKeepsOwnerConfirmedBooking(t *testing.T) {
	b := newPending(t)
	require.NoError(t, b.Transition(User(ownerID), ownerID, StatusConfirmed, testNow))
	changed, err := b.MarkPaid(testNow)
	require.NoError(t, err)
	require.True(t, changed)
	require.Equal(t, StatusConfirmed, b.Status)
	require.False(t, b.AwaitingPayment())
}

func TestParseStatus(t *testing.T) {
	s, err := ParseStatus("cancelled")
	require.NoError(t, err)
	require.Equal(t, StatusCancelled, s)
	require.True(t, s.IsTerminal())

	_, err = ParseStatus("archived")
	require.ErrorIs(t, err, ErrInvalidTransition)
}
