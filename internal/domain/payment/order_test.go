package payment

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"circlo/internal/domain/pricing"
	"circlo/internal/domain/shared/money"
)

func sampleBreakdown() pricing.Breakdown {
	return pricing.Breakdown{
		Units:         3,
		RentPayment:   money.Must(300, "INR"),
		PlatformFee:   money.Must(45, "INR"),
		SafetyDeposit: money.Must(200, "INR"),
		Total:         money.Must(545, "INR"),
	}
}

func TestNewOrderTakesAmountFromBreakdown(t *testing.T) {
	now := time.Date(2024, 4, 20, 9, 0, 0, 0, time.UTC)
	o, err := NewOrder(NewOrderParams{ID: "order_1", BookingID: "bk-1", Breakdown: sampleBreakdown(), Receipt: "bk_bk-1", CreatedAt: now})
	require.NoError(t, err)
	require.Equal(t, int64(545), o.Amount.Amount)
	require.Equal(t, OrderCreated, o.State)
	require.True(t, o.Current())

	evs := o.PullEvents()
	require.Len(t, evs, 1)
	require.Equal(t, "payment.order_created", evs[0].EventName())
}

func TestAbandonOrder(t *testing.T) {
	now := time.Date(2024, 4, 20, 9, 0, 0, 0, time.UTC)
	o, err := NewOrder(NewOrderParams{ID: "order_1", BookingID: "bk-1", Breakdown: sampleBreakdown(), CreatedAt: now})
	require.NoError(t, err)
	o.PullEvents()

	require.NoError(t, o.Abandon(now.Add(time.Minute)))
	require.False(t, o.Current())
	require.ErrorIs(t, o.Abandon(now.Add(2*time.Minute)), ErrOrderAbandoned)
	require.Len(t, o.PullEvents(), 1)
}

func TestNewOrderRejectsEmptyTotal(t *testing.T) {
	_, err := NewOrder(NewOrderParams{ID: "order_1", BookingID: "bk-1"})
	require.ErrorIs(t, err, ErrAmountMismatch)
}
