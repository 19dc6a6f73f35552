package pricing

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"circlo/internal/domain/catalog"
	"circlo/internal/domain/shared/daterange"
	"circlo/internal/domain/shared/money"
)

func day(t *testing.T, raw string) time.Time {
	t.Helper()
	d, err := time.Parse(daterange.Layout, raw)
	require.NoError(t, err)
	return d
}

func TestComputeBreakdownDailyRental(t *testing.T) {
	calc := Calculator{Policy: DefaultPolicy()}

	got, err := calc.ComputeBreakdown(money.Must(100, "INR"), catalog.PriceUnitDay, day(t, "2024-05-01"), day(t, "2024-05-03"))
	require.NoError(t, err)
	require.Equal(t, int64(3), got.Units)
	require.Equal(t, int64(300), got.RentPayment.Amount)
	require.Equal(t, int64(45), got.PlatformFee.Amount)
	require.Equal(t, int64(200), got.SafetyDeposit.Amount)
	require.Equal(t, int64(545), got.Total.Amount)
	require.Equal(t, "INR", got.Currency())
}

func TestComputeBreakdownIsDeterministic(t *testing.T) {
	calc := Calculator{Policy: DefaultPolicy()}
	price := money.Must(1999, "INR")
	first, err := calc.ComputeBreakdown(price, catalog.PriceUnitWeek, day(t, "2024-06-01"), day(t, "2024-06-10"))
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		again, err := calc.ComputeBreakdown(price, catalog.PriceUnitWeek, day(t, "2024-06-01"), day(t, "2024-06-10"))
		require.NoError(t, err)
		require.Equal(t, first, again)
	}
	require.Equal(t, first.RentPayment.Amount+first.PlatformFee.Amount+first.SafetyDeposit.Amount, first.Total.Amount)
}

func TestComputeBreakdownRoundsFeeUp(t *testing.T) {
	calc := Calculator{Policy: DefaultPolicy()}
	got, err := calc.ComputeBreakdown(money.Must(333, "USD"), catalog.PriceUnitDay, day(t, "2024-05-01"), day(t, "2024-05-01"))
	require.NoError(t, err)
	// 15% of 333 is 49.95
	require.Equal(t, int64(50), got.PlatformFee.Amount)
	require.Equal(t, int64(583), got.Total.Amount)
}

func TestDurationUnits(t *testing.T) {
	cases := []struct {
		name  string
		start string
		end   string
		unit  catalog.PriceUnit
		want  int64
	}{
		{"single day", "2024-05-01", "2024-05-01", catalog.PriceUnitDay, 1},
		{"hours in two days", "2024-05-01", "2024-05-02", catalog.PriceUnitHour, 48},
		{"exact week", "2024-05-01", "2024-05-07", catalog.PriceUnitWeek, 1},
		{"partial second week", "2024-05-01", "2024-05-08", catalog.PriceUnitWeek, 2},
		{"short stay billed one week", "2024-05-01", "2024-05-02", catalog.PriceUnitWeek, 1},
		{"across month boundary", "2024-01-30", "2024-02-02", catalog.PriceUnitDay, 4},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			dr, err := daterange.Parse(tc.start, tc.end)
			require.NoError(t, err)
			got, err := DurationUnits(dr, tc.unit)
			require.NoError(t, err)
			require.Equal(t, tc.want, got)
		})
	}
}

func TestComputeBreakdownRejectsBadInput(t *testing.T) {
	calc := Calculator{Policy: DefaultPolicy()}

	_, err := calc.ComputeBreakdown(money.Must(0, "INR"), catalog.PriceUnitDay, day(t, "2024-05-01"), day(t, "2024-05-02"))
	require.ErrorIs(t, err, ErrInvalidPrice)

	_, err = calc.ComputeBreakdown(money.Must(100, "INR"), catalog.PriceUnitDay, day(t, "2024-05-03"), day(t, "2024-05-01"))
	require.ErrorIs(t, err, daterange.ErrInvalidRange)

	_, err = calc.ComputeBreakdown(money.Must(100, "INR"), catalog.PriceUnit("month"), day(t, "2024-05-01"), day(t, "2024-05-02"))
	require.ErrorIs(t, err, catalog.ErrUnknownPriceUnit)
}

func TestNewCalculatorRejectsNegativePolicy(t *testing.T) {
	_, err := NewCalculator(Policy{PlatformFeeBasisPoints: -1})
	require.ErrorIs(t, err, ErrInvalidPolicy)
}
