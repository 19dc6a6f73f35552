package money

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewNormalizesCurrency(t *testing.T) {
	m, err := New(500, " inr ")
	require.NoError(t, err)
	require.Equal(t, "INR", m.Currency)

	_, err = New(1, "RUPEE")
	require.ErrorIs(t, err, ErrInvalidCurrency)
}

func TestAddRejectsMismatchedCurrencies(t *testing.T) {
	_, err := Must(100, "INR").Add(Must(100, "USD"))
	require.ErrorIs(t, err, ErrCurrencyMismatch)

	_, err = Money{Amount: 1}.Add(Must(1, "INR"))
	require.ErrorIs(t, err, ErrInvalidCurrency)
}

func TestCeilBasisPointsRoundsUp(t *testing.T) {
	cases := []struct {
		amount int64
		bps    int64
		want   int64
	}{
		{amount: 300, bps: 1500, want: 45},
		{amount: 301, bps: 1500, want: 46},
		{amount: 1, bps: 1500, want: 1},
		{amount: 1000, bps: 0, want: 0},
		{amount: 0, bps: 1500, want: 0},
	}
	for _, tc := range cases {
		got := Must(tc.amount, "INR").CeilBasisPoints(tc.bps)
		require.Equal(t, tc.want, got.Amount, "amount=%d bps=%d", tc.amount, tc.bps)
		require.Equal(t, "INR", got.Currency)
	}
}

func TestNewRejectsNonLetterCodes(t *testing.T) {
	_, err := New(1, "1NR")
	require.ErrorIs(t, err, ErrInvalidCurrency)
	require.Equal(t, "545 INR", Must(545, "inr").String())
}
