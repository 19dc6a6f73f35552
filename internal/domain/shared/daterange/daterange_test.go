package daterange

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func mustParse(t *testing.T, start, end string) DateRange {
	t.Helper()
	dr, err := Parse(start, end)
	require.NoError(t, err)
	return dr
}

func TestOverlapsIsInclusive(t *testing.T) {
	base := mustParse(t, "2024-05-01", "2024-05-05")

	require.True(t, base.Overlaps(mustParse(t, "2024-05-05", "2024-05-10")), "shared boundary day conflicts")
	require.True(t, mustParse(t, "2024-05-05", "2024-05-10").Overlaps(base))
	require.False(t, base.Overlaps(mustParse(t, "2024-05-06", "2024-05-10")))
	require.True(t, base.Overlaps(mustParse(t, "2024-04-20", "2024-05-01")))
	require.True(t, base.Overlaps(mustParse(t, "2024-05-02", "2024-05-03")), "contained range")
	require.False(t, base.Overlaps(mustParse(t, "2024-04-01", "2024-04-30")))
}

func TestNewRejectsInvertedAndZeroRanges(t *testing.T) {
	_, err := Parse("2024-05-03", "2024-05-01")
	require.ErrorIs(t, err, ErrInvalidRange)

	_, err = New(time.Time{}, time.Now())
	require.ErrorIs(t, err, ErrInvalidRange)

	_, err = Parse("2024-02-30", "2024-03-01")
	require.ErrorIs(t, err, ErrInvalidRange)
}

func TestSingleDayRange(t *testing.T) {
	dr := mustParse(t, "2024-05-01", "2024-05-01")
	require.Equal(t, 1, dr.Days())
	require.True(t, dr.ContainsDate(time.Date(2024, 5, 1, 18, 30, 0, 0, time.UTC)))
}

func TestNewDropsTimeOfDay(t *testing.T) {
	dr, err := New(time.Date(2024, 5, 1, 23, 0, 0, 0, time.UTC), time.Date(2024, 5, 3, 1, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Equal(t, 3, dr.Days())
	require.Equal(t, "2024-05-01..2024-05-03", dr.String())
}
