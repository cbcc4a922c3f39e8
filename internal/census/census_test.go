package census

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCompute(t *testing.T) {
	require.Equal(t, 3, Compute(0, 5, 2))
	require.Equal(t, 0, Compute(3, 1, 4))
	require.Equal(t, 10, Compute(10, 0, 0))
}

func TestComputeNeverNegative(t *testing.T) {
	cases := []struct {
		starting, admissions, departures int
	}{
		{0, 0, 1},
		{0, 0, math.MaxInt32},
		{5, 0, 100},
		{1, math.MaxInt32, math.MaxInt32},
		{math.MaxInt32, 0, math.MaxInt32},
	}
	for _, tc := range cases {
		require.GreaterOrEqual(t, Compute(tc.starting, tc.admissions, tc.departures), 0)
	}
}

func TestStartingForMorning(t *testing.T) {
	// Prior night exists: carry its patient census regardless of user input.
	got := StartingForMorning(CarrySource{Found: true, PatientCensus: 7, ComputedCensus: 7}, 3)
	require.Equal(t, 7, got)

	// Carry-over of a zero census is still a carry-over.
	got = StartingForMorning(CarrySource{Found: true, PatientCensus: 0, ComputedCensus: 0}, 5)
	require.Equal(t, 0, got)

	// First day of ward operation: user value wins, defaulting to zero.
	require.Equal(t, 4, StartingForMorning(CarrySource{}, 4))
	require.Equal(t, 0, StartingForMorning(CarrySource{}, 0))
}

func TestStartingForNight(t *testing.T) {
	got, err := StartingForNight(CarrySource{Found: true, PatientCensus: 3, ComputedCensus: 3})
	require.NoError(t, err)
	require.Equal(t, 3, got)

	// Legacy records carry only patientCensus.
	got, err = StartingForNight(CarrySource{Found: true, PatientCensus: 6})
	require.NoError(t, err)
	require.Equal(t, 6, got)

	_, err = StartingForNight(CarrySource{})
	require.ErrorIs(t, err, ErrMorningMissing)
}

func TestDayHelpers(t *testing.T) {
	compact, err := CompactDay("2025-01-01")
	require.NoError(t, err)
	require.Equal(t, "20250101", compact)

	prev, err := PrevDay("2025-01-01")
	require.NoError(t, err)
	require.Equal(t, "2024-12-31", prev)

	_, err = ParseDay("01/01/2025")
	require.Error(t, err)

	_, err = CompactDay("")
	require.Error(t, err)
}
