package tasks

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSpatialGridRoundingDeterminism(t *testing.T) {
	task := SpatialHotspot{}

	// Two nearby pickups must land in the same two-decimal grid cell.
	k1, _, ok := extractLine(t, task, "r1,2024-03-01 08:00:00,37.7749,-122.4194")
	require.True(t, ok)
	k2, _, ok := extractLine(t, task, "r2,2024-03-01 09:00:00,37.7751,-122.4189")
	require.True(t, ok)

	require.Equal(t, "37.77,-122.42", k1)
	require.Equal(t, k1, k2)
}

func TestSpatialFloorsTowardNegativeInfinity(t *testing.T) {
	task := SpatialHotspot{}

	// Cell edges are half-open: a .xx5 coordinate stays in the lower
	// cell for positive values and moves down for negative ones.
	key, _, ok := extractLine(t, task, "r1,2024-03-01 08:00:00,37.775,-122.425")
	require.True(t, ok)
	require.Equal(t, "37.77,-122.43", key)

	key, _, ok = extractLine(t, task, "r2,2024-03-01 08:00:00,37.7751,-122.4194")
	require.True(t, ok)
	require.Equal(t, "37.77,-122.42", key)
}

func TestSpatialSkipsNonNumericCoordinates(t *testing.T) {
	task := SpatialHotspot{}

	_, _, ok := extractLine(t, task, "r1,2024-03-01 08:00:00,north,-122.42")
	require.False(t, ok)
	_, _, ok = extractLine(t, task, "r1,2024-03-01 08:00:00")
	require.False(t, ok)
}

func TestSpatialFinalizeSplitsCell(t *testing.T) {
	task := SpatialHotspot{}
	acc := task.NewAccumulator()
	acc.Fold(Partial{Count: 1})
	acc.Fold(Partial{Count: 1})

	res := task.Finalize("37.77,-122.42", acc)
	require.Equal(t, []string{"37.77", "-122.42", "2"}, res.Columns)
}
