package tasks

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestDriverRatingAverage(t *testing.T) {
	task := DriverRating{}

	key, p, ok := extractLine(t, task, "r1,2024-01-01 08:00:00,37.77,-122.41,37.79,-122.40,10.00,d42,4.5")
	require.True(t, ok)
	require.Equal(t, "d42", key)
	require.Equal(t, "4.5", p.Sum.String())

	acc := task.NewAccumulator()
	for _, rating := range []string{"4.5", "5.0", "3.5"} {
		acc.Fold(Partial{Count: 1, Sum: decimal.RequireFromString(rating)})
	}
	res := task.Finalize("d42", acc)
	require.Equal(t, []string{"d42", "4.33"}, res.Columns)
}

func TestDriverSkipsBadRating(t *testing.T) {
	task := DriverRating{}
	_, _, ok := extractLine(t, task, "r1,2024-01-01 08:00:00,37.77,-122.41,37.79,-122.40,10.00,d42,five")
	require.False(t, ok)
}
