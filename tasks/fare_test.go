package tasks

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestFareKeyDropsTimeOfDay(t *testing.T) {
	task := DailyRevenue{}

	k1, p, ok := extractLine(t, task, "r1,2024-01-01 08:00:00,37.77,-122.41,37.79,-122.40,10.00,d1,4.5,c1")
	require.True(t, ok)
	k2, _, ok := extractLine(t, task, "r2,2024-01-01 21:30:00,37.77,-122.41,37.79,-122.40,20.00,d2,4.0,c2")
	require.True(t, ok)

	require.Equal(t, "2024-01-01", k1)
	require.Equal(t, k1, k2)
	require.Equal(t, int64(1), p.Count)
	require.Equal(t, "10", p.Sum.String())
}

func TestFareAverageComputedAtFinalize(t *testing.T) {
	task := DailyRevenue{}
	acc := task.NewAccumulator()
	for _, amount := range []string{"10.00", "20.00", "15.00"} {
		acc.Fold(Partial{Count: 1, Sum: decimal.RequireFromString(amount)})
	}

	res := task.Finalize("2024-01-01", acc)
	require.Equal(t, []string{"2024-01-01", "45.00", "3", "15.00"}, res.Columns)
}

func TestFareRequiresTenFields(t *testing.T) {
	task := DailyRevenue{}

	// Nine fields: enough for the fare column but under the task's
	// required count.
	_, _, ok := extractLine(t, task, "r1,2024-01-01 08:00:00,37.77,-122.41,37.79,-122.40,10.00,d1,4.5")
	require.False(t, ok)
}

func TestFareSkipsNonNumericAmount(t *testing.T) {
	task := DailyRevenue{}
	_, _, ok := extractLine(t, task, "r1,2024-01-01 08:00:00,37.77,-122.41,37.79,-122.40,free,d1,4.5,c1")
	require.False(t, ok)
}
