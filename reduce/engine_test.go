package reduce

import (
	"context"
	"strconv"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/ridelab/ridefold/tasks"
)

func countPair(key string) Pair {
	return Pair{Key: key, Value: tasks.Partial{Count: 1}}
}

func farePair(key, amount string) Pair {
	return Pair{Key: key, Value: tasks.Partial{Count: 1, Sum: decimal.RequireFromString(amount)}}
}

func drain(t *testing.T, red Reducer, pairs []Pair) []tasks.Result {
	t.Helper()
	var results []tasks.Result
	eng := New(red)
	err := eng.Run(context.Background(), SlicePairs(pairs), func(res tasks.Result) error {
		results = append(results, res)
		return nil
	})
	require.NoError(t, err)
	return results
}

func TestSingleRunEmitsExactlyOneResult(t *testing.T) {
	// A stream ending mid-run must still emit the final group.
	for n := 1; n <= 5; n++ {
		pairs := make([]Pair, n)
		for i := range pairs {
			pairs[i] = countPair("07")
		}
		results := drain(t, tasks.TemporalDemand{}, pairs)
		require.Len(t, results, 1, "run length %d", n)
		require.Equal(t, []string{"07", strconv.Itoa(n)}, results[0].Columns)
	}
}

func TestEmptyStreamEmitsNothing(t *testing.T) {
	results := drain(t, tasks.TemporalDemand{}, nil)
	require.Empty(t, results)
}

func TestRunBoundariesCloseGroupsInOrder(t *testing.T) {
	pairs := []Pair{
		countPair("08"), countPair("08"), countPair("08"),
		countPair("09"),
		countPair("17"), countPair("17"),
	}
	results := drain(t, tasks.TemporalDemand{}, pairs)
	require.Len(t, results, 3)
	require.Equal(t, []string{"08", "3"}, results[0].Columns)
	require.Equal(t, []string{"09", "1"}, results[1].Columns)
	require.Equal(t, []string{"17", "2"}, results[2].Columns)
}

func TestNonAdjacentRunsOfEqualKeyEmitTwice(t *testing.T) {
	// Contiguity is a precondition the engine does not defend against:
	// a key that reappears after its run closed produces a second,
	// separate result. The shuffle owns preventing this.
	pairs := []Pair{
		countPair("08"), countPair("08"),
		countPair("09"),
		countPair("08"),
	}
	results := drain(t, tasks.TemporalDemand{}, pairs)
	require.Len(t, results, 3)
	require.Equal(t, "08", results[0].Key)
	require.Equal(t, "09", results[1].Key)
	require.Equal(t, "08", results[2].Key)
	require.Equal(t, []string{"08", "2"}, results[0].Columns)
	require.Equal(t, []string{"08", "1"}, results[2].Columns)
}

func TestFoldIsOrderInsensitiveWithinRun(t *testing.T) {
	amounts := [][]string{
		{"10.00", "20.00", "15.00"},
		{"15.00", "10.00", "20.00"},
		{"20.00", "15.00", "10.00"},
	}
	var first []string
	for _, order := range amounts {
		pairs := make([]Pair, len(order))
		for i, a := range order {
			pairs[i] = farePair("2024-01-01", a)
		}
		results := drain(t, tasks.DailyRevenue{}, pairs)
		require.Len(t, results, 1)
		if first == nil {
			first = results[0].Columns
			continue
		}
		require.Equal(t, first, results[0].Columns)
	}
	require.Equal(t, []string{"2024-01-01", "45.00", "3", "15.00"}, first)
}

func TestCancelledRunEmitsNoPartialGroup(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	fed := 0
	pairs := []Pair{countPair("08"), countPair("08"), countPair("08")}
	next := func() (Pair, bool, error) {
		if fed == 2 {
			// Abort mid-run; the open group must not be finalized.
			cancel()
		}
		if fed >= len(pairs) {
			return Pair{}, false, nil
		}
		p := pairs[fed]
		fed++
		return p, true, nil
	}

	var results []tasks.Result
	eng := New(tasks.TemporalDemand{})
	err := eng.Run(ctx, next, func(res tasks.Result) error {
		results = append(results, res)
		return nil
	})
	require.ErrorIs(t, err, context.Canceled)
	require.Empty(t, results)
}

func TestFeedAndCloseStateMachine(t *testing.T) {
	eng := New(tasks.TemporalDemand{})

	_, emitted := eng.Feed(countPair("08"))
	require.False(t, emitted)
	_, emitted = eng.Feed(countPair("08"))
	require.False(t, emitted)

	res, emitted := eng.Feed(countPair("09"))
	require.True(t, emitted)
	require.Equal(t, []string{"08", "2"}, res.Columns)

	res, emitted = eng.Close()
	require.True(t, emitted)
	require.Equal(t, []string{"09", "1"}, res.Columns)

	// Terminal state: nothing left to emit.
	_, emitted = eng.Close()
	require.False(t, emitted)
}
