package shuffle

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/ridelab/ridefold/reduce"
	"github.com/ridelab/ridefold/tasks"
)

func TestCodecRoundTrip(t *testing.T) {
	in := reduce.Pair{
		Key:   "37.77,-122.42",
		Value: tasks.Partial{Count: 1, Sum: decimal.RequireFromString("15.50")},
	}

	line := EncodePair(in)
	require.Equal(t, "37.77,-122.42\t1,15.5", line)

	out, err := DecodePair(line)
	require.NoError(t, err)
	require.Equal(t, in.Key, out.Key)
	require.Equal(t, in.Value.Count, out.Value.Count)
	require.True(t, in.Value.Sum.Equal(out.Value.Sum))
}

func TestDecodePairRejectsMalformedLines(t *testing.T) {
	for _, line := range []string{
		"no-tab-here",
		"key\tnovalue",
		"key\tx,1.0",
		"key\t1,notanumber",
	} {
		_, err := DecodePair(line)
		require.Error(t, err, "line %q", line)
	}
}
