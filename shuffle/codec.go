package shuffle

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/ridelab/ridefold/reduce"
	"github.com/ridelab/ridefold/tasks"
)

// Intermediate wire format, one pair per line:
//
//	key '\t' count ',' sum
//
// The key/value separator is a tab and the value's internal separator
// is a comma, so keys that contain commas (grid cells) never collide
// with the value layout.

// EncodePair renders one pair as an intermediate line, without the
// trailing newline.
func EncodePair(p reduce.Pair) string {
	var b strings.Builder
	b.Grow(len(p.Key) + 24)
	b.WriteString(p.Key)
	b.WriteByte('\t')
	b.WriteString(strconv.FormatInt(p.Value.Count, 10))
	b.WriteByte(',')
	b.WriteString(p.Value.Sum.String())
	return b.String()
}

// DecodePair parses one intermediate line.
func DecodePair(line string) (reduce.Pair, error) {
	key, val, ok := strings.Cut(line, "\t")
	if !ok {
		return reduce.Pair{}, fmt.Errorf("intermediate line has no tab separator: %q", line)
	}
	rawCount, rawSum, ok := strings.Cut(val, ",")
	if !ok {
		return reduce.Pair{}, fmt.Errorf("intermediate value %q is not count,sum", val)
	}
	count, err := strconv.ParseInt(rawCount, 10, 64)
	if err != nil {
		return reduce.Pair{}, fmt.Errorf("bad intermediate count: %w", err)
	}
	sum, err := decimal.NewFromString(rawSum)
	if err != nil {
		return reduce.Pair{}, fmt.Errorf("bad intermediate sum: %w", err)
	}
	return reduce.Pair{Key: key, Value: tasks.Partial{Count: count, Sum: sum}}, nil
}
