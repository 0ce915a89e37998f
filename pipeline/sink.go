package pipeline

import (
	"bufio"
	"context"
	"io"
	"strings"

	"github.com/ridelab/ridefold/tasks"
)

// Sink receives finalized results in the order their groups closed.
type Sink interface {
	Write(ctx context.Context, task tasks.Task, results []tasks.Result) error
}

// LineSink renders one delimited line per result to w. The zero
// delimiter means comma.
type LineSink struct {
	W         io.Writer
	Delimiter string
}

func (s LineSink) Write(ctx context.Context, _ tasks.Task, results []tasks.Result) error {
	delim := s.Delimiter
	if delim == "" {
		delim = ","
	}
	bw := bufio.NewWriter(s.W)
	for _, res := range results {
		if err := ctx.Err(); err != nil {
			return err
		}
		if _, err := bw.WriteString(strings.Join(res.Columns, delim)); err != nil {
			return err
		}
		if err := bw.WriteByte('\n'); err != nil {
			return err
		}
	}
	return bw.Flush()
}
