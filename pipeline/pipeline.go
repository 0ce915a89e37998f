// Package pipeline wires one task through the shuffle and the reduce
// engine. The full local run is extract -> partition -> sort -> fold,
// with one engine instance per partition; the split Map/Reduce entry
// points expose the same stages over the intermediate wire format for
// environments where an external shuffle sits between them.
package pipeline

import (
	"bufio"
	"context"
	"errors"
	"io"
	"strings"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/ridelab/ridefold/record"
	"github.com/ridelab/ridefold/reduce"
	"github.com/ridelab/ridefold/shuffle"
	"github.com/ridelab/ridefold/tasks"
)

// Scanner token limit. Ride lines are short; intermediate keys are
// bounded by identifier length, so 1 MiB is generous.
const maxLineBytes = 1 << 20

// Options tunes a pipeline run.
type Options struct {
	// Partitions is the reducer fan-out for local runs. Values < 1
	// mean a single partition.
	Partitions int
}

func (o Options) partitions() int {
	if o.Partitions < 1 {
		return 1
	}
	return o.Partitions
}

// Stats summarizes one run. Skipped counts malformed input lines; a
// skipped line never aborts the job.
type Stats struct {
	Lines   int64
	Skipped int64
	Pairs   int64
	Groups  int64
}

// Run executes the full local pipeline for one task: read ride lines
// from in, extract pairs, establish key contiguity per partition, fold
// each partition with its own engine, and hand all results to sink in
// the order groups closed (partition order, then run order).
func Run(ctx context.Context, task tasks.Task, in io.Reader, sink Sink, opts Options) (Stats, error) {
	logger := runLogger(task)
	pairs, stats, err := extractPairs(logger, task, in)
	if err != nil {
		return stats, err
	}

	nPart := opts.partitions()
	buckets := shuffle.Partition(pairs, nPart)

	resultsByPart := make([][]tasks.Result, nPart)
	g, gctx := errgroup.WithContext(ctx)
	for i := range buckets {
		part := i
		bucket := buckets[part]
		g.Go(func() error {
			shuffle.Sort(bucket)
			eng := reduce.New(task)
			return eng.Run(gctx, reduce.SlicePairs(bucket), func(res tasks.Result) error {
				resultsByPart[part] = append(resultsByPart[part], res)
				return nil
			})
		})
	}
	if err := g.Wait(); err != nil {
		return stats, err
	}

	var results []tasks.Result
	for _, part := range resultsByPart {
		results = append(results, part...)
	}
	stats.Groups = int64(len(results))
	logger.WithFields(log.Fields{
		"lines":   stats.Lines,
		"skipped": stats.Skipped,
		"groups":  stats.Groups,
	}).Info("pipeline done")

	return stats, sink.Write(ctx, task, results)
}

// RunMap executes the extract phase alone: ride lines in, one encoded
// intermediate pair per line out. The external shuffle between RunMap
// and RunReduce owns the contiguity guarantee.
func RunMap(ctx context.Context, task tasks.Task, in io.Reader, out io.Writer) (Stats, error) {
	logger := runLogger(task)
	var stats Stats

	bw := bufio.NewWriter(out)
	scanner := newLineScanner(in)
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		stats.Lines++
		p, ok := extractOne(logger, task, line)
		if !ok {
			stats.Skipped++
			continue
		}
		stats.Pairs++
		if _, err := bw.WriteString(shuffle.EncodePair(p)); err != nil {
			return stats, err
		}
		if err := bw.WriteByte('\n'); err != nil {
			return stats, err
		}
	}
	if err := scanner.Err(); err != nil {
		return stats, err
	}
	return stats, bw.Flush()
}

// RunReduce executes the fold phase alone over already key-contiguous
// intermediate lines, the contract an upstream sort-merge shuffle
// provides. Malformed intermediate lines are skipped and counted like
// malformed input.
func RunReduce(ctx context.Context, task tasks.Task, in io.Reader, sink Sink) (Stats, error) {
	logger := runLogger(task)
	var stats Stats
	var results []tasks.Result

	eng := reduce.New(task)
	scanner := newLineScanner(in)
	next := func() (reduce.Pair, bool, error) {
		for scanner.Scan() {
			line := scanner.Text()
			if line == "" {
				continue
			}
			stats.Lines++
			p, err := shuffle.DecodePair(line)
			if err != nil {
				stats.Skipped++
				logger.WithError(err).Debug("skipping intermediate line")
				continue
			}
			stats.Pairs++
			return p, true, nil
		}
		return reduce.Pair{}, false, scanner.Err()
	}

	err := eng.Run(ctx, next, func(res tasks.Result) error {
		results = append(results, res)
		return nil
	})
	if err != nil {
		return stats, err
	}
	stats.Groups = int64(len(results))
	return stats, sink.Write(ctx, task, results)
}

func extractPairs(logger *log.Entry, task tasks.Task, in io.Reader) ([]reduce.Pair, Stats, error) {
	var stats Stats
	var pairs []reduce.Pair

	scanner := newLineScanner(in)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		stats.Lines++
		p, ok := extractOne(logger, task, line)
		if !ok {
			stats.Skipped++
			continue
		}
		stats.Pairs++
		pairs = append(pairs, p)
	}
	if err := scanner.Err(); err != nil {
		return nil, stats, err
	}
	return pairs, stats, nil
}

func extractOne(logger *log.Entry, task tasks.Task, line string) (reduce.Pair, bool) {
	r, err := record.Parse(line, task.Schema())
	if err != nil {
		if !errors.Is(err, record.ErrTooFewFields) {
			logger.WithError(err).Debug("skipping malformed line")
		}
		return reduce.Pair{}, false
	}
	key, partial, ok := task.Extract(r)
	if !ok {
		return reduce.Pair{}, false
	}
	return reduce.Pair{Key: key, Value: partial}, true
}

func newLineScanner(in io.Reader) *bufio.Scanner {
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 64*1024), maxLineBytes)
	return scanner
}

func runLogger(task tasks.Task) *log.Entry {
	return log.WithFields(log.Fields{
		"job":  uuid.New().String(),
		"task": task.Name(),
	})
}
