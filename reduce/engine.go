// Package reduce implements the streaming grouped-fold engine.
//
// The engine consumes an ordered stream of (key, partial) pairs and
// emits one finalized result per maximal run of equal keys. It keeps a
// single open key and a single open accumulator, so memory stays flat
// regardless of how many distinct keys the stream carries.
//
// Precondition: equal keys must arrive in one contiguous run. That
// contract belongs to the upstream shuffle (see the shuffle package);
// the engine performs no cross-run merging, and a violated contract
// silently produces one result per run of the repeated key.
package reduce

import (
	"context"

	"github.com/ridelab/ridefold/tasks"
)

// Pair is one shuffled (group key, partial value) record.
type Pair struct {
	Key   string
	Value tasks.Partial
}

// Reducer is the subset of a task the engine needs: how a run's
// accumulator starts and how a finished run becomes a result.
type Reducer interface {
	NewAccumulator() tasks.Accumulator
	Finalize(key string, acc tasks.Accumulator) tasks.Result
}

// Engine folds one key-contiguous pair stream. The zero-ish state
// returned by New has no group open.
type Engine struct {
	red  Reducer
	key  string
	acc  tasks.Accumulator
	open bool
}

// New returns an engine with no open group.
func New(red Reducer) *Engine {
	return &Engine{red: red}
}

// Feed folds one pair. When the pair's key differs from the open key,
// the open group is finalized and returned with ok=true, and the pair
// seeds a fresh accumulator under its own key.
func (e *Engine) Feed(p Pair) (tasks.Result, bool) {
	if e.open && p.Key == e.key {
		e.acc.Fold(p.Value)
		return tasks.Result{}, false
	}

	var res tasks.Result
	var emitted bool
	if e.open {
		res = e.red.Finalize(e.key, e.acc)
		emitted = true
	}

	e.key = p.Key
	e.acc = e.red.NewAccumulator()
	e.acc.Fold(p.Value)
	e.open = true
	return res, emitted
}

// Close finalizes the group still open at end of stream, if any. The
// final run must not be dropped: a stream that ends mid-run still
// yields exactly one result for that run.
func (e *Engine) Close() (tasks.Result, bool) {
	if !e.open {
		return tasks.Result{}, false
	}
	res := e.red.Finalize(e.key, e.acc)
	e.key = ""
	e.acc = nil
	e.open = false
	return res, true
}

// Run drains next until it reports exhaustion, emitting each finished
// group in run order. On cancellation it returns ctx.Err() without
// finalizing the still-open group, so a cancelled partition never
// emits a partial-group result.
func (e *Engine) Run(ctx context.Context, next func() (Pair, bool, error), emit func(tasks.Result) error) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		p, ok, err := next()
		if err != nil {
			return err
		}
		if !ok {
			break
		}
		if res, done := e.Feed(p); done {
			if err := emit(res); err != nil {
				return err
			}
		}
	}
	if res, done := e.Close(); done {
		return emit(res)
	}
	return nil
}

// SlicePairs adapts an in-memory pair slice to Run's source contract.
func SlicePairs(pairs []Pair) func() (Pair, bool, error) {
	i := 0
	return func() (Pair, bool, error) {
		if i >= len(pairs) {
			return Pair{}, false, nil
		}
		p := pairs[i]
		i++
		return p, true, nil
	}
}
