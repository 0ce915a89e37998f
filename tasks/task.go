// Package tasks holds the per-analysis extraction and aggregation
// strategies. Every task maps a ride record to one (group key, partial
// value) pair, folds partials inside a key run, and renders one output
// row per finished run. The generic run machinery lives in the reduce
// package; tasks only supply the shapes.
package tasks

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/ridelab/ridefold/record"
)

// Partial is the per-record contribution to a group. Count carries the
// ride count (1 per record), Sum carries the summed quantity for tasks
// that aggregate fares or ratings and stays zero for pure counts.
type Partial struct {
	Count int64
	Sum   decimal.Decimal
}

// Accumulator is the running state of one open key run. It is created
// when a run opens, mutated only by Fold, and consumed exactly once by
// the task's Finalize.
type Accumulator interface {
	Fold(p Partial)
}

// Result is one finished group. Columns is the full output row, in
// task column order; Key repeats the group key for sinks and tests.
type Result struct {
	Key     string
	Columns []string
}

// Column describes one output column for schema-aware sinks. Key marks
// columns that identify the group.
type Column struct {
	Name    string
	SQLType string
	Key     bool
}

// Task is one analysis: extraction, fold shape, and finalization.
//
// Extract must be pure and must return ok=false instead of an error
// when the record cannot contribute; the caller skips and continues.
type Task interface {
	Name() string
	Schema() record.Schema
	Extract(r record.Ride) (key string, p Partial, ok bool)
	NewAccumulator() Accumulator
	Finalize(key string, acc Accumulator) Result
	Columns() []Column
}

var registry = map[string]Task{}

func register(t Task) {
	if _, dup := registry[t.Name()]; dup {
		panic(fmt.Sprintf("duplicate task %q", t.Name()))
	}
	registry[t.Name()] = t
}

// Lookup returns the task registered under name.
func Lookup(name string) (Task, error) {
	t, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("unknown task %q (have %v)", name, Names())
	}
	return t, nil
}

// Names lists registered task names, sorted.
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// countAccumulator folds ride counts.
type countAccumulator struct {
	n int64
}

func (a *countAccumulator) Fold(p Partial) {
	a.n += p.Count
}

// sumCountAccumulator folds (sum, count) pairs. The average is derived
// only at finalize time as sum/count, never incrementally, so rounding
// error does not compound across folds.
type sumCountAccumulator struct {
	sum decimal.Decimal
	n   int64
}

func (a *sumCountAccumulator) Fold(p Partial) {
	a.sum = a.sum.Add(p.Sum)
	a.n += p.Count
}

func (a *sumCountAccumulator) average() decimal.Decimal {
	return a.sum.Div(decimal.NewFromInt(a.n))
}

func itoa(n int64) string {
	return fmt.Sprintf("%d", n)
}
