package tasks

import (
	"github.com/ridelab/ridefold/record"
)

func init() { register(DriverRating{}) }

// DriverRating averages the per-ride rating per driver. Output row:
// (driver_id, avg_rating) at fixed two decimals.
type DriverRating struct{}

func (DriverRating) Name() string { return "driver" }

func (DriverRating) Schema() record.Schema {
	return record.Schema{MinFields: 9, Need: record.NeedDriverRating}
}

func (DriverRating) Extract(r record.Ride) (string, Partial, bool) {
	if r.DriverID == "" {
		return "", Partial{}, false
	}
	return r.DriverID, Partial{Count: 1, Sum: r.DriverRating}, true
}

func (DriverRating) NewAccumulator() Accumulator { return &sumCountAccumulator{} }

func (DriverRating) Finalize(key string, acc Accumulator) Result {
	a := acc.(*sumCountAccumulator)
	return Result{Key: key, Columns: []string{key, a.average().StringFixed(2)}}
}

func (DriverRating) Columns() []Column {
	return []Column{
		{Name: "driver_id", SQLType: "VARCHAR(64)", Key: true},
		{Name: "avg_rating", SQLType: "DECIMAL(4,2)"},
	}
}
