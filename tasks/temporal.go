package tasks

import (
	"fmt"

	"github.com/ridelab/ridefold/record"
)

func init() { register(TemporalDemand{}) }

// TemporalDemand counts rides per hour of day. Output row: (hour,
// total_rides) with hour zero padded to two digits so runs sort the
// same way they group.
type TemporalDemand struct{}

func (TemporalDemand) Name() string { return "temporal" }

func (TemporalDemand) Schema() record.Schema {
	return record.Schema{MinFields: 2, Need: record.NeedTimestamp}
}

func (TemporalDemand) Extract(r record.Ride) (string, Partial, bool) {
	return fmt.Sprintf("%02d", r.Timestamp.Hour()), Partial{Count: 1}, true
}

func (TemporalDemand) NewAccumulator() Accumulator { return &countAccumulator{} }

func (TemporalDemand) Finalize(key string, acc Accumulator) Result {
	a := acc.(*countAccumulator)
	return Result{Key: key, Columns: []string{key, itoa(a.n)}}
}

func (TemporalDemand) Columns() []Column {
	return []Column{
		{Name: "hour_of_day", SQLType: "CHAR(2)", Key: true},
		{Name: "total_rides", SQLType: "BIGINT"},
	}
}
