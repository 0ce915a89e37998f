package tasks

import (
	"github.com/ridelab/ridefold/record"
)

func init() { register(DailyRevenue{}) }

// DailyRevenue aggregates fares per calendar date. Output row: (date,
// total_fare, ride_count, avg_fare) with money rendered at fixed two
// decimals.
type DailyRevenue struct{}

func (DailyRevenue) Name() string { return "fare" }

func (DailyRevenue) Schema() record.Schema {
	return record.Schema{MinFields: 10, Need: record.NeedTimestamp | record.NeedFare}
}

func (DailyRevenue) Extract(r record.Ride) (string, Partial, bool) {
	return r.Timestamp.Format("2006-01-02"), Partial{Count: 1, Sum: r.Fare}, true
}

func (DailyRevenue) NewAccumulator() Accumulator { return &sumCountAccumulator{} }

func (DailyRevenue) Finalize(key string, acc Accumulator) Result {
	a := acc.(*sumCountAccumulator)
	return Result{Key: key, Columns: []string{
		key,
		a.sum.StringFixed(2),
		itoa(a.n),
		a.average().StringFixed(2),
	}}
}

func (DailyRevenue) Columns() []Column {
	return []Column{
		{Name: "ride_date", SQLType: "DATE", Key: true},
		{Name: "total_fare", SQLType: "DECIMAL(14,2)"},
		{Name: "ride_count", SQLType: "BIGINT"},
		{Name: "avg_fare", SQLType: "DECIMAL(14,2)"},
	}
}
