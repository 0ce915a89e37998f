package tasks

import (
	"github.com/ridelab/ridefold/record"
)

func init() { register(CustomerSegmentation{}) }

// CustomerSegmentation aggregates ride count and fare spend per
// customer. Output row: (customer_id, total_rides, total_fare,
// avg_fare).
type CustomerSegmentation struct{}

func (CustomerSegmentation) Name() string { return "customer" }

func (CustomerSegmentation) Schema() record.Schema {
	return record.Schema{MinFields: 10, Need: record.NeedFare}
}

func (CustomerSegmentation) Extract(r record.Ride) (string, Partial, bool) {
	if r.CustomerID == "" {
		return "", Partial{}, false
	}
	return r.CustomerID, Partial{Count: 1, Sum: r.Fare}, true
}

func (CustomerSegmentation) NewAccumulator() Accumulator { return &sumCountAccumulator{} }

func (CustomerSegmentation) Finalize(key string, acc Accumulator) Result {
	a := acc.(*sumCountAccumulator)
	return Result{Key: key, Columns: []string{
		key,
		itoa(a.n),
		a.sum.StringFixed(2),
		a.average().StringFixed(2),
	}}
}

func (CustomerSegmentation) Columns() []Column {
	return []Column{
		{Name: "customer_id", SQLType: "VARCHAR(64)", Key: true},
		{Name: "total_rides", SQLType: "BIGINT"},
		{Name: "total_fare", SQLType: "DECIMAL(14,2)"},
		{Name: "avg_fare", SQLType: "DECIMAL(14,2)"},
	}
}
