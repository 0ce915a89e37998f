package tasks

import (
	"strings"

	"github.com/ridelab/ridefold/record"
)

func init() { register(SpatialHotspot{}) }

// SpatialHotspot counts rides per pickup grid cell. A cell is the
// pickup latitude and longitude each floored to two decimal places
// (rounded toward negative infinity), so every cell covers the same
// half-open 0.01-degree interval and 37.7751 stays in 37.77 while
// -122.4194 lands in -122.42. Cell identity is the rendered
// fixed-point pair, never a binary float.
type SpatialHotspot struct{}

func (SpatialHotspot) Name() string { return "spatial" }

func (SpatialHotspot) Schema() record.Schema {
	return record.Schema{MinFields: 4, Need: record.NeedPickup}
}

func (SpatialHotspot) Extract(r record.Ride) (string, Partial, bool) {
	cell := r.PickupLat.RoundFloor(2).StringFixed(2) + "," + r.PickupLon.RoundFloor(2).StringFixed(2)
	return cell, Partial{Count: 1}, true
}

func (SpatialHotspot) NewAccumulator() Accumulator { return &countAccumulator{} }

func (SpatialHotspot) Finalize(key string, acc Accumulator) Result {
	a := acc.(*countAccumulator)
	lat, lon, _ := strings.Cut(key, ",")
	return Result{Key: key, Columns: []string{lat, lon, itoa(a.n)}}
}

func (SpatialHotspot) Columns() []Column {
	return []Column{
		{Name: "grid_lat", SQLType: "DECIMAL(5,2)", Key: true},
		{Name: "grid_lon", SQLType: "DECIMAL(6,2)", Key: true},
		{Name: "ride_count", SQLType: "BIGINT"},
	}
}
