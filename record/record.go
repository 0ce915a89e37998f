// Package record defines the ride record line format and its parser.
//
// A ride line is comma separated with fields in this fixed order:
//
//	ride_id,timestamp,pickup_lat,pickup_lon,dropoff_lat,dropoff_lon,fare,driver_id,driver_rating,customer_id
//
// Each analysis task only touches a subset of the fields, so parsing is
// driven by a Schema: the minimum field count the task requires and the
// set of typed fields it reads. Fields outside the schema are left at
// their zero value even when present and malformed.
package record

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// TimeLayout is the timestamp format of the input feed.
const TimeLayout = "2006-01-02 15:04:05"

// Field indexes within a ride line.
const (
	FieldRideID = iota
	FieldTimestamp
	FieldPickupLat
	FieldPickupLon
	FieldDropoffLat
	FieldDropoffLon
	FieldFare
	FieldDriverID
	FieldDriverRating
	FieldCustomerID

	FieldCount
)

// FieldSet selects which typed fields Parse converts.
type FieldSet uint16

const (
	NeedTimestamp FieldSet = 1 << iota
	NeedPickup
	NeedDropoff
	NeedFare
	NeedDriverRating
)

// Schema describes what a task requires from a raw line.
type Schema struct {
	// MinFields is the minimum number of comma separated fields a line
	// must have before typed conversion is attempted.
	MinFields int
	// Need selects the typed conversions to perform. A conversion
	// failure on a needed field fails the whole parse.
	Need FieldSet
}

// ErrTooFewFields reports a line with fewer fields than the schema
// minimum.
var ErrTooFewFields = errors.New("too few fields")

// Ride is one parsed ride record. It is immutable once returned by
// Parse; a malformed line yields no Ride at all.
type Ride struct {
	RideID       string
	Timestamp    time.Time
	PickupLat    decimal.Decimal
	PickupLon    decimal.Decimal
	DropoffLat   decimal.Decimal
	DropoffLon   decimal.Decimal
	Fare         decimal.Decimal
	DriverID     string
	DriverRating decimal.Decimal
	CustomerID   string
}

// Parse converts one raw line into a Ride under the given schema.
// Identifier fields present in the line are always captured; numeric
// and timestamp fields are converted only when the schema needs them.
func Parse(line string, s Schema) (Ride, error) {
	fields := Split(line)
	if len(fields) < s.MinFields {
		return Ride{}, fmt.Errorf("%w: got %d, need %d", ErrTooFewFields, len(fields), s.MinFields)
	}

	var r Ride
	r.RideID = field(fields, FieldRideID)
	r.DriverID = field(fields, FieldDriverID)
	r.CustomerID = field(fields, FieldCustomerID)

	var err error
	if s.Need&NeedTimestamp != 0 {
		r.Timestamp, err = time.Parse(TimeLayout, field(fields, FieldTimestamp))
		if err != nil {
			return Ride{}, fmt.Errorf("bad timestamp: %w", err)
		}
	}
	if s.Need&NeedPickup != 0 {
		if r.PickupLat, err = parseCoord(field(fields, FieldPickupLat)); err != nil {
			return Ride{}, fmt.Errorf("bad pickup_lat: %w", err)
		}
		if r.PickupLon, err = parseCoord(field(fields, FieldPickupLon)); err != nil {
			return Ride{}, fmt.Errorf("bad pickup_lon: %w", err)
		}
	}
	if s.Need&NeedDropoff != 0 {
		if r.DropoffLat, err = parseCoord(field(fields, FieldDropoffLat)); err != nil {
			return Ride{}, fmt.Errorf("bad dropoff_lat: %w", err)
		}
		if r.DropoffLon, err = parseCoord(field(fields, FieldDropoffLon)); err != nil {
			return Ride{}, fmt.Errorf("bad dropoff_lon: %w", err)
		}
	}
	if s.Need&NeedFare != 0 {
		if r.Fare, err = parseFare(field(fields, FieldFare)); err != nil {
			return Ride{}, fmt.Errorf("bad fare: %w", err)
		}
	}
	if s.Need&NeedDriverRating != 0 {
		if r.DriverRating, err = decimal.NewFromString(field(fields, FieldDriverRating)); err != nil {
			return Ride{}, fmt.Errorf("bad driver_rating: %w", err)
		}
	}
	return r, nil
}

// Split breaks a raw line into trimmed fields.
func Split(line string) []string {
	fields := strings.Split(line, ",")
	for i := range fields {
		fields[i] = strings.TrimSpace(fields[i])
	}
	return fields
}

func field(fields []string, i int) string {
	if i >= len(fields) {
		return ""
	}
	return fields[i]
}

func parseCoord(s string) (decimal.Decimal, error) {
	// Coordinates stay decimal end to end so two-decimal grid identity
	// never drifts through a binary float.
	return decimal.NewFromString(s)
}

func parseFare(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, err
	}
	if d.IsNegative() {
		return decimal.Decimal{}, fmt.Errorf("negative amount %s", s)
	}
	return d, nil
}
