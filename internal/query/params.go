// Package query holds the user-facing query parameters and their
// normalization into index-ready values.
package query

import (
	"fmt"
	"math"
	"time"

	"github.com/xtxerr/seisfetch/config"
	"github.com/xtxerr/seisfetch/internal/errors"
)

// Params is the sparse set of query parameters accepted by one invocation.
// A nil field is unconstrained and contributes nothing to the filter.
// Validate reports parameters that cannot form a query.
type Params struct {
	StartTime *time.Time
	EndTime   *time.Time

	Network  *string
	Station  *string
	Location *string
	Channel  *string

	MinLatitude  *float64
	MaxLatitude  *float64
	MinLongitude *float64
	MaxLongitude *float64
}

// Coordinate limits in degrees.
const (
	maxAbsLatitude  = 90
	maxAbsLongitude = 180
)

// Validate checks that coordinate bounds are finite and within range and
// that EndTime does not precede StartTime. All problems are reported in
// one error wrapping errors.ErrInvalidConfig.
func (p Params) Validate() error {
	verrs := errors.NewValidationErrors()

	coord := func(k Param, f *float64, limit float64) {
		if f == nil {
			return
		}
		switch v := *f; {
		case math.IsNaN(v) || math.IsInf(v, 0):
			verrs.Add(errors.NewInvalidValue(k.String(), v, "not a finite number"))
		case v < -limit || v > limit:
			verrs.Add(errors.NewInvalidValue(k.String(), v, fmt.Sprintf("outside [-%g, %g]", limit, limit)))
		}
	}
	coord(MinLatitude, p.MinLatitude, maxAbsLatitude)
	coord(MaxLatitude, p.MaxLatitude, maxAbsLatitude)
	coord(MinLongitude, p.MinLongitude, maxAbsLongitude)
	coord(MaxLongitude, p.MaxLongitude, maxAbsLongitude)

	if p.StartTime != nil && p.EndTime != nil && p.EndTime.Before(*p.StartTime) {
		verrs.Add(errors.NewInvalidValue(EndTime.String(), p.EndTime.Format(config.DateLayout), "before starttime"))
	}

	return verrs.Err()
}

// Param names one query parameter.
type Param int

const (
	Network Param = iota
	Station
	Location
	Channel
	MinLatitude
	MaxLatitude
	MinLongitude
	MaxLongitude
	StartTime
	EndTime
)

// AllParams lists every parameter in canonical order.
var AllParams = []Param{
	Network, Station, Location, Channel,
	MinLatitude, MaxLatitude, MinLongitude, MaxLongitude,
	StartTime, EndTime,
}

var paramNames = [...]string{
	Network:      "network",
	Station:      "station",
	Location:     "location",
	Channel:      "channel",
	MinLatitude:  "minlatitude",
	MaxLatitude:  "maxlatitude",
	MinLongitude: "minlongitude",
	MaxLongitude: "maxlongitude",
	StartTime:    "starttime",
	EndTime:      "endtime",
}

// String returns the parameter name as accepted on the command line.
func (p Param) String() string {
	if p < 0 || int(p) >= len(paramNames) {
		return fmt.Sprintf("Param(%d)", int(p))
	}
	return paramNames[p]
}

// IsTime reports whether p bounds the time window.
func (p Param) IsTime() bool {
	return p == StartTime || p == EndTime
}

// IsMin reports whether p is a lower numeric bound.
func (p Param) IsMin() bool {
	return p == MinLatitude || p == MinLongitude
}

// IsMax reports whether p is an upper numeric bound.
func (p Param) IsMax() bool {
	return p == MaxLatitude || p == MaxLongitude
}

// Ptr returns a pointer to v. It keeps Params literals short.
func Ptr[T any](v T) *T {
	return &v
}

// Date parses a YYYY-MM-DD date in UTC.
func Date(s string) (time.Time, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return t, nil
}
