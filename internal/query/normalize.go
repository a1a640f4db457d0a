package query

import (
	"math"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xtxerr/seisfetch/config"
)

// Kind is the representation of a normalized value.
type Kind int

const (
	KindString Kind = iota
	KindNumber
)

// Value is a canonical index value: a string or an exact decimal.
type Value struct {
	Kind Kind
	Str  string
	Num  decimal.Decimal
}

// String builds a string value.
func String(s string) Value {
	return Value{Kind: KindString, Str: s}
}

// Number builds a numeric value from a float64 using its shortest exact
// decimal representation, so 34.1 stays 34.1 rather than 34.0999999...
// f must be finite.
func Number(f float64) Value {
	return Value{Kind: KindNumber, Num: decimal.NewFromFloat(f)}
}

// Decimal builds a numeric value from an existing decimal.
func Decimal(d decimal.Decimal) Value {
	return Value{Kind: KindNumber, Num: d}
}

// IsNumber reports whether v is numeric.
func (v Value) IsNumber() bool {
	return v.Kind == KindNumber
}

// Text returns the value as text; numbers use their decimal form.
func (v Value) Text() string {
	if v.Kind == KindNumber {
		return v.Num.String()
	}
	return v.Str
}

// Compare orders two values of the same kind. Strings compare bytewise,
// numbers by decimal value. ok is false for mixed kinds.
func (v Value) Compare(o Value) (cmp int, ok bool) {
	if v.Kind != o.Kind {
		return 0, false
	}
	if v.Kind == KindNumber {
		return v.Num.Cmp(o.Num), true
	}
	switch {
	case v.Str < o.Str:
		return -1, true
	case v.Str > o.Str:
		return 1, true
	default:
		return 0, true
	}
}

// Equal reports whether two values have the same kind and value.
func (v Value) Equal(o Value) bool {
	c, ok := v.Compare(o)
	return ok && c == 0
}

// Normalized is the canonical form of Params. Unset parameters are absent.
type Normalized struct {
	values map[Param]Value
}

// Normalize converts params into canonical index values: times become
// YYYY-MM-DD, floats become exact decimals and strings pass through.
// NaN and infinite floats have no decimal form and are dropped; callers
// reject them first with Params.Validate.
func Normalize(p Params) Normalized {
	n := Normalized{values: make(map[Param]Value)}

	setTime := func(k Param, t *time.Time) {
		if t != nil {
			n.values[k] = String(t.Format(config.DateLayout))
		}
	}
	setString := func(k Param, s *string) {
		if s != nil {
			n.values[k] = String(*s)
		}
	}
	setFloat := func(k Param, f *float64) {
		if f != nil && !math.IsNaN(*f) && !math.IsInf(*f, 0) {
			n.values[k] = Number(*f)
		}
	}

	setTime(StartTime, p.StartTime)
	setTime(EndTime, p.EndTime)
	setString(Network, p.Network)
	setString(Station, p.Station)
	setString(Location, p.Location)
	setString(Channel, p.Channel)
	setFloat(MinLatitude, p.MinLatitude)
	setFloat(MaxLatitude, p.MaxLatitude)
	setFloat(MinLongitude, p.MinLongitude)
	setFloat(MaxLongitude, p.MaxLongitude)

	return n
}

// Get returns the normalized value of k.
func (n Normalized) Get(k Param) (Value, bool) {
	v, ok := n.values[k]
	return v, ok
}

// Len returns the number of set parameters.
func (n Normalized) Len() int {
	return len(n.values)
}

// Each calls fn for every set parameter in canonical order.
func (n Normalized) Each(fn func(Param, Value)) {
	for _, k := range AllParams {
		if v, ok := n.values[k]; ok {
			fn(k, v)
		}
	}
}

// Window is an inclusive date range in canonical YYYY-MM-DD form.
type Window struct {
	Start string
	End   string
}

// HasTime reports whether either end of the time window was given.
func (n Normalized) HasTime() bool {
	_, s := n.values[StartTime]
	_, e := n.values[EndTime]
	return s || e
}

// Window returns the query window, substituting open bounds with
// config.MinDate and config.MaxDate.
func (n Normalized) Window() Window {
	w := Window{Start: config.MinDate, End: config.MaxDate}
	if v, ok := n.values[StartTime]; ok {
		w.Start = v.Str
	}
	if v, ok := n.values[EndTime]; ok {
		w.End = v.Str
	}
	return w
}
