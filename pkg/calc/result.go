package calc

import (
	"github.com/iwvelando/finance-calculators/pkg/format"
	"github.com/iwvelando/finance-calculators/pkg/mathutil"
)

// Unit is the semantic type of a result value; the consumer picks the
// prefix or suffix from it.
type Unit string

const (
	UnitNumber   Unit = "number"
	UnitCurrency Unit = "currency"
	UnitPercent  Unit = "percent"
	UnitUnits    Unit = "units"
)

// Value is one named output of a calculator.
type Value struct {
	Key    string  `json:"key"`
	Amount float64 `json:"amount"`
	Unit   Unit    `json:"unit"`
}

// String renders the value for display and insight records.
func (v Value) String() string {
	switch v.Unit {
	case UnitCurrency:
		return format.Currency(v.Amount)
	case UnitPercent:
		return format.Percent(v.Amount)
	default:
		return format.Fixed(v.Amount, 2)
	}
}

// Point is one chart data point: a label plus named numbers.
type Point struct {
	Name   string             `json:"name"`
	Values map[string]float64 `json:"values"`
}

// Series is a named, ordered sequence of points for the chart collaborator.
// Keys lists the value names carried by every point, in display order.
type Series struct {
	Name   string   `json:"name"`
	Keys   []string `json:"keys"`
	Points []Point  `json:"points"`
}

// Result is the set of outputs computed from a session. It is rebuilt in
// full on every recompute; an empty Result means the inputs are not yet
// computable.
type Result struct {
	Values []Value  `json:"values,omitempty"`
	Series []Series `json:"series,omitempty"`
}

// Computable reports whether the result carries any value.
func (r Result) Computable() bool {
	return len(r.Values) > 0
}

// Get returns the amount stored under key.
func (r Result) Get(key string) (float64, bool) {
	v, ok := r.Value(key)
	return v.Amount, ok
}

// Value returns the value stored under key.
func (r Result) Value(key string) (Value, bool) {
	for _, v := range r.Values {
		if v.Key == key {
			return v, true
		}
	}
	return Value{}, false
}

// SeriesByName returns the named series.
func (r Result) SeriesByName(name string) (Series, bool) {
	for _, s := range r.Series {
		if s.Name == name {
			return s, true
		}
	}
	return Series{}, false
}

// Add appends a value. Non-finite amounts are dropped and Add reports false.
func (r *Result) Add(key string, amount float64, unit Unit) bool {
	if !mathutil.IsFinite(amount) {
		return false
	}
	r.Values = append(r.Values, Value{Key: key, Amount: amount, Unit: unit})
	return true
}

// AddSeries appends a chart series.
func (r *Result) AddSeries(s Series) {
	r.Series = append(r.Series, s)
}
