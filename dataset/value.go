package dataset

import (
	"strconv"
	"strings"

	"github.com/YuminosukeSato/musicmap/pkg/errors"
)

// Value is the result of coercing one cell to a number: either a finite
// float (Valid) or a missing-value marker.
type Value struct {
	Float float64
	Valid bool
}

// Missing is the missing-value marker.
var Missing = Value{}

// Some wraps a parsed number.
func Some(f float64) Value {
	return Value{Float: f, Valid: true}
}

// ParseValue coerces a cell to a number. Surrounding whitespace is ignored.
// Empty cells, unparseable text, NaN and infinities are Missing.
func ParseValue(s string) Value {
	s = strings.TrimSpace(s)
	if s == "" {
		return Missing
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || !errors.IsFinite(f) {
		return Missing
	}
	return Some(f)
}
