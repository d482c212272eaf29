package model

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// LooseNumber is a request field that browsers send either as a JSON number
// or as a string (form posts, hand-written clients).  It records whether the
// raw value was truthy (non-empty, non-zero, non-null) and its numeric
// value, NaN when the text is not a number.
type LooseNumber struct {
	Truthy bool
	Value  float64
}

// NewLooseNumber builds a LooseNumber from a numeric value.
func NewLooseNumber(v float64) LooseNumber {
	return LooseNumber{Truthy: v != 0 && !math.IsNaN(v), Value: v}
}

// ParseLooseNumber coerces s the way form values are read: surrounding
// whitespace is ignored, blank text counts as zero.
func ParseLooseNumber(s string) LooseNumber {
	n := LooseNumber{Truthy: s != ""}
	t := strings.TrimSpace(s)
	if t == "" {
		return n
	}
	f, err := strconv.ParseFloat(t, 64)
	if err != nil || math.IsInf(f, 0) {
		n.Value = math.NaN()
		return n
	}
	n.Value = f
	return n
}

// UnmarshalJSON accepts numbers, numeric strings, booleans and null.
// Objects and arrays are truthy but not numeric.
func (n *LooseNumber) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case len(b) == 0 || bytes.Equal(b, []byte("null")):
		*n = LooseNumber{}
	case bytes.Equal(b, []byte("true")):
		*n = LooseNumber{Truthy: true, Value: 1}
	case bytes.Equal(b, []byte("false")):
		*n = LooseNumber{}
	case b[0] == '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*n = ParseLooseNumber(s)
	case b[0] == '{' || b[0] == '[':
		*n = LooseNumber{Truthy: true, Value: math.NaN()}
	default:
		f, err := strconv.ParseFloat(string(b), 64)
		if err != nil {
			return err
		}
		*n = NewLooseNumber(f)
	}
	return nil
}

// UnmarshalParam lets echo bind form and query values into a LooseNumber.
func (n *LooseNumber) UnmarshalParam(param string) error {
	*n = ParseLooseNumber(param)
	return nil
}

// Numeric reports whether the value parsed as a finite number.
func (n LooseNumber) Numeric() bool { return !math.IsNaN(n.Value) && !math.IsInf(n.Value, 0) }

// Int returns the value as an int when it is numeric and integral.
func (n LooseNumber) Int() (int, bool) {
	if !n.Numeric() || n.Value != math.Trunc(n.Value) || math.Abs(n.Value) > math.MaxInt32 {
		return 0, false
	}
	return int(n.Value), true
}
