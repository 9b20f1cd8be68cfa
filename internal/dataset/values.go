package dataset

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// IsMissing reports whether a cell counts as null.
func IsMissing(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case float64:
		return math.IsNaN(t)
	}
	return false
}

// AsFloat returns the numeric value of an already-typed cell. Strings are not
// parsed; use ParseNumber for coercion.
func AsFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		if math.IsNaN(t) || math.IsInf(t, 0) {
			return 0, false
		}
		return t, true
	case float32:
		return float64(t), true
	case int64:
		return float64(t), true
	case int:
		return float64(t), true
	case int32:
		return float64(t), true
	}
	return 0, false
}

// AsInt returns an integral numeric cell as int64.
func AsInt(v any) (int64, bool) {
	switch t := v.(type) {
	case int64:
		return t, true
	case int:
		return int64(t), true
	case int32:
		return int64(t), true
	}
	f, ok := AsFloat(v)
	if !ok || f != math.Trunc(f) {
		return 0, false
	}
	return int64(f), true
}

// AsString returns the text of a string cell.
func AsString(v any) (string, bool) {
	s, ok := v.(string)
	return s, ok
}

// ParseNumber coerces a cell to a number. Numeric strings are accepted with
// surrounding whitespace; anything else fails.
func ParseNumber(v any) (float64, bool) {
	if f, ok := AsFloat(v); ok {
		return f, true
	}
	s, ok := v.(string)
	if !ok {
		return 0, false
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// Infer converts raw text from a flat file into the narrowest typed value:
// empty -> nil, integer -> int64, decimal -> float64, otherwise the string as-is.
// Padded numbers stay strings so that cleaning can see and repair them.
func Infer(s string) any {
	if s == "" {
		return nil
	}
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && !math.IsNaN(f) && !math.IsInf(f, 0) {
		return f
	}
	return s
}

// Canonical encodes a cell so that equal values compare equal regardless of
// their numeric representation (int64(1) == float64(1)).
func Canonical(v any) string {
	if IsMissing(v) {
		return "\x00"
	}
	if f, ok := AsFloat(v); ok {
		return "n:" + strconv.FormatFloat(f, 'g', -1, 64)
	}
	switch t := v.(type) {
	case string:
		return "s:" + t
	case bool:
		if t {
			return "b:1"
		}
		return "b:0"
	}
	return "x:" + fmt.Sprint(v)
}

// Format renders a cell as flat-file text.
func Format(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case bool:
		if t {
			return "True"
		}
		return "False"
	case int64:
		return strconv.FormatInt(t, 10)
	case int:
		return strconv.Itoa(t)
	case float64:
		if math.IsNaN(t) {
			return ""
		}
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return fmt.Sprint(t)
	}
}

// Round rounds half away from zero to the given number of decimals.
func Round(x float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(x*p) / p
}
