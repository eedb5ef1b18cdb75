package accountrow

import (
	"math"
	"strings"

	"github.com/spf13/cast"
)

// Float reads column as a number. Blank, boolean, non-numeric and infinite
// values are NaN.
func (r Row) Float(column string) float64 {
	return ToFloat(r.Get(column))
}

// Bool reads column as a flag; ok is false when the value is unknown.
func (r Row) Bool(column string) (value, ok bool) {
	return ToBool(r.Get(column))
}

// Text reads column as a trimmed, lower-cased label.
func (r Row) Text(column string) string {
	v := r.Get(column)
	if v == nil {
		return ""
	}
	if f, isFloat := v.(float64); isFloat && math.IsNaN(f) {
		return ""
	}
	return strings.ToLower(strings.TrimSpace(cast.ToString(v)))
}

// ToFloat coerces a cell to a finite number or NaN.
func ToFloat(v any) float64 {
	switch x := v.(type) {
	case nil, bool:
		return math.NaN()
	case string:
		if strings.TrimSpace(x) == "" {
			return math.NaN()
		}
		v = strings.TrimSpace(x)
	}
	f, err := cast.ToFloat64E(v)
	if err != nil || math.IsInf(f, 0) {
		return math.NaN()
	}
	return f
}

// ToBool coerces common truthy and falsy spellings.
func ToBool(v any) (value, ok bool) {
	switch x := v.(type) {
	case bool:
		return x, true
	case string:
		switch strings.ToLower(strings.TrimSpace(x)) {
		case "true", "t", "1", "yes", "y":
			return true, true
		case "false", "f", "0", "no", "n":
			return false, true
		}
	}
	return false, false
}
