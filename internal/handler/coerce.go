package handler

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

var numberPattern = regexp.MustCompile(`-?\d+(?:\.\d+)?`)

// Coerce extracts a number from a data store result. It unwraps the first
// element of nested rows, parses strings (including printed tuples such as
// "[(2202,)]"), and returns 0 for anything it cannot read. It never fails.
func Coerce(v any) float64 {
	switch x := v.(type) {
	case nil:
		return 0
	case float64:
		return x
	case float32:
		return float64(x)
	case int:
		return float64(x)
	case int32:
		return float64(x)
	case int64:
		return float64(x)
	case uint64:
		return float64(x)
	case bool:
		if x {
			return 1
		}
		return 0
	case []byte:
		return coerceString(string(x))
	case string:
		return coerceString(x)
	case [][]any:
		if len(x) == 0 {
			return 0
		}
		return Coerce(x[0])
	case []any:
		if len(x) == 0 {
			return 0
		}
		return Coerce(x[0])
	case []float64:
		if len(x) == 0 {
			return 0
		}
		return x[0]
	case []int64:
		if len(x) == 0 {
			return 0
		}
		return float64(x[0])
	}
	return 0
}

func coerceString(s string) float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && !math.IsNaN(f) && !math.IsInf(f, 0) {
		return f
	}
	m := numberPattern.FindString(s)
	if m == "" {
		return 0
	}
	f, err := strconv.ParseFloat(m, 64)
	if err != nil {
		return 0
	}
	return f
}
