package planner

import (
	"strconv"
	"time"
)

// timeFormats are the literal formats accepted for timestamp values in
// predicates and statistics.
var timeFormats = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// toScalar maps a predicate or statistics value onto a comparable scalar
// for range interpolation. Numbers map to themselves, timestamps to Unix
// seconds, and strings to a base-256 fraction of their leading bytes (the
// same trick Postgres uses in convert_to_scalar). Returns false for
// values with no meaningful ordering.
func toScalar(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case nil:
		return 0, false
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case time.Time:
		return float64(n.Unix()), true
	case string:
		for _, layout := range timeFormats {
			if t, err := time.Parse(layout, n); err == nil {
				return float64(t.Unix()), true
			}
		}
		if f, err := strconv.ParseFloat(n, 64); err == nil {
			return f, true
		}
		return stringToScalar(n), true
	case bool:
		if n {
			return 1, true
		}
		return 0, true
	default:
		return 0, false
	}
}

// stringToScalar maps a string to [0,1) by treating its leading bytes as
// base-256 digits. Only relative order matters, so eight bytes are
// plenty.
func stringToScalar(s string) float64 {
	var val float64
	denom := 1.0
	for i := 0; i < len(s) && i < 8; i++ {
		denom *= 256
		val += float64(s[i]) / denom
	}
	return val
}
