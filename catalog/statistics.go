package catalog

// ColumnStatistics represents per-expression statistics used by the query
// optimizer to make cost-based decisions. Statistics are keyed by the
// normalized expression they describe, so stats for lower(last_name) are
// distinct from stats for last_name.
type ColumnStatistics struct {
	Expr            string        `json:"expr"`                        // Normalized expression key
	NDistinct       int64         `json:"n_distinct"`                  // Number of distinct values
	NullFrac        float64       `json:"null_frac"`                   // Fraction of null values
	AvgWidth        int           `json:"avg_width,omitempty"`         // Average width in bytes
	Min             interface{}   `json:"min,omitempty"`               // Smallest observed value
	Max             interface{}   `json:"max,omitempty"`               // Largest observed value
	MostCommonVals  []interface{} `json:"most_common_vals,omitempty"`  // Most common values
	MostCommonFreqs []float64     `json:"most_common_freqs,omitempty"` // Frequencies of most common values
}

// MCVFreq returns the recorded frequency for the value, if it is among the
// most common values.
func (s *ColumnStatistics) MCVFreq(value interface{}) (float64, bool) {
	for i, v := range s.MostCommonVals {
		if i >= len(s.MostCommonFreqs) {
			break
		}
		if equalValues(v, value) {
			return s.MostCommonFreqs[i], true
		}
	}
	return 0, false
}

// equalValues compares statistic values loosely: catalog documents come
// from JSON, where all numbers decode as float64, while bound queries may
// carry native ints.
func equalValues(a, b interface{}) bool {
	if a == b {
		return true
	}
	af, aok := toFloat(a)
	bf, bok := toFloat(b)
	return aok && bok && af == bf
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
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
	default:
		return 0, false
	}
}
