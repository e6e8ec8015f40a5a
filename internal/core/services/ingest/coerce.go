package ingest

import (
	"math"
	"strconv"
	"strings"
)

// ToNumber converts an arbitrary cell value to a finite float64, returning 0
// when conversion fails. Total over any input type; never panics.
func ToNumber(value interface{}) float64 {
	var n float64

	switch v := value.(type) {
	case nil:
		return 0
	case float64:
		n = v
	case float32:
		n = float64(v)
	case int:
		n = float64(v)
	case int8:
		n = float64(v)
	case int16:
		n = float64(v)
	case int32:
		n = float64(v)
	case int64:
		n = float64(v)
	case uint:
		n = float64(v)
	case uint8:
		n = float64(v)
	case uint16:
		n = float64(v)
	case uint32:
		n = float64(v)
	case uint64:
		n = float64(v)
	case string:
		s := strings.TrimSpace(v)
		// Tolerate thousands separators common in exported sheets
		s = strings.ReplaceAll(s, ",", "")
		if s == "" {
			return 0
		}
		parsed, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0
		}
		n = parsed
	default:
		return 0
	}

	if math.IsNaN(n) || math.IsInf(n, 0) {
		return 0
	}
	return n
}
