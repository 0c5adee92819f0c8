// Package stats turns cycle lists into summaries, distributions and a
// forward price projection. Every function is pure.
package stats

import (
	"encoding/json"
	"math"
)

// Optional is a statistic that may be absent. Absent values marshal to
// JSON null.
type Optional struct {
	Value float64
	Valid bool
}

func Some(v float64) Optional { return Optional{Value: v, Valid: true} }

func None() Optional { return Optional{} }

// Or returns the value, or def when absent.
func (o Optional) Or(def float64) float64 {
	if !o.Valid {
		return def
	}
	return o.Value
}

func (o Optional) MarshalJSON() ([]byte, error) {
	if !o.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(o.Value)
}

func (o *Optional) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*o = Optional{}
		return nil
	}
	var v float64
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	*o = Some(v)
	return nil
}

// Mean returns the arithmetic mean, false for an empty input.
func Mean(values []float64) (float64, bool) {
	if len(values) == 0 {
		return 0, false
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values)), true
}

// PopStdDev returns the population standard deviation (divides by n).
func PopStdDev(values []float64) (float64, bool) {
	mean, ok := Mean(values)
	if !ok {
		return 0, false
	}
	variance := 0.0
	for _, v := range values {
		d := v - mean
		variance += d * d
	}
	return math.Sqrt(variance / float64(len(values))), true
}
