package indicators

import "math"

// PivotHighs returns the indexes i where values[i] is not exceeded by any
// value in [i-left, i+right]. Windows touching an unavailable value are
// skipped.
func PivotHighs(values []float64, left, right int) []int {
	return pivots(values, left, right, func(other, v float64) bool { return other > v })
}

// PivotLows is the mirror of PivotHighs.
func PivotLows(values []float64, left, right int) []int {
	return pivots(values, left, right, func(other, v float64) bool { return other < v })
}

func pivots(values []float64, left, right int, beats func(other, v float64) bool) []int {
	if left < 0 || right < 0 || len(values) < left+right+1 {
		return nil
	}

	var out []int
	for i := left; i < len(values)-right; i++ {
		v := values[i]
		if math.IsNaN(v) {
			continue
		}
		ok := true
		for j := i - left; j <= i+right; j++ {
			if math.IsNaN(values[j]) || beats(values[j], v) {
				ok = false
				break
			}
		}
		if ok {
			out = append(out, i)
		}
	}
	return out
}
