// Package indicators provides the momentum oscillator and divergence
// detector that feed cycle detection.
package indicators

import (
	"fmt"
	"math"
)

// Unavailable marks series positions without enough lookback.
var Unavailable = math.NaN()

// Series is an indicator series, index aligned with the candles it was
// computed from. Positions without enough lookback hold Unavailable;
// use At or Available instead of reading raw values.
type Series []float64

// At returns the value at i and whether it is available.
func (s Series) At(i int) (float64, bool) {
	if i < 0 || i >= len(s) || math.IsNaN(s[i]) {
		return 0, false
	}
	return s[i], true
}

func (s Series) Available(i int) bool {
	_, ok := s.At(i)
	return ok
}

// MomentumParams configures the oscillator and the divergence search.
// Callers pass it on every computation; adapters keep no state.
type MomentumParams struct {
	CycleLength int `json:"cycle_length" yaml:"cycle_length"`
	LeftBars    int `json:"left_bars" yaml:"left_bars"`
	RightBars   int `json:"right_bars" yaml:"right_bars"`
	RangeLower  int `json:"range_lower" yaml:"range_lower"`
	RangeUpper  int `json:"range_upper" yaml:"range_upper"`
}

// DefaultMomentumParams returns cycs=50, lbL=5, lbR=5, range 5..60.
func DefaultMomentumParams() MomentumParams {
	return MomentumParams{
		CycleLength: 50,
		LeftBars:    5,
		RightBars:   5,
		RangeLower:  5,
		RangeUpper:  60,
	}
}

func (p MomentumParams) Validate() error {
	if p.CycleLength <= 0 {
		return fmt.Errorf("momentum cycle_length must be positive, got %d", p.CycleLength)
	}
	if p.LeftBars <= 0 || p.RightBars <= 0 {
		return fmt.Errorf("momentum left_bars/right_bars must be positive, got %d/%d", p.LeftBars, p.RightBars)
	}
	if p.RangeLower <= 0 || p.RangeUpper <= 0 {
		return fmt.Errorf("momentum range_lower/range_upper must be positive, got %d/%d", p.RangeLower, p.RangeUpper)
	}
	if p.RangeLower > p.RangeUpper {
		return fmt.Errorf("momentum range_lower %d exceeds range_upper %d", p.RangeLower, p.RangeUpper)
	}
	return nil
}

// DivergenceKind is bullish or bearish.
type DivergenceKind string

const (
	Bullish DivergenceKind = "bullish"
	Bearish DivergenceKind = "bearish"
)

// Divergence is an oscillator/price disagreement confirmed at Index.
type Divergence struct {
	Index     int            `json:"index"`
	Kind      DivergenceKind `json:"kind"`
	Magnitude float64        `json:"magnitude"`
}

// Adapter computes momentum and divergences. Implementations must be pure
// functions of their arguments.
type Adapter interface {
	// Name returns a stable identifier like "CSM(50)".
	Name(p MomentumParams) string

	// ComputeMomentum returns a series of len(closes).
	ComputeMomentum(p MomentumParams, closes []float64) Series

	// DetectDivergences returns events ordered by index ascending.
	DetectDivergences(p MomentumParams, momentum Series, highs, lows []float64) []Divergence
}
