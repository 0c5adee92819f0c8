package indicators

import (
	"fmt"
	"sort"
)

// CycleSwingMomentum is the reference Adapter. Momentum is the spread
// between a half-cycle and a full-cycle EMA of close, in percent of the
// full-cycle EMA.
type CycleSwingMomentum struct{}

func (CycleSwingMomentum) Name(p MomentumParams) string {
	return fmt.Sprintf("CSM(%d)", p.CycleLength)
}

func (CycleSwingMomentum) ComputeMomentum(p MomentumParams, closes []float64) Series {
	out := unavailable(len(closes))
	if p.CycleLength <= 0 {
		return out
	}

	fastLen := p.CycleLength / 2
	if fastLen < 1 {
		fastLen = 1
	}
	fast, _ := EMA(closes, fastLen)
	slow, _ := EMA(closes, p.CycleLength)

	for i := range closes {
		f, okF := fast.At(i)
		s, okS := slow.At(i)
		if !okF || !okS || s == 0 {
			continue
		}
		out[i] = (f - s) / s * 100
	}
	return out
}

// DetectDivergences pairs consecutive oscillator pivots that are between
// RangeLower and RangeUpper bars apart. A higher oscillator low against a
// lower price low is bullish; a lower oscillator high against a higher
// price high is bearish.
func (CycleSwingMomentum) DetectDivergences(p MomentumParams, momentum Series, highs, lows []float64) []Divergence {
	n := len(momentum)
	if len(highs) < n || len(lows) < n {
		return nil
	}

	var out []Divergence

	pl := PivotLows(momentum, p.LeftBars, p.RightBars)
	for k := 1; k < len(pl); k++ {
		prev, cur := pl[k-1], pl[k]
		if !inRange(cur-prev, p) {
			continue
		}
		if momentum[cur] > momentum[prev] && lows[cur] < lows[prev] {
			out = append(out, Divergence{Index: cur, Kind: Bullish, Magnitude: momentum[cur] - momentum[prev]})
		}
	}

	ph := PivotHighs(momentum, p.LeftBars, p.RightBars)
	for k := 1; k < len(ph); k++ {
		prev, cur := ph[k-1], ph[k]
		if !inRange(cur-prev, p) {
			continue
		}
		if momentum[cur] < momentum[prev] && highs[cur] > highs[prev] {
			out = append(out, Divergence{Index: cur, Kind: Bearish, Magnitude: momentum[prev] - momentum[cur]})
		}
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Index < out[j].Index })
	return out
}

func inRange(bars int, p MomentumParams) bool {
	return bars >= p.RangeLower && bars <= p.RangeUpper
}
