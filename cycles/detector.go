package cycles

import (
	"fmt"

	"github.com/rustyeddy/cycles/indicators"
	"github.com/rustyeddy/cycles/market"
)

// Query carries the inputs of one detection call.
type Query struct {
	UseMomentumRule     bool
	Momentum            indicators.Series
	Invert              bool
	MinDuration         int
	MaxDuration         int
	PriorityMinDuration bool
	Manual              *ManualOverride
}

func (q Query) validate() error {
	if q.MinDuration <= 0 {
		return fmt.Errorf("min duration must be positive, got %d", q.MinDuration)
	}
	if q.MaxDuration < q.MinDuration {
		return fmt.Errorf("max duration %d below min duration %d", q.MaxDuration, q.MinDuration)
	}
	return nil
}

// Source produces non-overlapping cycles of one polarity ordered by start
// index. When q.Manual is set and compatible with the polarity, the result
// holds exactly that cycle and nothing crossing it.
type Source interface {
	DetectCycles(candles []market.Candle, q Query) ([]Cycle, error)
}

// Detector is the reference Source. It chains swing anchors (lows for
// inverted cycles, highs for normal ones): from each anchor the next one is
// searched in [start+min, start+max].
type Detector struct{}

func (Detector) DetectCycles(candles []market.Candle, q Query) ([]Cycle, error) {
	if err := q.validate(); err != nil {
		return nil, err
	}
	n := len(candles)
	if n < 2 {
		return nil, nil
	}

	s := scan{candles: candles, q: q, typ: TypeFor(q.Invert)}

	if q.Manual == nil {
		return s.chain(0, n-1, false)
	}

	o := *q.Manual
	if err := o.Validate(n); err != nil {
		return nil, err
	}
	if Compatible(candles, o) != s.typ {
		return s.chain(0, n-1, false)
	}

	manual, err := Build(candles, o.StartIndex, o.EndIndex, s.typ)
	if err != nil {
		return nil, err
	}
	before, err := s.chain(0, o.StartIndex, false)
	if err != nil {
		return nil, err
	}
	after, err := s.chain(o.EndIndex, n-1, true)
	if err != nil {
		return nil, err
	}

	out := append(before, manual)
	return append(out, after...), nil
}

// Compatible returns the polarity a manual span belongs to: inverted when
// the rise from the starting low is at least the fall from the starting
// high, normal otherwise.
func Compatible(candles []market.Candle, o ManualOverride) Type {
	s := candles[o.StartIndex]
	hi, lo := s.High, s.Low
	for i := o.StartIndex; i <= o.EndIndex; i++ {
		if candles[i].High > hi {
			hi = candles[i].High
		}
		if candles[i].Low < lo {
			lo = candles[i].Low
		}
	}
	if hi-s.Low >= s.High-lo {
		return Inverted
	}
	return Normal
}

type scan struct {
	candles []market.Candle
	q       Query
	typ     Type
}

func (s scan) price(i int) float64 {
	if s.typ == Inverted {
		return s.candles[i].Low
	}
	return s.candles[i].High
}

// better reports whether bar a is a more extreme anchor than bar b.
func (s scan) better(a, b int) bool {
	if s.typ == Inverted {
		return s.price(a) < s.price(b)
	}
	return s.price(a) > s.price(b)
}

func (s scan) momentumOK(i int) bool {
	if !s.q.UseMomentumRule {
		return true
	}
	v, ok := s.q.Momentum.At(i)
	if !ok {
		return false
	}
	if s.typ == Inverted {
		return v <= 0
	}
	return v >= 0
}

// turning reports whether i is a local extreme against both neighbours.
func (s scan) turning(i int) bool {
	if i <= 0 || i+1 >= len(s.candles) {
		return false
	}
	return !s.better(i-1, i) && !s.better(i+1, i)
}

// extreme returns the most extreme bar in [lo, hi], first on ties.
func (s scan) extreme(lo, hi int, accept func(int) bool) (int, bool) {
	best := -1
	for i := lo; i <= hi; i++ {
		if accept != nil && !accept(i) {
			continue
		}
		if best < 0 || s.better(i, best) {
			best = i
		}
	}
	return best, best >= 0
}

// chain builds consecutive cycles whose bars lie in [from, to]. When
// anchored, the first cycle starts exactly at from.
func (s scan) chain(from, to int, anchored bool) ([]Cycle, error) {
	minD, maxD := s.q.MinDuration, s.q.MaxDuration
	if to-from < minD {
		return nil, nil
	}

	start := from
	if !anchored {
		hi := from + maxD
		if hi > to-minD {
			hi = to - minD
		}
		start, _ = s.extreme(from, hi, nil)
	}

	var out []Cycle
	for {
		lo, hi := start+minD, start+maxD
		if hi > to {
			hi = to
		}
		if lo > hi {
			break
		}

		end, ok := s.nextAnchor(lo, hi)
		if !ok {
			// no acceptable end from here; move the start to the next
			// extreme inside the window and retry
			next, found := s.extreme(start+1, hi, nil)
			if !found {
				break
			}
			start = next
			continue
		}

		c, err := Build(s.candles, start, end, s.typ)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
		start = end
	}
	return out, nil
}

func (s scan) nextAnchor(lo, hi int) (int, bool) {
	if s.q.PriorityMinDuration {
		for i := lo; i <= hi; i++ {
			if s.turning(i) && s.momentumOK(i) {
				return i, true
			}
		}
	}
	return s.extreme(lo, hi, s.momentumOK)
}
