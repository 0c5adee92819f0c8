// Package cycles defines swing cycle records and the Source contract that
// produces them.
package cycles

import (
	"errors"
	"fmt"
	"sort"

	"github.com/rustyeddy/cycles/market"
)

// Type is the polarity of a cycle.
type Type string

const (
	// Inverted cycles run low -> high -> low.
	Inverted Type = "inverted"
	// Normal cycles run high -> low -> high.
	Normal Type = "normal"
)

// TypeFor maps the invert flag of a detection query to a polarity.
func TypeFor(invert bool) Type {
	if invert {
		return Inverted
	}
	return Normal
}

// Cycle is a span between two swing extremes of the same kind.
type Cycle struct {
	StartIndex int     `json:"start_index"`
	EndIndex   int     `json:"end_index"`
	Duration   int     `json:"duration"`
	Type       Type    `json:"type"`
	StartPrice float64 `json:"start_price"`
	EndPrice   float64 `json:"end_price"`
	MaxPrice   float64 `json:"max_price"`
	MinPrice   float64 `json:"min_price"`
}

// ManualOverride is a user chosen cycle span.
type ManualOverride struct {
	StartIndex int `json:"start_index" yaml:"start_index"`
	EndIndex   int `json:"end_index" yaml:"end_index"`
}

var ErrInvalidOverride = errors.New("invalid manual override")

// Validate checks the override against a sequence of n candles.
func (o ManualOverride) Validate(n int) error {
	if o.StartIndex < 0 || o.EndIndex >= n || o.StartIndex >= o.EndIndex {
		return fmt.Errorf("%w: [%d,%d] with %d candles", ErrInvalidOverride, o.StartIndex, o.EndIndex, n)
	}
	return nil
}

// InvalidCycleDataError reports a cycle that breaks the Source contract.
type InvalidCycleDataError struct {
	Index  int
	Cycle  Cycle
	Reason string
}

func (e *InvalidCycleDataError) Error() string {
	return fmt.Sprintf("invalid cycle %d [%d,%d] %s: %s",
		e.Index, e.Cycle.StartIndex, e.Cycle.EndIndex, e.Cycle.Type, e.Reason)
}

// Build derives the prices of the span [start, end] from candles. Inverted
// cycles are anchored on lows, normal cycles on highs.
func Build(candles []market.Candle, start, end int, typ Type) (Cycle, error) {
	if start < 0 || end >= len(candles) || start >= end {
		return Cycle{}, fmt.Errorf("build cycle [%d,%d] over %d candles: bad span", start, end, len(candles))
	}

	c := Cycle{
		StartIndex: start,
		EndIndex:   end,
		Duration:   end - start,
		Type:       typ,
		MaxPrice:   candles[start].High,
		MinPrice:   candles[start].Low,
	}
	for i := start + 1; i <= end; i++ {
		if candles[i].High > c.MaxPrice {
			c.MaxPrice = candles[i].High
		}
		if candles[i].Low < c.MinPrice {
			c.MinPrice = candles[i].Low
		}
	}

	switch typ {
	case Inverted:
		c.StartPrice, c.EndPrice = candles[start].Low, candles[end].Low
	case Normal:
		c.StartPrice, c.EndPrice = candles[start].High, candles[end].High
	default:
		return Cycle{}, fmt.Errorf("build cycle: unknown type %q", typ)
	}
	return c, nil
}

// Validate checks a cycle list produced for a sequence of n candles. Cycles
// of the same polarity may share an anchor bar but must not overlap.
func Validate(list []Cycle, n int) error {
	last := map[Type]int{}
	order := make([]int, len(list))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return list[order[a]].StartIndex < list[order[b]].StartIndex
	})

	for _, i := range order {
		c := list[i]
		bad := func(reason string) error {
			return &InvalidCycleDataError{Index: i, Cycle: c, Reason: reason}
		}
		switch {
		case c.Type != Inverted && c.Type != Normal:
			return bad("unknown type")
		case c.EndIndex <= c.StartIndex:
			return bad("end index not after start index")
		case c.StartIndex < 0 || c.EndIndex >= n:
			return bad(fmt.Sprintf("index outside %d candles", n))
		case c.Duration != c.EndIndex-c.StartIndex:
			return bad(fmt.Sprintf("duration %d does not match span", c.Duration))
		}
		if end, ok := last[c.Type]; ok && c.StartIndex < end {
			return bad(fmt.Sprintf("overlaps previous %s cycle ending at %d", c.Type, end))
		}
		last[c.Type] = c.EndIndex
	}
	return nil
}

// Merge concatenates cycle sets and orders them by start index, keeping
// input order on ties.
func Merge(sets ...[]Cycle) []Cycle {
	var out []Cycle
	for _, s := range sets {
		out = append(out, s...)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].StartIndex < out[j].StartIndex })
	return out
}

// Partition splits cycles into inverted (index) and normal (inverse) sets,
// keeping their relative order.
func Partition(list []Cycle) (inverted, normal []Cycle) {
	for _, c := range list {
		if c.Type == Inverted {
			inverted = append(inverted, c)
		} else {
			normal = append(normal, c)
		}
	}
	return inverted, normal
}

// Durations extracts the duration of each cycle as float64.
func Durations(list []Cycle) []float64 {
	out := make([]float64, len(list))
	for i, c := range list {
		out[i] = float64(c.Duration)
	}
	return out
}
