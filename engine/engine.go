// Package engine runs the recompute pass that turns a candle sequence into
// cycles, statistics and a projection, and the pipeline that drives it from
// snapshot loads and streaming ticks.
package engine

import (
	"errors"
	"fmt"

	"github.com/rustyeddy/cycles/cycles"
	"github.com/rustyeddy/cycles/indicators"
	"github.com/rustyeddy/cycles/market"
	"github.com/rustyeddy/cycles/stats"
)

var ErrNilCollaborator = errors.New("engine needs an indicator adapter and a cycle source")

// RangeEnd marks the window in which the next cycle is expected to close.
type RangeEnd struct {
	StartIndex  int `json:"start_index"`
	MaxDuration int `json:"max_duration"`
}

// Result is everything one pass produces. A zero-length candle input gives
// a Result with every list empty and every optional part nil.
type Result struct {
	// Seq is set by the Pipeline; Recompute leaves it 0.
	Seq uint64

	Indicator string
	Params    Params

	Candles     []market.Candle
	Momentum    indicators.Series
	Divergences []indicators.Divergence

	// Cycles is the merged display list ordered by start index.
	Cycles []cycles.Cycle

	// Reference is the override-free inverted set behind the projection. It
	// is computed on every pass whatever the display toggles say.
	Reference []cycles.Cycle

	RangeEnd *RangeEnd

	// ManualDropped is the override that no longer fit the candles and was
	// left out of this pass, nil otherwise.
	ManualDropped *cycles.ManualOverride

	Stats       stats.Aggregate
	IndexDist   stats.Distribution
	InverseDist stats.Distribution

	Projection *stats.Projection
}

// Engine wires an indicator adapter and a cycle source together. It holds
// no state between passes.
type Engine struct {
	Indicators indicators.Adapter
	Cycles     cycles.Source
}

// New returns an Engine using the built-in collaborators.
func New() Engine {
	return Engine{
		Indicators: indicators.CycleSwingMomentum{},
		Cycles:     cycles.Detector{},
	}
}

// Recompute runs one full pass over candles. Identical inputs give
// identical results. A collaborator returning malformed cycles fails the
// pass with a *cycles.InvalidCycleDataError.
func (e Engine) Recompute(candles []market.Candle, p Params) (*Result, error) {
	if e.Indicators == nil || e.Cycles == nil {
		return nil, ErrNilCollaborator
	}
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("recompute: %w", err)
	}

	res := emptyResult(p)
	res.Indicator = e.Indicators.Name(p.Momentum)
	n := len(candles)
	if n == 0 {
		return res, nil
	}
	res.Candles = candles

	closes := market.Closes(candles)
	res.Momentum = e.Indicators.ComputeMomentum(p.Momentum, closes)
	if len(res.Momentum) != n {
		return nil, fmt.Errorf("recompute: %s returned %d momentum values for %d candles",
			res.Indicator, len(res.Momentum), n)
	}
	res.Divergences = e.Indicators.DetectDivergences(p.Momentum, res.Momentum,
		market.Highs(candles), market.Lows(candles))
	if res.Divergences == nil {
		res.Divergences = []indicators.Divergence{}
	}

	ref, err := e.detect(candles, p.query(res.Momentum, true, nil))
	if err != nil {
		return nil, fmt.Errorf("reference cycles: %w", err)
	}
	res.Reference = ref

	manual := p.Manual
	if manual != nil && manual.Validate(n) != nil {
		res.ManualDropped = manual
		manual = nil
	}

	var index, inverse []cycles.Cycle
	if p.ShowIndexCycles {
		if index, err = e.detect(candles, p.query(res.Momentum, true, manual)); err != nil {
			return nil, fmt.Errorf("index cycles: %w", err)
		}
	}
	if p.ShowInverseCycles {
		if inverse, err = e.detect(candles, p.query(res.Momentum, false, manual)); err != nil {
			return nil, fmt.Errorf("inverse cycles: %w", err)
		}
	}
	res.Cycles = cycles.Merge(index, inverse)
	if res.Cycles == nil {
		res.Cycles = []cycles.Cycle{}
	}

	res.RangeEnd = rangeEnd(res.Cycles, n-1, p.MaxDuration)

	res.Stats = stats.AggregateCycles(res.Cycles, candles)
	inv, norm := cycles.Partition(res.Cycles)
	res.IndexDist = stats.Distribute(cycles.Durations(inv))
	res.InverseDist = stats.Distribute(cycles.Durations(norm))

	res.Projection = stats.Project(res.Reference, res.Cycles, n)
	return res, nil
}

// detect calls the cycle source and checks what comes back.
func (e Engine) detect(candles []market.Candle, q cycles.Query) ([]cycles.Cycle, error) {
	set, err := e.Cycles.DetectCycles(candles, q)
	if err != nil {
		return nil, err
	}
	want := cycles.TypeFor(q.Invert)
	for i, c := range set {
		if c.Type != want {
			return nil, &cycles.InvalidCycleDataError{Index: i, Cycle: c,
				Reason: fmt.Sprintf("expected %s cycle", want)}
		}
	}
	if err := cycles.Validate(set, len(candles)); err != nil {
		return nil, err
	}
	if set == nil {
		set = []cycles.Cycle{}
	}
	return set, nil
}

func rangeEnd(merged []cycles.Cycle, current, maxDuration int) *RangeEnd {
	if len(merged) == 0 {
		return nil
	}
	last := merged[len(merged)-1]
	if current >= last.StartIndex+maxDuration {
		return nil
	}
	return &RangeEnd{StartIndex: last.StartIndex, MaxDuration: maxDuration}
}

func emptyResult(p Params) *Result {
	return &Result{
		Params:      p,
		Candles:     []market.Candle{},
		Momentum:    indicators.Series{},
		Divergences: []indicators.Divergence{},
		Cycles:      []cycles.Cycle{},
		Reference:   []cycles.Cycle{},
		IndexDist:   stats.Distribute(nil),
		InverseDist: stats.Distribute(nil),
	}
}
