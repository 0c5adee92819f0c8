package engine

import (
	"fmt"

	"github.com/rustyeddy/cycles/cycles"
	"github.com/rustyeddy/cycles/indicators"
)

// Params is the full configuration of one recompute pass. It is passed by
// value on every call; the engine reads nothing else.
type Params struct {
	Momentum indicators.MomentumParams

	MinDuration int
	MaxDuration int

	PriorityMinDuration bool
	UseMomentumRule     bool

	ShowIndexCycles   bool
	ShowInverseCycles bool

	// Manual is nil when no override is active.
	Manual *cycles.ManualOverride
}

func DefaultParams() Params {
	return Params{
		Momentum:          indicators.DefaultMomentumParams(),
		MinDuration:       24,
		MaxDuration:       44,
		ShowIndexCycles:   true,
		ShowInverseCycles: true,
	}
}

func (p Params) Validate() error {
	if err := p.Momentum.Validate(); err != nil {
		return err
	}
	if p.MinDuration <= 0 {
		return fmt.Errorf("min_duration must be positive, got %d", p.MinDuration)
	}
	if p.MaxDuration < p.MinDuration {
		return fmt.Errorf("max_duration %d below min_duration %d", p.MaxDuration, p.MinDuration)
	}
	return nil
}

// WithManual returns a copy of p holding its own copy of o.
func (p Params) WithManual(o *cycles.ManualOverride) Params {
	if o == nil {
		p.Manual = nil
		return p
	}
	cp := *o
	p.Manual = &cp
	return p
}

func (p Params) query(momentum indicators.Series, invert bool, manual *cycles.ManualOverride) cycles.Query {
	return cycles.Query{
		UseMomentumRule:     p.UseMomentumRule,
		Momentum:            momentum,
		Invert:              invert,
		MinDuration:         p.MinDuration,
		MaxDuration:         p.MaxDuration,
		PriorityMinDuration: p.PriorityMinDuration,
		Manual:              manual,
	}
}
