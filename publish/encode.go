package publish

import (
	"github.com/rustyeddy/cycles/cycles"
	"github.com/rustyeddy/cycles/engine"
	"github.com/rustyeddy/cycles/indicators"
	"github.com/rustyeddy/cycles/market"
	"github.com/rustyeddy/cycles/stats"
)

// OverlayPoints is how many samples of the Gaussian curve are sent.
const OverlayPoints = 64

// Payload is the JSON shape of a published result.
type Payload struct {
	Seq       uint64 `json:"seq"`
	Symbol    string `json:"symbol,omitempty"`
	Interval  string `json:"interval,omitempty"`
	Indicator string `json:"indicator"`

	Candles     []market.Candle         `json:"candles"`
	Momentum    []*float64              `json:"momentum"`
	Divergences []indicators.Divergence `json:"divergences"`
	Cycles      []cycles.Cycle          `json:"cycles"`
	RangeEnd    *engine.RangeEnd        `json:"range_end"`

	Stats   stats.Aggregate `json:"stats"`
	Index   Distribution    `json:"index_distribution"`
	Inverse Distribution    `json:"inverse_distribution"`

	Projection *stats.Projection `json:"projection"`
}

type Distribution struct {
	stats.Distribution
	Overlay []stats.Point `json:"overlay"`
}

// Encode builds the payload of r. Unavailable momentum values become null.
func Encode(r *engine.Result) Payload {
	p := Payload{
		Seq:         r.Seq,
		Indicator:   r.Indicator,
		Candles:     r.Candles,
		Momentum:    make([]*float64, len(r.Momentum)),
		Divergences: r.Divergences,
		Cycles:      r.Cycles,
		RangeEnd:    r.RangeEnd,
		Stats:       r.Stats,
		Index:       distribution(r.IndexDist),
		Inverse:     distribution(r.InverseDist),
		Projection:  r.Projection,
	}
	for i := range r.Momentum {
		if v, ok := r.Momentum.At(i); ok {
			p.Momentum[i] = &v
		}
	}
	return p
}

func distribution(d stats.Distribution) Distribution {
	out := Distribution{Distribution: d, Overlay: []stats.Point{}}
	if d.Gaussian == nil {
		return out
	}
	lo, hi := d.Histogram.Min, d.Histogram.Max
	if hi <= lo {
		lo, hi = d.Gaussian.Mean-3*d.Gaussian.StdDev, d.Gaussian.Mean+3*d.Gaussian.StdDev
	}
	out.Overlay = d.Gaussian.Curve(lo, hi, OverlayPoints)
	return out
}
