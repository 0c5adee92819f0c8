package stats

import "github.com/rustyeddy/cycles/cycles"

// Projection is the forward target price.
type Projection struct {
	Price   float64 `json:"price"`
	DropPct float64 `json:"drop_pct"`
}

// DropPct is the retracement of one cycle: from the high to the close for
// inverted cycles, from the start to the low for normal ones. It is
// undefined when the base price is zero.
func DropPct(c cycles.Cycle) (float64, bool) {
	if c.Type == cycles.Inverted {
		if c.MaxPrice == 0 {
			return 0, false
		}
		return (c.MaxPrice - c.EndPrice) / c.MaxPrice * 100, true
	}
	if c.StartPrice == 0 {
		return 0, false
	}
	return (c.StartPrice - c.MinPrice) / c.StartPrice * 100, true
}

// AverageDrop is the mean DropPct over the cycles of merged where it is
// defined, false when there are none.
func AverageDrop(merged []cycles.Cycle) (float64, bool) {
	drops := make([]float64, 0, len(merged))
	for _, c := range merged {
		if d, ok := DropPct(c); ok {
			drops = append(drops, d)
		}
	}
	return Mean(drops)
}

// Project applies the average drop of the displayed cycles to the close
// of the last reference cycle. It returns nil when there is nothing to
// average, no reference cycle, or the last reference cycle ends on the
// last candle and is still open.
func Project(reference, merged []cycles.Cycle, candleCount int) *Projection {
	avgDrop, ok := AverageDrop(merged)
	if !ok || len(reference) == 0 {
		return nil
	}
	last := reference[len(reference)-1]
	if last.EndIndex >= candleCount-1 {
		return nil
	}
	return &Projection{
		Price:   last.EndPrice * (1 - avgDrop/100),
		DropPct: avgDrop,
	}
}
