package journal

import (
	"context"
	"time"

	"github.com/rustyeddy/cycles/engine"
)

// Recorder is an engine.Sink that journals one snapshot per bar: the first
// result it sees, then the first result after each new bar opens.
type Recorder struct {
	J        Journal
	RunID    string
	Symbol   string
	Interval string

	// Now defaults to time.Now.
	Now func() time.Time

	lastBar int64
	seen    bool
}

var _ engine.Sink = (*Recorder)(nil)

func (r *Recorder) Publish(ctx context.Context, res *engine.Result) error {
	if len(res.Candles) == 0 {
		return nil
	}
	bar := res.Candles[len(res.Candles)-1].Time
	if r.seen && bar == r.lastBar {
		return nil
	}
	if err := r.J.Record(ctx, r.snapshot(res)); err != nil {
		return err
	}
	r.seen = true
	r.lastBar = bar
	return nil
}

func (r *Recorder) snapshot(res *engine.Result) Snapshot {
	now := time.Now
	if r.Now != nil {
		now = r.Now
	}
	last := res.Candles[len(res.Candles)-1]
	s := Snapshot{
		RunID:        r.RunID,
		Time:         now(),
		Seq:          res.Seq,
		Symbol:       r.Symbol,
		Interval:     r.Interval,
		Candles:      len(res.Candles),
		BarTime:      last.Time,
		LastClose:    last.Close,
		IndexCount:   res.Stats.Index.Count,
		InverseCount: res.Stats.Inverse.Count,
	}
	if v := res.Stats.Index.AvgDuration; v.Valid {
		s.IndexAvgDuration = &v.Value
	}
	if v := res.Stats.Inverse.AvgDuration; v.Valid {
		s.InverseAvgDuration = &v.Value
	}
	if p := res.Projection; p != nil {
		s.HasTarget = true
		s.AvgDropPct = p.DropPct
		s.TargetPrice = p.Price
	}
	return s
}
