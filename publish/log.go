package publish

import (
	"context"
	"log/slog"

	"github.com/rustyeddy/cycles/engine"
)

// Log writes one structured summary line per result.
type Log struct {
	Logger *slog.Logger
	Level  slog.Level
}

func (l Log) Publish(ctx context.Context, r *engine.Result) error {
	logger := l.Logger
	if logger == nil {
		logger = slog.Default()
	}

	attrs := []slog.Attr{
		slog.Uint64("seq", r.Seq),
		slog.Int("candles", len(r.Candles)),
		slog.Int("cycles", len(r.Cycles)),
		slog.Int("index", r.Stats.Index.Count),
		slog.Int("inverse", r.Stats.Inverse.Count),
		slog.Int("divergences", len(r.Divergences)),
	}
	if v := r.Stats.Index.AvgDuration; v.Valid {
		attrs = append(attrs, slog.Float64("index_avg_duration", v.Value))
	}
	if v := r.Stats.Inverse.AvgDuration; v.Valid {
		attrs = append(attrs, slog.Float64("inverse_avg_duration", v.Value))
	}
	if r.RangeEnd != nil {
		attrs = append(attrs, slog.Int("range_end", r.RangeEnd.StartIndex+r.RangeEnd.MaxDuration))
	}
	if p := r.Projection; p != nil {
		attrs = append(attrs, slog.Float64("target", p.Price), slog.Float64("drop_pct", p.DropPct))
	}

	logger.LogAttrs(ctx, l.Level, "result published", attrs...)
	return nil
}
