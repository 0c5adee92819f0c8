// Package journal keeps an audit trail of published results. It is write
// mostly: nothing here is read back to restore a pipeline.
package journal

import (
	"context"
	"time"
)

// Run describes one process lifetime of the live pipeline.
type Run struct {
	RunID    string
	Started  time.Time
	Symbol   string
	Interval string
	Params   []byte // engine params as JSON
}

// Snapshot is the journaled digest of one published result.
type Snapshot struct {
	ID       string
	RunID    string
	Time     time.Time // wall clock when recorded
	Seq      uint64
	Symbol   string
	Interval string

	Candles   int
	BarTime   int64 // open time of the last candle, unix ms
	LastClose float64

	IndexCount         int
	InverseCount       int
	IndexAvgDuration   *float64
	InverseAvgDuration *float64

	HasTarget   bool
	AvgDropPct  float64
	TargetPrice float64
}

type Journal interface {
	StartRun(ctx context.Context, r Run) error
	Record(ctx context.Context, s Snapshot) error
	Close() error
}
