package market

import "context"

// TickSource delivers streaming bars until ctx is done.
type TickSource interface {
	Run(ctx context.Context, symbol, interval string, out chan<- Tick) error
}

// Tick is a streaming update for the currently forming bar, or for the
// bar that just closed when Final is set.
type Tick struct {
	Symbol string
	Candle
	Final bool
}
