package binance

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/rustyeddy/cycles/market"
)

// Stream reads kline events from the websocket API and reconnects with
// exponential backoff.
type Stream struct {
	// URL is the websocket base, e.g. wss://stream.binance.com:9443/ws.
	// The /<symbol>@kline_<interval> path is appended.
	URL string

	ReconnectDelay    time.Duration // default 2s
	MaxReconnectDelay time.Duration // default 30s

	// OnReconnect is called before every reconnection wait.
	OnReconnect func(err error)

	Log *slog.Logger
}

var _ market.TickSource = (*Stream)(nil)

func (s *Stream) endpoint(symbol, interval string) string {
	base := s.URL
	if base == "" {
		base = DefaultStreamURL
	}
	return fmt.Sprintf("%s/%s@kline_%s", strings.TrimRight(base, "/"), strings.ToLower(symbol), interval)
}

// Run streams ticks into out until ctx is done. Connection failures are
// retried; it only returns ctx.Err().
func (s *Stream) Run(ctx context.Context, symbol, interval string, out chan<- market.Tick) error {
	log := s.Log
	if log == nil {
		log = slog.Default()
	}
	log = log.With("component", "binance-stream", "symbol", symbol, "interval", interval)

	delay := s.ReconnectDelay
	if delay <= 0 {
		delay = 2 * time.Second
	}
	maxDelay := s.MaxReconnectDelay
	if maxDelay <= 0 {
		maxDelay = 30 * time.Second
	}

	url := s.endpoint(symbol, interval)
	for {
		received, err := s.runOnce(ctx, url, log, out)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if received {
			delay = s.ReconnectDelay
			if delay <= 0 {
				delay = 2 * time.Second
			}
		}

		log.Warn("stream disconnected", "err", err, "retry_in", delay)
		if s.OnReconnect != nil {
			s.OnReconnect(err)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}

		delay *= 2
		if delay > maxDelay {
			delay = maxDelay
		}
	}
}

// runOnce reads one connection until it fails. received reports whether
// at least one tick was delivered.
func (s *Stream) runOnce(ctx context.Context, url string, log *slog.Logger, out chan<- market.Tick) (received bool, err error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return false, err
	}
	defer conn.Close()
	log.Info("stream connected", "url", url)

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, "shutdown"),
				time.Now().Add(time.Second))
			conn.Close()
		case <-done:
		}
	}()

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return received, ctx.Err()
			}
			return received, err
		}

		tick, ok, err := ParseKline(raw)
		if err != nil {
			log.Warn("bad kline message", "err", err)
			continue
		}
		if !ok {
			continue
		}

		select {
		case out <- tick:
			received = true
		case <-ctx.Done():
			return received, ctx.Err()
		}
	}
}
