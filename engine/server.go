package engine

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Health is the /healthz body.
type Health struct {
	Loaded  bool   `json:"loaded"`
	Candles int    `json:"candles"`
	Seq     uint64 `json:"seq"`
	LastBar int64  `json:"last_bar,omitempty"`
}

// Health reports the state of the store and the latest published pass.
func (p *Pipeline) Health() Health {
	h := Health{Loaded: p.store.Loaded(), Candles: p.store.Len()}
	if r := p.Latest(); r != nil {
		h.Seq = r.Seq
	}
	if c, ok := p.store.Last(); ok {
		h.LastBar = c.Time
	}
	return h
}

// NewHandler serves /metrics from g and /healthz from p. The health check
// answers 503 until the first snapshot is loaded.
func NewHandler(p *Pipeline, g prometheus.Gatherer) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(g, promhttp.HandlerOpts{}))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		h := p.Health()
		w.Header().Set("Content-Type", "application/json")
		if !h.Loaded {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		json.NewEncoder(w).Encode(h)
	})
	return mux
}

// Serve runs the handler on addr until ctx is done.
func Serve(ctx context.Context, addr string, h http.Handler, log *slog.Logger) error {
	srv := &http.Server{Addr: addr, Handler: h, ReadHeaderTimeout: 5 * time.Second}
	errc := make(chan error, 1)
	go func() {
		log.Info("metrics server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		shutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdown)
	}
}
