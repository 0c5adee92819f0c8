package engine

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHealthz(t *testing.T) {
	reg := prometheus.NewRegistry()
	p, _ := newTestPipeline(t, &fixedSource{}, WithMetrics(NewMetrics(reg)))
	srv := httptest.NewServer(NewHandler(p, reg))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	_, err = p.Load(context.Background(), flat(10))
	require.NoError(t, err)

	resp, err = http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var h Health
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&h))
	assert.True(t, h.Loaded)
	assert.Equal(t, 10, h.Candles)
	assert.Equal(t, uint64(1), h.Seq)
	assert.Equal(t, p.Store().Candles()[9].Time, h.LastBar)
}

func TestMetricsEndpoint(t *testing.T) {
	reg := prometheus.NewRegistry()
	p, _ := newTestPipeline(t, &fixedSource{}, WithMetrics(NewMetrics(reg)))
	_, err := p.Load(context.Background(), flat(10))
	require.NoError(t, err)

	srv := httptest.NewServer(NewHandler(p, reg))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "cycles_recompute_total 1")
	assert.Contains(t, string(body), "cycles_candles 10")
}

func TestServeStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- Serve(ctx, "127.0.0.1:0", http.NotFoundHandler(), slog.New(slog.NewTextHandler(io.Discard, nil))) }()
	cancel()
	assert.NoError(t, <-done)
}
