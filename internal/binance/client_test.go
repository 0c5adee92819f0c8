package binance

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const klinesBody = `[
 [1700000000000,"1.0","1.5","0.9","1.2","100.5",1700000059999,"120.6",42,"50","60","0"],
 [1700000060000,"1.2","1.3","1.1","1.25","80",1700000119999,"100",30,"40","50","0"]
]`

func TestSnapshot(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/v3/klines", r.URL.Path)
		require.Equal(t, "SUIUSDT", r.URL.Query().Get("symbol"))
		require.Equal(t, "1m", r.URL.Query().Get("interval"))
		require.Equal(t, "1500", r.URL.Query().Get("limit"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(klinesBody))
	}))
	defer srv.Close()

	c := &Client{BaseURL: srv.URL, HTTP: srv.Client()}
	candles, err := c.Snapshot(context.Background(), SnapshotOptions{Symbol: "suiusdt", Interval: "1m", Limit: 5000})
	require.NoError(t, err)
	require.Len(t, candles, 2)

	assert.Equal(t, int64(1700000000000), candles[0].Time)
	assert.Equal(t, 1.0, candles[0].Open)
	assert.Equal(t, 1.5, candles[0].High)
	assert.Equal(t, 0.9, candles[0].Low)
	assert.Equal(t, 1.2, candles[0].Close)
	assert.Equal(t, 100.5, candles[0].Volume)
	assert.Equal(t, 1.25, candles[1].Close)
}

func TestSnapshotErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		status int
		body   string
		want   string
	}{
		{"http error", http.StatusBadRequest, `{"code":-1121,"msg":"Invalid symbol."}`, "http 400"},
		{"not json", http.StatusOK, `<html>`, "binance klines"},
		{"short row", http.StatusOK, `[[1700000000000,"1","2"]]`, "at least 6 fields"},
		{"bad number", http.StatusOK, `[[1700000000000,"x","2","3","4","5"]]`, "field 1"},
		{"out of order", http.StatusOK, `[[2,"1","1","1","1","1"],[1,"1","1","1","1","1"]]`, "not after"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			c := &Client{BaseURL: srv.URL}
			_, err := c.Snapshot(context.Background(), SnapshotOptions{Symbol: "SUIUSDT", Interval: "1m"})
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestSnapshotMissingInputs(t *testing.T) {
	t.Parallel()

	c := &Client{BaseURL: "http://example.com"}
	_, err := c.Snapshot(context.Background(), SnapshotOptions{Interval: "1m"})
	assert.ErrorContains(t, err, "missing symbol")
	_, err = c.Snapshot(context.Background(), SnapshotOptions{Symbol: "SUIUSDT"})
	assert.ErrorContains(t, err, "missing interval")
}
