// Package binance fetches kline snapshots over REST and streams live klines
// over the public websocket API.
package binance

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/rustyeddy/cycles/market"
)

const (
	DefaultBaseURL   = "https://api.binance.com"
	DefaultStreamURL = "wss://stream.binance.com:9443/ws"

	// MaxLimit is the largest page the klines endpoint serves.
	MaxLimit = 1500
)

type Client struct {
	BaseURL string // e.g. https://api.binance.com
	HTTP    *http.Client
}

type SnapshotOptions struct {
	Symbol   string // e.g. SUIUSDT
	Interval string // e.g. 1m, 5m, 1h
	Limit    int    // optional, capped at MaxLimit
}

// Snapshot downloads the most recent klines in ascending time order.
func (c *Client) Snapshot(ctx context.Context, opts SnapshotOptions) ([]market.Candle, error) {
	if opts.Symbol == "" {
		return nil, fmt.Errorf("binance: missing symbol")
	}
	if opts.Interval == "" {
		return nil, fmt.Errorf("binance: missing interval")
	}

	base := c.BaseURL
	if base == "" {
		base = DefaultBaseURL
	}
	u, err := url.Parse(base)
	if err != nil {
		return nil, err
	}
	u.Path = "/api/v3/klines"

	q := u.Query()
	q.Set("symbol", strings.ToUpper(opts.Symbol))
	q.Set("interval", opts.Interval)
	if opts.Limit > 0 {
		limit := opts.Limit
		if limit > MaxLimit {
			limit = MaxLimit
		}
		q.Set("limit", strconv.Itoa(limit))
	}
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	httpClient := c.HTTP
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
		return nil, fmt.Errorf("binance klines http %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
	}

	var rows [][]json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&rows); err != nil {
		return nil, fmt.Errorf("binance klines: %w", err)
	}

	out := make([]market.Candle, 0, len(rows))
	for i, row := range rows {
		c, err := parseRow(row)
		if err != nil {
			return nil, fmt.Errorf("binance klines row %d: %w", i, err)
		}
		if n := len(out); n > 0 && c.Time <= out[n-1].Time {
			return nil, fmt.Errorf("binance klines row %d: time %d not after %d", i, c.Time, out[n-1].Time)
		}
		out = append(out, c)
	}
	return out, nil
}

// parseRow reads [openTime, "open", "high", "low", "close", "volume", ...].
func parseRow(row []json.RawMessage) (market.Candle, error) {
	if len(row) < 6 {
		return market.Candle{}, fmt.Errorf("want at least 6 fields, got %d", len(row))
	}
	var c market.Candle
	if err := json.Unmarshal(row[0], &c.Time); err != nil {
		return market.Candle{}, fmt.Errorf("open time: %w", err)
	}
	dst := []*float64{&c.Open, &c.High, &c.Low, &c.Close, &c.Volume}
	for i, p := range dst {
		var s string
		if err := json.Unmarshal(row[i+1], &s); err != nil {
			return market.Candle{}, fmt.Errorf("field %d: %w", i+1, err)
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return market.Candle{}, fmt.Errorf("field %d: %w", i+1, err)
		}
		*p = v
	}
	return c, nil
}
