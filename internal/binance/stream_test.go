package binance

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/cycles/market"
)

const klineMsgJSON = `{"e":"kline","E":1700000001000,"s":"SUIUSDT","k":{"t":1700000000000,"T":1700000059999,"s":"SUIUSDT","i":"1m","f":100,"L":200,"o":"1.0","c":"1.2","h":"1.5","l":"0.9","v":"100.5","n":101,"x":false,"q":"120.6","V":"40.25","Q":"48.3","B":"0"}}`

func TestParseKline(t *testing.T) {
	tick, ok, err := ParseKline([]byte(klineMsgJSON))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "SUIUSDT", tick.Symbol)
	assert.Equal(t, int64(1700000000000), tick.Time, "close time T must not replace t")
	assert.Equal(t, 1.2, tick.Close)
	assert.Equal(t, 100.5, tick.Volume, "taker buy volume V must not replace v")
	assert.Equal(t, 0.9, tick.Low, "last trade id L must not replace l")
	assert.False(t, tick.Final)

	_, ok, err = ParseKline([]byte(`{"e":"trade","p":"1.0"}`))
	require.NoError(t, err)
	assert.False(t, ok)

	_, _, err = ParseKline([]byte(`{"e":"kline","k":{"t":1,"o":"abc"}}`))
	assert.ErrorContains(t, err, "open")

	_, _, err = ParseKline([]byte(`not json`))
	assert.Error(t, err)
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
}

func TestStreamDeliversTicks(t *testing.T) {
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/ws/suiusdt@kline_1m", r.URL.Path)
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"result":null,"id":1}`))
		_ = conn.WriteMessage(websocket.TextMessage, []byte(klineMsgJSON))
		_ = conn.WriteMessage(websocket.TextMessage, []byte(strings.Replace(klineMsgJSON, `"x":false`, `"x":true`, 1)))
		// hold the connection open until the client goes away
		_, _, _ = conn.ReadMessage()
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	out := make(chan market.Tick, 4)
	s := &Stream{URL: wsURL(srv), ReconnectDelay: 10 * time.Millisecond}
	errCh := make(chan error, 1)
	go func() { errCh <- s.Run(ctx, "SUIUSDT", "1m", out) }()

	var first, second market.Tick
	for i, dst := range []*market.Tick{&first, &second} {
		select {
		case *dst = <-out:
		case <-time.After(2 * time.Second):
			t.Fatalf("tick %d not delivered", i+1)
		}
	}
	assert.False(t, first.Final)
	assert.True(t, second.Final)
	assert.Equal(t, first.Time, second.Time)

	cancel()
	select {
	case err := <-errCh:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("stream did not stop after cancel")
	}
}

func TestStreamReconnects(t *testing.T) {
	var conns atomic.Int32
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		if conns.Add(1) == 1 {
			return // drop the first connection straight away
		}
		_ = conn.WriteMessage(websocket.TextMessage, []byte(klineMsgJSON))
		_, _, _ = conn.ReadMessage()
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var reconnects atomic.Int32
	out := make(chan market.Tick, 1)
	s := &Stream{
		URL:            wsURL(srv),
		ReconnectDelay: 5 * time.Millisecond,
		OnReconnect:    func(error) { reconnects.Add(1) },
	}
	go func() { _ = s.Run(ctx, "SUIUSDT", "1m", out) }()

	select {
	case tick := <-out:
		assert.Equal(t, 1.2, tick.Close)
	case <-ctx.Done():
		t.Fatal("no tick after reconnect")
	}
	assert.GreaterOrEqual(t, reconnects.Load(), int32(1))
	assert.GreaterOrEqual(t, conns.Load(), int32(2))
}
