package binance

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/rustyeddy/cycles/market"
)

// Binance sends both "e" and "E" (and "t" and "T" inside k). Each key
// needs its own field: encoding/json folds case when no exact match exists.
type klineMsg struct {
	Event     string `json:"e"`
	EventTime int64  `json:"E"`
	Symbol    string `json:"s"`
	K         struct {
		Start     int64  `json:"t"`
		CloseTime int64  `json:"T"`
		Symbol    string `json:"s"`
		Interval  string `json:"i"`
		Open      string `json:"o"`
		High      string `json:"h"`
		Low       string `json:"l"`
		Close     string `json:"c"`
		Volume    string `json:"v"`
		Final     bool   `json:"x"`
		Trades    int64  `json:"n"`
		QuoteVol  string `json:"q"`
		BuyBase   string `json:"V"`
		BuyQuote  string `json:"Q"`
		FirstID   int64  `json:"f"`
		LastID    int64  `json:"L"`
	} `json:"k"`
}

// ParseKline decodes one websocket message. ok is false for messages that
// are not kline events.
func ParseKline(raw []byte) (t market.Tick, ok bool, err error) {
	var m klineMsg
	if err := json.Unmarshal(raw, &m); err != nil {
		return market.Tick{}, false, err
	}
	if m.Event != "kline" {
		return market.Tick{}, false, nil
	}

	t.Symbol = m.Symbol
	t.Final = m.K.Final
	t.Time = m.K.Start
	fields := []struct {
		name string
		s    string
		dst  *float64
	}{
		{"open", m.K.Open, &t.Open},
		{"high", m.K.High, &t.High},
		{"low", m.K.Low, &t.Low},
		{"close", m.K.Close, &t.Close},
		{"volume", m.K.Volume, &t.Volume},
	}
	for _, f := range fields {
		v, err := strconv.ParseFloat(f.s, 64)
		if err != nil {
			return market.Tick{}, false, fmt.Errorf("kline %s %q: %w", f.name, f.s, err)
		}
		*f.dst = v
	}
	return t, true, nil
}
