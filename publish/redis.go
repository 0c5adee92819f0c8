package publish

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	goredis "github.com/go-redis/redis/v8"

	"github.com/rustyeddy/cycles/engine"
)

// RedisClient is the part of *goredis.Client the publisher uses.
type RedisClient interface {
	Publish(ctx context.Context, channel string, message interface{}) *goredis.IntCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *goredis.StatusCmd
}

// Redis publishes the JSON payload on Channel and stores it under
// Channel+":latest" for late subscribers.
type Redis struct {
	Client   RedisClient
	Channel  string
	Symbol   string
	Interval string

	// TTL of the latest key, 0 for none.
	TTL time.Duration
}

// NewRedis connects to addr. The channel defaults to cycles:<symbol>:<interval>.
func NewRedis(addr, channel, symbol, interval string) *Redis {
	if channel == "" {
		channel = fmt.Sprintf("cycles:%s:%s", symbol, interval)
	}
	return &Redis{
		Client:   goredis.NewClient(&goredis.Options{Addr: addr}),
		Channel:  channel,
		Symbol:   symbol,
		Interval: interval,
	}
}

func (r *Redis) LatestKey() string { return r.Channel + ":latest" }

func (r *Redis) Publish(ctx context.Context, res *engine.Result) error {
	p := Encode(res)
	p.Symbol = r.Symbol
	p.Interval = r.Interval

	b, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encode result %d: %w", res.Seq, err)
	}
	if err := r.Client.Publish(ctx, r.Channel, b).Err(); err != nil {
		return fmt.Errorf("redis publish %s: %w", r.Channel, err)
	}
	if err := r.Client.Set(ctx, r.LatestKey(), b, r.TTL).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", r.LatestKey(), err)
	}
	return nil
}

// Close closes the underlying client when it supports it.
func (r *Redis) Close() error {
	if c, ok := r.Client.(interface{ Close() error }); ok {
		return c.Close()
	}
	return nil
}
