package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rustyeddy/cycles/cycles"
	"github.com/rustyeddy/cycles/market"
)

// Sink receives every result the pipeline publishes.
type Sink interface {
	Publish(ctx context.Context, r *Result) error
}

// Pipeline owns the candle store and recomputes after every accepted
// mutation. Passes are numbered; a result is only published when it is
// newer than the last one published, and a failed pass leaves the last
// published result in place.
type Pipeline struct {
	engine  Engine
	store   *market.CandleStore
	sinks   []Sink
	metrics *Metrics
	log     *slog.Logger

	mu     sync.RWMutex
	params Params

	seq atomic.Uint64

	pubMu     sync.Mutex
	published uint64
	latest    *Result
}

// Option configures a Pipeline.
type Option func(*Pipeline)

func WithSinks(s ...Sink) Option {
	return func(p *Pipeline) { p.sinks = append(p.sinks, s...) }
}

func WithMetrics(m *Metrics) Option {
	return func(p *Pipeline) { p.metrics = m }
}

func WithLogger(l *slog.Logger) Option {
	return func(p *Pipeline) { p.log = l }
}

func NewPipeline(e Engine, store *market.CandleStore, params Params, opts ...Option) *Pipeline {
	p := &Pipeline{
		engine: e,
		store:  store,
		params: params,
		log:    slog.Default(),
	}
	for _, o := range opts {
		o(p)
	}
	p.log = p.log.With("component", "pipeline")
	store.OnChange(func() { p.metrics.candles(store.Len()) })
	return p
}

func (p *Pipeline) Store() *market.CandleStore { return p.store }

// Params returns a copy of the active parameters.
func (p *Pipeline) Params() Params {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.params.WithManual(p.params.Manual)
}

// Latest returns the last published result, nil before the first one.
func (p *Pipeline) Latest() *Result {
	p.pubMu.Lock()
	defer p.pubMu.Unlock()
	return p.latest
}

// Load replaces the candle buffer with a snapshot and recomputes.
func (p *Pipeline) Load(ctx context.Context, candles []market.Candle) (*Result, error) {
	p.store.ReplaceAll(candles)
	p.log.Info("snapshot loaded", "candles", len(candles))
	return p.Recompute(ctx)
}

// Apply merges one streaming tick and recomputes. A rejected tick leaves
// the store and the published result untouched.
func (p *Pipeline) Apply(ctx context.Context, t market.Tick) (*Result, error) {
	if err := p.store.MergeTick(t.Candle); err != nil {
		return nil, fmt.Errorf("apply tick: %w", err)
	}
	return p.Recompute(ctx)
}

// SetParams swaps the parameters, keeping the active manual override, and
// recomputes when a snapshot is loaded.
func (p *Pipeline) SetParams(ctx context.Context, params Params) (*Result, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	p.mu.Lock()
	params = params.WithManual(p.params.Manual)
	p.params = params
	p.mu.Unlock()
	return p.recomputeIfLoaded(ctx)
}

// SetManual installs or, with nil, clears the manual override.
func (p *Pipeline) SetManual(ctx context.Context, o *cycles.ManualOverride) (*Result, error) {
	if o != nil {
		if err := o.Validate(p.store.Len()); err != nil {
			return nil, err
		}
	}
	p.mu.Lock()
	p.params = p.params.WithManual(o)
	p.mu.Unlock()
	return p.recomputeIfLoaded(ctx)
}

func (p *Pipeline) recomputeIfLoaded(ctx context.Context) (*Result, error) {
	if !p.store.Loaded() {
		return nil, nil
	}
	return p.Recompute(ctx)
}

// Recompute runs one numbered pass over the current store contents. It
// returns the result even when a newer pass already published.
func (p *Pipeline) Recompute(ctx context.Context) (*Result, error) {
	seq := p.seq.Add(1)
	candles := p.store.Candles()
	params := p.Params()

	start := time.Now()
	res, err := p.engine.Recompute(candles, params)
	p.metrics.observe(start, err)
	if err != nil {
		var bad *cycles.InvalidCycleDataError
		if errors.As(err, &bad) {
			p.log.Error("collaborator returned invalid cycles", "seq", seq, "err", err)
		} else {
			p.log.Warn("recompute failed", "seq", seq, "err", err)
		}
		return nil, err
	}
	res.Seq = seq

	if o := res.ManualDropped; o != nil {
		p.log.Warn("manual override out of range, dropped", "seq", seq,
			"start", o.StartIndex, "end", o.EndIndex, "candles", len(candles))
		p.mu.Lock()
		if m := p.params.Manual; m != nil && *m == *o {
			p.params = p.params.WithManual(nil)
		}
		p.mu.Unlock()
	}

	p.publish(ctx, res)
	return res, nil
}

func (p *Pipeline) publish(ctx context.Context, res *Result) {
	p.pubMu.Lock()
	defer p.pubMu.Unlock()
	if res.Seq <= p.published {
		p.log.Debug("dropping superseded result", "seq", res.Seq, "published", p.published)
		return
	}
	p.published = res.Seq
	p.latest = res
	p.metrics.published(res)

	for _, s := range p.sinks {
		if err := s.Publish(ctx, res); err != nil {
			p.log.Warn("publish failed", "seq", res.Seq, "err", err)
		}
	}
}

// Run applies ticks until ctx is done or ticks is closed. Tick errors are
// logged and skipped.
func (p *Pipeline) Run(ctx context.Context, ticks <-chan market.Tick) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case t, ok := <-ticks:
			if !ok {
				return nil
			}
			if _, err := p.Apply(ctx, t); err != nil {
				p.log.Warn("tick rejected", "time", t.Time, "final", t.Final, "err", err)
			}
		}
	}
}
