package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/cycles/cycles"
	"github.com/rustyeddy/cycles/market"
)

type recordingSink struct {
	seqs []uint64
	err  error
}

func (s *recordingSink) Publish(_ context.Context, r *Result) error {
	s.seqs = append(s.seqs, r.Seq)
	return s.err
}

func newTestPipeline(t *testing.T, src cycles.Source, opts ...Option) (*Pipeline, *recordingSink) {
	t.Helper()
	sink := &recordingSink{}
	opts = append([]Option{WithSinks(sink)}, opts...)
	e := Engine{Indicators: zeroMomentum{}, Cycles: src}
	return NewPipeline(e, market.NewCandleStore(20), DefaultParams(), opts...), sink
}

func tick(i int, px float64) market.Tick {
	return market.Tick{Symbol: "SUIUSDT", Candle: market.Candle{
		Time: int64(i) * 60_000, Open: px, High: px, Low: px, Close: px, Volume: 10}}
}

func TestPipelineApplyBeforeLoad(t *testing.T) {
	p, sink := newTestPipeline(t, &fixedSource{})

	_, err := p.Apply(context.Background(), tick(0, 100))
	var empty *market.EmptyStoreError
	require.True(t, errors.As(err, &empty))
	assert.Nil(t, p.Latest())
	assert.Empty(t, sink.seqs)
}

func TestPipelineLoadAndApply(t *testing.T) {
	ctx := context.Background()
	p, sink := newTestPipeline(t, &fixedSource{})

	res, err := p.Load(ctx, flat(10))
	require.NoError(t, err)
	assert.Equal(t, uint64(1), res.Seq)
	assert.Len(t, res.Candles, 10)

	res, err = p.Apply(ctx, tick(9, 101))
	require.NoError(t, err)
	assert.Len(t, res.Candles, 10, "same open time replaces the last bar")
	assert.Equal(t, 101.0, res.Candles[9].Close)

	res, err = p.Apply(ctx, tick(10, 102))
	require.NoError(t, err)
	assert.Len(t, res.Candles, 11)

	assert.Equal(t, []uint64{1, 2, 3}, sink.seqs)
	assert.Same(t, res, p.Latest())
}

func TestPipelineStaleTickKeepsState(t *testing.T) {
	ctx := context.Background()
	p, sink := newTestPipeline(t, &fixedSource{})
	_, err := p.Load(ctx, flat(10))
	require.NoError(t, err)
	before := p.Latest()

	_, err = p.Apply(ctx, tick(3, 50))
	assert.ErrorIs(t, err, market.ErrStaleTick)
	assert.Same(t, before, p.Latest())
	assert.Equal(t, 10, p.Store().Len())
	assert.Len(t, sink.seqs, 1)
}

func TestPipelineFailedPassKeepsLastResult(t *testing.T) {
	ctx := context.Background()
	src := &fixedSource{}
	p, sink := newTestPipeline(t, src)

	good, err := p.Load(ctx, flat(10))
	require.NoError(t, err)

	src.inverted = []cycles.Cycle{span(0, 6, cycles.Inverted), span(3, 8, cycles.Inverted)}
	_, err = p.Apply(ctx, tick(10, 100))
	var bad *cycles.InvalidCycleDataError
	require.True(t, errors.As(err, &bad))

	assert.Same(t, good, p.Latest())
	assert.Equal(t, []uint64{1}, sink.seqs)

	src.inverted = nil
	res, err := p.Apply(ctx, tick(11, 100))
	require.NoError(t, err)
	assert.Equal(t, uint64(3), res.Seq, "failed passes still consume a sequence number")
	assert.Same(t, res, p.Latest())
}

func TestPipelineDropsSupersededResult(t *testing.T) {
	ctx := context.Background()
	p, sink := newTestPipeline(t, &fixedSource{})

	newer := &Result{Seq: 5}
	older := &Result{Seq: 4}
	p.publish(ctx, newer)
	p.publish(ctx, older)

	assert.Same(t, newer, p.Latest())
	assert.Equal(t, []uint64{5}, sink.seqs)
}

func TestPipelineSinkErrorDoesNotFailPass(t *testing.T) {
	p, sink := newTestPipeline(t, &fixedSource{})
	sink.err = errors.New("redis down")

	res, err := p.Load(context.Background(), flat(10))
	require.NoError(t, err)
	assert.Same(t, res, p.Latest())
}

func TestPipelineSetManual(t *testing.T) {
	ctx := context.Background()
	src := &fixedSource{}
	p, _ := newTestPipeline(t, src)

	res, err := p.SetManual(ctx, &cycles.ManualOverride{StartIndex: 1, EndIndex: 4})
	require.ErrorIs(t, err, cycles.ErrInvalidOverride, "empty store has no valid indices")
	assert.Nil(t, res)

	_, err = p.Load(ctx, flat(10))
	require.NoError(t, err)

	o := &cycles.ManualOverride{StartIndex: 1, EndIndex: 4}
	res, err = p.SetManual(ctx, o)
	require.NoError(t, err)
	require.NotNil(t, res.Params.Manual)
	assert.Equal(t, *o, *res.Params.Manual)

	last := src.queries[len(src.queries)-1]
	assert.Equal(t, o, last.Manual)

	_, err = p.SetManual(ctx, &cycles.ManualOverride{StartIndex: 4, EndIndex: 40})
	assert.ErrorIs(t, err, cycles.ErrInvalidOverride)
	assert.NotNil(t, p.Params().Manual, "rejected override leaves the active one")

	_, err = p.SetManual(ctx, nil)
	require.NoError(t, err)
	assert.Nil(t, p.Params().Manual)
}

func TestPipelineDropsOverrideAfterEviction(t *testing.T) {
	ctx := context.Background()
	src := &fixedSource{}
	p, sink := newTestPipeline(t, src)

	_, err := p.Load(ctx, flat(30))
	require.NoError(t, err)
	_, err = p.SetManual(ctx, &cycles.ManualOverride{StartIndex: 22, EndIndex: 28})
	require.NoError(t, err)

	// the store cap is 20, so the next bar evicts down to 20 candles
	res, err := p.Apply(ctx, tick(30, 101))
	require.NoError(t, err)
	assert.Len(t, res.Candles, 20)
	require.NotNil(t, res.ManualDropped)
	assert.Nil(t, p.Params().Manual)
	assert.Same(t, res, p.Latest())

	for i := 31; i < 34; i++ {
		res, err = p.Apply(ctx, tick(i, 102))
		require.NoError(t, err)
		assert.Nil(t, res.ManualDropped)
		assert.Nil(t, src.queries[len(src.queries)-1].Manual)
	}
	assert.Equal(t, []uint64{1, 2, 3, 4, 5, 6}, sink.seqs)
}

func TestPipelineSetParams(t *testing.T) {
	ctx := context.Background()
	p, sink := newTestPipeline(t, &fixedSource{})

	params := DefaultParams()
	params.MinDuration = 10
	params.MaxDuration = 20

	res, err := p.SetParams(ctx, params)
	require.NoError(t, err)
	assert.Nil(t, res, "no recompute before a snapshot")
	assert.Empty(t, sink.seqs)

	_, err = p.Load(ctx, flat(10))
	require.NoError(t, err)
	_, err = p.SetManual(ctx, &cycles.ManualOverride{StartIndex: 1, EndIndex: 4})
	require.NoError(t, err)

	params.MaxDuration = 30
	res, err = p.SetParams(ctx, params)
	require.NoError(t, err)
	assert.Equal(t, 30, res.Params.MaxDuration)
	assert.NotNil(t, res.Params.Manual, "params swap keeps the override")

	params.MaxDuration = 1
	_, err = p.SetParams(ctx, params)
	assert.Error(t, err)
	assert.Equal(t, 30, p.Params().MaxDuration)
}

func TestPipelineMetrics(t *testing.T) {
	ctx := context.Background()
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	ref := cycles.Cycle{StartIndex: 0, EndIndex: 5, Duration: 5, Type: cycles.Inverted,
		StartPrice: 100, MaxPrice: 120, EndPrice: 110, MinPrice: 95}
	src := &fixedSource{inverted: []cycles.Cycle{ref}}
	p, _ := newTestPipeline(t, src, WithMetrics(m))

	_, err := p.Load(ctx, flat(10))
	require.NoError(t, err)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Recomputes))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.Failures))
	assert.Equal(t, 10.0, testutil.ToFloat64(m.Candles))
	assert.InDelta(t, 100.8333, testutil.ToFloat64(m.ProjectionPrice), 1e-3)

	src.err = errors.New("boom")
	_, err = p.Apply(ctx, tick(10, 100))
	require.Error(t, err)
	assert.Equal(t, 2.0, testutil.ToFloat64(m.Recomputes))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Failures))
	assert.Equal(t, 11.0, testutil.ToFloat64(m.Candles))
	assert.Equal(t, 1, testutil.CollectAndCount(m.Duration))
}

func TestPipelineRun(t *testing.T) {
	p, sink := newTestPipeline(t, &fixedSource{})
	_, err := p.Load(context.Background(), flat(10))
	require.NoError(t, err)

	ticks := make(chan market.Tick, 3)
	ticks <- tick(10, 100)
	ticks <- tick(2, 100) // stale, logged and skipped
	ticks <- tick(11, 100)
	close(ticks)

	require.NoError(t, p.Run(context.Background(), ticks))
	assert.Equal(t, []uint64{1, 2, 3}, sink.seqs)
	assert.Equal(t, 12, p.Store().Len())

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	err = p.Run(ctx, make(chan market.Tick))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
