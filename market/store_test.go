package market

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func bars(n int, start int64) []Candle {
	out := make([]Candle, n)
	for i := range out {
		p := 100 + float64(i)
		out[i] = Candle{
			Time:   start + int64(i)*60_000,
			Open:   p,
			High:   p + 1,
			Low:    p - 1,
			Close:  p + 0.5,
			Volume: 10,
		}
	}
	return out
}

func TestMergeTickBeforeLoad(t *testing.T) {
	s := NewCandleStore(10)
	err := s.MergeTick(Candle{Time: 1})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrEmptyStore))

	var ese *EmptyStoreError
	require.True(t, errors.As(err, &ese))
	assert.Equal(t, int64(1), ese.Time)
	assert.Equal(t, 0, s.Len())
}

func TestReplaceAllIsUnbounded(t *testing.T) {
	s := NewCandleStore(5)
	s.ReplaceAll(bars(20, 0))
	assert.Equal(t, 20, s.Len())
	assert.True(t, s.Loaded())
}

func TestReplaceAllCopiesInput(t *testing.T) {
	in := bars(3, 0)
	s := NewCandleStore(5)
	s.ReplaceAll(in)
	in[0].Close = -1
	assert.NotEqual(t, -1.0, s.Candles()[0].Close)
}

func TestMergeTick(t *testing.T) {
	t.Run("same time replaces last", func(t *testing.T) {
		s := NewCandleStore(100)
		s.ReplaceAll(bars(5, 0))
		last, _ := s.Last()

		upd := last
		upd.Close = 999
		upd.Volume = 42
		require.NoError(t, s.MergeTick(upd))

		assert.Equal(t, 5, s.Len())
		got, ok := s.Last()
		require.True(t, ok)
		assert.Equal(t, upd, got)
	})

	t.Run("new time appends", func(t *testing.T) {
		s := NewCandleStore(100)
		s.ReplaceAll(bars(5, 0))
		last, _ := s.Last()

		next := Candle{Time: last.Time + 60_000, Close: 1}
		require.NoError(t, s.MergeTick(next))
		assert.Equal(t, 6, s.Len())
	})

	t.Run("older time rejected", func(t *testing.T) {
		s := NewCandleStore(100)
		s.ReplaceAll(bars(5, 0))
		err := s.MergeTick(Candle{Time: 0})
		assert.True(t, errors.Is(err, ErrStaleTick))
		assert.Equal(t, 5, s.Len())
	})

	t.Run("empty snapshot then tick", func(t *testing.T) {
		s := NewCandleStore(100)
		s.ReplaceAll(nil)
		require.NoError(t, s.MergeTick(Candle{Time: 5}))
		assert.Equal(t, 1, s.Len())
	})
}

func TestMergeTickRepeatedTimeNeverGrows(t *testing.T) {
	s := NewCandleStore(50)
	s.ReplaceAll(bars(10, 0))
	last, _ := s.Last()

	for i := 0; i < 100; i++ {
		c := last
		c.Close = float64(i)
		require.NoError(t, s.MergeTick(c))
		assert.Equal(t, 10, s.Len())
	}
}

func TestMergeTickEvictsToCap(t *testing.T) {
	const cap = 8
	s := NewCandleStore(cap)
	s.ReplaceAll(bars(3, 0))

	next := int64(3 * 60_000)
	for i := 0; i < 50; i++ {
		before := s.Len()
		c := Candle{Time: next, Close: float64(i)}
		require.NoError(t, s.MergeTick(c))
		next += 60_000

		if before < cap {
			assert.Equal(t, before+1, s.Len())
		}
		assert.LessOrEqual(t, s.Len(), cap)

		last, _ := s.Last()
		assert.Equal(t, c, last, "most recent bar must never be evicted")
	}

	got := s.Candles()
	for i := 1; i < len(got); i++ {
		assert.Less(t, got[i-1].Time, got[i].Time)
	}
}

func TestMergeTickOversizedSnapshot(t *testing.T) {
	s := NewCandleStore(4)
	s.ReplaceAll(bars(10, 0))
	require.NoError(t, s.MergeTick(Candle{Time: 10 * 60_000}))
	assert.Equal(t, 4, s.Len())
	last, _ := s.Last()
	assert.Equal(t, int64(10*60_000), last.Time)
}

func TestOnChange(t *testing.T) {
	s := NewCandleStore(10)
	calls := 0
	s.OnChange(func() { calls++ })

	_ = s.MergeTick(Candle{Time: 1})
	assert.Equal(t, 0, calls, "failed merge must not signal")

	s.ReplaceAll(bars(2, 0))
	require.NoError(t, s.MergeTick(Candle{Time: 60_000}))
	require.NoError(t, s.MergeTick(Candle{Time: 120_000}))
	assert.Equal(t, 3, calls)
}

func TestDefaultCap(t *testing.T) {
	assert.Equal(t, DefaultCap, NewCandleStore(0).Cap())
}
