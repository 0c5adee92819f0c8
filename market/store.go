package market

import (
	"errors"
	"fmt"
	"sync"
)

// DefaultCap is the streaming buffer limit used when none is configured.
const DefaultCap = 1000

var (
	// ErrEmptyStore is wrapped by EmptyStoreError.
	ErrEmptyStore = errors.New("candle store is empty")

	// ErrStaleTick is returned when a tick is older than the last stored bar.
	ErrStaleTick = errors.New("tick older than last candle")
)

// EmptyStoreError is returned by MergeTick when no snapshot was loaded yet.
type EmptyStoreError struct {
	Time int64
}

func (e *EmptyStoreError) Error() string {
	return fmt.Sprintf("merge tick %d: %v", e.Time, ErrEmptyStore)
}

func (e *EmptyStoreError) Unwrap() error { return ErrEmptyStore }

// CandleStore owns the ordered bar sequence. Times are strictly increasing;
// only the last bar is ever replaced in place.
type CandleStore struct {
	mu       sync.RWMutex
	candles  []Candle
	cap      int
	loaded   bool
	onChange []func()
}

func NewCandleStore(cap int) *CandleStore {
	if cap <= 0 {
		cap = DefaultCap
	}
	return &CandleStore{cap: cap}
}

// OnChange registers fn to be called after every successful mutation.
// Callbacks run on the caller's goroutine with no lock held.
func (s *CandleStore) OnChange(fn func()) {
	s.mu.Lock()
	s.onChange = append(s.onChange, fn)
	s.mu.Unlock()
}

// ReplaceAll replaces the whole buffer with a snapshot. The cap is not
// applied here; snapshot size is the caller's choice.
func (s *CandleStore) ReplaceAll(candles []Candle) {
	cp := make([]Candle, len(candles))
	copy(cp, candles)

	s.mu.Lock()
	s.candles = cp
	s.loaded = true
	s.mu.Unlock()

	s.changed()
}

// MergeTick folds a streaming bar into the buffer. A bar with the same open
// time as the last one replaces it; a newer bar is appended and the oldest
// bars are evicted down to the cap.
func (s *CandleStore) MergeTick(c Candle) error {
	s.mu.Lock()
	if !s.loaded {
		s.mu.Unlock()
		return &EmptyStoreError{Time: c.Time}
	}

	n := len(s.candles)
	switch {
	case n > 0 && c.Time == s.candles[n-1].Time:
		s.candles[n-1] = c
	case n > 0 && c.Time < s.candles[n-1].Time:
		last := s.candles[n-1].Time
		s.mu.Unlock()
		return fmt.Errorf("merge tick %d (last %d): %w", c.Time, last, ErrStaleTick)
	default:
		s.candles = append(s.candles, c)
		if over := len(s.candles) - s.cap; over > 0 {
			s.candles = append(s.candles[:0:0], s.candles[over:]...)
		}
	}
	s.mu.Unlock()

	s.changed()
	return nil
}

// Candles returns a copy of the current buffer.
func (s *CandleStore) Candles() []Candle {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Candle, len(s.candles))
	copy(out, s.candles)
	return out
}

func (s *CandleStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.candles)
}

func (s *CandleStore) Cap() int { return s.cap }

// Loaded reports whether a snapshot has been loaded.
func (s *CandleStore) Loaded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loaded
}

// Last returns the most recent bar, if any.
func (s *CandleStore) Last() (Candle, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.candles) == 0 {
		return Candle{}, false
	}
	return s.candles[len(s.candles)-1], true
}

func (s *CandleStore) changed() {
	s.mu.RLock()
	fns := s.onChange
	s.mu.RUnlock()
	for _, fn := range fns {
		fn()
	}
}
