package stats

import (
	"github.com/rustyeddy/cycles/cycles"
	"github.com/rustyeddy/cycles/market"
)

const (
	// volumeTail is how many of the most recent cycles feed the volume delta.
	volumeTail = 10
	preBars    = 3
	baseBars   = 10
	postBars   = 3
)

// Summary describes one cycle partition. A zero Count is the empty form:
// every statistic is absent.
type Summary struct {
	Count                 int      `json:"count"`
	AvgDuration           Optional `json:"avg_duration"`
	StdDevDuration        Optional `json:"std_dev_duration"`
	MaxPriceVariationPct  Optional `json:"max_price_variation_pct"`
	AvgVolumeDeltaPrePct  Optional `json:"avg_volume_delta_pre_pct"`
	AvgVolumeDeltaPostPct Optional `json:"avg_volume_delta_post_pct"`
}

func (s Summary) Empty() bool { return s.Count == 0 }

// Aggregate holds the summaries of both partitions.
type Aggregate struct {
	Index   Summary `json:"index"`
	Inverse Summary `json:"inverse"`
}

// AggregateCycles partitions merged by type and summarizes each side:
// inverted cycles are the index set, normal cycles the inverse set.
func AggregateCycles(merged []cycles.Cycle, candles []market.Candle) Aggregate {
	inv, norm := cycles.Partition(merged)
	return Aggregate{
		Index:   Summarize(inv, candles),
		Inverse: Summarize(norm, candles),
	}
}

// Summarize computes duration, price variation and volume delta statistics
// for a single partition.
func Summarize(set []cycles.Cycle, candles []market.Candle) Summary {
	if len(set) == 0 {
		return Summary{}
	}

	durations := cycles.Durations(set)
	avg, _ := Mean(durations)
	std, _ := PopStdDev(durations)

	maxVar := None()
	for _, c := range set {
		if v, ok := PriceVariationPct(c); ok && (!maxVar.Valid || v > maxVar.Value) {
			maxVar = Some(v)
		}
	}

	pre, post := VolumeDelta(set, candles)

	return Summary{
		Count:                 len(set),
		AvgDuration:           Some(avg),
		StdDevDuration:        Some(std),
		MaxPriceVariationPct:  maxVar,
		AvgVolumeDeltaPrePct:  Some(pre),
		AvgVolumeDeltaPostPct: Some(post),
	}
}

// PriceVariationPct is the swing of a cycle away from its start: the rise
// to the high for inverted cycles, the drop to the low for normal ones.
// It is undefined for a zero start price.
func PriceVariationPct(c cycles.Cycle) (float64, bool) {
	if c.StartPrice == 0 {
		return 0, false
	}
	if c.Type == cycles.Inverted {
		return (c.MaxPrice - c.StartPrice) / c.StartPrice * 100, true
	}
	return (c.StartPrice - c.MinPrice) / c.StartPrice * 100, true
}

// VolumeDelta compares the volume around each cycle close with the 10 bars
// before it, over the last 10 cycles of set. For close bar c the 3 bars
// before (c-1..c-3) and after (c+1..c+3) are measured against the mean of
// c-4..c-13. Cycles without those bars, or with a zero baseline, are
// skipped. No contributing cycle gives 0, 0.
//
// The 3 and 10 bar divisors are fixed even near the ends of the sequence.
func VolumeDelta(set []cycles.Cycle, candles []market.Candle) (pre, post float64) {
	tail := set
	if len(tail) > volumeTail {
		tail = tail[len(tail)-volumeTail:]
	}

	var sumPre, sumPost float64
	n := 0
	for _, cy := range tail {
		c := cy.EndIndex
		if c < preBars+baseBars || c > len(candles)-postBars-1 {
			continue
		}

		vol3Pre := meanVolume(candles, c-preBars, c-1, preBars)
		vol10Pre := meanVolume(candles, c-preBars-baseBars, c-preBars-1, baseBars)
		if vol10Pre <= 0 {
			continue
		}
		vol3Post := meanVolume(candles, c+1, c+postBars, postBars)

		sumPre += (vol3Pre - vol10Pre) / vol10Pre * 100
		sumPost += (vol3Post - vol10Pre) / vol10Pre * 100
		n++
	}

	if n == 0 {
		return 0, 0
	}
	return sumPre / float64(n), sumPost / float64(n)
}

func meanVolume(candles []market.Candle, from, to, div int) float64 {
	sum := 0.0
	for i := from; i <= to; i++ {
		sum += candles[i].Volume
	}
	return sum / float64(div)
}
