package stats

import (
	"math"
	"sort"
)

// TrendWindow is the rolling window used for the duration trend.
const TrendWindow = 5

// MaxBins caps the histogram bin count.
const MaxBins = 10

// RollingAverage returns the unweighted mean of every window of
// consecutive values: len(values)-window+1 outputs, empty when there are
// fewer values than window.
func RollingAverage(values []float64, window int) []float64 {
	if window <= 0 || len(values) < window {
		return []float64{}
	}
	out := make([]float64, 0, len(values)-window+1)
	sum := 0.0
	for i, v := range values {
		sum += v
		if i >= window {
			sum -= values[i-window]
		}
		if i >= window-1 {
			out = append(out, sum/float64(window))
		}
	}
	return out
}

// RollingMedian returns the median of every trailing window; even windows
// average the two middle values.
func RollingMedian(values []float64, window int) []float64 {
	if window <= 0 || len(values) < window {
		return []float64{}
	}
	out := make([]float64, 0, len(values)-window+1)
	buf := make([]float64, window)
	for i := window - 1; i < len(values); i++ {
		copy(buf, values[i-window+1:i+1])
		sort.Float64s(buf)
		mid := window / 2
		if window%2 == 1 {
			out = append(out, buf[mid])
		} else {
			out = append(out, (buf[mid-1]+buf[mid])/2)
		}
	}
	return out
}

// Histogram bins values into min(10, n) equal width bins.
type Histogram struct {
	Min      float64 `json:"min"`
	Max      float64 `json:"max"`
	BinWidth float64 `json:"bin_width"`
	Bins     []int   `json:"bins"`
	MaxBin   int     `json:"max_bin"`
}

// NewHistogram bins values. The width is 1 when all values are equal and
// the value equal to the max lands in the last bin. An empty input gives
// a histogram with no bins.
func NewHistogram(values []float64) Histogram {
	if len(values) == 0 {
		return Histogram{Bins: []int{}}
	}

	lo, hi := values[0], values[0]
	for _, v := range values[1:] {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}

	count := len(values)
	if count > MaxBins {
		count = MaxBins
	}
	width := (hi - lo) / float64(count)
	if hi == lo {
		width = 1
	}

	h := Histogram{Min: lo, Max: hi, BinWidth: width, Bins: make([]int, count)}
	for _, v := range values {
		idx := int(math.Floor((v - lo) / width))
		if idx > count-1 {
			idx = count - 1
		}
		h.Bins[idx]++
	}
	for _, b := range h.Bins {
		if b > h.MaxBin {
			h.MaxBin = b
		}
	}
	return h
}

// Total returns the number of binned values.
func (h Histogram) Total() int {
	n := 0
	for _, b := range h.Bins {
		n += b
	}
	return n
}

// Ratios scales each bin by the fullest one, for bar heights. All zero
// when there is nothing binned.
func (h Histogram) Ratios() []float64 {
	out := make([]float64, len(h.Bins))
	if h.MaxBin <= 0 {
		return out
	}
	for i, b := range h.Bins {
		out[i] = float64(b) / float64(h.MaxBin)
	}
	return out
}

// Gaussian holds the overlay curve parameters. The curve peaks at 1 and is
// not a normalized density.
type Gaussian struct {
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"std_dev"`
}

// FitGaussian returns the population mean and standard deviation of
// values. It reports false when the spread is zero or there are no values.
func FitGaussian(values []float64) (Gaussian, bool) {
	mean, ok := Mean(values)
	if !ok {
		return Gaussian{}, false
	}
	std, _ := PopStdDev(values)
	if std <= 0 {
		return Gaussian{}, false
	}
	return Gaussian{Mean: mean, StdDev: std}, true
}

func (g Gaussian) At(x float64) float64 {
	d := x - g.Mean
	return math.Exp(-(d * d) / (2 * g.StdDev * g.StdDev))
}

// Point is one sample of a curve.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Curve samples the overlay at points evenly spaced x in [lo, hi).
func (g Gaussian) Curve(lo, hi float64, points int) []Point {
	if points <= 0 {
		return nil
	}
	out := make([]Point, points)
	step := (hi - lo) / float64(points)
	for i := range out {
		x := lo + float64(i)*step
		out[i] = Point{X: x, Y: g.At(x)}
	}
	return out
}

// Distribution is the duration trend and spread of one partition.
type Distribution struct {
	RollingAverage []float64 `json:"rolling_average"`
	Histogram      Histogram `json:"histogram"`
	Gaussian       *Gaussian `json:"gaussian"`
}

// Distribute analyzes a list of durations.
func Distribute(durations []float64) Distribution {
	d := Distribution{
		RollingAverage: RollingAverage(durations, TrendWindow),
		Histogram:      NewHistogram(durations),
	}
	if g, ok := FitGaussian(durations); ok {
		d.Gaussian = &g
	}
	return d
}
