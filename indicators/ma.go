package indicators

import "fmt"

// SMA returns the simple moving average series of values. The first
// period-1 positions are Unavailable.
func SMA(values []float64, period int) (Series, error) {
	if period <= 0 {
		return nil, fmt.Errorf("period must be positive, got %d", period)
	}

	out := unavailable(len(values))
	sum := 0.0
	for i, v := range values {
		sum += v
		if i >= period {
			sum -= values[i-period]
		}
		if i >= period-1 {
			out[i] = sum / float64(period)
		}
	}
	return out, nil
}

// EMA returns the exponential moving average series of values, seeded with
// the SMA of the first period values. Earlier positions are Unavailable.
func EMA(values []float64, period int) (Series, error) {
	if period <= 0 {
		return nil, fmt.Errorf("period must be positive, got %d", period)
	}

	out := unavailable(len(values))
	if len(values) < period {
		return out, nil
	}

	multiplier := 2.0 / float64(period+1)

	sma := 0.0
	for i := 0; i < period; i++ {
		sma += values[i]
	}
	ema := sma / float64(period)
	out[period-1] = ema

	for i := period; i < len(values); i++ {
		ema = (values[i]-ema)*multiplier + ema
		out[i] = ema
	}
	return out, nil
}

func unavailable(n int) Series {
	out := make(Series, n)
	for i := range out {
		out[i] = Unavailable
	}
	return out
}
