package engine

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the pipeline's Prometheus collectors. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	Recomputes      prometheus.Counter
	Failures        prometheus.Counter
	Duration        prometheus.Histogram
	Candles         prometheus.Gauge
	ProjectionPrice prometheus.Gauge
}

// NewMetrics creates the collectors and registers them on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Recomputes: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "cycles_recompute_total",
			Help: "Recompute passes started",
		}),
		Failures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "cycles_recompute_failures_total",
			Help: "Recompute passes that returned an error",
		}),
		Duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "cycles_recompute_duration_seconds",
			Help:    "Recompute pass latency",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5},
		}),
		Candles: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "cycles_candles",
			Help: "Candles held in the store",
		}),
		ProjectionPrice: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "cycles_projection_price",
			Help: "Last published target price, 0 when there is no projection",
		}),
	}
	reg.MustRegister(m.Recomputes, m.Failures, m.Duration, m.Candles, m.ProjectionPrice)
	return m
}

func (m *Metrics) observe(start time.Time, err error) {
	if m == nil {
		return
	}
	m.Recomputes.Inc()
	m.Duration.Observe(time.Since(start).Seconds())
	if err != nil {
		m.Failures.Inc()
	}
}

func (m *Metrics) candles(n int) {
	if m == nil {
		return
	}
	m.Candles.Set(float64(n))
}

func (m *Metrics) published(r *Result) {
	if m == nil {
		return
	}
	if r.Projection == nil {
		m.ProjectionPrice.Set(0)
		return
	}
	m.ProjectionPrice.Set(r.Projection.Price)
}
