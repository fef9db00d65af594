// Package metrics exports generation loop outcomes as Prometheus metrics.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/hoanghonghuy/commitlab/internal/engine"
)

const namespace = "commitlab"

// Collector implements engine.Observer.
type Collector struct {
	attempts *prometheus.CounterVec
	latency  *prometheus.HistogramVec
	runs     *prometheus.CounterVec
}

// New creates the collectors and registers them on reg.
func New(reg prometheus.Registerer) (*Collector, error) {
	c := &Collector{
		attempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "attempts_total",
			Help:      "Provider attempts by outcome (accepted or rejection reason).",
		}, []string{"provider", "model", "strategy", "outcome"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "provider_latency_seconds",
			Help:      "Duration of provider calls.",
			Buckets:   []float64{0.25, 0.5, 1, 2, 4, 8, 16, 32, 64},
		}, []string{"provider", "model"}),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Finished loop invocations.",
		}, []string{"provider", "model", "strategy", "success"}),
	}

	for _, col := range []prometheus.Collector{c.attempts, c.latency, c.runs} {
		if err := reg.Register(col); err != nil {
			return nil, err
		}
	}
	return c, nil
}

func (c *Collector) ObserveAttempt(l engine.Labels, outcome string, latency time.Duration) {
	c.attempts.WithLabelValues(l.Provider, l.Model, l.Strategy, outcome).Inc()
	c.latency.WithLabelValues(l.Provider, l.Model).Observe(latency.Seconds())
}

func (c *Collector) ObserveRun(l engine.Labels, res engine.Result) {
	c.runs.WithLabelValues(l.Provider, l.Model, l.Strategy, strconv.FormatBool(res.Success)).Inc()
}

var _ engine.Observer = (*Collector)(nil)
