// Package prommetrics implements kmeansbench.MetricsCollector on Prometheus.
package prommetrics

import (
	"errors"
	"net/http"
	"time"

	"github.com/hupe1980/kmeansbench"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Namespace prefixes every metric name.
const Namespace = "kmeansbench"

// Collector records benchmark metrics in its own registry.
type Collector struct {
	registry *prometheus.Registry

	execSeconds *prometheus.HistogramVec
	execs       *prometheus.CounterVec
	skips       *prometheus.CounterVec
	failures    *prometheus.CounterVec
	lastDim     *prometheus.GaugeVec
}

var _ kmeansbench.MetricsCollector = (*Collector)(nil)

// New creates a Collector with the default Go and process collectors
// registered next to the benchmark metrics.
func New() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		execSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "exec_seconds",
			Help:      "Clustering time per engine run.",
			Buckets:   prometheus.ExponentialBuckets(1e-5, 4, 12),
		}, []string{"engine"}),
		execs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "exec_total",
			Help:      "Engine runs by outcome.",
		}, []string{"engine", "status"}),
		skips: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "skipped_total",
			Help:      "Engines skipped because their result file existed.",
		}, []string{"engine"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "failures_total",
			Help:      "Engine sweeps aborted by an error.",
		}, []string{"engine"}),
		lastDim: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "last_dimension",
			Help:      "Image dimension of the most recent run per engine.",
		}, []string{"engine"}),
	}

	c.registry.MustRegister(
		c.execSeconds,
		c.execs,
		c.skips,
		c.failures,
		c.lastDim,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return c
}

// Registry returns the registry holding the metrics.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the metrics in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// WriteToTextfile writes the metrics for the node exporter textfile collector.
func (c *Collector) WriteToTextfile(path string) error {
	return prometheus.WriteToTextfile(path, c.registry)
}

// RecordExec implements kmeansbench.MetricsCollector.
func (c *Collector) RecordExec(engine string, dim, _ int, d time.Duration, err error) {
	status := "ok"
	switch {
	case err == nil:
		c.execSeconds.WithLabelValues(engine).Observe(d.Seconds())
	case errors.Is(err, kmeansbench.ErrInvalidClusterCount):
		status = "invalid"
	default:
		status = "error"
	}
	c.execs.WithLabelValues(engine, status).Inc()
	c.lastDim.WithLabelValues(engine).Set(float64(dim))
}

// RecordSkip implements kmeansbench.MetricsCollector.
func (c *Collector) RecordSkip(engine string) {
	c.skips.WithLabelValues(engine).Inc()
}

// RecordFailure implements kmeansbench.MetricsCollector.
func (c *Collector) RecordFailure(engine string, _ error) {
	c.failures.WithLabelValues(engine).Inc()
}
