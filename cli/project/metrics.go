package project

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/fluxbase-eu/lambdagen/cli/bundler"
)

// Metrics holds the Prometheus metrics of a bundle run. They live in a
// private registry and are exported as a node_exporter textfile.
type Metrics struct {
	registry *prometheus.Registry

	bundlesTotal   *prometheus.CounterVec
	bundleDuration *prometheus.HistogramVec
	bundleSize     *prometheus.GaugeVec
	lastRun        prometheus.Gauge
}

// NewMetrics creates and registers the bundle metrics
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		bundlesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lambdagen_bundles_total",
				Help: "Total number of esbuild invocations by result",
			},
			[]string{"bundle", "status"},
		),
		bundleDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "lambdagen_bundle_duration_seconds",
				Help:    "esbuild invocation duration in seconds",
				Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60, 120},
			},
			[]string{"bundle"},
		),
		bundleSize: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "lambdagen_bundle_size_bytes",
				Help: "Size of the last successfully built bundle outfile",
			},
			[]string{"bundle"},
		),
		lastRun: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "lambdagen_last_run_timestamp_seconds",
				Help: "Unix time of the last bundle run",
			},
		),
	}
}

// RecordBundle records one finished invocation.
func (m *Metrics) RecordBundle(bundle string, duration time.Duration, err error) {
	if m == nil {
		return
	}
	m.bundlesTotal.WithLabelValues(bundle, status(err)).Inc()
	m.bundleDuration.WithLabelValues(bundle).Observe(duration.Seconds())
}

// RecordSize records the size of a bundle's outfile.
func (m *Metrics) RecordSize(bundle string, bytes int64) {
	if m == nil {
		return
	}
	m.bundleSize.WithLabelValues(bundle).Set(float64(bytes))
}

// MarkRun stamps the time of the run.
func (m *Metrics) MarkRun(t time.Time) {
	if m == nil {
		return
	}
	m.lastRun.Set(float64(t.Unix()))
}

// WriteTextfile writes the metrics in the text exposition format. The file is
// replaced atomically.
func (m *Metrics) WriteTextfile(path string) error {
	if m == nil || path == "" {
		return nil
	}
	return prometheus.WriteToTextfile(path, m.registry)
}

func status(err error) string {
	var exitErr *bundler.ExitError
	switch {
	case err == nil:
		return "success"
	case errors.As(err, &exitErr):
		return "failed"
	default:
		return "error"
	}
}
