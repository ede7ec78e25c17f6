// Package observability provides build metrics and tracing.
package observability

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus metrics of one libbuild invocation. A build is
// a short-lived batch job, so metrics go to a node_exporter textfile rather
// than an HTTP endpoint.
type Metrics struct {
	registry *prometheus.Registry

	passesTotal   *prometheus.CounterVec
	passDuration  *prometheus.HistogramVec
	outputBytes   *prometheus.CounterVec
	outputsTotal  *prometheus.CounterVec
	lastSuccessTS prometheus.Gauge
}

// NewMetrics creates the metrics on a private registry
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		passesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "libbuild_passes_total",
				Help: "Total number of build passes by outcome",
			},
			[]string{"pass", "status"},
		),
		passDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "libbuild_pass_duration_seconds",
				Help:    "Build pass duration in seconds",
				Buckets: []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
			},
			[]string{"pass"},
		),
		outputBytes: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "libbuild_output_bytes_total",
				Help: "Bytes written per output format",
			},
			[]string{"pass", "format"},
		),
		outputsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "libbuild_outputs_total",
				Help: "Number of output files written per format",
			},
			[]string{"pass", "format"},
		),
		lastSuccessTS: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "libbuild_last_success_timestamp_seconds",
				Help: "Unix time of the last successful build pass",
			},
		),
	}
}

// RecordPass records the duration and outcome of a build pass
func (m *Metrics) RecordPass(pass string, duration time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	m.passesTotal.WithLabelValues(pass, status).Inc()
	m.passDuration.WithLabelValues(pass).Observe(duration.Seconds())
	if err == nil {
		m.lastSuccessTS.SetToCurrentTime()
	}
}

// RecordOutput records one written output file
func (m *Metrics) RecordOutput(pass, format string, bytes int) {
	m.outputsTotal.WithLabelValues(pass, format).Inc()
	m.outputBytes.WithLabelValues(pass, format).Add(float64(bytes))
}

// Registry exposes the underlying registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// WriteTextfile writes every metric to path in the text exposition format
func (m *Metrics) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("failed to write metrics file: %w", err)
	}
	return nil
}
