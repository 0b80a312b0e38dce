// Package metrics defines the Prometheus collectors for the HTTP boundary and
// the report pipeline.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all collectors. A nil *Metrics records nothing.
type Metrics struct {
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge
	StageDuration        *prometheus.HistogramVec
	PipelineOutcomes     *prometheus.CounterVec
	UploadsReleased      *prometheus.CounterVec

	gatherer prometheus.Gatherer
}

// New creates the collectors and registers them with reg.
func New(reg *prometheus.Registry) *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests by method, route, and status.",
			},
			[]string{"method", "route", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request latency in seconds.",
				Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
			},
			[]string{"method", "route"},
		),
		HTTPRequestsInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "http_requests_in_flight",
				Help: "Number of HTTP requests currently being processed.",
			},
		),
		StageDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "report_pipeline_stage_duration_seconds",
				Help:    "Latency of each pipeline stage in seconds.",
				Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 20, 40, 80, 160},
			},
			[]string{"stage"},
		),
		PipelineOutcomes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "report_pipeline_outcomes_total",
				Help: "Completed pipeline runs by result and failed stage.",
			},
			[]string{"result", "stage"},
		),
		UploadsReleased: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "report_uploads_released_total",
				Help: "Transient upload releases by result (removed, error).",
			},
			[]string{"result"},
		),
		gatherer: reg,
	}

	reg.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.HTTPRequestsInFlight,
		m.StageDuration,
		m.PipelineOutcomes,
		m.UploadsReleased,
	)
	return m
}

// ObserveStage records how long a pipeline stage took.
func (m *Metrics) ObserveStage(stage string, d time.Duration) {
	if m == nil {
		return
	}
	m.StageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

// ObserveOutcome counts a finished pipeline run. failedStage is empty on success.
func (m *Metrics) ObserveOutcome(failedStage string) {
	if m == nil {
		return
	}
	result := "success"
	if failedStage != "" {
		result = "failure"
	}
	m.PipelineOutcomes.WithLabelValues(result, failedStage).Inc()
}

// ObserveRelease counts a transient upload release.
func (m *Metrics) ObserveRelease(err error) {
	if m == nil {
		return
	}
	result := "removed"
	if err != nil {
		result = "error"
	}
	m.UploadsReleased.WithLabelValues(result).Inc()
}

// Handler exposes the registered collectors for scraping.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
