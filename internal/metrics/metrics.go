// Package metrics holds the Prometheus metrics for textry.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	globalMetrics *Metrics
	globalMu      sync.RWMutex
)

// Metrics holds all Prometheus metrics for textry
type Metrics struct {
	// Message counters
	MessagesSentTotal   prometheus.Counter
	MessagesFailedTotal prometheus.Counter

	// Session gauges
	SessionRunning  prometheus.Gauge
	SessionProgress prometheus.Gauge

	// API metrics
	APIRequestsTotal          *prometheus.CounterVec
	APIRequestDurationSeconds *prometheus.HistogramVec

	registry *prometheus.Registry
}

// New creates a new Metrics instance with all metrics registered
func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		MessagesSentTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "textry_messages_sent_total",
				Help: "Total number of messages accepted by the transport",
			},
		),
		MessagesFailedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "textry_messages_failed_total",
				Help: "Total number of messages that failed to send",
			},
		),
		SessionRunning: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "textry_session_running",
				Help: "1 while a send session is actively dispatching",
			},
		),
		SessionProgress: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "textry_session_progress",
				Help: "Completed fraction of the current session (0..1)",
			},
		),
		APIRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "textry_api_requests_total",
				Help: "Total number of API requests",
			},
			[]string{"method", "path", "status"},
		),
		APIRequestDurationSeconds: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "textry_api_request_duration_seconds",
				Help:    "API request duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "path"},
		),

		registry: reg,
	}

	reg.MustRegister(
		m.MessagesSentTotal,
		m.MessagesFailedTotal,
		m.SessionRunning,
		m.SessionProgress,
		m.APIRequestsTotal,
		m.APIRequestDurationSeconds,
	)

	return m
}

// Registry returns the Prometheus registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// SetGlobal sets the global metrics instance
func SetGlobal(m *Metrics) {
	globalMu.Lock()
	defer globalMu.Unlock()
	globalMetrics = m
}

// Global returns the global metrics instance
func Global() *Metrics {
	globalMu.RLock()
	defer globalMu.RUnlock()
	return globalMetrics
}

// IncMessagesSent increments the sent message counter
func IncMessagesSent() {
	m := Global()
	if m != nil {
		m.MessagesSentTotal.Inc()
	}
}

// IncMessagesFailed increments the failed message counter
func IncMessagesFailed() {
	m := Global()
	if m != nil {
		m.MessagesFailedTotal.Inc()
	}
}

// SetSessionRunning updates the session running gauge
func SetSessionRunning(running bool) {
	m := Global()
	if m != nil {
		if running {
			m.SessionRunning.Set(1)
		} else {
			m.SessionRunning.Set(0)
		}
	}
}

// SetSessionProgress updates the session progress gauge
func SetSessionProgress(fraction float64) {
	m := Global()
	if m != nil {
		m.SessionProgress.Set(fraction)
	}
}
