// Package metrics provides Prometheus metrics for the studio service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds all Prometheus collectors for the service.
type Metrics struct {
	GenerationsTotal *prometheus.CounterVec
	VideoPolls       prometheus.Histogram
	ChatMessages     *prometheus.CounterVec
	RequestsInFlight prometheus.Gauge

	registry *prometheus.Registry
}

// New creates and registers all collectors on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{registry: reg}

	m.GenerationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nexus_generations_total",
			Help: "Total media generation requests by mode and outcome",
		},
		[]string{"mode", "status"},
	)
	m.VideoPolls = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "nexus_video_polls",
			Help:    "Status polls issued per video generation",
			Buckets: []float64{0, 1, 2, 5, 10, 20, 40, 60},
		},
	)
	m.ChatMessages = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nexus_chat_messages_total",
			Help: "Chat transcript messages appended by role",
		},
		[]string{"role"},
	)
	m.RequestsInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "nexus_http_requests_in_flight",
			Help: "HTTP requests currently being processed",
		},
	)

	reg.MustRegister(m.GenerationsTotal, m.VideoPolls, m.ChatMessages, m.RequestsInFlight)
	return m
}

// Registry returns the backing registry for the /metrics handler.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
