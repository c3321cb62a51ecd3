// Package telemetry records client-side metrics and traces for requests
// sent through the gateway and for session state changes.
package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for authgate.
// Pass to components that need to record metrics.
type Metrics struct {
	RequestsTotal      *prometheus.CounterVec
	RequestDuration    *prometheus.HistogramVec
	SessionActive      prometheus.Gauge
	SessionTransitions *prometheus.CounterVec
	StorageErrors      *prometheus.CounterVec
}

// NewMetrics creates and registers all metrics with the given registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	return &Metrics{
		RequestsTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "authgate",
				Name:      "requests_total",
				Help:      "Total number of API requests sent",
			},
			[]string{"method", "status"}, // status=ok/unauthorized/error
		),
		RequestDuration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "authgate",
				Name:      "request_duration_seconds",
				Help:      "API request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method"},
		),
		SessionActive: promauto.With(reg).NewGauge(
			prometheus.GaugeOpts{
				Namespace: "authgate",
				Name:      "session_authenticated",
				Help:      "1 while the session is authenticated, 0 otherwise",
			},
		),
		SessionTransitions: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "authgate",
				Name:      "session_transitions_total",
				Help:      "Total session state transitions",
			},
			[]string{"to"}, // to=authenticated/anonymous
		),
		StorageErrors: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "authgate",
				Name:      "storage_errors_total",
				Help:      "Total session storage failures",
			},
			[]string{"op"}, // op=load/save/delete
		),
	}
}

// WriteTextfile writes every metric gathered from g to path in the text
// exposition format, for pickup by a node exporter textfile collector.
// The file is replaced on every call and holds only this process's values.
func WriteTextfile(path string, g prometheus.Gatherer) error {
	return prometheus.WriteToTextfile(path, g)
}
