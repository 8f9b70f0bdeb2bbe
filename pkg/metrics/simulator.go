package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// SimulatorMetrics contains Prometheus metrics for the simulator service.
type SimulatorMetrics struct {
	MessagesPublished *prometheus.CounterVec
	PublishFailures   *prometheus.CounterVec
	PublishDuration   *prometheus.HistogramVec
	ActiveSensors     prometheus.Gauge
	ReadingsGenerated prometheus.Counter
	BroadcastsIssued  prometheus.Counter
}

// NewSimulatorMetrics creates and registers simulator metrics.
func NewSimulatorMetrics(namespace string) *SimulatorMetrics {
	m := &SimulatorMetrics{
		MessagesPublished: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "simulator",
				Name:      "messages_published_total",
				Help:      "Total number of messages published",
			},
			[]string{"type"}, // type: fleet_reading, alert_broadcast
		),
		PublishFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "simulator",
				Name:      "publish_failures_total",
				Help:      "Total number of publish failures",
			},
			[]string{"type", "reason"},
		),
		PublishDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "simulator",
				Name:      "publish_duration_seconds",
				Help:      "Duration of publish operations",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"type"},
		),
		ActiveSensors: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "simulator",
				Name:      "active_sensors",
				Help:      "Number of simulated sensors in the fleet",
			},
		),
		ReadingsGenerated: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "simulator",
				Name:      "readings_generated_total",
				Help:      "Total number of fleet readings generated",
			},
		),
		BroadcastsIssued: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "simulator",
				Name:      "broadcasts_issued_total",
				Help:      "Total number of alert broadcasts issued",
			},
		),
	}

	MustRegister(
		m.MessagesPublished,
		m.PublishFailures,
		m.PublishDuration,
		m.ActiveSensors,
		m.ReadingsGenerated,
		m.BroadcastsIssued,
	)

	return m
}
