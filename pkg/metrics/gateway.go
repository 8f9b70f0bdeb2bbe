package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// GatewayMetrics contains Prometheus metrics for the gateway service.
type GatewayMetrics struct {
	HTTPRequestsTotal     *prometheus.CounterVec
	HTTPRequestDuration   *prometheus.HistogramVec
	HTTPRequestsInFlight  *prometheus.GaugeVec
	RecordOpsTotal        *prometheus.CounterVec
	RecordOpDuration      *prometheus.HistogramVec
	ObjectUploadsTotal    *prometheus.CounterVec
	ObjectBytesStored     prometheus.Counter
	ConsumerMessagesTotal *prometheus.CounterVec
	ConsumerErrors        *prometheus.CounterVec
	AlertsFannedOut       prometheus.Counter
	AuthAttemptsTotal     *prometheus.CounterVec
}

// NewGatewayMetrics creates and registers gateway service metrics.
func NewGatewayMetrics(namespace string) *GatewayMetrics {
	m := &GatewayMetrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "route", "status_code"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "request_duration_seconds",
				Help:      "Duration of HTTP requests",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		HTTPRequestsInFlight: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "requests_in_flight",
				Help:      "Number of HTTP requests currently being processed",
			},
			[]string{"method", "route"},
		),
		RecordOpsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "records",
				Name:      "operations_total",
				Help:      "Total number of record store operations",
			},
			[]string{"table", "op", "status"}, // op: select, update, insert
		),
		RecordOpDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "records",
				Name:      "operation_duration_seconds",
				Help:      "Duration of record store operations",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"table", "op"},
		),
		ObjectUploadsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "objects",
				Name:      "uploads_total",
				Help:      "Total number of object uploads",
			},
			[]string{"bucket", "status"},
		),
		ObjectBytesStored: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "objects",
				Name:      "bytes_stored_total",
				Help:      "Total bytes written to the object store",
			},
		),
		ConsumerMessagesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "consumer",
				Name:      "messages_total",
				Help:      "Total number of messages consumed",
			},
			[]string{"queue", "status"},
		),
		ConsumerErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "consumer",
				Name:      "errors_total",
				Help:      "Total number of consumer errors",
			},
			[]string{"queue", "error_type"},
		),
		AlertsFannedOut: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "consumer",
				Name:      "alerts_fanned_out_total",
				Help:      "Total number of per-user alerts created from broadcasts",
			},
		),
		AuthAttemptsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "auth",
				Name:      "attempts_total",
				Help:      "Total number of authentication attempts",
			},
			[]string{"kind", "status"}, // kind: signup, login, token
		),
	}

	MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.HTTPRequestsInFlight,
		m.RecordOpsTotal,
		m.RecordOpDuration,
		m.ObjectUploadsTotal,
		m.ObjectBytesStored,
		m.ConsumerMessagesTotal,
		m.ConsumerErrors,
		m.AlertsFannedOut,
		m.AuthAttemptsTotal,
	)

	return m
}
