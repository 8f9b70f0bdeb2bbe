package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// FrontendMetrics contains Prometheus metrics for the frontend service.
type FrontendMetrics struct {
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	GatewayCalls         *prometheus.CounterVec
	GatewayCallDuration  *prometheus.HistogramVec
	ScreenRenderTime     *prometheus.HistogramVec
	ScreenRenderErrors   *prometheus.CounterVec
	SensorScansTotal     *prometheus.CounterVec
	SensorFallbacksTotal prometheus.Counter
}

// NewFrontendMetrics creates and registers frontend service metrics.
func NewFrontendMetrics(namespace string) *FrontendMetrics {
	m := &FrontendMetrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "path", "status_code"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "request_duration_seconds",
				Help:      "Duration of HTTP requests",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		GatewayCalls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "gateway_client",
				Name:      "calls_total",
				Help:      "Total number of gateway client calls",
			},
			[]string{"operation", "status"},
		),
		GatewayCallDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "gateway_client",
				Name:      "call_duration_seconds",
				Help:      "Duration of gateway client calls",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		ScreenRenderTime: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "screen",
				Name:      "render_duration_seconds",
				Help:      "Duration of screen rendering",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"screen"},
		),
		ScreenRenderErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "screen",
				Name:      "render_errors_total",
				Help:      "Total number of screen rendering errors",
			},
			[]string{"screen", "error_type"},
		),
		SensorScansTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "sensor",
				Name:      "scans_total",
				Help:      "Total number of sensor scan attempts",
			},
			[]string{"outcome"}, // outcome: ok, superseded
		),
		SensorFallbacksTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "sensor",
				Name:      "fallbacks_total",
				Help:      "Total number of scans that fell back to synthetic data",
			},
		),
	}

	MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.GatewayCalls,
		m.GatewayCallDuration,
		m.ScreenRenderTime,
		m.ScreenRenderErrors,
		m.SensorScansTotal,
		m.SensorFallbacksTotal,
	)

	return m
}
