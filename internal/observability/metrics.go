package observability

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	// Metric status labels.
	statusSuccess = "success"
	statusError   = "error"
)

// Metrics holds all Prometheus metrics for the UE profile service.
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal     *prometheus.CounterVec
	HTTPRequestDuration   *prometheus.HistogramVec
	HTTPRequestsInFlight  prometheus.Gauge
	HTTPResponseSizeBytes *prometheus.HistogramVec

	// Profile metrics
	ProfileOperationsTotal   *prometheus.CounterVec
	ProfileOperationDuration *prometheus.HistogramVec
	ProfilesGeneratedTotal   prometheus.Counter
	ProfilesStored           prometheus.Gauge
	ValidationFailuresTotal  *prometheus.CounterVec

	// Redis metrics
	RedisOperationsTotal   *prometheus.CounterVec
	RedisOperationDuration *prometheus.HistogramVec
	RedisErrorsTotal       *prometheus.CounterVec
}

var (
	// globalMetrics is the singleton metrics instance.
	globalMetrics *Metrics
	metricsMu     sync.Mutex
)

// InitMetrics initializes and registers all Prometheus metrics on the
// default registry. Returns the existing metrics instance if already
// initialized (idempotent).
func InitMetrics(namespace string) *Metrics {
	metricsMu.Lock()
	defer metricsMu.Unlock()

	if globalMetrics != nil {
		return globalMetrics
	}
	globalMetrics = NewMetrics(namespace, prometheus.DefaultRegisterer)
	return globalMetrics
}

// NewMetrics creates the metric set and registers it on reg.
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	if namespace == "" {
		namespace = "ueprofile"
	}
	factory := promauto.With(reg)

	return &Metrics{
		// HTTP metrics
		HTTPRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),

		HTTPRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request latency in seconds",
				Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "path", "status"},
		),

		HTTPRequestsInFlight: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "http_requests_in_flight",
				Help:      "Number of HTTP requests currently being processed",
			},
		),

		HTTPResponseSizeBytes: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_response_size_bytes",
				Help:      "HTTP response size in bytes",
				Buckets:   prometheus.ExponentialBuckets(100, 10, 8),
			},
			[]string{"method", "path"},
		),

		// Profile metrics
		ProfileOperationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "profile_operations_total",
				Help:      "Total number of UE profile operations",
			},
			[]string{"operation", "status"},
		),

		ProfileOperationDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "profile_operation_duration_seconds",
				Help:      "UE profile operation duration in seconds",
				Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
			},
			[]string{"operation"},
		),

		ProfilesGeneratedTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "profiles_generated_total",
				Help:      "Total number of UE profiles produced by the generator",
			},
		),

		ProfilesStored: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "profiles_stored",
				Help:      "Number of UE profiles returned by the last unfiltered list",
			},
		),

		ValidationFailuresTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "validation_failures_total",
				Help:      "Total number of rejected profile payloads",
			},
			[]string{"operation"},
		),

		// Redis metrics
		RedisOperationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "redis_operations_total",
				Help:      "Total number of Redis operations",
			},
			[]string{"operation", "status"},
		),

		RedisOperationDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "redis_operation_duration_seconds",
				Help:      "Redis operation duration in seconds",
				Buckets:   []float64{.0001, .0005, .001, .005, .01, .025, .05, .1, .25, .5},
			},
			[]string{"operation"},
		),

		RedisErrorsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "redis_errors_total",
				Help:      "Total number of Redis errors",
			},
			[]string{"operation", "error_type"},
		),
	}
}

// GetMetrics returns the global metrics instance.
func GetMetrics() *Metrics {
	metricsMu.Lock()
	defer metricsMu.Unlock()

	if globalMetrics == nil {
		panic("metrics not initialized - call InitMetrics first")
	}
	return globalMetrics
}

// RecordHTTPRequest records HTTP request metrics.
func (m *Metrics) RecordHTTPRequest(method, path string, statusCode int, duration time.Duration, responseSize int) {
	status := strconv.Itoa(statusCode)
	m.HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())
	m.HTTPResponseSizeBytes.WithLabelValues(method, path).Observe(float64(responseSize))
}

// RecordProfileOperation records a profile operation.
func (m *Metrics) RecordProfileOperation(operation string, duration time.Duration, err error) {
	status := statusSuccess
	if err != nil {
		status = statusError
	}
	m.ProfileOperationsTotal.WithLabelValues(operation, status).Inc()
	m.ProfileOperationDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordProfilesGenerated adds n generated profiles.
func (m *Metrics) RecordProfilesGenerated(n int) {
	m.ProfilesGeneratedTotal.Add(float64(n))
}

// SetProfileCount sets the number of stored profiles.
func (m *Metrics) SetProfileCount(count int) {
	m.ProfilesStored.Set(float64(count))
}

// RecordValidationFailure records a rejected payload.
func (m *Metrics) RecordValidationFailure(operation string) {
	m.ValidationFailuresTotal.WithLabelValues(operation).Inc()
}

// RecordRedisOperation records Redis operation metrics.
func (m *Metrics) RecordRedisOperation(operation string, duration time.Duration, err error) {
	status := statusSuccess
	if err != nil {
		status = statusError
		m.RedisErrorsTotal.WithLabelValues(operation, "general").Inc()
	}
	m.RedisOperationsTotal.WithLabelValues(operation, status).Inc()
	m.RedisOperationDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// HTTPInFlightInc increments the in-flight HTTP request counter.
func (m *Metrics) HTTPInFlightInc() {
	m.HTTPRequestsInFlight.Inc()
}

// HTTPInFlightDec decrements the in-flight HTTP request counter.
func (m *Metrics) HTTPInFlightDec() {
	m.HTTPRequestsInFlight.Dec()
}
