package auth

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics for auth operations.
var (
	// AuthenticationAttempts counts authentication attempts.
	AuthenticationAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ueprofile",
			Subsystem: "auth",
			Name:      "authentication_attempts_total",
			Help:      "Total number of authentication attempts",
		},
		[]string{"status", "reason"},
	)

	// AuthenticationDuration measures authentication request duration.
	AuthenticationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "ueprofile",
			Subsystem: "auth",
			Name:      "authentication_duration_seconds",
			Help:      "Duration of authentication requests in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"status"},
	)

	// StorageOperations counts token storage operations.
	StorageOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ueprofile",
			Subsystem: "auth",
			Name:      "storage_operations_total",
			Help:      "Total number of token storage operations",
		},
		[]string{"operation", "status"},
	)
)

// RecordAuthenticationAttempt records an authentication attempt.
func RecordAuthenticationAttempt(status, reason string) {
	AuthenticationAttempts.WithLabelValues(status, reason).Inc()
}

// RecordAuthenticationDuration records authentication duration.
func RecordAuthenticationDuration(status string, seconds float64) {
	AuthenticationDuration.WithLabelValues(status).Observe(seconds)
}

// RecordStorageOperation records a token storage operation.
func RecordStorageOperation(operation, status string) {
	StorageOperations.WithLabelValues(operation, status).Inc()
}
