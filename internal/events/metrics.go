package events

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	eventsPublishedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ueprofile",
			Subsystem: "events",
			Name:      "published_total",
			Help:      "Total number of profile events published",
		},
		[]string{"event_type", "status"},
	)

	eventsConsumedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ueprofile",
			Subsystem: "events",
			Name:      "consumed_total",
			Help:      "Total number of profile events read from the stream",
		},
		[]string{"consumer_group", "status"},
	)
)

// RecordEventPublished records a publish attempt.
func RecordEventPublished(eventType Type, status string) {
	eventsPublishedTotal.WithLabelValues(eventType.String(), status).Inc()
}

// RecordEventConsumed records an event read by a consumer group.
func RecordEventConsumed(consumerGroup, status string) {
	eventsConsumedTotal.WithLabelValues(consumerGroup, status).Inc()
}
