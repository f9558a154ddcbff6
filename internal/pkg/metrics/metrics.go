package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	WebhookOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "webhook_outcomes_total",
			Help: "Webhook notifications handled, by pipeline outcome",
		},
		[]string{"outcome"},
	)

	EventsPublished = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "payment_events_published_total",
			Help: "PaymentProcessed events acknowledged by the broker",
		},
	)

	// EventPublishFailures counts events that were lost after the payment was
	// already committed. This is the alert signal for the persist-then-publish
	// gap: the payment stands, the downstream propagation did not happen.
	EventPublishFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "payment_event_publish_failures_total",
			Help: "PaymentProcessed events dropped after exhausting publish retries",
		},
	)

	EnrollmentEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "enrollment_events_total",
			Help: "PaymentProcessed events consumed, by result",
		},
		[]string{"result"},
	)

	CapacityDecrements = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "capacity_decrements_total",
			Help: "Schedule seats taken by the enrollment consumer",
		},
	)

	CacheInvalidationFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "cache_invalidation_failures_total",
			Help: "Cache invalidations that failed and were left to TTL expiry",
		},
	)
)
