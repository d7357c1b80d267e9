package outbox

import "github.com/prometheus/client_golang/prometheus"

// DLQ entry outcomes recorded by the manager.
const (
	outcomeRequeued       = "requeued"
	outcomeRetryScheduled = "retry_scheduled"
	outcomeQuarantined    = "quarantined"
)

var (
	publishedEvents = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "carbontrackr",
		Subsystem: "outbox",
		Name:      "events_published_total",
		Help:      "Outbox events written to Kafka, by event type.",
	}, []string{"event_type"})

	failedEvents = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "carbontrackr",
		Subsystem: "outbox",
		Name:      "events_failed_total",
		Help:      "Outbox events whose Kafka write failed, by event type.",
	}, []string{"event_type"})

	deadLetteredEvents = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "carbontrackr",
		Subsystem: "outbox",
		Name:      "events_dead_lettered_total",
		Help:      "Outbox events moved to outbox_dlq, by topic and event type.",
	}, []string{"topic", "event_type"})

	batchDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "carbontrackr",
		Subsystem: "outbox",
		Name:      "batch_duration_seconds",
		Help:      "Wall time of a non-empty dispatcher batch, from claim to mark.",
		Buckets:   prometheus.ExponentialBuckets(0.005, 2, 12),
	})

	batchEvents = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "carbontrackr",
		Subsystem: "outbox",
		Name:      "batch_events",
		Help:      "Number of events claimed per non-empty batch.",
		Buckets:   prometheus.LinearBuckets(1, 5, 10),
	})

	dlqEntries = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "carbontrackr",
		Subsystem: "dlq",
		Name:      "entries_total",
		Help:      "DLQ entries handled by the manager, by event type and outcome.",
	}, []string{"event_type", "outcome"})

	dlqBacklog = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "carbontrackr",
		Subsystem: "dlq",
		Name:      "backlog_entries",
		Help:      "DLQ entries that are neither requeued nor quarantined.",
	})
)

func init() {
	prometheus.MustRegister(publishedEvents, failedEvents, deadLetteredEvents, batchDuration, batchEvents, dlqEntries, dlqBacklog)
}

func countByEventType(vec *prometheus.CounterVec, messages []Message) {
	for _, msg := range messages {
		vec.WithLabelValues(msg.EventType).Inc()
	}
}

func recordDLQOutcome(entry dlqEntry, outcome string) {
	dlqEntries.WithLabelValues(entry.EventType, outcome).Inc()
}
