// Package observability holds process-wide Prometheus metrics shared across packages.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	activityPersistGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "carbontrackr",
		Subsystem: "persistence",
		Name:      "last_activity_persisted_timestamp_seconds",
		Help:      "Unix timestamp of the most recent activity persisted to Postgres.",
	})
	summaryWrittenGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "carbontrackr",
		Subsystem: "persistence",
		Name:      "last_summary_written_timestamp_seconds",
		Help:      "Unix timestamp of the most recent weekly summary upsert.",
	})
)

func init() {
	prometheus.MustRegister(activityPersistGauge, summaryWrittenGauge)
}

// RecordActivityPersisted updates the persistence watermark gauge.
func RecordActivityPersisted(ts time.Time) {
	if ts.IsZero() {
		return
	}
	activityPersistGauge.Set(float64(ts.Unix()))
}

// RecordSummaryWritten updates the summary watermark gauge.
func RecordSummaryWritten(ts time.Time) {
	if ts.IsZero() {
		return
	}
	summaryWrittenGauge.Set(float64(ts.Unix()))
}
