package analysis

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	runCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "carbontrackr",
		Subsystem: "analysis",
		Name:      "runs_total",
		Help:      "Number of weekly analysis runs grouped by window and outcome.",
	}, []string{"window", "outcome"})

	userFailureCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "carbontrackr",
		Subsystem: "analysis",
		Name:      "user_failures_total",
		Help:      "Per-user failures grouped by pipeline stage.",
	}, []string{"stage"})

	runDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "carbontrackr",
		Subsystem: "analysis",
		Name:      "run_duration_seconds",
		Help:      "Wall-clock duration of analysis runs.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"window"})

	lastSuccessGauge = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "carbontrackr",
		Subsystem: "analysis",
		Name:      "last_success_timestamp_seconds",
		Help:      "Unix timestamp of the most recent successful run per window.",
	}, []string{"window"})
)

func init() {
	prometheus.MustRegister(runCounter, userFailureCounter, runDuration, lastSuccessGauge)
}

func recordRun(window string, started time.Time, err error) {
	runDuration.WithLabelValues(window).Observe(time.Since(started).Seconds())
	if err != nil {
		runCounter.WithLabelValues(window, "error").Inc()
		return
	}
	runCounter.WithLabelValues(window, "success").Inc()
	lastSuccessGauge.WithLabelValues(window).Set(float64(time.Now().Unix()))
}

func recordUserFailure(stage string) {
	userFailureCounter.WithLabelValues(stage).Inc()
}
