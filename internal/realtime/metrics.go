package realtime

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sony/gobreaker/v2"
)

var (
	publishCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "carbontrackr",
		Subsystem: "realtime",
		Name:      "tips_published_total",
		Help:      "Number of tip events published to Redis grouped by kind and outcome.",
	}, []string{"kind", "outcome"})

	breakerStateGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "carbontrackr",
		Subsystem: "realtime",
		Name:      "breaker_state",
		Help:      "Circuit breaker state for Redis publishes (0 closed, 1 half-open, 2 open).",
	})
)

func init() {
	prometheus.MustRegister(publishCounter, breakerStateGauge)
}

func recordBreakerState(state gobreaker.State) {
	breakerStateGauge.Set(float64(state))
}
