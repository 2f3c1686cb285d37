package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	// OutcomeSuccess labels requests and refreshes that completed.
	OutcomeSuccess = "success"
	// OutcomeError labels requests and refreshes that failed permanently.
	OutcomeError = "error"
)

var (
	requestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "opsboard",
			Name:      "requests_total",
			Help:      "Total number of pipeline requests, partitioned by method and outcome.",
		},
		[]string{"method", "outcome"},
	)

	retriesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "opsboard",
			Name:      "retries_total",
			Help:      "Total number of retry attempts issued for idempotent reads.",
		},
	)

	tokenRefreshTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "opsboard",
			Name:      "token_refresh_total",
			Help:      "Total number of token refreshes, partitioned by outcome.",
		},
		[]string{"outcome"},
	)

	requestDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "opsboard",
			Name:      "request_seconds",
			Help:      "Pipeline request latency in seconds, retries included.",
			Buckets:   []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		},
	)

	auditDroppedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "opsboard",
			Name:      "audit_dropped_total",
			Help:      "Audit entries dropped because the queue was full or storage failed.",
		},
	)
)

// Register attaches opsboard collectors to the supplied Prometheus registerer.
func Register(reg prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		requestsTotal,
		retriesTotal,
		tokenRefreshTotal,
		requestDurationSeconds,
		auditDroppedTotal,
	}

	for _, collector := range collectors {
		if err := reg.Register(collector); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); ok {
				continue
			}
			return err
		}
	}
	return nil
}

// ObserveRequest records a pipeline request duration and outcome label.
func ObserveRequest(method string, duration time.Duration, outcome string) {
	requestsTotal.WithLabelValues(method, normaliseOutcome(outcome)).Inc()
	if duration < 0 {
		duration = 0
	}
	requestDurationSeconds.Observe(duration.Seconds())
}

// IncRetry counts one retry attempt.
func IncRetry() {
	retriesTotal.Inc()
}

// ObserveRefresh counts one token refresh.
func ObserveRefresh(outcome string) {
	tokenRefreshTotal.WithLabelValues(normaliseOutcome(outcome)).Inc()
}

// IncAuditDropped counts one dropped audit entry.
func IncAuditDropped() {
	auditDroppedTotal.Inc()
}

func normaliseOutcome(outcome string) string {
	if outcome != OutcomeError {
		return OutcomeSuccess
	}
	return OutcomeError
}
