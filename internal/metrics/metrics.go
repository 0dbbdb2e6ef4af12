package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	// OutcomeSuccess labels completed analyses.
	OutcomeSuccess = "success"
	// OutcomeError labels analyses that failed on a structural precondition.
	OutcomeError = "error"

	// StageRetrieval labels embedding->lexical fallbacks.
	StageRetrieval = "retrieval"
	// StageSynthesis labels narrative->deterministic fallbacks.
	StageSynthesis = "synthesis"
)

var (
	analysesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "risk_engine",
			Name:      "analyses_total",
			Help:      "Total number of events analyzed, partitioned by outcome.",
		},
		[]string{"outcome"},
	)

	analysisDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "risk_engine",
			Name:      "analysis_seconds",
			Help:      "End-to-end pipeline latency in seconds.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 3, 5, 8, 10},
		},
	)

	strategyFallbacksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "risk_engine",
			Name:      "strategy_fallbacks_total",
			Help:      "External-capability failures absorbed by a deterministic fallback, partitioned by pipeline stage.",
		},
		[]string{"stage"},
	)

	alertsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "risk_engine",
			Name:      "alerts_total",
			Help:      "High-risk alerts dispatched to the outbound webhook.",
		},
	)
)

// Register attaches risk-engine collectors to the supplied Prometheus
// registerer.
func Register(reg prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		analysesTotal,
		analysisDurationSeconds,
		strategyFallbacksTotal,
		alertsTotal,
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

// ObserveAnalysis records an analysis duration and outcome label.
func ObserveAnalysis(duration time.Duration, outcome string) {
	label := outcome
	if label != OutcomeError {
		label = OutcomeSuccess
	}
	analysesTotal.WithLabelValues(label).Inc()
	if duration < 0 {
		duration = 0
	}
	analysisDurationSeconds.Observe(duration.Seconds())
}

// ObserveFallback counts one strategy fallback for the given stage.
func ObserveFallback(stage string) {
	strategyFallbacksTotal.WithLabelValues(stage).Inc()
}

// ObserveAlert counts one dispatched high-risk alert.
func ObserveAlert() {
	alertsTotal.Inc()
}
