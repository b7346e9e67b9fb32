package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Rule evaluation metrics.
//
// All metrics are automatically registered with Prometheus.

var (
	// RuleEvaluationsTotal counts rule evaluations.
	// Labels:
	//   - result: "match", "no_match", "no_rule" or "budget_exceeded"
	RuleEvaluationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "alertfilter",
			Subsystem: "rules",
			Name:      "evaluations_total",
			Help:      "Total number of publish filter rule evaluations",
		},
		[]string{"result"},
	)

	// RuleEvaluationDuration measures evaluation time, 1μs to 100ms.
	RuleEvaluationDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "alertfilter",
			Subsystem: "rules",
			Name:      "evaluation_duration_seconds",
			Help:      "Time spent evaluating publish filter rules",
			Buckets: []float64{
				0.000001,
				0.00001,
				0.0001,
				0.001,
				0.01,
				0.1,
			},
		},
	)

	// RuleParseErrorsTotal counts stored rules that could not be parsed.
	// Labels:
	//   - reason: "syntax", "too_deep", "too_large" or "other"
	RuleParseErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "alertfilter",
			Subsystem: "rules",
			Name:      "parse_errors_total",
			Help:      "Total number of stored rules that failed to parse",
		},
		[]string{"reason"},
	)

	// RuleCacheSize tracks the number of parsed rules held in memory.
	RuleCacheSize = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "alertfilter",
			Subsystem: "rules",
			Name:      "cache_size",
			Help:      "Number of parsed rules in the cache",
		},
	)
)

// RecordRuleEvaluation records one evaluation outcome and its duration.
func RecordRuleEvaluation(result string, durationSec float64) {
	RuleEvaluationsTotal.WithLabelValues(result).Inc()
	RuleEvaluationDuration.Observe(durationSec)
}

// RecordParseError records a stored rule that failed to parse.
func RecordParseError(reason string) {
	RuleParseErrorsTotal.WithLabelValues(reason).Inc()
}

// UpdateRuleCacheSize sets the rule cache size gauge.
func UpdateRuleCacheSize(size int) {
	RuleCacheSize.Set(float64(size))
}
