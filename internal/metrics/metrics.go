// Package metrics holds the Prometheus collectors for the conversion
// workflow. Collectors register on the default registry.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	SessionsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "j2ado_sessions_created_total",
		Help: "Uploaded Jenkins files that started a conversion session",
	})

	StepRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "j2ado_step_runs_total",
		Help: "Workflow step executions by step and outcome",
	}, []string{"step", "outcome"})

	StepDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "j2ado_step_duration_seconds",
		Help:    "Workflow step latency",
		Buckets: []float64{.001, .01, .1, .5, 1, 2.5, 5, 10, 30, 60, 120},
	}, []string{"step"})

	LLMRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "j2ado_llm_requests_total",
		Help: "Outbound generative-text calls by provider, purpose and result",
	}, []string{"provider", "purpose", "result"})

	LLMLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "j2ado_llm_request_duration_seconds",
		Help:    "Outbound generative-text call latency",
		Buckets: prometheus.ExponentialBuckets(0.25, 2, 10),
	}, []string{"provider", "purpose"})

	EvaluationScore = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "j2ado_evaluation_overall_score",
		Help:    "Overall score reported by the evaluation step",
		Buckets: prometheus.LinearBuckets(0, 1, 11),
	})

	Approvals = promauto.NewCounter(prometheus.CounterOpts{
		Name: "j2ado_approvals_total",
		Help: "Conversions approved and recorded in the ledger",
	})
)

// ObserveLLM records one outbound call started at start.
func ObserveLLM(provider, purpose string, start time.Time, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	LLMRequests.WithLabelValues(provider, purpose, result).Inc()
	LLMLatency.WithLabelValues(provider, purpose).Observe(time.Since(start).Seconds())
}

// ObserveStep records one workflow step execution.
func ObserveStep(step, outcome string, d time.Duration) {
	StepRuns.WithLabelValues(step, outcome).Inc()
	StepDuration.WithLabelValues(step).Observe(d.Seconds())
}
