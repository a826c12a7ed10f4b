// Package metrics provides Prometheus metrics instrumentation.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestDuration tracks HTTP request duration.
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path", "status"},
	)

	// RequestsTotal tracks total HTTP requests.
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// SweepRuns tracks scheduled sweep executions.
	SweepRuns = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "renewal_sweep_runs_total",
			Help: "Total orchestrator sweep executions",
		},
	)

	// SweepActions tracks per-branch sweep outcomes.
	SweepActions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "renewal_sweep_actions_total",
			Help: "Sweep actions by branch outcome",
		},
		[]string{"action"}, // initiated | followed_up | auto_listed | errored
	)

	// OffersDispatched tracks offers created, labelled by whether they were sent.
	OffersDispatched = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "renewal_offers_dispatched_total",
			Help: "Renewal offers created",
		},
		[]string{"channel", "sent"},
	)

	// NegotiationTurns tracks processed occupant replies by classification.
	NegotiationTurns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "renewal_negotiation_turns_total",
			Help: "Occupant replies processed, by classification",
		},
		[]string{"classification", "new_status"},
	)

	// Escalations tracks landlord escalations, by reason.
	Escalations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "renewal_escalations_total",
			Help: "Negotiations escalated to the landlord",
		},
		[]string{"reason"}, // floor_breach | model | ambiguous
	)

	// DraftDuration tracks drafting collaborator latency.
	DraftDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "renewal_draft_duration_seconds",
			Help:    "Drafting collaborator call duration",
			Buckets: []float64{.5, 1, 2, 5, 10, 20, 30, 60},
		},
		[]string{"operation", "provider"},
	)

	// DraftFallbacks tracks template fallbacks after collaborator failure.
	DraftFallbacks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "renewal_draft_fallbacks_total",
			Help: "Template fallbacks taken after drafting failures",
		},
		[]string{"operation"},
	)

	// LLMTokensTotal tracks total LLM tokens processed.
	LLMTokensTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "llm_tokens_total",
			Help: "Total LLM tokens processed",
		},
		[]string{"model", "direction"},
	)
)

// RecordRequest records metrics for an HTTP request.
func RecordRequest(method, path, status string, duration float64) {
	RequestDuration.WithLabelValues(method, path, status).Observe(duration)
	RequestsTotal.WithLabelValues(method, path, status).Inc()
}

// RecordDraft records a drafting collaborator call.
func RecordDraft(operation, provider string, duration float64, tokensIn, tokensOut int) {
	DraftDuration.WithLabelValues(operation, provider).Observe(duration)
	LLMTokensTotal.WithLabelValues(provider, "in").Add(float64(tokensIn))
	LLMTokensTotal.WithLabelValues(provider, "out").Add(float64(tokensOut))
}
