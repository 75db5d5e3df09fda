// Package metrics exposes Prometheus instruments for generation episodes,
// provider calls, the circuit breaker and the semantic agents.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/phrazzld/scry-forge/internal/breaker"
)

const namespace = "forge"

// Episode outcomes.
const (
	OutcomeComplete           = "complete"
	OutcomeShort              = "short"
	OutcomeInvalidRequest     = "invalid_request"
	OutcomeQuotaExhausted     = "quota_exhausted"
	OutcomeProviderFailure    = "provider_failure"
	OutcomePersistenceFailure = "persistence_failure"
	OutcomeError              = "error"
)

// Provider call phases.
const (
	PhasePrimary  = "primary"
	PhaseBackfill = "backfill"
)

// Reasons a task is dropped from a batch.
const (
	DropStructural = "structural"
	DropUnselected = "unselected"
	DropSurplus    = "surplus"
)

// Metrics holds all Prometheus instruments of the worker.
type Metrics struct {
	Episodes        *prometheus.CounterVec
	EpisodeDuration prometheus.Histogram
	ProviderCalls   *prometheus.CounterVec
	Backfills       prometheus.Counter
	DroppedTasks    *prometheus.CounterVec
	AgentIssues     *prometheus.CounterVec
	AgentFailures   *prometheus.CounterVec
	AutoFixes       *prometheus.CounterVec
	DeliveredTasks  prometheus.Counter
	BreakerState    prometheus.Gauge
	BreakerChanges  *prometheus.CounterVec
	QuotaRollbacks  *prometheus.CounterVec
}

// NewMetrics creates the instruments and registers them with registry.
func NewMetrics(registry prometheus.Registerer) *Metrics {
	factory := promauto.With(registry)

	return &Metrics{
		Episodes: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "episodes_total",
				Help:      "Generation episodes by outcome",
			},
			[]string{"outcome"},
		),
		EpisodeDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "episode_duration_seconds",
				Help:      "Wall time of generation episodes",
				Buckets:   []float64{1, 5, 10, 30, 60, 120, 300, 600},
			},
		),
		ProviderCalls: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "provider_calls_total",
				Help:      "Batch generation calls by phase and outcome",
			},
			[]string{"phase", "outcome"},
		),
		Backfills: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "backfill_attempts_total",
				Help:      "Backfill calls started",
			},
		),
		DroppedTasks: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "dropped_tasks_total",
				Help:      "Tasks removed from a batch by reason",
			},
			[]string{"reason"},
		),
		AgentIssues: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "agent_issues_total",
				Help:      "Issues reported by semantic agents",
			},
			[]string{"agent"},
		),
		AgentFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "agent_failures_total",
				Help:      "Semantic agent runs that could not complete",
			},
			[]string{"agent"},
		),
		AutoFixes: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "auto_fixes_total",
				Help:      "Auto-fix attempts by outcome",
			},
			[]string{"outcome"},
		),
		DeliveredTasks: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "delivered_tasks_total",
				Help:      "Tasks delivered in stored results",
			},
		),
		BreakerState: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "breaker_state",
				Help:      "Circuit breaker state: 0 closed, 1 half-open, 2 open",
			},
		),
		BreakerChanges: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "breaker_transitions_total",
				Help:      "Circuit breaker transitions by target state",
			},
			[]string{"to"},
		),
		QuotaRollbacks: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "quota_rollbacks_total",
				Help:      "Compensating quota increments by result",
			},
			[]string{"result"},
		),
	}
}

// RecordEpisode counts a finished episode and observes its duration.
func (m *Metrics) RecordEpisode(outcome string, d time.Duration) {
	m.Episodes.WithLabelValues(outcome).Inc()
	m.EpisodeDuration.Observe(d.Seconds())
}

// RecordProviderCall counts one batch call.
func (m *Metrics) RecordProviderCall(phase string, err error) {
	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	m.ProviderCalls.WithLabelValues(phase, outcome).Inc()
}

// RecordBackfill counts a started backfill call.
func (m *Metrics) RecordBackfill() {
	m.Backfills.Inc()
}

// RecordDropped counts n tasks dropped for reason.
func (m *Metrics) RecordDropped(reason string, n int) {
	if n > 0 {
		m.DroppedTasks.WithLabelValues(reason).Add(float64(n))
	}
}

// RecordAgentIssue counts one issue raised by agent.
func (m *Metrics) RecordAgentIssue(agent string) {
	m.AgentIssues.WithLabelValues(agent).Inc()
}

// RecordAgentFailure counts one agent run that did not complete.
func (m *Metrics) RecordAgentFailure(agent string) {
	m.AgentFailures.WithLabelValues(agent).Inc()
}

// RecordFix counts one auto-fix attempt.
func (m *Metrics) RecordFix(success bool) {
	outcome := "rejected"
	if success {
		outcome = "fixed"
	}
	m.AutoFixes.WithLabelValues(outcome).Inc()
}

// RecordDelivered counts tasks in a stored result.
func (m *Metrics) RecordDelivered(n int) {
	m.DeliveredTasks.Add(float64(n))
}

// RecordQuotaRollback counts a compensating increment.
func (m *Metrics) RecordQuotaRollback(err error) {
	result := "ok"
	if err != nil {
		result = "failed"
	}
	m.QuotaRollbacks.WithLabelValues(result).Inc()
}

// BreakerStateValue maps a breaker state to the gauge value.
func BreakerStateValue(s breaker.State) float64 {
	switch s {
	case breaker.StateHalfOpen:
		return 1
	case breaker.StateOpen:
		return 2
	default:
		return 0
	}
}

// ObserveBreaker is a breaker.StateChangeFunc that tracks transitions.
func (m *Metrics) ObserveBreaker(_, to breaker.State) {
	m.BreakerState.Set(BreakerStateValue(to))
	m.BreakerChanges.WithLabelValues(string(to)).Inc()
}
