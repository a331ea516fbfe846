package telemetry

import (
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "mahd"

// Metrics holds the Prometheus collectors of one controller. A nil *Metrics
// is valid and records nothing.
type Metrics struct {
	cacheHits            *prometheus.CounterVec
	cacheMisses          *prometheus.CounterVec
	agentSolves          *prometheus.CounterVec
	agentSolveFailures   *prometheus.CounterVec
	heuristicEvaluations prometheus.Counter
	overrideWarnings     prometheus.Counter
	solveDuration        *prometheus.HistogramVec
}

// NewMetrics creates the collectors and registers them with reg. Collectors
// already registered by a previous controller on the same registry are
// reused.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	if reg == nil {
		return nil, nil
	}
	m := &Metrics{
		cacheHits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "solution_cache_hits_total",
			Help:      "Per-agent heuristic requests answered from the solution cache.",
		}, []string{"agent"}),
		cacheMisses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "solution_cache_misses_total",
			Help:      "Per-agent heuristic requests that required a single-agent solve.",
		}, []string{"agent"}),
		agentSolves: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "single_agent_solves_total",
			Help:      "Single-agent solve-from invocations.",
		}, []string{"agent"}),
		agentSolveFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "single_agent_solve_failures_total",
			Help:      "Single-agent solve-from invocations that returned an error.",
		}, []string{"agent"}),
		heuristicEvaluations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "heuristic_evaluations_total",
			Help:      "Dual heuristic evaluations requested by the multi-agent solver.",
		}),
		overrideWarnings: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "heuristic_override_warnings_total",
			Help:      "Caller-supplied multi-agent heuristics replaced at construction.",
		}),
		solveDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "solve_duration_seconds",
			Help:      "Duration of multi-agent and single-agent solves.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 4, 10),
		}, []string{"scope"}),
	}

	var err error
	if m.cacheHits, err = register(reg, m.cacheHits); err != nil {
		return nil, err
	}
	if m.cacheMisses, err = register(reg, m.cacheMisses); err != nil {
		return nil, err
	}
	if m.agentSolves, err = register(reg, m.agentSolves); err != nil {
		return nil, err
	}
	if m.agentSolveFailures, err = register(reg, m.agentSolveFailures); err != nil {
		return nil, err
	}
	if m.heuristicEvaluations, err = register(reg, m.heuristicEvaluations); err != nil {
		return nil, err
	}
	if m.overrideWarnings, err = register(reg, m.overrideWarnings); err != nil {
		return nil, err
	}
	if m.solveDuration, err = register(reg, m.solveDuration); err != nil {
		return nil, err
	}
	return m, nil
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			existing, ok := are.ExistingCollector.(C)
			if ok {
				return existing, nil
			}
		}
		return c, fmt.Errorf("register metrics: %w", err)
	}
	return c, nil
}

// CacheHit records a cache hit for agent.
func (m *Metrics) CacheHit(agent any) {
	if m == nil {
		return
	}
	m.cacheHits.WithLabelValues(fmt.Sprint(agent)).Inc()
}

// CacheMiss records a cache miss for agent.
func (m *Metrics) CacheMiss(agent any) {
	if m == nil {
		return
	}
	m.cacheMisses.WithLabelValues(fmt.Sprint(agent)).Inc()
}

// AgentSolve records one single-agent solve-from call and its outcome.
func (m *Metrics) AgentSolve(agent any, dur time.Duration, err error) {
	if m == nil {
		return
	}
	label := fmt.Sprint(agent)
	m.agentSolves.WithLabelValues(label).Inc()
	if err != nil {
		m.agentSolveFailures.WithLabelValues(label).Inc()
	}
	m.solveDuration.WithLabelValues("single_agent").Observe(dur.Seconds())
}

// HeuristicEvaluation records one dual heuristic evaluation.
func (m *Metrics) HeuristicEvaluation() {
	if m == nil {
		return
	}
	m.heuristicEvaluations.Inc()
}

// OverrideWarning records a replaced caller-supplied heuristic.
func (m *Metrics) OverrideWarning() {
	if m == nil {
		return
	}
	m.overrideWarnings.Inc()
}

// Solve records the duration of a multi-agent solve.
func (m *Metrics) Solve(dur time.Duration) {
	if m == nil {
		return
	}
	m.solveDuration.WithLabelValues("multi_agent").Observe(dur.Seconds())
}
