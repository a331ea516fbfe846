package heuristic

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/mahd/core"
	"github.com/hupe1980/mahd/internal/testutil"
	"github.com/hupe1980/mahd/pool"
	"github.com/hupe1980/mahd/telemetry"
)

type fixture struct {
	pool   *pool.Pool[int, string, string]
	s1, s2 *testutil.FakeSingleAgentSolver[string, string]
	domain *testutil.StaticDomain[int]
}

func newFixture(t *testing.T) fixture {
	t.Helper()

	s1 := testutil.NewFakeSingleAgentSolver("agent1", nil, map[string]core.Solution[string]{
		"o1": {Value: core.Value{Cost: 3, Reward: -3}, Action: "a1"},
		"o3": {Value: core.CostValue(1), Action: "a3"},
	})
	s2 := testutil.NewFakeSingleAgentSolver("agent2", nil, map[string]core.Solution[string]{
		"o2": {Value: core.CostValue(5), Action: "a2"},
	})
	domain := testutil.NewStaticDomain(1, 2)

	p, err := pool.New(context.Background(), pool.Config[int, string, string]{
		Domain:        domain,
		DomainFactory: testutil.AgentDomainFactory[int],
		SolverFactory: testutil.NewSingleAgentFactory(s1, s2).New,
	})
	require.NoError(t, err)

	return fixture{pool: p, s1: s1, s2: s2, domain: domain}
}

func TestEvaluate_AggregatesPerAgentSolutions(t *testing.T) {
	f := newFixture(t)
	b := NewBridge[int, string, string](f.pool)

	res, err := b.Evaluate(context.Background(), f.domain, core.JointObservation[int, string]{1: "o1", 2: "o2"})
	require.NoError(t, err)

	assert.Equal(t, map[int]core.Value{1: core.CostValue(3), 2: core.CostValue(5)}, res.Values)
	assert.Equal(t, map[int]string{1: "a1", 2: "a2"}, res.Actions)
	assert.Equal(t, 8.0, res.TotalCost())
}

func TestEvaluate_IsDeterministicAndMemoized(t *testing.T) {
	f := newFixture(t)
	b := NewBridge[int, string, string](f.pool)
	obs := core.JointObservation[int, string]{1: "o1", 2: "o2"}

	first, err := b.Evaluate(context.Background(), f.domain, obs)
	require.NoError(t, err)
	second, err := b.Evaluate(context.Background(), f.domain, obs)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, f.s1.SolveCalls("o1"))
	assert.Equal(t, 1, f.s2.SolveCalls("o2"))
}

func TestEvaluate_MissingAgentObservation(t *testing.T) {
	f := newFixture(t)
	b := NewBridge[int, string, string](f.pool)

	_, err := b.Evaluate(context.Background(), f.domain, core.JointObservation[int, string]{1: "o1"})
	require.ErrorIs(t, err, core.ErrMissingAgentObservation)

	var agentErr *core.AgentError
	require.ErrorAs(t, err, &agentErr)
	assert.Equal(t, 2, agentErr.Agent)
	assert.Zero(t, f.s1.TotalSolveCalls(), "no agent is solved for an incomplete observation")
}

func TestEvaluate_ExtraComponentsAreIgnored(t *testing.T) {
	f := newFixture(t)
	b := NewBridge[int, string, string](f.pool)

	res, err := b.Evaluate(context.Background(), f.domain, core.JointObservation[int, string]{1: "o1", 2: "o2", 9: "x"})
	require.NoError(t, err)
	assert.Len(t, res.Values, 2)
	assert.Len(t, res.Actions, 2)
}

func TestEvaluate_PropagatesSolverFailure(t *testing.T) {
	f := newFixture(t)
	boom := errors.New("search failed")
	f.s2.SolveErr = boom
	b := NewBridge[int, string, string](f.pool)

	res, err := b.Evaluate(context.Background(), f.domain, core.JointObservation[int, string]{1: "o1", 2: "o2"})
	require.ErrorIs(t, err, boom)
	assert.Nil(t, res.Values, "no partial result")

	var agentErr *core.AgentError
	require.ErrorAs(t, err, &agentErr)
	assert.Equal(t, 2, agentErr.Agent)
	assert.Equal(t, "o2", agentErr.Observation)
}

func TestEvaluate_ParallelAgents(t *testing.T) {
	f := newFixture(t)
	f.s1.SolveDelay = 10 * time.Millisecond
	f.s2.SolveDelay = 10 * time.Millisecond
	b := NewBridge[int, string, string](f.pool, WithParallelAgents(4))

	obs := core.JointObservation[int, string]{1: "o1", 2: "o2"}

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := b.Evaluate(context.Background(), f.domain, obs)
			assert.NoError(t, err)
			assert.Equal(t, map[int]string{1: "a1", 2: "a2"}, res.Actions)
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, f.s1.SolveCalls("o1"))
	assert.Equal(t, 1, f.s2.SolveCalls("o2"))
}

func TestEvaluate_LogsAndCounts(t *testing.T) {
	f := newFixture(t)
	logger := &testutil.RecordingLogger{}
	reg := prometheus.NewRegistry()
	metrics, err := telemetry.NewMetrics(reg)
	require.NoError(t, err)

	b := NewBridge[int, string, string](f.pool, func(o *Options) {
		o.Logger = logger
		o.Metrics = metrics
		o.Tracer = telemetry.NewTracer(true)
	})
	obs := core.JointObservation[int, string]{1: "o1", 2: "o2"}

	_, err = b.Evaluate(context.Background(), f.domain, obs)
	require.NoError(t, err)
	_, err = b.Evaluate(context.Background(), f.domain, obs)
	require.NoError(t, err)

	entries := logger.Entries("DEBUG")
	require.Len(t, entries, 2)
	cached, ok := entries[1].Attr("cached")
	require.True(t, ok)
	assert.Equal(t, int64(2), cached)

	expected := `
# HELP mahd_heuristic_evaluations_total Dual heuristic evaluations requested by the multi-agent solver.
# TYPE mahd_heuristic_evaluations_total counter
mahd_heuristic_evaluations_total 2
`
	require.NoError(t, promtest.GatherAndCompare(reg, strings.NewReader(expected), "mahd_heuristic_evaluations_total"))
}
