package telemetry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_NilIsNoOp(t *testing.T) {
	m, err := NewMetrics(nil)
	require.NoError(t, err)
	assert.Nil(t, m)

	assert.NotPanics(t, func() {
		m.CacheHit("a")
		m.CacheMiss("a")
		m.AgentSolve("a", time.Millisecond, errors.New("x"))
		m.HeuristicEvaluation()
		m.OverrideWarning()
		m.Solve(time.Millisecond)
	})
}

func TestMetrics_Counters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := NewMetrics(reg)
	require.NoError(t, err)

	m.CacheHit(1)
	m.CacheHit(1)
	m.CacheMiss(2)
	m.AgentSolve(2, time.Millisecond, nil)
	m.AgentSolve(2, time.Millisecond, errors.New("boom"))
	m.HeuristicEvaluation()
	m.OverrideWarning()

	assert.Equal(t, 2.0, testutil.ToFloat64(m.cacheHits.WithLabelValues("1")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.cacheMisses.WithLabelValues("2")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.agentSolves.WithLabelValues("2")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.agentSolveFailures.WithLabelValues("2")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.heuristicEvaluations))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.overrideWarnings))
}

func TestMetrics_ReuseOnSameRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	first, err := NewMetrics(reg)
	require.NoError(t, err)
	second, err := NewMetrics(reg)
	require.NoError(t, err)

	first.HeuristicEvaluation()
	second.HeuristicEvaluation()

	assert.Equal(t, 2.0, testutil.ToFloat64(second.heuristicEvaluations))
}

func TestTracer_DisabledReturnsUsableSpans(t *testing.T) {
	tr := NewTracer(false)
	assert.False(t, tr.Enabled())

	ctx, span := tr.StartSolve(context.Background(), "run", 2)
	require.NotNil(t, span)
	assert.False(t, span.SpanContext().IsValid())

	_, child := tr.StartAgentSolve(ctx, "a", 3)
	assert.NotPanics(t, func() {
		End(child, errors.New("boom"))
		End(span, nil)
		End(nil, nil)
	})

	var zero *Tracer
	assert.False(t, zero.Enabled())
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", truncate("abc", 3))
	assert.Equal(t, "ab...", truncate("abcd", 2))
}
