package core

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/mahd/logging"
)

type agents []int

func (a agents) Agents() []int { return a }

func TestAgentSet(t *testing.T) {
	got, err := AgentSet[int](agents{3, 1, 2})
	require.NoError(t, err)
	assert.Equal(t, []int{3, 1, 2}, got, "order is preserved")

	_, err = AgentSet[int](agents{})
	assert.ErrorIs(t, err, ErrNoAgents)

	_, err = AgentSet[int](nil)
	assert.ErrorIs(t, err, ErrInvalidConfig)

	_, err = AgentSet[int](agents{1, 2, 1})
	require.ErrorIs(t, err, ErrDuplicateAgent)
	var agentErr *AgentError
	require.ErrorAs(t, err, &agentErr)
	assert.Equal(t, 1, agentErr.Agent)
}

func TestValidateAgents_Copies(t *testing.T) {
	in := []string{"a", "b"}
	out, err := ValidateAgents(in)
	require.NoError(t, err)
	out[0] = "z"
	assert.Equal(t, "a", in[0])
}

func TestAgentError(t *testing.T) {
	boom := errors.New("boom")

	err := &AgentError{Agent: 2, Observation: "o2", Op: "solve from", Err: boom}
	assert.Equal(t, "solve from: agent 2 (observation o2): boom", err.Error())
	assert.ErrorIs(t, err, boom)

	err = &AgentError{Agent: "r1", Op: "initialize", Err: boom}
	assert.Equal(t, "initialize: agent r1: boom", err.Error())
}

func TestParams(t *testing.T) {
	p := Params{"f": 1.5, "i": 3, "s": "x", "b": true, "whole": 4.0, "frac": 4.5}

	cp := p.Clone()
	cp["f"] = 9.0
	assert.Equal(t, 1.5, p["f"])
	assert.NotNil(t, Params(nil).Clone())

	assert.True(t, p.Has("s"))
	assert.False(t, p.Without("s").Has("s"))
	assert.True(t, p.Has("s"), "Without copies")

	f, err := p.Float("i", 0)
	require.NoError(t, err)
	assert.Equal(t, 3.0, f)
	f, err = p.Float("missing", 2)
	require.NoError(t, err)
	assert.Equal(t, 2.0, f)
	_, err = p.Float("s", 0)
	assert.ErrorIs(t, err, ErrInvalidConfig)

	i, err := p.Int("whole", 0)
	require.NoError(t, err)
	assert.Equal(t, 4, i)
	_, err = p.Int("frac", 0)
	assert.ErrorIs(t, err, ErrInvalidConfig)

	s, err := p.String("s", "")
	require.NoError(t, err)
	assert.Equal(t, "x", s)
	_, err = p.String("i", "")
	assert.ErrorIs(t, err, ErrInvalidConfig)

	b, err := p.Bool("b", false)
	require.NoError(t, err)
	assert.True(t, b)
	_, err = p.Bool("s", false)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestMultiAgentSolverConfig_HasHeuristic(t *testing.T) {
	h := HeuristicFunc[int, string, string](func(context.Context, MultiAgentDomain[int], JointObservation[int, string]) (HeuristicResult[int, string], error) {
		return NewHeuristicResult[int, string](0), nil
	})

	assert.False(t, MultiAgentSolverConfig[int, string, string]{}.HasHeuristic())
	assert.True(t, MultiAgentSolverConfig[int, string, string]{Heuristic: h}.HasHeuristic())
	assert.True(t, MultiAgentSolverConfig[int, string, string]{Params: Params{HeuristicParam: nil}}.HasHeuristic())

	cfg := MultiAgentSolverConfig[int, string, string]{Params: Params{"k": 1}}
	cp := cfg.Clone()
	cp.Params["k"] = 2
	assert.Equal(t, 1, cfg.Params["k"])
}

func TestHeuristicResult(t *testing.T) {
	r := NewHeuristicResult[int, string](2)
	r.Values[1] = CostValue(3)
	r.Values[2] = CostValue(5)
	assert.Equal(t, 8.0, r.TotalCost())
	assert.Equal(t, "Value(cost=3)", r.Values[1].String())
}

func TestJointObservation_Clone(t *testing.T) {
	obs := JointObservation[int, string]{1: "a"}
	cp := obs.Clone()
	cp[1] = "b"
	assert.Equal(t, "a", obs[1])
}

func TestEnsureLogger(t *testing.T) {
	assert.Equal(t, logging.NoOpLogger{}, EnsureLogger(nil))
	l := logging.NewSlogLogger(logging.LogLevelInfo, "json", false)
	assert.Same(t, l, EnsureLogger(l))
}
