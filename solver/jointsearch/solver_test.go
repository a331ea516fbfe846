package jointsearch_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/mahd/core"
	"github.com/hupe1980/mahd/domain/roadmap"
	"github.com/hupe1980/mahd/solver/jointsearch"
)

const corridor = `
edges:
  - {from: a, to: b, weight: 1}
  - {from: b, to: c, weight: 1}
  - {from: b, to: d, weight: 1}
agents:
  - {name: r1, start: a, goal: c}
  - {name: r2, start: c, goal: a}
`

func build(t *testing.T, scenario string) *roadmap.Domain {
	t.Helper()
	sc, err := roadmap.LoadScenario(strings.NewReader(scenario))
	require.NoError(t, err)
	d, err := sc.Build()
	require.NoError(t, err)
	return d
}

func factoryOf(d *roadmap.Domain) core.MultiAgentDomainFactory[string] {
	return func() (core.MultiAgentDomain[string], error) { return d, nil }
}

// zeroHeuristic turns the search into uniform cost search and suggests
// waiting.
func zeroHeuristic() core.HeuristicFunc[string, int64, int64] {
	return func(_ context.Context, md core.MultiAgentDomain[string], obs core.JointObservation[string, int64]) (core.HeuristicResult[string, int64], error) {
		res := core.NewHeuristicResult[string, int64](len(obs))
		for _, a := range md.Agents() {
			res.Values[a] = core.CostValue(0)
			res.Actions[a] = obs[a]
		}
		return res, nil
	}
}

func replay(t *testing.T, d *roadmap.Domain, plan []jointsearch.Step[string, int64, int64]) (core.JointObservation[string, int64], float64) {
	t.Helper()
	obs := d.Initial()
	total := 0.0
	for _, step := range plan {
		assert.Equal(t, obs, step.Observation)
		found := false
		for _, succ := range d.Successors(obs) {
			if assert.ObjectsAreEqual(succ.Actions, step.Actions) {
				obs, total, found = succ.Next, total+succ.Cost, true
				break
			}
		}
		require.True(t, found, "plan step is not a legal transition")
	}
	return obs, total
}

func TestSolver_FindsOptimalCorridorPlan(t *testing.T) {
	d := build(t, corridor)
	s, err := jointsearch.New(core.MultiAgentSolverConfig[string, int64, int64]{Heuristic: zeroHeuristic()})
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, s.SolveWith(ctx, factoryOf(d)))

	plan := s.Plan()
	require.Len(t, plan, 4)
	final, total := replay(t, d, plan)
	assert.True(t, d.IsGoal(final))
	assert.Equal(t, 7.0, total)

	v, err := s.Utility(ctx, d.Initial())
	require.NoError(t, err)
	assert.Equal(t, 7.0, v.Cost)

	actions, err := s.NextAction(ctx, d.Initial())
	require.NoError(t, err)
	assert.Equal(t, plan[0].Actions, actions)

	v, err = s.Utility(ctx, final)
	require.NoError(t, err)
	assert.Zero(t, v.Cost)
	_, err = s.NextAction(ctx, final)
	assert.ErrorIs(t, err, jointsearch.ErrGoalReached)

	assert.Positive(t, s.Expansions())
}

func TestSolver_PruneKeepsPlanLegal(t *testing.T) {
	d := build(t, corridor)
	s, err := jointsearch.New(core.MultiAgentSolverConfig[string, int64, int64]{
		Heuristic: zeroHeuristic(),
		Params:    core.Params{jointsearch.ParamPrune: true},
	})
	require.NoError(t, err)

	require.NoError(t, s.SolveWith(context.Background(), factoryOf(d)))
	final, _ := replay(t, d, s.Plan())
	assert.True(t, d.IsGoal(final))
}

func TestSolver_Errors(t *testing.T) {
	ctx := context.Background()

	t.Run("no heuristic", func(t *testing.T) {
		_, err := jointsearch.New(core.MultiAgentSolverConfig[string, int64, int64]{})
		assert.ErrorIs(t, err, jointsearch.ErrNoHeuristic)
	})

	t.Run("bad param", func(t *testing.T) {
		_, err := jointsearch.New(core.MultiAgentSolverConfig[string, int64, int64]{
			Heuristic: zeroHeuristic(),
			Params:    core.Params{jointsearch.ParamMaxExpansions: "many"},
		})
		assert.ErrorIs(t, err, core.ErrInvalidConfig)
	})

	t.Run("not solved", func(t *testing.T) {
		s, err := jointsearch.New(core.MultiAgentSolverConfig[string, int64, int64]{Heuristic: zeroHeuristic()})
		require.NoError(t, err)
		_, err = s.NextAction(ctx, core.JointObservation[string, int64]{})
		assert.ErrorIs(t, err, core.ErrNotSolved)
	})

	t.Run("expansion limit", func(t *testing.T) {
		d := build(t, corridor)
		s, err := jointsearch.New(core.MultiAgentSolverConfig[string, int64, int64]{Heuristic: zeroHeuristic()}, func(o *jointsearch.Options) {
			o.MaxExpansions = 1
		})
		require.NoError(t, err)
		assert.ErrorIs(t, s.SolveWith(ctx, factoryOf(d)), jointsearch.ErrExpansionLimit)
	})

	t.Run("no plan", func(t *testing.T) {
		d := build(t, `
edges:
  - {from: a, to: b, weight: 1}
  - {from: c, to: e, weight: 1}
agents:
  - {name: r1, start: a, goal: c}
`)
		s, err := jointsearch.New(core.MultiAgentSolverConfig[string, int64, int64]{Heuristic: zeroHeuristic()})
		require.NoError(t, err)
		assert.ErrorIs(t, s.SolveWith(ctx, factoryOf(d)), jointsearch.ErrNoPlan)
	})

	t.Run("off plan", func(t *testing.T) {
		d := build(t, corridor)
		s, err := jointsearch.New(core.MultiAgentSolverConfig[string, int64, int64]{Heuristic: zeroHeuristic()})
		require.NoError(t, err)
		require.NoError(t, s.SolveWith(ctx, factoryOf(d)))

		a, _ := d.NodeID("a")
		dd, _ := d.NodeID("d")
		_, err = s.NextAction(ctx, core.JointObservation[string, int64]{"r1": a, "r2": dd})
		assert.ErrorIs(t, err, jointsearch.ErrNotInPolicy)
	})

	t.Run("heuristic failure", func(t *testing.T) {
		d := build(t, corridor)
		boom := errors.New("boom")
		s, err := jointsearch.New(core.MultiAgentSolverConfig[string, int64, int64]{
			Heuristic: core.HeuristicFunc[string, int64, int64](func(context.Context, core.MultiAgentDomain[string], core.JointObservation[string, int64]) (core.HeuristicResult[string, int64], error) {
				return core.HeuristicResult[string, int64]{}, boom
			}),
		})
		require.NoError(t, err)
		assert.ErrorIs(t, s.SolveWith(ctx, factoryOf(d)), boom)
	})

	t.Run("unsupported domain", func(t *testing.T) {
		s, err := jointsearch.New(core.MultiAgentSolverConfig[string, int64, int64]{Heuristic: zeroHeuristic()})
		require.NoError(t, err)
		err = s.SolveWith(ctx, func() (core.MultiAgentDomain[string], error) { return agentsOnly{"r1"}, nil })
		assert.ErrorIs(t, err, core.ErrInvalidConfig)
	})
}

type agentsOnly []string

func (a agentsOnly) Agents() []string { return a }

type room struct{ Floor int }

// lookalikeDomain moves one agent through two distinct rooms with equal
// contents before it reaches the goal room.
type lookalikeDomain struct {
	start, hall, goal *room
}

func (d *lookalikeDomain) Agents() []string { return []string{"r"} }

func (d *lookalikeDomain) Initial() core.JointObservation[string, *room] {
	return core.JointObservation[string, *room]{"r": d.start}
}

func (d *lookalikeDomain) IsGoal(obs core.JointObservation[string, *room]) bool {
	return obs["r"] == d.goal
}

func (d *lookalikeDomain) Successors(obs core.JointObservation[string, *room]) []jointsearch.Successor[string, *room, string] {
	step := func(to *room, action string) []jointsearch.Successor[string, *room, string] {
		return []jointsearch.Successor[string, *room, string]{{
			Actions: map[string]string{"r": action},
			Next:    core.JointObservation[string, *room]{"r": to},
			Cost:    1,
		}}
	}
	switch obs["r"] {
	case d.start:
		return step(d.hall, "enter hall")
	case d.hall:
		return step(d.goal, "enter goal")
	default:
		return nil
	}
}

func TestSolver_DistinguishesPointerObservations(t *testing.T) {
	d := &lookalikeDomain{start: &room{Floor: 0}, hall: &room{Floor: 0}, goal: &room{Floor: 1}}
	h := core.HeuristicFunc[string, *room, string](func(_ context.Context, _ core.MultiAgentDomain[string], _ core.JointObservation[string, *room]) (core.HeuristicResult[string, string], error) {
		res := core.NewHeuristicResult[string, string](1)
		res.Values["r"] = core.CostValue(0)
		res.Actions["r"] = ""
		return res, nil
	})
	s, err := jointsearch.New(core.MultiAgentSolverConfig[string, *room, string]{Heuristic: h})
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, s.SolveWith(ctx, func() (core.MultiAgentDomain[string], error) { return d, nil }))
	require.Len(t, s.Plan(), 2)

	act, err := s.NextAction(ctx, core.JointObservation[string, *room]{"r": d.hall})
	require.NoError(t, err)
	assert.Equal(t, "enter goal", act["r"])

	v, err := s.NextAction(ctx, core.JointObservation[string, *room]{"r": d.start})
	require.NoError(t, err)
	assert.Equal(t, "enter hall", v["r"])

	u, err := s.Utility(ctx, core.JointObservation[string, *room]{"r": d.start})
	require.NoError(t, err)
	assert.Equal(t, 2.0, u.Cost)

	_, err = s.NextAction(ctx, core.JointObservation[string, *room]{"r": &room{Floor: 0}})
	assert.ErrorIs(t, err, jointsearch.ErrNotInPolicy)
}
