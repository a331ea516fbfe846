package testutil

import (
	"context"
	"errors"
	"maps"
	"sync"

	"github.com/hupe1980/mahd/core"
)

// ErrUnknownObservation is returned by FakeMultiAgentSolver queries for
// observations it never visited.
var ErrUnknownObservation = errors.New("observation was not visited during solve")

// FakeMultiAgentSolver evaluates its heuristic on a scripted list of joint
// observations during SolveWith and records, as its policy, the heuristic's
// suggested joint action for each.
type FakeMultiAgentSolver[A comparable, O comparable, Act any] struct {
	Config   core.MultiAgentSolverConfig[A, O, Act]
	Recorder *CallRecorder
	Visits   []core.JointObservation[A, O]
	SolveErr error

	mu      sync.Mutex
	solved  []visitResult[A, O, Act]
	solves  int
	domains int
}

type visitResult[A comparable, O comparable, Act any] struct {
	obs    core.JointObservation[A, O]
	result core.HeuristicResult[A, Act]
}

// NewFakeMultiAgentFactory returns a factory capturing the constructed solver
// in *out.
func NewFakeMultiAgentFactory[A comparable, O comparable, Act any](rec *CallRecorder, out **FakeMultiAgentSolver[A, O, Act], visits ...core.JointObservation[A, O]) core.MultiAgentSolverFactory[A, O, Act] {
	return func(cfg core.MultiAgentSolverConfig[A, O, Act]) (core.MultiAgentSolver[A, O, Act], error) {
		s := &FakeMultiAgentSolver[A, O, Act]{Config: cfg, Recorder: rec, Visits: visits}
		if out != nil {
			*out = s
		}
		return s, nil
	}
}

// Initialize implements core.Lifecycle.
func (f *FakeMultiAgentSolver[A, O, Act]) Initialize(context.Context) error {
	f.Recorder.Record("initialize multi")
	return nil
}

// Cleanup implements core.Lifecycle.
func (f *FakeMultiAgentSolver[A, O, Act]) Cleanup(context.Context) error {
	f.Recorder.Record("cleanup multi")
	return nil
}

// SolveWith implements core.MultiAgentSolver.
func (f *FakeMultiAgentSolver[A, O, Act]) SolveWith(ctx context.Context, factory core.MultiAgentDomainFactory[A]) error {
	f.mu.Lock()
	f.solves++
	f.mu.Unlock()

	if f.SolveErr != nil {
		return f.SolveErr
	}
	md, err := factory()
	if err != nil {
		return err
	}
	f.mu.Lock()
	f.domains++
	f.mu.Unlock()

	if f.Config.Heuristic == nil {
		return errors.New("no heuristic configured")
	}
	solved := make([]visitResult[A, O, Act], 0, len(f.Visits))
	for _, obs := range f.Visits {
		res, err := f.Config.Heuristic.Evaluate(ctx, md, obs)
		if err != nil {
			return err
		}
		solved = append(solved, visitResult[A, O, Act]{obs: obs, result: res})
	}

	f.mu.Lock()
	f.solved = solved
	f.mu.Unlock()
	return nil
}

func (f *FakeMultiAgentSolver[A, O, Act]) lookup(obs core.JointObservation[A, O]) (core.HeuristicResult[A, Act], bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.solved {
		if maps.Equal(p.obs, obs) {
			return p.result, true
		}
	}
	return core.HeuristicResult[A, Act]{}, false
}

// NextAction implements core.MultiAgentSolver.
func (f *FakeMultiAgentSolver[A, O, Act]) NextAction(_ context.Context, obs core.JointObservation[A, O]) (map[A]Act, error) {
	res, ok := f.lookup(obs)
	if !ok {
		return nil, ErrUnknownObservation
	}
	return maps.Clone(res.Actions), nil
}

// Utility implements core.MultiAgentSolver.
func (f *FakeMultiAgentSolver[A, O, Act]) Utility(_ context.Context, obs core.JointObservation[A, O]) (core.Value, error) {
	res, ok := f.lookup(obs)
	if !ok {
		return core.Value{}, ErrUnknownObservation
	}
	return core.CostValue(res.TotalCost()), nil
}

// Solves returns how often SolveWith ran.
func (f *FakeMultiAgentSolver[A, O, Act]) Solves() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.solves
}
