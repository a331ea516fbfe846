package testutil

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/hupe1980/mahd/core"
)

// ErrNoScriptedSolution is returned by FakeSingleAgentSolver for observations
// it has no scripted solution for.
var ErrNoScriptedSolution = errors.New("no scripted solution")

// FakeSingleAgentSolver answers from a scripted observation → solution table
// and counts solve-from calls per observation.
type FakeSingleAgentSolver[O comparable, Act any] struct {
	Name          string
	Recorder      *CallRecorder
	Solutions     map[O]core.Solution[Act]
	SolveErr      error
	SolveDelay    time.Duration
	RequireDomain bool // call the bound producer on every SolveFrom

	mu         sync.Mutex
	producer   core.DomainProducer
	domain     core.SingleAgentDomain
	solveCalls map[O]int
	inFlight   int
	maxFlight  int
}

// NewFakeSingleAgentSolver creates a fake with the given scripted solutions.
func NewFakeSingleAgentSolver[O comparable, Act any](name string, rec *CallRecorder, solutions map[O]core.Solution[Act]) *FakeSingleAgentSolver[O, Act] {
	return &FakeSingleAgentSolver[O, Act]{Name: name, Recorder: rec, Solutions: solutions, solveCalls: map[O]int{}}
}

// Initialize implements core.Lifecycle.
func (f *FakeSingleAgentSolver[O, Act]) Initialize(context.Context) error {
	f.Recorder.Record("initialize %s", f.Name)
	return nil
}

// Cleanup implements core.Lifecycle.
func (f *FakeSingleAgentSolver[O, Act]) Cleanup(context.Context) error {
	f.Recorder.Record("cleanup %s", f.Name)
	return nil
}

// SolveWith implements core.SingleAgentSolver.
func (f *FakeSingleAgentSolver[O, Act]) SolveWith(_ context.Context, producer core.DomainProducer) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.producer = producer
	f.Recorder.Record("solve_with %s", f.Name)
	return nil
}

// SolveFrom implements core.SingleAgentSolver.
func (f *FakeSingleAgentSolver[O, Act]) SolveFrom(_ context.Context, obs O) error {
	f.mu.Lock()
	f.solveCalls[obs]++
	f.inFlight++
	if f.inFlight > f.maxFlight {
		f.maxFlight = f.inFlight
	}
	producer := f.producer
	f.mu.Unlock()

	defer func() {
		f.mu.Lock()
		f.inFlight--
		f.mu.Unlock()
	}()

	if f.SolveDelay > 0 {
		time.Sleep(f.SolveDelay)
	}
	if f.RequireDomain {
		if producer == nil {
			return fmt.Errorf("%s: not bound", f.Name)
		}
		d, err := producer()
		if err != nil {
			return err
		}
		f.mu.Lock()
		f.domain = d
		f.mu.Unlock()
	}
	if f.SolveErr != nil {
		return f.SolveErr
	}
	if _, ok := f.Solutions[obs]; !ok {
		return fmt.Errorf("%s: %v: %w", f.Name, obs, ErrNoScriptedSolution)
	}
	return nil
}

// NextAction implements core.SingleAgentSolver.
func (f *FakeSingleAgentSolver[O, Act]) NextAction(_ context.Context, obs O) (Act, error) {
	sol, ok := f.Solutions[obs]
	if !ok {
		var zero Act
		return zero, ErrNoScriptedSolution
	}
	return sol.Action, nil
}

// Utility implements core.SingleAgentSolver.
func (f *FakeSingleAgentSolver[O, Act]) Utility(_ context.Context, obs O) (core.Value, error) {
	sol, ok := f.Solutions[obs]
	if !ok {
		return core.Value{}, ErrNoScriptedSolution
	}
	return sol.Value, nil
}

// SolveCalls returns how often SolveFrom ran for obs.
func (f *FakeSingleAgentSolver[O, Act]) SolveCalls(obs O) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.solveCalls[obs]
}

// TotalSolveCalls returns how often SolveFrom ran in total.
func (f *FakeSingleAgentSolver[O, Act]) TotalSolveCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.solveCalls {
		n += c
	}
	return n
}

// MaxConcurrentSolves returns the highest number of overlapping SolveFrom calls.
func (f *FakeSingleAgentSolver[O, Act]) MaxConcurrentSolves() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.maxFlight
}

// Domain returns the last domain obtained from the producer.
func (f *FakeSingleAgentSolver[O, Act]) Domain() core.SingleAgentDomain {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.domain
}

// SingleAgentFactory hands out pre-built solvers in order and records the
// parameters each construction received.
type SingleAgentFactory[O comparable, Act any] struct {
	mu      sync.Mutex
	solvers []*FakeSingleAgentSolver[O, Act]
	next    int
	Params  []core.Params
	Err     error
}

// NewSingleAgentFactory creates a factory handing out solvers in order.
func NewSingleAgentFactory[O comparable, Act any](solvers ...*FakeSingleAgentSolver[O, Act]) *SingleAgentFactory[O, Act] {
	return &SingleAgentFactory[O, Act]{solvers: solvers}
}

// New implements core.SingleAgentSolverFactory.
func (f *SingleAgentFactory[O, Act]) New(params core.Params) (core.SingleAgentSolver[O, Act], error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Params = append(f.Params, params)
	if f.Err != nil {
		return nil, f.Err
	}
	if f.next >= len(f.solvers) {
		return nil, fmt.Errorf("factory exhausted after %d solvers", len(f.solvers))
	}
	s := f.solvers[f.next]
	f.next++
	return s, nil
}
