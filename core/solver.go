package core

import "context"

// Lifecycle is implemented by every solver. Calls are not idempotent.
type Lifecycle interface {
	Initialize(ctx context.Context) error
	Cleanup(ctx context.Context) error
}

// SingleAgentSolver answers utility and next-action queries for the local
// observations of one agent.
//
// SolveWith binds the solver to a domain producer. Implementations may defer
// calling the producer until the first SolveFrom, in which case a producer
// error surfaces there. SolveFrom may be arbitrarily expensive; NextAction
// and Utility are only required to answer for observations previously passed
// to SolveFrom.
type SingleAgentSolver[O comparable, Act any] interface {
	Lifecycle
	SolveWith(ctx context.Context, producer DomainProducer) error
	SolveFrom(ctx context.Context, obs O) error
	NextAction(ctx context.Context, obs O) (Act, error)
	Utility(ctx context.Context, obs O) (Value, error)
}

// SingleAgentSolverFactory constructs a single-agent solver from its
// parameters. It receives a private copy of the parameters.
type SingleAgentSolverFactory[O comparable, Act any] func(params Params) (SingleAgentSolver[O, Act], error)

// MultiAgentSolver solves the joint problem. SolveWith runs the complete
// solving procedure; NextAction and Utility are valid afterwards.
type MultiAgentSolver[A comparable, O comparable, Act any] interface {
	Lifecycle
	SolveWith(ctx context.Context, factory MultiAgentDomainFactory[A]) error
	NextAction(ctx context.Context, obs JointObservation[A, O]) (map[A]Act, error)
	Utility(ctx context.Context, obs JointObservation[A, O]) (Value, error)
}

// HeuristicParam is the Params key that, when present, is treated the same
// as a caller-supplied Heuristic.
const HeuristicParam = "heuristic"

// MultiAgentSolverConfig configures a multi-agent solver.
type MultiAgentSolverConfig[A comparable, O comparable, Act any] struct {
	// Heuristic guides the solver's search. MAHD always replaces it.
	Heuristic Heuristic[A, O, Act]
	// Params carries solver specific settings.
	Params Params
}

// HasHeuristic reports whether the config carries a caller-supplied heuristic
// either as a field or as a parameter.
func (c MultiAgentSolverConfig[A, O, Act]) HasHeuristic() bool {
	return c.Heuristic != nil || c.Params.Has(HeuristicParam)
}

// Clone returns a copy with its own parameter map.
func (c MultiAgentSolverConfig[A, O, Act]) Clone() MultiAgentSolverConfig[A, O, Act] {
	return MultiAgentSolverConfig[A, O, Act]{Heuristic: c.Heuristic, Params: c.Params.Clone()}
}

// MultiAgentSolverFactory constructs a multi-agent solver from its config.
type MultiAgentSolverFactory[A comparable, O comparable, Act any] func(cfg MultiAgentSolverConfig[A, O, Act]) (MultiAgentSolver[A, O, Act], error)
