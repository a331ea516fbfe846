package core

import "context"

// Heuristic computes the dual heuristic for a joint observation.
type Heuristic[A comparable, O comparable, Act any] interface {
	Evaluate(ctx context.Context, md MultiAgentDomain[A], obs JointObservation[A, O]) (HeuristicResult[A, Act], error)
}

// HeuristicFunc adapts a function to the Heuristic interface.
type HeuristicFunc[A comparable, O comparable, Act any] func(ctx context.Context, md MultiAgentDomain[A], obs JointObservation[A, O]) (HeuristicResult[A, Act], error)

// Evaluate implements Heuristic.
func (f HeuristicFunc[A, O, Act]) Evaluate(ctx context.Context, md MultiAgentDomain[A], obs JointObservation[A, O]) (HeuristicResult[A, Act], error) {
	return f(ctx, md, obs)
}
