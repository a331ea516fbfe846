package core

import "fmt"

// Value is the scalar cost/reward wrapper returned by utility queries.
// Cost is always populated; Reward is kept for solvers that reason in
// rewards and is never read by the decomposition layer.
type Value struct {
	Cost   float64 `json:"cost" yaml:"cost"`
	Reward float64 `json:"reward,omitempty" yaml:"reward,omitempty"`
}

// CostValue builds a Value from a cost.
func CostValue(cost float64) Value { return Value{Cost: cost} }

// String implements fmt.Stringer.
func (v Value) String() string { return fmt.Sprintf("Value(cost=%g)", v.Cost) }

// Solution is the memoized (utility, next action) pair a single-agent solver
// produces for one local observation.
type Solution[Act any] struct {
	Value  Value
	Action Act
}

// JointObservation maps every agent to its local observation.
type JointObservation[A comparable, O comparable] map[A]O

// Clone returns a shallow copy of the joint observation.
func (o JointObservation[A, O]) Clone() JointObservation[A, O] {
	cp := make(JointObservation[A, O], len(o))
	for k, v := range o {
		cp[k] = v
	}
	return cp
}

// HeuristicResult is the dual heuristic: a per-agent cost estimate and a
// per-agent suggested action. Both maps are keyed by the same agent set.
type HeuristicResult[A comparable, Act any] struct {
	Values  map[A]Value
	Actions map[A]Act
}

// NewHeuristicResult allocates an empty result sized for n agents.
func NewHeuristicResult[A comparable, Act any](n int) HeuristicResult[A, Act] {
	return HeuristicResult[A, Act]{
		Values:  make(map[A]Value, n),
		Actions: make(map[A]Act, n),
	}
}

// TotalCost sums the per-agent cost estimates.
func (r HeuristicResult[A, Act]) TotalCost() float64 {
	total := 0.0
	for _, v := range r.Values {
		total += v.Cost
	}
	return total
}
