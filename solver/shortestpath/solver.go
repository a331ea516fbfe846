// Package shortestpath is a single-agent solver for roadmap agent views. It
// ignores all other agents and answers with the shortest path to the goal.
package shortestpath

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"

	"gonum.org/v1/gonum/graph/path"
	"gonum.org/v1/gonum/graph/simple"

	"github.com/hupe1980/mahd/core"
	"github.com/hupe1980/mahd/domain/roadmap"
	"github.com/hupe1980/mahd/logging"
	"github.com/hupe1980/mahd/solver"
)

// ErrUnreachable is returned when the goal cannot be reached from an
// observation.
var ErrUnreachable = errors.New("goal is unreachable")

// Algorithm selects the search used by SolveFrom.
type Algorithm string

const (
	// AStar runs one A* search per observation.
	AStar Algorithm = "astar"
	// Dijkstra builds one shortest path tree rooted at the goal and answers
	// every observation from it.
	Dijkstra Algorithm = "dijkstra"
)

// ParamAlgorithm is the core.Params key selecting the Algorithm.
const ParamAlgorithm = "algorithm"

// Options configures a Solver.
type Options struct {
	Algorithm Algorithm
	// Logger defaults to NoOp logger if nil.
	Logger logging.Logger
}

// DefaultOptions uses A*.
var DefaultOptions = Options{
	Algorithm: AStar,
}

type answer struct {
	next int64
	cost float64
}

// Solver implements core.SingleAgentSolver[int64, int64] on *roadmap.AgentView.
type Solver struct {
	solver.Base

	opts   Options
	logger logging.Logger

	mu      sync.Mutex
	tree    *path.Shortest
	answers map[int64]answer
}

var _ core.SingleAgentSolver[int64, int64] = (*Solver)(nil)

// New creates a Solver.
func New(optFns ...func(o *Options)) (*Solver, error) {
	opts := DefaultOptions
	for _, fn := range optFns {
		fn(&opts)
	}
	switch opts.Algorithm {
	case AStar, Dijkstra:
	default:
		return nil, fmt.Errorf("%w: unknown algorithm %q", core.ErrInvalidConfig, opts.Algorithm)
	}
	return &Solver{
		Base:    solver.NewBase("shortestpath"),
		opts:    opts,
		logger:  core.EnsureLogger(opts.Logger),
		answers: map[int64]answer{},
	}, nil
}

// Factory returns a core.SingleAgentSolverFactory reading ParamAlgorithm from
// the solver parameters.
func Factory(optFns ...func(o *Options)) core.SingleAgentSolverFactory[int64, int64] {
	return func(params core.Params) (core.SingleAgentSolver[int64, int64], error) {
		algo, err := params.String(ParamAlgorithm, string(DefaultOptions.Algorithm))
		if err != nil {
			return nil, err
		}
		fns := append([]func(o *Options){func(o *Options) { o.Algorithm = Algorithm(algo) }}, optFns...)
		return New(fns...)
	}
}

// SolveWith binds the solver to its agent view producer.
func (s *Solver) SolveWith(_ context.Context, producer core.DomainProducer) error {
	if err := s.Bind(producer); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tree = nil
	s.answers = map[int64]answer{}
	return nil
}

// SolveFrom computes the shortest path from obs to the goal.
func (s *Solver) SolveFrom(ctx context.Context, obs int64) error {
	view, err := solver.DomainAs[*roadmap.AgentView](&s.Base)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.answers[obs]; ok {
		return nil
	}
	if view.Graph.Node(obs) == nil {
		return fmt.Errorf("%w: node %d is not on the roadmap", core.ErrInvalidConfig, obs)
	}
	if obs == view.Goal {
		s.answers[obs] = answer{next: obs}
		return nil
	}

	var (
		nodes  []int64
		weight float64
	)
	switch s.opts.Algorithm {
	case Dijkstra:
		if s.tree == nil {
			tree := path.DijkstraFrom(simple.Node(view.Goal), view.Graph)
			s.tree = &tree
		}
		p, w := s.tree.To(obs)
		// The tree is rooted at the goal; reverse the path.
		for i := len(p) - 1; i >= 0; i-- {
			nodes = append(nodes, p[i].ID())
		}
		weight = w
	default:
		sp, expanded := path.AStar(simple.Node(obs), simple.Node(view.Goal), view.Graph, nil)
		p, w := sp.To(view.Goal)
		for _, n := range p {
			nodes = append(nodes, n.ID())
		}
		weight = w
		s.logger.Debug("a* search finished", "component", "shortestpath", "agent", view.Agent, "from", obs, "expanded", expanded)
	}

	if len(nodes) < 2 || math.IsInf(weight, 1) {
		return fmt.Errorf("agent %s from node %d: %w", view.Agent, obs, ErrUnreachable)
	}
	s.answers[obs] = answer{next: nodes[1], cost: weight}

	return nil
}

func (s *Solver) answer(obs int64) (answer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.answers[obs]
	if !ok {
		return answer{}, fmt.Errorf("%w: node %d", core.ErrNotSolved, obs)
	}
	return a, nil
}

// NextAction returns the next node on the shortest path, or obs itself at the
// goal.
func (s *Solver) NextAction(_ context.Context, obs int64) (int64, error) {
	a, err := s.answer(obs)
	return a.next, err
}

// Utility returns the shortest path weight.
func (s *Solver) Utility(_ context.Context, obs int64) (core.Value, error) {
	a, err := s.answer(obs)
	if err != nil {
		return core.Value{}, err
	}
	return core.CostValue(a.cost), nil
}
