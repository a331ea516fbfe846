package jointsearch

import (
	"container/heap"
	"context"
	"errors"
	"fmt"
	"strings"
	"strconv"
	"sync"
	"time"

	"github.com/hupe1980/mahd/core"
	"github.com/hupe1980/mahd/logging"
	"github.com/hupe1980/mahd/solver"
)

var (
	// ErrNoPlan is returned when the search space is exhausted without
	// reaching a goal.
	ErrNoPlan = errors.New("no joint plan reaches the goal")
	// ErrExpansionLimit is returned when MaxExpansions is exceeded.
	ErrExpansionLimit = errors.New("expansion limit exceeded")
	// ErrNoHeuristic is returned when the solver config carries no heuristic.
	ErrNoHeuristic = errors.New("joint search requires a heuristic")
	// ErrNotInPolicy is returned for observations off the solved plan.
	ErrNotInPolicy = errors.New("observation is not on the solved plan")
	// ErrGoalReached is returned by NextAction for the goal observation.
	ErrGoalReached = errors.New("observation is a goal")
)

// Param keys read from core.MultiAgentSolverConfig.Params.
const (
	ParamMaxExpansions = "max_expansions"
	ParamPrune         = "prune"
)

// Successor is one joint transition.
type Successor[A comparable, O comparable, Act any] struct {
	Actions map[A]Act
	Next    core.JointObservation[A, O]
	Cost    float64
}

// Domain is the joint search contract a multi-agent domain must implement.
type Domain[A comparable, O comparable, Act any] interface {
	core.MultiAgentDomain[A]
	Initial() core.JointObservation[A, O]
	IsGoal(obs core.JointObservation[A, O]) bool
	Successors(obs core.JointObservation[A, O]) []Successor[A, O, Act]
}

// Step is one transition of a solved plan.
type Step[A comparable, O comparable, Act any] struct {
	Observation core.JointObservation[A, O]
	Actions     map[A]Act
	Cost        float64
}

// Options configures a Solver.
type Options struct {
	// MaxExpansions bounds the number of expanded nodes. Zero means unbounded.
	MaxExpansions int
	// Prune keeps only successors agreeing with the heuristic's suggested
	// action for at least one agent, falling back to all successors when none
	// agree.
	Prune bool
	// Logger defaults to NoOp logger if nil.
	Logger logging.Logger
}

// DefaultOptions bounds the search at 100000 expansions without pruning.
var DefaultOptions = Options{
	MaxExpansions: 100000,
}

type policyEntry[A comparable, Act any] struct {
	actions   map[A]Act
	remaining float64
	goal      bool
}

// Solver is a best-first joint search solver. It implements
// core.MultiAgentSolver.
type Solver[A comparable, O comparable, Act comparable] struct {
	solver.Base

	heuristic core.Heuristic[A, O, Act]
	opts      Options
	logger    logging.Logger

	mu         sync.RWMutex
	agents     []A
	ids        *interner[O]
	policy     map[string]policyEntry[A, Act]
	plan       []Step[A, O, Act]
	expansions int
}

var _ core.MultiAgentSolver[string, int64, int64] = (*Solver[string, int64, int64])(nil)

// New creates a Solver. Settings in cfg.Params override DefaultOptions and
// are in turn overridden by optFns.
func New[A comparable, O comparable, Act comparable](cfg core.MultiAgentSolverConfig[A, O, Act], optFns ...func(o *Options)) (*Solver[A, O, Act], error) {
	if cfg.Heuristic == nil {
		return nil, ErrNoHeuristic
	}

	opts := DefaultOptions
	maxExp, err := cfg.Params.Int(ParamMaxExpansions, opts.MaxExpansions)
	if err != nil {
		return nil, err
	}
	prune, err := cfg.Params.Bool(ParamPrune, opts.Prune)
	if err != nil {
		return nil, err
	}
	opts.MaxExpansions, opts.Prune = maxExp, prune
	for _, fn := range optFns {
		fn(&opts)
	}

	return &Solver[A, O, Act]{
		Base:      solver.NewBase("jointsearch"),
		heuristic: cfg.Heuristic,
		opts:      opts,
		logger:    core.EnsureLogger(opts.Logger),
	}, nil
}

// Factory returns a core.MultiAgentSolverFactory building Solvers.
func Factory[A comparable, O comparable, Act comparable](optFns ...func(o *Options)) core.MultiAgentSolverFactory[A, O, Act] {
	return func(cfg core.MultiAgentSolverConfig[A, O, Act]) (core.MultiAgentSolver[A, O, Act], error) {
		return New(cfg, optFns...)
	}
}

// interner numbers observations by == so joint observations can be keyed by
// their per-agent ids.
type interner[O comparable] struct {
	ids map[O]uint64
}

func newInterner[O comparable]() *interner[O] {
	return &interner[O]{ids: map[O]uint64{}}
}

// jointKey returns the key of obs over agents. Unless add is set, observations
// never seen by in yield false.
func jointKey[A comparable, O comparable](in *interner[O], agents []A, obs core.JointObservation[A, O], add bool) (string, bool) {
	var sb strings.Builder
	for _, a := range agents {
		o := obs[a]
		id, ok := in.ids[o]
		if !ok {
			if !add {
				return "", false
			}
			id = uint64(len(in.ids))
			in.ids[o] = id
		}
		sb.WriteString(strconv.FormatUint(id, 10))
		sb.WriteByte('|')
	}
	return sb.String(), true
}

// SolveWith builds the domain and searches for a minimum cost joint plan from
// its initial observation.
func (s *Solver[A, O, Act]) SolveWith(ctx context.Context, factory core.MultiAgentDomainFactory[A]) error {
	md, err := factory()
	if err != nil {
		return fmt.Errorf("build domain: %w", err)
	}
	d, ok := md.(Domain[A, O, Act])
	if !ok {
		return fmt.Errorf("%w: domain %T does not support joint search", core.ErrInvalidConfig, md)
	}
	agents := md.Agents()
	ids := newInterner[O]()
	key := func(obs core.JointObservation[A, O]) string {
		k, _ := jointKey(ids, agents, obs, true)
		return k
	}
	start := time.Now()

	evaluate := func(obs core.JointObservation[A, O]) (float64, map[A]Act, error) {
		res, err := s.heuristic.Evaluate(ctx, md, obs)
		if err != nil {
			return 0, nil, err
		}
		return res.TotalCost(), res.Actions, nil
	}

	initial := d.Initial()
	h, hint, err := evaluate(initial)
	if err != nil {
		return err
	}

	seq := 0
	root := &node[A, O, Act]{obs: initial, key: key(initial), f: h, hint: hint}
	open := &queue[A, O, Act]{}
	heap.Push(open, root)
	best := map[string]float64{root.key: 0}
	closed := map[string]bool{}
	expansions := 0

	for open.Len() > 0 {
		if err := ctx.Err(); err != nil {
			return err
		}

		n := heap.Pop(open).(*node[A, O, Act])
		if closed[n.key] {
			continue
		}
		closed[n.key] = true

		if d.IsGoal(n.obs) {
			s.record(agents, ids, n, expansions)
			s.logger.Debug("joint plan found",
				"component", "jointsearch",
				"cost", n.g,
				"steps", len(s.Plan()),
				"expansions", expansions,
				"duration", time.Since(start),
			)
			return nil
		}

		expansions++
		if s.opts.MaxExpansions > 0 && expansions > s.opts.MaxExpansions {
			return fmt.Errorf("%w: %d", ErrExpansionLimit, s.opts.MaxExpansions)
		}

		succs := d.Successors(n.obs)
		if s.opts.Prune {
			succs = prune(succs, n.hint)
		}

		for _, succ := range succs {
			k := key(succ.Next)
			if closed[k] {
				continue
			}
			g := n.g + succ.Cost
			if old, ok := best[k]; ok && g >= old {
				continue
			}
			best[k] = g

			h, hint, err := evaluate(succ.Next)
			if err != nil {
				return err
			}

			tie := 1
			if agreement(succ.Actions, n.hint) == len(agents) {
				tie = 0
			}
			seq++
			heap.Push(open, &node[A, O, Act]{
				obs:     succ.Next,
				key:     k,
				g:       g,
				f:       g + h,
				tie:     tie,
				seq:     seq,
				hint:    hint,
				parent:  n,
				actions: succ.Actions,
				cost:    succ.Cost,
			})
		}
	}

	return ErrNoPlan
}

// agreement counts agents whose action equals the hinted action.
func agreement[A comparable, Act comparable](actions, hint map[A]Act) int {
	n := 0
	for a, act := range actions {
		if h, ok := hint[a]; ok && h == act {
			n++
		}
	}
	return n
}

func prune[A comparable, O comparable, Act comparable](succs []Successor[A, O, Act], hint map[A]Act) []Successor[A, O, Act] {
	kept := make([]Successor[A, O, Act], 0, len(succs))
	for _, succ := range succs {
		if agreement(succ.Actions, hint) > 0 {
			kept = append(kept, succ)
		}
	}
	if len(kept) == 0 {
		return succs
	}
	return kept
}

func (s *Solver[A, O, Act]) record(agents []A, ids *interner[O], goal *node[A, O, Act], expansions int) {
	var chain []*node[A, O, Act]
	for n := goal; n != nil; n = n.parent {
		chain = append(chain, n)
	}

	policy := make(map[string]policyEntry[A, Act], len(chain))
	plan := make([]Step[A, O, Act], 0, len(chain)-1)

	policy[goal.key] = policyEntry[A, Act]{goal: true}
	for i := len(chain) - 1; i > 0; i-- {
		from, to := chain[i], chain[i-1]
		plan = append(plan, Step[A, O, Act]{Observation: from.obs.Clone(), Actions: to.actions, Cost: to.cost})
		if _, seen := policy[from.key]; !seen {
			policy[from.key] = policyEntry[A, Act]{actions: to.actions, remaining: goal.g - from.g}
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.agents = agents
	s.ids = ids
	s.policy = policy
	s.plan = plan
	s.expansions = expansions
}

func (s *Solver[A, O, Act]) lookup(obs core.JointObservation[A, O]) (policyEntry[A, Act], error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.policy == nil {
		return policyEntry[A, Act]{}, core.ErrNotSolved
	}
	k, ok := jointKey(s.ids, s.agents, obs, false)
	if !ok {
		return policyEntry[A, Act]{}, ErrNotInPolicy
	}
	e, ok := s.policy[k]
	if !ok {
		return policyEntry[A, Act]{}, ErrNotInPolicy
	}
	return e, nil
}

// NextAction returns the planned joint action for obs.
func (s *Solver[A, O, Act]) NextAction(_ context.Context, obs core.JointObservation[A, O]) (map[A]Act, error) {
	e, err := s.lookup(obs)
	if err != nil {
		return nil, err
	}
	if e.goal {
		return nil, ErrGoalReached
	}
	out := make(map[A]Act, len(e.actions))
	for a, act := range e.actions {
		out[a] = act
	}
	return out, nil
}

// Utility returns the remaining plan cost from obs.
func (s *Solver[A, O, Act]) Utility(_ context.Context, obs core.JointObservation[A, O]) (core.Value, error) {
	e, err := s.lookup(obs)
	if err != nil {
		return core.Value{}, err
	}
	return core.CostValue(e.remaining), nil
}

// Plan returns the solved plan from the initial observation to the goal.
func (s *Solver[A, O, Act]) Plan() []Step[A, O, Act] {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Step[A, O, Act], len(s.plan))
	copy(out, s.plan)
	return out
}

// Expansions returns the number of nodes expanded by the last solve.
func (s *Solver[A, O, Act]) Expansions() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.expansions
}
