package heuristic

import (
	"context"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/mahd/core"
	"github.com/hupe1980/mahd/logging"
	"github.com/hupe1980/mahd/telemetry"
)

// Source supplies memoized single-agent solutions. *pool.Pool implements it.
type Source[A comparable, O comparable, Act any] interface {
	Agents() []A
	Lookup(ctx context.Context, agent A, obs O) (core.Solution[Act], bool, error)
}

// Options configures a Bridge.
type Options struct {
	// ParallelAgents bounds how many agents are evaluated concurrently. Values
	// below 2 evaluate agents sequentially in the fixed agent order.
	ParallelAgents int
	// Logger defaults to NoOp logger if nil.
	Logger  logging.Logger
	Metrics *telemetry.Metrics
	Tracer  *telemetry.Tracer
}

// DefaultOptions evaluates agents sequentially without logging.
var DefaultOptions = Options{
	ParallelAgents: 1,
}

// WithParallelAgents evaluates up to limit agents concurrently.
func WithParallelAgents(limit int) func(o *Options) {
	return func(o *Options) {
		o.ParallelAgents = limit
	}
}

// Bridge is the decomposition heuristic. It implements core.Heuristic.
type Bridge[A comparable, O comparable, Act any] struct {
	source   Source[A, O, Act]
	agents   []A
	parallel int
	logger   logging.Logger
	metrics  *telemetry.Metrics
	tracer   *telemetry.Tracer
}

var _ core.Heuristic[string, string, string] = (*Bridge[string, string, string])(nil)

// NewBridge creates a Bridge over the agents of source.
func NewBridge[A comparable, O comparable, Act any](source Source[A, O, Act], optFns ...func(o *Options)) *Bridge[A, O, Act] {
	opts := DefaultOptions
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Bridge[A, O, Act]{
		source:   source,
		agents:   source.Agents(),
		parallel: opts.ParallelAgents,
		logger:   core.EnsureLogger(opts.Logger),
		metrics:  opts.Metrics,
		tracer:   opts.Tracer,
	}
}

// Evaluate returns the per-agent cost estimates and suggested actions for obs.
// obs must carry a component for every agent of the fixed agent set. The
// domain argument is accepted for interface conformance only.
func (b *Bridge[A, O, Act]) Evaluate(ctx context.Context, _ core.MultiAgentDomain[A], obs core.JointObservation[A, O]) (core.HeuristicResult[A, Act], error) {
	locals := make([]O, len(b.agents))
	for i, agent := range b.agents {
		o, ok := obs[agent]
		if !ok {
			return core.HeuristicResult[A, Act]{}, &core.AgentError{Agent: agent, Op: "evaluate heuristic", Err: core.ErrMissingAgentObservation}
		}
		locals[i] = o
	}

	ctx, span := b.tracer.StartHeuristic(ctx, len(b.agents))
	start := time.Now()

	sols := make([]core.Solution[Act], len(b.agents))
	var cached atomic.Int64

	lookup := func(ctx context.Context, i int) error {
		sol, hit, err := b.source.Lookup(ctx, b.agents[i], locals[i])
		if err != nil {
			return err
		}
		if hit {
			cached.Add(1)
		}
		sols[i] = sol
		return nil
	}

	var err error
	if b.parallel > 1 && len(b.agents) > 1 {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(b.parallel)
		for i := range b.agents {
			g.Go(func() error { return lookup(gctx, i) })
		}
		err = g.Wait()
	} else {
		for i := range b.agents {
			if err = lookup(ctx, i); err != nil {
				break
			}
		}
	}
	telemetry.End(span, err)
	if err != nil {
		return core.HeuristicResult[A, Act]{}, err
	}

	res := core.NewHeuristicResult[A, Act](len(b.agents))
	for i, agent := range b.agents {
		res.Values[agent] = core.CostValue(sols[i].Value.Cost)
		res.Actions[agent] = sols[i].Action
	}

	b.metrics.HeuristicEvaluation()
	if sl, ok := b.logger.(*logging.SolverLogger); ok {
		sl.LogHeuristic(len(b.agents), int(cached.Load()), res.TotalCost(), time.Since(start))
	} else {
		b.logger.Debug("heuristic evaluated",
			"component", "heuristic",
			"agents", len(b.agents),
			"cached", cached.Load(),
			"total_cost", res.TotalCost(),
			"duration", time.Since(start),
		)
	}

	return res, nil
}
