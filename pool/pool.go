package pool

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hupe1980/mahd/cache"
	"github.com/hupe1980/mahd/core"
	"github.com/hupe1980/mahd/logging"
	"github.com/hupe1980/mahd/telemetry"
	"golang.org/x/sync/singleflight"
)

// Config describes the agents and how to build their solvers.
type Config[A comparable, O comparable, Act any] struct {
	// Domain is the multi-agent domain the single-agent domains are projected from.
	Domain core.MultiAgentDomain[A]
	// Agents is the fixed agent set. Defaults to Domain.Agents().
	Agents []A
	// DomainFactory projects Domain onto one agent. May be nil, in which case
	// every solve attempt fails with core.ErrMissingDomainFactory.
	DomainFactory core.SingleAgentDomainFactory[A]
	// SolverFactory builds one solver per agent.
	SolverFactory core.SingleAgentSolverFactory[O, Act]
	// SolverParams is cloned for every solver.
	SolverParams core.Params
}

// Options configures optional collaborators of a Pool.
type Options[A comparable, O comparable, Act any] struct {
	// Cache stores solutions. Defaults to an unbounded cache.Memory.
	Cache cache.SolutionCache[A, O, Act]
	// Logger defaults to NoOp logger if nil.
	Logger logging.Logger
	// Metrics is optional.
	Metrics *telemetry.Metrics
	// Tracer is optional.
	Tracer *telemetry.Tracer
}

type entry[O comparable, Act any] struct {
	mu      sync.Mutex // serializes calls into solver
	solver  core.SingleAgentSolver[O, Act]
	unbound error
	logger  logging.Logger
}

// Pool is the single-agent solver pool. It is safe for concurrent use.
type Pool[A comparable, O comparable, Act any] struct {
	agents  []A
	index   map[A]int
	entries []*entry[O, Act]

	cache   cache.SolutionCache[A, O, Act]
	flight  singleflight.Group
	keysMu  sync.Mutex
	keys    map[cache.Key[A, O]]uint64
	logger  logging.Logger
	metrics *telemetry.Metrics
	tracer  *telemetry.Tracer

	hits   atomic.Int64
	misses atomic.Int64
}

// New builds one solver per agent and binds each to its agent's domain
// producer. Either every agent is set up or New fails and returns no pool.
func New[A comparable, O comparable, Act any](ctx context.Context, cfg Config[A, O, Act], optFns ...func(o *Options[A, O, Act])) (*Pool[A, O, Act], error) {
	opts := Options[A, O, Act]{}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Cache == nil {
		opts.Cache = cache.NewMemory[A, O, Act]()
	}

	if cfg.SolverFactory == nil {
		return nil, fmt.Errorf("%w: single-agent solver factory is required", core.ErrInvalidConfig)
	}

	var (
		agents []A
		err    error
	)
	if len(cfg.Agents) > 0 {
		agents, err = core.ValidateAgents(cfg.Agents)
	} else {
		agents, err = core.AgentSet(cfg.Domain)
	}
	if err != nil {
		return nil, err
	}

	p := &Pool[A, O, Act]{
		agents:  agents,
		index:   make(map[A]int, len(agents)),
		entries: make([]*entry[O, Act], len(agents)),
		cache:   opts.Cache,
		keys:    map[cache.Key[A, O]]uint64{},
		logger:  core.EnsureLogger(opts.Logger),
		metrics: opts.Metrics,
		tracer:  opts.Tracer,
	}

	for i, agent := range agents {
		solver, err := cfg.SolverFactory(cfg.SolverParams.Clone())
		if err != nil {
			return nil, &core.AgentError{Agent: agent, Op: "create solver", Err: err}
		}
		if solver == nil {
			return nil, &core.AgentError{Agent: agent, Op: "create solver", Err: fmt.Errorf("%w: factory returned nil solver", core.ErrInvalidConfig)}
		}

		producer, unbound := bindProducer(cfg, agent)
		if err := solver.SolveWith(ctx, producer); err != nil {
			return nil, &core.AgentError{Agent: agent, Op: "solve with", Err: err}
		}

		p.index[agent] = i
		p.entries[i] = &entry[O, Act]{solver: solver, unbound: unbound, logger: agentLogger(p.logger, agent)}
	}

	if cfg.DomainFactory == nil {
		p.logger.Warn("single-agent domain factory not configured; solves will fail on first use", "component", "pool", "agents", len(agents))
	}
	p.logger.Debug("solver pool ready", "component", "pool", "agents", len(agents))

	return p, nil
}

// bindProducer returns the domain producer for agent and, when no domain
// factory is configured, the error every solve attempt must report.
func bindProducer[A comparable, O comparable, Act any](cfg Config[A, O, Act], agent A) (core.DomainProducer, error) {
	if cfg.DomainFactory == nil {
		unbound := &core.AgentError{Agent: agent, Op: "produce domain", Err: core.ErrMissingDomainFactory}
		return func() (core.SingleAgentDomain, error) { return nil, unbound }, unbound
	}
	md, factory := cfg.Domain, cfg.DomainFactory
	return func() (core.SingleAgentDomain, error) { return factory(md, agent) }, nil
}

// Agents returns the fixed agent set in order.
func (p *Pool[A, O, Act]) Agents() []A {
	out := make([]A, len(p.agents))
	copy(out, p.agents)
	return out
}

// Solver returns the solver owned for agent.
func (p *Pool[A, O, Act]) Solver(agent A) (core.SingleAgentSolver[O, Act], bool) {
	i, ok := p.index[agent]
	if !ok {
		return nil, false
	}
	return p.entries[i].solver, true
}

// GetOrCompute returns the cached solution for (agent, obs), solving for it on
// first request.
func (p *Pool[A, O, Act]) GetOrCompute(ctx context.Context, agent A, obs O) (core.Solution[Act], error) {
	sol, _, err := p.Lookup(ctx, agent, obs)
	return sol, err
}

// Lookup is GetOrCompute that additionally reports whether the solution was
// served from the cache.
func (p *Pool[A, O, Act]) Lookup(ctx context.Context, agent A, obs O) (core.Solution[Act], bool, error) {
	var zero core.Solution[Act]

	i, ok := p.index[agent]
	if !ok {
		return zero, false, &core.AgentError{Agent: agent, Observation: obs, Op: "get or compute", Err: core.ErrUnknownAgent}
	}

	if sol, ok := p.cache.Get(agent, obs); ok {
		p.hits.Add(1)
		p.metrics.CacheHit(agent)
		return sol, true, nil
	}
	p.misses.Add(1)
	p.metrics.CacheMiss(agent)

	e := p.entries[i]
	if e.unbound != nil {
		return zero, false, &core.AgentError{Agent: agent, Observation: obs, Op: "solve from", Err: e.unbound}
	}

	v, err, _ := p.flight.Do(p.flightKey(agent, obs), func() (any, error) {
		// A flight that finished between our cache miss and Do has already
		// stored the solution.
		if sol, ok := p.cache.Get(agent, obs); ok {
			return sol, nil
		}
		return p.compute(ctx, e, agent, obs)
	})
	if err != nil {
		return zero, false, err
	}
	return v.(core.Solution[Act]), false, nil
}

func (p *Pool[A, O, Act]) compute(ctx context.Context, e *entry[O, Act], agent A, obs O) (core.Solution[Act], error) {
	var zero core.Solution[Act]

	e.mu.Lock()
	defer e.mu.Unlock()

	ctx, span := p.tracer.StartAgentSolve(ctx, agent, obs)

	start := time.Now()
	err := e.solver.SolveFrom(ctx, obs)
	dur := time.Since(start)
	p.metrics.AgentSolve(agent, dur, err)
	if err != nil {
		err = &core.AgentError{Agent: agent, Observation: obs, Op: "solve from", Err: err}
		telemetry.End(span, err)
		return zero, err
	}

	value, err := e.solver.Utility(ctx, obs)
	if err != nil {
		err = &core.AgentError{Agent: agent, Observation: obs, Op: "utility", Err: err}
		telemetry.End(span, err)
		return zero, err
	}

	action, err := e.solver.NextAction(ctx, obs)
	if err != nil {
		err = &core.AgentError{Agent: agent, Observation: obs, Op: "next action", Err: err}
		telemetry.End(span, err)
		return zero, err
	}
	telemetry.End(span, nil)

	sol := core.Solution[Act]{Value: value, Action: action}
	if !p.cache.Put(agent, obs, sol) {
		// Another writer stored a solution first; it is the one callers see.
		if stored, ok := p.cache.Get(agent, obs); ok {
			e.logger.Debug("single-agent solution already cached", "component", "pool")
			return stored, nil
		}
	}

	e.logger.Debug("single-agent solution cached", "component", "pool", "cost", value.Cost, "duration", dur)

	return sol, nil
}

// flightKey identifies an (agent, observation) pair for de-duplication. Each
// distinct key under == gets its own id, so observations that merely print
// alike never share a flight.
func (p *Pool[A, O, Act]) flightKey(agent A, obs O) string {
	k := cache.Key[A, O]{Agent: agent, Observation: obs}

	p.keysMu.Lock()
	defer p.keysMu.Unlock()

	id, ok := p.keys[k]
	if !ok {
		id = uint64(len(p.keys))
		p.keys[k] = id
	}
	return strconv.FormatUint(id, 10)
}

// agentLogger scopes l to agent.
func agentLogger(l logging.Logger, agent any) logging.Logger {
	switch lg := l.(type) {
	case *logging.SolverLogger:
		return lg.WithAgent(agent)
	case logging.NoOpLogger:
		return lg
	default:
		return agentAttrLogger{Logger: l, agent: agent}
	}
}

// agentAttrLogger prefixes every record with the agent attribute.
type agentAttrLogger struct {
	logging.Logger
	agent any
}

func (l agentAttrLogger) Debug(msg string, args ...any) { l.Logger.Debug(msg, l.with(args)...) }
func (l agentAttrLogger) Info(msg string, args ...any)  { l.Logger.Info(msg, l.with(args)...) }
func (l agentAttrLogger) Warn(msg string, args ...any)  { l.Logger.Warn(msg, l.with(args)...) }
func (l agentAttrLogger) Error(msg string, args ...any) { l.Logger.Error(msg, l.with(args)...) }

func (l agentAttrLogger) with(args []any) []any {
	return append([]any{"agent", l.agent}, args...)
}

// Initialize initializes every solver in the fixed agent order, stopping at
// the first failure.
func (p *Pool[A, O, Act]) Initialize(ctx context.Context) error {
	for i, agent := range p.agents {
		if err := p.entries[i].solver.Initialize(ctx); err != nil {
			return &core.AgentError{Agent: agent, Op: "initialize", Err: err}
		}
	}
	return nil
}

// Cleanup cleans up every solver in the fixed agent order, stopping at the
// first failure.
func (p *Pool[A, O, Act]) Cleanup(ctx context.Context) error {
	for i, agent := range p.agents {
		if err := p.entries[i].solver.Cleanup(ctx); err != nil {
			return &core.AgentError{Agent: agent, Op: "cleanup", Err: err}
		}
	}
	return nil
}

// Stats returns cache usage as observed through this pool.
func (p *Pool[A, O, Act]) Stats() cache.Stats {
	return cache.Stats{
		Entries: p.cache.Len(),
		Hits:    p.hits.Load(),
		Misses:  p.misses.Load(),
	}
}
