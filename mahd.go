// Package mahd provides the multi-agent heuristic decomposition controller.
// It solves a multi-agent problem with an arbitrary multi-agent solver whose
// search is guided by a heuristic built from independently solved,
// per-agent relaxations of the same problem. Most applications interact with
// this package by:
//  1. Creating a Controller via New() with the solver and domain factories
//  2. Calling Solve to run the multi-agent solver under the decomposition heuristic
//  3. Querying NextAction and Utility for joint observations
//
// Initialize and Cleanup propagate to the multi-agent solver first and then
// to every single-agent solver in the fixed agent order.
package mahd

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/hupe1980/mahd/cache"
	"github.com/hupe1980/mahd/core"
	"github.com/hupe1980/mahd/heuristic"
	"github.com/hupe1980/mahd/logging"
	"github.com/hupe1980/mahd/pool"
	"github.com/hupe1980/mahd/telemetry"
)

// OverrideWarning is the message logged when a caller-supplied multi-agent
// heuristic is replaced.
const OverrideWarning = "multi-agent solver heuristic will be overwritten"

// State is the lifecycle state of a Controller.
type State int

const (
	// StateUnconfigured is the state of a zero Controller.
	StateUnconfigured State = iota
	// StateConstructed is the state after New succeeded.
	StateConstructed
	// StateSolving is the state while Solve runs.
	StateSolving
	// StateSolved is the state after a successful Solve.
	StateSolved
	// StateFailed is the state after a failed Solve.
	StateFailed
)

// String implements fmt.Stringer.
func (s State) String() string {
	switch s {
	case StateUnconfigured:
		return "unconfigured"
	case StateConstructed:
		return "constructed"
	case StateSolving:
		return "solving"
	case StateSolved:
		return "solved"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Config names the collaborators of a Controller. It is copied on
// construction; parameter maps are cloned.
type Config[A comparable, O comparable, Act any] struct {
	// MultiAgentSolver builds the multi-agent solver. Required.
	MultiAgentSolver core.MultiAgentSolverFactory[A, O, Act]
	// SingleAgentSolver builds one solver per agent. Required.
	SingleAgentSolver core.SingleAgentSolverFactory[O, Act]
	// MultiAgentDomainFactory builds the multi-agent domain. Required.
	MultiAgentDomainFactory core.MultiAgentDomainFactory[A]
	// SingleAgentDomainFactory projects the multi-agent domain onto one agent.
	// Optional at construction; single-agent solves fail without it.
	SingleAgentDomainFactory core.SingleAgentDomainFactory[A]
	// MultiAgentSolverConfig is handed to MultiAgentSolver with its heuristic
	// replaced by the decomposition heuristic.
	MultiAgentSolverConfig core.MultiAgentSolverConfig[A, O, Act]
	// SingleAgentSolverParams is cloned for every single-agent solver.
	SingleAgentSolverParams core.Params
}

// Options configures optional collaborators of a Controller.
type Options[A comparable, O comparable, Act any] struct {
	// Logger defaults to NoOp logger if nil.
	Logger logging.Logger
	// Registerer, when set and Metrics is nil, receives the controller's
	// Prometheus collectors.
	Registerer prometheus.Registerer
	// Metrics overrides Registerer.
	Metrics *telemetry.Metrics
	// Tracer is optional.
	Tracer *telemetry.Tracer
	// Cache overrides the default in-memory solution cache.
	Cache cache.SolutionCache[A, O, Act]
	// ParallelAgents bounds concurrent per-agent evaluation in the heuristic.
	ParallelAgents int
	// RunID identifies the controller in logs and spans. Defaults to a UUID.
	RunID string
}

// Controller is the MAHD solver. Create it with New.
type Controller[A comparable, O comparable, Act any] struct {
	cfg    Config[A, O, Act]
	runID  string
	logger logging.Logger

	metrics *telemetry.Metrics
	tracer  *telemetry.Tracer

	pool   *pool.Pool[A, O, Act]
	bridge *heuristic.Bridge[A, O, Act]
	multi  core.MultiAgentSolver[A, O, Act]

	mu       sync.RWMutex
	state    State
	warnings []core.Warning
}

// New constructs the controller: it builds the multi-agent domain once, one
// single-agent solver per agent, the decomposition heuristic and the
// multi-agent solver configured with that heuristic. Any caller-supplied
// heuristic is replaced and a warning is emitted.
func New[A comparable, O comparable, Act any](ctx context.Context, cfg Config[A, O, Act], optFns ...func(o *Options[A, O, Act])) (*Controller[A, O, Act], error) {
	opts := Options[A, O, Act]{}
	for _, fn := range optFns {
		fn(&opts)
	}

	switch {
	case cfg.MultiAgentSolver == nil:
		return nil, fmt.Errorf("%w: multi-agent solver factory is required", core.ErrInvalidConfig)
	case cfg.SingleAgentSolver == nil:
		return nil, fmt.Errorf("%w: single-agent solver factory is required", core.ErrInvalidConfig)
	case cfg.MultiAgentDomainFactory == nil:
		return nil, fmt.Errorf("%w: multi-agent domain factory is required", core.ErrInvalidConfig)
	}

	c := &Controller[A, O, Act]{
		runID:   opts.RunID,
		metrics: opts.Metrics,
		tracer:  opts.Tracer,
	}
	if c.runID == "" {
		c.runID = uuid.NewString()
	}
	c.logger = runLogger(opts.Logger, c.runID)

	if c.metrics == nil && opts.Registerer != nil {
		m, err := telemetry.NewMetrics(opts.Registerer)
		if err != nil {
			return nil, err
		}
		c.metrics = m
	}

	c.cfg = Config[A, O, Act]{
		MultiAgentSolver:         cfg.MultiAgentSolver,
		SingleAgentSolver:        cfg.SingleAgentSolver,
		MultiAgentDomainFactory:  cfg.MultiAgentDomainFactory,
		SingleAgentDomainFactory: cfg.SingleAgentDomainFactory,
		MultiAgentSolverConfig:   cfg.MultiAgentSolverConfig.Clone(),
		SingleAgentSolverParams:  cfg.SingleAgentSolverParams.Clone(),
	}

	if c.cfg.MultiAgentSolverConfig.HasHeuristic() {
		c.warn(core.WarnHeuristicOverridden, OverrideWarning)
	}

	md, err := c.cfg.MultiAgentDomainFactory()
	if err != nil {
		return nil, fmt.Errorf("build multi-agent domain: %w", err)
	}

	c.pool, err = pool.New(ctx, pool.Config[A, O, Act]{
		Domain:        md,
		DomainFactory: c.cfg.SingleAgentDomainFactory,
		SolverFactory: c.cfg.SingleAgentSolver,
		SolverParams:  c.cfg.SingleAgentSolverParams,
	}, func(o *pool.Options[A, O, Act]) {
		o.Cache = opts.Cache
		o.Logger = c.logger
		o.Metrics = c.metrics
		o.Tracer = c.tracer
	})
	if err != nil {
		return nil, err
	}

	c.bridge = heuristic.NewBridge[A, O, Act](c.pool, func(o *heuristic.Options) {
		if opts.ParallelAgents > 0 {
			o.ParallelAgents = opts.ParallelAgents
		}
		o.Logger = c.logger
		o.Metrics = c.metrics
		o.Tracer = c.tracer
	})

	multiCfg := core.MultiAgentSolverConfig[A, O, Act]{
		Heuristic: c.bridge,
		Params:    c.cfg.MultiAgentSolverConfig.Params.Without(core.HeuristicParam),
	}
	c.cfg.MultiAgentSolverConfig = multiCfg

	c.multi, err = c.cfg.MultiAgentSolver(multiCfg.Clone())
	if err != nil {
		return nil, fmt.Errorf("create multi-agent solver: %w", err)
	}
	if c.multi == nil {
		return nil, fmt.Errorf("%w: multi-agent solver factory returned nil", core.ErrInvalidConfig)
	}

	c.state = StateConstructed
	c.logger.Info("controller constructed", "component", "mahd", "agents", len(c.pool.Agents()))

	return c, nil
}

// runLogger attaches the run id to l.
func runLogger(l logging.Logger, runID string) logging.Logger {
	switch lg := l.(type) {
	case nil:
		return logging.NoOpLogger{}
	case *logging.SolverLogger:
		return lg.WithRun(runID)
	default:
		return l
	}
}

func (c *Controller[A, O, Act]) warn(code core.WarningCode, msg string) {
	c.mu.Lock()
	c.warnings = append(c.warnings, core.Warning{Code: code, Message: msg})
	c.mu.Unlock()

	c.metrics.OverrideWarning()
	c.logger.Warn(msg, "component", "mahd", "code", string(code), "run_id", c.runID)
}

// Solve runs the multi-agent solver under the decomposition heuristic. It may
// be called again after a successful solve.
func (c *Controller[A, O, Act]) Solve(ctx context.Context) error {
	c.mu.Lock()
	if c.state != StateConstructed && c.state != StateSolved {
		state := c.state
		c.mu.Unlock()
		return fmt.Errorf("%w: cannot solve in state %s", core.ErrInvalidState, state)
	}
	c.state = StateSolving
	c.mu.Unlock()

	ctx, span := c.tracer.StartSolve(ctx, c.runID, len(c.pool.Agents()))
	start := time.Now()

	err := c.multi.SolveWith(ctx, c.cfg.MultiAgentDomainFactory)

	dur := time.Since(start)
	c.metrics.Solve(dur)
	telemetry.End(span, err)

	c.mu.Lock()
	if err != nil {
		c.state = StateFailed
	} else {
		c.state = StateSolved
	}
	c.mu.Unlock()

	if sl, ok := c.logger.(*logging.SolverLogger); ok {
		sl.LogSolve("solve", dur, err == nil, err)
	}
	if err != nil {
		c.logger.Error("multi-agent solve failed", "component", "mahd", "error", err)
		return fmt.Errorf("solve: %w", err)
	}

	stats := c.pool.Stats()
	c.logger.Info("multi-agent solve completed",
		"component", "mahd",
		"duration", dur,
		"cached_solutions", stats.Entries,
		"cache_hits", stats.Hits,
		"cache_misses", stats.Misses,
	)
	return nil
}

func (c *Controller[A, O, Act]) solved() error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.state != StateSolved {
		return fmt.Errorf("%w: state is %s", core.ErrNotSolved, c.state)
	}
	return nil
}

// NextAction returns the multi-agent solver's joint action for obs.
func (c *Controller[A, O, Act]) NextAction(ctx context.Context, obs core.JointObservation[A, O]) (map[A]Act, error) {
	if err := c.solved(); err != nil {
		return nil, err
	}
	return c.multi.NextAction(ctx, obs)
}

// Utility returns the multi-agent solver's value for obs.
func (c *Controller[A, O, Act]) Utility(ctx context.Context, obs core.JointObservation[A, O]) (core.Value, error) {
	if err := c.solved(); err != nil {
		return core.Value{}, err
	}
	return c.multi.Utility(ctx, obs)
}

// Initialize initializes the multi-agent solver and then every single-agent
// solver in the fixed agent order. The first failure aborts.
func (c *Controller[A, O, Act]) Initialize(ctx context.Context) error {
	if c.multi == nil {
		return fmt.Errorf("%w: controller is %s", core.ErrInvalidState, StateUnconfigured)
	}
	if err := c.multi.Initialize(ctx); err != nil {
		return fmt.Errorf("initialize multi-agent solver: %w", err)
	}
	return c.pool.Initialize(ctx)
}

// Cleanup cleans up the multi-agent solver and then every single-agent solver
// in the fixed agent order. The first failure aborts.
func (c *Controller[A, O, Act]) Cleanup(ctx context.Context) error {
	if c.multi == nil {
		return fmt.Errorf("%w: controller is %s", core.ErrInvalidState, StateUnconfigured)
	}
	if err := c.multi.Cleanup(ctx); err != nil {
		return fmt.Errorf("cleanup multi-agent solver: %w", err)
	}
	return c.pool.Cleanup(ctx)
}

// Heuristic returns the decomposition heuristic handed to the multi-agent
// solver.
func (c *Controller[A, O, Act]) Heuristic() *heuristic.Bridge[A, O, Act] { return c.bridge }

// MultiAgentSolver returns the multi-agent solver.
func (c *Controller[A, O, Act]) MultiAgentSolver() core.MultiAgentSolver[A, O, Act] { return c.multi }

// Agents returns the fixed agent set.
func (c *Controller[A, O, Act]) Agents() []A {
	if c.pool == nil {
		return nil
	}
	return c.pool.Agents()
}

// State returns the lifecycle state.
func (c *Controller[A, O, Act]) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// RunID returns the controller's run id.
func (c *Controller[A, O, Act]) RunID() string { return c.runID }

// Warnings returns the warnings emitted so far.
func (c *Controller[A, O, Act]) Warnings() []core.Warning {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]core.Warning, len(c.warnings))
	copy(out, c.warnings)
	return out
}

// Stats returns solution cache usage.
func (c *Controller[A, O, Act]) Stats() cache.Stats {
	if c.pool == nil {
		return cache.Stats{}
	}
	return c.pool.Stats()
}
