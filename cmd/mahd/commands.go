package main

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
	"github.com/spf13/cobra"

	"github.com/hupe1980/mahd"
	"github.com/hupe1980/mahd/core"
	"github.com/hupe1980/mahd/domain/roadmap"
	"github.com/hupe1980/mahd/logging"
	"github.com/hupe1980/mahd/solver/advisor"
	"github.com/hupe1980/mahd/solver/jointsearch"
	"github.com/hupe1980/mahd/solver/shortestpath"
	"github.com/hupe1980/mahd/telemetry"
)

type solveFlags struct {
	scenario      string
	maxExpansions int
	prune         bool
	algorithm     string
	provider      string
	modelName     string
	baseURL       string
	attempts      int
	parallel      int
	logLevel      string
	logFormat     string
	metrics       bool
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "mahd",
		Short:         "Multi-agent heuristic decomposition solver",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newSolveCmd())
	return root
}

func newSolveCmd() *cobra.Command {
	var f solveFlags

	cmd := &cobra.Command{
		Use:   "solve",
		Short: "Solve a roadmap scenario and print the joint plan",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSolve(cmd.Context(), cmd.OutOrStdout(), cmd.ErrOrStderr(), f)
		},
	}

	cmd.Flags().StringVarP(&f.scenario, "scenario", "s", "", "path to the scenario YAML file")
	cmd.Flags().IntVar(&f.maxExpansions, "max-expansions", jointsearch.DefaultOptions.MaxExpansions, "joint search expansion limit (0 = unbounded)")
	cmd.Flags().BoolVar(&f.prune, "prune", false, "expand only successors agreeing with the heuristic for at least one agent")
	cmd.Flags().StringVar(&f.algorithm, "algorithm", string(shortestpath.AStar), "single-agent solver: astar, dijkstra or advisor")
	cmd.Flags().StringVar(&f.provider, "provider", providerOpenAI, "model provider for the advisor: openai or anthropic")
	cmd.Flags().StringVar(&f.modelName, "model", "", "model name for the advisor (provider default when empty)")
	cmd.Flags().StringVar(&f.baseURL, "base-url", "", "override the provider API base URL")
	cmd.Flags().IntVar(&f.attempts, "advice-attempts", 2, "requests per observation when the advisor's answer is invalid")
	cmd.Flags().IntVar(&f.parallel, "parallel", 1, "agents evaluated concurrently per heuristic request")
	cmd.Flags().StringVar(&f.logLevel, "log-level", "warn", "log level: debug, info, warn, error")
	cmd.Flags().StringVar(&f.logFormat, "log-format", "text", "log format: text or json")
	cmd.Flags().BoolVar(&f.metrics, "metrics", false, "print Prometheus metrics after solving")
	_ = cmd.MarkFlagRequired("scenario")

	return cmd
}

func runSolve(ctx context.Context, out, errOut io.Writer, f solveFlags) error {
	if ctx == nil {
		ctx = context.Background()
	}

	level, err := logging.ParseLevel(f.logLevel)
	if err != nil {
		return err
	}
	logger := logging.NewLogger(&logging.LoggerConfig{
		Level:     level,
		Format:    f.logFormat,
		Output:    errOut,
		Component: "cli",
	})

	done := logger.StartTimer("load scenario")
	sc, err := roadmap.LoadScenarioFile(f.scenario)
	if err != nil {
		return err
	}
	domain, err := sc.Build()
	if err != nil {
		return err
	}
	done()

	single, err := singleAgentFactory(f, logger)
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	metrics, err := telemetry.NewMetrics(reg)
	if err != nil {
		return err
	}

	ctrl, err := mahd.New(ctx, mahd.Config[string, int64, int64]{
		MultiAgentSolver: jointsearch.Factory[string, int64, int64](func(o *jointsearch.Options) {
			o.Logger = logger
		}),
		SingleAgentSolver: single,
		MultiAgentDomainFactory: func() (core.MultiAgentDomain[string], error) {
			return domain, nil
		},
		SingleAgentDomainFactory: roadmap.SingleAgent,
		MultiAgentSolverConfig: core.MultiAgentSolverConfig[string, int64, int64]{
			Params: core.Params{
				jointsearch.ParamMaxExpansions: f.maxExpansions,
				jointsearch.ParamPrune:         f.prune,
			},
		},
		SingleAgentSolverParams: core.Params{
			shortestpath.ParamAlgorithm: f.algorithm,
		},
	}, func(o *mahd.Options[string, int64, int64]) {
		o.Logger = logger
		o.Metrics = metrics
		o.Tracer = telemetry.NewTracer(false)
		o.ParallelAgents = f.parallel
	})
	if err != nil {
		return err
	}

	if err := ctrl.Initialize(ctx); err != nil {
		return err
	}
	solveErr := ctrl.Solve(ctx)
	if err := ctrl.Cleanup(ctx); err != nil && solveErr == nil {
		solveErr = err
	}
	if solveErr != nil {
		return solveErr
	}

	initial := domain.Initial()
	total, err := ctrl.Utility(ctx, initial)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "run %s\n", ctrl.RunID())
	if js, ok := ctrl.MultiAgentSolver().(*jointsearch.Solver[string, int64, int64]); ok {
		for i, step := range js.Plan() {
			fmt.Fprintf(out, "step %d: %s (cost %g)\n", i+1, formatMoves(domain, step), step.Cost)
		}
		fmt.Fprintf(out, "expansions: %d\n", js.Expansions())
	}
	stats := ctrl.Stats()
	fmt.Fprintf(out, "total cost: %g\n", total.Cost)
	fmt.Fprintf(out, "single-agent solutions: %d (hits %d, misses %d)\n", stats.Entries, stats.Hits, stats.Misses)

	if f.metrics {
		families, err := reg.Gather()
		if err != nil {
			return err
		}
		for _, mf := range families {
			if _, err := expfmt.MetricFamilyToText(out, mf); err != nil {
				return err
			}
		}
	}
	return nil
}

// singleAgentFactory selects the single-agent solver named by --algorithm.
func singleAgentFactory(f solveFlags, logger logging.Logger) (core.SingleAgentSolverFactory[int64, int64], error) {
	if f.algorithm != algorithmAdvisor {
		return shortestpath.Factory(func(o *shortestpath.Options) {
			o.Logger = logger
		}), nil
	}
	m, err := newAdvisorModel(f)
	if err != nil {
		return nil, err
	}
	return advisor.Factory[int64, int64](m, func(o *advisor.Options) {
		o.MaxAttempts = f.attempts
		o.Logger = logger
	}), nil
}

func formatMoves(d *roadmap.Domain, step jointsearch.Step[string, int64, int64]) string {
	agents := make([]string, 0, len(step.Actions))
	for a := range step.Actions {
		agents = append(agents, a)
	}
	sort.Strings(agents)

	moves := make([]string, 0, len(agents))
	for _, a := range agents {
		from, to := step.Observation[a], step.Actions[a]
		if from == to {
			moves = append(moves, fmt.Sprintf("%s waits at %s", a, d.NodeName(from)))
			continue
		}
		moves = append(moves, fmt.Sprintf("%s %s->%s", a, d.NodeName(from), d.NodeName(to)))
	}
	return strings.Join(moves, ", ")
}
