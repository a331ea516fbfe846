// Package logging provides a minimal logging interface and adapters for MAHD.
//
// The Logger interface defines the standard logging methods (Debug, Info, Warn, Error)
// that the controller, the solver pool and the bundled solvers use for
// observability. This package includes:
//
//   - Logger interface for dependency injection
//   - SlogAdapter wrapping Go's structured logging
//   - SolverLogger with run/component context and solve helpers
//   - NoOpLogger for silent operation (testing, minimal setups)
//
// Usage:
//
//	logger := logging.NewSlogLogger(logging.LogLevelInfo, "json", false)
//	ctrl, err := mahd.New(ctx, cfg, func(o *mahd.Options) { o.Logger = logger })
//
// Warnings such as a replaced multi-agent heuristic are emitted at warn level
// with structured attributes and never abort execution.
package logging
