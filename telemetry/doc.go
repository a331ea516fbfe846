// Package telemetry bundles the optional OpenTelemetry tracing and Prometheus
// metrics used by the controller, the solver pool and the heuristic bridge.
//
// Both halves are safe to use when disabled: a Tracer created with tracing
// off hands out no-op spans and a nil *Metrics ignores every observation, so
// components can instrument unconditionally.
package telemetry
