package telemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

const tracerName = "github.com/hupe1980/mahd"

// Tracer starts spans for the decomposition solver. The zero value is a
// disabled tracer.
type Tracer struct {
	tracer  trace.Tracer
	enabled bool
}

// NewTracer returns a tracer backed by the global OpenTelemetry provider.
func NewTracer(enabled bool) *Tracer {
	return &Tracer{tracer: otel.Tracer(tracerName), enabled: enabled}
}

// NewTracerFromProvider returns an enabled tracer using tp.
func NewTracerFromProvider(tp trace.TracerProvider) *Tracer {
	return &Tracer{tracer: tp.Tracer(tracerName), enabled: true}
}

// Enabled reports whether spans are recorded.
func (t *Tracer) Enabled() bool { return t != nil && t.enabled }

func (t *Tracer) start(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	if !t.Enabled() {
		return ctx, noop.Span{}
	}
	return t.tracer.Start(ctx, name, trace.WithAttributes(attrs...), trace.WithSpanKind(trace.SpanKindInternal))
}

// StartSolve starts the span covering a complete multi-agent solve.
func (t *Tracer) StartSolve(ctx context.Context, runID string, agents int) (context.Context, trace.Span) {
	return t.start(ctx, "mahd.solve",
		attribute.String("mahd.run_id", runID),
		attribute.Int("mahd.agents", agents),
	)
}

// StartHeuristic starts the span covering one dual heuristic evaluation.
func (t *Tracer) StartHeuristic(ctx context.Context, agents int) (context.Context, trace.Span) {
	return t.start(ctx, "mahd.heuristic", attribute.Int("mahd.agents", agents))
}

// StartAgentSolve starts the span covering one per-agent solve-from call.
func (t *Tracer) StartAgentSolve(ctx context.Context, agent, obs any) (context.Context, trace.Span) {
	return t.start(ctx, "mahd.single_agent_solve",
		attribute.String("mahd.agent", fmt.Sprint(agent)),
		attribute.String("mahd.observation", truncate(fmt.Sprint(obs), 128)),
	)
}

// End records err (if any) on span and ends it.
func End(span trace.Span, err error) {
	if span == nil {
		return
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
