package statemachine

import (
	"context"
	"log/slog"
	"os"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "statemachine"

// startRunSpan creates the root span of a statemachine run.
// Uses the global tracer initialized by the telemetry package.
// The caller is responsible for calling span.End().
//
//nolint:spancheck // Span lifecycle managed by caller (factory pattern)
func startRunSpan(ctx context.Context, machine, runID, initial string) (context.Context, trace.Span) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "statemachine.run")
	span.SetAttributes(
		attribute.String("machine", machine),
		attribute.String("run_id", runID),
		attribute.String("initial_state", initial),
	)
	logSpanDebug(ctx, "started", "statemachine.run", span)

	return ctx, span
}

// startTransitionSpan creates a child span for one transition execution.
// The caller is responsible for calling span.End().
//
//nolint:spancheck // Span lifecycle managed by caller (factory pattern)
func startTransitionSpan(ctx context.Context, transition, current, target string) (context.Context, trace.Span) {
	if ctx == nil {
		ctx = context.Background()
	}

	spanName := "transition." + transition
	ctx, span := otel.Tracer(tracerName).Start(ctx, spanName)
	span.SetAttributes(
		attribute.String("transition", transition),
		attribute.String("current_state", current),
		attribute.String("target", target),
	)
	logSpanDebug(ctx, "started", spanName, span)

	return ctx, span
}

// logSpanDebug logs span creation when SIMULATION_TRACE_DEBUG is enabled.
func logSpanDebug(ctx context.Context, phase string, spanName string, span trace.Span) {
	if !isTraceDebug() {
		return
	}

	spanCtx := span.SpanContext()
	slog.InfoContext(ctx, "OTEL Span "+phase,
		"span_name", spanName,
		"trace_id", spanCtx.TraceID().String(),
		"span_id", spanCtx.SpanID().String(),
	)
}

// extractTraceContext extracts trace ID and span ID from context for logging.
func extractTraceContext(ctx context.Context) (traceID, spanID string) {
	span := trace.SpanFromContext(ctx)
	if span.SpanContext().IsValid() {
		spanCtx := span.SpanContext()

		return spanCtx.TraceID().String(), spanCtx.SpanID().String()
	}

	return "", ""
}

func isTraceDebug() bool {
	v := os.Getenv("SIMULATION_TRACE_DEBUG")

	return v == "1" || strings.EqualFold(v, "true")
}
