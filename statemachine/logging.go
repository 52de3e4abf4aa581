package statemachine

import (
	"context"
	"io"
	"log/slog"
)

// discardLogger returns a logger that drops every record.
func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// runLogger binds the run identity onto the machine logger. When the run context
// carries a valid span, its trace and span ids are attached too.
func runLogger(ctx context.Context, log *slog.Logger, machine, runID string) *slog.Logger {
	log = log.With("machine", machine, "run", runID)

	if traceID, spanID := extractTraceContext(ctx); traceID != "" {
		log = log.With("trace_id", traceID, "span_id", spanID)
	}

	return log
}
