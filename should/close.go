// Package should runs cleanup steps whose failure is logged instead of returned,
// for defer statements in host code.
package should

import (
	"context"
	"io"
	"log/slog"
	"time"
)

// Succeed calls fn and logs its error at error level with msg and args.
func Succeed(fn func() error, msg string, args ...any) {
	if err := fn(); err != nil {
		slog.Error(msg, append(args, "error", err)...)
	}
}

// Close closes c and logs a failure.
//
//	defer should.Close(file, "failed to close log file", "path", path)
func Close(c io.Closer, msg string, args ...any) {
	Succeed(c.Close, msg, args...)
}

// ShutdownWithin calls a shutdown function with a fresh context bounded by
// timeout and logs a failure. The caller's context is usually already
// canceled when shutdown runs.
func ShutdownWithin(timeout time.Duration, shutdown func(context.Context) error, msg string, args ...any) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	Succeed(func() error { return shutdown(ctx) }, msg, args...)
}
