// Package shutdown turns SIGINT and SIGTERM into context cancellation for host processes.
package shutdown

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
)

// Handler runs registered hooks and cancels its context on the first signal.
// A second signal forces the process to exit, which matters when a machine is
// blocked in a long transition delay.
type Handler struct {
	mu      sync.Mutex
	hooks   []func()
	channel chan os.Signal
	force   func()
}

// NewHandler creates a handler that is not yet listening for signals.
func NewHandler() *Handler {
	return &Handler{
		force: func() { os.Exit(1) },
	}
}

// BeforeShutdown registers a function to be called before the context is
// canceled. Hooks run in registration order.
func (h *Handler) BeforeShutdown(hook func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.hooks = append(h.hooks, hook)
}

// Setup starts listening for SIGINT and SIGTERM and returns a context derived
// from parent that is canceled once the hooks have run.
func (h *Handler) Setup(parent context.Context) context.Context {
	if parent == nil {
		parent = context.Background()
	}

	channel := make(chan os.Signal, 2) //nolint:mnd
	signal.Notify(channel, syscall.SIGINT, syscall.SIGTERM)

	h.mu.Lock()
	h.channel = channel
	h.mu.Unlock()

	ctx, cancel := context.WithCancel(parent)

	go func() {
		var once sync.Once

		for sig := range channel {
			first := false

			once.Do(func() {
				first = true

				slog.Warn("Received " + sig.String() + ", shutting down...")

				h.cleanup()
				cancel()
			})

			if !first {
				slog.Error("Received " + sig.String() + " again, exiting immediately")
				h.force()
			}
		}
	}()

	return ctx
}

// Shutdown triggers the shutdown process programmatically.
func (h *Handler) Shutdown() {
	h.mu.Lock()
	channel := h.channel
	h.mu.Unlock()

	if channel == nil {
		return
	}

	select {
	case channel <- os.Interrupt:
	default:
	}
}

// Stop detaches the handler from the process signals.
func (h *Handler) Stop() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.channel != nil {
		signal.Stop(h.channel)
		close(h.channel)
		h.channel = nil
	}
}

func (h *Handler) cleanup() {
	h.mu.Lock()
	hooks := h.hooks
	h.hooks = nil
	h.mu.Unlock()

	for _, hook := range hooks {
		hook()
	}
}

var defaultHandler = NewHandler() //nolint:gochecknoglobals

// BeforeShutdown registers a hook on the process-wide handler.
func BeforeShutdown(hook func()) {
	defaultHandler.BeforeShutdown(hook)
}

// SetupHandler sets up the process-wide signal handler and returns a context
// that is canceled when SIGINT or SIGTERM is received.
func SetupHandler() context.Context {
	return defaultHandler.Setup(context.Background())
}

// Shutdown triggers the process-wide shutdown.
func Shutdown() {
	defaultHandler.Shutdown()
}
