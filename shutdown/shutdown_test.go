package shutdown

import (
	"context"
	"sync"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/atomic"
)

func waitDone(t *testing.T, ctx context.Context) {
	t.Helper()

	select {
	case <-ctx.Done():
	case <-time.After(time.Second):
		t.Fatal("context was not canceled")
	}
}

func TestBeforeShutdownOrder(t *testing.T) {
	t.Parallel()

	h := NewHandler()

	var (
		mu    sync.Mutex
		order []int
	)

	for i := 1; i <= 3; i++ {
		h.BeforeShutdown(func() {
			mu.Lock()
			defer mu.Unlock()

			order = append(order, i)
		})
	}

	h.cleanup()

	assert.Equal(t, []int{1, 2, 3}, order)
	assert.Nil(t, h.hooks)
}

func TestSignalCancelsContext(t *testing.T) { //nolint:paralleltest
	for _, sig := range []syscall.Signal{syscall.SIGTERM, syscall.SIGINT} {
		h := NewHandler()
		ctx := h.Setup(t.Context())

		hookCalled := atomic.NewBool(false)
		h.BeforeShutdown(func() { hookCalled.Store(true) })

		select {
		case <-ctx.Done():
			t.Fatal("context should not be canceled initially")
		default:
		}

		h.channel <- sig

		waitDone(t, ctx)
		assert.True(t, hookCalled.Load())

		h.Stop()
	}
}

func TestShutdownProgrammatic(t *testing.T) {
	t.Parallel()

	h := NewHandler()
	ctx := h.Setup(context.Background())

	canceledDuringHook := atomic.NewBool(true)
	h.BeforeShutdown(func() {
		canceledDuringHook.Store(ctx.Err() != nil)
	})

	h.Shutdown()

	waitDone(t, ctx)
	assert.False(t, canceledDuringHook.Load(), "context should be canceled after hooks, not during")

	h.Stop()
}

func TestSecondSignalForcesExit(t *testing.T) {
	t.Parallel()

	forced := make(chan struct{})

	h := NewHandler()
	h.force = func() { close(forced) }

	ctx := h.Setup(context.Background())

	h.Shutdown()
	waitDone(t, ctx)

	h.Shutdown()

	select {
	case <-forced:
	case <-time.After(time.Second):
		t.Fatal("second signal did not force exit")
	}

	h.Stop()
}

func TestShutdownWithoutSetup(t *testing.T) {
	t.Parallel()

	h := NewHandler()

	assert.NotPanics(t, h.Shutdown)
	assert.NotPanics(t, h.Stop)
}

func TestParentCancellation(t *testing.T) {
	t.Parallel()

	parent, cancel := context.WithCancel(context.Background())

	h := NewHandler()
	ctx := h.Setup(parent)

	cancel()
	waitDone(t, ctx)
	require.ErrorIs(t, ctx.Err(), context.Canceled)

	h.Stop()
}

func TestConcurrentBeforeShutdown(t *testing.T) {
	t.Parallel()

	const numGoroutines = 100

	h := NewHandler()

	var wg sync.WaitGroup

	for range numGoroutines {
		wg.Add(1)

		go func() {
			defer wg.Done()

			h.BeforeShutdown(func() {})
		}()
	}

	wg.Wait()

	h.mu.Lock()
	assert.Len(t, h.hooks, numGoroutines)
	h.mu.Unlock()
}
