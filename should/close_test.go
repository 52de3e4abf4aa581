package should_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/amp-labs/simulation/should"
	"github.com/stretchr/testify/assert"
)

var errCloseFailed = errors.New("close failed")

type mockCloser struct {
	closeErr error
	closed   bool
}

func (m *mockCloser) Close() error {
	m.closed = true

	return m.closeErr
}

func captureLogs(t *testing.T) *bytes.Buffer {
	t.Helper()

	var buf bytes.Buffer

	previous := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, nil)))
	t.Cleanup(func() { slog.SetDefault(previous) })

	return &buf
}

func TestClose(t *testing.T) { //nolint:paralleltest
	logs := captureLogs(t)

	ok := &mockCloser{}
	should.Close(ok, "failed to close")

	assert.True(t, ok.closed)
	assert.Empty(t, logs.String())

	failing := &mockCloser{closeErr: errCloseFailed}
	should.Close(failing, "failed to close", "path", "sim.log")

	assert.True(t, failing.closed)
	assert.Contains(t, logs.String(), `msg="failed to close"`)
	assert.Contains(t, logs.String(), "path=sim.log")
	assert.Contains(t, logs.String(), `error="close failed"`)
}

func TestShutdownWithin(t *testing.T) { //nolint:paralleltest
	logs := captureLogs(t)

	var deadline time.Time

	should.ShutdownWithin(time.Minute, func(ctx context.Context) error {
		deadline, _ = ctx.Deadline()

		return nil
	}, "shutdown failed")

	assert.WithinDuration(t, time.Now().Add(time.Minute), deadline, 5*time.Second)
	assert.Empty(t, logs.String())

	should.ShutdownWithin(time.Millisecond, func(ctx context.Context) error {
		<-ctx.Done()

		return ctx.Err()
	}, "shutdown failed")

	assert.Contains(t, logs.String(), "context deadline exceeded")
}
