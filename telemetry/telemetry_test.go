package telemetry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
)

func TestSignalURL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		endpoint string
		want     string
		wantErr  bool
	}{
		{name: "base url", endpoint: "http://collector:4318", want: "http://collector:4318/v1/traces"},
		{name: "trailing slash", endpoint: "http://collector:4318/", want: "http://collector:4318/v1/traces"},
		{name: "explicit path", endpoint: "https://collector/custom/traces", want: "https://collector/custom/traces"},
		{name: "missing scheme", endpoint: "collector:4318", wantErr: true},
		{name: "empty", endpoint: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := signalURL(tt.endpoint, tracesPath)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrInvalidEndpoint)

				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestInitializeDisabled(t *testing.T) {
	t.Parallel()

	provider, err := Initialize(t.Context(), DefaultConfig())
	require.NoError(t, err)
	assert.False(t, provider.Enabled())
	assert.Nil(t, provider.LogHandler())
	require.NoError(t, provider.Shutdown(t.Context()))

	cfg := DefaultConfig()
	cfg.Enabled = true

	provider, err = Initialize(t.Context(), cfg)
	require.NoError(t, err)
	assert.False(t, provider.Enabled())
}

func TestInitializeInvalidEndpoint(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	cfg.Enabled = true
	cfg.Endpoint = "not a url"

	_, err := Initialize(t.Context(), cfg)
	require.ErrorIs(t, err, ErrInvalidEndpoint)
}

func TestInitializeEnabled(t *testing.T) { //nolint:paralleltest
	previous := otel.GetTracerProvider()
	t.Cleanup(func() { otel.SetTracerProvider(previous) })

	cfg := DefaultConfig()
	cfg.Enabled = true
	cfg.Logs = true
	cfg.Endpoint = "http://127.0.0.1:4318"
	cfg.Timeout = 100 * time.Millisecond

	provider, err := Initialize(t.Context(), cfg)
	require.NoError(t, err)
	assert.True(t, provider.Enabled())
	assert.NotNil(t, provider.LogHandler())
	assert.Same(t, provider.traces, otel.GetTracerProvider())

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	require.NoError(t, provider.Shutdown(ctx))
}
