// Package telemetry wires OpenTelemetry trace and log export for simulation hosts.
package telemetry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/bridges/otelslog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploghttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/log/global"
	"go.opentelemetry.io/otel/propagation"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.4.0"
)

const (
	DefaultServiceName    = "simulation"
	DefaultServiceVersion = "1.0.0"
	DefaultTimeout        = 5 * time.Second

	tracesPath = "/v1/traces"
	logsPath   = "/v1/logs"
)

// ErrInvalidEndpoint is returned when the collector endpoint is not an absolute URL.
var ErrInvalidEndpoint = errors.New("invalid OTLP endpoint")

// Config holds the OpenTelemetry configuration.
type Config struct {
	Enabled        bool          `yaml:"enabled"         env:"ENABLED"`
	Endpoint       string        `yaml:"endpoint"        env:"ENDPOINT"`
	ServiceName    string        `yaml:"service_name"    env:"SERVICE_NAME"`
	ServiceVersion string        `yaml:"service_version" env:"SERVICE_VERSION"`
	Environment    string        `yaml:"environment"     env:"ENVIRONMENT"`
	Timeout        time.Duration `yaml:"timeout"         env:"TIMEOUT"`
	// Logs also exports log records through the OTLP log exporter.
	Logs bool `yaml:"logs" env:"LOGS"`
}

// DefaultConfig returns a disabled configuration with the default service identity.
func DefaultConfig() Config {
	return Config{
		ServiceName:    DefaultServiceName,
		ServiceVersion: DefaultServiceVersion,
		Timeout:        DefaultTimeout,
	}
}

// Provider owns the SDK providers created by Initialize.
type Provider struct {
	traces     *sdktrace.TracerProvider
	logs       *sdklog.LoggerProvider
	logHandler slog.Handler
}

// Initialize sets up OpenTelemetry with the given configuration and installs the
// global tracer provider and propagator. A disabled configuration, or one
// without an endpoint, yields an inert provider.
func Initialize(ctx context.Context, config Config) (*Provider, error) {
	if !config.Enabled {
		slog.Info("OpenTelemetry is disabled")

		return &Provider{}, nil
	}

	if config.Endpoint == "" {
		slog.Warn("OpenTelemetry endpoint not configured, telemetry will be disabled")

		return &Provider{}, nil
	}

	tracesURL, err := signalURL(config.Endpoint, tracesPath)
	if err != nil {
		return nil, err
	}

	if config.Timeout <= 0 {
		config.Timeout = DefaultTimeout
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceNameKey.String(config.ServiceName),
			semconv.ServiceVersionKey.String(config.ServiceVersion),
			semconv.DeploymentEnvironmentKey.String(config.Environment),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	exporter, err := otlptracehttp.New(ctx,
		otlptracehttp.WithEndpointURL(tracesURL),
		otlptracehttp.WithTimeout(config.Timeout),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create OTLP trace exporter: %w", err)
	}

	provider := &Provider{
		traces: sdktrace.NewTracerProvider(
			sdktrace.WithBatcher(exporter),
			sdktrace.WithResource(res),
			sdktrace.WithSampler(sdktrace.AlwaysSample()),
		),
	}

	otel.SetTracerProvider(provider.traces)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	if config.Logs {
		if err := provider.initLogs(ctx, config, res); err != nil {
			return nil, errors.Join(err, provider.traces.Shutdown(ctx))
		}
	}

	slog.Info("OpenTelemetry initialized",
		"service", config.ServiceName,
		"version", config.ServiceVersion,
		"environment", config.Environment,
		"endpoint", config.Endpoint,
		"logs", config.Logs,
	)

	return provider, nil
}

func (p *Provider) initLogs(ctx context.Context, config Config, res *resource.Resource) error {
	logsURL, err := signalURL(config.Endpoint, logsPath)
	if err != nil {
		return err
	}

	exporter, err := otlploghttp.New(ctx,
		otlploghttp.WithEndpointURL(logsURL),
		otlploghttp.WithTimeout(config.Timeout),
	)
	if err != nil {
		return fmt.Errorf("failed to create OTLP log exporter: %w", err)
	}

	p.logs = sdklog.NewLoggerProvider(
		sdklog.WithProcessor(sdklog.NewBatchProcessor(exporter)),
		sdklog.WithResource(res),
	)

	global.SetLoggerProvider(p.logs)

	p.logHandler = otelslog.NewHandler(config.ServiceName, otelslog.WithLoggerProvider(p.logs))

	return nil
}

// LogHandler returns a slog handler exporting records over OTLP, or nil when
// log export is not enabled.
func (p *Provider) LogHandler() slog.Handler {
	if p == nil || p.logHandler == nil {
		return nil
	}

	return p.logHandler
}

// Enabled reports whether Initialize installed exporting providers.
func (p *Provider) Enabled() bool {
	return p != nil && p.traces != nil
}

// Shutdown flushes and stops the providers.
func (p *Provider) Shutdown(ctx context.Context) error {
	if !p.Enabled() {
		return nil
	}

	slog.Info("Shutting down OpenTelemetry providers")

	var errs []error

	if p.logs != nil {
		errs = append(errs, p.logs.Shutdown(ctx))
	}

	errs = append(errs, p.traces.Shutdown(ctx))

	return errors.Join(errs...)
}

// signalURL appends the per-signal OTLP path to a collector base URL. An
// endpoint that already carries a path is used unchanged.
func signalURL(endpoint, path string) (string, error) {
	u, err := url.Parse(endpoint)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("%w: %q", ErrInvalidEndpoint, endpoint)
	}

	if strings.Trim(u.Path, "/") == "" {
		u.Path = path
	}

	return u.String(), nil
}
