// Package settings loads the host settings of the simulation CLI.
//
// Settings are layered: built-in defaults, then the YAML settings file, then
// variables from .env files, then the process environment (prefixed with
// SIMULATION_). Command line flags are applied on top by the caller.
package settings

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"regexp"
	"strings"

	"github.com/amp-labs/simulation/logger"
	"github.com/amp-labs/simulation/telemetry"
	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	// EnvPrefix is the prefix of all environment overrides.
	EnvPrefix = "SIMULATION_"
	// DefaultPath is the settings file used when none is given.
	DefaultPath = "config.yml"
	// DefaultEnvFile is the dotenv file loaded when present.
	DefaultEnvFile = ".env"
)

var (
	ErrInvalidSettings = errors.New("invalid settings")
	ErrInvalidFormat   = errors.New("invalid log format")
	ErrInvalidPattern  = errors.New("invalid plugin pattern")
)

// Settings are the host settings.
type Settings struct {
	Log       LogSettings      `yaml:"log"       envPrefix:"LOG_"`
	Seed      *uint64          `yaml:"seed"      env:"SEED"`
	Plugin    PluginSettings   `yaml:"plugin"    envPrefix:"PLUGIN_"`
	Metrics   MetricsSettings  `yaml:"metrics"   envPrefix:"METRICS_"`
	Telemetry telemetry.Config `yaml:"telemetry" envPrefix:"TELEMETRY_"`
	// Instances is the number of independent machines the run command starts.
	Instances int `yaml:"instances" env:"INSTANCES"`
}

// LogSettings configure the process logger.
type LogSettings struct {
	Level  string `yaml:"level"  env:"LEVEL"`
	Format string `yaml:"format" env:"FORMAT"`
	Output string `yaml:"output" env:"OUTPUT"`
	File   string `yaml:"file"   env:"FILE"`
}

// PluginSettings filter the registered machine factories by name.
type PluginSettings struct {
	IncludeNames []string `yaml:"include_names" env:"INCLUDE_NAMES" envSeparator:","`
	ExcludeNames []string `yaml:"exclude_names" env:"EXCLUDE_NAMES" envSeparator:","`
}

// MetricsSettings configure the metrics endpoint. An empty address disables it.
type MetricsSettings struct {
	Addr string `yaml:"addr" env:"ADDR"`
}

// Default returns the built-in settings.
func Default() Settings {
	return Settings{
		Log: LogSettings{
			Level:  "info",
			Format: "text",
			Output: "stdout",
		},
		Plugin: PluginSettings{
			IncludeNames: []string{".*"},
		},
		Telemetry: telemetry.DefaultConfig(),
		Instances: 1,
	}
}

// Loader describes where settings are read from.
type Loader struct {
	// Path of the YAML settings file. A missing file is not an error.
	Path string
	// EnvFiles are dotenv files loaded into the process environment when present.
	EnvFiles []string
	// Environment replaces the process environment when set.
	Environment map[string]string
}

// Load reads the settings file at path, the default .env file and the environment.
func Load(path string) (Settings, error) {
	return Loader{Path: path, EnvFiles: []string{DefaultEnvFile}}.Load()
}

// Load applies all layers and validates the result.
func (l Loader) Load() (Settings, error) {
	s := Default()

	if l.Path != "" {
		data, err := os.ReadFile(l.Path)

		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return s, fmt.Errorf("reading settings file: %w", err)
		default:
			if err := decodeYAML(data, &s); err != nil {
				return s, err
			}
		}
	}

	for _, file := range l.EnvFiles {
		if err := godotenv.Load(file); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return s, fmt.Errorf("loading %s: %w", file, err)
		}
	}

	if err := overlayEnv(&s, l.Environment); err != nil {
		return s, err
	}

	if err := s.Validate(); err != nil {
		return s, err
	}

	return s, nil
}

// LoadFromBytes decodes a YAML settings document on top of the defaults and
// overlays the given environment.
func LoadFromBytes(data []byte, environ map[string]string) (Settings, error) {
	s := Default()

	if err := decodeYAML(data, &s); err != nil {
		return s, err
	}

	if environ == nil {
		environ = map[string]string{}
	}

	if err := overlayEnv(&s, environ); err != nil {
		return s, err
	}

	return s, s.Validate()
}

func decodeYAML(data []byte, s *Settings) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	if err := dec.Decode(s); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: %w", ErrInvalidSettings, err)
	}

	return nil
}

func overlayEnv(s *Settings, environ map[string]string) error {
	opts := env.Options{Prefix: EnvPrefix}
	if environ != nil {
		opts.Environment = environ
	}

	if err := env.ParseWithOptions(s, opts); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidSettings, err)
	}

	return nil
}

// Validate checks the settings for consistency.
func (s Settings) Validate() error {
	var errs []error

	if _, err := logger.ParseLevel(s.Log.Level); err != nil {
		errs = append(errs, err)
	}

	switch strings.ToLower(s.Log.Format) {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("%w: %q", ErrInvalidFormat, s.Log.Format))
	}

	switch strings.ToLower(s.Log.Output) {
	case "", "stdout", "stderr":
	case "file":
		if s.Log.File == "" {
			errs = append(errs, fmt.Errorf("%w: log output file requires log.file", logger.ErrInvalidLogOutput))
		}
	default:
		errs = append(errs, fmt.Errorf("%w: %q", logger.ErrInvalidLogOutput, s.Log.Output))
	}

	if _, err := s.IncludePatterns(); err != nil {
		errs = append(errs, err)
	}

	if _, err := s.ExcludePatterns(); err != nil {
		errs = append(errs, err)
	}

	if s.Instances < 1 {
		errs = append(errs, fmt.Errorf("%w: instances must be at least 1, got %d", ErrInvalidSettings, s.Instances))
	}

	if s.Telemetry.Timeout < 0 {
		errs = append(errs, fmt.Errorf("%w: negative telemetry timeout", ErrInvalidSettings))
	}

	return errors.Join(errs...)
}

// IncludePatterns compiles the plugin include patterns.
func (s Settings) IncludePatterns() ([]*regexp.Regexp, error) {
	return compilePatterns(s.Plugin.IncludeNames)
}

// ExcludePatterns compiles the plugin exclude patterns.
func (s Settings) ExcludePatterns() ([]*regexp.Regexp, error) {
	return compilePatterns(s.Plugin.ExcludeNames)
}

func compilePatterns(patterns []string) ([]*regexp.Regexp, error) {
	out := make([]*regexp.Regexp, 0, len(patterns))

	for _, p := range patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("%w: %q: %w", ErrInvalidPattern, p, err)
		}

		out = append(out, re)
	}

	return out, nil
}

// LoggerOptions converts the log settings into logger options. The returned
// function closes the log file, if one was opened.
func (s Settings) LoggerOptions(subsystem string) (logger.Options, func() error, error) {
	level, err := logger.ParseLevel(s.Log.Level)
	if err != nil {
		return logger.Options{}, nil, err
	}

	out, closeFn, err := logger.OpenOutput(s.Log.Output, s.Log.File)
	if err != nil {
		return logger.Options{}, nil, err
	}

	return logger.Options{
		Subsystem:   subsystem,
		JSON:        strings.EqualFold(s.Log.Format, "json"),
		MinLevel:    level,
		LegacyLevel: slog.LevelInfo,
		Output:      out,
	}, closeFn, nil
}
