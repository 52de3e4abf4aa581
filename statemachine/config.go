package statemachine

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/amp-labs/simulation/schedule"
	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

// MachineConfig holds the run loop settings shared by all actors. Actor
// configurations embed it with `mapstructure:",squash"`.
type MachineConfig struct {
	MaxErrors    int                    `mapstructure:"max_errors"    yaml:"max_errors"`
	StartTime    time.Time              `mapstructure:"start_time"    yaml:"start_time"`
	EndTime      time.Time              `mapstructure:"end_time"      yaml:"end_time"`
	WorkSchedule *schedule.WorkSchedule `mapstructure:"work_schedule" yaml:"work_schedule"`
}

// Validate checks the run loop settings.
func (c *MachineConfig) Validate() error {
	if c.MaxErrors < 0 {
		return fmt.Errorf("%w: %d", ErrNegativeMaxErrors, c.MaxErrors)
	}

	if !c.StartTime.IsZero() && !c.EndTime.IsZero() && !c.StartTime.Before(c.EndTime) {
		return fmt.Errorf("%w: start time %s is not before end time %s", ErrInvalidConfig, c.StartTime, c.EndTime)
	}

	if c.WorkSchedule != nil {
		if err := c.WorkSchedule.Validate(); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
		}
	}

	return nil
}

// Options converts the settings into machine options.
func (c *MachineConfig) Options() []Option {
	opts := []Option{WithMaxErrors(c.MaxErrors)}

	if !c.StartTime.IsZero() {
		opts = append(opts, WithStartTime(c.StartTime))
	}

	if !c.EndTime.IsZero() {
		opts = append(opts, WithEndTime(c.EndTime))
	}

	if c.WorkSchedule != nil {
		opts = append(opts, WithWorkSchedule(c.WorkSchedule))
	}

	return opts
}

// LoadConfigFile reads a YAML document into a generic map.
// A missing file yields an empty document.
func LoadConfigFile(path string) (map[string]any, error) {
	data, err := os.ReadFile(path) //nolint:gosec // Intentional path-based loading
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return map[string]any{}, nil
		}

		return nil, fmt.Errorf("failed to read config file %q: %w", path, err)
	}

	return LoadConfigFromBytes(data)
}

// LoadConfigFromFS reads a YAML document from a filesystem, e.g. an embed.FS.
func LoadConfigFromFS(fsys fs.FS, path string) (map[string]any, error) {
	data, err := fs.ReadFile(fsys, path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config from FS: %w", err)
	}

	return LoadConfigFromBytes(data)
}

// LoadConfigFromBytes parses a YAML document into a generic map.
func LoadConfigFromBytes(data []byte) (map[string]any, error) {
	raw := map[string]any{}

	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	return raw, nil
}

// DecodeConfig decodes a parsed document into the factory's configuration type.
//
// Unknown keys are rejected. Durations decode from strings like "1m30s", instants
// from RFC 3339 strings and types implementing encoding.TextUnmarshaler from
// their text form. The result is validated when it implements Validator.
func DecodeConfig(f Factory, raw map[string]any) (any, error) {
	config := f.NewConfig()

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToTimeHookFunc(time.RFC3339),
			mapstructure.TextUnmarshallerHookFunc(),
		),
		ErrorUnused:      true,
		WeaklyTypedInput: true,
		Result:           config,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create config decoder: %w", err)
	}

	if err := decoder.Decode(raw); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrInvalidConfig, f.Name(), err)
	}

	if v, ok := config.(Validator); ok {
		if err := v.Validate(); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrInvalidConfig, f.Name(), err)
		}
	}

	return config, nil
}

// BuildFromFile loads, decodes and builds a machine in one go.
func BuildFromFile(f Factory, path string) (Machine, error) {
	raw, err := LoadConfigFile(path)
	if err != nil {
		return nil, err
	}

	config, err := DecodeConfig(f, raw)
	if err != nil {
		return nil, err
	}

	return f.Build(config)
}
