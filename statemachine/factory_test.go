package statemachine

import (
	"os"
	"path/filepath"
	"regexp"
	"testing"
	"testing/fstest"
	"time"

	"github.com/amp-labs/simulation/schedule"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type greeterConfig struct {
	MachineConfig `mapstructure:",squash"`

	Greeting string        `mapstructure:"greeting"`
	Pause    time.Duration `mapstructure:"pause"`
}

func (c *greeterConfig) Validate() error {
	if c.Greeting == "" {
		return errBoom
	}

	return c.MachineConfig.Validate()
}

func greeterFactory(name string) Factory {
	return NewFactory(name, func(config *greeterConfig) (Machine, error) {
		final, err := NewFinalState[MapContext]("done")
		if err != nil {
			return nil, err
		}

		sm, err := New("done", []State[MapContext]{final}, append(config.Options(), WithName(name))...)
		if err != nil {
			return nil, err
		}

		return sm, nil
	})
}

func TestRegistry(t *testing.T) {
	t.Parallel()

	reg := NewRegistry()

	require.NoError(t, reg.Register(greeterFactory("user10")))
	require.NoError(t, reg.Register(greeterFactory("user2")))
	require.NoError(t, reg.Register(greeterFactory("attacker")))

	require.ErrorIs(t, reg.Register(greeterFactory("user2")), ErrDuplicateFactory)
	require.ErrorIs(t, reg.Register(greeterFactory("")), ErrFactoryNameRequired)
	assert.Panics(t, func() { reg.MustRegister(greeterFactory("attacker")) })

	assert.Equal(t, []string{"attacker", "user2", "user10"}, reg.Names())

	f, err := reg.Lookup("user2")
	require.NoError(t, err)
	assert.Equal(t, "user2", f.Name())

	_, err = reg.Lookup("ghost")
	require.ErrorIs(t, err, ErrFactoryNotFound)

	filtered := reg.Filter(
		[]*regexp.Regexp{regexp.MustCompile(`^user`)},
		[]*regexp.Regexp{regexp.MustCompile(`10$`)},
	)
	assert.Equal(t, []string{"user2"}, filtered.Names())
	assert.Len(t, reg.Filter(nil, nil).Names(), 3)
}

func TestFactoryBuildChecksConfigType(t *testing.T) {
	t.Parallel()

	f := greeterFactory("greeter")

	_, err := f.Build("not a config")
	require.ErrorIs(t, err, ErrWrongConfigType)

	m, err := f.Build(greeterConfig{Greeting: "hi"})
	require.NoError(t, err)
	assert.Equal(t, "greeter", m.Name())
}

func TestDecodeConfig(t *testing.T) {
	t.Parallel()

	raw, err := LoadConfigFromBytes([]byte(`
greeting: hello
pause: 1m30s
max_errors: 3
start_time: "2024-03-04T08:00:00Z"
work_schedule:
  work_days:
    monday:
      start_time: "08:00"
      end_time: "17:30"
`))
	require.NoError(t, err)

	config, err := DecodeConfig(greeterFactory("greeter"), raw)
	require.NoError(t, err)

	cfg, ok := config.(*greeterConfig)
	require.True(t, ok)

	assert.Equal(t, "hello", cfg.Greeting)
	assert.Equal(t, 90*time.Second, cfg.Pause)
	assert.Equal(t, 3, cfg.MaxErrors)
	assert.Equal(t, time.Date(2024, time.March, 4, 8, 0, 0, 0, time.UTC), cfg.StartTime)
	require.NotNil(t, cfg.WorkSchedule)

	hours, ok := cfg.WorkSchedule.WorkDays[schedule.Weekday(time.Monday)]
	require.True(t, ok)
	assert.Equal(t, schedule.Clock(8, 0, 0), hours.Start)
	assert.Equal(t, schedule.Clock(17, 30, 0), hours.End)

	assert.Len(t, cfg.Options(), 3)
}

func TestDecodeConfigRejects(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		raw  map[string]any
	}{
		{"unknown key", map[string]any{"greeting": "hi", "colour": "blue"}},
		{"failed validation", map[string]any{}},
		{"negative max errors", map[string]any{"greeting": "hi", "max_errors": -1}},
		{"bad weekday", map[string]any{
			"greeting": "hi",
			"work_schedule": map[string]any{"work_days": map[string]any{
				"caturday": map[string]any{"start_time": "08:00", "end_time": "09:00"},
			}},
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := DecodeConfig(greeterFactory("greeter"), tt.raw)
			require.ErrorIs(t, err, ErrInvalidConfig)
		})
	}
}

func TestLoadConfigFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	raw, err := LoadConfigFile(filepath.Join(dir, "missing.yml"))
	require.NoError(t, err)
	assert.Empty(t, raw)

	path := filepath.Join(dir, "sm.yml")
	require.NoError(t, os.WriteFile(path, []byte("greeting: hey\n"), 0o600))

	m, err := BuildFromFile(greeterFactory("greeter"), path)
	require.NoError(t, err)
	assert.Equal(t, StatusReady, m.Status())

	require.NoError(t, os.WriteFile(path, []byte("greeting: [unclosed\n"), 0o600))

	_, err = LoadConfigFile(path)
	require.Error(t, err)
}

func TestLoadConfigFromFS(t *testing.T) {
	t.Parallel()

	fsys := fstest.MapFS{
		"configs/greeter.yml": {Data: []byte("greeting: hello\npause: 1m30s\n")},
	}

	raw, err := LoadConfigFromFS(fsys, "configs/greeter.yml")
	require.NoError(t, err)

	config, err := DecodeConfig(greeterFactory("greeter"), raw)
	require.NoError(t, err)

	greeter, ok := config.(*greeterConfig)
	require.True(t, ok)
	assert.Equal(t, "hello", greeter.Greeting)
	assert.Equal(t, 90*time.Second, greeter.Pause)

	_, err = LoadConfigFromFS(fsys, "configs/missing.yml")
	require.Error(t, err)
}
