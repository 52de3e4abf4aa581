package statemachine

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"sync"

	"facette.io/natsort"
)

// Machine is the type independent view of a Statemachine that hosts drive.
type Machine interface {
	Name() string
	RunID() string
	Status() Status
	CurrentState() string
	Errors() int
	SetLogger(log *slog.Logger)
	Begin(ctx context.Context) (context.Context, error)
	End(err error)
	WaitForStart()
	SetupContext(ctx context.Context) error
	DestroyContext(ctx context.Context) error
	Step(ctx context.Context) error
	Run(ctx context.Context) error
	Graph() Graph
}

var _ Machine = (*Statemachine[MapContext])(nil)

// Factory turns a configuration value into a ready machine.
type Factory interface {
	// Name returns the stable name the factory is registered under.
	Name() string
	// NewConfig returns a pointer to a zero configuration value that a
	// configuration document is decoded into before Build is called.
	NewConfig() any
	// Build creates the machine, config is a value previously returned by NewConfig.
	Build(config any) (Machine, error)
}

// Validator is implemented by configuration types that check themselves after decoding.
type Validator interface {
	Validate() error
}

type factory[C any] struct {
	name  string
	build func(config *C) (Machine, error)
}

// NewFactory creates a Factory for the configuration type C.
func NewFactory[C any](name string, build func(config *C) (Machine, error)) Factory {
	return &factory[C]{name: name, build: build}
}

func (f *factory[C]) Name() string {
	return f.name
}

func (f *factory[C]) NewConfig() any {
	return new(C)
}

func (f *factory[C]) Build(config any) (Machine, error) {
	switch cfg := config.(type) {
	case *C:
		return f.build(cfg)
	case C:
		return f.build(&cfg)
	default:
		return nil, fmt.Errorf("%w: factory %s expects %T, got %T", ErrWrongConfigType, f.name, new(C), config)
	}
}

// Registry maps factory names to factories.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// DefaultRegistry is populated by the init functions of actor packages.
var DefaultRegistry = NewRegistry() //nolint:gochecknoglobals

// Register adds a factory to the default registry and panics on conflicts.
// Actor packages call it from init.
func Register(f Factory) {
	DefaultRegistry.MustRegister(f)
}

// Register adds a factory. Names must be non-empty and unique.
func (r *Registry) Register(f Factory) error {
	if f == nil || f.Name() == "" {
		return ErrFactoryNameRequired
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.factories[f.Name()]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateFactory, f.Name())
	}

	r.factories[f.Name()] = f

	return nil
}

// MustRegister is like Register but panics on error.
func (r *Registry) MustRegister(f Factory) {
	if err := r.Register(f); err != nil {
		panic(err)
	}
}

// Lookup returns the factory registered under name.
func (r *Registry) Lookup(name string) (Factory, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	f, ok := r.factories[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrFactoryNotFound, name)
	}

	return f, nil
}

// Names returns the registered names in natural order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	names := make([]string, 0, len(r.factories))

	for name := range r.factories {
		names = append(names, name)
	}
	r.mu.RUnlock()

	natsort.Sort(names)

	return names
}

// Filter returns a registry holding the factories whose name matches at least one
// include pattern (all when include is empty) and no exclude pattern.
func (r *Registry) Filter(include, exclude []*regexp.Regexp) *Registry {
	filtered := NewRegistry()

	r.mu.RLock()
	defer r.mu.RUnlock()

	for name, f := range r.factories {
		if len(include) > 0 && !matchesAny(include, name) {
			continue
		}

		if matchesAny(exclude, name) {
			continue
		}

		filtered.factories[name] = f
	}

	return filtered
}

func matchesAny(patterns []*regexp.Regexp, name string) bool {
	for _, p := range patterns {
		if p.MatchString(name) {
			return true
		}
	}

	return false
}
