package statemachine

import (
	"fmt"
	"log/slog"
	"math"
	"math/rand/v2"
)

// weightTolerance is the allowed deviation of a weight sum from 1.
const weightTolerance = 1e-6

// State kinds reported through Graph for introspection.
const (
	KindSequential    = "sequential"
	KindFinal         = "final"
	KindChoice        = "choice"
	KindRoundRobin    = "round_robin"
	KindProbabilistic = "probabilistic"
	KindAdaptive      = "adaptive_probabilistic"
	KindCustom        = "custom"
)

// StateOption configures the shared parts of a state.
type StateOption func(*stateOptions)

type stateOptions struct {
	prefix string
	rnd    *rand.Rand
}

// WithNamePrefix prefixes the state name as "<prefix>_<name>".
func WithNamePrefix(prefix string) StateOption {
	return func(o *stateOptions) {
		o.prefix = prefix
	}
}

// WithRandom sets the random source used by randomized selection.
func WithRandom(rnd *rand.Rand) StateOption {
	return func(o *stateOptions) {
		o.rnd = rnd
	}
}

func collectStateOptions(opts []StateOption) stateOptions {
	options := stateOptions{}
	for _, opt := range opts {
		opt(&options)
	}

	return options
}

// BaseState holds the name and the outgoing transitions of a state. Custom and
// decision states embed it and implement Next.
type BaseState[T any] struct {
	name        string
	prefix      string
	transitions []*Transition[T]
	byName      map[string]*Transition[T]
}

// NewBaseState creates the common part of a state. Transition names must be unique.
func NewBaseState[T any](name string, transitions []*Transition[T], opts ...StateOption) (BaseState[T], error) {
	options := collectStateOptions(opts)

	if name == "" {
		return BaseState[T]{}, ErrStateNameRequired
	}

	byName := make(map[string]*Transition[T], len(transitions))

	for _, t := range transitions {
		if t == nil {
			return BaseState[T]{}, WrapStateError(name, ErrTransitionRequired)
		}

		if _, exists := byName[t.Name()]; exists {
			return BaseState[T]{}, WrapStateError(name, fmt.Errorf("%w: %s", ErrDuplicateTransitionName, t.Name()))
		}

		if err := t.Validate(); err != nil {
			return BaseState[T]{}, WrapStateError(name, err)
		}

		byName[t.Name()] = t
	}

	return BaseState[T]{
		name:        name,
		prefix:      options.prefix,
		transitions: append([]*Transition[T](nil), transitions...),
		byName:      byName,
	}, nil
}

// Name returns the state name including its prefix.
func (s *BaseState[T]) Name() string {
	if s.prefix != "" {
		return s.prefix + "_" + s.name
	}

	return s.name
}

// NameOnly returns the state name without prefix.
func (s *BaseState[T]) NameOnly() string {
	return s.name
}

// NamePrefix returns the name prefix, empty if none.
func (s *BaseState[T]) NamePrefix() string {
	return s.prefix
}

// Transitions returns the outgoing transitions in construction order.
func (s *BaseState[T]) Transitions() []*Transition[T] {
	return append([]*Transition[T](nil), s.transitions...)
}

// Transition looks up an outgoing transition by name.
func (s *BaseState[T]) Transition(name string) (*Transition[T], bool) {
	t, ok := s.byName[name]

	return t, ok
}

// Kind identifies the selection strategy, embedding states may shadow it.
func (s *BaseState[T]) Kind() string {
	return KindCustom
}

// SequentialState has exactly one transition and always selects it.
type SequentialState[T any] struct {
	BaseState[T]

	transition *Transition[T]
}

// NewSequentialState creates a sequential state.
func NewSequentialState[T any](name string, transition *Transition[T], opts ...StateOption) (*SequentialState[T], error) {
	if transition == nil {
		return nil, WrapStateError(name, ErrTransitionRequired)
	}

	base, err := NewBaseState(name, []*Transition[T]{transition}, opts...)
	if err != nil {
		return nil, err
	}

	return &SequentialState[T]{BaseState: base, transition: transition}, nil
}

func (s *SequentialState[T]) Next(*slog.Logger, *T) *Transition[T] {
	return s.transition
}

func (s *SequentialState[T]) Kind() string {
	return KindSequential
}

// FinalState has no transitions, reaching it ends the run.
type FinalState[T any] struct {
	BaseState[T]
}

// NewFinalState creates a final state.
func NewFinalState[T any](name string, opts ...StateOption) (*FinalState[T], error) {
	base, err := NewBaseState[T](name, nil, opts...)
	if err != nil {
		return nil, err
	}

	return &FinalState[T]{BaseState: base}, nil
}

func (s *FinalState[T]) Next(*slog.Logger, *T) *Transition[T] {
	return nil
}

func (s *FinalState[T]) Kind() string {
	return KindFinal
}

// ChoiceState decides between two transitions with a decision function.
type ChoiceState[T any] struct {
	BaseState[T]

	decide func(log *slog.Logger, smCtx *T) bool
	yes    *Transition[T]
	no     *Transition[T]
}

// NewChoiceState creates a yes/no decision state.
func NewChoiceState[T any](
	name string,
	decide func(log *slog.Logger, smCtx *T) bool,
	yes, no *Transition[T],
	opts ...StateOption,
) (*ChoiceState[T], error) {
	if yes == nil || no == nil || decide == nil {
		return nil, WrapStateError(name, ErrTransitionRequired)
	}

	base, err := NewBaseState(name, []*Transition[T]{yes, no}, opts...)
	if err != nil {
		return nil, err
	}

	return &ChoiceState[T]{BaseState: base, decide: decide, yes: yes, no: no}, nil
}

func (s *ChoiceState[T]) Next(log *slog.Logger, smCtx *T) *Transition[T] {
	if s.decide(log, smCtx) {
		return s.yes
	}

	return s.no
}

func (s *ChoiceState[T]) Kind() string {
	return KindChoice
}

// RoundRobinState cycles through its transitions.
type RoundRobinState[T any] struct {
	BaseState[T]

	next int
}

// NewRoundRobinState creates a round robin state.
func NewRoundRobinState[T any](name string, transitions []*Transition[T], opts ...StateOption) (*RoundRobinState[T], error) {
	base, err := NewBaseState(name, transitions, opts...)
	if err != nil {
		return nil, err
	}

	return &RoundRobinState[T]{BaseState: base}, nil
}

func (s *RoundRobinState[T]) Next(*slog.Logger, *T) *Transition[T] {
	if len(s.transitions) == 0 {
		return nil
	}

	t := s.transitions[s.next]
	s.next = (s.next + 1) % len(s.transitions)

	return t
}

func (s *RoundRobinState[T]) Kind() string {
	return KindRoundRobin
}

// ProbabilisticState selects a transition using its weights as a categorical distribution.
type ProbabilisticState[T any] struct {
	BaseState[T]

	weights []float64
	uniform func() float64
}

// NewProbabilisticState creates a probabilistic state.
//
// There must be one weight per transition, every weight must lie in [0,1] and
// the weights must sum to 1 (within 1e-6). Violations wrap ErrInvalidWeights.
func NewProbabilisticState[T any](
	name string,
	transitions []*Transition[T],
	weights []float64,
	opts ...StateOption,
) (*ProbabilisticState[T], error) {
	base, err := NewBaseState(name, transitions, opts...)
	if err != nil {
		return nil, err
	}

	if err := ValidateWeights(len(transitions), weights); err != nil {
		return nil, WrapStateError(name, err)
	}

	return &ProbabilisticState[T]{
		BaseState: base,
		weights:   append([]float64(nil), weights...),
		uniform:   uniformFrom(collectStateOptions(opts).rnd),
	}, nil
}

// NewEquallyRandomState creates a probabilistic state with a uniform distribution.
func NewEquallyRandomState[T any](
	name string,
	transitions []*Transition[T],
	opts ...StateOption,
) (*ProbabilisticState[T], error) {
	weights := make([]float64, len(transitions))
	for i := range weights {
		weights[i] = 1.0 / float64(len(transitions))
	}

	return NewProbabilisticState(name, transitions, weights, opts...)
}

// ValidateWeights checks that weights form a probability distribution over count transitions.
func ValidateWeights(count int, weights []float64) error {
	if count != len(weights) {
		return fmt.Errorf("%w: got %d transitions and %d weights", ErrInvalidWeights, count, len(weights))
	}

	if len(weights) == 0 {
		return nil
	}

	sum := 0.0

	for i, w := range weights {
		if math.IsNaN(w) || w < 0 || w > 1 {
			return fmt.Errorf("%w: weight %d is %v, must be within [0,1]", ErrInvalidWeights, i, w)
		}

		sum += w
	}

	if math.Abs(1.0-sum) > weightTolerance {
		return fmt.Errorf("%w: weights must sum to 1, got %v", ErrInvalidWeights, sum)
	}

	return nil
}

// Weights returns the configured weights.
func (s *ProbabilisticState[T]) Weights() []float64 {
	return append([]float64(nil), s.weights...)
}

func (s *ProbabilisticState[T]) Next(*slog.Logger, *T) *Transition[T] {
	return s.choose(s.weights)
}

func (s *ProbabilisticState[T]) Kind() string {
	return KindProbabilistic
}

// choose draws from probabilities using a cumulative sum and a uniform draw in [0,1).
func (s *ProbabilisticState[T]) choose(probabilities []float64) *Transition[T] {
	if len(s.transitions) == 0 {
		return nil
	}

	draw := s.uniform()
	cumulative := 0.0

	for i, p := range probabilities {
		cumulative += p
		if draw < cumulative {
			return s.transitions[i]
		}
	}

	// Rounding can leave the cumulative sum slightly below 1, so the last
	// transition with a non-zero probability absorbs the remainder.
	for i := len(probabilities) - 1; i >= 0; i-- {
		if probabilities[i] > 0 {
			return s.transitions[i]
		}
	}

	return s.transitions[len(s.transitions)-1]
}

// AdaptHook is called around the selection of an AdaptiveProbabilisticState.
// selected is nil for the hook called before selection.
type AdaptHook[T any] func(state *AdaptiveProbabilisticState[T], log *slog.Logger, smCtx *T, selected *Transition[T])

// AdaptiveProbabilisticState is a probabilistic state whose weights are scaled by
// modifiers that hooks can change between selections.
type AdaptiveProbabilisticState[T any] struct {
	ProbabilisticState[T]

	modifiers []float64
	original  []float64
	before    AdaptHook[T]
	after     AdaptHook[T]
}

// NewAdaptiveProbabilisticState creates an adaptive state. A nil modifiers slice
// means every modifier is 1.
func NewAdaptiveProbabilisticState[T any](
	name string,
	transitions []*Transition[T],
	weights []float64,
	modifiers []float64,
	opts ...StateOption,
) (*AdaptiveProbabilisticState[T], error) {
	ps, err := NewProbabilisticState(name, transitions, weights, opts...)
	if err != nil {
		return nil, err
	}

	if modifiers == nil {
		modifiers = make([]float64, len(weights))
		for i := range modifiers {
			modifiers[i] = 1
		}
	}

	if len(modifiers) != len(weights) {
		return nil, WrapStateError(name,
			fmt.Errorf("%w: got %d modifiers for %d weights", ErrInvalidWeights, len(modifiers), len(weights)))
	}

	return &AdaptiveProbabilisticState[T]{
		ProbabilisticState: *ps,
		modifiers:          append([]float64(nil), modifiers...),
		original:           append([]float64(nil), modifiers...),
	}, nil
}

// SetAdaptBefore sets the hook called before each selection.
func (s *AdaptiveProbabilisticState[T]) SetAdaptBefore(hook AdaptHook[T]) {
	s.before = hook
}

// SetAdaptAfter sets the hook called after each selection.
func (s *AdaptiveProbabilisticState[T]) SetAdaptAfter(hook AdaptHook[T]) {
	s.after = hook
}

// Modifiers returns the current weight modifiers.
func (s *AdaptiveProbabilisticState[T]) Modifiers() []float64 {
	return append([]float64(nil), s.modifiers...)
}

// SetModifier changes the modifier of the named transition.
func (s *AdaptiveProbabilisticState[T]) SetModifier(transition string, value float64) bool {
	for i, t := range s.transitions {
		if t.Name() == transition {
			s.modifiers[i] = value

			return true
		}
	}

	return false
}

// Probabilities returns the selection probabilities derived from weights and modifiers.
func (s *AdaptiveProbabilisticState[T]) Probabilities() []float64 {
	return CalculateProbabilities(s.weights, s.modifiers)
}

// Reset restores the modifiers the state was built with.
func (s *AdaptiveProbabilisticState[T]) Reset() {
	copy(s.modifiers, s.original)
}

func (s *AdaptiveProbabilisticState[T]) Next(log *slog.Logger, smCtx *T) *Transition[T] {
	if len(s.transitions) == 0 {
		return nil
	}

	if s.before != nil {
		s.before(s, log, smCtx, nil)
	}

	selected := s.choose(s.Probabilities())

	if s.after != nil {
		s.after(s, log, smCtx, selected)
	}

	return selected
}

func (s *AdaptiveProbabilisticState[T]) Kind() string {
	return KindAdaptive
}

// CalculateProbabilities scales weights by modifiers and normalizes the result.
// If every scaled weight is zero the unmodified weights are returned.
func CalculateProbabilities(weights, modifiers []float64) []float64 {
	scaled := make([]float64, len(weights))
	total := 0.0

	for i, w := range weights {
		m := 1.0
		if i < len(modifiers) {
			m = math.Max(modifiers[i], 0)
		}

		scaled[i] = w * m
		total += scaled[i]
	}

	if total == 0 {
		return append([]float64(nil), weights...)
	}

	for i := range scaled {
		scaled[i] /= total
	}

	return scaled
}
