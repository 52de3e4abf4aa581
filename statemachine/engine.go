package statemachine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/amp-labs/simulation/schedule"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// SetupFunc creates the context of a run.
type SetupFunc[T any] func(ctx context.Context, log *slog.Logger) (*T, error)

// DestroyFunc releases the resources held by the context of a run.
type DestroyFunc[T any] func(ctx context.Context, log *slog.Logger, smCtx *T) error

// WorkHook is called when a machine pauses outside its work schedule and again
// when it resumes. A hook error is fatal to the run.
type WorkHook[T any] func(ctx context.Context, sm *Statemachine[T]) error

// Option configures a Statemachine.
type Option func(*options)

type options struct {
	maxErrors int
	log       *slog.Logger
	name      string
	start     time.Time
	end       time.Time
	schedule  *schedule.WorkSchedule
	clock     func() time.Time
	sleeper   func(time.Duration)
}

// WithMaxErrors sets the number of recoverable transition failures a run tolerates.
// Zero means the first failure is fatal.
func WithMaxErrors(maxErrors int) Option {
	return func(o *options) {
		o.maxErrors = maxErrors
	}
}

// WithLogger sets the logger the machine derives its run and transition loggers from.
func WithLogger(log *slog.Logger) Option {
	return func(o *options) {
		o.log = log
	}
}

// WithName names the machine for logs, metrics and traces.
func WithName(name string) Option {
	return func(o *options) {
		o.name = name
	}
}

// WithStartTime delays Run until the given instant.
func WithStartTime(start time.Time) Option {
	return func(o *options) {
		o.start = start
	}
}

// WithEndTime finishes the run once the given instant is reached, even if
// transitions are left to execute.
func WithEndTime(end time.Time) Option {
	return func(o *options) {
		o.end = end
	}
}

// WithWorkSchedule restricts execution to the work times of the schedule.
// Outside of them the machine idles until the next work start.
func WithWorkSchedule(s *schedule.WorkSchedule) Option {
	return func(o *options) {
		o.schedule = s
	}
}

// WithClock replaces time.Now for start, end and work time decisions.
func WithClock(clock func() time.Time) Option {
	return func(o *options) {
		o.clock = clock
	}
}

// WithSleeper replaces time.Sleep for waiting on start and work times.
func WithSleeper(sleeper func(time.Duration)) Option {
	return func(o *options) {
		o.sleeper = sleeper
	}
}

// Statemachine drives one actor through its states.
//
// A machine is not safe for concurrent use: exactly one goroutine steps it and
// its context is only touched by the executing transition.
type Statemachine[T any] struct {
	name      string
	initial   string
	current   string
	order     []string
	states    map[string]State[T]
	maxErrors int
	errors    int
	lastErr   error
	status    Status
	runID     string
	span      trace.Span

	baseLog *slog.Logger
	log     *slog.Logger

	smCtx *T
	ready bool

	setup   SetupFunc[T]
	destroy DestroyFunc[T]
	pause   WorkHook[T]
	resume  WorkHook[T]

	start    time.Time
	end      time.Time
	schedule *schedule.WorkSchedule
	clock    func() time.Time
	sleeper  func(time.Duration)
}

// New creates a machine starting at initial. State names must be unique and non-empty.
// Neither initial nor the transition targets are checked against the registered
// states, an unknown name fails the run when the loop first tries to enter it.
func New[T any](initial string, states []State[T], opts ...Option) (*Statemachine[T], error) {
	options := options{
		log:     slog.Default(),
		clock:   time.Now,
		sleeper: time.Sleep,
	}

	for _, opt := range opts {
		opt(&options)
	}

	if options.log == nil {
		options.log = discardLogger()
	}

	if options.maxErrors < 0 {
		return nil, fmt.Errorf("%w: %d", ErrNegativeMaxErrors, options.maxErrors)
	}

	if options.schedule != nil {
		if err := options.schedule.Validate(); err != nil {
			return nil, fmt.Errorf("invalid work schedule: %w", err)
		}
	}

	registry := make(map[string]State[T], len(states))
	order := make([]string, 0, len(states))

	for _, state := range states {
		if state == nil || state.Name() == "" {
			return nil, ErrStateNameRequired
		}

		if _, exists := registry[state.Name()]; exists {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateStateName, state.Name())
		}

		registry[state.Name()] = state
		order = append(order, state.Name())
	}

	sm := &Statemachine[T]{
		name:      options.name,
		initial:   initial,
		current:   initial,
		order:     order,
		states:    registry,
		maxErrors: options.maxErrors,
		status:    StatusReady,
		runID:     uuid.NewString(),
		baseLog:   options.log,
		start:     options.start,
		end:       options.end,
		schedule:  options.schedule,
		clock:     options.clock,
		sleeper:   options.sleeper,
	}
	sm.log = runLogger(context.Background(), sm.baseLog, sm.name, sm.runID)

	return sm, nil
}

// SetSetup sets the function creating the run context. Without one the context
// is the zero value of T.
func (m *Statemachine[T]) SetSetup(setup SetupFunc[T]) {
	m.setup = setup
}

// SetDestroy sets the function tearing down the run context.
func (m *Statemachine[T]) SetDestroy(destroy DestroyFunc[T]) {
	m.destroy = destroy
}

// SetPauseWork sets the hook called before idling outside the work schedule.
func (m *Statemachine[T]) SetPauseWork(hook WorkHook[T]) {
	m.pause = hook
}

// SetResumeWork sets the hook called after idling, before work resumes.
func (m *Statemachine[T]) SetResumeWork(hook WorkHook[T]) {
	m.resume = hook
}

// SetLogger replaces the logger the machine binds its run keys onto.
func (m *Statemachine[T]) SetLogger(log *slog.Logger) {
	if log == nil {
		log = discardLogger()
	}

	m.baseLog = log
	m.log = runLogger(context.Background(), log, m.name, m.runID)
}

func (m *Statemachine[T]) Name() string {
	return m.name
}

func (m *Statemachine[T]) InitialState() string {
	return m.initial
}

// CurrentState returns the name of the state the next step starts from.
func (m *Statemachine[T]) CurrentState() string {
	return m.current
}

// ResetToInitial moves the machine back to its initial state. Work hooks use it
// to restart the actor after a pause.
func (m *Statemachine[T]) ResetToInitial() {
	m.current = m.initial
}

// Errors returns the number of transition failures counted so far.
func (m *Statemachine[T]) Errors() int {
	return m.errors
}

// MaxErrors returns the configured error ceiling.
func (m *Statemachine[T]) MaxErrors() int {
	return m.maxErrors
}

// LastError returns the most recent transition failure, recovered or not.
func (m *Statemachine[T]) LastError() error {
	return m.lastErr
}

func (m *Statemachine[T]) Status() Status {
	return m.status
}

// RunID returns the identifier of the current run.
func (m *Statemachine[T]) RunID() string {
	return m.runID
}

// Context returns the run context. It stays readable after DestroyContext.
func (m *Statemachine[T]) Context() *T {
	return m.smCtx
}

// States returns the registered states in registration order.
func (m *Statemachine[T]) States() []State[T] {
	states := make([]State[T], 0, len(m.order))
	for _, name := range m.order {
		states = append(states, m.states[name])
	}

	return states
}

// State looks up a registered state.
func (m *Statemachine[T]) State(name string) (State[T], bool) {
	s, ok := m.states[name]

	return s, ok
}

// SetupContext creates the run context. Callers stepping the machine manually
// must call it before the first Step.
func (m *Statemachine[T]) SetupContext(ctx context.Context) error {
	if m.setup == nil {
		m.smCtx = new(T)
		m.ready = true

		return nil
	}

	smCtx, err := m.setup(ctx, m.log)
	if err != nil {
		return fmt.Errorf("context setup failed: %w", err)
	}

	if smCtx == nil {
		smCtx = new(T)
	}

	m.smCtx = smCtx
	m.ready = true

	return nil
}

// DestroyContext tears down the run context. It is a no-op when no context is set up.
func (m *Statemachine[T]) DestroyContext(ctx context.Context) error {
	if !m.ready {
		return nil
	}

	m.ready = false

	if m.destroy == nil {
		return nil
	}

	if err := m.destroy(ctx, m.log, m.smCtx); err != nil {
		return fmt.Errorf("context teardown failed: %w", err)
	}

	return nil
}

// WaitForStart blocks until the configured start time.
func (m *Statemachine[T]) WaitForStart() {
	if m.start.IsZero() {
		return
	}

	m.sleepUntil(m.start)
}

// Step executes a single step of the run loop.
//
// Recoverable transition failures are counted and logged but not returned, the
// next step retries from the same state or from the requested fallback state.
// A non-nil error means the run is fatal.
func (m *Statemachine[T]) Step(ctx context.Context) error {
	if m.status.Done() {
		return ErrMachineStopped
	}

	if !m.ready {
		return ErrContextNotReady
	}

	if m.status == StatusReady {
		m.log.Info("Entering state machine execution", "initial_state", m.initial, "max_errors", m.maxErrors)
	}

	m.status = StatusRunning

	if m.isEndTime() {
		m.log.Info("End time reached, state machine will end", "end_time", m.end)
		m.finish()

		return nil
	}

	if m.schedule != nil && !m.schedule.IsWorkTime(m.clock()) {
		return m.waitForWork(ctx)
	}

	state, ok := m.states[m.current]
	if !ok {
		return m.fail(WrapStateError(m.current, ErrUnknownState))
	}

	log := m.log.With("current_state", m.current)

	transition := state.Next(log, m.smCtx)
	if transition == nil {
		log.Info("Empty transition received state machine will end")
		m.finish()

		return nil
	}

	log.Info("Executing transition", "transition", transition.Name(), "target", transition.Target())

	started := m.clock()
	target, err := transition.Execute(ctx, m.log, m.current, m.smCtx)

	transitionDuration.WithLabelValues(sanitizeMachine(m.name), transition.Name()).
		Observe(m.clock().Sub(started).Seconds())

	if err != nil {
		return m.handleFailure(log, transition, err)
	}

	transitionsTotal.WithLabelValues(sanitizeMachine(m.name), transition.Name(), outcomeSuccess).Inc()

	if target == End {
		log.Info("Transition ended the run", "transition", transition.Name())
		m.finish()

		return nil
	}

	if _, ok := m.states[target]; !ok {
		return m.fail(WrapStateError(target, ErrUnknownState))
	}

	m.current = target
	log.Info("Moved to new state", "new_state", target)

	return nil
}

// handleFailure applies the error policy to a failed transition.
func (m *Statemachine[T]) handleFailure(log *slog.Logger, transition *Transition[T], err error) error {
	m.errors++
	m.lastErr = err

	transitionsTotal.WithLabelValues(sanitizeMachine(m.name), transition.Name(), outcomeError).Inc()
	transitionErrorsTotal.WithLabelValues(sanitizeMachine(m.name), m.current).Inc()

	log.Warn("Encountered a transition error",
		"transition", transition.Name(),
		"error", err,
		"errors", m.errors,
		"max_errors", m.maxErrors,
	)

	if m.errors > m.maxErrors {
		log.Error("Error ceiling exceeded, state machine is fatal", "errors", m.errors)

		return m.fail(err)
	}

	var te *TransitionExecutionError
	if errors.As(err, &te) && te.Fallback != "" {
		log.Warn("Recovering to fallback state", "fallback", te.Fallback)
		m.current = te.Fallback
	}

	return nil
}

// waitForWork idles until the next work start, or finishes the run when there is
// none before the end time.
func (m *Statemachine[T]) waitForWork(ctx context.Context) error {
	next, ok := m.schedule.NextWorkStart(m.clock())
	if !ok || (!m.end.IsZero() && !m.end.After(next)) {
		m.log.Info("No work time left, state machine will end")
		m.finish()

		return nil
	}

	m.log.Info("Pausing state machine", "resume_at", next)

	if m.pause != nil {
		if err := m.pause(ctx, m); err != nil {
			return m.fail(fmt.Errorf("pause work failed: %w", err))
		}
	}

	m.sleepUntil(next)
	m.log.Info("Resuming state machine")

	if m.resume != nil {
		if err := m.resume(ctx, m); err != nil {
			return m.fail(fmt.Errorf("resume work failed: %w", err))
		}
	}

	return nil
}

// Begin opens a run: it assigns a fresh run id, starts the run span and binds
// the run logger. The returned context carries the span and is the one to pass
// to the following SetupContext, Step and DestroyContext calls. Hosts that step
// a machine themselves call Begin first and End once they stop stepping.
func (m *Statemachine[T]) Begin(ctx context.Context) (context.Context, error) {
	if m.status != StatusReady || m.span != nil {
		return ctx, ErrMachineStopped
	}

	if ctx == nil {
		ctx = context.Background()
	}

	m.runID = uuid.NewString()

	ctx, m.span = startRunSpan(ctx, m.name, m.runID, m.initial)
	m.log = runLogger(ctx, m.baseLog, m.name, m.runID)

	m.log.Info("Starting state machine")

	return ctx, nil
}

// End closes the run opened by Begin, counting it by outcome and ending the
// run span. err is the error the host stopped with. A run that stopped before
// reaching a terminal status is counted as canceled.
func (m *Statemachine[T]) End(err error) {
	if m.span == nil {
		return
	}

	outcome := outcomeSuccess

	switch {
	case m.status == StatusFatal || err != nil:
		outcome = outcomeFatal
	case !m.status.Done():
		outcome = outcomeCanceled
	}

	runsTotal.WithLabelValues(sanitizeMachine(m.name), outcome).Inc()

	switch {
	case err != nil:
		m.span.RecordError(err)
		m.span.SetStatus(codes.Error, err.Error())
	case outcome == outcomeCanceled:
		m.span.SetStatus(codes.Error, "canceled")
	default:
		m.span.SetStatus(codes.Ok, "completed")
	}

	m.span.End()
	m.span = nil

	m.log.Info("State machine finished", "status", m.status, "errors", m.errors)
}

// Run executes the machine from setup to teardown.
//
// The context is destroyed on every path once setup succeeded and a teardown
// error is joined with the run error. A machine runs once, Run on a machine that
// already stepped returns ErrMachineStopped.
func (m *Statemachine[T]) Run(ctx context.Context) (err error) {
	ctx, err = m.Begin(ctx)
	if err != nil {
		return err
	}

	defer func() { m.End(err) }()

	m.WaitForStart()

	if err := m.SetupContext(ctx); err != nil {
		m.status = StatusFatal

		return err
	}

	defer func() {
		if derr := m.DestroyContext(ctx); derr != nil {
			err = errors.Join(err, derr)
		}
	}()

	for !m.status.Done() {
		if err := m.Step(ctx); err != nil {
			return err
		}
	}

	return nil
}

func (m *Statemachine[T]) finish() {
	m.status = StatusFinished
}

func (m *Statemachine[T]) fail(err error) error {
	m.status = StatusFatal
	m.log.Error("State machine execution failure", "error", err)

	return err
}

func (m *Statemachine[T]) isEndTime() bool {
	return !m.end.IsZero() && !m.clock().Before(m.end)
}

func (m *Statemachine[T]) sleepUntil(t time.Time) {
	if d := t.Sub(m.clock()); d > 0 {
		m.sleeper(d)
	}
}
