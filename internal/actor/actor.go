package actor

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/crumplecup/botticelli/internal/errs"
	"github.com/crumplecup/botticelli/internal/executor"
	"github.com/crumplecup/botticelli/internal/resource"
)

// Status is an actor's in-memory lifecycle state, layered on top of the
// persisted ActorState.IsPaused flag. The state machine is:
// Initializing -> Idle <-> Running -> Idle, Idle <-> Paused, and ->
// Terminated from any state on Shutdown.
type Status string

const (
	StatusInitializing Status = "initializing"
	StatusIdle         Status = "idle"
	StatusRunning      Status = "running"
	StatusPaused       Status = "paused"
	StatusTerminated   Status = "terminated"
)

// DefaultFailureThreshold is the circuit breaker's default consecutive-
// failure count before an actor pauses itself.
const DefaultFailureThreshold = 3

// ErrAlreadyRunning is returned by Execute when a trigger is dropped because
// an execution is already in flight — the control plane maps this to a 409.
var ErrAlreadyRunning = errors.New("actor: execution already in flight")

// ErrPaused is returned by Execute when a trigger is dropped because the
// actor is currently paused by its circuit breaker or an operator.
var ErrPaused = errors.New("actor: actor is paused")

// ErrLocked is returned by Execute when another process holds the
// execution lock for this actor (multi-host deployments).
var ErrLocked = errors.New("actor: execution locked by another process")

// Actor wraps an executor.Executor with a Schedule, persisted state, a
// circuit breaker, and a channel-based control surface: a ticker-plus-
// context-cancellation run loop generalized from a multi-job scheduler
// to a single long-running host per narrative. Execution runs in its
// own goroutine so the control channel
// stays responsive — in particular so Shutdown can reach and cancel an
// in-flight run rather than waiting behind it.
type Actor struct {
	name      string
	schedule  Schedule
	executor  *executor.Executor
	source    resource.NarrativeSource
	store     Store
	threshold uint32
	logger    *slog.Logger
	clock     func() time.Time

	control  chan controlMsg
	tickDone chan tickResult

	mu         sync.Mutex
	status     Status
	runningNow atomic.Bool
	cancelRun  context.CancelFunc
}

// Option configures an Actor at construction.
type Option func(*Actor)

func WithThreshold(n uint32) Option            { return func(a *Actor) { a.threshold = n } }
func WithActorLogger(l *slog.Logger) Option     { return func(a *Actor) { a.logger = l } }
func WithActorClock(c func() time.Time) Option { return func(a *Actor) { a.clock = c } }

// New builds an Actor named name, running source through exec on sched,
// persisting state and history to store.
func New(name string, sched Schedule, exec *executor.Executor, source resource.NarrativeSource, store Store, opts ...Option) *Actor {
	a := &Actor{
		name:      name,
		schedule:  sched,
		executor:  exec,
		source:    source,
		store:     store,
		threshold: DefaultFailureThreshold,
		clock:     time.Now,
		control:   make(chan controlMsg),
		tickDone:  make(chan tickResult, 1),
		status:    StatusInitializing,
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.logger == nil {
		a.logger = slog.Default()
	}
	return a
}

// controlMsg is one control-plane message: Execute, Pause, Resume,
// GetStatus, Shutdown, each delivered over the same channel and answered
// on its own response channel, so a single goroutine owns all actor state
// without extra locking for the control path.
type controlMsg struct {
	kind string // "execute" | "pause" | "resume" | "status" | "shutdown"
	resp chan controlResp
}

type controlResp struct {
	state  ActorState
	status Status
	err    error
}

// tickResult is what a background execution reports back to the Run loop.
type tickResult struct {
	state ActorState
}

// Run starts the actor's loop: it ensures persisted state exists, then
// blocks servicing its schedule and control channel until ctx is
// cancelled or a Shutdown message arrives.
func (a *Actor) Run(ctx context.Context) error {
	now := a.clock()
	first, ok := a.schedule.Next(now)
	if !ok {
		first = time.Time{}
	}
	if err := a.store.EnsureActor(ctx, a.name, first); err != nil {
		return err
	}
	state, err := a.store.GetState(ctx, a.name)
	if err != nil {
		return err
	}
	a.mu.Lock()
	a.status = StatusIdle
	if state.IsPaused {
		a.status = StatusPaused
	}
	a.mu.Unlock()

	for {
		next := state.NextRun

		var wake <-chan time.Time
		if !next.IsZero() {
			d := next.Sub(a.clock())
			if d < 0 {
				d = 0
			}
			timer := time.NewTimer(d)
			wake = timer.C
			defer timer.Stop()
		}

		select {
		case <-ctx.Done():
			a.cancelInFlight()
			a.drainInFlight(&state)
			a.setStatus(StatusTerminated)
			return nil
		case msg := <-a.control:
			var terminate bool
			state, terminate = a.handleControl(ctx, msg, state)
			if terminate {
				return nil
			}
		case <-wake:
			_, _ = a.maybeStartExecution(ctx, state)
		case res := <-a.tickDone:
			state = res.state
		}
	}
}

func (a *Actor) setStatus(s Status) {
	a.mu.Lock()
	a.status = s
	a.mu.Unlock()
}

func (a *Actor) currentStatus() Status {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.status
}

// cancelInFlight cancels whatever execution is currently running, if any.
func (a *Actor) cancelInFlight() {
	a.mu.Lock()
	cancel := a.cancelRun
	a.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// drainInFlight blocks until any in-flight execution's result lands,
// folding it into state, so Shutdown never returns while a run is still
// writing its ExecutionRecord.
func (a *Actor) drainInFlight(state *ActorState) {
	if !a.runningNow.Load() {
		return
	}
	res := <-a.tickDone
	*state = res.state
}

func (a *Actor) handleControl(ctx context.Context, msg controlMsg, state ActorState) (ActorState, bool) {
	switch msg.kind {
	case "execute":
		started, reason := a.maybeStartExecution(ctx, state)
		if !started {
			a.logger.Warn("actor execute dropped", "actor", a.name, "reason", reason)
			msg.resp <- controlResp{state: state, status: a.currentStatus(), err: reason}
			return state, false
		}
		msg.resp <- controlResp{state: state, status: a.currentStatus()}
		return state, false
	case "pause":
		if err := a.store.SetPaused(ctx, a.name, true); err != nil {
			msg.resp <- controlResp{err: err}
			return state, false
		}
		state.IsPaused = true
		a.setStatus(StatusPaused)
		msg.resp <- controlResp{state: state, status: StatusPaused}
		return state, false
	case "resume":
		if err := a.store.SetPaused(ctx, a.name, false); err != nil {
			msg.resp <- controlResp{err: err}
			return state, false
		}
		state.IsPaused = false
		if !a.runningNow.Load() {
			a.setStatus(StatusIdle)
		}
		msg.resp <- controlResp{state: state, status: a.currentStatus()}
		return state, false
	case "status":
		msg.resp <- controlResp{state: state, status: a.currentStatus()}
		return state, false
	case "shutdown":
		a.cancelInFlight()
		a.drainInFlight(&state)
		a.setStatus(StatusTerminated)
		msg.resp <- controlResp{state: state, status: StatusTerminated}
		return state, true
	default:
		msg.resp <- controlResp{err: errs.Newf(errs.Actor, "unknown control message %q", msg.kind)}
		return state, false
	}
}

// maybeStartExecution starts a background execution of state if the actor
// isn't paused and nothing is already in flight: a scheduling tick in
// Paused is a no-op, in Running it is dropped, on top of the
// at-most-one-in-flight guarantee for explicit Execute triggers. Returns
// whether it actually started one and, if not, why — ErrPaused,
// ErrAlreadyRunning, ErrLocked, or a genuine store error — so a caller like
// the control plane can distinguish a conflict from a failure.
func (a *Actor) maybeStartExecution(ctx context.Context, state ActorState) (bool, error) {
	if state.IsPaused {
		return false, ErrPaused
	}
	if !a.runningNow.CompareAndSwap(false, true) {
		return false, ErrAlreadyRunning
	}

	release, ok, err := a.store.TryLockForExecution(ctx, a.name)
	if err != nil {
		a.logger.Error("actor lock acquisition failed", "actor", a.name, "error", err)
		a.runningNow.Store(false)
		return false, err
	}
	if !ok {
		a.logger.Debug("actor tick skipped: locked by another process", "actor", a.name)
		a.runningNow.Store(false)
		return false, ErrLocked
	}

	runCtx, cancel := context.WithCancel(ctx)
	a.mu.Lock()
	a.status = StatusRunning
	a.cancelRun = cancel
	a.mu.Unlock()

	go func() {
		defer a.runningNow.Store(false)
		defer func() { _ = release() }()
		defer cancel()

		next := a.runExecution(runCtx, state)

		a.mu.Lock()
		a.cancelRun = nil
		if next.IsPaused {
			a.status = StatusPaused
		} else {
			a.status = StatusIdle
		}
		a.mu.Unlock()

		a.tickDone <- tickResult{state: next}
	}()
	return true, nil
}

// runExecution performs one execution and its transactional persistence,
// returning the updated ActorState.
func (a *Actor) runExecution(runCtx context.Context, state ActorState) ActorState {
	started := a.clock()
	exec, execErr := a.executor.Execute(runCtx, a.source)

	rec := ExecutionRecord{
		ID:        uuid.NewString(),
		ActorName: a.name,
		StartedAt: started,
		Cancelled: runCtx.Err() != nil,
	}
	completed := a.clock()
	rec.CompletedAt = &completed

	succeeded := execErr == nil && exec.Outcome == resource.OutcomeSuccess
	switch {
	case succeeded:
		rec.Outcome = resource.OutcomeSuccess
		state.ConsecutiveFailures = 0
		state.ConsecutiveSuccesses++
	case execErr != nil:
		rec.Outcome = resource.OutcomeError
		state.ConsecutiveFailures++
		state.ConsecutiveSuccesses = 0
	default:
		rec.Outcome = exec.Outcome
		state.ConsecutiveFailures++
		state.ConsecutiveSuccesses = 0
	}
	summarize(&rec, exec, execErr)

	state.TotalExecutions++
	state.LastRun = &started
	if state.ConsecutiveFailures >= a.threshold {
		state.IsPaused = true
		a.logger.Warn("actor circuit breaker tripped", "actor", a.name, "consecutive_failures", state.ConsecutiveFailures)
	}
	if next, ok := a.schedule.Next(a.clock()); ok {
		state.NextRun = next
	} else {
		state.NextRun = time.Time{}
	}

	if err := a.store.RecordExecution(context.WithoutCancel(runCtx), state, rec); err != nil {
		a.logger.Error("actor failed to persist execution", "actor", a.name, "error", err)
	}
	return state
}

func (a *Actor) sendControl(ctx context.Context, kind string) (ActorState, Status, error) {
	resp := make(chan controlResp, 1)
	select {
	case a.control <- controlMsg{kind: kind, resp: resp}:
	case <-ctx.Done():
		return ActorState{}, "", ctx.Err()
	}
	select {
	case r := <-resp:
		return r.state, r.status, r.err
	case <-ctx.Done():
		return ActorState{}, "", ctx.Err()
	}
}

// Execute triggers an immediate run. It returns as soon as the trigger is
// accepted or dropped, not when the run completes; poll GetStatus to
// observe completion. A dropped trigger is reported as ErrAlreadyRunning,
// ErrPaused, or ErrLocked so a caller (e.g. the control plane) can
// distinguish a conflict from a genuine failure.
func (a *Actor) Execute(ctx context.Context) (ActorState, error) {
	state, _, err := a.sendControl(ctx, "execute")
	return state, err
}

// Pause trips the actor into Paused; it will not be scheduled until Resume.
func (a *Actor) Pause(ctx context.Context) error {
	_, _, err := a.sendControl(ctx, "pause")
	return err
}

// Resume clears the pause flag but not the consecutive-failure counter,
// which only a subsequent success resets.
func (a *Actor) Resume(ctx context.Context) error {
	_, _, err := a.sendControl(ctx, "resume")
	return err
}

// GetStatus returns the actor's current persisted state and in-memory
// lifecycle status.
func (a *Actor) GetStatus(ctx context.Context) (ActorState, Status, error) {
	state, status, err := a.sendControl(ctx, "status")
	return state, status, err
}

// Shutdown cancels any outstanding execution at its next suspension point
// and terminates the actor's Run loop.
func (a *Actor) Shutdown(ctx context.Context) error {
	_, _, err := a.sendControl(ctx, "shutdown")
	return err
}

// Name returns the actor's configured name.
func (a *Actor) Name() string { return a.name }
