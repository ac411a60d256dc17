package actor

import (
	"context"
	"time"
)

// ListExecutionsOptions bounds internal/controlplane's list_executions
// query.
type ListExecutionsOptions struct {
	Limit  int
	Offset int
}

// Store persists ActorState and ExecutionRecord. RecordExecution is the
// only write path an actor takes after a run completes, and it must be
// transactional: `BEGIN; UPDATE actor_state; INSERT execution; COMMIT` as
// one unit, so a crash between the two never leaves state and history
// disagreeing about whether a run happened.
type Store interface {
	// EnsureActor creates actor_name's state row if absent, seeded Idle
	// with NextRun set to firstRun. A pre-existing row is left untouched,
	// so restarting the server resumes from whatever was persisted.
	EnsureActor(ctx context.Context, actorName string, firstRun time.Time) error

	// GetState returns the current persisted state for actorName.
	GetState(ctx context.Context, actorName string) (ActorState, error)

	// RecordExecution atomically updates state and appends exec.
	RecordExecution(ctx context.Context, state ActorState, exec ExecutionRecord) error

	// SetPaused updates only the is_paused flag, the path pause_actor/
	// resume_actor take — it does not touch the failure counters.
	SetPaused(ctx context.Context, actorName string, paused bool) error

	// ListActors returns every actor's current state, for list_actors.
	ListActors(ctx context.Context) ([]ActorState, error)

	// ListExecutions returns actorName's execution history, most recent
	// first, for list_executions.
	ListExecutions(ctx context.Context, actorName string, opts ListExecutionsOptions) ([]ExecutionRecord, error)

	// TryLockForExecution takes an advisory, non-blocking lock on
	// actorName so at most one server process executes it at a time even
	// when more than one process hosts an actor by this name (the
	// in-process at-most-one-in-flight guard only covers a single
	// process). ok=false means another process currently holds it and
	// this tick should be skipped; release must be called exactly once
	// when ok is true, after the execution completes.
	TryLockForExecution(ctx context.Context, actorName string) (release func() error, ok bool, err error)
}
