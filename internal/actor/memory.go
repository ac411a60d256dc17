package actor

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/crumplecup/botticelli/internal/errs"
)

// MemoryStore is an in-process Store, used by tests and single-node dev
// deployments where no PostgreSQL instance is available.
type MemoryStore struct {
	mu         sync.Mutex
	states     map[string]ActorState
	executions map[string][]ExecutionRecord
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		states:     make(map[string]ActorState),
		executions: make(map[string][]ExecutionRecord),
	}
}

func (s *MemoryStore) EnsureActor(_ context.Context, actorName string, firstRun time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.states[actorName]; ok {
		return nil
	}
	s.states[actorName] = ActorState{ActorName: actorName, NextRun: firstRun}
	return nil
}

func (s *MemoryStore) GetState(_ context.Context, actorName string) (ActorState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.states[actorName]
	if !ok {
		return ActorState{}, errs.Newf(errs.Actor, "actor %q not found", actorName)
	}
	return st, nil
}

func (s *MemoryStore) RecordExecution(_ context.Context, state ActorState, exec ExecutionRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if exec.ID == "" {
		exec.ID = uuid.NewString()
	}
	s.states[state.ActorName] = state
	s.executions[state.ActorName] = append(s.executions[state.ActorName], exec)
	return nil
}

func (s *MemoryStore) SetPaused(_ context.Context, actorName string, paused bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.states[actorName]
	if !ok {
		return errs.Newf(errs.Actor, "actor %q not found", actorName)
	}
	st.IsPaused = paused
	s.states[actorName] = st
	return nil
}

func (s *MemoryStore) ListActors(_ context.Context) ([]ActorState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]ActorState, 0, len(s.states))
	for _, st := range s.states {
		out = append(out, st)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ActorName < out[j].ActorName })
	return out, nil
}

// TryLockForExecution always succeeds: a MemoryStore only ever backs a
// single process, so there is no other process to contend with.
func (s *MemoryStore) TryLockForExecution(_ context.Context, _ string) (func() error, bool, error) {
	return func() error { return nil }, true, nil
}

func (s *MemoryStore) ListExecutions(_ context.Context, actorName string, opts ListExecutionsOptions) ([]ExecutionRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	all := s.executions[actorName]
	// Most recent first, matching the Postgres implementation's ORDER BY
	// started_at DESC.
	out := make([]ExecutionRecord, len(all))
	for i, rec := range all {
		out[len(all)-1-i] = rec
	}
	if opts.Offset > 0 {
		if opts.Offset >= len(out) {
			return nil, nil
		}
		out = out[opts.Offset:]
	}
	if opts.Limit > 0 && opts.Limit < len(out) {
		out = out[:opts.Limit]
	}
	return out, nil
}
