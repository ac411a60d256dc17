package actor

import (
	"context"
	"database/sql"
	"errors"
	"time"

	_ "github.com/lib/pq"

	"github.com/crumplecup/botticelli/internal/errs"
	"github.com/crumplecup/botticelli/internal/resource"
)

// PostgresStore implements Store against PostgreSQL via database/sql and
// lib/pq: a BeginTx/ExecContext/Commit shape adapted from a task queue's
// claim-and-run model to an actor's own update-state-and-append-history
// transaction.
type PostgresStore struct {
	db *sql.DB
}

// OpenPostgresStore opens dsn and ensures the actor_state/actor_executions
// tables exist.
func OpenPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, errs.Wrap(errs.Storage, err, "open postgres connection")
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, errs.Wrap(errs.Storage, err, "ping postgres connection")
	}
	s := &PostgresStore{db: db}
	if err := s.ensureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// NewPostgresStore wraps an already-open *sql.DB (e.g. shared with
// internal/storage's PostgresStore).
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) ensureSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS actor_state (
			actor_name TEXT PRIMARY KEY,
			is_paused BOOLEAN NOT NULL DEFAULT false,
			consecutive_failures INTEGER NOT NULL DEFAULT 0,
			consecutive_successes INTEGER NOT NULL DEFAULT 0,
			total_executions BIGINT NOT NULL DEFAULT 0,
			last_run TIMESTAMPTZ,
			next_run TIMESTAMPTZ NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS actor_executions (
			id TEXT PRIMARY KEY,
			actor_name TEXT NOT NULL REFERENCES actor_state(actor_name),
			started_at TIMESTAMPTZ NOT NULL,
			completed_at TIMESTAMPTZ,
			outcome TEXT NOT NULL,
			skills_succeeded INTEGER NOT NULL DEFAULT 0,
			skills_failed INTEGER NOT NULL DEFAULT 0,
			error_message TEXT,
			trace_id TEXT,
			cancelled BOOLEAN NOT NULL DEFAULT false
		)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return errs.Wrap(errs.Storage, err, "ensure actor schema")
		}
	}
	return nil
}

func (s *PostgresStore) EnsureActor(ctx context.Context, actorName string, firstRun time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO actor_state (actor_name, next_run)
		VALUES ($1, $2)
		ON CONFLICT (actor_name) DO NOTHING
	`, actorName, firstRun)
	if err != nil {
		return errs.Wrap(errs.Storage, err, "ensure actor "+actorName)
	}
	return nil
}

func (s *PostgresStore) GetState(ctx context.Context, actorName string) (ActorState, error) {
	return s.getState(ctx, s.db, actorName)
}

type queryRower interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *PostgresStore) getState(ctx context.Context, q queryRower, actorName string) (ActorState, error) {
	row := q.QueryRowContext(ctx, `
		SELECT actor_name, is_paused, consecutive_failures, consecutive_successes,
		       total_executions, last_run, next_run
		FROM actor_state WHERE actor_name = $1
	`, actorName)
	var st ActorState
	var lastRun sql.NullTime
	if err := row.Scan(&st.ActorName, &st.IsPaused, &st.ConsecutiveFailures, &st.ConsecutiveSuccesses,
		&st.TotalExecutions, &lastRun, &st.NextRun); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ActorState{}, errs.Newf(errs.Actor, "actor %q not found", actorName)
		}
		return ActorState{}, errs.Wrap(errs.Storage, err, "get actor state "+actorName)
	}
	if lastRun.Valid {
		st.LastRun = &lastRun.Time
	}
	return st, nil
}

// RecordExecution performs the required transactional pair: UPDATE
// actor_state, INSERT INTO actor_executions, COMMIT. The row lock taken by
// the UPDATE (not a SKIP LOCKED read — there is exactly one writer per
// actor at a time by construction, the at-most-one-in-flight guarantee the
// actor itself already enforces) serializes concurrent writers across
// server processes if more than one ever runs the same actor name.
func (s *PostgresStore) RecordExecution(ctx context.Context, state ActorState, exec ExecutionRecord) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errs.Wrap(errs.Storage, err, "begin record execution")
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `
		UPDATE actor_state SET
			is_paused = $1, consecutive_failures = $2, consecutive_successes = $3,
			total_executions = $4, last_run = $5, next_run = $6
		WHERE actor_name = $7
	`, state.IsPaused, state.ConsecutiveFailures, state.ConsecutiveSuccesses,
		state.TotalExecutions, state.LastRun, state.NextRun, state.ActorName); err != nil {
		return errs.Wrap(errs.Storage, err, "update actor state "+state.ActorName)
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO actor_executions
			(id, actor_name, started_at, completed_at, outcome, skills_succeeded,
			 skills_failed, error_message, trace_id, cancelled)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, exec.ID, exec.ActorName, exec.StartedAt, exec.CompletedAt, string(exec.Outcome),
		exec.SkillsSucceeded, exec.SkillsFailed, exec.ErrorMessage, exec.TraceID, exec.Cancelled); err != nil {
		return errs.Wrap(errs.Storage, err, "insert actor execution "+exec.ActorName)
	}

	if err := tx.Commit(); err != nil {
		return errs.Wrap(errs.Storage, err, "commit record execution")
	}
	return nil
}

func (s *PostgresStore) SetPaused(ctx context.Context, actorName string, paused bool) error {
	res, err := s.db.ExecContext(ctx, `UPDATE actor_state SET is_paused = $1 WHERE actor_name = $2`, paused, actorName)
	if err != nil {
		return errs.Wrap(errs.Storage, err, "set paused "+actorName)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errs.Newf(errs.Actor, "actor %q not found", actorName)
	}
	return nil
}

func (s *PostgresStore) ListActors(ctx context.Context) ([]ActorState, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT actor_name, is_paused, consecutive_failures, consecutive_successes,
		       total_executions, last_run, next_run
		FROM actor_state ORDER BY actor_name ASC
	`)
	if err != nil {
		return nil, errs.Wrap(errs.Storage, err, "list actors")
	}
	defer rows.Close()
	var out []ActorState
	for rows.Next() {
		var st ActorState
		var lastRun sql.NullTime
		if err := rows.Scan(&st.ActorName, &st.IsPaused, &st.ConsecutiveFailures, &st.ConsecutiveSuccesses,
			&st.TotalExecutions, &lastRun, &st.NextRun); err != nil {
			return nil, errs.Wrap(errs.Storage, err, "scan actor state")
		}
		if lastRun.Valid {
			st.LastRun = &lastRun.Time
		}
		out = append(out, st)
	}
	return out, rows.Err()
}

func (s *PostgresStore) ListExecutions(ctx context.Context, actorName string, opts ListExecutionsOptions) ([]ExecutionRecord, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, actor_name, started_at, completed_at, outcome, skills_succeeded,
		       skills_failed, error_message, trace_id, cancelled
		FROM actor_executions
		WHERE actor_name = $1
		ORDER BY started_at DESC
		LIMIT $2 OFFSET $3
	`, actorName, limit, opts.Offset)
	if err != nil {
		return nil, errs.Wrap(errs.Storage, err, "list executions "+actorName)
	}
	defer rows.Close()
	var out []ExecutionRecord
	for rows.Next() {
		var rec ExecutionRecord
		var completed sql.NullTime
		var outcome string
		var errMsg, traceID sql.NullString
		if err := rows.Scan(&rec.ID, &rec.ActorName, &rec.StartedAt, &completed, &outcome,
			&rec.SkillsSucceeded, &rec.SkillsFailed, &errMsg, &traceID, &rec.Cancelled); err != nil {
			return nil, errs.Wrap(errs.Storage, err, "scan execution")
		}
		rec.Outcome = resource.Outcome(outcome)
		if completed.Valid {
			rec.CompletedAt = &completed.Time
		}
		if errMsg.Valid {
			rec.ErrorMessage = &errMsg.String
		}
		rec.TraceID = traceID.String
		out = append(out, rec)
	}
	return out, rows.Err()
}

// TryLockForExecution opens a transaction and attempts `SELECT ... FOR
// UPDATE SKIP LOCKED` on actorName's state row, adapted from a task queue's
// claim-a-pending-row pattern to claiming ownership of an already-known
// actor for the duration of one tick. release commits (and
// so releases) the row lock.
func (s *PostgresStore) TryLockForExecution(ctx context.Context, actorName string) (func() error, bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, false, errs.Wrap(errs.Storage, err, "begin lock for execution")
	}
	var name string
	err = tx.QueryRowContext(ctx, `
		SELECT actor_name FROM actor_state WHERE actor_name = $1 FOR UPDATE SKIP LOCKED
	`, actorName).Scan(&name)
	if errors.Is(err, sql.ErrNoRows) {
		_ = tx.Rollback()
		return nil, false, nil
	}
	if err != nil {
		_ = tx.Rollback()
		return nil, false, errs.Wrap(errs.Storage, err, "lock actor state "+actorName)
	}
	release := func() error {
		if err := tx.Commit(); err != nil {
			return errs.Wrap(errs.Storage, err, "release actor lock "+actorName)
		}
		return nil
	}
	return release, true, nil
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}
