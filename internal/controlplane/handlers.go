package controlplane

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/crumplecup/botticelli/internal/actor"
)

// ActorSummary is list_actors' element shape.
type ActorSummary struct {
	Name                 string     `json:"name"`
	Status               string     `json:"status"`
	IsPaused             bool       `json:"is_paused"`
	LastRun              *time.Time `json:"last_run,omitempty"`
	NextRun              *time.Time `json:"next_run,omitempty"`
	ConsecutiveFailures  uint32     `json:"consecutive_failures"`
	ConsecutiveSuccesses uint32     `json:"consecutive_successes"`
	TotalExecutions      uint64     `json:"total_executions"`
}

// ActorDetail is get_actor's return shape; it carries the same fields as
// ActorSummary with nothing further to add until the domain grows a
// second actor-scoped resource beyond execution history (which is fetched
// separately via list_executions).
type ActorDetail struct {
	ActorSummary
}

// ExecutionRecordView is the JSON projection of actor.ExecutionRecord.
type ExecutionRecordView struct {
	ID              string     `json:"id"`
	ActorName       string     `json:"actor_name"`
	StartedAt       time.Time  `json:"started_at"`
	CompletedAt     *time.Time `json:"completed_at,omitempty"`
	Outcome         string     `json:"outcome"`
	SkillsSucceeded int        `json:"skills_succeeded"`
	SkillsFailed    int        `json:"skills_failed"`
	ErrorMessage    *string    `json:"error_message,omitempty"`
	TraceID         string     `json:"trace_id,omitempty"`
	Cancelled       bool       `json:"cancelled"`
}

func toSummary(s actor.ActorState, status string) ActorSummary {
	sum := ActorSummary{
		Name:                 s.ActorName,
		Status:               status,
		IsPaused:             s.IsPaused,
		LastRun:              s.LastRun,
		ConsecutiveFailures:  s.ConsecutiveFailures,
		ConsecutiveSuccesses: s.ConsecutiveSuccesses,
		TotalExecutions:      s.TotalExecutions,
	}
	if !s.NextRun.IsZero() {
		next := s.NextRun
		sum.NextRun = &next
	}
	return sum
}

func toExecutionView(r actor.ExecutionRecord) ExecutionRecordView {
	return ExecutionRecordView{
		ID:              r.ID,
		ActorName:       r.ActorName,
		StartedAt:       r.StartedAt,
		CompletedAt:     r.CompletedAt,
		Outcome:         string(r.Outcome),
		SkillsSucceeded: r.SkillsSucceeded,
		SkillsFailed:    r.SkillsFailed,
		ErrorMessage:    r.ErrorMessage,
		TraceID:         r.TraceID,
		Cancelled:       r.Cancelled,
	}
}

// statusOf reports the in-memory lifecycle status for name if this process
// hosts it, or "unknown" if it is only known via persisted state (e.g.
// hosted by a different process in a multi-node deployment).
func (h *Handler) statusOf(ctx context.Context, name string) string {
	a, ok := h.cfg.Registry.Get(name)
	if !ok {
		return "unknown"
	}
	_, status, err := a.GetStatus(ctx)
	if err != nil {
		return "unknown"
	}
	return string(status)
}

// apiActorList handles GET /api/actors (list_actors).
func (h *Handler) apiActorList(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		h.jsonError(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	ctx := r.Context()
	states, err := h.cfg.Store.ListActors(ctx)
	if err != nil {
		h.cfg.Logger.Error("controlplane list actors failed", "error", err)
		h.jsonError(w, "failed to list actors", http.StatusInternalServerError)
		return
	}

	summaries := make([]ActorSummary, 0, len(states))
	for _, s := range states {
		summaries = append(summaries, toSummary(s, h.statusOf(ctx, s.ActorName)))
	}
	h.jsonResponse(w, summaries)
}

// apiActorDetail handles GET /api/actors/{name} (get_actor).
func (h *Handler) apiActorDetail(w http.ResponseWriter, r *http.Request, name string) {
	if r.Method != http.MethodGet {
		h.jsonError(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	ctx := r.Context()
	state, err := h.cfg.Store.GetState(ctx, name)
	if err != nil {
		h.jsonError(w, "actor not found", http.StatusNotFound)
		return
	}
	h.jsonResponse(w, ActorDetail{ActorSummary: toSummary(state, h.statusOf(ctx, name))})
}

// apiActorPause handles POST /api/actors/{name}/pause (pause_actor).
func (h *Handler) apiActorPause(w http.ResponseWriter, r *http.Request, name string) {
	if r.Method != http.MethodPost {
		h.jsonError(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if !h.authorize(w, r) {
		return
	}

	a, ok := h.cfg.Registry.Get(name)
	if !ok {
		h.jsonError(w, "actor not found", http.StatusNotFound)
		return
	}
	if err := a.Pause(r.Context()); err != nil {
		h.cfg.Logger.Error("controlplane pause failed", "actor", name, "error", err)
		h.jsonError(w, "failed to pause actor", http.StatusInternalServerError)
		return
	}
	h.writeUpdatedSummary(w, r, name)
}

// apiActorResume handles POST /api/actors/{name}/resume (resume_actor).
func (h *Handler) apiActorResume(w http.ResponseWriter, r *http.Request, name string) {
	if r.Method != http.MethodPost {
		h.jsonError(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if !h.authorize(w, r) {
		return
	}

	a, ok := h.cfg.Registry.Get(name)
	if !ok {
		h.jsonError(w, "actor not found", http.StatusNotFound)
		return
	}
	if err := a.Resume(r.Context()); err != nil {
		h.cfg.Logger.Error("controlplane resume failed", "actor", name, "error", err)
		h.jsonError(w, "failed to resume actor", http.StatusInternalServerError)
		return
	}
	h.writeUpdatedSummary(w, r, name)
}

// apiActorTrigger handles POST /api/actors/{name}/trigger (trigger_actor).
// A trigger dropped because the actor is already running, paused, or
// locked by another process is a 409 conflict, not a failure; any other
// error (control-channel plumbing) is a 500.
func (h *Handler) apiActorTrigger(w http.ResponseWriter, r *http.Request, name string) {
	if r.Method != http.MethodPost {
		h.jsonError(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if !h.authorize(w, r) {
		return
	}

	a, ok := h.cfg.Registry.Get(name)
	if !ok {
		h.jsonError(w, "actor not found", http.StatusNotFound)
		return
	}

	_, err := a.Execute(r.Context())
	switch {
	case err == nil:
		h.writeUpdatedSummary(w, r, name)
	case errors.Is(err, actor.ErrAlreadyRunning), errors.Is(err, actor.ErrPaused), errors.Is(err, actor.ErrLocked):
		h.jsonError(w, err.Error(), http.StatusConflict)
	default:
		h.cfg.Logger.Error("controlplane trigger failed", "actor", name, "error", err)
		h.jsonError(w, "failed to trigger actor", http.StatusInternalServerError)
	}
}

func (h *Handler) writeUpdatedSummary(w http.ResponseWriter, r *http.Request, name string) {
	ctx := r.Context()
	state, err := h.cfg.Store.GetState(ctx, name)
	if err != nil {
		h.cfg.Logger.Error("controlplane reload state failed", "actor", name, "error", err)
		h.jsonError(w, "failed to reload actor state", http.StatusInternalServerError)
		return
	}
	h.jsonResponse(w, ActorDetail{ActorSummary: toSummary(state, h.statusOf(ctx, name))})
}

// apiActorExecutions handles GET /api/actors/{name}/executions (list_executions).
func (h *Handler) apiActorExecutions(w http.ResponseWriter, r *http.Request, name string) {
	if r.Method != http.MethodGet {
		h.jsonError(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	ctx := r.Context()
	if _, err := h.cfg.Store.GetState(ctx, name); err != nil {
		h.jsonError(w, "actor not found", http.StatusNotFound)
		return
	}

	limit := parseIntParam(r, "limit", 50)
	if limit < 1 || limit > 500 {
		limit = 50
	}
	offset := parseIntParam(r, "offset", 0)
	if offset < 0 {
		offset = 0
	}

	records, err := h.cfg.Store.ListExecutions(ctx, name, actor.ListExecutionsOptions{Limit: limit, Offset: offset})
	if err != nil {
		h.cfg.Logger.Error("controlplane list executions failed", "actor", name, "error", err)
		h.jsonError(w, "failed to list executions", http.StatusInternalServerError)
		return
	}

	views := make([]ExecutionRecordView, 0, len(records))
	for _, rec := range records {
		views = append(views, toExecutionView(rec))
	}
	h.jsonResponse(w, views)
}
