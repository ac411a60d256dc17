// Package actor wraps a narrative executor with a schedule, persisted
// state, a circuit breaker, and a control-message surface, per the
// actor/scheduler model: interval/cron-driven hosts that run narratives,
// persist their own state transactionally, and trip a breaker on repeated
// failure rather than retrying forever.
package actor

import (
	"time"

	"github.com/crumplecup/botticelli/internal/resource"
)

// ActorState is the persisted record an actor reads at startup and writes
// after every execution.
type ActorState struct {
	ActorName            string
	LastRun              *time.Time
	NextRun              time.Time
	IsPaused             bool
	ConsecutiveFailures  uint32
	ConsecutiveSuccesses uint32
	TotalExecutions      uint64
}

// ExecutionRecord is the persisted history of one actor run.
type ExecutionRecord struct {
	ID              string
	ActorName       string
	StartedAt       time.Time
	CompletedAt     *time.Time
	Outcome         resource.Outcome
	SkillsSucceeded int
	SkillsFailed    int
	ErrorMessage    *string
	TraceID         string
	Cancelled       bool
}

// summarize fills in SkillsSucceeded/SkillsFailed/ErrorMessage from a
// NarrativeExecution, the conversion every actor run performs before
// persisting its ExecutionRecord.
func summarize(rec *ExecutionRecord, exec resource.NarrativeExecution, execErr error) {
	for _, a := range exec.ActExecutions {
		if a.Err != nil {
			rec.SkillsFailed++
		} else {
			rec.SkillsSucceeded++
		}
	}
	if execErr != nil {
		msg := execErr.Error()
		rec.ErrorMessage = &msg
	}
}
