package resource

import "time"

// Outcome is the terminal status of a narrative execution.
type Outcome string

const (
	OutcomeSuccess            Outcome = "success"
	OutcomePartialFailure     Outcome = "partial_failure"
	OutcomeError              Outcome = "error"
	OutcomeRateLimitExhausted Outcome = "rate_limit_exhausted"
)

// ActExecution records the outcome of executing a single act.
type ActExecution struct {
	ActName        string
	Inputs         []Input
	Model          string
	Temperature    *float64
	MaxTokens      *int
	Response       string
	SequenceNumber int
	TraceID        string
	Usage          *Usage
	Err            error
}

// NarrativeExecution records the outcome of executing an entire narrative.
type NarrativeExecution struct {
	NarrativeName string
	ActExecutions []ActExecution
	StartedAt     time.Time
	CompletedAt   *time.Time
	Outcome       Outcome
}
