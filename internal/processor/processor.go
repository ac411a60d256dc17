// Package processor implements the post-act processing pipeline: an
// ordered registry of handlers, each deciding independently whether an
// ActExecution concerns it and, if so, persisting rows derived from the
// act's response text.
package processor

import (
	"context"

	"github.com/crumplecup/botticelli/internal/resource"
)

// Result describes what a successful Process call did, surfaced to callers
// that want to log or test processor behavior without inspecting storage.
type Result struct {
	Table        string
	RowsInserted int
}

// Processor is a post-act handler. ShouldProcess is called for every
// ActExecution in sequence-number order; Process runs only when it returns
// true. A Processor's failure never fails the surrounding narrative — the
// Registry collects and logs it.
type Processor interface {
	Name() string
	ShouldProcess(ctx context.Context, act resource.ActExecution) bool
	Process(ctx context.Context, act resource.ActExecution) (Result, error)
}
