package processor

import (
	"context"
	"log/slog"
	"time"

	"github.com/crumplecup/botticelli/internal/errs"
	"github.com/crumplecup/botticelli/internal/resource"
)

// Recorder receives per-processor telemetry; observability.Recorder, which
// combines Metrics and Tracer, satisfies it structurally. A nil Recorder is a no-op,
// mirroring tier.Recorder's avoidance of an import on internal/observability.
type Recorder interface {
	ObserveProcessorDuration(processor string, outcome string, d time.Duration)
	StartProcessorSpan(ctx context.Context, processor string) (context.Context, func())
}

// Registry holds an ordered list of Processors and runs all of them against
// every ActExecution, per the processor-pipeline algorithm: should_process
// gates process, and a failing processor is logged and counted but never
// propagated to the executor.
type Registry struct {
	processors []Processor
	logger     *slog.Logger
	recorder   Recorder
}

// NewRegistry builds an empty Registry. logger must not be nil.
func NewRegistry(logger *slog.Logger, recorder Recorder) *Registry {
	return &Registry{logger: logger, recorder: recorder}
}

// Register appends p to the ordered processor list.
func (r *Registry) Register(p Processor) {
	r.processors = append(r.processors, p)
}

// Process runs every registered Processor whose ShouldProcess accepts act,
// returning an aggregate of any failures. The returned error is always
// non-fatal: callers (the executor) log it and continue.
func (r *Registry) Process(ctx context.Context, act resource.ActExecution) error {
	var agg errs.MultiError
	for _, p := range r.processors {
		if !p.ShouldProcess(ctx, act) {
			continue
		}
		start := time.Now()
		spanCtx := ctx
		var end func()
		if r.recorder != nil {
			spanCtx, end = r.recorder.StartProcessorSpan(ctx, p.Name())
		}
		result, err := p.Process(spanCtx, act)
		if end != nil {
			end()
		}
		outcome := "success"
		if err != nil {
			outcome = "error"
			r.logger.Error("processor failed", "processor", p.Name(), "act", act.ActName, "error", err)
			agg.Append(errs.Wrap(errs.Processor, err, "processor "+p.Name()+" failed"))
		} else {
			r.logger.Debug("processor completed", "processor", p.Name(), "act", act.ActName,
				"table", result.Table, "rows_inserted", result.RowsInserted)
		}
		if r.recorder != nil {
			r.recorder.ObserveProcessorDuration(p.Name(), outcome, time.Since(start))
		}
	}
	return agg.ErrorOrNil()
}
