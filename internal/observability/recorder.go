package observability

import (
	"context"
	"time"
)

// Recorder combines Metrics and Tracer so a single value can be injected
// wherever a narrower recorder interface is expected — internal/tier's
// Recorder (limiter wait/rejection) and internal/processor's Recorder
// (processor duration + span) are both satisfied structurally, without
// either package importing this one.
type Recorder struct {
	*Metrics
	*Tracer
}

// NewRecorder builds a Recorder from an already-constructed Metrics and
// Tracer. Either may be nil, in which case the corresponding calls are
// no-ops — useful for tests and for components that only care about one
// half of the contract.
func NewRecorder(m *Metrics, t *Tracer) *Recorder {
	return &Recorder{Metrics: m, Tracer: t}
}

// ObserveLimiterWait implements tier.Recorder, tolerating a nil Metrics.
func (r *Recorder) ObserveLimiterWait(provider, quota string, wait time.Duration) {
	if r.Metrics == nil {
		return
	}
	r.Metrics.ObserveLimiterWait(provider, quota, wait)
}

// CountLimiterRejection implements tier.Recorder, tolerating a nil Metrics.
func (r *Recorder) CountLimiterRejection(provider, quota string) {
	if r.Metrics == nil {
		return
	}
	r.Metrics.CountLimiterRejection(provider, quota)
}

// ObserveProcessorDuration implements processor.Recorder, tolerating a nil Metrics.
func (r *Recorder) ObserveProcessorDuration(processorName, outcome string, d time.Duration) {
	if r.Metrics == nil {
		return
	}
	r.Metrics.ObserveProcessorDuration(processorName, outcome, d)
}

// StartProcessorSpan implements processor.Recorder, tolerating a nil Tracer.
func (r *Recorder) StartProcessorSpan(ctx context.Context, processorName string) (context.Context, func()) {
	if r.Tracer == nil {
		return ctx, func() {}
	}
	return r.Tracer.StartProcessorSpan(ctx, processorName)
}
