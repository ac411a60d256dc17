// Package executor runs a resolved narrative: it sequences acts in TOC
// order (expanded by any carousel configuration), maintains conversation
// history, dispatches composed sub-narratives, calls the generation
// provider, and invokes the processor registry on every act's response.
package executor

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	"github.com/crumplecup/botticelli/internal/errs"
	"github.com/crumplecup/botticelli/internal/processor"
	"github.com/crumplecup/botticelli/internal/resource"
	"github.com/crumplecup/botticelli/internal/storage"
	"github.com/crumplecup/botticelli/internal/tier"
)

// Clock abstracts time.Now for deterministic tests via a WithNow-style
// option.
type Clock func() time.Time

// Tracer is the tracing half of the executor's observability hooks;
// observability.Tracer satisfies it. A nil Tracer is a no-op.
type Tracer interface {
	StartActSpan(ctx context.Context, actName string) (context.Context, func(error))
	StartNarrativeSpan(ctx context.Context, narrativeName string) (context.Context, func(error))
}

// Metrics is the metrics half of the executor's observability hooks;
// observability.Metrics satisfies it. A nil Metrics is a no-op.
type Metrics interface {
	CountNarrativeExecution(narrative, outcome string)
	RecordActExecution(act, outcome string, d time.Duration)
}

// Executor runs narratives against a single Provider, resolving table
// inputs against Store, admitting provider calls through Limiter, and
// routing every act's response through Processors.
type Executor struct {
	Provider   resource.Provider
	Store      storage.Store
	Limiter    *tier.Limiter
	Processors *processor.Registry
	Logger     *slog.Logger
	Tracer     Tracer
	Metrics    Metrics
	Clock      Clock
}

// Option configures an Executor at construction.
type Option func(*Executor)

func WithStore(s storage.Store) Option           { return func(e *Executor) { e.Store = s } }
func WithLimiter(l *tier.Limiter) Option         { return func(e *Executor) { e.Limiter = l } }
func WithProcessors(r *processor.Registry) Option { return func(e *Executor) { e.Processors = r } }
func WithLogger(l *slog.Logger) Option           { return func(e *Executor) { e.Logger = l } }
func WithTracer(t Tracer) Option                 { return func(e *Executor) { e.Tracer = t } }
func WithMetrics(m Metrics) Option               { return func(e *Executor) { e.Metrics = m } }
func WithClock(c Clock) Option                   { return func(e *Executor) { e.Clock = c } }

// New builds an Executor calling provider for every non-composition act.
func New(provider resource.Provider, opts ...Option) *Executor {
	e := &Executor{Provider: provider, Clock: time.Now}
	for _, opt := range opts {
		opt(e)
	}
	if e.Logger == nil {
		e.Logger = slog.Default()
	}
	return e
}

// Execute runs source to completion, returning its NarrativeExecution. A
// non-nil error means the narrative never started executing acts at all
// (configuration/resolution failure); every other outcome — including
// PartialFailure and RateLimitExhausted — is reported via the returned
// NarrativeExecution.Outcome with a nil error.
func (e *Executor) Execute(ctx context.Context, source resource.NarrativeSource) (resource.NarrativeExecution, error) {
	return e.execute(ctx, source, nil)
}

func (e *Executor) execute(ctx context.Context, source resource.NarrativeSource, path []string) (resource.NarrativeExecution, error) {
	narrative, err := source.Resolve()
	if err != nil {
		return resource.NarrativeExecution{Outcome: resource.OutcomeError}, errs.Wrap(errs.Configuration, err, "resolve narrative")
	}
	for _, seen := range path {
		if seen == narrative.Name {
			return resource.NarrativeExecution{Outcome: resource.OutcomeError},
				&resource.CyclicCompositionError{Path: append(append([]string{}, path...), narrative.Name)}
		}
	}
	path = append(path, narrative.Name)

	var endNarrativeSpan func(error)
	if e.Tracer != nil {
		ctx, endNarrativeSpan = e.Tracer.StartNarrativeSpan(ctx, narrative.Name)
	}

	started := e.Clock()
	exec := resource.NarrativeExecution{NarrativeName: narrative.Name, StartedAt: started}

	plan := expandTOC(narrative)
	stopOnFirstErr := narrative.Carousel != nil && narrative.Carousel.StopOnFirstError

	var history []resource.Message
	anyErr := false

	for i, actName := range plan {
		act := narrative.Acts[actName]

		actExec, rateLimited, actErr := e.runAct(ctx, source, act, actName, i, &history, path)
		exec.ActExecutions = append(exec.ActExecutions, actExec)

		if e.Processors != nil {
			if perr := e.Processors.Process(ctx, actExec); perr != nil {
				e.Logger.Warn("processor registry reported failures", "act", actName, "error", perr)
			}
		}

		if rateLimited {
			exec.Outcome = resource.OutcomeRateLimitExhausted
			completed := e.Clock()
			exec.CompletedAt = &completed
			e.recordNarrative(exec, endNarrativeSpan, nil)
			return exec, nil
		}
		if actErr != nil {
			anyErr = true
			if stopOnFirstErr {
				break
			}
		}
	}

	completed := e.Clock()
	exec.CompletedAt = &completed
	if anyErr {
		exec.Outcome = resource.OutcomePartialFailure
	} else {
		exec.Outcome = resource.OutcomeSuccess
	}
	e.recordNarrative(exec, endNarrativeSpan, nil)
	return exec, nil
}

func (e *Executor) recordNarrative(exec resource.NarrativeExecution, end func(error), err error) {
	if e.Metrics != nil {
		e.Metrics.CountNarrativeExecution(exec.NarrativeName, string(exec.Outcome))
	}
	if end != nil {
		end(err)
	}
}

// runAct executes one TOC entry: either a composition dispatch to a
// sub-narrative, or a direct provider call. It returns the recorded
// ActExecution, whether the attempt was turned back by daily rate-limit
// exhaustion, and any error encountered (already embedded in actExec.Err).
func (e *Executor) runAct(ctx context.Context, source resource.NarrativeSource, act resource.Act, actName string, seq int, history *[]resource.Message, path []string) (resource.ActExecution, bool, error) {
	start := e.Clock()
	var endActSpan func(error)
	if e.Tracer != nil {
		ctx, endActSpan = e.Tracer.StartActSpan(ctx, actName)
	}

	if act.IsComposition() {
		actExec, err := e.runComposition(ctx, source, act, actName, seq, history, path)
		e.finishActSpan(endActSpan, actName, start, err)
		return actExec, false, err
	}

	actExec, rateLimited, err := e.runGenerate(ctx, act, actName, seq, history)
	e.finishActSpan(endActSpan, actName, start, err)
	return actExec, rateLimited, err
}

func (e *Executor) finishActSpan(end func(error), actName string, start time.Time, err error) {
	if e.Metrics != nil {
		outcome := "success"
		if err != nil {
			outcome = "error"
		}
		e.Metrics.RecordActExecution(actName, outcome, e.Clock().Sub(start))
	}
	if end != nil {
		end(err)
	}
}

func (e *Executor) runComposition(ctx context.Context, source resource.NarrativeSource, act resource.Act, actName string, seq int, history *[]resource.Message, path []string) (resource.ActExecution, error) {
	actExec := resource.ActExecution{ActName: actName, Inputs: act.Inputs, SequenceNumber: seq}

	if source.Kind != resource.NarrativeSourceKindMultiWithContext || source.Multi == nil {
		err := errs.New(errs.Configuration, "composition act requires a multi-narrative context")
		actExec.Err = err
		return actExec, err
	}

	childSource := resource.NewMultiWithContextSource(*source.Multi, act.NarrativeRef)
	childExec, err := e.execute(ctx, childSource, path)
	if err != nil {
		actExec.Err = err
		return actExec, err
	}

	summary := summarizeChild(childExec)
	actExec.Response = summary
	if childExec.Outcome == resource.OutcomeError || childExec.Outcome == resource.OutcomePartialFailure {
		actExec.Err = errs.Newf(errs.Provider, "sub-narrative %q completed with outcome %s", act.NarrativeRef, childExec.Outcome)
	}

	*history = append(*history, resource.Message{Role: resource.RoleAssistant, Content: []resource.Input{resource.NewTextInput(summary)}})
	return actExec, actExec.Err
}

// summarizeChild concatenates every act response produced during the
// child's execution, the parent-visible summary of a composed sub-narrative.
func summarizeChild(child resource.NarrativeExecution) string {
	var b strings.Builder
	for _, a := range child.ActExecutions {
		b.WriteString(a.Response)
	}
	return b.String()
}

func (e *Executor) runGenerate(ctx context.Context, act resource.Act, actName string, seq int, history *[]resource.Message) (resource.ActExecution, bool, error) {
	inputs, err := e.resolveInputs(ctx, act.Inputs)
	if err != nil {
		actExec := resource.ActExecution{ActName: actName, Inputs: act.Inputs, SequenceNumber: seq, Err: err}
		return actExec, false, err
	}

	*history = append(*history, resource.Message{Role: resource.RoleUser, Content: inputs})

	req := resource.GenerateRequest{Messages: *history, Model: act.Model, Temperature: act.Temperature, MaxTokens: act.MaxTokens}
	actExec := resource.ActExecution{ActName: actName, Inputs: act.Inputs, Model: act.Model, Temperature: act.Temperature, MaxTokens: act.MaxTokens, SequenceNumber: seq}

	if err := req.Validate(); err != nil {
		wrapped := errs.Wrap(errs.Configuration, err, "build generate request")
		actExec.Err = wrapped
		*history = append(*history, resource.Message{Role: resource.RoleAssistant, Content: []resource.Input{resource.NewTextInput("")}})
		return actExec, false, wrapped
	}

	if e.Limiter != nil {
		tokens := tier.EstimateTokens(req)
		guard, acquireErr := e.Limiter.Acquire(ctx, tokens)
		if acquireErr != nil {
			actExec.Err = acquireErr
			if kind, ok := errs.KindOf(acquireErr); ok && kind == errs.RateLimit {
				// The narrative terminates immediately on daily exhaustion;
				// no matching assistant turn is pushed.
				return actExec, true, acquireErr
			}
			*history = append(*history, resource.Message{Role: resource.RoleAssistant, Content: []resource.Input{resource.NewTextInput("")}})
			return actExec, false, acquireErr
		}
		defer guard.Release()
	}

	resp, err := e.Provider.Generate(ctx, req)
	if err != nil {
		wrapped := errs.Wrap(errs.Provider, err, "provider generate")
		actExec.Err = wrapped
		*history = append(*history, resource.Message{Role: resource.RoleAssistant, Content: []resource.Input{resource.NewTextInput("")}})
		return actExec, false, wrapped
	}
	actExec.Usage = resp.Usage

	text, _, textErr := resp.Text(serializeToolCall)
	actExec.Response = text
	*history = append(*history, resource.Message{Role: resource.RoleAssistant, Content: []resource.Input{resource.NewTextInput(text)}})
	if textErr != nil {
		wrapped := errs.Wrap(errs.Provider, textErr, "act output")
		actExec.Err = wrapped
		return actExec, false, wrapped
	}
	return actExec, false, nil
}

// resolveInputs replaces Table inputs with their live-queried, rendered
// text: resource resolution is load-time only for shorthand references,
// but table contents still need a fresh read per execution. Other
// input kinds pass through unchanged — bot_command resolution belongs to
// the platform capability, out of scope here.
func (e *Executor) resolveInputs(ctx context.Context, inputs []resource.Input) ([]resource.Input, error) {
	if e.Store == nil {
		return inputs, nil
	}
	out := make([]resource.Input, len(inputs))
	for i, in := range inputs {
		if in.Kind != resource.InputKindTable || in.Table == nil {
			out[i] = in
			continue
		}
		resolved, err := resolveTableInput(ctx, e.Store, *in.Table)
		if err != nil {
			return nil, errs.Wrap(errs.Storage, err, "resolve table input")
		}
		out[i] = resolved
	}
	return out, nil
}

// expandTOC repeats narrative.TOC narrative.Carousel.IterationCount times:
// no separate execution model for looping, just a longer plan built before
// the simple linear machine runs.
func expandTOC(n resource.Narrative) []string {
	count := int(n.Carousel.IterationCount())
	plan := make([]string, 0, len(n.TOC)*count)
	for i := 0; i < count; i++ {
		plan = append(plan, n.TOC...)
	}
	return plan
}

func serializeToolCall(tc resource.ToolCall) (string, error) {
	b, err := json.Marshal(struct {
		ToolCall struct {
			Name      string         `json:"name"`
			Arguments map[string]any `json:"arguments"`
		} `json:"tool_call"`
	}{
		ToolCall: struct {
			Name      string         `json:"name"`
			Arguments map[string]any `json:"arguments"`
		}{Name: tc.Name, Arguments: tc.Arguments},
	})
	if err != nil {
		return "", err
	}
	return string(b), nil
}
