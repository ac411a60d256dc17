package tier

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/crumplecup/botticelli/internal/errs"
	"github.com/crumplecup/botticelli/internal/resource"
)

var errCancelled = errors.New("tier: acquire cancelled")

const (
	minutePeriod = time.Minute
	dayPeriod    = 24 * time.Hour
)

// Recorder receives limiter-acquire telemetry; observability.Metrics and
// observability.Recorder satisfy it. A nil Recorder is a no-op.
type Recorder interface {
	ObserveLimiterWait(provider, quota string, wait time.Duration)
	CountLimiterRejection(provider, quota string)
}

// Guard is returned by Acquire/TryAcquire. Release must be called exactly
// once, on every exit path, to free the concurrency slot; request/token
// quota consumption is never released (it records usage regardless of the
// call's downstream outcome).
type Guard struct {
	sem      *semaphore
	released bool
	mu       sync.Mutex
}

// Release frees the concurrency slot. Safe to call more than once.
func (g *Guard) Release() {
	if g == nil {
		return
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.released {
		return
	}
	g.released = true
	g.sem.release()
}

// Limiter owns the four admission checks described in the rate-limiting
// substrate: RPM and RPD GCRA quotas, a TPM GCRA quota consuming estimated
// tokens, and a concurrency semaphore. MaxWait bounds how long Acquire will
// wait on the RPD quota before giving up with a RateLimitExhausted-flavored
// error, so the executor can record backpressure instead of blocking
// forever on daily exhaustion.
type Limiter struct {
	provider string
	clock    func() time.Time
	recorder Recorder

	mu  sync.RWMutex
	tie Tier

	rpm *gcra
	tpm *gcra
	rpd *gcra
	sem *semaphore

	maxWait time.Duration
}

// Option configures a Limiter at construction.
type Option func(*Limiter)

func WithClock(clock func() time.Time) Option   { return func(l *Limiter) { l.clock = clock } }
func WithRecorder(r Recorder) Option            { return func(l *Limiter) { l.recorder = r } }
func WithMaxWait(d time.Duration) Option        { return func(l *Limiter) { l.maxWait = d } }

// New builds a Limiter for provider admitting requests under t.
func New(provider string, t Tier, opts ...Option) *Limiter {
	l := &Limiter{
		provider: provider,
		clock:    time.Now,
		maxWait:  dayPeriod,
	}
	for _, opt := range opts {
		opt(l)
	}
	l.Reconfigure(t)
	return l
}

// Reconfigure swaps the active tier's quotas, used both at construction and
// when header-based auto-detection replaces the active limiter's quotas.
func (l *Limiter) Reconfigure(t Tier) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.tie = t

	if rpm, ok := t.RPM(); ok {
		l.rpm = newGCRA(rpm, minutePeriod, rpm)
	} else {
		l.rpm = nil
	}
	if tpm, ok := t.TPM(); ok {
		l.tpm = newGCRA(tpm, minutePeriod, tpm)
	} else {
		l.tpm = nil
	}
	if rpd, ok := t.RPD(); ok {
		l.rpd = newGCRA(rpd, dayPeriod, rpd)
	} else {
		l.rpd = nil
	}
	if mc, ok := t.MaxConcurrent(); ok {
		l.sem = newSemaphore(mc)
	} else {
		l.sem = nil
	}
}

// Tier returns the currently active tier.
func (l *Limiter) Tier() Tier {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.tie
}

// EstimateTokens implements the TPM cost estimator: sum(len(text)/4) across
// message inputs, plus a max_tokens hint, floored at 1.
func EstimateTokens(req resource.GenerateRequest) int {
	total := 0
	for _, msg := range req.Messages {
		for _, in := range msg.Content {
			if in.Kind == resource.InputKindText {
				total += len(in.Text) / 4
			}
		}
	}
	if req.MaxTokens != nil {
		total += *req.MaxTokens
	}
	if total < 1 {
		total = 1
	}
	return total
}

// Acquire waits on RPM, TPM, RPD (in that fixed order, matching the
// deadlock-free ordering guarantee) and then the concurrency semaphore,
// returning a Guard whose Release frees the semaphore slot. If the RPD
// quota's wait exceeds MaxWait, Acquire returns an errs.RateLimit error
// without blocking, so the caller can record backpressure instead.
func (l *Limiter) Acquire(ctx context.Context, estimatedTokens int) (*Guard, error) {
	l.mu.RLock()
	rpm, tpm, rpd, sem := l.rpm, l.tpm, l.rpd, l.sem
	l.mu.RUnlock()

	now := l.clock()
	if rpd != nil {
		if peek := rpd.Peek(now, 1); peek > l.maxWait {
			l.reject("rpd")
			return nil, errs.New(errs.RateLimit, "daily quota exhausted")
		}
	}

	if err := l.waitOn(ctx, rpm, "rpm", 1); err != nil {
		return nil, err
	}
	cost := int64(estimatedTokens)
	if cost < 1 {
		cost = 1
	}
	if err := l.waitOn(ctx, tpm, "tpm", cost); err != nil {
		return nil, err
	}
	if err := l.waitOn(ctx, rpd, "rpd", 1); err != nil {
		return nil, err
	}

	if err := sem.acquire(ctx.Done()); err != nil {
		return nil, errs.Wrap(errs.Cancelled, err, "acquire concurrency slot")
	}
	return &Guard{sem: sem}, nil
}

func (l *Limiter) waitOn(ctx context.Context, q *gcra, name string, cost int64) error {
	if q == nil {
		return nil
	}
	wait := q.Reserve(l.clock(), cost)
	if l.recorder != nil {
		l.recorder.ObserveLimiterWait(l.provider, name, wait)
	}
	if wait <= 0 {
		return nil
	}
	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return errs.Wrap(errs.Cancelled, ctx.Err(), "acquire "+name+" quota")
	}
}

// TryAcquire performs the same four checks non-blockingly: if any quota
// would block, it returns ok=false without committing any of them.
func (l *Limiter) TryAcquire(estimatedTokens int) (guard *Guard, ok bool) {
	l.mu.RLock()
	rpm, tpm, rpd, sem := l.rpm, l.tpm, l.rpd, l.sem
	l.mu.RUnlock()

	now := l.clock()
	cost := int64(estimatedTokens)
	if cost < 1 {
		cost = 1
	}

	if rpm != nil && rpm.Peek(now, 1) > 0 {
		l.reject("rpm")
		return nil, false
	}
	if tpm != nil && tpm.Peek(now, cost) > 0 {
		l.reject("tpm")
		return nil, false
	}
	if rpd != nil && rpd.Peek(now, 1) > 0 {
		l.reject("rpd")
		return nil, false
	}
	if !sem.tryAcquire() {
		l.reject("concurrency")
		return nil, false
	}

	if rpm != nil {
		rpm.Reserve(now, 1)
	}
	if tpm != nil {
		tpm.Reserve(now, cost)
	}
	if rpd != nil {
		rpd.Reserve(now, 1)
	}
	return &Guard{sem: sem}, true
}

func (l *Limiter) reject(quota string) {
	if l.recorder != nil {
		l.recorder.CountLimiterRejection(l.provider, quota)
	}
}
