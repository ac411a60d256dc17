package actor

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crumplecup/botticelli/internal/executor"
	"github.com/crumplecup/botticelli/internal/resource"
)

type discardWriter struct{}

func (discardWriter) Write(p []byte) (int, error) { return len(p), nil }

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(discardWriter{}, nil))
}

func textResponse(s string) resource.GenerateResponse {
	return resource.GenerateResponse{Outputs: []resource.Output{resource.NewTextOutput(s)}}
}

// scriptedProvider returns errs[i] if set, else responses[i], by call index.
type scriptedProvider struct {
	mu        sync.Mutex
	responses []resource.GenerateResponse
	errs      []error
	calls     int
}

func (p *scriptedProvider) Generate(_ context.Context, _ resource.GenerateRequest) (resource.GenerateResponse, error) {
	p.mu.Lock()
	i := p.calls
	p.calls++
	p.mu.Unlock()
	if i < len(p.errs) && p.errs[i] != nil {
		return resource.GenerateResponse{}, p.errs[i]
	}
	if i < len(p.responses) {
		return p.responses[i], nil
	}
	return textResponse("default"), nil
}

// blockingProvider blocks on release until signalled, letting tests hold an
// execution open to exercise the at-most-one-in-flight guarantee.
type blockingProvider struct {
	release chan struct{}
	entered chan struct{}
}

func newBlockingProvider() *blockingProvider {
	return &blockingProvider{release: make(chan struct{}), entered: make(chan struct{}, 1)}
}

func (p *blockingProvider) Generate(ctx context.Context, _ resource.GenerateRequest) (resource.GenerateResponse, error) {
	select {
	case p.entered <- struct{}{}:
	default:
	}
	select {
	case <-p.release:
		return textResponse("done"), nil
	case <-ctx.Done():
		return resource.GenerateResponse{}, ctx.Err()
	}
}

func oneActNarrative(name string) resource.Narrative {
	return resource.Narrative{
		Name: name,
		TOC:  []string{"a"},
		Acts: map[string]resource.Act{"a": {Inputs: []resource.Input{resource.NewTextInput("go")}}},
	}
}

func waitForStatus(t *testing.T, a *Actor, want Status, timeout time.Duration) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		_, status, err := a.GetStatus(context.Background())
		require.NoError(t, err)
		if status == want {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("timed out waiting for status %s", want)
}

func TestActorOnDemandRunSucceedsOnExecute(t *testing.T) {
	provider := &scriptedProvider{responses: []resource.GenerateResponse{textResponse("ok")}}
	exec := executor.New(provider, executor.WithLogger(discardLogger()))
	store := NewMemoryStore()
	a := New("greeter", NewOnDemandSchedule(), exec, resource.NewSingleSource(oneActNarrative("greeter")), store,
		WithActorLogger(discardLogger()))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()

	state, err := a.Execute(context.Background())
	require.NoError(t, err)
	_ = state

	waitForStatus(t, a, StatusIdle, time.Second)

	history, err := store.ListExecutions(context.Background(), "greeter", ListExecutionsOptions{})
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, resource.OutcomeSuccess, history[0].Outcome)

	require.NoError(t, a.Shutdown(context.Background()))
	<-done
}

func TestActorCircuitBreakerTripsAfterThreshold(t *testing.T) {
	provider := &scriptedProvider{errs: []error{errors.New("boom"), errors.New("boom"), errors.New("boom")}}
	exec := executor.New(provider, executor.WithLogger(discardLogger()))
	store := NewMemoryStore()
	a := New("flaky", NewOnDemandSchedule(), exec, resource.NewSingleSource(oneActNarrative("flaky")), store,
		WithActorLogger(discardLogger()), WithThreshold(3))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()

	for i := 0; i < 3; i++ {
		_, err := a.Execute(context.Background())
		require.NoError(t, err)
		waitForStatus(t, a, statusAfterExecution(i), time.Second)
	}

	state, _, err := a.GetStatus(context.Background())
	require.NoError(t, err)
	assert.True(t, state.IsPaused)
	assert.Equal(t, uint32(3), state.ConsecutiveFailures)

	// Resume clears the pause but the failure counter must survive until
	// the next success.
	require.NoError(t, a.Resume(context.Background()))
	state, _, err = a.GetStatus(context.Background())
	require.NoError(t, err)
	assert.False(t, state.IsPaused)
	assert.Equal(t, uint32(3), state.ConsecutiveFailures)

	require.NoError(t, a.Shutdown(context.Background()))
	<-done
}

// statusAfterExecution returns the expected resting status after the i'th
// (0-indexed) consecutive failing execution against a threshold-3 actor.
func statusAfterExecution(i int) Status {
	if i == 2 {
		return StatusPaused
	}
	return StatusIdle
}

func TestActorPauseRejectsScheduledTicks(t *testing.T) {
	provider := &scriptedProvider{responses: []resource.GenerateResponse{textResponse("ok")}}
	exec := executor.New(provider, executor.WithLogger(discardLogger()))
	store := NewMemoryStore()
	sched, err := NewIntervalSchedule(time.Second)
	require.NoError(t, err)
	a := New("paused", sched, exec, resource.NewSingleSource(oneActNarrative("paused")), store,
		WithActorLogger(discardLogger()))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()

	require.NoError(t, a.Pause(context.Background()))
	_, status, err := a.GetStatus(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StatusPaused, status)

	time.Sleep(50 * time.Millisecond)
	history, err := store.ListExecutions(context.Background(), "paused", ListExecutionsOptions{})
	require.NoError(t, err)
	assert.Empty(t, history)

	require.NoError(t, a.Shutdown(context.Background()))
	<-done
}

func TestActorExecuteWhilePausedReturnsErrPaused(t *testing.T) {
	provider := &scriptedProvider{responses: []resource.GenerateResponse{textResponse("ok")}}
	exec := executor.New(provider, executor.WithLogger(discardLogger()))
	store := NewMemoryStore()
	a := New("dormant", NewOnDemandSchedule(), exec, resource.NewSingleSource(oneActNarrative("dormant")), store,
		WithActorLogger(discardLogger()))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()

	require.NoError(t, a.Pause(context.Background()))

	_, err := a.Execute(context.Background())
	require.ErrorIs(t, err, ErrPaused)

	require.NoError(t, a.Shutdown(context.Background()))
	<-done
}

func TestActorConcurrentExecuteDroppedWhileRunning(t *testing.T) {
	provider := newBlockingProvider()
	exec := executor.New(provider, executor.WithLogger(discardLogger()))
	store := NewMemoryStore()
	a := New("busy", NewOnDemandSchedule(), exec, resource.NewSingleSource(oneActNarrative("busy")), store,
		WithActorLogger(discardLogger()))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()

	_, err := a.Execute(context.Background())
	require.NoError(t, err)

	select {
	case <-provider.entered:
	case <-time.After(time.Second):
		t.Fatal("first execution never reached the provider")
	}
	waitForStatus(t, a, StatusRunning, time.Second)

	// A second Execute while the first is in flight must be dropped, not
	// block until the first completes, and must report ErrAlreadyRunning
	// so a caller can tell a conflict from a failure.
	dropCtx, dropCancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer dropCancel()
	_, err = a.Execute(dropCtx)
	require.ErrorIs(t, err, ErrAlreadyRunning, "Execute must return promptly, reporting the conflict")

	close(provider.release)
	waitForStatus(t, a, StatusIdle, time.Second)

	history, err := store.ListExecutions(context.Background(), "busy", ListExecutionsOptions{})
	require.NoError(t, err)
	assert.Len(t, history, 1, "the dropped Execute must not have started a second run")

	require.NoError(t, a.Shutdown(context.Background()))
	<-done
}

func TestActorShutdownCancelsInFlightExecution(t *testing.T) {
	provider := newBlockingProvider()
	exec := executor.New(provider, executor.WithLogger(discardLogger()))
	store := NewMemoryStore()
	a := New("cancel-me", NewOnDemandSchedule(), exec, resource.NewSingleSource(oneActNarrative("cancel-me")), store,
		WithActorLogger(discardLogger()))

	ctx := context.Background()
	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()

	_, err := a.Execute(context.Background())
	require.NoError(t, err)

	select {
	case <-provider.entered:
	case <-time.After(time.Second):
		t.Fatal("execution never reached the provider")
	}

	shutdownDone := make(chan error, 1)
	go func() { shutdownDone <- a.Shutdown(context.Background()) }()

	select {
	case err := <-shutdownDone:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("shutdown did not return promptly; it should cancel the in-flight run rather than wait for provider.release")
	}

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after shutdown")
	}

	history, err := store.ListExecutions(context.Background(), "cancel-me", ListExecutionsOptions{})
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.True(t, history[0].Cancelled)
}
