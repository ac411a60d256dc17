package actor

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStoreEnsureActorIsIdempotent(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	first := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, store.EnsureActor(ctx, "a", first))
	require.NoError(t, store.EnsureActor(ctx, "a", first.Add(time.Hour)))

	state, err := store.GetState(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, first, state.NextRun)
}

func TestMemoryStoreGetStateMissingActorErrors(t *testing.T) {
	store := NewMemoryStore()
	_, err := store.GetState(context.Background(), "missing")
	assert.Error(t, err)
}

func TestMemoryStoreRecordExecutionPersistsStateAndHistory(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, store.EnsureActor(ctx, "a", time.Now()))

	state, err := store.GetState(ctx, "a")
	require.NoError(t, err)
	state.TotalExecutions = 1

	require.NoError(t, store.RecordExecution(ctx, state, ExecutionRecord{ActorName: "a", StartedAt: time.Now()}))

	got, err := store.GetState(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, uint64(1), got.TotalExecutions)

	history, err := store.ListExecutions(ctx, "a", ListExecutionsOptions{})
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.NotEmpty(t, history[0].ID)
}

func TestMemoryStoreListExecutionsMostRecentFirstWithPaging(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, store.EnsureActor(ctx, "a", time.Now()))
	state, err := store.GetState(ctx, "a")
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		require.NoError(t, store.RecordExecution(ctx, state, ExecutionRecord{ActorName: "a", ID: string(rune('a' + i))}))
	}

	all, err := store.ListExecutions(ctx, "a", ListExecutionsOptions{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "c", all[0].ID)
	assert.Equal(t, "a", all[2].ID)

	page, err := store.ListExecutions(ctx, "a", ListExecutionsOptions{Limit: 1, Offset: 1})
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, "b", page[0].ID)
}

func TestMemoryStoreSetPausedMissingActorErrors(t *testing.T) {
	store := NewMemoryStore()
	err := store.SetPaused(context.Background(), "missing", true)
	assert.Error(t, err)
}

func TestMemoryStoreListActorsSortedByName(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, store.EnsureActor(ctx, "b", time.Now()))
	require.NoError(t, store.EnsureActor(ctx, "a", time.Now()))

	actors, err := store.ListActors(ctx)
	require.NoError(t, err)
	require.Len(t, actors, 2)
	assert.Equal(t, "a", actors[0].ActorName)
	assert.Equal(t, "b", actors[1].ActorName)
}

func TestMemoryStoreTryLockForExecutionAlwaysSucceeds(t *testing.T) {
	store := NewMemoryStore()
	release, ok, err := store.TryLockForExecution(context.Background(), "a")
	require.NoError(t, err)
	require.True(t, ok)
	require.NoError(t, release())
}
