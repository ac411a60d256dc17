package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crumplecup/botticelli/internal/schema"
)

func TestMemoryStoreEnsureTableIdempotent(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	cols := []schema.Column{{Name: "name", Type: schema.ColumnType{Base: schema.BaseText}}}
	require.NoError(t, s.EnsureTable(ctx, "posts", cols))
	require.NoError(t, s.EnsureTable(ctx, "posts", nil)) // second call is a no-op even with different cols
	assert.Len(t, s.tables["posts"], 1)
}

func TestMemoryStoreInsertAndQuery(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	cols := []schema.Column{
		{Name: "name", Type: schema.ColumnType{Base: schema.BaseText}},
		{Name: "rank", Type: schema.ColumnType{Base: schema.BaseBigint}},
	}
	require.NoError(t, s.EnsureTable(ctx, "posts", cols))
	require.NoError(t, s.InsertRow(ctx, "posts", map[string]any{"name": "a", "rank": int64(2)}))
	require.NoError(t, s.InsertRow(ctx, "posts", map[string]any{"name": "b", "rank": int64(1)}))

	rows, err := s.QueryRows(ctx, Query{Table: "posts", OrderBy: "rank"})
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "b", rows[0]["name"])
	assert.Equal(t, "a", rows[1]["name"])
}

func TestMemoryStoreQueryFiltersByWhere(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	cols := []schema.Column{{Name: "status", Type: schema.ColumnType{Base: schema.BaseText}}}
	require.NoError(t, s.EnsureTable(ctx, "posts", cols))
	require.NoError(t, s.InsertRow(ctx, "posts", map[string]any{"status": "approved"}))
	require.NoError(t, s.InsertRow(ctx, "posts", map[string]any{"status": "pending"}))

	rows, err := s.QueryRows(ctx, Query{Table: "posts", Where: map[string]any{"status": "approved"}})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "approved", rows[0]["status"])
}

func TestMemoryStoreQueryUnknownTableErrors(t *testing.T) {
	s := NewMemoryStore()
	_, err := s.QueryRows(context.Background(), Query{Table: "nope"})
	assert.Error(t, err)
}

func TestRegistryRecordsTableOnce(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	cols := []schema.Column{{Name: "x", Type: schema.ColumnType{Base: schema.BaseText}}}
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, RecordTable(ctx, s, "widgets", TemplateSourceInferred, "n.toml", "", cols, now))
	require.NoError(t, RecordTable(ctx, s, "widgets", TemplateSourceInferred, "n.toml", "", cols, now))

	rows, err := s.QueryRows(ctx, Query{Table: RegistryTable, Where: map[string]any{"table_name": "widgets"}})
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestValidateIdentifierRejectsUnsafeNames(t *testing.T) {
	assert.NoError(t, ValidateIdentifier("valid_name"))
	assert.Error(t, ValidateIdentifier("bad name"))
	assert.Error(t, ValidateIdentifier("bad;drop"))
}
