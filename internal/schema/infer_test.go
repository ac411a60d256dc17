package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func col(s Schema, name string) (Column, bool) { return s.columnByName(name) }

func TestInferArrayWidening(t *testing.T) {
	rows := []map[string]any{
		{"id": float64(1), "x": nil},
		{"id": float64(2.5), "x": "hi", "y": true},
	}
	s := InferArray(rows)

	id, ok := col(s, "id")
	require.True(t, ok)
	assert.Equal(t, ColumnType{Base: BaseDouble}, id.Type)
	assert.False(t, id.Nullable)

	x, ok := col(s, "x")
	require.True(t, ok)
	assert.Equal(t, ColumnType{Base: BaseText}, x.Type)
	assert.True(t, x.Nullable)

	y, ok := col(s, "y")
	require.True(t, ok)
	assert.Equal(t, ColumnType{Base: BaseBoolean}, y.Type)
	assert.True(t, y.Nullable, "field absent from first row must be nullable")
}

func TestInferArrayAddsMetadataColumns(t *testing.T) {
	s := InferArray([]map[string]any{{"title": "a"}})
	for _, name := range MetadataColumns {
		_, ok := col(s, name)
		assert.True(t, ok, "expected metadata column %q", name)
	}
}

func TestInferArrayRenamesCollidingField(t *testing.T) {
	s := InferArray([]map[string]any{{"tags": "urgent"}})
	_, collided := col(s, "tags")
	assert.True(t, collided, "tags column should exist as the metadata column")
	renamed, ok := col(s, "content_tags")
	require.True(t, ok, "source field colliding with metadata column should be renamed")
	assert.Equal(t, ColumnType{Base: BaseText}, renamed.Type)
}

func TestResolveTypeConflictIdempotent(t *testing.T) {
	a := ColumnType{Base: BaseBigint}
	b := ColumnType{Base: BaseDouble}
	once := ResolveTypeConflict(a, b)
	twice := ResolveTypeConflict(once, b)
	assert.Equal(t, once, twice)
}

func TestResolveTypeConflictTextAbsorbsAny(t *testing.T) {
	got := ResolveTypeConflict(ColumnType{Base: BaseBoolean}, ColumnType{Base: BaseText})
	assert.Equal(t, BaseText, got.Base)
}

func TestResolveTypeConflictHeterogeneousArrayIsJSONB(t *testing.T) {
	arrInt := ColumnType{Base: BaseBigint, Array: true}
	arrBool := ColumnType{Base: BaseBoolean, Array: true}
	got := ResolveTypeConflict(arrInt, arrBool)
	assert.Equal(t, BaseJSONB, got.Base)
}

func TestResolveTypeConflictHeterogeneousArrayWithTextIsJSONB(t *testing.T) {
	arrText := ColumnType{Base: BaseText, Array: true}
	arrInt := ColumnType{Base: BaseBigint, Array: true}
	got := ResolveTypeConflict(arrText, arrInt)
	assert.Equal(t, BaseJSONB, got.Base)
}

func TestInferValueHomogeneousArray(t *testing.T) {
	got := InferValue([]any{float64(1), float64(2), float64(3)})
	assert.Equal(t, ColumnType{Base: BaseBigint, Array: true}, got)
}

func TestInferValueObjectContainingArrayIsJSONB(t *testing.T) {
	got := InferValue([]any{map[string]any{"a": 1}})
	assert.Equal(t, ColumnType{Base: BaseJSONB}, got)
}
