package schema

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestMatchColumnFuzzyTiers(t *testing.T) {
	cols := []Column{{Name: "owner_id"}, {Name: "Member-Count"}}

	name, ok := matchColumn("owner_id", cols)
	assert.True(t, ok)
	assert.Equal(t, "owner_id", name)

	name, ok = matchColumn("Owner_ID", cols)
	assert.True(t, ok)
	assert.Equal(t, "owner_id", name)

	name, ok = matchColumn("member_count", cols)
	assert.True(t, ok)
	assert.Equal(t, "Member-Count", name)
}

func TestMatchColumnIdempotentUnderNormalization(t *testing.T) {
	cols := []Column{{Name: "owner-id"}}
	first, ok1 := matchColumn("owner_id", cols)
	second, ok2 := matchColumn("owner-id", cols)
	assert.True(t, ok1)
	assert.True(t, ok2)
	assert.Equal(t, first, second)
}

func TestMatchColumnMultipleMatchesPicksSmallest(t *testing.T) {
	cols := []Column{{Name: "Zeta"}, {Name: "alpha"}}
	name, ok := matchColumn("zeta", []Column{cols[0]})
	assert.True(t, ok)
	assert.Equal(t, "Zeta", name)

	name, ok = matchColumn("X_Field", []Column{{Name: "x_field"}, {Name: "X_FIELD"}})
	assert.True(t, ok)
	assert.Equal(t, "X_FIELD", name, "lexicographically smallest among case-insensitive matches")
}

func TestCoerceRowDropsUnmatchedAndFillsMatched(t *testing.T) {
	target := Schema{Columns: []Column{
		{Name: "owner_id", Type: ColumnType{Base: BaseBigint}},
		{Name: "name", Type: ColumnType{Base: BaseText}},
	}}
	source := map[string]any{
		"owner-id":  "12345",
		"name":      "acme",
		"irrelevant": "dropped",
	}
	row := CoerceRow(discardLogger(), source, target)
	assert.Equal(t, int64(12345), row["owner_id"])
	assert.Equal(t, "acme", row["name"])
	_, present := row["irrelevant"]
	assert.False(t, present)
}

func TestCoerceRowFailureYieldsNull(t *testing.T) {
	target := Schema{Columns: []Column{{Name: "count", Type: ColumnType{Base: BaseBigint}}}}
	row := CoerceRow(discardLogger(), map[string]any{"count": "not-a-number"}, target)
	assert.Nil(t, row["count"])
}

func TestCoerceValueBooleanToInteger(t *testing.T) {
	v, err := coerceValue(true, ColumnType{Base: BaseBigint})
	assert.NoError(t, err)
	assert.Equal(t, int64(1), v)
}

func TestCoerceValueJSONBSerializesObjects(t *testing.T) {
	v, err := coerceValue(map[string]any{"a": float64(1)}, ColumnType{Base: BaseJSONB})
	assert.NoError(t, err)
	assert.Equal(t, `{"a":1}`, v)
}

func TestCoerceValueTimestamp(t *testing.T) {
	v, err := coerceValue("2024-01-02T15:04:05Z", ColumnType{Base: BaseTimestamp})
	assert.NoError(t, err)
	assert.NotNil(t, v)

	_, err = coerceValue("not-a-date", ColumnType{Base: BaseTimestamp})
	assert.Error(t, err)
}
