// Package schema infers PostgreSQL-style column types from observed JSON
// values, widens them monotonically across a batch of rows, and coerces
// values into a target schema on insert using fuzzy field-name matching.
package schema

// Base is one of the scalar/JSONB column base types. Arrays are represented
// by ColumnType.Array rather than a distinct Base value, so BIGINT and
// BIGINT[] share a Base.
type Base string

const (
	BaseText    Base = "TEXT"
	BaseBigint  Base = "BIGINT"
	BaseDouble  Base = "DOUBLE PRECISION"
	BaseBoolean   Base = "BOOLEAN"
	BaseJSONB     Base = "JSONB"
	BaseTimestamp Base = "TIMESTAMP"
)

// ColumnType is a column's inferred SQL type: a base type, optionally an
// array of that base type.
type ColumnType struct {
	Base  Base
	Array bool
}

func (c ColumnType) String() string {
	if c.Array {
		return string(c.Base) + "[]"
	}
	return string(c.Base)
}

// Equal reports whether two column types are identical.
func (c ColumnType) Equal(o ColumnType) bool {
	return c.Base == o.Base && c.Array == o.Array
}

// Column is one field of an inferred (or fixed) table schema.
type Column struct {
	Name     string
	Type     ColumnType
	Nullable bool
}

// MetadataColumns are appended to every inferred or template table, per the
// narrative-automation persistence convention. If the source object already
// uses one of these names, InferArray renames it with a "content_" prefix
// before adding these.
var MetadataColumns = []string{
	"generated_at",
	"source_narrative",
	"source_act",
	"generation_model",
	"review_status",
	"tags",
	"rating",
}

func isMetadataColumn(name string) bool {
	for _, m := range MetadataColumns {
		if name == m {
			return true
		}
	}
	return false
}
