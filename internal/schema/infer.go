package schema

// Schema is an ordered set of inferred columns: order reflects the order
// fields were first observed, which keeps generated DDL and test fixtures
// deterministic.
type Schema struct {
	Columns []Column
}

func (s *Schema) indexOf(name string) int {
	for i, c := range s.Columns {
		if c.Name == name {
			return i
		}
	}
	return -1
}

// InferValue maps a single JSON-decoded value to its column type per the
// single-value type map.
func InferValue(v any) ColumnType {
	switch val := v.(type) {
	case nil:
		return ColumnType{Base: BaseText}
	case bool:
		return ColumnType{Base: BaseBoolean}
	case string:
		return ColumnType{Base: BaseText}
	case float64:
		if val == float64(int64(val)) {
			return ColumnType{Base: BaseBigint}
		}
		return ColumnType{Base: BaseDouble}
	case int, int32, int64:
		return ColumnType{Base: BaseBigint}
	case []any:
		return inferArrayValue(val)
	case map[string]any:
		return ColumnType{Base: BaseJSONB}
	default:
		return ColumnType{Base: BaseJSONB}
	}
}

// inferArrayValue types a JSON array: homogeneous primitive elements widen
// to T[]; empty, heterogeneous, or object-containing arrays become JSONB.
func inferArrayValue(arr []any) ColumnType {
	if len(arr) == 0 {
		return ColumnType{Base: BaseJSONB}
	}
	var elemType ColumnType
	for i, el := range arr {
		switch el.(type) {
		case map[string]any, []any:
			return ColumnType{Base: BaseJSONB}
		}
		t := InferValue(el)
		if i == 0 {
			elemType = t
			continue
		}
		if !t.Equal(elemType) {
			merged := ResolveTypeConflict(elemType, t)
			if merged.Base == BaseJSONB {
				return ColumnType{Base: BaseJSONB}
			}
			elemType = merged
		}
	}
	return ColumnType{Base: elemType.Base, Array: true}
}

// ResolveTypeConflict widens A against a newly observed type B per the
// consolidation table: equal types are unchanged; BIGINT widens to DOUBLE
// PRECISION; TEXT absorbs anything; a scalar/array mismatch, or an array
// of X against an array of Y (X != Y) that isn't a BIGINT/DOUBLE pair,
// collapses to JSONB. The relation is commutative.
func ResolveTypeConflict(a, b ColumnType) ColumnType {
	if a.Equal(b) {
		return a
	}
	if a.Array != b.Array {
		return ColumnType{Base: BaseJSONB}
	}
	if (a.Base == BaseBigint && b.Base == BaseDouble) || (a.Base == BaseDouble && b.Base == BaseBigint) {
		return ColumnType{Base: BaseDouble, Array: a.Array}
	}
	if a.Array && b.Array {
		return ColumnType{Base: BaseJSONB}
	}
	if a.Base == BaseText || b.Base == BaseText {
		return ColumnType{Base: BaseText}
	}
	return ColumnType{Base: BaseJSONB}
}

// InferObject consolidates a single JSON object's fields into s, widening
// any existing column per ResolveTypeConflict and marking columns absent
// from obj (but present in s) as nullable.
func InferObject(s *Schema, obj map[string]any) {
	seen := make(map[string]bool, len(obj))
	for name, v := range obj {
		seen[name] = true
		t := InferValue(v)
		nullIfNull := v == nil
		if idx := s.indexOf(name); idx >= 0 {
			col := &s.Columns[idx]
			if !t.Equal(col.Type) {
				col.Type = ResolveTypeConflict(col.Type, t)
			}
			if nullIfNull {
				col.Nullable = true
			}
		} else {
			s.Columns = append(s.Columns, Column{Name: name, Type: t, Nullable: nullIfNull})
		}
	}
	for i := range s.Columns {
		if !seen[s.Columns[i].Name] {
			s.Columns[i].Nullable = true
		}
	}
}

// InferArray builds a Schema from a JSON array of objects, then appends the
// fixed metadata columns, renaming any source field that collides with a
// metadata column name by prefixing it with "content_".
func InferArray(rows []map[string]any) Schema {
	var s Schema
	for i, row := range rows {
		before := len(s.Columns)
		InferObject(&s, row)
		if i > 0 {
			// A column first seen after the first row was absent from
			// every earlier row.
			for j := before; j < len(s.Columns); j++ {
				s.Columns[j].Nullable = true
			}
		}
	}
	for i, col := range s.Columns {
		if isMetadataColumn(col.Name) {
			s.Columns[i].Name = "content_" + col.Name
		}
	}
	for _, name := range MetadataColumns {
		s.Columns = append(s.Columns, Column{Name: name, Type: metadataColumnType(name), Nullable: true})
	}
	return s
}

func metadataColumnType(name string) ColumnType {
	switch name {
	case "tags":
		return ColumnType{Base: BaseText, Array: true}
	case "rating":
		return ColumnType{Base: BaseBigint}
	case "generated_at":
		return ColumnType{Base: BaseTimestamp}
	default:
		return ColumnType{Base: BaseText}
	}
}
