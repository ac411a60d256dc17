package schema

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"time"
)

func (s Schema) columnByName(name string) (Column, bool) {
	for _, c := range s.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return Column{}, false
}

// CoerceRow maps a decoded JSON object onto target, fuzzy-matching field
// names and coercing values to each column's type. Unmatched source fields
// are dropped (logged at DEBUG); coercion failures insert NULL (logged at
// WARN). logger must not be nil.
func CoerceRow(logger *slog.Logger, source map[string]any, target Schema) map[string]any {
	out := make(map[string]any, len(target.Columns))

	keys := make([]string, 0, len(source))
	for k := range source {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, field := range keys {
		colName, ok := matchColumn(field, target.Columns)
		if !ok {
			logger.Debug("schema: dropping unmatched field", "field", field)
			continue
		}
		col, _ := target.columnByName(colName)
		val, err := coerceValue(source[field], col.Type)
		if err != nil {
			logger.Warn("schema: coercion failed, inserting NULL",
				"field", field, "column", colName, "target_type", col.Type.String(), "error", err)
			val = nil
		}
		out[colName] = val
	}
	return out
}

func coerceValue(v any, t ColumnType) (any, error) {
	if v == nil {
		return nil, nil
	}
	if t.Array {
		return coerceArray(v, t.Base)
	}
	switch t.Base {
	case BaseText:
		return coerceText(v)
	case BaseBigint:
		return coerceBigint(v)
	case BaseDouble:
		return coerceDouble(v)
	case BaseBoolean:
		return coerceBoolean(v)
	case BaseTimestamp:
		return coerceTimestamp(v)
	case BaseJSONB:
		return coerceJSONB(v)
	default:
		return nil, fmt.Errorf("schema: unknown column base type %q", t.Base)
	}
}

func coerceArray(v any, elemBase Base) (any, error) {
	arr, ok := v.([]any)
	if !ok {
		return coerceJSONB(v)
	}
	out := make([]any, len(arr))
	for i, el := range arr {
		cv, err := coerceValue(el, ColumnType{Base: elemBase})
		if err != nil {
			return nil, fmt.Errorf("array element %d: %w", i, err)
		}
		out[i] = cv
	}
	return out, nil
}

func coerceText(v any) (any, error) {
	switch val := v.(type) {
	case string:
		return val, nil
	case bool:
		return strconv.FormatBool(val), nil
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64), nil
	case map[string]any, []any:
		return coerceJSONB(v)
	default:
		return fmt.Sprint(val), nil
	}
}

func coerceBigint(v any) (any, error) {
	switch val := v.(type) {
	case float64:
		return int64(val), nil
	case string:
		n, err := strconv.ParseInt(val, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("parse %q as bigint: %w", val, err)
		}
		return n, nil
	case bool:
		if val {
			return int64(1), nil
		}
		return int64(0), nil
	default:
		return nil, fmt.Errorf("cannot coerce %T to bigint", v)
	}
}

func coerceDouble(v any) (any, error) {
	switch val := v.(type) {
	case float64:
		return val, nil
	case string:
		f, err := strconv.ParseFloat(val, 64)
		if err != nil {
			return nil, fmt.Errorf("parse %q as double precision: %w", val, err)
		}
		return f, nil
	case bool:
		if val {
			return float64(1), nil
		}
		return float64(0), nil
	default:
		return nil, fmt.Errorf("cannot coerce %T to double precision", v)
	}
}

func coerceBoolean(v any) (any, error) {
	switch val := v.(type) {
	case bool:
		return val, nil
	case float64:
		return val != 0, nil
	case string:
		b, err := strconv.ParseBool(val)
		if err != nil {
			return nil, fmt.Errorf("parse %q as boolean: %w", val, err)
		}
		return b, nil
	default:
		return nil, fmt.Errorf("cannot coerce %T to boolean", v)
	}
}

func coerceTimestamp(v any) (any, error) {
	s, ok := v.(string)
	if !ok {
		return nil, fmt.Errorf("cannot coerce %T to timestamp", v)
	}
	ts, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil, fmt.Errorf("parse %q as ISO-8601 timestamp: %w", s, err)
	}
	return ts, nil
}

func coerceJSONB(v any) (any, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal %T as jsonb: %w", v, err)
	}
	return string(b), nil
}
