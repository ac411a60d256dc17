package schema

import (
	"sort"
	"strings"
)

func normalizeFieldName(s string) string {
	return strings.ToLower(strings.ReplaceAll(s, "-", "_"))
}

// matchColumn resolves a source field name against a target schema using
// three tiers, stopping at the first tier with any hit: exact equality,
// case-insensitive equality, then case-insensitive with "-"/"_" normalized.
// Multiple matches within a tier resolve to the lexicographically smallest
// column name.
func matchColumn(field string, columns []Column) (string, bool) {
	if name, ok := bestOf(field, columns, func(s string) string { return s }); ok {
		return name, true
	}
	if name, ok := bestOf(field, columns, strings.ToLower); ok {
		return name, true
	}
	if name, ok := bestOf(field, columns, normalizeFieldName); ok {
		return name, true
	}
	return "", false
}

func bestOf(field string, columns []Column, key func(string) string) (string, bool) {
	want := key(field)
	var candidates []string
	for _, c := range columns {
		if key(c.Name) == want {
			candidates = append(candidates, c.Name)
		}
	}
	if len(candidates) == 0 {
		return "", false
	}
	sort.Strings(candidates)
	return candidates[0], true
}
