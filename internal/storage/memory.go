package storage

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/crumplecup/botticelli/internal/errs"
	"github.com/crumplecup/botticelli/internal/schema"
)

// MemoryStore is an in-memory Store backing unit tests and single-process
// demo mode. Tables and rows live for the process lifetime only.
type MemoryStore struct {
	mu     sync.RWMutex
	tables map[string][]schema.Column
	rows   map[string][]Row
}

// NewMemoryStore builds an empty MemoryStore with the registry table
// already created.
func NewMemoryStore() *MemoryStore {
	s := &MemoryStore{tables: make(map[string][]schema.Column), rows: make(map[string][]Row)}
	_ = EnsureRegistry(context.Background(), s)
	return s
}

func (s *MemoryStore) EnsureTable(_ context.Context, table string, cols []schema.Column) error {
	if err := ValidateIdentifier(table); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.tables[table]; exists {
		return nil
	}
	s.tables[table] = cols
	s.rows[table] = nil
	return nil
}

func (s *MemoryStore) InsertRow(_ context.Context, table string, values map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.tables[table]; !exists {
		return errs.Newf(errs.Storage, "insert into unknown table %q", table)
	}
	row := make(Row, len(values))
	for k, v := range values {
		row[k] = v
	}
	s.rows[table] = append(s.rows[table], row)
	return nil
}

func (s *MemoryStore) QueryRows(_ context.Context, q Query) ([]Row, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, exists := s.tables[q.Table]; !exists {
		return nil, errs.Newf(errs.Storage, "query against unknown table %q", q.Table)
	}

	var out []Row
	for _, row := range s.rows[q.Table] {
		if rowMatches(row, q.Where) {
			out = append(out, projectRow(row, q.Projection))
		}
	}

	if q.OrderBy != "" {
		col, desc := orderColumn(q.OrderBy)
		sort.SliceStable(out, func(i, j int) bool {
			less := compareAny(out[i][col], out[j][col])
			if desc {
				return !less && out[i][col] != out[j][col]
			}
			return less
		})
	}
	if q.Offset > 0 {
		if q.Offset >= len(out) {
			out = nil
		} else {
			out = out[q.Offset:]
		}
	}
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

func (s *MemoryStore) Close() error { return nil }

func orderColumn(orderBy string) (col string, desc bool) {
	if strings.HasPrefix(orderBy, "-") {
		return orderBy[1:], true
	}
	return orderBy, false
}

func rowMatches(row Row, where map[string]any) bool {
	for k, v := range where {
		if row[k] != v {
			return false
		}
	}
	return true
}

func projectRow(row Row, projection []string) Row {
	if len(projection) == 0 {
		out := make(Row, len(row))
		for k, v := range row {
			out[k] = v
		}
		return out
	}
	out := make(Row, len(projection))
	for _, col := range projection {
		out[col] = row[col]
	}
	return out
}

// compareAny provides a best-effort "less than" across the dynamic types
// QueryRows may hold (string, int64, float64, bool, time.Time via Stringer
// fallback); mismatched/uncomparable types are treated as equal (less=false).
func compareAny(a, b any) bool {
	switch av := a.(type) {
	case string:
		bv, ok := b.(string)
		return ok && av < bv
	case int64:
		bv, ok := b.(int64)
		return ok && av < bv
	case float64:
		bv, ok := b.(float64)
		return ok && av < bv
	case bool:
		return !av && b == true
	default:
		return false
	}
}
