// Package storage implements the ensure_table/insert_row/query_rows
// persistence contract that processors and table-input resolution consume,
// plus the content-generation-tables registry that every created table is
// recorded against.
package storage

import (
	"context"
	"regexp"

	"github.com/crumplecup/botticelli/internal/errs"
	"github.com/crumplecup/botticelli/internal/schema"
)

// Row is one returned record, keyed by column name.
type Row map[string]any

// Query describes a read against a single table.
type Query struct {
	Table      string
	Projection []string // empty = all columns
	Where      map[string]any
	Limit      int
	Offset     int
	OrderBy    string // column name; a leading "-" means descending
}

// Store is the storage capability the rest of botticelli depends on:
// idempotent table creation from an inferred or fixed schema, best-effort
// coerced inserts, and filtered/sorted reads.
type Store interface {
	// EnsureTable idempotently creates table with the given columns if it
	// does not already exist. Existing tables are left unmodified even if
	// cols differs (schema migration across runs is out of scope).
	EnsureTable(ctx context.Context, table string, cols []schema.Column) error

	// InsertRow inserts one row of already-coerced values.
	InsertRow(ctx context.Context, table string, values map[string]any) error

	// QueryRows reads rows matching q.
	QueryRows(ctx context.Context, q Query) ([]Row, error)

	// Close releases any underlying resources.
	Close() error
}

var identifierRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// ValidateIdentifier rejects table/column names that are not safe to
// interpolate into DDL (every driver here quotes values, never identifiers,
// through a parameterized query; identifiers themselves are validated here
// instead).
func ValidateIdentifier(name string) error {
	if !identifierRe.MatchString(name) {
		return errs.Newf(errs.Storage, "invalid identifier %q", name)
	}
	return nil
}
