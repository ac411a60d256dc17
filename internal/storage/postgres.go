package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/lib/pq"

	"github.com/crumplecup/botticelli/internal/errs"
	"github.com/crumplecup/botticelli/internal/schema"
)

// PostgresStore implements Store against a PostgreSQL-compatible database
// via database/sql and lib/pq, grounded on the same driver-registration and
// DSN-open pattern used for the actor persistence layer (internal/actor).
type PostgresStore struct {
	db *sql.DB
}

// OpenPostgresStore opens dsn and ensures the content-generation-tables
// registry exists.
func OpenPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, errs.Wrap(errs.Storage, err, "open postgres connection")
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, errs.Wrap(errs.Storage, err, "ping postgres connection")
	}
	s := &PostgresStore{db: db}
	if err := EnsureRegistry(ctx, s); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// NewPostgresStore wraps an already-open *sql.DB (e.g. shared with the
// actor persistence layer) as a Store.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func sqlType(t schema.ColumnType) string {
	base := string(t.Base)
	if t.Array {
		return base + "[]"
	}
	return base
}

func (s *PostgresStore) EnsureTable(ctx context.Context, table string, cols []schema.Column) error {
	if err := ValidateIdentifier(table); err != nil {
		return err
	}
	defs := make([]string, 0, len(cols))
	for _, c := range cols {
		if err := ValidateIdentifier(c.Name); err != nil {
			return err
		}
		nullability := "NOT NULL"
		if c.Nullable {
			nullability = "NULL"
		}
		defs = append(defs, fmt.Sprintf(`"%s" %s %s`, c.Name, sqlType(c.Type), nullability))
	}
	ddl := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS "%s" (id BIGSERIAL PRIMARY KEY, %s)`, table, strings.Join(defs, ", "))
	if _, err := s.db.ExecContext(ctx, ddl); err != nil {
		return errs.Wrap(errs.Storage, err, fmt.Sprintf("ensure_table %q", table))
	}
	return nil
}

func (s *PostgresStore) InsertRow(ctx context.Context, table string, values map[string]any) error {
	if err := ValidateIdentifier(table); err != nil {
		return err
	}
	if len(values) == 0 {
		return errs.Newf(errs.Storage, "insert_row %q: no values", table)
	}
	cols := make([]string, 0, len(values))
	for k := range values {
		cols = append(cols, k)
	}
	placeholders := make([]string, len(cols))
	args := make([]any, len(cols))
	quoted := make([]string, len(cols))
	for i, c := range cols {
		if err := ValidateIdentifier(c); err != nil {
			return err
		}
		quoted[i] = fmt.Sprintf(`"%s"`, c)
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		args[i] = values[c]
	}
	stmt := fmt.Sprintf(`INSERT INTO "%s" (%s) VALUES (%s)`, table, strings.Join(quoted, ", "), strings.Join(placeholders, ", "))
	if _, err := s.db.ExecContext(ctx, stmt, args...); err != nil {
		return errs.Wrap(errs.Storage, err, fmt.Sprintf("insert_row %q", table))
	}
	return nil
}

func (s *PostgresStore) QueryRows(ctx context.Context, q Query) ([]Row, error) {
	if err := ValidateIdentifier(q.Table); err != nil {
		return nil, err
	}
	projection := "*"
	if len(q.Projection) > 0 {
		quoted := make([]string, len(q.Projection))
		for i, c := range q.Projection {
			if err := ValidateIdentifier(c); err != nil {
				return nil, err
			}
			quoted[i] = fmt.Sprintf(`"%s"`, c)
		}
		projection = strings.Join(quoted, ", ")
	}

	stmt := fmt.Sprintf(`SELECT %s FROM "%s"`, projection, q.Table)
	var args []any
	if len(q.Where) > 0 {
		conds := make([]string, 0, len(q.Where))
		keys := make([]string, 0, len(q.Where))
		for k := range q.Where {
			keys = append(keys, k)
		}
		for _, k := range keys {
			if err := ValidateIdentifier(k); err != nil {
				return nil, err
			}
			args = append(args, q.Where[k])
			conds = append(conds, fmt.Sprintf(`"%s" = $%d`, k, len(args)))
		}
		stmt += " WHERE " + strings.Join(conds, " AND ")
	}
	if q.OrderBy != "" {
		col, desc := orderColumn(q.OrderBy)
		if err := ValidateIdentifier(col); err != nil {
			return nil, err
		}
		dir := "ASC"
		if desc {
			dir = "DESC"
		}
		stmt += fmt.Sprintf(` ORDER BY "%s" %s`, col, dir)
	}
	if q.Limit > 0 {
		stmt += fmt.Sprintf(" LIMIT %d", q.Limit)
	}
	if q.Offset > 0 {
		stmt += fmt.Sprintf(" OFFSET %d", q.Offset)
	}

	rows, err := s.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, errs.Wrap(errs.Storage, err, fmt.Sprintf("query_rows %q", q.Table))
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, errs.Wrap(errs.Storage, err, "read result columns")
	}
	var out []Row
	for rows.Next() {
		values := make([]any, len(cols))
		scanTargets := make([]any, len(cols))
		for i := range values {
			scanTargets[i] = &values[i]
		}
		if err := rows.Scan(scanTargets...); err != nil {
			return nil, errs.Wrap(errs.Storage, err, "scan result row")
		}
		row := make(Row, len(cols))
		for i, c := range cols {
			row[c] = values[i]
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}
