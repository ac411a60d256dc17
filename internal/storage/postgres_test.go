package storage

import (
	"context"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"github.com/crumplecup/botticelli/internal/schema"
)

func TestPostgresStoreEnsureTableIssuesCreateIfNotExists(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS "posts"`).WillReturnResult(sqlmock.NewResult(0, 0))

	s := NewPostgresStore(db)
	cols := []schema.Column{{Name: "title", Type: schema.ColumnType{Base: schema.BaseText}}}
	require.NoError(t, s.EnsureTable(context.Background(), "posts", cols))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStoreInsertRowParameterizes(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(`INSERT INTO "posts"`).WithArgs("hello").WillReturnResult(sqlmock.NewResult(1, 1))

	s := NewPostgresStore(db)
	require.NoError(t, s.InsertRow(context.Background(), "posts", map[string]any{"title": "hello"}))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStoreQueryRowsScansColumns(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	rows := sqlmock.NewRows([]string{"title"}).AddRow("hello")
	mock.ExpectQuery(`SELECT \* FROM "posts" WHERE "title" = \$1`).WithArgs("hello").WillReturnRows(rows)

	s := NewPostgresStore(db)
	got, err := s.QueryRows(context.Background(), Query{Table: "posts", Where: map[string]any{"title": "hello"}})
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, "hello", got[0]["title"])
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStoreRejectsUnsafeIdentifiers(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	s := NewPostgresStore(db)
	require.Error(t, s.EnsureTable(context.Background(), "bad name", nil))
}
