package storage

import (
	"context"
	"time"

	"github.com/crumplecup/botticelli/internal/schema"
)

// RegistryTable is the fixed name of the content-generation-tables
// registry, created once at Store construction.
const RegistryTable = "content_generation_tables"

// TemplateSource discriminates whether a content table's schema came from a
// fixed template or was inferred from observed JSON.
type TemplateSource string

const (
	TemplateSourceTemplate TemplateSource = "template"
	TemplateSourceInferred TemplateSource = "inferred"
)

// registryColumns defines content_generation_tables' fixed schema.
func registryColumns() []schema.Column {
	return []schema.Column{
		{Name: "table_name", Type: schema.ColumnType{Base: schema.BaseText}},
		{Name: "template_source", Type: schema.ColumnType{Base: schema.BaseText}},
		{Name: "narrative_file", Type: schema.ColumnType{Base: schema.BaseText}, Nullable: true},
		{Name: "description", Type: schema.ColumnType{Base: schema.BaseText}, Nullable: true},
		{Name: "created_at", Type: schema.ColumnType{Base: schema.BaseTimestamp}},
	}
}

// EnsureRegistry idempotently creates the content_generation_tables
// registry against s.
func EnsureRegistry(ctx context.Context, s Store) error {
	return s.EnsureTable(ctx, RegistryTable, registryColumns())
}

// RecordTable ensures table exists per cols and records (or leaves
// untouched, if already present) its registry row. EnsureTable's own
// idempotence covers the "already recorded" case: InsertRow on a duplicate
// table_name is a caller concern resolved by checking QueryRows first.
func RecordTable(ctx context.Context, s Store, table string, source TemplateSource, narrativeFile, description string, cols []schema.Column, now time.Time) error {
	if err := s.EnsureTable(ctx, table, cols); err != nil {
		return err
	}
	existing, err := s.QueryRows(ctx, Query{Table: RegistryTable, Where: map[string]any{"table_name": table}, Limit: 1})
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		return nil
	}
	return s.InsertRow(ctx, RegistryTable, map[string]any{
		"table_name":      table,
		"template_source": string(source),
		"narrative_file":  narrativeFile,
		"description":     description,
		"created_at":      now,
	})
}
