package processor

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/crumplecup/botticelli/internal/errs"
	"github.com/crumplecup/botticelli/internal/resource"
	"github.com/crumplecup/botticelli/internal/schema"
	"github.com/crumplecup/botticelli/internal/storage"
)

// GuildProcessor routes guild-shaped content (an act about a Discord-style
// guild, or a response carrying an owner_id field) into a fixed schema
// instead of an inferred one.
type GuildProcessor struct {
	Store         storage.Store
	Logger        *slog.Logger
	NarrativeFile string
	Clock         Clock
}

func NewGuildProcessor(store storage.Store, logger *slog.Logger, narrativeFile string) *GuildProcessor {
	return &GuildProcessor{Store: store, Logger: logger, NarrativeFile: narrativeFile, Clock: time.Now}
}

func (p *GuildProcessor) Name() string { return "guild" }

func (p *GuildProcessor) ShouldProcess(_ context.Context, act resource.ActExecution) bool {
	if strings.Contains(strings.ToLower(act.ActName), "guild") {
		return true
	}
	rows, err := decodeRows(act.Response)
	if err != nil {
		return false
	}
	for _, row := range rows {
		if _, ok := row["owner_id"]; ok {
			return true
		}
	}
	return false
}

func (p *GuildProcessor) Process(ctx context.Context, act resource.ActExecution) (Result, error) {
	return processFixedSchema(ctx, act, p.Store, p.Logger, p.NarrativeFile, p.Clock, "guilds", guildSchema())
}

func guildSchema() []schema.Column {
	return []schema.Column{
		{Name: "id", Type: schema.ColumnType{Base: schema.BaseBigint}},
		{Name: "name", Type: schema.ColumnType{Base: schema.BaseText}},
		{Name: "owner_id", Type: schema.ColumnType{Base: schema.BaseBigint}},
		{Name: "member_count", Type: schema.ColumnType{Base: schema.BaseBigint}, Nullable: true},
	}
}

// PersonaProcessor routes persona/character content into a fixed schema
// matching a content-template table.
type PersonaProcessor struct {
	Store         storage.Store
	Logger        *slog.Logger
	NarrativeFile string
	Clock         Clock
}

func NewPersonaProcessor(store storage.Store, logger *slog.Logger, narrativeFile string) *PersonaProcessor {
	return &PersonaProcessor{Store: store, Logger: logger, NarrativeFile: narrativeFile, Clock: time.Now}
}

func (p *PersonaProcessor) Name() string { return "persona" }

func (p *PersonaProcessor) ShouldProcess(_ context.Context, act resource.ActExecution) bool {
	name := strings.ToLower(act.ActName)
	return strings.Contains(name, "persona") || strings.Contains(name, "character")
}

func (p *PersonaProcessor) Process(ctx context.Context, act resource.ActExecution) (Result, error) {
	return processFixedSchema(ctx, act, p.Store, p.Logger, p.NarrativeFile, p.Clock, "personas", personaSchema())
}

func personaSchema() []schema.Column {
	return []schema.Column{
		{Name: "name", Type: schema.ColumnType{Base: schema.BaseText}},
		{Name: "description", Type: schema.ColumnType{Base: schema.BaseText}, Nullable: true},
		{Name: "traits", Type: schema.ColumnType{Base: schema.BaseJSONB}, Nullable: true},
		{Name: "avatar_url", Type: schema.ColumnType{Base: schema.BaseText}, Nullable: true},
	}
}

// processFixedSchema is the pipeline both domain processors share with the
// generic content-generation processor: extract, decode, coerce, insert —
// but against a fixed schema and table name instead of an inferred one.
func processFixedSchema(ctx context.Context, act resource.ActExecution, store storage.Store, logger *slog.Logger, narrativeFile string, clock Clock, table string, cols []schema.Column) (Result, error) {
	rows, err := decodeRows(act.Response)
	if err != nil {
		return Result{}, errs.Wrap(errs.Parse, err, "decode payload for "+table)
	}
	if len(rows) == 0 {
		return Result{}, nil
	}

	now := clock()
	s := schema.Schema{Columns: cols}
	if err := storage.RecordTable(ctx, store, table, storage.TemplateSourceTemplate, narrativeFile, "", cols, now); err != nil {
		return Result{}, errs.Wrap(errs.Storage, err, "ensure table "+table)
	}

	inserted := 0
	for _, row := range rows {
		coerced := schema.CoerceRow(logger, row, s)
		if err := store.InsertRow(ctx, table, coerced); err != nil {
			return Result{Table: table, RowsInserted: inserted}, errs.Wrap(errs.Storage, err, "insert row into "+table)
		}
		inserted++
	}
	return Result{Table: table, RowsInserted: inserted}, nil
}
