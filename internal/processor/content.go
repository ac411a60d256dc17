package processor

import (
	"context"
	"encoding/json"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/crumplecup/botticelli/internal/errs"
	"github.com/crumplecup/botticelli/internal/extract"
	"github.com/crumplecup/botticelli/internal/resource"
	"github.com/crumplecup/botticelli/internal/schema"
	"github.com/crumplecup/botticelli/internal/storage"
)

// Clock abstracts time.Now for deterministic tests, matching the pattern
// used by internal/tier.Limiter and internal/backoff.
type Clock func() time.Time

var tableNameRe = regexp.MustCompile(`[^a-z0-9_]+`)

// tableNameFor derives a content table name from an act name: lowercased,
// non-alphanumerics collapsed to underscores, prefixed so it never collides
// with the fixed registry table or a domain processor's table.
func tableNameFor(actName string) string {
	n := tableNameRe.ReplaceAllString(strings.ToLower(actName), "_")
	n = strings.Trim(n, "_")
	if n == "" {
		n = "untitled"
	}
	return "content_" + n
}

// ContentGenerationProcessor is the built-in processor: it extracts a JSON
// payload from the act's response, infers (or reuses) a table schema, and
// inserts one row per decoded object.
type ContentGenerationProcessor struct {
	Store         storage.Store
	Logger        *slog.Logger
	NarrativeFile string
	Clock         Clock
}

func NewContentGenerationProcessor(store storage.Store, logger *slog.Logger, narrativeFile string) *ContentGenerationProcessor {
	return &ContentGenerationProcessor{Store: store, Logger: logger, NarrativeFile: narrativeFile, Clock: time.Now}
}

func (p *ContentGenerationProcessor) Name() string { return "content_generation" }

// ShouldProcess accepts any act whose response contains an extractable JSON
// payload.
func (p *ContentGenerationProcessor) ShouldProcess(_ context.Context, act resource.ActExecution) bool {
	_, err := extract.JSON(act.Response)
	return err == nil
}

func (p *ContentGenerationProcessor) Process(ctx context.Context, act resource.ActExecution) (Result, error) {
	rows, err := decodeRows(act.Response)
	if err != nil {
		return Result{}, errs.Wrap(errs.Parse, err, "decode content generation payload")
	}
	if len(rows) == 0 {
		return Result{}, nil
	}

	s := schema.InferArray(rows)
	table := tableNameFor(act.ActName)
	now := p.Clock()

	if err := storage.RecordTable(ctx, p.Store, table, storage.TemplateSourceInferred, p.NarrativeFile, "", s.Columns, now); err != nil {
		return Result{}, errs.Wrap(errs.Storage, err, "ensure content table "+table)
	}

	inserted := 0
	for _, row := range rows {
		coerced := schema.CoerceRow(p.Logger, row, s)
		coerced["generated_at"] = now
		coerced["source_narrative"] = p.NarrativeFile
		coerced["source_act"] = act.ActName
		coerced["generation_model"] = act.Model
		if err := p.Store.InsertRow(ctx, table, coerced); err != nil {
			return Result{Table: table, RowsInserted: inserted}, errs.Wrap(errs.Storage, err, "insert row into "+table)
		}
		inserted++
	}
	return Result{Table: table, RowsInserted: inserted}, nil
}

// decodeRows extracts the JSON payload and normalizes it to a slice of
// objects: a top-level object becomes a single-element slice, a top-level
// array of objects passes through unchanged.
func decodeRows(response string) ([]map[string]any, error) {
	body, err := extract.JSON(response)
	if err != nil {
		return nil, err
	}
	var asArray []map[string]any
	if err := json.Unmarshal([]byte(body), &asArray); err == nil {
		return asArray, nil
	}
	var asObject map[string]any
	if err := json.Unmarshal([]byte(body), &asObject); err == nil {
		return []map[string]any{asObject}, nil
	}
	return nil, errs.Newf(errs.Parse, "extracted payload is neither a JSON object nor an array of objects")
}
