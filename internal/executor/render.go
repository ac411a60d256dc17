package executor

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"github.com/crumplecup/botticelli/internal/resource"
	"github.com/crumplecup/botticelli/internal/storage"
)

// resolveTableInput queries store for a Table input's rows and renders them
// into a literal Text input per the input's Format, so the executor can
// push a plain-text representation onto conversation history. Live data
// lookup happens here, at execution time, rather than at narrative-load
// time, since table contents change between runs.
func resolveTableInput(ctx context.Context, store storage.Store, t resource.Table) (resource.Input, error) {
	q := storage.Query{
		Table:      t.Name,
		Projection: t.Columns,
		OrderBy:    t.OrderBy,
	}
	if t.Limit != nil {
		q.Limit = *t.Limit
	}
	if t.Offset != nil {
		q.Offset = *t.Offset
	}
	rows, err := store.QueryRows(ctx, q)
	if err != nil {
		return resource.Input{}, err
	}
	if t.Sample != nil && *t.Sample >= 0 && len(rows) > *t.Sample {
		rows = rows[:*t.Sample]
	}

	cols := t.Columns
	if len(cols) == 0 {
		cols = columnsOf(rows)
	}

	var rendered string
	switch t.Format {
	case resource.TableFormatJSON:
		rendered, err = renderJSON(rows, cols)
	case resource.TableFormatCSV:
		rendered, err = renderCSV(rows, cols)
	case resource.TableFormatTOML:
		rendered, err = renderTOML(rows, cols)
	default:
		rendered = renderMarkdown(rows, cols)
	}
	if err != nil {
		return resource.Input{}, err
	}
	return resource.NewTextInput(rendered), nil
}

func columnsOf(rows []storage.Row) []string {
	seen := make(map[string]bool)
	var cols []string
	for _, row := range rows {
		for k := range row {
			if !seen[k] {
				seen[k] = true
				cols = append(cols, k)
			}
		}
	}
	sort.Strings(cols)
	return cols
}

func projectRows(rows []storage.Row, cols []string) []map[string]any {
	out := make([]map[string]any, 0, len(rows))
	for _, row := range rows {
		m := make(map[string]any, len(cols))
		for _, c := range cols {
			m[c] = row[c]
		}
		out = append(out, m)
	}
	return out
}

func renderMarkdown(rows []storage.Row, cols []string) string {
	var b strings.Builder
	b.WriteString("| " + strings.Join(cols, " | ") + " |\n")
	b.WriteString("|" + strings.Repeat(" --- |", len(cols)) + "\n")
	for _, row := range rows {
		cells := make([]string, len(cols))
		for i, c := range cols {
			cells[i] = fmt.Sprintf("%v", row[c])
		}
		b.WriteString("| " + strings.Join(cells, " | ") + " |\n")
	}
	return b.String()
}

func renderJSON(rows []storage.Row, cols []string) (string, error) {
	b, err := json.MarshalIndent(projectRows(rows, cols), "", "  ")
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func renderCSV(rows []storage.Row, cols []string) (string, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(cols); err != nil {
		return "", err
	}
	for _, row := range rows {
		record := make([]string, len(cols))
		for i, c := range cols {
			record[i] = fmt.Sprintf("%v", row[c])
		}
		if err := w.Write(record); err != nil {
			return "", err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func renderTOML(rows []storage.Row, cols []string) (string, error) {
	b, err := toml.Marshal(map[string]any{"rows": projectRows(rows, cols)})
	if err != nil {
		return "", err
	}
	return string(b), nil
}
