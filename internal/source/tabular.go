package source

import (
	"context"
	"strings"
)

// Table is an ordered sequence of rows with named columns, as produced by
// any tabular backend (spreadsheet, CSV export, warehouse extract). The
// engine never cares how rows were fetched.
type Table struct {
	Name   string
	Header []string
	Rows   [][]string
}

// ColumnIndex maps header names to positions. Lookups are trimmed and
// case-insensitive because spreadsheet exports are sloppy about both.
func (t *Table) ColumnIndex() map[string]int {
	idx := make(map[string]int, len(t.Header))
	for i, h := range t.Header {
		idx[strings.ToLower(strings.TrimSpace(h))] = i
	}
	return idx
}

// Append adds one row.
func (t *Table) Append(row []string) {
	t.Rows = append(t.Rows, row)
}

// Source fetches named tables from the external tabular collaborator.
type Source interface {
	FetchTable(ctx context.Context, name string) (*Table, error)
}

// Sink receives result tables for export back to tabular storage.
type Sink interface {
	WriteTable(ctx context.Context, runDate string, t *Table) error
}
