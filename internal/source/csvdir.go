package source

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// CSVDir serves tables from one CSV file per table name in a directory, and
// writes result tables back as CSV. It is the default backend for the
// server binary; tests and other deployments supply their own Source.
type CSVDir struct {
	Dir string
}

// NewCSVDir returns a CSV-directory backed Source/Sink rooted at dir.
func NewCSVDir(dir string) *CSVDir {
	return &CSVDir{Dir: dir}
}

// FetchTable reads <dir>/<name>.csv. The first record is the header; field
// counts may vary per record, as spreadsheet CSV exports often ragged-edge
// trailing blanks.
func (c *CSVDir) FetchTable(ctx context.Context, name string) (*Table, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	path := filepath.Join(c.Dir, fileName(name))
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("read %s: empty file, header required", path)
	}

	return &Table{
		Name:   name,
		Header: records[0],
		Rows:   records[1:],
	}, nil
}

// WriteTable writes the table to <dir>/out/<run_date>/<name>.csv,
// replacing any previous export for that run date.
func (c *CSVDir) WriteTable(ctx context.Context, runDate string, t *Table) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	outDir := filepath.Join(c.Dir, "out", runDate)
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return fmt.Errorf("mkdir %s: %w", outDir, err)
	}

	path := filepath.Join(outDir, fileName(t.Name))
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(t.Header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for i, row := range t.Rows {
		if err := w.Write(row); err != nil {
			return fmt.Errorf("write row %d: %w", i, err)
		}
	}
	w.Flush()
	return w.Error()
}

// fileName flattens a sheet-style table name ("BANK STMT UNITY") into a
// filesystem-safe CSV name.
func fileName(table string) string {
	s := strings.ToLower(strings.TrimSpace(table))
	s = strings.ReplaceAll(s, " ", "_")
	s = strings.ReplaceAll(s, "/", "_")
	return s + ".csv"
}
