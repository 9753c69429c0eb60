package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/libertypay/cardrecon/internal/source"
)

// AuditRepo stores exported audit tables row by row. It implements
// source.Sink, so the orchestrator's audit output can be written to SQLite
// with the same contract used for any other tabular sink.
type AuditRepo struct {
	db *sql.DB
}

func NewAuditRepo(db *sql.DB) *AuditRepo {
	return &AuditRepo{db: db}
}

// WriteTable replaces the stored rows for (run date, table) with the new
// export. Re-runs therefore leave exactly one copy of each audit table.
func (r *AuditRepo) WriteTable(ctx context.Context, runDate string, t *source.Table) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		"DELETE FROM audit_rows WHERE run_date = ? AND table_name = ?",
		runDate, t.Name,
	); err != nil {
		return fmt.Errorf("clear %s: %w", t.Name, err)
	}

	stmt, err := tx.PrepareContext(ctx,
		"INSERT INTO audit_rows (run_date, table_name, row_index, payload) VALUES (?,?,?,?)",
	)
	if err != nil {
		return fmt.Errorf("prepare: %w", err)
	}
	defer stmt.Close()

	for i, row := range t.Rows {
		payload, err := json.Marshal(rowObject(t.Header, row))
		if err != nil {
			return fmt.Errorf("marshal row %d: %w", i, err)
		}
		if _, err := stmt.ExecContext(ctx, runDate, t.Name, i, string(payload)); err != nil {
			return fmt.Errorf("insert %s row %d: %w", t.Name, i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// ReadTable reconstructs a stored audit table in row order.
func (r *AuditRepo) ReadTable(runDate, name string, header []string) (*source.Table, error) {
	rows, err := r.db.Query(
		"SELECT payload FROM audit_rows WHERE run_date = ? AND table_name = ? ORDER BY row_index",
		runDate, name,
	)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	defer rows.Close()

	t := &source.Table{Name: name, Header: header}
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, err
		}
		obj := make(map[string]string)
		if err := json.Unmarshal([]byte(payload), &obj); err != nil {
			return nil, fmt.Errorf("unmarshal row: %w", err)
		}
		row := make([]string, len(header))
		for i, col := range header {
			row[i] = obj[col]
		}
		t.Append(row)
	}
	return t, rows.Err()
}

// SaveSummary stores the generated free-text summary for a run date.
func (r *AuditRepo) SaveSummary(runDate, summary string) error {
	_, err := r.db.Exec(
		`INSERT INTO run_summaries (run_date, summary, created_at) VALUES (?,?,?)
		 ON CONFLICT(run_date) DO UPDATE SET summary=excluded.summary, created_at=excluded.created_at`,
		runDate, summary, time.Now().UTC().Format(time.RFC3339),
	)
	return err
}

func rowObject(header, row []string) map[string]string {
	obj := make(map[string]string, len(header))
	for i, col := range header {
		if i < len(row) {
			obj[col] = row[i]
		}
	}
	return obj
}
