package repository

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/libertypay/cardrecon/internal/domain"
)

// MetricsRepo persists RunMetrics as canonical JSON keyed by run date.
// Saving a run date twice replaces the previous report: runs are
// idempotent, so the latest write is by definition the same report or a
// recomputation over changed source data.
type MetricsRepo struct {
	db *sql.DB
}

func NewMetricsRepo(db *sql.DB) *MetricsRepo {
	return &MetricsRepo{db: db}
}

func (r *MetricsRepo) Save(runID string, m *domain.RunMetrics) error {
	payload, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("marshal metrics: %w", err)
	}

	_, err = r.db.Exec(
		`INSERT INTO run_metrics (run_date, run_id, payload, created_at)
		 VALUES (?,?,?,?)
		 ON CONFLICT(run_date) DO UPDATE SET run_id=excluded.run_id,
		   payload=excluded.payload, created_at=excluded.created_at`,
		m.RunDate, runID, string(payload), time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("save metrics %s: %w", m.RunDate, err)
	}
	return nil
}

// GetByRunDate returns the stored report for one run date, or nil when no
// run has been persisted for it.
func (r *MetricsRepo) GetByRunDate(runDate string) (*domain.RunMetrics, error) {
	var payload string
	err := r.db.QueryRow(
		"SELECT payload FROM run_metrics WHERE run_date = ?", runDate,
	).Scan(&payload)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get metrics %s: %w", runDate, err)
	}
	return unmarshalMetrics(payload)
}

// Latest returns the report with the most recent run date, or nil when the
// store is empty.
func (r *MetricsRepo) Latest() (*domain.RunMetrics, error) {
	var payload string
	err := r.db.QueryRow(
		"SELECT payload FROM run_metrics ORDER BY run_date DESC LIMIT 1",
	).Scan(&payload)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get latest metrics: %w", err)
	}
	return unmarshalMetrics(payload)
}

func unmarshalMetrics(payload string) (*domain.RunMetrics, error) {
	var m domain.RunMetrics
	if err := json.Unmarshal([]byte(payload), &m); err != nil {
		return nil, fmt.Errorf("unmarshal metrics: %w", err)
	}
	return &m, nil
}
