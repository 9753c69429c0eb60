package repository

import (
	"context"
	"database/sql"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/libertypay/cardrecon/internal/domain"
	"github.com/libertypay/cardrecon/internal/source"
)

func testDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := InitDB(":memory:")
	if err != nil {
		t.Fatalf("init db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func sampleMetrics(runDate string) *domain.RunMetrics {
	return &domain.RunMetrics{
		RunDate:         runDate,
		TotalRevenue:    domain.Amount(decimal.RequireFromString("130.55")),
		TotalSettlement: domain.Amount(decimal.NewFromInt(500)),
		Channels: map[string]domain.ChannelMetrics{
			string(domain.ChannelNIBSSUnity): {
				Revenue:          domain.Amount(decimal.RequireFromString("130.55")),
				Settlement:       domain.Amount(decimal.NewFromInt(500)),
				TransactionCount: 3,
				SettledCount:     2,
			},
		},
	}
}

func TestMetricsRoundTrip(t *testing.T) {
	repo := NewMetricsRepo(testDB(t))

	if err := repo.Save("run-1", sampleMetrics("2024-03-10")); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, err := repo.GetByRunDate("2024-03-10")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got == nil {
		t.Fatal("expected stored report")
	}
	if got.RunDate != "2024-03-10" {
		t.Errorf("run_date = %s", got.RunDate)
	}
	if !got.TotalRevenue.Equal(decimal.RequireFromString("130.55")) {
		t.Errorf("total revenue = %s", got.TotalRevenue)
	}
	cm, ok := got.Channels[string(domain.ChannelNIBSSUnity)]
	if !ok {
		t.Fatal("missing channel")
	}
	if cm.TransactionCount != 3 || cm.SettledCount != 2 {
		t.Errorf("counts = %d/%d", cm.TransactionCount, cm.SettledCount)
	}
}

func TestMetricsMissingRunDateIsNil(t *testing.T) {
	repo := NewMetricsRepo(testDB(t))

	got, err := repo.GetByRunDate("2030-01-01")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got != nil {
		t.Errorf("expected nil, got %+v", got)
	}
}

func TestMetricsSaveReplacesExistingRunDate(t *testing.T) {
	repo := NewMetricsRepo(testDB(t))

	first := sampleMetrics("2024-03-10")
	if err := repo.Save("run-1", first); err != nil {
		t.Fatalf("save: %v", err)
	}

	second := sampleMetrics("2024-03-10")
	second.TotalSettlement = domain.Amount(decimal.NewFromInt(999))
	if err := repo.Save("run-2", second); err != nil {
		t.Fatalf("re-save: %v", err)
	}

	got, err := repo.GetByRunDate("2024-03-10")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !got.TotalSettlement.Equal(decimal.NewFromInt(999)) {
		t.Errorf("total settlement = %s, want 999", got.TotalSettlement)
	}
}

func TestMetricsLatest(t *testing.T) {
	repo := NewMetricsRepo(testDB(t))

	empty, err := repo.Latest()
	if err != nil {
		t.Fatalf("latest on empty store: %v", err)
	}
	if empty != nil {
		t.Fatal("expected nil on empty store")
	}

	for _, d := range []string{"2024-03-09", "2024-03-11", "2024-03-10"} {
		if err := repo.Save("run-"+d, sampleMetrics(d)); err != nil {
			t.Fatalf("save %s: %v", d, err)
		}
	}

	got, err := repo.Latest()
	if err != nil {
		t.Fatalf("latest: %v", err)
	}
	if got.RunDate != "2024-03-11" {
		t.Errorf("latest run_date = %s, want 2024-03-11", got.RunDate)
	}
}

func TestAuditTableRoundTrip(t *testing.T) {
	repo := NewAuditRepo(testDB(t))
	ctx := context.Background()

	in := &source.Table{
		Name:   "orphan_settlements",
		Header: []string{"run_date", "channel", "retrieval_reference_nr", "tran_amount_req"},
		Rows: [][]string{
			{"2024-03-10", "NIBSS", "GHOST1", "500.00"},
			{"2024-03-10", "NIBSS", "GHOST2", "600.00"},
		},
	}
	if err := repo.WriteTable(ctx, "2024-03-10", in); err != nil {
		t.Fatalf("write: %v", err)
	}

	out, err := repo.ReadTable("2024-03-10", in.Name, in.Header)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(out.Rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(out.Rows))
	}
	for i, row := range in.Rows {
		for j, cell := range row {
			if out.Rows[i][j] != cell {
				t.Errorf("row %d col %d = %q, want %q", i, j, out.Rows[i][j], cell)
			}
		}
	}
}

func TestAuditWriteReplacesPriorExport(t *testing.T) {
	repo := NewAuditRepo(testDB(t))
	ctx := context.Background()

	header := []string{"run_date", "reference_number"}
	if err := repo.WriteTable(ctx, "2024-03-10", &source.Table{
		Name:   "nibss_reconciliation",
		Header: header,
		Rows:   [][]string{{"2024-03-10", "OLD1"}, {"2024-03-10", "OLD2"}, {"2024-03-10", "OLD3"}},
	}); err != nil {
		t.Fatalf("first write: %v", err)
	}

	if err := repo.WriteTable(ctx, "2024-03-10", &source.Table{
		Name:   "nibss_reconciliation",
		Header: header,
		Rows:   [][]string{{"2024-03-10", "NEW1"}},
	}); err != nil {
		t.Fatalf("second write: %v", err)
	}

	out, err := repo.ReadTable("2024-03-10", "nibss_reconciliation", header)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(out.Rows) != 1 || out.Rows[0][1] != "NEW1" {
		t.Errorf("rows = %v, want single NEW1 row", out.Rows)
	}
}

func TestSaveSummaryUpserts(t *testing.T) {
	db := testDB(t)
	repo := NewAuditRepo(db)

	if err := repo.SaveSummary("2024-03-10", "first"); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := repo.SaveSummary("2024-03-10", "second"); err != nil {
		t.Fatalf("re-save: %v", err)
	}

	var summary string
	if err := db.QueryRow(
		"SELECT summary FROM run_summaries WHERE run_date = ?", "2024-03-10",
	).Scan(&summary); err != nil {
		t.Fatalf("query: %v", err)
	}
	if summary != "second" {
		t.Errorf("summary = %q, want %q", summary, "second")
	}
}
