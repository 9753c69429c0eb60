package summary

import (
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/libertypay/cardrecon/internal/domain"
)

func report() *domain.RunMetrics {
	return &domain.RunMetrics{
		RunDate:         "2024-03-10",
		TotalRevenue:    domain.Amount(decimal.RequireFromString("130.5")),
		TotalSettlement: domain.Amount(decimal.NewFromInt(500)),
		Channels: map[string]domain.ChannelMetrics{
			"NIBSS":       {Revenue: domain.Amount(decimal.NewFromInt(100)), TransactionCount: 3, SettledCount: 2},
			"INTERSWITCH": {Revenue: domain.Amount(decimal.RequireFromString("30.5")), TransactionCount: 1, SettledCount: 1},
		},
	}
}

func TestSummarizeDeterministic(t *testing.T) {
	tmpl := NewTemplate()
	a := tmpl.Summarize(report())
	b := tmpl.Summarize(report())
	if a != b {
		t.Errorf("summaries differ:\n%s\n%s", a, b)
	}

	// Channels appear in sorted name order regardless of map iteration.
	isw := strings.Index(a, "INTERSWITCH")
	nibss := strings.Index(a, "NIBSS:")
	if isw < 0 || nibss < 0 || isw > nibss {
		t.Errorf("channel ordering wrong:\n%s", a)
	}
	if !strings.Contains(a, "Total revenue 130.50") {
		t.Errorf("missing rounded total:\n%s", a)
	}
}

func TestSummarizeDataQualityLine(t *testing.T) {
	tmpl := NewTemplate()

	clean := tmpl.Summarize(report())
	if strings.Contains(clean, "Data quality") {
		t.Errorf("clean run must omit the data quality line:\n%s", clean)
	}

	dirty := report()
	dirty.Diagnostics.DroppedRows = 2
	out := tmpl.Summarize(dirty)
	if !strings.Contains(out, "2 rows dropped") {
		t.Errorf("missing data quality line:\n%s", out)
	}
}
