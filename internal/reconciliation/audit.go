package reconciliation

import (
	"time"

	"github.com/libertypay/cardrecon/internal/domain"
	"github.com/libertypay/cardrecon/internal/source"
)

// Audit table names, as written to the sink collaborator.
const (
	TableOrphanSettlements = "orphan_settlements"
	TableBankDiscrepancies = "bank_discrepancies"
	TableNIBSSRecon        = "nibss_reconciliation"
	TableISWRecon          = "isw_reconciliation"
	TableParallexRecon     = "parallex_reconciliation"
	TableBankReversals     = "bank_reversals"
	TableDailySweep        = "daily_sweep"
)

type channelOrphans struct {
	channel domain.Channel
	records []domain.SettlementRecord
}

// buildAuditTables assembles the exportable audit tables for one run:
// orphan settlements (channel-labeled), bank discrepancies, one
// reconciliation table per matched channel (its unsettled claims and
// chargebacks), and the reversal/sweep statement extracts. Every table
// carries run_date as its first column so appends to shared tabular
// storage stay attributable.
func buildAuditTables(runDate time.Time, channels map[domain.Channel][]domain.ClassifiedTransaction, orphans []channelOrphans, discrepancies []domain.BankDiscrepancy, bankUnity, bankParallex []domain.BankStatementEntry) []*source.Table {
	rd := runDate.Format(domain.DateOnly)

	orphanTable := &source.Table{
		Name:   TableOrphanSettlements,
		Header: []string{"run_date", "channel", "retrieval_reference_nr", "merchant_id", "stan", "terminal_id", "pan", "tran_amount_req", "local_date_time", "reversed"},
	}
	for _, co := range orphans {
		for _, rec := range co.records {
			orphanTable.Append([]string{
				rd, string(co.channel), rec.Reference, rec.MerchantID, rec.STAN,
				rec.TerminalID, rec.PAN, rec.Amount.StringFixed(2),
				rec.SettledAt.Format(domain.DateOnly), boolCell(rec.Reversed),
			})
		}
	}

	discTable := &source.Table{
		Name:   TableBankDiscrepancies,
		Header: []string{"run_date", "channel", "date", "expected", "actual", "delta"},
	}
	for _, d := range discrepancies {
		discTable.Append([]string{
			rd, string(d.Channel), d.Date.Format(domain.DateOnly),
			d.Expected.StringFixed(2), d.Actual.StringFixed(2), d.Delta.StringFixed(2),
		})
	}

	tables := []*source.Table{
		orphanTable,
		discTable,
		reconTable(TableNIBSSRecon, rd, channels[domain.ChannelNIBSSUnity]),
		reconTable(TableISWRecon, rd, channels[domain.ChannelInterswitchUnity]),
		reconTable(TableParallexRecon, rd, channels[domain.ChannelNIBSSParallex]),
		statementTable(TableBankReversals, rd, bankUnity, bankParallex, domain.NarrationReversal),
		statementTable(TableDailySweep, rd, bankUnity, bankParallex, domain.NarrationDailySweep),
	}
	return tables
}

// reconTable lists a channel's unsettled claims and chargebacks, the two
// discrepancy classes an operator chases per run.
func reconTable(name, runDate string, classified []domain.ClassifiedTransaction) *source.Table {
	t := &source.Table{
		Name:   name,
		Header: []string{"run_date", "classification", "date_created", "reference_number", "stan", "amount", "merchant_id", "terminal_id", "pan_number"},
	}
	for _, ct := range classified {
		if ct.Class == domain.ClassSettled {
			continue
		}
		t.Append([]string{
			runDate, string(ct.Class), ct.CreatedAt.Format(domain.DateOnly),
			ct.Reference, ct.STAN, ct.Amount.StringFixed(2),
			ct.MerchantID, ct.TerminalID, ct.PAN,
		})
	}
	return t
}

func statementTable(name, runDate string, unity, parallex []domain.BankStatementEntry, kind domain.NarrationKind) *source.Table {
	t := &source.Table{
		Name:   name,
		Header: []string{"run_date", "bank", "value_date", "narration", "reference", "credit", "debit"},
	}
	appendEntries := func(bank string, entries []domain.BankStatementEntry) {
		for _, e := range entries {
			if e.Kind != kind {
				continue
			}
			t.Append([]string{
				runDate, bank, e.ValueDate.Format(domain.DateOnly),
				e.Narration, e.Reference, e.Credit.StringFixed(2), e.Debit.StringFixed(2),
			})
		}
	}
	appendEntries("unity", unity)
	appendEntries("parallex", parallex)
	return t
}

func boolCell(b bool) string {
	if b {
		return "Y"
	}
	return "N"
}
