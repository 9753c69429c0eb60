package normalize

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/libertypay/cardrecon/internal/domain"
	"github.com/libertypay/cardrecon/internal/source"
)

// Normalizer converts raw heterogeneous rows from the six source tables
// into typed, comparable records. A row whose mandatory fields cannot be
// parsed is dropped, counted in diagnostics and logged; it never aborts
// the run. Output ordering is the insertion order of the source.
type Normalizer struct {
	log *logrus.Logger
}

func New(log *logrus.Logger) *Normalizer {
	return &Normalizer{log: log}
}

// rowReader resolves named columns against one table's header and collects
// per-field parse failures for the current row.
type rowReader struct {
	table string
	idx   map[string]int
	row   []string
	line  int
	err   *domain.NormalizationError
}

func (r *rowReader) raw(col string) string {
	i, ok := r.idx[col]
	if !ok || i >= len(r.row) {
		return ""
	}
	return strings.TrimSpace(r.row[i])
}

func (r *rowReader) fail(field, reason string) {
	if r.err == nil {
		r.err = &domain.NormalizationError{
			Table:  r.table,
			Line:   r.line,
			Field:  field,
			Reason: reason,
		}
	}
}

func (r *rowReader) mandatoryAmount(col string) decimal.Decimal {
	d, err := ParseAmount(r.raw(col))
	if err != nil {
		r.fail(col, err.Error())
	}
	return d
}

func (r *rowReader) optionalAmount(col string) decimal.Decimal {
	d, err := ParseOptionalAmount(r.raw(col))
	if err != nil {
		r.fail(col, err.Error())
	}
	return d
}

// Transactions normalizes the card transaction table.
func (n *Normalizer) Transactions(t *source.Table, diag *domain.Diagnostics) []domain.Transaction {
	idx := t.ColumnIndex()
	out := make([]domain.Transaction, 0, len(t.Rows))

	for i, row := range t.Rows {
		r := &rowReader{table: t.Name, idx: idx, row: row, line: i + 2}

		createdAt, err := ParseDate(r.raw("date_created"))
		if err != nil {
			r.fail("date_created", err.Error())
		}
		amount := r.mandatoryAmount("amount")
		fee := r.optionalAmount("liberty_commission")
		agentProfit := r.optionalAmount("ro_profit")

		ref := r.raw("reference_number")
		if ref == "" {
			r.fail("reference_number", "empty reference")
		}

		respCode := 0
		if s := r.raw("host_resp_code"); s != "" {
			code, convErr := strconv.ParseFloat(s, 64)
			if convErr != nil {
				r.fail("host_resp_code", fmt.Sprintf("not numeric: %q", s))
			} else {
				respCode = int(code)
			}
		} else {
			r.fail("host_resp_code", "empty response code")
		}

		if r.err != nil {
			n.drop(diag, r.err)
			continue
		}

		out = append(out, domain.Transaction{
			Reference:   ref,
			STAN:        r.raw("stan"),
			TerminalID:  r.raw("terminal_id"),
			PAN:         r.raw("pan_number"),
			MerchantID:  MerchantID(r.raw("merchant_id")),
			UserType:    strings.ToUpper(r.raw("type_of_user")),
			Amount:      amount,
			Fee:         fee,
			AgentProfit: agentProfit,
			RespCode:    respCode,
			CreatedAt:   createdAt,
		})
	}

	return out
}

// Settlements normalizes a processor settlement report table.
func (n *Normalizer) Settlements(t *source.Table, diag *domain.Diagnostics) []domain.SettlementRecord {
	idx := t.ColumnIndex()
	out := make([]domain.SettlementRecord, 0, len(t.Rows))

	for i, row := range t.Rows {
		r := &rowReader{table: t.Name, idx: idx, row: row, line: i + 2}

		settledAt, err := ParseDate(r.raw("local_date_time"))
		if err != nil {
			r.fail("local_date_time", err.Error())
		}
		amount := r.mandatoryAmount("tran_amount_req")
		receivable := r.optionalAmount("merchant_receivable")
		discount := r.optionalAmount("merchant_discount")

		if r.err != nil {
			n.drop(diag, r.err)
			continue
		}

		out = append(out, domain.SettlementRecord{
			Reference:  r.raw("retrieval_reference_nr"),
			MerchantID: MerchantID(r.raw("merchant_id")),
			STAN:       r.raw("stan"),
			TerminalID: r.raw("terminal_id"),
			PAN:        r.raw("pan"),
			Amount:     amount,
			Receivable: receivable,
			Discount:   discount,
			SettledAt:  settledAt,
			Reversed:   parseBool(r.raw("reversal_flag")),
		})
	}

	return out
}

// BankEntries normalizes a bank statement table. Narration classification
// happens downstream in the bank reconciler.
func (n *Normalizer) BankEntries(t *source.Table, diag *domain.Diagnostics) []domain.BankStatementEntry {
	idx := t.ColumnIndex()
	out := make([]domain.BankStatementEntry, 0, len(t.Rows))

	for i, row := range t.Rows {
		r := &rowReader{table: t.Name, idx: idx, row: row, line: i + 2}

		valueDate, err := ParseDate(r.raw("value date"))
		if err != nil {
			r.fail("value date", err.Error())
		}
		credit := r.optionalAmount("credit")
		debit := r.optionalAmount("debit")

		if r.err != nil {
			n.drop(diag, r.err)
			continue
		}

		out = append(out, domain.BankStatementEntry{
			Narration: r.raw("transaction narration"),
			Reference: r.raw("reference"),
			ValueDate: valueDate,
			Credit:    credit,
			Debit:     debit,
			Kind:      domain.NarrationOther,
		})
	}

	return out
}

func (n *Normalizer) drop(diag *domain.Diagnostics, e *domain.NormalizationError) {
	diag.AddRowError(e)
	n.log.WithFields(logrus.Fields{
		"table": e.Table,
		"line":  e.Line,
		"field": e.Field,
	}).Warnf("[normalize] dropped row: %s", e.Reason)
}
