// Command generate writes deterministic CSV fixtures for the six source
// tables into testdata/source, shaped like the real spreadsheet exports.
// Roughly 85% of card transactions get a settlement line, a few of those
// are reversed, and bank credits are full-volume day totals, so the bank
// reconciler is guaranteed discrepancies to report.
package main

import (
	"encoding/csv"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strings"

	"github.com/shopspring/decimal"
)

const (
	merchantISW      = "2LBP87654321988"
	merchantNIBSS    = "2215LA525653900"
	merchantParallex = "210000000000000"

	runDate = "2024-03-10"
)

type txnRow struct {
	ref, merchant, userType string
	amount, fee, roProfit   decimal.Decimal
	stan, terminal, pan     string
	respCode                int
}

func main() {
	rng := rand.New(rand.NewSource(42))
	outDir := filepath.Join("testdata", "source")
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		fatal("mkdir: %v", err)
	}

	type group struct {
		merchant string
		userType string
		prefix   string
		count    int
	}
	groups := []group{
		{merchantISW, "AGENT", "ISW", 40},
		{merchantNIBSS, "AGENT", "NIB", 45},
		{merchantParallex, "AGENT", "PLX", 40},
		{"", "MERCHANT", "PBX", 25},
		{"9999UNKNOWN", "AGENT", "UNK", 5},
	}

	var txns []txnRow
	for _, g := range groups {
		for i := 1; i <= g.count; i++ {
			amount := decimal.NewFromInt(int64(500 + rng.Intn(40)*250))
			respCode := 0
			if rng.Intn(12) == 0 {
				respCode = 91 // issuer unavailable
			}
			txns = append(txns, txnRow{
				ref:      fmt.Sprintf("%s%09d", g.prefix, 100000000+i),
				merchant: g.merchant,
				userType: g.userType,
				amount:   amount,
				fee:      amount.Mul(decimal.RequireFromString("0.015")).Round(2),
				roProfit: amount.Mul(decimal.RequireFromString("0.003")).Round(2),
				stan:     fmt.Sprintf("%06d", rng.Intn(1000000)),
				terminal: fmt.Sprintf("T%07d", rng.Intn(10000000)),
				pan:      fmt.Sprintf("506099******%04d", rng.Intn(10000)),
				respCode: respCode,
			})
		}
	}

	writeCard(filepath.Join(outDir, "cardtransaction.csv"), txns)

	writeSettlement(filepath.Join(outDir, "nibss_sett_from_nibss.csv"), txns, merchantNIBSS, rng)
	writeSettlement(filepath.Join(outDir, "isw_sett_report.csv"), txns, merchantISW, rng)
	writeSettlement(filepath.Join(outDir, "libertypay_pos_acquired_detail_.csv"), txns, merchantParallex, rng)

	writeBank(filepath.Join(outDir, "bank_stmt_unity.csv"), txns, []string{merchantISW, merchantNIBSS})
	writeBank(filepath.Join(outDir, "bank_stmt_parallex.csv"), txns, []string{merchantParallex})

	fmt.Printf("wrote fixtures for %d transactions to %s\n", len(txns), outDir)
}

func writeCard(path string, txns []txnRow) {
	w := newWriter(path)
	defer w.close()

	w.row("id", "date_created", "reference_number", "stan", "terminal_id", "pan_number",
		"merchant_id", "type_of_user", "amount", "liberty_commission", "ro_profit", "host_resp_code")
	for i, t := range txns {
		w.row(
			fmt.Sprintf("%d", i+1), runDate, t.ref, t.stan, t.terminal, t.pan,
			t.merchant, t.userType, t.amount.StringFixed(2), t.fee.StringFixed(2),
			t.roProfit.StringFixed(2), fmt.Sprintf("%d", t.respCode),
		)
	}
}

func writeSettlement(path string, txns []txnRow, merchant string, rng *rand.Rand) {
	w := newWriter(path)
	defer w.close()

	w.row("Local_Date_Time", "Merchant_ID", "Retrieval_Reference_Nr", "STAN", "Terminal_ID",
		"PAN", "Tran_Amount_Req", "Merchant_Receivable", "Merchant_Discount", "Reversal_Flag")
	for _, t := range txns {
		if t.merchant != merchant || t.respCode != 0 {
			continue
		}
		if rng.Intn(100) < 15 {
			continue // unsettled claim
		}
		reversal := ""
		if rng.Intn(100) < 5 {
			reversal = "Y"
		}
		discount := t.amount.Mul(decimal.RequireFromString("0.0045")).Round(2)
		w.row(
			runDate+" 18:30:00", merchant, t.ref, t.stan, t.terminal, t.pan,
			t.amount.StringFixed(2), t.amount.Sub(discount).StringFixed(2),
			discount.StringFixed(2), reversal,
		)
	}
}

func writeBank(path string, txns []txnRow, merchants []string) {
	w := newWriter(path)
	defer w.close()

	w.row("Date", "Transaction Narration", "Reference", "Value Date", "Debit", "Credit", "Balance")
	for _, m := range merchants {
		total := decimal.Zero
		for _, t := range txns {
			if t.merchant == m && t.respCode == 0 {
				total = total.Add(t.amount)
			}
		}
		narration := "BEING NIBSS SETTLEMENT " + runDate
		if strings.HasPrefix(m, "2LBP") {
			narration = m + " - BATCH SETTLEMENT - " + runDate
			// Seeded shortfall so the bank reconciler always has work.
			total = total.Sub(decimal.NewFromInt(50))
		}
		w.row(runDate, narration, "REF"+m[:4], runDate, "", total.StringFixed(2), "")
	}
}

// --- csv helpers ---

type writer struct {
	f *os.File
	w *csv.Writer
}

func newWriter(path string) *writer {
	f, err := os.Create(path)
	if err != nil {
		fatal("create %s: %v", path, err)
	}
	return &writer{f: f, w: csv.NewWriter(f)}
}

func (w *writer) row(cells ...string) {
	if err := w.w.Write(cells); err != nil {
		fatal("write: %v", err)
	}
}

func (w *writer) close() {
	w.w.Flush()
	if err := w.w.Error(); err != nil {
		fatal("flush: %v", err)
	}
	w.f.Close()
}

func fatal(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
