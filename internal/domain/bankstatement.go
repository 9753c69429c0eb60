package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// NarrationKind classifies a bank statement line by its narration text.
// Bank credits carry no stable per-transaction key, so narration prefixes
// are the only association available with settlement batches.
type NarrationKind string

const (
	NarrationISWBatch   NarrationKind = "ISW_BATCH"   // "2LBP..." Interswitch batch credit
	NarrationNEFT       NarrationKind = "NEFT"        // "...NEFT" NIBSS NEFT credit
	NarrationBatch      NarrationKind = "BATCH"       // "BEING..." NIBSS batch credit
	NarrationReversal   NarrationKind = "REVERSAL"    // "RVSL..." chargeback reversal
	NarrationDailySweep NarrationKind = "DAILY_SWEEP" // "DAILY..." sweep to operating account
	NarrationOther      NarrationKind = "OTHER"
)

// BankStatementEntry is one line of a bank account statement
// (Unity or Parallex collection accounts).
type BankStatementEntry struct {
	Narration string          `json:"narration"`
	Reference string          `json:"reference"`
	ValueDate time.Time       `json:"value_date"`
	Credit    decimal.Decimal `json:"credit"`
	Debit     decimal.Decimal `json:"debit"`
	Kind      NarrationKind   `json:"kind"`
}

// BankDiscrepancy is a signed per-day difference between the amount a bank
// credited and the amount the processor reported as settled. A negative
// delta is a shortfall, a positive delta an overage.
type BankDiscrepancy struct {
	Channel  Channel         `json:"channel"`
	Date     time.Time       `json:"date"`
	Expected decimal.Decimal `json:"expected"`
	Actual   decimal.Decimal `json:"actual"`
	Delta    decimal.Decimal `json:"delta"`
}
