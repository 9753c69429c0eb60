package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// SettlementRecord is one line of a processor settlement report
// (NIBSS or Interswitch).
type SettlementRecord struct {
	Reference  string          `json:"retrieval_reference_nr"`
	MerchantID string          `json:"merchant_id"`
	STAN       string          `json:"stan"`
	TerminalID string          `json:"terminal_id"`
	PAN        string          `json:"pan"`
	Amount     decimal.Decimal `json:"tran_amount_req"`
	Receivable decimal.Decimal `json:"merchant_receivable"`
	Discount   decimal.Decimal `json:"merchant_discount"`
	SettledAt  time.Time       `json:"local_date_time"`
	Reversed   bool            `json:"reversed"`
}
