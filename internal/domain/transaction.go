package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Channel identifies a processor/merchant pairing reconciled as a unit.
type Channel string

const (
	ChannelPaybox           Channel = "PAYBOX"
	ChannelInterswitchUnity Channel = "INTERSWITCH"
	ChannelNIBSSUnity       Channel = "NIBSS"
	ChannelNIBSSParallex    Channel = "PARALLEX"
	ChannelUnclassified     Channel = "UNCLASSIFIED"
)

// Classification is the settlement outcome of one transaction.
type Classification string

const (
	ClassSettled     Classification = "SETTLED"
	ClassUnsettled   Classification = "UNSETTLED"
	ClassChargedBack Classification = "CHARGED_BACK"
)

// Transaction is one card-transaction event normalized from the card source.
// Values are immutable after normalization; derived facets (channel,
// classification) live on ClassifiedTransaction, never here.
type Transaction struct {
	Reference   string          `json:"reference_number"`
	STAN        string          `json:"stan"`
	TerminalID  string          `json:"terminal_id"`
	PAN         string          `json:"pan_number"`
	MerchantID  string          `json:"merchant_id"`
	UserType    string          `json:"type_of_user"`
	Amount      decimal.Decimal `json:"amount"`
	Fee         decimal.Decimal `json:"fee"`
	AgentProfit decimal.Decimal `json:"agent_profit"`
	RespCode    int             `json:"host_resp_code"`
	CreatedAt   time.Time       `json:"date_created"`
}

// Successful reports whether the host approved the transaction. Only
// successful transactions participate in revenue and settlement totals.
func (t Transaction) Successful() bool {
	return t.RespCode == 0
}

// ClassifiedTransaction attaches the derived channel and settlement
// classification to a Transaction.
type ClassifiedTransaction struct {
	Transaction
	Channel       Channel         `json:"channel"`
	Class         Classification  `json:"classification"`
	SettledAmount decimal.Decimal `json:"settled_amount"`
	SettledAt     time.Time       `json:"settled_at"`
}

// Day truncates a timestamp to its UTC calendar date.
func Day(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// DateOnly is the canonical date format used in reports and storage keys.
const DateOnly = "2006-01-02"
