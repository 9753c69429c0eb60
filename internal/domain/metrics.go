package domain

// ChannelMetrics is the per-channel aggregate for one run. It is recomputed
// wholly from the run's record sets, never incrementally updated.
type ChannelMetrics struct {
	Revenue          Money `json:"revenue"`
	Settlement       Money `json:"settlement"`
	ChargeBack       Money `json:"charge_back"`
	UnsettledClaim   Money `json:"unsettled_claim"`
	TransactionCount int   `json:"transaction_count"`
	SettledCount     int   `json:"settled_count"`
	ChargeBackCount  int   `json:"charge_back_count"`
	UnsettledCount   int   `json:"unsettled_count"`
}

// RunMetrics is the top-level report for one run date. It is immutable once
// returned by the orchestrator; global totals are plain sums of the channel
// totals with no cross-channel netting.
type RunMetrics struct {
	RunDate              string                    `json:"run_date"`
	TotalRevenue         Money                     `json:"total_revenue"`
	TotalSettlement      Money                     `json:"total_settlement"`
	TotalChargeBack      Money                     `json:"total_settlement_charge_back"`
	TotalUnsettledClaims Money                     `json:"total_settlement_unsettled_claims"`
	Channels             map[string]ChannelMetrics `json:"channels"`
	Diagnostics          Diagnostics               `json:"diagnostics"`
}
