package metrics

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/libertypay/cardrecon/internal/domain"
)

// RevenuePolicy decides whether a charged-back transaction still counts
// toward revenue. Accrual keeps it (revenue was earned at point of sale),
// cash excludes it. The domain owners have not settled the question, so it
// is configuration, not code.
type RevenuePolicy string

const (
	PolicyAccrual RevenuePolicy = "accrual"
	PolicyCash    RevenuePolicy = "cash"
)

// Per-channel acquisition cost parameters from the processor contracts.
var (
	iswAcquisitionCost   = decimal.NewFromInt(17)
	iswAgentCommission   = decimal.NewFromInt(3)
	nibssAcquisitionRate = decimal.RequireFromString("0.0022")
)

// Gross returns the per-transaction gross revenue for a channel.
// Interswitch carries flat acquisition and agent costs; the NIBSS channels
// pay a rate-based acquisition cost plus the agent's profit share. PAYBOX
// settles internally, so its gross is the commission itself.
func Gross(ch domain.Channel, txn domain.Transaction) decimal.Decimal {
	switch ch {
	case domain.ChannelInterswitchUnity:
		return txn.Fee.Sub(iswAcquisitionCost).Sub(iswAgentCommission)
	case domain.ChannelNIBSSUnity, domain.ChannelNIBSSParallex:
		return txn.Fee.Sub(txn.Amount.Mul(nibssAcquisitionRate)).Sub(txn.AgentProfit)
	case domain.ChannelPaybox:
		return txn.Fee
	}
	return decimal.Zero
}

// Input is the aggregation workload for one run: every channel's classified
// transaction set.
type Input struct {
	RunDate  time.Time
	Policy   RevenuePolicy
	Channels map[domain.Channel][]domain.ClassifiedTransaction
}

// Aggregate reduces classified transactions into the run-level metrics
// report. All sums are full-precision decimal; rounding happens only when
// the report serializes (see domain.Money). Global totals are plain sums
// over the named channels; the unclassified bucket is reported but never
// contributes to totals.
func Aggregate(in Input, diag domain.Diagnostics) *domain.RunMetrics {
	rm := &domain.RunMetrics{
		RunDate:     in.RunDate.Format(domain.DateOnly),
		Channels:    make(map[string]domain.ChannelMetrics, len(in.Channels)),
		Diagnostics: diag,
	}

	var totalRevenue, totalSettlement, totalChargeBack, totalUnsettled decimal.Decimal

	for ch, classified := range in.Channels {
		cm := channelMetrics(ch, classified, in.Policy)
		rm.Channels[string(ch)] = cm

		if ch == domain.ChannelUnclassified {
			continue
		}
		totalRevenue = totalRevenue.Add(cm.Revenue.Decimal)
		totalSettlement = totalSettlement.Add(cm.Settlement.Decimal)
		totalChargeBack = totalChargeBack.Add(cm.ChargeBack.Decimal)
		totalUnsettled = totalUnsettled.Add(cm.UnsettledClaim.Decimal)
	}

	rm.TotalRevenue = domain.Amount(totalRevenue)
	rm.TotalSettlement = domain.Amount(totalSettlement)
	rm.TotalChargeBack = domain.Amount(totalChargeBack)
	rm.TotalUnsettledClaims = domain.Amount(totalUnsettled)
	return rm
}

func channelMetrics(ch domain.Channel, classified []domain.ClassifiedTransaction, policy RevenuePolicy) domain.ChannelMetrics {
	var revenue, settlement, chargeBack, unsettled decimal.Decimal
	cm := domain.ChannelMetrics{TransactionCount: len(classified)}

	for _, ct := range classified {
		switch ct.Class {
		case domain.ClassSettled:
			cm.SettledCount++
			settlement = settlement.Add(ct.SettledAmount)
			revenue = revenue.Add(Gross(ch, ct.Transaction))

		case domain.ClassChargedBack:
			cm.ChargeBackCount++
			chargeBack = chargeBack.Add(ct.SettledAmount)
			if policy == PolicyAccrual {
				revenue = revenue.Add(Gross(ch, ct.Transaction))
			}

		case domain.ClassUnsettled:
			cm.UnsettledCount++
			unsettled = unsettled.Add(ct.Amount)
		}
	}

	cm.Revenue = domain.Amount(revenue)
	cm.Settlement = domain.Amount(settlement)
	cm.ChargeBack = domain.Amount(chargeBack)
	cm.UnsettledClaim = domain.Amount(unsettled)
	return cm
}

// SettledByDay sums settled amounts per settlement day for one channel.
// The bank reconciler compares these against per-day bank credits.
func SettledByDay(classified []domain.ClassifiedTransaction) map[time.Time]decimal.Decimal {
	out := make(map[time.Time]decimal.Decimal)
	for _, ct := range classified {
		if ct.Class != domain.ClassSettled {
			continue
		}
		day := domain.Day(ct.SettledAt)
		out[day] = out[day].Add(ct.SettledAmount)
	}
	return out
}
