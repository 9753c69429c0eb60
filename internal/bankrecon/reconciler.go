package bankrecon

import (
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/libertypay/cardrecon/internal/domain"
)

// Classify derives the narration kind of one bank statement line. The
// prefixes come from the collection account formats: Interswitch batch
// credits open with the merchant code "2LBP", NIBSS NEFT credits end with
// "NEFT", NIBSS batch credits open with "BEING", reversals with "RVSL" and
// daily sweeps with "DAILY".
func Classify(narration string) domain.NarrationKind {
	n := strings.TrimSpace(narration)
	upper := strings.ToUpper(n)
	switch {
	case strings.HasPrefix(upper, "2LBP"):
		return domain.NarrationISWBatch
	case strings.HasPrefix(upper, "RVSL"):
		return domain.NarrationReversal
	case strings.HasPrefix(upper, "DAILY"):
		return domain.NarrationDailySweep
	case strings.HasPrefix(upper, "BEING"):
		return domain.NarrationBatch
	case strings.HasSuffix(upper, "NEFT"):
		return domain.NarrationNEFT
	}
	return domain.NarrationOther
}

// ClassifyAll returns a copy of the entries with narration kinds assigned.
func ClassifyAll(entries []domain.BankStatementEntry) []domain.BankStatementEntry {
	out := make([]domain.BankStatementEntry, len(entries))
	for i, e := range entries {
		e.Kind = Classify(e.Narration)
		out[i] = e
	}
	return out
}

// Account describes which narration kinds on a bank statement carry
// settlement credits for a channel. Reversals and sweeps never count as
// settlement credits; they are exported separately for audit.
type Account struct {
	Channel domain.Channel
	Kinds   []domain.NarrationKind
}

// Reconciler compares per-day bank-credited totals against the settled
// totals computed by the settlement matcher. Reconciliation happens at
// batch/day granularity only: bank narrations rarely carry a stable
// per-transaction key, so no transaction-level matching is attempted.
type Reconciler struct {
	log *logrus.Logger
}

func New(log *logrus.Logger) *Reconciler {
	return &Reconciler{log: log}
}

// Reconcile returns one signed discrepancy per day where credited and
// settled amounts differ, at zero tolerance, within the inclusive window.
// Entries must already be classified. Output is sorted by date.
func (r *Reconciler) Reconcile(acct Account, entries []domain.BankStatementEntry, settledByDay map[time.Time]decimal.Decimal, windowStart, windowEnd time.Time) []domain.BankDiscrepancy {
	wanted := make(map[domain.NarrationKind]bool, len(acct.Kinds))
	for _, k := range acct.Kinds {
		wanted[k] = true
	}

	creditedByDay := make(map[time.Time]decimal.Decimal)
	for _, e := range entries {
		if !wanted[e.Kind] {
			continue
		}
		day := domain.Day(e.ValueDate)
		if day.Before(windowStart) || day.After(windowEnd) {
			continue
		}
		creditedByDay[day] = creditedByDay[day].Add(e.Credit)
	}

	days := make(map[time.Time]bool, len(creditedByDay)+len(settledByDay))
	for d := range creditedByDay {
		days[d] = true
	}
	for d := range settledByDay {
		if !d.Before(windowStart) && !d.After(windowEnd) {
			days[d] = true
		}
	}

	var discs []domain.BankDiscrepancy
	for day := range days {
		expected := settledByDay[day]
		actual := creditedByDay[day]
		delta := actual.Sub(expected)
		if delta.IsZero() {
			continue
		}
		discs = append(discs, domain.BankDiscrepancy{
			Channel:  acct.Channel,
			Date:     day,
			Expected: expected,
			Actual:   actual,
			Delta:    delta,
		})
	}
	sort.Slice(discs, func(i, j int) bool { return discs[i].Date.Before(discs[j].Date) })

	if len(discs) > 0 {
		r.log.WithFields(logrus.Fields{
			"channel": acct.Channel,
			"days":    len(discs),
		}).Warn("[bankrecon] bank credit discrepancies detected")
	}
	return discs
}

// FilterKind returns the entries of one narration kind, preserving order.
// Used for the reversal and sweep audit exports.
func FilterKind(entries []domain.BankStatementEntry, kind domain.NarrationKind) []domain.BankStatementEntry {
	var out []domain.BankStatementEntry
	for _, e := range entries {
		if e.Kind == kind {
			out = append(out, e)
		}
	}
	return out
}
