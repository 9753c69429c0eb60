package match

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/libertypay/cardrecon/internal/domain"
)

// Strategy selects the matching key for a channel. Exact reference matching
// is preferred; the composite key exists for sources without a stable
// retrieval reference and is a deliberately lossy heuristic: duplicate
// amounts on the same merchant and day can over- or under-match. Channels
// migrate to exact matching by configuration, not code changes.
type Strategy string

const (
	StrategyExactReference Strategy = "exact_reference"
	StrategyCompositeKey   Strategy = "composite_key"
)

// AmbiguityPolicy decides the tie-break when a key matches more than one
// settlement record. There is no implicit ordering fallback: unresolved
// collisions classify the transaction Unsettled and surface a diagnostic.
type AmbiguityPolicy string

const (
	PolicyFirstSeen     AmbiguityPolicy = "first_seen"
	PolicyRejectBoth    AmbiguityPolicy = "reject_both"
	PolicyAmountClosest AmbiguityPolicy = "amount_closest"
)

// Input is one channel's matching workload.
type Input struct {
	Channel      domain.Channel
	Transactions []domain.Transaction
	Settlements  []domain.SettlementRecord
	Strategy     Strategy
	Policy       AmbiguityPolicy
}

// Result classifies every transaction into exactly one of Settled,
// Unsettled or ChargedBack, and retains every unmatched settlement record
// as an orphan for audit export. Orphans often indicate upstream
// transaction data gaps and are never silently dropped.
type Result struct {
	Classified []domain.ClassifiedTransaction
	Orphans    []domain.SettlementRecord
}

// Match classifies a channel's transactions against its settlement records.
//
// The implementation is a mapping build (key -> candidate records), not a
// nested scan, so large settlement tables stay linear. Classification is
// order-independent: transactions are resolved in canonical reference
// order and candidate lists are canonically sorted, so shuffling either
// input produces identical results. Output slices preserve input order.
func Match(in Input, diag *domain.Diagnostics) Result {
	keyOf := keyFunc(in.Strategy)

	// Candidate index. Each key keeps the original settlement positions so
	// orphans can be emitted in input order later.
	byKey := make(map[string][]int, len(in.Settlements))
	for i, rec := range in.Settlements {
		k := keyOf(rec.Reference, rec.MerchantID, rec.Amount, domain.Day(rec.SettledAt))
		byKey[k] = append(byKey[k], i)
	}
	// Canonical candidate order, independent of source row order.
	for _, idxs := range byKey {
		sort.Slice(idxs, func(a, b int) bool {
			ra, rb := in.Settlements[idxs[a]], in.Settlements[idxs[b]]
			if !ra.SettledAt.Equal(rb.SettledAt) {
				return ra.SettledAt.Before(rb.SettledAt)
			}
			if c := ra.Amount.Cmp(rb.Amount); c != 0 {
				return c < 0
			}
			if ra.Reference != rb.Reference {
				return ra.Reference < rb.Reference
			}
			return ra.STAN < rb.STAN
		})
	}

	// Resolve transactions in canonical order (references are unique within
	// a run, enforced upstream), then emit in input order.
	order := make([]int, len(in.Transactions))
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(a, b int) bool {
		return in.Transactions[order[a]].Reference < in.Transactions[order[b]].Reference
	})

	consumed := make([]bool, len(in.Settlements))
	classOf := make([]domain.ClassifiedTransaction, len(in.Transactions))

	for _, ti := range order {
		txn := in.Transactions[ti]
		k := keyOf(txn.Reference, txn.MerchantID, txn.Amount, domain.Day(txn.CreatedAt))
		classOf[ti] = resolve(in, txn, k, byKey[k], consumed, diag)
	}

	res := Result{Classified: classOf}
	for i, rec := range in.Settlements {
		if !consumed[i] {
			res.Orphans = append(res.Orphans, rec)
		}
	}
	return res
}

// resolve picks a settlement record for one transaction under the
// configured ambiguity policy and returns the classification facet.
func resolve(in Input, txn domain.Transaction, key string, candidates []int, consumed []bool, diag *domain.Diagnostics) domain.ClassifiedTransaction {
	avail := candidates[:0:0]
	for _, i := range candidates {
		if !consumed[i] {
			avail = append(avail, i)
		}
	}

	switch {
	case len(avail) == 0:
		// A key that existed but was fully consumed means several
		// transactions collapsed onto one record: ambiguity, not a clean
		// miss.
		if len(candidates) > 0 {
			diag.AddAmbiguity(&domain.MatchAmbiguityError{
				Channel:    in.Channel,
				Key:        key,
				Candidates: len(candidates),
			})
		}
		return unsettled(in.Channel, txn)

	case len(avail) == 1:
		return settle(in.Channel, txn, in.Settlements[avail[0]], consumed, avail[0])
	}

	switch in.Policy {
	case PolicyFirstSeen:
		return settle(in.Channel, txn, in.Settlements[avail[0]], consumed, avail[0])

	case PolicyAmountClosest:
		best, tie := closestByAmount(in.Settlements, avail, txn)
		if !tie {
			return settle(in.Channel, txn, in.Settlements[best], consumed, best)
		}
		// Equidistant candidates: fall through to the conservative path.

	case PolicyRejectBoth:
		// Leave every candidate unconsumed; they surface as orphans.
	}

	diag.AddAmbiguity(&domain.MatchAmbiguityError{
		Channel:    in.Channel,
		Key:        key,
		Candidates: len(avail),
	})
	return unsettled(in.Channel, txn)
}

func settle(ch domain.Channel, txn domain.Transaction, rec domain.SettlementRecord, consumed []bool, idx int) domain.ClassifiedTransaction {
	consumed[idx] = true
	class := domain.ClassSettled
	if rec.Reversed {
		class = domain.ClassChargedBack
	}
	return domain.ClassifiedTransaction{
		Transaction:   txn,
		Channel:       ch,
		Class:         class,
		SettledAmount: rec.Amount,
		SettledAt:     rec.SettledAt,
	}
}

func unsettled(ch domain.Channel, txn domain.Transaction) domain.ClassifiedTransaction {
	return domain.ClassifiedTransaction{
		Transaction: txn,
		Channel:     ch,
		Class:       domain.ClassUnsettled,
	}
}

// closestByAmount returns the available candidate with the smallest
// absolute amount difference, and whether the minimum was tied.
func closestByAmount(recs []domain.SettlementRecord, avail []int, txn domain.Transaction) (best int, tie bool) {
	best = avail[0]
	bestDiff := recs[best].Amount.Sub(txn.Amount).Abs()
	for _, i := range avail[1:] {
		diff := recs[i].Amount.Sub(txn.Amount).Abs()
		switch diff.Cmp(bestDiff) {
		case -1:
			best, bestDiff, tie = i, diff, false
		case 0:
			tie = true
		}
	}
	return best, tie
}

// keyFunc builds the matching key for a record. Composite keys format the
// amount at fixed scale so "100" and "100.00" collide as intended.
func keyFunc(s Strategy) func(ref, merchant string, amount decimal.Decimal, day time.Time) string {
	if s == StrategyCompositeKey {
		return func(_, merchant string, amount decimal.Decimal, day time.Time) string {
			return fmt.Sprintf("%s|%s|%s", merchant, amount.StringFixed(2), day.Format(domain.DateOnly))
		}
	}
	return func(ref, _ string, _ decimal.Decimal, _ time.Time) string {
		return ref
	}
}
