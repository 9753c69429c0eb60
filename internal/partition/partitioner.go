package partition

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/libertypay/cardrecon/internal/domain"
)

// MerchantTable maps configured merchant identifiers to their channels.
// A transaction whose merchant id matches none of these lands in the
// unclassified bucket.
type MerchantTable struct {
	InterswitchUnity string
	NIBSSUnity       string
	NIBSSParallex    string
}

func (m MerchantTable) channelFor(merchantID string) domain.Channel {
	switch merchantID {
	case m.InterswitchUnity:
		return domain.ChannelInterswitchUnity
	case m.NIBSSUnity:
		return domain.ChannelNIBSSUnity
	case m.NIBSSParallex:
		return domain.ChannelNIBSSParallex
	}
	return domain.ChannelUnclassified
}

// Result holds the disjoint per-channel transaction subsets for one run
// window. Bucket ordering preserves the normalized input order.
type Result struct {
	Buckets map[domain.Channel][]domain.Transaction
}

// Bucket returns the subset for one channel (nil when empty).
func (r *Result) Bucket(ch domain.Channel) []domain.Transaction {
	return r.Buckets[ch]
}

// Partitioner splits the normalized transaction set into per-channel
// subsets for the inclusive window [runDate-daysOffset, runDate].
type Partitioner struct {
	merchants MerchantTable
	log       *logrus.Logger
}

func New(merchants MerchantTable, log *logrus.Logger) *Partitioner {
	return &Partitioner{merchants: merchants, log: log}
}

// Partition applies, in order: the date window (out-of-window transactions
// leave the run entirely), the success filter (declined transactions are
// excluded but counted), the PAYBOX rule (type_of_user MERCHANT takes
// precedence over merchant-id matching), then the merchant-id table.
//
// The same transaction reference appearing twice is a data-quality defect
// the engine refuses to resolve silently: the run fails with a
// DataIntegrityError rather than double-counting or dropping one side.
func (p *Partitioner) Partition(txns []domain.Transaction, runDate time.Time, daysOffset int, diag *domain.Diagnostics) (*Result, error) {
	windowStart := domain.Day(runDate).AddDate(0, 0, -daysOffset)
	windowEnd := domain.Day(runDate)

	res := &Result{Buckets: make(map[domain.Channel][]domain.Transaction)}
	seen := make(map[string]domain.Channel, len(txns))

	for _, txn := range txns {
		day := domain.Day(txn.CreatedAt)
		if day.Before(windowStart) || day.After(windowEnd) {
			diag.ExcludedOutOfWindow++
			continue
		}

		if !txn.Successful() {
			diag.ExcludedUnsuccess++
			continue
		}

		ch := p.merchants.channelFor(txn.MerchantID)
		if txn.UserType == "MERCHANT" {
			ch = domain.ChannelPaybox
		}

		if prev, dup := seen[txn.Reference]; dup {
			return nil, &domain.DataIntegrityError{
				Reason: fmt.Sprintf("transaction reference %q partitioned twice (%s and %s)",
					txn.Reference, prev, ch),
			}
		}
		seen[txn.Reference] = ch

		if ch == domain.ChannelUnclassified {
			diag.UnclassifiedCount++
		}
		res.Buckets[ch] = append(res.Buckets[ch], txn)
	}

	p.log.WithFields(logrus.Fields{
		"window_start": windowStart.Format(domain.DateOnly),
		"window_end":   windowEnd.Format(domain.DateOnly),
		"interswitch":  len(res.Buckets[domain.ChannelInterswitchUnity]),
		"nibss":        len(res.Buckets[domain.ChannelNIBSSUnity]),
		"parallex":     len(res.Buckets[domain.ChannelNIBSSParallex]),
		"paybox":       len(res.Buckets[domain.ChannelPaybox]),
		"unclassified": len(res.Buckets[domain.ChannelUnclassified]),
	}).Info("[partition] channel split complete")

	return res, nil
}

// WindowContains reports whether a date falls inside the inclusive run
// window. Exposed for the settlement and bank reconcilers, which apply the
// same window to their own sources.
func WindowContains(runDate time.Time, daysOffset int, t time.Time) bool {
	day := domain.Day(t)
	start := domain.Day(runDate).AddDate(0, 0, -daysOffset)
	return !day.Before(start) && !day.After(domain.Day(runDate))
}
