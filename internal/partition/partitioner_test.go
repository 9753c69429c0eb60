package partition

import (
	"errors"
	"io"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/libertypay/cardrecon/internal/domain"
)

var testMerchants = MerchantTable{
	InterswitchUnity: "2LBP87654321988",
	NIBSSUnity:       "2215LA525653900",
	NIBSSParallex:    "210000000000000",
}

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func txn(ref, merchant, userType string, respCode int, created time.Time) domain.Transaction {
	return domain.Transaction{
		Reference:  ref,
		MerchantID: merchant,
		UserType:   userType,
		Amount:     decimal.NewFromInt(1000),
		RespCode:   respCode,
		CreatedAt:  created,
	}
}

func TestPartitionByMerchantID(t *testing.T) {
	runDate := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)
	var diag domain.Diagnostics
	p := New(testMerchants, testLogger())

	res, err := p.Partition([]domain.Transaction{
		txn("R1", testMerchants.NIBSSUnity, "AGENT", 0, runDate),
		txn("R2", testMerchants.InterswitchUnity, "AGENT", 0, runDate),
		txn("R3", testMerchants.NIBSSParallex, "AGENT", 0, runDate),
		txn("R4", "completely-unknown", "AGENT", 0, runDate),
		txn("R5", testMerchants.NIBSSUnity, "MERCHANT", 0, runDate),
	}, runDate, 0, &diag)
	if err != nil {
		t.Fatalf("partition: %v", err)
	}

	checks := []struct {
		ch   domain.Channel
		ref  string
		want int
	}{
		{domain.ChannelNIBSSUnity, "R1", 1},
		{domain.ChannelInterswitchUnity, "R2", 1},
		{domain.ChannelNIBSSParallex, "R3", 1},
		{domain.ChannelUnclassified, "R4", 1},
		{domain.ChannelPaybox, "R5", 1},
	}
	for _, c := range checks {
		bucket := res.Bucket(c.ch)
		if len(bucket) != c.want {
			t.Fatalf("%s: got %d transactions, want %d", c.ch, len(bucket), c.want)
		}
		if bucket[0].Reference != c.ref {
			t.Errorf("%s: got %s, want %s", c.ch, bucket[0].Reference, c.ref)
		}
	}
	if diag.UnclassifiedCount != 1 {
		t.Errorf("unclassified count = %d", diag.UnclassifiedCount)
	}
}

func TestPartitionDisjointness(t *testing.T) {
	runDate := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)
	var diag domain.Diagnostics
	p := New(testMerchants, testLogger())

	txns := []domain.Transaction{
		txn("R1", testMerchants.NIBSSUnity, "AGENT", 0, runDate),
		txn("R2", testMerchants.InterswitchUnity, "AGENT", 0, runDate),
		txn("R3", "unknown", "AGENT", 0, runDate),
	}
	res, err := p.Partition(txns, runDate, 0, &diag)
	if err != nil {
		t.Fatalf("partition: %v", err)
	}

	// Every transaction lands in exactly one bucket.
	seen := make(map[string]int)
	for _, bucket := range res.Buckets {
		for _, tx := range bucket {
			seen[tx.Reference]++
		}
	}
	if len(seen) != len(txns) {
		t.Fatalf("expected %d partitioned transactions, got %d", len(txns), len(seen))
	}
	for ref, count := range seen {
		if count != 1 {
			t.Errorf("%s appears in %d buckets", ref, count)
		}
	}
}

func TestPartitionDuplicateReferenceFailsRun(t *testing.T) {
	runDate := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)
	var diag domain.Diagnostics
	p := New(testMerchants, testLogger())

	_, err := p.Partition([]domain.Transaction{
		txn("R1", testMerchants.NIBSSUnity, "AGENT", 0, runDate),
		txn("R1", testMerchants.InterswitchUnity, "AGENT", 0, runDate),
	}, runDate, 0, &diag)

	var integErr *domain.DataIntegrityError
	if !errors.As(err, &integErr) {
		t.Fatalf("expected DataIntegrityError, got %v", err)
	}
}

func TestWindowBoundaryInclusive(t *testing.T) {
	runDate := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)
	daysOffset := 3
	var diag domain.Diagnostics
	p := New(testMerchants, testLogger())

	res, err := p.Partition([]domain.Transaction{
		txn("ON_START", testMerchants.NIBSSUnity, "AGENT", 0, runDate.AddDate(0, 0, -daysOffset)),
		txn("BEFORE_START", testMerchants.NIBSSUnity, "AGENT", 0, runDate.AddDate(0, 0, -daysOffset-1)),
		txn("ON_END", testMerchants.NIBSSUnity, "AGENT", 0, runDate),
		txn("AFTER_END", testMerchants.NIBSSUnity, "AGENT", 0, runDate.AddDate(0, 0, 1)),
	}, runDate, daysOffset, &diag)
	if err != nil {
		t.Fatalf("partition: %v", err)
	}

	bucket := res.Bucket(domain.ChannelNIBSSUnity)
	if len(bucket) != 2 {
		t.Fatalf("expected 2 in-window transactions, got %d", len(bucket))
	}
	if bucket[0].Reference != "ON_START" || bucket[1].Reference != "ON_END" {
		t.Errorf("wrong survivors: %s, %s", bucket[0].Reference, bucket[1].Reference)
	}
	if diag.ExcludedOutOfWindow != 2 {
		t.Errorf("excluded out of window = %d", diag.ExcludedOutOfWindow)
	}
}

func TestDeclinedTransactionsExcludedButCounted(t *testing.T) {
	runDate := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)
	var diag domain.Diagnostics
	p := New(testMerchants, testLogger())

	res, err := p.Partition([]domain.Transaction{
		txn("OK", testMerchants.NIBSSUnity, "AGENT", 0, runDate),
		txn("DECLINED", testMerchants.NIBSSUnity, "AGENT", 91, runDate),
	}, runDate, 0, &diag)
	if err != nil {
		t.Fatalf("partition: %v", err)
	}

	if got := len(res.Bucket(domain.ChannelNIBSSUnity)); got != 1 {
		t.Fatalf("expected 1 transaction, got %d", got)
	}
	if diag.ExcludedUnsuccess != 1 {
		t.Errorf("excluded unsuccessful = %d", diag.ExcludedUnsuccess)
	}
}
