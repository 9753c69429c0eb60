package reconciliation

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/libertypay/cardrecon/internal/bankrecon"
	"github.com/libertypay/cardrecon/internal/domain"
	"github.com/libertypay/cardrecon/internal/match"
	"github.com/libertypay/cardrecon/internal/metrics"
	"github.com/libertypay/cardrecon/internal/normalize"
	"github.com/libertypay/cardrecon/internal/partition"
	"github.com/libertypay/cardrecon/internal/source"
)

// State is the orchestrator's position in one run. Failed is terminal per
// run; a failed run emits no metrics at all.
type State string

const (
	StateIdle         State = "IDLE"
	StateLoading      State = "LOADING"
	StateNormalizing  State = "NORMALIZING"
	StatePartitioning State = "PARTITIONING"
	StateMatching     State = "MATCHING"
	StateAggregating  State = "AGGREGATING"
	StateComplete     State = "COMPLETE"
	StateFailed       State = "FAILED"
)

// TableNames are the six mandatory tables pulled from the tabular source.
type TableNames struct {
	Card               string
	NIBSSSettlement    string
	ISWSettlement      string
	ParallexSettlement string
	BankUnity          string
	BankParallex       string
}

// Params is the engine's static configuration for every run.
type Params struct {
	Merchants       partition.MerchantTable
	Tables          TableNames
	Strategies      map[domain.Channel]match.Strategy
	AmbiguityPolicy match.AmbiguityPolicy
	RevenuePolicy   metrics.RevenuePolicy
	SourceTimeout   time.Duration
}

// Engine sequences normalization, partitioning, matching, bank
// reconciliation and aggregation for one run date. It holds no mutable
// run state: each invocation builds its own run context, so concurrent
// runs for different dates need no coordination.
type Engine struct {
	src    source.Source
	params Params
	log    *logrus.Logger
	norm   *normalize.Normalizer
	part   *partition.Partitioner
	bank   *bankrecon.Reconciler
}

func NewEngine(src source.Source, params Params, log *logrus.Logger) *Engine {
	return &Engine{
		src:    src,
		params: params,
		log:    log,
		norm:   normalize.New(log),
		part:   partition.New(params.Merchants, log),
		bank:   bankrecon.New(log),
	}
}

// RunResult is the orchestrator's complete output: the metrics report plus
// the channel-labeled audit tables for export. The RunID identifies the
// invocation in logs only; it never enters the metrics, which must be
// byte-identical across re-runs over unchanged source data.
type RunResult struct {
	RunID   string
	State   State
	Metrics *domain.RunMetrics
	Audit   []*source.Table
}

// run is the explicit per-run context threaded through each stage.
type run struct {
	id         string
	state      State
	runDate    time.Time
	daysOffset int
	diag       domain.Diagnostics
	log        *logrus.Entry
}

func (r *run) to(s State) {
	r.state = s
	r.log.WithField("state", s).Info("[orchestrator] state transition")
}

// Run executes one reconciliation for the inclusive window
// [runDate-daysOffset, runDate]. Callers receive either a complete
// RunMetrics with diagnostics, or an explicit error with no metrics.
// A partial report is never returned.
func (e *Engine) Run(ctx context.Context, runDate time.Time, daysOffset int) (*RunResult, error) {
	r := &run{
		id:         uuid.NewString(),
		state:      StateIdle,
		runDate:    domain.Day(runDate),
		daysOffset: daysOffset,
	}
	r.log = e.log.WithFields(logrus.Fields{
		"run_id":   r.id,
		"run_date": r.runDate.Format(domain.DateOnly),
	})

	res, err := e.execute(ctx, r)
	if err != nil {
		r.to(StateFailed)
		r.log.WithError(err).Error("[orchestrator] run failed")
		return nil, err
	}
	r.to(StateComplete)
	res.RunID = r.id
	res.State = r.state
	return res, nil
}

func (e *Engine) execute(ctx context.Context, r *run) (*RunResult, error) {
	r.to(StateLoading)
	tables, err := e.loadTables(ctx, r)
	if err != nil {
		return nil, err
	}

	r.to(StateNormalizing)
	txns := e.norm.Transactions(tables[e.params.Tables.Card], &r.diag)
	nibssSett := e.norm.Settlements(tables[e.params.Tables.NIBSSSettlement], &r.diag)
	iswSett := e.norm.Settlements(tables[e.params.Tables.ISWSettlement], &r.diag)
	parallexSett := e.norm.Settlements(tables[e.params.Tables.ParallexSettlement], &r.diag)
	bankUnity := bankrecon.ClassifyAll(e.norm.BankEntries(tables[e.params.Tables.BankUnity], &r.diag))
	bankParallex := bankrecon.ClassifyAll(e.norm.BankEntries(tables[e.params.Tables.BankParallex], &r.diag))

	r.to(StatePartitioning)
	parts, err := e.part.Partition(txns, r.runDate, r.daysOffset, &r.diag)
	if err != nil {
		return nil, err
	}

	r.to(StateMatching)
	channels := make(map[domain.Channel][]domain.ClassifiedTransaction)
	var orphans []channelOrphans

	type workload struct {
		channel     domain.Channel
		settlements []domain.SettlementRecord
		merchantID  string // empty disables the merchant filter
	}
	for _, w := range []workload{
		{domain.ChannelNIBSSUnity, nibssSett, e.params.Merchants.NIBSSUnity},
		{domain.ChannelInterswitchUnity, iswSett, ""},
		{domain.ChannelNIBSSParallex, parallexSett, e.params.Merchants.NIBSSParallex},
	} {
		sett := e.filterSettlements(w.settlements, w.merchantID, r)
		out := match.Match(match.Input{
			Channel:      w.channel,
			Transactions: parts.Bucket(w.channel),
			Settlements:  sett,
			Strategy:     e.strategyFor(w.channel),
			Policy:       e.params.AmbiguityPolicy,
		}, &r.diag)
		channels[w.channel] = out.Classified
		orphans = append(orphans, channelOrphans{w.channel, out.Orphans})
	}

	// PAYBOX settles internally and the unclassified bucket has nothing to
	// match against; both are carried as facets for reporting only.
	channels[domain.ChannelPaybox] = classifyAs(parts.Bucket(domain.ChannelPaybox), domain.ChannelPaybox, domain.ClassSettled)
	channels[domain.ChannelUnclassified] = classifyAs(parts.Bucket(domain.ChannelUnclassified), domain.ChannelUnclassified, domain.ClassUnsettled)

	windowStart := r.runDate.AddDate(0, 0, -r.daysOffset)
	accounts := []struct {
		acct    bankrecon.Account
		entries []domain.BankStatementEntry
	}{
		{bankrecon.Account{Channel: domain.ChannelInterswitchUnity, Kinds: []domain.NarrationKind{domain.NarrationISWBatch}}, bankUnity},
		{bankrecon.Account{Channel: domain.ChannelNIBSSUnity, Kinds: []domain.NarrationKind{domain.NarrationNEFT, domain.NarrationBatch}}, bankUnity},
		{bankrecon.Account{Channel: domain.ChannelNIBSSParallex, Kinds: []domain.NarrationKind{domain.NarrationNEFT, domain.NarrationBatch}}, bankParallex},
	}
	var discrepancies []domain.BankDiscrepancy
	for _, a := range accounts {
		settledByDay := metrics.SettledByDay(channels[a.acct.Channel])
		discrepancies = append(discrepancies, e.bank.Reconcile(a.acct, a.entries, settledByDay, windowStart, r.runDate)...)
	}

	r.to(StateAggregating)
	rm := metrics.Aggregate(metrics.Input{
		RunDate:  r.runDate,
		Policy:   e.params.RevenuePolicy,
		Channels: channels,
	}, r.diag)

	audit := buildAuditTables(r.runDate, channels, orphans, discrepancies, bankUnity, bankParallex)

	return &RunResult{Metrics: rm, Audit: audit}, nil
}

// loadTables fetches the six mandatory tables, each under the bounded
// source timeout. Any miss fails the whole run: partial source data would
// silently under-report financial totals.
func (e *Engine) loadTables(ctx context.Context, r *run) (map[string]*source.Table, error) {
	names := []string{
		e.params.Tables.Card,
		e.params.Tables.NIBSSSettlement,
		e.params.Tables.ISWSettlement,
		e.params.Tables.ParallexSettlement,
		e.params.Tables.BankUnity,
		e.params.Tables.BankParallex,
	}

	out := make(map[string]*source.Table, len(names))
	for _, name := range names {
		fetchCtx := ctx
		if e.params.SourceTimeout > 0 {
			var cancel context.CancelFunc
			fetchCtx, cancel = context.WithTimeout(ctx, e.params.SourceTimeout)
			defer cancel()
		}
		t, err := e.src.FetchTable(fetchCtx, name)
		if err != nil {
			return nil, &domain.SourceUnavailableError{Table: name, Err: err}
		}
		out[name] = t
		r.log.WithFields(logrus.Fields{"table": name, "rows": len(t.Rows)}).Info("[orchestrator] table loaded")
	}
	return out, nil
}

// filterSettlements applies the run window, the optional merchant filter
// and exact-duplicate removal (settlement exports repeat rows across
// report pages).
func (e *Engine) filterSettlements(recs []domain.SettlementRecord, merchantID string, r *run) []domain.SettlementRecord {
	seen := make(map[string]bool, len(recs))
	var out []domain.SettlementRecord
	for _, rec := range recs {
		if !partition.WindowContains(r.runDate, r.daysOffset, rec.SettledAt) {
			continue
		}
		if merchantID != "" && rec.MerchantID != merchantID {
			continue
		}
		k := rec.Reference + "|" + rec.STAN + "|" + rec.Amount.StringFixed(2) + "|" + rec.SettledAt.Format(time.RFC3339)
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, rec)
	}
	return out
}

func (e *Engine) strategyFor(ch domain.Channel) match.Strategy {
	if s, ok := e.params.Strategies[ch]; ok {
		return s
	}
	return match.StrategyExactReference
}

func classifyAs(txns []domain.Transaction, ch domain.Channel, class domain.Classification) []domain.ClassifiedTransaction {
	out := make([]domain.ClassifiedTransaction, len(txns))
	for i, t := range txns {
		out[i] = domain.ClassifiedTransaction{Transaction: t, Channel: ch, Class: class}
	}
	return out
}
