package summary

import (
	"fmt"
	"sort"
	"strings"

	"github.com/libertypay/cardrecon/internal/domain"
)

// Summarizer turns a metrics report into free text for the reporting
// sheet. The engine depends only on this contract, never on the output.
type Summarizer interface {
	Summarize(m *domain.RunMetrics) string
}

// Template is the deterministic built-in summarizer. Deployments that want
// model-generated prose swap in their own implementation; nothing
// downstream changes.
type Template struct{}

func NewTemplate() *Template {
	return &Template{}
}

func (Template) Summarize(m *domain.RunMetrics) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Reconciliation summary for %s.\n", m.RunDate)
	fmt.Fprintf(&b, "Total revenue %s, settlement %s, chargebacks %s, unsettled claims %s.\n",
		m.TotalRevenue.StringFixed(2), m.TotalSettlement.StringFixed(2),
		m.TotalChargeBack.StringFixed(2), m.TotalUnsettledClaims.StringFixed(2))

	names := make([]string, 0, len(m.Channels))
	for name := range m.Channels {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		cm := m.Channels[name]
		fmt.Fprintf(&b, "%s: revenue %s over %d transactions (%d settled, %d charged back, %d unsettled).\n",
			name, cm.Revenue.StringFixed(2), cm.TransactionCount,
			cm.SettledCount, cm.ChargeBackCount, cm.UnsettledCount)
	}

	if d := m.Diagnostics; d.DroppedRows > 0 || d.Ambiguities > 0 {
		fmt.Fprintf(&b, "Data quality: %d rows dropped, %d ambiguous matches.\n",
			d.DroppedRows, d.Ambiguities)
	}
	return b.String()
}
