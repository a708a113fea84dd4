// Package observability provides a metrics extension for the ledger that
// records lifecycle event counts and latencies via a MetricFactory.
package observability

import (
	"context"

	"github.com/xraph/ledger/plugin"
)

// Ensure MetricsExtension implements required interfaces.
var (
	_ plugin.Plugin               = (*MetricsExtension)(nil)
	_ plugin.OnInit               = (*MetricsExtension)(nil)
	_ plugin.OnTransactionPosted  = (*MetricsExtension)(nil)
	_ plugin.OnTransactionRejected = (*MetricsExtension)(nil)
	_ plugin.OnTransactionVoided  = (*MetricsExtension)(nil)
	_ plugin.OnEvidenceQueried    = (*MetricsExtension)(nil)
	_ plugin.OnBalancesRebuilding = (*MetricsExtension)(nil)
	_ plugin.OnBalancesRebuilt    = (*MetricsExtension)(nil)
)

// Counter interface for metric counters.
type Counter interface {
	Inc()
	Add(float64)
}

// Histogram interface for metric histograms.
type Histogram interface {
	Observe(float64)
}

// MetricFactory creates metrics.
type MetricFactory interface {
	Counter(name string) Counter
	Histogram(name string) Histogram
}

// MetricsExtension records system-wide lifecycle metrics.
// Register it as a ledger plugin to automatically track bookkeeping metrics.
type MetricsExtension struct {
	factory MetricFactory

	// Posting metrics
	TransactionsPosted   Counter
	TransactionsRejected Counter
	PostingEntryCount    Histogram

	// Void metrics
	TransactionsVoided Counter

	// Query metrics
	EvidenceQueries    Counter
	EvidenceQueryHits  Histogram
	EvidenceQueryCount Histogram

	// Rebuild metrics
	BalancesRebuilds    Counter
	BalancesRebuiltRows Histogram

	// Error metrics
	StoreErrors  Counter
	PluginErrors Counter
}

// NewMetricsExtension creates a MetricsExtension with the provided MetricFactory.
// Use app.Metrics() in forge extensions.
func NewMetricsExtension(factory MetricFactory) *MetricsExtension {
	return &MetricsExtension{
		factory: factory,

		TransactionsPosted:   factory.Counter("ledger.transaction.posted"),
		TransactionsRejected: factory.Counter("ledger.transaction.rejected"),
		PostingEntryCount:    factory.Histogram("ledger.transaction.entry_count"),

		TransactionsVoided: factory.Counter("ledger.transaction.voided"),

		EvidenceQueries:    factory.Counter("ledger.evidence.queries"),
		EvidenceQueryHits:  factory.Histogram("ledger.evidence.query.results"),
		EvidenceQueryCount: factory.Histogram("ledger.evidence.query.evidence_count"),

		BalancesRebuilds:    factory.Counter("ledger.balances.rebuilds"),
		BalancesRebuiltRows: factory.Histogram("ledger.balances.rebuilt_rows"),

		StoreErrors:  factory.Counter("ledger.store.errors"),
		PluginErrors: factory.Counter("ledger.plugin.errors"),
	}
}

// Name implements plugin.Plugin.
func (m *MetricsExtension) Name() string { return "observability-metrics" }

// OnInit implements plugin.OnInit.
func (m *MetricsExtension) OnInit(_ context.Context, _ interface{}) error {
	return nil
}

// ──────────────────────────────────────────────────
// Posting lifecycle hooks
// ──────────────────────────────────────────────────

// OnTransactionPosted implements plugin.OnTransactionPosted.
func (m *MetricsExtension) OnTransactionPosted(_ context.Context, _ interface{}) error {
	m.TransactionsPosted.Inc()
	return nil
}

// OnTransactionRejected implements plugin.OnTransactionRejected.
func (m *MetricsExtension) OnTransactionRejected(_ context.Context, _ error) error {
	m.TransactionsRejected.Inc()
	return nil
}

// ──────────────────────────────────────────────────
// Void lifecycle hooks
// ──────────────────────────────────────────────────

// OnTransactionVoided implements plugin.OnTransactionVoided.
func (m *MetricsExtension) OnTransactionVoided(_ context.Context, _, _ interface{}) error {
	m.TransactionsVoided.Inc()
	return nil
}

// ──────────────────────────────────────────────────
// Query lifecycle hooks
// ──────────────────────────────────────────────────

// OnEvidenceQueried implements plugin.OnEvidenceQueried.
func (m *MetricsExtension) OnEvidenceQueried(_ context.Context, _ string, evidenceCount, resultCount int) error {
	m.EvidenceQueries.Inc()
	m.EvidenceQueryCount.Observe(float64(evidenceCount))
	m.EvidenceQueryHits.Observe(float64(resultCount))
	return nil
}

// ──────────────────────────────────────────────────
// Rebuild lifecycle hooks
// ──────────────────────────────────────────────────

// OnBalancesRebuilding implements plugin.OnBalancesRebuilding.
func (m *MetricsExtension) OnBalancesRebuilding(_ context.Context) error {
	m.BalancesRebuilds.Inc()
	return nil
}

// OnBalancesRebuilt implements plugin.OnBalancesRebuilt.
func (m *MetricsExtension) OnBalancesRebuilt(_ context.Context, rowsWritten int) error {
	m.BalancesRebuiltRows.Observe(float64(rowsWritten))
	return nil
}
