// Package audithook bridges ledger lifecycle events to an audit trail backend.
//
// It defines a local Recorder interface so the package does not import any
// concrete audit backend directly. Callers inject a RecorderFunc adapter
// that bridges to their backend of choice at wiring time.
package audithook

import (
	"context"
	"log/slog"

	"github.com/xraph/ledger/accounting"
	"github.com/xraph/ledger/plugin"
)

// Compile-time interface checks.
var (
	_ plugin.Plugin               = (*Extension)(nil)
	_ plugin.OnInit               = (*Extension)(nil)
	_ plugin.OnShutdown           = (*Extension)(nil)
	_ plugin.OnTransactionPosted  = (*Extension)(nil)
	_ plugin.OnTransactionRejected = (*Extension)(nil)
	_ plugin.OnTransactionVoided  = (*Extension)(nil)
	_ plugin.OnEvidenceQueried    = (*Extension)(nil)
	_ plugin.OnBalancesRebuilding = (*Extension)(nil)
	_ plugin.OnBalancesRebuilt    = (*Extension)(nil)
)

// Recorder is the interface that audit backends must implement.
type Recorder interface {
	Record(ctx context.Context, event *AuditEvent) error
}

// AuditEvent is a local representation of an audit event.
type AuditEvent struct {
	Action     string         `json:"action"`
	Resource   string         `json:"resource"`
	Category   string         `json:"category"`
	ResourceID string         `json:"resource_id,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	Outcome    string         `json:"outcome"`
	Severity   string         `json:"severity"`
	Reason     string         `json:"reason,omitempty"`
}

// RecorderFunc is an adapter to use a plain function as a Recorder.
type RecorderFunc func(ctx context.Context, event *AuditEvent) error

// Record implements Recorder.
func (f RecorderFunc) Record(ctx context.Context, event *AuditEvent) error {
	return f(ctx, event)
}

// Extension bridges ledger lifecycle events to an audit trail backend.
type Extension struct {
	recorder Recorder
	enabled  map[string]bool // nil = all enabled
	logger   *slog.Logger
}

// New creates an Extension that emits audit events through the provided Recorder.
func New(r Recorder, opts ...Option) *Extension {
	e := &Extension{
		recorder: r,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Name implements plugin.Plugin.
func (e *Extension) Name() string { return "audit-hook" }

// OnInit implements plugin.OnInit.
func (e *Extension) OnInit(_ context.Context, _ interface{}) error {
	return nil
}

// OnShutdown implements plugin.OnShutdown.
func (e *Extension) OnShutdown(_ context.Context) error {
	return nil
}

// ──────────────────────────────────────────────────
// Posting hooks
// ──────────────────────────────────────────────────

// OnTransactionPosted implements plugin.OnTransactionPosted.
func (e *Extension) OnTransactionPosted(ctx context.Context, txn interface{}) error {
	resourceID, meta := describeTransaction(txn)
	return e.record(ctx, ActionTransactionPosted, SeverityInfo, OutcomeSuccess,
		ResourceTransaction, resourceID, CategoryPosting, nil, meta)
}

// OnTransactionRejected implements plugin.OnTransactionRejected.
func (e *Extension) OnTransactionRejected(ctx context.Context, reason error) error {
	return e.record(ctx, ActionTransactionRejected, SeverityWarning, OutcomeFailure,
		ResourceTransaction, "", CategoryPosting, reason, nil)
}

// ──────────────────────────────────────────────────
// Void hooks
// ──────────────────────────────────────────────────

// OnTransactionVoided implements plugin.OnTransactionVoided.
func (e *Extension) OnTransactionVoided(ctx context.Context, original, voiding interface{}) error {
	resourceID, meta := describeTransaction(original)
	if _, voidMeta := describeTransaction(voiding); voidMeta != nil {
		for k, v := range voidMeta {
			meta["voiding_"+k] = v
		}
	}
	return e.record(ctx, ActionTransactionVoided, SeverityWarning, OutcomeSuccess,
		ResourceTransaction, resourceID, CategoryPosting, nil, meta)
}

// ──────────────────────────────────────────────────
// Query hooks
// ──────────────────────────────────────────────────

// OnEvidenceQueried implements plugin.OnEvidenceQueried.
func (e *Extension) OnEvidenceQueried(ctx context.Context, matchType string, evidenceCount, resultCount int) error {
	return e.record(ctx, ActionEvidenceQueried, SeverityInfo, OutcomeSuccess,
		ResourceEvidence, "", CategoryQuery, nil, map[string]any{
			"match_type":     matchType,
			"evidence_count": evidenceCount,
			"result_count":   resultCount,
		})
}

// ──────────────────────────────────────────────────
// Rebuild hooks
// ──────────────────────────────────────────────────

// OnBalancesRebuilding implements plugin.OnBalancesRebuilding.
func (e *Extension) OnBalancesRebuilding(ctx context.Context) error {
	return e.record(ctx, ActionBalancesRebuilding, SeverityInfo, OutcomeSuccess,
		ResourceBalance, "", CategoryRebuild, nil, nil)
}

// OnBalancesRebuilt implements plugin.OnBalancesRebuilt.
func (e *Extension) OnBalancesRebuilt(ctx context.Context, rowsWritten int) error {
	return e.record(ctx, ActionBalancesRebuilt, SeverityInfo, OutcomeSuccess,
		ResourceBalance, "", CategoryRebuild, nil, map[string]any{
			"rows_written": rowsWritten,
		})
}

// ──────────────────────────────────────────────────
// Internal helpers
// ──────────────────────────────────────────────────

// describeTransaction extracts an audit resource ID and metadata from a
// hook payload. Hooks pass interface{} so the plugin package stays decoupled
// from accounting; only *accounting.Transaction is understood here.
func describeTransaction(v interface{}) (string, map[string]any) {
	txn, ok := v.(*accounting.Transaction)
	if !ok || txn == nil {
		return "", map[string]any{}
	}
	meta := map[string]any{
		"type_id":    txn.TypeID.String(),
		"created_by": txn.CreatedBy,
		"entries":    len(txn.Entries),
		"evidence":   len(txn.Evidence),
	}
	if txn.Voids != nil {
		meta["voids"] = txn.Voids.String()
	}
	return txn.ID.String(), meta
}

// record builds and sends an audit event if the action is enabled.
func (e *Extension) record(
	ctx context.Context,
	action, severity, outcome string,
	resource, resourceID, category string,
	err error,
	meta map[string]any,
) error {
	if e.enabled != nil && !e.enabled[action] {
		return nil
	}

	if meta == nil {
		meta = make(map[string]any)
	}

	var reason string
	if err != nil {
		reason = err.Error()
		meta["error"] = err.Error()
	}

	evt := &AuditEvent{
		Action:     action,
		Resource:   resource,
		Category:   category,
		ResourceID: resourceID,
		Metadata:   meta,
		Outcome:    outcome,
		Severity:   severity,
		Reason:     reason,
	}

	if recErr := e.recorder.Record(ctx, evt); recErr != nil {
		e.logger.Warn("audit_hook: failed to record audit event",
			"action", action,
			"resource_id", resourceID,
			"error", recErr,
		)
	}
	return nil
}
