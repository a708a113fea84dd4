// Package plugin provides an extensible plugin system for the ledger engine.
// Plugins hook into posting, voiding, rebuild, and query lifecycle events
// without the engine needing to know about audit, metrics, or other
// downstream concerns.
package plugin

import (
	"context"
)

// Plugin is the base interface that all plugins must implement.
type Plugin interface {
	Name() string
}

// ──────────────────────────────────────────────────
// Lifecycle hooks
// ──────────────────────────────────────────────────

// OnInit is called when the plugin is initialized.
type OnInit interface {
	Plugin
	OnInit(ctx context.Context, book interface{}) error
}

// OnShutdown is called when the plugin is shutting down.
type OnShutdown interface {
	Plugin
	OnShutdown(ctx context.Context) error
}

// ──────────────────────────────────────────────────
// Posting hooks
// ──────────────────────────────────────────────────

// OnTransactionPosted is called after a transaction is durably posted.
type OnTransactionPosted interface {
	Plugin
	OnTransactionPosted(ctx context.Context, txn interface{}) error
}

// OnTransactionRejected is called when posting fails validation.
type OnTransactionRejected interface {
	Plugin
	OnTransactionRejected(ctx context.Context, reason error) error
}

// ──────────────────────────────────────────────────
// Void hooks
// ──────────────────────────────────────────────────

// OnTransactionVoided is called after a voiding transaction is posted.
type OnTransactionVoided interface {
	Plugin
	OnTransactionVoided(ctx context.Context, original, voiding interface{}) error
}

// ──────────────────────────────────────────────────
// Query hooks
// ──────────────────────────────────────────────────

// OnEvidenceQueried is called after a filter_by_related_objects-style query runs.
type OnEvidenceQueried interface {
	Plugin
	OnEvidenceQueried(ctx context.Context, matchType string, evidenceCount, resultCount int) error
}

// ──────────────────────────────────────────────────
// Rebuild hooks
// ──────────────────────────────────────────────────

// OnBalancesRebuilding is called before a rebuild acquires its locks.
type OnBalancesRebuilding interface {
	Plugin
	OnBalancesRebuilding(ctx context.Context) error
}

// OnBalancesRebuilt is called after a rebuild commits.
type OnBalancesRebuilt interface {
	Plugin
	OnBalancesRebuilt(ctx context.Context, rowsWritten int) error
}
