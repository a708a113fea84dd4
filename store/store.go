// Package store defines the storage capability the bookkeeping engine
// requires: primary-keyed tables with unique constraints, row-level
// SELECT ... FOR UPDATE locking, atomic UPDATE with affected-row counts,
// multi-row INSERT, and a scoped transaction boundary.
package store

import (
	"context"

	"github.com/xraph/ledger/accounting"
	"github.com/xraph/ledger/id"
	"github.com/xraph/ledger/types"
)

// QueryOptions narrows an evidence-based transaction query so that the
// match-type predicate composes with other restrictions (e.g. "only
// non-void transactions", "only transactions touching these ledgers")
// without the caller losing the distinctness guarantees of the underlying
// query.
type QueryOptions struct {
	// NonVoidOnly restricts the result to transactions that are neither a
	// void nor voided (Voids IS NULL AND VoidedBy IS NULL).
	NonVoidOnly bool

	// LedgerIDs, if non-empty, restricts the result to transactions with at
	// least one entry against one of these ledgers.
	LedgerIDs []id.LedgerID

	Limit  int
	Offset int
}

// Store is the unified storage interface for the bookkeeping engine.
type Store interface {
	// WithTx runs fn within a single storage-layer transaction, committing
	// on success and rolling back on any error returned by fn or any panic
	// that escapes it.
	WithTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error

	// Ledger administration. The engine never deletes ledgers.
	CreateLedger(ctx context.Context, l *accounting.Ledger) error
	GetLedger(ctx context.Context, ledgerID id.LedgerID) (*accounting.Ledger, error)
	GetLedgerByNumber(ctx context.Context, number int64) (*accounting.Ledger, error)
	ListLedgers(ctx context.Context) ([]*accounting.Ledger, error)

	// GetOrCreateTransactionType implements the lazy get-or-create
	// provisioning required for the default "Manual" type, safe under
	// concurrent first use via the unique constraint on Name.
	GetOrCreateTransactionType(ctx context.Context, name, description string) (*accounting.TransactionType, error)
	GetTransactionType(ctx context.Context, typeID id.TransactionTypeID) (*accounting.TransactionType, error)

	// GetTransaction returns a transaction with its Entries, Evidence, and
	// VoidedBy populated.
	GetTransaction(ctx context.Context, txnID id.TransactionID) (*accounting.Transaction, error)

	// FilterByRelatedObjects implements the evidence query engine.
	// ANY/ALL/NONE must compose into a single predicate (constant query
	// count in len(evidence)); EXACT may issue O(len(evidence)) queries.
	FilterByRelatedObjects(ctx context.Context, evidence []accounting.EvidenceItem, match accounting.MatchType, opts QueryOptions) ([]*accounting.Transaction, error)

	// GetBalancesForObject returns the LedgerBalance rows for a single
	// evidence item, keyed by ledger. Missing ledgers mean zero.
	GetBalancesForObject(ctx context.Context, evidence accounting.EvidenceItem) (map[id.LedgerID]types.Amount, error)

	// GetLedgerBalance computes the signed sum of all entries in a ledger
	// on demand (not denormalized), irrespective of evidence.
	GetLedgerBalance(ctx context.Context, ledgerID id.LedgerID) (types.Amount, error)

	Migrate(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}

// Tx is the scoped set of operations available to a WithTx callback: row
// locking, inserts, and the atomic balance upsert the posting engine and
// rebuild rely on.
type Tx interface {
	// LockLedgers acquires row-level write locks on the given ledgers in
	// ascending id order — required to avoid deadlocks between two callers
	// posting to overlapping ledger sets.
	LockLedgers(ctx context.Context, ledgerIDs []id.LedgerID) error

	// LockAllLedgers acquires row-level write locks on every ledger row in
	// ascending id order, serializing the caller against every poster.
	// It returns every locked ledger id.
	LockAllLedgers(ctx context.Context) ([]id.LedgerID, error)

	GetOrCreateTransactionType(ctx context.Context, name, description string) (*accounting.TransactionType, error)

	// GetTransaction returns a transaction with its Entries, Evidence, and
	// VoidedBy populated, for use inside a caller-managed transaction (e.g.
	// the void engine's precondition check).
	GetTransaction(ctx context.Context, txnID id.TransactionID) (*accounting.Transaction, error)

	// InsertTransaction inserts the Transaction row. The caller is
	// responsible for generating its ID beforehand.
	InsertTransaction(ctx context.Context, txn *accounting.Transaction) error

	// SetVoids sets txnID's Voids column to point at target. The store must
	// enforce the one-to-one constraint (a unique index on Voids).
	SetVoids(ctx context.Context, txnID, target id.TransactionID) error

	// InsertLedgerEntries bulk-inserts entries already carrying fresh IDs.
	InsertLedgerEntries(ctx context.Context, entries []accounting.LedgerEntry) error

	// InsertEvidenceLinks bulk-inserts evidence links for a transaction.
	InsertEvidenceLinks(ctx context.Context, links []accounting.EvidenceLink) error

	// UpsertLedgerBalance atomically increments the (ledger, evidence)
	// balance row by delta, creating it with an initial balance of delta if
	// absent (UPDATE-then-INSERT). The caller must already
	// hold the ledger's lock via LockLedgers.
	UpsertLedgerBalance(ctx context.Context, ledgerID id.LedgerID, evidence accounting.EvidenceItem, delta types.Amount) error

	// TruncateLedgerBalances deletes every row in LedgerBalance.
	TruncateLedgerBalances(ctx context.Context) error

	// InsertRebuiltBalances bulk-inserts the recomputed balance rows via a
	// raw aggregate over LedgerEntry/Transaction/EvidenceLink, discarding
	// groups with NULL evidence.
	// It returns the number of rows written.
	InsertRebuiltBalances(ctx context.Context) (int, error)
}
