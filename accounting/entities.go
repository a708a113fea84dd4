// Package accounting defines the entity model shared by the engine's root
// package and its store implementations: Ledger, TransactionType,
// Transaction, LedgerEntry, EvidenceItem, EvidenceLink, and LedgerBalance.
//
// It lives in its own package (rather than the root ledger package) so
// that store/* can depend on these shapes without an import cycle back to
// the root package, mirroring how the rest of this codebase keeps
// per-entity shapes in their own packages.
package accounting

import (
	"fmt"
	"time"

	"github.com/xraph/ledger/id"
	"github.com/xraph/ledger/types"
)

// ManualTransactionType is the name of the distinguished default
// TransactionType, lazily provisioned on first use.
const ManualTransactionType = "Manual"

// Ledger is an account: a named bucket of signed amounts. Ledgers are
// created by the embedder and are never deleted by the engine.
type Ledger struct {
	types.Entity

	ID                id.LedgerID `bun:"id,pk" json:"id"`
	Number            int64       `bun:"number,unique,notnull" json:"number"`
	Name              string      `bun:"name,unique,notnull" json:"name"`
	Description       string      `bun:"description" json:"description"`

	// IncreasedByDebits is the account-type polarity flag: true for
	// asset/expense accounts (a debit increases the balance), false for
	// liability/equity/revenue accounts (a credit increases the balance).
	IncreasedByDebits bool `bun:"increased_by_debits,notnull" json:"increased_by_debits"`
}

// TransactionType is a user-defined grouping tag for transactions, such as
// the distinguished default "Manual" type.
type TransactionType struct {
	types.Entity

	ID          id.TransactionTypeID `bun:"id,pk" json:"id"`
	Name        string               `bun:"name,unique,notnull" json:"name"`
	Description string               `bun:"description" json:"description"`
}

// EvidenceItem identifies an external domain object opaquely by a type tag
// and a positive numeric id. The engine never interprets TypeTag.
type EvidenceItem struct {
	TypeTag string `bun:"evidence_type_tag,notnull" json:"type_tag"`
	ID      int64  `bun:"evidence_id,notnull" json:"id"`
}

// String renders the evidence item for diagnostics and default void notes.
func (e EvidenceItem) String() string {
	return fmt.Sprintf("%s#%d", e.TypeTag, e.ID)
}

// Transaction is one balanced financial event: a set of LedgerEntry rows
// whose amounts sum to zero, linked to zero or more evidence items.
type Transaction struct {
	types.Entity

	ID        id.TransactionID     `bun:"id,pk" json:"id"`
	CreatedBy string               `bun:"created_by,notnull" json:"created_by"`
	Notes     string               `bun:"notes" json:"notes"`
	PostedAt  time.Time            `bun:"posted_at,notnull" json:"posted_at"`
	TypeID    id.TransactionTypeID `bun:"type_id,notnull" json:"type_id"`

	// Voids references the Transaction this one voids, if any. It is
	// one-to-one: no two transactions may void the same target.
	Voids *id.TransactionID `bun:"voids,nullzero" json:"voids,omitempty"`

	// VoidedBy is the inverse of Voids: the transaction that voids this one,
	// if any. It is populated on read paths that need it; it is not a
	// stored column (a unique index on Voids makes it derivable).
	VoidedBy *id.TransactionID `bun:"-" json:"voided_by,omitempty"`

	// Entries and Evidence are populated by the store on read paths that
	// need them; they are not authoritative columns on this table.
	Entries  []LedgerEntry  `bun:"rel:has-many,join:id=transaction_id" json:"entries,omitempty"`
	Evidence []EvidenceItem `bun:"-" json:"evidence,omitempty"`
}

// IsVoided reports whether some other transaction has already voided t.
func (t *Transaction) IsVoided() bool {
	return t.VoidedBy != nil
}

// LedgerEntry is one signed amount against one Ledger inside one Transaction.
// Unsaved entries (ID.IsNil()) are accepted by the posting API;
// already-persisted entries are rejected (ErrExistingLedgerEntries).
type LedgerEntry struct {
	types.Entity

	ID            id.LedgerEntryID `bun:"id,pk" json:"id"`
	TransactionID id.TransactionID `bun:"transaction_id,notnull" json:"transaction_id"`
	LedgerID      id.LedgerID      `bun:"ledger_id,notnull" json:"ledger_id"`
	Amount        types.Amount     `bun:"amount,notnull,type:decimal(24,4)" json:"amount"`
}

// IsSaved reports whether this entry already has an assigned ID, meaning it
// cannot be reused as an input to CreateTransaction.
func (e LedgerEntry) IsSaved() bool {
	return !e.ID.IsNil()
}

// EvidenceLink is the many-to-many link row between a Transaction and an
// evidence item. (transaction_id, evidence_type_tag, evidence_id) is unique.
type EvidenceLink struct {
	TransactionID id.TransactionID `bun:"transaction_id,pk" json:"transaction_id"`
	EvidenceItem  `bun:"embed"`
}

// LedgerBalance is the denormalized running total for a (ledger, evidence)
// pair. (ledger_id, evidence_type_tag, evidence_id) is unique. A missing row
// means zero — callers must never assume a row exists.
type LedgerBalance struct {
	types.Entity

	LedgerID     id.LedgerID `bun:"ledger_id,pk" json:"ledger_id"`
	EvidenceItem `bun:"embed"`
	Balance      types.Amount `bun:"balance,notnull,type:decimal(24,4)" json:"balance"`
}

// MatchType selects the predicate used by FilterByRelatedObjects to compare
// a transaction's evidence set against a caller-supplied evidence set.
type MatchType int

const (
	// MatchAny selects transactions whose evidence intersects the query set.
	MatchAny MatchType = iota
	// MatchAll selects transactions whose evidence is a superset of the query set.
	MatchAll
	// MatchNone selects transactions whose evidence does not intersect the query set.
	MatchNone
	// MatchExact selects transactions whose evidence equals the query set exactly.
	MatchExact
)

// String renders the MatchType for logging and error messages.
func (m MatchType) String() string {
	switch m {
	case MatchAny:
		return "ANY"
	case MatchAll:
		return "ALL"
	case MatchNone:
		return "NONE"
	case MatchExact:
		return "EXACT"
	default:
		return fmt.Sprintf("MatchType(%d)", int(m))
	}
}

// Valid reports whether m is one of the four defined match types.
func (m MatchType) Valid() bool {
	switch m {
	case MatchAny, MatchAll, MatchNone, MatchExact:
		return true
	default:
		return false
	}
}
