package ledger

import (
	"github.com/xraph/ledger/accounting"
	"github.com/xraph/ledger/id"
	"github.com/xraph/ledger/types"
)

// Re-export commonly used types so callers don't have to import the types
// and accounting packages directly for everyday use.

// Amount is re-exported from the types package.
type Amount = types.Amount

// Entity is re-exported from the types package.
type Entity = types.Entity

// SignConvention is re-exported from the types package.
type SignConvention = types.SignConvention

// Entity model, re-exported from the accounting package.
type (
	Ledger          = accounting.Ledger
	TransactionType = accounting.TransactionType
	Transaction     = accounting.Transaction
	LedgerEntry     = accounting.LedgerEntry
	EvidenceItem    = accounting.EvidenceItem
	EvidenceLink    = accounting.EvidenceLink
	LedgerBalance   = accounting.LedgerBalance
	MatchType       = accounting.MatchType
)

// Identifiers, re-exported from the id package.
type (
	LedgerID          = id.LedgerID
	TransactionID     = id.TransactionID
	LedgerEntryID     = id.LedgerEntryID
	TransactionTypeID = id.TransactionTypeID
)

// MatchType constants, re-exported from the accounting package.
const (
	MatchAny   = accounting.MatchAny
	MatchAll   = accounting.MatchAll
	MatchNone  = accounting.MatchNone
	MatchExact = accounting.MatchExact
)

// ManualTransactionType is re-exported from the accounting package.
const ManualTransactionType = accounting.ManualTransactionType

// Re-export Amount constructors and the sign-convention default.
var (
	Zero                  = types.Zero
	NewAmount             = types.NewAmount
	ParseAmount           = types.ParseAmount
	NewAmountFromInt      = types.NewAmountFromInt
	Sum                   = types.Sum
	DefaultSignConvention = types.DefaultSignConvention
)

// Credit and Debit are re-exported from the types package as the engine's
// public sign helpers.
var (
	Credit = types.Credit
	Debit  = types.Debit
)

// NewEntity is re-exported from the types package.
var NewEntity = types.NewEntity
