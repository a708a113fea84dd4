package store

import "errors"

// Sentinel errors returned by every Store/Tx implementation. The root
// package neither re-exports nor translates them: Book methods return them
// as the store produced them, and the root package's IsNotFound,
// IsValidationError and IsAlreadyVoided predicates recognize them.
var (
	ErrNotFound            = errors.New("store: not found")
	ErrLedgerNotFound      = errors.New("store: ledger not found")
	ErrTransactionNotFound = errors.New("store: transaction not found")
	ErrAlreadyExists       = errors.New("store: already exists")
	ErrInvalidMatchType    = errors.New("store: invalid match type")
	ErrAlreadyVoided       = errors.New("store: transaction has already been voided")
)
