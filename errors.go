package ledger

import (
	"errors"
	"fmt"

	"github.com/xraph/ledger/store"
	"github.com/xraph/ledger/types"
)

// Sentinel errors for the engine's validation and lifecycle failures.
var (
	// ErrTransactionBalance is returned when a transaction's entries do not sum to zero.
	ErrTransactionBalance = errors.New("ledger: transaction entries do not sum to zero")

	// ErrNoLedgerEntries is returned when posting is attempted with an empty entry list.
	ErrNoLedgerEntries = errors.New("ledger: transaction must have at least one entry")

	// ErrExistingLedgerEntries is returned when an entry passed to CreateTransaction already has an ID.
	ErrExistingLedgerEntries = errors.New("ledger: entries must be unsaved")

	// ErrUnvoidableTransaction is returned when voiding a transaction that is already voided.
	ErrUnvoidableTransaction = errors.New("ledger: transaction has already been voided")

	// ErrInvalidAmount is returned by Credit/Debit when given a negative
	// magnitude. It is the same sentinel types.Credit/types.Debit return, so
	// errors.Is(err, ErrInvalidAmount) holds whichever package produced err.
	ErrInvalidAmount = types.ErrInvalidAmount

	// ErrInvalidMatchType is returned when a query is given an unknown MatchType.
	ErrInvalidMatchType = errors.New("ledger: invalid match type")

	// ErrNotFound, ErrLedgerNotFound and ErrTransactionNotFound are the
	// root package's not-found sentinels. Book methods do not return them:
	// a missing entity surfaces as the store's own error (store.ErrNotFound,
	// store.ErrLedgerNotFound, store.ErrTransactionNotFound). IsNotFound
	// recognizes both sets.
	ErrNotFound = errors.New("ledger: not found")

	ErrLedgerNotFound = errors.New("ledger: ledger not found")

	ErrTransactionNotFound = errors.New("ledger: transaction not found")

	// ErrAlreadyExists names a uniqueness violation (ledger number/name, type
	// name). Book methods do not return it; a violation surfaces as the
	// store's own error (store.ErrAlreadyExists in the memory store).
	ErrAlreadyExists = errors.New("ledger: already exists")

	// ErrStoreClosed names an operation attempted after Close. No Book method
	// or store in this module returns it.
	ErrStoreClosed = errors.New("ledger: store is closed")
)

// ValidationError is a structured validation failure with field-level
// detail. The posting engine does not construct it: its failures are the
// sentinels above, ErrTransactionBalance wrapped with fmt.Errorf.
type ValidationError struct {
	Field   string
	Message string
	Err     error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("ledger: validation failed for %s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// IsNotFound reports whether err is, or wraps, a not-found error, including
// the store-layer sentinels returned directly by a Store/Tx implementation.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrLedgerNotFound) ||
		errors.Is(err, ErrTransactionNotFound) ||
		errors.Is(err, store.ErrNotFound) ||
		errors.Is(err, store.ErrLedgerNotFound) ||
		errors.Is(err, store.ErrTransactionNotFound)
}

// IsValidationError reports whether err is, or wraps, a posting validation error.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrTransactionBalance) ||
		errors.Is(err, ErrNoLedgerEntries) ||
		errors.Is(err, ErrExistingLedgerEntries) ||
		errors.Is(err, ErrInvalidAmount) ||
		errors.Is(err, ErrInvalidMatchType) ||
		errors.Is(err, store.ErrInvalidMatchType)
}

// IsAlreadyVoided reports whether err is, or wraps, the already-voided error,
// including the store-layer sentinel returned directly by a Store/Tx
// implementation.
func IsAlreadyVoided(err error) bool {
	return errors.Is(err, ErrUnvoidableTransaction) || errors.Is(err, store.ErrAlreadyVoided)
}
