package ledger

import (
	"context"

	"github.com/xraph/ledger/accounting"
	"github.com/xraph/ledger/id"
	"github.com/xraph/ledger/store"
)

// QueryOption narrows a FilterByRelatedObjects call. Options compose: a
// call can combine NonVoid with a ledger restriction without losing
// distinctness guarantees.
type QueryOption func(*store.QueryOptions)

// NonVoid restricts a query to transactions that are neither a void nor
// voided.
func NonVoid() QueryOption {
	return func(o *store.QueryOptions) { o.NonVoidOnly = true }
}

// InLedgers restricts a query to transactions with at least one entry
// against one of the given ledgers.
func InLedgers(ledgerIDs ...id.LedgerID) QueryOption {
	return func(o *store.QueryOptions) { o.LedgerIDs = append(o.LedgerIDs, ledgerIDs...) }
}

// Limit caps the number of transactions returned.
func Limit(n int) QueryOption {
	return func(o *store.QueryOptions) { o.Limit = n }
}

// Offset skips the first n matching transactions.
func Offset(n int) QueryOption {
	return func(o *store.QueryOptions) { o.Offset = n }
}

// FilterByRelatedObjects returns the transactions whose evidence set
// satisfies match relative to evidence, optionally narrowed by opts.
func (b *Book) FilterByRelatedObjects(ctx context.Context, evidence []accounting.EvidenceItem, match accounting.MatchType, opts ...QueryOption) ([]*accounting.Transaction, error) {
	if !match.Valid() {
		return nil, ErrInvalidMatchType
	}

	var o store.QueryOptions
	for _, opt := range opts {
		opt(&o)
	}

	txns, err := b.store.FilterByRelatedObjects(ctx, evidence, match, o)
	if err != nil {
		return nil, err
	}

	b.plugins.EmitEvidenceQueried(ctx, match.String(), len(evidence), len(txns))
	return txns, nil
}
