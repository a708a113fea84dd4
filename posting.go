package ledger

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/xraph/ledger/accounting"
	"github.com/xraph/ledger/id"
	"github.com/xraph/ledger/store"
	"github.com/xraph/ledger/types"
)

// PostingInput describes a caller-supplied transaction to post.
type PostingInput struct {
	// CreatedBy identifies the user or process that initiated this posting.
	CreatedBy string

	// Evidence is the set of external domain objects this transaction
	// relates to. May be empty. Callers should deduplicate; the engine does
	// not reject duplicates but they become distinct links only where the
	// underlying uniqueness constraint permits.
	Evidence []accounting.EvidenceItem

	// Entries must be non-empty, unsaved, and sum to zero.
	Entries []accounting.LedgerEntry

	// Notes is free text, default empty.
	Notes string

	// Type defaults to the "Manual" type if zero.
	Type id.TransactionTypeID

	// PostedAt defaults to time.Now() if zero.
	PostedAt time.Time
}

// CreateTransaction validates and atomically posts a balanced transaction,
// updating LedgerBalance and linking evidence.
func (b *Book) CreateTransaction(ctx context.Context, in PostingInput) (*accounting.Transaction, error) {
	txn, err := b.postTransaction(ctx, in)
	if err != nil {
		b.plugins.EmitTransactionRejected(ctx, err)
		return nil, err
	}

	b.plugins.EmitTransactionPosted(ctx, txn)
	return txn, nil
}

// postTransaction validates in and posts it in a dedicated transaction.
func (b *Book) postTransaction(ctx context.Context, in PostingInput) (*accounting.Transaction, error) {
	ledgerIDs, err := validatePostingInput(in)
	if err != nil {
		return nil, err
	}

	var txn *accounting.Transaction
	err = b.store.WithTx(ctx, func(ctx context.Context, tx store.Tx) error {
		var err error
		txn, err = b.insertPosting(ctx, tx, in, ledgerIDs)
		return err
	})
	if err != nil {
		return nil, err
	}

	return txn, nil
}

// postTransactionInTx validates and writes in against a transaction the
// caller already holds, so the write can be combined atomically with
// further writes in the same WithTx call (VoidTransaction uses this to pair
// the compensating post with SetVoids).
func (b *Book) postTransactionInTx(ctx context.Context, tx store.Tx, in PostingInput) (*accounting.Transaction, error) {
	ledgerIDs, err := validatePostingInput(in)
	if err != nil {
		return nil, err
	}
	return b.insertPosting(ctx, tx, in, ledgerIDs)
}

// validatePostingInput checks in for postability and returns the sorted,
// deduplicated set of ledgers its entries touch.
func validatePostingInput(in PostingInput) ([]id.LedgerID, error) {
	if len(in.Entries) == 0 {
		return nil, ErrNoLedgerEntries
	}

	sum := types.Zero
	ledgerSet := make(map[id.LedgerID]bool)
	for _, e := range in.Entries {
		if e.IsSaved() {
			return nil, ErrExistingLedgerEntries
		}
		sum = sum.Add(e.Amount)
		ledgerSet[e.LedgerID] = true
	}
	if !sum.IsZero() {
		return nil, fmt.Errorf("%w: entries sum to %s", ErrTransactionBalance, sum)
	}

	ledgerIDs := make([]id.LedgerID, 0, len(ledgerSet))
	for lid := range ledgerSet {
		ledgerIDs = append(ledgerIDs, lid)
	}
	sort.Slice(ledgerIDs, func(i, j int) bool { return ledgerIDs[i].String() < ledgerIDs[j].String() })
	return ledgerIDs, nil
}

// insertPosting performs the writes for in against tx. ledgerIDs must be
// the sorted, deduplicated set of ledgers in.Entries touches.
func (b *Book) insertPosting(ctx context.Context, tx store.Tx, in PostingInput, ledgerIDs []id.LedgerID) (*accounting.Transaction, error) {
	// Acquire per-ledger locks in ascending id order.
	if err := tx.LockLedgers(ctx, ledgerIDs); err != nil {
		return nil, err
	}

	typeID := in.Type
	if typeID.IsNil() {
		t, err := tx.GetOrCreateTransactionType(ctx, accounting.ManualTransactionType, "Manually created transaction")
		if err != nil {
			return nil, err
		}
		typeID = t.ID
	}

	postedAt := in.PostedAt
	if postedAt.IsZero() {
		postedAt = time.Now()
	}

	txn := &accounting.Transaction{
		Entity:    types.NewEntity(),
		ID:        id.NewTransactionID(),
		CreatedBy: in.CreatedBy,
		Notes:     in.Notes,
		PostedAt:  postedAt,
		TypeID:    typeID,
	}

	// Insert the Transaction row.
	if err := tx.InsertTransaction(ctx, txn); err != nil {
		return nil, err
	}

	entries := make([]accounting.LedgerEntry, len(in.Entries))
	for i, e := range in.Entries {
		entries[i] = accounting.LedgerEntry{
			Entity:        types.NewEntity(),
			ID:            id.NewLedgerEntryID(),
			TransactionID: txn.ID,
			LedgerID:      e.LedgerID,
			Amount:        e.Amount,
		}
	}

	// Atomic per-(ledger, evidence) balance upsert.
	for _, e := range entries {
		for _, ev := range in.Evidence {
			if err := tx.UpsertLedgerBalance(ctx, e.LedgerID, ev, e.Amount); err != nil {
				return nil, err
			}
		}
	}

	// Bulk-insert entries.
	if err := tx.InsertLedgerEntries(ctx, entries); err != nil {
		return nil, err
	}

	// Bulk-insert evidence links.
	if len(in.Evidence) > 0 {
		links := make([]accounting.EvidenceLink, len(in.Evidence))
		for i, ev := range in.Evidence {
			links[i] = accounting.EvidenceLink{TransactionID: txn.ID, EvidenceItem: ev}
		}
		if err := tx.InsertEvidenceLinks(ctx, links); err != nil {
			return nil, err
		}
	}

	txn.Entries = entries
	txn.Evidence = in.Evidence
	return txn, nil
}
