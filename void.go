package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/xraph/ledger/accounting"
	"github.com/xraph/ledger/id"
	"github.com/xraph/ledger/store"
)

// VoidOptions overrides the defaults VoidTransaction otherwise derives
// from the transaction being voided.
type VoidOptions struct {
	Notes    string
	Type     id.TransactionTypeID
	PostedAt time.Time
}

// VoidTransaction posts a new transaction that negates every entry of txn
// and back-references it, enforcing the one-to-one void invariant.
// Voiding a voiding transaction is permitted and reinstates the original
// effect.
func (b *Book) VoidTransaction(ctx context.Context, txn *accounting.Transaction, createdBy string, opts VoidOptions) (*accounting.Transaction, error) {
	if txn.IsVoided() {
		return nil, ErrUnvoidableTransaction
	}

	notes := opts.Notes
	if notes == "" {
		notes = fmt.Sprintf("Voiding transaction %s", txn.ID)
	}

	typeID := opts.Type
	if typeID.IsNil() {
		typeID = txn.TypeID
	}

	postedAt := opts.PostedAt
	if postedAt.IsZero() {
		postedAt = txn.PostedAt
	}

	negated := make([]accounting.LedgerEntry, len(txn.Entries))
	for i, e := range txn.Entries {
		negated[i] = accounting.LedgerEntry{
			LedgerID: e.LedgerID,
			Amount:   e.Amount.Neg(),
		}
	}

	in := PostingInput{
		CreatedBy: createdBy,
		Evidence:  txn.Evidence,
		Entries:   negated,
		Notes:     notes,
		Type:      typeID,
		PostedAt:  postedAt,
	}

	// The compensating post and the voids link must commit or fail as one
	// unit: a compensating transaction with no voids link is an orphan that
	// double-negates balances and is misclassified by NonVoid/GetLedgerBalance.
	var voiding *accounting.Transaction
	err := b.store.WithTx(ctx, func(ctx context.Context, tx store.Tx) error {
		// Re-check inside the transaction: txn may be a stale copy of a
		// transaction that was voided after the caller loaded it.
		current, err := tx.GetTransaction(ctx, txn.ID)
		if err != nil {
			return err
		}
		if current.IsVoided() {
			return ErrUnvoidableTransaction
		}
		v, err := b.postTransactionInTx(ctx, tx, in)
		if err != nil {
			return err
		}
		if err := tx.SetVoids(ctx, v.ID, txn.ID); err != nil {
			return err
		}
		voiding = v
		return nil
	})
	if err != nil {
		b.plugins.EmitTransactionRejected(ctx, err)
		return nil, err
	}

	target := txn.ID
	voiding.Voids = &target

	b.plugins.EmitTransactionVoided(ctx, txn, voiding)
	return voiding, nil
}
