package ledger

import (
	"context"

	"github.com/xraph/ledger/store"
)

// RebuildLedgerBalances restores the entire LedgerBalance table from the
// ledger-entry log under a lock on every ledger. Use it to recover
// from a suspected denormalization bug, never as part of normal posting.
func (b *Book) RebuildLedgerBalances(ctx context.Context) (int, error) {
	b.plugins.EmitBalancesRebuilding(ctx)

	var rows int
	err := b.store.WithTx(ctx, func(ctx context.Context, tx store.Tx) error {
		// Lock every ledger in ascending id order, serializing
		// against every poster.
		if _, err := tx.LockAllLedgers(ctx); err != nil {
			return err
		}

		// Delete every row in LedgerBalance.
		if err := tx.TruncateLedgerBalances(ctx); err != nil {
			return err
		}

		// Recompute from the ledger-entry log, discarding groups
		// with no evidence link.
		n, err := tx.InsertRebuiltBalances(ctx)
		if err != nil {
			return err
		}
		rows = n
		return nil
	})
	if err != nil {
		return 0, err
	}

	b.plugins.EmitBalancesRebuilt(ctx, rows)
	return rows, nil
}
