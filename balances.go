package ledger

import (
	"context"

	"github.com/xraph/ledger/accounting"
	"github.com/xraph/ledger/id"
	"github.com/xraph/ledger/types"
)

// GetBalancesForObject returns a mapping from ledger to signed balance for
// evidence, covering only ledgers that have a LedgerBalance row for it.
// Absent ledgers must be treated as zero.
func (b *Book) GetBalancesForObject(ctx context.Context, evidence accounting.EvidenceItem) (map[id.LedgerID]types.Amount, error) {
	return b.store.GetBalancesForObject(ctx, evidence)
}

// GetLedgerBalance computes the signed sum of all entries in ledgerID,
// irrespective of evidence. Computed on demand, not denormalized.
func (b *Book) GetLedgerBalance(ctx context.Context, ledgerID id.LedgerID) (types.Amount, error) {
	return b.store.GetLedgerBalance(ctx, ledgerID)
}
