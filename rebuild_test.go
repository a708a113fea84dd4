package ledger_test

import (
	"context"
	"testing"

	"github.com/xraph/ledger"
)

func TestRebuildLedgerBalances_MatchesIncrementalBalances(t *testing.T) {
	book, ar, revenue := newTestBook(t)
	ctx := context.Background()

	order1 := ledger.EvidenceItem{TypeTag: "order", ID: 1}
	order2 := ledger.EvidenceItem{TypeTag: "order", ID: 2}

	postBalanced(t, book, ar, revenue, 100, order1)
	postBalanced(t, book, ar, revenue, 50, order1, order2)
	postBalanced(t, book, ar, revenue, 25, order2)

	before, err := book.GetBalancesForObject(ctx, order1)
	if err != nil {
		t.Fatal(err)
	}

	rows, err := book.RebuildLedgerBalances(ctx)
	if err != nil {
		t.Fatalf("RebuildLedgerBalances: %v", err)
	}
	if rows == 0 {
		t.Fatal("expected rebuild to write at least one balance row")
	}

	after, err := book.GetBalancesForObject(ctx, order1)
	if err != nil {
		t.Fatal(err)
	}

	if len(before) != len(after) {
		t.Fatalf("ledger count for order1 changed after rebuild: before=%d after=%d", len(before), len(after))
	}
	for ledgerID, wantBal := range before {
		gotBal, ok := after[ledgerID]
		if !ok {
			t.Fatalf("ledger %s missing from rebuilt balances", ledgerID)
		}
		if !gotBal.Equal(wantBal) {
			t.Fatalf("ledger %s balance changed after rebuild: before=%s after=%s", ledgerID, wantBal, gotBal)
		}
	}
}

func TestRebuildLedgerBalances_DiscardsEntriesWithNoEvidence(t *testing.T) {
	book, ar, revenue := newTestBook(t)
	ctx := context.Background()

	// No evidence supplied: this transaction contributes to GetLedgerBalance
	// (computed from the raw entry log) but not to any per-evidence balance.
	postBalanced(t, book, ar, revenue, 100)

	rows, err := book.RebuildLedgerBalances(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if rows != 0 {
		t.Fatalf("expected rebuild to write no balance rows for evidence-less entries, got %d", rows)
	}

	bal, err := book.GetLedgerBalance(ctx, ar.ID)
	if err != nil {
		t.Fatal(err)
	}
	if bal.IsZero() {
		t.Fatal("expected GetLedgerBalance to reflect the evidence-less entry")
	}
}
