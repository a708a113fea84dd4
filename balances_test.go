package ledger_test

import (
	"context"
	"testing"

	"github.com/xraph/ledger"
)

func TestGetBalancesForObject_AccumulatesAcrossTransactions(t *testing.T) {
	book, ar, revenue := newTestBook(t)
	ctx := context.Background()

	order1 := ledger.EvidenceItem{TypeTag: "order", ID: 1}

	postBalanced(t, book, ar, revenue, 100, order1)
	postBalanced(t, book, ar, revenue, 50, order1)

	balances, err := book.GetBalancesForObject(ctx, order1)
	if err != nil {
		t.Fatal(err)
	}

	wantAR, _ := book.Debit(ledger.NewAmountFromInt(150))
	wantRevenue, _ := book.Credit(ledger.NewAmountFromInt(150))

	if got := balances[ar.ID]; !got.Equal(wantAR) {
		t.Fatalf("AR balance = %s, want %s", got, wantAR)
	}
	if got := balances[revenue.ID]; !got.Equal(wantRevenue) {
		t.Fatalf("Revenue balance = %s, want %s", got, wantRevenue)
	}
}

func TestGetBalancesForObject_AbsentLedgerTreatedAsZero(t *testing.T) {
	book, _, _ := newTestBook(t)
	ctx := context.Background()

	balances, err := book.GetBalancesForObject(ctx, ledger.EvidenceItem{TypeTag: "order", ID: 999})
	if err != nil {
		t.Fatal(err)
	}
	if len(balances) != 0 {
		t.Fatalf("expected no balance rows for an unreferenced evidence item, got %d", len(balances))
	}
}

func TestGetLedgerBalance_ComputedFromEntryLog(t *testing.T) {
	book, ar, revenue := newTestBook(t)
	ctx := context.Background()

	postBalanced(t, book, ar, revenue, 100)
	postBalanced(t, book, ar, revenue, 25)

	bal, err := book.GetLedgerBalance(ctx, ar.ID)
	if err != nil {
		t.Fatal(err)
	}
	want, _ := book.Debit(ledger.NewAmountFromInt(125))
	if !bal.Equal(want) {
		t.Fatalf("GetLedgerBalance(ar) = %s, want %s", bal, want)
	}
}
