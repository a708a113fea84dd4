package ledger_test

import (
	"context"
	"testing"

	"github.com/xraph/ledger"
)

func TestFilterByRelatedObjects_MatchTypes(t *testing.T) {
	book, ar, revenue := newTestBook(t)
	ctx := context.Background()

	order1 := ledger.EvidenceItem{TypeTag: "order", ID: 1}
	order2 := ledger.EvidenceItem{TypeTag: "order", ID: 2}
	invoice1 := ledger.EvidenceItem{TypeTag: "invoice", ID: 1}

	txnOrder1 := postBalanced(t, book, ar, revenue, 10, order1)
	txnBoth := postBalanced(t, book, ar, revenue, 20, order1, invoice1)
	txnOrder2 := postBalanced(t, book, ar, revenue, 30, order2)
	txnNone := postBalanced(t, book, ar, revenue, 40)

	t.Run("ANY", func(t *testing.T) {
		got, err := book.FilterByRelatedObjects(ctx, []ledger.EvidenceItem{order1}, ledger.MatchAny)
		if err != nil {
			t.Fatal(err)
		}
		assertContainsOnly(t, got, txnOrder1.ID, txnBoth.ID)
	})

	t.Run("ALL", func(t *testing.T) {
		got, err := book.FilterByRelatedObjects(ctx, []ledger.EvidenceItem{order1, invoice1}, ledger.MatchAll)
		if err != nil {
			t.Fatal(err)
		}
		assertContainsOnly(t, got, txnBoth.ID)
	})

	t.Run("NONE", func(t *testing.T) {
		got, err := book.FilterByRelatedObjects(ctx, []ledger.EvidenceItem{order1}, ledger.MatchNone)
		if err != nil {
			t.Fatal(err)
		}
		assertContainsOnly(t, got, txnOrder2.ID, txnNone.ID)
	})

	t.Run("EXACT", func(t *testing.T) {
		got, err := book.FilterByRelatedObjects(ctx, []ledger.EvidenceItem{order1}, ledger.MatchExact)
		if err != nil {
			t.Fatal(err)
		}
		assertContainsOnly(t, got, txnOrder1.ID)
	})

	t.Run("EXACT empty evidence matches transactions with no evidence", func(t *testing.T) {
		got, err := book.FilterByRelatedObjects(ctx, nil, ledger.MatchExact)
		if err != nil {
			t.Fatal(err)
		}
		assertContainsOnly(t, got, txnNone.ID)
	})
}

func TestFilterByRelatedObjects_InvalidMatchType(t *testing.T) {
	book, _, _ := newTestBook(t)
	ctx := context.Background()

	_, err := book.FilterByRelatedObjects(ctx, nil, ledger.MatchType(99))
	if err != ledger.ErrInvalidMatchType {
		t.Fatalf("expected ErrInvalidMatchType, got %v", err)
	}
}

func TestFilterByRelatedObjects_NonVoidOption(t *testing.T) {
	book, ar, revenue := newTestBook(t)
	ctx := context.Background()

	order1 := ledger.EvidenceItem{TypeTag: "order", ID: 1}
	txn := postBalanced(t, book, ar, revenue, 10, order1)

	voiding, err := book.VoidTransaction(ctx, txn, "user_2", ledger.VoidOptions{})
	if err != nil {
		t.Fatal(err)
	}

	all, err := book.FilterByRelatedObjects(ctx, []ledger.EvidenceItem{order1}, ledger.MatchAny)
	if err != nil {
		t.Fatal(err)
	}
	assertContainsOnly(t, all, txn.ID, voiding.ID)

	nonVoid, err := book.FilterByRelatedObjects(ctx, []ledger.EvidenceItem{order1}, ledger.MatchAny, ledger.NonVoid())
	if err != nil {
		t.Fatal(err)
	}
	if len(nonVoid) != 0 {
		t.Fatalf("expected NonVoid() to exclude both the voided original and its voiding transaction, got %d results", len(nonVoid))
	}
}

func assertContainsOnly(t *testing.T, got []*ledger.Transaction, want ...ledger.TransactionID) {
	t.Helper()

	if len(got) != len(want) {
		t.Fatalf("expected %d transactions, got %d (%v)", len(want), len(got), ids(got))
	}

	wantSet := make(map[ledger.TransactionID]bool, len(want))
	for _, id := range want {
		wantSet[id] = true
	}
	for _, txn := range got {
		if !wantSet[txn.ID] {
			t.Fatalf("unexpected transaction %s in result set %v", txn.ID, ids(got))
		}
	}
}

func ids(txns []*ledger.Transaction) []ledger.TransactionID {
	out := make([]ledger.TransactionID, len(txns))
	for i, txn := range txns {
		out[i] = txn.ID
	}
	return out
}
