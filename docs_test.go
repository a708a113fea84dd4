package ledger_test

import (
	"context"
	"log/slog"
	"testing"

	"github.com/xraph/ledger"
	"github.com/xraph/ledger/store/memory"
)

// TestDocumentationExamples verifies that the examples in the package doc
// comment compile and behave as documented.
func TestDocumentationExamples(t *testing.T) {
	t.Run("QuickStartExample", func(t *testing.T) {
		store := memory.New()

		book := ledger.New(store, ledger.WithLogger(slog.Default()))

		ctx := context.Background()
		if err := book.Start(ctx); err != nil {
			t.Fatal(err)
		}
		defer book.Stop()

		ar := &ledger.Ledger{Number: 1000, Name: "Accounts Receivable", IncreasedByDebits: true}
		revenue := &ledger.Ledger{Number: 4000, Name: "Revenue", IncreasedByDebits: false}
		if err := book.CreateLedger(ctx, ar); err != nil {
			t.Fatal(err)
		}
		if err := book.CreateLedger(ctx, revenue); err != nil {
			t.Fatal(err)
		}

		amount := ledger.NewAmountFromInt(100)
		credit, err := book.Credit(amount)
		if err != nil {
			t.Fatal(err)
		}
		debit, err := book.Debit(amount)
		if err != nil {
			t.Fatal(err)
		}

		txn, err := book.CreateTransaction(ctx, ledger.PostingInput{
			CreatedBy: "user_42",
			Evidence:  []ledger.EvidenceItem{{TypeTag: "order", ID: 1}},
			Entries: []ledger.LedgerEntry{
				{LedgerID: revenue.ID, Amount: credit},
				{LedgerID: ar.ID, Amount: debit},
			},
		})
		if err != nil {
			t.Fatal(err)
		}

		voiding, err := book.VoidTransaction(ctx, txn, "user_42", ledger.VoidOptions{})
		if err != nil {
			t.Fatal(err)
		}
		if voiding.Voids == nil || *voiding.Voids != txn.ID {
			t.Fatalf("voiding transaction does not reference %s", txn.ID)
		}

		txns, err := book.FilterByRelatedObjects(ctx, []ledger.EvidenceItem{{TypeTag: "order", ID: 1}}, ledger.MatchAny)
		if err != nil {
			t.Fatal(err)
		}
		if len(txns) != 2 {
			t.Fatalf("expected 2 transactions (posting + void), got %d", len(txns))
		}

		if _, err := book.RebuildLedgerBalances(ctx); err != nil {
			t.Fatal(err)
		}
	})

	t.Run("AmountExamples", func(t *testing.T) {
		a := ledger.NewAmountFromInt(499)
		b, err := ledger.ParseAmount("0.9995")
		if err != nil {
			t.Fatal(err)
		}
		sum := a.Add(b)
		if sum.String() != "499.9995" {
			t.Fatalf("unexpected sum: %s", sum)
		}

		rounded, err := ledger.ParseAmount("499.99995")
		if err != nil {
			t.Fatal(err)
		}
		if rounded.String() != "500.0000" {
			t.Fatalf("expected banker's rounding to 500.0000, got %s", rounded)
		}
	})
}
