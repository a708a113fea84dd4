package ledger_test

import (
	"context"
	"errors"
	"testing"

	"github.com/xraph/ledger"
	"github.com/xraph/ledger/id"
	"github.com/xraph/ledger/store/memory"
)

func newTestBook(t *testing.T) (*ledger.Book, *ledger.Ledger, *ledger.Ledger) {
	t.Helper()

	store := memory.New()
	book := ledger.New(store)

	ctx := context.Background()
	if err := book.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(func() { book.Stop() })

	ar := &ledger.Ledger{Number: 1000, Name: "Accounts Receivable", IncreasedByDebits: true}
	revenue := &ledger.Ledger{Number: 4000, Name: "Revenue", IncreasedByDebits: false}
	if err := book.CreateLedger(ctx, ar); err != nil {
		t.Fatalf("CreateLedger(ar): %v", err)
	}
	if err := book.CreateLedger(ctx, revenue); err != nil {
		t.Fatalf("CreateLedger(revenue): %v", err)
	}
	return book, ar, revenue
}

func TestCreateTransaction_Balanced(t *testing.T) {
	book, ar, revenue := newTestBook(t)
	ctx := context.Background()

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
		CreatedBy: "user_1",
		Evidence:  []ledger.EvidenceItem{{TypeTag: "order", ID: 1}},
		Entries: []ledger.LedgerEntry{
			{LedgerID: revenue.ID, Amount: credit},
			{LedgerID: ar.ID, Amount: debit},
		},
	})
	if err != nil {
		t.Fatalf("CreateTransaction: %v", err)
	}
	if txn.ID.IsNil() {
		t.Fatal("expected transaction to have an assigned ID")
	}
	if len(txn.Entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(txn.Entries))
	}
	for _, e := range txn.Entries {
		if e.ID.IsNil() || e.TransactionID != txn.ID {
			t.Fatalf("entry not properly linked to transaction: %+v", e)
		}
	}

	got, err := book.GetTransaction(ctx, txn.ID)
	if err != nil {
		t.Fatalf("GetTransaction: %v", err)
	}
	if len(got.Evidence) != 1 || got.Evidence[0].TypeTag != "order" || got.Evidence[0].ID != 1 {
		t.Fatalf("unexpected evidence on fetched transaction: %+v", got.Evidence)
	}
}

func TestCreateTransaction_Unbalanced(t *testing.T) {
	book, ar, revenue := newTestBook(t)
	ctx := context.Background()

	credit, _ := book.Credit(ledger.NewAmountFromInt(100))
	debit, _ := book.Debit(ledger.NewAmountFromInt(50))

	_, err := book.CreateTransaction(ctx, ledger.PostingInput{
		CreatedBy: "user_1",
		Entries: []ledger.LedgerEntry{
			{LedgerID: revenue.ID, Amount: credit},
			{LedgerID: ar.ID, Amount: debit},
		},
	})
	if !errors.Is(err, ledger.ErrTransactionBalance) {
		t.Fatalf("expected ErrTransactionBalance, got %v", err)
	}
}

func TestCreateTransaction_NoEntries(t *testing.T) {
	book, _, _ := newTestBook(t)
	ctx := context.Background()

	_, err := book.CreateTransaction(ctx, ledger.PostingInput{CreatedBy: "user_1"})
	if !errors.Is(err, ledger.ErrNoLedgerEntries) {
		t.Fatalf("expected ErrNoLedgerEntries, got %v", err)
	}
}

func TestCreateTransaction_ExistingEntryIDRejected(t *testing.T) {
	book, ar, revenue := newTestBook(t)
	ctx := context.Background()

	credit, _ := book.Credit(ledger.NewAmountFromInt(10))
	debit, _ := book.Debit(ledger.NewAmountFromInt(10))

	entry := ledger.LedgerEntry{LedgerID: revenue.ID, Amount: credit}

	saved := ledger.LedgerEntry{LedgerID: ar.ID, Amount: debit}
	saved.ID = id.NewLedgerEntryID()

	_, err := book.CreateTransaction(ctx, ledger.PostingInput{
		CreatedBy: "user_1",
		Entries:   []ledger.LedgerEntry{entry, saved},
	})
	if !errors.Is(err, ledger.ErrExistingLedgerEntries) {
		t.Fatalf("expected ErrExistingLedgerEntries, got %v", err)
	}
}

func TestCreateTransaction_DefaultsToManualType(t *testing.T) {
	book, ar, revenue := newTestBook(t)
	ctx := context.Background()

	credit, _ := book.Credit(ledger.NewAmountFromInt(25))
	debit, _ := book.Debit(ledger.NewAmountFromInt(25))

	txn, err := book.CreateTransaction(ctx, ledger.PostingInput{
		CreatedBy: "user_1",
		Entries: []ledger.LedgerEntry{
			{LedgerID: revenue.ID, Amount: credit},
			{LedgerID: ar.ID, Amount: debit},
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	if txn.TypeID.IsNil() {
		t.Fatal("expected a default transaction type to be assigned")
	}
}
