package ledger_test

import (
	"context"
	"errors"
	"testing"

	"github.com/xraph/ledger"
)

func postBalanced(t *testing.T, book *ledger.Book, ar, revenue *ledger.Ledger, amount int64, evidence ...ledger.EvidenceItem) *ledger.Transaction {
	t.Helper()
	ctx := context.Background()

	credit, err := book.Credit(ledger.NewAmountFromInt(amount))
	if err != nil {
		t.Fatal(err)
	}
	debit, err := book.Debit(ledger.NewAmountFromInt(amount))
	if err != nil {
		t.Fatal(err)
	}

	txn, err := book.CreateTransaction(ctx, ledger.PostingInput{
		CreatedBy: "user_1",
		Evidence:  evidence,
		Entries: []ledger.LedgerEntry{
			{LedgerID: revenue.ID, Amount: credit},
			{LedgerID: ar.ID, Amount: debit},
		},
	})
	if err != nil {
		t.Fatalf("postBalanced: %v", err)
	}
	return txn
}

func TestVoidTransaction_PostsCompensatingEntries(t *testing.T) {
	book, ar, revenue := newTestBook(t)
	ctx := context.Background()

	txn := postBalanced(t, book, ar, revenue, 100, ledger.EvidenceItem{TypeTag: "order", ID: 1})

	voiding, err := book.VoidTransaction(ctx, txn, "user_2", ledger.VoidOptions{})
	if err != nil {
		t.Fatalf("VoidTransaction: %v", err)
	}
	if voiding.Voids == nil || *voiding.Voids != txn.ID {
		t.Fatalf("voiding transaction does not reference original: %+v", voiding.Voids)
	}
	if len(voiding.Entries) != len(txn.Entries) {
		t.Fatalf("expected %d compensating entries, got %d", len(txn.Entries), len(voiding.Entries))
	}

	byLedger := make(map[ledger.LedgerID]ledger.Amount, len(txn.Entries))
	for _, e := range txn.Entries {
		byLedger[e.LedgerID] = e.Amount
	}
	for _, e := range voiding.Entries {
		original, ok := byLedger[e.LedgerID]
		if !ok {
			t.Fatalf("voiding entry references unknown ledger %s", e.LedgerID)
		}
		if !e.Amount.Equal(original.Neg()) {
			t.Fatalf("expected voiding amount %s to negate %s", e.Amount, original)
		}
	}

	bal, err := book.GetLedgerBalance(ctx, ar.ID)
	if err != nil {
		t.Fatal(err)
	}
	if !bal.IsZero() {
		t.Fatalf("expected zero balance after void, got %s", bal)
	}
}

func TestVoidTransaction_DoubleVoidRejected(t *testing.T) {
	book, ar, revenue := newTestBook(t)
	ctx := context.Background()

	txn := postBalanced(t, book, ar, revenue, 50)

	if _, err := book.VoidTransaction(ctx, txn, "user_2", ledger.VoidOptions{}); err != nil {
		t.Fatalf("first void: %v", err)
	}

	// Re-fetch so IsVoided() reflects the now-set Voids/VoidedBy state is
	// not required here: txn itself was never mutated with VoidedBy, so
	// voiding the same in-memory struct again must still be rejected only
	// once the stored transaction is known to be voided. We fetch fresh.
	fresh, err := book.GetTransaction(ctx, txn.ID)
	if err != nil {
		t.Fatal(err)
	}

	if _, err := book.VoidTransaction(ctx, fresh, "user_2", ledger.VoidOptions{}); err == nil {
		t.Fatal("expected second void of the same transaction to fail")
	}
}

func TestVoidTransaction_VoidingAVoidingTransactionIsPermitted(t *testing.T) {
	book, ar, revenue := newTestBook(t)
	ctx := context.Background()

	txn := postBalanced(t, book, ar, revenue, 75)

	voiding, err := book.VoidTransaction(ctx, txn, "user_2", ledger.VoidOptions{})
	if err != nil {
		t.Fatalf("first void: %v", err)
	}

	reinstating, err := book.VoidTransaction(ctx, voiding, "user_3", ledger.VoidOptions{})
	if err != nil {
		t.Fatalf("expected voiding a voiding transaction to be permitted, got: %v", err)
	}
	if reinstating.Voids == nil || *reinstating.Voids != voiding.ID {
		t.Fatalf("reinstating transaction should reference the voiding transaction")
	}

	bal, err := book.GetLedgerBalance(ctx, ar.ID)
	if err != nil {
		t.Fatal(err)
	}
	want, _ := book.Debit(ledger.NewAmountFromInt(75))
	if !bal.Equal(want) {
		t.Fatalf("expected original effect reinstated (%s), got %s", want, bal)
	}
}

func TestVoidTransaction_AlreadyVoidedSentinel(t *testing.T) {
	book, ar, revenue := newTestBook(t)
	ctx := context.Background()

	txn := postBalanced(t, book, ar, revenue, 10)
	if _, err := book.VoidTransaction(ctx, txn, "user_2", ledger.VoidOptions{}); err != nil {
		t.Fatal(err)
	}

	freshOriginal, err := book.GetTransaction(ctx, txn.ID)
	if err != nil {
		t.Fatal(err)
	}
	if !freshOriginal.IsVoided() {
		t.Fatal("expected original transaction to report IsVoided() == true")
	}

	_, err = book.VoidTransaction(ctx, freshOriginal, "user_3", ledger.VoidOptions{})
	if !errors.Is(err, ledger.ErrUnvoidableTransaction) {
		t.Fatalf("expected ErrUnvoidableTransaction, got %v", err)
	}
}
