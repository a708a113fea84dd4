// Package ledger is a double-entry bookkeeping engine: it records financial
// events as balanced, immutable transactions against a set of accounts
// ("ledgers") and maintains authoritative per-(ledger, evidence) balances.
//
// Applications embedding it supply their own domain objects as opaque
// "evidence" (orders, payments, invoices — a type tag plus a numeric id) and
// ask the engine to post, query, void, and rebuild ledger state. The engine
// does not interpret evidence, perform currency conversion, or schedule
// accruals.
//
// # Quick Start
//
// Create a Book with a store implementation:
//
//	import (
//	    "github.com/xraph/ledger"
//	    "github.com/xraph/ledger/store/postgres"
//	)
//
//	// db is an open *grove.DB using grove's Postgres driver.
//	store := postgres.New(db)
//
//	book := ledger.New(store)
//	if err := book.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer book.Stop()
//
// # Posting a balanced transaction
//
//	ar := &ledger.Ledger{Number: 1000, Name: "Accounts Receivable", IncreasedByDebits: true}
//	revenue := &ledger.Ledger{Number: 4000, Name: "Revenue", IncreasedByDebits: false}
//	book.CreateLedger(ctx, ar)
//	book.CreateLedger(ctx, revenue)
//
//	amount := ledger.NewAmountFromInt(100)
//	credit, _ := book.Credit(amount)
//	debit, _ := book.Debit(amount)
//
//	txn, err := book.CreateTransaction(ctx, ledger.PostingInput{
//	    CreatedBy: "user_42",
//	    Evidence:  []ledger.EvidenceItem{{TypeTag: "order", ID: 1}},
//	    Entries: []ledger.LedgerEntry{
//	        {LedgerID: revenue.ID, Amount: credit},
//	        {LedgerID: ar.ID, Amount: debit},
//	    },
//	})
//
// # Voiding
//
//	voiding, err := book.VoidTransaction(ctx, txn, "user_42", ledger.VoidOptions{})
//
// # Querying by evidence
//
//	txns, err := book.FilterByRelatedObjects(ctx, evidence, ledger.MatchAny)
//
// # Rebuilding balances
//
// RebuildLedgerBalances recomputes the entire LedgerBalance table from the
// ledger-entry log under a lock on every ledger; use it to recover from a
// suspected denormalization bug, never as part of normal posting flow.
//
//	if _, err := book.RebuildLedgerBalances(ctx); err != nil {
//	    log.Fatal(err)
//	}
//
// # Amounts
//
// All monetary calculations use github.com/shopspring/decimal fixed-point
// arithmetic rounded to 4 fractional digits with banker's rounding
// (round-half-to-even) — never floating point. See types.Amount.
//
// # TypeID
//
// Every identified entity uses a TypeID for a globally unique, type-safe,
// K-sortable identifier:
//
//	ldgr_01h2xcejqtf2nbrexx3vqjhp41  // Ledger ID
//	txn_01h455vb4pex5vsknk084sn02q   // Transaction ID
//
// # Integration
//
// Book integrates with the Forge extension ecosystem for dependency
// injection, with a plugin registry for lifecycle hooks (posted, voided,
// rebuilt, queried), and with pluggable audit and metrics extensions.
package ledger
