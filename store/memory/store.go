// Package memory provides an in-memory store.Store implementation, used for
// tests and for embedders who don't need durability.
package memory

import (
	"context"
	"sort"
	"strconv"
	"sync"

	"github.com/xraph/ledger/accounting"
	"github.com/xraph/ledger/id"
	"github.com/xraph/ledger/store"
	"github.com/xraph/ledger/types"
)

var _ store.Store = (*Store)(nil)

func balanceKey(ledgerID id.LedgerID, ev accounting.EvidenceItem) string {
	return ledgerID.String() + "|" + ev.TypeTag + "|" + strconv.FormatInt(ev.ID, 10)
}

// Store is a mutex-guarded in-memory implementation of store.Store. A
// single mutex serializes every WithTx call, which trivially satisfies the
// engine's locking contract (no two postings can interleave) at the cost of
// real concurrency — acceptable for tests and non-durable embedding.
type Store struct {
	mu sync.Mutex

	ledgers         map[string]*accounting.Ledger
	ledgersByNumber map[int64]string
	ledgersByName   map[string]string

	types       map[string]*accounting.TransactionType
	typesByName map[string]string

	transactions map[string]*accounting.Transaction
	entries      map[string][]accounting.LedgerEntry  // keyed by transaction id
	evidence     map[string][]accounting.EvidenceItem  // keyed by transaction id
	voidedBy     map[string]id.TransactionID           // keyed by the voided transaction id

	balances map[string]*accounting.LedgerBalance // keyed by balanceKey
}

// New creates an empty in-memory store.
func New() *Store {
	return &Store{
		ledgers:         make(map[string]*accounting.Ledger),
		ledgersByNumber: make(map[int64]string),
		ledgersByName:   make(map[string]string),
		types:           make(map[string]*accounting.TransactionType),
		typesByName:     make(map[string]string),
		transactions:    make(map[string]*accounting.Transaction),
		entries:         make(map[string][]accounting.LedgerEntry),
		evidence:        make(map[string][]accounting.EvidenceItem),
		voidedBy:        make(map[string]id.TransactionID),
		balances:        make(map[string]*accounting.LedgerBalance),
	}
}

// ──────────────────────────────────────────────────
// Ledger administration
// ──────────────────────────────────────────────────

func (s *Store) CreateLedger(_ context.Context, l *accounting.Ledger) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.ledgersByNumber[l.Number]; exists {
		return store.ErrAlreadyExists
	}
	if _, exists := s.ledgersByName[l.Name]; exists {
		return store.ErrAlreadyExists
	}

	s.ledgers[l.ID.String()] = l
	s.ledgersByNumber[l.Number] = l.ID.String()
	s.ledgersByName[l.Name] = l.ID.String()
	return nil
}

func (s *Store) GetLedger(_ context.Context, ledgerID id.LedgerID) (*accounting.Ledger, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, ok := s.ledgers[ledgerID.String()]
	if !ok {
		return nil, store.ErrLedgerNotFound
	}
	return l, nil
}

func (s *Store) GetLedgerByNumber(_ context.Context, number int64) (*accounting.Ledger, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key, ok := s.ledgersByNumber[number]
	if !ok {
		return nil, store.ErrLedgerNotFound
	}
	return s.ledgers[key], nil
}

func (s *Store) ListLedgers(_ context.Context) ([]*accounting.Ledger, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	result := make([]*accounting.Ledger, 0, len(s.ledgers))
	for _, l := range s.ledgers {
		result = append(result, l)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID.String() < result[j].ID.String() })
	return result, nil
}

// ──────────────────────────────────────────────────
// Transaction types
// ──────────────────────────────────────────────────

func (s *Store) GetOrCreateTransactionType(_ context.Context, name, description string) (*accounting.TransactionType, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getOrCreateTransactionTypeLocked(name, description)
}

func (s *Store) getOrCreateTransactionTypeLocked(name, description string) (*accounting.TransactionType, error) {
	if key, ok := s.typesByName[name]; ok {
		return s.types[key], nil
	}

	t := &accounting.TransactionType{
		Entity:      types.NewEntity(),
		ID:          id.NewTransactionTypeID(),
		Name:        name,
		Description: description,
	}
	s.types[t.ID.String()] = t
	s.typesByName[name] = t.ID.String()
	return t, nil
}

func (s *Store) GetTransactionType(_ context.Context, typeID id.TransactionTypeID) (*accounting.TransactionType, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.types[typeID.String()]
	if !ok {
		return nil, store.ErrNotFound
	}
	return t, nil
}

// ──────────────────────────────────────────────────
// Transactions
// ──────────────────────────────────────────────────

func (s *Store) GetTransaction(_ context.Context, txnID id.TransactionID) (*accounting.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.getTransactionLocked(txnID)
}

func (s *Store) getTransactionLocked(txnID id.TransactionID) (*accounting.Transaction, error) {
	t, ok := s.transactions[txnID.String()]
	if !ok {
		return nil, store.ErrTransactionNotFound
	}
	return s.hydrate(t), nil
}

// hydrate returns a copy of t with Entries, Evidence, and VoidedBy populated.
func (s *Store) hydrate(t *accounting.Transaction) *accounting.Transaction {
	cp := *t
	cp.Entries = append([]accounting.LedgerEntry(nil), s.entries[t.ID.String()]...)
	cp.Evidence = append([]accounting.EvidenceItem(nil), s.evidence[t.ID.String()]...)
	if voiding, ok := s.voidedBy[t.ID.String()]; ok {
		v := voiding
		cp.VoidedBy = &v
	}
	return &cp
}

func (s *Store) FilterByRelatedObjects(_ context.Context, evidence []accounting.EvidenceItem, match accounting.MatchType, opts store.QueryOptions) ([]*accounting.Transaction, error) {
	if !match.Valid() {
		return nil, store.ErrInvalidMatchType
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	want := make(map[accounting.EvidenceItem]bool, len(evidence))
	for _, e := range evidence {
		want[e] = true
	}

	ledgerFilter := make(map[string]bool, len(opts.LedgerIDs))
	for _, l := range opts.LedgerIDs {
		ledgerFilter[l.String()] = true
	}

	var result []*accounting.Transaction
	ids := make([]string, 0, len(s.transactions))
	for txnIDStr := range s.transactions {
		ids = append(ids, txnIDStr)
	}
	sort.Strings(ids)

	for _, txnIDStr := range ids {
		t := s.transactions[txnIDStr]

		if opts.NonVoidOnly {
			if t.Voids != nil {
				continue
			}
			if _, voided := s.voidedBy[txnIDStr]; voided {
				continue
			}
		}

		if len(ledgerFilter) > 0 {
			touches := false
			for _, e := range s.entries[txnIDStr] {
				if ledgerFilter[e.LedgerID.String()] {
					touches = true
					break
				}
			}
			if !touches {
				continue
			}
		}

		have := s.evidence[txnIDStr]
		if !matches(have, want, match) {
			continue
		}

		result = append(result, s.hydrate(t))
	}

	if opts.Offset > 0 {
		if opts.Offset >= len(result) {
			return nil, nil
		}
		result = result[opts.Offset:]
	}
	if opts.Limit > 0 && opts.Limit < len(result) {
		result = result[:opts.Limit]
	}

	return result, nil
}

func matches(have []accounting.EvidenceItem, want map[accounting.EvidenceItem]bool, match accounting.MatchType) bool {
	haveSet := make(map[accounting.EvidenceItem]bool, len(have))
	for _, e := range have {
		haveSet[e] = true
	}

	switch match {
	case accounting.MatchAny:
		if len(want) == 0 {
			return true
		}
		for e := range want {
			if haveSet[e] {
				return true
			}
		}
		return false
	case accounting.MatchAll:
		for e := range want {
			if !haveSet[e] {
				return false
			}
		}
		return true
	case accounting.MatchNone:
		for e := range want {
			if haveSet[e] {
				return false
			}
		}
		return true
	case accounting.MatchExact:
		if len(haveSet) != len(want) {
			return false
		}
		for e := range want {
			if !haveSet[e] {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// ──────────────────────────────────────────────────
// Balances
// ──────────────────────────────────────────────────

func (s *Store) GetBalancesForObject(_ context.Context, evidence accounting.EvidenceItem) (map[id.LedgerID]types.Amount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	result := make(map[id.LedgerID]types.Amount)
	for _, b := range s.balances {
		if b.EvidenceItem == evidence {
			result[b.LedgerID] = b.Balance
		}
	}
	return result, nil
}

func (s *Store) GetLedgerBalance(_ context.Context, ledgerID id.LedgerID) (types.Amount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	total := types.Zero
	for txnIDStr := range s.transactions {
		for _, e := range s.entries[txnIDStr] {
			if e.LedgerID == ledgerID {
				total = total.Add(e.Amount)
			}
		}
	}
	return total, nil
}

// ──────────────────────────────────────────────────
// Store management
// ──────────────────────────────────────────────────

func (s *Store) Migrate(_ context.Context) error { return nil }
func (s *Store) Ping(_ context.Context) error    { return nil }
func (s *Store) Close() error                    { return nil }

// ──────────────────────────────────────────────────
// WithTx / Tx
// ──────────────────────────────────────────────────

// WithTx locks the store for the duration of fn, giving fn exclusive access
// via a Tx bound to this store. There is no partial-commit path: if fn
// returns an error, the caller is responsible for not having made any
// change visible outside of what Tx's methods already wrote — in this
// memory store every Tx write is applied immediately, so a failing fn must
// occur before any Tx method is called (which is how the posting and void
// engines are structured: validate first, then write).
func (s *Store) WithTx(ctx context.Context, fn func(ctx context.Context, tx store.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return fn(ctx, &tx{s: s})
}

var _ store.Tx = (*tx)(nil)

type tx struct {
	s *Store
}

func (t *tx) LockLedgers(_ context.Context, ledgerIDs []id.LedgerID) error {
	for _, lid := range ledgerIDs {
		if _, ok := t.s.ledgers[lid.String()]; !ok {
			return store.ErrLedgerNotFound
		}
	}
	return nil
}

func (t *tx) LockAllLedgers(_ context.Context) ([]id.LedgerID, error) {
	ids := make([]id.LedgerID, 0, len(t.s.ledgers))
	for _, l := range t.s.ledgers {
		ids = append(ids, l.ID)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })
	return ids, nil
}

func (t *tx) GetOrCreateTransactionType(_ context.Context, name, description string) (*accounting.TransactionType, error) {
	return t.s.getOrCreateTransactionTypeLocked(name, description)
}

func (t *tx) GetTransaction(_ context.Context, txnID id.TransactionID) (*accounting.Transaction, error) {
	return t.s.getTransactionLocked(txnID)
}

func (t *tx) InsertTransaction(_ context.Context, txn *accounting.Transaction) error {
	t.s.transactions[txn.ID.String()] = txn
	return nil
}

func (t *tx) SetVoids(_ context.Context, txnID, target id.TransactionID) error {
	if _, exists := t.s.voidedBy[target.String()]; exists {
		return store.ErrAlreadyVoided
	}

	txn, ok := t.s.transactions[txnID.String()]
	if !ok {
		return store.ErrTransactionNotFound
	}
	v := target
	txn.Voids = &v
	t.s.voidedBy[target.String()] = txnID
	return nil
}

func (t *tx) InsertLedgerEntries(_ context.Context, entries []accounting.LedgerEntry) error {
	for _, e := range entries {
		key := e.TransactionID.String()
		t.s.entries[key] = append(t.s.entries[key], e)
	}
	return nil
}

func (t *tx) InsertEvidenceLinks(_ context.Context, links []accounting.EvidenceLink) error {
	for _, l := range links {
		key := l.TransactionID.String()
		t.s.evidence[key] = append(t.s.evidence[key], l.EvidenceItem)
	}
	return nil
}

func (t *tx) UpsertLedgerBalance(_ context.Context, ledgerID id.LedgerID, evidence accounting.EvidenceItem, delta types.Amount) error {
	key := balanceKey(ledgerID, evidence)
	if b, ok := t.s.balances[key]; ok {
		b.Balance = b.Balance.Add(delta)
		b.Touch()
		return nil
	}
	t.s.balances[key] = &accounting.LedgerBalance{
		Entity:       types.NewEntity(),
		LedgerID:     ledgerID,
		EvidenceItem: evidence,
		Balance:      delta,
	}
	return nil
}

func (t *tx) TruncateLedgerBalances(_ context.Context) error {
	t.s.balances = make(map[string]*accounting.LedgerBalance)
	return nil
}

func (t *tx) InsertRebuiltBalances(_ context.Context) (int, error) {
	totals := make(map[string]*accounting.LedgerBalance)

	for txnIDStr, txn := range t.s.transactions {
		evs := t.s.evidence[txnIDStr]
		if len(evs) == 0 {
			// Entries with no evidence links contribute nothing to
			// LedgerBalance; discarded per the rebuild's NULL-evidence rule.
			continue
		}
		for _, e := range t.s.entries[txnIDStr] {
			for _, ev := range evs {
				key := balanceKey(e.LedgerID, ev)
				if b, ok := totals[key]; ok {
					b.Balance = b.Balance.Add(e.Amount)
				} else {
					totals[key] = &accounting.LedgerBalance{
						Entity:       types.NewEntity(),
						LedgerID:     e.LedgerID,
						EvidenceItem: ev,
						Balance:      e.Amount,
					}
				}
			}
		}
		_ = txn
	}

	t.s.balances = totals
	return len(totals), nil
}
