package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/sqlitedriver"
	"github.com/xraph/grove/migrate"

	"github.com/xraph/ledger/accounting"
	"github.com/xraph/ledger/id"
	ledgerstore "github.com/xraph/ledger/store"
	"github.com/xraph/ledger/types"
)

var _ ledgerstore.Store = (*Store)(nil)

// Store implements ledgerstore.Store using SQLite via Grove ORM.
type Store struct {
	db  *grove.DB
	sdb *sqlitedriver.SqliteDB
}

// New creates a new SQLite store backed by Grove ORM.
func New(db *grove.DB) *Store {
	return &Store{db: db, sdb: sqlitedriver.Unwrap(db)}
}

// DB returns the underlying grove database for direct access.
func (s *Store) DB() *grove.DB { return s.db }

// Migrate creates the required tables and indexes using the grove orchestrator.
func (s *Store) Migrate(ctx context.Context) error {
	executor, err := migrate.NewExecutorFor(s.sdb)
	if err != nil {
		return fmt.Errorf("ledger/sqlite: create migration executor: %w", err)
	}
	orch := migrate.NewOrchestrator(executor, Migrations)
	if _, err := orch.Migrate(ctx); err != nil {
		return fmt.Errorf("ledger/sqlite: migration failed: %w", err)
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error { return s.db.Ping(ctx) }
func (s *Store) Close() error                   { return s.db.Close() }

// ──────────────────────────────────────────────────
// Ledger administration
// ──────────────────────────────────────────────────

func (s *Store) CreateLedger(ctx context.Context, l *accounting.Ledger) error {
	m := toLedgerModel(l)
	_, err := s.sdb.NewInsert(m).Exec(ctx)
	return err
}

func (s *Store) GetLedger(ctx context.Context, ledgerID id.LedgerID) (*accounting.Ledger, error) {
	m := new(ledgerModel)
	err := s.sdb.NewSelect(m).Where("id = ?", ledgerID.String()).Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, ledgerstore.ErrLedgerNotFound
		}
		return nil, err
	}
	return fromLedgerModel(m)
}

func (s *Store) GetLedgerByNumber(ctx context.Context, number int64) (*accounting.Ledger, error) {
	m := new(ledgerModel)
	err := s.sdb.NewSelect(m).Where("number = ?", number).Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, ledgerstore.ErrLedgerNotFound
		}
		return nil, err
	}
	return fromLedgerModel(m)
}

func (s *Store) ListLedgers(ctx context.Context) ([]*accounting.Ledger, error) {
	var models []ledgerModel
	if err := s.sdb.NewSelect(&models).OrderExpr("id ASC").Scan(ctx); err != nil {
		return nil, err
	}
	out := make([]*accounting.Ledger, 0, len(models))
	for i := range models {
		l, err := fromLedgerModel(&models[i])
		if err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, nil
}

// ──────────────────────────────────────────────────
// Transaction types
// ──────────────────────────────────────────────────

func (s *Store) GetOrCreateTransactionType(ctx context.Context, name, description string) (*accounting.TransactionType, error) {
	m := new(transactionTypeModel)
	err := s.sdb.NewSelect(m).Where("name = ?", name).Scan(ctx)
	if err == nil {
		return fromTransactionTypeModel(m)
	}
	if !isNoRows(err) {
		return nil, err
	}

	t := &accounting.TransactionType{
		Entity:      types.NewEntity(),
		ID:          id.NewTransactionTypeID(),
		Name:        name,
		Description: description,
	}
	_, err = s.sdb.NewInsert(toTransactionTypeModel(t)).
		OnConflict("(name) DO NOTHING").
		Exec(ctx)
	if err != nil {
		return nil, err
	}

	m = new(transactionTypeModel)
	if err := s.sdb.NewSelect(m).Where("name = ?", name).Scan(ctx); err != nil {
		return nil, err
	}
	return fromTransactionTypeModel(m)
}

func (s *Store) GetTransactionType(ctx context.Context, typeID id.TransactionTypeID) (*accounting.TransactionType, error) {
	m := new(transactionTypeModel)
	err := s.sdb.NewSelect(m).Where("id = ?", typeID.String()).Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, ledgerstore.ErrNotFound
		}
		return nil, err
	}
	return fromTransactionTypeModel(m)
}

// ──────────────────────────────────────────────────
// Transactions
// ──────────────────────────────────────────────────

func (s *Store) GetTransaction(ctx context.Context, txnID id.TransactionID) (*accounting.Transaction, error) {
	return getTransaction(ctx, s.sdb, txnID)
}

func getTransaction(ctx context.Context, q *sqlitedriver.SqliteDB, txnID id.TransactionID) (*accounting.Transaction, error) {
	tm := new(transactionModel)
	if err := q.NewSelect(tm).Where("id = ?", txnID.String()).Scan(ctx); err != nil {
		if isNoRows(err) {
			return nil, ledgerstore.ErrTransactionNotFound
		}
		return nil, err
	}
	txn, err := fromTransactionModel(tm)
	if err != nil {
		return nil, err
	}

	var entryModels []ledgerEntryModel
	if err := q.NewSelect(&entryModels).Where("transaction_id = ?", txnID.String()).Scan(ctx); err != nil {
		return nil, err
	}
	for i := range entryModels {
		e, err := fromLedgerEntryModel(&entryModels[i])
		if err != nil {
			return nil, err
		}
		txn.Entries = append(txn.Entries, e)
	}

	var links []evidenceLinkModel
	if err := q.NewSelect(&links).Where("transaction_id = ?", txnID.String()).Scan(ctx); err != nil {
		return nil, err
	}
	for _, l := range links {
		txn.Evidence = append(txn.Evidence, fromEvidenceLinkModel(&l))
	}

	voidingModel := new(transactionModel)
	err = q.NewSelect(voidingModel).Where("voids = ?", txnID.String()).Scan(ctx)
	switch {
	case err == nil:
		voidingID, perr := id.ParseTransactionID(voidingModel.ID)
		if perr != nil {
			return nil, perr
		}
		txn.VoidedBy = &voidingID
	case isNoRows(err):
		// not voided
	default:
		return nil, err
	}

	return txn, nil
}

// ──────────────────────────────────────────────────
// Evidence query engine
// ──────────────────────────────────────────────────

// SQLite has no native array/ANY type, so the composed ANY/ALL/NONE
// predicates use row-value IN lists built from placeholders instead of the
// unnest-based set operations the postgres store uses.

func (s *Store) FilterByRelatedObjects(ctx context.Context, evidence []accounting.EvidenceItem, match accounting.MatchType, opts ledgerstore.QueryOptions) ([]*accounting.Transaction, error) {
	if !match.Valid() {
		return nil, ledgerstore.ErrInvalidMatchType
	}

	var ids []string
	var err error
	switch match {
	case accounting.MatchAny:
		ids, err = s.filterAny(ctx, evidence, opts)
	case accounting.MatchAll:
		ids, err = s.filterAll(ctx, evidence, opts)
	case accounting.MatchNone:
		ids, err = s.filterNone(ctx, evidence, opts)
	case accounting.MatchExact:
		ids, err = s.filterExact(ctx, evidence, opts)
	}
	if err != nil {
		return nil, err
	}

	txns := make([]*accounting.Transaction, 0, len(ids))
	for _, idStr := range ids {
		txnID, perr := id.ParseTransactionID(idStr)
		if perr != nil {
			return nil, perr
		}
		t, terr := getTransaction(ctx, s.sdb, txnID)
		if terr != nil {
			return nil, terr
		}
		txns = append(txns, t)
	}
	return txns, nil
}

func (s *Store) baseTransactionQuery(opts ledgerstore.QueryOptions) (string, []any) {
	where := "1=1"
	args := []any{}
	if opts.NonVoidOnly {
		where += " AND t.voids IS NULL AND t.id NOT IN (SELECT voids FROM transactions WHERE voids IS NOT NULL)"
	}
	if len(opts.LedgerIDs) > 0 {
		placeholders := make([]string, len(opts.LedgerIDs))
		for i, l := range opts.LedgerIDs {
			placeholders[i] = "?"
			args = append(args, l.String())
		}
		where += fmt.Sprintf(" AND EXISTS (SELECT 1 FROM ledger_entries le WHERE le.transaction_id = t.id AND le.ledger_id IN (%s))", strings.Join(placeholders, ", "))
	}
	return where, args
}

func evidencePairsIn(evidence []accounting.EvidenceItem, args []any) (string, []any) {
	pairs := make([]string, len(evidence))
	for i, ev := range evidence {
		pairs[i] = "(?, ?)"
		args = append(args, ev.TypeTag, ev.ID)
	}
	return strings.Join(pairs, ", "), args
}

func (s *Store) filterAny(ctx context.Context, evidence []accounting.EvidenceItem, opts ledgerstore.QueryOptions) ([]string, error) {
	where, args := s.baseTransactionQuery(opts)
	if len(evidence) == 0 {
		return s.listTransactionIDs(ctx, where, args, opts)
	}
	pairList, args := evidencePairsIn(evidence, args)
	where += fmt.Sprintf(" AND EXISTS (SELECT 1 FROM evidence_links el WHERE el.transaction_id = t.id AND (el.evidence_type_tag, el.evidence_id) IN (%s))", pairList)
	return s.listTransactionIDs(ctx, where, args, opts)
}

func (s *Store) filterAll(ctx context.Context, evidence []accounting.EvidenceItem, opts ledgerstore.QueryOptions) ([]string, error) {
	where, args := s.baseTransactionQuery(opts)
	if len(evidence) == 0 {
		return s.listTransactionIDs(ctx, where, args, opts)
	}
	pairList, args := evidencePairsIn(evidence, args)
	args = append(args, int64(len(evidence)))
	where += fmt.Sprintf(` AND (
		SELECT COUNT(*) FROM evidence_links el
		WHERE el.transaction_id = t.id
		  AND (el.evidence_type_tag, el.evidence_id) IN (%s)
	) = ?`, pairList)
	return s.listTransactionIDs(ctx, where, args, opts)
}

func (s *Store) filterNone(ctx context.Context, evidence []accounting.EvidenceItem, opts ledgerstore.QueryOptions) ([]string, error) {
	where, args := s.baseTransactionQuery(opts)
	if len(evidence) == 0 {
		return s.listTransactionIDs(ctx, where, args, opts)
	}
	pairList, args := evidencePairsIn(evidence, args)
	where += fmt.Sprintf(" AND NOT EXISTS (SELECT 1 FROM evidence_links el WHERE el.transaction_id = t.id AND (el.evidence_type_tag, el.evidence_id) IN (%s))", pairList)
	return s.listTransactionIDs(ctx, where, args, opts)
}

// filterExact issues one query per evidence item (O(|E|)) intersecting
// candidates in process, then a final count check — O(|E| + 1) queries
// overall, matching the cost of the postgres implementation.
func (s *Store) filterExact(ctx context.Context, evidence []accounting.EvidenceItem, opts ledgerstore.QueryOptions) ([]string, error) {
	where, args := s.baseTransactionQuery(opts)

	if len(evidence) == 0 {
		where += " AND NOT EXISTS (SELECT 1 FROM evidence_links el WHERE el.transaction_id = t.id)"
		return s.listTransactionIDs(ctx, where, args, opts)
	}

	var candidates map[string]bool
	for _, ev := range evidence {
		var ids []string
		err := s.sdb.NewRaw(
			`SELECT transaction_id FROM evidence_links WHERE evidence_type_tag = ? AND evidence_id = ?`,
			ev.TypeTag, ev.ID,
		).Scan(ctx, &ids)
		if err != nil {
			return nil, err
		}
		set := make(map[string]bool, len(ids))
		for _, tid := range ids {
			set[tid] = true
		}
		if candidates == nil {
			candidates = set
		} else {
			for tid := range candidates {
				if !set[tid] {
					delete(candidates, tid)
				}
			}
		}
		if len(candidates) == 0 {
			return nil, nil
		}
	}

	ids := make([]string, 0, len(candidates))
	placeholders := make([]string, 0, len(candidates))
	for tid := range candidates {
		ids = append(ids, tid)
		placeholders = append(placeholders, "?")
	}
	for _, tid := range ids {
		args = append(args, tid)
	}
	args = append(args, int64(len(evidence)))
	where += fmt.Sprintf(` AND t.id IN (%s) AND (
		SELECT COUNT(*) FROM evidence_links el WHERE el.transaction_id = t.id
	) = ?`, strings.Join(placeholders, ", "))
	return s.listTransactionIDs(ctx, where, args, opts)
}

func (s *Store) listTransactionIDs(ctx context.Context, where string, args []any, opts ledgerstore.QueryOptions) ([]string, error) {
	query := fmt.Sprintf("SELECT id FROM transactions t WHERE %s ORDER BY id ASC", where)
	if opts.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", opts.Limit)
	}
	if opts.Offset > 0 {
		query += fmt.Sprintf(" OFFSET %d", opts.Offset)
	}
	var ids []string
	if err := s.sdb.NewRaw(query, args...).Scan(ctx, &ids); err != nil {
		return nil, err
	}
	return ids, nil
}

// ──────────────────────────────────────────────────
// Balances
// ──────────────────────────────────────────────────

func (s *Store) GetBalancesForObject(ctx context.Context, evidence accounting.EvidenceItem) (map[id.LedgerID]types.Amount, error) {
	var models []ledgerBalanceModel
	err := s.sdb.NewSelect(&models).
		Where("evidence_type_tag = ?", evidence.TypeTag).
		Where("evidence_id = ?", evidence.ID).
		Scan(ctx)
	if err != nil {
		return nil, err
	}

	out := make(map[id.LedgerID]types.Amount, len(models))
	for i := range models {
		b, err := fromLedgerBalanceModel(&models[i])
		if err != nil {
			return nil, err
		}
		out[b.LedgerID] = b.Balance
	}
	return out, nil
}

func (s *Store) GetLedgerBalance(ctx context.Context, ledgerID id.LedgerID) (types.Amount, error) {
	var total types.Amount
	err := s.sdb.NewRaw(
		`SELECT COALESCE(SUM(amount), 0) FROM ledger_entries WHERE ledger_id = ?`,
		ledgerID.String(),
	).Scan(ctx, &total)
	return total, err
}

// ──────────────────────────────────────────────────
// WithTx / Tx
// ──────────────────────────────────────────────────

// WithTx runs fn inside a single storage-layer transaction. RunInTx hands
// the callback the same *sqlitedriver.SqliteDB query-builder surface used
// outside a transaction, bound to the transactional connection. SQLite
// serializes writers at the database level, so this transaction alone is
// enough to make posting and rebuild atomic.
func (s *Store) WithTx(ctx context.Context, fn func(ctx context.Context, tx ledgerstore.Tx) error) error {
	return s.sdb.RunInTx(ctx, func(ctx context.Context, stx *sqlitedriver.SqliteDB) error {
		return fn(ctx, &txImpl{sdb: stx})
	})
}

type txImpl struct {
	sdb *sqlitedriver.SqliteDB
}

var _ ledgerstore.Tx = (*txImpl)(nil)

// LockLedgers exists only to check every ledger is present; SQLite's
// transaction already serializes writers, so there is no separate
// row-level lock to take the way the postgres store takes one.
func (t *txImpl) LockLedgers(ctx context.Context, ledgerIDs []id.LedgerID) error {
	if len(ledgerIDs) == 0 {
		return nil
	}
	placeholders := make([]string, len(ledgerIDs))
	args := make([]any, len(ledgerIDs))
	for i, l := range ledgerIDs {
		placeholders[i] = "?"
		args[i] = l.String()
	}
	var locked []string
	err := t.sdb.NewRaw(
		fmt.Sprintf(`SELECT id FROM ledgers WHERE id IN (%s) ORDER BY id`, strings.Join(placeholders, ", ")),
		args...,
	).Scan(ctx, &locked)
	if err != nil {
		return err
	}
	if len(locked) != len(ledgerIDs) {
		return ledgerstore.ErrLedgerNotFound
	}
	return nil
}

func (t *txImpl) LockAllLedgers(ctx context.Context) ([]id.LedgerID, error) {
	var ids []string
	err := t.sdb.NewRaw(`SELECT id FROM ledgers ORDER BY id`).Scan(ctx, &ids)
	if err != nil {
		return nil, err
	}
	out := make([]id.LedgerID, len(ids))
	for i, s := range ids {
		lid, perr := id.ParseLedgerID(s)
		if perr != nil {
			return nil, perr
		}
		out[i] = lid
	}
	return out, nil
}

func (t *txImpl) GetOrCreateTransactionType(ctx context.Context, name, description string) (*accounting.TransactionType, error) {
	m := new(transactionTypeModel)
	err := t.sdb.NewSelect(m).Where("name = ?", name).Scan(ctx)
	if err == nil {
		return fromTransactionTypeModel(m)
	}
	if !isNoRows(err) {
		return nil, err
	}

	tt := &accounting.TransactionType{
		Entity:      types.NewEntity(),
		ID:          id.NewTransactionTypeID(),
		Name:        name,
		Description: description,
	}
	if _, err := t.sdb.NewInsert(toTransactionTypeModel(tt)).Exec(ctx); err != nil {
		return nil, err
	}
	return tt, nil
}

func (t *txImpl) GetTransaction(ctx context.Context, txnID id.TransactionID) (*accounting.Transaction, error) {
	return getTransaction(ctx, t.sdb, txnID)
}

func (t *txImpl) InsertTransaction(ctx context.Context, txn *accounting.Transaction) error {
	_, err := t.sdb.NewInsert(toTransactionModel(txn)).Exec(ctx)
	return err
}

func (t *txImpl) SetVoids(ctx context.Context, txnID, target id.TransactionID) error {
	// The unique index on transactions.voids (idx_transactions_voids) is
	// the backstop against a race; callers are expected to have already
	// checked Transaction.IsVoided() before reaching this point.
	res, err := t.sdb.NewUpdate((*transactionModel)(nil)).
		Set("voids = ?", target.String()).
		Where("id = ?", txnID.String()).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("ledger/sqlite: set voids: %w", err)
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return ledgerstore.ErrTransactionNotFound
	}
	return nil
}

func (t *txImpl) InsertLedgerEntries(ctx context.Context, entries []accounting.LedgerEntry) error {
	models := make([]*ledgerEntryModel, len(entries))
	for i := range entries {
		models[i] = toLedgerEntryModel(&entries[i])
	}
	_, err := t.sdb.NewInsert(&models).Exec(ctx)
	return err
}

func (t *txImpl) InsertEvidenceLinks(ctx context.Context, links []accounting.EvidenceLink) error {
	models := make([]*evidenceLinkModel, len(links))
	for i := range links {
		models[i] = toEvidenceLinkModel(&links[i])
	}
	_, err := t.sdb.NewInsert(&models).Exec(ctx)
	return err
}

func (t *txImpl) UpsertLedgerBalance(ctx context.Context, ledgerID id.LedgerID, evidence accounting.EvidenceItem, delta types.Amount) error {
	current := new(ledgerBalanceModel)
	err := t.sdb.NewSelect(current).
		Where("ledger_id = ?", ledgerID.String()).
		Where("evidence_type_tag = ?", evidence.TypeTag).
		Where("evidence_id = ?", evidence.ID).
		Scan(ctx)
	switch {
	case err == nil:
		updated := current.Balance.Add(delta)
		_, err = t.sdb.NewUpdate((*ledgerBalanceModel)(nil)).
			Set("balance = ?", updated).
			Set("updated_at = ?", now()).
			Where("ledger_id = ?", ledgerID.String()).
			Where("evidence_type_tag = ?", evidence.TypeTag).
			Where("evidence_id = ?", evidence.ID).
			Exec(ctx)
		return err
	case isNoRows(err):
		row := &ledgerBalanceModel{
			LedgerID:        ledgerID.String(),
			EvidenceTypeTag: evidence.TypeTag,
			EvidenceID:      evidence.ID,
			Balance:         delta,
			CreatedAt:       now(),
			UpdatedAt:       now(),
		}
		_, err = t.sdb.NewInsert(row).Exec(ctx)
		return err
	default:
		return err
	}
}

func (t *txImpl) TruncateLedgerBalances(ctx context.Context) error {
	_, err := t.sdb.NewRaw(`DELETE FROM ledger_balances`).Exec(ctx)
	return err
}

// InsertRebuiltBalances recomputes every (ledger, evidence) balance from
// the ledger-entry log, discarding groups with no evidence link.
func (t *txImpl) InsertRebuiltBalances(ctx context.Context) (int, error) {
	var rows []ledgerBalanceModel
	err := t.sdb.NewRaw(`
SELECT le.ledger_id AS ledger_id, el.evidence_type_tag AS evidence_type_tag, el.evidence_id AS evidence_id,
       SUM(le.amount) AS balance, datetime('now') AS created_at, datetime('now') AS updated_at
FROM ledger_entries le
JOIN evidence_links el ON el.transaction_id = le.transaction_id
GROUP BY le.ledger_id, el.evidence_type_tag, el.evidence_id
`).Scan(ctx, &rows)
	if err != nil {
		return 0, err
	}
	if len(rows) == 0 {
		return 0, nil
	}
	models := make([]*ledgerBalanceModel, len(rows))
	for i := range rows {
		models[i] = &rows[i]
	}
	if _, err := t.sdb.NewInsert(&models).Exec(ctx); err != nil {
		return 0, err
	}
	return len(models), nil
}

func now() time.Time { return time.Now().UTC() }

func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
