package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/pgdriver"
	"github.com/xraph/grove/migrate"

	"github.com/xraph/ledger/accounting"
	"github.com/xraph/ledger/id"
	ledgerstore "github.com/xraph/ledger/store"
	"github.com/xraph/ledger/types"
)

var _ ledgerstore.Store = (*Store)(nil)

// Store implements ledgerstore.Store using PostgreSQL via Grove ORM.
type Store struct {
	db *grove.DB
	pg *pgdriver.PgDB
}

// New creates a new PostgreSQL store backed by Grove ORM.
func New(db *grove.DB) *Store {
	return &Store{db: db, pg: pgdriver.Unwrap(db)}
}

// DB returns the underlying grove database for direct access.
func (s *Store) DB() *grove.DB { return s.db }

// Migrate creates the required tables and indexes using the grove orchestrator.
func (s *Store) Migrate(ctx context.Context) error {
	executor, err := migrate.NewExecutorFor(s.pg)
	if err != nil {
		return fmt.Errorf("ledger/postgres: create migration executor: %w", err)
	}
	orch := migrate.NewOrchestrator(executor, Migrations)
	if _, err := orch.Migrate(ctx); err != nil {
		return fmt.Errorf("ledger/postgres: migration failed: %w", err)
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
	_, err := s.pg.NewInsert(m).Exec(ctx)
	return err
}

func (s *Store) GetLedger(ctx context.Context, ledgerID id.LedgerID) (*accounting.Ledger, error) {
	m := new(ledgerModel)
	err := s.pg.NewSelect(m).Where("id = $1", ledgerID.String()).Scan(ctx)
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
	err := s.pg.NewSelect(m).Where("number = $1", number).Scan(ctx)
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
	if err := s.pg.NewSelect(&models).Order("id ASC").Scan(ctx); err != nil {
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
	err := s.pg.NewSelect(m).Where("name = $1", name).Scan(ctx)
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
	_, err = s.pg.NewInsert(toTransactionTypeModel(t)).
		OnConflict("(name) DO NOTHING").
		Exec(ctx)
	if err != nil {
		return nil, err
	}

	m = new(transactionTypeModel)
	if err := s.pg.NewSelect(m).Where("name = $1", name).Scan(ctx); err != nil {
		return nil, err
	}
	return fromTransactionTypeModel(m)
}

func (s *Store) GetTransactionType(ctx context.Context, typeID id.TransactionTypeID) (*accounting.TransactionType, error) {
	m := new(transactionTypeModel)
	err := s.pg.NewSelect(m).Where("id = $1", typeID.String()).Scan(ctx)
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
	return getTransaction(ctx, s.pg, txnID)
}

func getTransaction(ctx context.Context, q *pgdriver.PgDB, txnID id.TransactionID) (*accounting.Transaction, error) {
	tm := new(transactionModel)
	if err := q.NewSelect(tm).Where("id = $1", txnID.String()).Scan(ctx); err != nil {
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
	if err := q.NewSelect(&entryModels).Where("transaction_id = $1", txnID.String()).Scan(ctx); err != nil {
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
	if err := q.NewSelect(&links).Where("transaction_id = $1", txnID.String()).Scan(ctx); err != nil {
		return nil, err
	}
	for _, l := range links {
		txn.Evidence = append(txn.Evidence, accounting.EvidenceItem{TypeTag: l.EvidenceTypeTag, ID: l.EvidenceID})
	}

	voidingModel := new(transactionModel)
	err = q.NewSelect(voidingModel).Where("voids = $1", txnID.String()).Scan(ctx)
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
		t, terr := getTransaction(ctx, s.pg, txnID)
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
		lids := make([]string, len(opts.LedgerIDs))
		for i, l := range opts.LedgerIDs {
			lids[i] = l.String()
		}
		args = append(args, pqArray(lids))
		where += fmt.Sprintf(" AND EXISTS (SELECT 1 FROM ledger_entries le WHERE le.transaction_id = t.id AND le.ledger_id = ANY($%d))", len(args))
	}
	return where, args
}

func (s *Store) filterAny(ctx context.Context, evidence []accounting.EvidenceItem, opts ledgerstore.QueryOptions) ([]string, error) {
	where, args := s.baseTransactionQuery(opts)
	if len(evidence) == 0 {
		return s.listTransactionIDs(ctx, where, args, opts)
	}
	tags, objIDs := evidenceArrays(evidence)
	args = append(args, pqArray(tags), pqArray(objIDs))
	tagArg, idArg := len(args)-1, len(args)
	where += fmt.Sprintf(" AND EXISTS (SELECT 1 FROM evidence_links el WHERE el.transaction_id = t.id AND (el.evidence_type_tag, el.evidence_id) IN (SELECT unnest($%d::text[]), unnest($%d::bigint[])))", tagArg, idArg)
	return s.listTransactionIDs(ctx, where, args, opts)
}

func (s *Store) filterAll(ctx context.Context, evidence []accounting.EvidenceItem, opts ledgerstore.QueryOptions) ([]string, error) {
	where, args := s.baseTransactionQuery(opts)
	if len(evidence) == 0 {
		return s.listTransactionIDs(ctx, where, args, opts)
	}
	tags, objIDs := evidenceArrays(evidence)
	args = append(args, pqArray(tags), pqArray(objIDs), int64(len(evidence)))
	tagArg, idArg, countArg := len(args)-2, len(args)-1, len(args)
	where += fmt.Sprintf(` AND (
		SELECT COUNT(*) FROM evidence_links el
		WHERE el.transaction_id = t.id
		  AND (el.evidence_type_tag, el.evidence_id) IN (SELECT unnest($%d::text[]), unnest($%d::bigint[]))
	) = $%d`, tagArg, idArg, countArg)
	return s.listTransactionIDs(ctx, where, args, opts)
}

func (s *Store) filterNone(ctx context.Context, evidence []accounting.EvidenceItem, opts ledgerstore.QueryOptions) ([]string, error) {
	where, args := s.baseTransactionQuery(opts)
	if len(evidence) == 0 {
		return s.listTransactionIDs(ctx, where, args, opts)
	}
	tags, objIDs := evidenceArrays(evidence)
	args = append(args, pqArray(tags), pqArray(objIDs))
	tagArg, idArg := len(args)-1, len(args)
	where += fmt.Sprintf(" AND NOT EXISTS (SELECT 1 FROM evidence_links el WHERE el.transaction_id = t.id AND (el.evidence_type_tag, el.evidence_id) IN (SELECT unnest($%d::text[]), unnest($%d::bigint[])))", tagArg, idArg)
	return s.listTransactionIDs(ctx, where, args, opts)
}

// filterExact issues one query per evidence item (O(|E|)) intersecting
// candidates, then a final count check — O(|E| + 1) queries overall.
func (s *Store) filterExact(ctx context.Context, evidence []accounting.EvidenceItem, opts ledgerstore.QueryOptions) ([]string, error) {
	where, args := s.baseTransactionQuery(opts)

	if len(evidence) == 0 {
		where += " AND NOT EXISTS (SELECT 1 FROM evidence_links el WHERE el.transaction_id = t.id)"
		return s.listTransactionIDs(ctx, where, args, opts)
	}

	var candidates map[string]bool
	for _, ev := range evidence {
		var ids []string
		err := s.pg.NewRaw(
			`SELECT transaction_id FROM evidence_links WHERE evidence_type_tag = $1 AND evidence_id = $2`,
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
	for tid := range candidates {
		ids = append(ids, tid)
	}
	args = append(args, pqArray(ids), int64(len(evidence)))
	idArg, countArg := len(args)-1, len(args)
	where += fmt.Sprintf(` AND t.id = ANY($%d) AND (
		SELECT COUNT(*) FROM evidence_links el WHERE el.transaction_id = t.id
	) = $%d`, idArg, countArg)
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
	if err := s.pg.NewRaw(query, args...).Scan(ctx, &ids); err != nil {
		return nil, err
	}
	return ids, nil
}

func evidenceArrays(evidence []accounting.EvidenceItem) ([]string, []int64) {
	tags := make([]string, len(evidence))
	ids := make([]int64, len(evidence))
	for i, e := range evidence {
		tags[i] = e.TypeTag
		ids[i] = e.ID
	}
	return tags, ids
}

// ──────────────────────────────────────────────────
// Balances
// ──────────────────────────────────────────────────

func (s *Store) GetBalancesForObject(ctx context.Context, evidence accounting.EvidenceItem) (map[id.LedgerID]types.Amount, error) {
	var models []ledgerBalanceModel
	err := s.pg.NewSelect(&models).
		Where("evidence_type_tag = $1", evidence.TypeTag).
		Where("evidence_id = $2", evidence.ID).
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
	err := s.pg.NewRaw(
		`SELECT COALESCE(SUM(amount), 0) FROM ledger_entries WHERE ledger_id = $1`,
		ledgerID.String(),
	).Scan(ctx, &total)
	return total, err
}

// ──────────────────────────────────────────────────
// WithTx / Tx
// ──────────────────────────────────────────────────

// WithTx runs fn inside a single storage-layer transaction. RunInTx hands
// the callback the same *pgdriver.PgDB query-builder surface used outside a
// transaction, bound to the transactional connection.
func (s *Store) WithTx(ctx context.Context, fn func(ctx context.Context, tx ledgerstore.Tx) error) error {
	return s.pg.RunInTx(ctx, func(ctx context.Context, ptx *pgdriver.PgDB) error {
		return fn(ctx, &txImpl{pg: ptx})
	})
}

type txImpl struct {
	pg *pgdriver.PgDB
}

var _ ledgerstore.Tx = (*txImpl)(nil)

func (t *txImpl) LockLedgers(ctx context.Context, ledgerIDs []id.LedgerID) error {
	if len(ledgerIDs) == 0 {
		return nil
	}
	strs := make([]string, len(ledgerIDs))
	for i, l := range ledgerIDs {
		strs[i] = l.String()
	}
	var locked []string
	err := t.pg.NewRaw(
		`SELECT id FROM ledgers WHERE id = ANY($1) ORDER BY id FOR UPDATE`,
		pqArray(strs),
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
	err := t.pg.NewRaw(`SELECT id FROM ledgers ORDER BY id FOR UPDATE`).Scan(ctx, &ids)
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
	err := t.pg.NewSelect(m).Where("name = $1", name).Scan(ctx)
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
	if _, err := t.pg.NewInsert(toTransactionTypeModel(tt)).Exec(ctx); err != nil {
		return nil, err
	}
	return tt, nil
}

func (t *txImpl) GetTransaction(ctx context.Context, txnID id.TransactionID) (*accounting.Transaction, error) {
	return getTransaction(ctx, t.pg, txnID)
}

func (t *txImpl) InsertTransaction(ctx context.Context, txn *accounting.Transaction) error {
	_, err := t.pg.NewInsert(toTransactionModel(txn)).Exec(ctx)
	return err
}

func (t *txImpl) SetVoids(ctx context.Context, txnID, target id.TransactionID) error {
	// The unique index on transactions.voids (idx_transactions_voids) is
	// the backstop against a race; callers are expected to have already
	// checked Transaction.IsVoided() before reaching this point.
	res, err := t.pg.NewUpdate((*transactionModel)(nil)).
		Set("voids = ?", target.String()).
		Where("id = ?", txnID.String()).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("ledger/postgres: set voids: %w", err)
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
	_, err := t.pg.NewInsert(&models).Exec(ctx)
	return err
}

func (t *txImpl) InsertEvidenceLinks(ctx context.Context, links []accounting.EvidenceLink) error {
	models := make([]*evidenceLinkModel, len(links))
	for i := range links {
		models[i] = toEvidenceLinkModel(&links[i])
	}
	_, err := t.pg.NewInsert(&models).Exec(ctx)
	return err
}

func (t *txImpl) UpsertLedgerBalance(ctx context.Context, ledgerID id.LedgerID, evidence accounting.EvidenceItem, delta types.Amount) error {
	res, err := t.pg.NewUpdate((*ledgerBalanceModel)(nil)).
		Set("balance = balance + ?", delta).
		Set("updated_at = ?", now()).
		Where("ledger_id = ?", ledgerID.String()).
		Where("evidence_type_tag = ?", evidence.TypeTag).
		Where("evidence_id = ?", evidence.ID).
		Exec(ctx)
	if err != nil {
		return err
	}
	if rows, _ := res.RowsAffected(); rows > 0 {
		return nil
	}

	row := &ledgerBalanceModel{
		LedgerID:        ledgerID.String(),
		EvidenceTypeTag: evidence.TypeTag,
		EvidenceID:      evidence.ID,
		Balance:         delta,
		CreatedAt:       now(),
		UpdatedAt:       now(),
	}
	_, err = t.pg.NewInsert(row).
		OnConflict("(ledger_id, evidence_type_tag, evidence_id) DO UPDATE").
		Set("balance = ledger_balances.balance + EXCLUDED.balance").
		Exec(ctx)
	return err
}

func (t *txImpl) TruncateLedgerBalances(ctx context.Context) error {
	_, err := t.pg.NewRaw(`TRUNCATE TABLE ledger_balances`).Exec(ctx)
	return err
}

// InsertRebuiltBalances recomputes every (ledger, evidence) balance from
// the ledger-entry log, discarding groups with no evidence link.
func (t *txImpl) InsertRebuiltBalances(ctx context.Context) (int, error) {
	res, err := t.pg.NewRaw(`
INSERT INTO ledger_balances (ledger_id, evidence_type_tag, evidence_id, balance, created_at, updated_at)
SELECT le.ledger_id, el.evidence_type_tag, el.evidence_id, SUM(le.amount), NOW(), NOW()
FROM ledger_entries le
JOIN evidence_links el ON el.transaction_id = le.transaction_id
GROUP BY le.ledger_id, el.evidence_type_tag, el.evidence_id
`).Exec(ctx)
	if err != nil {
		return 0, err
	}
	rows, err := res.RowsAffected()
	return int(rows), err
}

func now() time.Time { return time.Now().UTC() }

func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}

// pqArray marks v (a []string or []int64) as intended for a PostgreSQL
// array parameter. It is an identity no-op: grove's query execution binds
// Go slices to array parameters directly, so no pq.Array-style wrapper is
// needed. Kept as a named call site rather than passing v unwrapped so the
// array-binding intent stays visible at each call and the wrapping point is
// centralized if that ever needs to change.
func pqArray(v any) any { return v }
