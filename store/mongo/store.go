package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/mongodriver"

	"github.com/xraph/ledger/accounting"
	"github.com/xraph/ledger/id"
	ledgerstore "github.com/xraph/ledger/store"
	"github.com/xraph/ledger/types"
)

// Collection names mirror the grove:"table:..." tags on the corresponding
// models: NewFind/NewInsert resolve the collection from that tag, so raw
// Collection(...) calls used for aggregation must use the same names.
const (
	colLedgers          = "ledgers"
	colTransactionTypes = "transaction_types"
	colTransactions     = "transactions"
	colLedgerEntries    = "ledger_entries"
	colEvidenceLinks    = "evidence_links"
	colLedgerBalances   = "ledger_balances"
)

var _ ledgerstore.Store = (*Store)(nil)

// Store implements ledgerstore.Store using MongoDB via Grove ORM.
type Store struct {
	db  *grove.DB
	mdb *mongodriver.MongoDB
}

// New creates a new MongoDB store backed by Grove ORM.
func New(db *grove.DB) *Store {
	return &Store{db: db, mdb: mongodriver.Unwrap(db)}
}

// DB returns the underlying grove database for direct access.
func (s *Store) DB() *grove.DB { return s.db }

// Migrate creates the indexes every collection needs. Mongo has no schema to
// create; the collections come into existence on first insert.
func (s *Store) Migrate(ctx context.Context) error {
	for col, models := range migrationIndexes() {
		if len(models) == 0 {
			continue
		}
		if _, err := s.mdb.Collection(col).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("ledger/mongo: create indexes for %s: %w", col, err)
		}
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error { return s.db.Ping(ctx) }
func (s *Store) Close() error                   { return s.db.Close() }

// ──────────────────────────────────────────────────
// Ledger administration
// ──────────────────────────────────────────────────

func (s *Store) CreateLedger(ctx context.Context, l *accounting.Ledger) error {
	_, err := s.mdb.NewInsert(toLedgerModel(l)).Exec(ctx)
	return err
}

func (s *Store) GetLedger(ctx context.Context, ledgerID id.LedgerID) (*accounting.Ledger, error) {
	m := new(ledgerModel)
	err := s.mdb.NewFind(m).Filter(bson.M{"_id": ledgerID.String()}).Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, ledgerstore.ErrLedgerNotFound
		}
		return nil, err
	}
	return fromLedgerModel(m)
}

func (s *Store) GetLedgerByNumber(ctx context.Context, number int64) (*accounting.Ledger, error) {
	m := new(ledgerModel)
	err := s.mdb.NewFind(m).Filter(bson.M{"number": number}).Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, ledgerstore.ErrLedgerNotFound
		}
		return nil, err
	}
	return fromLedgerModel(m)
}

func (s *Store) ListLedgers(ctx context.Context) ([]*accounting.Ledger, error) {
	var models []ledgerModel
	err := s.mdb.NewFind(&models).Filter(bson.M{}).Sort(bson.D{{Key: "number", Value: 1}}).Scan(ctx)
	if err != nil {
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
	return getOrCreateTransactionType(ctx, s.mdb, name, description)
}

func getOrCreateTransactionType(ctx context.Context, q *mongodriver.MongoDB, name, description string) (*accounting.TransactionType, error) {
	m := new(transactionTypeModel)
	err := q.NewFind(m).Filter(bson.M{"name": name}).Scan(ctx)
	if err == nil {
		return fromTransactionTypeModel(m)
	}
	if !isNoDocuments(err) {
		return nil, err
	}

	tt := &accounting.TransactionType{
		Entity:      types.NewEntity(),
		ID:          id.NewTransactionTypeID(),
		Name:        name,
		Description: description,
	}
	_, err = q.NewInsert(toTransactionTypeModel(tt)).Exec(ctx)
	switch {
	case err == nil:
		return tt, nil
	case mongo.IsDuplicateKeyError(err):
		m = new(transactionTypeModel)
		if ferr := q.NewFind(m).Filter(bson.M{"name": name}).Scan(ctx); ferr != nil {
			return nil, ferr
		}
		return fromTransactionTypeModel(m)
	default:
		return nil, err
	}
}

func (s *Store) GetTransactionType(ctx context.Context, typeID id.TransactionTypeID) (*accounting.TransactionType, error) {
	m := new(transactionTypeModel)
	err := s.mdb.NewFind(m).Filter(bson.M{"_id": typeID.String()}).Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
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
	return getTransaction(ctx, s.mdb, txnID)
}

func getTransaction(ctx context.Context, q *mongodriver.MongoDB, txnID id.TransactionID) (*accounting.Transaction, error) {
	tm := new(transactionModel)
	if err := q.NewFind(tm).Filter(bson.M{"_id": txnID.String()}).Scan(ctx); err != nil {
		if isNoDocuments(err) {
			return nil, ledgerstore.ErrTransactionNotFound
		}
		return nil, err
	}
	txn, err := fromTransactionModel(tm)
	if err != nil {
		return nil, err
	}

	var entryModels []ledgerEntryModel
	if err := q.NewFind(&entryModels).Filter(bson.M{"transaction_id": txnID.String()}).Scan(ctx); err != nil {
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
	if err := q.NewFind(&links).Filter(bson.M{"transaction_id": txnID.String()}).Scan(ctx); err != nil {
		return nil, err
	}
	for i := range links {
		txn.Evidence = append(txn.Evidence, fromEvidenceLinkModel(&links[i]))
	}

	voidingModel := new(transactionModel)
	err = q.NewFind(voidingModel).Filter(bson.M{"voids": txnID.String()}).Scan(ctx)
	switch {
	case err == nil:
		voidingID, perr := id.ParseTransactionID(voidingModel.ID)
		if perr != nil {
			return nil, perr
		}
		txn.VoidedBy = &voidingID
	case isNoDocuments(err):
		// not voided
	default:
		return nil, err
	}

	return txn, nil
}

// ──────────────────────────────────────────────────
// Evidence query engine
// ──────────────────────────────────────────────────

// Mongo has no cross-collection join, so the ANY/ALL/NONE/EXACT predicates
// are computed as an aggregation over evidence_links (grouping by
// transaction_id and counting matches) followed by a single transactions
// query restricted to the resulting candidate ids — the same constant query
// count (ANY/ALL/NONE) and O(|E|+1) (EXACT) shape as the SQL stores.

func (s *Store) FilterByRelatedObjects(ctx context.Context, evidence []accounting.EvidenceItem, match accounting.MatchType, opts ledgerstore.QueryOptions) ([]*accounting.Transaction, error) {
	if !match.Valid() {
		return nil, ledgerstore.ErrInvalidMatchType
	}

	var candidates []string
	var restrictToCandidates bool
	var err error
	switch match {
	case accounting.MatchAny:
		candidates, err = s.candidatesAny(ctx, evidence)
		restrictToCandidates = len(evidence) > 0
	case accounting.MatchAll:
		candidates, err = s.candidatesAll(ctx, evidence)
		restrictToCandidates = len(evidence) > 0
	case accounting.MatchNone:
		candidates, err = s.candidatesAny(ctx, evidence)
		// None is the complement of Any, applied as an exclusion below.
	case accounting.MatchExact:
		candidates, err = s.candidatesExact(ctx, evidence)
		restrictToCandidates = true
	}
	if err != nil {
		return nil, err
	}

	filter, err := s.transactionFilter(ctx, opts)
	if err != nil {
		return nil, err
	}
	switch {
	case match == accounting.MatchNone:
		if len(candidates) > 0 {
			filter = append(filter, bson.M{"_id": bson.M{"$nin": candidates}})
		}
	case restrictToCandidates:
		filter = append(filter, bson.M{"_id": bson.M{"$in": candidates}})
	}

	ids, err := s.listTransactionIDs(ctx, filter, opts)
	if err != nil {
		return nil, err
	}

	txns := make([]*accounting.Transaction, 0, len(ids))
	for _, idStr := range ids {
		txnID, perr := id.ParseTransactionID(idStr)
		if perr != nil {
			return nil, perr
		}
		t, terr := getTransaction(ctx, s.mdb, txnID)
		if terr != nil {
			return nil, terr
		}
		txns = append(txns, t)
	}
	return txns, nil
}

func evidenceOrFilter(evidence []accounting.EvidenceItem) bson.A {
	or := make(bson.A, len(evidence))
	for i, ev := range evidence {
		or[i] = bson.M{"evidence_type_tag": ev.TypeTag, "evidence_id": ev.ID}
	}
	return or
}

// candidatesAny returns every transaction id with at least one link matching
// the query set.
func (s *Store) candidatesAny(ctx context.Context, evidence []accounting.EvidenceItem) ([]string, error) {
	if len(evidence) == 0 {
		return nil, nil
	}
	cursor, err := s.mdb.Collection(colEvidenceLinks).Aggregate(ctx, bson.A{
		bson.M{"$match": bson.M{"$or": evidenceOrFilter(evidence)}},
		bson.M{"$group": bson.M{"_id": "$transaction_id"}},
	})
	if err != nil {
		return nil, err
	}
	return scanIDs(ctx, cursor)
}

// candidatesAll returns every transaction id whose links contain all items
// in the query set (a superset match, matching the count-based SQL version).
func (s *Store) candidatesAll(ctx context.Context, evidence []accounting.EvidenceItem) ([]string, error) {
	if len(evidence) == 0 {
		return nil, nil
	}
	cursor, err := s.mdb.Collection(colEvidenceLinks).Aggregate(ctx, bson.A{
		bson.M{"$match": bson.M{"$or": evidenceOrFilter(evidence)}},
		bson.M{"$group": bson.M{"_id": "$transaction_id", "matched": bson.M{"$sum": 1}}},
		bson.M{"$match": bson.M{"matched": int64(len(evidence))}},
	})
	if err != nil {
		return nil, err
	}
	return scanIDs(ctx, cursor)
}

// candidatesExact returns every transaction id whose link set is exactly the
// query set: every queried pair matches, and the transaction carries no
// other links.
func (s *Store) candidatesExact(ctx context.Context, evidence []accounting.EvidenceItem) ([]string, error) {
	if len(evidence) == 0 {
		cursor, err := s.mdb.Collection(colEvidenceLinks).Aggregate(ctx, bson.A{
			bson.M{"$group": bson.M{"_id": "$transaction_id"}},
		})
		if err != nil {
			return nil, err
		}
		linked, err := scanIDs(ctx, cursor)
		if err != nil {
			return nil, err
		}
		var allModels []transactionModel
		if err := s.mdb.NewFind(&allModels).Filter(bson.M{}).Scan(ctx); err != nil {
			return nil, err
		}
		all := make([]string, len(allModels))
		for i := range allModels {
			all[i] = allModels[i].ID
		}
		linkedSet := toSet(linked)
		var txnIDs []string
		for _, tid := range all {
			if !linkedSet[tid] {
				txnIDs = append(txnIDs, tid)
			}
		}
		return txnIDs, nil
	}

	matchCursor, err := s.mdb.Collection(colEvidenceLinks).Aggregate(ctx, bson.A{
		bson.M{"$match": bson.M{"$or": evidenceOrFilter(evidence)}},
		bson.M{"$group": bson.M{"_id": "$transaction_id", "matched": bson.M{"$sum": 1}}},
		bson.M{"$match": bson.M{"matched": int64(len(evidence))}},
	})
	if err != nil {
		return nil, err
	}
	matching, err := scanIDs(ctx, matchCursor)
	if err != nil {
		return nil, err
	}
	if len(matching) == 0 {
		return nil, nil
	}

	totalCursor, err := s.mdb.Collection(colEvidenceLinks).Aggregate(ctx, bson.A{
		bson.M{"$match": bson.M{"transaction_id": bson.M{"$in": matching}}},
		bson.M{"$group": bson.M{"_id": "$transaction_id", "total": bson.M{"$sum": 1}}},
	})
	if err != nil {
		return nil, err
	}
	defer totalCursor.Close(ctx)
	var totals []struct {
		ID    string `bson:"_id"`
		Total int64  `bson:"total"`
	}
	if err := totalCursor.All(ctx, &totals); err != nil {
		return nil, err
	}
	out := make([]string, 0, len(totals))
	want := int64(len(evidence))
	for _, t := range totals {
		if t.Total == want {
			out = append(out, t.ID)
		}
	}
	return out, nil
}

func toSet(ids []string) map[string]bool {
	set := make(map[string]bool, len(ids))
	for _, i := range ids {
		set[i] = true
	}
	return set
}

func scanIDs(ctx context.Context, cursor *mongo.Cursor) ([]string, error) {
	defer cursor.Close(ctx)
	var rows []struct {
		ID string `bson:"_id"`
	}
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, err
	}
	out := make([]string, len(rows))
	for i, r := range rows {
		out[i] = r.ID
	}
	return out, nil
}

// transactionFilter builds the $and clause list implementing QueryOptions
// against the transactions collection: NonVoidOnly excludes both voiding and
// voided transactions; LedgerIDs restricts to transactions with at least one
// entry against one of the given ledgers.
func (s *Store) transactionFilter(ctx context.Context, opts ledgerstore.QueryOptions) (bson.A, error) {
	filter := bson.A{}

	if opts.NonVoidOnly {
		var voidingModels []transactionModel
		err := s.mdb.NewFind(&voidingModels).Filter(bson.M{"voids": bson.M{"$ne": nil}}).Scan(ctx)
		if err != nil {
			return nil, err
		}
		voided := make([]string, 0, len(voidingModels))
		for i := range voidingModels {
			if voidingModels[i].Voids != nil {
				voided = append(voided, *voidingModels[i].Voids)
			}
		}
		clause := bson.M{"voids": nil}
		if len(voided) > 0 {
			clause = bson.M{"$and": bson.A{
				bson.M{"voids": nil},
				bson.M{"_id": bson.M{"$nin": voided}},
			}}
		}
		filter = append(filter, clause)
	}

	if len(opts.LedgerIDs) > 0 {
		ledgerIDStrs := make([]string, len(opts.LedgerIDs))
		for i, l := range opts.LedgerIDs {
			ledgerIDStrs[i] = l.String()
		}
		cursor, err := s.mdb.Collection(colLedgerEntries).Aggregate(ctx, bson.A{
			bson.M{"$match": bson.M{"ledger_id": bson.M{"$in": ledgerIDStrs}}},
			bson.M{"$group": bson.M{"_id": "$transaction_id"}},
		})
		if err != nil {
			return nil, err
		}
		ids, err := scanIDs(ctx, cursor)
		if err != nil {
			return nil, err
		}
		filter = append(filter, bson.M{"_id": bson.M{"$in": ids}})
	}

	return filter, nil
}

func (s *Store) listTransactionIDs(ctx context.Context, andFilter bson.A, opts ledgerstore.QueryOptions) ([]string, error) {
	filter := bson.M{}
	if len(andFilter) > 0 {
		filter["$and"] = andFilter
	}

	var models []transactionModel
	q := s.mdb.NewFind(&models).Filter(filter).Sort(bson.D{{Key: "_id", Value: 1}})
	if opts.Limit > 0 {
		q = q.Limit(int64(opts.Limit))
	}
	if opts.Offset > 0 {
		q = q.Skip(int64(opts.Offset))
	}
	if err := q.Scan(ctx); err != nil {
		return nil, err
	}

	ids := make([]string, len(models))
	for i := range models {
		ids[i] = models[i].ID
	}
	return ids, nil
}

// ──────────────────────────────────────────────────
// Balances
// ──────────────────────────────────────────────────

func (s *Store) GetBalancesForObject(ctx context.Context, evidence accounting.EvidenceItem) (map[id.LedgerID]types.Amount, error) {
	var models []ledgerBalanceModel
	err := s.mdb.NewFind(&models).Filter(bson.M{
		"evidence_type_tag": evidence.TypeTag,
		"evidence_id":       evidence.ID,
	}).Scan(ctx)
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
	var entries []ledgerEntryModel
	err := s.mdb.NewFind(&entries).Filter(bson.M{"ledger_id": ledgerID.String()}).Scan(ctx)
	if err != nil {
		return types.Amount{}, err
	}
	total := types.Amount{}
	for i := range entries {
		e, err := fromLedgerEntryModel(&entries[i])
		if err != nil {
			return types.Amount{}, err
		}
		total = total.Add(e.Amount)
	}
	return total, nil
}

// ──────────────────────────────────────────────────
// WithTx / Tx
// ──────────────────────────────────────────────────

// WithTx runs fn inside a single MongoDB session transaction. A transactions
// collection requires a replica set, which is the expected deployment mode
// for this store; standalone instances should use the SQLite or memory
// stores for development instead.
func (s *Store) WithTx(ctx context.Context, fn func(ctx context.Context, tx ledgerstore.Tx) error) error {
	return s.mdb.RunInTx(ctx, func(ctx context.Context, mtx *mongodriver.MongoDB) error {
		return fn(ctx, &txImpl{mdb: mtx})
	})
}

type txImpl struct {
	mdb *mongodriver.MongoDB
}

var _ ledgerstore.Tx = (*txImpl)(nil)

// LockLedgers exists only to check every ledger is present; Mongo's
// per-document atomicity combined with the session transaction started by
// WithTx is what actually serializes concurrent posters.
func (t *txImpl) LockLedgers(ctx context.Context, ledgerIDs []id.LedgerID) error {
	if len(ledgerIDs) == 0 {
		return nil
	}
	ids := make([]string, len(ledgerIDs))
	for i, l := range ledgerIDs {
		ids[i] = l.String()
	}
	count, err := t.mdb.Collection(colLedgers).CountDocuments(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return err
	}
	if int(count) != len(ledgerIDs) {
		return ledgerstore.ErrLedgerNotFound
	}
	return nil
}

func (t *txImpl) LockAllLedgers(ctx context.Context) ([]id.LedgerID, error) {
	var models []ledgerModel
	err := t.mdb.NewFind(&models).Filter(bson.M{}).Sort(bson.D{{Key: "_id", Value: 1}}).Scan(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]id.LedgerID, len(models))
	for i := range models {
		lid, perr := id.ParseLedgerID(models[i].ID)
		if perr != nil {
			return nil, perr
		}
		out[i] = lid
	}
	return out, nil
}

func (t *txImpl) GetOrCreateTransactionType(ctx context.Context, name, description string) (*accounting.TransactionType, error) {
	return getOrCreateTransactionType(ctx, t.mdb, name, description)
}

func (t *txImpl) GetTransaction(ctx context.Context, txnID id.TransactionID) (*accounting.Transaction, error) {
	return getTransaction(ctx, t.mdb, txnID)
}

func (t *txImpl) InsertTransaction(ctx context.Context, txn *accounting.Transaction) error {
	_, err := t.mdb.NewInsert(toTransactionModel(txn)).Exec(ctx)
	return err
}

func (t *txImpl) SetVoids(ctx context.Context, txnID, target id.TransactionID) error {
	res, err := t.mdb.NewUpdate((*transactionModel)(nil)).
		Filter(bson.M{"_id": txnID.String()}).
		SetUpdate(bson.M{"$set": bson.M{"voids": target.String(), "updated_at": now()}}).
		Exec(ctx)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("ledger/mongo: set voids: %w", ledgerstore.ErrAlreadyVoided)
		}
		return fmt.Errorf("ledger/mongo: set voids: %w", err)
	}
	if res.MatchedCount() == 0 {
		return ledgerstore.ErrTransactionNotFound
	}
	return nil
}

func (t *txImpl) InsertLedgerEntries(ctx context.Context, entries []accounting.LedgerEntry) error {
	for i := range entries {
		if _, err := t.mdb.NewInsert(toLedgerEntryModel(&entries[i])).Exec(ctx); err != nil {
			return err
		}
	}
	return nil
}

func (t *txImpl) InsertEvidenceLinks(ctx context.Context, links []accounting.EvidenceLink) error {
	for i := range links {
		if _, err := t.mdb.NewInsert(toEvidenceLinkModel(&links[i])).Exec(ctx); err != nil {
			return err
		}
	}
	return nil
}

// UpsertLedgerBalance reads the current balance and writes the sum back
// inside the caller's session transaction; the insert branch is guarded
// against a concurrent creator by retrying as an update on a duplicate-key
// error against the row's deterministic _id.
func (t *txImpl) UpsertLedgerBalance(ctx context.Context, ledgerID id.LedgerID, evidence accounting.EvidenceItem, delta types.Amount) error {
	key := balanceKey(ledgerID.String(), evidence.TypeTag, evidence.ID)
	filter := bson.M{"_id": key}

	current := new(ledgerBalanceModel)
	err := t.mdb.NewFind(current).Filter(filter).Scan(ctx)
	switch {
	case err == nil:
		updated, perr := types.ParseAmount(current.Balance)
		if perr != nil {
			return perr
		}
		updated = updated.Add(delta)
		_, uerr := t.mdb.NewUpdate((*ledgerBalanceModel)(nil)).
			Filter(filter).
			SetUpdate(bson.M{"$set": bson.M{"balance": updated.String(), "updated_at": now()}}).
			Exec(ctx)
		return uerr
	case isNoDocuments(err):
		row := &ledgerBalanceModel{
			ID:              key,
			LedgerID:        ledgerID.String(),
			EvidenceTypeTag: evidence.TypeTag,
			EvidenceID:      evidence.ID,
			Balance:         delta.String(),
			CreatedAt:       now(),
			UpdatedAt:       now(),
		}
		ierr := func() error {
			_, err := t.mdb.NewInsert(row).Exec(ctx)
			return err
		}()
		if ierr != nil && mongo.IsDuplicateKeyError(ierr) {
			// Lost the create race to a concurrent upsert; retry as an update.
			return t.UpsertLedgerBalance(ctx, ledgerID, evidence, delta)
		}
		return ierr
	default:
		return err
	}
}

func (t *txImpl) TruncateLedgerBalances(ctx context.Context) error {
	_, err := t.mdb.Collection(colLedgerBalances).DeleteMany(ctx, bson.M{})
	return err
}

// InsertRebuiltBalances recomputes every (ledger, evidence) balance via an
// aggregation pipeline joining ledger_entries to evidence_links, discarding
// entries with no evidence link.
func (t *txImpl) InsertRebuiltBalances(ctx context.Context) (int, error) {
	cursor, err := t.mdb.Collection(colLedgerEntries).Aggregate(ctx, bson.A{
		bson.M{"$lookup": bson.M{
			"from":         colEvidenceLinks,
			"localField":   "transaction_id",
			"foreignField": "transaction_id",
			"as":           "links",
		}},
		bson.M{"$unwind": "$links"},
		bson.M{"$group": bson.M{
			"_id": bson.M{
				"ledger_id":         "$ledger_id",
				"evidence_type_tag": "$links.evidence_type_tag",
				"evidence_id":       "$links.evidence_id",
			},
			"balance": bson.M{"$sum": bson.M{"$toDecimal": "$amount"}},
		}},
		bson.M{"$project": bson.M{"balance": bson.M{"$toString": "$balance"}}},
	})
	if err != nil {
		return 0, err
	}
	defer cursor.Close(ctx)
	var rows []struct {
		ID struct {
			LedgerID        string `bson:"ledger_id"`
			EvidenceTypeTag string `bson:"evidence_type_tag"`
			EvidenceID      int64  `bson:"evidence_id"`
		} `bson:"_id"`
		Balance string `bson:"balance"`
	}
	if err := cursor.All(ctx, &rows); err != nil {
		return 0, err
	}
	if len(rows) == 0 {
		return 0, nil
	}

	models := make([]*ledgerBalanceModel, len(rows))
	ts := now()
	for i, r := range rows {
		models[i] = &ledgerBalanceModel{
			ID:              balanceKey(r.ID.LedgerID, r.ID.EvidenceTypeTag, r.ID.EvidenceID),
			LedgerID:        r.ID.LedgerID,
			EvidenceTypeTag: r.ID.EvidenceTypeTag,
			EvidenceID:      r.ID.EvidenceID,
			Balance:         r.Balance,
			CreatedAt:       ts,
			UpdatedAt:       ts,
		}
	}
	for _, m := range models {
		if _, err := t.mdb.NewInsert(m).Exec(ctx); err != nil {
			return 0, err
		}
	}
	return len(models), nil
}

func now() time.Time { return time.Now().UTC() }

func isNoDocuments(err error) bool {
	return errors.Is(err, mongo.ErrNoDocuments)
}

func migrationIndexes() map[string][]mongo.IndexModel {
	return map[string][]mongo.IndexModel{
		colLedgers: {
			{Keys: bson.D{{Key: "number", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "name", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
		colTransactionTypes: {
			{Keys: bson.D{{Key: "name", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
		colTransactions: {
			{Keys: bson.D{{Key: "voids", Value: 1}}, Options: options.Index().SetUnique(true).SetSparse(true)},
			{Keys: bson.D{{Key: "type_id", Value: 1}}},
			{Keys: bson.D{{Key: "posted_at", Value: 1}}},
		},
		colLedgerEntries: {
			{Keys: bson.D{{Key: "transaction_id", Value: 1}}},
			{Keys: bson.D{{Key: "ledger_id", Value: 1}}},
		},
		colEvidenceLinks: {
			{Keys: bson.D{{Key: "transaction_id", Value: 1}, {Key: "evidence_type_tag", Value: 1}, {Key: "evidence_id", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "evidence_type_tag", Value: 1}, {Key: "evidence_id", Value: 1}}},
		},
		colLedgerBalances: {
			{Keys: bson.D{{Key: "ledger_id", Value: 1}, {Key: "evidence_type_tag", Value: 1}, {Key: "evidence_id", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "evidence_type_tag", Value: 1}, {Key: "evidence_id", Value: 1}}},
		},
	}
}
