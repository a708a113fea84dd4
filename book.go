package ledger

import (
	"context"
	"log/slog"

	"github.com/xraph/ledger/accounting"
	"github.com/xraph/ledger/id"
	"github.com/xraph/ledger/plugin"
	"github.com/xraph/ledger/store"
	"github.com/xraph/ledger/types"
)

// Book is the bookkeeping engine: it posts balanced transactions against a
// set of ledgers, maintains denormalized per-(ledger, evidence) balances,
// and answers evidence-based queries. Book does no background work — every
// operation runs synchronously against the Store it was given.
type Book struct {
	store   store.Store
	plugins *plugin.Registry
	logger  *slog.Logger

	signConvention types.SignConvention
}

// New creates a Book backed by s. Call Start before use.
func New(s store.Store, opts ...Option) *Book {
	b := &Book{
		store:          s,
		plugins:        plugin.NewRegistry(),
		logger:         slog.Default(),
		signConvention: types.DefaultSignConvention,
	}

	for _, opt := range opts {
		opt(b)
	}

	return b
}

// Option configures a Book instance.
type Option func(*Book)

// WithLogger sets the logger used by the engine and its plugin registry.
func WithLogger(logger *slog.Logger) Option {
	return func(b *Book) {
		b.logger = logger
		b.plugins.WithLogger(logger)
	}
}

// WithPlugin registers a lifecycle plugin.
func WithPlugin(p plugin.Plugin) Option {
	return func(b *Book) {
		_ = b.plugins.Register(p) //nolint:errcheck // best-effort plugin registration during init
	}
}

// WithSignConvention sets the Credit/Debit sign policy this Book uses.
// The default treats debits as positive and credits as negative.
func WithSignConvention(conv types.SignConvention) Option {
	return func(b *Book) {
		b.signConvention = conv
	}
}

// Start migrates the store's schema, initializes plugins, and provisions
// the default "Manual" transaction type.
func (b *Book) Start(ctx context.Context) error {
	if err := b.store.Migrate(ctx); err != nil {
		return err
	}

	if _, err := b.store.GetOrCreateTransactionType(ctx, accounting.ManualTransactionType, "Manually created transaction"); err != nil {
		return err
	}

	b.plugins.EmitInit(ctx, b)

	b.logger.Info("ledger book started")
	return nil
}

// Stop shuts down plugins and closes the underlying store.
func (b *Book) Stop() error {
	ctx := context.Background()
	b.plugins.EmitShutdown(ctx)
	return b.store.Close()
}

// ──────────────────────────────────────────────────
// Ledger administration
// ──────────────────────────────────────────────────

// CreateLedger registers a new account. Ledgers are never deleted.
func (b *Book) CreateLedger(ctx context.Context, l *accounting.Ledger) error {
	if l.ID.IsNil() {
		l.ID = id.NewLedgerID()
	}
	l.Entity = types.NewEntity()

	return b.store.CreateLedger(ctx, l)
}

// GetLedger retrieves a ledger by ID.
func (b *Book) GetLedger(ctx context.Context, ledgerID id.LedgerID) (*accounting.Ledger, error) {
	return b.store.GetLedger(ctx, ledgerID)
}

// GetLedgerByNumber retrieves a ledger by its unique number.
func (b *Book) GetLedgerByNumber(ctx context.Context, number int64) (*accounting.Ledger, error) {
	return b.store.GetLedgerByNumber(ctx, number)
}

// ListLedgers returns every registered ledger.
func (b *Book) ListLedgers(ctx context.Context) ([]*accounting.Ledger, error) {
	return b.store.ListLedgers(ctx)
}

// GetTransaction retrieves a transaction with its entries, evidence, and
// void back-reference populated.
func (b *Book) GetTransaction(ctx context.Context, txnID id.TransactionID) (*accounting.Transaction, error) {
	return b.store.GetTransaction(ctx, txnID)
}

// Credit returns the signed Amount for a credit of magnitude under this
// Book's configured sign convention.
func (b *Book) Credit(magnitude types.Amount) (types.Amount, error) {
	return types.Credit(b.signConvention, magnitude)
}

// Debit returns the signed Amount for a debit of magnitude under this
// Book's configured sign convention.
func (b *Book) Debit(magnitude types.Amount) (types.Amount, error) {
	return types.Debit(b.signConvention, magnitude)
}
