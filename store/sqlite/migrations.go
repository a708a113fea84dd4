package sqlite

import (
	"context"

	"github.com/xraph/grove/migrate"
)

// Migrations is the grove migration group for the bookkeeping schema (SQLite).
var Migrations = migrate.NewGroup("ledger")

func init() {
	Migrations.MustRegister(
		&migrate.Migration{
			Name:    "create_ledgers",
			Version: "20260101000001",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS ledgers (
    id                  TEXT PRIMARY KEY,
    number              INTEGER NOT NULL,
    name                TEXT NOT NULL,
    description         TEXT NOT NULL DEFAULT '',
    increased_by_debits INTEGER NOT NULL DEFAULT 1,
    created_at          TEXT NOT NULL DEFAULT (datetime('now')),
    updated_at          TEXT NOT NULL DEFAULT (datetime('now'))
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_ledgers_number ON ledgers (number);
CREATE UNIQUE INDEX IF NOT EXISTS idx_ledgers_name ON ledgers (name);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS ledgers`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_transaction_types",
			Version: "20260101000002",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS transaction_types (
    id          TEXT PRIMARY KEY,
    name        TEXT NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    created_at  TEXT NOT NULL DEFAULT (datetime('now')),
    updated_at  TEXT NOT NULL DEFAULT (datetime('now'))
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_transaction_types_name ON transaction_types (name);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS transaction_types`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_transactions",
			Version: "20260101000003",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS transactions (
    id         TEXT PRIMARY KEY,
    created_by TEXT NOT NULL DEFAULT '',
    notes      TEXT NOT NULL DEFAULT '',
    posted_at  TEXT NOT NULL DEFAULT (datetime('now')),
    type_id    TEXT NOT NULL REFERENCES transaction_types (id),
    voids      TEXT REFERENCES transactions (id),
    created_at TEXT NOT NULL DEFAULT (datetime('now')),
    updated_at TEXT NOT NULL DEFAULT (datetime('now'))
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_transactions_voids ON transactions (voids) WHERE voids IS NOT NULL;
CREATE INDEX IF NOT EXISTS idx_transactions_type ON transactions (type_id);
CREATE INDEX IF NOT EXISTS idx_transactions_posted_at ON transactions (posted_at);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS transactions`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_ledger_entries",
			Version: "20260101000004",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS ledger_entries (
    id             TEXT PRIMARY KEY,
    transaction_id TEXT NOT NULL REFERENCES transactions (id),
    ledger_id      TEXT NOT NULL REFERENCES ledgers (id),
    amount         TEXT NOT NULL,
    created_at     TEXT NOT NULL DEFAULT (datetime('now')),
    updated_at     TEXT NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_ledger_entries_transaction ON ledger_entries (transaction_id);
CREATE INDEX IF NOT EXISTS idx_ledger_entries_ledger ON ledger_entries (ledger_id);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS ledger_entries`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_evidence_links",
			Version: "20260101000005",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS evidence_links (
    transaction_id    TEXT NOT NULL REFERENCES transactions (id),
    evidence_type_tag TEXT NOT NULL,
    evidence_id       INTEGER NOT NULL,
    PRIMARY KEY (transaction_id, evidence_type_tag, evidence_id)
);

CREATE INDEX IF NOT EXISTS idx_evidence_links_object ON evidence_links (evidence_type_tag, evidence_id);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS evidence_links`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_ledger_balances",
			Version: "20260101000006",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS ledger_balances (
    ledger_id         TEXT NOT NULL REFERENCES ledgers (id),
    evidence_type_tag TEXT NOT NULL,
    evidence_id       INTEGER NOT NULL,
    balance           TEXT NOT NULL DEFAULT '0',
    created_at        TEXT NOT NULL DEFAULT (datetime('now')),
    updated_at        TEXT NOT NULL DEFAULT (datetime('now')),
    PRIMARY KEY (ledger_id, evidence_type_tag, evidence_id)
);

CREATE INDEX IF NOT EXISTS idx_ledger_balances_object ON ledger_balances (evidence_type_tag, evidence_id);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS ledger_balances`)
				return err
			},
		},
	)
}
