package extension

import (
	ledger "github.com/xraph/ledger"
	"github.com/xraph/ledger/plugin"
	"github.com/xraph/ledger/store"
	"github.com/xraph/ledger/types"
)

// Option configures the ledger Forge extension.
type Option func(*Extension)

// WithStore sets the store for the ledger engine directly.
func WithStore(s store.Store) Option {
	return func(e *Extension) {
		e.store = s
	}
}

// WithLedgerOption passes a ledger.Option through to the underlying engine.
func WithLedgerOption(opt ledger.Option) Option {
	return func(e *Extension) {
		e.ledgerOpts = append(e.ledgerOpts, opt)
	}
}

// WithPlugin registers a ledger plugin.
func WithPlugin(p plugin.Plugin) Option {
	return func(e *Extension) {
		e.ledgerOpts = append(e.ledgerOpts, ledger.WithPlugin(p))
	}
}

// WithSignConvention sets the Credit/Debit sign policy of the Book the
// extension creates.
func WithSignConvention(conv types.SignConvention) Option {
	return func(e *Extension) {
		e.ledgerOpts = append(e.ledgerOpts, ledger.WithSignConvention(conv))
	}
}

// WithConfig sets the Forge extension configuration.
func WithConfig(cfg Config) Option {
	return func(e *Extension) { e.config = cfg }
}

// WithDisableRoutes sets Config.DisableRoutes. The extension registers no
// HTTP routes, so the flag changes nothing.
func WithDisableRoutes() Option {
	return func(e *Extension) { e.config.DisableRoutes = true }
}

// WithDisableMigrate prevents auto-migration on start.
func WithDisableMigrate() Option {
	return func(e *Extension) { e.config.DisableMigrate = true }
}

// WithBasePath sets Config.BasePath. The extension registers no HTTP
// routes, so the path is only recorded.
func WithBasePath(path string) Option {
	return func(e *Extension) { e.config.BasePath = path }
}

// WithRequireConfig requires config to be present in YAML files.
// If true and no config is found, Register returns an error.
func WithRequireConfig(require bool) Option {
	return func(e *Extension) { e.config.RequireConfig = require }
}

// WithGroveDatabase records the name of a grove.DB and the driver backend
// ("postgres", "sqlite", or "mongo") meant for the store. Register does not
// resolve the database from the DI container or build a store from it: it
// returns an error unless a store is also supplied with WithStore.
func WithGroveDatabase(name, driver string) Option {
	return func(e *Extension) {
		e.config.GroveDatabase = name
		e.config.GroveDriver = driver
		e.useGrove = true
	}
}
