package extension

// Config holds the ledger extension configuration.
// Fields can be set programmatically via Option functions or loaded from
// YAML configuration files (under "extensions.ledger" or "ledger" keys).
type Config struct {
	// DisableRoutes is recorded and logged. The extension registers no HTTP
	// routes, so it changes nothing.
	DisableRoutes bool `json:"disable_routes" mapstructure:"disable_routes" yaml:"disable_routes"`

	// DisableMigrate prevents auto-migration on start.
	DisableMigrate bool `json:"disable_migrate" mapstructure:"disable_migrate" yaml:"disable_migrate"`

	// BasePath is a URL prefix (default: "/ledger"). The extension registers
	// no HTTP routes, so it is only recorded and logged.
	BasePath string `json:"base_path" mapstructure:"base_path" yaml:"base_path"`

	// GroveDatabase names a grove.DB registered in the DI container. It is
	// recorded and logged; Register does not resolve it. When
	// WithGroveDatabase was called, Register fails unless a store was
	// supplied with WithStore; when the value comes only from a config file,
	// Register falls back to the memory store like any other run without
	// WithStore.
	GroveDatabase string `json:"grove_database" mapstructure:"grove_database" yaml:"grove_database"`

	// GroveDriver names a store backend ("postgres", "sqlite", or "mongo")
	// to pair with GroveDatabase. It is recorded and logged; Register does
	// not construct a store from it.
	GroveDriver string `json:"grove_driver" mapstructure:"grove_driver" yaml:"grove_driver"`

	// RequireConfig requires config to be present in YAML files.
	// If true and no config is found, Register returns an error.
	RequireConfig bool `json:"-" yaml:"-"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		BasePath: "/ledger",
	}
}
