package store

import "fmt"

// Config selects and configures a store backend.
type Config struct {
	// Backend is "memory" or "sqlite".
	Backend string

	// SQLite configures the sqlite backend.
	SQLite SQLiteConfig
}

// New creates the configured store.
func New(cfg Config) (Store, error) {
	switch cfg.Backend {
	case "", "memory":
		return NewMemoryStore(), nil
	case "sqlite":
		return NewSQLiteStore(cfg.SQLite)
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Backend)
	}
}
