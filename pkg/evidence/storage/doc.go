// Package storage provides storage backends for evidence records.
//
//   - SQLiteStorage: embedded database (github.com/mattn/go-sqlite3) with WAL
//     mode, a schema version table and indexes on the commonly filtered
//     columns.
//   - MemoryStorage: in-memory map, for tests and ephemeral runs.
//
// Both backends apply the same filter, sort and pagination semantics, so a
// Query returns the same records regardless of backend.
package storage
