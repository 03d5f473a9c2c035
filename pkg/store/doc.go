// Package store persists experiment snapshots so that the manager can rebuild
// its state after a restart.
//
// Two backends are provided:
//
//   - MemoryStore: process-local, used in tests and when persistence is off.
//   - SQLiteStore: a single SQLite file (modernc.org/sqlite, WAL mode). The full
//     snapshot is stored as JSON alongside indexed state, creator and type
//     columns used by List filters.
//
// Stores hold copies: a snapshot passed to Save and a snapshot returned by
// Load never alias each other.
package store
