package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"mercator-hq/crucible/pkg/experiment"
)

// SQLiteStore persists snapshots in a SQLite database.
//
// The database runs in WAL mode with a single open connection, since SQLite
// supports only one writer at a time.
//
// An open store holds an exclusive lock on "<path>.lock" until Close. A
// second process opening the same path waits up to LockTimeout and then
// fails with ErrLocked, so one process at a time owns the experiments.
type SQLiteStore struct {
	db        *sql.DB
	path      string
	lock      *fileLock
	closeOnce sync.Once

	saveStmt   *sql.Stmt
	loadStmt   *sql.Stmt
	deleteStmt *sql.Stmt
}

// SQLiteConfig configures the SQLite store.
type SQLiteConfig struct {
	// Path is the database file. Parent directories are created.
	Path string

	// BusyTimeout is how long to wait for locks before failing.
	// Default: 5 seconds
	BusyTimeout time.Duration

	// LockTimeout is how long to wait for another process to release the
	// store.
	// Default: 5 seconds
	LockTimeout time.Duration
}

// NewSQLiteStore opens or creates the database at cfg.Path.
func NewSQLiteStore(cfg SQLiteConfig) (*SQLiteStore, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("db path cannot be empty")
	}
	if cfg.BusyTimeout == 0 {
		cfg.BusyTimeout = 5 * time.Second
	}
	if cfg.LockTimeout == 0 {
		cfg.LockTimeout = 5 * time.Second
	}

	var lock *fileLock
	if cfg.Path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create store directory: %w", err)
		}
		var err error
		if lock, err = acquireLock(cfg.Path+".lock", cfg.LockTimeout); err != nil {
			return nil, err
		}
	}

	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(%d)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)",
		cfg.Path, cfg.BusyTimeout.Milliseconds())

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		lock.release()
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	s := &SQLiteStore{db: db, path: cfg.Path, lock: lock}

	if err := s.initSchema(); err != nil {
		s.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	if err := s.prepareStatements(); err != nil {
		s.Close()
		return nil, fmt.Errorf("failed to prepare statements: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS experiments (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		creator TEXT NOT NULL,
		type TEXT NOT NULL,
		state TEXT NOT NULL,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL,
		revision INTEGER NOT NULL DEFAULT 0,
		snapshot TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_experiments_state ON experiments(state);
	CREATE INDEX IF NOT EXISTS idx_experiments_creator ON experiments(creator);
	CREATE INDEX IF NOT EXISTS idx_experiments_type ON experiments(type);
	CREATE INDEX IF NOT EXISTS idx_experiments_created ON experiments(created_at, id);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return err
	}

	// Databases written before snapshots carried a revision lack the column.
	var n int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM pragma_table_info('experiments') WHERE name = 'revision'`).Scan(&n); err != nil {
		return err
	}
	if n == 0 {
		if _, err := s.db.Exec(`ALTER TABLE experiments ADD COLUMN revision INTEGER NOT NULL DEFAULT 0`); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteStore) prepareStatements() error {
	var err error

	s.saveStmt, err = s.db.Prepare(`
		INSERT INTO experiments (id, name, creator, type, state, created_at, updated_at, revision, snapshot)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			state = excluded.state,
			updated_at = excluded.updated_at,
			revision = excluded.revision,
			snapshot = excluded.snapshot
		WHERE excluded.revision > experiments.revision
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare save statement: %w", err)
	}

	s.loadStmt, err = s.db.Prepare(`SELECT snapshot FROM experiments WHERE id = ?`)
	if err != nil {
		return fmt.Errorf("failed to prepare load statement: %w", err)
	}

	s.deleteStmt, err = s.db.Prepare(`DELETE FROM experiments WHERE id = ?`)
	if err != nil {
		return fmt.Errorf("failed to prepare delete statement: %w", err)
	}
	return nil
}

// Save implements Store.
func (s *SQLiteStore) Save(ctx context.Context, snap experiment.Snapshot) error {
	if snap.ID == "" {
		return NewStorageError("sqlite", "save", fmt.Errorf("snapshot id cannot be empty"))
	}

	data, err := json.Marshal(snap)
	if err != nil {
		return NewStorageError("sqlite", "save", fmt.Errorf("failed to marshal snapshot: %w", err))
	}

	updated := snap.UpdatedAt
	if updated.IsZero() {
		updated = time.Now()
	}

	res, err := s.saveStmt.ExecContext(ctx,
		snap.ID,
		snap.Definition.Name,
		snap.Definition.Creator,
		string(snap.Definition.Type),
		string(snap.State),
		snap.CreatedAt.UnixNano(),
		updated.UnixNano(),
		snap.Revision,
		string(data),
	)
	if err != nil {
		return NewStorageError("sqlite", "save", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return NewStorageError("sqlite", "save", err)
	}
	if n == 0 {
		var stored int64
		if err := s.db.QueryRowContext(ctx, `SELECT revision FROM experiments WHERE id = ?`, snap.ID).Scan(&stored); err != nil {
			return NewStorageError("sqlite", "save", err)
		}
		return NewStorageError("sqlite", "save", staleError(snap, stored))
	}
	return nil
}

// Load implements Store.
func (s *SQLiteStore) Load(ctx context.Context, id string) (experiment.Snapshot, error) {
	var data string
	err := s.loadStmt.QueryRowContext(ctx, id).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return experiment.Snapshot{}, ErrNotFound
	}
	if err != nil {
		return experiment.Snapshot{}, NewStorageError("sqlite", "load", err)
	}
	return decodeSnapshot(data)
}

// List implements Store.
func (s *SQLiteStore) List(ctx context.Context, filter Filter) ([]experiment.Snapshot, error) {
	var (
		where []string
		args  []any
	)
	if filter.State != "" {
		where = append(where, "state = ?")
		args = append(args, string(filter.State))
	}
	if filter.Creator != "" {
		where = append(where, "creator = ?")
		args = append(args, filter.Creator)
	}
	if filter.Type != "" {
		where = append(where, "type = ?")
		args = append(args, string(filter.Type))
	}

	query := "SELECT snapshot FROM experiments"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at, id"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, NewStorageError("sqlite", "list", err)
	}
	defer rows.Close()

	out := []experiment.Snapshot{}
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, NewStorageError("sqlite", "list", err)
		}
		snap, err := decodeSnapshot(data)
		if err != nil {
			return nil, err
		}
		out = append(out, snap)
	}
	if err := rows.Err(); err != nil {
		return nil, NewStorageError("sqlite", "list", err)
	}
	return out, nil
}

// Delete implements Store.
func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	if _, err := s.deleteStmt.ExecContext(ctx, id); err != nil {
		return NewStorageError("sqlite", "delete", err)
	}
	return nil
}

// Ping checks database connectivity. It is suitable for registration as a
// readiness check.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close implements Store.
func (s *SQLiteStore) Close() error {
	var err error
	s.closeOnce.Do(func() {
		for _, stmt := range []*sql.Stmt{s.saveStmt, s.loadStmt, s.deleteStmt} {
			if stmt != nil {
				stmt.Close()
			}
		}
		err = s.db.Close()
		if lerr := s.lock.release(); err == nil {
			err = lerr
		}
	})
	return err
}

func decodeSnapshot(data string) (experiment.Snapshot, error) {
	var snap experiment.Snapshot
	if err := json.Unmarshal([]byte(data), &snap); err != nil {
		return experiment.Snapshot{}, NewStorageError("sqlite", "decode", err)
	}
	return snap, nil
}
