package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"mercator-hq/crucible/pkg/evidence"
)

// SQLiteConfig contains configuration for the SQLite storage backend.
type SQLiteConfig struct {
	// Path is the database file path.
	Path string

	// MaxOpenConns is the maximum number of open connections.
	// Default: 10
	MaxOpenConns int

	// MaxIdleConns is the maximum number of idle connections.
	// Default: 5
	MaxIdleConns int

	// WALMode enables write-ahead logging.
	// Default: true
	WALMode bool

	// BusyTimeout is how long to wait when the database is locked.
	// Default: 5 seconds
	BusyTimeout time.Duration
}

// DefaultSQLiteConfig returns the default SQLite configuration.
func DefaultSQLiteConfig() *SQLiteConfig {
	return &SQLiteConfig{
		Path:         "data/evidence.db",
		MaxOpenConns: 10,
		MaxIdleConns: 5,
		WALMode:      true,
		BusyTimeout:  5 * time.Second,
	}
}

// SQLiteStorage implements evidence.Storage using SQLite.
type SQLiteStorage struct {
	db         *sql.DB
	config     *SQLiteConfig
	insertStmt *sql.Stmt
	logger     *slog.Logger
}

// sortColumns maps query sort fields to columns. Only these values are ever
// interpolated into SQL.
var sortColumns = map[string]string{
	"timestamp":   "timestamp",
	"recorded_at": "recorded_at",
	"cost":        "cost",
	"budget_used": "budget_used",
}

// NewSQLiteStorage opens the database, applies the schema and verifies the
// schema version.
func NewSQLiteStorage(config *SQLiteConfig) (*SQLiteStorage, error) {
	if config == nil {
		config = DefaultSQLiteConfig()
	}
	if config.Path == "" {
		return nil, evidence.NewStorageError("sqlite", "open", fmt.Errorf("path cannot be empty"))
	}
	if config.MaxOpenConns <= 0 {
		config.MaxOpenConns = 10
	}
	if config.MaxIdleConns <= 0 {
		config.MaxIdleConns = 5
	}
	if config.BusyTimeout <= 0 {
		config.BusyTimeout = 5 * time.Second
	}

	logger := slog.Default().With("component", "evidence.storage.sqlite")

	if config.Path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(config.Path), 0o755); err != nil {
			return nil, evidence.NewStorageError("sqlite", "mkdir", err)
		}
	}

	db, err := sql.Open("sqlite3", config.Path)
	if err != nil {
		return nil, evidence.NewStorageError("sqlite", "open", err)
	}
	db.SetMaxOpenConns(config.MaxOpenConns)
	db.SetMaxIdleConns(config.MaxIdleConns)

	s := &SQLiteStorage{
		db:     db,
		config: config,
		logger: logger,
	}

	if err := s.initialize(); err != nil {
		db.Close()
		return nil, err
	}

	logger.Info("SQLite evidence storage initialized",
		"path", config.Path,
		"wal_mode", config.WALMode,
		"max_open_conns", config.MaxOpenConns,
	)
	return s, nil
}

func (s *SQLiteStorage) initialize() error {
	if s.config.WALMode {
		if _, err := s.db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
			return evidence.NewStorageError("sqlite", "enable_wal", err)
		}
	}

	if _, err := s.db.Exec(fmt.Sprintf("PRAGMA busy_timeout=%d;", s.config.BusyTimeout.Milliseconds())); err != nil {
		return evidence.NewStorageError("sqlite", "set_busy_timeout", err)
	}

	if _, err := s.db.Exec(Schema); err != nil {
		return evidence.NewStorageError("sqlite", "create_schema", err)
	}

	if _, err := s.db.Exec(InsertSchemaVersion, SchemaVersion); err != nil {
		return evidence.NewStorageError("sqlite", "insert_schema_version", err)
	}

	var version int
	err := s.db.QueryRow(GetSchemaVersion).Scan(&version)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return evidence.NewStorageError("sqlite", "get_schema_version", err)
	}
	if version != SchemaVersion {
		return evidence.NewStorageError("sqlite", "schema_version_mismatch",
			fmt.Errorf("expected schema version %d, got %d", SchemaVersion, version))
	}

	s.insertStmt, err = s.db.Prepare(`
		INSERT INTO evidence (
			id, experiment_id, type,
			actor, from_state, to_state,
			cost, budget_used, budget_allocated, quality_score,
			message, payload_hash,
			timestamp, recorded_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return evidence.NewStorageError("sqlite", "prepare_insert", err)
	}
	return nil
}

// Store implements evidence.Storage.
func (s *SQLiteStorage) Store(ctx context.Context, record *evidence.Record) error {
	_, err := s.insertStmt.ExecContext(ctx,
		record.ID, record.ExperimentID, string(record.Type),
		record.Actor, record.FromState, record.ToState,
		record.Cost, record.BudgetUsed, record.BudgetAllocated, record.QualityScore,
		record.Message, record.PayloadHash,
		record.Timestamp.UnixNano(), record.RecordedAt.UnixNano(),
	)
	if err != nil {
		return evidence.NewStorageError("sqlite", "store", err)
	}
	return nil
}

// Query implements evidence.Storage.
func (s *SQLiteStorage) Query(ctx context.Context, query *evidence.Query) ([]*evidence.Record, error) {
	sqlQuery, args := s.buildSelect(query)

	rows, err := s.db.QueryContext(ctx, sqlQuery, args...)
	if err != nil {
		return nil, evidence.NewStorageError("sqlite", "query", err)
	}
	defer rows.Close()

	records := []*evidence.Record{}
	for rows.Next() {
		record, err := scanRow(rows)
		if err != nil {
			return nil, evidence.NewStorageError("sqlite", "scan", err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, evidence.NewStorageError("sqlite", "query", err)
	}
	return records, nil
}

// QueryStream implements evidence.Storage.
func (s *SQLiteStorage) QueryStream(ctx context.Context, query *evidence.Query) (<-chan *evidence.Record, <-chan error, error) {
	sqlQuery, args := s.buildSelect(query)

	recordsCh := make(chan *evidence.Record, 100)
	errCh := make(chan error, 1)

	go func() {
		defer close(recordsCh)
		defer close(errCh)

		rows, err := s.db.QueryContext(ctx, sqlQuery, args...)
		if err != nil {
			errCh <- evidence.NewStorageError("sqlite", "query_stream", err)
			return
		}
		defer rows.Close()

		for rows.Next() {
			record, err := scanRow(rows)
			if err != nil {
				errCh <- evidence.NewStorageError("sqlite", "scan", err)
				return
			}
			select {
			case <-ctx.Done():
				errCh <- ctx.Err()
				return
			case recordsCh <- record:
			}
		}
		if err := rows.Err(); err != nil {
			errCh <- evidence.NewStorageError("sqlite", "query_stream", err)
		}
	}()

	return recordsCh, errCh, nil
}

// Count implements evidence.Storage.
func (s *SQLiteStorage) Count(ctx context.Context, query *evidence.Query) (int64, error) {
	where, args := buildWhereClause(query)
	sqlQuery := "SELECT COUNT(*) FROM evidence" + where

	var count int64
	if err := s.db.QueryRowContext(ctx, sqlQuery, args...).Scan(&count); err != nil {
		return 0, evidence.NewStorageError("sqlite", "count", err)
	}
	return count, nil
}

// Delete implements evidence.Storage.
func (s *SQLiteStorage) Delete(ctx context.Context, query *evidence.Query) (int64, error) {
	where, args := buildWhereClause(query)

	result, err := s.db.ExecContext(ctx, "DELETE FROM evidence"+where, args...)
	if err != nil {
		return 0, evidence.NewStorageError("sqlite", "delete", err)
	}
	count, err := result.RowsAffected()
	if err != nil {
		return 0, evidence.NewStorageError("sqlite", "delete", err)
	}
	return count, nil
}

// Ping checks database connectivity.
func (s *SQLiteStorage) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close implements evidence.Storage.
func (s *SQLiteStorage) Close() error {
	if s.insertStmt != nil {
		s.insertStmt.Close()
	}
	if err := s.db.Close(); err != nil {
		return evidence.NewStorageError("sqlite", "close", err)
	}
	s.logger.Info("SQLite evidence storage closed")
	return nil
}

func (s *SQLiteStorage) buildSelect(query *evidence.Query) (string, []any) {
	where, args := buildWhereClause(query)

	column, ok := sortColumns[query.SortBy]
	if !ok {
		column = "timestamp"
	}
	order := "DESC"
	if strings.EqualFold(query.SortOrder, "asc") {
		order = "ASC"
	}

	sqlQuery := `SELECT id, experiment_id, type, actor, from_state, to_state,
		cost, budget_used, budget_allocated, quality_score,
		message, payload_hash, timestamp, recorded_at
		FROM evidence` + where +
		fmt.Sprintf(" ORDER BY %s %s, id %s", column, order, order)

	// SQLite requires a LIMIT clause when OFFSET is used; -1 means unbounded.
	limit := -1
	if query.Limit > 0 {
		limit = query.Limit
	}
	sqlQuery += fmt.Sprintf(" LIMIT %d", limit)
	if query.Offset > 0 {
		sqlQuery += fmt.Sprintf(" OFFSET %d", query.Offset)
	}
	return sqlQuery, args
}

// buildWhereClause returns " WHERE ..." (or "") and its arguments.
func buildWhereClause(query *evidence.Query) (string, []any) {
	var (
		conditions []string
		args       []any
	)

	if query.StartTime != nil {
		conditions = append(conditions, "timestamp >= ?")
		args = append(args, query.StartTime.UnixNano())
	}
	if query.EndTime != nil {
		conditions = append(conditions, "timestamp <= ?")
		args = append(args, query.EndTime.UnixNano())
	}
	if query.ExperimentID != "" {
		conditions = append(conditions, "experiment_id = ?")
		args = append(args, query.ExperimentID)
	}
	if query.Type != "" {
		conditions = append(conditions, "type = ?")
		args = append(args, string(query.Type))
	}
	if query.Actor != "" {
		conditions = append(conditions, "actor = ?")
		args = append(args, query.Actor)
	}
	if query.MinCost != nil {
		conditions = append(conditions, "cost >= ?")
		args = append(args, *query.MinCost)
	}
	if query.MaxCost != nil {
		conditions = append(conditions, "cost <= ?")
		args = append(args, *query.MaxCost)
	}

	if len(conditions) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conditions, " AND "), args
}

func scanRow(rows *sql.Rows) (*evidence.Record, error) {
	var (
		record                    evidence.Record
		typ                       string
		actor, fromState, toState sql.NullString
		message, payloadHash      sql.NullString
		timestamp, recordedAt     int64
	)
	err := rows.Scan(
		&record.ID, &record.ExperimentID, &typ,
		&actor, &fromState, &toState,
		&record.Cost, &record.BudgetUsed, &record.BudgetAllocated, &record.QualityScore,
		&message, &payloadHash,
		&timestamp, &recordedAt,
	)
	if err != nil {
		return nil, err
	}

	record.Type = evidence.EventType(typ)
	record.Actor = actor.String
	record.FromState = fromState.String
	record.ToState = toState.String
	record.Message = message.String
	record.PayloadHash = payloadHash.String
	record.Timestamp = time.Unix(0, timestamp).UTC()
	record.RecordedAt = time.Unix(0, recordedAt).UTC()
	return &record, nil
}
