package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// fileLock is an exclusive SQLite transaction held open on a sidecar
// database. The operating system drops the underlying file lock when the
// process exits, so a crashed owner never leaves the store locked.
type fileLock struct {
	path string
	db   *sql.DB
	conn *sql.Conn
}

// acquireLock takes the lock at path, waiting up to timeout for another
// holder to release it.
func acquireLock(path string, timeout time.Duration) (*fileLock, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(%d)", path, timeout.Milliseconds())
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open store lock: %w", err)
	}
	db.SetMaxOpenConns(1)

	ctx := context.Background()
	conn, err := db.Conn(ctx)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to open store lock: %w", err)
	}
	if _, err := conn.ExecContext(ctx, "BEGIN EXCLUSIVE"); err != nil {
		conn.Close()
		db.Close()
		if isBusy(err) {
			return nil, fmt.Errorf("%w: %s held for more than %s", ErrLocked, path, timeout)
		}
		return nil, fmt.Errorf("failed to acquire store lock: %w", err)
	}
	return &fileLock{path: path, db: db, conn: conn}, nil
}

// release gives the lock up. It is a no-op on a nil lock.
func (l *fileLock) release() error {
	if l == nil {
		return nil
	}
	_, err := l.conn.ExecContext(context.Background(), "ROLLBACK")
	if cerr := l.conn.Close(); err == nil {
		err = cerr
	}
	if cerr := l.db.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("failed to release store lock %s: %w", l.path, err)
	}
	return nil
}

func isBusy(err error) bool {
	var serr *sqlite.Error
	if !errors.As(err, &serr) {
		return false
	}
	code := serr.Code() & 0xff
	return code == sqlite3.SQLITE_BUSY || code == sqlite3.SQLITE_LOCKED
}
