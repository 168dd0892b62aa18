package queue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"time"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"clipto/internal/config"
)

// Store persists workflows and their remote jobs in SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open creates the state directories, opens the queue database and brings its
// schema up to date.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}

	path := cfg.QueueDBPath()
	db, err := sql.Open("sqlite", dataSourceName(path))
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	store := &Store{db: db, path: path}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// dataSourceName carries the pragmas in the DSN so every pooled connection
// gets them, not just the first.
func dataSourceName(path string) string {
	q := url.Values{}
	for _, pragma := range []string{"journal_mode(WAL)", "foreign_keys(1)", "busy_timeout(5000)"} {
		q.Add("_pragma", pragma)
	}
	return "file:" + path + "?" + q.Encode()
}

// Close closes the database. It is safe on a nil Store.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func ensureContext(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return ctx
}

// Writers from both lanes and the CLI share the file, so a write may still
// meet SQLITE_BUSY once busy_timeout has expired. Such writes are retried with
// doubling backoff.
const (
	busyAttempts   = 5
	busyFirstDelay = 10 * time.Millisecond
	busyMaxDelay   = 200 * time.Millisecond
)

func isSQLiteBusy(err error) bool {
	var sqliteErr *sqlite.Error
	return errors.As(err, &sqliteErr) && sqliteErr.Code()&0xff == sqlite3.SQLITE_BUSY
}

// retryBusy runs op until it succeeds, fails with anything but SQLITE_BUSY,
// or runs out of attempts.
func retryBusy[T any](ctx context.Context, op func() (T, error)) (T, error) {
	delay := busyFirstDelay
	for attempt := 1; ; attempt++ {
		out, err := op()
		if err == nil || !isSQLiteBusy(err) || attempt == busyAttempts {
			return out, err
		}
		select {
		case <-ctx.Done():
			var zero T
			return zero, ctx.Err()
		case <-time.After(delay):
		}
		delay = min(delay*2, busyMaxDelay)
	}
}

func retryOnBusy(ctx context.Context, op func() error) error {
	_, err := retryBusy(ctx, func() (struct{}, error) { return struct{}{}, op() })
	return err
}

func (s *Store) execWithRetry(ctx context.Context, query string, args ...any) (sql.Result, error) {
	ctx = ensureContext(ctx)
	return retryBusy(ctx, func() (sql.Result, error) {
		return s.db.ExecContext(ctx, query, args...)
	})
}

func (s *Store) execWithoutResultRetry(ctx context.Context, query string, args ...any) error {
	_, err := s.execWithRetry(ctx, query, args...)
	return err
}
