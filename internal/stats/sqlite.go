package stats

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/lox/blackjack/internal/game"
	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// SQLiteStore persists records in a SQLite database file.
type SQLiteStore struct {
	db      *sql.DB
	timeout time.Duration
}

// OpenSQLite opens the database at path and applies pending migrations.
func OpenSQLite(path string, timeout time.Duration) (*SQLiteStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("sqlite path is required")
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	dsn := fmt.Sprintf("%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(%d)", filepath.Clean(path), timeout.Milliseconds())
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// one writer at a time; the pool queues the rest
	db.SetMaxOpenConns(1)

	ctx, cancel := withTimeout(context.Background(), timeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", classifySQLite(err))
	}

	sub, err := fs.Sub(migrationsFS, "migrations")
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := migrate(ctx, db, sub); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteStore{db: db, timeout: timeout}, nil
}

// Close closes the database handle
func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *SQLiteStore) Get(ctx context.Context, user string) (Record, error) {
	r, err := s.Find(ctx, user)
	if errors.Is(err, ErrNotFound) {
		return NewRecord(user), nil
	}
	if err != nil {
		return NewRecord(user), err
	}
	return r, nil
}

// Increment updates the counters in a single upsert statement, so
// concurrent increments for the same user are not lost.
func (s *SQLiteStore) Increment(ctx context.Context, user string, outcome game.Outcome) (Record, error) {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	win, loss, draw := delta(outcome)
	r := NewRecord(user)
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO user_stats (user_key, win, loss, draw, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(user_key) DO UPDATE SET
			win = win + excluded.win,
			loss = loss + excluded.loss,
			draw = draw + excluded.draw,
			updated_at = excluded.updated_at
		RETURNING win, loss, draw`,
		user, win, loss, draw, time.Now().UTC().UnixMilli(),
	).Scan(&r.Win, &r.Loss, &r.Draw)
	if err != nil {
		return Record{}, fmt.Errorf("increment %s: %w", user, classifySQLite(err))
	}
	return r, nil
}

func (s *SQLiteStore) Delete(ctx context.Context, user string) error {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	res, err := s.db.ExecContext(ctx, `DELETE FROM user_stats WHERE user_key = ?`, user)
	if err != nil {
		return fmt.Errorf("delete %s: %w", user, classifySQLite(err))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete %s: %w", user, classifySQLite(err))
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLiteStore) Find(ctx context.Context, user string) (Record, error) {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	r := NewRecord(user)
	err := s.db.QueryRowContext(ctx,
		`SELECT win, loss, draw FROM user_stats WHERE user_key = ?`, user,
	).Scan(&r.Win, &r.Loss, &r.Draw)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, ErrNotFound
	}
	if err != nil {
		return Record{}, fmt.Errorf("find %s: %w", user, classifySQLite(err))
	}
	return r, nil
}

func (s *SQLiteStore) Put(ctx context.Context, record Record) error {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO user_stats (user_key, win, loss, draw, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(user_key) DO UPDATE SET
			win = excluded.win,
			loss = excluded.loss,
			draw = excluded.draw,
			updated_at = excluded.updated_at`,
		record.User, record.Win, record.Loss, record.Draw, time.Now().UTC().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("put %s: %w", record.User, classifySQLite(err))
	}
	return nil
}

func (s *SQLiteStore) Count(ctx context.Context) (int64, error) {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	var n int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM user_stats`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count records: %w", classifySQLite(err))
	}
	return n, nil
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()
	return classifySQLite(s.db.PingContext(ctx))
}

// classifySQLite marks lock contention, I/O failures and timeouts as
// ErrUnreachable. Anything else is returned unchanged.
func classifySQLite(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) ||
		errors.Is(err, sql.ErrConnDone) || errors.Is(err, driver.ErrBadConn) {
		return Unreachable(err)
	}

	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() & 0xff {
		case sqlite3lib.SQLITE_BUSY, sqlite3lib.SQLITE_LOCKED, sqlite3lib.SQLITE_IOERR,
			sqlite3lib.SQLITE_CANTOPEN, sqlite3lib.SQLITE_FULL, sqlite3lib.SQLITE_READONLY:
			return Unreachable(err)
		}
	}
	return err
}

// migrate applies numbered *.sql files above the recorded schema version.
func migrate(ctx context.Context, db *sql.DB, migrations fs.FS) error {
	if _, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_version (version INTEGER PRIMARY KEY)`); err != nil {
		return err
	}

	var current int
	if err := db.QueryRowContext(ctx, `SELECT COALESCE(MAX(version), 0) FROM schema_version`).Scan(&current); err != nil {
		return err
	}

	entries, err := fs.Glob(migrations, "*.sql")
	if err != nil {
		return err
	}
	sort.Strings(entries)

	for _, name := range entries {
		version, err := migrationVersion(name)
		if err != nil {
			return err
		}
		if version <= current {
			continue
		}

		body, err := fs.ReadFile(migrations, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}

		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin tx for migration %d: %w", version, err)
		}
		if _, err := tx.ExecContext(ctx, string(body)); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration %d failed: %w", version, err)
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO schema_version (version) VALUES (?)`, version); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("recording migration %d: %w", version, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %d: %w", version, err)
		}
	}
	return nil
}

// migrationVersion parses the numeric prefix of "0001_name.sql"
func migrationVersion(name string) (int, error) {
	base := strings.TrimSuffix(filepath.Base(name), ".sql")
	prefix, _, _ := strings.Cut(base, "_")
	version, err := strconv.Atoi(prefix)
	if err != nil || version <= 0 {
		return 0, fmt.Errorf("migration %q: invalid version number", name)
	}
	return version, nil
}
