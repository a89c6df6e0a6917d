// Package ledger is the durable record of every journal entry already
// processed. It is the sole source of truth for deduplication: the polling
// loop consults it before every insert decision, never an in-memory set.
//
// The table is append-only. There is no update or delete surface, and a
// unique index over the (title, date, time) natural key enforces the
// at-most-one invariant at the storage layer.
package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS entries (
	id    INTEGER PRIMARY KEY AUTOINCREMENT,
	title TEXT NOT NULL,
	date  TEXT NOT NULL,
	time  TEXT NOT NULL
);
CREATE UNIQUE INDEX IF NOT EXISTS entries_natural_key ON entries (title, date, time);
`

// Record is a processed entry as stored.
type Record struct {
	ID    int64  `json:"id"`
	Title string `json:"title"`
	Date  string `json:"date"`
	Time  string `json:"time"`
}

// Stats are point-in-time ledger counters for the status surface.
type Stats struct {
	Entries int64 `json:"entries"`
}

// Ledger wraps the entries database.
type Ledger struct {
	db *sql.DB
}

// Open opens (creating if necessary) the ledger at path with WAL and a busy
// timeout applied, then ensures the schema exists.
func Open(path string) (*Ledger, error) {
	if path != ":memory:" {
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("ledger: mkdir: %w", err)
			}
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("ledger: open: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 10000",
		"PRAGMA synchronous = NORMAL",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("ledger: %s: %w", p, err)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("ledger: schema: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ledger: ping: %w", err)
	}
	return &Ledger{db: db}, nil
}

// OpenMemory opens an in-memory ledger for testing. MaxOpenConns(1) keeps
// every query on the same in-memory database; Close is registered via
// t.Cleanup.
func OpenMemory(t testing.TB) *Ledger {
	t.Helper()
	l, err := Open(":memory:")
	if err != nil {
		t.Fatalf("ledger.OpenMemory: %v", err)
	}
	l.db.SetMaxOpenConns(1)
	t.Cleanup(func() { l.Close() })
	return l
}

// Exists reports whether the (title, date, time) key is already recorded.
func (l *Ledger) Exists(ctx context.Context, title, date, timeOf string) (bool, error) {
	var one int
	err := l.db.QueryRowContext(ctx,
		`SELECT 1 FROM entries WHERE title = ? AND date = ? AND time = ? LIMIT 1`,
		title, date, timeOf).Scan(&one)
	switch {
	case err == sql.ErrNoRows:
		return false, nil
	case err != nil:
		return false, fmt.Errorf("ledger: exists: %w", err)
	}
	return true, nil
}

// Insert records a newly seen entry and returns the stored Record. Inserting
// a key that already exists fails on the unique index; callers are expected
// to check Exists first.
func (l *Ledger) Insert(ctx context.Context, title, date, timeOf string) (Record, error) {
	res, err := l.db.ExecContext(ctx,
		`INSERT INTO entries (title, date, time) VALUES (?, ?, ?)`,
		title, date, timeOf)
	if err != nil {
		return Record{}, fmt.Errorf("ledger: insert: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return Record{}, fmt.Errorf("ledger: insert id: %w", err)
	}
	return Record{ID: id, Title: title, Date: date, Time: timeOf}, nil
}

// Stats returns current counters.
func (l *Ledger) Stats(ctx context.Context) (Stats, error) {
	var s Stats
	if err := l.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM entries`).Scan(&s.Entries); err != nil {
		return Stats{}, fmt.Errorf("ledger: stats: %w", err)
	}
	return s, nil
}

// Close closes the underlying database.
func (l *Ledger) Close() error {
	return l.db.Close()
}
