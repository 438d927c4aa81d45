// Package store provides a SQLite-backed ingestion ledger. Every successful
// document ingestion is recorded with its collection, source filename, and
// chunk count, so operators can answer "what is in this collection?" without
// querying the vector index.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // register "sqlite" driver
)

// Entry is one recorded ingestion.
type Entry struct {
	// Collection is the vector collection the document went into.
	Collection string
	// Source is the original filename of the ingested document.
	Source string
	// Format is the declared document format.
	Format string
	// ChunkCount is the number of chunks indexed.
	ChunkCount int
	// CreatedAt is when the ingestion was recorded.
	CreatedAt time.Time
}

// CollectionSummary aggregates the ledger per collection.
type CollectionSummary struct {
	// Collection is the collection name.
	Collection string
	// Documents is the number of ingestions recorded for the collection.
	Documents int
	// Chunks is the total number of chunks indexed into the collection.
	Chunks int
	// LastIngestAt is the time of the most recent ingestion.
	LastIngestAt time.Time
}

// Ledger persists and summarises ingestion records. Implementations must be
// safe for concurrent use.
type Ledger interface {
	// Record persists one successful ingestion.
	Record(ctx context.Context, entry Entry) error
	// Recent returns the most recent n entries for a collection, newest
	// first. Empty collection means all collections.
	Recent(ctx context.Context, collection string, n int) ([]Entry, error)
	// Collections returns a per-collection summary of the ledger.
	Collections(ctx context.Context) ([]CollectionSummary, error)
	// Close releases any resources held by the ledger.
	Close() error
}

// SQLiteLedger is a Ledger backed by a local SQLite database.
type SQLiteLedger struct {
	// db is the underlying database connection pool.
	db *sql.DB
}

// DefaultDBPath returns the default path for the ingestion ledger database.
// It resolves to ~/.docai/ledger.db, creating the directory if needed.
func DefaultDBPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("store: could not determine home directory: %w", err)
	}
	dir := filepath.Join(home, ".docai")
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", fmt.Errorf("store: could not create %s: %w", dir, err)
	}
	return filepath.Join(dir, "ledger.db"), nil
}

// Open opens (or creates) a SQLiteLedger at the given path and runs the schema
// migration. Use ":memory:" for an in-memory database in tests.
func Open(path string) (*SQLiteLedger, error) {
	// WAL mode improves concurrent read performance and is safe for single-host use.
	dsn := path + "?_journal_mode=WAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", path, err)
	}
	// Limit to a single writer connection to avoid SQLITE_BUSY under concurrent writes.
	db.SetMaxOpenConns(1)

	s := &SQLiteLedger{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// migrate creates the schema if it does not already exist.
func (s *SQLiteLedger) migrate() error {
	const ddl = `
CREATE TABLE IF NOT EXISTS ingestions (
    id           INTEGER PRIMARY KEY AUTOINCREMENT,
    collection   TEXT    NOT NULL,
    source       TEXT    NOT NULL,
    format       TEXT    NOT NULL,
    chunk_count  INTEGER NOT NULL,
    created_at   INTEGER NOT NULL  -- Unix timestamp (seconds)
);
CREATE INDEX IF NOT EXISTS idx_ingestions_collection_created
    ON ingestions (collection, created_at);
`
	if _, err := s.db.Exec(ddl); err != nil {
		return fmt.Errorf("store: migrate: %w", err)
	}
	return nil
}

// Record persists one successful ingestion.
func (s *SQLiteLedger) Record(ctx context.Context, entry Entry) error {
	const q = `INSERT INTO ingestions (collection, source, format, chunk_count, created_at) VALUES (?, ?, ?, ?, ?)`
	createdAt := entry.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	if _, err := s.db.ExecContext(ctx, q, entry.Collection, entry.Source, entry.Format, entry.ChunkCount, createdAt.Unix()); err != nil {
		return fmt.Errorf("store: record: %w", err)
	}
	return nil
}

// Recent returns the most recent n entries, newest first. Empty collection
// returns entries from every collection.
func (s *SQLiteLedger) Recent(ctx context.Context, collection string, n int) ([]Entry, error) {
	const q = `
SELECT collection, source, format, chunk_count, created_at
FROM   ingestions
WHERE  (? = '' OR collection = ?)
ORDER  BY created_at DESC, id DESC
LIMIT  ?`

	rows, err := s.db.QueryContext(ctx, q, collection, collection, n)
	if err != nil {
		return nil, fmt.Errorf("store: recent: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var ts int64
		if err := rows.Scan(&e.Collection, &e.Source, &e.Format, &e.ChunkCount, &ts); err != nil {
			return nil, fmt.Errorf("store: recent scan: %w", err)
		}
		e.CreatedAt = time.Unix(ts, 0)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: recent rows: %w", err)
	}
	return entries, nil
}

// Collections returns a per-collection summary, ordered by collection name.
func (s *SQLiteLedger) Collections(ctx context.Context) ([]CollectionSummary, error) {
	const q = `
SELECT collection, COUNT(*), SUM(chunk_count), MAX(created_at)
FROM   ingestions
GROUP  BY collection
ORDER  BY collection ASC`

	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("store: collections: %w", err)
	}
	defer rows.Close()

	var summaries []CollectionSummary
	for rows.Next() {
		var c CollectionSummary
		var ts int64
		if err := rows.Scan(&c.Collection, &c.Documents, &c.Chunks, &ts); err != nil {
			return nil, fmt.Errorf("store: collections scan: %w", err)
		}
		c.LastIngestAt = time.Unix(ts, 0)
		summaries = append(summaries, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: collections rows: %w", err)
	}
	return summaries, nil
}

// Close releases the database connection pool.
func (s *SQLiteLedger) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("store: close: %w", err)
	}
	return nil
}
