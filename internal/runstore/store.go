// Package runstore persists runs. Each run owns a unique folder under
// the store root holding its trace log, digests, artifact, and result
// summary, written once and append-only. A SQLite index (runs.db) at the
// root records one summary row per run for listing; the folder, not the
// index row, is the authoritative record a verifier replays.
package runstore

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

// Store is a hierarchical run store rooted at one directory.
type Store struct {
	root string
	db   *sql.DB
}

// Open creates or opens a store root. The SQLite index is configured
// with WAL mode for concurrent reads and a single writer connection to
// avoid SQLITE_BUSY. Idempotent: safe to call on an existing root.
func Open(root string) (*Store, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create store root: %w", err)
	}

	db, err := sql.Open("sqlite3", filepath.Join(root, "runs.db"))
	if err != nil {
		return nil, fmt.Errorf("open run index: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("connect run index: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, err
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply run index schema: %w", err)
	}

	return &Store{root: root, db: db}, nil
}

func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("apply %q: %w", pragma, err)
		}
	}
	return nil
}

// Root returns the store root directory.
func (s *Store) Root() string { return s.root }

// Close releases the index connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Record is a run summary: the result.json shape and the index row. The
// created_at timestamp is informational only and is excluded from every
// digest input.
type Record struct {
	RunID     string `json:"run_id"`
	Verdict   string `json:"verdict"`
	ChainHash string `json:"chain_hash"`
	CreatedAt string `json:"created_at"`
}

// IndexRun inserts or replaces the index row for a run. The verdict is
// normalized onto the stored set, so rows read back from result.json
// files of older layouts still index cleanly.
func (s *Store) IndexRun(ctx context.Context, rec Record) error {
	rec.Verdict = NormalizeVerdict(rec.Verdict)
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO runs (id, verdict, chain_hash, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			verdict = excluded.verdict,
			chain_hash = excluded.chain_hash
	`, rec.RunID, rec.Verdict, rec.ChainHash, rec.CreatedAt)
	if err != nil {
		return fmt.Errorf("index run %s: %w", rec.RunID, err)
	}
	return nil
}

// ListRuns returns every indexed run, oldest first. UUIDv7 run IDs are
// time-sortable, so the secondary id ordering keeps ties deterministic.
func (s *Store) ListRuns(ctx context.Context) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, verdict, chain_hash, created_at
		FROM runs
		ORDER BY created_at ASC, id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var rec Record
		if err := rows.Scan(&rec.RunID, &rec.Verdict, &rec.ChainHash, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan run row: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	return out, nil
}
