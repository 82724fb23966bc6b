package report

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // SQLite driver
)

// StoreFileName is the ledger database file kept inside each output
// directory. It is engine state, never part of the mirrored tree, and
// cleanup must not touch it.
const StoreFileName = ".spiegel.db"

// Store persists Reports in a SQLite database. One Store corresponds to
// one output directory; the database holds exactly the previous run's
// ledger, replaced wholesale when the current run ends.
type Store struct {
	db *sql.DB

	// dbPath is the path to the SQLite database file.
	dbPath string
}

// OpenStore opens or creates the ledger database at dbPath.
func OpenStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath+"?mode=rwc")
	if err != nil {
		return nil, fmt.Errorf("failed to open ledger database: %w", err)
	}

	// SQLite supports only one writer; the engine serializes all store
	// access anyway, so a single connection is enough.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	s := &Store{db: db, dbPath: dbPath}
	if err := s.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create ledger tables: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// createTables creates the ledger schema if it does not exist.
func (s *Store) createTables() error {
	schema := `
	-- One row per destination path decided upon in the stored run.
	CREATE TABLE IF NOT EXISTS entries (
		path TEXT PRIMARY KEY,
		mtime_unix_nano INTEGER NOT NULL,
		duplicate INTEGER NOT NULL DEFAULT 0,
		conflict INTEGER NOT NULL DEFAULT 0
	);

	-- Single-row metadata about the stored run.
	CREATE TABLE IF NOT EXISTS runs (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		finished_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	`

	_, err := s.db.ExecContext(context.Background(), schema)
	return err
}

// Load reads the previous run's Report. It returns (nil, nil) when no
// run has been stored yet.
func (s *Store) Load(ctx context.Context) (*Report, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM runs`).Scan(&count); err != nil {
		return nil, fmt.Errorf("failed to read run metadata: %w", err)
	}
	if count == 0 {
		return nil, nil
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT path, mtime_unix_nano, duplicate, conflict FROM entries ORDER BY path`)
	if err != nil {
		return nil, fmt.Errorf("failed to load ledger entries: %w", err)
	}
	defer rows.Close()

	r := New()
	for rows.Next() {
		var path string
		var mtimeNano int64
		var duplicate, conflict bool
		if err := rows.Scan(&path, &mtimeNano, &duplicate, &conflict); err != nil {
			return nil, fmt.Errorf("failed to scan ledger entry: %w", err)
		}

		var mtime time.Time
		if mtimeNano != 0 {
			mtime = time.Unix(0, mtimeNano)
		}
		r.entries[path] = &Entry{
			Path:      path,
			Mtime:     mtime,
			Duplicate: duplicate,
			Conflict:  conflict,
		}
	}
	return r, rows.Err()
}

// Save replaces the stored run with the given Report. The swap happens
// inside one transaction so a crash can never leave a half-written
// ledger behind.
func (s *Store) Save(ctx context.Context, r *Report) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin ledger transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	if _, err := tx.ExecContext(ctx, `DELETE FROM entries`); err != nil {
		return fmt.Errorf("failed to clear previous ledger: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO entries (path, mtime_unix_nano, duplicate, conflict) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare ledger insert: %w", err)
	}
	defer stmt.Close()

	for _, e := range r.Entries() {
		var mtimeNano int64
		if !e.Mtime.IsZero() {
			mtimeNano = e.Mtime.UnixNano()
		}
		if _, err := stmt.ExecContext(ctx, e.Path, mtimeNano, e.Duplicate, e.Conflict); err != nil {
			return fmt.Errorf("failed to insert ledger entry for %s: %w", e.Path, err)
		}
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO runs (id, finished_at) VALUES (1, CURRENT_TIMESTAMP)
		 ON CONFLICT(id) DO UPDATE SET finished_at = CURRENT_TIMESTAMP`); err != nil {
		return fmt.Errorf("failed to record run metadata: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit ledger: %w", err)
	}
	return nil
}
