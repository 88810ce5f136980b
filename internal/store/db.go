// Package store provides the SQLite-backed enrichment ledger.
package store

import (
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/albacete-simd/mande-enrich/internal/ledger"
	"github.com/albacete-simd/mande-enrich/internal/resultcsv"
)

// DB wraps an SQLite connection for ledger storage.
type DB struct {
	db *sql.DB
}

// Open opens or creates an SQLite database at the given path.
func Open(path string) (*DB, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("creating db directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// Single writer connection to avoid SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	if err := migrate(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrating database: %w", err)
	}

	return &DB{db: db}, nil
}

// Close closes the database.
func (d *DB) Close() error {
	return d.db.Close()
}

// Insert stores a ledger entry.
func (d *DB) Insert(e *ledger.Entry) error {
	_, err := d.db.Exec(`
		INSERT INTO enrichments (id, run_id, timestamp, log_file, target, records,
			mean_count, mean_var, mean_max_var, mean_min_var, labels, outcome)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID,
		e.RunID,
		e.Timestamp.UTC().Format(time.RFC3339Nano),
		e.LogFile,
		e.Target,
		e.Records,
		e.Means.Count,
		e.Means.Var,
		e.Means.MaxVar,
		e.Means.MinVar,
		ledger.JoinLabels(e.Labels),
		string(e.Outcome),
	)
	if err != nil {
		return fmt.Errorf("inserting entry: %w", err)
	}
	return nil
}

// QueryFilter controls which entries are returned by Query.
type QueryFilter struct {
	Since  time.Time
	Target string
	RunID  string
	Limit  int
}

// Query returns entries matching the filter, newest first.
func (d *DB) Query(f QueryFilter) ([]*ledger.Entry, error) {
	query := `SELECT id, run_id, timestamp, log_file, target, records,
		mean_count, mean_var, mean_max_var, mean_min_var, labels, outcome
		FROM enrichments WHERE 1=1`
	var args []interface{}

	if !f.Since.IsZero() {
		query += " AND timestamp >= ?"
		args = append(args, f.Since.UTC().Format(time.RFC3339Nano))
	}
	if f.Target != "" {
		query += " AND target = ?"
		args = append(args, f.Target)
	}
	if f.RunID != "" {
		query += " AND run_id = ?"
		args = append(args, f.RunID)
	}

	query += " ORDER BY timestamp DESC, rowid DESC"

	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}

	rows, err := d.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying entries: %w", err)
	}
	defer rows.Close()

	var entries []*ledger.Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Count returns the total number of ledger entries.
func (d *DB) Count() (int, error) {
	var n int
	if err := d.db.QueryRow(`SELECT COUNT(*) FROM enrichments`).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting entries: %w", err)
	}
	return n, nil
}

// Purge deletes entries older than the given retention duration.
func (d *DB) Purge(retention time.Duration) (int64, error) {
	cutoff := time.Now().Add(-retention).UTC().Format(time.RFC3339Nano)
	result, err := d.db.Exec(`DELETE FROM enrichments WHERE timestamp < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("purging old entries: %w", err)
	}
	return result.RowsAffected()
}

func scanEntry(rows *sql.Rows) (*ledger.Entry, error) {
	var e ledger.Entry
	var tsStr, labels, outcome string

	err := rows.Scan(
		&e.ID,
		&e.RunID,
		&tsStr,
		&e.LogFile,
		&e.Target,
		&e.Records,
		&e.Means.Count,
		&e.Means.Var,
		&e.Means.MaxVar,
		&e.Means.MinVar,
		&labels,
		&outcome,
	)
	if err != nil {
		return nil, fmt.Errorf("scanning entry row: %w", err)
	}

	e.Timestamp, _ = time.Parse(time.RFC3339Nano, tsStr)
	e.Labels = ledger.SplitLabels(labels)
	e.Outcome = resultcsv.Outcome(outcome)

	return &e, nil
}

func migrate(db *sql.DB) error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS enrichments (
			id           TEXT PRIMARY KEY,
			run_id       TEXT NOT NULL,
			timestamp    TEXT NOT NULL,
			log_file     TEXT NOT NULL,
			target       TEXT NOT NULL,
			records      INTEGER NOT NULL,
			mean_count   REAL NOT NULL,
			mean_var     REAL NOT NULL,
			mean_max_var REAL NOT NULL,
			mean_min_var REAL NOT NULL,
			labels       TEXT NOT NULL,
			outcome      TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_enrichments_target ON enrichments(target, timestamp)`,
		`CREATE INDEX IF NOT EXISTS idx_enrichments_run ON enrichments(run_id)`,
	}

	for _, m := range migrations {
		if _, err := db.Exec(m); err != nil {
			return fmt.Errorf("migration failed: %w\nSQL: %s", err, m)
		}
	}

	slog.Debug("database schema up to date")
	return nil
}
