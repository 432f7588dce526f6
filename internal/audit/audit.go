// Package audit keeps a local SQLite history of synchronization decisions.
//
// Every pipeline run appends one row per page to the decisions table, keyed
// by a run id. The history command reads it back so a maintainer can see why
// a secondary page was rewritten, or why a commit was blocked.
//
// The database is an embedded SQLite file in WAL mode:
//
//	.docsync/audit.db
//
// Nothing in the synchronization path reads the table; a failure to write
// it is logged by the caller and never blocks a run.
package audit

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
)

// timeLayout sorts lexically in chronological order.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// Entry is one recorded decision.
type Entry struct {
	ID        int64     `json:"id" yaml:"id"`
	RunID     string    `json:"run_id" yaml:"run_id"`
	Time      time.Time `json:"time" yaml:"time"`
	Page      string    `json:"page" yaml:"page"`
	Direction string    `json:"direction" yaml:"direction"`
	Verdict   string    `json:"verdict" yaml:"verdict"`
	Strategy  string    `json:"strategy" yaml:"strategy"`
	State     string    `json:"state" yaml:"state"`
	Retried   bool      `json:"retried" yaml:"retried"`
	Error     string    `json:"error,omitempty" yaml:"error,omitempty"`
	Report    string    `json:"report,omitempty" yaml:"report,omitempty"`
}

// NewRunID returns a time-ordered identifier for one pipeline run.
func NewRunID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

// DB wraps the audit database connection.
type DB struct {
	conn *sql.DB
}

// OpenContext creates or opens the audit database at path and ensures the
// schema exists. The caller must call Close.
func OpenContext(ctx context.Context, path string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create audit directory: %w", err)
	}

	conn, err := sql.Open("sqlite3", "file:"+path)
	if err != nil {
		return nil, fmt.Errorf("failed to open audit database: %w", err)
	}
	if err := conn.PingContext(ctx); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to ping audit database: %w", err)
	}

	// One writer per run; a single connection keeps pragmas in effect.
	conn.SetMaxOpenConns(1)

	db := &DB{conn: conn}

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
	} {
		if _, err := conn.ExecContext(ctx, pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to apply %q: %w", pragma, err)
		}
	}

	if err := db.initSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// Close checkpoints the WAL and closes the connection.
func (db *DB) Close() error {
	if db.conn == nil {
		return nil
	}
	_, _ = db.conn.Exec("PRAGMA wal_checkpoint(TRUNCATE)")
	if err := db.conn.Close(); err != nil {
		return fmt.Errorf("failed to close audit database: %w", err)
	}
	db.conn = nil
	return nil
}

func (db *DB) initSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS decisions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL,
		created_at TEXT NOT NULL,
		page TEXT NOT NULL,
		direction TEXT NOT NULL DEFAULT '',
		verdict TEXT NOT NULL,
		strategy TEXT NOT NULL,
		state TEXT NOT NULL,
		retried INTEGER NOT NULL DEFAULT 0,
		error TEXT NOT NULL DEFAULT '',
		report TEXT NOT NULL DEFAULT ''
	);

	CREATE INDEX IF NOT EXISTS idx_decisions_created ON decisions(created_at);
	CREATE INDEX IF NOT EXISTS idx_decisions_page ON decisions(page, created_at);
	CREATE INDEX IF NOT EXISTS idx_decisions_run ON decisions(run_id);
	`
	if _, err := db.conn.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to initialize audit schema: %w", err)
	}
	return nil
}

// Record appends entries in one transaction. A zero Time is set to now.
func (db *DB) Record(ctx context.Context, entries ...Entry) error {
	if len(entries) == 0 {
		return nil
	}

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
	INSERT INTO decisions (
		run_id, created_at, page, direction, verdict,
		strategy, state, retried, error, report
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	now := time.Now()
	for _, e := range entries {
		if e.Time.IsZero() {
			e.Time = now
		}
		_, err := stmt.ExecContext(ctx,
			e.RunID,
			e.Time.UTC().Format(timeLayout),
			e.Page,
			e.Direction,
			e.Verdict,
			e.Strategy,
			e.State,
			boolToInt(e.Retried),
			e.Error,
			e.Report,
		)
		if err != nil {
			return fmt.Errorf("failed to record decision for %s: %w", e.Page, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit decisions: %w", err)
	}
	return nil
}

// QueryOptions filters History.
type QueryOptions struct {
	// Since excludes entries recorded before it. Zero means no bound.
	Since time.Time
	// Page restricts results to one page key.
	Page string
	// RunID restricts results to one run.
	RunID string
	// Limit caps the number of entries. Zero means no limit.
	Limit int
}

// History returns matching entries, newest first.
func (db *DB) History(ctx context.Context, opts QueryOptions) ([]Entry, error) {
	var conditions []string
	var args []interface{}

	if !opts.Since.IsZero() {
		conditions = append(conditions, "created_at >= ?")
		args = append(args, opts.Since.UTC().Format(timeLayout))
	}
	if opts.Page != "" {
		conditions = append(conditions, "page = ?")
		args = append(args, opts.Page)
	}
	if opts.RunID != "" {
		conditions = append(conditions, "run_id = ?")
		args = append(args, opts.RunID)
	}

	query := `
		SELECT id, run_id, created_at, page, direction, verdict,
		       strategy, state, retried, error, report
		FROM decisions`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY created_at DESC, id DESC"
	if opts.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, opts.Limit)
	}

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query decisions: %w", err)
	}
	defer rows.Close()

	return scanEntries(rows)
}

func scanEntries(rows *sql.Rows) ([]Entry, error) {
	var entries []Entry
	for rows.Next() {
		var e Entry
		var created string
		var retried int
		if err := rows.Scan(
			&e.ID, &e.RunID, &created, &e.Page, &e.Direction, &e.Verdict,
			&e.Strategy, &e.State, &retried, &e.Error, &e.Report,
		); err != nil {
			return nil, fmt.Errorf("failed to scan decision: %w", err)
		}
		if t, err := time.Parse(timeLayout, created); err == nil {
			e.Time = t
		}
		e.Retried = retried != 0
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating decisions: %w", err)
	}
	return entries, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
