// Package journal keeps a local SQLite audit of reconciliation runs: one row
// per run plus one row per record action. The index itself stays the source
// of truth; the journal exists so operators can answer "what did last
// Tuesday's purge actually touch".
package journal

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"

	"github.com/verdantlabs/curator/internal/reconcile"
	"github.com/verdantlabs/curator/migrations"
)

// Journal is the SQLite-backed run journal.
type Journal struct {
	db *sql.DB
}

// Open creates or opens the journal database at path, applies pragmas, and
// runs pending migrations.
func Open(path string) (*Journal, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create journal directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}

	if err := enablePragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable pragmas: %w", err)
	}

	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Journal{db: db}, nil
}

// enablePragmas sets SQLite pragmas for performance and safety.
func enablePragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
		"PRAGMA synchronous=NORMAL",
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("execute %s: %w", pragma, err)
		}
	}

	return nil
}

// runMigrations applies pending migrations from the embedded SQL files.
func runMigrations(db *sql.DB) error {
	goose.SetLogger(goose.NopLogger())
	goose.SetBaseFS(migrations.FS)

	if err := goose.SetDialect("sqlite"); err != nil {
		return fmt.Errorf("set dialect: %w", err)
	}

	if err := goose.Up(db, "."); err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}

	return nil
}

// Close closes the journal database.
func (j *Journal) Close() error {
	return j.db.Close()
}

// Run is an in-progress journal entry. It implements reconcile.Sink so the
// driver can stream per-record actions into it.
type Run struct {
	journal *Journal
	ID      string
	Pass    string
}

// Compile-time interface check
var _ reconcile.Sink = (*Run)(nil)

// Begin opens a new run entry and returns its handle.
func (j *Journal) Begin(ctx context.Context, pass string, dryRun bool) (*Run, error) {
	id := ulid.Make().String()
	now := time.Now().UTC().Format(time.RFC3339)

	_, err := j.db.ExecContext(ctx, `
		INSERT INTO runs (id, pass, dry_run, started_at)
		VALUES (?, ?, ?, ?)
	`, id, pass, boolToInt(dryRun), now)
	if err != nil {
		return nil, fmt.Errorf("begin run: %w", err)
	}

	return &Run{journal: j, ID: id, Pass: pass}, nil
}

// Record stores one per-record action. Journal failures are logged and
// swallowed; an audit hiccup must never fail the reconciliation itself.
func (r *Run) Record(ctx context.Context, a reconcile.Action) {
	_, err := r.journal.db.ExecContext(ctx, `
		INSERT INTO run_actions (run_id, record_id, kind, detail, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, r.ID, a.RecordID, a.Kind, a.Detail, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		slog.Error("journal write failed",
			"component", "journal",
			"run_id", r.ID,
			"record_id", a.RecordID,
			"error", err,
		)
	}
}

// Finish closes the run entry with its final counters.
func (r *Run) Finish(ctx context.Context, s reconcile.Summary) error {
	now := time.Now().UTC().Format(time.RFC3339)

	_, err := r.journal.db.ExecContext(ctx, `
		UPDATE runs
		SET finished_at = ?, scanned = ?, matched = ?, updated = ?,
		    skipped = ?, removed = ?, errors = ?, cancelled = ?
		WHERE id = ?
	`, now, s.Scanned, s.Matched, s.Updated, s.Skipped, s.Removed, s.Errors,
		boolToInt(s.Cancelled), r.ID)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	return nil
}

// Entry is one completed (or in-progress) run as stored in the journal.
type Entry struct {
	ID         string
	Pass       string
	DryRun     bool
	StartedAt  string
	FinishedAt string
	Summary    reconcile.Summary
}

// History returns the most recent runs, newest first.
func (j *Journal) History(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := j.db.QueryContext(ctx, `
		SELECT id, pass, dry_run, started_at, COALESCE(finished_at, ''),
		       scanned, matched, updated, skipped, removed, errors, cancelled
		FROM runs
		ORDER BY started_at DESC, id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var dryRun, cancelled int
		if err := rows.Scan(&e.ID, &e.Pass, &dryRun, &e.StartedAt, &e.FinishedAt,
			&e.Summary.Scanned, &e.Summary.Matched, &e.Summary.Updated,
			&e.Summary.Skipped, &e.Summary.Removed, &e.Summary.Errors, &cancelled); err != nil {
			return nil, fmt.Errorf("scan history row: %w", err)
		}
		e.DryRun = dryRun != 0
		e.Summary.Cancelled = cancelled != 0
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// ActionEntry is one per-record action as stored in the journal.
type ActionEntry struct {
	RecordID  string
	Kind      string
	Detail    string
	CreatedAt string
}

// Actions returns the per-record actions for one run, in insertion order.
func (j *Journal) Actions(ctx context.Context, runID string) ([]ActionEntry, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT record_id, kind, detail, created_at
		FROM run_actions
		WHERE run_id = ?
		ORDER BY id
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query actions: %w", err)
	}
	defer rows.Close()

	var actions []ActionEntry
	for rows.Next() {
		var a ActionEntry
		if err := rows.Scan(&a.RecordID, &a.Kind, &a.Detail, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan action row: %w", err)
		}
		actions = append(actions, a)
	}
	return actions, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
