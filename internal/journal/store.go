package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// Run statuses.
const (
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusPartial   = "completed_with_failures"
	StatusFailed    = "failed"
	StatusCanceled  = "canceled"
)

var (
	// ErrNotFound reports an unknown run id.
	ErrNotFound = errors.New("run not found")
	// ErrAmbiguous reports a run id prefix matching more than one run.
	ErrAmbiguous = errors.New("run id prefix is ambiguous")
)

// Run is one organizer pass.
type Run struct {
	ID         string    `json:"id"`
	Root       string    `json:"root"`
	Status     string    `json:"status"`
	DryRun     bool      `json:"dry_run"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at,omitzero"`
	Discovered int       `json:"discovered"`
	Moved      int       `json:"moved"`
	Failed     int       `json:"failed"`
	Skipped    int       `json:"skipped"`
	Pruned     int       `json:"pruned"`
	Bytes      int64     `json:"bytes"`
	Error      string    `json:"error,omitempty"`
}

// Duration is the wall time of a finished run.
func (r Run) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// Entry is the journaled outcome of one file.
type Entry struct {
	Source      string `json:"source"`
	Destination string `json:"destination"`
	Category    string `json:"category"`
	Status      string `json:"status"`
	Size        int64  `json:"size"`
	Error       string `json:"error,omitempty"`
}

// Store manages run history backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the journal database and applies migrations.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("ensure journal directory: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// Pragmas below are per connection.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: path}
	if err := store.applyMigrations(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Path returns the database file location.
func (s *Store) Path() string { return s.path }

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// BeginRun records a run as running.
func (s *Store) BeginRun(ctx context.Context, run Run) error {
	if run.Status == "" {
		run.Status = StatusRunning
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, root, status, dry_run, started_at) VALUES (?, ?, ?, ?, ?)`,
		run.ID, run.Root, run.Status, boolToInt(run.DryRun), formatTime(run.StartedAt),
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

// FinishRun stores the final counters and status of run.
func (s *Store) FinishRun(ctx context.Context, run Run) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET status = ?, finished_at = ?, discovered = ?, moved = ?, failed = ?,
            skipped = ?, pruned = ?, bytes = ?, error_message = ?
         WHERE id = ?`,
		run.Status, formatTime(run.FinishedAt), run.Discovered, run.Moved, run.Failed,
		run.Skipped, run.Pruned, run.Bytes, nullableString(run.Error), run.ID,
	)
	if err != nil {
		return fmt.Errorf("update run: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, run.ID)
	}
	return nil
}

// RecordEntries appends file outcomes for runID in one transaction.
func (s *Store) RecordEntries(ctx context.Context, runID string, entries []Entry) error {
	if len(entries) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin entries tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO moves (run_id, source, destination, category, status, size, error_message)
         VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare entry insert: %w", err)
	}
	defer stmt.Close()

	for _, e := range entries {
		if _, err := stmt.ExecContext(ctx, runID, e.Source, e.Destination, e.Category, e.Status, e.Size, nullableString(e.Error)); err != nil {
			return fmt.Errorf("insert entry %s: %w", e.Source, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit entries: %w", err)
	}
	return nil
}

const runColumns = "id, root, status, dry_run, started_at, finished_at, discovered, moved, failed, skipped, pruned, bytes, error_message"

// ListRuns returns up to limit runs, newest first. A limit <= 0 lists all.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	query := "SELECT " + runColumns + " FROM runs ORDER BY started_at DESC, id"
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *run)
	}
	return runs, rows.Err()
}

// GetRun fetches a run by full id or unique prefix.
func (s *Store) GetRun(ctx context.Context, id string) (*Run, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: empty id", ErrNotFound)
	}
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+runColumns+" FROM runs WHERE id = ? OR substr(id, 1, ?) = ? ORDER BY id LIMIT 2",
		id, len(id), id,
	)
	if err != nil {
		return nil, fmt.Errorf("get run: %w", err)
	}
	defer rows.Close()

	var found []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		if run.ID == id {
			return run, nil
		}
		found = append(found, run)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	switch len(found) {
	case 0:
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	case 1:
		return found[0], nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrAmbiguous, id)
	}
}

// Entries returns the file outcomes recorded for runID in insertion order.
func (s *Store) Entries(ctx context.Context, runID string) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT source, destination, category, status, size, error_message
         FROM moves WHERE run_id = ? ORDER BY id`, runID)
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var (
			e      Entry
			errMsg sql.NullString
		)
		if err := rows.Scan(&e.Source, &e.Destination, &e.Category, &e.Status, &e.Size, &errMsg); err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		e.Error = errMsg.String
		out = append(out, e)
	}
	return out, rows.Err()
}

// Trim deletes all but the newest keep runs and their entries.
func (s *Store) Trim(ctx context.Context, keep int) (int64, error) {
	if keep <= 0 {
		return 0, nil
	}
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM runs WHERE id NOT IN (
            SELECT id FROM runs ORDER BY started_at DESC, id LIMIT ?
        )`, keep)
	if err != nil {
		return 0, fmt.Errorf("trim runs: %w", err)
	}
	return res.RowsAffected()
}
