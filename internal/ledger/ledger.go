// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package ledger records pipeline runs and WorkItem transitions in a SQLite
// database under the corpus. The artifacts in each WorkItem stay the source
// of truth; the ledger is history for operators.
package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/citereview/pkg/types"
)

const (
	// Dir is the corpus subdirectory holding citereview's own files.
	Dir    = ".citereview"
	dbFile = "ledger.db"
)

// Store is an open ledger database.
type Store struct {
	db *sql.DB
}

// Run is one invocation of the pipeline driver.
type Run struct {
	ID         uuid.UUID
	StartedAt  time.Time
	FinishedAt time.Time
	Stages     []string
	Counts     RunCounts
}

// RunCounts summarizes a finished run.
type RunCounts struct {
	Items    int
	Advanced int
	Failed   int
}

// Transition is one recorded stage attempt for a WorkItem.
type Transition struct {
	RunID uuid.UUID
	Slug  string
	From  types.Status
	To    types.Status
	At    time.Time
	// Error is empty for a successful transition.
	Error string
}

// Path returns the ledger location for a corpus root.
func Path(corpusDir string) string {
	return filepath.Join(corpusDir, Dir, dbFile)
}

// Open opens or creates the ledger for corpusDir and ensures its schema.
func Open(corpusDir string) (*Store, error) {
	dbPath := Path(corpusDir)
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("creating ledger directory: %w", err)
	}
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening ledger: %w", err)
	}
	// Workers share one connection so writes serialize in-process.
	db.SetMaxOpenConns(1)

	s := &Store{db: db}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating ledger schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			started_at TEXT NOT NULL,
			finished_at TEXT,
			stages TEXT NOT NULL,
			items INTEGER NOT NULL DEFAULT 0,
			advanced INTEGER NOT NULL DEFAULT 0,
			failed INTEGER NOT NULL DEFAULT 0
		)`,
		`CREATE TABLE IF NOT EXISTS items (
			slug TEXT PRIMARY KEY,
			title TEXT NOT NULL,
			status TEXT NOT NULL,
			documents INTEGER NOT NULL DEFAULT 0,
			accepted INTEGER NOT NULL DEFAULT 0,
			positive INTEGER NOT NULL DEFAULT 0,
			updated_at TEXT NOT NULL,
			run_id TEXT REFERENCES runs(id)
		)`,
		`CREATE TABLE IF NOT EXISTS transitions (
			rowid INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id TEXT NOT NULL REFERENCES runs(id),
			slug TEXT NOT NULL,
			from_status TEXT NOT NULL,
			to_status TEXT NOT NULL,
			at TEXT NOT NULL,
			error TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_transitions_run ON transitions(run_id)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// BeginRun records the start of a run and returns its id.
func (s *Store) BeginRun(ctx context.Context, stages []string) (Run, error) {
	run := Run{ID: uuid.New(), StartedAt: time.Now().UTC(), Stages: stages}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, started_at, stages) VALUES (?, ?, ?)`,
		run.ID.String(), run.StartedAt.Format(time.RFC3339Nano), strings.Join(stages, ","),
	)
	if err != nil {
		return Run{}, fmt.Errorf("recording run start: %w", err)
	}
	return run, nil
}

// FinishRun stamps the run's end time and counts.
func (s *Store) FinishRun(ctx context.Context, id uuid.UUID, counts RunCounts) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE runs SET finished_at = ?, items = ?, advanced = ?, failed = ? WHERE id = ?`,
		time.Now().UTC().Format(time.RFC3339Nano), counts.Items, counts.Advanced, counts.Failed, id.String(),
	)
	if err != nil {
		return fmt.Errorf("recording run end: %w", err)
	}
	return nil
}

// RecordTransition stores one stage attempt and, when it succeeded, the
// WorkItem's new snapshot.
func (s *Store) RecordTransition(ctx context.Context, runID uuid.UUID, tr Transition, state types.ItemState) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	at := tr.At
	if at.IsZero() {
		at = time.Now().UTC()
	}
	var errText sql.NullString
	if tr.Error != "" {
		errText = sql.NullString{String: tr.Error, Valid: true}
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO transitions (run_id, slug, from_status, to_status, at, error) VALUES (?, ?, ?, ?, ?, ?)`,
		runID.String(), tr.Slug, tr.From.String(), tr.To.String(), at.Format(time.RFC3339Nano), errText,
	)
	if err != nil {
		return fmt.Errorf("inserting transition for %s: %w", tr.Slug, err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO items (slug, title, status, documents, accepted, positive, updated_at, run_id)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(slug) DO UPDATE SET
			title=excluded.title, status=excluded.status, documents=excluded.documents,
			accepted=excluded.accepted, positive=excluded.positive,
			updated_at=excluded.updated_at, run_id=excluded.run_id`,
		state.Slug, state.Title, state.Status.String(), state.Documents, state.Accepted, state.Positive,
		at.Format(time.RFC3339Nano), runID.String(),
	)
	if err != nil {
		return fmt.Errorf("upserting item %s: %w", state.Slug, err)
	}
	return tx.Commit()
}

// LastRun returns the most recently started run. ok is false for an empty ledger.
func (s *Store) LastRun(ctx context.Context) (run Run, ok bool, err error) {
	var id, started, stages string
	var finished sql.NullString
	err = s.db.QueryRowContext(ctx,
		`SELECT id, started_at, finished_at, stages, items, advanced, failed
		 FROM runs ORDER BY started_at DESC LIMIT 1`,
	).Scan(&id, &started, &finished, &stages, &run.Counts.Items, &run.Counts.Advanced, &run.Counts.Failed)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, false, nil
	}
	if err != nil {
		return Run{}, false, fmt.Errorf("reading last run: %w", err)
	}
	if run.ID, err = uuid.Parse(id); err != nil {
		return Run{}, false, fmt.Errorf("parsing run id %q: %w", id, err)
	}
	run.StartedAt, _ = time.Parse(time.RFC3339Nano, started)
	if finished.Valid {
		run.FinishedAt, _ = time.Parse(time.RFC3339Nano, finished.String)
	}
	if stages != "" {
		run.Stages = strings.Split(stages, ",")
	}
	return run, true, nil
}

// Transitions lists a run's transitions in the order they were recorded.
func (s *Store) Transitions(ctx context.Context, runID uuid.UUID) ([]Transition, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT slug, from_status, to_status, at, error FROM transitions WHERE run_id = ? ORDER BY rowid`,
		runID.String(),
	)
	if err != nil {
		return nil, fmt.Errorf("querying transitions: %w", err)
	}
	defer rows.Close()

	var out []Transition
	for rows.Next() {
		var tr Transition
		var from, to, at string
		var errText sql.NullString
		if err := rows.Scan(&tr.Slug, &from, &to, &at, &errText); err != nil {
			return nil, fmt.Errorf("scanning transition: %w", err)
		}
		tr.RunID = runID
		tr.From = types.ParseStatus(from)
		tr.To = types.ParseStatus(to)
		tr.At, _ = time.Parse(time.RFC3339Nano, at)
		tr.Error = errText.String
		out = append(out, tr)
	}
	return out, rows.Err()
}

// LastError returns the most recent failure recorded for slug, or "".
func (s *Store) LastError(ctx context.Context, slug string) (string, error) {
	var msg sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT error FROM transitions WHERE slug = ? AND error IS NOT NULL ORDER BY rowid DESC LIMIT 1`,
		slug,
	).Scan(&msg)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("reading last error for %s: %w", slug, err)
	}
	return msg.String, nil
}
