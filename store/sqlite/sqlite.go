/*
Package sqlite provides a SQLite-backed ledger and run history.

PURPOSE:
  One database file holds both the deleted-record ledger and the history of
  reconciliation passes, so a single-host deployment needs nothing else.

INTERFACES IMPLEMENTED:
  generic.LedgerStore: deleted_records (append-only)
  generic.EntryLister: deleted_records with recorded_at
  generic.RunHistory:  reconciliation_runs + run_outcomes

APPEND-ONLY ENFORCEMENT:
  - deleted_records is only ever INSERTed into (INSERT ... ON CONFLICT DO NOTHING)
  - No UPDATE or DELETE statements touch it

KEY TABLES:
  deleted_records:     Approval IDs whose events were retracted
  reconciliation_runs: One row per pass (upserted while it runs)
  run_outcomes:        Per-record outcome of each pass

CONCURRENCY:
  Uses sync.RWMutex for thread-safety on top of SQLite's own locking.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging):
  - Readers (the HTTP API) don't block the pass writing outcomes
  - Single writer at a time
  - Better crash recovery

USAGE:
  store, err := sqlite.New("./data/leavesync.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

  ledger := generic.NewLedger(store)

SEE ALSO:
  - generic/store.go: LedgerStore interface
  - generic/history.go: RunHistory interface
  - store/ledger.go: DSN-based backend selection
*/
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/warp/leave-sync/generic"
)

// Store implements the ledger and run history using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if dbPath == ":memory:" {
		// Each connection to :memory: is a separate database.
		db.SetMaxOpenConns(1)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	-- Deleted-record ledger (append-only)
	CREATE TABLE IF NOT EXISTS deleted_records (
		approval_id TEXT PRIMARY KEY,
		recorded_at TEXT NOT NULL
	);

	-- One row per reconciliation pass
	CREATE TABLE IF NOT EXISTS reconciliation_runs (
		id TEXT PRIMARY KEY,
		trigger_source TEXT NOT NULL DEFAULT '',
		batch_file TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL,
		error TEXT,
		started_at TEXT NOT NULL,
		completed_at TEXT,
		records INTEGER NOT NULL DEFAULT 0,
		skipped INTEGER NOT NULL DEFAULT 0,
		created INTEGER NOT NULL DEFAULT 0,
		updated INTEGER NOT NULL DEFAULT 0,
		deleted INTEGER NOT NULL DEFAULT 0,
		ignored INTEGER NOT NULL DEFAULT 0,
		unknown INTEGER NOT NULL DEFAULT 0,
		failures INTEGER NOT NULL DEFAULT 0,
		ledger_errors INTEGER NOT NULL DEFAULT 0,
		rows_updated INTEGER NOT NULL DEFAULT 0,
		rows_deleted INTEGER NOT NULL DEFAULT 0,
		rows_appended INTEGER NOT NULL DEFAULT 0
	);

	CREATE INDEX IF NOT EXISTS idx_runs_started_at
		ON reconciliation_runs(started_at DESC);
	CREATE INDEX IF NOT EXISTS idx_runs_status
		ON reconciliation_runs(status);

	-- Per-record outcomes
	CREATE TABLE IF NOT EXISTS run_outcomes (
		run_id TEXT NOT NULL REFERENCES reconciliation_runs(id),
		seq INTEGER NOT NULL,
		approval_id TEXT NOT NULL,
		action TEXT NOT NULL,
		classification TEXT NOT NULL,
		event_id TEXT,
		error TEXT,
		PRIMARY KEY (run_id, seq)
	);

	CREATE INDEX IF NOT EXISTS idx_outcomes_approval
		ON run_outcomes(approval_id);
	`
	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// LEDGER STORE (generic.LedgerStore interface)
// =============================================================================

// Append records an Approval ID. Appending an existing id is a no-op.
func (s *Store) Append(ctx context.Context, approvalID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO deleted_records (approval_id, recorded_at) VALUES (?, ?)
		 ON CONFLICT(approval_id) DO NOTHING`,
		approvalID, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to append ledger entry: %w", err)
	}
	return nil
}

func (s *Store) Load(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `SELECT approval_id FROM deleted_records ORDER BY approval_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *Store) Entries(ctx context.Context) ([]generic.LedgerEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `SELECT approval_id, recorded_at FROM deleted_records ORDER BY approval_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []generic.LedgerEntry
	for rows.Next() {
		var (
			e  generic.LedgerEntry
			at string
		)
		if err := rows.Scan(&e.ApprovalID, &at); err != nil {
			return nil, err
		}
		if t, err := time.Parse(time.RFC3339, at); err == nil {
			e.RecordedAt = &t
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// =============================================================================
// RUN HISTORY (generic.RunHistory interface)
// =============================================================================

// SaveRun upserts a run.
func (s *Store) SaveRun(ctx context.Context, r generic.RunRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO reconciliation_runs (id, trigger_source, batch_file, status, error, started_at, completed_at,
			records, skipped, created, updated, deleted, ignored, unknown, failures, ledger_errors,
			rows_updated, rows_deleted, rows_appended)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			batch_file = excluded.batch_file,
			status = excluded.status,
			error = excluded.error,
			completed_at = excluded.completed_at,
			records = excluded.records,
			skipped = excluded.skipped,
			created = excluded.created,
			updated = excluded.updated,
			deleted = excluded.deleted,
			ignored = excluded.ignored,
			unknown = excluded.unknown,
			failures = excluded.failures,
			ledger_errors = excluded.ledger_errors,
			rows_updated = excluded.rows_updated,
			rows_deleted = excluded.rows_deleted,
			rows_appended = excluded.rows_appended
	`

	var completedAt *string
	if r.CompletedAt != nil {
		s := r.CompletedAt.UTC().Format(time.RFC3339)
		completedAt = &s
	}

	_, err := s.db.ExecContext(ctx, query,
		r.ID, r.Trigger, r.BatchFile, string(r.Status), nullString(r.Error),
		r.StartedAt.UTC().Format(time.RFC3339), completedAt,
		r.Records, r.Skipped, r.Created, r.Updated, r.Deleted, r.Ignored, r.Unknown,
		r.Failures, r.LedgerErrors, r.RowsUpdated, r.RowsDeleted, r.RowsAppended,
	)
	if err != nil {
		return fmt.Errorf("failed to save run: %w", err)
	}
	return nil
}

// SaveOutcomes replaces the outcomes of a run atomically.
func (s *Store) SaveOutcomes(ctx context.Context, runID string, outcomes []generic.RunOutcome) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM run_outcomes WHERE run_id = ?`, runID); err != nil {
		return err
	}
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO run_outcomes (run_id, seq, approval_id, action, classification, event_id, error)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, o := range outcomes {
		if _, err := stmt.ExecContext(ctx, runID, i, o.ApprovalID, o.Action, o.Classification,
			nullString(o.EventID), nullString(o.Error)); err != nil {
			return fmt.Errorf("failed to save outcome %s: %w", o.ApprovalID, err)
		}
	}
	return tx.Commit()
}

const runColumns = `id, trigger_source, batch_file, status, error, started_at, completed_at,
	records, skipped, created, updated, deleted, ignored, unknown, failures, ledger_errors,
	rows_updated, rows_deleted, rows_appended`

// ListRuns returns runs, newest first.
func (s *Store) ListRuns(ctx context.Context, status generic.RunStatus, limit int) ([]generic.RunRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `SELECT ` + runColumns + ` FROM reconciliation_runs`
	var args []any
	if status != "" {
		query += ` WHERE status = ?`
		args = append(args, string(status))
	}
	query += ` ORDER BY started_at DESC, id DESC`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []generic.RunRecord
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *r)
	}
	return runs, rows.Err()
}

// GetRun returns a run with its outcomes in batch order.
func (s *Store) GetRun(ctx context.Context, id string) (*generic.RunRecord, []generic.RunOutcome, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	run, err := scanRun(s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM reconciliation_runs WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil, generic.ErrNotFound
	}
	if err != nil {
		return nil, nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id, approval_id, action, classification, event_id, error
		FROM run_outcomes WHERE run_id = ? ORDER BY seq`, id)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	var outcomes []generic.RunOutcome
	for rows.Next() {
		var (
			o             generic.RunOutcome
			eventID, oErr sql.NullString
		)
		if err := rows.Scan(&o.RunID, &o.ApprovalID, &o.Action, &o.Classification, &eventID, &oErr); err != nil {
			return nil, nil, err
		}
		o.EventID = eventID.String
		o.Error = oErr.String
		outcomes = append(outcomes, o)
	}
	return run, outcomes, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (*generic.RunRecord, error) {
	var (
		r                   generic.RunRecord
		status              string
		runErr, completedAt sql.NullString
		startedAt           string
	)
	if err := row.Scan(
		&r.ID, &r.Trigger, &r.BatchFile, &status, &runErr, &startedAt, &completedAt,
		&r.Records, &r.Skipped, &r.Created, &r.Updated, &r.Deleted, &r.Ignored, &r.Unknown,
		&r.Failures, &r.LedgerErrors, &r.RowsUpdated, &r.RowsDeleted, &r.RowsAppended,
	); err != nil {
		return nil, err
	}
	r.Status = generic.RunStatus(status)
	r.Error = runErr.String
	r.StartedAt, _ = time.Parse(time.RFC3339, startedAt)
	if completedAt.Valid {
		t, _ := time.Parse(time.RFC3339, completedAt.String)
		r.CompletedAt = &t
	}
	return &r, nil
}

// Helper functions

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

var (
	_ generic.LedgerStore = (*Store)(nil)
	_ generic.EntryLister = (*Store)(nil)
	_ generic.RunHistory  = (*Store)(nil)
)
