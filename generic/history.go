/*
history.go - Run history records

PURPOSE:
  Every reconciliation pass leaves a RunRecord (what ran, when, how it ended,
  and the summary counts) plus one RunOutcome per record. The tracking sheet
  stays the canonical audit trail for the current state of each request; run
  history answers "what did pass X do".

IMPLEMENTATIONS:
  - store/sqlite: reconciliation_runs + run_outcomes tables
  - generic/store: in-memory for testing
*/
package generic

import (
	"context"
	"time"
)

// RunStatus is the lifecycle state of a pass.
type RunStatus string

const (
	RunRunning   RunStatus = "running"
	RunCompleted RunStatus = "completed"
	// RunPartial means the calendar pass finished but the sheet projection
	// reported errors.
	RunPartial RunStatus = "partial"
	RunFailed  RunStatus = "failed"
)

// RunRecord is one reconciliation pass.
type RunRecord struct {
	ID          string     `json:"id"`
	Trigger     string     `json:"trigger"`
	BatchFile   string     `json:"batch_file"`
	Status      RunStatus  `json:"status"`
	Error       string     `json:"error,omitempty"`
	StartedAt   time.Time  `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	Records      int `json:"records"`
	Skipped      int `json:"skipped"`
	Created      int `json:"created"`
	Updated      int `json:"updated"`
	Deleted      int `json:"deleted"`
	Ignored      int `json:"ignored"`
	Unknown      int `json:"unknown"`
	Failures     int `json:"failures"`
	LedgerErrors int `json:"ledger_errors"`

	RowsUpdated  int `json:"rows_updated"`
	RowsDeleted  int `json:"rows_deleted"`
	RowsAppended int `json:"rows_appended"`
}

// RunOutcome is the result for one record within a pass.
type RunOutcome struct {
	RunID          string `json:"run_id"`
	ApprovalID     string `json:"approval_id"`
	Action         string `json:"action"`
	Classification string `json:"classification"`
	EventID        string `json:"event_id,omitempty"`
	Error          string `json:"error,omitempty"`
}

// RunHistory persists passes. SaveRun upserts by ID.
type RunHistory interface {
	SaveRun(ctx context.Context, run RunRecord) error
	SaveOutcomes(ctx context.Context, runID string, outcomes []RunOutcome) error
	// ListRuns returns the newest runs first. Empty status means any; limit <= 0 means no limit.
	ListRuns(ctx context.Context, status RunStatus, limit int) ([]RunRecord, error)
	// GetRun returns ErrNotFound for an unknown id.
	GetRun(ctx context.Context, id string) (*RunRecord, []RunOutcome, error)
}
