/*
errors.go - Centralized error types for the reconciliation engine

PURPOSE:
  All error types in one place for consistency and discoverability.
  Domain packages wrap these errors with additional context.

ERROR CATEGORIES:
  1. Batch errors    - The export cannot be read at all (fatal for the pass)
  2. Record errors   - One row is unusable (skipped, pass continues)
  3. Mutation errors - A calendar create/update/delete failed (classified, pass continues)
  4. Ledger errors   - A deletion fact could not be persisted (warning, pass continues)

PROPAGATION:
  Only batch errors abort a pass. Everything else is contained per record and
  surfaces through the Calendar Event Status column of the tracking sheet.

USAGE:
    if errors.Is(err, generic.ErrMalformedBatch) {
        // abort the pass
    }

SEE ALSO:
  - ledger.go: Returns LedgerWriteError
  - leave/normalize.go: Returns MalformedBatchError / RecordSkippedError
  - reconcile/engine.go: Classifies CalendarMutationError
*/
package generic

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrMalformedBatch is returned when the batch cannot be parsed at all:
	// a required column is missing or a timestamp is unreadable.
	ErrMalformedBatch = errors.New("malformed batch")

	// ErrRecordSkipped marks a single row that was excluded from processing.
	ErrRecordSkipped = errors.New("record skipped")

	// ErrCalendarMutationFailed is returned when a create/update/delete call fails.
	ErrCalendarMutationFailed = errors.New("calendar mutation failed")

	// ErrLedgerWriteFailed is returned when a deletion could not be persisted
	// to the deleted-record ledger after the calendar event was removed.
	ErrLedgerWriteFailed = errors.New("ledger write failed")

	// ErrMutationRejected is wrapped by store adapters when the remote service
	// answered with an error status (as opposed to a transport failure).
	ErrMutationRejected = errors.New("mutation rejected by remote store")

	// ErrNoBatch is returned when no export file is available for a pass.
	ErrNoBatch = errors.New("no batch file found")

	// ErrRunInProgress is returned when a pass is triggered while another runs.
	ErrRunInProgress = errors.New("reconciliation pass already in progress")

	// ErrNotFound is returned when a referenced run or ledger entry doesn't exist.
	ErrNotFound = errors.New("not found")

	// ErrUnsupportedBackend is returned for an unknown ledger DSN scheme.
	ErrUnsupportedBackend = errors.New("unsupported ledger backend")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// MalformedBatchError describes why a batch was rejected.
type MalformedBatchError struct {
	Row    int    // 1-based data row, 0 when the problem is structural
	Column string // offending column, if any
	Reason string
}

func (e *MalformedBatchError) Error() string {
	switch {
	case e.Row > 0 && e.Column != "":
		return fmt.Sprintf("malformed batch: row %d column %q: %s", e.Row, e.Column, e.Reason)
	case e.Column != "":
		return fmt.Sprintf("malformed batch: column %q: %s", e.Column, e.Reason)
	default:
		return fmt.Sprintf("malformed batch: %s", e.Reason)
	}
}

func (e *MalformedBatchError) Unwrap() error {
	return ErrMalformedBatch
}

// RecordSkippedError describes a row excluded from the pass.
type RecordSkippedError struct {
	Row        int
	ApprovalID string
	Reason     string
}

func (e *RecordSkippedError) Error() string {
	if e.ApprovalID != "" {
		return fmt.Sprintf("record skipped: row %d (%s): %s", e.Row, e.ApprovalID, e.Reason)
	}
	return fmt.Sprintf("record skipped: row %d: %s", e.Row, e.Reason)
}

func (e *RecordSkippedError) Unwrap() error {
	return ErrRecordSkipped
}

// MutationOp names the calendar operation that failed.
type MutationOp string

const (
	OpCreate MutationOp = "create"
	OpUpdate MutationOp = "update"
	OpDelete MutationOp = "delete"
)

// CalendarMutationError wraps the cause of a failed calendar call.
type CalendarMutationError struct {
	Op         MutationOp
	ApprovalID string
	EventID    string
	Err        error
}

func (e *CalendarMutationError) Error() string {
	return fmt.Sprintf("calendar %s for %s failed: %v", e.Op, e.ApprovalID, e.Err)
}

// Is matches ErrCalendarMutationFailed; the cause stays reachable through Unwrap.
func (e *CalendarMutationError) Is(target error) bool {
	return target == ErrCalendarMutationFailed
}

func (e *CalendarMutationError) Unwrap() error {
	return e.Err
}

// LedgerWriteError records a deletion that was applied to the calendar but
// could not be made durable.
type LedgerWriteError struct {
	ApprovalID string
	Err        error
}

func (e *LedgerWriteError) Error() string {
	return fmt.Sprintf("ledger write for %s failed: %v", e.ApprovalID, e.Err)
}

func (e *LedgerWriteError) Is(target error) bool {
	return target == ErrLedgerWriteFailed
}

func (e *LedgerWriteError) Unwrap() error {
	return e.Err
}

// RejectedError is what store adapters return for an error-status answer.
type RejectedError struct {
	StatusCode int
	Message    string
}

func (e *RejectedError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("remote store rejected request: status %d", e.StatusCode)
	}
	return fmt.Sprintf("remote store rejected request: status %d: %s", e.StatusCode, e.Message)
}

func (e *RejectedError) Unwrap() error {
	return ErrMutationRejected
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsFatal returns true if the error must abort the whole pass.
func IsFatal(err error) bool {
	return errors.Is(err, ErrMalformedBatch) || errors.Is(err, ErrNoBatch)
}

// IsRejected returns true if the remote store answered with an error status.
func IsRejected(err error) bool {
	return errors.Is(err, ErrMutationRejected)
}

// IsNotFound returns true if the error indicates a missing run or entry.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
