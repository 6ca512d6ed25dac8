/*
dto.go - Data Transfer Objects for API responses

PURPOSE:
  JSON shapes of the admin API. Run history and ledger types from generic
  are mapped here so storage can change without breaking clients.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Response: Wrappers

SEE ALSO:
  - handlers.go: Uses these types
  - generic/history.go: RunRecord, RunOutcome
*/
package api

import (
	"time"

	"github.com/warp/leave-sync/generic"
)

// =============================================================================
// RUNS
// =============================================================================

// RunDTO represents one reconciliation pass.
type RunDTO struct {
	ID          string `json:"id"`
	Trigger     string `json:"trigger"`
	BatchFile   string `json:"batch_file,omitempty"`
	Status      string `json:"status"`
	Error       string `json:"error,omitempty"`
	StartedAt   string `json:"started_at"`
	CompletedAt string `json:"completed_at,omitempty"`

	Records  int         `json:"records"`
	Skipped  int         `json:"skipped"`
	Calendar CalendarDTO `json:"calendar"`
	Sheet    SheetDTO    `json:"sheet"`
}

type CalendarDTO struct {
	Created      int `json:"created"`
	Updated      int `json:"updated"`
	Deleted      int `json:"deleted"`
	Ignored      int `json:"ignored"`
	Unknown      int `json:"unknown"`
	Failures     int `json:"failures"`
	LedgerErrors int `json:"ledger_errors"`
}

type SheetDTO struct {
	RowsUpdated  int `json:"rows_updated"`
	RowsDeleted  int `json:"rows_deleted"`
	RowsAppended int `json:"rows_appended"`
}

// OutcomeDTO is the result for one Approval ID within a run.
type OutcomeDTO struct {
	ApprovalID     string `json:"approval_id"`
	Action         string `json:"action"`
	Classification string `json:"classification"`
	EventID        string `json:"event_id,omitempty"`
	Error          string `json:"error,omitempty"`
}

// RunDetailResponse is a run with its per-record outcomes.
type RunDetailResponse struct {
	Run      RunDTO       `json:"run"`
	Outcomes []OutcomeDTO `json:"outcomes"`
}

// =============================================================================
// LEDGER
// =============================================================================

type LedgerEntryDTO struct {
	ApprovalID string `json:"approval_id"`
	RecordedAt string `json:"recorded_at,omitempty"`
}

type LedgerResponse struct {
	Count   int              `json:"count"`
	Entries []LedgerEntryDTO `json:"entries"`
}

// =============================================================================
// STATUS & ERRORS
// =============================================================================

type StatusResponse struct {
	Scheduled bool    `json:"scheduled"`
	Schedule  string  `json:"schedule,omitempty"`
	NextRun   string  `json:"next_run,omitempty"`
	LastRun   *RunDTO `json:"last_run,omitempty"`
}

// ErrorResponse is returned for all error cases.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
	RunID   string `json:"run_id,omitempty"`
}

// =============================================================================
// MAPPING
// =============================================================================

func toRunDTO(r generic.RunRecord) RunDTO {
	dto := RunDTO{
		ID:        r.ID,
		Trigger:   r.Trigger,
		BatchFile: r.BatchFile,
		Status:    string(r.Status),
		Error:     r.Error,
		StartedAt: formatTime(r.StartedAt),
		Records:   r.Records,
		Skipped:   r.Skipped,
		Calendar: CalendarDTO{
			Created:      r.Created,
			Updated:      r.Updated,
			Deleted:      r.Deleted,
			Ignored:      r.Ignored,
			Unknown:      r.Unknown,
			Failures:     r.Failures,
			LedgerErrors: r.LedgerErrors,
		},
		Sheet: SheetDTO{
			RowsUpdated:  r.RowsUpdated,
			RowsDeleted:  r.RowsDeleted,
			RowsAppended: r.RowsAppended,
		},
	}
	if r.CompletedAt != nil {
		dto.CompletedAt = formatTime(*r.CompletedAt)
	}
	return dto
}

func toOutcomeDTOs(outcomes []generic.RunOutcome) []OutcomeDTO {
	dtos := make([]OutcomeDTO, len(outcomes))
	for i, o := range outcomes {
		dtos[i] = OutcomeDTO{
			ApprovalID:     o.ApprovalID,
			Action:         o.Action,
			Classification: o.Classification,
			EventID:        o.EventID,
			Error:          o.Error,
		}
	}
	return dtos
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
