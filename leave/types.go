/*
types.go - Leave request record and the canonical tracking-sheet layout

PURPOSE:
  A Record is one row of the portal export after normalization. It is the
  only source-side type the reconciliation engine sees.

IDENTITY:
  ApprovalID is the join key across the batch, the calendar and the sheet.
  It is unique within a batch (the normalizer drops later duplicates).

STATUS:
  The portal emits free-text status labels. Only Approved, Rejected and
  Revoked drive calendar mutations; Pending and anything else are carried
  through to the sheet untouched. Raw keeps the label as exported.

SEE ALSO:
  - normalize.go: Builds Records from a Table
  - event.go: Derives calendar event fields
  - row.go: Derives the tracking-sheet row
*/
package leave

import (
	"strings"
	"time"
)

// =============================================================================
// STATUS
// =============================================================================

type StatusKind string

const (
	StatusApproved StatusKind = "Approved"
	StatusRejected StatusKind = "Rejected"
	StatusRevoked  StatusKind = "Revoked"
	StatusPending  StatusKind = "Pending"
	StatusOther    StatusKind = "Other"
)

// Status is a classified status label.
type Status struct {
	Kind StatusKind
	Raw  string
}

// ParseStatus classifies a raw label, case-insensitively.
func ParseStatus(raw string) Status {
	trimmed := strings.TrimSpace(raw)
	s := Status{Kind: StatusOther, Raw: trimmed}
	for _, k := range []StatusKind{StatusApproved, StatusRejected, StatusRevoked, StatusPending} {
		if strings.EqualFold(trimmed, string(k)) {
			s.Kind = k
			break
		}
	}
	return s
}

func (s Status) IsApproved() bool { return s.Kind == StatusApproved }

// IsWithdrawn is true for Rejected and Revoked.
func (s Status) IsWithdrawn() bool {
	return s.Kind == StatusRejected || s.Kind == StatusRevoked
}

func (s Status) String() string {
	if s.Raw != "" {
		return s.Raw
	}
	return string(s.Kind)
}

// =============================================================================
// RECORD
// =============================================================================

// Record is one normalized leave request. Treat as immutable.
type Record struct {
	ApprovalID  string
	FirstName   string
	LastName    string
	TimeOffType string
	Status      Status
	Start       time.Time
	End         time.Time
	Substitute  string
	SubRequired bool
	// SubRequiredRaw is the exported cell, written back to the sheet verbatim.
	SubRequiredRaw string
	Reason         string
	Comments       string

	// Row is the 1-based data row in the batch, for diagnostics.
	Row int
}

func (r Record) FullName() string {
	return strings.TrimSpace(r.FirstName + " " + r.LastName)
}

// =============================================================================
// COLUMNS
// =============================================================================

const (
	ColApprovalID  = "Approval ID"
	ColFirstName   = "First Name"
	ColLastName    = "Last Name"
	ColTimeOffType = "Time Off Type"
	ColStatus      = "Status"
	ColStartTime   = "Start Time"
	ColEndTime     = "End Time"
	ColSubstitute  = "Substitute"
	ColSubRequired = "Sub Required?"
	ColReason      = "Reason"
	ColComments    = "Additional comments"
	ColLastUpdated = "Last Updated"
	ColEventStatus = "Calendar Event Status"
)

// RequiredColumns must all be present in a batch header.
var RequiredColumns = []string{
	ColApprovalID, ColFirstName, ColLastName, ColTimeOffType, ColStatus,
	ColStartTime, ColEndTime, ColSubstitute, ColSubRequired, ColReason, ColComments,
}

// Header is the canonical tracking-sheet header, columns A through M.
var Header = []string{
	ColApprovalID, ColFirstName, ColLastName, ColTimeOffType, ColStatus,
	ColStartTime, ColEndTime, ColSubstitute, ColSubRequired, ColReason, ColComments,
	ColLastUpdated, ColEventStatus,
}

// Sheet column positions (0-based).
const (
	SheetColApprovalID  = 0
	SheetColEventStatus = 12
	SheetWidth          = 13
)
