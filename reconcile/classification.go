/*
classification.go - The per-record decision table and its outcome tags

DECISION TABLE (E = calendar membership, D = ledger membership, S = status):

  | E   | D   | S                  | Action      |
  |-----|-----|--------------------|-------------|
  | yes | any | Approved           | Reconcile   |
  | yes | any | Rejected / Revoked | Retract     |
  | yes | any | other              | Ignore      |
  | no  | yes | any                | Suppress    |
  | no  | no  | any                | Materialize |

  The ledger is consulted only after the calendar checks fail, so an id whose
  event was retracted is never recreated, whatever its later status.

  Ignore covers a Pending (or unrecognised) record that already has an event.
  Creating another would duplicate it, so no mutation is made and the sheet
  shows "Unknown".

CLASSIFICATION:
  The string values are written verbatim to the Calendar Event Status column.
*/
package reconcile

import (
	"github.com/warp/leave-sync/generic"
	"github.com/warp/leave-sync/leave"
)

// =============================================================================
// ACTIONS
// =============================================================================

type Action string

const (
	ActionReconcile   Action = "reconcile"
	ActionRetract     Action = "retract"
	ActionSuppress    Action = "suppress"
	ActionMaterialize Action = "materialize"
	ActionIgnore      Action = "ignore"
)

// Decide applies the decision table. It is a pure function of its inputs.
func Decide(inCalendar, inLedger bool, status leave.Status) Action {
	switch {
	case inCalendar && status.IsApproved():
		return ActionReconcile
	case inCalendar && status.IsWithdrawn():
		return ActionRetract
	case inCalendar:
		return ActionIgnore
	case inLedger:
		return ActionSuppress
	default:
		return ActionMaterialize
	}
}

// =============================================================================
// CLASSIFICATIONS
// =============================================================================

type Classification string

const (
	Created           Classification = "Created"
	Updated           Classification = "Updated"
	Deleted           Classification = "Deleted"
	PreviouslyDeleted Classification = "Previously Deleted"
	CreateError       Classification = "Create Error"
	UpdateError       Classification = "Update Error"
	UpdateFailed      Classification = "Update Failed"
	DeleteError       Classification = "Delete Error"
	Unknown           Classification = "Unknown"
)

// IsTerminal is true for classifications that leave no sheet row behind.
func (c Classification) IsTerminal() bool {
	return c == Deleted || c == PreviouslyDeleted
}

func (c Classification) IsFailure() bool {
	switch c {
	case CreateError, UpdateError, UpdateFailed, DeleteError:
		return true
	}
	return false
}

// classify maps an action and its mutation error to the outcome tag.
func classify(action Action, err error) Classification {
	switch action {
	case ActionReconcile:
		switch {
		case err == nil:
			return Updated
		case generic.IsRejected(err):
			return UpdateFailed
		default:
			return UpdateError
		}
	case ActionRetract:
		if err != nil {
			return DeleteError
		}
		return Deleted
	case ActionMaterialize:
		if err != nil {
			return CreateError
		}
		return Created
	case ActionSuppress:
		return PreviouslyDeleted
	default:
		return Unknown
	}
}

// =============================================================================
// OUTCOMES
// =============================================================================

// Outcome is what happened to one record in a pass.
type Outcome struct {
	ApprovalID     string
	Action         Action
	Classification Classification
	// EventID is the affected event: the existing one, or the new one after
	// a successful create.
	EventID string
	// Err is the mutation failure, if any.
	Err error
	// LedgerErr is set when a retraction succeeded but could not be recorded.
	LedgerErr error
}

// Summary counts outcomes for the end-of-run report.
type Summary struct {
	Created      int `json:"created"`
	Updated      int `json:"updated"`
	Deleted      int `json:"deleted"`
	Ignored      int `json:"ignored"`
	Unknown      int `json:"unknown"`
	CreateErrors int `json:"create_errors"`
	UpdateFailed int `json:"update_failed"`
	UpdateErrors int `json:"update_errors"`
	DeleteErrors int `json:"delete_errors"`
	LedgerErrors int `json:"ledger_errors"`
	Skipped      int `json:"skipped"`
}

func (s *Summary) add(o Outcome, n int) {
	switch o.Classification {
	case Created:
		s.Created += n
	case Updated:
		s.Updated += n
	case Deleted:
		s.Deleted += n
	case PreviouslyDeleted:
		s.Ignored += n
	case CreateError:
		s.CreateErrors += n
	case UpdateFailed:
		s.UpdateFailed += n
	case UpdateError:
		s.UpdateErrors += n
	case DeleteError:
		s.DeleteErrors += n
	default:
		s.Unknown += n
	}
	if o.LedgerErr != nil {
		s.LedgerErrors += n
	}
}

// Failures is the number of records whose calendar mutation failed.
func (s Summary) Failures() int {
	return s.CreateErrors + s.UpdateFailed + s.UpdateErrors + s.DeleteErrors
}

// Result is the classification map of one pass, shared by the calendar step
// and the sheet projector.
type Result struct {
	Outcomes map[string]Outcome
	// Order lists Approval IDs in batch order.
	Order   []string
	Summary Summary
}

func NewResult() *Result {
	return &Result{Outcomes: make(map[string]Outcome)}
}

// Add records o, replacing any earlier outcome for the same id.
func (r *Result) Add(o Outcome) {
	if prev, ok := r.Outcomes[o.ApprovalID]; ok {
		r.Summary.add(prev, -1)
	} else {
		r.Order = append(r.Order, o.ApprovalID)
	}
	r.Outcomes[o.ApprovalID] = o
	r.Summary.add(o, 1)
}

// Classification returns the tag for id, Unknown when the pass never saw it.
func (r *Result) Classification(id string) Classification {
	if o, ok := r.Outcomes[id]; ok {
		return o.Classification
	}
	return Unknown
}
