/*
engine.go - The reconciliation pass over the calendar

PURPOSE:
  For every record, decide an action (classification.go), apply it to the
  calendar exactly once, and record the outcome in a Result that the sheet
  projector consumes afterwards.

FAILURE SEMANTICS:
  - A failed calendar mutation classifies the record and the pass moves on.
    Nothing is retried inside a pass; the next pass re-derives the action.
  - A retraction whose ledger write fails keeps its Deleted classification.
    The inconsistency is logged and counted (Summary.LedgerErrors).
  - A ledger that cannot be read aborts the pass. Guessing "not a member"
    could resurrect a retracted request.

ORDERING:
  Records are processed sequentially in batch order. Each record is
  independent; no record's outcome depends on another's.
*/
package reconcile

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/warp/leave-sync/generic"
	"github.com/warp/leave-sync/leave"
)

// EventOptions shape the calendar events built from records.
type EventOptions struct {
	// TimeZone is the IANA zone sent with start/end. Defaults to UTC.
	TimeZone            string
	UseDefaultReminders bool
}

// BuildEvent derives the calendar event body for r.
func BuildEvent(r leave.Record, opts EventOptions) EventBody {
	tz := opts.TimeZone
	if tz == "" {
		tz = "UTC"
	}
	start, end := r.Start, r.End
	if loc, err := time.LoadLocation(tz); err == nil {
		start, end = start.In(loc), end.In(loc)
	}
	return EventBody{
		Summary:             leave.Title(r),
		Description:         leave.Description(r),
		ApprovalID:          r.ApprovalID,
		Start:               start,
		End:                 end,
		TimeZone:            tz,
		UseDefaultReminders: opts.UseDefaultReminders,
	}
}

// =============================================================================
// ENGINE
// =============================================================================

type Engine struct {
	Calendar CalendarStore
	Ledger   generic.Ledger
	Events   EventOptions
	Logger   *zap.Logger
}

func NewEngine(cal CalendarStore, ledger generic.Ledger, events EventOptions, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		Calendar: cal,
		Ledger:   ledger,
		Events:   events,
		Logger:   logger.Named("reconcile.engine"),
	}
}

// Run reconciles records against the calendar state in index.
func (e *Engine) Run(ctx context.Context, records []leave.Record, index CalendarIndex) (*Result, error) {
	res := NewResult()

	// The ledger is read before any mutation so an unreadable ledger
	// leaves the calendar untouched.
	ids, err := e.Ledger.IDs(ctx)
	if err != nil {
		return res, fmt.Errorf("read ledger: %w", err)
	}
	retracted := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		retracted[id] = struct{}{}
	}

	for _, r := range records {
		ref, inCalendar := index[r.ApprovalID]

		inLedger := false
		if !inCalendar {
			_, inLedger = retracted[r.ApprovalID]
		}

		action := Decide(inCalendar, inLedger, r.Status)
		res.Add(e.apply(ctx, r, ref, action))
	}

	s := res.Summary
	e.Logger.Info("calendar pass complete",
		zap.Int("created", s.Created),
		zap.Int("updated", s.Updated),
		zap.Int("deleted", s.Deleted),
		zap.Int("ignored", s.Ignored),
		zap.Int("unknown", s.Unknown),
		zap.Int("failures", s.Failures()),
		zap.Int("ledger_errors", s.LedgerErrors))
	return res, nil
}

func (e *Engine) apply(ctx context.Context, r leave.Record, ref EventRef, action Action) Outcome {
	out := Outcome{ApprovalID: r.ApprovalID, Action: action, EventID: ref.EventID}
	log := e.Logger.With(zap.String("approval_id", r.ApprovalID), zap.String("action", string(action)))

	var err error
	switch action {
	case ActionReconcile:
		if err = e.Calendar.Update(ctx, ref.EventID, BuildEvent(r, e.Events)); err != nil {
			err = &generic.CalendarMutationError{Op: generic.OpUpdate, ApprovalID: r.ApprovalID, EventID: ref.EventID, Err: err}
		}

	case ActionRetract:
		if err = e.Calendar.Delete(ctx, ref.EventID); err != nil {
			err = &generic.CalendarMutationError{Op: generic.OpDelete, ApprovalID: r.ApprovalID, EventID: ref.EventID, Err: err}
			break
		}
		if lerr := e.Ledger.Record(ctx, r.ApprovalID); lerr != nil {
			out.LedgerErr = lerr
			log.Warn("event deleted but ledger write failed; a later pass may recreate it", zap.Error(lerr))
		}

	case ActionMaterialize:
		var id string
		if id, err = e.Calendar.Create(ctx, BuildEvent(r, e.Events)); err != nil {
			err = &generic.CalendarMutationError{Op: generic.OpCreate, ApprovalID: r.ApprovalID, Err: err}
		} else {
			out.EventID = id
		}
	}

	out.Err = err
	out.Classification = classify(action, err)
	if err != nil {
		log.Error("calendar mutation failed", zap.String("classification", string(out.Classification)), zap.Error(err))
	} else {
		log.Debug("record reconciled", zap.String("classification", string(out.Classification)), zap.String("event_id", out.EventID))
	}
	return out
}
