/*
runner.go - One reconciliation pass, end to end

PURPOSE:
  Glues the pipeline together for a single pass:

    locate batch -> read -> normalize -> calendar index -> engine -> sheet

  and records the pass in run history.

ABORTING:
  Only these stop a pass before the calendar is touched:
    - no batch file (ErrNoBatch)
    - a malformed batch (ErrMalformedBatch)
    - the calendar index cannot be read
    - the ledger cannot be read
  Per-record failures never abort; they land in the classification map.
  A sheet failure after a successful calendar step marks the run partial.

SERIALIZATION:
  At most one pass runs at a time per Runner. A second caller gets
  ErrRunInProgress immediately rather than queueing behind the first.

SEE ALSO:
  - reconcile/engine.go: the calendar step
  - reconcile/projector.go: the sheet step
  - watch.go: triggers a pass when a new export appears
*/
package runner

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/warp/leave-sync/generic"
	"github.com/warp/leave-sync/leave"
	"github.com/warp/leave-sync/reconcile"
)

// Triggers recorded on runs.
const (
	TriggerManual   = "manual"
	TriggerSchedule = "schedule"
	TriggerWatch    = "watch"
	TriggerCLI      = "cli"
)

// BatchSource says where the export comes from. File wins over Dir.
type BatchSource struct {
	Dir  string
	File string
}

// Locate returns the batch file for this pass.
func (b BatchSource) Locate() (string, error) {
	if b.File != "" {
		return b.File, nil
	}
	return leave.LatestBatchFile(b.Dir)
}

// reloader is implemented by ledgers that cache their members.
type reloader interface {
	Reload()
}

type Runner struct {
	Reader    *reconcile.Reader
	Engine    *reconcile.Engine
	Projector *reconcile.Projector // nil skips the sheet step
	History   generic.RunHistory
	Batch     BatchSource
	Location  *time.Location
	Logger    *zap.Logger

	Now   func() time.Time
	NewID func() string

	mu sync.Mutex
}

type Options struct {
	Reader    *reconcile.Reader
	Engine    *reconcile.Engine
	Projector *reconcile.Projector
	History   generic.RunHistory
	Batch     BatchSource
	Location  *time.Location
	Logger    *zap.Logger
}

func New(opts Options) *Runner {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	loc := opts.Location
	if loc == nil {
		loc = time.Local
	}
	return &Runner{
		Reader:    opts.Reader,
		Engine:    opts.Engine,
		Projector: opts.Projector,
		History:   opts.History,
		Batch:     opts.Batch,
		Location:  loc,
		Logger:    logger.Named("runner"),
		Now:       time.Now,
		NewID:     uuid.NewString,
	}
}

// RunOnce performs a pass. The returned record is the persisted state of
// the run; err is non-nil only when the pass failed outright.
func (r *Runner) RunOnce(ctx context.Context, trigger string) (*generic.RunRecord, error) {
	if !r.mu.TryLock() {
		return nil, generic.ErrRunInProgress
	}
	defer r.mu.Unlock()

	run := &generic.RunRecord{
		ID:        r.NewID(),
		Trigger:   trigger,
		Status:    generic.RunRunning,
		StartedAt: r.Now().UTC(),
	}
	log := r.Logger.With(zap.String("run_id", run.ID), zap.String("trigger", trigger))
	log.Info("starting leave request calendar update")
	r.save(ctx, log, run)

	if l, ok := r.Engine.Ledger.(reloader); ok {
		l.Reload()
	}

	res, records, err := r.calendarStep(ctx, log, run)
	if err != nil {
		log.Error("pass failed", zap.Error(err))
		run.Status = generic.RunFailed
		run.Error = err.Error()
		r.finish(ctx, log, run)
		return run, err
	}
	r.saveOutcomes(ctx, log, run.ID, res)

	run.Status = generic.RunCompleted
	if r.Projector != nil {
		log.Info("updating tracking sheet")
		report, perr := r.Projector.Project(ctx, records, res)
		run.RowsUpdated = report.Updated
		run.RowsDeleted = report.Deleted
		run.RowsAppended = report.Appended
		if perr != nil {
			log.Error("tracking sheet update incomplete", zap.Error(perr))
			run.Status = generic.RunPartial
			run.Error = perr.Error()
		}
	} else {
		log.Info("no spreadsheet configured, skipping sheet update")
	}

	r.finish(ctx, log, run)
	log.Info("calendar and sheet update finished",
		zap.String("status", string(run.Status)),
		zap.String("batch", run.BatchFile),
		zap.Int("created", run.Created),
		zap.Int("updated", run.Updated),
		zap.Int("deleted", run.Deleted),
		zap.Int("ignored", run.Ignored),
		zap.Int("failures", run.Failures),
		zap.Int("rows_updated", run.RowsUpdated),
		zap.Int("rows_deleted", run.RowsDeleted),
		zap.Int("rows_appended", run.RowsAppended))
	return run, nil
}

func (r *Runner) calendarStep(ctx context.Context, log *zap.Logger, run *generic.RunRecord) (*reconcile.Result, []leave.Record, error) {
	path, err := r.Batch.Locate()
	if err != nil {
		return nil, nil, err
	}
	run.BatchFile = path
	log.Info("found batch file", zap.String("path", path))

	table, err := leave.ReadBatch(path)
	if err != nil {
		return nil, nil, err
	}
	norm, err := leave.Normalize(table, leave.NormalizeOptions{Location: r.Location, Logger: log})
	if err != nil {
		return nil, nil, err
	}
	run.Records = len(norm.Records)
	run.Skipped = len(norm.Skipped)

	index, err := r.Reader.FetchCalendarIndex(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("read calendar: %w", err)
	}

	res, err := r.Engine.Run(ctx, norm.Records, index)
	if err != nil {
		return nil, nil, err
	}
	res.Summary.Skipped = len(norm.Skipped)

	s := res.Summary
	run.Created = s.Created
	run.Updated = s.Updated
	run.Deleted = s.Deleted
	run.Ignored = s.Ignored
	run.Unknown = s.Unknown
	run.Failures = s.Failures()
	run.LedgerErrors = s.LedgerErrors
	return res, norm.Records, nil
}

func (r *Runner) finish(ctx context.Context, log *zap.Logger, run *generic.RunRecord) {
	done := r.Now().UTC()
	run.CompletedAt = &done
	r.save(ctx, log, run)
}

// History write failures are logged and never fail the pass.
func (r *Runner) save(ctx context.Context, log *zap.Logger, run *generic.RunRecord) {
	if r.History == nil {
		return
	}
	if err := r.History.SaveRun(context.WithoutCancel(ctx), *run); err != nil {
		log.Warn("failed to save run", zap.Error(err))
	}
}

func (r *Runner) saveOutcomes(ctx context.Context, log *zap.Logger, runID string, res *reconcile.Result) {
	if r.History == nil {
		return
	}
	outcomes := make([]generic.RunOutcome, 0, len(res.Order))
	for _, id := range res.Order {
		o := res.Outcomes[id]
		ro := generic.RunOutcome{
			RunID:          runID,
			ApprovalID:     id,
			Action:         string(o.Action),
			Classification: string(o.Classification),
			EventID:        o.EventID,
		}
		if err := errors.Join(o.Err, o.LedgerErr); err != nil {
			ro.Error = err.Error()
		}
		outcomes = append(outcomes, ro)
	}
	if err := r.History.SaveOutcomes(context.WithoutCancel(ctx), runID, outcomes); err != nil {
		log.Warn("failed to save run outcomes", zap.Error(err))
	}
}
