/*
projector.go - Mirrors a pass's classifications into the tracking sheet

PLAN:
  Given the batch, the Result and the current sheet index:
  - Deletes:  rows classified Deleted or Previously Deleted in this pass;
              existing rows whose prior status is Previously Deleted;
              stale duplicate rows of an indexed id.
  - Updates:  existing ids with a non-terminal classification, in place.
  - Appends:  new ids with a non-terminal classification, in batch order.
  An id whose row was tagged Previously Deleted gets neither this pass.
  Terminal classifications leave no residual row.

APPLY ORDER:
  1. Updates, one batch call, addressed by the positions read at plan time.
  2. Deletes, one call per row, in DESCENDING position. Removing a lower row
     never shifts a higher one, so every position in the plan stays valid.
  3. Appends, after the last non-empty row.

HEADER:
  EnsureHeader is idempotent. A matching header is left alone; a stale header
  is overwritten in place; a sheet whose first row is data gets the header
  inserted above it by rewriting the block one row lower.
*/
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/warp/leave-sync/leave"
)

// RowUpdate rewrites one existing sheet row.
type RowUpdate struct {
	ApprovalID  string
	RowPosition int
	Row         []string
}

// RowDelete removes one sheet row.
type RowDelete struct {
	ApprovalID  string
	RowPosition int
}

// Plan is the sheet mutation set for one pass.
type Plan struct {
	Updates []RowUpdate
	// Deletes is sorted by descending RowPosition with no repeats.
	Deletes []RowDelete
	Appends [][]string
}

func (p Plan) Empty() bool {
	return len(p.Updates) == 0 && len(p.Deletes) == 0 && len(p.Appends) == 0
}

// ApplyReport counts what was actually written.
type ApplyReport struct {
	Updated  int `json:"updated"`
	Deleted  int `json:"deleted"`
	Appended int `json:"appended"`
}

type Projector struct {
	Sheet  SheetStore
	Logger *zap.Logger
	Now    func() time.Time
}

func NewProjector(sheet SheetStore, logger *zap.Logger) *Projector {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Projector{Sheet: sheet, Logger: logger.Named("reconcile.projector"), Now: time.Now}
}

// Project runs the full sheet step: header, index, plan, apply.
func (p *Projector) Project(ctx context.Context, records []leave.Record, res *Result) (ApplyReport, error) {
	if err := p.EnsureHeader(ctx); err != nil {
		return ApplyReport{}, err
	}
	index, err := readSheetIndex(ctx, p.Sheet, p.Logger)
	if err != nil {
		return ApplyReport{}, err
	}
	return p.Apply(ctx, p.Plan(records, res, index))
}

// =============================================================================
// PLAN
// =============================================================================

// Plan computes the sheet mutations. It performs no I/O.
func (p *Projector) Plan(records []leave.Record, res *Result, index SheetIndex) Plan {
	now := p.now()
	var plan Plan
	deletes := make(map[int]RowDelete)
	markDelete := func(id string, pos int) {
		deletes[pos] = RowDelete{ApprovalID: id, RowPosition: pos}
	}

	// A row already tagged Previously Deleted is removed and its record gets
	// no row this pass.
	dropped := make(map[string]bool)
	for id, entry := range index {
		for _, pos := range entry.Duplicates {
			markDelete(id, pos)
		}
		if Classification(leave.RowEventStatus(entry.Row)) == PreviouslyDeleted {
			markDelete(id, entry.RowPosition)
			dropped[id] = true
		}
	}

	for _, r := range records {
		c := res.Classification(r.ApprovalID)
		entry, exists := index[r.ApprovalID]

		switch {
		case dropped[r.ApprovalID]:
			continue
		case c.IsTerminal():
			if exists {
				markDelete(r.ApprovalID, entry.RowPosition)
			}
		case exists:
			plan.Updates = append(plan.Updates, RowUpdate{
				ApprovalID:  r.ApprovalID,
				RowPosition: entry.RowPosition,
				Row:         leave.ToRow(r, string(c), now),
			})
		default:
			plan.Appends = append(plan.Appends, leave.ToRow(r, string(c), now))
		}
	}

	for _, d := range deletes {
		plan.Deletes = append(plan.Deletes, d)
	}
	sort.Slice(plan.Deletes, func(i, j int) bool {
		return plan.Deletes[i].RowPosition > plan.Deletes[j].RowPosition
	})
	sort.Slice(plan.Updates, func(i, j int) bool {
		return plan.Updates[i].RowPosition < plan.Updates[j].RowPosition
	})
	return plan
}

// =============================================================================
// APPLY
// =============================================================================

// Apply writes plan to the sheet. A failed row delete is logged and the
// remaining deletes still run; the returned error joins every failure.
func (p *Projector) Apply(ctx context.Context, plan Plan) (ApplyReport, error) {
	var (
		report ApplyReport
		errs   []error
	)

	if len(plan.Updates) > 0 {
		updates := make([]RangeUpdate, 0, len(plan.Updates))
		for _, u := range plan.Updates {
			updates = append(updates, RangeUpdate{Range: RowRange(u.RowPosition), Rows: [][]string{u.Row}})
		}
		if err := p.Sheet.BatchUpdate(ctx, updates); err != nil {
			p.Logger.Error("sheet row update failed", zap.Int("rows", len(updates)), zap.Error(err))
			errs = append(errs, fmt.Errorf("update rows: %w", err))
		} else {
			report.Updated = len(updates)
		}
	}

	for _, d := range plan.Deletes {
		if err := p.Sheet.DeleteRowRange(ctx, d.RowPosition-1, d.RowPosition); err != nil {
			p.Logger.Error("sheet row delete failed",
				zap.String("approval_id", d.ApprovalID), zap.Int("row", d.RowPosition), zap.Error(err))
			errs = append(errs, fmt.Errorf("delete row %d (%s): %w", d.RowPosition, d.ApprovalID, err))
			continue
		}
		report.Deleted++
	}

	if len(plan.Appends) > 0 {
		if err := p.Sheet.AppendRows(ctx, SheetRange, plan.Appends); err != nil {
			p.Logger.Error("sheet append failed", zap.Int("rows", len(plan.Appends)), zap.Error(err))
			errs = append(errs, fmt.Errorf("append rows: %w", err))
		} else {
			report.Appended = len(plan.Appends)
		}
	}

	p.Logger.Info("sheet projection applied",
		zap.Int("updated", report.Updated),
		zap.Int("deleted", report.Deleted),
		zap.Int("appended", report.Appended))
	return report, errors.Join(errs...)
}

// =============================================================================
// HEADER
// =============================================================================

func (p *Projector) EnsureHeader(ctx context.Context) error {
	rows, err := p.Sheet.ReadRange(ctx, HeaderProbeRange)
	if err != nil {
		return fmt.Errorf("read header: %w", err)
	}

	var first []string
	if len(rows) > 0 {
		first = rows[0]
	}
	switch {
	case leave.IsHeader(first):
		return nil
	case isBlank(first) || strings.TrimSpace(first[0]) == leave.ColApprovalID:
		p.Logger.Info("writing sheet header")
		return p.writeHeader(ctx)
	default:
		p.Logger.Warn("first sheet row holds data; inserting header above it")
		return p.insertHeader(ctx)
	}
}

func (p *Projector) writeHeader(ctx context.Context) error {
	if err := p.Sheet.UpdateRange(ctx, HeaderRange, [][]string{leave.Header}); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	return nil
}

// insertHeader shifts every existing row down by one and writes the header
// into row 1.
func (p *Projector) insertHeader(ctx context.Context) error {
	body, err := p.Sheet.ReadRange(ctx, SheetRange)
	if err != nil {
		return fmt.Errorf("read sheet for header insert: %w", err)
	}
	block := make([][]string, 0, len(body)+1)
	block = append(block, leave.Header)
	for _, row := range body {
		block = append(block, leave.PadRow(row))
	}
	if err := p.Sheet.UpdateRange(ctx, BlockRange(1, len(block)), block); err != nil {
		return fmt.Errorf("insert header: %w", err)
	}
	return nil
}

func (p *Projector) now() time.Time {
	if p.Now == nil {
		return time.Now()
	}
	return p.Now()
}

func isBlank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
