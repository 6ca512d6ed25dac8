/*
reader.go - Target state, indexed by Approval ID

CALENDAR INDEX:
  Pages through every event. The Approval ID comes from the private extended
  property when present, otherwise from the description block. Events with
  neither are not leave events and are left alone. When two events carry the
  same id, the one listed last wins.

SHEET INDEX:
  Reads the whole sheet, skips the header row, and drops rows with a blank
  identifier. Positions are 1-based sheet rows (the header is row 1). When an
  id appears on several rows the last one is indexed; the others are kept in
  Duplicates so the projector can remove them.
*/
package reconcile

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/warp/leave-sync/leave"
)

// EventRef is the calendar-side handle for one Approval ID.
type EventRef struct {
	EventID string
	Event   CalendarEvent
}

type CalendarIndex map[string]EventRef

// SheetEntry is the indexed row for one Approval ID.
type SheetEntry struct {
	RowPosition int
	Row         []string
	Duplicates  []int
}

type SheetIndex map[string]SheetEntry

// Reader fetches target state from both stores.
type Reader struct {
	Calendar CalendarStore
	Sheet    SheetStore
	Logger   *zap.Logger
}

func NewReader(cal CalendarStore, sheet SheetStore, logger *zap.Logger) *Reader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reader{Calendar: cal, Sheet: sheet, Logger: logger.Named("reconcile.reader")}
}

// maxPages bounds pagination against a store that keeps handing out tokens.
const maxPages = 10000

func (r *Reader) FetchCalendarIndex(ctx context.Context) (CalendarIndex, error) {
	index := make(CalendarIndex)
	token := ""
	listed := 0

	for page := 0; ; page++ {
		if page >= maxPages {
			return nil, fmt.Errorf("calendar listing exceeded %d pages", maxPages)
		}
		res, err := r.Calendar.List(ctx, token)
		if err != nil {
			return nil, fmt.Errorf("list calendar events: %w", err)
		}
		for _, ev := range res.Events {
			listed++
			id := ev.ApprovalID
			if id == "" {
				id, _ = leave.ParseApprovalID(ev.Description)
			}
			if id == "" {
				continue
			}
			if prev, dup := index[id]; dup {
				r.Logger.Warn("duplicate calendar events for approval id",
					zap.String("approval_id", id),
					zap.String("kept", ev.ID),
					zap.String("dropped", prev.EventID))
			}
			index[id] = EventRef{EventID: ev.ID, Event: ev}
		}
		if res.NextPageToken == "" {
			break
		}
		token = res.NextPageToken
	}

	r.Logger.Info("fetched calendar index", zap.Int("events", listed), zap.Int("indexed", len(index)))
	return index, nil
}

func (r *Reader) FetchSheetIndex(ctx context.Context) (SheetIndex, error) {
	return readSheetIndex(ctx, r.Sheet, r.Logger)
}

func readSheetIndex(ctx context.Context, sheet SheetStore, log *zap.Logger) (SheetIndex, error) {
	rows, err := sheet.ReadRange(ctx, SheetRange)
	if err != nil {
		return nil, fmt.Errorf("read sheet: %w", err)
	}
	index := make(SheetIndex)
	if len(rows) <= 1 {
		return index, nil
	}
	for i, row := range rows[1:] {
		pos := i + 2
		id := leave.RowApprovalID(row)
		if id == "" {
			continue
		}
		entry := SheetEntry{RowPosition: pos, Row: leave.PadRow(row)}
		if prev, dup := index[id]; dup {
			entry.Duplicates = append(prev.Duplicates, prev.RowPosition)
		}
		index[id] = entry
	}
	log.Debug("fetched sheet index", zap.Int("rows", len(rows)-1), zap.Int("indexed", len(index)))
	return index, nil
}
