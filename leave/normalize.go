/*
normalize.go - Raw batch table to ordered leave records

PURPOSE:
  Turns the exported table into typed Records, preserving batch order.

FAILURE MODES:
  - Whole batch (MalformedBatchError, aborts the pass):
      a required column is missing, or a start/end cell is blank or unparseable.
  - Single row (RecordSkippedError, row dropped, pass continues):
      blank Approval ID, start after end, or an Approval ID repeated in the batch
      (the first occurrence wins).

  A batch is a best-effort collection of independent records; one bad
  identifier never costs the other rows their sync.
*/
package leave

import (
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/warp/leave-sync/generic"
)

// Table is a raw tabular batch: a header row plus data rows.
type Table struct {
	Header []string
	Rows   [][]string
}

// NormalizeOptions controls timestamp interpretation.
type NormalizeOptions struct {
	// Location applied to timestamps without an offset. Defaults to UTC.
	Location *time.Location
	Logger   *zap.Logger
}

// NormalizeResult holds the usable records and the rows that were dropped.
type NormalizeResult struct {
	Records []Record
	Skipped []*generic.RecordSkippedError
}

// Normalize parses t into ordered Records.
func Normalize(t Table, opts NormalizeOptions) (NormalizeResult, error) {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	loc := opts.Location
	if loc == nil {
		loc = time.UTC
	}

	idx, err := columnIndex(t.Header)
	if err != nil {
		return NormalizeResult{}, err
	}

	var res NormalizeResult
	seen := make(map[string]int)

	for i, raw := range t.Rows {
		rowNum := i + 1
		if isBlankRow(raw) {
			continue
		}
		cell := func(col string) string {
			pos := idx[col]
			if pos >= len(raw) {
				return ""
			}
			return strings.TrimSpace(raw[pos])
		}

		id := cell(ColApprovalID)
		skip := func(reason string) {
			e := &generic.RecordSkippedError{Row: rowNum, ApprovalID: id, Reason: reason}
			res.Skipped = append(res.Skipped, e)
			log.Warn("skipping batch row", zap.Int("row", rowNum), zap.String("approval_id", id), zap.String("reason", reason))
		}

		// Rows without an id (totals, notes) are skipped before their
		// timestamps are looked at.
		if id == "" {
			skip("empty approval id")
			continue
		}

		start, err := parseCell(cell(ColStartTime), loc, rowNum, ColStartTime)
		if err != nil {
			return NormalizeResult{}, err
		}
		end, err := parseCell(cell(ColEndTime), loc, rowNum, ColEndTime)
		if err != nil {
			return NormalizeResult{}, err
		}
		if start.After(end) {
			skip("start time after end time")
			continue
		}
		if first, dup := seen[id]; dup {
			skip(fmt.Sprintf("duplicate approval id (first seen on row %d)", first))
			continue
		}
		seen[id] = rowNum

		subRaw := cell(ColSubRequired)
		res.Records = append(res.Records, Record{
			ApprovalID:     id,
			FirstName:      cell(ColFirstName),
			LastName:       cell(ColLastName),
			TimeOffType:    cell(ColTimeOffType),
			Status:         ParseStatus(cell(ColStatus)),
			Start:          start,
			End:            end,
			Substitute:     cell(ColSubstitute),
			SubRequired:    parseFlag(subRaw),
			SubRequiredRaw: subRaw,
			Reason:         cell(ColReason),
			Comments:       cell(ColComments),
			Row:            rowNum,
		})
	}

	log.Info("normalized batch",
		zap.Int("records", len(res.Records)),
		zap.Int("skipped", len(res.Skipped)))
	return res, nil
}

func columnIndex(header []string) (map[string]int, error) {
	idx := make(map[string]int, len(header))
	for i, h := range header {
		key := strings.TrimSpace(h)
		if _, ok := idx[key]; !ok {
			idx[key] = i
		}
	}
	for _, col := range RequiredColumns {
		if _, ok := idx[col]; !ok {
			// Exports have been seen with different casing on this column.
			if pos, found := findFold(header, col); found {
				idx[col] = pos
				continue
			}
			return nil, &generic.MalformedBatchError{Column: col, Reason: "required column missing"}
		}
	}
	return idx, nil
}

func findFold(header []string, col string) (int, bool) {
	for i, h := range header {
		if strings.EqualFold(strings.TrimSpace(h), col) {
			return i, true
		}
	}
	return 0, false
}

func parseCell(raw string, loc *time.Location, row int, col string) (time.Time, error) {
	t, err := generic.ParseTimestamp(raw, loc)
	if err != nil {
		return time.Time{}, &generic.MalformedBatchError{Row: row, Column: col, Reason: err.Error()}
	}
	return t, nil
}

func parseFlag(raw string) bool {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "yes", "y", "true", "1":
		return true
	}
	return false
}

func isBlankRow(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
