package leave

import (
	"strings"
	"time"

	"github.com/warp/leave-sync/generic"
)

// ToRow renders r as a tracking-sheet row in Header order.
func ToRow(r Record, eventStatus string, updated time.Time) []string {
	return []string{
		r.ApprovalID,
		r.FirstName,
		r.LastName,
		r.TimeOffType,
		r.Status.String(),
		generic.FormatTimestamp(r.Start),
		generic.FormatTimestamp(r.End),
		r.Substitute,
		r.SubRequiredRaw,
		r.Reason,
		r.Comments,
		generic.FormatTimestamp(updated),
		eventStatus,
	}
}

// RowApprovalID returns the identifier cell of a sheet row.
func RowApprovalID(row []string) string {
	if len(row) <= SheetColApprovalID {
		return ""
	}
	return strings.TrimSpace(row[SheetColApprovalID])
}

// RowEventStatus returns the Calendar Event Status cell, or "" when the row
// is too short to have one.
func RowEventStatus(row []string) string {
	if len(row) <= SheetColEventStatus {
		return ""
	}
	return strings.TrimSpace(row[SheetColEventStatus])
}

// PadRow extends a ragged row to the sheet width.
func PadRow(row []string) []string {
	if len(row) >= SheetWidth {
		return row
	}
	out := make([]string, SheetWidth)
	copy(out, row)
	return out
}

// IsHeader reports whether row equals the canonical header exactly.
func IsHeader(row []string) bool {
	if len(row) != len(Header) {
		return false
	}
	for i, h := range Header {
		if row[i] != h {
			return false
		}
	}
	return true
}
