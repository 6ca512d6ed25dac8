package memory

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/warp/leave-sync/leave"
	"github.com/warp/leave-sync/reconcile"
)

// =============================================================================
// SHEET
// =============================================================================

// Sheet is a single-tab spreadsheet grid. Reads trim trailing empty cells and
// rows the way the hosted service does.
type Sheet struct {
	mu   sync.Mutex
	rows [][]string

	// Fail* inject errors into the matching call.
	FailRead   error
	FailUpdate error
	FailAppend error
	// FailDeleteAt fails DeleteRowRange for these 0-based start indexes.
	FailDeleteAt map[int]error

	Reads   int
	Writes  int
	Deleted int
}

// NewSheet seeds the grid; rows[0] is sheet row 1.
func NewSheet(rows ...[]string) *Sheet {
	s := &Sheet{}
	for _, r := range rows {
		s.rows = append(s.rows, append([]string(nil), r...))
	}
	return s
}

func (s *Sheet) ReadRange(ctx context.Context, rng string) ([][]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Reads++

	if s.FailRead != nil {
		return nil, s.FailRead
	}
	from, to, err := reconcile.ParseA1Range(rng)
	if err != nil {
		return nil, err
	}
	firstRow := max(from.Row, 1)
	lastRow := len(s.rows)
	if to.Row > 0 && to.Row < lastRow {
		lastRow = to.Row
	}

	var out [][]string
	for r := firstRow; r <= lastRow; r++ {
		src := s.rows[r-1]
		var row []string
		for c := from.Col; c <= to.Col && c < len(src); c++ {
			row = append(row, src[c])
		}
		out = append(out, trimRight(row))
	}
	for len(out) > 0 && len(out[len(out)-1]) == 0 {
		out = out[:len(out)-1]
	}
	return out, nil
}

func (s *Sheet) UpdateRange(ctx context.Context, rng string, rows [][]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailUpdate != nil {
		return s.FailUpdate
	}
	return s.writeLocked(rng, rows)
}

func (s *Sheet) BatchUpdate(ctx context.Context, updates []reconcile.RangeUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailUpdate != nil {
		return s.FailUpdate
	}
	for _, u := range updates {
		if err := s.writeLocked(u.Range, u.Rows); err != nil {
			return err
		}
	}
	return nil
}

func (s *Sheet) AppendRows(ctx context.Context, rng string, rows [][]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailAppend != nil {
		return s.FailAppend
	}
	last := len(s.rows)
	for last > 0 && isEmpty(s.rows[last-1]) {
		last--
	}
	s.rows = s.rows[:last]
	for _, r := range rows {
		s.rows = append(s.rows, append([]string(nil), r...))
	}
	s.Writes++
	return nil
}

func (s *Sheet) DeleteRowRange(ctx context.Context, startIndex, endIndex int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err, ok := s.FailDeleteAt[startIndex]; ok {
		return err
	}
	if startIndex < 0 || endIndex <= startIndex || endIndex > len(s.rows) {
		return fmt.Errorf("row range [%d,%d) out of bounds (%d rows)", startIndex, endIndex, len(s.rows))
	}
	s.rows = append(s.rows[:startIndex], s.rows[endIndex:]...)
	s.Deleted += endIndex - startIndex
	return nil
}

// Rows returns a copy of the grid.
func (s *Sheet) Rows() [][]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([][]string, len(s.rows))
	for i, r := range s.rows {
		out[i] = append([]string(nil), r...)
	}
	return out
}

// IDs returns column A of every body row (the header is skipped).
func (s *Sheet) IDs() []string {
	rows := s.Rows()
	var out []string
	for i, r := range rows {
		if i == 0 {
			continue
		}
		out = append(out, leave.RowApprovalID(r))
	}
	return out
}

// Row returns the body row for approvalID.
func (s *Sheet) Row(approvalID string) ([]string, bool) {
	for i, r := range s.Rows() {
		if i > 0 && leave.RowApprovalID(r) == approvalID {
			return r, true
		}
	}
	return nil, false
}

func (s *Sheet) writeLocked(rng string, rows [][]string) error {
	from, _, err := reconcile.ParseA1Range(rng)
	if err != nil {
		return err
	}
	start := max(from.Row, 1)
	for i, src := range rows {
		idx := start - 1 + i
		for len(s.rows) <= idx {
			s.rows = append(s.rows, nil)
		}
		dst := s.rows[idx]
		for len(dst) < from.Col+len(src) {
			dst = append(dst, "")
		}
		copy(dst[from.Col:], src)
		s.rows[idx] = dst
	}
	s.Writes++
	return nil
}

func trimRight(row []string) []string {
	n := len(row)
	for n > 0 && row[n-1] == "" {
		n--
	}
	return row[:n]
}

func isEmpty(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

func parseDescriptionID(desc string) string {
	id, _ := leave.ParseApprovalID(desc)
	return id
}

var _ reconcile.SheetStore = (*Sheet)(nil)
