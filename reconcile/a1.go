package reconcile

import (
	"fmt"
	"strconv"
	"strings"
)

// =============================================================================
// A1 NOTATION - The subset the projector emits
// =============================================================================

const (
	// SheetRange covers the whole tracking sheet body and header.
	SheetRange = "A:M"
	// HeaderProbeRange is read to detect an existing header.
	HeaderProbeRange = "A1:Z1"
	// HeaderRange is where the canonical header is written.
	HeaderRange = "A1:M1"
)

// RowRange returns the A1 range of sheet row n (1-based), columns A..M.
func RowRange(n int) string {
	return fmt.Sprintf("A%d:M%d", n, n)
}

// BlockRange returns A<from>:M<to>.
func BlockRange(from, to int) string {
	return fmt.Sprintf("A%d:M%d", from, to)
}

// CellRef is one end of an A1 range. Row 0 means "unbounded".
type CellRef struct {
	Col int // 0-based column
	Row int // 1-based row, 0 when omitted
}

// ParseA1Range parses "A1:M5", "A:M", "B3" and similar. A sheet-name prefix
// ("Sheet1!A:M") is ignored.
func ParseA1Range(rng string) (from, to CellRef, err error) {
	if i := strings.LastIndexByte(rng, '!'); i >= 0 {
		rng = rng[i+1:]
	}
	left, right, hasRight := strings.Cut(rng, ":")
	if from, err = parseCell(left); err != nil {
		return from, to, err
	}
	if !hasRight {
		return from, from, nil
	}
	to, err = parseCell(right)
	return from, to, err
}

func parseCell(s string) (CellRef, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	i := 0
	col := 0
	for i < len(s) && s[i] >= 'A' && s[i] <= 'Z' {
		col = col*26 + int(s[i]-'A'+1)
		i++
	}
	if i == 0 {
		return CellRef{}, fmt.Errorf("invalid A1 reference %q", s)
	}
	ref := CellRef{Col: col - 1}
	if i < len(s) {
		n, err := strconv.Atoi(s[i:])
		if err != nil || n < 1 {
			return CellRef{}, fmt.Errorf("invalid A1 reference %q", s)
		}
		ref.Row = n
	}
	return ref, nil
}
