package reconcile_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/warp/leave-sync/reconcile"
	"github.com/warp/leave-sync/reconcile/memory"
)

func TestReader_CalendarIndex_Paginates(t *testing.T) {
	cal := memory.NewCalendar()
	cal.PageSize = 3
	for i := 0; i < 10; i++ {
		cal.Seed(reconcile.CalendarEvent{Description: fmt.Sprintf("Approval ID: P%d\n\nReason: x", i)})
	}
	cal.Seed(reconcile.CalendarEvent{Summary: "Team offsite", Description: "bring snacks"})

	index, err := reconcile.NewReader(cal, nil, zaptest.NewLogger(t)).FetchCalendarIndex(context.Background())
	require.NoError(t, err)

	assert.Len(t, index, 10)
	assert.Contains(t, index, "P0")
	assert.Contains(t, index, "P9")
}

func TestReader_CalendarIndex_PropertyBeatsDescription(t *testing.T) {
	cal := memory.NewCalendar()
	cal.Seed(reconcile.CalendarEvent{ID: "e1", ApprovalID: "REAL", Description: "Approval ID: STALE"})

	index, err := reconcile.NewReader(cal, nil, nil).FetchCalendarIndex(context.Background())
	require.NoError(t, err)

	assert.Contains(t, index, "REAL")
	assert.NotContains(t, index, "STALE")
}

func TestReader_CalendarIndex_LastSeenWins(t *testing.T) {
	cal := memory.NewCalendar()
	cal.Seed(reconcile.CalendarEvent{ID: "first", ApprovalID: "A1"})
	cal.Seed(reconcile.CalendarEvent{ID: "second", ApprovalID: "A1"})

	index, err := reconcile.NewReader(cal, nil, nil).FetchCalendarIndex(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "second", index["A1"].EventID)
}

type failingCalendar struct{ *memory.Calendar }

func (failingCalendar) List(context.Context, string) (reconcile.EventPage, error) {
	return reconcile.EventPage{}, errors.New("unauthorized")
}

func TestReader_CalendarIndex_ListError(t *testing.T) {
	_, err := reconcile.NewReader(failingCalendar{memory.NewCalendar()}, nil, nil).FetchCalendarIndex(context.Background())
	assert.Error(t, err)
}

func TestReader_SheetIndex(t *testing.T) {
	// GIVEN: A header, a blank-id row, a short row and a duplicated id
	// WHEN: Indexing
	// THEN: Positions are 1-based sheet rows; blank ids are dropped; the last
	//       duplicate wins and earlier ones are listed

	sheet := memory.NewSheet(
		header(),
		sheetRow("A", "Created"),
		sheetRow("", "Created"),
		[]string{"B"},
		sheetRow("A", "Updated"),
	)

	index, err := reconcile.NewReader(nil, sheet, nil).FetchSheetIndex(context.Background())
	require.NoError(t, err)

	require.Len(t, index, 2)
	assert.Equal(t, 5, index["A"].RowPosition)
	assert.Equal(t, []int{2}, index["A"].Duplicates)
	assert.Equal(t, 4, index["B"].RowPosition)
	assert.Len(t, index["B"].Row, 13)
}

func TestReader_SheetIndex_EmptySheet(t *testing.T) {
	index, err := reconcile.NewReader(nil, memory.NewSheet(), nil).FetchSheetIndex(context.Background())
	require.NoError(t, err)
	assert.Empty(t, index)
}

func TestParseA1Range(t *testing.T) {
	from, to, err := reconcile.ParseA1Range("Sheet1!A2:M10")
	require.NoError(t, err)
	assert.Equal(t, reconcile.CellRef{Col: 0, Row: 2}, from)
	assert.Equal(t, reconcile.CellRef{Col: 12, Row: 10}, to)

	from, to, err = reconcile.ParseA1Range("A:Z")
	require.NoError(t, err)
	assert.Equal(t, 0, from.Row)
	assert.Equal(t, 25, to.Col)

	_, _, err = reconcile.ParseA1Range("12")
	assert.Error(t, err)
}
