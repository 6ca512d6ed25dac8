package leave_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/leave-sync/leave"
)

func record(sub string, subRequired bool) leave.Record {
	return leave.Record{
		ApprovalID:  "A1",
		FirstName:   "Ada",
		LastName:    "Lovelace",
		TimeOffType: "Personal",
		Status:      leave.ParseStatus("Approved"),
		Substitute:  sub,
		SubRequired: subRequired,
	}
}

// =============================================================================
// TITLE PRECEDENCE
// =============================================================================

func TestTitle_SubstituteNamed_WinsOverFlag(t *testing.T) {
	// GIVEN: Substitute "Jane Doe"
	// WHEN: Deriving the title, regardless of Sub Required?
	// THEN: The title names Jane Doe

	assert.Equal(t, "Jane Doe sub for Ada Lovelace - Personal", leave.Title(record("Jane Doe", true)))
	assert.Equal(t, "Jane Doe sub for Ada Lovelace - Personal", leave.Title(record("Jane Doe", false)))
}

func TestTitle_NeedsSub(t *testing.T) {
	assert.Equal(t, "NEEDS SUB - Ada Lovelace - Personal", leave.Title(record("   ", true)))
}

func TestTitle_NoSub(t *testing.T) {
	assert.Equal(t, "Ada Lovelace (No Sub) - Personal", leave.Title(record("", false)))
}

// =============================================================================
// DESCRIPTION CODEC
// =============================================================================

func TestDescription_RoundTripsApprovalID(t *testing.T) {
	r := record("", false)
	r.Reason = "family"
	r.Comments = "line one\nApproval ID: FORGED"

	desc := leave.Description(r)
	id, ok := leave.ParseApprovalID(desc)
	require.True(t, ok)
	assert.Equal(t, "A1", id)

	fields := leave.DecodeDescription(desc)
	require.Len(t, fields, 3)
	assert.Equal(t, "line one\nApproval ID: FORGED", fields[2].Value)
}

func TestParseApprovalID_LegacyDescription(t *testing.T) {
	legacy := "Approval ID: 12345\n\nReason: nan\n\nAdditional Comments: back Monday"

	id, ok := leave.ParseApprovalID(legacy)
	require.True(t, ok)
	assert.Equal(t, "12345", id)
}

func TestParseApprovalID_MidLineLabel(t *testing.T) {
	id, ok := leave.ParseApprovalID("copied from portal, Approval ID: 777\nthanks")
	require.True(t, ok)
	assert.Equal(t, "777", id)
}

func TestParseApprovalID_Missing(t *testing.T) {
	_, ok := leave.ParseApprovalID("Team offsite")
	assert.False(t, ok)

	_, ok = leave.ParseApprovalID("")
	assert.False(t, ok)
}

func TestDescription_EscapesBackslash(t *testing.T) {
	r := record("", false)
	r.ApprovalID = `A\n1`

	id, ok := leave.ParseApprovalID(leave.Description(r))
	require.True(t, ok)
	assert.Equal(t, `A\n1`, id)
}

// =============================================================================
// SHEET ROW
// =============================================================================

func TestToRow_HeaderOrder(t *testing.T) {
	r := record("", true)
	r.SubRequiredRaw = "yes"
	r.Start = time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	r.End = time.Date(2025, 3, 10, 17, 0, 0, 0, time.UTC)
	updated := time.Date(2025, 3, 9, 8, 0, 0, 0, time.UTC)

	row := leave.ToRow(r, "Created", updated)

	require.Len(t, row, len(leave.Header))
	assert.Equal(t, "A1", leave.RowApprovalID(row))
	assert.Equal(t, "Approved", row[4])
	assert.Equal(t, "2025-03-10 09:00:00", row[5])
	assert.Equal(t, "2025-03-10 17:00:00", row[6])
	assert.Equal(t, "yes", row[8])
	assert.Equal(t, "2025-03-09 08:00:00", row[11])
	assert.Equal(t, "Created", leave.RowEventStatus(row))
}

func TestRowHelpers_RaggedRows(t *testing.T) {
	assert.Equal(t, "", leave.RowEventStatus([]string{"A1", "Ada"}))
	assert.Equal(t, "", leave.RowApprovalID(nil))
	assert.Len(t, leave.PadRow([]string{"A1"}), leave.SheetWidth)
	assert.True(t, leave.IsHeader(append([]string(nil), leave.Header...)))
	assert.False(t, leave.IsHeader([]string{"Approval ID"}))
}
