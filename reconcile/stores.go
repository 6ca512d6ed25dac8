/*
stores.go - Boundaries to the two remote target stores

PURPOSE:
  The engine never talks to a concrete calendar or spreadsheet API. It sees
  these two small interfaces, implemented by gworkspace (Google Calendar and
  Google Sheets) and by reconcile/memory for tests.

ERROR CONTRACT:
  Adapters wrap an error-status answer from the remote service so that
  errors.Is(err, generic.ErrMutationRejected) holds. Transport failures and
  anything else stay unwrapped. The engine uses the distinction to tell
  "Update Failed" from "Update Error".

SHEET POSITIONS:
  Ranges are A1 notation. DeleteRowRange takes 0-based, end-exclusive row
  indexes, the shape of the underlying dimension-delete request, so sheet row
  N (1-based, header is row 1) is DeleteRowRange(N-1, N).
*/
package reconcile

import (
	"context"
	"time"
)

// =============================================================================
// CALENDAR
// =============================================================================

// EventBody is the calendar-facing projection of one leave record.
type EventBody struct {
	Summary     string
	Description string
	// ApprovalID is also stored in a private extended property when the
	// store supports one.
	ApprovalID string
	Start      time.Time
	End        time.Time
	TimeZone   string
	// UseDefaultReminders applies the calendar's default reminders.
	UseDefaultReminders bool
}

// CalendarEvent is an event as listed by the store.
type CalendarEvent struct {
	ID          string
	Summary     string
	Description string
	// ApprovalID from the extended property, empty when absent.
	ApprovalID string
	Updated    time.Time
}

// EventPage is one page of a List call.
type EventPage struct {
	Events        []CalendarEvent
	NextPageToken string
}

type CalendarStore interface {
	// List returns one page of events; an empty NextPageToken ends the listing.
	List(ctx context.Context, pageToken string) (EventPage, error)
	Create(ctx context.Context, body EventBody) (string, error)
	Update(ctx context.Context, eventID string, body EventBody) error
	Delete(ctx context.Context, eventID string) error
}

// =============================================================================
// SHEET
// =============================================================================

// RangeUpdate is one range write inside a BatchUpdate.
type RangeUpdate struct {
	Range string
	Rows  [][]string
}

type SheetStore interface {
	ReadRange(ctx context.Context, rng string) ([][]string, error)
	UpdateRange(ctx context.Context, rng string, rows [][]string) error
	// BatchUpdate writes several ranges in one round trip.
	BatchUpdate(ctx context.Context, updates []RangeUpdate) error
	// AppendRows adds rows after the last non-empty row of rng.
	AppendRows(ctx context.Context, rng string, rows [][]string) error
	DeleteRowRange(ctx context.Context, startIndex, endIndex int) error
}
