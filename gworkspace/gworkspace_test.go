package gworkspace_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"google.golang.org/api/option"

	"github.com/warp/leave-sync/generic"
	"github.com/warp/leave-sync/gworkspace"
	"github.com/warp/leave-sync/reconcile"
)

// =============================================================================
// TEST SERVER
// =============================================================================

type recorded struct {
	Method string
	Path   string
	Query  string
	Body   map[string]interface{}
}

type fakeGoogle struct {
	mu       sync.Mutex
	requests []recorded
	handle   func(w http.ResponseWriter, r *http.Request, body map[string]interface{})
}

func newFakeGoogle(t *testing.T, handle func(w http.ResponseWriter, r *http.Request, body map[string]interface{})) (*fakeGoogle, []option.ClientOption) {
	f := &fakeGoogle{handle: handle}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]interface{}
		raw, _ := io.ReadAll(r.Body)
		if len(raw) > 0 {
			_ = json.Unmarshal(raw, &body)
		}
		f.mu.Lock()
		f.requests = append(f.requests, recorded{Method: r.Method, Path: r.URL.Path, Query: r.URL.RawQuery, Body: body})
		f.mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		f.handle(w, r, body)
	}))
	t.Cleanup(srv.Close)
	return f, []option.ClientOption{option.WithEndpoint(srv.URL + "/"), option.WithoutAuthentication(), option.WithHTTPClient(srv.Client())}
}

func (f *fakeGoogle) last() recorded {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requests[len(f.requests)-1]
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func googleError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]interface{}{"error": map[string]interface{}{"code": code, "message": msg}})
}

// =============================================================================
// CALENDAR
// =============================================================================

func newCalendar(t *testing.T, handle func(http.ResponseWriter, *http.Request, map[string]interface{})) (*gworkspace.Calendar, *fakeGoogle) {
	f, opts := newFakeGoogle(t, handle)
	cal, err := gworkspace.NewCalendar(context.Background(), gworkspace.CalendarConfig{CalendarID: "cal-1"}, zaptest.NewLogger(t), opts...)
	require.NoError(t, err)
	return cal, f
}

func TestCalendar_List_ReadsPropertyAndToken(t *testing.T) {
	cal, f := newCalendar(t, func(w http.ResponseWriter, r *http.Request, _ map[string]interface{}) {
		writeJSON(w, 200, map[string]interface{}{
			"nextPageToken": "p2",
			"items": []interface{}{
				map[string]interface{}{
					"id":                 "e1",
					"description":        "Approval ID: OLD",
					"updated":            "2025-03-01T10:00:00Z",
					"extendedProperties": map[string]interface{}{"private": map[string]string{"approvalId": "A1"}},
				},
				map[string]interface{}{"id": "e2", "description": "Approval ID: A2"},
			},
		})
	})

	page, err := cal.List(context.Background(), "p1")
	require.NoError(t, err)

	assert.Equal(t, "p2", page.NextPageToken)
	require.Len(t, page.Events, 2)
	assert.Equal(t, "A1", page.Events[0].ApprovalID)
	assert.Equal(t, time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC), page.Events[0].Updated)
	assert.Equal(t, "", page.Events[1].ApprovalID)

	req := f.last()
	assert.Equal(t, "/calendars/cal-1/events", req.Path)
	assert.Contains(t, req.Query, "pageToken=p1")
}

func TestCalendar_Create_SendsBody(t *testing.T) {
	cal, f := newCalendar(t, func(w http.ResponseWriter, r *http.Request, _ map[string]interface{}) {
		writeJSON(w, 200, map[string]interface{}{"id": "new-1"})
	})

	ny, _ := time.LoadLocation("America/New_York")
	id, err := cal.Create(context.Background(), reconcile.EventBody{
		Summary:     "NEEDS SUB - Ada Lovelace - Sick",
		Description: "Approval ID: A1",
		ApprovalID:  "A1",
		Start:       time.Date(2025, 3, 10, 9, 0, 0, 0, ny),
		End:         time.Date(2025, 3, 10, 17, 0, 0, 0, ny),
		TimeZone:    "America/New_York",
	})
	require.NoError(t, err)
	assert.Equal(t, "new-1", id)

	req := f.last()
	assert.Equal(t, http.MethodPost, req.Method)
	assert.Contains(t, req.Query, "sendUpdates=all")
	assert.Equal(t, "NEEDS SUB - Ada Lovelace - Sick", req.Body["summary"])
	start := req.Body["start"].(map[string]interface{})
	assert.Equal(t, "2025-03-10T09:00:00-04:00", start["dateTime"])
	assert.Equal(t, "America/New_York", start["timeZone"])
	reminders := req.Body["reminders"].(map[string]interface{})
	assert.Equal(t, false, reminders["useDefault"])
	props := req.Body["extendedProperties"].(map[string]interface{})["private"].(map[string]interface{})
	assert.Equal(t, "A1", props["approvalId"])
}

func TestCalendar_Update_ErrorStatusIsRejected(t *testing.T) {
	cal, _ := newCalendar(t, func(w http.ResponseWriter, r *http.Request, _ map[string]interface{}) {
		googleError(w, 403, "Forbidden")
	})

	err := cal.Update(context.Background(), "e1", reconcile.EventBody{Summary: "x"})
	require.Error(t, err)
	assert.True(t, generic.IsRejected(err))

	var rej *generic.RejectedError
	require.ErrorAs(t, err, &rej)
	assert.Equal(t, 403, rej.StatusCode)
}

func TestCalendar_Delete_GoneIsSuccess(t *testing.T) {
	cal, f := newCalendar(t, func(w http.ResponseWriter, r *http.Request, _ map[string]interface{}) {
		googleError(w, 410, "Resource has been deleted")
	})

	require.NoError(t, cal.Delete(context.Background(), "e1"))
	assert.Equal(t, http.MethodDelete, f.last().Method)
	assert.Equal(t, "/calendars/cal-1/events/e1", f.last().Path)
}

func TestNewCalendar_RequiresID(t *testing.T) {
	_, err := gworkspace.NewCalendar(context.Background(), gworkspace.CalendarConfig{}, nil, option.WithoutAuthentication())
	assert.Error(t, err)
}

// =============================================================================
// SHEETS
// =============================================================================

func newSheets(t *testing.T, cfg gworkspace.SheetsConfig, handle func(http.ResponseWriter, *http.Request, map[string]interface{})) (*gworkspace.Sheets, *fakeGoogle) {
	f, opts := newFakeGoogle(t, handle)
	if cfg.SpreadsheetID == "" {
		cfg.SpreadsheetID = "sheet-1"
	}
	s, err := gworkspace.NewSheets(context.Background(), cfg, zaptest.NewLogger(t), opts...)
	require.NoError(t, err)
	return s, f
}

func TestSheets_ReadRange_StringifiesCells(t *testing.T) {
	s, f := newSheets(t, gworkspace.SheetsConfig{}, func(w http.ResponseWriter, r *http.Request, _ map[string]interface{}) {
		writeJSON(w, 200, map[string]interface{}{
			"range":  "Sheet1!A1:M3",
			"values": [][]interface{}{{"Approval ID", "First Name"}, {"A1", 42}},
		})
	})

	rows, err := s.ReadRange(context.Background(), "A:M")
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"Approval ID", "First Name"}, {"A1", "42"}}, rows)
	assert.True(t, strings.HasPrefix(f.last().Path, "/v4/spreadsheets/sheet-1/values/"))
}

func TestSheets_DeleteRowRange_SendsZeroIndexes(t *testing.T) {
	s, f := newSheets(t, gworkspace.SheetsConfig{}, func(w http.ResponseWriter, r *http.Request, _ map[string]interface{}) {
		writeJSON(w, 200, map[string]interface{}{"spreadsheetId": "sheet-1"})
	})

	require.NoError(t, s.DeleteRowRange(context.Background(), 0, 1))

	req := f.last()
	assert.Equal(t, "/v4/spreadsheets/sheet-1:batchUpdate", req.Path)
	requests := req.Body["requests"].([]interface{})
	rng := requests[0].(map[string]interface{})["deleteDimension"].(map[string]interface{})["range"].(map[string]interface{})
	assert.Equal(t, float64(0), rng["sheetId"])
	assert.Equal(t, float64(0), rng["startIndex"])
	assert.Equal(t, float64(1), rng["endIndex"])
	assert.Equal(t, "ROWS", rng["dimension"])
}

func TestSheets_BatchUpdate_RawValues(t *testing.T) {
	s, f := newSheets(t, gworkspace.SheetsConfig{SheetTitle: "Leave"}, func(w http.ResponseWriter, r *http.Request, _ map[string]interface{}) {
		writeJSON(w, 200, map[string]interface{}{})
	})

	err := s.BatchUpdate(context.Background(), []reconcile.RangeUpdate{
		{Range: "A2:M2", Rows: [][]string{{"A1", "Ada"}}},
	})
	require.NoError(t, err)

	req := f.last()
	assert.Equal(t, "RAW", req.Body["valueInputOption"])
	data := req.Body["data"].([]interface{})[0].(map[string]interface{})
	assert.Equal(t, "'Leave'!A2:M2", data["range"])
}

func TestSheets_Append_InsertsRows(t *testing.T) {
	s, f := newSheets(t, gworkspace.SheetsConfig{}, func(w http.ResponseWriter, r *http.Request, _ map[string]interface{}) {
		writeJSON(w, 200, map[string]interface{}{})
	})

	require.NoError(t, s.AppendRows(context.Background(), "A:M", [][]string{{"A9"}}))
	req := f.last()
	assert.Contains(t, req.Path, ":append")
	assert.Contains(t, req.Query, "insertDataOption=INSERT_ROWS")
	assert.Contains(t, req.Query, "valueInputOption=RAW")
}

func TestSheets_ErrorStatusIsRejected(t *testing.T) {
	s, _ := newSheets(t, gworkspace.SheetsConfig{}, func(w http.ResponseWriter, r *http.Request, _ map[string]interface{}) {
		googleError(w, 400, "Invalid range")
	})

	err := s.UpdateRange(context.Background(), "A1:M1", [][]string{{"x"}})
	assert.ErrorIs(t, err, generic.ErrMutationRejected)
}

// =============================================================================
// AUTH
// =============================================================================

func TestNewClientOptions_MissingFile(t *testing.T) {
	_, err := gworkspace.NewClientOptions(context.Background(), gworkspace.Credentials{})
	assert.Error(t, err)

	_, err = gworkspace.NewClientOptions(context.Background(), gworkspace.Credentials{ServiceAccountFile: "/nonexistent/key.json"})
	assert.Error(t, err)
}
