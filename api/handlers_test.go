/*
handlers_test.go - Unit tests for API handlers

Tests for:
- Run history listing and detail
- Manual trigger, including the conflict when a pass is running
- Ledger listing and membership
*/
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/warp/leave-sync/generic"
	"github.com/warp/leave-sync/generic/store"
)

// =============================================================================
// TEST SETUP
// =============================================================================

type stubRunner struct {
	run   *generic.RunRecord
	err   error
	calls []string
}

func (s *stubRunner) RunOnce(_ context.Context, trigger string) (*generic.RunRecord, error) {
	s.calls = append(s.calls, trigger)
	return s.run, s.err
}

type testAPI struct {
	handler  *Handler
	runner   *stubRunner
	history  *store.MemoryHistory
	ledgerDB *store.Memory
	server   http.Handler
}

func newTestAPI(t *testing.T) *testAPI {
	ta := &testAPI{
		runner:   &stubRunner{},
		history:  store.NewMemoryHistory(),
		ledgerDB: store.NewMemory(),
	}
	ta.handler = NewHandler(ta.runner, ta.history, generic.NewLedger(ta.ledgerDB), zaptest.NewLogger(t))
	ta.server = NewRouter(ta.handler, nil)
	return ta
}

func (ta *testAPI) do(t *testing.T, method, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	rec := httptest.NewRecorder()
	ta.server.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func seedRun(t *testing.T, h *store.MemoryHistory, id string, status generic.RunStatus, started time.Time) {
	t.Helper()
	done := started.Add(time.Minute)
	require.NoError(t, h.SaveRun(context.Background(), generic.RunRecord{
		ID: id, Trigger: "schedule", Status: status, StartedAt: started, CompletedAt: &done,
		BatchFile: "/downloads/export.xlsx", Records: 3, Created: 1, Deleted: 1, Unknown: 1, RowsAppended: 2,
	}))
}

// =============================================================================
// RUNS
// =============================================================================

func TestListRuns_NewestFirstWithFilter(t *testing.T) {
	ta := newTestAPI(t)
	t0 := time.Date(2025, 3, 1, 6, 0, 0, 0, time.UTC)
	seedRun(t, ta.history, "r1", generic.RunCompleted, t0)
	seedRun(t, ta.history, "r2", generic.RunFailed, t0.Add(24*time.Hour))

	rec := ta.do(t, http.MethodGet, "/api/runs")
	require.Equal(t, http.StatusOK, rec.Code)
	runs := decode[[]RunDTO](t, rec)
	require.Len(t, runs, 2)
	assert.Equal(t, "r2", runs[0].ID)
	assert.Equal(t, 1, runs[1].Calendar.Created)
	assert.Equal(t, 2, runs[1].Sheet.RowsAppended)
	assert.Equal(t, "2025-03-01T06:01:00Z", runs[1].CompletedAt)

	rec = ta.do(t, http.MethodGet, "/api/runs?status=completed")
	runs = decode[[]RunDTO](t, rec)
	require.Len(t, runs, 1)
	assert.Equal(t, "r1", runs[0].ID)
}

func TestListRuns_EmptyIsArray(t *testing.T) {
	ta := newTestAPI(t)

	rec := ta.do(t, http.MethodGet, "/api/runs")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "[]", strings.TrimSpace(rec.Body.String()))
}

func TestListRuns_BadQuery(t *testing.T) {
	ta := newTestAPI(t)

	assert.Equal(t, http.StatusBadRequest, ta.do(t, http.MethodGet, "/api/runs?status=weird").Code)
	assert.Equal(t, http.StatusBadRequest, ta.do(t, http.MethodGet, "/api/runs?limit=-1").Code)
}

func TestGetRun_WithOutcomes(t *testing.T) {
	ta := newTestAPI(t)
	seedRun(t, ta.history, "r1", generic.RunCompleted, time.Now())
	require.NoError(t, ta.history.SaveOutcomes(context.Background(), "r1", []generic.RunOutcome{
		{RunID: "r1", ApprovalID: "A1", Action: "materialize", Classification: "Created", EventID: "ev1"},
		{RunID: "r1", ApprovalID: "A2", Action: "reconcile", Classification: "Update Error", Error: "timeout"},
	}))

	rec := ta.do(t, http.MethodGet, "/api/runs/r1")
	require.Equal(t, http.StatusOK, rec.Code)
	detail := decode[RunDetailResponse](t, rec)
	assert.Equal(t, "r1", detail.Run.ID)
	require.Len(t, detail.Outcomes, 2)
	assert.Equal(t, "ev1", detail.Outcomes[0].EventID)
	assert.Equal(t, "timeout", detail.Outcomes[1].Error)
}

func TestGetRun_NotFound(t *testing.T) {
	ta := newTestAPI(t)

	rec := ta.do(t, http.MethodGet, "/api/runs/nope")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestTriggerRun_Success(t *testing.T) {
	// GIVEN: A runner that completes a pass
	// WHEN: POST /api/runs
	// THEN: The run comes back and was started as a manual pass

	ta := newTestAPI(t)
	ta.runner.run = &generic.RunRecord{ID: "r9", Status: generic.RunCompleted, StartedAt: time.Now(), Created: 2}

	rec := ta.do(t, http.MethodPost, "/api/runs")
	require.Equal(t, http.StatusOK, rec.Code)
	run := decode[RunDTO](t, rec)
	assert.Equal(t, "r9", run.ID)
	assert.Equal(t, 2, run.Calendar.Created)
	assert.Equal(t, []string{"manual"}, ta.runner.calls)
}

func TestTriggerRun_Conflict(t *testing.T) {
	ta := newTestAPI(t)
	ta.runner.err = generic.ErrRunInProgress

	rec := ta.do(t, http.MethodPost, "/api/runs")
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestTriggerRun_FailedPassCarriesRunID(t *testing.T) {
	ta := newTestAPI(t)
	ta.runner.run = &generic.RunRecord{ID: "r10", Status: generic.RunFailed}
	ta.runner.err = generic.ErrNoBatch

	rec := ta.do(t, http.MethodPost, "/api/runs")
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	resp := decode[ErrorResponse](t, rec)
	assert.Equal(t, "r10", resp.RunID)
	assert.Contains(t, resp.Details, "no batch")
}

// =============================================================================
// LEDGER
// =============================================================================

func TestListLedger_IncludesRecordedAt(t *testing.T) {
	ta := newTestAPI(t)
	require.NoError(t, ta.ledgerDB.Append(context.Background(), "B2"))
	require.NoError(t, ta.ledgerDB.Append(context.Background(), "A1"))

	rec := ta.do(t, http.MethodGet, "/api/ledger")
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[LedgerResponse](t, rec)
	assert.Equal(t, 2, resp.Count)
	assert.Equal(t, "A1", resp.Entries[0].ApprovalID)
	assert.NotEmpty(t, resp.Entries[0].RecordedAt)
}

func TestGetLedgerEntry(t *testing.T) {
	ta := newTestAPI(t)
	require.NoError(t, ta.ledgerDB.Append(context.Background(), "A1"))

	assert.Equal(t, http.StatusOK, ta.do(t, http.MethodGet, "/api/ledger/A1").Code)
	assert.Equal(t, http.StatusNotFound, ta.do(t, http.MethodGet, "/api/ledger/Z9").Code)
}

func TestListLedger_StoreFailure(t *testing.T) {
	ta := newTestAPI(t)
	ta.ledgerDB.FailLoad = errors.New("disk gone")

	rec := ta.do(t, http.MethodGet, "/api/ledger")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

// =============================================================================
// STATUS
// =============================================================================

func TestStatus_ReportsScheduleAndLastRun(t *testing.T) {
	ta := newTestAPI(t)
	seedRun(t, ta.history, "r1", generic.RunCompleted, time.Now())

	sched, err := NewScheduler(ta.runner, "0 6 * * *", time.UTC, nil)
	require.NoError(t, err)
	sched.Start()
	defer sched.Stop()
	ta.handler.Scheduler = sched

	rec := ta.do(t, http.MethodGet, "/api/status")
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[StatusResponse](t, rec)
	assert.True(t, resp.Scheduled)
	assert.Equal(t, "0 6 * * *", resp.Schedule)
	assert.NotEmpty(t, resp.NextRun)
	require.NotNil(t, resp.LastRun)
	assert.Equal(t, "r1", resp.LastRun.ID)
}
