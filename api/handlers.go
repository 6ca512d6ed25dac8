/*
handlers.go - HTTP API handlers for the admin surface

PURPOSE:
  Lets an operator see what past passes did, inspect the deleted-record
  ledger and start a pass by hand. The reconciliation itself lives in
  runner/ and reconcile/; handlers only translate HTTP.

ENDPOINTS:
  Runs:
    GET    /api/runs                 List passes, newest first (?status=, ?limit=)
    POST   /api/runs                 Run a pass now
    GET    /api/runs/{id}            One pass with per-record outcomes

  Ledger:
    GET    /api/ledger               All retracted Approval IDs
    GET    /api/ledger/{id}          Membership of one Approval ID

  Status:
    GET    /api/status               Schedule and the latest pass

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Invalid query parameters
  - 404: Unknown run or ledger entry
  - 409: A pass is already running
  - 500: Internal errors, or a pass that failed outright

SECURITY NOTE:
  No authentication. Bind the server to a private interface.

SEE ALSO:
  - dto.go: Response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/warp/leave-sync/generic"
	"github.com/warp/leave-sync/runner"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// PassRunner runs one reconciliation pass. *runner.Runner implements it.
type PassRunner interface {
	RunOnce(ctx context.Context, trigger string) (*generic.RunRecord, error)
}

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Runner    PassRunner
	History   generic.RunHistory
	Ledger    generic.Ledger
	Scheduler *Scheduler // optional
	Logger    *zap.Logger
}

func NewHandler(r PassRunner, history generic.RunHistory, ledger generic.Ledger, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{Runner: r, History: history, Ledger: ledger, Logger: logger.Named("api")}
}

// =============================================================================
// RUN HANDLERS
// =============================================================================

// ListRuns returns past passes.
// GET /api/runs
func (h *Handler) ListRuns(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	status := generic.RunStatus(q.Get("status"))
	switch status {
	case "", generic.RunRunning, generic.RunCompleted, generic.RunPartial, generic.RunFailed:
	default:
		writeError(w, http.StatusBadRequest, "Unknown status filter", nil)
		return
	}

	limit := 50
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "Invalid limit", err)
			return
		}
		limit = n
	}

	runs, err := h.History.ListRuns(r.Context(), status, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list runs", err)
		return
	}

	dtos := make([]RunDTO, len(runs))
	for i, run := range runs {
		dtos[i] = toRunDTO(run)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetRun returns one pass with its outcomes.
// GET /api/runs/{id}
func (h *Handler) GetRun(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	run, outcomes, err := h.History.GetRun(r.Context(), id)
	if generic.IsNotFound(err) {
		writeError(w, http.StatusNotFound, "Run not found", nil)
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get run", err)
		return
	}

	writeJSON(w, http.StatusOK, RunDetailResponse{
		Run:      toRunDTO(*run),
		Outcomes: toOutcomeDTOs(outcomes),
	})
}

// TriggerRun runs a pass synchronously and returns its record. The pass is
// detached from the request so a dropped client does not cut it short.
// POST /api/runs
func (h *Handler) TriggerRun(w http.ResponseWriter, r *http.Request) {
	ctx := context.WithoutCancel(r.Context())

	run, err := h.Runner.RunOnce(ctx, runner.TriggerManual)
	if errors.Is(err, generic.ErrRunInProgress) {
		writeError(w, http.StatusConflict, "A pass is already running", nil)
		return
	}
	if err != nil {
		resp := ErrorResponse{Error: "Pass failed", Details: err.Error()}
		if run != nil {
			resp.RunID = run.ID
		}
		h.Logger.Error("manual pass failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, resp)
		return
	}

	writeJSON(w, http.StatusOK, toRunDTO(*run))
}

// =============================================================================
// LEDGER HANDLERS
// =============================================================================

// ListLedger returns every retracted Approval ID, with the time it was
// recorded when the backend keeps it.
// GET /api/ledger
func (h *Handler) ListLedger(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if lister, ok := h.entryLister(); ok {
		entries, err := lister.Entries(ctx)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to read ledger", err)
			return
		}
		dtos := make([]LedgerEntryDTO, len(entries))
		for i, e := range entries {
			dtos[i] = LedgerEntryDTO{ApprovalID: e.ApprovalID}
			if e.RecordedAt != nil {
				dtos[i].RecordedAt = formatTime(*e.RecordedAt)
			}
		}
		writeJSON(w, http.StatusOK, LedgerResponse{Count: len(dtos), Entries: dtos})
		return
	}

	ids, err := h.Ledger.IDs(ctx)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to read ledger", err)
		return
	}
	dtos := make([]LedgerEntryDTO, len(ids))
	for i, id := range ids {
		dtos[i] = LedgerEntryDTO{ApprovalID: id}
	}
	writeJSON(w, http.StatusOK, LedgerResponse{Count: len(dtos), Entries: dtos})
}

// GetLedgerEntry reports whether an Approval ID was retracted.
// GET /api/ledger/{id}
func (h *Handler) GetLedgerEntry(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	ok, err := h.Ledger.Contains(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to read ledger", err)
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, "Approval ID not in ledger", nil)
		return
	}
	writeJSON(w, http.StatusOK, LedgerEntryDTO{ApprovalID: id})
}

// entryLister finds per-entry metadata behind the ledger, if its store keeps any.
func (h *Handler) entryLister() (generic.EntryLister, bool) {
	if dl, ok := h.Ledger.(*generic.DefaultLedger); ok {
		lister, ok := dl.Store.(generic.EntryLister)
		return lister, ok
	}
	lister, ok := h.Ledger.(generic.EntryLister)
	return lister, ok
}

// =============================================================================
// STATUS
// =============================================================================

// Status reports the schedule and the latest pass.
// GET /api/status
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	var resp StatusResponse
	if h.Scheduler != nil {
		resp.Scheduled = true
		resp.Schedule = h.Scheduler.Spec
		resp.NextRun = formatTime(h.Scheduler.NextRun())
	}

	runs, err := h.History.ListRuns(r.Context(), "", 1)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list runs", err)
		return
	}
	if len(runs) > 0 {
		last := toRunDTO(runs[0])
		resp.LastRun = &last
	}
	writeJSON(w, http.StatusOK, resp)
}

// =============================================================================
// HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
