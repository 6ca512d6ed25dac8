package store

import (
	"context"
	"sort"
	"sync"

	"github.com/warp/leave-sync/generic"
)

// =============================================================================
// MEMORY HISTORY - In-memory RunHistory (for testing/dev)
// =============================================================================

type MemoryHistory struct {
	mu       sync.RWMutex
	runs     map[string]generic.RunRecord
	outcomes map[string][]generic.RunOutcome
}

func NewMemoryHistory() *MemoryHistory {
	return &MemoryHistory{
		runs:     make(map[string]generic.RunRecord),
		outcomes: make(map[string][]generic.RunOutcome),
	}
}

func (h *MemoryHistory) SaveRun(_ context.Context, run generic.RunRecord) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.runs[run.ID] = run
	return nil
}

func (h *MemoryHistory) SaveOutcomes(_ context.Context, runID string, outcomes []generic.RunOutcome) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.outcomes[runID] = append([]generic.RunOutcome(nil), outcomes...)
	return nil
}

func (h *MemoryHistory) ListRuns(_ context.Context, status generic.RunStatus, limit int) ([]generic.RunRecord, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	var out []generic.RunRecord
	for _, r := range h.runs {
		if status == "" || r.Status == status {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartedAt.After(out[j].StartedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (h *MemoryHistory) GetRun(_ context.Context, id string) (*generic.RunRecord, []generic.RunOutcome, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	r, ok := h.runs[id]
	if !ok {
		return nil, nil, generic.ErrNotFound
	}
	return &r, append([]generic.RunOutcome(nil), h.outcomes[id]...), nil
}

var _ generic.RunHistory = (*MemoryHistory)(nil)
