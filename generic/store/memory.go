// Package store provides in-process LedgerStore implementations.
package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/warp/leave-sync/generic"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu      sync.RWMutex
	entries map[string]time.Time

	// FailAppend, when set, is returned from every Append. Tests use it to
	// simulate a ledger that cannot be made durable.
	FailAppend error
	// FailLoad, when set, is returned from Load and Entries.
	FailLoad error

	now func() time.Time
}

func NewMemory(seed ...string) *Memory {
	m := &Memory{
		entries: make(map[string]time.Time),
		now:     time.Now,
	}
	for _, id := range seed {
		m.entries[id] = time.Time{}
	}
	return m
}

// Append records approvalID. Append-only; a repeated id keeps its first timestamp.
func (m *Memory) Append(_ context.Context, approvalID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.FailAppend != nil {
		return m.FailAppend
	}
	if _, ok := m.entries[approvalID]; ok {
		return nil
	}
	m.entries[approvalID] = m.now().UTC()
	return nil
}

func (m *Memory) Load(_ context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.FailLoad != nil {
		return nil, m.FailLoad
	}
	ids := make([]string, 0, len(m.entries))
	for id := range m.entries {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

func (m *Memory) Entries(_ context.Context) ([]generic.LedgerEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.FailLoad != nil {
		return nil, m.FailLoad
	}
	out := make([]generic.LedgerEntry, 0, len(m.entries))
	for id, at := range m.entries {
		entry := generic.LedgerEntry{ApprovalID: id}
		if !at.IsZero() {
			at := at
			entry.RecordedAt = &at
		}
		out = append(out, entry)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ApprovalID < out[j].ApprovalID })
	return out, nil
}

// Len is a test helper.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

var (
	_ generic.LedgerStore = (*Memory)(nil)
	_ generic.EntryLister = (*Memory)(nil)
)
