/*
ledger.go - Deleted-record ledger

PURPOSE:
  The Ledger is the durable memory of irreversible decisions. When a calendar
  event is retracted (the request was Rejected or Revoked), its Approval ID is
  recorded here so that no later pass ever re-creates an event for it.

CRITICAL INVARIANTS:
  1. APPEND-ONLY: entries are never removed by the engine.
  2. MONOTONIC: once Contains(id) is true, it stays true across runs.
  3. DURABLE-BEFORE-RETURN: Record() persists before returning, so a crash
     right after the call never loses the deletion fact.
  4. ABSENT == EMPTY: a ledger that has never been written is an empty set.

PERMANENTLY DISCARDED:
  A ledger member stays suppressed even if a later batch shows the same
  Approval ID as Approved again (a revoke-then-reapprove under the same id
  is silently dropped). This is deliberate until the business owner says
  otherwise; see DESIGN.md.

FAILURE SEMANTICS:
  If the durable write fails, the calendar deletion has already happened.
  Record() returns a *LedgerWriteError; the engine logs it as a consistency
  warning and keeps going. A later pass may then offer the id for creation
  instead of suppression.

SEE ALSO:
  - store.go: LedgerStore interface
  - reconcile/engine.go: The only writer
*/
package generic

import (
	"context"
	"sort"
	"strings"
	"sync"
)

// =============================================================================
// LEDGER - Append-only set of retracted Approval IDs
// =============================================================================

// Ledger is the set of Approval IDs whose calendar events were retracted.
type Ledger interface {
	// Contains reports ledger membership.
	Contains(ctx context.Context, approvalID string) (bool, error)

	// Record idempotently inserts approvalID and persists it before returning.
	Record(ctx context.Context, approvalID string) error

	// IDs returns all members in ascending order. Read-only.
	IDs(ctx context.Context) ([]string, error)
}

// =============================================================================
// DEFAULT LEDGER - Implementation using LedgerStore
// =============================================================================

// DefaultLedger reads the store once on first use and serves membership
// from memory afterwards. Writes go to the store first.
type DefaultLedger struct {
	Store LedgerStore

	mu      sync.Mutex
	members map[string]struct{}
}

func NewLedger(store LedgerStore) *DefaultLedger {
	return &DefaultLedger{Store: store}
}

func (l *DefaultLedger) Contains(ctx context.Context, approvalID string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.loadLocked(ctx); err != nil {
		return false, err
	}
	_, ok := l.members[normalizeID(approvalID)]
	return ok, nil
}

func (l *DefaultLedger) Record(ctx context.Context, approvalID string) error {
	id := normalizeID(approvalID)
	if id == "" {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.loadLocked(ctx); err != nil {
		return &LedgerWriteError{ApprovalID: id, Err: err}
	}
	if _, ok := l.members[id]; ok {
		return nil
	}
	if err := l.Store.Append(ctx, id); err != nil {
		return &LedgerWriteError{ApprovalID: id, Err: err}
	}
	l.members[id] = struct{}{}
	return nil
}

func (l *DefaultLedger) IDs(ctx context.Context) ([]string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.loadLocked(ctx); err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(l.members))
	for id := range l.members {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

// Reload drops the cached set so the next call re-reads the store.
// Used between scheduled passes in a long-running process.
func (l *DefaultLedger) Reload() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.members = nil
}

func (l *DefaultLedger) loadLocked(ctx context.Context) error {
	if l.members != nil {
		return nil
	}
	ids, err := l.Store.Load(ctx)
	if err != nil {
		return err
	}
	members := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if id = normalizeID(id); id != "" {
			members[id] = struct{}{}
		}
	}
	l.members = members
	return nil
}

func normalizeID(id string) string {
	return strings.TrimSpace(id)
}
