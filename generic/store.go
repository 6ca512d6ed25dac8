/*
store.go - Persistence interface for the deleted-record ledger

PURPOSE:
  Defines the interface between the ledger and whatever durably holds it.
  Implementations: a line-oriented file (default), SQLite, PostgreSQL,
  MySQL (gorm), and an in-memory store for tests.

APPEND-ONLY CONTRACT:
  The LedgerStore interface enforces append-only semantics:
  - Append(): the ONLY write operation
  - NO Remove() or Update() methods exist

  A deletion fact, once written, outlives every later batch. See the
  "permanently discarded" policy in ledger.go.

IDEMPOTENCY:
  Appending an identifier that is already present must succeed without
  creating a second entry. Callers rely on this when a pass is re-run.

IMPLEMENTATIONS:
  - store/filestore:   one identifier per line, rewritten in full per insert
  - store/sqlite:      deleted_records table (also holds run history)
  - store/postgres:    deleted_records table via lib/pq
  - store/gormstore:   deleted_records table via gorm (MySQL)
  - generic/store:     in-memory for testing

SEE ALSO:
  - ledger.go: Higher-level Ledger using LedgerStore
  - store/ledger.go: DSN-based backend selection
*/
package generic

import (
	"context"
	"time"
)

// =============================================================================
// LEDGER STORE - Interface for deleted-record persistence (append-only)
// =============================================================================

// LedgerStore persists the set of permanently retracted Approval IDs.
// IMPORTANT: LedgerStore is APPEND-ONLY. No Update, No Delete. Ever.
type LedgerStore interface {
	// Load returns every recorded identifier. A store that has never been
	// written to returns an empty slice, not an error.
	Load(ctx context.Context) ([]string, error)

	// Append durably adds an identifier. Appending an existing identifier is a no-op.
	Append(ctx context.Context, approvalID string) error
}

// =============================================================================
// LEDGER ENTRY - Optional metadata some stores keep
// =============================================================================

// LedgerEntry is one ledger member with the time it was recorded, when known.
type LedgerEntry struct {
	ApprovalID string
	RecordedAt *time.Time
}

// EntryLister is implemented by stores that keep per-entry metadata.
type EntryLister interface {
	Entries(ctx context.Context) ([]LedgerEntry, error)
}
