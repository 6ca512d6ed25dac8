/*
ledger.go - Ledger backend selection

PURPOSE:
  Maps the single "deleted events" setting onto a LedgerStore. The setting
  is either a plain path (the historical text file) or a DSN whose scheme
  picks the backend.

SCHEMES:
  (none), file://      store/filestore   one id per line
  memory://            generic/store     process lifetime only
  sqlite://PATH        store/sqlite      also provides run history
  postgres://...       store/postgres    lib/pq URL, connects lazily
  postgresql://...     store/postgres
  mysql://DSN          store/gormstore   DSN in go-sql-driver form

  Stores that hold a connection implement io.Closer. Stores that can keep
  run history implement generic.RunHistory.
*/
package store

import (
	"fmt"
	"io"
	"strings"

	"github.com/warp/leave-sync/generic"
	memstore "github.com/warp/leave-sync/generic/store"
	"github.com/warp/leave-sync/store/filestore"
	"github.com/warp/leave-sync/store/gormstore"
	"github.com/warp/leave-sync/store/postgres"
	"github.com/warp/leave-sync/store/sqlite"
)

func OpenLedgerStore(dsn string) (generic.LedgerStore, error) {
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		return nil, fmt.Errorf("%w: empty ledger location", generic.ErrUnsupportedBackend)
	}

	scheme, rest := splitScheme(dsn)
	switch scheme {
	case "", "file":
		if rest == "" {
			return nil, fmt.Errorf("%w: file ledger needs a path", generic.ErrUnsupportedBackend)
		}
		return filestore.New(rest), nil
	case "memory", "mem", "inmem":
		return memstore.NewMemory(), nil
	case "sqlite", "sqlite3":
		if rest == "" {
			return nil, fmt.Errorf("%w: sqlite ledger needs a path", generic.ErrUnsupportedBackend)
		}
		return sqlite.New(rest)
	case "postgres", "postgresql":
		return postgres.New(dsn)
	case "mysql":
		return gormstore.Open(rest)
	default:
		return nil, fmt.Errorf("%w: ledger scheme %q", generic.ErrUnsupportedBackend, scheme)
	}
}

// HistoryOf returns the run history a ledger store also keeps, if any.
func HistoryOf(s generic.LedgerStore) (generic.RunHistory, bool) {
	h, ok := s.(generic.RunHistory)
	return h, ok
}

// Close releases s if it holds a connection.
func Close(s generic.LedgerStore) error {
	if c, ok := s.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// splitScheme separates "scheme://rest". A DSN without "://" is a path,
// which keeps Windows drive letters out of the scheme.
func splitScheme(dsn string) (string, string) {
	i := strings.Index(dsn, "://")
	if i <= 0 {
		return "", dsn
	}
	return strings.ToLower(dsn[:i]), dsn[i+len("://"):]
}
