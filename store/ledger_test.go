package store_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/leave-sync/generic"
	memstore "github.com/warp/leave-sync/generic/store"
	"github.com/warp/leave-sync/store"
	"github.com/warp/leave-sync/store/filestore"
	"github.com/warp/leave-sync/store/postgres"
	"github.com/warp/leave-sync/store/sqlite"
)

func TestOpenLedgerStore_Schemes(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name string
		dsn  string
		want any
	}{
		{"bare path", filepath.Join(dir, "deleted_events.txt"), &filestore.Store{}},
		{"file scheme", "file://" + filepath.Join(dir, "deleted.txt"), &filestore.Store{}},
		{"memory", "memory://", &memstore.Memory{}},
		{"sqlite", "sqlite://:memory:", &sqlite.Store{}},
		{"postgres", "postgres://leavesync@localhost/leavesync?sslmode=disable", &postgres.Store{}},
		{"postgresql", "postgresql://leavesync@localhost/leavesync", &postgres.Store{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := store.OpenLedgerStore(tt.dsn)
			require.NoError(t, err)
			t.Cleanup(func() { _ = store.Close(s) })
			assert.IsType(t, tt.want, s)
		})
	}
}

func TestOpenLedgerStore_FilePath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "deleted.txt")

	s, err := store.OpenLedgerStore("file://" + path)
	require.NoError(t, err)
	assert.Equal(t, path, s.(*filestore.Store).Path())
}

func TestOpenLedgerStore_Rejects(t *testing.T) {
	for _, dsn := range []string{"", "   ", "redis://localhost:6379", "file://", "sqlite://"} {
		_, err := store.OpenLedgerStore(dsn)
		assert.ErrorIs(t, err, generic.ErrUnsupportedBackend, dsn)
	}
}

func TestHistoryOf(t *testing.T) {
	// GIVEN: A SQLite ledger and a file ledger
	// WHEN: Asking each for run history
	// THEN: Only SQLite provides it

	sq, err := store.OpenLedgerStore("sqlite://:memory:")
	require.NoError(t, err)
	defer store.Close(sq)

	h, ok := store.HistoryOf(sq)
	require.True(t, ok)
	_, err = h.ListRuns(context.Background(), "", 0)
	assert.NoError(t, err)

	fs, err := store.OpenLedgerStore(filepath.Join(t.TempDir(), "d.txt"))
	require.NoError(t, err)
	_, ok = store.HistoryOf(fs)
	assert.False(t, ok)
	assert.NoError(t, store.Close(fs))
}
