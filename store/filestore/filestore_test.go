package filestore_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/leave-sync/generic"
	"github.com/warp/leave-sync/store/filestore"
)

func TestFileStore_MissingFileIsEmpty(t *testing.T) {
	s := filestore.New(filepath.Join(t.TempDir(), "deleted_events.txt"))

	ids, err := s.Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestFileStore_AppendWritesOneIDPerLine(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "deleted_events.txt")
	s := filestore.New(path)
	ctx := context.Background()

	require.NoError(t, s.Append(ctx, "A2"))
	require.NoError(t, s.Append(ctx, "A1"))
	require.NoError(t, s.Append(ctx, "A2"))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "A1\nA2\n", string(data))

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temp files left behind")
}

func TestFileStore_ReadsLegacyFile(t *testing.T) {
	// GIVEN: A ledger file without a trailing newline and with blank lines
	// WHEN: Loading it through a ledger
	// THEN: Every id is a member

	path := filepath.Join(t.TempDir(), "deleted_events.txt")
	require.NoError(t, os.WriteFile(path, []byte("X1\n\nX2\r\nX3"), 0o644))

	ledger := generic.NewLedger(filestore.New(path))
	ids, err := ledger.IDs(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"X1", "X2", "X3"}, ids)
}

func TestFileStore_UnwritableDir(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("root ignores directory permissions")
	}
	dir := t.TempDir()
	require.NoError(t, os.Chmod(dir, 0o500))
	t.Cleanup(func() { _ = os.Chmod(dir, 0o700) })

	err := filestore.New(filepath.Join(dir, "deleted.txt")).Append(context.Background(), "A1")
	assert.Error(t, err)
}
