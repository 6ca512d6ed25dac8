package runner_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/warp/leave-sync/runner"
)

func TestWatcher_TriggersOnceForBurst(t *testing.T) {
	// GIVEN: A watched download directory
	// WHEN: An export is written in several steps next to an ignored lock file
	// THEN: Trigger fires once, with the export's path

	dir := t.TempDir()
	fired := make(chan string, 4)
	w := runner.NewWatcher(dir, 100*time.Millisecond, func(_ context.Context, path string) {
		fired <- path
	}, zaptest.NewLogger(t))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	errc := make(chan error, 1)
	go func() { errc <- w.Run(ctx) }()

	// Give the watcher time to register the directory.
	time.Sleep(100 * time.Millisecond)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "~$export.xlsx"), []byte("lock"), 0o644))
	path := filepath.Join(dir, "export.csv")
	require.NoError(t, os.WriteFile(path, []byte("partial"), 0o644))
	require.NoError(t, os.WriteFile(path, []byte("partial,complete"), 0o644))

	select {
	case got := <-fired:
		assert.Equal(t, path, got)
	case <-time.After(5 * time.Second):
		t.Fatal("watcher never fired")
	}

	select {
	case extra := <-fired:
		t.Fatalf("unexpected second trigger for %s", extra)
	case <-time.After(300 * time.Millisecond):
	}

	cancel()
	assert.NoError(t, <-errc)
}

func TestWatcher_MissingDir(t *testing.T) {
	w := runner.NewWatcher(filepath.Join(t.TempDir(), "absent"), 0, func(context.Context, string) {}, nil)
	assert.Error(t, w.Run(context.Background()))
}
