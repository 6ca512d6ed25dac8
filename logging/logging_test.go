package logging_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/leave-sync/logging"
)

func TestNew_WritesDailyFile(t *testing.T) {
	dir := t.TempDir()
	day := time.Date(2025, 3, 7, 9, 0, 0, 0, time.UTC)

	logger, closeFn, err := logging.New(logging.Options{
		Level: "debug",
		Dir:   dir,
		Now:   func() time.Time { return day },
	})
	require.NoError(t, err)

	logger.Info("pass finished")
	require.NoError(t, closeFn())

	path := filepath.Join(dir, "leave_requests_20250307.log")
	assert.Equal(t, path, logging.FilePath(dir, day))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "pass finished")
}

func TestNew_BadLevel(t *testing.T) {
	_, _, err := logging.New(logging.Options{Level: "chatty"})
	assert.Error(t, err)
}

func TestNew_StdoutOnly(t *testing.T) {
	logger, closeFn, err := logging.New(logging.Options{})
	require.NoError(t, err)
	assert.NotNil(t, logger)
	// Sync on stdout can fail on some platforms; only the file close matters.
	_ = closeFn()
}
