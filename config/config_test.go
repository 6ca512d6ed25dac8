package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/leave-sync/config"
)

func env(m map[string]string) func(string) (string, bool) {
	return func(k string) (string, bool) {
		v, ok := m[k]
		return v, ok
	}
}

func TestLoad_MissingFileGivesDefaults(t *testing.T) {
	cfg, err := config.Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "America/New_York", cfg.Event.TimeZone)
	assert.Equal(t, "all", cfg.Google.SendUpdates)
	assert.Equal(t, "deleted_events.txt", cfg.Ledger.DSN)
	assert.True(t, cfg.Event.UseDefaultReminders)
}

func TestLoad_YAMLThenDotEnvThenEnv(t *testing.T) {
	// GIVEN: A YAML file, a .env file and a process variable that overlap
	// WHEN: Loading
	// THEN: Each later layer wins for the keys it sets

	dir := t.TempDir()
	yamlPath := filepath.Join(dir, "leavesync.yaml")
	require.NoError(t, os.WriteFile(yamlPath, []byte(`
google:
  calendar_id: from-yaml
  spreadsheet_id: sheet-yaml
  sheet_title: Leave
ledger:
  dsn: sqlite://./data/leavesync.db
scheduler:
  enabled: true
  daily_time: "07:30"
`), 0o644))

	envPath := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envPath, []byte("CALENDAR_ID=from-dotenv\nSERVICE_ACCOUNT_FILE=/secrets/sa.json\n"), 0o644))

	t.Setenv("CALENDAR_ID", "")
	os.Unsetenv("CALENDAR_ID")
	os.Unsetenv("SERVICE_ACCOUNT_FILE")
	t.Cleanup(func() {
		os.Unsetenv("CALENDAR_ID")
		os.Unsetenv("SERVICE_ACCOUNT_FILE")
	})
	t.Setenv("SHEETS_ID", "sheet-env")

	cfg, err := config.Load(yamlPath, envPath, filepath.Join(dir, "missing.env"))
	require.NoError(t, err)

	assert.Equal(t, "from-dotenv", cfg.Google.CalendarID)
	assert.Equal(t, "/secrets/sa.json", cfg.Google.ServiceAccountFile)
	assert.Equal(t, "sheet-env", cfg.Google.SpreadsheetID)
	assert.Equal(t, "Leave", cfg.Google.SheetTitle)
	assert.Equal(t, "sqlite://./data/leavesync.db", cfg.Ledger.DSN)
	assert.Equal(t, "07:30", cfg.Scheduler.DailyTime)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_BadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("google: [unterminated"), 0o644))

	_, err := config.Load(path)
	assert.Error(t, err)
}

func TestApplyEnv_LegacyNamesWin(t *testing.T) {
	cfg := config.DefaultConfig()
	err := cfg.ApplyEnv(env(map[string]string{
		"DELETED_EVENTS":          "/var/lib/leavesync/deleted.txt",
		"LEAVESYNC_LEDGER":        "memory://",
		"IMPERSONATED_USER_EMAIL": "hr@example.com",
		"LEAVESYNC_SHEET_ID":      "1234",
		"LEAVESYNC_WATCH":         "true",
	}))
	require.NoError(t, err)

	assert.Equal(t, "/var/lib/leavesync/deleted.txt", cfg.Ledger.DSN)
	assert.Equal(t, "hr@example.com", cfg.Google.ImpersonateUser)
	assert.Equal(t, int64(1234), cfg.Google.SheetID)
	assert.True(t, cfg.Scheduler.WatchDir)
}

func TestApplyEnv_BadNumber(t *testing.T) {
	cfg := config.DefaultConfig()
	err := cfg.ApplyEnv(env(map[string]string{"LEAVESYNC_SHEET_ID": "abc"}))
	assert.Error(t, err)
}

func TestValidate_ReportsAllProblems(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Event.TimeZone = "Mars/Olympus"
	cfg.Google.SendUpdates = "sometimes"
	cfg.Scheduler.Enabled = true
	cfg.Scheduler.DailyTime = "25:99"

	err := cfg.Validate()
	require.Error(t, err)
	for _, want := range []string{"SERVICE_ACCOUNT_FILE", "CALENDAR_ID", "send_updates", "time_zone", "daily_time"} {
		assert.Contains(t, err.Error(), want)
	}
}

func TestParseDailyTime(t *testing.T) {
	h, m, err := config.ParseDailyTime("06:05")
	require.NoError(t, err)
	assert.Equal(t, 6, h)
	assert.Equal(t, 5, m)

	_, _, err = config.ParseDailyTime("6pm")
	assert.Error(t, err)
}
