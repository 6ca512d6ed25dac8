// Package config loads leave-sync settings.
//
// Precedence, lowest first: DefaultConfig, the YAML file, a .env file, the
// process environment. Command-line flags in cmd/* are applied last by the
// binaries themselves.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	Google    GoogleConfig    `yaml:"google"`
	Batch     BatchConfig     `yaml:"batch"`
	Ledger    LedgerConfig    `yaml:"ledger"`
	History   HistoryConfig   `yaml:"history"`
	Event     EventConfig     `yaml:"event"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
	Server    ServerConfig    `yaml:"server"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// GoogleConfig holds the service account and the two target documents.
type GoogleConfig struct {
	ServiceAccountFile string `yaml:"service_account_file"`
	ImpersonateUser    string `yaml:"impersonate_user"`
	CalendarID         string `yaml:"calendar_id"`
	// SendUpdates is "all", "externalOnly" or "none".
	SendUpdates string `yaml:"send_updates"`
	PageSize    int64  `yaml:"page_size"`
	// SpreadsheetID empty disables the sheet projection.
	SpreadsheetID string `yaml:"spreadsheet_id"`
	SheetID       int64  `yaml:"sheet_id"`
	SheetTitle    string `yaml:"sheet_title"`
}

type BatchConfig struct {
	// Dir is searched for the newest export when File is empty.
	Dir  string `yaml:"dir"`
	File string `yaml:"file"`
}

type LedgerConfig struct {
	// DSN is a path or a scheme URL; see store.OpenLedgerStore.
	DSN string `yaml:"dsn"`
}

type HistoryConfig struct {
	// Path of the SQLite run-history database. Empty keeps history in
	// memory unless the ledger itself is SQLite.
	Path string `yaml:"path"`
}

type EventConfig struct {
	TimeZone            string `yaml:"time_zone"`
	UseDefaultReminders bool   `yaml:"use_default_reminders"`
}

type SchedulerConfig struct {
	Enabled bool `yaml:"enabled"`
	// Cron wins over DailyTime when both are set.
	Cron      string `yaml:"cron"`
	DailyTime string `yaml:"daily_time"`
	WatchDir  bool   `yaml:"watch_dir"`
	// Debounce is how long the watcher waits for an export to settle.
	Debounce time.Duration `yaml:"debounce"`
}

type ServerConfig struct {
	Addr           string   `yaml:"addr"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
	// Dir receives one leave_requests_YYYYMMDD.log per day. Empty disables
	// the file sink.
	Dir string `yaml:"dir"`
}

// DefaultConfig returns default configuration
func DefaultConfig() *Config {
	return &Config{
		Google: GoogleConfig{
			SendUpdates: "all",
			PageSize:    250,
		},
		Batch: BatchConfig{
			Dir: "~/Downloads",
		},
		Ledger: LedgerConfig{
			DSN: "deleted_events.txt",
		},
		Event: EventConfig{
			TimeZone:            "America/New_York",
			UseDefaultReminders: true,
		},
		Scheduler: SchedulerConfig{
			DailyTime: "06:00",
			Debounce:  5 * time.Second,
		},
		Server: ServerConfig{
			Addr:           ":8080",
			AllowedOrigins: []string{"*"},
		},
		Logging: LoggingConfig{
			Level: "info",
			Dir:   "logs",
		},
	}
}

// Load reads path (a missing file means defaults), then envFiles through
// godotenv (missing files are ignored), then the process environment.
func Load(path string, envFiles ...string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("failed to read config file: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config file: %w", err)
			}
		}
	}

	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to load %s: %w", f, err)
		}
	}

	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	cfg.Batch.Dir = expandHome(cfg.Batch.Dir)
	return cfg, nil
}

// ApplyEnv overlays environment variables. The unprefixed names are the
// ones existing deployments already export.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	str := func(dst *string, keys ...string) {
		for _, k := range keys {
			if v, ok := lookup(k); ok && strings.TrimSpace(v) != "" {
				*dst = strings.TrimSpace(v)
				return
			}
		}
	}

	str(&c.Google.ServiceAccountFile, "SERVICE_ACCOUNT_FILE", "LEAVESYNC_SERVICE_ACCOUNT_FILE")
	str(&c.Google.ImpersonateUser, "IMPERSONATED_USER_EMAIL", "LEAVESYNC_IMPERSONATE_USER")
	str(&c.Google.CalendarID, "CALENDAR_ID", "LEAVESYNC_CALENDAR_ID")
	str(&c.Google.SpreadsheetID, "SHEETS_ID", "LEAVESYNC_SHEETS_ID")
	str(&c.Google.SheetTitle, "LEAVESYNC_SHEET_TITLE")
	str(&c.Google.SendUpdates, "LEAVESYNC_SEND_UPDATES")
	str(&c.Ledger.DSN, "DELETED_EVENTS", "LEAVESYNC_LEDGER")
	str(&c.Batch.Dir, "LEAVESYNC_BATCH_DIR")
	str(&c.Batch.File, "LEAVESYNC_BATCH_FILE")
	str(&c.History.Path, "LEAVESYNC_HISTORY")
	str(&c.Event.TimeZone, "LEAVESYNC_TIME_ZONE")
	str(&c.Scheduler.Cron, "LEAVESYNC_CRON")
	str(&c.Scheduler.DailyTime, "LEAVESYNC_DAILY_TIME")
	str(&c.Server.Addr, "LEAVESYNC_ADDR")
	str(&c.Logging.Level, "LEAVESYNC_LOG_LEVEL")
	str(&c.Logging.Dir, "LEAVESYNC_LOG_DIR")

	if v, ok := lookup("LEAVESYNC_SHEET_ID"); ok && v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("LEAVESYNC_SHEET_ID: %w", err)
		}
		c.Google.SheetID = id
	}
	if v, ok := lookup("LEAVESYNC_SCHEDULER"); ok && v != "" {
		on, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("LEAVESYNC_SCHEDULER: %w", err)
		}
		c.Scheduler.Enabled = on
	}
	if v, ok := lookup("LEAVESYNC_WATCH"); ok && v != "" {
		on, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("LEAVESYNC_WATCH: %w", err)
		}
		c.Scheduler.WatchDir = on
	}
	return nil
}

// Validate reports every missing or unusable setting at once.
func (c *Config) Validate() error {
	var errs []error
	if c.Google.ServiceAccountFile == "" {
		errs = append(errs, errors.New("google.service_account_file (SERVICE_ACCOUNT_FILE) is required"))
	}
	if c.Google.CalendarID == "" {
		errs = append(errs, errors.New("google.calendar_id (CALENDAR_ID) is required"))
	}
	if c.Ledger.DSN == "" {
		errs = append(errs, errors.New("ledger.dsn (DELETED_EVENTS) is required"))
	}
	if c.Batch.Dir == "" && c.Batch.File == "" {
		errs = append(errs, errors.New("batch.dir or batch.file is required"))
	}
	switch c.Google.SendUpdates {
	case "", "all", "externalOnly", "none":
	default:
		errs = append(errs, fmt.Errorf("google.send_updates: unknown value %q", c.Google.SendUpdates))
	}
	if _, err := c.Location(); err != nil {
		errs = append(errs, fmt.Errorf("event.time_zone: %w", err))
	}
	if c.Scheduler.Enabled && c.Scheduler.Cron == "" {
		if _, _, err := ParseDailyTime(c.Scheduler.DailyTime); err != nil {
			errs = append(errs, fmt.Errorf("scheduler.daily_time: %w", err))
		}
	}
	return errors.Join(errs...)
}

// Location is the zone batch timestamps are read in and events are written with.
func (c *Config) Location() (*time.Location, error) {
	if c.Event.TimeZone == "" {
		return time.Local, nil
	}
	return time.LoadLocation(c.Event.TimeZone)
}

// ParseDailyTime parses "HH:MM" in 24-hour form.
func ParseDailyTime(s string) (hour, minute int, err error) {
	t, err := time.Parse("15:04", strings.TrimSpace(s))
	if err != nil {
		return 0, 0, fmt.Errorf("want HH:MM, got %q", s)
	}
	return t.Hour(), t.Minute(), nil
}

func expandHome(p string) string {
	if p != "~" && !strings.HasPrefix(p, "~/") {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	return filepath.Join(home, strings.TrimPrefix(p, "~"))
}
