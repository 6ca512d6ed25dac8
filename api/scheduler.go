/*
scheduler.go - Timed reconciliation passes

PURPOSE:
  Starts a pass on a cron schedule. The export lands once a day, so the
  usual configuration is a daily HH:MM, which is turned into a cron spec.

DESIGN:
  - robfig/cron drives the timing, in the configured time zone
  - A tick that finds a pass already running is skipped, not queued
  - Stop waits for a pass started by the scheduler to finish

USAGE:
  spec, _ := CronSpec(cfg.Scheduler.Cron, cfg.Scheduler.DailyTime)
  s, err := NewScheduler(runner, spec, loc, logger)
  s.Start()
  defer s.Stop()

SEE ALSO:
  - handlers.go: TriggerRun endpoint (manual pass)
  - runner/runner.go: RunOnce
*/
package api

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/warp/leave-sync/config"
	"github.com/warp/leave-sync/generic"
	"github.com/warp/leave-sync/runner"
)

// Scheduler runs passes on a cron schedule.
type Scheduler struct {
	Runner PassRunner
	Spec   string
	Logger *zap.Logger

	cron      *cron.Cron
	entry     cron.EntryID
	isRunning bool
	mu        sync.Mutex
}

// CronSpec returns expr when set, otherwise a daily spec for "HH:MM".
func CronSpec(expr, dailyTime string) (string, error) {
	spec := strings.TrimSpace(expr)
	if spec == "" {
		hour, minute, err := config.ParseDailyTime(dailyTime)
		if err != nil {
			return "", err
		}
		spec = fmt.Sprintf("%d %d * * *", minute, hour)
	}
	if _, err := cron.ParseStandard(spec); err != nil {
		return "", fmt.Errorf("invalid cron spec %q: %w", spec, err)
	}
	return spec, nil
}

func NewScheduler(r PassRunner, spec string, loc *time.Location, logger *zap.Logger) (*Scheduler, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if loc == nil {
		loc = time.Local
	}
	s := &Scheduler{
		Runner: r,
		Spec:   spec,
		Logger: logger.Named("api.scheduler"),
		cron:   cron.New(cron.WithLocation(loc)),
	}
	id, err := s.cron.AddFunc(spec, func() { s.RunNow(context.Background()) })
	if err != nil {
		return nil, fmt.Errorf("invalid cron spec %q: %w", spec, err)
	}
	s.entry = id
	return s, nil
}

// Start begins the scheduler.
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return
	}
	s.cron.Start()
	s.isRunning = true
	s.Logger.Info("scheduler started", zap.String("spec", s.Spec), zap.Time("next_run", s.NextRun()))
}

// Stop stops the scheduler and waits for a running pass.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.isRunning {
		return
	}
	<-s.cron.Stop().Done()
	s.isRunning = false
	s.Logger.Info("scheduler stopped")
}

// NextRun is the time of the next scheduled pass; zero before Start.
func (s *Scheduler) NextRun() time.Time {
	return s.cron.Entry(s.entry).Next
}

// RunNow performs a scheduled pass immediately.
func (s *Scheduler) RunNow(ctx context.Context) {
	run, err := s.Runner.RunOnce(ctx, runner.TriggerSchedule)
	switch {
	case errors.Is(err, generic.ErrRunInProgress):
		s.Logger.Info("pass already running, skipping tick")
	case err != nil:
		s.Logger.Error("scheduled pass failed", zap.Error(err))
	default:
		s.Logger.Info("scheduled pass finished", zap.String("run_id", run.ID), zap.String("status", string(run.Status)))
	}
}
