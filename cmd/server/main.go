/*
main.go - leave-sync daemon

PURPOSE:
  Runs reconciliation passes on a schedule and serves the admin API.

STARTUP SEQUENCE:
  1. Parse command-line flags
  2. Load config (YAML, .env, environment)
  3. Build logger, stores, Google clients and runner
  4. Start scheduler and download-directory watcher when enabled
  5. Start HTTP server with graceful shutdown

COMMAND-LINE FLAGS:
  -config  YAML config path (default: leavesync.yaml, optional)
  -env     dotenv file (default: .env, optional)
  -addr    HTTP listen address (overrides server.addr)
  -once    Run a single pass and exit instead of serving

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop the watcher and the scheduler (a running pass finishes)
  2. Stop accepting new connections, wait for requests (30s timeout)
  3. Close stores

SEE ALSO:
  - cmd/leavesync: one-shot binary for an external scheduler
  - api/server.go: Router configuration
  - app/app.go: Wiring
*/
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/warp/leave-sync/api"
	"github.com/warp/leave-sync/app"
	"github.com/warp/leave-sync/config"
	"github.com/warp/leave-sync/logging"
	"github.com/warp/leave-sync/runner"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "leavesync-server:", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "leavesync.yaml", "YAML config path")
	envFile := flag.String("env", ".env", "dotenv file")
	addr := flag.String("addr", "", "HTTP listen address")
	once := flag.Bool("once", false, "run one pass and exit")
	flag.Parse()

	cfg, err := config.Load(*configPath, *envFile)
	if err != nil {
		return err
	}
	if *addr != "" {
		cfg.Server.Addr = *addr
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration:\n%w", err)
	}

	logger, closeLog, err := logging.New(logging.Options{Level: cfg.Logging.Level, Dir: cfg.Logging.Dir})
	if err != nil {
		return err
	}
	defer closeLog()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.Build(ctx, cfg, logger)
	if err != nil {
		logger.Error("startup failed", zap.Error(err))
		return err
	}
	defer a.Close()

	if *once {
		_, err := a.Runner.RunOnce(ctx, runner.TriggerCLI)
		return err
	}

	handler := api.NewHandler(a.Runner, a.History, a.Ledger, logger)

	if cfg.Scheduler.Enabled {
		spec, err := api.CronSpec(cfg.Scheduler.Cron, cfg.Scheduler.DailyTime)
		if err != nil {
			return err
		}
		loc, _ := cfg.Location()
		sched, err := api.NewScheduler(a.Runner, spec, loc, logger)
		if err != nil {
			return err
		}
		sched.Start()
		defer sched.Stop()
		handler.Scheduler = sched
	}

	var wg sync.WaitGroup
	if cfg.Scheduler.WatchDir && cfg.Batch.File == "" {
		w := runner.NewWatcher(cfg.Batch.Dir, cfg.Scheduler.Debounce, func(ctx context.Context, path string) {
			if _, err := a.Runner.RunOnce(ctx, runner.TriggerWatch); err != nil {
				logger.Warn("watch-triggered pass did not complete", zap.String("path", path), zap.Error(err))
			}
		}, logger)
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := w.Run(ctx); err != nil {
				logger.Error("watcher stopped", zap.Error(err))
			}
		}()
	}

	server := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      api.NewRouter(handler, cfg.Server.AllowedOrigins),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 10 * time.Minute, // POST /api/runs waits for the pass
		IdleTimeout:  60 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		logger.Info("server starting", zap.String("addr", cfg.Server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errc:
		return fmt.Errorf("server failed: %w", err)
	}

	logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	wg.Wait()
	logger.Info("server stopped")
	return nil
}
