// Command leavesync runs one reconciliation pass and exits. It is meant to
// be started by cron, a systemd timer or a CI schedule.
//
// Exit status: 0 completed, 1 failed, 2 completed with sheet errors.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/warp/leave-sync/app"
	"github.com/warp/leave-sync/config"
	"github.com/warp/leave-sync/generic"
	"github.com/warp/leave-sync/logging"
	"github.com/warp/leave-sync/runner"
)

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "leavesync.yaml", "YAML config path")
	envFile := flag.String("env", ".env", "dotenv file")
	batchFile := flag.String("batch", "", "export to process (default: newest in batch dir)")
	batchDir := flag.String("dir", "", "directory searched for the newest export")
	ledger := flag.String("ledger", "", "ledger path or DSN")
	logLevel := flag.String("log-level", "", "debug, info, warn or error")
	flag.Parse()

	cfg, err := config.Load(*configPath, *envFile)
	if err != nil {
		fmt.Fprintln(os.Stderr, "leavesync:", err)
		return 1
	}
	if *batchFile != "" {
		cfg.Batch.File = *batchFile
	}
	if *batchDir != "" {
		cfg.Batch.Dir = *batchDir
	}
	if *ledger != "" {
		cfg.Ledger.DSN = *ledger
	}
	if *logLevel != "" {
		cfg.Logging.Level = *logLevel
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "leavesync: invalid configuration:\n%v\n", err)
		return 1
	}

	logger, closeLog, err := logging.New(logging.Options{Level: cfg.Logging.Level, Dir: cfg.Logging.Dir})
	if err != nil {
		fmt.Fprintln(os.Stderr, "leavesync:", err)
		return 1
	}
	defer closeLog()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.Build(ctx, cfg, logger)
	if err != nil {
		logger.Error("startup failed", zap.Error(err))
		return 1
	}
	defer a.Close()

	res, err := a.Runner.RunOnce(ctx, runner.TriggerCLI)
	if err != nil {
		logger.Error("pass failed", zap.Error(err))
		return 1
	}
	if res.Status == generic.RunPartial {
		return 2
	}
	return 0
}
