package runner

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/warp/leave-sync/leave"
)

// Watcher calls Trigger once a new export has stopped changing for Debounce.
// Browsers write downloads in several steps, so a burst of events for the
// same drop collapses into one call.
type Watcher struct {
	Dir      string
	Debounce time.Duration
	Trigger  func(ctx context.Context, path string)
	Logger   *zap.Logger
}

func NewWatcher(dir string, debounce time.Duration, trigger func(context.Context, string), logger *zap.Logger) *Watcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	if debounce <= 0 {
		debounce = 5 * time.Second
	}
	return &Watcher{Dir: dir, Debounce: debounce, Trigger: trigger, Logger: logger.Named("runner.watch")}
}

// Run blocks until ctx is done.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer fw.Close()

	if err := fw.Add(w.Dir); err != nil {
		return fmt.Errorf("watch %s: %w", w.Dir, err)
	}
	w.Logger.Info("watching for batch files", zap.String("dir", w.Dir))

	var (
		timer   *time.Timer
		timerC  <-chan time.Time
		pending string
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Rename) {
				continue
			}
			if !leave.IsBatchFile(filepath.Base(ev.Name)) {
				continue
			}
			pending = ev.Name
			if timer != nil {
				timer.Stop()
			}
			timer = time.NewTimer(w.Debounce)
			timerC = timer.C

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.Logger.Warn("watch error", zap.Error(err))

		case <-timerC:
			timerC = nil
			w.Logger.Info("new batch file", zap.String("path", pending))
			w.Trigger(ctx, pending)
		}
	}
}
