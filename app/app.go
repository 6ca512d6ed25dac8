// Package app wires configuration into a ready Runner. Both binaries in
// cmd/ start here.
package app

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/warp/leave-sync/config"
	"github.com/warp/leave-sync/generic"
	memstore "github.com/warp/leave-sync/generic/store"
	"github.com/warp/leave-sync/gworkspace"
	"github.com/warp/leave-sync/reconcile"
	"github.com/warp/leave-sync/runner"
	"github.com/warp/leave-sync/store"
	"github.com/warp/leave-sync/store/sqlite"
)

type App struct {
	Config  *config.Config
	Runner  *runner.Runner
	Ledger  *generic.DefaultLedger
	History generic.RunHistory

	closers []func() error
}

// Build connects to Google with the configured service account.
func Build(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	opts, err := gworkspace.NewClientOptions(ctx, gworkspace.Credentials{
		ServiceAccountFile: cfg.Google.ServiceAccountFile,
		ImpersonateUser:    cfg.Google.ImpersonateUser,
	})
	if err != nil {
		return nil, err
	}

	cal, err := gworkspace.NewCalendar(ctx, gworkspace.CalendarConfig{
		CalendarID:  cfg.Google.CalendarID,
		SendUpdates: cfg.Google.SendUpdates,
		PageSize:    cfg.Google.PageSize,
	}, logger, opts...)
	if err != nil {
		return nil, err
	}

	var sheet reconcile.SheetStore
	if cfg.Google.SpreadsheetID != "" {
		sheet, err = gworkspace.NewSheets(ctx, gworkspace.SheetsConfig{
			SpreadsheetID: cfg.Google.SpreadsheetID,
			SheetID:       cfg.Google.SheetID,
			SheetTitle:    cfg.Google.SheetTitle,
		}, logger, opts...)
		if err != nil {
			return nil, err
		}
	}
	return BuildWith(cfg, logger, cal, sheet)
}

// BuildWith wires the given stores. A nil sheet disables the sheet step.
func BuildWith(cfg *config.Config, logger *zap.Logger, cal reconcile.CalendarStore, sheet reconcile.SheetStore) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	loc, err := cfg.Location()
	if err != nil {
		return nil, fmt.Errorf("time zone: %w", err)
	}

	a := &App{Config: cfg}

	ledgerStore, err := store.OpenLedgerStore(cfg.Ledger.DSN)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, func() error { return store.Close(ledgerStore) })
	a.Ledger = generic.NewLedger(ledgerStore)

	switch h, ok := store.HistoryOf(ledgerStore); {
	case cfg.History.Path != "":
		db, err := sqlite.New(cfg.History.Path)
		if err != nil {
			_ = a.Close()
			return nil, fmt.Errorf("open run history: %w", err)
		}
		a.closers = append(a.closers, db.Close)
		a.History = db
	case ok:
		a.History = h
	default:
		a.History = memstore.NewMemoryHistory()
	}

	var projector *reconcile.Projector
	if sheet != nil {
		projector = reconcile.NewProjector(sheet, logger)
	}

	a.Runner = runner.New(runner.Options{
		Reader: reconcile.NewReader(cal, sheet, logger),
		Engine: reconcile.NewEngine(cal, a.Ledger, reconcile.EventOptions{
			TimeZone:            loc.String(),
			UseDefaultReminders: cfg.Event.UseDefaultReminders,
		}, logger),
		Projector: projector,
		History:   a.History,
		Batch:     runner.BatchSource{Dir: cfg.Batch.Dir, File: cfg.Batch.File},
		Location:  loc,
		Logger:    logger,
	})
	return a, nil
}

// Close releases stores in reverse order of opening.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	a.closers = nil
	return errors.Join(errs...)
}
