package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"dmvScrapper/internal/browser"
	"dmvScrapper/internal/discovery"
	"dmvScrapper/internal/logging"
	"dmvScrapper/internal/runner"
	"dmvScrapper/internal/store"
	"dmvScrapper/pkg/config"
	"dmvScrapper/pkg/notify"
)

// app holds what every command shares
type app struct {
	cfg     config.Config
	logger  *slog.Logger
	closers []func() error
}

// newApp loads the config and sets up logging. With strict set the config
// must pass validation; otherwise only its errors are logged.
func newApp(flags *rootFlags, strict bool) (*app, error) {
	cfg, err := config.Load(flags.configPath)
	if err != nil {
		return nil, err
	}
	cfg, res := config.NormalizeAndValidate(cfg)

	levelName := cfg.Log.Level
	if flags.logLevel != "" {
		levelName = flags.logLevel
	}
	level, err := logging.ParseLevel(levelName)
	if err != nil {
		return nil, err
	}
	logger, logFile, err := logging.New(logging.Options{Dir: cfg.Log.Dir, Level: level})
	if err != nil {
		return nil, err
	}
	slog.SetDefault(logger)

	a := &app{cfg: cfg, logger: logger}
	a.onClose(logFile.Close)

	for _, w := range res.Warnings {
		logger.Warn("config warning", "detail", w)
	}
	if !res.OK() {
		for _, e := range res.Errors {
			logger.Error("config error", "detail", e)
		}
		if strict {
			a.close()
			return nil, res.Err()
		}
	}
	return a, nil
}

func (a *app) onClose(fn func() error) {
	a.closers = append(a.closers, fn)
}

// close releases resources in reverse order
func (a *app) close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

func (a *app) openStore(ctx context.Context) (*store.DB, error) {
	db, err := store.Open(ctx, a.cfg.Store.Path)
	if err != nil {
		return nil, fmt.Errorf("run history: %w", err)
	}
	a.onClose(db.Close)
	return db, nil
}

func (a *app) engine() *discovery.Engine {
	opts := browser.DefaultOptions()
	opts.Headless = a.cfg.Headless()
	b := browser.New(opts, a.logger)
	a.onClose(func() error { b.Close(); return nil })

	return discovery.New(discovery.ChromeLauncher(b), discovery.Config{
		EntryURL:    a.cfg.Scraper.URL,
		WaitTimeout: a.cfg.WaitTimeout(),
		Selectors:   discovery.Selectors{ServiceType: discovery.ServiceTypeSelector(a.cfg.Scraper.ServiceTypeID)},
	}, a.logger)
}

type runnerOptions struct {
	notify bool
	record bool
}

func (a *app) runner(ctx context.Context, opts runnerOptions) (*runner.Runner, error) {
	n, err := notify.FromConfig(a.cfg, !opts.notify, a.logger)
	if err != nil {
		return nil, err
	}

	var rec runner.Recorder
	if opts.record {
		db, err := a.openStore(ctx)
		if err != nil {
			return nil, err
		}
		rec = db
	}

	a.logger.Info("monitoring locations", "locations", a.cfg.AllowList().Names())

	return runner.New(runner.Options{
		Discoverer:    a.engine(),
		AllowList:     a.cfg.AllowList(),
		Notifier:      n,
		Recorder:      rec,
		RunTimeout:    a.cfg.RunTimeout(),
		NotifyTimeout: a.cfg.NotifyTimeout(),
		Logger:        a.logger,
	}), nil
}
