// Package discovery walks the appointment booking flow and reports, for every
// location offered, the first bookable date (if any).
//
// One call to Engine.Discover is one run: it opens its own browser session,
// advances through the entry and service-type steps, then visits each
// location in the list exactly once, going back to the list after each one.
// Element handles never outlive a navigation; the location list is looked up
// again every time the engine returns to it, and visited locations are
// remembered by name.
package discovery

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"dmvScrapper/internal/browser"
	"dmvScrapper/pkg/scraper"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("dmvScrapper/internal/discovery")

// DefaultWaitTimeout bounds every visibility wait when Config leaves it unset
const DefaultWaitTimeout = 10 * time.Second

// Session is the subset of a browser tab the engine drives
type Session interface {
	Navigate(ctx context.Context, url string) error
	Click(ctx context.Context, sel string) error
	FindAll(ctx context.Context, sel string) ([]browser.Element, error)
	WaitVisible(ctx context.Context, sel string, timeout time.Duration) error
	WaitNotVisible(ctx context.Context, sel string, timeout time.Duration) error
	Visible(ctx context.Context, sel string) (bool, error)
	Close() error
}

// Launcher opens a fresh browser session for a run
type Launcher interface {
	Launch(ctx context.Context) (Session, error)
}

// LauncherFunc adapts a function to Launcher
type LauncherFunc func(ctx context.Context) (Session, error)

func (f LauncherFunc) Launch(ctx context.Context) (Session, error) {
	return f(ctx)
}

// ChromeLauncher opens one chromedp session per run
func ChromeLauncher(b *browser.Browser) Launcher {
	return LauncherFunc(func(ctx context.Context) (Session, error) {
		s, err := b.NewSession(ctx)
		if err != nil {
			return nil, err
		}
		return s, nil
	})
}

// Config holds what a run needs to know about the booking site
type Config struct {
	EntryURL    string
	WaitTimeout time.Duration
	Selectors   Selectors
}

// Engine discovers appointments. Runs must not overlap.
type Engine struct {
	launcher Launcher
	cfg      Config
	logger   *slog.Logger
}

// New creates an engine
func New(launcher Launcher, cfg Config, logger *slog.Logger) *Engine {
	if cfg.WaitTimeout <= 0 {
		cfg.WaitTimeout = DefaultWaitTimeout
	}
	cfg.Selectors = cfg.Selectors.withDefaults()
	return &Engine{
		launcher: launcher,
		cfg:      cfg,
		logger:   logger,
	}
}

// Discover performs one run and returns an observation per visited
// location, in visiting order, including locations without a date.
// On a fatal error (*Error) nothing is returned. The session is closed on
// every path.
func (e *Engine) Discover(ctx context.Context) (_ []scraper.Observation, err error) {
	ctx, span := tracer.Start(ctx, "Discover")
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "discovery failed")
		}
		span.End()
	}()

	session, err := e.launcher.Launch(ctx)
	if err != nil {
		return nil, fail(StageEntry, fmt.Errorf("open browser session: %w", err))
	}
	defer func() {
		if cerr := session.Close(); cerr != nil {
			e.logger.Warn("closing browser session failed", "error", cerr)
		}
	}()

	r := &run{
		Engine:    e,
		session:   session,
		processed: make(map[string]struct{}),
	}
	observations, err := r.walk(ctx)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.Int("locations", len(observations)))
	return observations, nil
}

// run is the state of a single traversal
type run struct {
	*Engine
	session Session

	processed    map[string]struct{}
	observations []scraper.Observation
}

func (r *run) walk(ctx context.Context) ([]scraper.Observation, error) {
	sel := r.cfg.Selectors

	if err := r.session.Navigate(ctx, r.cfg.EntryURL); err != nil {
		return nil, fatal(ctx, StageEntry, err)
	}
	if err := r.session.Click(ctx, sel.Start); err != nil {
		return nil, fatal(ctx, StageEntry, fmt.Errorf("start control: %w", err))
	}

	if err := r.session.WaitVisible(ctx, sel.ServiceType, r.cfg.WaitTimeout); err != nil {
		return nil, fatal(ctx, StageServiceType, err)
	}
	if err := r.session.Click(ctx, sel.ServiceType); err != nil {
		return nil, fatal(ctx, StageServiceType, err)
	}

	if err := r.session.WaitVisible(ctx, sel.LocationList, r.cfg.WaitTimeout); err != nil {
		return nil, fatal(ctx, StageLocationList, err)
	}

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		loc, ok, err := r.nextLocation(ctx)
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}

		obs, opened, err := r.visit(ctx, loc)
		if err != nil {
			return nil, err
		}
		r.observations = append(r.observations, obs)

		if !opened {
			continue
		}
		if err := r.returnToList(ctx); err != nil {
			return nil, err
		}
	}

	r.logger.Info("processing complete", "locations", len(r.observations))
	return r.observations, nil
}

// visit selects a location and reads its first open date. Per-location
// problems become an observation without a date; only a cancelled context
// is returned as an error. opened is false when the location could not be
// clicked, so the page is still the location list.
func (r *run) visit(ctx context.Context, loc location) (_ scraper.Observation, opened bool, _ error) {
	ctx, span := tracer.Start(ctx, "visitLocation", tracerAttrs(loc.name))
	defer span.End()

	sel := r.cfg.Selectors
	logger := r.logger.With("location", loc.name)
	none := scraper.NoAppointment(loc.name)

	if err := loc.el.Click(ctx); err != nil {
		return none, false, r.soft(ctx, logger, slog.LevelWarn, "location not clickable", err)
	}

	if err := r.session.WaitVisible(ctx, sel.Calendar, r.cfg.WaitTimeout); err != nil {
		return none, true, r.soft(ctx, logger, slog.LevelWarn, "calendar not visible", err)
	}

	// A location can be listed as available and then report no slots once opened.
	shown, err := r.session.Visible(ctx, sel.ValidationError)
	if err != nil {
		return none, true, r.soft(ctx, logger, slog.LevelWarn, "availability unknown", err)
	}
	if shown {
		logger.Info("no appointments", "reason", "validation error shown")
		return none, true, nil
	}

	date, ok := r.extractFirstAvailableDate(ctx, logger)
	if err := ctx.Err(); err != nil {
		return none, true, err
	}
	if !ok {
		logger.Info("no appointments", "reason", "no usable calendar day")
		return none, true, nil
	}

	logger.Info("appointment found", "date", date.Format(scraper.DateLayout))
	span.SetAttributes(attribute.String("date", date.Format(scraper.DateLayout)))
	return scraper.NewObservation(loc.name, date), true, nil
}

// returnToList waits out the loading overlay, clicks back and waits for
// the location list. Not getting back to the list ends the run.
func (r *run) returnToList(ctx context.Context) error {
	sel := r.cfg.Selectors

	// Some transitions are instant and never show the overlay.
	if err := r.session.WaitVisible(ctx, sel.LoadingOverlay, r.cfg.WaitTimeout); err != nil {
		if err := r.soft(ctx, r.logger, slog.LevelDebug, "loading overlay not observed", err); err != nil {
			return err
		}
	}
	if err := r.session.WaitNotVisible(ctx, sel.LoadingOverlay, r.cfg.WaitTimeout); err != nil {
		if err := r.soft(ctx, r.logger, slog.LevelWarn, "loading overlay still visible", err); err != nil {
			return err
		}
	}

	if err := r.session.Click(ctx, sel.Back); err != nil {
		return fatal(ctx, StageLocationList, fmt.Errorf("back control: %w", err))
	}
	if err := r.session.WaitVisible(ctx, sel.LocationList, r.cfg.WaitTimeout); err != nil {
		return fatal(ctx, StageLocationList, err)
	}
	return nil
}

// soft logs a tolerated failure. It returns the context error when the run
// was cancelled, so cancellation is never swallowed.
func (r *run) soft(ctx context.Context, logger *slog.Logger, level slog.Level, reason string, err error) error {
	if cerr := ctx.Err(); cerr != nil {
		return cerr
	}
	msg := "tolerated failure"
	if errors.Is(err, browser.ErrWaitTimeout) {
		msg = "tolerated timeout"
	}
	logger.Log(ctx, level, msg, "reason", reason, "error", err)
	return nil
}
