// Package runner executes discovery runs and schedules them.
package runner

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"dmvScrapper/internal/discovery"
	"dmvScrapper/internal/store"
	"dmvScrapper/pkg/notify"
	"dmvScrapper/pkg/scraper"

	"github.com/google/uuid"
)

// recordTimeout bounds persisting a run, which happens even when the run's
// own context is gone
const recordTimeout = 5 * time.Second

// Discoverer performs one discovery run
type Discoverer interface {
	Discover(ctx context.Context) ([]scraper.Observation, error)
}

// Recorder keeps the history of runs
type Recorder interface {
	SaveRun(ctx context.Context, run store.Run, raw, reported []scraper.Observation) error
}

type Options struct {
	Discoverer Discoverer
	AllowList  scraper.AllowList
	// Notifier may be nil, results are then only logged
	Notifier notify.Notifier
	// Recorder may be nil
	Recorder      Recorder
	RunTimeout    time.Duration
	NotifyTimeout time.Duration
	Logger        *slog.Logger
}

// Runner turns one discovery into a filtered result and delivers it
type Runner struct {
	opts   Options
	logger *slog.Logger
	newID  func() string
	now    func() time.Time
}

func New(opts Options) *Runner {
	return &Runner{
		opts:   opts,
		logger: opts.Logger,
		newID:  uuid.NewString,
		now:    time.Now,
	}
}

// Result of one run
type Result struct {
	JobID string
	// Raw holds every visited location in discovery order
	Raw []scraper.Observation
	// Appointments is the filtered, date-sorted result
	Appointments []scraper.Observation
	// NotifyErr is set when delivery failed; the result is still valid
	NotifyErr error
}

// RunOnce discovers, filters and notifies. A fatal discovery error is
// returned as-is and nothing is sent. Notification failures do not fail
// the run.
func (r *Runner) RunOnce(ctx context.Context) (Result, error) {
	res := Result{JobID: r.newID()}
	logger := r.logger.With("job_id", res.JobID)
	logger.Info("checking for locations with open appointments")

	started := r.now()
	record := store.Run{ID: res.JobID, StartedAt: started, Status: store.StatusOK}

	runCtx := ctx
	if r.opts.RunTimeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, r.opts.RunTimeout)
		defer cancel()
	}

	raw, err := r.opts.Discoverer.Discover(runCtx)
	if err != nil {
		record.Status = store.StatusFailed
		record.Error = err.Error()
		attrs := []any{"error", err}
		if stage, ok := discovery.StageOf(err); ok {
			record.Stage = string(stage)
			attrs = append(attrs, "stage", stage)
		}
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			attrs = append(attrs, "run_timeout", r.opts.RunTimeout)
		}
		logger.Error("run failed", attrs...)
		record.FinishedAt = r.now()
		r.record(ctx, logger, record, nil, nil)
		return res, err
	}
	res.Raw = raw

	found := 0
	for _, o := range raw {
		if o.HasDate() {
			found++
		}
	}
	logger.Info("appointments found", "count", found, "visited", len(raw))

	res.Appointments = scraper.Process(raw, r.opts.AllowList)
	logger.Info("appointments after filtering",
		"count", len(res.Appointments),
		"monitored", r.opts.AllowList.Len(),
		"appointments", scraper.AppointmentDates(res.Appointments),
	)

	if len(res.Appointments) > 0 && r.opts.Notifier != nil {
		if err := r.notify(ctx, res.Appointments); err != nil {
			logger.Error("error sending notifications", "error", err)
			res.NotifyErr = err
			record.NotifyError = err.Error()
		}
	}

	record.Visited = len(raw)
	record.Reported = len(res.Appointments)
	record.FinishedAt = r.now()
	r.record(ctx, logger, record, raw, res.Appointments)

	logger.Info("processing complete", "duration", record.Duration().Round(time.Millisecond))
	return res, nil
}

func (r *Runner) notify(ctx context.Context, appointments []scraper.Observation) error {
	if r.opts.NotifyTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.opts.NotifyTimeout)
		defer cancel()
	}
	return r.opts.Notifier.Notify(ctx, appointments)
}

func (r *Runner) record(ctx context.Context, logger *slog.Logger, run store.Run, raw, reported []scraper.Observation) {
	if r.opts.Recorder == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), recordTimeout)
	defer cancel()
	if err := r.opts.Recorder.SaveRun(ctx, run, raw, reported); err != nil {
		logger.Warn("saving run history failed", "error", err)
	}
}
