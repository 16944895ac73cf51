package runner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"dmvScrapper/pkg/config"

	"github.com/robfig/cron/v3"
)

// Scheduler triggers runs on a cron schedule. At most one run is in
// flight; a trigger that fires during a run is skipped.
type Scheduler struct {
	schedule   cron.Schedule
	spec       string
	runOnStart bool
	logger     *slog.Logger
	run        func(ctx context.Context)
}

// NewScheduler parses spec (five fields, optional seconds, or a
// descriptor such as @every 15m)
func NewScheduler(spec string, runOnStart bool, run func(ctx context.Context), logger *slog.Logger) (*Scheduler, error) {
	schedule, err := config.ScheduleParser.Parse(spec)
	if err != nil {
		return nil, fmt.Errorf("schedule %q: %w", spec, err)
	}
	return &Scheduler{
		schedule:   schedule,
		spec:       spec,
		runOnStart: runOnStart,
		logger:     logger,
		run:        run,
	}, nil
}

// RunnerJob adapts a Runner to a scheduled job; failures are already
// logged by the runner
func RunnerJob(r *Runner) func(ctx context.Context) {
	return func(ctx context.Context) {
		_, _ = r.RunOnce(ctx)
	}
}

// Run blocks until ctx is cancelled, then waits for the run in flight
func (s *Scheduler) Run(ctx context.Context) error {
	cl := cronLogger{s.logger}
	job := s.job(ctx, cl)

	c := cron.New(cron.WithLogger(cl))
	id := c.Schedule(s.schedule, job)
	c.Start()

	var wg sync.WaitGroup
	if s.runOnStart {
		wg.Add(1)
		go func() {
			defer wg.Done()
			job.Run()
		}()
	}

	s.logger.Info("scheduler started", "cron", s.spec, "next", c.Entry(id).Next)

	<-ctx.Done()
	s.logger.Info("scheduler stopping, waiting for the current run")
	<-c.Stop().Done()
	wg.Wait()

	if err := ctx.Err(); !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func (s *Scheduler) job(ctx context.Context, l cron.Logger) cron.Job {
	return cron.NewChain(cron.Recover(l), cron.SkipIfStillRunning(l)).Then(cron.FuncJob(func() {
		if ctx.Err() != nil {
			return
		}
		s.run(ctx)
		s.logger.Debug("run finished")
	}))
}

// cronLogger routes cron's logging into slog
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	if msg == "skip" {
		l.logger.Info("previous run still in progress, skipping trigger")
		return
	}
	l.logger.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error("cron: "+msg, append(keysAndValues, "error", err)...)
}
