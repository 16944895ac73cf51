package main

import (
	"dmvScrapper/internal/runner"

	"github.com/spf13/cobra"
)

func newRunCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Check on the configured schedule until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(flags, true)
			if err != nil {
				return err
			}
			defer a.close()

			r, err := a.runner(cmd.Context(), runnerOptions{notify: !flags.noNotify, record: true})
			if err != nil {
				return err
			}

			s, err := runner.NewScheduler(a.cfg.Schedule.Cron, a.cfg.RunOnStart(), runner.RunnerJob(r), a.logger)
			if err != nil {
				return err
			}
			a.logger.Info("scraper started - press Ctrl+C to stop")
			return s.Run(cmd.Context())
		},
	}
}
