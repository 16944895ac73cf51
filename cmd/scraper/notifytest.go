package main

import (
	"context"
	"fmt"
	"time"

	"dmvScrapper/pkg/line"
	"dmvScrapper/pkg/notify"
	"dmvScrapper/pkg/scraper"

	"github.com/spf13/cobra"
)

// sampleAppointments is what notify-test sends
func sampleAppointments(now time.Time) []scraper.Observation {
	return []scraper.Observation{
		scraper.NewObservation("Sample Location A", now.AddDate(0, 0, 3)),
		scraper.NewObservation("Sample Location B", now.AddDate(0, 0, 10)),
	}
}

func newNotifyTestCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "notify-test",
		Short: "Send sample appointments through the configured provider",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(flags, true)
			if err != nil {
				return err
			}
			defer a.close()

			n, err := notify.FromConfig(a.cfg, flags.noNotify, a.logger)
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), a.cfg.NotifyTimeout())
			defer cancel()

			if lc, ok := n.(*line.Client); ok {
				if err := lc.TestNotification(ctx); err != nil {
					return fmt.Errorf("notification test failed: %w", err)
				}
			}
			if err := n.Notify(ctx, sampleAppointments(time.Now())); err != nil {
				return fmt.Errorf("notification test failed: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "test notification sent via %s\n", a.cfg.Provider())
			return nil
		},
	}
}
