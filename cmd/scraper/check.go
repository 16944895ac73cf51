package main

import (
	"dmvScrapper/pkg/scraper"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func newCheckCmd(flags *rootFlags) *cobra.Command {
	var (
		send   bool
		record bool
	)
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Run one check now and print what every location offers",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(flags, true)
			if err != nil {
				return err
			}
			defer a.close()

			r, err := a.runner(cmd.Context(), runnerOptions{notify: send && !flags.noNotify, record: record})
			if err != nil {
				return err
			}
			res, err := r.RunOnce(cmd.Context())
			if err != nil {
				return err
			}

			reported := make(map[string]bool, len(res.Appointments))
			for _, o := range res.Appointments {
				reported[o.Location()] = true
			}
			allow := a.cfg.AllowList()

			t := table.NewWriter()
			t.SetOutputMirror(cmd.OutOrStdout())
			t.AppendHeader(table.Row{"Location", "First available", "Monitored", "Reported"})
			for _, o := range res.Raw {
				date := "-"
				if d, ok := o.Date(); ok {
					date = d.Format(scraper.DateLayout)
				}
				t.AppendRow(table.Row{o.Location(), date, yesNo(allow.Contains(o.Location())), yesNo(reported[o.Location()])})
			}
			t.AppendFooter(table.Row{"", "", "", len(res.Appointments)})
			t.SetStyle(table.StyleRounded)
			t.Render()

			return res.NotifyErr
		},
	}
	cmd.Flags().BoolVar(&send, "notify", false, "send the result through the configured provider")
	cmd.Flags().BoolVar(&record, "record", false, "store the run in the history database")
	return cmd
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return ""
}
