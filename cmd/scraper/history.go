package main

import (
	"fmt"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func newHistoryCmd(flags *rootFlags) *cobra.Command {
	var (
		limit int
		runID string
		prune time.Duration
	)
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show past runs, or the locations seen by one run",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(flags, false)
			if err != nil {
				return err
			}
			defer a.close()

			db, err := a.openStore(cmd.Context())
			if err != nil {
				return err
			}

			if prune > 0 {
				n, err := db.Prune(cmd.Context(), time.Now().Add(-prune))
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "pruned %d run(s)\n", n)
				return nil
			}

			t := table.NewWriter()
			t.SetOutputMirror(cmd.OutOrStdout())
			t.SetStyle(table.StyleRounded)

			if runID != "" {
				run, err := db.GetRun(cmd.Context(), runID)
				if err != nil {
					return err
				}
				obs, err := db.Observations(cmd.Context(), run.ID)
				if err != nil {
					return err
				}
				t.SetTitle(fmt.Sprintf("run %s (%s)", run.ID, run.StartedAt.Local().Format(time.DateTime)))
				t.AppendHeader(table.Row{"#", "Location", "First available", "Reported"})
				for i, o := range obs {
					date := o.Date
					if date == "" {
						date = "-"
					}
					t.AppendRow(table.Row{i + 1, o.Location, date, yesNo(o.Reported)})
				}
				t.Render()
				return nil
			}

			runs, err := db.ListRuns(cmd.Context(), limit)
			if err != nil {
				return err
			}
			t.AppendHeader(table.Row{"Run", "Started", "Duration", "Status", "Visited", "Reported", "Error"})
			for _, r := range runs {
				errText := r.Error
				if r.Stage != "" {
					errText = r.Stage + ": " + errText
				}
				if r.NotifyError != "" {
					errText = "notify: " + r.NotifyError
				}
				t.AppendRow(table.Row{
					r.ID, r.StartedAt.Local().Format(time.DateTime), r.Duration().Round(time.Second),
					r.Status, r.Visited, r.Reported, errText,
				})
			}
			t.Render()
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of runs to list")
	cmd.Flags().StringVar(&runID, "run", "", "show the observations of one run")
	cmd.Flags().DurationVar(&prune, "prune", 0, "delete runs older than this (e.g. 720h) instead of listing")
	return cmd
}
