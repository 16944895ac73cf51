package main

import (
	"dmvScrapper/pkg/config"

	"github.com/spf13/cobra"
)

var (
	Version   = "dev"
	CommitSHA = "none"
	BuildDate = "unknown"
)

type rootFlags struct {
	configPath string
	logLevel   string
	noNotify   bool
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}
	root := &cobra.Command{
		Use:           "dmv-scraper",
		Short:         "Watches the NC DMV booking site and reports open appointments",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&flags.configPath, "config", "c", config.DefaultPath, "config file; <name>.local.<ext> next to it is merged on top")
	root.PersistentFlags().StringVar(&flags.logLevel, "log-level", "", "override log.level (debug, info, warn, error)")
	root.PersistentFlags().BoolVar(&flags.noNotify, "no-notify", false, "log results instead of sending notifications")

	root.AddCommand(newRunCmd(flags))
	root.AddCommand(newCheckCmd(flags))
	root.AddCommand(newHistoryCmd(flags))
	root.AddCommand(newNotifyTestCmd(flags))
	root.AddCommand(newSecretCmd())
	root.AddCommand(newVersionCmd())
	return root
}
