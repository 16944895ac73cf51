package main

import (
	"bufio"
	"fmt"
	"strings"

	"dmvScrapper/internal/secrets"

	"github.com/spf13/cobra"
)

func newSecretCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "secret",
		Short: "Manage API keys and passwords in the OS keychain",
	}

	set := &cobra.Command{
		Use:   "set <account>",
		Short: "Store a secret read from stdin under account (email.keyring_account)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprint(cmd.ErrOrStderr(), "secret: ")
			value, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
			if err != nil && value == "" {
				return fmt.Errorf("read secret: %w", err)
			}
			if err := secrets.Set(args[0], strings.TrimSpace(value)); err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "stored %s in keychain service %s\n", args[0], secrets.KeyringService)
			return nil
		},
	}

	del := &cobra.Command{
		Use:   "delete <account>",
		Short: "Remove a stored secret",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return secrets.Delete(args[0])
		},
	}

	cmd.AddCommand(set, del)
	return cmd
}
