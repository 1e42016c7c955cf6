package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newUnlockCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "unlock <username>",
		Short: "Reset failed attempts and lockout for an account",
		Long: `Unlocks an account directly in the database. Use unlock-remote to go
through a running server instead.`,
		Args: cobra.ExactArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			service, closeStore, err := accountService(c.Context())
			if err != nil {
				return err
			}
			defer closeStore()

			account, err := service.UnlockAccount(c.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(c.OutOrStdout(), "Account unlocked: %s\n", account.Username)
			return nil
		},
	}
}
