package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"portfolio-api/internal/sessionclient"
)

const defaultAPIURL = "http://localhost:8080"

func newUnlockRemoteCmd() *cobra.Command {
	var baseURL, secret string

	c := &cobra.Command{
		Use:   "unlock-remote <username>",
		Short: "Unlock an account through a running server",
		Args:  cobra.ExactArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			if secret == "" {
				secret = os.Getenv("ADMIN_SECRET")
			}

			client, err := sessionclient.New(sessionclient.Options{BaseURL: baseURL})
			if err != nil {
				return err
			}
			if err := client.UnlockAccount(c.Context(), args[0], secret); err != nil {
				return fmt.Errorf("unlock %s: %w", args[0], err)
			}
			fmt.Fprintf(c.OutOrStdout(), "Account unlocked: %s\n", args[0])
			return nil
		},
	}

	c.Flags().StringVar(&baseURL, "url", envOr("PORTFOLIO_API_URL", defaultAPIURL), "API base URL")
	c.Flags().StringVar(&secret, "secret", "", "admin secret (default $ADMIN_SECRET)")
	return c
}
