package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func newCreateAdminCmd() *cobra.Command {
	var username, password string

	c := &cobra.Command{
		Use:   "create-admin",
		Short: "Create the admin account if it does not exist",
		Long: `Creates an admin account with the given credentials. An existing
account with the same username is left untouched. Credentials default
to ADMIN_USERNAME and ADMIN_PASSWORD.`,
		Args: cobra.NoArgs,
		RunE: func(c *cobra.Command, _ []string) error {
			if username == "" {
				username = os.Getenv("ADMIN_USERNAME")
			}
			if password == "" {
				password = os.Getenv("ADMIN_PASSWORD")
			}
			if username == "" || password == "" {
				return fmt.Errorf("username and password are required")
			}

			service, closeStore, err := accountService(c.Context())
			if err != nil {
				return err
			}
			defer closeStore()

			created, err := service.BootstrapAdmin(c.Context(), username, password)
			if err != nil {
				return err
			}
			if created {
				fmt.Fprintf(c.OutOrStdout(), "Admin account created: %s\n", username)
			} else {
				fmt.Fprintf(c.OutOrStdout(), "Account already exists: %s\n", username)
			}
			return nil
		},
	}

	c.Flags().StringVar(&username, "username", "", "admin username (default $ADMIN_USERNAME)")
	c.Flags().StringVar(&password, "password", "", "admin password (default $ADMIN_PASSWORD)")
	return c
}
