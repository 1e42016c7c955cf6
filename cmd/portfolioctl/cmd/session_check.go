package cmd

import (
	"fmt"
	"net/http"
	"os"

	"github.com/spf13/cobra"

	"portfolio-api/internal/sessionclient"
)

func newSessionCheckCmd() *cobra.Command {
	var baseURL, username, password string

	c := &cobra.Command{
		Use:   "session-check",
		Short: "Log in, verify and log out against a running server",
		Long: `Runs the browser session flow against a running server: login,
verify, an authenticated request, logout, and a final verify that must
report the session as signed out.`,
		Args: cobra.NoArgs,
		RunE: func(c *cobra.Command, _ []string) error {
			if username == "" {
				username = os.Getenv("ADMIN_USERNAME")
			}
			if password == "" {
				password = os.Getenv("ADMIN_PASSWORD")
			}

			client, err := sessionclient.New(sessionclient.Options{BaseURL: baseURL})
			if err != nil {
				return err
			}
			ctx := c.Context()
			out := c.OutOrStdout()

			user, err := client.Login(ctx, username, password)
			if err != nil {
				return fmt.Errorf("login: %w", err)
			}
			fmt.Fprintf(out, "login     ok  user=%s admin=%t\n", user.Username, user.IsAdmin)

			state, err := client.Hydrate(ctx)
			if err != nil {
				return fmt.Errorf("verify: %w", err)
			}
			if !state.Authenticated {
				return fmt.Errorf("verify: session not authenticated after login")
			}
			fmt.Fprintln(out, "verify    ok")

			var projects []map[string]any
			if err := client.Do(ctx, http.MethodGet, "/projects", nil, &projects); err != nil {
				return fmt.Errorf("list projects: %w", err)
			}
			fmt.Fprintf(out, "projects  ok  count=%d\n", len(projects))

			if err := client.Logout(ctx); err != nil {
				return fmt.Errorf("logout: %w", err)
			}
			fmt.Fprintln(out, "logout    ok")

			state, err = client.Hydrate(ctx)
			if err != nil {
				return fmt.Errorf("verify after logout: %w", err)
			}
			if state.Authenticated {
				return fmt.Errorf("verify after logout: session still authenticated")
			}
			fmt.Fprintln(out, "signed out ok")
			return nil
		},
	}

	c.Flags().StringVar(&baseURL, "url", envOr("PORTFOLIO_API_URL", defaultAPIURL), "API base URL")
	c.Flags().StringVar(&username, "username", "", "username (default $ADMIN_USERNAME)")
	c.Flags().StringVar(&password, "password", "", "password (default $ADMIN_PASSWORD)")
	return c
}
