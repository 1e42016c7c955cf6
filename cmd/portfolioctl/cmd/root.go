package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"portfolio-api/internal/app"
	"portfolio-api/internal/auth"
	"portfolio-api/internal/config"
)

// accountService opens the account store named by the environment. Tests
// replace it with an in-memory service.
var accountService = openAccountService

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "portfolioctl",
		Short: "Operator tooling for the portfolio API",
		Long: `Administrative commands for the portfolio API: provision the admin
account, unlock a locked account, hash passwords and smoke-test a
running server's session flow.`,
		SilenceUsage: true,
	}

	root.AddCommand(
		newHashPasswordCmd(),
		newCreateAdminCmd(),
		newUnlockCmd(),
		newUnlockRemoteCmd(),
		newSessionCheckCmd(),
	)
	return root
}

func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func openAccountService(ctx context.Context) (*auth.Service, func() error, error) {
	cfg, err := config.Load(true)
	if err != nil {
		return nil, nil, err
	}

	database, err := app.OpenDatabase(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}

	service, err := app.NewAuthService(cfg, auth.NewRepository(database), nil)
	if err != nil {
		_ = database.Close()
		return nil, nil, fmt.Errorf("init auth service: %w", err)
	}
	return service, database.Close, nil
}

func envOr(name, fallback string) string {
	if value := os.Getenv(name); value != "" {
		return value
	}
	return fallback
}
