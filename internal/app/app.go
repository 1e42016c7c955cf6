package app

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"

	"github.com/redis/go-redis/v9"

	"portfolio-api/internal/auth"
	"portfolio-api/internal/config"
	"portfolio-api/internal/db"
	"portfolio-api/internal/maintenance"
	"portfolio-api/internal/observability"
	"portfolio-api/internal/portfolio"
)

type Options struct {
	LoadDotEnv bool
	// RunMigrations overrides RUN_MIGRATIONS_ON_STARTUP when set.
	RunMigrations *bool
}

type Runtime struct {
	Config  config.Config
	Logger  *observability.Logger
	Handler http.Handler
	Close   func() error
}

func Build(ctx context.Context, options Options) (*Runtime, error) {
	cfg, err := config.Load(options.LoadDotEnv)
	if err != nil {
		return nil, err
	}

	logger := observability.NewLogger(cfg.LogDebug)

	if err := observability.InitSentry(cfg.SentryDSN, cfg.AppEnv); err != nil {
		logger.Error("init_sentry_failed", map[string]any{"error": err.Error()})
	}

	database, err := OpenDatabase(ctx, cfg)
	if err != nil {
		return nil, err
	}

	closers := []func() error{database.Close}
	fail := func(err error) (*Runtime, error) {
		closeAll(closers)
		return nil, err
	}

	runMigrations := cfg.RunMigrations
	if options.RunMigrations != nil {
		runMigrations = *options.RunMigrations
	}
	if runMigrations {
		applied, err := db.RunMigrations(ctx, database)
		if err != nil {
			return fail(fmt.Errorf("run migrations: %w", err))
		}
		if len(applied) > 0 {
			logger.Info("migrations_applied", map[string]any{"versions": applied})
		}
	}

	denylist, closeDenylist, err := openDenylist(ctx, cfg.RedisURL, logger)
	if err != nil {
		return fail(err)
	}
	if closeDenylist != nil {
		closers = append(closers, closeDenylist)
	}

	accounts := auth.NewRepository(database)
	service, err := NewAuthService(cfg, accounts, denylist)
	if err != nil {
		return fail(err)
	}

	created, err := service.BootstrapAdmin(ctx, cfg.AdminUsername, cfg.AdminPassword)
	if err != nil {
		return fail(fmt.Errorf("bootstrap admin: %w", err))
	}
	if created {
		logger.Info("admin_bootstrapped", map[string]any{"username": cfg.AdminUsername})
	}

	handler := NewRouter(Deps{
		Logger:         logger,
		Auth:           auth.NewHandler(service, logger, cfg.Production()),
		Gate:           auth.NewGate(service.Tokens(), denylist, logger),
		LoginLimiter:   auth.NewLoginRateLimiter(cfg.LoginRateLimitMax, cfg.LoginRateLimitWindow),
		Documents:      portfolio.NewRepository(database),
		Cleanup:        maintenance.NewCleanupHandler(accounts, denylist, logger, cfg.CronSecret, cfg.MaintenanceBatchSize),
		Health:         database,
		AllowedOrigins: cfg.AllowedOrigins,
	})

	return &Runtime{
		Config:  cfg,
		Logger:  logger,
		Handler: handler,
		Close: func() error {
			observability.FlushSentry()
			return closeAll(closers)
		},
	}, nil
}

// NewAuthService wires the session service from configuration. It is shared
// by the server and the admin CLI.
func NewAuthService(cfg config.Config, store auth.Store, denylist auth.Denylist) (*auth.Service, error) {
	tokens, err := auth.NewTokenIssuer(auth.TokenConfig{
		AccessSecret:  cfg.JWTSecret,
		RefreshSecret: cfg.RefreshSecret(),
		AccessTTL:     cfg.AccessTokenTTL,
		RefreshTTL:    cfg.RefreshTokenTTL,
	})
	if err != nil {
		return nil, fmt.Errorf("init token issuer: %w", err)
	}

	service := auth.NewService(store, auth.NewPasswordHasher(auth.DefaultPasswordCost), tokens).
		WithSecurityConfig(cfg.LoginMaxAttempts, cfg.LoginLockDuration).
		WithAdminSecret(cfg.AdminSecret)
	if denylist != nil {
		service.WithDenylist(denylist)
	}
	return service, nil
}

// OpenDatabase opens Postgres with the configured pool, for callers that need
// the account store without the HTTP surface.
func OpenDatabase(ctx context.Context, cfg config.Config) (*sql.DB, error) {
	return db.Open(ctx, cfg.DatabaseURL, db.PoolConfig{
		MaxOpenConns:    cfg.DBMaxOpenConns,
		MaxIdleConns:    cfg.DBMaxIdleConns,
		ConnMaxLifetime: cfg.DBConnMaxLifetime,
		ConnMaxIdleTime: cfg.DBConnMaxIdleTime,
	})
}

// openDenylist uses Redis when configured. The in-memory fallback only sees
// logouts handled by this process.
func openDenylist(ctx context.Context, redisURL string, logger *observability.Logger) (auth.Denylist, func() error, error) {
	if redisURL == "" {
		logger.Warn("denylist_in_memory", map[string]any{
			"detail": "token revocation is local to this instance; set REDIS_URL when running more than one",
		})
		return auth.NewMemoryDenylist(), nil, nil
	}

	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, nil, fmt.Errorf("parse REDIS_URL: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("ping redis: %w", err)
	}
	return auth.NewRedisDenylist(client, "portfolio:revoked:"), client.Close, nil
}

func closeAll(closers []func() error) error {
	var first error
	for i := len(closers) - 1; i >= 0; i-- {
		if err := closers[i](); err != nil && first == nil {
			first = err
		}
	}
	return first
}
