package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config is read once at startup and treated as read-only afterwards.
type Config struct {
	Port        string
	AppEnv      string
	DatabaseURL string
	RedisURL    string
	SentryDSN   string
	LogDebug    bool

	JWTSecret        string
	JWTRefreshSecret string
	AdminSecret      string
	AdminUsername    string
	AdminPassword    string
	CronSecret       string

	AllowedOrigins []string

	LoginMaxAttempts     int
	LoginLockDuration    time.Duration
	AccessTokenTTL       time.Duration
	RefreshTokenTTL      time.Duration
	LoginRateLimitMax    int
	LoginRateLimitWindow time.Duration

	DBMaxOpenConns       int
	DBMaxIdleConns       int
	DBConnMaxLifetime    time.Duration
	DBConnMaxIdleTime    time.Duration
	RunMigrations        bool
	MaintenanceBatchSize int
}

func Load(loadDotEnv bool) (Config, error) {
	if loadDotEnv {
		_ = godotenv.Load()
	}

	databaseURL, err := mustEnv("DATABASE_URL")
	if err != nil {
		return Config{}, err
	}
	jwtSecret, err := mustEnv("JWT_SECRET")
	if err != nil {
		return Config{}, err
	}

	appEnv := envOrDefault("APP_ENV", "development")

	return Config{
		Port:        envOrDefault("PORT", "8080"),
		AppEnv:      appEnv,
		DatabaseURL: databaseURL,
		RedisURL:    strings.TrimSpace(os.Getenv("REDIS_URL")),
		SentryDSN:   strings.TrimSpace(os.Getenv("SENTRY_DSN")),
		LogDebug:    EnvBoolOrDefault("LOG_DEBUG", !strings.EqualFold(appEnv, "production")),

		JWTSecret:        jwtSecret,
		JWTRefreshSecret: strings.TrimSpace(os.Getenv("JWT_REFRESH_SECRET")),
		AdminSecret:      strings.TrimSpace(os.Getenv("ADMIN_SECRET")),
		AdminUsername:    strings.TrimSpace(os.Getenv("ADMIN_USERNAME")),
		AdminPassword:    os.Getenv("ADMIN_PASSWORD"),
		CronSecret:       strings.TrimSpace(os.Getenv("CRON_SECRET")),

		AllowedOrigins: envListOrDefault("CORS_ALLOWED_ORIGINS", []string{"http://localhost:5173", "http://localhost:3000"}),

		LoginMaxAttempts:     EnvIntOrDefault("LOGIN_MAX_ATTEMPTS", 5),
		LoginLockDuration:    envMinutesOrDefault("LOGIN_LOCK_MINUTES", 30),
		AccessTokenTTL:       envMinutesOrDefault("ACCESS_TOKEN_TTL_MINUTES", 15),
		RefreshTokenTTL:      envHoursOrDefault("REFRESH_TOKEN_TTL_HOURS", 168),
		LoginRateLimitMax:    EnvIntOrDefault("LOGIN_RATE_LIMIT_MAX", 10),
		LoginRateLimitWindow: envSecondsOrDefault("LOGIN_RATE_LIMIT_WINDOW_SECONDS", 60),

		DBMaxOpenConns:       EnvIntOrDefault("DB_MAX_OPEN_CONNS", 10),
		DBMaxIdleConns:       EnvIntOrDefault("DB_MAX_IDLE_CONNS", 5),
		DBConnMaxLifetime:    envMinutesOrDefault("DB_CONN_MAX_LIFETIME_MINUTES", 30),
		DBConnMaxIdleTime:    envMinutesOrDefault("DB_CONN_MAX_IDLE_TIME_MINUTES", 10),
		RunMigrations:        EnvBoolOrDefault("RUN_MIGRATIONS_ON_STARTUP", true),
		MaintenanceBatchSize: EnvIntOrDefault("MAINTENANCE_BATCH_SIZE", 500),
	}, nil
}

// Production controls the Secure cookie flag and debug logging.
func (c Config) Production() bool {
	return strings.EqualFold(c.AppEnv, "production")
}

// RefreshSecret falls back to the access-token secret when no dedicated one is set.
func (c Config) RefreshSecret() string {
	if c.JWTRefreshSecret != "" {
		return c.JWTRefreshSecret
	}
	return c.JWTSecret
}

func mustEnv(name string) (string, error) {
	value := strings.TrimSpace(os.Getenv(name))
	if value == "" {
		return "", fmt.Errorf("missing required env: %s", name)
	}
	return value, nil
}

func envOrDefault(name, fallback string) string {
	value := strings.TrimSpace(os.Getenv(name))
	if value == "" {
		return fallback
	}
	return value
}

func envListOrDefault(name string, fallback []string) []string {
	value := strings.TrimSpace(os.Getenv(name))
	if value == "" {
		return fallback
	}

	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}

func EnvIntOrDefault(name string, fallback int) int {
	value := strings.TrimSpace(os.Getenv(name))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil || parsed <= 0 {
		return fallback
	}
	return parsed
}

func envMinutesOrDefault(name string, fallback int) time.Duration {
	return time.Duration(EnvIntOrDefault(name, fallback)) * time.Minute
}

func envHoursOrDefault(name string, fallback int) time.Duration {
	return time.Duration(EnvIntOrDefault(name, fallback)) * time.Hour
}

func envSecondsOrDefault(name string, fallback int) time.Duration {
	return time.Duration(EnvIntOrDefault(name, fallback)) * time.Second
}

func EnvBoolOrDefault(name string, fallback bool) bool {
	value := strings.TrimSpace(strings.ToLower(os.Getenv(name)))
	if value == "" {
		return fallback
	}

	switch value {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}
