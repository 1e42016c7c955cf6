package app

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"portfolio-api/internal/apierror"
	"portfolio-api/internal/auth"
	"portfolio-api/internal/config"
	"portfolio-api/internal/maintenance"
	"portfolio-api/internal/observability"
	"portfolio-api/internal/portfolio"
	"portfolio-api/internal/sessionclient"
)

type pingFunc func(ctx context.Context) error

func (f pingFunc) PingContext(ctx context.Context) error { return f(ctx) }

func testConfig() config.Config {
	return config.Config{
		AppEnv:               "test",
		JWTSecret:            "access-secret",
		JWTRefreshSecret:     "refresh-secret",
		AdminSecret:          "admin-secret",
		AdminUsername:        "admin",
		AdminPassword:        "admin123",
		CronSecret:           "cron-secret",
		AllowedOrigins:       []string{"http://localhost:5173"},
		LoginMaxAttempts:     5,
		LoginLockDuration:    30 * time.Minute,
		AccessTokenTTL:       15 * time.Minute,
		RefreshTokenTTL:      7 * 24 * time.Hour,
		LoginRateLimitMax:    100,
		LoginRateLimitWindow: time.Minute,
		MaintenanceBatchSize: 100,
	}
}

func newTestServer(t *testing.T, health Pinger) *httptest.Server {
	t.Helper()

	cfg := testConfig()
	logger := observability.Discard()
	accounts := auth.NewMemoryStore()
	denylist := auth.NewMemoryDenylist()

	service, err := NewAuthService(cfg, accounts, denylist)
	require.NoError(t, err)
	created, err := service.BootstrapAdmin(context.Background(), cfg.AdminUsername, cfg.AdminPassword)
	require.NoError(t, err)
	require.True(t, created)

	handler := NewRouter(Deps{
		Logger:         logger,
		Auth:           auth.NewHandler(service, logger, cfg.Production()),
		Gate:           auth.NewGate(service.Tokens(), denylist, logger),
		LoginLimiter:   auth.NewLoginRateLimiter(cfg.LoginRateLimitMax, cfg.LoginRateLimitWindow),
		Documents:      portfolio.NewMemoryStore(),
		Cleanup:        maintenance.NewCleanupHandler(accounts, denylist, logger, cfg.CronSecret, cfg.MaintenanceBatchSize),
		Health:         health,
		AllowedOrigins: cfg.AllowedOrigins,
	})

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return server
}

func TestRouter_SessionLifecycle(t *testing.T) {
	server := newTestServer(t, nil)
	ctx := context.Background()

	client, err := sessionclient.New(sessionclient.Options{BaseURL: server.URL})
	require.NoError(t, err)

	err = client.Do(ctx, http.MethodGet, "/projects", nil, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, sessionclient.ErrSessionExpired))

	user, err := client.Login(ctx, "admin", "admin123")
	require.NoError(t, err)
	assert.True(t, user.IsAdmin)

	state, err := client.Hydrate(ctx)
	require.NoError(t, err)
	assert.True(t, state.Authenticated)

	project := map[string]any{
		"title":        "Portfolio",
		"description":  "Personal site",
		"image":        "https://cdn.example.com/p.png",
		"technologies": []string{"Go"},
		"demoLink":     "https://example.com",
		"githubLink":   "https://github.com/example/site",
	}
	var createdProject map[string]any
	require.NoError(t, client.Do(ctx, http.MethodPost, "/projects", project, &createdProject))
	assert.NotEmpty(t, createdProject["id"])

	var projects []map[string]any
	require.NoError(t, client.Do(ctx, http.MethodGet, "/projects", nil, &projects))
	require.Len(t, projects, 1)
	assert.Equal(t, "Portfolio", projects[0]["title"])

	require.NoError(t, client.Logout(ctx))
	assert.False(t, client.State().Authenticated)

	state, err = client.Hydrate(ctx)
	require.NoError(t, err)
	assert.False(t, state.Authenticated)
}

func TestRouter_PortfolioRequiresToken(t *testing.T) {
	server := newTestServer(t, nil)

	resp, err := http.Get(server.URL + "/skills")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestRouter_UnlockThroughClient(t *testing.T) {
	server := newTestServer(t, nil)
	client, err := sessionclient.New(sessionclient.Options{BaseURL: server.URL})
	require.NoError(t, err)

	err = client.UnlockAccount(context.Background(), "admin", "wrong")
	assert.True(t, sessionclient.HasCode(err, apierror.CodeAdminUnauthorized))

	assert.NoError(t, client.UnlockAccount(context.Background(), "admin", "admin-secret"))
}

func TestRouter_Health(t *testing.T) {
	up := newTestServer(t, pingFunc(func(context.Context) error { return nil }))
	resp, err := http.Get(up.URL + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	down := newTestServer(t, pingFunc(func(context.Context) error { return errors.New("connection refused") }))
	resp, err = http.Get(down.URL + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestRouter_CORSAllowsCredentialedOrigin(t *testing.T) {
	server := newTestServer(t, nil)

	req, err := http.NewRequest(http.MethodOptions, server.URL+"/auth/login", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, "http://localhost:5173", resp.Header.Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", resp.Header.Get("Access-Control-Allow-Credentials"))
}

func TestRouter_MaintenanceRequiresCronSecret(t *testing.T) {
	server := newTestServer(t, nil)

	resp, err := http.Post(server.URL+"/internal/maintenance/cleanup", "application/json", nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	req, err := http.NewRequest(http.MethodGet, server.URL+"/internal/maintenance/cleanup", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer cron-secret")
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestRouter_UnknownRoute(t *testing.T) {
	server := newTestServer(t, nil)

	resp, err := http.Get(server.URL + "/nope")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
