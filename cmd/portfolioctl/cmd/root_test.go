package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"portfolio-api/internal/apierror"
	"portfolio-api/internal/auth"
)

func useMemoryAccounts(t *testing.T) *auth.MemoryStore {
	t.Helper()

	store := auth.NewMemoryStore()
	tokens, err := auth.NewTokenIssuer(auth.TokenConfig{AccessSecret: "test-secret"})
	require.NoError(t, err)
	service := auth.NewService(store, auth.NewPasswordHasher(bcrypt.MinCost), tokens)

	previous := accountService
	accountService = func(context.Context) (*auth.Service, func() error, error) {
		return service, func() error { return nil }, nil
	}
	t.Cleanup(func() { accountService = previous })
	return store
}

func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()

	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestHashPassword(t *testing.T) {
	out, err := run(t, "", "hash-password", "--cost", "4", "s3cret")
	require.NoError(t, err)
	hash := strings.TrimSpace(out)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(hash), []byte("s3cret")))

	out, err = run(t, "from-stdin\n", "hash-password", "--cost", "4")
	require.NoError(t, err)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(strings.TrimSpace(out)), []byte("from-stdin")))

	_, err = run(t, "", "hash-password")
	assert.Error(t, err)
}

func TestCreateAdmin_OnlyCreatesOnce(t *testing.T) {
	store := useMemoryAccounts(t)

	out, err := run(t, "", "create-admin", "--username", "admin", "--password", "admin123")
	require.NoError(t, err)
	assert.Contains(t, out, "Admin account created: admin")

	out, err = run(t, "", "create-admin", "--username", "admin", "--password", "other")
	require.NoError(t, err)
	assert.Contains(t, out, "Account already exists: admin")

	account, err := store.FindByUsername(context.Background(), "admin")
	require.NoError(t, err)
	assert.True(t, account.IsAdmin)
	assert.True(t, auth.NewPasswordHasher(bcrypt.MinCost).Verify("admin123", account.PasswordHash))
}

func TestUnlock(t *testing.T) {
	store := useMemoryAccounts(t)
	ctx := context.Background()

	_, err := run(t, "", "create-admin", "--username", "admin", "--password", "admin123")
	require.NoError(t, err)

	account, err := store.FindByUsername(ctx, "admin")
	require.NoError(t, err)
	until := time.Now().Add(time.Hour)
	_, err = store.Update(ctx, account.ID, func(a *auth.Account) error {
		a.LoginAttempts = 5
		a.Locked = true
		a.LockUntil = &until
		return nil
	})
	require.NoError(t, err)

	out, err := run(t, "", "unlock", "admin")
	require.NoError(t, err)
	assert.Contains(t, out, "Account unlocked: admin")

	account, err = store.FindByUsername(ctx, "admin")
	require.NoError(t, err)
	assert.False(t, account.Locked)
	assert.Zero(t, account.LoginAttempts)
	assert.Nil(t, account.LockUntil)

	_, err = run(t, "", "unlock", "ghost")
	assert.Error(t, err)
}

func TestUnlockRemote(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		if r.URL.Path != "/auth/unlock-account" || body["adminSecret"] != "admin-secret" {
			apierror.Write(w, http.StatusForbidden, apierror.CodeAdminUnauthorized, "Not authorized to unlock accounts")
			return
		}
		apierror.WriteJSON(w, http.StatusOK, map[string]string{"message": "Account unlocked", "username": body["username"]})
	}))
	t.Cleanup(server.Close)

	out, err := run(t, "", "unlock-remote", "admin", "--url", server.URL, "--secret", "admin-secret")
	require.NoError(t, err)
	assert.Contains(t, out, "Account unlocked: admin")

	_, err = run(t, "", "unlock-remote", "admin", "--url", server.URL, "--secret", "wrong")
	require.Error(t, err)
	assert.Contains(t, err.Error(), string(apierror.CodeAdminUnauthorized))
}
