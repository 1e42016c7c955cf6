package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time          { return c.now }
func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func newTestIssuer(t *testing.T, clock *fakeClock) *TokenIssuer {
	t.Helper()
	issuer, err := NewTokenIssuer(TokenConfig{AccessSecret: "access-secret", RefreshSecret: "refresh-secret"})
	require.NoError(t, err)
	return issuer.WithClock(clock.Now)
}

func TestTokenIssuer_IssueAndValidate(t *testing.T) {
	clock := &fakeClock{now: testNow}
	issuer := newTestIssuer(t, clock)
	account := Account{ID: "acct-1", Username: "admin", IsAdmin: true}

	pair, err := issuer.IssuePair(account)
	require.NoError(t, err)
	assert.Equal(t, testNow.Add(7*24*time.Hour), pair.RefreshExpiresAt)

	access, err := issuer.ValidateAccess(pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "acct-1", access.UserID)
	assert.Equal(t, "admin", access.Username)
	assert.True(t, access.IsAdmin)
	assert.NotEmpty(t, access.ID)
	assert.True(t, testNow.Add(15*time.Minute).Equal(access.ExpiresAt.Time), "access token expiry")

	refresh, err := issuer.ValidateRefresh(pair.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, "acct-1", refresh.UserID)
}

func TestTokenIssuer_PairsAreUnique(t *testing.T) {
	clock := &fakeClock{now: testNow}
	issuer := newTestIssuer(t, clock)
	account := Account{ID: "acct-1", Username: "admin"}

	first, err := issuer.IssuePair(account)
	require.NoError(t, err)
	second, err := issuer.IssuePair(account)
	require.NoError(t, err)

	assert.NotEqual(t, first.AccessToken, second.AccessToken)
	assert.NotEqual(t, first.RefreshToken, second.RefreshToken)
}

func TestTokenIssuer_Expiry(t *testing.T) {
	clock := &fakeClock{now: testNow}
	issuer := newTestIssuer(t, clock)

	pair, err := issuer.IssuePair(Account{ID: "acct-1", Username: "admin"})
	require.NoError(t, err)

	clock.Advance(15 * time.Minute)
	_, err = issuer.ValidateAccess(pair.AccessToken)
	assert.ErrorIs(t, err, ErrTokenExpired)

	_, err = issuer.ValidateRefresh(pair.RefreshToken)
	assert.NoError(t, err)

	clock.Advance(7 * 24 * time.Hour)
	_, err = issuer.ValidateRefresh(pair.RefreshToken)
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestTokenIssuer_RejectsWrongKindAndSecret(t *testing.T) {
	clock := &fakeClock{now: testNow}
	issuer := newTestIssuer(t, clock)

	pair, err := issuer.IssuePair(Account{ID: "acct-1", Username: "admin"})
	require.NoError(t, err)

	_, err = issuer.ValidateAccess(pair.RefreshToken)
	assert.ErrorIs(t, err, ErrTokenInvalid)
	_, err = issuer.ValidateRefresh(pair.AccessToken)
	assert.ErrorIs(t, err, ErrTokenInvalid)

	other, err := NewTokenIssuer(TokenConfig{AccessSecret: "other-secret"})
	require.NoError(t, err)
	_, err = other.WithClock(clock.Now).ValidateAccess(pair.AccessToken)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestTokenIssuer_SharedSecretStillChecksType(t *testing.T) {
	clock := &fakeClock{now: testNow}
	issuer, err := NewTokenIssuer(TokenConfig{AccessSecret: "only-secret"})
	require.NoError(t, err)
	issuer.WithClock(clock.Now)

	pair, err := issuer.IssuePair(Account{ID: "acct-1", Username: "admin"})
	require.NoError(t, err)

	_, err = issuer.ValidateRefresh(pair.RefreshToken)
	require.NoError(t, err)
	_, err = issuer.ValidateAccess(pair.RefreshToken)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestTokenIssuer_RejectsMalformedAndForeignAlgorithms(t *testing.T) {
	clock := &fakeClock{now: testNow}
	issuer := newTestIssuer(t, clock)

	for _, token := range []string{"", "not.a.jwt", "abc"} {
		_, err := issuer.ValidateAccess(token)
		assert.ErrorIs(t, err, ErrTokenInvalid, "token %q", token)
	}

	unsigned := jwt.NewWithClaims(jwt.SigningMethodNone, AccessClaims{
		UserID:    "acct-1",
		TokenType: tokenTypeAccess,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(testNow.Add(time.Hour)),
		},
	})
	raw, err := unsigned.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = issuer.ValidateAccess(raw)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestTokenIssuer_RequiresSecret(t *testing.T) {
	_, err := NewTokenIssuer(TokenConfig{})
	assert.Error(t, err)
}
