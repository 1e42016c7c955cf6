package auth

import (
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Account is the single credential record of an authenticating principal.
// RefreshToken is empty when no session is active.
type Account struct {
	ID               string
	Username         string
	PasswordHash     string
	IsAdmin          bool
	RefreshToken     string
	RefreshExpiresAt *time.Time
	LoginAttempts    int
	Locked           bool
	LockUntil        *time.Time
	LastLogin        *time.Time
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// NewAccount builds an unsaved account with a hashed password.
func NewAccount(hasher *PasswordHasher, username, password string, isAdmin bool) (Account, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return Account{}, err
	}

	now := time.Now().UTC()
	account := Account{
		ID:        id.String(),
		Username:  strings.TrimSpace(username),
		IsAdmin:   isAdmin,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := account.SetPassword(hasher, password); err != nil {
		return Account{}, err
	}

	return account, nil
}

// SetPassword is the only place a plaintext password becomes a hash.
func (a *Account) SetPassword(hasher *PasswordHasher, password string) error {
	hash, err := hasher.Hash(password)
	if err != nil {
		return err
	}
	a.PasswordHash = hash
	return nil
}

func (a Account) Public() PublicUser {
	return PublicUser{ID: a.ID, Username: a.Username, IsAdmin: a.IsAdmin}
}

type PublicUser struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	IsAdmin  bool   `json:"isAdmin"`
}

type TokenPair struct {
	AccessToken      string
	RefreshToken     string
	RefreshExpiresAt time.Time
}

const (
	tokenTypeAccess  = "access"
	tokenTypeRefresh = "refresh"
)

type AccessClaims struct {
	UserID    string `json:"id"`
	Username  string `json:"username"`
	IsAdmin   bool   `json:"isAdmin"`
	TokenType string `json:"typ"`
	jwt.RegisteredClaims
}

func (c AccessClaims) User() PublicUser {
	return PublicUser{ID: c.UserID, Username: c.Username, IsAdmin: c.IsAdmin}
}

type RefreshClaims struct {
	UserID    string `json:"id"`
	TokenType string `json:"typ"`
	jwt.RegisteredClaims
}
