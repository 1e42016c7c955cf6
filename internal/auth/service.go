package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"
	"time"
)

type Service struct {
	store       Store
	hasher      *PasswordHasher
	tokens      *TokenIssuer
	policy      LockoutPolicy
	denylist    Denylist
	adminSecret string
	now         func() time.Time
}

func NewService(store Store, hasher *PasswordHasher, tokens *TokenIssuer) *Service {
	return &Service{
		store:  store,
		hasher: hasher,
		tokens: tokens,
		policy: DefaultLockoutPolicy(),
		now:    time.Now,
	}
}

func (s *Service) WithSecurityConfig(maxAttempts int, lockDuration time.Duration) *Service {
	if maxAttempts > 0 {
		s.policy.MaxAttempts = maxAttempts
	}
	if lockDuration > 0 {
		s.policy.LockDuration = lockDuration
	}
	return s
}

func (s *Service) WithDenylist(denylist Denylist) *Service {
	s.denylist = denylist
	return s
}

// WithAdminSecret sets the shared secret for the unlock endpoint. An empty
// secret disables the endpoint.
func (s *Service) WithAdminSecret(secret string) *Service {
	s.adminSecret = strings.TrimSpace(secret)
	return s
}

func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

type LoginResult struct {
	Tokens TokenPair
	User   PublicUser
}

func (s *Service) Login(ctx context.Context, username, password string) (LoginResult, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return LoginResult{}, invalidCredentials()
	}

	account, err := s.store.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			return LoginResult{}, invalidCredentials()
		}
		return LoginResult{}, err
	}

	now := s.now().UTC()
	var failure *Error
	var pair TokenPair

	updated, err := s.store.Update(ctx, account.ID, func(acc *Account) error {
		if decision := s.policy.Check(acc, now); decision.Blocked {
			return accountLocked(decision.RetryAfterMinutes)
		}

		if !s.hasher.Verify(password, acc.PasswordHash) {
			if s.policy.RecordAttempt(acc, false, now) {
				failure = accountLockedNow(ceilMinutes(s.policy.LockDuration))
			} else {
				failure = invalidCredentials()
			}
			return nil
		}

		s.policy.RecordAttempt(acc, true, now)
		issued, err := s.tokens.IssuePair(*acc)
		if err != nil {
			return err
		}
		pair = issued
		acc.RefreshToken = issued.RefreshToken
		acc.RefreshExpiresAt = &issued.RefreshExpiresAt
		return nil
	})
	if err != nil {
		return LoginResult{}, err
	}
	if failure != nil {
		return LoginResult{}, failure
	}

	return LoginResult{Tokens: pair, User: updated.Public()}, nil
}

// Refresh exchanges the stored refresh token for a new pair. The presented
// token must equal the one stored on the account, so any token superseded by a
// later login or refresh is rejected.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (TokenPair, error) {
	refreshToken = strings.TrimSpace(refreshToken)
	if refreshToken == "" {
		return TokenPair{}, refreshTokenMissing()
	}

	claims, err := s.tokens.ValidateRefresh(refreshToken)
	if err != nil {
		return TokenPair{}, refreshTokenRejected(err)
	}

	var pair TokenPair
	_, err = s.store.Update(ctx, claims.UserID, func(acc *Account) error {
		if acc.RefreshToken == "" || subtle.ConstantTimeCompare([]byte(acc.RefreshToken), []byte(refreshToken)) != 1 {
			return refreshTokenMismatch(errors.New("presented token does not match stored token"))
		}

		issued, err := s.tokens.IssuePair(*acc)
		if err != nil {
			return err
		}
		pair = issued
		acc.RefreshToken = issued.RefreshToken
		acc.RefreshExpiresAt = &issued.RefreshExpiresAt
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			return TokenPair{}, refreshTokenMismatch(err)
		}
		return TokenPair{}, err
	}

	return pair, nil
}

// Logout clears the stored refresh token of whichever account the presented
// tokens identify and revokes the access token. Every failure here is
// reported for logging only; callers must still end the session.
func (s *Service) Logout(ctx context.Context, accessToken, refreshToken string) error {
	var errs []error

	accountID := ""
	if accessToken != "" {
		claims, err := s.tokens.ValidateAccess(accessToken)
		if err != nil {
			errs = append(errs, fmt.Errorf("decode access token: %w", err))
		} else {
			accountID = claims.UserID
			if s.denylist != nil {
				if err := s.denylist.Revoke(ctx, claims.ID, claims.ExpiresAt.Time); err != nil {
					errs = append(errs, err)
				}
			}
		}
	}

	matchRefresh := false
	if accountID == "" && refreshToken != "" {
		claims, err := s.tokens.ValidateRefresh(refreshToken)
		if err != nil {
			errs = append(errs, fmt.Errorf("decode refresh token: %w", err))
		} else {
			accountID = claims.UserID
			matchRefresh = true
		}
	}

	if accountID == "" {
		return errors.Join(errs...)
	}

	_, err := s.store.Update(ctx, accountID, func(acc *Account) error {
		if matchRefresh && acc.RefreshToken != refreshToken {
			return refreshTokenMismatch(nil)
		}
		acc.RefreshToken = ""
		acc.RefreshExpiresAt = nil
		return nil
	})
	if err != nil && !errors.Is(err, ErrAccountNotFound) {
		errs = append(errs, fmt.Errorf("clear refresh token: %w", err))
	}

	return errors.Join(errs...)
}

// Unlock is the shared-secret gated administrative unlock.
func (s *Service) Unlock(ctx context.Context, username, adminSecret string) (PublicUser, error) {
	if !s.adminSecretMatches(adminSecret) {
		return PublicUser{}, adminUnauthorized()
	}

	account, err := s.UnlockAccount(ctx, username)
	if err != nil {
		return PublicUser{}, err
	}
	return account.Public(), nil
}

// UnlockAccount resets the lockout fields without any secret check. It backs
// both the HTTP unlock endpoint and the operator CLI.
func (s *Service) UnlockAccount(ctx context.Context, username string) (Account, error) {
	account, err := s.store.FindByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			return Account{}, userNotFound()
		}
		return Account{}, err
	}

	return s.store.Update(ctx, account.ID, func(acc *Account) error {
		Unlock(acc)
		return nil
	})
}

// Register creates an admin account, gated by the same shared secret as Unlock.
func (s *Service) Register(ctx context.Context, username, password, adminSecret string) (PublicUser, error) {
	if !s.adminSecretMatches(adminSecret) {
		return PublicUser{}, registrationUnauthorized()
	}
	if strings.TrimSpace(username) == "" || password == "" {
		return PublicUser{}, registrationIncomplete()
	}

	account, err := s.CreateAccount(ctx, username, password, true)
	if err != nil {
		if errors.Is(err, ErrAccountExists) {
			return PublicUser{}, userExists()
		}
		return PublicUser{}, err
	}
	return account.Public(), nil
}

func (s *Service) adminSecretMatches(secret string) bool {
	return s.adminSecret != "" && subtle.ConstantTimeCompare([]byte(s.adminSecret), []byte(secret)) == 1
}

func (s *Service) CreateAccount(ctx context.Context, username, password string, isAdmin bool) (Account, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return Account{}, errors.New("username is required")
	}

	account, err := NewAccount(s.hasher, username, password, isAdmin)
	if err != nil {
		return Account{}, err
	}
	if err := s.store.Create(ctx, account); err != nil {
		return Account{}, err
	}
	return account, nil
}

// BootstrapAdmin provisions the admin account when it does not exist yet. An
// existing account is left untouched.
func (s *Service) BootstrapAdmin(ctx context.Context, username, password string) (bool, error) {
	username = strings.TrimSpace(username)

	if username == "" && password == "" {
		return false, nil
	}
	if username == "" || password == "" {
		return false, fmt.Errorf("ADMIN_USERNAME and ADMIN_PASSWORD are required together")
	}

	if _, err := s.store.FindByUsername(ctx, username); err == nil {
		return false, nil
	} else if !errors.Is(err, ErrAccountNotFound) {
		return false, err
	}

	if _, err := s.CreateAccount(ctx, username, password, true); err != nil {
		if errors.Is(err, ErrAccountExists) {
			return false, nil
		}
		return false, fmt.Errorf("create admin: %w", err)
	}
	return true, nil
}

// Tokens exposes the issuer so the gate and diagnostics share one instance.
func (s *Service) Tokens() *TokenIssuer {
	return s.tokens
}
