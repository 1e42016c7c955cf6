package auth

import (
	"context"
	"errors"
	"time"
)

var (
	ErrAccountNotFound = errors.New("account not found")
	ErrAccountExists   = errors.New("account already exists")
)

// Store persists accounts. Update is the only mutation path for existing
// accounts: fn runs against the current row while the row is held exclusively,
// and its changes are written only when it returns nil.
type Store interface {
	FindByUsername(ctx context.Context, username string) (Account, error)
	FindByID(ctx context.Context, id string) (Account, error)
	Create(ctx context.Context, account Account) error
	Update(ctx context.Context, id string, fn func(*Account) error) (Account, error)
	ClearExpiredRefreshTokens(ctx context.Context, now time.Time, limit int) (int64, error)
}
