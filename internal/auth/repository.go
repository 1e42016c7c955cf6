package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
)

const accountColumns = `id, username, password_hash, is_admin, refresh_token, refresh_expires_at,
	login_attempts, locked, lock_until, last_login, created_at, updated_at`

// Repository is the Postgres-backed Store.
type Repository struct {
	db *sql.DB
}

var _ Store = (*Repository)(nil)

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(row rowScanner) (Account, error) {
	var account Account
	var refreshToken sql.NullString
	var refreshExpiresAt, lockUntil, lastLogin sql.NullTime

	err := row.Scan(
		&account.ID,
		&account.Username,
		&account.PasswordHash,
		&account.IsAdmin,
		&refreshToken,
		&refreshExpiresAt,
		&account.LoginAttempts,
		&account.Locked,
		&lockUntil,
		&lastLogin,
		&account.CreatedAt,
		&account.UpdatedAt,
	)
	if err != nil {
		return Account{}, err
	}

	account.RefreshToken = refreshToken.String
	account.RefreshExpiresAt = nullTimePtr(refreshExpiresAt)
	account.LockUntil = nullTimePtr(lockUntil)
	account.LastLogin = nullTimePtr(lastLogin)
	return account, nil
}

func (r *Repository) FindByUsername(ctx context.Context, username string) (Account, error) {
	account, err := scanAccount(r.db.QueryRowContext(ctx, `
		SELECT `+accountColumns+`
		FROM accounts
		WHERE username = $1
	`, username))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Account{}, ErrAccountNotFound
		}
		return Account{}, fmt.Errorf("query account by username: %w", err)
	}
	return account, nil
}

func (r *Repository) FindByID(ctx context.Context, id string) (Account, error) {
	account, err := scanAccount(r.db.QueryRowContext(ctx, `
		SELECT `+accountColumns+`
		FROM accounts
		WHERE id = $1
	`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Account{}, ErrAccountNotFound
		}
		return Account{}, fmt.Errorf("query account by id: %w", err)
	}
	return account, nil
}

func (r *Repository) Create(ctx context.Context, account Account) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO accounts (id, username, password_hash, is_admin, login_attempts, locked, created_at, updated_at)
		VALUES ($1, $2, $3, $4, 0, FALSE, $5, $6)
	`, account.ID, account.Username, account.PasswordHash, account.IsAdmin, account.CreatedAt.UTC(), account.UpdatedAt.UTC())
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrAccountExists
		}
		return fmt.Errorf("insert account: %w", err)
	}
	return nil
}

// Update locks the row with SELECT ... FOR UPDATE so concurrent logins and
// refreshes against one account apply one at a time.
func (r *Repository) Update(ctx context.Context, id string, fn func(*Account) error) (Account, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return Account{}, fmt.Errorf("begin account update tx: %w", err)
	}
	defer tx.Rollback()

	account, err := scanAccount(tx.QueryRowContext(ctx, `
		SELECT `+accountColumns+`
		FROM accounts
		WHERE id = $1
		FOR UPDATE
	`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Account{}, ErrAccountNotFound
		}
		return Account{}, fmt.Errorf("lock account row: %w", err)
	}

	if err := fn(&account); err != nil {
		return Account{}, err
	}
	account.UpdatedAt = time.Now().UTC()

	_, err = tx.ExecContext(ctx, `
		UPDATE accounts
		SET password_hash = $2,
			is_admin = $3,
			refresh_token = $4,
			refresh_expires_at = $5,
			login_attempts = $6,
			locked = $7,
			lock_until = $8,
			last_login = $9,
			updated_at = $10
		WHERE id = $1
	`,
		account.ID,
		account.PasswordHash,
		account.IsAdmin,
		nullString(account.RefreshToken),
		timePtrValue(account.RefreshExpiresAt),
		account.LoginAttempts,
		account.Locked,
		timePtrValue(account.LockUntil),
		timePtrValue(account.LastLogin),
		account.UpdatedAt,
	)
	if err != nil {
		return Account{}, fmt.Errorf("update account: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return Account{}, fmt.Errorf("commit account update tx: %w", err)
	}

	return account, nil
}

func (r *Repository) ClearExpiredRefreshTokens(ctx context.Context, now time.Time, limit int) (int64, error) {
	if limit <= 0 {
		limit = 500
	}

	res, err := r.db.ExecContext(ctx, `
		WITH stale AS (
			SELECT id
			FROM accounts
			WHERE refresh_token IS NOT NULL AND refresh_expires_at < $1
			ORDER BY refresh_expires_at ASC
			LIMIT $2
		)
		UPDATE accounts a
		SET refresh_token = NULL, refresh_expires_at = NULL, updated_at = $1
		FROM stale
		WHERE a.id = stale.id
	`, now.UTC(), limit)
	if err != nil {
		return 0, fmt.Errorf("clear expired refresh tokens: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("expired refresh tokens rows affected: %w", err)
	}
	return affected, nil
}

func nullTimePtr(value sql.NullTime) *time.Time {
	if !value.Valid {
		return nil
	}
	t := value.Time.UTC()
	return &t
}

func timePtrValue(value *time.Time) any {
	if value == nil {
		return nil
	}
	return value.UTC()
}

func nullString(value string) any {
	if value == "" {
		return nil
	}
	return value
}
