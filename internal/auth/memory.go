package auth

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryStore is a Store for tests and single-process use. Updates are
// serialized by a single mutex.
type MemoryStore struct {
	mu       sync.Mutex
	accounts map[string]Account
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{accounts: make(map[string]Account)}
}

func (s *MemoryStore) FindByUsername(_ context.Context, username string) (Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, account := range s.accounts {
		if account.Username == username {
			return cloneAccount(account), nil
		}
	}
	return Account{}, ErrAccountNotFound
}

func (s *MemoryStore) FindByID(_ context.Context, id string) (Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	account, ok := s.accounts[id]
	if !ok {
		return Account{}, ErrAccountNotFound
	}
	return cloneAccount(account), nil
}

func (s *MemoryStore) Create(_ context.Context, account Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.accounts[account.ID]; ok {
		return ErrAccountExists
	}
	for _, existing := range s.accounts {
		if existing.Username == account.Username {
			return ErrAccountExists
		}
	}
	s.accounts[account.ID] = cloneAccount(account)
	return nil
}

func (s *MemoryStore) Update(_ context.Context, id string, fn func(*Account) error) (Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.accounts[id]
	if !ok {
		return Account{}, ErrAccountNotFound
	}

	next := cloneAccount(current)
	if err := fn(&next); err != nil {
		return Account{}, err
	}
	next.ID = current.ID
	next.Username = current.Username
	next.UpdatedAt = time.Now().UTC()
	s.accounts[id] = next

	return cloneAccount(next), nil
}

func (s *MemoryStore) ClearExpiredRefreshTokens(_ context.Context, now time.Time, limit int) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := make([]string, 0)
	for id, account := range s.accounts {
		if account.RefreshToken != "" && account.RefreshExpiresAt != nil && account.RefreshExpiresAt.Before(now) {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	if limit > 0 && len(ids) > limit {
		ids = ids[:limit]
	}

	for _, id := range ids {
		account := s.accounts[id]
		account.RefreshToken = ""
		account.RefreshExpiresAt = nil
		s.accounts[id] = account
	}
	return int64(len(ids)), nil
}

func cloneAccount(a Account) Account {
	a.RefreshExpiresAt = cloneTime(a.RefreshExpiresAt)
	a.LockUntil = cloneTime(a.LockUntil)
	a.LastLogin = cloneTime(a.LastLogin)
	return a
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
