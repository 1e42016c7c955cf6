package auth

import (
	"time"
)

const (
	defaultMaxAttempts = 5
	defaultLockWindow  = 30 * time.Minute
)

// LockoutPolicy decides lock transitions. It never touches storage; callers
// run it inside Store.Update so each transition is applied atomically.
type LockoutPolicy struct {
	MaxAttempts  int
	LockDuration time.Duration
}

func DefaultLockoutPolicy() LockoutPolicy {
	return LockoutPolicy{MaxAttempts: defaultMaxAttempts, LockDuration: defaultLockWindow}
}

type LockDecision struct {
	Blocked bool
	// RetryAfterMinutes is zero when the lock has no expiry.
	RetryAfterMinutes int
	Healed            bool
}

// RecordAttempt applies the outcome of one login attempt and reports whether
// this attempt is the one that locked the account.
func (p LockoutPolicy) RecordAttempt(account *Account, success bool, now time.Time) bool {
	if success {
		account.LoginAttempts = 0
		account.Locked = false
		account.LockUntil = nil
		lastLogin := now.UTC()
		account.LastLogin = &lastLogin
		return false
	}

	account.LoginAttempts++
	if account.LoginAttempts >= p.MaxAttempts {
		wasLocked := account.Locked
		until := now.UTC().Add(p.LockDuration)
		account.Locked = true
		account.LockUntil = &until
		return !wasLocked
	}

	return false
}

// Check blocks while the lock is active. An expired lock is cleared in place
// so the caller can persist the healed state before evaluating the attempt.
func (p LockoutPolicy) Check(account *Account, now time.Time) LockDecision {
	if !account.Locked {
		return LockDecision{}
	}

	if account.LockUntil == nil {
		return LockDecision{Blocked: true}
	}

	remaining := account.LockUntil.Sub(now)
	if remaining > 0 {
		return LockDecision{Blocked: true, RetryAfterMinutes: ceilMinutes(remaining)}
	}

	Unlock(account)
	return LockDecision{Healed: true}
}

// Unlock resets every lockout field.
func Unlock(account *Account) {
	account.LoginAttempts = 0
	account.Locked = false
	account.LockUntil = nil
}

func ceilMinutes(d time.Duration) int {
	minutes := int(d / time.Minute)
	if d%time.Minute != 0 {
		minutes++
	}
	return minutes
}
