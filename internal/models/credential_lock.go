package models

import (
	"math"
	"time"
)

// CredentialLock tracks consecutive failed logins for one normalized identifier.
// The identifier need not belong to an existing account.
type CredentialLock struct {
	Identifier     string
	FailedAttempts int
	LockedUntil    *time.Time
	LastFailureAt  *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func (l *CredentialLock) IsLocked(now time.Time) bool {
	return l.LockedUntil != nil && now.Before(*l.LockedUntil)
}

// RetryAfterMinutes is the remaining lock time rounded up to whole minutes, at least 1.
func (l *CredentialLock) RetryAfterMinutes(now time.Time) int {
	if !l.IsLocked(now) {
		return 0
	}
	minutes := int(math.Ceil(l.LockedUntil.Sub(now).Minutes()))
	if minutes < 1 {
		return 1
	}
	return minutes
}

// RegisterFailure counts one failed attempt and locks the identifier when the
// count reaches threshold. It is a no-op while a lock is active. An expired lock
// starts a fresh count. Returns true when this failure engaged the lock.
func (l *CredentialLock) RegisterFailure(now time.Time, threshold int, duration time.Duration) bool {
	if l.IsLocked(now) {
		return false
	}
	if l.LockedUntil != nil {
		l.FailedAttempts = 0
		l.LockedUntil = nil
	}

	l.FailedAttempts++
	failedAt := now
	l.LastFailureAt = &failedAt

	if l.FailedAttempts >= threshold {
		until := now.Add(duration)
		l.LockedUntil = &until
		return true
	}
	return false
}

func (l *CredentialLock) Reset() {
	l.FailedAttempts = 0
	l.LockedUntil = nil
}
