package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/BradenHooton/swgfv/internal/models"
)

// CredentialLockRepository defines the persistence of failed-login counters
type CredentialLockRepository interface {
	Get(ctx context.Context, identifier string) (*models.CredentialLock, error)
	Mutate(ctx context.Context, identifier string, fn func(*models.CredentialLock) error) (*models.CredentialLock, error)
}

// LockoutConfig holds the lockout threshold and duration
type LockoutConfig struct {
	MaxFailedAttempts int
	Duration          time.Duration
}

// LockStatus is the lock state of an identifier at check time.
type LockStatus struct {
	Locked            bool
	FailedAttempts    int
	RetryAfterMinutes int
}

// FailureOutcome describes the counter after a recorded failure. Locked
// without LockedNow means a concurrent request engaged the lock first and this
// failure was not counted.
type FailureOutcome struct {
	Attempts          int
	Locked            bool
	LockedNow         bool
	RetryAfterMinutes int
}

// LockoutService throttles logins per normalized identifier. Database errors
// fail closed.
type LockoutService struct {
	repo   CredentialLockRepository
	config LockoutConfig
	logger *slog.Logger
	now    func() time.Time
}

// NewLockoutService creates a new LockoutService
func NewLockoutService(repo CredentialLockRepository, config LockoutConfig, logger *slog.Logger) *LockoutService {
	return &LockoutService{
		repo:   repo,
		config: config,
		logger: logger,
		now:    time.Now,
	}
}

// MaxAttempts returns the failure threshold
func (s *LockoutService) MaxAttempts() int {
	return s.config.MaxFailedAttempts
}

// Check reports whether the identifier is locked right now
func (s *LockoutService) Check(ctx context.Context, identifier string) (*LockStatus, error) {
	lock, err := s.repo.Get(ctx, identifier)
	if err != nil {
		s.logger.Error("failed to read credential lock", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	now := s.now()
	return &LockStatus{
		Locked:            lock.IsLocked(now),
		FailedAttempts:    lock.FailedAttempts,
		RetryAfterMinutes: lock.RetryAfterMinutes(now),
	}, nil
}

// RecordFailure counts one failed attempt atomically and engages the lock at
// the threshold.
func (s *LockoutService) RecordFailure(ctx context.Context, identifier string) (*FailureOutcome, error) {
	now := s.now()
	var outcome FailureOutcome

	lock, err := s.repo.Mutate(ctx, identifier, func(l *models.CredentialLock) error {
		if l.IsLocked(now) {
			outcome.Locked = true
			return nil
		}
		outcome.LockedNow = l.RegisterFailure(now, s.config.MaxFailedAttempts, s.config.Duration)
		outcome.Locked = outcome.LockedNow
		return nil
	})
	if err != nil {
		s.logger.Error("failed to record login failure", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	outcome.Attempts = lock.FailedAttempts
	outcome.RetryAfterMinutes = lock.RetryAfterMinutes(now)
	return &outcome, nil
}

// Reset clears the counter and any lock after a successful login. The row
// and its last failure time are kept as the lockout history.
func (s *LockoutService) Reset(ctx context.Context, identifier string) error {
	_, err := s.repo.Mutate(ctx, identifier, func(l *models.CredentialLock) error {
		l.Reset()
		return nil
	})
	if err != nil {
		s.logger.Error("failed to reset credential lock", slog.Any("error", err))
		return models.ErrInternalServer
	}
	return nil
}
