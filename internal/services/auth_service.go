package services

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/BradenHooton/swgfv/internal/auth"
	"github.com/BradenHooton/swgfv/internal/models"
	pkgauth "github.com/BradenHooton/swgfv/pkg/auth"
)

// passwordCost is the bcrypt work factor for hashes created by services.
var passwordCost = pkgauth.BcryptCost

// ChallengeIssuer issues and verifies captcha challenges
type ChallengeIssuer interface {
	Issue() (*auth.Challenge, error)
	Verify(token, answer string) error
}

// AuthService handles authentication business logic
type AuthService struct {
	users   UserRepository
	lockout *LockoutService
	captcha ChallengeIssuer
	timing  *auth.TimingDelay
	audit   Auditor
	logger  *slog.Logger
	now     func() time.Time

	dummyOnce sync.Once
	dummyHash string
}

// NewAuthService creates a new AuthService
func NewAuthService(users UserRepository, lockout *LockoutService, captcha ChallengeIssuer, timing *auth.TimingDelay, audit Auditor, logger *slog.Logger) *AuthService {
	return &AuthService{
		users:   users,
		lockout: lockout,
		captcha: captcha,
		timing:  timing,
		audit:   audit,
		logger:  logger,
		now:     time.Now,
	}
}

func (s *AuthService) IssueChallenge() (*auth.Challenge, error) {
	challenge, err := s.captcha.Issue()
	if err != nil {
		s.logger.Error("failed to issue challenge", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}
	return challenge, nil
}

// MaxAttempts is the number of failures that engages the lock.
func (s *AuthService) MaxAttempts() int {
	return s.lockout.MaxAttempts()
}

// Login evaluates an attempt in a fixed order: identifier present and not
// overlong, lock, password present, captcha, credentials, active flag. Captcha and credential
// failures count toward the lock; the other rejections do not. Rejections are
// returned as *models.LoginError.
func (s *AuthService) Login(ctx context.Context, attempt models.LoginAttempt) (*models.LoginResult, error) {
	start := time.Now()
	identifier := models.NormalizeIdentifier(attempt.Identifier)
	if identifier == "" {
		return nil, &models.LoginError{Kind: models.LoginFailMissingIdentifier}
	}
	if models.IdentifierTooLong(identifier) {
		return nil, &models.LoginError{Kind: models.LoginFailIdentifierLength}
	}

	status, err := s.lockout.Check(ctx, identifier)
	if err != nil {
		return nil, err
	}
	if status.Locked {
		s.recordFailure(ctx, identifier, attempt, "locked")
		s.timing.WaitFrom(start, false)
		return nil, &models.LoginError{
			Kind:              models.LoginFailLocked,
			MaxAttempts:       s.lockout.MaxAttempts(),
			Attempts:          status.FailedAttempts,
			RetryAfterMinutes: status.RetryAfterMinutes,
		}
	}

	if attempt.Password == "" {
		return nil, &models.LoginError{Kind: models.LoginFailMissingPassword}
	}

	if err := s.captcha.Verify(attempt.ChallengeToken, attempt.ChallengeAnswer); err != nil {
		return nil, s.countFailure(ctx, start, identifier, attempt, models.LoginFailChallenge)
	}

	user, err := s.users.GetByEmail(ctx, identifier)
	if err != nil {
		if !errors.Is(err, models.ErrNotFound) {
			s.logger.Error("failed to look up user for login", slog.Any("error", err))
			return nil, models.ErrInternalServer
		}
		// equalize timing with the wrong-password path
		_ = pkgauth.ComparePassword(s.dummyPasswordHash(), attempt.Password)
		return nil, s.countFailure(ctx, start, identifier, attempt, models.LoginFailCredentials)
	}

	if err := pkgauth.ComparePassword(user.PasswordHash, attempt.Password); err != nil {
		return nil, s.countFailure(ctx, start, identifier, attempt, models.LoginFailCredentials)
	}

	if !user.Active {
		s.recordFailure(ctx, identifier, attempt, "inactive")
		s.timing.WaitFrom(start, false)
		return nil, &models.LoginError{Kind: models.LoginFailInactive}
	}

	if err := s.lockout.Reset(ctx, identifier); err != nil {
		return nil, err
	}

	entry := AuditEntry{
		Action:     models.AuditActionLogin,
		ActorID:    &user.ID,
		ActorEmail: user.Email,
		IPAddress:  attempt.IPAddress,
		UserAgent:  attempt.UserAgent,
		Success:    true,
	}
	s.audit.Record(ctx, entry)

	return &models.LoginResult{
		UserID:     user.ID,
		Identifier: identifier,
		Role:       user.Role,
		LoggedInAt: s.now(),
	}, nil
}

// countFailure increments the identifier's counter and builds the rejection.
func (s *AuthService) countFailure(ctx context.Context, start time.Time, identifier string, attempt models.LoginAttempt, kind string) error {
	defer s.timing.WaitFrom(start, false)

	outcome, err := s.lockout.RecordFailure(ctx, identifier)
	if err != nil {
		return err
	}

	if outcome.Locked && !outcome.LockedNow {
		s.recordFailure(ctx, identifier, attempt, "locked")
		return &models.LoginError{
			Kind:              models.LoginFailLocked,
			Attempts:          outcome.Attempts,
			MaxAttempts:       s.lockout.MaxAttempts(),
			RetryAfterMinutes: outcome.RetryAfterMinutes,
		}
	}

	s.recordFailure(ctx, identifier, attempt, kind)
	if outcome.LockedNow {
		s.audit.Record(ctx, AuditEntry{
			Action:     models.AuditActionLockout,
			ActorEmail: identifier,
			IPAddress:  attempt.IPAddress,
			UserAgent:  attempt.UserAgent,
			Success:    false,
			Message:    "failed attempt threshold reached",
			Metadata:   models.AuditMetadata{"attempts": outcome.Attempts},
		})
	}

	return &models.LoginError{
		Kind:              kind,
		Attempts:          outcome.Attempts,
		MaxAttempts:       s.lockout.MaxAttempts(),
		LockedNow:         outcome.LockedNow,
		RetryAfterMinutes: outcome.RetryAfterMinutes,
	}
}

func (s *AuthService) recordFailure(ctx context.Context, identifier string, attempt models.LoginAttempt, reason string) {
	s.audit.Record(ctx, AuditEntry{
		Action:     models.AuditActionLogin,
		ActorEmail: identifier,
		IPAddress:  attempt.IPAddress,
		UserAgent:  attempt.UserAgent,
		Success:    false,
		Message:    reason,
	})
}

// Logout records the end of a session. Clearing the cookie is up to the caller.
func (s *AuthService) Logout(ctx context.Context, actor *models.Actor) {
	s.audit.Record(ctx, actorEntry(actor, models.AuditActionLogout))
}

// dummyPasswordHash is a hash of a random secret, compared against when the
// account does not exist.
func (s *AuthService) dummyPasswordHash() string {
	s.dummyOnce.Do(func() {
		buf := make([]byte, 16)
		_, _ = rand.Read(buf)
		hash, err := pkgauth.HashPasswordWithCost(hex.EncodeToString(buf), passwordCost)
		if err != nil {
			s.logger.Error("failed to create dummy password hash", slog.Any("error", err))
			return
		}
		s.dummyHash = hash
	})
	return s.dummyHash
}
