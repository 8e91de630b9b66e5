package services

import (
	"context"
	"errors"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/BradenHooton/swgfv/internal/auth"
	"github.com/BradenHooton/swgfv/internal/models"
	pkgauth "github.com/BradenHooton/swgfv/pkg/auth"
	pkglogger "github.com/BradenHooton/swgfv/pkg/logger"
)

// ResetTokens issues and parses password reset tokens
type ResetTokens interface {
	Issue(userID int64, passwordHash string) (string, error)
	Parse(token string) (*auth.ResetToken, error)
}

// SessionRevoker ends every session of a user
type SessionRevoker interface {
	DeleteForUser(ctx context.Context, userID int64) (int64, error)
}

// PasswordResetService runs the forgotten-password flow. Requests always look
// successful so the endpoint cannot be used to enumerate accounts.
type PasswordResetService struct {
	users    UserRepository
	tokens   ResetTokens
	sessions SessionRevoker
	email    EmailService
	audit    Auditor
	logger   *slog.Logger
	baseURL  string
	maxAge   time.Duration
}

// NewPasswordResetService creates a new PasswordResetService
func NewPasswordResetService(users UserRepository, tokens ResetTokens, sessions SessionRevoker, email EmailService, audit Auditor, logger *slog.Logger, baseURL string, maxAge time.Duration) *PasswordResetService {
	return &PasswordResetService{
		users:    users,
		tokens:   tokens,
		sessions: sessions,
		email:    email,
		audit:    audit,
		logger:   logger,
		baseURL:  strings.TrimRight(baseURL, "/"),
		maxAge:   maxAge,
	}
}

// RequestMeta is the client metadata recorded with reset events.
type RequestMeta struct {
	IPAddress string
	UserAgent string
}

// Request mails a reset link when email belongs to an active account. It
// reports no error for unknown or inactive accounts, nor for delivery failures.
func (s *PasswordResetService) Request(ctx context.Context, email string, meta RequestMeta) {
	email = models.NormalizeIdentifier(email)
	entry := AuditEntry{
		Action:     models.AuditActionPasswordResetReq,
		ActorEmail: email,
		IPAddress:  meta.IPAddress,
		UserAgent:  meta.UserAgent,
		Success:    true,
	}
	defer func() { s.audit.Record(ctx, entry) }()

	if email == "" {
		entry.Success, entry.Message = false, "empty email"
		return
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, models.ErrNotFound) {
			s.logger.Error("failed to look up user for password reset", slog.Any("error", err))
		}
		entry.Success, entry.Message = false, "unknown account"
		return
	}
	if !user.Active {
		entry.Success, entry.Message = false, "inactive account"
		return
	}
	entry.ActorID = &user.ID

	token, err := s.tokens.Issue(user.ID, user.PasswordHash)
	if err != nil {
		s.logger.Error("failed to issue reset token", slog.Any("error", err))
		entry.Success, entry.Message = false, "token error"
		return
	}

	link := s.baseURL + "/password-reset/confirm?token=" + url.QueryEscape(token)
	if err := s.email.SendPasswordResetEmail(ctx, user.Email, link, time.Now().Add(s.maxAge)); err != nil {
		s.logger.Error("failed to deliver password reset email",
			slog.String("email", pkglogger.SanitizedEmail(user.Email)),
			slog.Any("error", err))
		entry.Success, entry.Message = false, "delivery failed"
		return
	}
}

// Confirm sets a new password. The token must be unexpired, belong to an
// active account and have been issued against the current password. The
// write only lands while that password is still current, so a link is
// redeemed at most once even under concurrent confirms. Existing sessions
// of the account are revoked.
func (s *PasswordResetService) Confirm(ctx context.Context, token, password, confirmation string, meta RequestMeta) error {
	parsed, err := s.tokens.Parse(token)
	if err != nil {
		return models.ErrInvalidToken
	}

	user, err := s.users.GetByID(ctx, parsed.UserID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return models.ErrInvalidToken
		}
		s.logger.Error("failed to load user for password reset", slog.Any("error", err))
		return models.ErrInternalServer
	}
	if !user.Active || !parsed.StillValidFor(user.PasswordHash) {
		return models.ErrInvalidToken
	}

	if err := pkgauth.ValidateNewPassword(password, confirmation, userAttributes(user)...); err != nil {
		return passwordError(err)
	}

	hash, err := pkgauth.HashPasswordWithCost(password, passwordCost)
	if err != nil {
		s.logger.Error("failed to hash password", slog.Any("error", err))
		return models.ErrInternalServer
	}
	if err := s.users.ReplacePassword(ctx, user.ID, user.PasswordHash, hash); err != nil {
		if errors.Is(err, models.ErrConflict) {
			return models.ErrInvalidToken
		}
		s.logger.Error("failed to store new password", slog.Any("error", err))
		return models.ErrInternalServer
	}

	if _, err := s.sessions.DeleteForUser(ctx, user.ID); err != nil {
		s.logger.Error("failed to revoke sessions after password reset", slog.Any("error", err))
	}

	s.audit.Record(ctx, AuditEntry{
		Action:     models.AuditActionPasswordResetDone,
		ActorID:    &user.ID,
		ActorEmail: user.Email,
		IPAddress:  meta.IPAddress,
		UserAgent:  meta.UserAgent,
		Success:    true,
	})
	return nil
}
