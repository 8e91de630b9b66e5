package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"

	"github.com/BradenHooton/swgfv/internal/models"
	pkgauth "github.com/BradenHooton/swgfv/pkg/auth"
)

// UserRepository defines the interface for user data access
type UserRepository interface {
	GetByID(ctx context.Context, id int64) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	Search(ctx context.Context, search models.UserSearch) ([]*models.User, error)
	Count(ctx context.Context) (int64, error)
	Create(ctx context.Context, user *models.User) (*models.User, error)
	Update(ctx context.Context, user *models.User) (*models.User, error)
	UpdatePassword(ctx context.Context, id int64, passwordHash string) error
	ReplacePassword(ctx context.Context, id int64, currentHash, newHash string) error
}

type CreateUserInput struct {
	Email                string
	Password             string
	PasswordConfirmation string
	FirstName            string
	PaternalSurname      string
	MaternalSurname      string
	Phone                string
	Role                 string
	Active               *bool
}

// UpdateUserInput changes only the non-nil fields. A non-empty Password
// replaces the current one after confirmation.
type UpdateUserInput struct {
	Email                *string
	FirstName            *string
	PaternalSurname      *string
	MaternalSurname      *string
	Phone                *string
	Role                 *string
	Active               *bool
	Password             string
	PasswordConfirmation string
}

// UserService handles user business logic. Account management is admin only;
// every user may read their own account.
type UserService struct {
	repo   UserRepository
	audit  Auditor
	logger *slog.Logger
}

// NewUserService creates a new UserService
func NewUserService(repo UserRepository, audit Auditor, logger *slog.Logger) *UserService {
	return &UserService{
		repo:   repo,
		audit:  audit,
		logger: logger,
	}
}

func validRole(role string) bool {
	return role == models.RoleAdmin || role == models.RoleGeneral
}

func normalizeEmail(email string) (string, error) {
	email = models.NormalizeIdentifier(email)
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", models.NewValidationError("email", "must be a valid email address", nil)
	}
	return email, nil
}

func passwordError(err error) error {
	if errors.Is(err, pkgauth.ErrPasswordMismatch) {
		return models.NewValidationError("password_confirmation", "passwords do not match", nil)
	}
	if errors.Is(err, pkgauth.ErrPasswordSimilar) {
		return models.NewValidationError("password", "must not resemble the account's name, email or phone", nil)
	}
	return models.NewValidationError("password",
		fmt.Sprintf("must be %d-%d characters with upper and lower case letters, a digit and a symbol",
			pkgauth.MinPasswordLen, pkgauth.MaxPasswordLen), nil)
}

// userAttributes are the account details a new password must not resemble.
func userAttributes(u *models.User) []string {
	return []string{u.Email, u.FirstName, u.PaternalSurname, u.MaternalSurname, u.Phone}
}

func (s *UserService) Create(ctx context.Context, actor *models.Actor, in CreateUserInput) (*models.User, error) {
	if !actor.IsAdmin() {
		return nil, models.ErrForbidden
	}

	email, err := normalizeEmail(in.Email)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(in.FirstName) == "" || strings.TrimSpace(in.PaternalSurname) == "" {
		return nil, models.NewValidationError("name", "first name and paternal surname are required", nil)
	}
	role := in.Role
	if role == "" {
		role = models.RoleGeneral
	}
	if !validRole(role) {
		return nil, models.NewValidationError("role", "must be admin or general", nil)
	}
	if err := pkgauth.ValidateNewPassword(in.Password, in.PasswordConfirmation,
		email, in.FirstName, in.PaternalSurname, in.MaternalSurname, in.Phone); err != nil {
		return nil, passwordError(err)
	}

	if _, err := s.repo.GetByEmail(ctx, email); err == nil {
		return nil, models.NewConflictError("email already registered")
	} else if !errors.Is(err, models.ErrNotFound) {
		s.logger.Error("failed to check email uniqueness", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	hash, err := pkgauth.HashPasswordWithCost(in.Password, passwordCost)
	if err != nil {
		s.logger.Error("failed to hash password", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	active := true
	if in.Active != nil {
		active = *in.Active
	}

	user, err := s.repo.Create(ctx, &models.User{
		Email:           email,
		PasswordHash:    hash,
		FirstName:       strings.TrimSpace(in.FirstName),
		PaternalSurname: strings.TrimSpace(in.PaternalSurname),
		MaternalSurname: strings.TrimSpace(in.MaternalSurname),
		Phone:           strings.TrimSpace(in.Phone),
		Role:            role,
		Active:          active,
	})
	if err != nil {
		if errors.Is(err, models.ErrConflict) {
			return nil, models.NewConflictError("email already registered")
		}
		s.logger.Error("failed to create user", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	s.audit.Record(ctx, actorEntry(actor, models.AuditActionUserCreate).target(models.AuditTargetUser, user.ID))
	return user, nil
}

// Get returns a user. Non-admins may only read their own account.
func (s *UserService) Get(ctx context.Context, actor *models.Actor, id int64) (*models.User, error) {
	if !actor.IsAdmin() && actor.UserID != id {
		return nil, models.ErrForbidden
	}

	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrNotFound
		}
		s.logger.Error("failed to get user", slog.Int64("user_id", id), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}
	return user, nil
}

func (s *UserService) Search(ctx context.Context, actor *models.Actor, search models.UserSearch) ([]*models.User, error) {
	if !actor.IsAdmin() {
		return nil, models.ErrForbidden
	}

	users, err := s.repo.Search(ctx, search)
	if err != nil {
		s.logger.Error("failed to search users", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}
	return users, nil
}

func (s *UserService) Update(ctx context.Context, actor *models.Actor, id int64, in UpdateUserInput) (*models.User, error) {
	if !actor.IsAdmin() {
		return nil, models.ErrForbidden
	}

	user, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	if in.Email != nil {
		email, err := normalizeEmail(*in.Email)
		if err != nil {
			return nil, err
		}
		if email != user.Email {
			if _, err := s.repo.GetByEmail(ctx, email); err == nil {
				return nil, models.NewConflictError("email already registered")
			} else if !errors.Is(err, models.ErrNotFound) {
				s.logger.Error("failed to check email uniqueness", slog.Any("error", err))
				return nil, models.ErrInternalServer
			}
		}
		user.Email = email
	}
	if in.FirstName != nil {
		user.FirstName = strings.TrimSpace(*in.FirstName)
	}
	if in.PaternalSurname != nil {
		user.PaternalSurname = strings.TrimSpace(*in.PaternalSurname)
	}
	if in.MaternalSurname != nil {
		user.MaternalSurname = strings.TrimSpace(*in.MaternalSurname)
	}
	if in.Phone != nil {
		user.Phone = strings.TrimSpace(*in.Phone)
	}
	if user.FirstName == "" || user.PaternalSurname == "" {
		return nil, models.NewValidationError("name", "first name and paternal surname are required", nil)
	}
	if in.Role != nil {
		if !validRole(*in.Role) {
			return nil, models.NewValidationError("role", "must be admin or general", nil)
		}
		if id == actor.UserID && *in.Role != models.RoleAdmin {
			return nil, models.NewValidationError("role", "administrators cannot demote themselves", nil)
		}
		user.Role = *in.Role
	}
	if in.Active != nil {
		if id == actor.UserID && !*in.Active {
			return nil, models.NewValidationError("active", "administrators cannot deactivate themselves", nil)
		}
		user.Active = *in.Active
	}

	var newHash string
	if in.Password != "" || in.PasswordConfirmation != "" {
		if err := pkgauth.ValidateNewPassword(in.Password, in.PasswordConfirmation, userAttributes(user)...); err != nil {
			return nil, passwordError(err)
		}
		if newHash, err = pkgauth.HashPasswordWithCost(in.Password, passwordCost); err != nil {
			s.logger.Error("failed to hash password", slog.Any("error", err))
			return nil, models.ErrInternalServer
		}
	}

	updated, err := s.repo.Update(ctx, user)
	if err != nil {
		if errors.Is(err, models.ErrConflict) || errors.Is(err, models.ErrNotFound) {
			return nil, err
		}
		s.logger.Error("failed to update user", slog.Int64("user_id", id), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	if newHash != "" {
		if err := s.repo.UpdatePassword(ctx, id, newHash); err != nil {
			s.logger.Error("failed to update password", slog.Int64("user_id", id), slog.Any("error", err))
			return nil, models.ErrInternalServer
		}
	}

	entry := actorEntry(actor, models.AuditActionUserUpdate).target(models.AuditTargetUser, id)
	entry.Metadata = models.AuditMetadata{"password_changed": newHash != ""}
	s.audit.Record(ctx, entry)
	return updated, nil
}

// Deactivate disables login for an account. Administrators cannot deactivate
// themselves.
func (s *UserService) Deactivate(ctx context.Context, actor *models.Actor, id int64) error {
	if !actor.IsAdmin() {
		return models.ErrForbidden
	}
	if actor.UserID == id {
		return models.NewValidationError("active", "administrators cannot deactivate themselves", nil)
	}

	user, err := s.Get(ctx, actor, id)
	if err != nil {
		return err
	}
	if !user.Active {
		return nil
	}

	user.Active = false
	if _, err := s.repo.Update(ctx, user); err != nil {
		s.logger.Error("failed to deactivate user", slog.Int64("user_id", id), slog.Any("error", err))
		return models.ErrInternalServer
	}

	s.audit.Record(ctx, actorEntry(actor, models.AuditActionUserDeactivate).target(models.AuditTargetUser, id))
	return nil
}

// EnsureAdmin creates the first administrator when the user table is empty.
// It reports whether an account was created.
func (s *UserService) EnsureAdmin(ctx context.Context, email, password string) (bool, error) {
	count, err := s.repo.Count(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to count users: %w", err)
	}
	if count > 0 {
		return false, nil
	}

	system := &models.Actor{Role: models.RoleAdmin, Email: "system"}
	_, err = s.Create(ctx, system, CreateUserInput{
		Email:                email,
		Password:             password,
		PasswordConfirmation: password,
		FirstName:            "Administrator",
		PaternalSurname:      "SWGFV",
		Role:                 models.RoleAdmin,
	})
	if err != nil {
		return false, err
	}
	return true, nil
}
