package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/BradenHooton/swgfv/internal/auth"
	"github.com/BradenHooton/swgfv/internal/models"
	"github.com/BradenHooton/swgfv/internal/services"
	pkghttp "github.com/BradenHooton/swgfv/pkg/http"
)

// AuthServiceInterface defines the interface for login business logic
type AuthServiceInterface interface {
	IssueChallenge() (*auth.Challenge, error)
	MaxAttempts() int
	Login(ctx context.Context, attempt models.LoginAttempt) (*models.LoginResult, error)
	Logout(ctx context.Context, actor *models.Actor)
}

// PasswordResetServiceInterface defines the interface for password recovery
type PasswordResetServiceInterface interface {
	Request(ctx context.Context, email string, meta services.RequestMeta)
	Confirm(ctx context.Context, token, password, confirmation string, meta services.RequestMeta) error
}

// SessionIssuer starts and revokes server-side sessions and their cookies.
type SessionIssuer interface {
	Issue(ctx context.Context, w http.ResponseWriter, result *models.LoginResult) (*auth.Session, error)
	Revoke(ctx context.Context, w http.ResponseWriter, s *auth.Session) error
}

// AuthHandler handles authentication-related HTTP requests
type AuthHandler struct {
	service  AuthServiceInterface
	resets   PasswordResetServiceInterface
	sessions SessionIssuer
	ipConfig *pkghttp.IPConfig
	logger   *slog.Logger
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(service AuthServiceInterface, resets PasswordResetServiceInterface, sessions SessionIssuer, ipConfig *pkghttp.IPConfig, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		service:  service,
		resets:   resets,
		sessions: sessions,
		ipConfig: ipConfig,
		logger:   logger,
	}
}

// Request DTOs

// LoginRequest represents the request body for login. Fields are not tagged
// required: the login flow reports missing values in its own order.
type LoginRequest struct {
	Username        string `json:"username"`
	Password        string `json:"password"`
	ChallengeToken  string `json:"challenge_token"`
	ChallengeAnswer string `json:"challenge_answer"`
}

type PasswordResetRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type PasswordResetConfirmRequest struct {
	Token                string `json:"token" validate:"required"`
	Password             string `json:"password" validate:"required"`
	PasswordConfirmation string `json:"password_confirmation" validate:"required"`
}

// Response DTOs

type LoginResponse struct {
	UserID     int64  `json:"user_id"`
	Identifier string `json:"identifier"`
	Role       string `json:"role"`
}

// LoginFailureResponse is returned for every rejected login. It always carries
// a fresh challenge for the next attempt.
type LoginFailureResponse struct {
	Error             string          `json:"error"`
	Message           string          `json:"message"`
	Attempts          int             `json:"attempts"`
	MaxAttempts       int             `json:"max_attempts"`
	RetryAfterMinutes int             `json:"retry_after_minutes,omitempty"`
	Challenge         *auth.Challenge `json:"challenge,omitempty"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

// Challenge issues a new captcha question.
// @Router /auth/challenge [get]
func (h *AuthHandler) Challenge(w http.ResponseWriter, r *http.Request) {
	challenge, err := h.service.IssueChallenge()
	if err != nil {
		pkghttp.WriteInternalError(w, "Internal server error")
		return
	}
	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, http.StatusOK, challenge)
}

// Login handles user login
// @Summary User login
// @Accept json
// @Param request body LoginRequest true "Login request"
// @Produce json
// @Success 200 {object} LoginResponse
// @Failure 400 {object} LoginFailureResponse
// @Failure 401 {object} LoginFailureResponse
// @Failure 403 {object} LoginFailureResponse
// @Failure 429 {object} LoginFailureResponse
// @Router /auth/login [post]
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	result, err := h.service.Login(r.Context(), models.LoginAttempt{
		Identifier:      req.Username,
		Password:        req.Password,
		ChallengeToken:  req.ChallengeToken,
		ChallengeAnswer: req.ChallengeAnswer,
		IPAddress:       pkghttp.ExtractClientIP(r, h.ipConfig),
		UserAgent:       pkghttp.UserAgent(r),
	})
	if err != nil {
		var loginErr *models.LoginError
		if errors.As(err, &loginErr) {
			h.writeLoginFailure(w, loginErr)
			return
		}
		h.logger.Error("login failed", slog.String("error", err.Error()))
		pkghttp.WriteInternalError(w, "Internal server error")
		return
	}

	if _, err := h.sessions.Issue(r.Context(), w, result); err != nil {
		h.logger.Error("failed to issue session", slog.String("error", err.Error()))
		pkghttp.WriteInternalError(w, "Internal server error")
		return
	}

	writeJSON(w, http.StatusOK, LoginResponse{
		UserID:     result.UserID,
		Identifier: result.Identifier,
		Role:       result.Role,
	})
}

func (h *AuthHandler) writeLoginFailure(w http.ResponseWriter, loginErr *models.LoginError) {
	resp := LoginFailureResponse{
		Error:             loginErr.Kind,
		Message:           loginErr.Message(),
		Attempts:          loginErr.Attempts,
		MaxAttempts:       loginErr.MaxAttempts,
		RetryAfterMinutes: loginErr.RetryAfterMinutes,
	}
	if resp.MaxAttempts == 0 {
		resp.MaxAttempts = h.service.MaxAttempts()
	}

	if challenge, err := h.service.IssueChallenge(); err == nil {
		resp.Challenge = challenge
	} else {
		h.logger.Error("failed to issue challenge", slog.String("error", err.Error()))
	}

	status := http.StatusUnauthorized
	switch {
	case loginErr.LockedNow || loginErr.Kind == models.LoginFailLocked:
		status = http.StatusTooManyRequests
		pkghttp.SetRetryAfter(w, loginErr.RetryAfterMinutes*60)
	case loginErr.IsInputError():
		status = http.StatusBadRequest
	case loginErr.Kind == models.LoginFailInactive:
		status = http.StatusForbidden
	}
	writeJSON(w, status, resp)
}

// Logout ends the session. Its server-side record is deleted, so a copy of
// the cookie stops working too.
// @Router /auth/logout [post]
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.sessions.Revoke(r.Context(), w, auth.SessionFromContext(r.Context())); err != nil {
		h.logger.Error("failed to revoke session", slog.String("error", err.Error()))
		pkghttp.WriteInternalError(w, "Internal server error")
		return
	}
	if actor := actorFromRequest(r, h.ipConfig); actor != nil {
		h.service.Logout(r.Context(), actor)
	}
	w.WriteHeader(http.StatusNoContent)
}

// RequestPasswordReset mails a reset link. The response never reveals
// whether the address belongs to an account.
// @Router /auth/password-reset [post]
func (h *AuthHandler) RequestPasswordReset(w http.ResponseWriter, r *http.Request) {
	var req PasswordResetRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	h.resets.Request(r.Context(), req.Email, h.requestMeta(r))
	writeJSON(w, http.StatusAccepted, MessageResponse{
		Message: "If the address belongs to an active account, a reset link has been sent.",
	})
}

// ConfirmPasswordReset sets a new password from a reset link token.
// @Router /auth/password-reset/confirm [post]
func (h *AuthHandler) ConfirmPasswordReset(w http.ResponseWriter, r *http.Request) {
	var req PasswordResetConfirmRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	if err := h.resets.Confirm(r.Context(), req.Token, req.Password, req.PasswordConfirmation, h.requestMeta(r)); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{Message: "Password updated. You can now log in."})
}

func (h *AuthHandler) requestMeta(r *http.Request) services.RequestMeta {
	return services.RequestMeta{
		IPAddress: pkghttp.ExtractClientIP(r, h.ipConfig),
		UserAgent: pkghttp.UserAgent(r),
	}
}
