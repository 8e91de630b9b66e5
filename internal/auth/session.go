package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/securecookie"

	"github.com/BradenHooton/swgfv/internal/models"
)

const SessionCookieName = "swgfv_session"

var (
	ErrNoSession       = errors.New("no session")
	ErrSessionExpired  = errors.New("session expired")
	ErrSessionIdle     = errors.New("session idle timeout")
	ErrSessionRevoked  = errors.New("session revoked")
	ErrSessionInactive = errors.New("account inactive")
)

// SessionStore keeps the server-side record of every live session. A cookie
// whose record is gone is rejected.
type SessionStore interface {
	Create(ctx context.Context, s *models.SessionRecord) error
	Lookup(ctx context.Context, id string) (*models.SessionState, error)
	Touch(ctx context.Context, id string, seen time.Time) error
	Delete(ctx context.Context, id string) error
}

// Session is the authenticated state of a request. Identifier and Role are
// read from the account on every request, never trusted from the cookie.
type Session struct {
	ID         string
	UserID     int64
	Identifier string
	Role       string
	IssuedAt   time.Time
	LastSeen   time.Time
}

// IsAdmin reports whether the account currently holds the admin role
func (s *Session) IsAdmin() bool {
	return s.Role == models.RoleAdmin
}

// cookiePayload is what the signed, encrypted cookie carries. It never holds
// password material or the role.
type cookiePayload struct {
	SessionID string `json:"sid"`
	UserID    int64  `json:"uid"`
}

// SessionConfig holds session lifetime and cookie settings
type SessionConfig struct {
	MaxAge      time.Duration
	IdleTimeout time.Duration
	Cookie      CookieConfig
}

// SessionManager issues, loads and revokes sessions
type SessionManager struct {
	codec  *securecookie.SecureCookie
	store  SessionStore
	config SessionConfig
	now    func() time.Time
}

// NewSessionManager derives the cookie hash and encryption keys from the signer's secret.
func NewSessionManager(signer *Signer, store SessionStore, config SessionConfig) *SessionManager {
	if config.Cookie.Name == "" {
		config.Cookie.Name = SessionCookieName
	}
	if config.Cookie.SameSite == "" {
		config.Cookie.SameSite = "lax"
	}

	codec := securecookie.New(signer.DeriveKey("swgfv-session-hash"), signer.DeriveKey("swgfv-session-block"))
	codec.SetSerializer(securecookie.JSONEncoder{})
	codec.MaxAge(int(config.MaxAge.Seconds()))

	return &SessionManager{
		codec:  codec,
		store:  store,
		config: config,
		now:    time.Now,
	}
}

// SetClock replaces the time source used for age and idle checks. Used by tests.
func (m *SessionManager) SetClock(now func() time.Time) {
	m.now = now
}

// Issue starts a session for a successful login, stores it and writes its cookie.
func (m *SessionManager) Issue(ctx context.Context, w http.ResponseWriter, result *models.LoginResult) (*Session, error) {
	now := m.now()
	rec := &models.SessionRecord{
		ID:         uuid.NewString(),
		UserID:     result.UserID,
		CreatedAt:  now,
		LastSeenAt: now,
		ExpiresAt:  now.Add(m.config.MaxAge),
	}
	if err := m.store.Create(ctx, rec); err != nil {
		return nil, fmt.Errorf("failed to store session: %w", err)
	}

	encoded, err := m.codec.Encode(m.config.Cookie.Name, cookiePayload{SessionID: rec.ID, UserID: rec.UserID})
	if err != nil {
		return nil, fmt.Errorf("failed to encode session: %w", err)
	}
	setCookie(w, encoded, m.config.MaxAge, m.config.Cookie)

	return &Session{
		ID:         rec.ID,
		UserID:     result.UserID,
		Identifier: result.Identifier,
		Role:       result.Role,
		IssuedAt:   now,
		LastSeen:   now,
	}, nil
}

// Load decodes the session cookie, looks up its record and enforces the
// absolute and idle lifetimes and the account's active flag. Sessions that
// fail those checks are deleted from the store.
func (m *SessionManager) Load(r *http.Request) (*Session, error) {
	cookie, err := r.Cookie(m.config.Cookie.Name)
	if err != nil {
		return nil, ErrNoSession
	}

	var payload cookiePayload
	if err := m.codec.Decode(m.config.Cookie.Name, cookie.Value, &payload); err != nil || payload.SessionID == "" {
		return nil, ErrNoSession
	}

	ctx := r.Context()
	st, err := m.store.Lookup(ctx, payload.SessionID)
	if errors.Is(err, models.ErrNotFound) {
		return nil, ErrSessionRevoked
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	if st.UserID != payload.UserID {
		return nil, ErrSessionRevoked
	}

	now := m.now()
	var reject error
	switch {
	case m.config.MaxAge > 0 && now.Sub(st.CreatedAt) > m.config.MaxAge:
		reject = ErrSessionExpired
	case m.config.IdleTimeout > 0 && now.Sub(st.LastSeenAt) > m.config.IdleTimeout:
		reject = ErrSessionIdle
	case !st.Active:
		reject = ErrSessionInactive
	}
	if reject != nil {
		if err := m.store.Delete(ctx, st.ID); err != nil {
			return nil, fmt.Errorf("failed to drop session: %w", err)
		}
		return nil, reject
	}

	return &Session{
		ID:         st.ID,
		UserID:     st.UserID,
		Identifier: st.Email,
		Role:       st.Role,
		IssuedAt:   st.CreatedAt,
		LastSeen:   st.LastSeenAt,
	}, nil
}

// Touch records activity on the session, restarting its idle window.
func (m *SessionManager) Touch(ctx context.Context, s *Session) error {
	now := m.now()
	if err := m.store.Touch(ctx, s.ID, now); err != nil {
		return fmt.Errorf("failed to refresh session: %w", err)
	}
	s.LastSeen = now
	return nil
}

// Revoke deletes the session's record and clears the cookie. A nil session
// only clears the cookie.
func (m *SessionManager) Revoke(ctx context.Context, w http.ResponseWriter, s *Session) error {
	m.Clear(w)
	if s == nil || s.ID == "" {
		return nil
	}
	if err := m.store.Delete(ctx, s.ID); err != nil {
		return fmt.Errorf("failed to revoke session: %w", err)
	}
	return nil
}

// Clear tells the browser to drop the session cookie
func (m *SessionManager) Clear(w http.ResponseWriter) {
	clearCookie(w, m.config.Cookie)
}
