package auth

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	pkghttp "github.com/BradenHooton/swgfv/pkg/http"
)

// contextKey is a custom type for context keys
type contextKey string

const (
	// SessionContextKey is the key for storing the session in context
	SessionContextKey contextKey = "session"
)

// RequireSession rejects requests without a live session. The session's
// record and account are re-read on every request, so logout, deactivation
// and role changes apply immediately. On success it refreshes the idle timer
// and injects the session into the request context.
func RequireSession(sessions *SessionManager, logger *slog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			s, err := sessions.Load(r)
			switch {
			case err == nil:
			case errors.Is(err, ErrNoSession):
				pkghttp.WriteUnauthorized(w, "authentication required")
				return
			case errors.Is(err, ErrSessionIdle), errors.Is(err, ErrSessionExpired),
				errors.Is(err, ErrSessionRevoked), errors.Is(err, ErrSessionInactive):
				sessions.Clear(w)
				pkghttp.WriteUnauthorized(w, "session expired, please log in again")
				return
			default:
				logger.Error("failed to load session", slog.String("error", err.Error()))
				pkghttp.WriteInternalError(w, "internal server error")
				return
			}

			if err := sessions.Touch(r.Context(), s); err != nil {
				logger.Error("failed to refresh session", slog.String("error", err.Error()))
				pkghttp.WriteInternalError(w, "internal server error")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), s)))
		})
	}
}

// RequireAdmin enforces the admin role tag. It must run after RequireSession.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s := SessionFromContext(r.Context())
		if s == nil {
			pkghttp.WriteUnauthorized(w, "authentication required")
			return
		}
		if !s.IsAdmin() {
			pkghttp.WriteForbidden(w, "forbidden: insufficient permissions")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// WithSession stores the session in a context
func WithSession(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, SessionContextKey, s)
}

// SessionFromContext extracts the session from a request context
func SessionFromContext(ctx context.Context) *Session {
	s, ok := ctx.Value(SessionContextKey).(*Session)
	if !ok {
		return nil
	}
	return s
}
