package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/BradenHooton/swgfv/internal/auth"
	pkghttp "github.com/BradenHooton/swgfv/pkg/http"
	pkglogger "github.com/BradenHooton/swgfv/pkg/logger"
)

// SecureLogger returns a middleware for logging HTTP requests with sensitive data redaction
func SecureLogger(logger *slog.Logger, ipConfig *pkghttp.IPConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			wrapped := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			// The session is injected further down the chain; capture it on the way back.
			var userID int64
			next.ServeHTTP(wrapped, r.WithContext(withSessionSlot(r.Context(), &userID)))

			path := r.URL.Path
			if q := pkglogger.RedactQuery(r.URL.RawQuery); q != "" {
				path += "?" + q
			}

			status := wrapped.Status()
			attrs := []slog.Attr{
				slog.String("method", r.Method),
				slog.String("path", path),
				slog.Int("status", status),
				slog.Int("bytes", wrapped.BytesWritten()),
				slog.String("duration", time.Since(start).String()),
				slog.String("request_id", middleware.GetReqID(r.Context())),
				slog.String("client_ip", pkghttp.ExtractClientIP(r, ipConfig)),
			}
			if userID != 0 {
				attrs = append(attrs, slog.Int64("user_id", userID))
			}

			level := slog.LevelInfo
			if status >= http.StatusInternalServerError {
				level = slog.LevelError
			}
			logger.LogAttrs(context.Background(), level, "http_request", attrs...)
		})
	}
}

type sessionSlotKey struct{}

func withSessionSlot(ctx context.Context, userID *int64) context.Context {
	return context.WithValue(ctx, sessionSlotKey{}, userID)
}

// RecordSession stores the session user on the request's logging slot. It
// runs after auth.RequireSession.
func RecordSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s := auth.SessionFromContext(r.Context()); s != nil {
			if p, ok := r.Context().Value(sessionSlotKey{}).(*int64); ok {
				*p = s.UserID
			}
		}
		next.ServeHTTP(w, r)
	})
}
