package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/httprate"

	"github.com/BradenHooton/swgfv/internal/auth"
	pkghttp "github.com/BradenHooton/swgfv/pkg/http"
)

// RateLimitConfig holds rate limiting configuration. A non-positive
// RequestsPerMinute disables the limiter.
type RateLimitConfig struct {
	RequestsPerMinute int
	IPConfig          *pkghttp.IPConfig
}

func limitExceeded(w http.ResponseWriter, r *http.Request) {
	pkghttp.WriteTooManyRequests(w, "Rate limit exceeded")
}

func passThrough(next http.Handler) http.Handler { return next }

func limiter(config RateLimitConfig, key httprate.KeyFunc) func(next http.Handler) http.Handler {
	if config.RequestsPerMinute <= 0 {
		return passThrough
	}
	return httprate.Limit(
		config.RequestsPerMinute,
		time.Minute,
		httprate.WithKeyFuncs(key),
		httprate.WithLimitHandler(limitExceeded),
	)
}

// RateLimitByIP limits requests per client IP, honouring the trusted proxy list.
// It guards the unauthenticated login and password reset endpoints.
func RateLimitByIP(config RateLimitConfig) func(next http.Handler) http.Handler {
	return limiter(config, func(r *http.Request) (string, error) {
		return pkghttp.ExtractClientIP(r, config.IPConfig), nil
	})
}

// RateLimitBySession limits signed-in users individually and falls back to
// the client IP when no session is present. It runs after auth.RequireSession.
func RateLimitBySession(config RateLimitConfig) func(next http.Handler) http.Handler {
	return limiter(config, func(r *http.Request) (string, error) {
		if s := auth.SessionFromContext(r.Context()); s != nil {
			return "user:" + strconv.FormatInt(s.UserID, 10), nil
		}
		return "ip:" + pkghttp.ExtractClientIP(r, config.IPConfig), nil
	})
}
