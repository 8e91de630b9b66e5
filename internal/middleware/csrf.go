package middleware

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/csrf"

	pkghttp "github.com/BradenHooton/swgfv/pkg/http"
)

// CSRFHeader carries the token both ways: the server sets it on every response
// and state-changing requests must echo it back.
const CSRFHeader = "X-CSRF-Token"

type CSRFConfig struct {
	AuthKey        []byte
	Secure         bool
	TrustedOrigins []string
}

// CSRFProtection guards POST, PUT, PATCH and DELETE with gorilla/csrf
// double-submit tokens. Plain HTTP deployments (Secure false) skip the strict
// Referer check that gorilla/csrf applies to TLS requests.
func CSRFProtection(config CSRFConfig, logger *slog.Logger) func(http.Handler) http.Handler {
	protect := csrf.Protect(config.AuthKey,
		csrf.Secure(config.Secure),
		csrf.HttpOnly(true),
		csrf.Path("/"),
		csrf.SameSite(csrf.SameSiteLaxMode),
		csrf.RequestHeader(CSRFHeader),
		csrf.CookieName("swgfv_csrf"),
		csrf.TrustedOrigins(config.TrustedOrigins),
		csrf.ErrorHandler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			logger.Warn("CSRF validation failed",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Any("reason", csrf.FailureReason(r)))
			pkghttp.WriteError(w, http.StatusForbidden, "csrf_failed", "CSRF token missing or invalid")
		})),
	)

	return func(next http.Handler) http.Handler {
		exposed := protect(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set(CSRFHeader, csrf.Token(r))
			next.ServeHTTP(w, r)
		}))

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !config.Secure {
				r = csrf.PlaintextHTTPRequest(r)
			}
			exposed.ServeHTTP(w, r)
		})
	}
}
