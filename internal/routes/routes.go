package routes

import (
	"log/slog"

	"github.com/go-chi/chi/v5"

	"github.com/BradenHooton/swgfv/internal/auth"
	"github.com/BradenHooton/swgfv/internal/handlers"
	"github.com/BradenHooton/swgfv/internal/middleware"
	pkghttp "github.com/BradenHooton/swgfv/pkg/http"
)

// Handlers groups the HTTP handlers mounted by RegisterRoutes.
type Handlers struct {
	Auth     *handlers.AuthHandler
	Account  *handlers.AccountHandler
	Users    *handlers.UserHandler
	Projects *handlers.ProjectHandler
	Catalog  *handlers.CatalogHandler
	Audit    *handlers.AuditHandler
}

// Limits configures request rate limiting per minute.
type Limits struct {
	AuthPerMinute    int
	SessionPerMinute int
}

// RegisterRoutes registers all application routes
func RegisterRoutes(
	router chi.Router,
	h Handlers,
	sessions *auth.SessionManager,
	limits Limits,
	ipConfig *pkghttp.IPConfig,
	logger *slog.Logger,
) {
	authLimit := middleware.RateLimitByIP(middleware.RateLimitConfig{
		RequestsPerMinute: limits.AuthPerMinute,
		IPConfig:          ipConfig,
	})

	// Public routes - no session required
	router.Group(func(r chi.Router) {
		r.Use(authLimit)
		r.Get("/auth/challenge", h.Auth.Challenge)
		r.Post("/auth/login", h.Auth.Login)
		r.Post("/auth/password-reset", h.Auth.RequestPasswordReset)
		r.Post("/auth/password-reset/confirm", h.Auth.ConfirmPasswordReset)
	})

	// Protected routes - live session required
	router.Group(func(r chi.Router) {
		r.Use(auth.RequireSession(sessions, logger))
		r.Use(middleware.RecordSession)
		r.Use(middleware.RateLimitBySession(middleware.RateLimitConfig{
			RequestsPerMinute: limits.SessionPerMinute,
			IPConfig:          ipConfig,
		}))

		r.Post("/auth/logout", h.Auth.Logout)
		r.Get("/account", h.Account.Me)

		// Users, projects and catalog enforce roles in their services or sub-routers
		h.Users.RegisterRoutes(r)
		h.Projects.RegisterRoutes(r)
		h.Catalog.RegisterRoutes(r)

		// Admin-only routes
		r.Group(func(r chi.Router) {
			r.Use(auth.RequireAdmin)
			r.Get("/audit", h.Audit.ListAuditLogs)
		})
	})
}
