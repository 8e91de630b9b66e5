package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/BradenHooton/swgfv/internal/auth"
	"github.com/BradenHooton/swgfv/internal/background"
	"github.com/BradenHooton/swgfv/internal/config"
	"github.com/BradenHooton/swgfv/internal/database"
	"github.com/BradenHooton/swgfv/internal/handlers"
	middlewareCustom "github.com/BradenHooton/swgfv/internal/middleware"
	"github.com/BradenHooton/swgfv/internal/repositories"
	"github.com/BradenHooton/swgfv/internal/routes"
	"github.com/BradenHooton/swgfv/internal/services"
	"github.com/BradenHooton/swgfv/migrations"
	pkghttp "github.com/BradenHooton/swgfv/pkg/http"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: parseLevel(cfg.Server.LogLevel)}))
	slog.SetDefault(logger)
	logger.Info("configuration loaded", slog.String("env", cfg.Server.Env))

	// Initialize database
	db, err := database.NewConnection(&cfg.Database, logger)
	if err != nil {
		logger.Error("failed to connect to database", slog.Any("error", err))
		os.Exit(1)
	}
	defer db.Close()

	if cfg.Database.AutoMigrate {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		err := db.Migrate(ctx, migrations.FS)
		cancel()
		if err != nil {
			logger.Error("failed to apply migrations", slog.Any("error", err))
			os.Exit(1)
		}
	}

	// Initialize repositories
	userRepo := repositories.NewUserRepository(db)
	projectRepo := repositories.NewProjectRepository(db)
	catalogRepo := repositories.NewCatalogRepository(db)
	sizingRepo := repositories.NewSizingRepository(db)
	lockRepo := repositories.NewCredentialLockRepository(db)
	auditRepo := repositories.NewAuditLogRepository(db)
	sessionRepo := repositories.NewSessionRepository(db)

	// Signing and session primitives
	signer := auth.NewSigner(cfg.Auth.SecretKey)
	sessions := auth.NewSessionManager(signer, sessionRepo, auth.SessionConfig{
		MaxAge:      cfg.Auth.SessionMaxAge,
		IdleTimeout: cfg.Auth.SessionIdleTimeout,
		Cookie:      auth.CookieConfig{Secure: cfg.Auth.CookieSecure, SameSite: "lax"},
	})
	captcha := auth.NewCaptchaIssuer(signer, cfg.Auth.CaptchaMaxAge)
	resetTokens := auth.NewResetTokenIssuer(signer, cfg.Auth.PasswordResetMaxAge)
	timingDelay := auth.NewTimingDelay(auth.TimingConfig{
		BaseDelayMs:   cfg.Auth.TimingDelayBaseMs,
		RandomDelayMs: cfg.Auth.TimingDelayRandomMs,
	})

	// Email delivery: SES when enabled, structured log otherwise
	var emailService services.EmailService = services.NewLogEmailService(logger)
	if cfg.Email.Enabled {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		ses, err := services.NewAWSSESEmailService(ctx, cfg.Email.AWSRegion, cfg.Email.FromAddress, logger)
		cancel()
		if err != nil {
			logger.Error("failed to initialize email service", slog.Any("error", err))
			os.Exit(1)
		}
		emailService = ses
	}

	// Initialize services
	auditService := services.NewAuditService(auditRepo, logger)
	lockoutService := services.NewLockoutService(lockRepo, services.LockoutConfig{
		MaxFailedAttempts: cfg.Lockout.MaxFailedAttempts,
		Duration:          cfg.Lockout.Duration,
	}, logger)
	authService := services.NewAuthService(userRepo, lockoutService, captcha, timingDelay, auditService, logger)
	resetService := services.NewPasswordResetService(userRepo, resetTokens, sessionRepo, emailService, auditService, logger,
		cfg.Email.ResetURLBase, cfg.Auth.PasswordResetMaxAge)
	userService := services.NewUserService(userRepo, auditService, logger)
	projectService := services.NewProjectService(projectRepo, userRepo, auditService, logger)
	catalogService := services.NewCatalogService(catalogRepo, auditService, logger)
	sizingService := services.NewSizingService(sizingRepo, projectRepo, catalogRepo, auditService, logger)
	reportService := services.NewReportService(userRepo, projectService, sizingService, catalogRepo, auditService, logger)

	// Bootstrap first admin user if configured
	if email, password := os.Getenv("ADMIN_EMAIL"), os.Getenv("ADMIN_PASSWORD"); email != "" && password != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		created, err := userService.EnsureAdmin(ctx, email, password)
		cancel()
		switch {
		case err != nil:
			logger.Error("failed to ensure admin user", slog.Any("error", err))
		case created:
			logger.Info("admin user created")
		default:
			logger.Info("users already exist, skipping admin bootstrap")
		}
	}

	// Initialize handlers
	ipConfig := &pkghttp.IPConfig{TrustedProxies: cfg.Server.TrustedProxies}
	h := routes.Handlers{
		Auth:     handlers.NewAuthHandler(authService, resetService, sessions, ipConfig, logger),
		Account:  handlers.NewAccountHandler(userService, ipConfig),
		Users:    handlers.NewUserHandler(userService, reportService, ipConfig),
		Projects: handlers.NewProjectHandler(projectService, sizingService, reportService, ipConfig),
		Catalog:  handlers.NewCatalogHandler(catalogService, ipConfig),
		Audit:    handlers.NewAuditHandler(auditService, ipConfig),
	}

	// Setup router
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middlewareCustom.SecureLogger(logger, ipConfig))
	router.Use(middleware.Recoverer)
	router.Use(middlewareCustom.SecurityHeaders(middlewareCustom.SecurityHeadersConfig{Env: cfg.Server.Env}))
	router.Use(middlewareCustom.CORS(middlewareCustom.DefaultCORSConfig(cfg.Server.AllowedOrigins)))
	router.Use(middleware.Timeout(60 * time.Second))

	// Health check with database, outside CSRF and sessions
	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		w.Header().Set("Content-Type", "application/json")
		if err := db.HealthCheck(ctx); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"status":"unhealthy","database":"down"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"healthy","database":"up"}`))
	})

	router.Group(func(r chi.Router) {
		r.Use(middlewareCustom.CSRFProtection(middlewareCustom.CSRFConfig{
			AuthKey:        signer.DeriveKey("swgfv-csrf"),
			Secure:         cfg.Auth.CookieSecure,
			TrustedOrigins: originHosts(cfg.Server.AllowedOrigins),
		}, logger))

		routes.RegisterRoutes(r, h, sessions, routes.Limits{
			AuthPerMinute:    cfg.Auth.LoginRequestsPerMinute,
			SessionPerMinute: cfg.Server.RequestsPerMinute,
		}, ipConfig, logger)
	})

	// Create server
	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start audit retention task
	retention := background.NewAuditRetentionManager(auditService, logger, cfg.Audit.CleanupInterval, cfg.Audit.RetentionDays)
	bgCtx, bgCancel := context.WithCancel(context.Background())
	defer bgCancel()
	go retention.Start(bgCtx)

	// Start server
	go func() {
		logger.Info("starting server", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", slog.Any("error", err))
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info("shutdown signal received")
	bgCancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("server stopped gracefully")
}

func parseLevel(level string) slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(level)); err != nil {
		return slog.LevelInfo
	}
	return l
}

// originHosts strips the scheme from configured origins; gorilla/csrf
// compares trusted origins by host.
func originHosts(origins []string) []string {
	hosts := make([]string, 0, len(origins))
	for _, o := range origins {
		o = strings.TrimPrefix(strings.TrimPrefix(o, "https://"), "http://")
		if o != "" {
			hosts = append(hosts, strings.TrimSuffix(o, "/"))
		}
	}
	return hosts
}
