//go:build integration

package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/BradenHooton/swgfv/internal/auth"
	"github.com/BradenHooton/swgfv/internal/database"
	"github.com/BradenHooton/swgfv/internal/handlers"
	middlewareCustom "github.com/BradenHooton/swgfv/internal/middleware"
	"github.com/BradenHooton/swgfv/internal/repositories"
	"github.com/BradenHooton/swgfv/internal/routes"
	"github.com/BradenHooton/swgfv/internal/services"
	pkghttp "github.com/BradenHooton/swgfv/pkg/http"
)

// SentEmail represents a captured email message
type SentEmail struct {
	To        string
	ResetLink string
}

// MockEmailService captures sent emails for test assertions
type MockEmailService struct {
	mu         sync.Mutex
	SentEmails []SentEmail
}

func (m *MockEmailService) SendPasswordResetEmail(ctx context.Context, email, resetLink string, expiresAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SentEmails = append(m.SentEmails, SentEmail{To: email, ResetLink: resetLink})
	return nil
}

// GetLastEmail returns the most recent email sent
func (m *MockEmailService) GetLastEmail() *SentEmail {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.SentEmails) == 0 {
		return nil
	}
	return &m.SentEmails[len(m.SentEmails)-1]
}

// TestServer wraps httptest.Server with the real services on a test database.
// CSRF protection is left out so tests can post JSON directly.
type TestServer struct {
	Server       *httptest.Server
	DB           *database.DB
	EmailService *MockEmailService
}

const testMaxAttempts = 3

// NewTestServer wires the application the way cmd/api does, with mail captured
func NewTestServer(db *database.DB) *TestServer {
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))

	userRepo := repositories.NewUserRepository(db)
	projectRepo := repositories.NewProjectRepository(db)
	catalogRepo := repositories.NewCatalogRepository(db)
	sizingRepo := repositories.NewSizingRepository(db)
	sessionRepo := repositories.NewSessionRepository(db)

	signer := auth.NewSigner("integration-secret-at-least-32-characters")
	sessions := auth.NewSessionManager(signer, sessionRepo, auth.SessionConfig{
		MaxAge:      8 * time.Hour,
		IdleTimeout: 30 * time.Minute,
	})
	captcha := auth.NewCaptchaIssuer(signer, 10*time.Minute)
	resetTokens := auth.NewResetTokenIssuer(signer, time.Hour)
	timing := auth.NewTimingDelay(auth.TimingConfig{})
	email := &MockEmailService{}

	auditService := services.NewAuditService(repositories.NewAuditLogRepository(db), logger)
	lockout := services.NewLockoutService(repositories.NewCredentialLockRepository(db), services.LockoutConfig{
		MaxFailedAttempts: testMaxAttempts,
		Duration:          15 * time.Minute,
	}, logger)
	authService := services.NewAuthService(userRepo, lockout, captcha, timing, auditService, logger)
	resetService := services.NewPasswordResetService(userRepo, resetTokens, sessionRepo, email, auditService, logger,
		"http://localhost:3000/reset", time.Hour)
	userService := services.NewUserService(userRepo, auditService, logger)
	projectService := services.NewProjectService(projectRepo, userRepo, auditService, logger)
	catalogService := services.NewCatalogService(catalogRepo, auditService, logger)
	sizingService := services.NewSizingService(sizingRepo, projectRepo, catalogRepo, auditService, logger)
	reportService := services.NewReportService(userRepo, projectService, sizingService, catalogRepo, auditService, logger)

	ipConfig := &pkghttp.IPConfig{}
	h := routes.Handlers{
		Auth:     handlers.NewAuthHandler(authService, resetService, sessions, ipConfig, logger),
		Account:  handlers.NewAccountHandler(userService, ipConfig),
		Users:    handlers.NewUserHandler(userService, reportService, ipConfig),
		Projects: handlers.NewProjectHandler(projectService, sizingService, reportService, ipConfig),
		Catalog:  handlers.NewCatalogHandler(catalogService, ipConfig),
		Audit:    handlers.NewAuditHandler(auditService, ipConfig),
	}

	router := chi.NewRouter()
	router.Use(chiMiddleware.RequestID)
	router.Use(middlewareCustom.SecureLogger(logger, ipConfig))
	router.Use(chiMiddleware.Recoverer)
	routes.RegisterRoutes(router, h, sessions, routes.Limits{AuthPerMinute: 1000, SessionPerMinute: 1000}, ipConfig, logger)

	return &TestServer{
		Server:       httptest.NewServer(router),
		DB:           db,
		EmailService: email,
	}
}

// Close shuts down the HTTP server
func (s *TestServer) Close() {
	s.Server.Close()
}

// NewClient returns a client with its own cookie jar, i.e. its own browser session
func (s *TestServer) NewClient() *http.Client {
	jar, _ := cookiejar.New(nil)
	return &http.Client{Jar: jar, Timeout: 10 * time.Second}
}

// DoJSON sends body as JSON and decodes the response into out when non-nil
func (s *TestServer) DoJSON(client *http.Client, method, path string, body, out any) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequest(method, s.Server.URL+path, reader)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil && err != io.EOF {
			return resp, fmt.Errorf("decode response: %w", err)
		}
	}
	return resp, nil
}

// Challenge fetches a captcha and solves it
func (s *TestServer) Challenge(client *http.Client) (token, answer string, err error) {
	var c auth.Challenge
	if _, err := s.DoJSON(client, http.MethodGet, "/auth/challenge", nil, &c); err != nil {
		return "", "", err
	}
	return c.Token, SolveChallenge(c.Question), nil
}

// SolveChallenge answers an "a + b = ?" question
func SolveChallenge(question string) string {
	var a, b int
	if _, err := fmt.Sscanf(strings.TrimSpace(question), "%d + %d = ?", &a, &b); err != nil {
		return ""
	}
	return strconv.Itoa(a + b)
}

// Login solves a fresh challenge and posts the credentials
func (s *TestServer) Login(client *http.Client, username, password string, out any) (*http.Response, error) {
	token, answer, err := s.Challenge(client)
	if err != nil {
		return nil, err
	}
	return s.DoJSON(client, http.MethodPost, "/auth/login", handlers.LoginRequest{
		Username:        username,
		Password:        password,
		ChallengeToken:  token,
		ChallengeAnswer: answer,
	}, out)
}
