package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"

	"github.com/BradenHooton/swgfv/internal/auth"
	"github.com/BradenHooton/swgfv/internal/models"
	"github.com/BradenHooton/swgfv/internal/services"
	pkghttp "github.com/BradenHooton/swgfv/pkg/http"
)

// NewTestRequest creates an HTTP request with JSON body for testing
func NewTestRequest(t *testing.T, method, url string, body interface{}) *http.Request {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("failed to encode request body: %v", err)
		}
	}
	req := httptest.NewRequest(method, url, &buf)
	req.Header.Set("Content-Type", "application/json")
	return req
}

// WithSession adds a session to the request context for testing authenticated endpoints
func WithSession(req *http.Request, userID int64, email, role string) *http.Request {
	now := time.Now()
	s := &auth.Session{ID: fmt.Sprintf("sess-%d", userID), UserID: userID, Identifier: email, Role: role, IssuedAt: now, LastSeen: now}
	return req.WithContext(auth.WithSession(req.Context(), s))
}

// WithAdminSession adds an admin session to the request context
func WithAdminSession(req *http.Request) *http.Request {
	return WithSession(req, 1, "admin@example.com", models.RoleAdmin)
}

// WithURLParam sets a chi route parameter on the request
func WithURLParam(req *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

// AssertJSONResponse checks that response has correct status and decodes JSON body
func AssertJSONResponse(t *testing.T, w *httptest.ResponseRecorder, expectedStatus int, target interface{}) {
	assert.Equal(t, expectedStatus, w.Code, "Response status mismatch")

	contentType := w.Header().Get("Content-Type")
	assert.Equal(t, "application/json", contentType, "Content-Type should be application/json")

	if target != nil {
		err := json.Unmarshal(w.Body.Bytes(), target)
		assert.NoError(t, err, "Failed to decode response JSON")
	}
}

// AssertErrorResponse checks that response is a valid error response
func AssertErrorResponse(t *testing.T, w *httptest.ResponseRecorder, expectedStatus int, expectedError string) {
	assert.Equal(t, expectedStatus, w.Code, "Response status mismatch")

	var resp pkghttp.ErrorResponse
	err := json.Unmarshal(w.Body.Bytes(), &resp)
	assert.NoError(t, err, "Failed to decode error response")
	assert.Equal(t, expectedError, resp.Error, "Error code mismatch")
	assert.NotEmpty(t, resp.Message, "Error message should not be empty")
}

// MockAuthService implements AuthServiceInterface for testing
type MockAuthService struct {
	IssueChallengeFunc func() (*auth.Challenge, error)
	MaxAttemptsFunc    func() int
	LoginFunc          func(ctx context.Context, attempt models.LoginAttempt) (*models.LoginResult, error)
	LogoutFunc         func(ctx context.Context, actor *models.Actor)
}

func (m *MockAuthService) IssueChallenge() (*auth.Challenge, error) {
	if m.IssueChallengeFunc == nil {
		return &auth.Challenge{Question: "2 + 3", Token: "challenge-token"}, nil
	}
	return m.IssueChallengeFunc()
}

func (m *MockAuthService) MaxAttempts() int {
	if m.MaxAttemptsFunc == nil {
		return 3
	}
	return m.MaxAttemptsFunc()
}

func (m *MockAuthService) Login(ctx context.Context, attempt models.LoginAttempt) (*models.LoginResult, error) {
	if m.LoginFunc == nil {
		return nil, &models.LoginError{Kind: models.LoginFailCredentials, Attempts: 1, MaxAttempts: 3}
	}
	return m.LoginFunc(ctx, attempt)
}

func (m *MockAuthService) Logout(ctx context.Context, actor *models.Actor) {
	if m.LogoutFunc != nil {
		m.LogoutFunc(ctx, actor)
	}
}

// MockPasswordResetService implements PasswordResetServiceInterface for testing
type MockPasswordResetService struct {
	RequestFunc func(ctx context.Context, email string, meta services.RequestMeta)
	ConfirmFunc func(ctx context.Context, token, password, confirmation string, meta services.RequestMeta) error
}

func (m *MockPasswordResetService) Request(ctx context.Context, email string, meta services.RequestMeta) {
	if m.RequestFunc != nil {
		m.RequestFunc(ctx, email, meta)
	}
}

func (m *MockPasswordResetService) Confirm(ctx context.Context, token, password, confirmation string, meta services.RequestMeta) error {
	if m.ConfirmFunc == nil {
		return models.ErrInvalidToken
	}
	return m.ConfirmFunc(ctx, token, password, confirmation, meta)
}

// MockUserService implements UserService for testing
type MockUserService struct {
	CreateFunc     func(ctx context.Context, actor *models.Actor, in services.CreateUserInput) (*models.User, error)
	GetFunc        func(ctx context.Context, actor *models.Actor, id int64) (*models.User, error)
	SearchFunc     func(ctx context.Context, actor *models.Actor, search models.UserSearch) ([]*models.User, error)
	UpdateFunc     func(ctx context.Context, actor *models.Actor, id int64, in services.UpdateUserInput) (*models.User, error)
	DeactivateFunc func(ctx context.Context, actor *models.Actor, id int64) error
}

func (m *MockUserService) Create(ctx context.Context, actor *models.Actor, in services.CreateUserInput) (*models.User, error) {
	if m.CreateFunc == nil {
		return nil, models.ErrConflict
	}
	return m.CreateFunc(ctx, actor, in)
}

func (m *MockUserService) Get(ctx context.Context, actor *models.Actor, id int64) (*models.User, error) {
	if m.GetFunc == nil {
		return nil, models.ErrNotFound
	}
	return m.GetFunc(ctx, actor, id)
}

func (m *MockUserService) Search(ctx context.Context, actor *models.Actor, search models.UserSearch) ([]*models.User, error) {
	if m.SearchFunc == nil {
		return []*models.User{}, nil
	}
	return m.SearchFunc(ctx, actor, search)
}

func (m *MockUserService) Update(ctx context.Context, actor *models.Actor, id int64, in services.UpdateUserInput) (*models.User, error) {
	if m.UpdateFunc == nil {
		return nil, models.ErrNotFound
	}
	return m.UpdateFunc(ctx, actor, id, in)
}

func (m *MockUserService) Deactivate(ctx context.Context, actor *models.Actor, id int64) error {
	if m.DeactivateFunc == nil {
		return nil
	}
	return m.DeactivateFunc(ctx, actor, id)
}

// MockReporter implements Reporter for testing
type MockReporter struct {
	ExportUsersFunc   func(ctx context.Context, actor *models.Actor, format string, w io.Writer) error
	ProjectReportFunc func(ctx context.Context, actor *models.Actor, projectID int64, w io.Writer) error
}

func (m *MockReporter) ExportUsers(ctx context.Context, actor *models.Actor, format string, w io.Writer) error {
	if m.ExportUsersFunc == nil {
		return models.ErrForbidden
	}
	return m.ExportUsersFunc(ctx, actor, format, w)
}

func (m *MockReporter) ProjectReport(ctx context.Context, actor *models.Actor, projectID int64, w io.Writer) error {
	if m.ProjectReportFunc == nil {
		return models.ErrNotFound
	}
	return m.ProjectReportFunc(ctx, actor, projectID, w)
}

// MockProjectService implements ProjectService for testing
type MockProjectService struct {
	CreateFunc func(ctx context.Context, actor *models.Actor, in services.ProjectInput) (*models.Project, error)
	ListFunc   func(ctx context.Context, actor *models.Actor, search models.ProjectSearch) ([]*models.Project, error)
	GetFunc    func(ctx context.Context, actor *models.Actor, id int64) (*models.Project, error)
	UpdateFunc func(ctx context.Context, actor *models.Actor, id int64, in services.ProjectInput) (*models.Project, error)
	DeleteFunc func(ctx context.Context, actor *models.Actor, id int64) error
}

func (m *MockProjectService) Create(ctx context.Context, actor *models.Actor, in services.ProjectInput) (*models.Project, error) {
	if m.CreateFunc == nil {
		return nil, models.ErrInternalServer
	}
	return m.CreateFunc(ctx, actor, in)
}

func (m *MockProjectService) List(ctx context.Context, actor *models.Actor, search models.ProjectSearch) ([]*models.Project, error) {
	if m.ListFunc == nil {
		return []*models.Project{}, nil
	}
	return m.ListFunc(ctx, actor, search)
}

func (m *MockProjectService) Get(ctx context.Context, actor *models.Actor, id int64) (*models.Project, error) {
	if m.GetFunc == nil {
		return nil, models.ErrNotFound
	}
	return m.GetFunc(ctx, actor, id)
}

func (m *MockProjectService) Update(ctx context.Context, actor *models.Actor, id int64, in services.ProjectInput) (*models.Project, error) {
	if m.UpdateFunc == nil {
		return nil, models.ErrNotFound
	}
	return m.UpdateFunc(ctx, actor, id, in)
}

func (m *MockProjectService) Delete(ctx context.Context, actor *models.Actor, id int64) error {
	if m.DeleteFunc == nil {
		return nil
	}
	return m.DeleteFunc(ctx, actor, id)
}

// MockSizingService implements SizingService for testing
type MockSizingService struct {
	CalculateFunc func(ctx context.Context, actor *models.Actor, req services.SizingRequest) (*models.Sizing, error)
	GetFunc       func(ctx context.Context, actor *models.Actor, projectID int64) (*models.Sizing, error)
}

func (m *MockSizingService) Calculate(ctx context.Context, actor *models.Actor, req services.SizingRequest) (*models.Sizing, error) {
	if m.CalculateFunc == nil {
		return nil, models.ErrNotFound
	}
	return m.CalculateFunc(ctx, actor, req)
}

func (m *MockSizingService) Get(ctx context.Context, actor *models.Actor, projectID int64) (*models.Sizing, error) {
	if m.GetFunc == nil {
		return nil, models.ErrNotFound
	}
	return m.GetFunc(ctx, actor, projectID)
}

// MockAuditService implements AuditService for testing
type MockAuditService struct {
	ListFunc func(ctx context.Context, actor *models.Actor, filter models.AuditLogFilter) ([]*models.AuditLog, error)
}

func (m *MockAuditService) List(ctx context.Context, actor *models.Actor, filter models.AuditLogFilter) ([]*models.AuditLog, error) {
	if m.ListFunc == nil {
		return []*models.AuditLog{}, nil
	}
	return m.ListFunc(ctx, actor, filter)
}

// MockCatalogService implements CatalogService for testing
type MockCatalogService struct {
	ListPanelsFunc          func(ctx context.Context) ([]*models.SolarPanel, error)
	GetPanelFunc            func(ctx context.Context, id int64) (*models.SolarPanel, error)
	SavePanelFunc           func(ctx context.Context, actor *models.Actor, item *models.SolarPanel) (*models.UpsertOutcome, error)
	DeletePanelFunc         func(ctx context.Context, actor *models.Actor, id int64) error
	ListInvertersFunc       func(ctx context.Context) ([]*models.Inverter, error)
	GetInverterFunc         func(ctx context.Context, id int64) (*models.Inverter, error)
	SaveInverterFunc        func(ctx context.Context, actor *models.Actor, item *models.Inverter) (*models.UpsertOutcome, error)
	DeleteInverterFunc      func(ctx context.Context, actor *models.Actor, id int64) error
	ListMicroInvertersFunc  func(ctx context.Context) ([]*models.MicroInverter, error)
	GetMicroInverterFunc    func(ctx context.Context, id int64) (*models.MicroInverter, error)
	SaveMicroInverterFunc   func(ctx context.Context, actor *models.Actor, item *models.MicroInverter) (*models.UpsertOutcome, error)
	DeleteMicroInverterFunc func(ctx context.Context, actor *models.Actor, id int64) error
	ListIrradianceFunc      func(ctx context.Context) ([]*models.Irradiance, error)
	GetIrradianceFunc       func(ctx context.Context, id int64) (*models.Irradiance, error)
	SaveIrradianceFunc      func(ctx context.Context, actor *models.Actor, item *models.Irradiance) (*models.UpsertOutcome, error)
	DeleteIrradianceFunc    func(ctx context.Context, actor *models.Actor, id int64) error
}

func (m *MockCatalogService) ListPanels(ctx context.Context) ([]*models.SolarPanel, error) {
	if m.ListPanelsFunc == nil {
		return []*models.SolarPanel{}, nil
	}
	return m.ListPanelsFunc(ctx)
}

func (m *MockCatalogService) GetPanel(ctx context.Context, id int64) (*models.SolarPanel, error) {
	if m.GetPanelFunc == nil {
		return nil, models.ErrNotFound
	}
	return m.GetPanelFunc(ctx, id)
}

func (m *MockCatalogService) SavePanel(ctx context.Context, actor *models.Actor, item *models.SolarPanel) (*models.UpsertOutcome, error) {
	if m.SavePanelFunc == nil {
		return &models.UpsertOutcome{ID: 1, Created: true}, nil
	}
	return m.SavePanelFunc(ctx, actor, item)
}

func (m *MockCatalogService) DeletePanel(ctx context.Context, actor *models.Actor, id int64) error {
	if m.DeletePanelFunc == nil {
		return nil
	}
	return m.DeletePanelFunc(ctx, actor, id)
}

func (m *MockCatalogService) ListInverters(ctx context.Context) ([]*models.Inverter, error) {
	if m.ListInvertersFunc == nil {
		return []*models.Inverter{}, nil
	}
	return m.ListInvertersFunc(ctx)
}

func (m *MockCatalogService) GetInverter(ctx context.Context, id int64) (*models.Inverter, error) {
	if m.GetInverterFunc == nil {
		return nil, models.ErrNotFound
	}
	return m.GetInverterFunc(ctx, id)
}

func (m *MockCatalogService) SaveInverter(ctx context.Context, actor *models.Actor, item *models.Inverter) (*models.UpsertOutcome, error) {
	if m.SaveInverterFunc == nil {
		return &models.UpsertOutcome{ID: 1, Created: true}, nil
	}
	return m.SaveInverterFunc(ctx, actor, item)
}

func (m *MockCatalogService) DeleteInverter(ctx context.Context, actor *models.Actor, id int64) error {
	if m.DeleteInverterFunc == nil {
		return nil
	}
	return m.DeleteInverterFunc(ctx, actor, id)
}

func (m *MockCatalogService) ListMicroInverters(ctx context.Context) ([]*models.MicroInverter, error) {
	if m.ListMicroInvertersFunc == nil {
		return []*models.MicroInverter{}, nil
	}
	return m.ListMicroInvertersFunc(ctx)
}

func (m *MockCatalogService) GetMicroInverter(ctx context.Context, id int64) (*models.MicroInverter, error) {
	if m.GetMicroInverterFunc == nil {
		return nil, models.ErrNotFound
	}
	return m.GetMicroInverterFunc(ctx, id)
}

func (m *MockCatalogService) SaveMicroInverter(ctx context.Context, actor *models.Actor, item *models.MicroInverter) (*models.UpsertOutcome, error) {
	if m.SaveMicroInverterFunc == nil {
		return &models.UpsertOutcome{ID: 1, Created: true}, nil
	}
	return m.SaveMicroInverterFunc(ctx, actor, item)
}

func (m *MockCatalogService) DeleteMicroInverter(ctx context.Context, actor *models.Actor, id int64) error {
	if m.DeleteMicroInverterFunc == nil {
		return nil
	}
	return m.DeleteMicroInverterFunc(ctx, actor, id)
}

func (m *MockCatalogService) ListIrradiance(ctx context.Context) ([]*models.Irradiance, error) {
	if m.ListIrradianceFunc == nil {
		return []*models.Irradiance{}, nil
	}
	return m.ListIrradianceFunc(ctx)
}

func (m *MockCatalogService) GetIrradiance(ctx context.Context, id int64) (*models.Irradiance, error) {
	if m.GetIrradianceFunc == nil {
		return nil, models.ErrNotFound
	}
	return m.GetIrradianceFunc(ctx, id)
}

func (m *MockCatalogService) SaveIrradiance(ctx context.Context, actor *models.Actor, item *models.Irradiance) (*models.UpsertOutcome, error) {
	if m.SaveIrradianceFunc == nil {
		return &models.UpsertOutcome{ID: 1, Created: true}, nil
	}
	return m.SaveIrradianceFunc(ctx, actor, item)
}

func (m *MockCatalogService) DeleteIrradiance(ctx context.Context, actor *models.Actor, id int64) error {
	if m.DeleteIrradianceFunc == nil {
		return nil
	}
	return m.DeleteIrradianceFunc(ctx, actor, id)
}

// MockSessions records issued and revoked sessions
type MockSessions struct {
	Issued    []*models.LoginResult
	Revoked   []*auth.Session
	IssueErr  error
	RevokeErr error
}

func (m *MockSessions) Issue(ctx context.Context, w http.ResponseWriter, result *models.LoginResult) (*auth.Session, error) {
	if m.IssueErr != nil {
		return nil, m.IssueErr
	}
	m.Issued = append(m.Issued, result)
	return &auth.Session{ID: "sess-1", UserID: result.UserID, Identifier: result.Identifier, Role: result.Role}, nil
}

func (m *MockSessions) Revoke(ctx context.Context, w http.ResponseWriter, s *auth.Session) error {
	if m.RevokeErr != nil {
		return m.RevokeErr
	}
	m.Revoked = append(m.Revoked, s)
	return nil
}

// NewTestUser returns a populated active user
func NewTestUser(id int64, email, role string) *models.User {
	now := time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)
	return &models.User{
		ID:              id,
		Email:           email,
		FirstName:       "Ana",
		PaternalSurname: "Lopez",
		MaternalSurname: "Diaz",
		Role:            role,
		Active:          true,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}
