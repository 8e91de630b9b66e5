package services

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/BradenHooton/swgfv/internal/auth"
	"github.com/BradenHooton/swgfv/internal/models"
	"github.com/BradenHooton/swgfv/internal/repositories"
	pkgauth "github.com/BradenHooton/swgfv/pkg/auth"
)

// MockUserRepository implements UserRepository for testing
type MockUserRepository struct {
	GetByIDFunc        func(ctx context.Context, id int64) (*models.User, error)
	GetByEmailFunc     func(ctx context.Context, email string) (*models.User, error)
	SearchFunc         func(ctx context.Context, search models.UserSearch) ([]*models.User, error)
	CountFunc          func(ctx context.Context) (int64, error)
	CreateFunc         func(ctx context.Context, user *models.User) (*models.User, error)
	UpdateFunc         func(ctx context.Context, user *models.User) (*models.User, error)
	UpdatePasswordFunc func(ctx context.Context, id int64, passwordHash string) error

	ReplacePasswordFunc func(ctx context.Context, id int64, currentHash, newHash string) error
}

func (m *MockUserRepository) GetByID(ctx context.Context, id int64) (*models.User, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	return nil, models.ErrNotFound
}

func (m *MockUserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	if m.GetByEmailFunc != nil {
		return m.GetByEmailFunc(ctx, email)
	}
	return nil, models.ErrNotFound
}

func (m *MockUserRepository) Search(ctx context.Context, search models.UserSearch) ([]*models.User, error) {
	if m.SearchFunc != nil {
		return m.SearchFunc(ctx, search)
	}
	return []*models.User{}, nil
}

func (m *MockUserRepository) Count(ctx context.Context) (int64, error) {
	if m.CountFunc != nil {
		return m.CountFunc(ctx)
	}
	return 0, nil
}

func (m *MockUserRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, user)
	}
	return nil, models.ErrInternalServer
}

func (m *MockUserRepository) Update(ctx context.Context, user *models.User) (*models.User, error) {
	if m.UpdateFunc != nil {
		return m.UpdateFunc(ctx, user)
	}
	return user, nil
}

func (m *MockUserRepository) UpdatePassword(ctx context.Context, id int64, passwordHash string) error {
	if m.UpdatePasswordFunc != nil {
		return m.UpdatePasswordFunc(ctx, id, passwordHash)
	}
	return nil
}

func (m *MockUserRepository) ReplacePassword(ctx context.Context, id int64, currentHash, newHash string) error {
	if m.ReplacePasswordFunc != nil {
		return m.ReplacePasswordFunc(ctx, id, currentHash, newHash)
	}
	return nil
}

// MockSessionRevoker records users whose sessions were revoked
type MockSessionRevoker struct {
	Users []int64
	Err   error
}

func (m *MockSessionRevoker) DeleteForUser(ctx context.Context, userID int64) (int64, error) {
	if m.Err != nil {
		return 0, m.Err
	}
	m.Users = append(m.Users, userID)
	return 1, nil
}

// MockProjectRepository implements ProjectRepository for testing
type MockProjectRepository struct {
	GetByIDFunc func(ctx context.Context, id int64) (*models.Project, error)
	SearchFunc  func(ctx context.Context, search models.ProjectSearch) ([]*models.Project, error)
	CreateFunc  func(ctx context.Context, p *models.Project) (*models.Project, error)
	UpdateFunc  func(ctx context.Context, p *models.Project) (*models.Project, error)
	DeleteFunc  func(ctx context.Context, id int64) error
}

func (m *MockProjectRepository) GetByID(ctx context.Context, id int64) (*models.Project, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	return nil, models.ErrNotFound
}

func (m *MockProjectRepository) Search(ctx context.Context, search models.ProjectSearch) ([]*models.Project, error) {
	if m.SearchFunc != nil {
		return m.SearchFunc(ctx, search)
	}
	return []*models.Project{}, nil
}

func (m *MockProjectRepository) Create(ctx context.Context, p *models.Project) (*models.Project, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, p)
	}
	return nil, models.ErrInternalServer
}

func (m *MockProjectRepository) Update(ctx context.Context, p *models.Project) (*models.Project, error) {
	if m.UpdateFunc != nil {
		return m.UpdateFunc(ctx, p)
	}
	return p, nil
}

func (m *MockProjectRepository) Delete(ctx context.Context, id int64) error {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, id)
	}
	return nil
}

// MockCatalogRepository implements CatalogRepository for testing
type MockCatalogRepository struct {
	ListPanelsFunc           func(ctx context.Context) ([]*models.SolarPanel, error)
	GetPanelFunc             func(ctx context.Context, id int64) (*models.SolarPanel, error)
	UpsertPanelFunc          func(ctx context.Context, item *models.SolarPanel) (*models.UpsertOutcome, error)
	DeletePanelFunc          func(ctx context.Context, id int64) error
	ImportPanelsFunc         func(ctx context.Context, items []models.SolarPanel, clear bool) (repositories.ImportSummary, error)
	ListInvertersFunc        func(ctx context.Context) ([]*models.Inverter, error)
	GetInverterFunc          func(ctx context.Context, id int64) (*models.Inverter, error)
	UpsertInverterFunc       func(ctx context.Context, item *models.Inverter) (*models.UpsertOutcome, error)
	DeleteInverterFunc       func(ctx context.Context, id int64) error
	ImportInvertersFunc      func(ctx context.Context, items []models.Inverter, clear bool) (repositories.ImportSummary, error)
	ListMicroInvertersFunc   func(ctx context.Context) ([]*models.MicroInverter, error)
	GetMicroInverterFunc     func(ctx context.Context, id int64) (*models.MicroInverter, error)
	UpsertMicroInverterFunc  func(ctx context.Context, item *models.MicroInverter) (*models.UpsertOutcome, error)
	DeleteMicroInverterFunc  func(ctx context.Context, id int64) error
	ImportMicroInvertersFunc func(ctx context.Context, items []models.MicroInverter, clear bool) (repositories.ImportSummary, error)
	ListIrradianceFunc       func(ctx context.Context) ([]*models.Irradiance, error)
	GetIrradianceFunc        func(ctx context.Context, id int64) (*models.Irradiance, error)
	UpsertIrradianceFunc     func(ctx context.Context, item *models.Irradiance) (*models.UpsertOutcome, error)
	DeleteIrradianceFunc     func(ctx context.Context, id int64) error
	ImportIrradianceFunc     func(ctx context.Context, items []models.Irradiance, clear bool) (repositories.ImportSummary, error)
}

func (m *MockCatalogRepository) ListPanels(ctx context.Context) ([]*models.SolarPanel, error) {
	if m.ListPanelsFunc != nil {
		return m.ListPanelsFunc(ctx)
	}
	return []*models.SolarPanel{}, nil
}

func (m *MockCatalogRepository) GetPanel(ctx context.Context, id int64) (*models.SolarPanel, error) {
	if m.GetPanelFunc != nil {
		return m.GetPanelFunc(ctx, id)
	}
	return nil, models.ErrNotFound
}

func (m *MockCatalogRepository) UpsertPanel(ctx context.Context, item *models.SolarPanel) (*models.UpsertOutcome, error) {
	if m.UpsertPanelFunc != nil {
		return m.UpsertPanelFunc(ctx, item)
	}
	return &models.UpsertOutcome{ID: 1, Created: true}, nil
}

func (m *MockCatalogRepository) DeletePanel(ctx context.Context, id int64) error {
	if m.DeletePanelFunc != nil {
		return m.DeletePanelFunc(ctx, id)
	}
	return nil
}

func (m *MockCatalogRepository) ImportPanels(ctx context.Context, items []models.SolarPanel, clear bool) (repositories.ImportSummary, error) {
	if m.ImportPanelsFunc != nil {
		return m.ImportPanelsFunc(ctx, items, clear)
	}
	return repositories.ImportSummary{Created: len(items)}, nil
}

func (m *MockCatalogRepository) ListInverters(ctx context.Context) ([]*models.Inverter, error) {
	if m.ListInvertersFunc != nil {
		return m.ListInvertersFunc(ctx)
	}
	return []*models.Inverter{}, nil
}

func (m *MockCatalogRepository) GetInverter(ctx context.Context, id int64) (*models.Inverter, error) {
	if m.GetInverterFunc != nil {
		return m.GetInverterFunc(ctx, id)
	}
	return nil, models.ErrNotFound
}

func (m *MockCatalogRepository) UpsertInverter(ctx context.Context, item *models.Inverter) (*models.UpsertOutcome, error) {
	if m.UpsertInverterFunc != nil {
		return m.UpsertInverterFunc(ctx, item)
	}
	return &models.UpsertOutcome{ID: 1, Created: true}, nil
}

func (m *MockCatalogRepository) DeleteInverter(ctx context.Context, id int64) error {
	if m.DeleteInverterFunc != nil {
		return m.DeleteInverterFunc(ctx, id)
	}
	return nil
}

func (m *MockCatalogRepository) ImportInverters(ctx context.Context, items []models.Inverter, clear bool) (repositories.ImportSummary, error) {
	if m.ImportInvertersFunc != nil {
		return m.ImportInvertersFunc(ctx, items, clear)
	}
	return repositories.ImportSummary{Created: len(items)}, nil
}

func (m *MockCatalogRepository) ListMicroInverters(ctx context.Context) ([]*models.MicroInverter, error) {
	if m.ListMicroInvertersFunc != nil {
		return m.ListMicroInvertersFunc(ctx)
	}
	return []*models.MicroInverter{}, nil
}

func (m *MockCatalogRepository) GetMicroInverter(ctx context.Context, id int64) (*models.MicroInverter, error) {
	if m.GetMicroInverterFunc != nil {
		return m.GetMicroInverterFunc(ctx, id)
	}
	return nil, models.ErrNotFound
}

func (m *MockCatalogRepository) UpsertMicroInverter(ctx context.Context, item *models.MicroInverter) (*models.UpsertOutcome, error) {
	if m.UpsertMicroInverterFunc != nil {
		return m.UpsertMicroInverterFunc(ctx, item)
	}
	return &models.UpsertOutcome{ID: 1, Created: true}, nil
}

func (m *MockCatalogRepository) DeleteMicroInverter(ctx context.Context, id int64) error {
	if m.DeleteMicroInverterFunc != nil {
		return m.DeleteMicroInverterFunc(ctx, id)
	}
	return nil
}

func (m *MockCatalogRepository) ImportMicroInverters(ctx context.Context, items []models.MicroInverter, clear bool) (repositories.ImportSummary, error) {
	if m.ImportMicroInvertersFunc != nil {
		return m.ImportMicroInvertersFunc(ctx, items, clear)
	}
	return repositories.ImportSummary{Created: len(items)}, nil
}

func (m *MockCatalogRepository) ListIrradiance(ctx context.Context) ([]*models.Irradiance, error) {
	if m.ListIrradianceFunc != nil {
		return m.ListIrradianceFunc(ctx)
	}
	return []*models.Irradiance{}, nil
}

func (m *MockCatalogRepository) GetIrradiance(ctx context.Context, id int64) (*models.Irradiance, error) {
	if m.GetIrradianceFunc != nil {
		return m.GetIrradianceFunc(ctx, id)
	}
	return nil, models.ErrNotFound
}

func (m *MockCatalogRepository) UpsertIrradiance(ctx context.Context, item *models.Irradiance) (*models.UpsertOutcome, error) {
	if m.UpsertIrradianceFunc != nil {
		return m.UpsertIrradianceFunc(ctx, item)
	}
	return &models.UpsertOutcome{ID: 1, Created: true}, nil
}

func (m *MockCatalogRepository) DeleteIrradiance(ctx context.Context, id int64) error {
	if m.DeleteIrradianceFunc != nil {
		return m.DeleteIrradianceFunc(ctx, id)
	}
	return nil
}

func (m *MockCatalogRepository) ImportIrradiance(ctx context.Context, items []models.Irradiance, clear bool) (repositories.ImportSummary, error) {
	if m.ImportIrradianceFunc != nil {
		return m.ImportIrradianceFunc(ctx, items, clear)
	}
	return repositories.ImportSummary{Created: len(items)}, nil
}

// MockSizingRepository implements SizingRepository for testing
type MockSizingRepository struct {
	SaveFunc func(ctx context.Context, in *models.SizingInput, res *models.SizingResult) (*models.Sizing, error)
	GetFunc  func(ctx context.Context, projectID int64) (*models.Sizing, error)
}

func (m *MockSizingRepository) Save(ctx context.Context, in *models.SizingInput, res *models.SizingResult) (*models.Sizing, error) {
	if m.SaveFunc != nil {
		return m.SaveFunc(ctx, in, res)
	}
	return &models.Sizing{Input: *in, Result: *res}, nil
}

func (m *MockSizingRepository) Get(ctx context.Context, projectID int64) (*models.Sizing, error) {
	if m.GetFunc != nil {
		return m.GetFunc(ctx, projectID)
	}
	return nil, models.ErrNotFound
}

// MockAuditLogRepository implements AuditLogRepository for testing
type MockAuditLogRepository struct {
	CreateFunc          func(ctx context.Context, log *models.AuditLog) (*models.AuditLog, error)
	ListFunc            func(ctx context.Context, filter models.AuditLogFilter) ([]*models.AuditLog, error)
	DeleteOlderThanFunc func(ctx context.Context, cutoff time.Time) (int64, error)
}

func (m *MockAuditLogRepository) Create(ctx context.Context, log *models.AuditLog) (*models.AuditLog, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, log)
	}
	return log, nil
}

func (m *MockAuditLogRepository) List(ctx context.Context, filter models.AuditLogFilter) ([]*models.AuditLog, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx, filter)
	}
	return []*models.AuditLog{}, nil
}

func (m *MockAuditLogRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	if m.DeleteOlderThanFunc != nil {
		return m.DeleteOlderThanFunc(ctx, cutoff)
	}
	return 0, nil
}

// MockEmailService implements EmailService for testing
type MockEmailService struct {
	SendPasswordResetEmailFunc func(ctx context.Context, email, resetLink string, expiresAt time.Time) error
}

func (m *MockEmailService) SendPasswordResetEmail(ctx context.Context, email, resetLink string, expiresAt time.Time) error {
	if m.SendPasswordResetEmailFunc != nil {
		return m.SendPasswordResetEmailFunc(ctx, email, resetLink, expiresAt)
	}
	return nil
}

// MockResetTokens implements ResetTokens for testing
type MockResetTokens struct {
	IssueFunc func(userID int64, passwordHash string) (string, error)
	ParseFunc func(token string) (*auth.ResetToken, error)
}

func (m *MockResetTokens) Issue(userID int64, passwordHash string) (string, error) {
	if m.IssueFunc != nil {
		return m.IssueFunc(userID, passwordHash)
	}
	return "reset-token", nil
}

func (m *MockResetTokens) Parse(token string) (*auth.ResetToken, error) {
	if m.ParseFunc != nil {
		return m.ParseFunc(token)
	}
	return nil, auth.ErrTokenInvalid
}

// MockChallengeIssuer implements ChallengeIssuer for testing. Answer is the
// only accepted answer when VerifyFunc is unset.
type MockChallengeIssuer struct {
	Answer     string
	VerifyFunc func(token, answer string) error
	issued     int
}

func (m *MockChallengeIssuer) Issue() (*auth.Challenge, error) {
	m.issued++
	return &auth.Challenge{Question: "1 + 1 = ?", Token: fmt.Sprintf("challenge-%d", m.issued)}, nil
}

func (m *MockChallengeIssuer) Verify(token, answer string) error {
	if m.VerifyFunc != nil {
		return m.VerifyFunc(token, answer)
	}
	if answer != m.Answer {
		return auth.ErrChallengeMismatch
	}
	return nil
}

// MockCredentialLockRepository keeps locks in memory. Mutate is serialized
// like the row lock of the real repository.
type MockCredentialLockRepository struct {
	mu    sync.Mutex
	locks map[string]models.CredentialLock

	GetErr    error
	MutateErr error
}

func NewMockCredentialLockRepository() *MockCredentialLockRepository {
	return &MockCredentialLockRepository{locks: make(map[string]models.CredentialLock)}
}

func (m *MockCredentialLockRepository) Get(ctx context.Context, identifier string) (*models.CredentialLock, error) {
	if m.GetErr != nil {
		return nil, m.GetErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	lock := m.locks[identifier]
	lock.Identifier = identifier
	return &lock, nil
}

func (m *MockCredentialLockRepository) Mutate(ctx context.Context, identifier string, fn func(*models.CredentialLock) error) (*models.CredentialLock, error) {
	if m.MutateErr != nil {
		return nil, m.MutateErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	lock := m.locks[identifier]
	lock.Identifier = identifier
	if err := fn(&lock); err != nil {
		return nil, err
	}
	m.locks[identifier] = lock
	return &lock, nil
}

// Stored returns the stored lock and whether a row exists.
func (m *MockCredentialLockRepository) Stored(identifier string) (models.CredentialLock, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	lock, ok := m.locks[identifier]
	return lock, ok
}

// Set stores a lock state directly.
func (m *MockCredentialLockRepository) Set(lock models.CredentialLock) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.locks[lock.Identifier] = lock
}

// MockAuditor captures recorded entries.
type MockAuditor struct {
	mu      sync.Mutex
	Entries []AuditEntry
}

func (m *MockAuditor) Record(ctx context.Context, entry AuditEntry) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Entries = append(m.Entries, entry)
}

// Actions lists the recorded actions in order.
func (m *MockAuditor) Actions() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	actions := make([]string, len(m.Entries))
	for i, e := range m.Entries {
		actions[i] = e.Action
	}
	return actions
}

// Last returns the most recent entry.
func (m *MockAuditor) Last() AuditEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.Entries) == 0 {
		return AuditEntry{}
	}
	return m.Entries[len(m.Entries)-1]
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func adminActor() *models.Actor {
	return &models.Actor{UserID: 1, Email: "admin@example.com", Role: models.RoleAdmin, IPAddress: "203.0.113.10"}
}

func generalActor(id int64) *models.Actor {
	return &models.Actor{UserID: id, Email: fmt.Sprintf("user%d@example.com", id), Role: models.RoleGeneral, IPAddress: "203.0.113.20"}
}

// NewTestUser returns an active general user whose password is password.
func NewTestUser(id int64, email, password string) *models.User {
	hash, err := pkgauth.HashPasswordWithCost(password, passwordCost)
	if err != nil {
		panic(err)
	}
	now := time.Now()
	return &models.User{
		ID:              id,
		Email:           email,
		PasswordHash:    hash,
		FirstName:       "Test",
		PaternalSurname: "User",
		Role:            models.RoleGeneral,
		Active:          true,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}
