package services

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/BradenHooton/swgfv/internal/models"
)

// ProjectRepository defines the interface for project data access
type ProjectRepository interface {
	GetByID(ctx context.Context, id int64) (*models.Project, error)
	Search(ctx context.Context, search models.ProjectSearch) ([]*models.Project, error)
	Create(ctx context.Context, p *models.Project) (*models.Project, error)
	Update(ctx context.Context, p *models.Project) (*models.Project, error)
	Delete(ctx context.Context, id int64) error
}

type ProjectInput struct {
	Name           string
	Company        string
	Address        string
	Coordinates    string
	NominalVoltage string
	Phases         int
}

func (in ProjectInput) validate() error {
	if strings.TrimSpace(in.Name) == "" {
		return models.NewValidationError("name", "project name is required", nil)
	}
	if in.Phases < 1 || in.Phases > 3 {
		return models.NewValidationError("phases", "must be 1, 2 or 3", nil)
	}
	return nil
}

func (in ProjectInput) apply(p *models.Project) {
	p.Name = strings.TrimSpace(in.Name)
	p.Company = strings.TrimSpace(in.Company)
	p.Address = strings.TrimSpace(in.Address)
	p.Coordinates = strings.TrimSpace(in.Coordinates)
	p.NominalVoltage = strings.TrimSpace(in.NominalVoltage)
	p.Phases = in.Phases
}

// ProjectService handles project business logic. Administrators see every
// project; other users see only the projects they own. Changing or deleting
// a project is reserved to administrators.
type ProjectService struct {
	repo   ProjectRepository
	users  UserRepository
	audit  Auditor
	logger *slog.Logger
}

func NewProjectService(repo ProjectRepository, users UserRepository, audit Auditor, logger *slog.Logger) *ProjectService {
	return &ProjectService{
		repo:   repo,
		users:  users,
		audit:  audit,
		logger: logger,
	}
}

// Create registers a project owned by the actor.
func (s *ProjectService) Create(ctx context.Context, actor *models.Actor, in ProjectInput) (*models.Project, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	owner, err := s.users.GetByID(ctx, actor.UserID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrInvalidReference
		}
		s.logger.Error("failed to load project owner", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}
	if !owner.Active {
		return nil, models.ErrForbidden
	}

	p := &models.Project{OwnerID: owner.ID}
	in.apply(p)

	created, err := s.repo.Create(ctx, p)
	if err != nil {
		if errors.Is(err, models.ErrInvalidReference) {
			return nil, err
		}
		s.logger.Error("failed to create project", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	s.audit.Record(ctx, actorEntry(actor, models.AuditActionProjectCreate).target(models.AuditTargetProject, created.ID))
	return created, nil
}

// List searches the projects visible to the actor.
func (s *ProjectService) List(ctx context.Context, actor *models.Actor, search models.ProjectSearch) ([]*models.Project, error) {
	if !actor.IsAdmin() {
		owner := actor.UserID
		search.OwnerID = &owner
	}

	projects, err := s.repo.Search(ctx, search)
	if err != nil {
		s.logger.Error("failed to list projects", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}
	return projects, nil
}

func (s *ProjectService) Get(ctx context.Context, actor *models.Actor, id int64) (*models.Project, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrNotFound
		}
		s.logger.Error("failed to get project", slog.Int64("project_id", id), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}
	if !actor.CanAccessProject(p) {
		return nil, models.ErrForbidden
	}
	return p, nil
}

func (s *ProjectService) Update(ctx context.Context, actor *models.Actor, id int64, in ProjectInput) (*models.Project, error) {
	if !actor.IsAdmin() {
		return nil, models.ErrForbidden
	}
	if err := in.validate(); err != nil {
		return nil, err
	}

	p, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	in.apply(p)

	updated, err := s.repo.Update(ctx, p)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, err
		}
		s.logger.Error("failed to update project", slog.Int64("project_id", id), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	s.audit.Record(ctx, actorEntry(actor, models.AuditActionProjectUpdate).target(models.AuditTargetProject, id))
	return updated, nil
}

// Delete removes a project together with its stored sizing.
func (s *ProjectService) Delete(ctx context.Context, actor *models.Actor, id int64) error {
	if !actor.IsAdmin() {
		return models.ErrForbidden
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return err
		}
		s.logger.Error("failed to delete project", slog.Int64("project_id", id), slog.Any("error", err))
		return models.ErrInternalServer
	}

	s.audit.Record(ctx, actorEntry(actor, models.AuditActionProjectDelete).target(models.AuditTargetProject, id))
	return nil
}
