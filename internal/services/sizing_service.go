package services

import (
	"context"
	"errors"
	"log/slog"

	"github.com/BradenHooton/swgfv/internal/models"
	"github.com/BradenHooton/swgfv/internal/sizing"
)

// SizingRepository defines the persistence of sizing inputs and results
type SizingRepository interface {
	Save(ctx context.Context, in *models.SizingInput, res *models.SizingResult) (*models.Sizing, error)
	Get(ctx context.Context, projectID int64) (*models.Sizing, error)
}

// SizingCatalog is the part of the catalog the calculator reads.
type SizingCatalog interface {
	GetPanel(ctx context.Context, id int64) (*models.SolarPanel, error)
	GetIrradiance(ctx context.Context, id int64) (*models.Irradiance, error)
}

// SizingRequest is a submitted sizing form. Consumption is keyed by period key.
type SizingRequest struct {
	ProjectID    int64
	BillingMode  string
	PanelID      int64
	IrradianceID int64
	Efficiency   float64
	Consumption  map[string]float64
}

// SizingService runs and stores project sizings
type SizingService struct {
	repo     SizingRepository
	projects ProjectRepository
	catalog  SizingCatalog
	audit    Auditor
	logger   *slog.Logger
}

// NewSizingService creates a new SizingService
func NewSizingService(repo SizingRepository, projects ProjectRepository, catalog SizingCatalog, audit Auditor, logger *slog.Logger) *SizingService {
	return &SizingService{
		repo:     repo,
		projects: projects,
		catalog:  catalog,
		audit:    audit,
		logger:   logger,
	}
}

// Calculate sizes the project's array and stores input and result together.
// Validation and reference errors are returned as-is and never persisted.
func (s *SizingService) Calculate(ctx context.Context, actor *models.Actor, req SizingRequest) (*models.Sizing, error) {
	mode, err := sizing.ParseBillingMode(req.BillingMode)
	if err != nil {
		return nil, err
	}
	if err := sizing.ValidateEfficiency(req.Efficiency); err != nil {
		return nil, err
	}
	consumption, err := sizing.OrderConsumption(mode, req.Consumption)
	if err != nil {
		return nil, err
	}

	project, err := s.projects.GetByID(ctx, req.ProjectID)
	if err != nil {
		return nil, s.referenceErr("project", req.ProjectID, err)
	}
	if !actor.CanAccessProject(project) {
		return nil, models.ErrForbidden
	}

	panel, err := s.catalog.GetPanel(ctx, req.PanelID)
	if err != nil {
		return nil, s.referenceErr("panel", req.PanelID, err)
	}
	irr, err := s.catalog.GetIrradiance(ctx, req.IrradianceID)
	if err != nil {
		return nil, s.referenceErr("irradiance", req.IrradianceID, err)
	}

	res, err := sizing.Calculate(sizing.Input{
		Mode:        mode,
		Consumption: consumption,
		PanelPowerW: panel.PowerW,
		Irradiance:  sizing.Irradiance{Average: irr.Average, Monthly: irr.Monthly},
		Efficiency:  req.Efficiency,
	})
	if err != nil {
		return nil, err
	}

	saved, err := s.repo.Save(ctx,
		&models.SizingInput{
			ProjectID:    project.ID,
			BillingMode:  string(mode),
			PanelID:      panel.ID,
			IrradianceID: irr.ID,
			Efficiency:   req.Efficiency,
			Consumption:  consumption,
			SubmittedBy:  actor.UserID,
		},
		&models.SizingResult{
			ProjectID:          project.ID,
			AverageConsumption: res.AverageConsumption,
			ReferenceYield:     res.ReferenceYield,
			PanelCount:         res.PanelCount,
			CapacityKW:         res.CapacityKW,
			Periods:            res.Periods,
			AnnualGeneration:   res.AnnualGeneration,
		},
	)
	if err != nil {
		if errors.Is(err, models.ErrInvalidReference) {
			return nil, err
		}
		s.logger.Error("failed to save sizing", slog.Int64("project_id", project.ID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	entry := actorEntry(actor, models.AuditActionSizingSubmit).target(models.AuditTargetProject, project.ID)
	entry.Metadata = models.AuditMetadata{
		"billing_mode": string(mode),
		"panel_count":  res.PanelCount,
		"capacity_kw":  res.CapacityKW,
	}
	s.audit.Record(ctx, entry)

	return saved, nil
}

// Get returns the stored sizing of a project visible to the actor.
func (s *SizingService) Get(ctx context.Context, actor *models.Actor, projectID int64) (*models.Sizing, error) {
	project, err := s.projects.GetByID(ctx, projectID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrNotFound
		}
		s.logger.Error("failed to load project", slog.Int64("project_id", projectID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}
	if !actor.CanAccessProject(project) {
		return nil, models.ErrForbidden
	}

	stored, err := s.repo.Get(ctx, projectID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrNotFound
		}
		s.logger.Error("failed to load sizing", slog.Int64("project_id", projectID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}
	return stored, nil
}

func (s *SizingService) referenceErr(kind string, id int64, err error) error {
	if errors.Is(err, models.ErrNotFound) {
		return models.NewValidationError(kind, kind+" does not exist", models.ErrInvalidReference)
	}
	s.logger.Error("failed to load sizing reference",
		slog.String("reference", kind),
		slog.Int64("id", id),
		slog.Any("error", err),
	)
	return models.ErrInternalServer
}
