package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/BradenHooton/swgfv/internal/models"
	"github.com/BradenHooton/swgfv/internal/repositories"
)

// Catalog names
const (
	CatalogPanels         = "panels"
	CatalogInverters      = "inverters"
	CatalogMicroInverters = "microinverters"
	CatalogIrradiance     = "irradiance"
)

// CatalogRepository defines the interface for catalog data access
type CatalogRepository interface {
	ListPanels(ctx context.Context) ([]*models.SolarPanel, error)
	GetPanel(ctx context.Context, id int64) (*models.SolarPanel, error)
	UpsertPanel(ctx context.Context, p *models.SolarPanel) (*models.UpsertOutcome, error)
	DeletePanel(ctx context.Context, id int64) error
	ImportPanels(ctx context.Context, panels []models.SolarPanel, clear bool) (repositories.ImportSummary, error)

	ListInverters(ctx context.Context) ([]*models.Inverter, error)
	GetInverter(ctx context.Context, id int64) (*models.Inverter, error)
	UpsertInverter(ctx context.Context, inv *models.Inverter) (*models.UpsertOutcome, error)
	DeleteInverter(ctx context.Context, id int64) error
	ImportInverters(ctx context.Context, items []models.Inverter, clear bool) (repositories.ImportSummary, error)

	ListMicroInverters(ctx context.Context) ([]*models.MicroInverter, error)
	GetMicroInverter(ctx context.Context, id int64) (*models.MicroInverter, error)
	UpsertMicroInverter(ctx context.Context, m *models.MicroInverter) (*models.UpsertOutcome, error)
	DeleteMicroInverter(ctx context.Context, id int64) error
	ImportMicroInverters(ctx context.Context, items []models.MicroInverter, clear bool) (repositories.ImportSummary, error)

	ListIrradiance(ctx context.Context) ([]*models.Irradiance, error)
	GetIrradiance(ctx context.Context, id int64) (*models.Irradiance, error)
	UpsertIrradiance(ctx context.Context, irr *models.Irradiance) (*models.UpsertOutcome, error)
	DeleteIrradiance(ctx context.Context, id int64) error
	ImportIrradiance(ctx context.Context, items []models.Irradiance, clear bool) (repositories.ImportSummary, error)
}

// CatalogService exposes the equipment and irradiance catalogs. Reads are open
// to every authenticated user; writes are admin only.
type CatalogService struct {
	repo   CatalogRepository
	audit  Auditor
	logger *slog.Logger
}

func NewCatalogService(repo CatalogRepository, audit Auditor, logger *slog.Logger) *CatalogService {
	return &CatalogService{
		repo:   repo,
		audit:  audit,
		logger: logger,
	}
}

func (s *CatalogService) readErr(catalog string, err error) error {
	if errors.Is(err, models.ErrNotFound) {
		return models.ErrNotFound
	}
	s.logger.Error("failed to read catalog", slog.String("catalog", catalog), slog.Any("error", err))
	return models.ErrInternalServer
}

func (s *CatalogService) writeErr(catalog string, err error) error {
	switch {
	case errors.Is(err, models.ErrNotFound), errors.Is(err, models.ErrConflict), errors.Is(err, models.ErrBadRequest):
		return err
	case errors.Is(err, models.ErrInvalidReference):
		return models.NewConflictError("entry is used by a project sizing")
	}
	s.logger.Error("failed to write catalog", slog.String("catalog", catalog), slog.Any("error", err))
	return models.ErrInternalServer
}

func (s *CatalogService) recordWrite(ctx context.Context, actor *models.Actor, action, catalog string, id int64, created bool) {
	entry := actorEntry(actor, action).target(models.AuditTargetCatalog, id)
	entry.Metadata = models.AuditMetadata{"catalog": catalog}
	if action == models.AuditActionCatalogUpsert {
		entry.Metadata["created"] = created
	}
	s.audit.Record(ctx, entry)
}

// Validation

func ValidatePanel(p *models.SolarPanel) error {
	p.Brand, p.Model = strings.TrimSpace(p.Brand), strings.TrimSpace(p.Model)
	if p.ModuleID <= 0 {
		return models.NewValidationError("module_id", "must be a positive integer", nil)
	}
	if p.Brand == "" || p.Model == "" {
		return models.NewValidationError("model", "brand and model are required", nil)
	}
	if p.PowerW <= 0 {
		return models.NewValidationError("power_w", "must be positive", nil)
	}
	return nil
}

func ValidateInverter(inv *models.Inverter) error {
	inv.Brand, inv.Model = strings.TrimSpace(inv.Brand), strings.TrimSpace(inv.Model)
	if inv.Brand == "" || inv.Model == "" {
		return models.NewValidationError("model", "brand and model are required", nil)
	}
	if inv.PowerW < 0 {
		return models.NewValidationError("power_w", "cannot be negative", nil)
	}
	return nil
}

func ValidateMicroInverter(m *models.MicroInverter) error {
	m.Brand, m.Model = strings.TrimSpace(m.Brand), strings.TrimSpace(m.Model)
	if m.Brand == "" || m.Model == "" {
		return models.NewValidationError("model", "brand and model are required", nil)
	}
	if m.PowerW < 0 {
		return models.NewValidationError("power_w", "cannot be negative", nil)
	}
	if m.Channels < 1 {
		return models.NewValidationError("channels", "must be at least 1", nil)
	}
	return nil
}

func ValidateIrradiance(irr *models.Irradiance) error {
	irr.City, irr.State = strings.TrimSpace(irr.City), strings.TrimSpace(irr.State)
	if irr.City == "" {
		return models.NewValidationError("city", "city is required", nil)
	}
	if irr.Average < 0 {
		return models.NewValidationError("average", "cannot be negative", nil)
	}
	for i, v := range irr.Monthly {
		if v < 0 {
			return models.NewValidationError(fmt.Sprintf("monthly[%d]", i), "cannot be negative", nil)
		}
	}
	return nil
}

// Panels

func (s *CatalogService) ListPanels(ctx context.Context) ([]*models.SolarPanel, error) {
	items, err := s.repo.ListPanels(ctx)
	if err != nil {
		return nil, s.readErr(CatalogPanels, err)
	}
	return items, nil
}

func (s *CatalogService) GetPanel(ctx context.Context, id int64) (*models.SolarPanel, error) {
	item, err := s.repo.GetPanel(ctx, id)
	if err != nil {
		return nil, s.readErr(CatalogPanels, err)
	}
	return item, nil
}

// SavePanel creates or updates a panel keyed by its module id.
func (s *CatalogService) SavePanel(ctx context.Context, actor *models.Actor, p *models.SolarPanel) (*models.UpsertOutcome, error) {
	if !actor.IsAdmin() {
		return nil, models.ErrForbidden
	}
	if err := ValidatePanel(p); err != nil {
		return nil, err
	}
	o, err := s.repo.UpsertPanel(ctx, p)
	if err != nil {
		return nil, s.writeErr(CatalogPanels, err)
	}
	s.recordWrite(ctx, actor, models.AuditActionCatalogUpsert, CatalogPanels, o.ID, o.Created)
	return o, nil
}

func (s *CatalogService) DeletePanel(ctx context.Context, actor *models.Actor, id int64) error {
	if !actor.IsAdmin() {
		return models.ErrForbidden
	}
	if err := s.repo.DeletePanel(ctx, id); err != nil {
		return s.writeErr(CatalogPanels, err)
	}
	s.recordWrite(ctx, actor, models.AuditActionCatalogDelete, CatalogPanels, id, false)
	return nil
}

// Inverters

func (s *CatalogService) ListInverters(ctx context.Context) ([]*models.Inverter, error) {
	items, err := s.repo.ListInverters(ctx)
	if err != nil {
		return nil, s.readErr(CatalogInverters, err)
	}
	return items, nil
}

func (s *CatalogService) GetInverter(ctx context.Context, id int64) (*models.Inverter, error) {
	item, err := s.repo.GetInverter(ctx, id)
	if err != nil {
		return nil, s.readErr(CatalogInverters, err)
	}
	return item, nil
}

// SaveInverter creates or updates an inverter keyed by brand and model.
func (s *CatalogService) SaveInverter(ctx context.Context, actor *models.Actor, inv *models.Inverter) (*models.UpsertOutcome, error) {
	if !actor.IsAdmin() {
		return nil, models.ErrForbidden
	}
	if err := ValidateInverter(inv); err != nil {
		return nil, err
	}
	o, err := s.repo.UpsertInverter(ctx, inv)
	if err != nil {
		return nil, s.writeErr(CatalogInverters, err)
	}
	s.recordWrite(ctx, actor, models.AuditActionCatalogUpsert, CatalogInverters, o.ID, o.Created)
	return o, nil
}

func (s *CatalogService) DeleteInverter(ctx context.Context, actor *models.Actor, id int64) error {
	if !actor.IsAdmin() {
		return models.ErrForbidden
	}
	if err := s.repo.DeleteInverter(ctx, id); err != nil {
		return s.writeErr(CatalogInverters, err)
	}
	s.recordWrite(ctx, actor, models.AuditActionCatalogDelete, CatalogInverters, id, false)
	return nil
}

// Micro-inverters

func (s *CatalogService) ListMicroInverters(ctx context.Context) ([]*models.MicroInverter, error) {
	items, err := s.repo.ListMicroInverters(ctx)
	if err != nil {
		return nil, s.readErr(CatalogMicroInverters, err)
	}
	return items, nil
}

func (s *CatalogService) GetMicroInverter(ctx context.Context, id int64) (*models.MicroInverter, error) {
	item, err := s.repo.GetMicroInverter(ctx, id)
	if err != nil {
		return nil, s.readErr(CatalogMicroInverters, err)
	}
	return item, nil
}

func (s *CatalogService) SaveMicroInverter(ctx context.Context, actor *models.Actor, m *models.MicroInverter) (*models.UpsertOutcome, error) {
	if !actor.IsAdmin() {
		return nil, models.ErrForbidden
	}
	if err := ValidateMicroInverter(m); err != nil {
		return nil, err
	}
	o, err := s.repo.UpsertMicroInverter(ctx, m)
	if err != nil {
		return nil, s.writeErr(CatalogMicroInverters, err)
	}
	s.recordWrite(ctx, actor, models.AuditActionCatalogUpsert, CatalogMicroInverters, o.ID, o.Created)
	return o, nil
}

func (s *CatalogService) DeleteMicroInverter(ctx context.Context, actor *models.Actor, id int64) error {
	if !actor.IsAdmin() {
		return models.ErrForbidden
	}
	if err := s.repo.DeleteMicroInverter(ctx, id); err != nil {
		return s.writeErr(CatalogMicroInverters, err)
	}
	s.recordWrite(ctx, actor, models.AuditActionCatalogDelete, CatalogMicroInverters, id, false)
	return nil
}

// Irradiance

func (s *CatalogService) ListIrradiance(ctx context.Context) ([]*models.Irradiance, error) {
	items, err := s.repo.ListIrradiance(ctx)
	if err != nil {
		return nil, s.readErr(CatalogIrradiance, err)
	}
	return items, nil
}

func (s *CatalogService) GetIrradiance(ctx context.Context, id int64) (*models.Irradiance, error) {
	item, err := s.repo.GetIrradiance(ctx, id)
	if err != nil {
		return nil, s.readErr(CatalogIrradiance, err)
	}
	return item, nil
}

// SaveIrradiance creates or updates a location keyed by city and state.
func (s *CatalogService) SaveIrradiance(ctx context.Context, actor *models.Actor, irr *models.Irradiance) (*models.UpsertOutcome, error) {
	if !actor.IsAdmin() {
		return nil, models.ErrForbidden
	}
	if err := ValidateIrradiance(irr); err != nil {
		return nil, err
	}
	o, err := s.repo.UpsertIrradiance(ctx, irr)
	if err != nil {
		return nil, s.writeErr(CatalogIrradiance, err)
	}
	s.recordWrite(ctx, actor, models.AuditActionCatalogUpsert, CatalogIrradiance, o.ID, o.Created)
	return o, nil
}

func (s *CatalogService) DeleteIrradiance(ctx context.Context, actor *models.Actor, id int64) error {
	if !actor.IsAdmin() {
		return models.ErrForbidden
	}
	if err := s.repo.DeleteIrradiance(ctx, id); err != nil {
		return s.writeErr(CatalogIrradiance, err)
	}
	s.recordWrite(ctx, actor, models.AuditActionCatalogDelete, CatalogIrradiance, id, false)
	return nil
}

// ImportReport is the outcome of a bulk catalog import.
type ImportReport struct {
	Catalog string
	Created int
	Updated int
	Skipped int
}

func (s *CatalogService) finishImport(ctx context.Context, catalog, source string, skipped int, sum repositories.ImportSummary, err error) (*ImportReport, error) {
	if err != nil {
		s.logger.Error("catalog import failed",
			slog.String("catalog", catalog),
			slog.String("source", source),
			slog.Any("error", err),
		)
		s.audit.Record(ctx, AuditEntry{
			Action:     models.AuditActionCatalogImport,
			Success:    false,
			Message:    "import rolled back",
			TargetType: models.AuditTargetCatalog,
			Metadata:   models.AuditMetadata{"catalog": catalog, "source": source},
		})
		return nil, fmt.Errorf("import %s: %w", catalog, err)
	}

	report := &ImportReport{Catalog: catalog, Created: sum.Created, Updated: sum.Updated, Skipped: skipped}
	s.logger.Info("catalog imported",
		slog.String("catalog", catalog),
		slog.String("source", source),
		slog.Int("created", report.Created),
		slog.Int("updated", report.Updated),
		slog.Int("skipped", report.Skipped),
	)
	s.audit.Record(ctx, AuditEntry{
		Action:     models.AuditActionCatalogImport,
		Success:    true,
		TargetType: models.AuditTargetCatalog,
		Metadata:   models.NewImportMetadata(catalog, source, report.Created, report.Updated, report.Skipped),
	})
	return report, nil
}

// ImportPanels loads panels in one transaction. Rows failing validation are
// skipped; clear empties the catalog first.
func (s *CatalogService) ImportPanels(ctx context.Context, source string, items []models.SolarPanel, clear bool) (*ImportReport, error) {
	valid := make([]models.SolarPanel, 0, len(items))
	for i := range items {
		if err := ValidatePanel(&items[i]); err != nil {
			continue
		}
		valid = append(valid, items[i])
	}
	sum, err := s.repo.ImportPanels(ctx, valid, clear)
	return s.finishImport(ctx, CatalogPanels, source, len(items)-len(valid), sum, err)
}

func (s *CatalogService) ImportInverters(ctx context.Context, source string, items []models.Inverter, clear bool) (*ImportReport, error) {
	valid := make([]models.Inverter, 0, len(items))
	for i := range items {
		if err := ValidateInverter(&items[i]); err != nil {
			continue
		}
		valid = append(valid, items[i])
	}
	sum, err := s.repo.ImportInverters(ctx, valid, clear)
	return s.finishImport(ctx, CatalogInverters, source, len(items)-len(valid), sum, err)
}

func (s *CatalogService) ImportMicroInverters(ctx context.Context, source string, items []models.MicroInverter, clear bool) (*ImportReport, error) {
	valid := make([]models.MicroInverter, 0, len(items))
	for i := range items {
		if err := ValidateMicroInverter(&items[i]); err != nil {
			continue
		}
		valid = append(valid, items[i])
	}
	sum, err := s.repo.ImportMicroInverters(ctx, valid, clear)
	return s.finishImport(ctx, CatalogMicroInverters, source, len(items)-len(valid), sum, err)
}

func (s *CatalogService) ImportIrradiance(ctx context.Context, source string, items []models.Irradiance, clear bool) (*ImportReport, error) {
	valid := make([]models.Irradiance, 0, len(items))
	for i := range items {
		if err := ValidateIrradiance(&items[i]); err != nil {
			continue
		}
		valid = append(valid, items[i])
	}
	sum, err := s.repo.ImportIrradiance(ctx, valid, clear)
	return s.finishImport(ctx, CatalogIrradiance, source, len(items)-len(valid), sum, err)
}
