package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/BradenHooton/swgfv/internal/models"
	"github.com/BradenHooton/swgfv/internal/reports"
)

// Export formats
const (
	FormatCSV = "csv"
	FormatPDF = "pdf"
)

// maxExportRows bounds a single user export.
const maxExportRows = 10000

// ReportService renders exports and audits every download.
type ReportService struct {
	users    UserRepository
	projects *ProjectService
	sizings  *SizingService
	catalog  SizingCatalog
	audit    Auditor
	logger   *slog.Logger
	now      func() time.Time
}

func NewReportService(users UserRepository, projects *ProjectService, sizings *SizingService, catalog SizingCatalog, audit Auditor, logger *slog.Logger) *ReportService {
	return &ReportService{
		users:    users,
		projects: projects,
		sizings:  sizings,
		catalog:  catalog,
		audit:    audit,
		logger:   logger,
		now:      time.Now,
	}
}

// ExportUsers writes the user directory in the given format. Admin only.
func (s *ReportService) ExportUsers(ctx context.Context, actor *models.Actor, format string, w io.Writer) error {
	if !actor.IsAdmin() {
		return models.ErrForbidden
	}
	if format != FormatCSV && format != FormatPDF {
		return models.NewValidationError("format", "must be csv or pdf", nil)
	}

	users, err := s.users.Search(ctx, models.UserSearch{Limit: maxExportRows})
	if err != nil {
		s.logger.Error("failed to load users for export", slog.Any("error", err))
		return models.ErrInternalServer
	}

	if format == FormatCSV {
		err = reports.UsersCSV(w, users)
	} else {
		err = reports.UsersPDF(w, users, s.now())
	}
	if err != nil {
		s.logger.Error("failed to render user export", slog.String("format", format), slog.Any("error", err))
		return models.ErrInternalServer
	}

	entry := actorEntry(actor, models.AuditActionExport)
	entry.TargetType = models.AuditTargetUser
	entry.Metadata = models.AuditMetadata{"format": format, "rows": len(users)}
	s.audit.Record(ctx, entry)
	return nil
}

// ProjectReport writes the PDF report of a project visible to the actor.
func (s *ReportService) ProjectReport(ctx context.Context, actor *models.Actor, projectID int64, w io.Writer) error {
	project, err := s.projects.Get(ctx, actor, projectID)
	if err != nil {
		return err
	}

	report := reports.ProjectReport{Project: project}
	stored, err := s.sizings.Get(ctx, actor, projectID)
	switch {
	case err == nil:
		report.Sizing = stored
		report.Panel = s.optionalPanel(ctx, stored.Input.PanelID)
		report.Irradiance = s.optionalIrradiance(ctx, stored.Input.IrradianceID)
	case errors.Is(err, models.ErrNotFound):
	default:
		return err
	}

	if err := reports.ProjectPDF(w, report, s.now()); err != nil {
		s.logger.Error("failed to render project report", slog.Int64("project_id", projectID), slog.Any("error", err))
		return models.ErrInternalServer
	}

	entry := actorEntry(actor, models.AuditActionExport).target(models.AuditTargetProject, projectID)
	entry.Metadata = models.AuditMetadata{"format": FormatPDF}
	s.audit.Record(ctx, entry)
	return nil
}

func (s *ReportService) optionalPanel(ctx context.Context, id int64) *models.SolarPanel {
	p, err := s.catalog.GetPanel(ctx, id)
	if err != nil {
		s.logger.Warn("panel missing from report", slog.Int64("panel_id", id), slog.Any("error", err))
		return nil
	}
	return p
}

func (s *ReportService) optionalIrradiance(ctx context.Context, id int64) *models.Irradiance {
	irr, err := s.catalog.GetIrradiance(ctx, id)
	if err != nil {
		s.logger.Warn("irradiance missing from report", slog.Int64("irradiance_id", id), slog.Any("error", err))
		return nil
	}
	return irr
}

// ExportFilename names a download, e.g. users-20260301-0930.csv.
func ExportFilename(base, format string, at time.Time) string {
	return fmt.Sprintf("%s-%s.%s", base, at.UTC().Format("20060102-1504"), format)
}
