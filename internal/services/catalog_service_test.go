package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BradenHooton/swgfv/internal/models"
	"github.com/BradenHooton/swgfv/internal/repositories"
)

func TestCatalogService_SavePanel(t *testing.T) {
	var got *models.SolarPanel
	repo := &MockCatalogRepository{
		UpsertPanelFunc: func(ctx context.Context, p *models.SolarPanel) (*models.UpsertOutcome, error) {
			got = p
			return &models.UpsertOutcome{ID: 4, Created: false}, nil
		},
	}
	audit := &MockAuditor{}
	svc := NewCatalogService(repo, audit, testLogger())

	out, err := svc.SavePanel(context.Background(), adminActor(), &models.SolarPanel{ModuleID: 1001, Brand: " Acme ", Model: "X550", PowerW: 550})
	require.NoError(t, err)
	assert.Equal(t, int64(4), out.ID)
	assert.Equal(t, "Acme", got.Brand)

	last := audit.Last()
	assert.Equal(t, models.AuditActionCatalogUpsert, last.Action)
	assert.Equal(t, CatalogPanels, last.Metadata["catalog"])
	assert.Equal(t, false, last.Metadata["created"])
}

func TestCatalogService_WritesAdminOnly(t *testing.T) {
	svc := NewCatalogService(&MockCatalogRepository{}, &MockAuditor{}, testLogger())
	ctx := context.Background()
	user := generalActor(2)

	_, err := svc.SavePanel(ctx, user, &models.SolarPanel{ModuleID: 1, Brand: "A", Model: "B", PowerW: 1})
	assert.ErrorIs(t, err, models.ErrForbidden)
	_, err = svc.SaveInverter(ctx, user, &models.Inverter{Brand: "A", Model: "B"})
	assert.ErrorIs(t, err, models.ErrForbidden)
	_, err = svc.SaveMicroInverter(ctx, user, &models.MicroInverter{Brand: "A", Model: "B", Channels: 1})
	assert.ErrorIs(t, err, models.ErrForbidden)
	_, err = svc.SaveIrradiance(ctx, user, &models.Irradiance{City: "León"})
	assert.ErrorIs(t, err, models.ErrForbidden)
	assert.ErrorIs(t, svc.DeletePanel(ctx, user, 1), models.ErrForbidden)
	assert.ErrorIs(t, svc.DeleteIrradiance(ctx, user, 1), models.ErrForbidden)
}

func TestCatalogService_Validation(t *testing.T) {
	assert.Error(t, ValidatePanel(&models.SolarPanel{Brand: "A", Model: "B", PowerW: 1}))
	assert.Error(t, ValidatePanel(&models.SolarPanel{ModuleID: 1, Brand: "A", Model: "B"}))
	assert.NoError(t, ValidatePanel(&models.SolarPanel{ModuleID: 1, Brand: "A", Model: "B", PowerW: 1}))
	assert.Error(t, ValidateInverter(&models.Inverter{Brand: " ", Model: "B"}))
	assert.Error(t, ValidateMicroInverter(&models.MicroInverter{Brand: "A", Model: "B"}))
	assert.Error(t, ValidateIrradiance(&models.Irradiance{City: "X", Monthly: [12]float64{0, -1}}))
	assert.NoError(t, ValidateIrradiance(&models.Irradiance{City: "X", Average: 5}))
}

func TestCatalogService_DeleteInUse(t *testing.T) {
	repo := &MockCatalogRepository{
		DeletePanelFunc: func(ctx context.Context, id int64) error {
			return models.ErrInvalidReference
		},
	}
	svc := NewCatalogService(repo, &MockAuditor{}, testLogger())

	err := svc.DeletePanel(context.Background(), adminActor(), 1)
	assert.ErrorIs(t, err, models.ErrConflict)
}

func TestCatalogService_ReadErrors(t *testing.T) {
	repo := &MockCatalogRepository{
		ListInvertersFunc: func(ctx context.Context) ([]*models.Inverter, error) {
			return nil, errors.New("timeout")
		},
	}
	svc := NewCatalogService(repo, &MockAuditor{}, testLogger())

	_, err := svc.ListInverters(context.Background())
	assert.Equal(t, models.ErrInternalServer, err)
	_, err = svc.GetMicroInverter(context.Background(), 5)
	assert.Equal(t, models.ErrNotFound, err)
}

func TestCatalogService_ImportPanels(t *testing.T) {
	var imported []models.SolarPanel
	var cleared bool
	repo := &MockCatalogRepository{
		ImportPanelsFunc: func(ctx context.Context, items []models.SolarPanel, clear bool) (repositories.ImportSummary, error) {
			imported, cleared = items, clear
			return repositories.ImportSummary{Created: 1, Updated: 1}, nil
		},
	}
	audit := &MockAuditor{}
	svc := NewCatalogService(repo, audit, testLogger())

	report, err := svc.ImportPanels(context.Background(), "panels.csv", []models.SolarPanel{
		{ModuleID: 1, Brand: "A", Model: "P1", PowerW: 400},
		{ModuleID: 0, Brand: "A", Model: "P2", PowerW: 400},
		{ModuleID: 2, Brand: "A", Model: "P3", PowerW: 450},
	}, true)
	require.NoError(t, err)

	assert.Equal(t, &ImportReport{Catalog: CatalogPanels, Created: 1, Updated: 1, Skipped: 1}, report)
	assert.Len(t, imported, 2)
	assert.True(t, cleared)
	assert.Equal(t, models.NewImportMetadata(CatalogPanels, "panels.csv", 1, 1, 1), audit.Last().Metadata)
}

func TestCatalogService_ImportFailureAudited(t *testing.T) {
	repo := &MockCatalogRepository{
		ImportIrradianceFunc: func(ctx context.Context, items []models.Irradiance, clear bool) (repositories.ImportSummary, error) {
			return repositories.ImportSummary{}, errors.New("unique violation")
		},
	}
	audit := &MockAuditor{}
	svc := NewCatalogService(repo, audit, testLogger())

	_, err := svc.ImportIrradiance(context.Background(), "irr.csv", []models.Irradiance{{City: "Tepic"}}, false)
	require.Error(t, err)
	assert.False(t, audit.Last().Success)
	assert.Equal(t, models.AuditActionCatalogImport, audit.Last().Action)
}
