package services

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BradenHooton/swgfv/internal/models"
)

func flatIrradiance(id int64, v float64) *models.Irradiance {
	irr := &models.Irradiance{ID: id, City: "Hermosillo", State: "Sonora", Average: v}
	for i := range irr.Monthly {
		irr.Monthly[i] = v
	}
	return irr
}

func sizingCatalog() *MockCatalogRepository {
	return &MockCatalogRepository{
		GetPanelFunc: func(ctx context.Context, id int64) (*models.SolarPanel, error) {
			if id == 1 {
				return &models.SolarPanel{ID: 1, ModuleID: 1001, Brand: "Acme", Model: "X550", PowerW: 550}, nil
			}
			return nil, models.ErrNotFound
		},
		GetIrradianceFunc: func(ctx context.Context, id int64) (*models.Irradiance, error) {
			if id == 2 {
				return flatIrradiance(2, 5.5), nil
			}
			return nil, models.ErrNotFound
		},
	}
}

func monthlyConsumption(v float64) map[string]float64 {
	m := make(map[string]float64, 12)
	for i := 1; i <= 12; i++ {
		m[fmt.Sprintf("m%02d", i)] = v
	}
	return m
}

func validSizingRequest() SizingRequest {
	return SizingRequest{
		ProjectID:    3,
		BillingMode:  "monthly",
		PanelID:      1,
		IrradianceID: 2,
		Efficiency:   0.8,
		Consumption:  monthlyConsumption(300),
	}
}

func TestSizingService_Calculate(t *testing.T) {
	var savedInput *models.SizingInput
	repo := &MockSizingRepository{
		SaveFunc: func(ctx context.Context, in *models.SizingInput, res *models.SizingResult) (*models.Sizing, error) {
			savedInput = in
			return &models.Sizing{Input: *in, Result: *res}, nil
		},
	}
	audit := &MockAuditor{}
	svc := NewSizingService(repo, projectRepoWith(&models.Project{ID: 3, OwnerID: 8}), sizingCatalog(), audit, testLogger())

	got, err := svc.Calculate(context.Background(), generalActor(8), validSizingRequest())
	require.NoError(t, err)

	assert.Equal(t, 5, got.Result.PanelCount)
	assert.InDelta(t, 2.75, got.Result.CapacityKW, 1e-9)
	assert.InDelta(t, 72.6, got.Result.ReferenceYield, 1e-9)
	assert.InDelta(t, 4356.0, got.Result.AnnualGeneration, 1e-9)
	require.Len(t, got.Result.Periods, 12)

	assert.Equal(t, int64(8), savedInput.SubmittedBy)
	assert.Equal(t, "monthly", savedInput.BillingMode)
	assert.Len(t, savedInput.Consumption, 12)
	assert.Equal(t, models.AuditActionSizingSubmit, audit.Last().Action)
	assert.Equal(t, 5, audit.Last().Metadata["panel_count"])
}

func TestSizingService_Calculate_Rejections(t *testing.T) {
	tests := []struct {
		name   string
		actor  *models.Actor
		mutate func(*SizingRequest)
		want   error
	}{
		{"bad mode", generalActor(8), func(r *SizingRequest) { r.BillingMode = "weekly" }, models.ErrInvalidBillingMode},
		{"bad efficiency", generalActor(8), func(r *SizingRequest) { r.Efficiency = 0.75 }, models.ErrInvalidEfficiency},
		{"missing period", generalActor(8), func(r *SizingRequest) { delete(r.Consumption, "m07") }, models.ErrBadRequest},
		{"unknown project", generalActor(8), func(r *SizingRequest) { r.ProjectID = 99 }, models.ErrInvalidReference},
		{"foreign project", generalActor(9), func(r *SizingRequest) {}, models.ErrForbidden},
		{"unknown panel", generalActor(8), func(r *SizingRequest) { r.PanelID = 77 }, models.ErrInvalidReference},
		{"unknown irradiance", adminActor(), func(r *SizingRequest) { r.IrradianceID = 77 }, models.ErrInvalidReference},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			saved := false
			repo := &MockSizingRepository{
				SaveFunc: func(ctx context.Context, in *models.SizingInput, res *models.SizingResult) (*models.Sizing, error) {
					saved = true
					return nil, nil
				},
			}
			svc := NewSizingService(repo, projectRepoWith(&models.Project{ID: 3, OwnerID: 8}), sizingCatalog(), &MockAuditor{}, testLogger())
			req := validSizingRequest()
			tt.mutate(&req)

			_, err := svc.Calculate(context.Background(), tt.actor, req)
			assert.ErrorIs(t, err, tt.want)
			assert.False(t, saved)
		})
	}
}

func TestSizingService_Calculate_SaveFailure(t *testing.T) {
	repo := &MockSizingRepository{
		SaveFunc: func(ctx context.Context, in *models.SizingInput, res *models.SizingResult) (*models.Sizing, error) {
			return nil, errors.New("deadlock detected")
		},
	}
	audit := &MockAuditor{}
	svc := NewSizingService(repo, projectRepoWith(&models.Project{ID: 3, OwnerID: 8}), sizingCatalog(), audit, testLogger())

	_, err := svc.Calculate(context.Background(), generalActor(8), validSizingRequest())
	assert.Equal(t, models.ErrInternalServer, err)
	assert.Empty(t, audit.Entries)
}

func TestSizingService_Get(t *testing.T) {
	repo := &MockSizingRepository{
		GetFunc: func(ctx context.Context, projectID int64) (*models.Sizing, error) {
			if projectID == 3 {
				return &models.Sizing{Input: models.SizingInput{ProjectID: 3}}, nil
			}
			return nil, models.ErrNotFound
		},
	}
	svc := NewSizingService(repo, projectRepoWith(
		&models.Project{ID: 3, OwnerID: 8},
		&models.Project{ID: 4, OwnerID: 8},
	), sizingCatalog(), &MockAuditor{}, testLogger())
	ctx := context.Background()

	got, err := svc.Get(ctx, generalActor(8), 3)
	require.NoError(t, err)
	assert.Equal(t, int64(3), got.Input.ProjectID)

	_, err = svc.Get(ctx, generalActor(9), 3)
	assert.ErrorIs(t, err, models.ErrForbidden)

	_, err = svc.Get(ctx, generalActor(8), 4)
	assert.ErrorIs(t, err, models.ErrNotFound)
}
