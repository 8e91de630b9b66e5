package repositories

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/BradenHooton/swgfv/internal/database"
	"github.com/BradenHooton/swgfv/internal/models"
	"github.com/BradenHooton/swgfv/internal/sizing"
)

// SizingRepository keeps the latest sizing input and result per project.
type SizingRepository struct {
	db *database.DB
}

func NewSizingRepository(db *database.DB) *SizingRepository {
	return &SizingRepository{db: db}
}

// Save writes input and result in one transaction. A later save for the same
// project replaces both (last write wins).
func (r *SizingRepository) Save(ctx context.Context, in *models.SizingInput, res *models.SizingResult) (*models.Sizing, error) {
	generation := make([]float64, len(res.Periods))
	for i, p := range res.Periods {
		generation[i] = p.KWh
	}

	err := r.db.WithTransaction(ctx, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, `
			INSERT INTO sizing_inputs (project_id, billing_mode, panel_id, irradiance_id, efficiency, consumption, submitted_by)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			ON CONFLICT (project_id) DO UPDATE SET
				billing_mode = EXCLUDED.billing_mode, panel_id = EXCLUDED.panel_id,
				irradiance_id = EXCLUDED.irradiance_id, efficiency = EXCLUDED.efficiency,
				consumption = EXCLUDED.consumption, submitted_by = EXCLUDED.submitted_by,
				updated_at = NOW()
			RETURNING updated_at`,
			in.ProjectID, in.BillingMode, in.PanelID, in.IrradianceID, in.Efficiency, in.Consumption, in.SubmittedBy,
		).Scan(&in.UpdatedAt)
		if err != nil {
			return database.MapPostgresError(err)
		}

		err = tx.QueryRow(ctx, `
			INSERT INTO sizing_results (project_id, average_consumption, reference_yield, panel_count,
			                            capacity_kw, period_generation, annual_generation)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			ON CONFLICT (project_id) DO UPDATE SET
				average_consumption = EXCLUDED.average_consumption, reference_yield = EXCLUDED.reference_yield,
				panel_count = EXCLUDED.panel_count, capacity_kw = EXCLUDED.capacity_kw,
				period_generation = EXCLUDED.period_generation, annual_generation = EXCLUDED.annual_generation,
				calculated_at = NOW()
			RETURNING calculated_at`,
			in.ProjectID, res.AverageConsumption, res.ReferenceYield, res.PanelCount,
			res.CapacityKW, generation, res.AnnualGeneration,
		).Scan(&res.CalculatedAt)
		return database.MapPostgresError(err)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to save sizing for project %d: %w", in.ProjectID, err)
	}

	res.ProjectID = in.ProjectID
	return &models.Sizing{Input: *in, Result: *res}, nil
}

// Get returns the stored sizing of a project, or ErrNotFound.
func (r *SizingRepository) Get(ctx context.Context, projectID int64) (*models.Sizing, error) {
	var s models.Sizing
	var generation []float64

	err := r.db.Pool.QueryRow(ctx, `
		SELECT i.project_id, i.billing_mode, i.panel_id, i.irradiance_id, i.efficiency::float8,
		       i.consumption, i.submitted_by, i.updated_at,
		       r.average_consumption, r.reference_yield, r.panel_count, r.capacity_kw,
		       r.period_generation, r.annual_generation, r.calculated_at
		FROM sizing_inputs i JOIN sizing_results r ON r.project_id = i.project_id
		WHERE i.project_id = $1`, projectID,
	).Scan(
		&s.Input.ProjectID, &s.Input.BillingMode, &s.Input.PanelID, &s.Input.IrradianceID, &s.Input.Efficiency,
		&s.Input.Consumption, &s.Input.SubmittedBy, &s.Input.UpdatedAt,
		&s.Result.AverageConsumption, &s.Result.ReferenceYield, &s.Result.PanelCount, &s.Result.CapacityKW,
		&generation, &s.Result.AnnualGeneration, &s.Result.CalculatedAt,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	s.Result.ProjectID = s.Input.ProjectID
	periods := sizing.Periods(sizing.BillingMode(s.Input.BillingMode))
	if len(periods) != len(generation) {
		return nil, fmt.Errorf("sizing for project %d has %d periods, want %d", projectID, len(generation), len(periods))
	}
	s.Result.Periods = make([]models.PeriodGeneration, len(periods))
	for i, p := range periods {
		s.Result.Periods[i] = models.PeriodGeneration{Key: p.Key, Label: p.Label, Month: p.Month, KWh: generation[i]}
	}
	return &s, nil
}
