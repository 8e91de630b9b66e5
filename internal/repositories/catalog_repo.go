package repositories

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/BradenHooton/swgfv/internal/database"
	"github.com/BradenHooton/swgfv/internal/models"
)

// querier is satisfied by both the pool and a transaction.
type querier interface {
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}

// CatalogRepository stores the equipment and irradiance catalogs.
// Upserts report whether the natural key was new.
type CatalogRepository struct {
	db *database.DB
}

func NewCatalogRepository(db *database.DB) *CatalogRepository {
	return &CatalogRepository{db: db}
}

// ImportSummary counts the rows written by a bulk import.
type ImportSummary struct {
	Created int
	Updated int
}

func (s *ImportSummary) count(o *models.UpsertOutcome) {
	if o.Created {
		s.Created++
	} else {
		s.Updated++
	}
}

func scanUpsert(row pgx.Row) (*models.UpsertOutcome, error) {
	var o models.UpsertOutcome
	if err := row.Scan(&o.ID, &o.Created); err != nil {
		return nil, database.MapPostgresError(err)
	}
	return &o, nil
}

func deleteByID(ctx context.Context, q querier, table string, id int64) error {
	result, err := q.Exec(ctx, fmt.Sprintf(`DELETE FROM %s WHERE id = $1`, table), id)
	if err != nil {
		return database.MapPostgresError(err)
	}
	if result.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

// Solar panels

const panelColumns = `id, module_id, brand, model, power_w, voc, isc, vmp, imp, updated_at`

func scanPanelRow(scanner rowScanner) (*models.SolarPanel, error) {
	var p models.SolarPanel
	err := scanner.Scan(&p.ID, &p.ModuleID, &p.Brand, &p.Model, &p.PowerW,
		&p.Voc, &p.Isc, &p.Vmp, &p.Imp, &p.UpdatedAt)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}
	return &p, nil
}

func (r *CatalogRepository) ListPanels(ctx context.Context) ([]*models.SolarPanel, error) {
	rows, err := r.db.Pool.Query(ctx, `SELECT `+panelColumns+` FROM solar_panels ORDER BY brand, model, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query panels: %w", err)
	}
	return scanRows(rows, scanPanelRow)
}

func (r *CatalogRepository) GetPanel(ctx context.Context, id int64) (*models.SolarPanel, error) {
	return scanPanelRow(r.db.Pool.QueryRow(ctx, `SELECT `+panelColumns+` FROM solar_panels WHERE id = $1`, id))
}

func upsertPanel(ctx context.Context, q querier, p *models.SolarPanel) (*models.UpsertOutcome, error) {
	query := `
		INSERT INTO solar_panels (module_id, brand, model, power_w, voc, isc, vmp, imp)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (module_id) DO UPDATE SET
			brand = EXCLUDED.brand, model = EXCLUDED.model, power_w = EXCLUDED.power_w,
			voc = EXCLUDED.voc, isc = EXCLUDED.isc, vmp = EXCLUDED.vmp, imp = EXCLUDED.imp,
			updated_at = NOW()
		RETURNING id, (xmax = 0)`
	return scanUpsert(q.QueryRow(ctx, query,
		p.ModuleID, p.Brand, p.Model, p.PowerW, p.Voc, p.Isc, p.Vmp, p.Imp))
}

func (r *CatalogRepository) UpsertPanel(ctx context.Context, p *models.SolarPanel) (*models.UpsertOutcome, error) {
	return upsertPanel(ctx, r.db.Pool, p)
}

func (r *CatalogRepository) DeletePanel(ctx context.Context, id int64) error {
	return deleteByID(ctx, r.db.Pool, "solar_panels", id)
}

// ImportPanels upserts every panel in one transaction, optionally clearing the table first.
func (r *CatalogRepository) ImportPanels(ctx context.Context, panels []models.SolarPanel, clear bool) (ImportSummary, error) {
	var summary ImportSummary
	err := r.db.WithTransaction(ctx, func(tx pgx.Tx) error {
		if clear {
			if _, err := tx.Exec(ctx, `DELETE FROM solar_panels`); err != nil {
				return database.MapPostgresError(err)
			}
		}
		for i := range panels {
			o, err := upsertPanel(ctx, tx, &panels[i])
			if err != nil {
				return fmt.Errorf("panel %d: %w", panels[i].ModuleID, err)
			}
			summary.count(o)
		}
		return nil
	})
	return summary, err
}

// Inverters

const inverterColumns = `id, brand, model, power_w, output_voltage, updated_at`

func scanInverterRow(scanner rowScanner) (*models.Inverter, error) {
	var inv models.Inverter
	if err := scanner.Scan(&inv.ID, &inv.Brand, &inv.Model, &inv.PowerW, &inv.OutputVoltage, &inv.UpdatedAt); err != nil {
		return nil, database.MapPostgresError(err)
	}
	return &inv, nil
}

func (r *CatalogRepository) ListInverters(ctx context.Context) ([]*models.Inverter, error) {
	rows, err := r.db.Pool.Query(ctx, `SELECT `+inverterColumns+` FROM inverters ORDER BY brand, model, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query inverters: %w", err)
	}
	return scanRows(rows, scanInverterRow)
}

func (r *CatalogRepository) GetInverter(ctx context.Context, id int64) (*models.Inverter, error) {
	return scanInverterRow(r.db.Pool.QueryRow(ctx, `SELECT `+inverterColumns+` FROM inverters WHERE id = $1`, id))
}

func upsertInverter(ctx context.Context, q querier, inv *models.Inverter) (*models.UpsertOutcome, error) {
	query := `
		INSERT INTO inverters (brand, model, power_w, output_voltage)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (brand, model) DO UPDATE SET
			power_w = EXCLUDED.power_w, output_voltage = EXCLUDED.output_voltage, updated_at = NOW()
		RETURNING id, (xmax = 0)`
	return scanUpsert(q.QueryRow(ctx, query, inv.Brand, inv.Model, inv.PowerW, inv.OutputVoltage))
}

func (r *CatalogRepository) UpsertInverter(ctx context.Context, inv *models.Inverter) (*models.UpsertOutcome, error) {
	return upsertInverter(ctx, r.db.Pool, inv)
}

func (r *CatalogRepository) DeleteInverter(ctx context.Context, id int64) error {
	return deleteByID(ctx, r.db.Pool, "inverters", id)
}

func (r *CatalogRepository) ImportInverters(ctx context.Context, inverters []models.Inverter, clear bool) (ImportSummary, error) {
	var summary ImportSummary
	err := r.db.WithTransaction(ctx, func(tx pgx.Tx) error {
		if clear {
			if _, err := tx.Exec(ctx, `DELETE FROM inverters`); err != nil {
				return database.MapPostgresError(err)
			}
		}
		for i := range inverters {
			o, err := upsertInverter(ctx, tx, &inverters[i])
			if err != nil {
				return fmt.Errorf("inverter %s %s: %w", inverters[i].Brand, inverters[i].Model, err)
			}
			summary.count(o)
		}
		return nil
	})
	return summary, err
}

// Micro-inverters

const microInverterColumns = `id, brand, model, power_w, channels, updated_at`

func scanMicroInverterRow(scanner rowScanner) (*models.MicroInverter, error) {
	var m models.MicroInverter
	if err := scanner.Scan(&m.ID, &m.Brand, &m.Model, &m.PowerW, &m.Channels, &m.UpdatedAt); err != nil {
		return nil, database.MapPostgresError(err)
	}
	return &m, nil
}

func (r *CatalogRepository) ListMicroInverters(ctx context.Context) ([]*models.MicroInverter, error) {
	rows, err := r.db.Pool.Query(ctx, `SELECT `+microInverterColumns+` FROM micro_inverters ORDER BY brand, model, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query micro-inverters: %w", err)
	}
	return scanRows(rows, scanMicroInverterRow)
}

func (r *CatalogRepository) GetMicroInverter(ctx context.Context, id int64) (*models.MicroInverter, error) {
	return scanMicroInverterRow(r.db.Pool.QueryRow(ctx, `SELECT `+microInverterColumns+` FROM micro_inverters WHERE id = $1`, id))
}

func upsertMicroInverter(ctx context.Context, q querier, m *models.MicroInverter) (*models.UpsertOutcome, error) {
	query := `
		INSERT INTO micro_inverters (brand, model, power_w, channels)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (brand, model) DO UPDATE SET
			power_w = EXCLUDED.power_w, channels = EXCLUDED.channels, updated_at = NOW()
		RETURNING id, (xmax = 0)`
	return scanUpsert(q.QueryRow(ctx, query, m.Brand, m.Model, m.PowerW, m.Channels))
}

func (r *CatalogRepository) UpsertMicroInverter(ctx context.Context, m *models.MicroInverter) (*models.UpsertOutcome, error) {
	return upsertMicroInverter(ctx, r.db.Pool, m)
}

func (r *CatalogRepository) DeleteMicroInverter(ctx context.Context, id int64) error {
	return deleteByID(ctx, r.db.Pool, "micro_inverters", id)
}

func (r *CatalogRepository) ImportMicroInverters(ctx context.Context, items []models.MicroInverter, clear bool) (ImportSummary, error) {
	var summary ImportSummary
	err := r.db.WithTransaction(ctx, func(tx pgx.Tx) error {
		if clear {
			if _, err := tx.Exec(ctx, `DELETE FROM micro_inverters`); err != nil {
				return database.MapPostgresError(err)
			}
		}
		for i := range items {
			o, err := upsertMicroInverter(ctx, tx, &items[i])
			if err != nil {
				return fmt.Errorf("micro-inverter %s %s: %w", items[i].Brand, items[i].Model, err)
			}
			summary.count(o)
		}
		return nil
	})
	return summary, err
}

// Irradiance

const irradianceColumns = `id, city, state, region, tariff, average, monthly, updated_at`

func scanIrradianceRow(scanner rowScanner) (*models.Irradiance, error) {
	var irr models.Irradiance
	var monthly []float64
	err := scanner.Scan(&irr.ID, &irr.City, &irr.State, &irr.Region, &irr.Tariff,
		&irr.Average, &monthly, &irr.UpdatedAt)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}
	if len(monthly) != len(irr.Monthly) {
		return nil, fmt.Errorf("irradiance %d has %d monthly values", irr.ID, len(monthly))
	}
	copy(irr.Monthly[:], monthly)
	return &irr, nil
}

func (r *CatalogRepository) ListIrradiance(ctx context.Context) ([]*models.Irradiance, error) {
	rows, err := r.db.Pool.Query(ctx, `SELECT `+irradianceColumns+` FROM irradiance ORDER BY state, city, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query irradiance: %w", err)
	}
	return scanRows(rows, scanIrradianceRow)
}

func (r *CatalogRepository) GetIrradiance(ctx context.Context, id int64) (*models.Irradiance, error) {
	return scanIrradianceRow(r.db.Pool.QueryRow(ctx, `SELECT `+irradianceColumns+` FROM irradiance WHERE id = $1`, id))
}

// upsertIrradiance keys on city and state, compared case-insensitively.
func upsertIrradiance(ctx context.Context, q querier, irr *models.Irradiance) (*models.UpsertOutcome, error) {
	query := `
		INSERT INTO irradiance (city, state, region, tariff, average, monthly)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (LOWER(city), LOWER(state)) DO UPDATE SET
			city = EXCLUDED.city, state = EXCLUDED.state, region = EXCLUDED.region,
			tariff = EXCLUDED.tariff, average = EXCLUDED.average, monthly = EXCLUDED.monthly,
			updated_at = NOW()
		RETURNING id, (xmax = 0)`
	return scanUpsert(q.QueryRow(ctx, query,
		irr.City, irr.State, irr.Region, irr.Tariff, irr.Average, irr.Monthly[:]))
}

func (r *CatalogRepository) UpsertIrradiance(ctx context.Context, irr *models.Irradiance) (*models.UpsertOutcome, error) {
	return upsertIrradiance(ctx, r.db.Pool, irr)
}

func (r *CatalogRepository) DeleteIrradiance(ctx context.Context, id int64) error {
	return deleteByID(ctx, r.db.Pool, "irradiance", id)
}

func (r *CatalogRepository) ImportIrradiance(ctx context.Context, items []models.Irradiance, clear bool) (ImportSummary, error) {
	var summary ImportSummary
	err := r.db.WithTransaction(ctx, func(tx pgx.Tx) error {
		if clear {
			if _, err := tx.Exec(ctx, `DELETE FROM irradiance`); err != nil {
				return database.MapPostgresError(err)
			}
		}
		for i := range items {
			o, err := upsertIrradiance(ctx, tx, &items[i])
			if err != nil {
				return fmt.Errorf("irradiance %s, %s: %w", items[i].City, items[i].State, err)
			}
			summary.count(o)
		}
		return nil
	})
	return summary, err
}
