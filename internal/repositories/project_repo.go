package repositories

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/BradenHooton/swgfv/internal/database"
	"github.com/BradenHooton/swgfv/internal/models"
)

type ProjectRepository struct {
	pool *pgxpool.Pool
}

func NewProjectRepository(db *database.DB) *ProjectRepository {
	return &ProjectRepository{pool: db.Pool}
}

const projectSelect = `
	SELECT p.id, p.owner_id, u.email, p.name, p.company, p.address, p.coordinates,
	       p.nominal_voltage, p.phases, p.created_at, p.updated_at
	FROM projects p JOIN users u ON u.id = p.owner_id`

func scanProjectRow(scanner rowScanner) (*models.Project, error) {
	var p models.Project

	err := scanner.Scan(
		&p.ID, &p.OwnerID, &p.OwnerEmail, &p.Name, &p.Company, &p.Address,
		&p.Coordinates, &p.NominalVoltage, &p.Phases, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}
	return &p, nil
}

func (r *ProjectRepository) GetByID(ctx context.Context, id int64) (*models.Project, error) {
	return scanProjectRow(r.pool.QueryRow(ctx, projectSelect+` WHERE p.id = $1`, id))
}

// Search filters by owner, id, name and company. Name and company match any
// case-insensitive substring.
func (r *ProjectRepository) Search(ctx context.Context, s models.ProjectSearch) ([]*models.Project, error) {
	var f filter
	if s.OwnerID != nil {
		f.add("p.owner_id = ?", *s.OwnerID)
	}
	if s.ID != nil {
		f.add("p.id = ?", *s.ID)
	}
	if s.Name != "" {
		f.add("p.name ILIKE ?", likePattern(s.Name))
	}
	if s.Company != "" {
		f.add("p.company ILIKE ?", likePattern(s.Company))
	}

	query := projectSelect + f.where() + ` ORDER BY p.created_at DESC, p.id DESC` + f.page(s.Limit, s.Offset, 100)

	rows, err := r.pool.Query(ctx, query, f.args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query projects: %w", err)
	}
	return scanRows(rows, scanProjectRow)
}

func (r *ProjectRepository) Create(ctx context.Context, p *models.Project) (*models.Project, error) {
	query := `
		INSERT INTO projects (owner_id, name, company, address, coordinates, nominal_voltage, phases)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id`

	var id int64
	err := r.pool.QueryRow(ctx, query,
		p.OwnerID, p.Name, p.Company, p.Address, p.Coordinates, p.NominalVoltage, p.Phases,
	).Scan(&id)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}
	return r.GetByID(ctx, id)
}

func (r *ProjectRepository) Update(ctx context.Context, p *models.Project) (*models.Project, error) {
	query := `
		UPDATE projects SET name = $1, company = $2, address = $3, coordinates = $4,
		       nominal_voltage = $5, phases = $6, updated_at = NOW()
		WHERE id = $7`

	result, err := r.pool.Exec(ctx, query,
		p.Name, p.Company, p.Address, p.Coordinates, p.NominalVoltage, p.Phases, p.ID,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}
	if result.RowsAffected() == 0 {
		return nil, models.ErrNotFound
	}
	return r.GetByID(ctx, p.ID)
}

func (r *ProjectRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM projects WHERE id = $1`, id)
	if err != nil {
		return database.MapPostgresError(err)
	}
	if result.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}
