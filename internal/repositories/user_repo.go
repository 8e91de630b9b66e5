package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/BradenHooton/swgfv/internal/database"
	"github.com/BradenHooton/swgfv/internal/models"
)

type UserRepository struct {
	pool *pgxpool.Pool
}

func NewUserRepository(db *database.DB) *UserRepository {
	return &UserRepository{pool: db.Pool}
}

const userColumns = `id, email, password_hash, first_name, paternal_surname, maternal_surname,
	phone, role, active, password_changed_at, created_at, updated_at`

// scanUserRow populates a User model from a database row
func scanUserRow(scanner rowScanner) (*models.User, error) {
	var user models.User

	err := scanner.Scan(
		&user.ID, &user.Email, &user.PasswordHash, &user.FirstName,
		&user.PaternalSurname, &user.MaternalSurname, &user.Phone,
		&user.Role, &user.Active, &user.PasswordChangedAt,
		&user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	return &user, nil
}

func (r *UserRepository) GetByID(ctx context.Context, id int64) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return scanUserRow(r.pool.QueryRow(ctx, query, id))
}

// GetByEmail looks the account up case-insensitively.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE LOWER(email) = LOWER($1)`
	return scanUserRow(r.pool.QueryRow(ctx, query, email))
}

// Search matches id exactly and name/email on any case-insensitive substring.
func (r *UserRepository) Search(ctx context.Context, s models.UserSearch) ([]*models.User, error) {
	var f filter
	if s.ID != nil {
		f.add("id = ?", *s.ID)
	}
	if s.Name != "" {
		p := likePattern(s.Name)
		f.add("(first_name ILIKE ? OR paternal_surname ILIKE ? OR maternal_surname ILIKE ?)", p, p, p)
	}
	if s.Email != "" {
		f.add("email ILIKE ?", likePattern(s.Email))
	}

	query := `SELECT ` + userColumns + ` FROM users` + f.where() +
		` ORDER BY paternal_surname, first_name, id` + f.page(s.Limit, s.Offset, 100)

	rows, err := r.pool.Query(ctx, query, f.args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}
	return scanRows(rows, scanUserRow)
}

func (r *UserRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM users`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count users: %w", err)
	}
	return n, nil
}

func (r *UserRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	if user.Role == "" {
		user.Role = models.RoleGeneral
	}

	query := `
		INSERT INTO users (email, password_hash, first_name, paternal_surname, maternal_surname,
		                   phone, role, active, password_changed_at)
		VALUES (LOWER($1), $2, $3, $4, $5, $6, $7, $8, NOW())
		RETURNING ` + userColumns

	return scanUserRow(r.pool.QueryRow(ctx, query,
		user.Email, user.PasswordHash, user.FirstName, user.PaternalSurname,
		user.MaternalSurname, user.Phone, user.Role, user.Active,
	))
}

// Update writes profile fields, role and active flag. The password is changed
// only through UpdatePassword.
func (r *UserRepository) Update(ctx context.Context, user *models.User) (*models.User, error) {
	query := `
		UPDATE users SET email = LOWER($1), first_name = $2, paternal_surname = $3,
		       maternal_surname = $4, phone = $5, role = $6, active = $7, updated_at = NOW()
		WHERE id = $8
		RETURNING ` + userColumns

	return scanUserRow(r.pool.QueryRow(ctx, query,
		user.Email, user.FirstName, user.PaternalSurname, user.MaternalSurname,
		user.Phone, user.Role, user.Active, user.ID,
	))
}

func (r *UserRepository) UpdatePassword(ctx context.Context, id int64, passwordHash string) error {
	query := `UPDATE users SET password_hash = $1, password_changed_at = $2, updated_at = NOW() WHERE id = $3`

	result, err := r.pool.Exec(ctx, query, passwordHash, time.Now(), id)
	if err != nil {
		return database.MapPostgresError(err)
	}
	if result.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

// ReplacePassword swaps the hash only while it still equals currentHash.
// It returns ErrConflict when the password changed in the meantime.
func (r *UserRepository) ReplacePassword(ctx context.Context, id int64, currentHash, newHash string) error {
	query := `
		UPDATE users SET password_hash = $1, password_changed_at = $2, updated_at = NOW()
		WHERE id = $3 AND password_hash = $4`

	result, err := r.pool.Exec(ctx, query, newHash, time.Now(), id, currentHash)
	if err != nil {
		return database.MapPostgresError(err)
	}
	if result.RowsAffected() == 0 {
		return models.ErrConflict
	}
	return nil
}
