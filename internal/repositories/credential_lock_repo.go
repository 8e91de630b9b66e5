package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/BradenHooton/swgfv/internal/database"
	"github.com/BradenHooton/swgfv/internal/models"
)

// CredentialLockRepository persists failed-login counters per identifier.
type CredentialLockRepository struct {
	db *database.DB
}

func NewCredentialLockRepository(db *database.DB) *CredentialLockRepository {
	return &CredentialLockRepository{db: db}
}

const lockColumns = `identifier, failed_attempts, locked_until, last_failure_at, created_at, updated_at`

func scanLockRow(scanner rowScanner) (*models.CredentialLock, error) {
	var l models.CredentialLock
	err := scanner.Scan(&l.Identifier, &l.FailedAttempts, &l.LockedUntil, &l.LastFailureAt, &l.CreatedAt, &l.UpdatedAt)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}
	return &l, nil
}

// Get returns the stored lock, or a zero lock when the identifier has no history.
func (r *CredentialLockRepository) Get(ctx context.Context, identifier string) (*models.CredentialLock, error) {
	l, err := scanLockRow(r.db.Pool.QueryRow(ctx,
		`SELECT `+lockColumns+` FROM credential_locks WHERE identifier = $1`, identifier))
	if errors.Is(err, models.ErrNotFound) {
		return &models.CredentialLock{Identifier: identifier}, nil
	}
	return l, err
}

// Mutate applies fn to the identifier's lock as one atomic read-modify-write.
// The row is created if missing and held with SELECT ... FOR UPDATE while fn
// runs, so concurrent failures for the same identifier serialize.
func (r *CredentialLockRepository) Mutate(ctx context.Context, identifier string, fn func(*models.CredentialLock) error) (*models.CredentialLock, error) {
	var result *models.CredentialLock

	err := r.db.WithTransaction(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx,
			`INSERT INTO credential_locks (identifier) VALUES ($1) ON CONFLICT (identifier) DO NOTHING`,
			identifier,
		); err != nil {
			return database.MapPostgresError(err)
		}

		lock, err := scanLockRow(tx.QueryRow(ctx,
			`SELECT `+lockColumns+` FROM credential_locks WHERE identifier = $1 FOR UPDATE`, identifier))
		if err != nil {
			return err
		}

		if err := fn(lock); err != nil {
			return err
		}

		result, err = scanLockRow(tx.QueryRow(ctx, `
			UPDATE credential_locks
			SET failed_attempts = $1, locked_until = $2, last_failure_at = $3, updated_at = NOW()
			WHERE identifier = $4
			RETURNING `+lockColumns,
			lock.FailedAttempts, lock.LockedUntil, lock.LastFailureAt, identifier,
		))
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to update credential lock: %w", err)
	}
	return result, nil
}
