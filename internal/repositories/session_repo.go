package repositories

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/BradenHooton/swgfv/internal/database"
	"github.com/BradenHooton/swgfv/internal/models"
)

// SessionRepository stores the server-side record of each login session
type SessionRepository struct {
	db   *database.DB
	pool *pgxpool.Pool
}

// NewSessionRepository creates a new SessionRepository
func NewSessionRepository(db *database.DB) *SessionRepository {
	return &SessionRepository{db: db, pool: db.Pool}
}

// Create stores a new session and drops the user's expired ones.
func (r *SessionRepository) Create(ctx context.Context, s *models.SessionRecord) error {
	return r.db.WithTransaction(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx,
			`DELETE FROM sessions WHERE user_id = $1 AND expires_at < $2`, s.UserID, s.CreatedAt,
		); err != nil {
			return database.MapPostgresError(err)
		}

		_, err := tx.Exec(ctx, `
			INSERT INTO sessions (id, user_id, created_at, last_seen_at, expires_at)
			VALUES ($1, $2, $3, $4, $5)`,
			s.ID, s.UserID, s.CreatedAt, s.LastSeenAt, s.ExpiresAt,
		)
		return database.MapPostgresError(err)
	})
}

// Lookup returns the session joined with its account's current email, role
// and active flag.
func (r *SessionRepository) Lookup(ctx context.Context, id string) (*models.SessionState, error) {
	query := `
		SELECT s.id, s.user_id, s.created_at, s.last_seen_at, s.expires_at, u.email, u.role, u.active
		FROM sessions s
		JOIN users u ON u.id = s.user_id
		WHERE s.id = $1`

	var st models.SessionState
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&st.ID, &st.UserID, &st.CreatedAt, &st.LastSeenAt, &st.ExpiresAt,
		&st.Email, &st.Role, &st.Active,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}
	return &st, nil
}

// Touch records activity on the session.
func (r *SessionRepository) Touch(ctx context.Context, id string, seen time.Time) error {
	_, err := r.pool.Exec(ctx, `UPDATE sessions SET last_seen_at = $2 WHERE id = $1`, id, seen)
	return database.MapPostgresError(err)
}

// Delete revokes one session. Deleting a missing session is not an error.
func (r *SessionRepository) Delete(ctx context.Context, id string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM sessions WHERE id = $1`, id)
	return database.MapPostgresError(err)
}

// DeleteForUser revokes every session of a user.
func (r *SessionRepository) DeleteForUser(ctx context.Context, userID int64) (int64, error) {
	result, err := r.pool.Exec(ctx, `DELETE FROM sessions WHERE user_id = $1`, userID)
	if err != nil {
		return 0, database.MapPostgresError(err)
	}
	return result.RowsAffected(), nil
}
