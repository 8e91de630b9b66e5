package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/BradenHooton/swgfv/internal/database"
	"github.com/BradenHooton/swgfv/internal/models"
)

// AuditLogRepository handles audit log data access
type AuditLogRepository struct {
	pool *pgxpool.Pool
}

// NewAuditLogRepository creates a new AuditLogRepository
func NewAuditLogRepository(db *database.DB) *AuditLogRepository {
	return &AuditLogRepository{pool: db.Pool}
}

const auditColumns = `id, action, actor_id, COALESCE(actor_email, ''), success, message,
	COALESCE(target_type, ''), COALESCE(target_id, ''), COALESCE(ip_address, ''),
	COALESCE(user_agent, ''), metadata, created_at`

// scanAuditLogRow populates an AuditLog model from a database row
func scanAuditLogRow(row rowScanner) (*models.AuditLog, error) {
	var log models.AuditLog

	err := row.Scan(
		&log.ID, &log.Action, &log.ActorID, &log.ActorEmail, &log.Success, &log.Message,
		&log.TargetType, &log.TargetID, &log.IPAddress, &log.UserAgent, &log.Metadata,
		&log.CreatedAt,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	return &log, nil
}

// Create creates a new audit log entry
func (r *AuditLogRepository) Create(ctx context.Context, log *models.AuditLog) (*models.AuditLog, error) {
	query := `
		INSERT INTO audit_logs (
			action, actor_id, actor_email, success, message, target_type, target_id,
			ip_address, user_agent, metadata
		)
		VALUES ($1, $2, NULLIF($3, ''), $4, $5, NULLIF($6, ''), NULLIF($7, ''),
		        NULLIF($8, ''), NULLIF($9, ''), COALESCE($10::jsonb, '{}'::jsonb))
		RETURNING ` + auditColumns

	result, err := scanAuditLogRow(r.pool.QueryRow(
		ctx, query,
		log.Action, log.ActorID, log.ActorEmail, log.Success, log.Message, log.TargetType, log.TargetID,
		log.IPAddress, log.UserAgent, log.Metadata,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to create audit log: %w", err)
	}

	return result, nil
}

// List returns audit logs newest first
func (r *AuditLogRepository) List(ctx context.Context, lf models.AuditLogFilter) ([]*models.AuditLog, error) {
	var f filter
	if lf.Action != "" {
		f.add("action = ?", lf.Action)
	}
	if lf.ActorID != nil {
		f.add("actor_id = ?", *lf.ActorID)
	}
	if lf.Since != nil {
		f.add("created_at >= ?", *lf.Since)
	}
	if lf.Until != nil {
		f.add("created_at < ?", *lf.Until)
	}

	query := `SELECT ` + auditColumns + ` FROM audit_logs` + f.where() +
		` ORDER BY created_at DESC` + f.page(lf.Limit, lf.Offset, 50)

	rows, err := r.pool.Query(ctx, query, f.args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit logs: %w", err)
	}

	return scanRows(rows, scanAuditLogRow)
}

// DeleteOlderThan removes audit logs created before cutoff
func (r *AuditLogRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := r.pool.Exec(ctx, `DELETE FROM audit_logs WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to cleanup audit logs: %w", err)
	}

	return result.RowsAffected(), nil
}
