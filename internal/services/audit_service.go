package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/BradenHooton/swgfv/internal/models"
	pkglogger "github.com/BradenHooton/swgfv/pkg/logger"
)

// AuditLogRepository defines the interface for audit log persistence
type AuditLogRepository interface {
	Create(ctx context.Context, log *models.AuditLog) (*models.AuditLog, error)
	List(ctx context.Context, filter models.AuditLogFilter) ([]*models.AuditLog, error)
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// Auditor records audit events. Recording never fails the caller.
type Auditor interface {
	Record(ctx context.Context, entry AuditEntry)
}

// AuditEntry is one audited event before persistence.
type AuditEntry struct {
	Action     string
	ActorID    *int64
	ActorEmail string
	IPAddress  string
	UserAgent  string
	Success    bool
	Message    string
	TargetType string
	TargetID   string
	Metadata   models.AuditMetadata
}

// actorEntry starts a successful entry attributed to actor.
func actorEntry(actor *models.Actor, action string) AuditEntry {
	e := AuditEntry{Action: action, Success: true}
	if actor != nil {
		if actor.UserID != 0 {
			id := actor.UserID
			e.ActorID = &id
		}
		e.ActorEmail = actor.Email
		e.IPAddress = actor.IPAddress
		e.UserAgent = actor.UserAgent
	}
	return e
}

func (e AuditEntry) target(kind string, id int64) AuditEntry {
	e.TargetType = kind
	e.TargetID = fmt.Sprintf("%d", id)
	return e
}

// maxActorEmailLength is the width of audit_logs.actor_email.
const maxActorEmailLength = 150

// AuditService handles audit logging with dual-write pattern (slog + database)
type AuditService struct {
	repo        AuditLogRepository
	auditLogger *pkglogger.AuditLogger
	logger      *slog.Logger
}

// NewAuditService creates a new AuditService
func NewAuditService(repo AuditLogRepository, logger *slog.Logger) *AuditService {
	return &AuditService{
		repo:        repo,
		auditLogger: pkglogger.NewAuditLogger(logger),
		logger:      logger,
	}
}

// Record writes the entry to the structured log and then to the database.
// A persistence failure is logged and swallowed.
func (s *AuditService) Record(ctx context.Context, entry AuditEntry) {
	entry.ActorEmail = truncate(entry.ActorEmail, maxActorEmailLength)
	event := pkglogger.AuditEvent{
		Action:     entry.Action,
		ActorEmail: entry.ActorEmail,
		TargetType: entry.TargetType,
		TargetID:   entry.TargetID,
		IPAddress:  entry.IPAddress,
		UserAgent:  entry.UserAgent,
		Success:    entry.Success,
		Message:    entry.Message,
		Metadata:   entry.Metadata,
	}
	if entry.ActorID != nil {
		event.ActorID = fmt.Sprintf("%d", *entry.ActorID)
	}

	switch {
	case entry.Action == models.AuditActionLogin || entry.Action == models.AuditActionLogout ||
		entry.Action == models.AuditActionLockout || strings.HasPrefix(entry.Action, "password_reset"):
		s.auditLogger.LogAuthAttempt(ctx, event)
	default:
		s.auditLogger.Log(ctx, event)
	}

	_, err := s.repo.Create(ctx, &models.AuditLog{
		Action:     entry.Action,
		ActorID:    entry.ActorID,
		ActorEmail: entry.ActorEmail,
		Success:    entry.Success,
		Message:    entry.Message,
		TargetType: entry.TargetType,
		TargetID:   entry.TargetID,
		IPAddress:  entry.IPAddress,
		UserAgent:  truncate(entry.UserAgent, 1000),
		Metadata:   entry.Metadata,
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to persist audit log",
			slog.String("action", entry.Action),
			slog.Any("error", err),
		)
	}
}

// List returns recent audit activity. Admin only.
func (s *AuditService) List(ctx context.Context, actor *models.Actor, filter models.AuditLogFilter) ([]*models.AuditLog, error) {
	if !actor.IsAdmin() {
		return nil, models.ErrForbidden
	}
	if filter.Limit <= 0 || filter.Limit > 500 {
		filter.Limit = 50
	}

	logs, err := s.repo.List(ctx, filter)
	if err != nil {
		s.logger.Error("failed to list audit logs", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}
	return logs, nil
}

// Cleanup deletes audit logs older than the retention window.
func (s *AuditService) Cleanup(ctx context.Context, retentionDays int) (int64, error) {
	if retentionDays <= 0 {
		return 0, nil
	}
	cutoff := time.Now().AddDate(0, 0, -retentionDays)
	return s.repo.DeleteOlderThan(ctx, cutoff)
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max])
}
