package background

import (
	"context"
	"log/slog"
	"time"
)

// AuditCleaner removes audit entries older than a retention window.
type AuditCleaner interface {
	Cleanup(ctx context.Context, retentionDays int) (int64, error)
}

// AuditRetentionManager periodically prunes the audit log
type AuditRetentionManager struct {
	cleaner       AuditCleaner
	logger        *slog.Logger
	interval      time.Duration
	retentionDays int
	stopCh        chan struct{}
}

// NewAuditRetentionManager creates a new retention manager. A non-positive
// retention keeps the audit log forever and Start returns immediately.
func NewAuditRetentionManager(
	cleaner AuditCleaner,
	logger *slog.Logger,
	interval time.Duration,
	retentionDays int,
) *AuditRetentionManager {
	return &AuditRetentionManager{
		cleaner:       cleaner,
		logger:        logger,
		interval:      interval,
		retentionDays: retentionDays,
		stopCh:        make(chan struct{}),
	}
}

// Start begins the periodic cleanup task
func (m *AuditRetentionManager) Start(ctx context.Context) {
	if m.retentionDays <= 0 || m.interval <= 0 {
		m.logger.Info("audit retention disabled")
		return
	}

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	// Run immediately on startup
	m.runCleanup(ctx)

	for {
		select {
		case <-ticker.C:
			m.runCleanup(ctx)
		case <-m.stopCh:
			m.logger.Info("audit retention manager stopped")
			return
		case <-ctx.Done():
			m.logger.Info("audit retention manager context cancelled")
			return
		}
	}
}

func (m *AuditRetentionManager) runCleanup(ctx context.Context) {
	cleanupCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	rowsDeleted, err := m.cleaner.Cleanup(cleanupCtx, m.retentionDays)
	if err != nil {
		m.logger.Error("failed to prune audit log", slog.Any("error", err))
		return
	}

	if rowsDeleted > 0 {
		m.logger.Info("audit log pruned",
			slog.Int64("rows_deleted", rowsDeleted),
			slog.Int("retention_days", m.retentionDays))
	}
}

// Stop signals the manager to stop
func (m *AuditRetentionManager) Stop() {
	close(m.stopCh)
}
