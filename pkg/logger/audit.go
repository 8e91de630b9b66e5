package logger

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// AuditEvent represents a security audit event
type AuditEvent struct {
	Category   string // "auth", "account", "project", "catalog", "export"
	Action     string
	ActorID    string
	ActorEmail string
	TargetType string
	TargetID   string
	IPAddress  string
	UserAgent  string
	Success    bool
	Message    string
	Metadata   map[string]interface{}
}

// AuditLogger provides audit logging functionality
type AuditLogger struct {
	logger *slog.Logger
}

// NewAuditLogger creates a new audit logger
func NewAuditLogger(logger *slog.Logger) *AuditLogger {
	return &AuditLogger{
		logger: logger,
	}
}

// Log writes one audit record. Emails are masked; failures log at warn level.
func (al *AuditLogger) Log(ctx context.Context, event AuditEvent) {
	category := event.Category
	if category == "" {
		category = "account"
	}

	attrs := []slog.Attr{
		slog.String("audit_type", category),
		slog.String("event_type", event.Action),
		slog.Bool("success", event.Success),
		slog.String("timestamp", time.Now().UTC().Format(time.RFC3339)),
	}

	if event.ActorID != "" {
		attrs = append(attrs, slog.String("user_id", event.ActorID))
	}
	if event.ActorEmail != "" {
		attrs = append(attrs, slog.String("user_email", SanitizedEmail(event.ActorEmail)))
	}
	if event.TargetType != "" {
		attrs = append(attrs, slog.String("target_type", event.TargetType), slog.String("target_id", event.TargetID))
	}
	if event.IPAddress != "" {
		attrs = append(attrs, slog.String("ip_address", event.IPAddress))
	}
	if event.UserAgent != "" {
		attrs = append(attrs, slog.String("user_agent", event.UserAgent))
	}
	if event.Message != "" {
		attrs = append(attrs, slog.String("message", event.Message))
	}
	for key, val := range event.Metadata {
		attrs = append(attrs, slog.String(key, fmt.Sprint(val)))
	}

	level := slog.LevelInfo
	if !event.Success {
		level = slog.LevelWarn
	}
	al.logger.LogAttrs(ctx, level, "audit", attrs...)
}

// LogAuthAttempt logs authentication attempts
func (al *AuditLogger) LogAuthAttempt(ctx context.Context, event AuditEvent) {
	event.Category = "auth"
	al.Log(ctx, event)
}
