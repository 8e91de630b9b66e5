package models

import (
	"database/sql/driver"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Audited actions
const (
	AuditActionLogin             = "login"
	AuditActionLogout            = "logout"
	AuditActionLockout           = "account_locked"
	AuditActionPasswordResetReq  = "password_reset_request"
	AuditActionPasswordResetDone = "password_reset_confirm"
	AuditActionUserCreate        = "user_create"
	AuditActionUserUpdate        = "user_update"
	AuditActionUserDeactivate    = "user_deactivate"
	AuditActionProjectCreate     = "project_create"
	AuditActionProjectUpdate     = "project_update"
	AuditActionProjectDelete     = "project_delete"
	AuditActionSizingSubmit      = "sizing_submit"
	AuditActionCatalogUpsert     = "catalog_upsert"
	AuditActionCatalogDelete     = "catalog_delete"
	AuditActionCatalogImport     = "catalog_import"
	AuditActionExport            = "export"
)

// Target types
const (
	AuditTargetUser    = "user"
	AuditTargetProject = "project"
	AuditTargetCatalog = "catalog"
)

type AuditLog struct {
	ID         uuid.UUID     `json:"id"`
	Action     string        `json:"action"`
	ActorID    *int64        `json:"actor_id,omitempty"`
	ActorEmail string        `json:"actor_email,omitempty"`
	Success    bool          `json:"success"`
	Message    string        `json:"message,omitempty"`
	TargetType string        `json:"target_type,omitempty"`
	TargetID   string        `json:"target_id,omitempty"`
	IPAddress  string        `json:"ip_address,omitempty"`
	UserAgent  string        `json:"user_agent,omitempty"`
	Metadata   AuditMetadata `json:"metadata,omitempty"`
	CreatedAt  time.Time     `json:"created_at"`
}

// AuditLogFilter narrows an audit log listing. Zero values match everything.
type AuditLogFilter struct {
	Action  string
	ActorID *int64
	Since   *time.Time
	Until   *time.Time
	Limit   int
	Offset  int
}

// AuditMetadata holds additional context for audit events
type AuditMetadata map[string]interface{}

// NewImportMetadata describes the outcome of a catalog import run.
func NewImportMetadata(catalog, source string, created, updated, skipped int) AuditMetadata {
	return AuditMetadata{
		"catalog": catalog,
		"source":  source,
		"created": created,
		"updated": updated,
		"skipped": skipped,
	}
}

// Scan implements sql.Scanner for JSONB
func (am *AuditMetadata) Scan(value interface{}) error {
	var raw []byte
	switch v := value.(type) {
	case nil:
		*am = make(AuditMetadata)
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return ErrBadRequest
	}

	var m map[string]interface{}
	if err := json.Unmarshal(raw, &m); err != nil {
		return err
	}
	*am = AuditMetadata(m)
	return nil
}

// Value implements driver.Valuer for JSONB
func (am AuditMetadata) Value() (driver.Value, error) {
	if am == nil {
		return nil, nil
	}
	b, err := json.Marshal(map[string]interface{}(am))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}
