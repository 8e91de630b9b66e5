package handlers

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/BradenHooton/swgfv/internal/models"
	pkghttp "github.com/BradenHooton/swgfv/pkg/http"
)

// AuditService defines the interface for reading the audit log
type AuditService interface {
	List(ctx context.Context, actor *models.Actor, filter models.AuditLogFilter) ([]*models.AuditLog, error)
}

// AuditHandler handles audit log HTTP requests
type AuditHandler struct {
	auditService AuditService
	ipConfig     *pkghttp.IPConfig
}

// NewAuditHandler creates a new AuditHandler
func NewAuditHandler(auditService AuditService, ipConfig *pkghttp.IPConfig) *AuditHandler {
	return &AuditHandler{
		auditService: auditService,
		ipConfig:     ipConfig,
	}
}

// ListAuditLogs returns audit entries newest first (admin only)
// @Param action query string false "Action"
// @Param actor_id query int false "Actor user ID"
// @Param since query string false "RFC 3339 lower bound"
// @Param until query string false "RFC 3339 upper bound"
// @Router /audit [get]
func (h *AuditHandler) ListAuditLogs(w http.ResponseWriter, r *http.Request) {
	actor := requireActor(w, r, h.ipConfig)
	if actor == nil {
		return
	}

	filter, err := parseAuditFilter(r)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	logs, err := h.auditService.List(r.Context(), actor, filter)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if logs == nil {
		logs = []*models.AuditLog{}
	}

	w.Header().Set("X-Total-Count", strconv.Itoa(len(logs)))
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"logs":   logs,
		"total":  len(logs),
		"limit":  filter.Limit,
		"offset": filter.Offset,
	})
}

func parseAuditFilter(r *http.Request) (models.AuditLogFilter, error) {
	q := r.URL.Query()
	filter := models.AuditLogFilter{Action: strings.TrimSpace(q.Get("action"))}
	filter.Limit, filter.Offset = paging(r, 50, 500)

	actorID, err := queryInt64(r, "actor_id")
	if err != nil {
		return filter, err
	}
	filter.ActorID = actorID

	if filter.Since, err = queryTime(r, "since"); err != nil {
		return filter, err
	}
	if filter.Until, err = queryTime(r, "until"); err != nil {
		return filter, err
	}
	return filter, nil
}

func queryTime(r *http.Request, name string) (*time.Time, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, models.NewValidationError(name, "must be an RFC 3339 timestamp", nil)
	}
	return &t, nil
}
