package handlers_test

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BradenHooton/swgfv/internal/handlers"
	"github.com/BradenHooton/swgfv/internal/models"
	pkghttp "github.com/BradenHooton/swgfv/pkg/http"
)

func TestListAuditLogs_ParsesFilter(t *testing.T) {
	var got models.AuditLogFilter
	svc := &handlers.MockAuditService{
		ListFunc: func(ctx context.Context, actor *models.Actor, filter models.AuditLogFilter) ([]*models.AuditLog, error) {
			got = filter
			return []*models.AuditLog{{Action: models.AuditActionLogin, Success: true}}, nil
		},
	}
	handler := handlers.NewAuditHandler(svc, &pkghttp.IPConfig{})

	req := handlers.WithAdminSession(httptest.NewRequest("GET",
		"/audit?action=login&actor_id=3&since=2026-03-01T00:00:00Z&until=2026-03-02T00:00:00Z&limit=20", nil))
	w := httptest.NewRecorder()
	handler.ListAuditLogs(w, req)

	var resp struct {
		Logs  []models.AuditLog `json:"logs"`
		Total int               `json:"total"`
		Limit int               `json:"limit"`
	}
	handlers.AssertJSONResponse(t, w, 200, &resp)
	assert.Equal(t, 1, resp.Total)
	assert.Equal(t, 20, resp.Limit)
	assert.Equal(t, "1", w.Header().Get("X-Total-Count"))

	assert.Equal(t, "login", got.Action)
	require.NotNil(t, got.ActorID)
	assert.Equal(t, int64(3), *got.ActorID)
	require.NotNil(t, got.Since)
	assert.True(t, got.Since.Equal(time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)))
	require.NotNil(t, got.Until)
}

func TestListAuditLogs_InvalidSince(t *testing.T) {
	handler := handlers.NewAuditHandler(&handlers.MockAuditService{}, &pkghttp.IPConfig{})

	req := handlers.WithAdminSession(httptest.NewRequest("GET", "/audit?since=yesterday", nil))
	w := httptest.NewRecorder()
	handler.ListAuditLogs(w, req)

	handlers.AssertErrorResponse(t, w, 400, "validation_failed")
}

func TestListAuditLogs_ForbiddenForGeneralUser(t *testing.T) {
	svc := &handlers.MockAuditService{
		ListFunc: func(ctx context.Context, actor *models.Actor, filter models.AuditLogFilter) ([]*models.AuditLog, error) {
			return nil, models.ErrForbidden
		},
	}
	handler := handlers.NewAuditHandler(svc, &pkghttp.IPConfig{})

	req := handlers.WithSession(httptest.NewRequest("GET", "/audit", nil), 2, "user@example.com", models.RoleGeneral)
	w := httptest.NewRecorder()
	handler.ListAuditLogs(w, req)

	handlers.AssertErrorResponse(t, w, 403, "forbidden")
}
