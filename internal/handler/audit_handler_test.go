package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fieldserve/dispatch-admin-api/internal/models"
	"github.com/fieldserve/dispatch-admin-api/internal/service"
)

type auditRepoMock struct {
	logs      []models.AuditLog
	lastQuery models.AuditQuery
}

func (m *auditRepoMock) List(ctx context.Context, query models.AuditQuery) ([]models.AuditLog, error) {
	m.lastQuery = query
	if query.Action == "" {
		return m.logs, nil
	}
	var filtered []models.AuditLog
	for _, l := range m.logs {
		if l.Action == query.Action {
			filtered = append(filtered, l)
		}
	}
	return filtered, nil
}

func newAuditHandler(repo *auditRepoMock) *AuditHandler {
	svc := service.NewAuditService(repo, nil, nil, service.AuditServiceConfig{})
	return NewAuditHandler(svc)
}

func TestAuditHandlerListFiltersByAction(t *testing.T) {
	gin.SetMode(gin.TestMode)
	user := "admin-1"
	name := "Jane Smith"
	repo := &auditRepoMock{logs: []models.AuditLog{
		{ID: "log-1", Action: "BATCH_CONFIRMED", EntityType: "payout_batch", UserID: &user, UserName: &name, CreatedAt: time.Now().UTC()},
		{ID: "log-2", Action: "RATE_CREATED", EntityType: "rates", CreatedAt: time.Now().UTC()},
	}}
	handler := newAuditHandler(repo)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodGet, "/audit-logs?action=BATCH_CONFIRMED", nil)
	c.Request = req

	handler.List(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "BATCH_CONFIRMED", repo.lastQuery.Action)

	var envelope struct {
		Data struct {
			Events     []map[string]any `json:"events"`
			TotalCount int              `json:"total_count"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	assert.Equal(t, 1, envelope.Data.TotalCount)
	require.Len(t, envelope.Data.Events, 1)
	assert.Equal(t, "log-1", envelope.Data.Events[0]["id"])
	assert.Equal(t, "Batch confirmed", envelope.Data.Events[0]["label"])
}

func TestAuditHandlerListRejectsBadDate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := newAuditHandler(&auditRepoMock{})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodGet, "/audit-logs?from=03-2026", nil)
	c.Request = req

	handler.List(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAuditHandlerExportCSVSetsDownloadHeaders(t *testing.T) {
	gin.SetMode(gin.TestMode)
	repo := &auditRepoMock{logs: []models.AuditLog{
		{ID: "log-1", Action: "BATCH_PAID", EntityType: "payout_batch", CreatedAt: time.Now().UTC()},
	}}
	handler := newAuditHandler(repo)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodGet, "/audit-logs/export", nil)
	c.Request = req

	handler.ExportCSV(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/csv", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "audit_log_")
	assert.True(t, strings.HasPrefix(w.Body.String(), "Timestamp,Action,Label,User,Role,Entity,Entity ID,Details"))
}
