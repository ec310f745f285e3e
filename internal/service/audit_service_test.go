package service

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fieldserve/dispatch-admin-api/internal/models"
)

type auditRepoStub struct {
	logs      []models.AuditLog
	lastQuery models.AuditQuery
}

func (s *auditRepoStub) List(ctx context.Context, query models.AuditQuery) ([]models.AuditLog, error) {
	s.lastQuery = query
	if query.Action == "" {
		return s.logs, nil
	}
	var filtered []models.AuditLog
	for _, log := range s.logs {
		if log.Action == query.Action {
			filtered = append(filtered, log)
		}
	}
	return filtered, nil
}

func makeAuditLogs(n int) []models.AuditLog {
	base := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)
	logs := make([]models.AuditLog, 0, n)
	for i := 0; i < n; i++ {
		name := fmt.Sprintf("Admin %02d", i)
		logs = append(logs, models.AuditLog{
			ID:         fmt.Sprintf("log-%02d", i),
			Action:     models.AuditActionRateUpdate,
			EntityType: "rate",
			UserName:   &name,
			CreatedAt:  base.Add(time.Duration(i) * time.Minute),
		})
	}
	return logs
}

func newAuditService(repo *auditRepoStub) *AuditService {
	return NewAuditService(repo, nil, nil, AuditServiceConfig{})
}

func TestAuditListClampsOutOfRangePage(t *testing.T) {
	repo := &auditRepoStub{logs: makeAuditLogs(23)}
	svc := newAuditService(repo)

	page, err := svc.List(context.Background(), "", models.AuditLocalFilter{}, 5, 10)
	require.NoError(t, err)
	assert.Equal(t, 3, page.Page)
	assert.Equal(t, 3, page.TotalPages)
	assert.Equal(t, 23, page.TotalCount)
	require.Len(t, page.Events, 3)
	assert.Equal(t, "log-20", page.Events[0].ID)
	assert.Equal(t, "log-22", page.Events[2].ID)
}

func TestAuditListNegativePageClampsToFirst(t *testing.T) {
	repo := &auditRepoStub{logs: makeAuditLogs(5)}
	svc := newAuditService(repo)

	page, err := svc.List(context.Background(), "", models.AuditLocalFilter{}, -3, 2)
	require.NoError(t, err)
	assert.Equal(t, 1, page.Page)
	require.Len(t, page.Events, 2)
	assert.Equal(t, "log-00", page.Events[0].ID)
}

func TestAuditListEmptySet(t *testing.T) {
	svc := newAuditService(&auditRepoStub{})

	page, err := svc.List(context.Background(), "", models.AuditLocalFilter{}, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, page.Page)
	assert.Equal(t, 0, page.TotalCount)
	assert.Equal(t, 0, page.TotalPages)
	assert.Empty(t, page.Events)

	// Out-of-range pages over an empty set still land on page 1.
	page, err = svc.List(context.Background(), "", models.AuditLocalFilter{}, 5, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, page.Page)
	assert.Empty(t, page.Events)
}

func TestAuditListPushesActionToQuery(t *testing.T) {
	repo := &auditRepoStub{logs: makeAuditLogs(3)}
	svc := newAuditService(repo)

	_, err := svc.List(context.Background(), models.AuditActionLogin, models.AuditLocalFilter{}, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, models.AuditActionLogin, repo.lastQuery.Action)
	assert.Equal(t, 1000, repo.lastQuery.Limit)
}

func TestAuditListLocalDateWindow(t *testing.T) {
	repo := &auditRepoStub{logs: makeAuditLogs(10)}
	svc := newAuditService(repo)

	from := time.Date(2026, 2, 1, 12, 3, 0, 0, time.UTC)
	to := time.Date(2026, 2, 1, 12, 6, 0, 0, time.UTC)
	page, err := svc.List(context.Background(), "", models.AuditLocalFilter{From: &from, To: &to}, 1, 10)
	require.NoError(t, err)
	require.Len(t, page.Events, 3)
	assert.Equal(t, "log-03", page.Events[0].ID)
	assert.Equal(t, "log-05", page.Events[2].ID)
}

func TestAuditListFreeTextSearch(t *testing.T) {
	repo := &auditRepoStub{logs: makeAuditLogs(10)}
	svc := newAuditService(repo)

	page, err := svc.List(context.Background(), "", models.AuditLocalFilter{Search: "admin 07"}, 1, 10)
	require.NoError(t, err)
	require.Len(t, page.Events, 1)
	assert.Equal(t, "log-07", page.Events[0].ID)
}

func TestAuditLabelFallback(t *testing.T) {
	assert.Equal(t, "Rate updated", AuditActionLabel(models.AuditActionRateUpdate))
	assert.Equal(t, "Invoice voided", AuditActionLabel("INVOICE_VOIDED"))
	assert.Equal(t, "", AuditActionLabel(""))
}

func TestAuditExportCSVFilenameAndQuoting(t *testing.T) {
	comma := `Smith, Jane`
	repo := &auditRepoStub{logs: []models.AuditLog{{
		ID:         "log-1",
		Action:     models.AuditActionBatchPaid,
		EntityType: "payout_batch",
		UserName:   &comma,
		Metadata:   []byte(`{"payment_reference":"TRX \"A\""}`),
		CreatedAt:  time.Date(2026, 2, 10, 8, 0, 0, 0, time.UTC),
	}}}
	svc := newAuditService(repo)
	svc.now = func() time.Time { return time.Date(2026, 2, 11, 9, 30, 0, 0, time.UTC) }

	payload, filename, err := svc.ExportCSV(context.Background(), "", models.AuditLocalFilter{})
	require.NoError(t, err)
	assert.Equal(t, "audit_log_2026-02-11.csv", filename)

	content := string(payload)
	lines := strings.Split(strings.TrimSpace(content), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "Timestamp,Action,Label,User,Role,Entity,Entity ID,Details", lines[0])
	assert.Contains(t, content, `"Smith, Jane"`)
	assert.Contains(t, content, "Payout batch marked paid")
}
