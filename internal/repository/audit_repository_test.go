package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fieldserve/dispatch-admin-api/internal/models"
)

func newAuditRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	sqlxDB := sqlx.NewDb(db, "postgres")
	return sqlxDB, mock, func() {
		sqlxDB.Close()
		db.Close()
	}
}

func auditLogRows(logs ...models.AuditLog) *sqlmock.Rows {
	rows := sqlmock.NewRows([]string{"id", "user_id", "user_name", "user_role", "action", "entity_type", "entity_id", "metadata", "ip_address", "user_agent", "created_at"})
	for _, l := range logs {
		rows.AddRow(l.ID, l.UserID, l.UserName, l.UserRole, l.Action, l.EntityType, l.EntityID, l.Metadata, l.IPAddress, l.UserAgent, l.CreatedAt)
	}
	return rows
}

func TestAuditRepositoryCreateAuditLogFillsDefaults(t *testing.T) {
	db, mock, cleanup := newAuditRepoMock(t)
	defer cleanup()

	mock.ExpectExec("INSERT INTO audit_logs").
		WillReturnResult(sqlmock.NewResult(1, 1))

	repo := NewAuditRepository(db)
	log := &models.AuditLog{
		Action:     "RATE_CREATED",
		EntityType: "rates",
		IPAddress:  "10.0.0.1",
		UserAgent:  "test",
	}
	require.NoError(t, repo.CreateAuditLog(context.Background(), log))
	assert.NotEmpty(t, log.ID)
	assert.False(t, log.CreatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAuditRepositoryListPushesActionFilter(t *testing.T) {
	db, mock, cleanup := newAuditRepoMock(t)
	defer cleanup()

	now := time.Now().UTC()
	userID := "admin-1"
	userName := "Jane Smith"
	role := "ADMIN"
	mock.ExpectQuery(regexp.QuoteMeta("WHERE 1=1 AND a.action = $1 ORDER BY a.created_at DESC LIMIT 1000")).
		WithArgs("BATCH_CONFIRMED").
		WillReturnRows(auditLogRows(models.AuditLog{
			ID:         "log-1",
			UserID:     &userID,
			UserName:   &userName,
			UserRole:   &role,
			Action:     "BATCH_CONFIRMED",
			EntityType: "payout_batch",
			CreatedAt:  now,
		}))

	repo := NewAuditRepository(db)
	logs, err := repo.List(context.Background(), models.AuditQuery{Action: "BATCH_CONFIRMED"})
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, "BATCH_CONFIRMED", logs[0].Action)
	require.NotNil(t, logs[0].UserName)
	assert.Equal(t, "Jane Smith", *logs[0].UserName)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAuditRepositoryListCapsLimit(t *testing.T) {
	db, mock, cleanup := newAuditRepoMock(t)
	defer cleanup()

	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY a.created_at DESC LIMIT 1000")).
		WillReturnRows(auditLogRows())

	repo := NewAuditRepository(db)
	logs, err := repo.List(context.Background(), models.AuditQuery{Limit: 90000})
	require.NoError(t, err)
	assert.Empty(t, logs)
	assert.NoError(t, mock.ExpectationsWereMet())
}
