package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/fieldserve/dispatch-admin-api/internal/models"
)

// AuditRepository appends and queries the immutable audit trail. There are
// deliberately no update or delete operations.
type AuditRepository struct {
	db *sqlx.DB
}

// NewAuditRepository creates a new instance of AuditRepository.
func NewAuditRepository(db *sqlx.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

// CreateAuditLog appends one event to the trail.
func (r *AuditRepository) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	if log.ID == "" {
		log.ID = uuid.NewString()
	}
	if log.CreatedAt.IsZero() {
		log.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO audit_logs (id, user_id, action, entity_type, entity_id, metadata, ip_address, user_agent, created_at)
VALUES (:id, :user_id, :action, :entity_type, :entity_id, :metadata, :ip_address, :user_agent, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, log); err != nil {
		return fmt.Errorf("create audit log: %w", err)
	}
	return nil
}

// List fetches events newest first, joined with the acting user for display.
// Only the action filter is pushed down; all remaining predicates are
// applied by the audit service over the fetched set.
func (r *AuditRepository) List(ctx context.Context, query models.AuditQuery) ([]models.AuditLog, error) {
	baseQuery := `SELECT a.id, a.user_id, u.full_name AS user_name, u.role AS user_role,
	a.action, a.entity_type, a.entity_id, a.metadata, a.ip_address, a.user_agent, a.created_at
FROM audit_logs a
LEFT JOIN users u ON u.id = a.user_id
WHERE 1=1`
	var conditions []string
	var args []interface{}

	if query.Action != "" {
		conditions = append(conditions, fmt.Sprintf("a.action = $%d", len(args)+1))
		args = append(args, query.Action)
	}
	if len(conditions) > 0 {
		baseQuery += " AND " + strings.Join(conditions, " AND ")
	}

	limit := query.Limit
	if limit <= 0 || limit > 5000 {
		limit = 1000
	}
	baseQuery += fmt.Sprintf(" ORDER BY a.created_at DESC LIMIT %d", limit)

	var logs []models.AuditLog
	if err := r.db.SelectContext(ctx, &logs, baseQuery, args...); err != nil {
		return nil, fmt.Errorf("list audit logs: %w", err)
	}
	return logs, nil
}
