package models

import "time"

// AuditAction constants represent the known action vocabulary. The set is
// closed but extensible server-side; consumers must tolerate codes outside
// this list.
const (
	AuditActionLogin               = "LOGIN"
	AuditActionLogout              = "LOGOUT"
	AuditActionUserCreate          = "USER_CREATE"
	AuditActionUserUpdate          = "USER_UPDATE"
	AuditActionUserDelete          = "USER_DELETE"
	AuditActionPaymentVerified     = "PAYMENT_VERIFIED"
	AuditActionWorkOrderAssigned   = "WO_ASSIGNED"
	AuditActionTechnicianBlocked   = "TECHNICIAN_BLOCKED"
	AuditActionTechnicianUnblocked = "TECHNICIAN_UNBLOCKED"
	AuditActionRateCreate          = "RATE_CREATE"
	AuditActionRateUpdate          = "RATE_UPDATE"
	AuditActionRateDelete          = "RATE_DELETE"
	AuditActionRateSetDefault      = "RATE_SET_DEFAULT"
	AuditActionBatchCreate         = "PAYOUT_BATCH_CREATED"
	AuditActionBatchConfirm        = "PAYOUT_BATCH_CONFIRMED"
	AuditActionBatchPaid           = "PAYOUT_BATCH_PAID"
	AuditActionEarlyApproved       = "EARLY_PAYOUT_APPROVED"
	AuditActionEarlyRejected       = "EARLY_PAYOUT_REJECTED"
	AuditActionAuditExported       = "AUDIT_LOG_EXPORTED"
	AuditActionStatementExported   = "BATCH_STATEMENT_EXPORTED"
)

// AuditLog represents an immutable audit trail record. Rows are only ever
// appended and queried, never updated or deleted.
type AuditLog struct {
	ID         string    `db:"id" json:"id"`
	UserID     *string   `db:"user_id" json:"user_id,omitempty"`
	UserName   *string   `db:"user_name" json:"user_name,omitempty"`
	UserRole   *string   `db:"user_role" json:"user_role,omitempty"`
	Action     string    `db:"action" json:"action"`
	EntityType string    `db:"entity_type" json:"entity_type"`
	EntityID   *string   `db:"entity_id" json:"entity_id,omitempty"`
	Metadata   []byte    `db:"metadata" json:"metadata,omitempty"`
	IPAddress  string    `db:"ip_address" json:"ip_address"`
	UserAgent  string    `db:"user_agent" json:"user_agent"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

// AuditQuery captures the server-side portion of an audit log query. Only
// the action filter is pushed to SQL; the remaining predicates are applied
// in-memory by the audit service.
type AuditQuery struct {
	Action string
	Limit  int
}

// AuditLocalFilter holds the predicates applied over an already-fetched
// event set.
type AuditLocalFilter struct {
	From       *time.Time
	To         *time.Time
	Role       string
	EntityText string
	Search     string
}
