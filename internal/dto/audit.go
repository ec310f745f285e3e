package dto

import "time"

// AuditEventItem is an audit event with its derived human label.
type AuditEventItem struct {
	ID         string          `json:"id"`
	CreatedAt  time.Time       `json:"created_at"`
	Action     string          `json:"action"`
	Label      string          `json:"label"`
	EntityType string          `json:"entity_type"`
	EntityID   string          `json:"entity_id,omitempty"`
	UserID     string          `json:"user_id,omitempty"`
	UserName   string          `json:"user_name,omitempty"`
	UserRole   string          `json:"user_role,omitempty"`
	Metadata   map[string]any  `json:"metadata,omitempty"`
}

// AuditPageResponse is one client-side page of the filtered event set.
type AuditPageResponse struct {
	Events     []AuditEventItem `json:"events"`
	Page       int              `json:"page"`
	PageSize   int              `json:"page_size"`
	TotalCount int              `json:"total_count"`
	TotalPages int              `json:"total_pages"`
}
