package service

import (
	"strings"

	"github.com/fieldserve/dispatch-admin-api/internal/models"
)

// auditActionLabels maps known action codes to their display labels. Codes
// outside the table fall back to a generated label so new server-side
// actions never break the viewer.
var auditActionLabels = map[string]string{
	models.AuditActionLogin:                "User logged in",
	models.AuditActionLogout:               "User logged out",
	models.AuditActionUserCreate:           "User account created",
	models.AuditActionUserUpdate:           "User account updated",
	models.AuditActionUserDelete:           "User account deleted",
	models.AuditActionPaymentVerified:      "Payment verified",
	models.AuditActionWorkOrderAssigned:    "Work order assigned",
	models.AuditActionTechnicianBlocked:    "Technician blocked",
	models.AuditActionTechnicianUnblocked:  "Technician unblocked",
	models.AuditActionRateCreate:           "Rate created",
	models.AuditActionRateUpdate:           "Rate updated",
	models.AuditActionRateDelete:           "Rate deleted",
	models.AuditActionRateSetDefault:       "Default rate changed",
	models.AuditActionBatchCreate:          "Payout batch created",
	models.AuditActionBatchConfirm:         "Payout batch confirmed",
	models.AuditActionBatchPaid:            "Payout batch marked paid",
	models.AuditActionEarlyApproved:        "Early payout approved",
	models.AuditActionEarlyRejected:        "Early payout rejected",
	models.AuditActionAuditExported:        "Audit log exported",
	models.AuditActionStatementExported:    "Batch statement exported",
}

// AuditActionLabel resolves the display label for an action code. Unknown
// codes are rendered by lowercasing the code and replacing underscores, with
// the first word capitalized.
func AuditActionLabel(action string) string {
	if label, ok := auditActionLabels[action]; ok {
		return label
	}
	words := strings.Split(strings.ToLower(strings.TrimSpace(action)), "_")
	out := strings.Join(words, " ")
	if out == "" {
		return ""
	}
	return strings.ToUpper(out[:1]) + out[1:]
}
