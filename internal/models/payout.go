package models

import (
	"fmt"
	"time"
)

// BatchStatus is the persisted payout batch state. Legacy rows may carry
// SCHEDULED, COMPLETED or PROCESSED; DisplayBatchStatus folds those into the
// three canonical display states.
type BatchStatus string

const (
	BatchPending   BatchStatus = "PENDING"
	BatchScheduled BatchStatus = "SCHEDULED"
	BatchConfirmed BatchStatus = "CONFIRMED"
	BatchPaid      BatchStatus = "PAID"
	BatchCompleted BatchStatus = "COMPLETED"
	BatchProcessed BatchStatus = "PROCESSED"
)

// DisplayBatchStatus is the normalized three-state batch status shown to
// admins.
type DisplayBatchStatus string

const (
	DisplayPending   DisplayBatchStatus = "Pending"
	DisplayConfirmed DisplayBatchStatus = "Confirmed"
	DisplayPaid      DisplayBatchStatus = "Paid"
)

// CommissionType labels a payout ledger line. Freelancer lines are
// commissions, internal employee lines are bonuses.
type CommissionType string

const (
	CommissionLine CommissionType = "Commission"
	BonusLine      CommissionType = "Bonus"
)

// PendingCommission is a payout-eligible ledger line derived from a verified
// job payment. The amount is computed in SQL from the payment amount and the
// applicable rate fraction and is never recomputed downstream. A line stays
// pending until a batch or an approved early payout request absorbs it.
type PendingCommission struct {
	ID             string         `db:"id" json:"id"`
	WorkOrderID    string         `db:"work_order_id" json:"work_order_id"`
	TechnicianID   string         `db:"technician_id" json:"technician_id"`
	TechnicianName string         `db:"technician_name" json:"technician_name"`
	Type           CommissionType `db:"type" json:"type"`
	ServiceCategory string        `db:"service_category" json:"service_category"`
	PaymentAmount  float64        `db:"payment_amount" json:"payment_amount"`
	RateFraction   float64        `db:"rate_fraction" json:"-"`
	Amount         float64        `db:"amount" json:"amount"`
	PaymentDate    time.Time      `db:"payment_date" json:"payment_date"`
}

// RatePercent exposes the applied rate as a display percentage.
func (p *PendingCommission) RatePercent() float64 {
	return FractionToPercent(p.RateFraction)
}

// PayoutBatch groups pending commissions snapshotted at creation time.
// Transitions are strictly forward: PENDING -> CONFIRMED -> PAID.
type PayoutBatch struct {
	ID               string      `db:"id" json:"id"`
	Status           BatchStatus `db:"status" json:"status"`
	CreatedAt        time.Time   `db:"created_at" json:"created_at"`
	ScheduledFor     *time.Time  `db:"scheduled_for" json:"scheduled_for,omitempty"`
	ProcessedAt      *time.Time  `db:"processed_at" json:"processed_at,omitempty"`
	TotalAmount      float64     `db:"total_amount" json:"total_amount"`
	TechnicianCount  int         `db:"technician_count" json:"technician_count"`
	CommissionsCount int         `db:"commissions_count" json:"commissions_count"`
	CreatedBy        *string     `db:"created_by" json:"created_by,omitempty"`
	PaymentReference *string     `db:"payment_reference" json:"payment_reference,omitempty"`
	PaymentMethod    *string     `db:"payment_method" json:"payment_method,omitempty"`
	Notes            *string     `db:"notes" json:"notes,omitempty"`
}

// BatchTechnicianBreakdown is one per-technician row of a batch detail view.
type BatchTechnicianBreakdown struct {
	TechnicianID     string         `db:"technician_id" json:"technician_id"`
	TechnicianName   string         `db:"technician_name" json:"technician_name"`
	TechnicianType   TechnicianType `db:"technician_type" json:"-"`
	Employment       string         `json:"employment"`
	TotalAmount      float64        `db:"total_amount" json:"total_amount"`
	CommissionsCount int            `db:"commissions_count" json:"commissions_count"`
}

// EarlyRequestStatus is the early payout request state. PENDING is initial;
// APPROVED and REJECTED are both terminal.
type EarlyRequestStatus string

const (
	EarlyPending  EarlyRequestStatus = "PENDING"
	EarlyApproved EarlyRequestStatus = "APPROVED"
	EarlyRejected EarlyRequestStatus = "REJECTED"
)

// Scan implements sql.Scanner. Rows imported before the status column was
// backfilled carry NULL; those read as PENDING.
func (s *EarlyRequestStatus) Scan(value any) error {
	switch v := value.(type) {
	case nil:
		*s = EarlyPending
	case string:
		*s = EarlyRequestStatus(v)
	case []byte:
		*s = EarlyRequestStatus(v)
	default:
		return fmt.Errorf("unsupported early request status type %T", value)
	}
	if *s == "" {
		*s = EarlyPending
	}
	return nil
}

// EarlyPayoutRequest is a technician-initiated out-of-cycle payout request.
type EarlyPayoutRequest struct {
	ID              string             `db:"id" json:"id"`
	TechnicianID    string             `db:"technician_id" json:"technician_id"`
	TechnicianName  string             `db:"technician_name" json:"technician_name"`
	RequestedAt     time.Time          `db:"requested_at" json:"requested_at"`
	Amount          float64            `db:"amount" json:"amount"`
	Reason          *string            `db:"reason" json:"reason,omitempty"`
	Status          EarlyRequestStatus `db:"status" json:"status"`
	ReviewedBy      *string            `db:"reviewed_by" json:"reviewed_by,omitempty"`
	ReviewedAt      *time.Time         `db:"reviewed_at" json:"reviewed_at,omitempty"`
	ReviewNote      *string            `db:"review_note" json:"review_note,omitempty"`
	RejectionReason *string            `db:"rejection_reason" json:"rejection_reason,omitempty"`
}

// PayoutHistoryEntry is a paid batch row in the payout history listing.
type PayoutHistoryEntry struct {
	BatchID          string     `db:"batch_id" json:"batch_id"`
	ProcessedAt      *time.Time `db:"processed_at" json:"processed_at,omitempty"`
	TotalAmount      float64    `db:"total_amount" json:"total_amount"`
	TechnicianCount  int        `db:"technician_count" json:"technician_count"`
	CommissionsCount int        `db:"commissions_count" json:"commissions_count"`
	PaymentReference *string    `db:"payment_reference" json:"payment_reference,omitempty"`
	PaymentMethod    *string    `db:"payment_method" json:"payment_method,omitempty"`
}
