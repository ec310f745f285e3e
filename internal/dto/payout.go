package dto

import "time"

// PendingCommissionItem is a payout-eligible ledger line exposed via API.
type PendingCommissionItem struct {
	ID              string    `json:"id"`
	WorkOrderID     string    `json:"work_order_id"`
	TechnicianID    string    `json:"technician_id"`
	TechnicianName  string    `json:"technician_name"`
	Type            string    `json:"type"`
	ServiceCategory string    `json:"service_category"`
	PaymentAmount   float64   `json:"payment_amount"`
	RatePercent     float64   `json:"rate_percent"`
	Amount          float64   `json:"amount"`
	PaymentDate     time.Time `json:"payment_date"`
}

// BatchItem is a payout batch row with the normalized display status.
type BatchItem struct {
	ID               string     `json:"id"`
	Status           string     `json:"status"`
	DisplayStatus    string     `json:"display_status"`
	CreatedAt        time.Time  `json:"created_at"`
	ScheduledFor     *time.Time `json:"scheduled_for,omitempty"`
	ProcessedAt      *time.Time `json:"processed_at,omitempty"`
	TotalAmount      float64    `json:"total_amount"`
	TechnicianCount  int        `json:"technician_count"`
	CommissionsCount int        `json:"commissions_count"`
	CreatedBy        string     `json:"created_by,omitempty"`
}

// BatchDetailsResponse is the full breakdown of a batch.
type BatchDetailsResponse struct {
	Batch       BatchItem               `json:"batch"`
	Technicians []BatchTechnicianEntry  `json:"technicians"`
}

// BatchTechnicianEntry is the per-technician slice of a batch.
type BatchTechnicianEntry struct {
	TechnicianID     string  `json:"technician_id"`
	TechnicianName   string  `json:"technician_name"`
	Employment       string  `json:"employment"`
	TotalAmount      float64 `json:"total_amount"`
	CommissionsCount int     `json:"commissions_count"`
}

// MarkPaidRequest carries the payment evidence for the CONFIRMED -> PAID
// transition.
type MarkPaidRequest struct {
	PaymentReference string `json:"payment_reference" validate:"required"`
	PaymentMethod    string `json:"payment_method" validate:"required"`
	Notes            string `json:"notes"`
}

// EarlyRequestItem is an early payout request exposed via API.
type EarlyRequestItem struct {
	ID              string     `json:"id"`
	TechnicianID    string     `json:"technician_id"`
	TechnicianName  string     `json:"technician_name"`
	RequestedAt     time.Time  `json:"requested_at"`
	Amount          float64    `json:"amount"`
	Reason          string     `json:"reason,omitempty"`
	Status          string     `json:"status"`
	ReviewedBy      string     `json:"reviewed_by,omitempty"`
	ReviewedAt      *time.Time `json:"reviewed_at,omitempty"`
	ReviewNote      string     `json:"review_note,omitempty"`
	RejectionReason string     `json:"rejection_reason,omitempty"`
}

// ApproveEarlyRequest carries the optional approval note. A blank note is
// replaced with the configured default.
type ApproveEarlyRequest struct {
	Note string `json:"note"`
}

// RejectEarlyRequest carries the mandatory rejection reason.
type RejectEarlyRequest struct {
	Reason string `json:"reason" validate:"required"`
}

// SummaryResponse combines the payout dashboard KPIs.
type SummaryResponse struct {
	PendingAmount       float64   `json:"pending_amount"`
	PendingCount        int       `json:"pending_count"`
	EarlyRequestAmount  float64   `json:"early_request_amount"`
	EarlyRequestCount   int       `json:"early_request_count"`
	PaidThisMonthAmount float64   `json:"paid_this_month_amount"`
	PaidThisMonthCount  int       `json:"paid_this_month_count"`
	NextPayoutDate      time.Time `json:"next_payout_date"`
}

// HistoryEntry is one paid batch row in the payout history listing.
type HistoryEntry struct {
	BatchID          string     `json:"batch_id"`
	ProcessedAt      *time.Time `json:"processed_at,omitempty"`
	TotalAmount      float64    `json:"total_amount"`
	TechnicianCount  int        `json:"technician_count"`
	CommissionsCount int        `json:"commissions_count"`
	PaymentReference string     `json:"payment_reference,omitempty"`
	PaymentMethod    string     `json:"payment_method,omitempty"`
}
