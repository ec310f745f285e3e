package models

import "time"

// TechnicianType classifies a technician's employment relationship. The type
// decides whether percentage pay is booked as commission or bonus.
type TechnicianType string

const (
	TechFreelancer TechnicianType = "FREELANCER"
	TechInternal   TechnicianType = "INTERNAL"
)

// EmploymentLabel returns the human display label for a technician type.
// Unknown role codes fall back to Freelancer, matching the payout ledger's
// treatment of unclassified technicians.
func (t TechnicianType) EmploymentLabel() string {
	if t == TechInternal {
		return "Internal Employee"
	}
	return "Freelancer"
}

// RateType returns the rate category a technician of this type is paid
// under: bonus for internal employees, commission for everyone else.
func (t TechnicianType) RateType() RateType {
	if t == TechInternal {
		return RateBonus
	}
	return RateCommission
}

// Technician represents a field technician eligible for payouts.
type Technician struct {
	ID               string         `db:"id" json:"id"`
	UserID           *string        `db:"user_id" json:"user_id,omitempty"`
	FullName         string         `db:"full_name" json:"full_name"`
	Email            string         `db:"email" json:"email"`
	Phone            *string        `db:"phone" json:"phone,omitempty"`
	Type             TechnicianType `db:"type" json:"type"`
	SpecializationID *string        `db:"specialization_id" json:"specialization_id,omitempty"`
	Blocked          bool           `db:"blocked" json:"blocked"`
	CreatedAt        time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time      `db:"updated_at" json:"updated_at"`
}

// TechnicianFilter captures filtering options for listing technicians.
type TechnicianFilter struct {
	Type      *TechnicianType
	Blocked   *bool
	Search    string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
