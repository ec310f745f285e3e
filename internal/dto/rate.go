package dto

// RateItem is a rate exposed via API with the percentage representation.
type RateItem struct {
	ID          string  `json:"id"`
	RateID      string  `json:"rate_id"`
	Name        string  `json:"name"`
	Type        string  `json:"type"`
	TechType    string  `json:"tech_type"`
	RatePercent float64 `json:"rate_percentage"`
	Description string  `json:"description,omitempty"`
	IsDefault   bool    `json:"is_default"`
}

// CreateRateRequest describes the payload for creating a rate.
type CreateRateRequest struct {
	RateID      string  `json:"rate_id" validate:"required"`
	Name        string  `json:"name" validate:"required"`
	Type        string  `json:"type" validate:"required,oneof=COMMISSION BONUS"`
	TechType    string  `json:"tech_type" validate:"required,oneof=FREELANCER INTERNAL"`
	RatePercent float64 `json:"rate_percentage" validate:"gte=0,lte=100"`
	Description string  `json:"description"`
}

// UpdateRateRequest is a partial update. The default flag is deliberately
// absent: it can only change through the set-default operation.
type UpdateRateRequest struct {
	Name        *string  `json:"name,omitempty"`
	RatePercent *float64 `json:"rate_percentage,omitempty" validate:"omitempty,gte=0,lte=100"`
	Description *string  `json:"description,omitempty"`
}
