package models

import (
	"math"
	"time"
)

// RateType distinguishes commission rates (freelancers) from bonus rates
// (internal employees). Mechanics are identical, only the booking differs.
type RateType string

const (
	RateCommission RateType = "COMMISSION"
	RateBonus      RateType = "BONUS"
)

// Rate represents a configured commission or bonus percentage. The value is
// persisted as a 0..1 fraction and exposed everywhere else as a 0..100
// percentage.
type Rate struct {
	ID           string         `db:"id" json:"id"`
	RateCode     string         `db:"rate_code" json:"rate_id"`
	Name         string         `db:"name" json:"name"`
	Type         RateType       `db:"type" json:"type"`
	TechType     TechnicianType `db:"tech_type" json:"tech_type"`
	RateFraction float64        `db:"rate_fraction" json:"-"`
	Description  *string        `db:"description" json:"description,omitempty"`
	IsDefault    bool           `db:"is_default" json:"is_default"`
	CreatedAt    time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time      `db:"updated_at" json:"updated_at"`
}

// RatePercent returns the rate as a display percentage.
func (r *Rate) RatePercent() float64 {
	return FractionToPercent(r.RateFraction)
}

// SetRatePercent stores a display percentage as the persisted fraction.
func (r *Rate) SetRatePercent(percent float64) {
	r.RateFraction = PercentToFraction(percent)
}

// PercentToFraction converts a 0..100 percentage into the stored 0..1
// fraction.
func PercentToFraction(percent float64) float64 {
	return percent / 100
}

// FractionToPercent converts a stored 0..1 fraction into a 0..100
// percentage. The result is normalised so that values entered as whole or
// one-decimal percentages round-trip exactly.
func FractionToPercent(fraction float64) float64 {
	return math.Round(fraction*100*1e9) / 1e9
}

// RateFilter captures filtering criteria for listing rates.
type RateFilter struct {
	Type     *RateType
	TechType *TechnicianType
}

// RateGroupSummary aggregates rate counts per (type, techType) group.
type RateGroupSummary struct {
	Type        RateType       `db:"type" json:"type"`
	TechType    TechnicianType `db:"tech_type" json:"tech_type"`
	Count       int            `db:"count" json:"count"`
	DefaultID   *string        `db:"default_id" json:"default_id,omitempty"`
	DefaultName *string        `db:"default_name" json:"default_name,omitempty"`
}
