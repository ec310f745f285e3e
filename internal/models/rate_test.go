package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRatePercentRoundTrip(t *testing.T) {
	percents := []float64{0, 0.1, 1, 2.5, 10, 12.5, 30, 33.3, 50, 99.9, 100}
	for _, percent := range percents {
		fraction := PercentToFraction(percent)
		assert.Equal(t, percent, FractionToPercent(fraction), "percent %v should round-trip", percent)
	}
}

func TestRateSetRatePercent(t *testing.T) {
	var rate Rate
	rate.SetRatePercent(30)
	assert.InDelta(t, 0.3, rate.RateFraction, 1e-12)
	assert.Equal(t, 30.0, rate.RatePercent())
}

func TestEmploymentLabelFallsBackToFreelancer(t *testing.T) {
	assert.Equal(t, "Internal Employee", TechInternal.EmploymentLabel())
	assert.Equal(t, "Freelancer", TechFreelancer.EmploymentLabel())
	assert.Equal(t, "Freelancer", TechnicianType("CONTRACTOR").EmploymentLabel())
	assert.Equal(t, "Freelancer", TechnicianType("").EmploymentLabel())
}
