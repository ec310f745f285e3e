package service

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/fieldserve/dispatch-admin-api/internal/models"
)

func TestDisplayStatusMapping(t *testing.T) {
	cases := map[models.BatchStatus]models.DisplayBatchStatus{
		models.BatchPending:   models.DisplayPending,
		models.BatchScheduled: models.DisplayConfirmed,
		models.BatchConfirmed: models.DisplayConfirmed,
		models.BatchPaid:      models.DisplayPaid,
		models.BatchCompleted: models.DisplayPaid,
		models.BatchProcessed: models.DisplayPaid,
	}
	for raw, want := range cases {
		assert.Equal(t, want, DisplayStatus(raw), "status %s", raw)
	}
}

func TestDisplayStatusUnknownFallsBackToPending(t *testing.T) {
	for _, raw := range []models.BatchStatus{"", "UNKNOWN", "null", "draft", "  "} {
		assert.Equal(t, models.DisplayPending, DisplayStatus(raw), "status %q", raw)
	}
}

func TestDisplayStatusNormalizesCaseAndWhitespace(t *testing.T) {
	assert.Equal(t, models.DisplayPaid, DisplayStatus(" paid "))
	assert.Equal(t, models.DisplayConfirmed, DisplayStatus("scheduled"))
}
