package service

import (
	"strings"

	"github.com/fieldserve/dispatch-admin-api/internal/models"
)

// DisplayStatus collapses the raw batch status vocabulary into the three
// buckets shown to operators. Unknown or empty statuses count as Pending so
// every batch always lands in exactly one bucket.
func DisplayStatus(raw models.BatchStatus) models.DisplayBatchStatus {
	switch models.BatchStatus(strings.ToUpper(strings.TrimSpace(string(raw)))) {
	case models.BatchScheduled, models.BatchConfirmed:
		return models.DisplayConfirmed
	case models.BatchPaid, models.BatchCompleted, models.BatchProcessed:
		return models.DisplayPaid
	default:
		return models.DisplayPending
	}
}
