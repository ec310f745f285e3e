package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fieldserve/dispatch-admin-api/internal/models"
)

func newPayoutRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	sqlxDB := sqlx.NewDb(db, "postgres")
	return sqlxDB, mock, func() {
		sqlxDB.Close()
		db.Close()
	}
}

func TestPayoutRepositoryListPending(t *testing.T) {
	db, mock, cleanup := newPayoutRepoMock(t)
	defer cleanup()

	paymentDate := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{"id", "work_order_id", "technician_id", "technician_name", "type", "service_category", "payment_amount", "rate_fraction", "amount", "payment_date"}).
		AddRow("comm-1", "wo-1", "tech-1", "Jane Smith", "Commission", "HVAC", 200.0, 0.3, 60.0, paymentDate)
	mock.ExpectQuery("SELECT c.id, c.work_order_id, c.technician_id").
		WillReturnRows(rows)

	repo := NewPayoutRepository(db)
	pending, err := repo.ListPending(context.Background())
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "comm-1", pending[0].ID)
	assert.InDelta(t, 60.0, pending[0].Amount, 1e-9)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPayoutRepositoryCreateBatchSnapshotsPending(t *testing.T) {
	db, mock, cleanup := newPayoutRepoMock(t)
	defer cleanup()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COALESCE(SUM(ROUND(payment_amount * rate_fraction, 2)), 0) AS total")).
		WillReturnRows(sqlmock.NewRows([]string{"total", "count", "technicians"}).AddRow(480.5, 4, 2))
	mock.ExpectExec("INSERT INTO payout_batches").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE commissions SET batch_id = $1 WHERE batch_id IS NULL AND early_request_id IS NULL")).
		WithArgs(sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 4))
	mock.ExpectCommit()

	repo := NewPayoutRepository(db)
	scheduledFor := time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC)
	batch, err := repo.CreateBatch(context.Background(), "admin-1", scheduledFor)
	require.NoError(t, err)
	assert.NotEmpty(t, batch.ID)
	assert.Equal(t, models.BatchPending, batch.Status)
	assert.InDelta(t, 480.5, batch.TotalAmount, 1e-9)
	assert.Equal(t, 2, batch.TechnicianCount)
	assert.Equal(t, 4, batch.CommissionsCount)
	require.NotNil(t, batch.ScheduledFor)
	assert.True(t, batch.ScheduledFor.Equal(scheduledFor))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPayoutRepositoryCreateBatchNothingPending(t *testing.T) {
	db, mock, cleanup := newPayoutRepoMock(t)
	defer cleanup()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COALESCE(SUM(ROUND(payment_amount * rate_fraction, 2)), 0) AS total")).
		WillReturnRows(sqlmock.NewRows([]string{"total", "count", "technicians"}).AddRow(0.0, 0, 0))
	mock.ExpectRollback()

	repo := NewPayoutRepository(db)
	batch, err := repo.CreateBatch(context.Background(), "admin-1", time.Now())
	assert.Nil(t, batch)
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPayoutRepositoryConfirmBatchGuardedUpdate(t *testing.T) {
	db, mock, cleanup := newPayoutRepoMock(t)
	defer cleanup()

	mock.ExpectExec(regexp.QuoteMeta("UPDATE payout_batches SET status = $2 WHERE id = $1 AND status = $3")).
		WithArgs("batch-1", models.BatchConfirmed, models.BatchPending).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE payout_batches SET status = $2 WHERE id = $1 AND status = $3")).
		WithArgs("batch-1", models.BatchConfirmed, models.BatchPending).
		WillReturnResult(sqlmock.NewResult(0, 0))

	repo := NewPayoutRepository(db)

	ok, err := repo.ConfirmBatch(context.Background(), "batch-1")
	require.NoError(t, err)
	assert.True(t, ok)

	// Second confirm finds no PENDING row and reports no transition.
	ok, err = repo.ConfirmBatch(context.Background(), "batch-1")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPayoutRepositoryMarkBatchPaidStampsEvidence(t *testing.T) {
	db, mock, cleanup := newPayoutRepoMock(t)
	defer cleanup()

	processedAt := time.Date(2026, 3, 9, 10, 0, 0, 0, time.UTC)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE payout_batches")).
		WithArgs("batch-1", models.BatchPaid, processedAt, "TRX-77", "bank_transfer", "March run", models.BatchConfirmed, models.BatchScheduled).
		WillReturnResult(sqlmock.NewResult(0, 1))

	repo := NewPayoutRepository(db)
	ok, err := repo.MarkBatchPaid(context.Background(), "batch-1", "TRX-77", "bank_transfer", "March run", processedAt)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPayoutRepositoryMarkBatchPaidAcceptsLegacyScheduled(t *testing.T) {
	db, mock, cleanup := newPayoutRepoMock(t)
	defer cleanup()

	// The guard lists both CONFIRMED and the legacy SCHEDULED status, so a
	// SCHEDULED batch still counts as one affected row.
	processedAt := time.Date(2026, 3, 9, 10, 0, 0, 0, time.UTC)
	mock.ExpectExec(regexp.QuoteMeta("status IN ($7, $8)")).
		WithArgs("batch-legacy", models.BatchPaid, processedAt, "TRX-78", "bank_transfer", "", models.BatchConfirmed, models.BatchScheduled).
		WillReturnResult(sqlmock.NewResult(0, 1))

	repo := NewPayoutRepository(db)
	ok, err := repo.MarkBatchPaid(context.Background(), "batch-legacy", "TRX-78", "bank_transfer", "", processedAt)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPayoutRepositoryApproveEarlyRequestAbsorbsCommissions(t *testing.T) {
	db, mock, cleanup := newPayoutRepoMock(t)
	defer cleanup()

	reviewedAt := time.Date(2026, 3, 4, 9, 0, 0, 0, time.UTC)
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("UPDATE early_payout_requests")).
		WithArgs("req-1", "admin-1", reviewedAt, "Approved for early payout").
		WillReturnRows(sqlmock.NewRows([]string{"technician_id"}).AddRow("tech-1"))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE commissions SET early_request_id = $1 WHERE technician_id = $2 AND batch_id IS NULL AND early_request_id IS NULL")).
		WithArgs("req-1", "tech-1").
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()

	repo := NewPayoutRepository(db)
	ok, err := repo.ApproveEarlyRequest(context.Background(), "req-1", "admin-1", "Approved for early payout", reviewedAt)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPayoutRepositoryListEarlyRequestsNullStatusReadsPending(t *testing.T) {
	db, mock, cleanup := newPayoutRepoMock(t)
	defer cleanup()

	requestedAt := time.Date(2026, 2, 10, 9, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{"id", "technician_id", "technician_name", "requested_at", "amount", "reason", "status", "reviewed_by", "reviewed_at", "review_note", "rejection_reason"}).
		AddRow("req-1", "tech-1", "Jane Smith", requestedAt, 120.0, nil, nil, nil, nil, nil, nil).
		AddRow("req-2", "tech-2", "Bob Lee", requestedAt, 80.0, nil, "APPROVED", "admin-1", requestedAt, "ok", nil)
	mock.ExpectQuery("SELECT r.id, r.technician_id").
		WillReturnRows(rows)

	repo := NewPayoutRepository(db)
	requests, err := repo.ListEarlyRequests(context.Background())
	require.NoError(t, err)
	require.Len(t, requests, 2)
	assert.Equal(t, models.EarlyPending, requests[0].Status)
	assert.Equal(t, models.EarlyApproved, requests[1].Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPayoutRepositoryApproveEarlyRequestNotPending(t *testing.T) {
	db, mock, cleanup := newPayoutRepoMock(t)
	defer cleanup()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("UPDATE early_payout_requests")).
		WithArgs("req-1", "admin-1", sqlmock.AnyArg(), "note").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectRollback()

	repo := NewPayoutRepository(db)
	ok, err := repo.ApproveEarlyRequest(context.Background(), "req-1", "admin-1", "note", time.Now())
	require.NoError(t, err)
	assert.False(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPayoutRepositoryHistoryWindow(t *testing.T) {
	db, mock, cleanup := newPayoutRepoMock(t)
	defer cleanup()

	from := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	processed := time.Date(2026, 3, 9, 10, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{"batch_id", "processed_at", "total_amount", "technician_count", "commissions_count", "payment_reference", "payment_method"}).
		AddRow("batch-1", processed, 480.5, 2, 4, "TRX-77", "bank_transfer")
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id AS batch_id, processed_at, total_amount")).
		WithArgs(from, to).
		WillReturnRows(rows)

	repo := NewPayoutRepository(db)
	entries, err := repo.History(context.Background(), from, to)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "batch-1", entries[0].BatchID)
	require.NotNil(t, entries[0].PaymentReference)
	assert.Equal(t, "TRX-77", *entries[0].PaymentReference)
	assert.NoError(t, mock.ExpectationsWereMet())
}
