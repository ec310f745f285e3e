package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/fieldserve/dispatch-admin-api/internal/models"
)

// PayoutRepository provides database access for the payout ledger: pending
// commissions, payout batches and early payout requests.
type PayoutRepository struct {
	db *sqlx.DB
}

// NewPayoutRepository creates a new instance of PayoutRepository.
func NewPayoutRepository(db *sqlx.DB) *PayoutRepository {
	return &PayoutRepository{db: db}
}

var pendingCommissionColumns = fmt.Sprintf(`c.id, c.work_order_id, c.technician_id, t.full_name AS technician_name,
	CASE WHEN t.type = '%s' THEN '%s' ELSE '%s' END AS type,
	c.service_category, c.payment_amount, c.rate_fraction,
	ROUND(c.payment_amount * c.rate_fraction, 2) AS amount, c.payment_date`,
	models.TechInternal, models.BonusLine, models.CommissionLine)

// ListPending returns all payout-eligible commission lines: verified payment
// lines not yet absorbed by a batch or an approved early request. The amount
// is computed in SQL and never recomputed downstream.
func (r *PayoutRepository) ListPending(ctx context.Context) ([]models.PendingCommission, error) {
	query := fmt.Sprintf(`SELECT %s
FROM commissions c
JOIN technicians t ON t.id = c.technician_id
WHERE c.batch_id IS NULL AND c.early_request_id IS NULL
ORDER BY c.payment_date ASC`, pendingCommissionColumns)

	var items []models.PendingCommission
	if err := r.db.SelectContext(ctx, &items, query); err != nil {
		return nil, fmt.Errorf("list pending commissions: %w", err)
	}
	return items, nil
}

// PendingTotals returns the sum and count of all pending commission lines.
func (r *PayoutRepository) PendingTotals(ctx context.Context) (float64, int, error) {
	const query = `SELECT COALESCE(SUM(ROUND(payment_amount * rate_fraction, 2)), 0) AS total, COUNT(*) AS count
FROM commissions WHERE batch_id IS NULL AND early_request_id IS NULL`
	var row struct {
		Total float64 `db:"total"`
		Count int     `db:"count"`
	}
	if err := r.db.GetContext(ctx, &row, query); err != nil {
		return 0, 0, fmt.Errorf("pending commission totals: %w", err)
	}
	return row.Total, row.Count, nil
}

const batchColumns = `id, status, created_at, scheduled_for, processed_at, total_amount, technician_count, commissions_count, created_by, payment_reference, payment_method, notes`

// CreateBatch snapshots all currently pending commissions into a new PENDING
// batch within a single transaction. It returns sql.ErrNoRows when nothing
// is pending; the service maps that to the empty-batch conflict.
func (r *PayoutRepository) CreateBatch(ctx context.Context, createdBy string, scheduledFor time.Time) (*models.PayoutBatch, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin create-batch tx: %w", err)
	}

	var agg struct {
		Total       float64 `db:"total"`
		Count       int     `db:"count"`
		Technicians int     `db:"technicians"`
	}
	const aggQuery = `SELECT COALESCE(SUM(ROUND(payment_amount * rate_fraction, 2)), 0) AS total,
	COUNT(*) AS count, COUNT(DISTINCT technician_id) AS technicians
FROM commissions WHERE batch_id IS NULL AND early_request_id IS NULL`
	if err := tx.GetContext(ctx, &agg, aggQuery); err != nil {
		_ = tx.Rollback()
		return nil, fmt.Errorf("aggregate pending commissions: %w", err)
	}
	if agg.Count == 0 {
		_ = tx.Rollback()
		return nil, sql.ErrNoRows
	}

	batch := &models.PayoutBatch{
		ID:               uuid.NewString(),
		Status:           models.BatchPending,
		CreatedAt:        time.Now().UTC(),
		ScheduledFor:     &scheduledFor,
		TotalAmount:      agg.Total,
		TechnicianCount:  agg.Technicians,
		CommissionsCount: agg.Count,
	}
	if createdBy != "" {
		batch.CreatedBy = &createdBy
	}

	const insertQuery = `INSERT INTO payout_batches (id, status, created_at, scheduled_for, total_amount, technician_count, commissions_count, created_by)
VALUES (:id, :status, :created_at, :scheduled_for, :total_amount, :technician_count, :commissions_count, :created_by)`
	if _, err := tx.NamedExecContext(ctx, insertQuery, batch); err != nil {
		_ = tx.Rollback()
		return nil, fmt.Errorf("insert payout batch: %w", err)
	}

	// Absorb the snapshot: lines turning pending after this point belong to
	// the next batch.
	if _, err := tx.ExecContext(ctx,
		`UPDATE commissions SET batch_id = $1 WHERE batch_id IS NULL AND early_request_id IS NULL`,
		batch.ID); err != nil {
		_ = tx.Rollback()
		return nil, fmt.Errorf("attach commissions to batch: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit create-batch tx: %w", err)
	}
	return batch, nil
}

// ListBatches returns batches newest first.
func (r *PayoutRepository) ListBatches(ctx context.Context) ([]models.PayoutBatch, error) {
	query := fmt.Sprintf(`SELECT %s FROM payout_batches ORDER BY created_at DESC`, batchColumns)
	var batches []models.PayoutBatch
	if err := r.db.SelectContext(ctx, &batches, query); err != nil {
		return nil, fmt.Errorf("list payout batches: %w", err)
	}
	return batches, nil
}

// FindBatch returns a batch by identifier.
func (r *PayoutRepository) FindBatch(ctx context.Context, id string) (*models.PayoutBatch, error) {
	query := fmt.Sprintf(`SELECT %s FROM payout_batches WHERE id = $1 LIMIT 1`, batchColumns)
	var batch models.PayoutBatch
	if err := r.db.GetContext(ctx, &batch, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find payout batch: %w", err)
	}
	return &batch, nil
}

// ConfirmBatch advances a batch from PENDING to CONFIRMED. The guarded
// update ensures the transition only applies in the expected state; zero
// affected rows means the batch is missing or not PENDING.
func (r *PayoutRepository) ConfirmBatch(ctx context.Context, id string) (bool, error) {
	const query = `UPDATE payout_batches SET status = $2 WHERE id = $1 AND status = $3`
	result, err := r.db.ExecContext(ctx, query, id, models.BatchConfirmed, models.BatchPending)
	if err != nil {
		return false, fmt.Errorf("confirm payout batch: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("confirm payout batch result: %w", err)
	}
	return affected == 1, nil
}

// MarkBatchPaid advances a batch from CONFIRMED to PAID, stamping the
// payment evidence. Legacy SCHEDULED rows count as confirmed and may be paid
// too. The state guard rejects regressions and repeats.
func (r *PayoutRepository) MarkBatchPaid(ctx context.Context, id, paymentReference, paymentMethod, notes string, processedAt time.Time) (bool, error) {
	const query = `UPDATE payout_batches
SET status = $2, processed_at = $3, payment_reference = $4, payment_method = $5, notes = NULLIF($6, '')
WHERE id = $1 AND status IN ($7, $8)`
	result, err := r.db.ExecContext(ctx, query, id, models.BatchPaid, processedAt, paymentReference, paymentMethod, notes, models.BatchConfirmed, models.BatchScheduled)
	if err != nil {
		return false, fmt.Errorf("mark payout batch paid: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("mark payout batch paid result: %w", err)
	}
	return affected == 1, nil
}

// BatchBreakdown returns the per-technician slices of a batch.
func (r *PayoutRepository) BatchBreakdown(ctx context.Context, batchID string) ([]models.BatchTechnicianBreakdown, error) {
	const query = `SELECT c.technician_id, t.full_name AS technician_name, t.type AS technician_type,
	COALESCE(SUM(ROUND(c.payment_amount * c.rate_fraction, 2)), 0) AS total_amount,
	COUNT(*) AS commissions_count
FROM commissions c
JOIN technicians t ON t.id = c.technician_id
WHERE c.batch_id = $1
GROUP BY c.technician_id, t.full_name, t.type
ORDER BY t.full_name ASC`
	var rows []models.BatchTechnicianBreakdown
	if err := r.db.SelectContext(ctx, &rows, query, batchID); err != nil {
		return nil, fmt.Errorf("batch breakdown: %w", err)
	}
	return rows, nil
}

// History returns paid batches processed within the given window, newest
// first.
func (r *PayoutRepository) History(ctx context.Context, from, to time.Time) ([]models.PayoutHistoryEntry, error) {
	const query = `SELECT id AS batch_id, processed_at, total_amount, technician_count, commissions_count, payment_reference, payment_method
FROM payout_batches
WHERE status IN ('PAID', 'COMPLETED', 'PROCESSED') AND processed_at >= $1 AND processed_at < $2
ORDER BY processed_at DESC`
	var entries []models.PayoutHistoryEntry
	if err := r.db.SelectContext(ctx, &entries, query, from, to); err != nil {
		return nil, fmt.Errorf("payout history: %w", err)
	}
	return entries, nil
}

// PaidTotals returns the sum and count of paid batches in the given window.
func (r *PayoutRepository) PaidTotals(ctx context.Context, from, to time.Time) (float64, int, error) {
	const query = `SELECT COALESCE(SUM(total_amount), 0) AS total, COUNT(*) AS count
FROM payout_batches
WHERE status IN ('PAID', 'COMPLETED', 'PROCESSED') AND processed_at >= $1 AND processed_at < $2`
	var row struct {
		Total float64 `db:"total"`
		Count int     `db:"count"`
	}
	if err := r.db.GetContext(ctx, &row, query, from, to); err != nil {
		return 0, 0, fmt.Errorf("paid batch totals: %w", err)
	}
	return row.Total, row.Count, nil
}

const earlyRequestColumns = `r.id, r.technician_id, t.full_name AS technician_name, r.requested_at, r.amount, r.reason, r.status, r.reviewed_by, r.reviewed_at, r.review_note, r.rejection_reason`

// ListEarlyRequests returns early payout requests newest first.
func (r *PayoutRepository) ListEarlyRequests(ctx context.Context) ([]models.EarlyPayoutRequest, error) {
	query := fmt.Sprintf(`SELECT %s
FROM early_payout_requests r
JOIN technicians t ON t.id = r.technician_id
ORDER BY r.requested_at DESC`, earlyRequestColumns)
	var requests []models.EarlyPayoutRequest
	if err := r.db.SelectContext(ctx, &requests, query); err != nil {
		return nil, fmt.Errorf("list early payout requests: %w", err)
	}
	return requests, nil
}

// PendingEarlyTotals returns the sum and count over PENDING early requests.
func (r *PayoutRepository) PendingEarlyTotals(ctx context.Context) (float64, int, error) {
	const query = `SELECT COALESCE(SUM(amount), 0) AS total, COUNT(*) AS count
FROM early_payout_requests WHERE status = 'PENDING'`
	var row struct {
		Total float64 `db:"total"`
		Count int     `db:"count"`
	}
	if err := r.db.GetContext(ctx, &row, query); err != nil {
		return 0, 0, fmt.Errorf("pending early request totals: %w", err)
	}
	return row.Total, row.Count, nil
}

// FindEarlyRequest returns an early payout request by identifier.
func (r *PayoutRepository) FindEarlyRequest(ctx context.Context, id string) (*models.EarlyPayoutRequest, error) {
	query := fmt.Sprintf(`SELECT %s
FROM early_payout_requests r
JOIN technicians t ON t.id = r.technician_id
WHERE r.id = $1 LIMIT 1`, earlyRequestColumns)
	var request models.EarlyPayoutRequest
	if err := r.db.GetContext(ctx, &request, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find early payout request: %w", err)
	}
	return &request, nil
}

// ApproveEarlyRequest transitions a PENDING request to APPROVED and absorbs
// the technician's pending commission lines out of the weekly cycle, all in
// one transaction. The state guard makes terminal states immutable; false
// means the request was not PENDING.
func (r *PayoutRepository) ApproveEarlyRequest(ctx context.Context, id, reviewedBy, note string, reviewedAt time.Time) (bool, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin approve-early tx: %w", err)
	}

	const query = `UPDATE early_payout_requests
SET status = 'APPROVED', reviewed_by = $2, reviewed_at = $3, review_note = $4
WHERE id = $1 AND status = 'PENDING'
RETURNING technician_id`
	var technicianID string
	if err := tx.GetContext(ctx, &technicianID, query, id, reviewedBy, reviewedAt, note); err != nil {
		_ = tx.Rollback()
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("approve early payout request: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE commissions SET early_request_id = $1 WHERE technician_id = $2 AND batch_id IS NULL AND early_request_id IS NULL`,
		id, technicianID); err != nil {
		_ = tx.Rollback()
		return false, fmt.Errorf("absorb commissions into early payout: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit approve-early tx: %w", err)
	}
	return true, nil
}

// RejectEarlyRequest transitions a PENDING request to REJECTED with the
// given reason. False means the request was not PENDING.
func (r *PayoutRepository) RejectEarlyRequest(ctx context.Context, id, reviewedBy, reason string, reviewedAt time.Time) (bool, error) {
	const query = `UPDATE early_payout_requests
SET status = 'REJECTED', reviewed_by = $2, reviewed_at = $3, rejection_reason = $4
WHERE id = $1 AND status = 'PENDING'`
	result, err := r.db.ExecContext(ctx, query, id, reviewedBy, reviewedAt, reason)
	if err != nil {
		return false, fmt.Errorf("reject early payout request: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("reject early payout request result: %w", err)
	}
	return affected == 1, nil
}
