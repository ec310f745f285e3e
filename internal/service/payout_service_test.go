package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fieldserve/dispatch-admin-api/internal/dto"
	"github.com/fieldserve/dispatch-admin-api/internal/models"
	appErrors "github.com/fieldserve/dispatch-admin-api/pkg/errors"
)

type payoutRepoStub struct {
	pending        []models.PendingCommission
	pendingErr     error
	pendingAmount  float64
	pendingCount   int
	earlyAmount    float64
	earlyCount     int
	earlyErr       error
	paidAmount     float64
	paidCount      int
	paidErr        error
	batch          *models.PayoutBatch
	batchErr       error
	createErr      error
	confirmOK      bool
	markPaidOK     bool
	earlyRequest   *models.EarlyPayoutRequest
	approveOK      bool
	rejectOK       bool
	approvedNote   string
	rejectedReason string
	scheduledFor   time.Time
}

func (s *payoutRepoStub) ListPending(ctx context.Context) ([]models.PendingCommission, error) {
	return s.pending, s.pendingErr
}

func (s *payoutRepoStub) PendingTotals(ctx context.Context) (float64, int, error) {
	return s.pendingAmount, s.pendingCount, s.pendingErr
}

func (s *payoutRepoStub) CreateBatch(ctx context.Context, createdBy string, scheduledFor time.Time) (*models.PayoutBatch, error) {
	if s.createErr != nil {
		return nil, s.createErr
	}
	s.scheduledFor = scheduledFor
	return s.batch, nil
}

func (s *payoutRepoStub) ListBatches(ctx context.Context) ([]models.PayoutBatch, error) {
	if s.batch == nil {
		return nil, nil
	}
	return []models.PayoutBatch{*s.batch}, nil
}

func (s *payoutRepoStub) FindBatch(ctx context.Context, id string) (*models.PayoutBatch, error) {
	if s.batch == nil {
		return nil, sql.ErrNoRows
	}
	return s.batch, s.batchErr
}

func (s *payoutRepoStub) ConfirmBatch(ctx context.Context, id string) (bool, error) {
	return s.confirmOK, nil
}

func (s *payoutRepoStub) MarkBatchPaid(ctx context.Context, id, reference, method, notes string, processedAt time.Time) (bool, error) {
	return s.markPaidOK, nil
}

func (s *payoutRepoStub) BatchBreakdown(ctx context.Context, batchID string) ([]models.BatchTechnicianBreakdown, error) {
	return nil, nil
}

func (s *payoutRepoStub) History(ctx context.Context, from, to time.Time) ([]models.PayoutHistoryEntry, error) {
	return nil, nil
}

func (s *payoutRepoStub) PaidTotals(ctx context.Context, from, to time.Time) (float64, int, error) {
	return s.paidAmount, s.paidCount, s.paidErr
}

func (s *payoutRepoStub) ListEarlyRequests(ctx context.Context) ([]models.EarlyPayoutRequest, error) {
	if s.earlyRequest == nil {
		return nil, nil
	}
	return []models.EarlyPayoutRequest{*s.earlyRequest}, nil
}

func (s *payoutRepoStub) PendingEarlyTotals(ctx context.Context) (float64, int, error) {
	return s.earlyAmount, s.earlyCount, s.earlyErr
}

func (s *payoutRepoStub) FindEarlyRequest(ctx context.Context, id string) (*models.EarlyPayoutRequest, error) {
	if s.earlyRequest == nil {
		return nil, sql.ErrNoRows
	}
	return s.earlyRequest, nil
}

func (s *payoutRepoStub) ApproveEarlyRequest(ctx context.Context, id, reviewedBy, note string, reviewedAt time.Time) (bool, error) {
	if s.approveOK {
		s.approvedNote = note
	}
	return s.approveOK, nil
}

func (s *payoutRepoStub) RejectEarlyRequest(ctx context.Context, id, reviewedBy, reason string, reviewedAt time.Time) (bool, error) {
	if s.rejectOK {
		s.rejectedReason = reason
	}
	return s.rejectOK, nil
}

func newPayoutService(repo *payoutRepoStub) *PayoutService {
	return NewPayoutService(repo, &auditLoggerStub{}, nil, nil, validator.New(), nil, PayoutServiceConfig{})
}

func adminClaims() *models.JWTClaims {
	return &models.JWTClaims{UserID: "admin-1", Role: models.RoleAdmin}
}

func TestNextPayoutDateAdvancesFullWeekOnPayoutDay(t *testing.T) {
	// 2026-01-05 is a Monday.
	monday := time.Date(2026, 1, 5, 15, 30, 0, 0, time.UTC)
	next := NextPayoutDate(monday, time.Monday)
	assert.Equal(t, time.Date(2026, 1, 12, 0, 0, 0, 0, time.UTC), next)
}

func TestNextPayoutDateFindsUpcomingWeekday(t *testing.T) {
	wednesday := time.Date(2026, 1, 7, 9, 0, 0, 0, time.UTC)
	next := NextPayoutDate(wednesday, time.Monday)
	assert.Equal(t, time.Date(2026, 1, 12, 0, 0, 0, 0, time.UTC), next)
	assert.Equal(t, time.Monday, next.Weekday())

	sunday := time.Date(2026, 1, 11, 23, 59, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2026, 1, 12, 0, 0, 0, 0, time.UTC), NextPayoutDate(sunday, time.Monday))
}

func TestCreateBatchEmptyLedger(t *testing.T) {
	repo := &payoutRepoStub{createErr: sql.ErrNoRows}
	svc := newPayoutService(repo)

	_, err := svc.CreateBatch(context.Background(), adminClaims())
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrEmptyBatch.Code, appErr.Code)
}

func TestCreateBatchSchedulesNextPayoutDay(t *testing.T) {
	repo := &payoutRepoStub{batch: &models.PayoutBatch{ID: "batch-1", Status: models.BatchPending}}
	svc := newPayoutService(repo)
	svc.now = func() time.Time { return time.Date(2026, 1, 7, 10, 0, 0, 0, time.UTC) }

	item, err := svc.CreateBatch(context.Background(), adminClaims())
	require.NoError(t, err)
	assert.Equal(t, "Pending", item.DisplayStatus)
	assert.Equal(t, time.Date(2026, 1, 12, 0, 0, 0, 0, time.UTC), repo.scheduledFor)
}

func TestConfirmBatchWrongState(t *testing.T) {
	repo := &payoutRepoStub{
		confirmOK: false,
		batch:     &models.PayoutBatch{ID: "batch-1", Status: models.BatchPaid},
	}
	svc := newPayoutService(repo)

	_, err := svc.ConfirmBatch(context.Background(), "batch-1", adminClaims())
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrInvalidState.Code, appErr.Code)
}

func TestConfirmBatchMissing(t *testing.T) {
	repo := &payoutRepoStub{confirmOK: false}
	svc := newPayoutService(repo)

	_, err := svc.ConfirmBatch(context.Background(), "nope", adminClaims())
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
}

func TestMarkPaidRequiresPaymentEvidence(t *testing.T) {
	svc := newPayoutService(&payoutRepoStub{markPaidOK: true})

	_, err := svc.MarkPaid(context.Background(), "batch-1", dto.MarkPaidRequest{}, adminClaims())
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}

func TestMarkPaidIsNotRepeatable(t *testing.T) {
	repo := &payoutRepoStub{
		markPaidOK: false,
		batch:      &models.PayoutBatch{ID: "batch-1", Status: models.BatchPaid},
	}
	svc := newPayoutService(repo)

	req := dto.MarkPaidRequest{PaymentReference: "TRX-9", PaymentMethod: "bank_transfer"}
	_, err := svc.MarkPaid(context.Background(), "batch-1", req, adminClaims())
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrInvalidState.Code, appErr.Code)
}

func TestSummaryDegradesPerSection(t *testing.T) {
	repo := &payoutRepoStub{
		pendingErr:  errors.New("ledger offline"),
		earlyAmount: 420.5,
		earlyCount:  3,
		paidAmount:  1280,
		paidCount:   2,
	}
	svc := newPayoutService(repo)

	summary, err := svc.Summary(context.Background())
	require.NoError(t, err)
	assert.Zero(t, summary.PendingAmount)
	assert.Zero(t, summary.PendingCount)
	assert.Equal(t, 420.5, summary.EarlyRequestAmount)
	assert.Equal(t, 3, summary.EarlyRequestCount)
	assert.Equal(t, 1280.0, summary.PaidThisMonthAmount)
	assert.Equal(t, 2, summary.PaidThisMonthCount)
	assert.False(t, summary.NextPayoutDate.IsZero())
}

func TestApproveEarlyRequestUsesDefaultNote(t *testing.T) {
	repo := &payoutRepoStub{
		approveOK: true,
		earlyRequest: &models.EarlyPayoutRequest{
			ID:     "req-1",
			Status: models.EarlyApproved,
		},
	}
	svc := newPayoutService(repo)

	item, err := svc.ApproveEarlyRequest(context.Background(), "req-1", dto.ApproveEarlyRequest{Note: "  "}, adminClaims())
	require.NoError(t, err)
	assert.Equal(t, "Approved for early payout", repo.approvedNote)
	assert.Equal(t, string(models.EarlyApproved), item.Status)
}

func TestApproveEarlyRequestTerminalState(t *testing.T) {
	repo := &payoutRepoStub{
		approveOK:    false,
		earlyRequest: &models.EarlyPayoutRequest{ID: "req-1", Status: models.EarlyRejected},
	}
	svc := newPayoutService(repo)

	_, err := svc.ApproveEarlyRequest(context.Background(), "req-1", dto.ApproveEarlyRequest{}, adminClaims())
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrInvalidState.Code, appErr.Code)
}

func TestRejectEarlyRequestRequiresReason(t *testing.T) {
	svc := newPayoutService(&payoutRepoStub{rejectOK: true})

	_, err := svc.RejectEarlyRequest(context.Background(), "req-1", dto.RejectEarlyRequest{}, adminClaims())
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}
