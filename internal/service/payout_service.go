package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/fieldserve/dispatch-admin-api/internal/dto"
	"github.com/fieldserve/dispatch-admin-api/internal/models"
	appErrors "github.com/fieldserve/dispatch-admin-api/pkg/errors"
	"github.com/fieldserve/dispatch-admin-api/pkg/export"
)

const payoutSummaryCacheKey = "payouts:summary"

type payoutRepository interface {
	ListPending(ctx context.Context) ([]models.PendingCommission, error)
	PendingTotals(ctx context.Context) (float64, int, error)
	CreateBatch(ctx context.Context, createdBy string, scheduledFor time.Time) (*models.PayoutBatch, error)
	ListBatches(ctx context.Context) ([]models.PayoutBatch, error)
	FindBatch(ctx context.Context, id string) (*models.PayoutBatch, error)
	ConfirmBatch(ctx context.Context, id string) (bool, error)
	MarkBatchPaid(ctx context.Context, id, paymentReference, paymentMethod, notes string, processedAt time.Time) (bool, error)
	BatchBreakdown(ctx context.Context, batchID string) ([]models.BatchTechnicianBreakdown, error)
	History(ctx context.Context, from, to time.Time) ([]models.PayoutHistoryEntry, error)
	PaidTotals(ctx context.Context, from, to time.Time) (float64, int, error)
	ListEarlyRequests(ctx context.Context) ([]models.EarlyPayoutRequest, error)
	PendingEarlyTotals(ctx context.Context) (float64, int, error)
	FindEarlyRequest(ctx context.Context, id string) (*models.EarlyPayoutRequest, error)
	ApproveEarlyRequest(ctx context.Context, id, reviewedBy, note string, reviewedAt time.Time) (bool, error)
	RejectEarlyRequest(ctx context.Context, id, reviewedBy, reason string, reviewedAt time.Time) (bool, error)
}

type payoutAuditLogger interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

// PayoutServiceConfig tunes the payout cycle behaviour.
type PayoutServiceConfig struct {
	PayoutWeekday      time.Weekday
	SummaryCacheTTL    time.Duration
	DefaultApproveNote string
}

// PayoutService orchestrates the payout ledger, batch lifecycle, early
// payout workflow and the dashboard summary.
type PayoutService struct {
	repo      payoutRepository
	audit     payoutAuditLogger
	cache     *CacheService
	pdf       *export.PDFExporter
	validator *validator.Validate
	logger    *zap.Logger
	cfg       PayoutServiceConfig
	now       func() time.Time
}

// NewPayoutService constructs a PayoutService.
func NewPayoutService(repo payoutRepository, audit payoutAuditLogger, cache *CacheService, pdf *export.PDFExporter, validate *validator.Validate, logger *zap.Logger, cfg PayoutServiceConfig) *PayoutService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.PayoutWeekday < time.Sunday || cfg.PayoutWeekday > time.Saturday {
		cfg.PayoutWeekday = time.Monday
	}
	if cfg.SummaryCacheTTL <= 0 {
		cfg.SummaryCacheTTL = time.Minute
	}
	if cfg.DefaultApproveNote == "" {
		cfg.DefaultApproveNote = "Approved for early payout"
	}
	return &PayoutService{
		repo:      repo,
		audit:     audit,
		cache:     cache,
		pdf:       pdf,
		validator: validate,
		logger:    logger,
		cfg:       cfg,
		now:       time.Now,
	}
}

// ListPending returns payout-eligible commission lines. Amounts come from
// the ledger as computed at payment verification time.
func (s *PayoutService) ListPending(ctx context.Context) ([]dto.PendingCommissionItem, error) {
	rows, err := s.repo.ListPending(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list pending commissions")
	}
	items := make([]dto.PendingCommissionItem, 0, len(rows))
	for i := range rows {
		row := &rows[i]
		items = append(items, dto.PendingCommissionItem{
			ID:              row.ID,
			WorkOrderID:     row.WorkOrderID,
			TechnicianID:    row.TechnicianID,
			TechnicianName:  row.TechnicianName,
			Type:            string(row.Type),
			ServiceCategory: row.ServiceCategory,
			PaymentAmount:   row.PaymentAmount,
			RatePercent:     row.RatePercent(),
			Amount:          row.Amount,
			PaymentDate:     row.PaymentDate,
		})
	}
	return items, nil
}

// CreateBatch snapshots all currently pending commissions into a new batch
// scheduled for the next payout day. It fails when nothing is pending.
func (s *PayoutService) CreateBatch(ctx context.Context, actor *models.JWTClaims) (*dto.BatchItem, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	scheduledFor := NextPayoutDate(s.now(), s.cfg.PayoutWeekday)
	batch, err := s.repo.CreateBatch(ctx, actor.UserID, scheduledFor)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrEmptyBatch
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create payout batch")
	}

	s.emitAudit(ctx, actor, models.AuditActionBatchCreate, batch.ID, map[string]any{
		"total_amount":      batch.TotalAmount,
		"technician_count":  batch.TechnicianCount,
		"commissions_count": batch.CommissionsCount,
		"scheduled_for":     scheduledFor,
	})
	s.invalidateSummary(ctx)

	item := toBatchItem(batch)
	return &item, nil
}

// ListBatches returns all payout batches, newest first, each with its
// normalized display status.
func (s *PayoutService) ListBatches(ctx context.Context) ([]dto.BatchItem, error) {
	batches, err := s.repo.ListBatches(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list payout batches")
	}
	items := make([]dto.BatchItem, 0, len(batches))
	for i := range batches {
		items = append(items, toBatchItem(&batches[i]))
	}
	return items, nil
}

// BatchDetails returns a batch with its per-technician breakdown.
func (s *PayoutService) BatchDetails(ctx context.Context, id string) (*dto.BatchDetailsResponse, error) {
	batch, err := s.repo.FindBatch(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "payout batch not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to get payout batch")
	}
	breakdown, err := s.repo.BatchBreakdown(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load batch breakdown")
	}

	entries := make([]dto.BatchTechnicianEntry, 0, len(breakdown))
	for i := range breakdown {
		row := &breakdown[i]
		entries = append(entries, dto.BatchTechnicianEntry{
			TechnicianID:     row.TechnicianID,
			TechnicianName:   row.TechnicianName,
			Employment:       row.TechnicianType.EmploymentLabel(),
			TotalAmount:      row.TotalAmount,
			CommissionsCount: row.CommissionsCount,
		})
	}
	return &dto.BatchDetailsResponse{Batch: toBatchItem(batch), Technicians: entries}, nil
}

// ConfirmBatch moves a batch from PENDING to CONFIRMED. Any other current
// state is rejected; the transition never runs twice.
func (s *PayoutService) ConfirmBatch(ctx context.Context, id string, actor *models.JWTClaims) (*dto.BatchItem, error) {
	ok, err := s.repo.ConfirmBatch(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to confirm payout batch")
	}
	if !ok {
		return nil, s.transitionConflict(ctx, id, models.BatchPending)
	}

	s.emitAudit(ctx, actor, models.AuditActionBatchConfirm, id, nil)
	s.invalidateSummary(ctx)
	return s.refreshBatch(ctx, id)
}

// MarkPaid moves a CONFIRMED batch to PAID, recording the payment evidence.
func (s *PayoutService) MarkPaid(ctx context.Context, id string, req dto.MarkPaidRequest, actor *models.JWTClaims) (*dto.BatchItem, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "payment reference and method are required")
	}
	ok, err := s.repo.MarkBatchPaid(ctx, id, req.PaymentReference, req.PaymentMethod, req.Notes, s.now().UTC())
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to mark payout batch paid")
	}
	if !ok {
		return nil, s.transitionConflict(ctx, id, models.BatchConfirmed)
	}

	s.emitAudit(ctx, actor, models.AuditActionBatchPaid, id, map[string]any{
		"payment_reference": req.PaymentReference,
		"payment_method":    req.PaymentMethod,
	})
	s.invalidateSummary(ctx)
	return s.refreshBatch(ctx, id)
}

// History returns paid batches whose processing date falls in the window.
// A zero window defaults to the current calendar month.
func (s *PayoutService) History(ctx context.Context, from, to time.Time) ([]dto.HistoryEntry, error) {
	if from.IsZero() || to.IsZero() {
		from, to = monthWindow(s.now())
	}
	rows, err := s.repo.History(ctx, from, to)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load payout history")
	}
	entries := make([]dto.HistoryEntry, 0, len(rows))
	for i := range rows {
		row := &rows[i]
		entry := dto.HistoryEntry{
			BatchID:          row.BatchID,
			ProcessedAt:      row.ProcessedAt,
			TotalAmount:      row.TotalAmount,
			TechnicianCount:  row.TechnicianCount,
			CommissionsCount: row.CommissionsCount,
		}
		if row.PaymentReference != nil {
			entry.PaymentReference = *row.PaymentReference
		}
		if row.PaymentMethod != nil {
			entry.PaymentMethod = *row.PaymentMethod
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// Summary assembles the payout dashboard KPIs. Each section is computed
// independently: a failing section is zeroed and logged, the rest of the
// summary still loads. The assembled summary is cached briefly.
func (s *PayoutService) Summary(ctx context.Context) (*dto.SummaryResponse, error) {
	var cached dto.SummaryResponse
	if hit, err := s.cacheGet(ctx, payoutSummaryCacheKey, &cached); err == nil && hit {
		return &cached, nil
	}

	now := s.now()
	summary := dto.SummaryResponse{NextPayoutDate: NextPayoutDate(now, s.cfg.PayoutWeekday)}

	if amount, count, err := s.repo.PendingTotals(ctx); err != nil {
		s.logger.Warn("summary: pending totals failed", zap.Error(err))
	} else {
		summary.PendingAmount = amount
		summary.PendingCount = count
	}

	if amount, count, err := s.repo.PendingEarlyTotals(ctx); err != nil {
		s.logger.Warn("summary: early request totals failed", zap.Error(err))
	} else {
		summary.EarlyRequestAmount = amount
		summary.EarlyRequestCount = count
	}

	from, to := monthWindow(now)
	if amount, count, err := s.repo.PaidTotals(ctx, from, to); err != nil {
		s.logger.Warn("summary: paid totals failed", zap.Error(err))
	} else {
		summary.PaidThisMonthAmount = amount
		summary.PaidThisMonthCount = count
	}

	s.cacheSet(ctx, payoutSummaryCacheKey, summary, s.cfg.SummaryCacheTTL)
	return &summary, nil
}

// ListEarlyRequests returns all early payout requests, newest first.
func (s *PayoutService) ListEarlyRequests(ctx context.Context) ([]dto.EarlyRequestItem, error) {
	rows, err := s.repo.ListEarlyRequests(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list early payout requests")
	}
	items := make([]dto.EarlyRequestItem, 0, len(rows))
	for i := range rows {
		items = append(items, toEarlyRequestItem(&rows[i]))
	}
	return items, nil
}

// ApproveEarlyRequest approves a pending early payout request, absorbing the
// technician's pending commissions. A blank note falls back to the
// configured default. Both review outcomes are terminal.
func (s *PayoutService) ApproveEarlyRequest(ctx context.Context, id string, req dto.ApproveEarlyRequest, actor *models.JWTClaims) (*dto.EarlyRequestItem, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	note := strings.TrimSpace(req.Note)
	if note == "" {
		note = s.cfg.DefaultApproveNote
	}
	ok, err := s.repo.ApproveEarlyRequest(ctx, id, actor.UserID, note, s.now().UTC())
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to approve early payout request")
	}
	if !ok {
		return nil, s.earlyRequestConflict(ctx, id)
	}

	s.emitAudit(ctx, actor, models.AuditActionEarlyApproved, id, map[string]any{"note": note})
	s.invalidateSummary(ctx)
	return s.refreshEarlyRequest(ctx, id)
}

// RejectEarlyRequest rejects a pending early payout request with a reason.
func (s *PayoutService) RejectEarlyRequest(ctx context.Context, id string, req dto.RejectEarlyRequest, actor *models.JWTClaims) (*dto.EarlyRequestItem, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "rejection reason is required")
	}
	ok, err := s.repo.RejectEarlyRequest(ctx, id, actor.UserID, req.Reason, s.now().UTC())
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reject early payout request")
	}
	if !ok {
		return nil, s.earlyRequestConflict(ctx, id)
	}

	s.emitAudit(ctx, actor, models.AuditActionEarlyRejected, id, map[string]any{"reason": req.Reason})
	s.invalidateSummary(ctx)
	return s.refreshEarlyRequest(ctx, id)
}

// BatchStatement renders a PDF statement for the batch with its technician
// breakdown.
func (s *PayoutService) BatchStatement(ctx context.Context, id string) ([]byte, string, error) {
	details, err := s.BatchDetails(ctx, id)
	if err != nil {
		return nil, "", err
	}
	dataset := export.Dataset{
		Headers: []string{"Technician", "Employment", "Lines", "Amount"},
	}
	for _, entry := range details.Technicians {
		dataset.Rows = append(dataset.Rows, map[string]string{
			"Technician": entry.TechnicianName,
			"Employment": entry.Employment,
			"Lines":      fmt.Sprintf("%d", entry.CommissionsCount),
			"Amount":     fmt.Sprintf("%.2f", entry.TotalAmount),
		})
	}
	summary := [][2]string{
		{"Batch", details.Batch.ID},
		{"Status", details.Batch.DisplayStatus},
		{"Total amount", fmt.Sprintf("%.2f", details.Batch.TotalAmount)},
		{"Technicians", fmt.Sprintf("%d", details.Batch.TechnicianCount)},
		{"Commission lines", fmt.Sprintf("%d", details.Batch.CommissionsCount)},
	}
	payload, err := s.pdf.Render(dataset, "Payout Batch Statement", summary)
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render batch statement")
	}
	filename := fmt.Sprintf("payout_batch_%s.pdf", details.Batch.ID)
	return payload, filename, nil
}

// NextPayoutDate returns the next occurrence of the payout weekday strictly
// after the given day. When today is the payout weekday, the cycle is
// already running, so the result is a full week out.
func NextPayoutDate(now time.Time, weekday time.Weekday) time.Time {
	day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	offset := (int(weekday) - int(day.Weekday()) + 7) % 7
	if offset == 0 {
		offset = 7
	}
	return day.AddDate(0, 0, offset)
}

func monthWindow(now time.Time) (time.Time, time.Time) {
	from := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	return from, from.AddDate(0, 1, 0)
}

// transitionConflict distinguishes a missing batch from one in the wrong
// state after a guarded transition matched zero rows.
func (s *PayoutService) transitionConflict(ctx context.Context, id string, expected models.BatchStatus) error {
	batch, err := s.repo.FindBatch(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "payout batch not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to get payout batch")
	}
	return appErrors.Clone(appErrors.ErrInvalidState, fmt.Sprintf("batch is %s, expected %s", batch.Status, expected))
}

func (s *PayoutService) earlyRequestConflict(ctx context.Context, id string) error {
	req, err := s.repo.FindEarlyRequest(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "early payout request not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to get early payout request")
	}
	return appErrors.Clone(appErrors.ErrInvalidState, fmt.Sprintf("request already %s", strings.ToLower(string(req.Status))))
}

func (s *PayoutService) refreshBatch(ctx context.Context, id string) (*dto.BatchItem, error) {
	batch, err := s.repo.FindBatch(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reload payout batch")
	}
	item := toBatchItem(batch)
	return &item, nil
}

func (s *PayoutService) refreshEarlyRequest(ctx context.Context, id string) (*dto.EarlyRequestItem, error) {
	req, err := s.repo.FindEarlyRequest(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reload early payout request")
	}
	item := toEarlyRequestItem(req)
	return &item, nil
}

func (s *PayoutService) emitAudit(ctx context.Context, actor *models.JWTClaims, action, entityID string, payload map[string]any) {
	if s.audit == nil {
		return
	}
	var metadata []byte
	if payload != nil {
		metadata, _ = json.Marshal(payload)
	}
	log := &models.AuditLog{
		UserID:     userIDPtr(actor),
		Action:     action,
		EntityType: entityTypeFor(action),
		EntityID:   &entityID,
		Metadata:   metadata,
		IPAddress:  "system",
		UserAgent:  "system",
	}
	if err := s.audit.CreateAuditLog(ctx, log); err != nil {
		s.logger.Warn("audit log write failed", zap.String("action", action), zap.Error(err))
	}
}

func entityTypeFor(action string) string {
	if strings.HasPrefix(action, "EARLY_PAYOUT") {
		return "early_payout_request"
	}
	return "payout_batch"
}

func (s *PayoutService) cacheGet(ctx context.Context, key string, dest interface{}) (bool, error) {
	if s.cache == nil {
		return false, nil
	}
	return s.cache.Get(ctx, key, dest)
}

func (s *PayoutService) cacheSet(ctx context.Context, key string, value interface{}, ttl time.Duration) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, key, value, ttl); err != nil {
		s.logger.Warn("summary cache write failed", zap.Error(err))
	}
}

func (s *PayoutService) invalidateSummary(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, payoutSummaryCacheKey); err != nil {
		s.logger.Warn("summary cache invalidate failed", zap.Error(err))
	}
}

func toBatchItem(batch *models.PayoutBatch) dto.BatchItem {
	item := dto.BatchItem{
		ID:               batch.ID,
		Status:           string(batch.Status),
		DisplayStatus:    string(DisplayStatus(batch.Status)),
		CreatedAt:        batch.CreatedAt,
		ScheduledFor:     batch.ScheduledFor,
		ProcessedAt:      batch.ProcessedAt,
		TotalAmount:      batch.TotalAmount,
		TechnicianCount:  batch.TechnicianCount,
		CommissionsCount: batch.CommissionsCount,
	}
	if batch.CreatedBy != nil {
		item.CreatedBy = *batch.CreatedBy
	}
	return item
}

func toEarlyRequestItem(req *models.EarlyPayoutRequest) dto.EarlyRequestItem {
	item := dto.EarlyRequestItem{
		ID:             req.ID,
		TechnicianID:   req.TechnicianID,
		TechnicianName: req.TechnicianName,
		RequestedAt:    req.RequestedAt,
		Amount:         req.Amount,
		Status:         string(req.Status),
		ReviewedAt:     req.ReviewedAt,
	}
	if req.Reason != nil {
		item.Reason = *req.Reason
	}
	if req.ReviewedBy != nil {
		item.ReviewedBy = *req.ReviewedBy
	}
	if req.ReviewNote != nil {
		item.ReviewNote = *req.ReviewNote
	}
	if req.RejectionReason != nil {
		item.RejectionReason = *req.RejectionReason
	}
	return item
}
