package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"go.uber.org/zap"

	"github.com/fieldserve/dispatch-admin-api/internal/models"
	appErrors "github.com/fieldserve/dispatch-admin-api/pkg/errors"
)

type technicianRepository interface {
	List(ctx context.Context, filter models.TechnicianFilter) ([]models.Technician, int, error)
	FindByID(ctx context.Context, id string) (*models.Technician, error)
	SetBlocked(ctx context.Context, id string, blocked bool) error
}

type technicianAuditLogger interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

// TechnicianService manages the technician roster and the block flag that
// gates payout eligibility.
type TechnicianService struct {
	repo   technicianRepository
	audit  technicianAuditLogger
	logger *zap.Logger
}

// NewTechnicianService constructs a TechnicianService.
func NewTechnicianService(repo technicianRepository, audit technicianAuditLogger, logger *zap.Logger) *TechnicianService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TechnicianService{repo: repo, audit: audit, logger: logger}
}

// List returns paginated technicians and pagination metadata.
func (s *TechnicianService) List(ctx context.Context, filter models.TechnicianFilter) ([]models.Technician, *models.Pagination, error) {
	technicians, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list technicians")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 {
		pageSize = 20
	}
	return technicians, &models.Pagination{Page: page, PageSize: pageSize, TotalCount: total}, nil
}

// Get returns a technician by ID.
func (s *TechnicianService) Get(ctx context.Context, id string) (*models.Technician, error) {
	technician, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "technician not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load technician")
	}
	return technician, nil
}

// SetBlocked blocks or unblocks a technician. Blocked technicians keep
// their accrued pending commissions but stop accruing new ones.
func (s *TechnicianService) SetBlocked(ctx context.Context, id string, blocked bool, actor *models.JWTClaims) (*models.Technician, error) {
	technician, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if technician.Blocked == blocked {
		return technician, nil
	}

	if err := s.repo.SetBlocked(ctx, id, blocked); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update technician block state")
	}
	technician.Blocked = blocked

	action := models.AuditActionTechnicianBlocked
	if !blocked {
		action = models.AuditActionTechnicianUnblocked
	}
	s.emitAudit(ctx, actor, action, technician)
	return technician, nil
}

func (s *TechnicianService) emitAudit(ctx context.Context, actor *models.JWTClaims, action string, technician *models.Technician) {
	if s.audit == nil {
		return
	}
	metadata, _ := json.Marshal(map[string]any{
		"full_name": technician.FullName,
		"type":      technician.Type,
	})
	if err := s.audit.CreateAuditLog(ctx, &models.AuditLog{
		UserID:     userIDPtr(actor),
		Action:     action,
		EntityType: "technician",
		EntityID:   &technician.ID,
		Metadata:   metadata,
		IPAddress:  "system",
		UserAgent:  "system",
	}); err != nil {
		s.logger.Warn("failed to record technician audit log", zap.String("action", action), zap.Error(err))
	}
}
