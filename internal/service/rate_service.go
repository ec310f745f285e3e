package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/fieldserve/dispatch-admin-api/internal/dto"
	"github.com/fieldserve/dispatch-admin-api/internal/models"
	"github.com/fieldserve/dispatch-admin-api/internal/repository"
	appErrors "github.com/fieldserve/dispatch-admin-api/pkg/errors"
)

type rateRepository interface {
	List(ctx context.Context, filter models.RateFilter) ([]models.Rate, error)
	FindByID(ctx context.Context, id string) (*models.Rate, error)
	FindDefault(ctx context.Context, rateType models.RateType, techType models.TechnicianType) (*models.Rate, error)
	Create(ctx context.Context, rate *models.Rate) error
	Update(ctx context.Context, rate *models.Rate) error
	Delete(ctx context.Context, id string) error
	SetDefault(ctx context.Context, id string) (*models.Rate, error)
	GroupSummary(ctx context.Context) ([]models.RateGroupSummary, error)
}

type rateAuditLogger interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

// RateService manages commission and bonus rate configuration.
type RateService struct {
	repo      rateRepository
	audit     rateAuditLogger
	validator *validator.Validate
	logger    *zap.Logger
}

// NewRateService constructs a RateService.
func NewRateService(repo rateRepository, audit rateAuditLogger, validate *validator.Validate, logger *zap.Logger) *RateService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RateService{repo: repo, audit: audit, validator: validate, logger: logger}
}

// List returns rates matching the optional type and technician type filters.
func (s *RateService) List(ctx context.Context, filter models.RateFilter) ([]dto.RateItem, error) {
	rates, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list rates")
	}
	items := make([]dto.RateItem, 0, len(rates))
	for i := range rates {
		items = append(items, toRateItem(&rates[i]))
	}
	return items, nil
}

// Get retrieves a single rate by id.
func (s *RateService) Get(ctx context.Context, id string) (*dto.RateItem, error) {
	rate, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "rate not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to get rate")
	}
	item := toRateItem(rate)
	return &item, nil
}

// Groups returns per-(type, technician type) rate counts with the current
// default of each group.
func (s *RateService) Groups(ctx context.Context) ([]models.RateGroupSummary, error) {
	groups, err := s.repo.GroupSummary(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to summarize rate groups")
	}
	return groups, nil
}

// Default resolves the default rate applicable to a technician
// classification: the BONUS group default for internal employees, the
// COMMISSION group default for freelancers.
func (s *RateService) Default(ctx context.Context, techType models.TechnicianType) (*dto.RateItem, error) {
	if techType != models.TechFreelancer && techType != models.TechInternal {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown technician type")
	}
	rate, err := s.repo.FindDefault(ctx, techType.RateType(), techType)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "no default rate configured for this technician type")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve default rate")
	}
	item := toRateItem(rate)
	return &item, nil
}

// Create registers a new rate. The first rate of a (type, technician type)
// group automatically becomes that group's default.
func (s *RateService) Create(ctx context.Context, req dto.CreateRateRequest, actor *models.JWTClaims) (*dto.RateItem, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid rate payload")
	}

	rate := &models.Rate{
		RateCode: req.RateID,
		Name:     req.Name,
		Type:     models.RateType(req.Type),
		TechType: models.TechnicianType(req.TechType),
	}
	rate.SetRatePercent(req.RatePercent)
	if req.Description != "" {
		rate.Description = &req.Description
	}

	existing, err := s.repo.FindDefault(ctx, rate.Type, rate.TechType)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check group default")
	}
	rate.IsDefault = existing == nil

	if err := s.repo.Create(ctx, rate); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create rate")
	}

	s.emitAudit(ctx, actor, models.AuditActionRateCreate, rate.ID, map[string]any{
		"rate_id":         rate.RateCode,
		"name":            rate.Name,
		"type":            rate.Type,
		"tech_type":       rate.TechType,
		"rate_percentage": rate.RatePercent(),
		"is_default":      rate.IsDefault,
	})

	item := toRateItem(rate)
	return &item, nil
}

// Update applies a partial update. The default flag is immutable here; it
// only changes through SetDefault.
func (s *RateService) Update(ctx context.Context, id string, req dto.UpdateRateRequest, actor *models.JWTClaims) (*dto.RateItem, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid rate payload")
	}
	rate, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "rate not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to get rate")
	}

	changes := map[string]any{}
	if req.Name != nil && *req.Name != rate.Name {
		rate.Name = *req.Name
		changes["name"] = rate.Name
	}
	if req.RatePercent != nil && *req.RatePercent != rate.RatePercent() {
		rate.SetRatePercent(*req.RatePercent)
		changes["rate_percentage"] = rate.RatePercent()
	}
	if req.Description != nil {
		rate.Description = req.Description
		changes["description"] = *req.Description
	}
	if len(changes) == 0 {
		item := toRateItem(rate)
		return &item, nil
	}

	if err := s.repo.Update(ctx, rate); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "rate not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update rate")
	}

	s.emitAudit(ctx, actor, models.AuditActionRateUpdate, rate.ID, changes)

	item := toRateItem(rate)
	return &item, nil
}

// Delete removes a rate. The group default cannot be deleted; another rate
// must be promoted first so the resolver always has a fallback.
func (s *RateService) Delete(ctx context.Context, id string, actor *models.JWTClaims) error {
	rate, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "rate not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to get rate")
	}
	if rate.IsDefault {
		return appErrors.Clone(appErrors.ErrInvalidState, "cannot delete the default rate of a group")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "rate not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete rate")
	}

	s.emitAudit(ctx, actor, models.AuditActionRateDelete, rate.ID, map[string]any{
		"rate_id": rate.RateCode,
		"name":    rate.Name,
	})
	return nil
}

// SetDefault promotes the rate to its group's default, demoting the previous
// default in the same transaction. Concurrent promotions in the same group
// surface as a retryable conflict.
func (s *RateService) SetDefault(ctx context.Context, id string, actor *models.JWTClaims) (*dto.RateItem, error) {
	rate, err := s.repo.SetDefault(ctx, id)
	if err != nil {
		var serErr *repository.SerializationError
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return nil, appErrors.Clone(appErrors.ErrNotFound, "rate not found")
		case errors.As(err, &serErr):
			return nil, appErrors.ErrDefaultRateConflict
		default:
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to set default rate")
		}
	}

	s.emitAudit(ctx, actor, models.AuditActionRateSetDefault, rate.ID, map[string]any{
		"rate_id":   rate.RateCode,
		"type":      rate.Type,
		"tech_type": rate.TechType,
	})

	item := toRateItem(rate)
	return &item, nil
}

func (s *RateService) emitAudit(ctx context.Context, actor *models.JWTClaims, action, rateID string, payload map[string]any) {
	if s.audit == nil {
		return
	}
	metadata, _ := json.Marshal(payload)
	log := &models.AuditLog{
		UserID:     userIDPtr(actor),
		Action:     action,
		EntityType: "rate",
		EntityID:   &rateID,
		Metadata:   metadata,
		IPAddress:  "system",
		UserAgent:  "system",
	}
	if err := s.audit.CreateAuditLog(ctx, log); err != nil {
		s.logger.Warn("audit log write failed", zap.String("action", action), zap.Error(err))
	}
}

func toRateItem(rate *models.Rate) dto.RateItem {
	item := dto.RateItem{
		ID:          rate.ID,
		RateID:      rate.RateCode,
		Name:        rate.Name,
		Type:        string(rate.Type),
		TechType:    string(rate.TechType),
		RatePercent: rate.RatePercent(),
		IsDefault:   rate.IsDefault,
	}
	if rate.Description != nil {
		item.Description = *rate.Description
	}
	return item
}

func userIDPtr(actor *models.JWTClaims) *string {
	if actor == nil || actor.UserID == "" {
		return nil
	}
	id := actor.UserID
	return &id
}
