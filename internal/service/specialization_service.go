package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/fieldserve/dispatch-admin-api/internal/dto"
	"github.com/fieldserve/dispatch-admin-api/internal/models"
	appErrors "github.com/fieldserve/dispatch-admin-api/pkg/errors"
)

type specializationRepository interface {
	List(ctx context.Context) ([]models.Specialization, error)
	FindByID(ctx context.Context, id string) (*models.Specialization, error)
	Create(ctx context.Context, item *models.Specialization) error
	Update(ctx context.Context, item *models.Specialization) error
	Delete(ctx context.Context, id string) error
}

// SpecializationService manages the service-category catalog.
type SpecializationService struct {
	repo      specializationRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewSpecializationService constructs a SpecializationService.
func NewSpecializationService(repo specializationRepository, validate *validator.Validate, logger *zap.Logger) *SpecializationService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SpecializationService{repo: repo, validator: validate, logger: logger}
}

// List returns the full catalog.
func (s *SpecializationService) List(ctx context.Context) ([]models.Specialization, error) {
	items, err := s.repo.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list specializations")
	}
	return items, nil
}

// Get returns a catalog entry by ID.
func (s *SpecializationService) Get(ctx context.Context, id string) (*models.Specialization, error) {
	item, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "specialization not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load specialization")
	}
	return item, nil
}

// Create adds a catalog entry.
func (s *SpecializationService) Create(ctx context.Context, req dto.CreateSpecializationRequest) (*models.Specialization, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid specialization payload")
	}
	item := &models.Specialization{Name: req.Name, Active: true}
	if req.Description != "" {
		item.Description = &req.Description
	}
	if err := s.repo.Create(ctx, item); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create specialization")
	}
	return item, nil
}

// Update replaces a catalog entry.
func (s *SpecializationService) Update(ctx context.Context, id string, req dto.UpdateSpecializationRequest) (*models.Specialization, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid specialization payload")
	}
	item, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	item.Name = req.Name
	if req.Description != "" {
		item.Description = &req.Description
	} else {
		item.Description = nil
	}
	if req.Active != nil {
		item.Active = *req.Active
	}

	if err := s.repo.Update(ctx, item); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "specialization not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update specialization")
	}
	return item, nil
}

// Delete removes a catalog entry.
func (s *SpecializationService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "specialization not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete specialization")
	}
	return nil
}
