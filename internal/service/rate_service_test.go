package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fieldserve/dispatch-admin-api/internal/dto"
	"github.com/fieldserve/dispatch-admin-api/internal/models"
	"github.com/fieldserve/dispatch-admin-api/internal/repository"
	appErrors "github.com/fieldserve/dispatch-admin-api/pkg/errors"
)

type auditLoggerStub struct {
	logs []*models.AuditLog
}

func (a *auditLoggerStub) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	a.logs = append(a.logs, log)
	return nil
}

type rateRepoStub struct {
	rates         map[string]*models.Rate
	groupDefault  *models.Rate
	setDefaultErr error
	updated       *models.Rate
	created       *models.Rate
}

func (s *rateRepoStub) List(ctx context.Context, filter models.RateFilter) ([]models.Rate, error) {
	result := make([]models.Rate, 0, len(s.rates))
	for _, rate := range s.rates {
		result = append(result, *rate)
	}
	return result, nil
}

func (s *rateRepoStub) FindByID(ctx context.Context, id string) (*models.Rate, error) {
	if rate, ok := s.rates[id]; ok {
		return rate, nil
	}
	return nil, sql.ErrNoRows
}

func (s *rateRepoStub) FindDefault(ctx context.Context, rateType models.RateType, techType models.TechnicianType) (*models.Rate, error) {
	if s.groupDefault != nil && s.groupDefault.Type == rateType && s.groupDefault.TechType == techType {
		return s.groupDefault, nil
	}
	return nil, sql.ErrNoRows
}

func (s *rateRepoStub) Create(ctx context.Context, rate *models.Rate) error {
	if rate.ID == "" {
		rate.ID = "rate-new"
	}
	if s.rates == nil {
		s.rates = make(map[string]*models.Rate)
	}
	s.rates[rate.ID] = rate
	s.created = rate
	return nil
}

func (s *rateRepoStub) Update(ctx context.Context, rate *models.Rate) error {
	if _, ok := s.rates[rate.ID]; !ok {
		return sql.ErrNoRows
	}
	s.rates[rate.ID] = rate
	s.updated = rate
	return nil
}

func (s *rateRepoStub) Delete(ctx context.Context, id string) error {
	if _, ok := s.rates[id]; !ok {
		return sql.ErrNoRows
	}
	delete(s.rates, id)
	return nil
}

func (s *rateRepoStub) SetDefault(ctx context.Context, id string) (*models.Rate, error) {
	if s.setDefaultErr != nil {
		return nil, s.setDefaultErr
	}
	rate, ok := s.rates[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	for _, other := range s.rates {
		if other.Type == rate.Type && other.TechType == rate.TechType {
			other.IsDefault = false
		}
	}
	rate.IsDefault = true
	return rate, nil
}

func (s *rateRepoStub) GroupSummary(ctx context.Context) ([]models.RateGroupSummary, error) {
	return nil, nil
}

func newRateService(repo *rateRepoStub) (*RateService, *auditLoggerStub) {
	audit := &auditLoggerStub{}
	return NewRateService(repo, audit, validator.New(), nil), audit
}

func TestRateCreateFirstOfGroupBecomesDefault(t *testing.T) {
	repo := &rateRepoStub{}
	svc, audit := newRateService(repo)

	item, err := svc.Create(context.Background(), dto.CreateRateRequest{
		RateID:      "RT-001",
		Name:        "Standard Commission",
		Type:        "COMMISSION",
		TechType:    "FREELANCER",
		RatePercent: 30,
	}, adminClaims())
	require.NoError(t, err)
	assert.True(t, item.IsDefault)
	assert.Equal(t, 30.0, item.RatePercent)
	assert.InDelta(t, 0.3, repo.created.RateFraction, 1e-12)
	require.Len(t, audit.logs, 1)
	assert.Equal(t, models.AuditActionRateCreate, audit.logs[0].Action)
}

func TestRateCreateSecondOfGroupIsNotDefault(t *testing.T) {
	existing := &models.Rate{ID: "rate-1", Type: models.RateCommission, TechType: models.TechFreelancer, IsDefault: true}
	repo := &rateRepoStub{rates: map[string]*models.Rate{"rate-1": existing}, groupDefault: existing}
	svc, _ := newRateService(repo)

	item, err := svc.Create(context.Background(), dto.CreateRateRequest{
		RateID:      "RT-002",
		Name:        "Premium Commission",
		Type:        "COMMISSION",
		TechType:    "FREELANCER",
		RatePercent: 35,
	}, adminClaims())
	require.NoError(t, err)
	assert.False(t, item.IsDefault)
}

func TestRateCreateRejectsOutOfRangePercent(t *testing.T) {
	svc, _ := newRateService(&rateRepoStub{})

	_, err := svc.Create(context.Background(), dto.CreateRateRequest{
		RateID:      "RT-003",
		Name:        "Broken",
		Type:        "COMMISSION",
		TechType:    "FREELANCER",
		RatePercent: 120,
	}, adminClaims())
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}

func TestRateUpdateCannotToggleDefault(t *testing.T) {
	rate := &models.Rate{ID: "rate-1", Name: "Standard", Type: models.RateCommission, TechType: models.TechFreelancer, IsDefault: true, RateFraction: 0.3}
	repo := &rateRepoStub{rates: map[string]*models.Rate{"rate-1": rate}}
	svc, _ := newRateService(repo)

	newName := "Standard v2"
	item, err := svc.Update(context.Background(), "rate-1", dto.UpdateRateRequest{Name: &newName}, adminClaims())
	require.NoError(t, err)
	assert.Equal(t, "Standard v2", item.Name)
	assert.True(t, item.IsDefault, "update must not change the default flag")
}

func TestRateDeleteDefaultRejected(t *testing.T) {
	rate := &models.Rate{ID: "rate-1", Type: models.RateCommission, TechType: models.TechFreelancer, IsDefault: true}
	repo := &rateRepoStub{rates: map[string]*models.Rate{"rate-1": rate}}
	svc, _ := newRateService(repo)

	err := svc.Delete(context.Background(), "rate-1", adminClaims())
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrInvalidState.Code, appErr.Code)
}

func TestRateSetDefaultSwapsWithinGroup(t *testing.T) {
	first := &models.Rate{ID: "rate-1", Type: models.RateCommission, TechType: models.TechFreelancer, IsDefault: true}
	second := &models.Rate{ID: "rate-2", Type: models.RateCommission, TechType: models.TechFreelancer}
	repo := &rateRepoStub{rates: map[string]*models.Rate{"rate-1": first, "rate-2": second}}
	svc, audit := newRateService(repo)

	item, err := svc.SetDefault(context.Background(), "rate-2", adminClaims())
	require.NoError(t, err)
	assert.True(t, item.IsDefault)
	assert.False(t, first.IsDefault)
	require.Len(t, audit.logs, 1)
	assert.Equal(t, models.AuditActionRateSetDefault, audit.logs[0].Action)
}

func TestRateDefaultResolvesGroupByTechType(t *testing.T) {
	bonus := &models.Rate{ID: "rate-1", Name: "Standard Bonus", Type: models.RateBonus, TechType: models.TechInternal, RateFraction: 0.05, IsDefault: true}
	repo := &rateRepoStub{groupDefault: bonus}
	svc, _ := newRateService(repo)

	item, err := svc.Default(context.Background(), models.TechInternal)
	require.NoError(t, err)
	assert.Equal(t, "rate-1", item.ID)
	assert.Equal(t, 5.0, item.RatePercent)

	// The freelancer group has no default configured here.
	_, err = svc.Default(context.Background(), models.TechFreelancer)
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
}

func TestRateDefaultRejectsUnknownTechType(t *testing.T) {
	svc, _ := newRateService(&rateRepoStub{})

	_, err := svc.Default(context.Background(), models.TechnicianType("CONTRACTOR"))
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}

func TestRateSetDefaultSerializationConflict(t *testing.T) {
	repo := &rateRepoStub{setDefaultErr: &repository.SerializationError{Op: "set default rate"}}
	svc, _ := newRateService(repo)

	_, err := svc.SetDefault(context.Background(), "rate-1", adminClaims())
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrDefaultRateConflict.Code, appErr.Code)
}
