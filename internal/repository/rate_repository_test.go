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

func newRateRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	sqlxDB := sqlx.NewDb(db, "postgres")
	return sqlxDB, mock, func() {
		sqlxDB.Close()
		db.Close()
	}
}

func rateRows(rates ...models.Rate) *sqlmock.Rows {
	rows := sqlmock.NewRows([]string{"id", "rate_code", "name", "type", "tech_type", "rate_fraction", "description", "is_default", "created_at", "updated_at"})
	for _, r := range rates {
		rows.AddRow(r.ID, r.RateCode, r.Name, r.Type, r.TechType, r.RateFraction, r.Description, r.IsDefault, r.CreatedAt, r.UpdatedAt)
	}
	return rows
}

func TestRateRepositoryListFiltersByGroup(t *testing.T) {
	db, mock, cleanup := newRateRepoMock(t)
	defer cleanup()

	now := time.Now().UTC()
	commission := models.RateCommission
	freelance := models.TechFreelancer

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, rate_code, name, type, tech_type, rate_fraction, description, is_default, created_at, updated_at FROM rates WHERE 1=1 AND type = $1 AND tech_type = $2 ORDER BY type, tech_type, created_at ASC")).
		WithArgs(commission, freelance).
		WillReturnRows(rateRows(models.Rate{
			ID:           "rate-1",
			RateCode:     "RT-001",
			Name:         "Standard",
			Type:         commission,
			TechType:     freelance,
			RateFraction: 0.3,
			IsDefault:    true,
			CreatedAt:    now,
			UpdatedAt:    now,
		}))

	repo := NewRateRepository(db)
	rates, err := repo.List(context.Background(), models.RateFilter{Type: &commission, TechType: &freelance})
	require.NoError(t, err)
	require.Len(t, rates, 1)
	assert.Equal(t, "rate-1", rates[0].ID)
	assert.InDelta(t, 0.3, rates[0].RateFraction, 1e-9)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRateRepositoryFindByIDNotFound(t *testing.T) {
	db, mock, cleanup := newRateRepoMock(t)
	defer cleanup()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, rate_code, name, type, tech_type, rate_fraction, description, is_default, created_at, updated_at FROM rates WHERE id = $1 LIMIT 1")).
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	repo := NewRateRepository(db)
	rate, err := repo.FindByID(context.Background(), "missing")
	assert.Nil(t, rate)
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRateRepositoryUpdateMissingRate(t *testing.T) {
	db, mock, cleanup := newRateRepoMock(t)
	defer cleanup()

	mock.ExpectExec(regexp.QuoteMeta("UPDATE rates SET")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	repo := NewRateRepository(db)
	err := repo.Update(context.Background(), &models.Rate{ID: "missing", Name: "Renamed", RateFraction: 0.25})
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRateRepositorySetDefaultSwapsWithinGroup(t *testing.T) {
	db, mock, cleanup := newRateRepoMock(t)
	defer cleanup()

	now := time.Now().UTC()
	rate := models.Rate{
		ID:           "rate-2",
		RateCode:     "RT-002",
		Name:         "Promo",
		Type:         models.RateCommission,
		TechType:     models.TechFreelancer,
		RateFraction: 0.35,
		IsDefault:    false,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, rate_code, name, type, tech_type, rate_fraction, description, is_default, created_at, updated_at FROM rates WHERE id = $1 FOR UPDATE")).
		WithArgs("rate-2").
		WillReturnRows(rateRows(rate))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE rates SET is_default = FALSE, updated_at = $3 WHERE type = $1 AND tech_type = $2 AND is_default = TRUE")).
		WithArgs(rate.Type, rate.TechType, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE rates SET is_default = TRUE, updated_at = $2 WHERE id = $1")).
		WithArgs("rate-2", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	repo := NewRateRepository(db)
	updated, err := repo.SetDefault(context.Background(), "rate-2")
	require.NoError(t, err)
	assert.True(t, updated.IsDefault)
	assert.Equal(t, "rate-2", updated.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRateRepositoryGroupSummary(t *testing.T) {
	db, mock, cleanup := newRateRepoMock(t)
	defer cleanup()

	rows := sqlmock.NewRows([]string{"type", "tech_type", "count", "default_id", "default_name"}).
		AddRow(models.RateCommission, models.TechFreelancer, 3, "rate-1", "Standard").
		AddRow(models.RateBonus, models.TechInternal, 1, nil, nil)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT r.type, r.tech_type, COUNT(*) AS count")).
		WillReturnRows(rows)

	repo := NewRateRepository(db)
	groups, err := repo.GroupSummary(context.Background())
	require.NoError(t, err)
	require.Len(t, groups, 2)
	require.NotNil(t, groups[0].DefaultID)
	assert.Equal(t, "rate-1", *groups[0].DefaultID)
	assert.Nil(t, groups[1].DefaultID)
	assert.NoError(t, mock.ExpectationsWereMet())
}
