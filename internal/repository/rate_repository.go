package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/fieldserve/dispatch-admin-api/internal/models"
)

// RateRepository provides database access for commission and bonus rates.
type RateRepository struct {
	db *sqlx.DB
}

// NewRateRepository creates a new instance of RateRepository.
func NewRateRepository(db *sqlx.DB) *RateRepository {
	return &RateRepository{db: db}
}

const rateColumns = `id, rate_code, name, type, tech_type, rate_fraction, description, is_default, created_at, updated_at`

// List returns rates matching the filter in the backend's stable order.
func (r *RateRepository) List(ctx context.Context, filter models.RateFilter) ([]models.Rate, error) {
	baseQuery := fmt.Sprintf(`SELECT %s FROM rates WHERE 1=1`, rateColumns)
	var conditions []string
	var args []interface{}

	if filter.Type != nil {
		conditions = append(conditions, fmt.Sprintf("type = $%d", len(args)+1))
		args = append(args, *filter.Type)
	}
	if filter.TechType != nil {
		conditions = append(conditions, fmt.Sprintf("tech_type = $%d", len(args)+1))
		args = append(args, *filter.TechType)
	}
	if len(conditions) > 0 {
		baseQuery += " AND " + strings.Join(conditions, " AND ")
	}
	baseQuery += " ORDER BY type, tech_type, created_at ASC"

	var rates []models.Rate
	if err := r.db.SelectContext(ctx, &rates, baseQuery, args...); err != nil {
		return nil, fmt.Errorf("list rates: %w", err)
	}
	return rates, nil
}

// FindByID returns a rate by identifier.
func (r *RateRepository) FindByID(ctx context.Context, id string) (*models.Rate, error) {
	query := fmt.Sprintf(`SELECT %s FROM rates WHERE id = $1 LIMIT 1`, rateColumns)
	var rate models.Rate
	if err := r.db.GetContext(ctx, &rate, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find rate by id: %w", err)
	}
	return &rate, nil
}

// FindDefault returns the default rate for a (type, techType) group, or
// sql.ErrNoRows when the group has no default.
func (r *RateRepository) FindDefault(ctx context.Context, rateType models.RateType, techType models.TechnicianType) (*models.Rate, error) {
	query := fmt.Sprintf(`SELECT %s FROM rates WHERE type = $1 AND tech_type = $2 AND is_default = TRUE LIMIT 1`, rateColumns)
	var rate models.Rate
	if err := r.db.GetContext(ctx, &rate, query, rateType, techType); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find default rate: %w", err)
	}
	return &rate, nil
}

// Create inserts a new rate.
func (r *RateRepository) Create(ctx context.Context, rate *models.Rate) error {
	if rate.ID == "" {
		rate.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	rate.CreatedAt = now
	rate.UpdatedAt = now

	const query = `INSERT INTO rates (id, rate_code, name, type, tech_type, rate_fraction, description, is_default, created_at, updated_at)
VALUES (:id, :rate_code, :name, :type, :tech_type, :rate_fraction, :description, :is_default, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, rate); err != nil {
		return fmt.Errorf("create rate: %w", err)
	}
	return nil
}

// Update persists name, fraction and description changes. The is_default
// column is intentionally not part of this statement.
func (r *RateRepository) Update(ctx context.Context, rate *models.Rate) error {
	rate.UpdatedAt = time.Now().UTC()
	const query = `UPDATE rates SET name = :name, rate_fraction = :rate_fraction, description = :description, updated_at = :updated_at WHERE id = :id`
	result, err := r.db.NamedExecContext(ctx, query, rate)
	if err != nil {
		return fmt.Errorf("update rate: %w", err)
	}
	affected, err := result.RowsAffected()
	if err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Delete removes a rate.
func (r *RateRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM rates WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete rate: %w", err)
	}
	affected, err := result.RowsAffected()
	if err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// SetDefault marks the given rate default within its (type, techType) group
// inside a single transaction, clearing the previous default first. The
// returned rate reflects the new state. A serialization failure surfaces as
// ErrSerialization so the service can report a retryable conflict.
func (r *RateRepository) SetDefault(ctx context.Context, id string) (*models.Rate, error) {
	tx, err := r.db.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, fmt.Errorf("begin set-default tx: %w", err)
	}

	query := fmt.Sprintf(`SELECT %s FROM rates WHERE id = $1 FOR UPDATE`, rateColumns)
	var rate models.Rate
	if err := tx.GetContext(ctx, &rate, query, id); err != nil {
		_ = tx.Rollback()
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("lock rate for set-default: %w", err)
	}

	now := time.Now().UTC()
	if _, err := tx.ExecContext(ctx,
		`UPDATE rates SET is_default = FALSE, updated_at = $3 WHERE type = $1 AND tech_type = $2 AND is_default = TRUE`,
		rate.Type, rate.TechType, now); err != nil {
		_ = tx.Rollback()
		return nil, wrapSerialization(err, "clear previous default")
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE rates SET is_default = TRUE, updated_at = $2 WHERE id = $1`,
		rate.ID, now); err != nil {
		_ = tx.Rollback()
		return nil, wrapSerialization(err, "set default rate")
	}

	if err := tx.Commit(); err != nil {
		return nil, wrapSerialization(err, "commit set-default tx")
	}

	rate.IsDefault = true
	rate.UpdatedAt = now
	return &rate, nil
}

// GroupSummary aggregates rate counts and current defaults per group.
func (r *RateRepository) GroupSummary(ctx context.Context) ([]models.RateGroupSummary, error) {
	const query = `SELECT r.type, r.tech_type, COUNT(*) AS count,
	MAX(CASE WHEN r.is_default THEN r.id END) AS default_id,
	MAX(CASE WHEN r.is_default THEN r.name END) AS default_name
FROM rates r GROUP BY r.type, r.tech_type ORDER BY r.type, r.tech_type`
	var rows []models.RateGroupSummary
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("rate group summary: %w", err)
	}
	return rows, nil
}

// SerializationError marks transaction conflicts that the caller may retry.
type SerializationError struct {
	Op  string
	Err error
}

func (e *SerializationError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *SerializationError) Unwrap() error {
	return e.Err
}

func wrapSerialization(err error, op string) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && (pqErr.Code == "40001" || pqErr.Code == "40P01") {
		return &SerializationError{Op: op, Err: err}
	}
	return fmt.Errorf("%s: %w", op, err)
}
