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

// SpecializationRepository provides database access for the service-category
// catalog.
type SpecializationRepository struct {
	db *sqlx.DB
}

// NewSpecializationRepository creates a new instance of SpecializationRepository.
func NewSpecializationRepository(db *sqlx.DB) *SpecializationRepository {
	return &SpecializationRepository{db: db}
}

const specializationColumns = `id, name, description, active, created_at, updated_at`

// List returns all catalog entries ordered by name.
func (r *SpecializationRepository) List(ctx context.Context) ([]models.Specialization, error) {
	query := fmt.Sprintf(`SELECT %s FROM specializations ORDER BY name ASC`, specializationColumns)
	var items []models.Specialization
	if err := r.db.SelectContext(ctx, &items, query); err != nil {
		return nil, fmt.Errorf("list specializations: %w", err)
	}
	return items, nil
}

// FindByID returns a catalog entry by identifier.
func (r *SpecializationRepository) FindByID(ctx context.Context, id string) (*models.Specialization, error) {
	query := fmt.Sprintf(`SELECT %s FROM specializations WHERE id = $1 LIMIT 1`, specializationColumns)
	var item models.Specialization
	if err := r.db.GetContext(ctx, &item, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find specialization by id: %w", err)
	}
	return &item, nil
}

// Create inserts a new catalog entry.
func (r *SpecializationRepository) Create(ctx context.Context, item *models.Specialization) error {
	if item.ID == "" {
		item.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	item.CreatedAt = now
	item.UpdatedAt = now

	const query = `INSERT INTO specializations (id, name, description, active, created_at, updated_at) VALUES (:id, :name, :description, :active, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, item); err != nil {
		return fmt.Errorf("create specialization: %w", err)
	}
	return nil
}

// Update replaces mutable fields of a catalog entry.
func (r *SpecializationRepository) Update(ctx context.Context, item *models.Specialization) error {
	item.UpdatedAt = time.Now().UTC()
	const query = `UPDATE specializations SET name = :name, description = :description, active = :active, updated_at = :updated_at WHERE id = :id`
	result, err := r.db.NamedExecContext(ctx, query, item)
	if err != nil {
		return fmt.Errorf("update specialization: %w", err)
	}
	affected, err := result.RowsAffected()
	if err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Delete removes a catalog entry.
func (r *SpecializationRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM specializations WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete specialization: %w", err)
	}
	affected, err := result.RowsAffected()
	if err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
