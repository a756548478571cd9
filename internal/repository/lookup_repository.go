package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/consultoria-api/internal/models"
)

// LookupRepository persists plan types and training phases, which share one table shape.
type LookupRepository struct {
	db    *sqlx.DB
	kind  models.LookupKind
	table string
}

// NewLookupRepository constructs a repository bound to the table of the given kind.
func NewLookupRepository(db *sqlx.DB, kind models.LookupKind) *LookupRepository {
	return &LookupRepository{db: db, kind: kind, table: string(kind)}
}

// NewPlanTypeRepository constructs the plan type repository.
func NewPlanTypeRepository(db *sqlx.DB) *LookupRepository {
	return NewLookupRepository(db, models.LookupKindPlanType)
}

// NewTrainingPhaseRepository constructs the training phase repository.
func NewTrainingPhaseRepository(db *sqlx.DB) *LookupRepository {
	return NewLookupRepository(db, models.LookupKindTrainingPhase)
}

// Kind returns the lookup kind served by the repository.
func (r *LookupRepository) Kind() models.LookupKind {
	return r.kind
}

// List returns lookups ordered for display. Inactive rows are included unless activeOnly is set.
func (r *LookupRepository) List(ctx context.Context, activeOnly bool) ([]models.Lookup, error) {
	query := fmt.Sprintf("SELECT id, name, color, sort_order, active, created_at, updated_at FROM %s", r.table)
	if activeOnly {
		query += " WHERE active = true"
	}
	query += " ORDER BY sort_order ASC, name ASC"

	var items []models.Lookup
	if err := r.db.SelectContext(ctx, &items, query); err != nil {
		return nil, fmt.Errorf("list %s: %w", r.table, err)
	}
	return items, nil
}

// FindByID fetches a lookup by ID.
func (r *LookupRepository) FindByID(ctx context.Context, id string) (*models.Lookup, error) {
	query := fmt.Sprintf("SELECT id, name, color, sort_order, active, created_at, updated_at FROM %s WHERE id = $1", r.table)
	var item models.Lookup
	if err := r.db.GetContext(ctx, &item, query, id); err != nil {
		return nil, err
	}
	return &item, nil
}

// ExistsByName checks whether a row already uses the name, optionally excluding an ID.
func (r *LookupRepository) ExistsByName(ctx context.Context, name string, excludeID string) (bool, error) {
	query := fmt.Sprintf("SELECT 1 FROM %s WHERE name = $1", r.table)
	args := []interface{}{name}
	if excludeID != "" {
		query += " AND id <> $2"
		args = append(args, excludeID)
	}
	var exists int
	if err := r.db.GetContext(ctx, &exists, query+" LIMIT 1", args...); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check %s name: %w", r.table, err)
	}
	return true, nil
}

// Create inserts a new lookup row.
func (r *LookupRepository) Create(ctx context.Context, item *models.Lookup) error {
	if item.ID == "" {
		item.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	item.CreatedAt = now
	item.UpdatedAt = now
	query := fmt.Sprintf(`INSERT INTO %s (id, name, color, sort_order, active, created_at, updated_at)
        VALUES (:id, :name, :color, :sort_order, :active, :created_at, :updated_at)`, r.table)
	if _, err := r.db.NamedExecContext(ctx, query, item); err != nil {
		return fmt.Errorf("create %s: %w", r.table, err)
	}
	return nil
}

// Update modifies name, color and order of a lookup.
func (r *LookupRepository) Update(ctx context.Context, item *models.Lookup) error {
	item.UpdatedAt = time.Now().UTC()
	query := fmt.Sprintf(`UPDATE %s SET name = :name, color = :color, sort_order = :sort_order, updated_at = :updated_at WHERE id = :id`, r.table)
	if _, err := r.db.NamedExecContext(ctx, query, item); err != nil {
		return fmt.Errorf("update %s: %w", r.table, err)
	}
	return nil
}

// Deactivate hides a lookup from new-reference listings without touching dependent students.
func (r *LookupRepository) Deactivate(ctx context.Context, id string) error {
	query := fmt.Sprintf(`UPDATE %s SET active = false, updated_at = $2 WHERE id = $1`, r.table)
	if _, err := r.db.ExecContext(ctx, query, id, time.Now().UTC()); err != nil {
		return fmt.Errorf("deactivate %s: %w", r.table, err)
	}
	return nil
}
