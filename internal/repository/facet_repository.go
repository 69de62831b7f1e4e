package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"optimart/internal/domain"

	"github.com/google/uuid"
)

var (
	ErrFacetNotFound = errors.New("facet not found")
)

// FacetTable names a flat classification table. Only the listed tables are
// valid; the name is interpolated into SQL and must never come from a caller.
type FacetTable string

const (
	FacetTypes  FacetTable = "types"
	FacetBrands FacetTable = "brands"
)

// productColumn maps a facet table to the product column referencing it.
var productColumn = map[FacetTable]string{
	FacetTypes:  "type_id",
	FacetBrands: "brand_id",
}

// FacetRepository defines the interface for flat facet data access. Types and
// brands share the implementation; each table keeps its own sort sequence.
type FacetRepository interface {
	Create(ctx context.Context, facet *domain.Facet) error
	Update(ctx context.Context, facet *domain.Facet) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Facet, error)
	List(ctx context.Context) ([]*domain.Facet, error)
}

type facetRepository struct {
	db    *sql.DB
	table FacetTable
}

// NewFacetRepository creates a FacetRepository over one of the allow-listed
// facet tables.
func NewFacetRepository(db *sql.DB, table FacetTable) FacetRepository {
	if _, ok := productColumn[table]; !ok {
		panic(fmt.Sprintf("repository: unknown facet table %q", table))
	}
	return &facetRepository{db: db, table: table}
}

// Create inserts a new facet, appended after the current sort sequence.
func (r *facetRepository) Create(ctx context.Context, facet *domain.Facet) error {
	query := fmt.Sprintf(`
		INSERT INTO %[1]s (id, name_en, name_ko, slug, sort_order, created_at)
		VALUES ($1, $2, $3, $4,
			(SELECT COALESCE(MAX(sort_order) + 1, 0) FROM %[1]s),
			$5)
		RETURNING sort_order
	`, r.table)

	err := r.db.QueryRowContext(
		ctx,
		query,
		facet.ID,
		facet.Name.EN,
		facet.Name.KO,
		facet.Slug,
		facet.CreatedAt,
	).Scan(&facet.SortOrder)

	if err != nil {
		if isUniqueViolation(err) {
			return ErrSlugTaken
		}
		return fmt.Errorf("failed to create %s row: %w", r.table, err)
	}

	return nil
}

// Update rewrites the mutable fields of a facet; sort_order is owned by the
// ordering protocol.
func (r *facetRepository) Update(ctx context.Context, facet *domain.Facet) error {
	query := fmt.Sprintf(`
		UPDATE %s
		SET name_en = $2, name_ko = $3, slug = $4
		WHERE id = $1
	`, r.table)

	result, err := r.db.ExecContext(ctx, query, facet.ID, facet.Name.EN, facet.Name.KO, facet.Slug)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrSlugTaken
		}
		return fmt.Errorf("failed to update %s row: %w", r.table, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return ErrFacetNotFound
	}

	return nil
}

// Delete removes a facet and detaches referencing products in the same
// transaction.
func (r *facetRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	detach := fmt.Sprintf(
		`UPDATE products SET %s = NULL, updated_at = now() WHERE %s = $1`,
		productColumn[r.table], productColumn[r.table])
	if _, err := tx.ExecContext(ctx, detach, id); err != nil {
		return fmt.Errorf("failed to detach products: %w", err)
	}

	result, err := tx.ExecContext(ctx, fmt.Sprintf(`DELETE FROM %s WHERE id = $1`, r.table), id)
	if err != nil {
		return fmt.Errorf("failed to delete %s row: %w", r.table, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return ErrFacetNotFound
	}

	return tx.Commit()
}

// FindByID retrieves a facet by ID using parameterized queries
func (r *facetRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Facet, error) {
	query := fmt.Sprintf(`
		SELECT id, name_en, name_ko, slug, sort_order, created_at
		FROM %s
		WHERE id = $1
	`, r.table)

	facet := &domain.Facet{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&facet.ID,
		&facet.Name.EN,
		&facet.Name.KO,
		&facet.Slug,
		&facet.SortOrder,
		&facet.CreatedAt,
	)

	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrFacetNotFound
		}
		return nil, fmt.Errorf("failed to find %s row by ID: %w", r.table, err)
	}

	return facet, nil
}

// List retrieves all facets in manual order.
func (r *facetRepository) List(ctx context.Context) ([]*domain.Facet, error) {
	query := fmt.Sprintf(`
		SELECT id, name_en, name_ko, slug, sort_order, created_at
		FROM %s
		ORDER BY sort_order, created_at, id
	`, r.table)

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", r.table, err)
	}
	defer rows.Close()

	facets := []*domain.Facet{}
	for rows.Next() {
		facet := &domain.Facet{}
		err := rows.Scan(
			&facet.ID,
			&facet.Name.EN,
			&facet.Name.KO,
			&facet.Slug,
			&facet.SortOrder,
			&facet.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan %s row: %w", r.table, err)
		}
		facets = append(facets, facet)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating %s: %w", r.table, err)
	}

	return facets, nil
}
