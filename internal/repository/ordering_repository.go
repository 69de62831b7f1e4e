package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

var (
	// ErrScopeNotOrderable rejects reorder requests against anything outside
	// the allow-listed scope set.
	ErrScopeNotOrderable = errors.New("scope is not orderable")
	// ErrInvalidDirection rejects directions other than up/down.
	ErrInvalidDirection = errors.New("direction must be up or down")
	// ErrOrderTargetNotFound signals that the id is not part of the scope's
	// sibling group.
	ErrOrderTargetNotFound = errors.New("order target not found in scope")
)

// Direction of an adjacent swap.
type Direction string

const (
	DirectionUp   Direction = "up"
	DirectionDown Direction = "down"
)

// OrderScope names an orderable sibling dimension. The product catalog
// listing itself is deliberately absent: only featured_order is editor-
// orderable on products.
type OrderScope string

const (
	ScopeCategories OrderScope = "categories"
	ScopeTypes      OrderScope = "types"
	ScopeBrands     OrderScope = "brands"
	ScopeFeatured   OrderScope = "featured-products"
)

// orderTarget binds a scope to its table, ordering column, and sibling group
// definition. Table and column names are fixed here and never caller-supplied.
type orderTarget struct {
	table        string
	orderColumn  string
	siblingWhere string
	byParent     bool
}

var orderTargets = map[OrderScope]orderTarget{
	ScopeCategories: {table: "categories", orderColumn: "sort_order", byParent: true},
	ScopeTypes:      {table: "types", orderColumn: "sort_order"},
	ScopeBrands:     {table: "brands", orderColumn: "sort_order"},
	ScopeFeatured:   {table: "products", orderColumn: "featured_order", siblingWhere: "is_featured"},
}

// OrderingRepository applies the manual reordering protocol uniformly across
// the orderable scopes.
type OrderingRepository interface {
	// MoveStep swaps an entity with its neighbor in the sibling group. A move
	// past either end of the group is a successful no-op.
	MoveStep(ctx context.Context, scope OrderScope, id uuid.UUID, direction Direction) error
	// ReorderAll overwrites the order values of the supplied ids with their
	// positions in the slice. The caller's ordering is trusted completely.
	ReorderAll(ctx context.Context, scope OrderScope, orderedIDs []uuid.UUID) error
}

type orderingRepository struct {
	db *sql.DB
}

// NewOrderingRepository creates a new instance of OrderingRepository
func NewOrderingRepository(db *sql.DB) OrderingRepository {
	return &orderingRepository{db: db}
}

func (r *orderingRepository) MoveStep(ctx context.Context, scope OrderScope, id uuid.UUID, direction Direction) error {
	target, ok := orderTargets[scope]
	if !ok {
		return ErrScopeNotOrderable
	}
	if direction != DirectionUp && direction != DirectionDown {
		return ErrInvalidDirection
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	siblings, err := fetchSiblings(ctx, tx, target, id)
	if err != nil {
		return err
	}

	plan, err := planSwap(siblings, id, direction)
	if err != nil {
		return err
	}
	if plan == nil {
		// Boundary move: nothing to change, still a success.
		return tx.Commit()
	}

	update := fmt.Sprintf(`UPDATE %s SET %s = $1 WHERE id = $2`, target.table, target.orderColumn)
	for _, row := range plan {
		if _, err := tx.ExecContext(ctx, update, row.Order, row.ID); err != nil {
			return fmt.Errorf("failed to apply swap: %w", err)
		}
	}

	return tx.Commit()
}

func (r *orderingRepository) ReorderAll(ctx context.Context, scope OrderScope, orderedIDs []uuid.UUID) error {
	target, ok := orderTargets[scope]
	if !ok {
		return ErrScopeNotOrderable
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	update := fmt.Sprintf(`UPDATE %s SET %s = $1 WHERE id = $2`, target.table, target.orderColumn)
	for index, id := range orderedIDs {
		if _, err := tx.ExecContext(ctx, update, index, id); err != nil {
			return fmt.Errorf("failed to rewrite order: %w", err)
		}
	}

	return tx.Commit()
}

// orderedRow is one member of a sibling group in its current order.
type orderedRow struct {
	ID    uuid.UUID
	Order int
}

// fetchSiblings loads the full sibling group containing id, in the same order
// every listing uses. Returns ErrOrderTargetNotFound if id has no row (or, for
// scoped groups like featured products, sits outside the group).
func fetchSiblings(ctx context.Context, tx *sql.Tx, target orderTarget, id uuid.UUID) ([]orderedRow, error) {
	var (
		query string
		args  []any
	)

	if target.byParent {
		// Sibling group = rows under the same parent, NULL-safe.
		var parentID uuid.NullUUID
		err := tx.QueryRowContext(ctx,
			fmt.Sprintf(`SELECT parent_id FROM %s WHERE id = $1`, target.table), id,
		).Scan(&parentID)
		if err != nil {
			if err == sql.ErrNoRows {
				return nil, ErrOrderTargetNotFound
			}
			return nil, fmt.Errorf("failed to resolve sibling group: %w", err)
		}

		query = fmt.Sprintf(`
			SELECT id, %s FROM %s
			WHERE parent_id IS NOT DISTINCT FROM $1
			ORDER BY %s, created_at, id`,
			target.orderColumn, target.table, target.orderColumn)
		args = []any{parentID}
	} else {
		where := ""
		if target.siblingWhere != "" {
			where = "WHERE " + target.siblingWhere
		}
		query = fmt.Sprintf(`
			SELECT id, %s FROM %s %s
			ORDER BY %s, created_at, id`,
			target.orderColumn, target.table, where, target.orderColumn)
	}

	rows, err := tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch sibling group: %w", err)
	}
	defer rows.Close()

	siblings := []orderedRow{}
	for rows.Next() {
		var row orderedRow
		if err := rows.Scan(&row.ID, &row.Order); err != nil {
			return nil, fmt.Errorf("failed to scan sibling row: %w", err)
		}
		siblings = append(siblings, row)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating sibling group: %w", err)
	}

	return siblings, nil
}

// planSwap computes the order values an adjacent swap must write. A nil plan
// with a nil error means the move hits a group boundary and is a no-op. When
// the two neighbors carry equal order values (possible after prior batch
// rewrites), their 0-based array positions become the new values so the swap
// always produces a detectable change.
func planSwap(siblings []orderedRow, id uuid.UUID, direction Direction) ([]orderedRow, error) {
	index := -1
	for i, row := range siblings {
		if row.ID == id {
			index = i
			break
		}
	}
	if index < 0 {
		return nil, ErrOrderTargetNotFound
	}

	neighbor := index - 1
	if direction == DirectionDown {
		neighbor = index + 1
	}
	if neighbor < 0 || neighbor >= len(siblings) {
		return nil, nil
	}

	a, b := siblings[index], siblings[neighbor]
	if a.Order == b.Order {
		return []orderedRow{
			{ID: a.ID, Order: neighbor},
			{ID: b.ID, Order: index},
		}, nil
	}
	return []orderedRow{
		{ID: a.ID, Order: b.Order},
		{ID: b.ID, Order: a.Order},
	}, nil
}
