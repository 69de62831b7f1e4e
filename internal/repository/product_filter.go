package repository

import (
	"context"
	"fmt"
	"strings"

	"optimart/internal/domain"
	"optimart/internal/search"

	"github.com/google/uuid"
)

// SortMode selects the non-relevance ordering of a product listing.
type SortMode string

const (
	// SortNewest is insertion order, newest first. The default.
	SortNewest SortMode = "newest"
	// SortAlphabetical is locale-aware, case-insensitive name order.
	SortAlphabetical SortMode = "alphabetical"
)

const (
	minPageSize = 1
	maxPageSize = 100
)

// ProductFilter describes one product listing request. Zero values mean "no
// filter" for the classification and search fields.
type ProductFilter struct {
	CategoryID *uuid.UUID
	TypeID     *uuid.UUID
	BrandID    *uuid.UUID
	Search     string
	Page       int
	PageSize   int
	Sort       SortMode
	Locale     string
	// IncludeUnpublished lifts the public visibility filter. Only the
	// administrative listing path sets it.
	IncludeUnpublished bool
}

// filterQuery is the assembled SQL shape shared by the count and page
// queries, so the two can never disagree about the filtered set.
type filterQuery struct {
	joins   string
	where   string
	orderBy string
	args    []any
}

// build translates the filter into SQL fragments with numbered placeholders.
func (f ProductFilter) build() filterQuery {
	var q filterQuery
	var conditions []string

	arg := func(v any) string {
		q.args = append(q.args, v)
		return fmt.Sprintf("$%d", len(q.args))
	}

	if !f.IncludeUnpublished {
		conditions = append(conditions, "p.is_published = TRUE")
	}

	if f.CategoryID != nil {
		// Fixed two-level subtree expansion: the category itself, its direct
		// children, and its grandchildren. The taxonomy depth invariant (<= 3
		// levels) makes anything deeper unreachable.
		ph := arg(*f.CategoryID)
		conditions = append(conditions, fmt.Sprintf(`p.category_id IN (
			SELECT id FROM categories
			WHERE id = %[1]s
			   OR parent_id = %[1]s
			   OR parent_id IN (SELECT id FROM categories WHERE parent_id = %[1]s))`, ph))
	}

	if f.TypeID != nil {
		conditions = append(conditions, fmt.Sprintf("p.type_id = %s", arg(*f.TypeID)))
	}

	if f.BrandID != nil {
		conditions = append(conditions, fmt.Sprintf("p.brand_id = %s", arg(*f.BrandID)))
	}

	switch f.Sort {
	case SortAlphabetical:
		nameCol := "p.name_en"
		if f.Locale == "ko" {
			nameCol = "p.name_ko"
		}
		q.orderBy = fmt.Sprintf("LOWER(%s), p.id", nameCol)
	default:
		q.orderBy = "p.created_at DESC, p.id"
	}

	// A term that sanitizes away entirely short-circuits to "no text filter".
	if prefixQuery := search.PrefixQuery(f.Search); prefixQuery != "" {
		q.joins = "LEFT JOIN product_search ps ON ps.product_id = p.id"
		queryPh := arg(prefixQuery)
		skuPh := arg(search.SKUPattern(f.Search))
		conditions = append(conditions, fmt.Sprintf(
			"(ps.document @@ to_tsquery('simple', %s) OR p.sku ILIKE %s)", queryPh, skuPh))
		// Relevance ordering overrides the sort mode while a term is present;
		// ties fall back to insertion order.
		q.orderBy = fmt.Sprintf(
			"ts_rank(ps.document, to_tsquery('simple', %s)) DESC NULLS LAST, p.created_at DESC, p.id", queryPh)
	}

	if len(conditions) > 0 {
		q.where = "WHERE " + strings.Join(conditions, " AND ")
	}

	return q
}

// Pagination returns the clamped 1-based page and page size actually applied
// to the query, so response envelopes and the fetch can never disagree.
func (f ProductFilter) Pagination() (page, pageSize int) {
	page = f.Page
	if page < 1 {
		page = 1
	}

	pageSize = f.PageSize
	if pageSize < minPageSize {
		pageSize = minPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}

	return page, pageSize
}

// Filter retrieves one page of products plus the total count of the filtered
// set. The count runs in the same query shape as the page fetch.
func (r *productRepository) Filter(ctx context.Context, f ProductFilter) ([]*domain.Product, int, error) {
	q := f.build()
	base := fmt.Sprintf("FROM products p %s %s", q.joins, q.where)

	countQuery := "SELECT COUNT(*) " + base
	var total int
	if err := r.db.QueryRowContext(ctx, countQuery, q.args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count products: %w", err)
	}

	page, pageSize := f.Pagination()
	offset := (page - 1) * pageSize

	pageQuery := fmt.Sprintf("SELECT %s %s ORDER BY %s LIMIT $%d OFFSET $%d",
		productColumns, base, q.orderBy, len(q.args)+1, len(q.args)+2)
	args := append(q.args, pageSize, offset)

	rows, err := r.db.QueryContext(ctx, pageQuery, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list products: %w", err)
	}
	defer rows.Close()

	products := []*domain.Product{}
	for rows.Next() {
		product, err := scanProduct(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, product)
	}

	if err = rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating products: %w", err)
	}

	return products, total, nil
}
