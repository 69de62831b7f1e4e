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
	ErrProductNotFound = errors.New("product not found")
)

// searchDocumentExpr derives the search document from a products row. It is
// the single definition used by both the per-record reindex and the full
// rebuild, so the two can never drift apart.
const searchDocumentExpr = `
	setweight(to_tsvector('simple', name_en || ' ' || name_ko), 'A') ||
	setweight(to_tsvector('simple', sku), 'A') ||
	setweight(to_tsvector('simple', description_en || ' ' || description_ko), 'B')`

const productColumns = `
	p.id, p.name_en, p.name_ko, p.slug, p.sku,
	p.category_id, p.type_id, p.brand_id,
	p.description_en, p.description_ko, p.features_en, p.features_ko,
	p.image, p.is_published, p.is_featured, p.featured_order,
	p.created_at, p.updated_at`

// ProductRepository defines the interface for product data access. Every
// mutation keeps the derived search row in step within the same transaction.
type ProductRepository interface {
	Create(ctx context.Context, product *domain.Product) error
	Update(ctx context.Context, product *domain.Product) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Product, error)
	FindBySlug(ctx context.Context, slug string, publishedOnly bool) (*domain.Product, error)
	Detail(ctx context.Context, id uuid.UUID) (*domain.ProductDetail, error)
	Related(ctx context.Context, id uuid.UUID) ([]uuid.UUID, error)
	SetRelated(ctx context.Context, id uuid.UUID, relatedIDs []uuid.UUID) error
	Filter(ctx context.Context, f ProductFilter) ([]*domain.Product, int, error)
	RebuildSearchIndex(ctx context.Context) error
}

type productRepository struct {
	db *sql.DB
}

// NewProductRepository creates a new instance of ProductRepository
func NewProductRepository(db *sql.DB) ProductRepository {
	return &productRepository{db: db}
}

// Create inserts a new product and its search document in one transaction.
func (r *productRepository) Create(ctx context.Context, product *domain.Product) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO products (
			id, name_en, name_ko, slug, sku,
			category_id, type_id, brand_id,
			description_en, description_ko, features_en, features_ko,
			image, is_published, is_featured, featured_order,
			created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
	`

	_, err = tx.ExecContext(
		ctx,
		query,
		product.ID,
		product.Name.EN,
		product.Name.KO,
		product.Slug,
		product.SKU,
		product.CategoryID,
		product.TypeID,
		product.BrandID,
		product.Description.EN,
		product.Description.KO,
		product.Features.EN,
		product.Features.KO,
		product.Image,
		product.IsPublished,
		product.IsFeatured,
		product.FeaturedOrder,
		product.CreatedAt,
		product.UpdatedAt,
	)

	if err != nil {
		if isUniqueViolation(err) {
			return ErrSlugTaken
		}
		return fmt.Errorf("failed to create product: %w", err)
	}

	if err := reindexProduct(ctx, tx, product.ID); err != nil {
		return err
	}

	return tx.Commit()
}

// Update rewrites a product and its search document in one transaction.
func (r *productRepository) Update(ctx context.Context, product *domain.Product) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		UPDATE products
		SET name_en = $2, name_ko = $3, slug = $4, sku = $5,
		    category_id = $6, type_id = $7, brand_id = $8,
		    description_en = $9, description_ko = $10, features_en = $11, features_ko = $12,
		    image = $13, is_published = $14, is_featured = $15, featured_order = $16,
		    updated_at = $17
		WHERE id = $1
	`

	result, err := tx.ExecContext(
		ctx,
		query,
		product.ID,
		product.Name.EN,
		product.Name.KO,
		product.Slug,
		product.SKU,
		product.CategoryID,
		product.TypeID,
		product.BrandID,
		product.Description.EN,
		product.Description.KO,
		product.Features.EN,
		product.Features.KO,
		product.Image,
		product.IsPublished,
		product.IsFeatured,
		product.FeaturedOrder,
		product.UpdatedAt,
	)

	if err != nil {
		if isUniqueViolation(err) {
			return ErrSlugTaken
		}
		return fmt.Errorf("failed to update product: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return ErrProductNotFound
	}

	if err := reindexProduct(ctx, tx, product.ID); err != nil {
		return err
	}

	return tx.Commit()
}

// Delete removes a product. The search document and related-product links go
// with it via foreign key cascade in the same statement.
func (r *productRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete product: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return ErrProductNotFound
	}

	return nil
}

// FindByID retrieves a product by ID using parameterized queries
func (r *productRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products p WHERE p.id = $1`

	product, err := scanProduct(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to find product by ID: %w", err)
	}

	return product, nil
}

// FindBySlug retrieves a product by its unique slug. publishedOnly applies
// the public visibility filter; administrative callers pass false.
func (r *productRepository) FindBySlug(ctx context.Context, slug string, publishedOnly bool) (*domain.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products p WHERE p.slug = $1`
	if publishedOnly {
		query += ` AND p.is_published = TRUE`
	}

	product, err := scanProduct(r.db.QueryRowContext(ctx, query, slug))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to find product by slug: %w", err)
	}

	return product, nil
}

// Detail retrieves a product with its classification references resolved and
// related-product ids attached.
func (r *productRepository) Detail(ctx context.Context, id uuid.UUID) (*domain.ProductDetail, error) {
	query := `
		SELECT ` + productColumns + `,
			c.name_en, c.name_ko, c.slug,
			t.name_en, t.name_ko, t.slug,
			b.name_en, b.name_ko, b.slug
		FROM products p
		LEFT JOIN categories c ON c.id = p.category_id
		LEFT JOIN types t ON t.id = p.type_id
		LEFT JOIN brands b ON b.id = p.brand_id
		WHERE p.id = $1
	`

	detail := &domain.ProductDetail{}
	var catID, typeID, brandID uuid.NullUUID
	var catEN, catKO, catSlug sql.NullString
	var typeEN, typeKO, typeSlug sql.NullString
	var brandEN, brandKO, brandSlug sql.NullString

	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&detail.ID,
		&detail.Name.EN,
		&detail.Name.KO,
		&detail.Slug,
		&detail.SKU,
		&catID,
		&typeID,
		&brandID,
		&detail.Description.EN,
		&detail.Description.KO,
		&detail.Features.EN,
		&detail.Features.KO,
		&detail.Image,
		&detail.IsPublished,
		&detail.IsFeatured,
		&detail.FeaturedOrder,
		&detail.CreatedAt,
		&detail.UpdatedAt,
		&catEN, &catKO, &catSlug,
		&typeEN, &typeKO, &typeSlug,
		&brandEN, &brandKO, &brandSlug,
	)

	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to load product detail: %w", err)
	}

	if catID.Valid {
		detail.CategoryID = &catID.UUID
		detail.Category = &domain.EntityRef{
			ID:   catID.UUID,
			Name: domain.LocalizedText{EN: catEN.String, KO: catKO.String},
			Slug: catSlug.String,
		}
	}
	if typeID.Valid {
		detail.TypeID = &typeID.UUID
		detail.Type = &domain.EntityRef{
			ID:   typeID.UUID,
			Name: domain.LocalizedText{EN: typeEN.String, KO: typeKO.String},
			Slug: typeSlug.String,
		}
	}
	if brandID.Valid {
		detail.BrandID = &brandID.UUID
		detail.Brand = &domain.EntityRef{
			ID:   brandID.UUID,
			Name: domain.LocalizedText{EN: brandEN.String, KO: brandKO.String},
			Slug: brandSlug.String,
		}
	}

	related, err := r.Related(ctx, id)
	if err != nil {
		return nil, err
	}
	detail.RelatedIDs = related

	return detail, nil
}

// Related lists the related-product ids for a product.
func (r *productRepository) Related(ctx context.Context, id uuid.UUID) ([]uuid.UUID, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT related_id FROM related_products WHERE product_id = $1 ORDER BY related_id`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to list related products: %w", err)
	}
	defer rows.Close()

	ids := []uuid.UUID{}
	for rows.Next() {
		var relatedID uuid.UUID
		if err := rows.Scan(&relatedID); err != nil {
			return nil, fmt.Errorf("failed to scan related product: %w", err)
		}
		ids = append(ids, relatedID)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating related products: %w", err)
	}

	return ids, nil
}

// SetRelated replaces the related-product set for a product in one
// transaction. Self-references are dropped silently.
func (r *productRepository) SetRelated(ctx context.Context, id uuid.UUID, relatedIDs []uuid.UUID) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM related_products WHERE product_id = $1`, id); err != nil {
		return fmt.Errorf("failed to clear related products: %w", err)
	}

	for _, relatedID := range relatedIDs {
		if relatedID == id {
			continue
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO related_products (product_id, related_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
			id, relatedID,
		); err != nil {
			return fmt.Errorf("failed to insert related product: %w", err)
		}
	}

	return tx.Commit()
}

// RebuildSearchIndex regenerates the whole search table from the products
// table in one transaction. The live index is a cache; this is the disaster
// recovery path and must produce exactly what the write path maintains.
func (r *productRepository) RebuildSearchIndex(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM product_search`); err != nil {
		return fmt.Errorf("failed to clear search index: %w", err)
	}

	query := `
		INSERT INTO product_search (product_id, document)
		SELECT id, ` + searchDocumentExpr + `
		FROM products
	`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to rebuild search index: %w", err)
	}

	return tx.Commit()
}

// reindexProduct upserts the search document for one product inside the
// caller's transaction. Every mutation path goes through here.
func reindexProduct(ctx context.Context, tx *sql.Tx, id uuid.UUID) error {
	query := `
		INSERT INTO product_search (product_id, document)
		SELECT id, ` + searchDocumentExpr + `
		FROM products
		WHERE id = $1
		ON CONFLICT (product_id) DO UPDATE SET document = EXCLUDED.document
	`

	if _, err := tx.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("failed to reindex product: %w", err)
	}
	return nil
}

func scanProduct(row rowScanner) (*domain.Product, error) {
	product := &domain.Product{}
	var categoryID, typeID, brandID uuid.NullUUID

	err := row.Scan(
		&product.ID,
		&product.Name.EN,
		&product.Name.KO,
		&product.Slug,
		&product.SKU,
		&categoryID,
		&typeID,
		&brandID,
		&product.Description.EN,
		&product.Description.KO,
		&product.Features.EN,
		&product.Features.KO,
		&product.Image,
		&product.IsPublished,
		&product.IsFeatured,
		&product.FeaturedOrder,
		&product.CreatedAt,
		&product.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if categoryID.Valid {
		product.CategoryID = &categoryID.UUID
	}
	if typeID.Valid {
		product.TypeID = &typeID.UUID
	}
	if brandID.Valid {
		product.BrandID = &brandID.UUID
	}
	return product, nil
}
