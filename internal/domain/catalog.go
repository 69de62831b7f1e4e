package domain

import (
	"time"

	"github.com/google/uuid"
)

// LocalizedText carries the two parallel language variants of a text field.
// The locale set is closed, so this is a fixed struct rather than a map.
type LocalizedText struct {
	EN string `json:"en"`
	KO string `json:"ko"`
}

// Category is a node in the taxonomy tree (depth at most 3:
// root -> child -> grandchild). ParentID is a lookup relation, not ownership:
// deleting a parent leaves children in place as orphans.
type Category struct {
	ID        uuid.UUID     `json:"id" db:"id"`
	Name      LocalizedText `json:"name"`
	Slug      string        `json:"slug" db:"slug"`
	ParentID  *uuid.UUID    `json:"parent_id,omitempty" db:"parent_id"`
	SortOrder int           `json:"sort_order" db:"sort_order"`
	CreatedAt time.Time     `json:"created_at" db:"created_at"`
}

// Facet is a flat classification entity. Types and brands share this shape;
// each table keeps its own independent sort_order sequence.
type Facet struct {
	ID        uuid.UUID     `json:"id" db:"id"`
	Name      LocalizedText `json:"name"`
	Slug      string        `json:"slug" db:"slug"`
	SortOrder int           `json:"sort_order" db:"sort_order"`
	CreatedAt time.Time     `json:"created_at" db:"created_at"`
}

// Product is a catalog record. FeaturedOrder is a separate ordering dimension
// from the taxonomy sort_order columns and only meaningful while IsFeatured.
type Product struct {
	ID            uuid.UUID     `json:"id" db:"id"`
	Name          LocalizedText `json:"name"`
	Slug          string        `json:"slug" db:"slug"`
	SKU           string        `json:"sku" db:"sku"`
	CategoryID    *uuid.UUID    `json:"category_id,omitempty" db:"category_id"`
	TypeID        *uuid.UUID    `json:"type_id,omitempty" db:"type_id"`
	BrandID       *uuid.UUID    `json:"brand_id,omitempty" db:"brand_id"`
	Description   LocalizedText `json:"description"`
	Features      LocalizedText `json:"features"`
	Image         string        `json:"image" db:"image"`
	IsPublished   bool          `json:"is_published" db:"is_published"`
	IsFeatured    bool          `json:"is_featured" db:"is_featured"`
	FeaturedOrder int           `json:"featured_order" db:"featured_order"`
	CreatedAt     time.Time     `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at" db:"updated_at"`
}

// EntityRef is the joined id/name/slug of a category or facet embedded in a
// product payload, so write responses never require a follow-up read.
type EntityRef struct {
	ID   uuid.UUID     `json:"id"`
	Name LocalizedText `json:"name"`
	Slug string        `json:"slug"`
}

// ProductDetail is a product with its classification references resolved and
// its related-product ids attached.
type ProductDetail struct {
	Product
	Category   *EntityRef  `json:"category,omitempty"`
	Type       *EntityRef  `json:"type,omitempty"`
	Brand      *EntityRef  `json:"brand,omitempty"`
	RelatedIDs []uuid.UUID `json:"related_ids"`
}
