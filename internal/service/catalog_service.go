package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"optimart/internal/domain"
	"optimart/internal/repository"
	"optimart/internal/slug"

	"github.com/google/uuid"
)

// maxCategoryDepth is the taxonomy invariant: root -> child -> grandchild.
const maxCategoryDepth = 3

var (
	ErrParentDepth    = errors.New("parent category is already at maximum depth")
	ErrParentNotFound = errors.New("requested parent category does not exist")
	ErrSelfParent     = errors.New("category cannot be its own ancestor")
	ErrEmptySlug      = errors.New("name does not produce a usable slug")
)

// FacetKind selects which flat facet a request addresses.
type FacetKind string

const (
	FacetKindType  FacetKind = "type"
	FacetKindBrand FacetKind = "brand"
)

// CategoryInput carries the editable fields of a category.
type CategoryInput struct {
	Name     domain.LocalizedText
	Slug     string // optional override; derived from the name when empty
	ParentID *uuid.UUID
}

// FacetInput carries the editable fields of a type or brand.
type FacetInput struct {
	Name domain.LocalizedText
	Slug string
}

// ProductInput carries the editable fields of a product. FeaturedOrder is
// deliberately absent: it is owned by the ordering protocol.
type ProductInput struct {
	Name        domain.LocalizedText
	Slug        string
	SKU         string
	CategoryID  *uuid.UUID
	TypeID      *uuid.UUID
	BrandID     *uuid.UUID
	Description domain.LocalizedText
	Features    domain.LocalizedText
	Image       string
	IsPublished bool
	IsFeatured  bool
}

// ProductPage is one page of a filtered listing plus its count metadata.
type ProductPage struct {
	Items      []*domain.Product `json:"items"`
	Total      int               `json:"total"`
	Page       int               `json:"page"`
	TotalPages int               `json:"total_pages"`
}

// CatalogService defines the catalog business logic.
type CatalogService interface {
	CreateCategory(ctx context.Context, input CategoryInput) (*domain.Category, error)
	UpdateCategory(ctx context.Context, id uuid.UUID, input CategoryInput) (*domain.Category, error)
	DeleteCategory(ctx context.Context, id uuid.UUID) error
	ListCategories(ctx context.Context) ([]*domain.Category, error)

	CreateFacet(ctx context.Context, kind FacetKind, input FacetInput) (*domain.Facet, error)
	UpdateFacet(ctx context.Context, kind FacetKind, id uuid.UUID, input FacetInput) (*domain.Facet, error)
	DeleteFacet(ctx context.Context, kind FacetKind, id uuid.UUID) error
	ListFacets(ctx context.Context, kind FacetKind) ([]*domain.Facet, error)

	CreateProduct(ctx context.Context, input ProductInput) (*domain.ProductDetail, error)
	UpdateProduct(ctx context.Context, id uuid.UUID, input ProductInput) (*domain.ProductDetail, error)
	DeleteProduct(ctx context.Context, id uuid.UUID) error
	GetProduct(ctx context.Context, id uuid.UUID) (*domain.ProductDetail, error)
	GetProductBySlug(ctx context.Context, slugValue string, publishedOnly bool) (*domain.ProductDetail, error)
	SetRelatedProducts(ctx context.Context, id uuid.UUID, relatedIDs []uuid.UUID) (*domain.ProductDetail, error)
	ListProducts(ctx context.Context, filter repository.ProductFilter) (*ProductPage, error)
	RebuildSearchIndex(ctx context.Context) error

	MoveStep(ctx context.Context, scope repository.OrderScope, id uuid.UUID, direction repository.Direction) error
	ReorderAll(ctx context.Context, scope repository.OrderScope, orderedIDs []uuid.UUID) error
}

type catalogService struct {
	categories repository.CategoryRepository
	types      repository.FacetRepository
	brands     repository.FacetRepository
	products   repository.ProductRepository
	ordering   repository.OrderingRepository
}

// NewCatalogService creates a new instance of CatalogService
func NewCatalogService(
	categories repository.CategoryRepository,
	types repository.FacetRepository,
	brands repository.FacetRepository,
	products repository.ProductRepository,
	ordering repository.OrderingRepository,
) CatalogService {
	return &catalogService{
		categories: categories,
		types:      types,
		brands:     brands,
		products:   products,
		ordering:   ordering,
	}
}

// CreateCategory validates the requested parent against the depth invariant
// and inserts the category at the end of its sibling group.
func (s *catalogService) CreateCategory(ctx context.Context, input CategoryInput) (*domain.Category, error) {
	if input.ParentID != nil {
		if err := s.validateParent(ctx, uuid.Nil, *input.ParentID); err != nil {
			return nil, err
		}
	}

	slugValue, err := resolveSlug(input.Slug, input.Name)
	if err != nil {
		return nil, err
	}

	category := &domain.Category{
		ID:        uuid.New(),
		Name:      input.Name,
		Slug:      slugValue,
		ParentID:  input.ParentID,
		CreatedAt: time.Now(),
	}

	if err := s.categories.Create(ctx, category); err != nil {
		return nil, err
	}
	return category, nil
}

// UpdateCategory rewrites a category's editable fields, revalidating the
// parent link whenever one is requested.
func (s *catalogService) UpdateCategory(ctx context.Context, id uuid.UUID, input CategoryInput) (*domain.Category, error) {
	existing, err := s.categories.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if input.ParentID != nil {
		if err := s.validateParent(ctx, id, *input.ParentID); err != nil {
			return nil, err
		}
	}

	slugValue, err := resolveSlug(input.Slug, input.Name)
	if err != nil {
		return nil, err
	}

	existing.Name = input.Name
	existing.Slug = slugValue
	existing.ParentID = input.ParentID

	if err := s.categories.Update(ctx, existing); err != nil {
		return nil, err
	}
	return existing, nil
}

func (s *catalogService) DeleteCategory(ctx context.Context, id uuid.UUID) error {
	return s.categories.Delete(ctx, id)
}

// ListCategories returns the depth-first flattened tree with orphans last.
func (s *catalogService) ListCategories(ctx context.Context) ([]*domain.Category, error) {
	categories, err := s.categories.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	return FlattenTree(categories), nil
}

func (s *catalogService) CreateFacet(ctx context.Context, kind FacetKind, input FacetInput) (*domain.Facet, error) {
	slugValue, err := resolveSlug(input.Slug, input.Name)
	if err != nil {
		return nil, err
	}

	facet := &domain.Facet{
		ID:        uuid.New(),
		Name:      input.Name,
		Slug:      slugValue,
		CreatedAt: time.Now(),
	}

	if err := s.facetRepo(kind).Create(ctx, facet); err != nil {
		return nil, err
	}
	return facet, nil
}

func (s *catalogService) UpdateFacet(ctx context.Context, kind FacetKind, id uuid.UUID, input FacetInput) (*domain.Facet, error) {
	repo := s.facetRepo(kind)

	existing, err := repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	slugValue, err := resolveSlug(input.Slug, input.Name)
	if err != nil {
		return nil, err
	}

	existing.Name = input.Name
	existing.Slug = slugValue

	if err := repo.Update(ctx, existing); err != nil {
		return nil, err
	}
	return existing, nil
}

func (s *catalogService) DeleteFacet(ctx context.Context, kind FacetKind, id uuid.UUID) error {
	return s.facetRepo(kind).Delete(ctx, id)
}

func (s *catalogService) ListFacets(ctx context.Context, kind FacetKind) ([]*domain.Facet, error) {
	return s.facetRepo(kind).List(ctx)
}

// CreateProduct inserts a product; the search document is written in the same
// store transaction by the repository.
func (s *catalogService) CreateProduct(ctx context.Context, input ProductInput) (*domain.ProductDetail, error) {
	slugValue, err := resolveSlug(input.Slug, input.Name)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	product := &domain.Product{
		ID:          uuid.New(),
		Name:        input.Name,
		Slug:        slugValue,
		SKU:         strings.TrimSpace(input.SKU),
		CategoryID:  input.CategoryID,
		TypeID:      input.TypeID,
		BrandID:     input.BrandID,
		Description: input.Description,
		Features:    input.Features,
		Image:       input.Image,
		IsPublished: input.IsPublished,
		IsFeatured:  input.IsFeatured,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.products.Create(ctx, product); err != nil {
		return nil, err
	}
	return s.products.Detail(ctx, product.ID)
}

// UpdateProduct rewrites a product's editable fields. featured_order and
// created_at are preserved from the stored row.
func (s *catalogService) UpdateProduct(ctx context.Context, id uuid.UUID, input ProductInput) (*domain.ProductDetail, error) {
	existing, err := s.products.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	slugValue, err := resolveSlug(input.Slug, input.Name)
	if err != nil {
		return nil, err
	}

	existing.Name = input.Name
	existing.Slug = slugValue
	existing.SKU = strings.TrimSpace(input.SKU)
	existing.CategoryID = input.CategoryID
	existing.TypeID = input.TypeID
	existing.BrandID = input.BrandID
	existing.Description = input.Description
	existing.Features = input.Features
	existing.Image = input.Image
	existing.IsPublished = input.IsPublished
	existing.IsFeatured = input.IsFeatured
	existing.UpdatedAt = time.Now()

	if err := s.products.Update(ctx, existing); err != nil {
		return nil, err
	}
	return s.products.Detail(ctx, id)
}

func (s *catalogService) DeleteProduct(ctx context.Context, id uuid.UUID) error {
	return s.products.Delete(ctx, id)
}

func (s *catalogService) GetProduct(ctx context.Context, id uuid.UUID) (*domain.ProductDetail, error) {
	return s.products.Detail(ctx, id)
}

func (s *catalogService) GetProductBySlug(ctx context.Context, slugValue string, publishedOnly bool) (*domain.ProductDetail, error) {
	product, err := s.products.FindBySlug(ctx, slugValue, publishedOnly)
	if err != nil {
		return nil, err
	}
	return s.products.Detail(ctx, product.ID)
}

func (s *catalogService) SetRelatedProducts(ctx context.Context, id uuid.UUID, relatedIDs []uuid.UUID) (*domain.ProductDetail, error) {
	if _, err := s.products.FindByID(ctx, id); err != nil {
		return nil, err
	}
	if err := s.products.SetRelated(ctx, id, relatedIDs); err != nil {
		return nil, err
	}
	return s.products.Detail(ctx, id)
}

// ListProducts runs the filter and wraps the result in its page envelope.
func (s *catalogService) ListProducts(ctx context.Context, filter repository.ProductFilter) (*ProductPage, error) {
	items, total, err := s.products.Filter(ctx, filter)
	if err != nil {
		return nil, err
	}

	page, pageSize := filter.Pagination()
	totalPages := (total + pageSize - 1) / pageSize

	return &ProductPage{
		Items:      items,
		Total:      total,
		Page:       page,
		TotalPages: totalPages,
	}, nil
}

func (s *catalogService) RebuildSearchIndex(ctx context.Context) error {
	return s.products.RebuildSearchIndex(ctx)
}

func (s *catalogService) MoveStep(ctx context.Context, scope repository.OrderScope, id uuid.UUID, direction repository.Direction) error {
	return s.ordering.MoveStep(ctx, scope, id, direction)
}

func (s *catalogService) ReorderAll(ctx context.Context, scope repository.OrderScope, orderedIDs []uuid.UUID) error {
	return s.ordering.ReorderAll(ctx, scope, orderedIDs)
}

func (s *catalogService) facetRepo(kind FacetKind) repository.FacetRepository {
	if kind == FacetKindBrand {
		return s.brands
	}
	return s.types
}

// validateParent checks that attaching a node under parentID keeps the tree
// within maxCategoryDepth and creates no cycle. id is uuid.Nil on create. On
// reparent the whole subtree below id moves with it, so the node's own depth
// is not enough: its deepest descendant must stay within the limit too.
func (s *catalogService) validateParent(ctx context.Context, id uuid.UUID, parentID uuid.UUID) error {
	if parentID == id {
		return ErrSelfParent
	}

	parent, err := s.categories.FindByID(ctx, parentID)
	if err != nil {
		if errors.Is(err, repository.ErrCategoryNotFound) {
			return ErrParentNotFound
		}
		return fmt.Errorf("failed to load parent category: %w", err)
	}

	// Walk up from the parent. A missing ancestor ends the chain (orphans act
	// as roots); meeting id again would close a cycle.
	depth := 1
	current := parent.ParentID
	for current != nil && depth <= maxCategoryDepth {
		if *current == id {
			return ErrSelfParent
		}
		ancestor, err := s.categories.FindByID(ctx, *current)
		if err != nil {
			if errors.Is(err, repository.ErrCategoryNotFound) {
				break
			}
			return fmt.Errorf("failed to load ancestor category: %w", err)
		}
		depth++
		current = ancestor.ParentID
	}

	height := 1
	if id != uuid.Nil {
		if height, err = s.subtreeHeight(ctx, id); err != nil {
			return err
		}
	}

	if depth+height > maxCategoryDepth {
		return ErrParentDepth
	}
	return nil
}

// subtreeHeight returns the length of the longest parent-child chain starting
// at id, counting id itself (a leaf has height 1).
func (s *catalogService) subtreeHeight(ctx context.Context, id uuid.UUID) (int, error) {
	categories, err := s.categories.ListAll(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to load categories: %w", err)
	}

	children := make(map[uuid.UUID][]uuid.UUID)
	for _, category := range categories {
		if category.ParentID != nil {
			children[*category.ParentID] = append(children[*category.ParentID], category.ID)
		}
	}

	var walk func(node uuid.UUID) int
	walk = func(node uuid.UUID) int {
		height := 1
		for _, child := range children[node] {
			if h := walk(child) + 1; h > height {
				height = h
			}
		}
		return height
	}
	return walk(id), nil
}

// resolveSlug returns the caller-supplied slug verbatim when present,
// otherwise derives one deterministically from the canonical name (English
// first, Korean as fallback).
func resolveSlug(override string, name domain.LocalizedText) (string, error) {
	if trimmed := strings.TrimSpace(override); trimmed != "" {
		return trimmed, nil
	}

	canonical := name.EN
	if strings.TrimSpace(canonical) == "" {
		canonical = name.KO
	}

	derived := slug.Make(canonical)
	if derived == "" {
		return "", ErrEmptySlug
	}
	return derived, nil
}
