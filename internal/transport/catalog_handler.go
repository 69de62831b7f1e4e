package transport

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"optimart/internal/domain"
	"optimart/internal/middleware"
	"optimart/internal/repository"
	"optimart/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CategoryRequest represents a category create/update payload
type CategoryRequest struct {
	Name     domain.LocalizedText `json:"name"`
	Slug     string               `json:"slug" validate:"omitempty,slug"`
	ParentID *string              `json:"parent_id" validate:"omitempty,uuid"`
}

// FacetRequest represents a type or brand create/update payload
type FacetRequest struct {
	Name domain.LocalizedText `json:"name"`
	Slug string               `json:"slug" validate:"omitempty,slug"`
}

// ProductRequest represents a product create/update payload
type ProductRequest struct {
	Name        domain.LocalizedText `json:"name"`
	Slug        string               `json:"slug" validate:"omitempty,slug"`
	SKU         string               `json:"sku"`
	CategoryID  *string              `json:"category_id" validate:"omitempty,uuid"`
	TypeID      *string              `json:"type_id" validate:"omitempty,uuid"`
	BrandID     *string              `json:"brand_id" validate:"omitempty,uuid"`
	Description domain.LocalizedText `json:"description"`
	Features    domain.LocalizedText `json:"features"`
	Image       string               `json:"image"`
	IsPublished bool                 `json:"is_published"`
	IsFeatured  bool                 `json:"is_featured"`
}

// RelatedRequest represents the related-product replacement payload
type RelatedRequest struct {
	RelatedIDs []string `json:"related_ids" validate:"dive,uuid"`
}

// ReorderRequest represents a single-step move within an orderable scope
type ReorderRequest struct {
	Scope     string `json:"scope" validate:"required"`
	ID        string `json:"id" validate:"required,uuid"`
	Direction string `json:"direction" validate:"required,oneof=up down"`
}

// ReorderBatchRequest represents a full rewrite of a scope's ordering
type ReorderBatchRequest struct {
	Scope      string   `json:"scope" validate:"required"`
	OrderedIDs []string `json:"ordered_ids" validate:"required,dive,uuid"`
}

// CatalogHandler handles HTTP requests for catalog operations
type CatalogHandler struct {
	catalogService service.CatalogService
	logger         *zap.Logger
}

// NewCatalogHandler creates a new CatalogHandler
func NewCatalogHandler(catalogService service.CatalogService, logger *zap.Logger) *CatalogHandler {
	return &CatalogHandler{
		catalogService: catalogService,
		logger:         logger,
	}
}

// RegisterRoutes registers all catalog routes. The editor middlewares guard
// every mutating route plus the admin listing.
func (h *CatalogHandler) RegisterRoutes(r chi.Router, editorMiddleware ...func(http.Handler) http.Handler) {
	r.Route("/api/catalog", func(r chi.Router) {
		// Public routes
		r.Get("/products", h.ListProducts)
		r.Get("/products/{slug}", h.GetProductBySlug)
		r.Get("/categories", h.ListCategories)
		r.Get("/types", h.ListTypes)
		r.Get("/brands", h.ListBrands)

		// Editor routes
		r.Group(func(r chi.Router) {
			for _, mw := range editorMiddleware {
				r.Use(mw)
			}

			r.Post("/categories", h.CreateCategory)
			r.Put("/categories/{id}", h.UpdateCategory)
			r.Delete("/categories/{id}", h.DeleteCategory)

			r.Post("/types", h.CreateType)
			r.Put("/types/{id}", h.UpdateType)
			r.Delete("/types/{id}", h.DeleteType)

			r.Post("/brands", h.CreateBrand)
			r.Put("/brands/{id}", h.UpdateBrand)
			r.Delete("/brands/{id}", h.DeleteBrand)

			r.Post("/products", h.CreateProduct)
			r.Put("/products/{id}", h.UpdateProduct)
			r.Delete("/products/{id}", h.DeleteProduct)
			r.Put("/products/{id}/related", h.SetRelatedProducts)

			r.Get("/admin/products", h.ListProductsAdmin)

			r.Post("/reorder", h.Reorder)
			r.Post("/reorder-batch", h.ReorderBatch)
			r.Post("/search-reindex", h.RebuildSearchIndex)
		})
	})
}

// ListProducts handles the public filtered product listing
func (h *CatalogHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	h.listProducts(w, r, false)
}

// ListProductsAdmin handles the editor listing, unpublished rows included
func (h *CatalogHandler) ListProductsAdmin(w http.ResponseWriter, r *http.Request) {
	h.listProducts(w, r, true)
}

func (h *CatalogHandler) listProducts(w http.ResponseWriter, r *http.Request, includeUnpublished bool) {
	filter, err := parseProductFilter(r)
	if err != nil {
		h.logger.Debug("Invalid product filter", zap.Error(err))
		middleware.RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	filter.IncludeUnpublished = includeUnpublished

	page, err := h.catalogService.ListProducts(r.Context(), filter)
	if err != nil {
		h.logger.Error("Failed to list products", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to list products")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, page)
}

// GetProductBySlug handles the public product detail lookup
func (h *CatalogHandler) GetProductBySlug(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")

	detail, err := h.catalogService.GetProductBySlug(r.Context(), slug, true)
	if err != nil {
		h.respondServiceError(w, err, "failed to get product")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, detail)
}

// ListCategories handles the public category tree listing
func (h *CatalogHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.catalogService.ListCategories(r.Context())
	if err != nil {
		h.logger.Error("Failed to list categories", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to list categories")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, categories)
}

// ListTypes handles the public type listing
func (h *CatalogHandler) ListTypes(w http.ResponseWriter, r *http.Request) {
	h.listFacets(w, r, service.FacetKindType)
}

// ListBrands handles the public brand listing
func (h *CatalogHandler) ListBrands(w http.ResponseWriter, r *http.Request) {
	h.listFacets(w, r, service.FacetKindBrand)
}

func (h *CatalogHandler) listFacets(w http.ResponseWriter, r *http.Request, kind service.FacetKind) {
	facets, err := h.catalogService.ListFacets(r.Context(), kind)
	if err != nil {
		h.logger.Error("Failed to list facets", zap.Error(err), zap.String("kind", string(kind)))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to list "+string(kind)+"s")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, facets)
}

// CreateCategory handles category creation
func (h *CatalogHandler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeRequest[CategoryRequest](h, w, r)
	if !ok {
		return
	}

	input, err := categoryInput(req)
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	category, err := h.catalogService.CreateCategory(r.Context(), input)
	if err != nil {
		h.respondServiceError(w, err, "failed to create category")
		return
	}

	h.logger.Info("Category created", zap.String("category_id", category.ID.String()))
	middleware.RespondWithJSON(w, http.StatusCreated, category)
}

// UpdateCategory handles category updates
func (h *CatalogHandler) UpdateCategory(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(h, w, r)
	if !ok {
		return
	}

	req, ok := decodeRequest[CategoryRequest](h, w, r)
	if !ok {
		return
	}

	input, err := categoryInput(req)
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	category, err := h.catalogService.UpdateCategory(r.Context(), id, input)
	if err != nil {
		h.respondServiceError(w, err, "failed to update category")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, category)
}

// DeleteCategory handles category deletion
func (h *CatalogHandler) DeleteCategory(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(h, w, r)
	if !ok {
		return
	}

	if err := h.catalogService.DeleteCategory(r.Context(), id); err != nil {
		h.respondServiceError(w, err, "failed to delete category")
		return
	}

	h.logger.Info("Category deleted", zap.String("category_id", id.String()))
	middleware.RespondWithJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// CreateType handles type creation
func (h *CatalogHandler) CreateType(w http.ResponseWriter, r *http.Request) {
	h.createFacet(w, r, service.FacetKindType)
}

// UpdateType handles type updates
func (h *CatalogHandler) UpdateType(w http.ResponseWriter, r *http.Request) {
	h.updateFacet(w, r, service.FacetKindType)
}

// DeleteType handles type deletion
func (h *CatalogHandler) DeleteType(w http.ResponseWriter, r *http.Request) {
	h.deleteFacet(w, r, service.FacetKindType)
}

// CreateBrand handles brand creation
func (h *CatalogHandler) CreateBrand(w http.ResponseWriter, r *http.Request) {
	h.createFacet(w, r, service.FacetKindBrand)
}

// UpdateBrand handles brand updates
func (h *CatalogHandler) UpdateBrand(w http.ResponseWriter, r *http.Request) {
	h.updateFacet(w, r, service.FacetKindBrand)
}

// DeleteBrand handles brand deletion
func (h *CatalogHandler) DeleteBrand(w http.ResponseWriter, r *http.Request) {
	h.deleteFacet(w, r, service.FacetKindBrand)
}

func (h *CatalogHandler) createFacet(w http.ResponseWriter, r *http.Request, kind service.FacetKind) {
	req, ok := decodeRequest[FacetRequest](h, w, r)
	if !ok {
		return
	}

	facet, err := h.catalogService.CreateFacet(r.Context(), kind, service.FacetInput{
		Name: req.Name,
		Slug: req.Slug,
	})
	if err != nil {
		h.respondServiceError(w, err, "failed to create "+string(kind))
		return
	}

	h.logger.Info("Facet created",
		zap.String("kind", string(kind)),
		zap.String("facet_id", facet.ID.String()),
	)
	middleware.RespondWithJSON(w, http.StatusCreated, facet)
}

func (h *CatalogHandler) updateFacet(w http.ResponseWriter, r *http.Request, kind service.FacetKind) {
	id, ok := parseIDParam(h, w, r)
	if !ok {
		return
	}

	req, ok := decodeRequest[FacetRequest](h, w, r)
	if !ok {
		return
	}

	facet, err := h.catalogService.UpdateFacet(r.Context(), kind, id, service.FacetInput{
		Name: req.Name,
		Slug: req.Slug,
	})
	if err != nil {
		h.respondServiceError(w, err, "failed to update "+string(kind))
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, facet)
}

func (h *CatalogHandler) deleteFacet(w http.ResponseWriter, r *http.Request, kind service.FacetKind) {
	id, ok := parseIDParam(h, w, r)
	if !ok {
		return
	}

	if err := h.catalogService.DeleteFacet(r.Context(), kind, id); err != nil {
		h.respondServiceError(w, err, "failed to delete "+string(kind))
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// CreateProduct handles product creation
func (h *CatalogHandler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeRequest[ProductRequest](h, w, r)
	if !ok {
		return
	}

	input, err := productInput(req)
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	detail, err := h.catalogService.CreateProduct(r.Context(), input)
	if err != nil {
		h.respondServiceError(w, err, "failed to create product")
		return
	}

	h.logger.Info("Product created",
		zap.String("product_id", detail.ID.String()),
		zap.String("slug", detail.Slug),
	)
	middleware.RespondWithJSON(w, http.StatusCreated, detail)
}

// UpdateProduct handles product updates
func (h *CatalogHandler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(h, w, r)
	if !ok {
		return
	}

	req, ok := decodeRequest[ProductRequest](h, w, r)
	if !ok {
		return
	}

	input, err := productInput(req)
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	detail, err := h.catalogService.UpdateProduct(r.Context(), id, input)
	if err != nil {
		h.respondServiceError(w, err, "failed to update product")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, detail)
}

// DeleteProduct handles product deletion
func (h *CatalogHandler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(h, w, r)
	if !ok {
		return
	}

	if err := h.catalogService.DeleteProduct(r.Context(), id); err != nil {
		h.respondServiceError(w, err, "failed to delete product")
		return
	}

	h.logger.Info("Product deleted", zap.String("product_id", id.String()))
	middleware.RespondWithJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// SetRelatedProducts handles replacement of a product's related-id set
func (h *CatalogHandler) SetRelatedProducts(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(h, w, r)
	if !ok {
		return
	}

	req, ok := decodeRequest[RelatedRequest](h, w, r)
	if !ok {
		return
	}

	relatedIDs := make([]uuid.UUID, 0, len(req.RelatedIDs))
	for _, raw := range req.RelatedIDs {
		relatedID, err := uuid.Parse(raw)
		if err != nil {
			middleware.RespondWithError(w, http.StatusBadRequest, "invalid related product id")
			return
		}
		relatedIDs = append(relatedIDs, relatedID)
	}

	detail, err := h.catalogService.SetRelatedProducts(r.Context(), id, relatedIDs)
	if err != nil {
		h.respondServiceError(w, err, "failed to set related products")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, detail)
}

// Reorder handles a single-step move within an orderable scope
func (h *CatalogHandler) Reorder(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeRequest[ReorderRequest](h, w, r)
	if !ok {
		return
	}

	id, err := uuid.Parse(req.ID)
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid id")
		return
	}

	err = h.catalogService.MoveStep(r.Context(),
		repository.OrderScope(req.Scope), id, repository.Direction(req.Direction))
	if err != nil {
		h.respondServiceError(w, err, "failed to reorder")
		return
	}

	h.logger.Info("Order step applied",
		zap.String("scope", req.Scope),
		zap.String("id", req.ID),
		zap.String("direction", req.Direction),
	)
	middleware.RespondWithJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// ReorderBatch handles a full rewrite of a scope's ordering
func (h *CatalogHandler) ReorderBatch(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeRequest[ReorderBatchRequest](h, w, r)
	if !ok {
		return
	}

	orderedIDs := make([]uuid.UUID, 0, len(req.OrderedIDs))
	for _, raw := range req.OrderedIDs {
		id, err := uuid.Parse(raw)
		if err != nil {
			middleware.RespondWithError(w, http.StatusBadRequest, "invalid id in ordered_ids")
			return
		}
		orderedIDs = append(orderedIDs, id)
	}

	err := h.catalogService.ReorderAll(r.Context(), repository.OrderScope(req.Scope), orderedIDs)
	if err != nil {
		h.respondServiceError(w, err, "failed to reorder batch")
		return
	}

	h.logger.Info("Order batch applied",
		zap.String("scope", req.Scope),
		zap.Int("count", len(orderedIDs)),
	)
	middleware.RespondWithJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// RebuildSearchIndex handles a full rebuild of the search projection
func (h *CatalogHandler) RebuildSearchIndex(w http.ResponseWriter, r *http.Request) {
	if err := h.catalogService.RebuildSearchIndex(r.Context()); err != nil {
		h.logger.Error("Failed to rebuild search index", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to rebuild search index")
		return
	}

	h.logger.Info("Search index rebuilt")
	middleware.RespondWithJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// respondServiceError maps service and repository sentinels onto HTTP statuses.
func (h *CatalogHandler) respondServiceError(w http.ResponseWriter, err error, action string) {
	switch {
	case errors.Is(err, repository.ErrSlugTaken):
		middleware.RespondWithError(w, http.StatusConflict, "slug is already in use")
	case errors.Is(err, repository.ErrCategoryNotFound),
		errors.Is(err, repository.ErrFacetNotFound),
		errors.Is(err, repository.ErrProductNotFound),
		errors.Is(err, repository.ErrOrderTargetNotFound):
		middleware.RespondWithError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrParentDepth),
		errors.Is(err, service.ErrParentNotFound),
		errors.Is(err, service.ErrSelfParent),
		errors.Is(err, service.ErrEmptySlug),
		errors.Is(err, repository.ErrScopeNotOrderable),
		errors.Is(err, repository.ErrInvalidDirection):
		middleware.RespondWithError(w, http.StatusBadRequest, err.Error())
	default:
		h.logger.Error(action, zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, action)
	}
}

// decodeRequest decodes and validates a JSON body, writing the error response
// itself when the payload is unusable.
func decodeRequest[T any](h *CatalogHandler, w http.ResponseWriter, r *http.Request) (T, bool) {
	var req T
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		h.logger.Debug("Request validation failed", zap.Error(err))

		if validationErrors := middleware.FormatValidationErrors(err); len(validationErrors) > 0 {
			middleware.RespondWithValidationErrors(w, validationErrors)
			return req, false
		}

		middleware.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return req, false
	}
	return req, true
}

// parseIDParam parses the {id} URL parameter, responding with 400 on garbage.
func parseIDParam(h *CatalogHandler, w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid id")
		return uuid.Nil, false
	}
	return id, true
}

func categoryInput(req CategoryRequest) (service.CategoryInput, error) {
	input := service.CategoryInput{
		Name: req.Name,
		Slug: req.Slug,
	}

	parentID, err := parseOptionalUUID(req.ParentID, "parent_id")
	if err != nil {
		return input, err
	}
	input.ParentID = parentID
	return input, nil
}

func productInput(req ProductRequest) (service.ProductInput, error) {
	input := service.ProductInput{
		Name:        req.Name,
		Slug:        req.Slug,
		SKU:         req.SKU,
		Description: req.Description,
		Features:    req.Features,
		Image:       req.Image,
		IsPublished: req.IsPublished,
		IsFeatured:  req.IsFeatured,
	}

	var err error
	if input.CategoryID, err = parseOptionalUUID(req.CategoryID, "category_id"); err != nil {
		return input, err
	}
	if input.TypeID, err = parseOptionalUUID(req.TypeID, "type_id"); err != nil {
		return input, err
	}
	if input.BrandID, err = parseOptionalUUID(req.BrandID, "brand_id"); err != nil {
		return input, err
	}
	return input, nil
}

func parseOptionalUUID(raw *string, field string) (*uuid.UUID, error) {
	if raw == nil || strings.TrimSpace(*raw) == "" {
		return nil, nil
	}
	id, err := uuid.Parse(*raw)
	if err != nil {
		return nil, errors.New("invalid " + field)
	}
	return &id, nil
}

// parseProductFilter reads the listing query parameters. Unknown sort or
// locale values fall back to the defaults; malformed uuids are rejected.
func parseProductFilter(r *http.Request) (repository.ProductFilter, error) {
	q := r.URL.Query()

	term := q.Get("q")
	if term == "" {
		// search is accepted as an alias for q.
		term = q.Get("search")
	}

	filter := repository.ProductFilter{
		Search: strings.TrimSpace(term),
		Locale: "en",
	}

	var err error
	if filter.CategoryID, err = parseOptionalUUIDParam(q.Get("category"), "category"); err != nil {
		return filter, err
	}
	if filter.TypeID, err = parseOptionalUUIDParam(q.Get("type"), "type"); err != nil {
		return filter, err
	}
	if filter.BrandID, err = parseOptionalUUIDParam(q.Get("brand"), "brand"); err != nil {
		return filter, err
	}

	if raw := q.Get("page"); raw != "" {
		if filter.Page, err = strconv.Atoi(raw); err != nil {
			return filter, errors.New("invalid page")
		}
	}
	if raw := q.Get("page_size"); raw != "" {
		if filter.PageSize, err = strconv.Atoi(raw); err != nil {
			return filter, errors.New("invalid page_size")
		}
	}

	if q.Get("sort") == string(repository.SortAlphabetical) {
		filter.Sort = repository.SortAlphabetical
	} else {
		filter.Sort = repository.SortNewest
	}
	if q.Get("locale") == "ko" {
		filter.Locale = "ko"
	}

	return filter, nil
}

func parseOptionalUUIDParam(raw, field string) (*uuid.UUID, error) {
	if raw == "" {
		return nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, errors.New("invalid " + field)
	}
	return &id, nil
}
