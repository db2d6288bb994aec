package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/table-order/api/internal/domain"
	"github.com/table-order/api/internal/platform/httpx"
	"github.com/table-order/api/internal/services"
)

// MenuHandlers exposes the menu catalog to ordering clients.
type MenuHandlers struct {
	catalog services.CatalogService
}

// NewMenuHandlers constructs menu handlers.
func NewMenuHandlers(catalog services.CatalogService) *MenuHandlers {
	return &MenuHandlers{catalog: catalog}
}

// Routes wires the menu endpoints onto the provided router.
func (h *MenuHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Get("/categories", h.listCategories)
	r.Get("/categories/{categoryID}/items", h.listCategoryItems)
	r.Get("/items", h.listItems)
}

type menuCategoryResponse struct {
	ID           int64   `json:"id"`
	Name         string  `json:"name"`
	NameEn       *string `json:"nameEn,omitempty"`
	DisplayOrder int     `json:"displayOrder"`
}

type menuItemResponse struct {
	ID          int64   `json:"id"`
	CategoryID  int64   `json:"categoryId"`
	Name        string  `json:"name"`
	Description *string `json:"description,omitempty"`
	Price       int64   `json:"price"`
	ImageURL    *string `json:"imageUrl,omitempty"`
	Available   bool    `json:"available"`
}

func (h *MenuHandlers) listCategories(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.catalog == nil {
		httpx.WriteError(ctx, w, httpx.NewError("catalog_unavailable", "menu service unavailable", http.StatusServiceUnavailable))
		return
	}

	categories, err := h.catalog.Categories(ctx)
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}

	out := make([]menuCategoryResponse, 0, len(categories))
	for _, category := range categories {
		out = append(out, menuCategoryResponse{
			ID:           category.ID,
			Name:         category.Name,
			NameEn:       category.NameEn,
			DisplayOrder: category.DisplayOrder,
		})
	}
	writeJSONResponse(w, http.StatusOK, map[string]any{"categories": out})
}

func (h *MenuHandlers) listItems(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.catalog == nil {
		httpx.WriteError(ctx, w, httpx.NewError("catalog_unavailable", "menu service unavailable", http.StatusServiceUnavailable))
		return
	}

	items, err := h.catalog.Items(ctx)
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, map[string]any{"items": menuItemResponses(items)})
}

func (h *MenuHandlers) listCategoryItems(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.catalog == nil {
		httpx.WriteError(ctx, w, httpx.NewError("catalog_unavailable", "menu service unavailable", http.StatusServiceUnavailable))
		return
	}

	categoryID, err := strconv.ParseInt(chi.URLParam(r, "categoryID"), 10, 64)
	if err != nil || categoryID <= 0 {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "category id must be a positive integer", http.StatusBadRequest))
		return
	}

	items, err := h.catalog.ItemsByCategory(ctx, categoryID)
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, map[string]any{"items": menuItemResponses(items)})
}

func menuItemResponses(items []domain.MenuItem) []menuItemResponse {
	out := make([]menuItemResponse, 0, len(items))
	for _, item := range items {
		out = append(out, menuItemResponse{
			ID:          item.ID,
			CategoryID:  item.CategoryID,
			Name:        item.Name,
			Description: item.Description,
			Price:       item.UnitPrice,
			ImageURL:    item.ImageURL,
			Available:   item.Available,
		})
	}
	return out
}
