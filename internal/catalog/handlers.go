package catalog

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/noah-isme/backend-lapak/internal/common"
)

// Handler wires the catalog service to HTTP.
type Handler struct {
	Svc          *Service
	DefaultLimit int
}

// Products lists product cards with their promo preview.
func (h *Handler) Products(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "catalog service not configured", nil)
		return
	}
	page, perPage := common.ParsePagination(r, h.DefaultLimit)
	cards, err := h.Svc.List(r.Context(), page, perPage)
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "unable to load products", nil)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{
		"data": cards,
		"meta": common.Pagination{Page: page, PerPage: perPage, TotalItems: len(cards)},
	})
}

// ProductDetail returns one product card by slug.
func (h *Handler) ProductDetail(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "catalog service not configured", nil)
		return
	}
	slug := chi.URLParam(r, "slug")
	card, err := h.Svc.GetBySlug(r.Context(), slug)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "product not found", nil)
			return
		}
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "unable to load product", nil)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": card})
}
