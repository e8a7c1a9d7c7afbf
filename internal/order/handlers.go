package order

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/noah-isme/backend-lapak/internal/common"
)

// Handler exposes read and cancel operations over orders.
type Handler struct {
	Store *Store
}

// List returns the caller's orders, newest first.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	if h.Store == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "order store not configured", nil)
		return
	}
	userID := strings.TrimSpace(r.URL.Query().Get("userId"))
	if userID == "" {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "userId is required", nil)
		return
	}
	page, limit := common.ParsePagination(r, 20)
	orders, err := h.Store.ListByUser(r.Context(), userID, limit, (page-1)*limit)
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "unable to list orders", nil)
		return
	}
	if orders == nil {
		orders = []Order{}
	}
	common.JSON(w, http.StatusOK, map[string]any{
		"data": orders,
		"meta": map[string]any{"page": page, "limit": limit},
	})
}

// Get returns one order with its lines.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	if h.Store == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "order store not configured", nil)
		return
	}
	id := chi.URLParam(r, "orderID")
	o, err := h.Store.GetByID(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	items, err := h.Store.ListItems(r.Context(), id)
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "unable to load order items", nil)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": map[string]any{
		"order": o,
		"items": items,
	}})
}

// Cancel transitions a pending order to cancelled.
func (h *Handler) Cancel(w http.ResponseWriter, r *http.Request) {
	if h.Store == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "order store not configured", nil)
		return
	}
	id := chi.URLParam(r, "orderID")
	if err := h.Store.Cancel(r.Context(), id); err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": map[string]any{
		"orderId": id,
		"status":  StatusCancelled,
	}})
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "order not found", nil)
	case errors.Is(err, ErrNotCancellable):
		common.JSONError(w, http.StatusConflict, "NOT_CANCELLABLE", "order can no longer be cancelled", nil)
	default:
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", err.Error(), nil)
	}
}
