package cart

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/noah-isme/backend-lapak/internal/catalog"
	"github.com/noah-isme/backend-lapak/internal/common"
	"github.com/noah-isme/backend-lapak/internal/obs"
	"github.com/noah-isme/backend-lapak/internal/shipping"
)

// Handler wires cart operations to HTTP.
type Handler struct {
	Svc      *Service
	Shipping shipping.Client
	Catalog  *catalog.Store
	Origin   string
	Validate *validator.Validate
}

type ensureRequest struct {
	UserID *string `json:"userId"`
	AnonID *string `json:"anonId"`
}

type addItemRequest struct {
	ProductID string  `json:"productId" validate:"required"`
	Size      *string `json:"size"`
	Color     *string `json:"color"`
	Qty       int     `json:"qty" validate:"required,min=1"`
}

type updateItemRequest struct {
	Qty int `json:"qty" validate:"required,min=1"`
}

type applyCouponRequest struct {
	Code   string `json:"code" validate:"required"`
	UserID string `json:"userId"`
}

type mergeRequest struct {
	GuestCartID string `json:"guestCartId" validate:"required"`
	UserID      string `json:"userId" validate:"required"`
}

type quoteShippingRequest struct {
	Destination string `json:"destination" validate:"required"`
}

// Ensure loads or creates the active cart for a user or anonymous session.
func (h *Handler) Ensure(w http.ResponseWriter, r *http.Request) {
	var req ensureRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return
	}
	c, err := h.Svc.EnsureCart(r.Context(), req.UserID, req.AnonID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": c})
}

// Get returns the cart with its priced preview summary.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	cartID := chi.URLParam(r, "cartID")
	summary, items, validation, err := h.Svc.Preview(r.Context(), cartID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	data := map[string]any{
		"cartId":  cartID,
		"items":   items,
		"summary": summary,
	}
	if validation != nil {
		data["coupon"] = validation
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": data})
}

// AddItem inserts or increments a line in the cart.
func (h *Handler) AddItem(w http.ResponseWriter, r *http.Request) {
	cartID := chi.URLParam(r, "cartID")
	var req addItemRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := h.Svc.AddItem(r.Context(), cartID, req.ProductID, req.Size, req.Color, req.Qty); err != nil {
		h.writeError(w, err)
		return
	}
	h.respondPreview(w, r, cartID, http.StatusOK)
}

// UpdateItem changes a line quantity.
func (h *Handler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	cartID := chi.URLParam(r, "cartID")
	itemID := chi.URLParam(r, "itemID")
	var req updateItemRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := h.Svc.UpdateQty(r.Context(), itemID, req.Qty); err != nil {
		h.writeError(w, err)
		return
	}
	h.respondPreview(w, r, cartID, http.StatusOK)
}

// RemoveItem deletes a line from the cart.
func (h *Handler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	cartID := chi.URLParam(r, "cartID")
	itemID := chi.URLParam(r, "itemID")
	if err := h.Svc.RemoveItem(r.Context(), cartID, itemID); err != nil {
		h.writeError(w, err)
		return
	}
	h.respondPreview(w, r, cartID, http.StatusOK)
}

// ApplyCoupon validates a coupon code and attaches it to the cart. An
// invalid code is a 200 with the rejection reason; the pricing summary in
// the response simply carries no coupon discount.
func (h *Handler) ApplyCoupon(w http.ResponseWriter, r *http.Request) {
	cartID := chi.URLParam(r, "cartID")
	var req applyCouponRequest
	if !h.decode(w, r, &req) {
		return
	}
	validation, err := h.Svc.ApplyCoupon(r.Context(), cartID, strings.TrimSpace(req.Code), req.UserID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	summary, items, _, err := h.Svc.Preview(r.Context(), cartID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": map[string]any{
		"cartId":  cartID,
		"coupon":  validation,
		"items":   items,
		"summary": summary,
	}})
}

// RemoveCoupon clears the applied coupon.
func (h *Handler) RemoveCoupon(w http.ResponseWriter, r *http.Request) {
	cartID := chi.URLParam(r, "cartID")
	if err := h.Svc.RemoveCoupon(r.Context(), cartID); err != nil {
		h.writeError(w, err)
		return
	}
	h.respondPreview(w, r, cartID, http.StatusOK)
}

// Merge folds a guest cart into the authenticated user's cart.
func (h *Handler) Merge(w http.ResponseWriter, r *http.Request) {
	var req mergeRequest
	if !h.decode(w, r, &req) {
		return
	}
	cartID, err := h.Svc.Merge(r.Context(), req.GuestCartID, req.UserID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.respondPreview(w, r, cartID, http.StatusOK)
}

// QuoteShipping returns carrier rates for the cart contents. The chosen
// rate's cost later enters the summary as an opaque amount.
func (h *Handler) QuoteShipping(w http.ResponseWriter, r *http.Request) {
	if h.Shipping == nil {
		common.JSONError(w, http.StatusServiceUnavailable, "SHIPPING_UNAVAILABLE", "shipping estimator not configured", nil)
		return
	}
	cartID := chi.URLParam(r, "cartID")
	var req quoteShippingRequest
	if !h.decode(w, r, &req) {
		return
	}
	items, err := h.Svc.Store.ListItems(r.Context(), cartID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if len(items) == 0 {
		common.JSONError(w, http.StatusBadRequest, "EMPTY_CART", "cannot quote shipping for an empty cart", nil)
		return
	}
	rateItems := make([]shipping.RateItem, 0, len(items))
	for _, item := range items {
		ri := shipping.RateItem{ProductID: item.ProductID, Qty: item.Qty}
		if h.Catalog != nil {
			if p, err := h.Catalog.GetByID(r.Context(), item.ProductID); err == nil {
				ri.WeightGram = p.WeightGram
			}
		}
		rateItems = append(rateItems, ri)
	}
	rates, err := h.Shipping.Rates(r.Context(), shipping.RateReq{
		Origin:      h.Origin,
		Destination: req.Destination,
		Items:       rateItems,
	})
	if err != nil {
		if obs.ShippingQuoteTotal != nil {
			obs.ShippingQuoteTotal.WithLabelValues("error").Inc()
		}
		common.JSONError(w, http.StatusServiceUnavailable, "SHIPPING_UNAVAILABLE", "unable to quote shipping rates", nil)
		return
	}
	if obs.ShippingQuoteTotal != nil {
		obs.ShippingQuoteTotal.WithLabelValues("ok").Inc()
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": rates})
}

func (h *Handler) respondPreview(w http.ResponseWriter, r *http.Request, cartID string, status int) {
	summary, items, validation, err := h.Svc.Preview(r.Context(), cartID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	data := map[string]any{
		"cartId":  cartID,
		"items":   items,
		"summary": summary,
	}
	if validation != nil {
		data["coupon"] = validation
	}
	common.JSON(w, status, map[string]any{"data": data})
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return false
	}
	if h.Validate != nil {
		if err := h.Validate.Struct(dst); err != nil {
			common.JSONError(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error(), nil)
			return false
		}
	}
	return true
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrInvalidInput):
		common.JSONError(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error(), nil)
	case errors.Is(err, ErrNotFound):
		common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "cart not found", nil)
	case errors.Is(err, ErrSuperseded):
		common.JSONError(w, http.StatusConflict, "SUPERSEDED", "a newer coupon request replaced this one", nil)
	default:
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", err.Error(), nil)
	}
}
