package checkout

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/noah-isme/backend-lapak/internal/cart"
	"github.com/noah-isme/backend-lapak/internal/common"
)

// Handler wires checkout to HTTP.
type Handler struct {
	Svc      *Service
	Validate *validator.Validate
}

type createRequest struct {
	CartID        string  `json:"cartId" validate:"required"`
	UserID        *string `json:"userId"`
	Address       Addr    `json:"address"`
	Shipping      ShipOpt `json:"shipping"`
	Notes         *string `json:"notes"`
	ExpectedTotal *int64  `json:"expectedTotal"`
}

// Create places an order. Clients should send an Idempotency-Key header so
// retried submissions do not create duplicate orders.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "checkout service not configured", nil)
		return
	}
	var req createRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return
	}
	if h.Validate != nil {
		if err := h.Validate.Struct(req); err != nil {
			common.JSONError(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error(), nil)
			return
		}
	}
	out, err := h.Svc.Create(r.Context(), Input{
		CartID:        req.CartID,
		UserID:        req.UserID,
		Address:       req.Address,
		Shipping:      req.Shipping,
		Notes:         req.Notes,
		ExpectedTotal: req.ExpectedTotal,
	})
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{"data": out})
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	var appErr *common.AppError
	if errors.As(err, &appErr) {
		common.JSONError(w, appErr.HTTPStatus, appErr.Code, appErr.Message, appErr.Details)
		return
	}
	switch {
	case errors.Is(err, ErrPriceChanged):
		common.JSONError(w, http.StatusConflict, "PRICE_CHANGED", "cart pricing changed, refresh and try again", nil)
	case errors.Is(err, ErrEmptyCart):
		common.JSONError(w, http.StatusBadRequest, "EMPTY_CART", "cart is empty", nil)
	case errors.Is(err, cart.ErrInvalidInput):
		common.JSONError(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error(), nil)
	case errors.Is(err, cart.ErrNotFound):
		common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "cart not found", nil)
	default:
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", err.Error(), nil)
	}
}
