package promo

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/noah-isme/backend-lapak/internal/common"
)

// Handler wires the promotion service to HTTP.
type Handler struct {
	Svc      *Service
	Validate *validator.Validate
}

type upsertRequest struct {
	Name               string     `json:"name" validate:"required"`
	Type               string     `json:"type" validate:"required,oneof=percentage fixed_amount buy_x_get_y"`
	DiscountPercentage *float64   `json:"discountPercentage" validate:"omitempty,gt=0,lte=100"`
	DiscountAmount     *int64     `json:"discountAmount" validate:"omitempty,gte=0"`
	BuyQuantity        *int       `json:"buyQuantity" validate:"omitempty,min=1"`
	GetQuantity        *int       `json:"getQuantity" validate:"omitempty,min=1"`
	SpecificProducts   []string   `json:"specificProducts"`
	StartDate          *time.Time `json:"startDate"`
	EndDate            *time.Time `json:"endDate"`
	IsActive           *bool      `json:"isActive"`
}

// Active lists promotions usable right now, optionally narrowed to a product.
func (h *Handler) Active(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "promotion service not configured", nil)
		return
	}
	promos, err := h.Svc.Active(r.Context())
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "unable to load promotions", nil)
		return
	}
	if productID := strings.TrimSpace(r.URL.Query().Get("productId")); productID != "" {
		promos = Eligible(promos, productID, h.Svc.now())
	}
	out := make([]Payload, 0, len(promos))
	for _, p := range promos {
		out = append(out, toPayload(p))
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": out})
}

// AdminCreate ingests a new promotion after payload validation.
func (h *Handler) AdminCreate(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "promotion service not configured", nil)
		return
	}
	payload, ok := h.decodeUpsert(w, r)
	if !ok {
		return
	}
	created, err := h.Svc.Create(r.Context(), payload)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{"data": toPayload(created)})
}

// AdminUpdate replaces a promotion record.
func (h *Handler) AdminUpdate(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "promotion service not configured", nil)
		return
	}
	id := strings.TrimSpace(chi.URLParam(r, "id"))
	if id == "" {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "promotion id is required", nil)
		return
	}
	payload, ok := h.decodeUpsert(w, r)
	if !ok {
		return
	}
	updated, err := h.Svc.Update(r.Context(), id, payload)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": toPayload(updated)})
}

func (h *Handler) decodeUpsert(w http.ResponseWriter, r *http.Request) (Payload, bool) {
	var req upsertRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return Payload{}, false
	}
	if h.Validate != nil {
		if err := h.Validate.Struct(req); err != nil {
			common.JSONError(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error(), nil)
			return Payload{}, false
		}
	}
	return Payload{
		Name:               req.Name,
		Type:               req.Type,
		DiscountPercentage: req.DiscountPercentage,
		DiscountAmount:     req.DiscountAmount,
		BuyQuantity:        req.BuyQuantity,
		GetQuantity:        req.GetQuantity,
		SpecificProducts:   req.SpecificProducts,
		StartDate:          req.StartDate,
		EndDate:            req.EndDate,
		IsActive:           req.IsActive,
	}, true
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrInvalidParameters):
		common.JSONError(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error(), nil)
	case errors.Is(err, ErrNotFound):
		common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "promotion not found", nil)
	default:
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", err.Error(), nil)
	}
}

func toPayload(p Promotion) Payload {
	active := p.Active
	out := Payload{
		ID:               p.ID,
		Name:             p.Name,
		Type:             string(p.Kind),
		SpecificProducts: p.ProductIDs,
		StartDate:        p.StartsAt,
		EndDate:          p.EndsAt,
		IsActive:         &active,
	}
	switch p.Kind {
	case KindPercentage:
		pct := float64(p.PercentBps) / 100
		out.DiscountPercentage = &pct
	case KindFixedAmount:
		amount := p.Amount
		out.DiscountAmount = &amount
	case KindBuyXGetY:
		buy, get := p.BuyQty, p.GetQty
		out.BuyQuantity = &buy
		out.GetQuantity = &get
	}
	return out
}
