package checkout

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-lapak/internal/cart"
	"github.com/noah-isme/backend-lapak/internal/common"
	"github.com/noah-isme/backend-lapak/internal/coupon"
	"github.com/noah-isme/backend-lapak/internal/obs"
	"github.com/noah-isme/backend-lapak/internal/order"
	"github.com/noah-isme/backend-lapak/internal/pricing"
	"github.com/noah-isme/backend-lapak/internal/promo"
)

// ErrEmptyCart is returned when checkout is attempted on a cart with no items.
var ErrEmptyCart = errors.New("cart is empty")

// ErrPriceChanged is returned when the client-shown total no longer matches
// the authoritative server recompute. The client is expected to refresh the
// cart and resubmit.
var ErrPriceChanged = errors.New("cart pricing changed since last shown")

// Addr is the delivery address captured at checkout.
type Addr struct {
	ReceiverName string `json:"receiverName"`
	Phone        string `json:"phone"`
	Country      string `json:"country"`
	Province     string `json:"province"`
	City         string `json:"city"`
	PostalCode   string `json:"postalCode"`
	AddressLine1 string `json:"addressLine1"`
	AddressLine2 string `json:"addressLine2"`
}

// ShipOpt is the shipping rate the customer picked. Its price enters the
// order summary as an opaque amount.
type ShipOpt struct {
	Courier string `json:"courier"`
	Service string `json:"service"`
	Price   int64  `json:"price"`
	ETD     string `json:"etd"`
}

// Input is a checkout request. ExpectedTotal is advisory: when set, it is
// compared against the server-side recompute so stale client pricing is
// caught before an order is created.
type Input struct {
	CartID        string  `json:"cartId"`
	UserID        *string `json:"userId"`
	Address       Addr    `json:"address"`
	Shipping      ShipOpt `json:"shipping"`
	Notes         *string `json:"notes"`
	ExpectedTotal *int64  `json:"expectedTotal"`
}

// Output describes a created order.
type Output struct {
	OrderID string          `json:"orderId"`
	Status  string          `json:"status"`
	Summary pricing.Summary `json:"summary"`
}

// Service freezes a cart into an order. Pricing is always recomputed
// server-side inside the transaction; whatever totals the client saw are
// never trusted.
type Service struct {
	Pool     *pgxpool.Pool
	Carts    *cart.Store
	Orders   *order.Store
	Promos   *promo.Service
	Coupons  coupon.Validator
	Currency string
	Now      func() time.Time
	Logger   zerolog.Logger
}

func (s *Service) now() time.Time {
	if s != nil && s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// Create places an order from the given cart.
func (s *Service) Create(ctx context.Context, in Input) (Output, error) {
	if s == nil || s.Pool == nil || s.Carts == nil || s.Orders == nil {
		return Output{}, errors.New("checkout service not configured")
	}
	if in.CartID == "" {
		return Output{}, fmt.Errorf("cartId is required: %w", cart.ErrInvalidInput)
	}
	now := s.now()

	c, err := s.Carts.GetByID(ctx, in.CartID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Output{}, cart.ErrNotFound
		}
		return Output{}, err
	}
	if c.ExpiresAt != nil && !c.ExpiresAt.After(now) {
		return Output{}, cart.ErrNotFound
	}
	if c.UserID != nil && in.UserID != nil && *c.UserID != *in.UserID {
		return Output{}, common.NewAppError("FORBIDDEN", "cart does not belong to user", http.StatusForbidden, nil)
	}
	items, err := s.Carts.ListItems(ctx, c.ID)
	if err != nil {
		return Output{}, err
	}
	if len(items) == 0 {
		return Output{}, ErrEmptyCart
	}

	var promos []promo.Promotion
	if s.Promos != nil {
		promos = s.Promos.ActiveOrEmpty(ctx)
	}

	// The coupon is revalidated at checkout time. A coupon that was valid
	// when applied but has since expired simply drops out of the summary.
	var validation *coupon.Validation
	if c.CouponCode != nil && *c.CouponCode != "" && s.Coupons != nil {
		v, err := s.Coupons.Validate(ctx, *c.CouponCode, strValue(c.UserID))
		if err != nil {
			s.Logger.Warn().Err(err).Str("cart_id", c.ID).Msg("coupon revalidation failed at checkout, pricing without coupon")
		} else if v.Valid {
			validation = &v
		}
	}

	shippingCost := pricing.Money(in.Shipping.Price)
	summary := pricing.BuildSummary(cart.Lines(items), promos, validation, shippingCost, now)
	if err := summary.Check(); err != nil {
		return Output{}, err
	}
	if obs.SummaryComputedTotal != nil {
		obs.SummaryComputedTotal.WithLabelValues("checkout").Inc()
	}

	if in.ExpectedTotal != nil && pricing.Money(*in.ExpectedTotal) != summary.Total {
		if obs.CheckoutPriceMismatchTotal != nil {
			obs.CheckoutPriceMismatchTotal.Inc()
		}
		return Output{}, fmt.Errorf("%w: expected %d, got %d", ErrPriceChanged, *in.ExpectedTotal, summary.Total)
	}

	tx, err := s.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return Output{}, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()
	orders := s.Orders.WithTx(tx)

	var couponCode *string
	if validation != nil {
		code := validation.Code
		couponCode = &code
	}
	o, err := orders.Create(ctx, order.Order{
		UserID:            in.UserID,
		CartID:            c.ID,
		Status:            order.StatusPendingPayment,
		Currency:          s.Currency,
		Subtotal:          summary.Subtotal,
		PromotionDiscount: summary.PromotionDiscount,
		CouponDiscount:    summary.CouponDiscount,
		TotalDiscount:     summary.TotalDiscount,
		Shipping:          summary.Shipping,
		Total:             summary.Total,
		CouponCode:        couponCode,
		ShippingAddress:   toJSON(in.Address),
		ShippingOption:    toJSON(in.Shipping),
		Notes:             in.Notes,
	})
	if err != nil {
		return Output{}, err
	}
	priced := indexPriced(summary.Lines)
	for _, item := range items {
		oi := order.Item{
			OrderID:        o.ID,
			ProductID:      item.ProductID,
			Title:          item.Title,
			Slug:           item.Slug,
			Size:           item.Size,
			Color:          item.Color,
			Qty:            item.Qty,
			UnitPrice:      item.UnitPrice,
			FinalUnitPrice: item.UnitPrice,
			LineSubtotal:   pricing.Money(item.Qty) * item.UnitPrice,
		}
		if pl, ok := priced[item.ID]; ok {
			oi.FinalUnitPrice = pl.FinalUnitPrice
			oi.LineSubtotal = pl.LineSubtotal
			oi.LineDiscount = pl.LineDiscount
			if pl.PromotionID != "" {
				id := pl.PromotionID
				oi.PromotionID = &id
			}
		}
		if err := orders.CreateItem(ctx, oi); err != nil {
			return Output{}, err
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return Output{}, err
	}

	// Expire the cart so the same contents cannot be checked out twice.
	_ = s.Carts.Touch(ctx, c.ID, now)

	return Output{OrderID: o.ID, Status: o.Status, Summary: summary}, nil
}

func indexPriced(lines []pricing.PricedLine) map[string]pricing.PricedLine {
	out := make(map[string]pricing.PricedLine, len(lines))
	for _, pl := range lines {
		out[pl.LineID] = pl
	}
	return out
}

func toJSON(v any) []byte {
	b, _ := json.Marshal(v)
	return b
}

func strValue(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}
