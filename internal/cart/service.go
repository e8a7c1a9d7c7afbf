package cart

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-lapak/internal/catalog"
	"github.com/noah-isme/backend-lapak/internal/coupon"
	"github.com/noah-isme/backend-lapak/internal/obs"
	"github.com/noah-isme/backend-lapak/internal/pricing"
	"github.com/noah-isme/backend-lapak/internal/promo"
)

// ErrNotFound indicates the requested cart or item could not be located.
var ErrNotFound = errors.New("cart not found")

// ErrInvalidInput is returned when the provided payload is invalid.
var ErrInvalidInput = errors.New("invalid input")

// ErrSuperseded is returned when a coupon validation result arrived after a
// newer code was submitted for the same cart. The stale result is discarded.
var ErrSuperseded = errors.New("coupon validation superseded")

// Service encapsulates cart domain operations.
type Service struct {
	Store   *Store
	Catalog *catalog.Store
	Promos  *promo.Service
	Coupons coupon.Validator
	Guard   *coupon.Guard
	TTL     time.Duration
	Now     func() time.Time
	Logger  zerolog.Logger
}

func (s *Service) ttl() time.Duration {
	if s == nil || s.TTL <= 0 {
		return 7 * 24 * time.Hour
	}
	return s.TTL
}

func (s *Service) now() time.Time {
	if s != nil && s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// EnsureCart loads or creates a cart for the provided identifiers.
func (s *Service) EnsureCart(ctx context.Context, userID *string, anonID *string) (Cart, error) {
	if s == nil || s.Store == nil {
		return Cart{}, errors.New("cart service not configured")
	}
	now := s.now()
	expires := now.Add(s.ttl())

	if userID != nil && *userID != "" {
		c, err := s.Store.GetActiveByUser(ctx, *userID, now)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return s.Store.Create(ctx, userID, nil, expires)
			}
			return Cart{}, err
		}
		_ = s.Store.Touch(ctx, c.ID, expires)
		return c, nil
	}

	if anonID != nil && *anonID != "" {
		c, err := s.Store.GetActiveByAnon(ctx, *anonID, now)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return s.Store.Create(ctx, nil, anonID, expires)
			}
			return Cart{}, err
		}
		_ = s.Store.Touch(ctx, c.ID, expires)
		return c, nil
	}

	return Cart{}, ErrInvalidInput
}

// AddItem inserts or increments a cart line. The unit price is snapshotted
// from the catalog at this moment and never re-read afterwards, so later
// catalog price changes cannot alter a cart.
func (s *Service) AddItem(ctx context.Context, cartID, productID string, size, color *string, qty int) error {
	if s == nil || s.Store == nil {
		return errors.New("cart service not configured")
	}
	if qty <= 0 {
		return fmt.Errorf("qty must be positive: %w", ErrInvalidInput)
	}
	if _, err := s.Store.GetByID(ctx, cartID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return err
	}
	expires := s.now().Add(s.ttl())
	existing, err := s.Store.FindItemByVariant(ctx, cartID, productID, size, color)
	if err == nil {
		if err := s.Store.UpdateItemQty(ctx, existing.ID, existing.Qty+qty); err != nil {
			return err
		}
		_ = s.Store.Touch(ctx, cartID, expires)
		return nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return err
	}

	product, err := s.Catalog.GetByID(ctx, productID)
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			return fmt.Errorf("unknown product: %w", ErrInvalidInput)
		}
		return err
	}
	unitPrice := product.Price
	if unitPrice < 0 {
		unitPrice = 0
	}
	if _, err := s.Store.CreateItem(ctx, Item{
		CartID:    cartID,
		ProductID: productID,
		Title:     product.Title,
		Slug:      product.Slug,
		Size:      size,
		Color:     color,
		Qty:       qty,
		UnitPrice: unitPrice,
	}); err != nil {
		return err
	}
	_ = s.Store.Touch(ctx, cartID, expires)
	return nil
}

// UpdateQty updates the quantity for a cart item.
func (s *Service) UpdateQty(ctx context.Context, itemID string, qty int) error {
	if s == nil || s.Store == nil {
		return errors.New("cart service not configured")
	}
	if qty <= 0 {
		return fmt.Errorf("qty must be positive: %w", ErrInvalidInput)
	}
	item, err := s.Store.GetItemByID(ctx, itemID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return err
	}
	if err := s.Store.UpdateItemQty(ctx, item.ID, qty); err != nil {
		return err
	}
	_ = s.Store.Touch(ctx, item.CartID, s.now().Add(s.ttl()))
	return nil
}

// RemoveItem deletes a cart item.
func (s *Service) RemoveItem(ctx context.Context, cartID, itemID string) error {
	if s == nil || s.Store == nil {
		return errors.New("cart service not configured")
	}
	if err := s.Store.DeleteItem(ctx, cartID, itemID); err != nil {
		return err
	}
	_ = s.Store.Touch(ctx, cartID, s.now().Add(s.ttl()))
	return nil
}

// ApplyCoupon validates a code against the coupon service and attaches it
// to the cart. Validations serialise per cart: if a newer code is submitted
// while this one is in flight, the stale result is discarded and
// ErrSuperseded returned, so a slow response can never overwrite the
// summary for newer input.
func (s *Service) ApplyCoupon(ctx context.Context, cartID, code string, userID string) (coupon.Validation, error) {
	if s == nil || s.Store == nil {
		return coupon.Validation{}, errors.New("cart service not configured")
	}
	if code == "" {
		return coupon.Validation{}, fmt.Errorf("coupon code required: %w", ErrInvalidInput)
	}
	if _, err := s.Store.GetByID(ctx, cartID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return coupon.Validation{}, ErrNotFound
		}
		return coupon.Validation{}, err
	}
	var gen uint64
	if s.Guard != nil {
		gen = s.Guard.Begin(cartID)
	}
	validation, err := s.validateCoupon(ctx, code, userID)
	if s.Guard != nil && !s.Guard.Commit(cartID, gen) {
		if obs.CouponSupersededTotal != nil {
			obs.CouponSupersededTotal.Inc()
		}
		return coupon.Validation{}, ErrSuperseded
	}
	if err != nil {
		return coupon.Validation{}, err
	}
	if !validation.Valid {
		// The rejection reason is presentation-only; nothing is stored.
		return validation, nil
	}
	normalized := validation.Code
	if err := s.Store.SetCouponCode(ctx, cartID, &normalized); err != nil {
		return coupon.Validation{}, err
	}
	_ = s.Store.Touch(ctx, cartID, s.now().Add(s.ttl()))
	return validation, nil
}

// RemoveCoupon clears an applied coupon.
func (s *Service) RemoveCoupon(ctx context.Context, cartID string) error {
	if s == nil || s.Store == nil {
		return errors.New("cart service not configured")
	}
	if s.Guard != nil {
		s.Guard.Begin(cartID) // invalidate any in-flight validation
	}
	if err := s.Store.SetCouponCode(ctx, cartID, nil); err != nil {
		return err
	}
	_ = s.Store.Touch(ctx, cartID, s.now().Add(s.ttl()))
	return nil
}

// Preview computes the provisional summary for a cart: lines priced by the
// engine, the stored coupon revalidated, shipping not yet chosen. Promotion
// or coupon collaborator failures degrade to undiscounted pricing; the cart
// view itself never fails because of them.
func (s *Service) Preview(ctx context.Context, cartID string) (pricing.Summary, []Item, *coupon.Validation, error) {
	if s == nil || s.Store == nil {
		return pricing.Summary{}, nil, nil, errors.New("cart service not configured")
	}
	c, err := s.Store.GetByID(ctx, cartID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return pricing.Summary{}, nil, nil, ErrNotFound
		}
		return pricing.Summary{}, nil, nil, err
	}
	now := s.now()
	if c.ExpiresAt != nil && c.ExpiresAt.Before(now) {
		return pricing.Summary{}, nil, nil, ErrNotFound
	}
	items, err := s.Store.ListItems(ctx, cartID)
	if err != nil {
		return pricing.Summary{}, nil, nil, err
	}

	var promos []promo.Promotion
	if s.Promos != nil {
		promos = s.Promos.ActiveOrEmpty(ctx)
	}

	var validation *coupon.Validation
	if c.CouponCode != nil && *c.CouponCode != "" {
		v, err := s.validateCoupon(ctx, *c.CouponCode, ptrValue(c.UserID))
		if err != nil {
			s.Logger.Warn().Err(err).Str("cart_id", cartID).Msg("coupon revalidation failed, pricing without coupon")
		} else {
			validation = &v
		}
	}

	summary := pricing.BuildSummary(Lines(items), promos, validation, 0, now)
	if err := summary.Check(); err != nil {
		s.Logger.Error().Err(err).Str("cart_id", cartID).Msg("summary invariant violation")
	}
	if obs.SummaryComputedTotal != nil {
		obs.SummaryComputedTotal.WithLabelValues("cart_preview").Inc()
	}
	countSelectedPromotions(summary, promos)
	return summary, items, validation, nil
}

// countSelectedPromotions records which promotion kinds won a cart line.
func countSelectedPromotions(summary pricing.Summary, promos []promo.Promotion) {
	if obs.PromotionSelectedTotal == nil {
		return
	}
	kinds := make(map[string]promo.Kind, len(promos))
	for _, p := range promos {
		kinds[p.ID] = p.Kind
	}
	for _, line := range summary.Lines {
		if line.PromotionID == "" {
			continue
		}
		if kind, ok := kinds[line.PromotionID]; ok {
			obs.PromotionSelectedTotal.WithLabelValues(string(kind)).Inc()
		}
	}
}

// Merge moves guest cart items into the user's active cart returning the
// resulting cart identifier. For duplicate lines the larger quantity wins.
func (s *Service) Merge(ctx context.Context, guestCartID, userID string) (string, error) {
	if s == nil || s.Store == nil {
		return "", errors.New("cart service not configured")
	}
	guest, err := s.Store.GetByID(ctx, guestCartID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", ErrNotFound
		}
		return "", err
	}
	userCart, err := s.EnsureCart(ctx, &userID, nil)
	if err != nil {
		return "", err
	}
	guestItems, err := s.Store.ListItems(ctx, guest.ID)
	if err != nil {
		return "", err
	}
	for _, item := range guestItems {
		existing, err := s.Store.FindItemByVariant(ctx, userCart.ID, item.ProductID, item.Size, item.Color)
		if err == nil {
			if existing.Qty < item.Qty {
				if err := s.Store.UpdateItemQty(ctx, existing.ID, item.Qty); err != nil {
					return "", err
				}
			}
			continue
		}
		if !errors.Is(err, pgx.ErrNoRows) {
			return "", err
		}
		item.ID = ""
		item.CartID = userCart.ID
		if _, err := s.Store.CreateItem(ctx, item); err != nil {
			return "", err
		}
	}
	now := s.now()
	_ = s.Store.Touch(ctx, userCart.ID, now.Add(s.ttl()))
	_ = s.Store.Touch(ctx, guest.ID, now)
	_ = s.Store.SetCouponCode(ctx, guest.ID, nil)
	_ = s.Store.TransferToUser(ctx, guest.ID, userID)
	return userCart.ID, nil
}

func (s *Service) validateCoupon(ctx context.Context, code, userID string) (coupon.Validation, error) {
	if s.Coupons == nil {
		return coupon.Validation{}, errors.New("coupon validator not configured")
	}
	validation, err := s.Coupons.Validate(ctx, code, userID)
	if obs.CouponValidationTotal != nil {
		result := "error"
		if err == nil {
			if validation.Valid {
				result = "valid"
			} else {
				result = validation.Reason
			}
		}
		obs.CouponValidationTotal.WithLabelValues(result).Inc()
	}
	return validation, err
}

// Lines converts stored cart items into pricing engine input.
func Lines(items []Item) []pricing.Line {
	lines := make([]pricing.Line, 0, len(items))
	for _, item := range items {
		lines = append(lines, pricing.Line{
			ID:        item.ID,
			ProductID: item.ProductID,
			Title:     item.Title,
			Qty:       item.Qty,
			UnitPrice: item.UnitPrice,
			Size:      ptrValue(item.Size),
			Color:     ptrValue(item.Color),
		})
	}
	return lines
}

func ptrValue(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}
