package pricing

import (
	"errors"
	"fmt"
	"time"

	"github.com/noah-isme/backend-lapak/internal/coupon"
	"github.com/noah-isme/backend-lapak/internal/promo"
)

// ErrInvariantViolation indicates a summary whose components do not add up.
// It signals a bug; tests assert it never happens and production callers log
// it loudly instead of silently tolerating it.
var ErrInvariantViolation = errors.New("cart summary arithmetic invariant violated")

// Summary is the aggregate checkout-ready total derived from all cart
// lines, promotions, coupon and shipping. Total always equals
// Subtotal - TotalDiscount + Shipping.
type Summary struct {
	Subtotal          Money        `json:"subtotal"`
	Lines             []PricedLine `json:"discounts"`
	PromotionDiscount Money        `json:"promotionDiscount"`
	CouponDiscount    Money        `json:"couponDiscount"`
	TotalDiscount     Money        `json:"totalDiscount"`
	Shipping          Money        `json:"shipping"`
	Total             Money        `json:"finalTotal"`
}

// BuildSummary computes the cart summary. It is pure: identical inputs give
// identical output, and no input is mutated.
//
// The coupon is an independent discount layer applied to the pre-discount
// subtotal, additive with the promotion discount rather than chained
// multiplicatively. An invalid or nil coupon contributes zero and never
// breaks the arithmetic contract. TotalDiscount is clamped to the subtotal
// so a cart can never go below zero before shipping.
func BuildSummary(lines []Line, promos []promo.Promotion, c *coupon.Validation, shipping Money, now time.Time) Summary {
	priced, promotionDiscount := PriceLines(lines, promos, now)
	var subtotal Money
	for _, pl := range priced {
		subtotal += pl.LineSubtotal
	}
	var couponDiscount Money
	if c != nil && c.Valid && c.PercentBps > 0 {
		couponDiscount = (subtotal*Money(c.PercentBps) + 5000) / 10000
	}
	totalDiscount := promotionDiscount + couponDiscount
	if totalDiscount > subtotal {
		totalDiscount = subtotal
	}
	if shipping < 0 {
		shipping = 0
	}
	return Summary{
		Subtotal:          subtotal,
		Lines:             priced,
		PromotionDiscount: promotionDiscount,
		CouponDiscount:    couponDiscount,
		TotalDiscount:     totalDiscount,
		Shipping:          shipping,
		Total:             subtotal - totalDiscount + shipping,
	}
}

// Check verifies the arithmetic invariant of the summary.
func (s Summary) Check() error {
	if s.Total != s.Subtotal-s.TotalDiscount+s.Shipping {
		return fmt.Errorf("%w: subtotal=%d totalDiscount=%d shipping=%d total=%d",
			ErrInvariantViolation, s.Subtotal, s.TotalDiscount, s.Shipping, s.Total)
	}
	if s.TotalDiscount > s.Subtotal {
		return fmt.Errorf("%w: totalDiscount %d exceeds subtotal %d", ErrInvariantViolation, s.TotalDiscount, s.Subtotal)
	}
	return nil
}
