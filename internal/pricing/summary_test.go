package pricing

import (
	"errors"
	"testing"

	"github.com/noah-isme/backend-lapak/internal/coupon"
	"github.com/noah-isme/backend-lapak/internal/promo"
)

func TestBuildSummaryPromotionAndShipping(t *testing.T) {
	lines := []Line{{ID: "l1", ProductID: "prod-1", Qty: 3, UnitPrice: 100}}
	promos := []promo.Promotion{activePercent("p1", 2000, "prod-1")}

	s := BuildSummary(lines, promos, nil, 10, now)
	if s.Subtotal != 300 {
		t.Fatalf("expected subtotal 300, got %d", s.Subtotal)
	}
	if s.PromotionDiscount != 60 {
		t.Fatalf("expected promotion discount 60, got %d", s.PromotionDiscount)
	}
	if s.Total != 250 {
		t.Fatalf("expected total 250, got %d", s.Total)
	}
	if err := s.Check(); err != nil {
		t.Fatalf("invariant violated: %v", err)
	}
}

func TestBuildSummaryCouponIsAdditiveOnPreDiscountSubtotal(t *testing.T) {
	lines := []Line{{ID: "l1", ProductID: "prod-1", Qty: 3, UnitPrice: 100}}
	promos := []promo.Promotion{activePercent("p1", 2000, "prod-1")}
	c := &coupon.Validation{Valid: true, Code: "SAVE10", PercentBps: 1000}

	s := BuildSummary(lines, promos, c, 0, now)
	// coupon applies to the 300 pre-discount subtotal, not the 240 after promotion
	if s.CouponDiscount != 30 {
		t.Fatalf("expected coupon discount 30, got %d", s.CouponDiscount)
	}
	if s.TotalDiscount != 90 {
		t.Fatalf("expected total discount 90, got %d", s.TotalDiscount)
	}
	if s.Total != 210 {
		t.Fatalf("expected total 210, got %d", s.Total)
	}
	if err := s.Check(); err != nil {
		t.Fatalf("invariant violated: %v", err)
	}
}

func TestBuildSummaryInvalidCouponContributesNothing(t *testing.T) {
	lines := []Line{{ID: "l1", ProductID: "prod-1", Qty: 1, UnitPrice: 100}}
	c := &coupon.Validation{Valid: false, Code: "EXPIRED", PercentBps: 1000, Reason: coupon.ReasonExpired}

	s := BuildSummary(lines, nil, c, 0, now)
	if s.CouponDiscount != 0 {
		t.Fatalf("invalid coupon must contribute zero, got %d", s.CouponDiscount)
	}
	if s.Total != 100 {
		t.Fatalf("expected total 100, got %d", s.Total)
	}
}

func TestBuildSummaryClampsTotalDiscount(t *testing.T) {
	lines := []Line{{ID: "l1", ProductID: "prod-1", Qty: 1, UnitPrice: 100}}
	promos := []promo.Promotion{{
		ID: "deep", Kind: promo.KindFixedAmount, Amount: 95,
		ProductIDs: []string{"prod-1"}, Active: true,
	}}
	c := &coupon.Validation{Valid: true, Code: "MAX", PercentBps: 5000}

	s := BuildSummary(lines, promos, c, 7, now)
	if s.TotalDiscount != 100 {
		t.Fatalf("expected discount clamped to subtotal 100, got %d", s.TotalDiscount)
	}
	if s.Total != 7 {
		t.Fatalf("expected total to be shipping only, got %d", s.Total)
	}
	if err := s.Check(); err != nil {
		t.Fatalf("invariant violated: %v", err)
	}
}

func TestBuildSummaryNegativeShippingTreatedAsZero(t *testing.T) {
	lines := []Line{{ID: "l1", ProductID: "prod-1", Qty: 1, UnitPrice: 100}}
	s := BuildSummary(lines, nil, nil, -50, now)
	if s.Shipping != 0 || s.Total != 100 {
		t.Fatalf("expected shipping 0 total 100, got shipping %d total %d", s.Shipping, s.Total)
	}
}

func TestBuildSummaryEmptyCart(t *testing.T) {
	s := BuildSummary(nil, nil, nil, 0, now)
	if s.Subtotal != 0 || s.Total != 0 || s.TotalDiscount != 0 {
		t.Fatalf("expected all-zero summary, got %+v", s)
	}
	if err := s.Check(); err != nil {
		t.Fatalf("invariant violated: %v", err)
	}
}

func TestBuildSummaryIdempotent(t *testing.T) {
	lines := []Line{
		{ID: "l1", ProductID: "prod-1", Qty: 3, UnitPrice: 100},
		{ID: "l2", ProductID: "prod-2", Qty: 6, UnitPrice: 50},
	}
	promos := []promo.Promotion{
		activePercent("p1", 2000, "prod-1"),
		{ID: "b1", Kind: promo.KindBuyXGetY, BuyQty: 2, GetQty: 1, ProductIDs: []string{"prod-2"}, Active: true},
	}
	c := &coupon.Validation{Valid: true, Code: "SAVE10", PercentBps: 1000}

	first := BuildSummary(lines, promos, c, 15, now)
	second := BuildSummary(lines, promos, c, 15, now)
	if first.Total != second.Total || first.TotalDiscount != second.TotalDiscount {
		t.Fatalf("summary not deterministic: %+v vs %+v", first, second)
	}
}

func TestCheckDetectsBrokenArithmetic(t *testing.T) {
	s := Summary{Subtotal: 100, TotalDiscount: 10, Shipping: 5, Total: 100}
	if err := s.Check(); !errors.Is(err, ErrInvariantViolation) {
		t.Fatalf("expected ErrInvariantViolation, got %v", err)
	}
}
