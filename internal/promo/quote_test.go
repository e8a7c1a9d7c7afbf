package promo

import (
	"testing"
	"time"
)

func TestQuotePercentage(t *testing.T) {
	p := Promotion{ID: "p1", Kind: KindPercentage, PercentBps: 2000}
	res := Quote(p, 100)
	if res.FinalUnitPrice != 80 {
		t.Fatalf("expected final unit price 80, got %d", res.FinalUnitPrice)
	}
	if res.DiscountAmount != 20 {
		t.Fatalf("expected discount 20, got %d", res.DiscountAmount)
	}
	if res.Badge != "-20%" {
		t.Fatalf("unexpected badge %q", res.Badge)
	}
}

func TestQuotePercentageRoundsHalfUp(t *testing.T) {
	p := Promotion{ID: "p1", Kind: KindPercentage, PercentBps: 1250}
	// 999 * 0.875 = 874.125 -> 874
	res := Quote(p, 999)
	if res.FinalUnitPrice != 874 {
		t.Fatalf("expected 874, got %d", res.FinalUnitPrice)
	}
	if res.Badge != "-12.5%" {
		t.Fatalf("unexpected badge %q", res.Badge)
	}

	// 15% off 10: 8.5 rounds half-up to 9
	p = Promotion{ID: "p2", Kind: KindPercentage, PercentBps: 1500}
	res = Quote(p, 10)
	if res.FinalUnitPrice != 9 {
		t.Fatalf("expected 9, got %d", res.FinalUnitPrice)
	}
}

func TestQuoteFixedAmountClampsAtZero(t *testing.T) {
	p := Promotion{ID: "p1", Kind: KindFixedAmount, Amount: 150}
	res := Quote(p, 100)
	if res.FinalUnitPrice != 0 {
		t.Fatalf("expected clamp to 0, got %d", res.FinalUnitPrice)
	}
	if res.DiscountAmount != 100 {
		t.Fatalf("expected discount 100, got %d", res.DiscountAmount)
	}
	if res.Badge != "-100" {
		t.Fatalf("unexpected badge %q", res.Badge)
	}
}

func TestQuoteBundleLeavesUnitPriceUnchanged(t *testing.T) {
	p := Promotion{ID: "p1", Kind: KindBuyXGetY, BuyQty: 2, GetQty: 1}
	res := Quote(p, 100)
	if res.FinalUnitPrice != 100 {
		t.Fatalf("bundle must not change unit price, got %d", res.FinalUnitPrice)
	}
	if res.SuggestedQty != 2 {
		t.Fatalf("expected suggested qty 2, got %d", res.SuggestedQty)
	}
	if res.Badge != "2x1" {
		t.Fatalf("unexpected badge %q", res.Badge)
	}
	// 2*100/3 = 66.67 -> 67 each across a full bundle
	if res.Sublabel != "67 each when buying 3" {
		t.Fatalf("unexpected sublabel %q", res.Sublabel)
	}
}

func TestEligibleAtClosedInterval(t *testing.T) {
	start := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 3, 31, 0, 0, 0, 0, time.UTC)
	p := Promotion{ID: "p1", Active: true, StartsAt: &start, EndsAt: &end}

	if !p.EligibleAt(start) {
		t.Fatal("promotion must be eligible at its start instant")
	}
	if !p.EligibleAt(end) {
		t.Fatal("promotion must be eligible at its end instant")
	}
	if p.EligibleAt(start.Add(-time.Second)) {
		t.Fatal("promotion must not be eligible before start")
	}
	if p.EligibleAt(end.Add(time.Second)) {
		t.Fatal("promotion must not be eligible after end")
	}
}

func TestEligibleAtInactive(t *testing.T) {
	p := Promotion{ID: "p1", Active: false}
	if p.EligibleAt(time.Now()) {
		t.Fatal("inactive promotion must never be eligible")
	}
}

func TestEligibleAtOpenEndedWindow(t *testing.T) {
	p := Promotion{ID: "p1", Active: true}
	if !p.EligibleAt(time.Now()) {
		t.Fatal("promotion without dates must be eligible while active")
	}
}

func TestEligibleFiltersByProduct(t *testing.T) {
	now := time.Now()
	promos := []Promotion{
		{ID: "a", Active: true, ProductIDs: []string{"prod-1"}},
		{ID: "b", Active: true, ProductIDs: []string{"prod-2"}},
		{ID: "c", Active: true},
	}
	got := Eligible(promos, "prod-1", now)
	if len(got) != 1 || got[0].ID != "a" {
		t.Fatalf("expected only promotion a, got %v", got)
	}
}
