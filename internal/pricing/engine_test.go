package pricing

import (
	"testing"
	"time"

	"github.com/noah-isme/backend-lapak/internal/promo"
)

var now = time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

func activePercent(id string, bps int32, productIDs ...string) promo.Promotion {
	return promo.Promotion{ID: id, Kind: promo.KindPercentage, PercentBps: bps, ProductIDs: productIDs, Active: true}
}

func TestPriceLinesPercentage(t *testing.T) {
	lines := []Line{{ID: "l1", ProductID: "prod-1", Qty: 3, UnitPrice: 100}}
	promos := []promo.Promotion{activePercent("p1", 2000, "prod-1")}

	priced, discount := PriceLines(lines, promos, now)
	if len(priced) != 1 {
		t.Fatalf("expected one priced line, got %d", len(priced))
	}
	pl := priced[0]
	if pl.FinalUnitPrice != 80 {
		t.Fatalf("expected final unit price 80, got %d", pl.FinalUnitPrice)
	}
	if pl.LineSubtotal != 300 {
		t.Fatalf("line subtotal must stay at original price, got %d", pl.LineSubtotal)
	}
	if pl.LineDiscount != 60 {
		t.Fatalf("expected line discount 60, got %d", pl.LineDiscount)
	}
	if discount != 60 {
		t.Fatalf("expected total discount 60, got %d", discount)
	}
}

func TestPriceLinesBundleFullGroups(t *testing.T) {
	lines := []Line{{ID: "l1", ProductID: "prod-1", Qty: 6, UnitPrice: 50}}
	promos := []promo.Promotion{{
		ID: "b1", Kind: promo.KindBuyXGetY, BuyQty: 2, GetQty: 1,
		ProductIDs: []string{"prod-1"}, Active: true,
	}}

	priced, discount := PriceLines(lines, promos, now)
	pl := priced[0]
	// 6 units = two full 2+1 groups, 4 billed units
	if pl.LineSubtotal != 300 {
		t.Fatalf("expected subtotal 300, got %d", pl.LineSubtotal)
	}
	if pl.LineDiscount != 100 {
		t.Fatalf("expected discount 100, got %d", pl.LineDiscount)
	}
	if pl.FinalUnitPrice != 50 {
		t.Fatalf("bundle must not change unit price, got %d", pl.FinalUnitPrice)
	}
	if discount != 100 {
		t.Fatalf("expected total discount 100, got %d", discount)
	}
}

func TestPriceLinesBundlePartialGroupPaysFull(t *testing.T) {
	lines := []Line{{ID: "l1", ProductID: "prod-1", Qty: 5, UnitPrice: 50}}
	promos := []promo.Promotion{{
		ID: "b1", Kind: promo.KindBuyXGetY, BuyQty: 2, GetQty: 1,
		ProductIDs: []string{"prod-1"}, Active: true,
	}}

	priced, _ := PriceLines(lines, promos, now)
	// one full group (2 billed of 3) plus 2 leftover units billed in full: 4 billed
	if priced[0].LineDiscount != 50 {
		t.Fatalf("expected discount 50 (one free unit), got %d", priced[0].LineDiscount)
	}
}

func TestPriceLinesBundleBelowThreshold(t *testing.T) {
	lines := []Line{{ID: "l1", ProductID: "prod-1", Qty: 2, UnitPrice: 50}}
	promos := []promo.Promotion{{
		ID: "b1", Kind: promo.KindBuyXGetY, BuyQty: 2, GetQty: 1,
		ProductIDs: []string{"prod-1"}, Active: true,
	}}

	priced, _ := PriceLines(lines, promos, now)
	if priced[0].LineDiscount != 0 {
		t.Fatalf("no full bundle group, expected zero discount, got %d", priced[0].LineDiscount)
	}
}

func TestSelectPromotionLowestFinalPriceWins(t *testing.T) {
	promos := []promo.Promotion{
		activePercent("ten", 1000, "prod-1"),
		activePercent("twenty", 2000, "prod-1"),
	}
	selected, quote, ok := SelectPromotion(promos, 100)
	if !ok {
		t.Fatal("expected a selection")
	}
	if selected.ID != "twenty" || quote.FinalUnitPrice != 80 {
		t.Fatalf("expected twenty at 80, got %s at %d", selected.ID, quote.FinalUnitPrice)
	}
}

func TestSelectPromotionTieBreaksOnStartDate(t *testing.T) {
	early := now.Add(-48 * time.Hour)
	late := now.Add(-24 * time.Hour)
	a := activePercent("later", 2000, "prod-1")
	a.StartsAt = &late
	b := activePercent("earlier", 2000, "prod-1")
	b.StartsAt = &early

	selected, _, _ := SelectPromotion([]promo.Promotion{a, b}, 100)
	if selected.ID != "earlier" {
		t.Fatalf("expected earlier start to win, got %s", selected.ID)
	}
}

func TestSelectPromotionAbsentStartDateSortsFirst(t *testing.T) {
	dated := activePercent("dated", 2000, "prod-1")
	start := now.Add(-time.Hour)
	dated.StartsAt = &start
	undated := activePercent("undated", 2000, "prod-1")

	selected, _, _ := SelectPromotion([]promo.Promotion{dated, undated}, 100)
	if selected.ID != "undated" {
		t.Fatalf("expected undated promotion to win the tie, got %s", selected.ID)
	}
}

func TestSelectPromotionFinalTieBreaksOnID(t *testing.T) {
	a := activePercent("bbb", 2000, "prod-1")
	b := activePercent("aaa", 2000, "prod-1")
	selected, _, _ := SelectPromotion([]promo.Promotion{a, b}, 100)
	if selected.ID != "aaa" {
		t.Fatalf("expected smallest id to win, got %s", selected.ID)
	}
}

func TestSelectPromotionBundleLosesToPriceCut(t *testing.T) {
	// A bundle keeps the unit price unchanged, so any percentage cut beats it
	// on final unit price even when the bundle would save more per line.
	bundle := promo.Promotion{
		ID: "bundle", Kind: promo.KindBuyXGetY, BuyQty: 1, GetQty: 1,
		ProductIDs: []string{"prod-1"}, Active: true,
	}
	cut := activePercent("cut", 500, "prod-1")
	selected, _, _ := SelectPromotion([]promo.Promotion{bundle, cut}, 100)
	if selected.ID != "cut" {
		t.Fatalf("expected price cut to win, got %s", selected.ID)
	}
}

func TestPriceLinesSkipsNonPositiveQty(t *testing.T) {
	lines := []Line{
		{ID: "l1", ProductID: "prod-1", Qty: 0, UnitPrice: 100},
		{ID: "l2", ProductID: "prod-1", Qty: 1, UnitPrice: 100},
	}
	priced, _ := PriceLines(lines, nil, now)
	if len(priced) != 1 || priced[0].LineID != "l2" {
		t.Fatalf("expected only the positive-qty line, got %v", priced)
	}
}

func TestPriceLinesDeterministic(t *testing.T) {
	lines := []Line{
		{ID: "l1", ProductID: "prod-1", Qty: 3, UnitPrice: 100},
		{ID: "l2", ProductID: "prod-2", Qty: 2, UnitPrice: 250},
	}
	promos := []promo.Promotion{
		activePercent("p1", 2000, "prod-1"),
		activePercent("p2", 1000, "prod-2"),
	}
	first, firstDiscount := PriceLines(lines, promos, now)
	second, secondDiscount := PriceLines(lines, promos, now)
	if firstDiscount != secondDiscount {
		t.Fatalf("discount not deterministic: %d vs %d", firstDiscount, secondDiscount)
	}
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("line %d differs between runs: %+v vs %+v", i, first[i], second[i])
		}
	}
}
