package pricing

import (
	"time"

	"github.com/noah-isme/backend-lapak/internal/promo"
)

// Money represents a monetary value stored in integer currency units.
type Money = promo.Money

// Line is a snapshot of one cart line used for pricing calculation. The
// unit price was captured at add-to-cart time and is never re-read from the
// catalog.
type Line struct {
	ID        string
	ProductID string
	Title     string
	Qty       int
	UnitPrice Money
	Size      string
	Color     string
}

// PricedLine is one cart line with its selected promotion applied.
// LineSubtotal is always priced at the original unit price; LineDiscount
// covers both unit-price cuts and bundle-quantity bonuses.
type PricedLine struct {
	LineID         string `json:"lineId"`
	ProductID      string `json:"productId"`
	Title          string `json:"title"`
	Qty            int    `json:"qty"`
	UnitPrice      Money  `json:"unitPrice"`
	PromotionID    string `json:"promotionId,omitempty"`
	PromotionName  string `json:"promotionName,omitempty"`
	FinalUnitPrice Money  `json:"finalUnitPrice"`
	Badge          string `json:"badge,omitempty"`
	Sublabel       string `json:"sublabel,omitempty"`
	LineSubtotal   Money  `json:"lineSubtotal"`
	LineDiscount   Money  `json:"lineDiscount"`
}

// PriceLines applies at most one promotion to every line and returns the
// priced lines together with the total promotion discount.
//
// When several promotions are eligible for a line the one yielding the
// lowest final unit price wins; ties break on earliest start date (absent
// dates sort first), then on the lexicographically smallest id. Discounts
// are never stacked across promotions.
func PriceLines(lines []Line, promos []promo.Promotion, now time.Time) ([]PricedLine, Money) {
	priced := make([]PricedLine, 0, len(lines))
	var totalDiscount Money
	for _, line := range lines {
		if line.Qty <= 0 {
			continue
		}
		pl := PricedLine{
			LineID:         line.ID,
			ProductID:      line.ProductID,
			Title:          line.Title,
			Qty:            line.Qty,
			UnitPrice:      line.UnitPrice,
			FinalUnitPrice: line.UnitPrice,
			LineSubtotal:   Money(line.Qty) * line.UnitPrice,
		}
		if selected, quote, ok := SelectPromotion(promo.Eligible(promos, line.ProductID, now), line.UnitPrice); ok {
			pl.PromotionID = selected.ID
			pl.PromotionName = selected.Name
			pl.FinalUnitPrice = quote.FinalUnitPrice
			pl.Badge = quote.Badge
			pl.Sublabel = quote.Sublabel
			pl.LineDiscount = pl.LineSubtotal - chargedAmount(selected, quote, line)
		}
		totalDiscount += pl.LineDiscount
		priced = append(priced, pl)
	}
	return priced, totalDiscount
}

// SelectPromotion picks the single winning promotion for a product at the
// given unit price. Every pricing surface uses this same rule.
func SelectPromotion(eligible []promo.Promotion, unitPrice Money) (promo.Promotion, promo.DiscountResult, bool) {
	var (
		best      promo.Promotion
		bestQuote promo.DiscountResult
		found     bool
	)
	for _, candidate := range eligible {
		quote := promo.Quote(candidate, unitPrice)
		if !found || beats(candidate, quote, best, bestQuote) {
			best = candidate
			bestQuote = quote
			found = true
		}
	}
	return best, bestQuote, found
}

// beats reports whether candidate a wins over current best b.
func beats(a promo.Promotion, qa promo.DiscountResult, b promo.Promotion, qb promo.DiscountResult) bool {
	if qa.FinalUnitPrice != qb.FinalUnitPrice {
		return qa.FinalUnitPrice < qb.FinalUnitPrice
	}
	if !startEqual(a.StartsAt, b.StartsAt) {
		return startBefore(a.StartsAt, b.StartsAt)
	}
	return a.ID < b.ID
}

func startEqual(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Equal(*b)
}

// startBefore orders start dates with absent ones first.
func startBefore(a, b *time.Time) bool {
	if a == nil {
		return b != nil
	}
	if b == nil {
		return false
	}
	return a.Before(*b)
}

// chargedAmount computes what the line actually costs under the promotion.
// For bundles every full (buy+get)-sized group is charged buy units; a
// partial group pays full price with no partial bonus.
func chargedAmount(p promo.Promotion, quote promo.DiscountResult, line Line) Money {
	if p.Kind != promo.KindBuyXGetY {
		return Money(line.Qty) * quote.FinalUnitPrice
	}
	bundle := p.BuyQty + p.GetQty
	groups := line.Qty / bundle
	billedUnits := p.BuyQty*groups + line.Qty%bundle
	return Money(billedUnits) * line.UnitPrice
}
