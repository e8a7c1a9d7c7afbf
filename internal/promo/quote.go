package promo

import "fmt"

// DiscountResult is the outcome of applying one promotion to a base unit
// price. It is derived on every pricing pass and never persisted.
type DiscountResult struct {
	PromotionID    string
	FinalUnitPrice Money
	DiscountAmount Money
	SuggestedQty   int
	Badge          string
	Sublabel       string
}

// Quote computes the discounted unit price for a single promotion. It
// assumes the promotion was validated at ingestion time and is total over
// well-formed input.
//
// Percentage promotions round the final price half-up to the nearest
// currency unit. Fixed amounts clamp at zero. Bundles leave the unit price
// unchanged; the benefit materialises as bonus quantity, and the sublabel
// states the effective per-unit price across a full bundle.
func Quote(p Promotion, baseUnitPrice Money) DiscountResult {
	res := DiscountResult{
		PromotionID:    p.ID,
		FinalUnitPrice: baseUnitPrice,
		SuggestedQty:   1,
	}
	switch p.Kind {
	case KindPercentage:
		res.FinalUnitPrice = roundDiv(baseUnitPrice*int64(10000-p.PercentBps), 10000)
		res.DiscountAmount = baseUnitPrice - res.FinalUnitPrice
		res.Badge = fmt.Sprintf("-%s%%", formatBps(p.PercentBps))
	case KindFixedAmount:
		final := baseUnitPrice - p.Amount
		if final < 0 {
			final = 0
		}
		res.FinalUnitPrice = final
		res.DiscountAmount = baseUnitPrice - final
		res.Badge = fmt.Sprintf("-%d", baseUnitPrice-final)
	case KindBuyXGetY:
		res.SuggestedQty = p.BuyQty
		res.Badge = fmt.Sprintf("%dx%d", p.BuyQty, p.GetQty)
		bundle := int64(p.BuyQty + p.GetQty)
		effective := roundDiv(int64(p.BuyQty)*baseUnitPrice, bundle)
		res.Sublabel = fmt.Sprintf("%d each when buying %d", effective, bundle)
	}
	return res
}

// roundDiv divides num by den rounding half-up. Inputs are non-negative.
func roundDiv(num, den int64) int64 {
	return (num + den/2) / den
}

// formatBps renders basis points as a percent string, dropping trailing
// zeroes ("2000" -> "20", "1250" -> "12.5").
func formatBps(bps int32) string {
	whole := bps / 100
	frac := bps % 100
	if frac == 0 {
		return fmt.Sprintf("%d", whole)
	}
	if frac%10 == 0 {
		return fmt.Sprintf("%d.%d", whole, frac/10)
	}
	return fmt.Sprintf("%d.%02d", whole, frac)
}
