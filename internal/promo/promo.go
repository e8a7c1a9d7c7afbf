package promo

import "time"

// Money represents a monetary value stored in integer currency units.
type Money = int64

// Kind identifies the promotion variant. The set is closed: payloads with
// any other value are rejected at ingestion time.
type Kind string

const (
	// KindPercentage cuts the unit price by a percentage.
	KindPercentage Kind = "percentage"
	// KindFixedAmount subtracts a fixed amount from the unit price.
	KindFixedAmount Kind = "fixed_amount"
	// KindBuyXGetY grants free bonus units once the buy threshold is met.
	KindBuyXGetY Kind = "buy_x_get_y"
)

// Promotion is an immutable catalog discount rule targeting specific
// products within an optional date window. Each kind carries only its own
// parameters; the zero value of the others is never read.
type Promotion struct {
	ID   string
	Name string
	Kind Kind

	// PercentBps holds the percentage discount in basis points (percentage only).
	PercentBps int32
	// Amount holds the fixed discount per unit (fixed_amount only).
	Amount Money
	// BuyQty and GetQty describe the bundle threshold and bonus (buy_x_get_y only).
	BuyQty int
	GetQty int

	// ProductIDs lists the products this promotion applies to. An empty set
	// means the promotion applies to nothing.
	ProductIDs []string

	StartsAt *time.Time
	EndsAt   *time.Time
	Active   bool
}

// AppliesTo reports whether the promotion targets the given product.
func (p Promotion) AppliesTo(productID string) bool {
	for _, id := range p.ProductIDs {
		if id == productID {
			return true
		}
	}
	return false
}

// EligibleAt reports whether the promotion is usable at the given instant.
// Date bounds are closed intervals: a promotion is eligible on its boundary
// instants.
func (p Promotion) EligibleAt(now time.Time) bool {
	if !p.Active {
		return false
	}
	if p.StartsAt != nil && now.Before(*p.StartsAt) {
		return false
	}
	if p.EndsAt != nil && now.After(*p.EndsAt) {
		return false
	}
	return true
}

// Eligible filters promotions down to those active for the product at the
// given instant. Pure and total; returns an empty slice when nothing matches.
func Eligible(promos []Promotion, productID string, now time.Time) []Promotion {
	out := make([]Promotion, 0, len(promos))
	for _, p := range promos {
		if !p.EligibleAt(now) {
			continue
		}
		if !p.AppliesTo(productID) {
			continue
		}
		out = append(out, p)
	}
	return out
}
