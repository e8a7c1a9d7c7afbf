package promo

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
)

// ErrInvalidParameters is returned when a promotion payload carries
// malformed parameters. Rejection happens here, at ingestion time; the pure
// computation functions assume pre-validated records.
var ErrInvalidParameters = errors.New("invalid promotion parameters")

// Payload mirrors the wire shape delivered by the promotions backend.
// Unknown kinds and parameter combinations are rejected: the internal model
// is a closed tagged union, not an open record.
type Payload struct {
	ID                 string     `json:"_id"`
	Name               string     `json:"name"`
	Type               string     `json:"type"`
	DiscountPercentage *float64   `json:"discountPercentage,omitempty"`
	DiscountAmount     *int64     `json:"discountAmount,omitempty"`
	BuyQuantity        *int       `json:"buyQuantity,omitempty"`
	GetQuantity        *int       `json:"getQuantity,omitempty"`
	SpecificProducts   []string   `json:"specificProducts"`
	StartDate          *time.Time `json:"startDate,omitempty"`
	EndDate            *time.Time `json:"endDate,omitempty"`
	IsActive           *bool      `json:"isActive,omitempty"`
	Status             *string    `json:"status,omitempty"`
}

// Parse validates a wire payload and converts it into the internal model.
func Parse(p Payload) (Promotion, error) {
	if strings.TrimSpace(p.ID) == "" {
		return Promotion{}, fmt.Errorf("promotion id is required: %w", ErrInvalidParameters)
	}
	out := Promotion{
		ID:         p.ID,
		Name:       strings.TrimSpace(p.Name),
		ProductIDs: compactIDs(p.SpecificProducts),
		StartsAt:   p.StartDate,
		EndsAt:     p.EndDate,
		Active:     parseActive(p),
	}
	switch Kind(p.Type) {
	case KindPercentage:
		if p.DiscountPercentage == nil {
			return Promotion{}, fmt.Errorf("percentage promotion %s missing discountPercentage: %w", p.ID, ErrInvalidParameters)
		}
		bps, err := PercentToBps(*p.DiscountPercentage)
		if err != nil {
			return Promotion{}, fmt.Errorf("promotion %s: %w", p.ID, err)
		}
		out.Kind = KindPercentage
		out.PercentBps = bps
	case KindFixedAmount:
		if p.DiscountAmount == nil || *p.DiscountAmount < 0 {
			return Promotion{}, fmt.Errorf("fixed_amount promotion %s requires discountAmount >= 0: %w", p.ID, ErrInvalidParameters)
		}
		out.Kind = KindFixedAmount
		out.Amount = *p.DiscountAmount
	case KindBuyXGetY:
		if p.BuyQuantity == nil || *p.BuyQuantity < 1 || p.GetQuantity == nil || *p.GetQuantity < 1 {
			return Promotion{}, fmt.Errorf("buy_x_get_y promotion %s requires buyQuantity and getQuantity >= 1: %w", p.ID, ErrInvalidParameters)
		}
		out.Kind = KindBuyXGetY
		out.BuyQty = *p.BuyQuantity
		out.GetQty = *p.GetQuantity
	default:
		return Promotion{}, fmt.Errorf("unknown promotion type %q: %w", p.Type, ErrInvalidParameters)
	}
	if out.StartsAt != nil && out.EndsAt != nil && out.EndsAt.Before(*out.StartsAt) {
		return Promotion{}, fmt.Errorf("promotion %s has endDate before startDate: %w", p.ID, ErrInvalidParameters)
	}
	return out, nil
}

// ParseAll converts a list of payloads, dropping malformed records and
// reporting them through the returned error list. The valid subset is always
// usable: a bad record never fails the whole load.
func ParseAll(payloads []Payload) ([]Promotion, []error) {
	promos := make([]Promotion, 0, len(payloads))
	var errs []error
	for _, payload := range payloads {
		p, err := Parse(payload)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		promos = append(promos, p)
	}
	return promos, errs
}

// PercentToBps converts a percentage in (0,100] to basis points.
func PercentToBps(pct float64) (int32, error) {
	if math.IsNaN(pct) || pct <= 0 || pct > 100 {
		return 0, fmt.Errorf("discountPercentage must be in (0,100], got %v: %w", pct, ErrInvalidParameters)
	}
	return int32(math.Round(pct * 100)), nil
}

func parseActive(p Payload) bool {
	if p.IsActive != nil {
		return *p.IsActive
	}
	if p.Status != nil {
		return strings.EqualFold(strings.TrimSpace(*p.Status), "active")
	}
	return false
}

func compactIDs(ids []string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		trimmed := strings.TrimSpace(id)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
