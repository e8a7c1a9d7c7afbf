package obs

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	domainOnce sync.Once

	// SummaryComputedTotal counts cart summary computations by surface.
	SummaryComputedTotal *prometheus.CounterVec
	// PromotionSelectedTotal counts promotion applications by kind.
	PromotionSelectedTotal *prometheus.CounterVec
	// CouponValidationTotal counts coupon validation outcomes.
	CouponValidationTotal *prometheus.CounterVec
	// CouponSupersededTotal counts validation results discarded as stale.
	CouponSupersededTotal prometheus.Counter
	// ShippingQuoteTotal counts shipping quote outcomes.
	ShippingQuoteTotal *prometheus.CounterVec
	// CheckoutPriceMismatchTotal counts checkouts where the client-shown
	// total differed from the authoritative recompute.
	CheckoutPriceMismatchTotal prometheus.Counter
)

// MustRegisterDomainMetrics initialises and registers domain-specific Prometheus collectors.
func MustRegisterDomainMetrics(namespace string, reg prometheus.Registerer) {
	domainOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		SummaryComputedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pricing_summary_total",
			Help:      "Count of cart summary computations by surface.",
		}, []string{"surface"})
		PromotionSelectedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "promotion_selected_total",
			Help:      "Count of promotions applied to cart lines by kind.",
		}, []string{"kind"})
		CouponValidationTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "coupon_validation_total",
			Help:      "Count of coupon validation outcomes.",
		}, []string{"result"})
		CouponSupersededTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "coupon_superseded_total",
			Help:      "Count of coupon validation results discarded as superseded.",
		})
		ShippingQuoteTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "shipping_quote_total",
			Help:      "Count of shipping quote outcomes.",
		}, []string{"result"})
		CheckoutPriceMismatchTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "checkout_price_mismatch_total",
			Help:      "Count of checkouts whose advisory client total differed from the server recompute.",
		})

		mustRegisterCollector(reg, SummaryComputedTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				SummaryComputedTotal = v
			}
		})
		mustRegisterCollector(reg, PromotionSelectedTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				PromotionSelectedTotal = v
			}
		})
		mustRegisterCollector(reg, CouponValidationTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				CouponValidationTotal = v
			}
		})
		mustRegisterCollector(reg, CouponSupersededTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(prometheus.Counter); ok {
				CouponSupersededTotal = v
			}
		})
		mustRegisterCollector(reg, ShippingQuoteTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				ShippingQuoteTotal = v
			}
		})
		mustRegisterCollector(reg, CheckoutPriceMismatchTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(prometheus.Counter); ok {
				CheckoutPriceMismatchTotal = v
			}
		})
	})
}

func mustRegisterCollector(reg prometheus.Registerer, collector prometheus.Collector, replace func(prometheus.Collector)) {
	if err := reg.Register(collector); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			replace(are.ExistingCollector)
			return
		}
		panic(err)
	}
}
