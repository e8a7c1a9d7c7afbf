package coupon

import (
	"context"
	"strings"
)

// Rejection reasons reported by the coupon service. The pricing engine
// treats every non-valid result identically; the reason is presentation-only.
const (
	ReasonNotFound      = "not_found"
	ReasonExpired       = "expired"
	ReasonUsageExceeded = "usage_exceeded"
	ReasonInactive      = "inactive"
)

// Validation is the ephemeral outcome of checking a coupon code.
type Validation struct {
	Valid bool   `json:"valid"`
	Code  string `json:"code"`
	// PercentBps is the coupon discount in basis points when valid.
	PercentBps int32 `json:"percentBps,omitempty"`
	// UsageRemaining is negative when the service does not report a limit.
	UsageRemaining int `json:"usageRemaining,omitempty"`
	// Reason holds one of the rejection constants when Valid is false.
	Reason string `json:"reason,omitempty"`
}

// Validator checks a coupon code against the coupon service.
type Validator interface {
	Validate(ctx context.Context, code string, userID string) (Validation, error)
}

// MockValidator resolves codes from a static table. Useful for development
// and tests.
type MockValidator struct {
	// Percents maps upper-case codes to their discount percentage in bps.
	Percents map[string]int32
}

// Validate reports a canned validation for known codes and not_found otherwise.
func (m MockValidator) Validate(_ context.Context, code string, _ string) (Validation, error) {
	normalized := strings.ToUpper(strings.TrimSpace(code))
	if bps, ok := m.Percents[normalized]; ok {
		return Validation{Valid: true, Code: normalized, PercentBps: bps, UsageRemaining: -1}, nil
	}
	return Validation{Valid: false, Code: normalized, Reason: ReasonNotFound}, nil
}
